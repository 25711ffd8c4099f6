package scanners

import (
	"context"
	"strings"

	"github.com/go-tangra/go-tangra-assets/internal/hwquery"
	"github.com/go-tangra/go-tangra-assets/internal/plugin"
)

// Generic driver names hidden when a more specific device is present.
var (
	keyboardBlacklist = []string{"HID Keyboard Device", "USB Input Device", "PS/2"}
	mouseBlacklist    = []string{"HID-compliant mouse", "USB Input Device"}
)

// Peripherals reports keyboards and pointing devices.
type Peripherals struct{}

func (Peripherals) Name() string     { return "Keyboard and Mouse" }
func (Peripherals) IconName() string { return "keyboard" }

// Scan queries Win32_Keyboard and Win32_PointingDevice.
func (Peripherals) Scan(_ context.Context, q hwquery.Handle) ([]plugin.ScanRecord, error) {
	var keyboards []hwquery.Win32Keyboard
	if err := query(q, "Win32_Keyboard", &keyboards, ""); err != nil {
		return nil, err
	}
	var records []plugin.ScanRecord
	for _, k := range preferSpecific(keyboards, keyboardBlacklist, func(k hwquery.Win32Keyboard) string {
		return k.Description + k.Name
	}) {
		r := plugin.NewRecord(plugin.CategoryKeyboard)
		r.Brand = plugin.OrUnknown(firstWord(k.Name))
		r.Model = plugin.OrUnknown(k.Description)
		records = append(records, r)
	}

	var mice []hwquery.Win32PointingDevice
	if err := query(q, "Win32_PointingDevice", &mice, ""); err != nil {
		return records, nil
	}
	for _, m := range preferSpecific(mice, mouseBlacklist, func(m hwquery.Win32PointingDevice) string {
		return m.Description + m.Name
	}) {
		r := plugin.NewRecord(plugin.CategoryMouse)
		r.Brand = plugin.OrUnknown(m.Manufacturer)
		r.Model = plugin.OrUnknown(m.Description)
		records = append(records, r)
	}
	return records, nil
}

// preferSpecific drops devices whose text matches the blacklist, unless
// that would drop all of them.
func preferSpecific[T any](devices []T, blacklist []string, text func(T) string) []T {
	var specific, generic []T
	for _, d := range devices {
		if isGeneric(text(d), blacklist) {
			generic = append(generic, d)
		} else {
			specific = append(specific, d)
		}
	}
	if len(specific) > 0 {
		return specific
	}
	return generic
}

func isGeneric(text string, blacklist []string) bool {
	text = strings.ToLower(text)
	for _, item := range blacklist {
		if strings.Contains(text, strings.ToLower(item)) {
			return true
		}
	}
	return false
}
