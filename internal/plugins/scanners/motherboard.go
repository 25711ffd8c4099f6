package scanners

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-tangra/go-tangra-assets/internal/hwquery"
	"github.com/go-tangra/go-tangra-assets/internal/plugin"
)

// Motherboard reports the baseboard, which identifies the machine for
// warranty lookups and inventory sync.
type Motherboard struct{}

func (Motherboard) Name() string     { return "Motherboard / System" }
func (Motherboard) IconName() string { return "computer" }

// Scan queries Win32_BaseBoard, falling back to the SMBIOS baseboard table
// when WMI is unavailable.
func (Motherboard) Scan(_ context.Context, q hwquery.Handle) ([]plugin.ScanRecord, error) {
	var boards []hwquery.Win32BaseBoard
	err := query(q, "Win32_BaseBoard", &boards, "")
	if err != nil {
		tables, serr := q.SMBIOS()
		if serr != nil {
			return nil, fmt.Errorf("%w; smbios: %v", err, serr)
		}
		boards = []hwquery.Win32BaseBoard{{
			Manufacturer: tables.BaseboardInformation.Manufacturer,
			Product:      tables.BaseboardInformation.Product,
			SerialNumber: tables.BaseboardInformation.SerialNumber,
		}}
	}

	records := make([]plugin.ScanRecord, 0, len(boards))
	for _, b := range boards {
		serial := strings.TrimSpace(b.SerialNumber)
		r := plugin.NewRecord(plugin.CategoryMotherboard)
		r.Brand = plugin.OrUnknown(b.Manufacturer)
		r.Model = plugin.OrUnknown(b.Product)
		r.SerialNumber = plugin.OrUnknown(serial)
		if link := WarrantyLink(b.Manufacturer, serial); link != "" {
			r.WarrantyLink = link
		}
		records = append(records, r)
	}
	return records, nil
}

// RealSerial reports whether serial looks like a vendor serial number
// rather than a firmware placeholder such as "System Serial Number" or
// "None".
func RealSerial(serial string) bool {
	s := strings.ToLower(strings.TrimSpace(serial))
	if s == "" || s == strings.ToLower(plugin.Unknown) {
		return false
	}
	for _, placeholder := range []string{"serial", "none", "default", "to be filled"} {
		if strings.Contains(s, placeholder) {
			return false
		}
	}
	return true
}

// WarrantyLink returns the vendor warranty lookup page for a Dell, HP or
// Lenovo serial, or "" for other vendors and placeholder serials.
func WarrantyLink(manufacturer, serial string) string {
	if !RealSerial(serial) {
		return ""
	}
	mfg := strings.ToLower(manufacturer)
	s := url.PathEscape(serial)
	switch {
	case strings.Contains(mfg, "dell"):
		return "https://www.dell.com/support/home/en-sg/product-support/servicetag/" + s + "/overview"
	case strings.Contains(mfg, "hewlett-packard"), strings.Contains(mfg, "hp"):
		return "https://support.hp.com/sg-en/checkwarranty/search?q=" + url.QueryEscape(serial)
	case strings.Contains(mfg, "lenovo"):
		return "https://pcsupport.lenovo.com/sg-en/search?query=" + url.QueryEscape(serial)
	}
	return ""
}
