package scanners

import (
	"context"
	"errors"

	"github.com/go-tangra/go-tangra-assets/internal/hwquery"
	"github.com/go-tangra/go-tangra-assets/internal/plugin"
)

// OS reports the installed Windows edition and its product serial.
type OS struct{}

func (OS) Name() string     { return "Operating System" }
func (OS) IconName() string { return "windows" }

// Scan queries Win32_OperatingSystem.
func (OS) Scan(_ context.Context, q hwquery.Handle) ([]plugin.ScanRecord, error) {
	var systems []hwquery.Win32OperatingSystem
	if err := query(q, "Win32_OperatingSystem", &systems, ""); err != nil {
		return nil, err
	}
	if len(systems) == 0 {
		return nil, errors.New("no operating system reported")
	}

	r := plugin.NewRecord(plugin.CategoryOS)
	r.Brand = "Microsoft"
	r.Model = plugin.OrUnknown(systems[0].Caption)
	r.SerialNumber = plugin.OrUnknown(systems[0].SerialNumber)
	return []plugin.ScanRecord{r}, nil
}
