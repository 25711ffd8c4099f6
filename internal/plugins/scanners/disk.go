package scanners

import (
	"context"
	"strings"

	"github.com/go-tangra/go-tangra-assets/internal/hwquery"
	"github.com/go-tangra/go-tangra-assets/internal/plugin"
)

// Disk reports physical drives. The brand is the first word of the model.
type Disk struct{}

func (Disk) Name() string     { return "Disk" }
func (Disk) IconName() string { return "drive" }

// Scan queries Win32_DiskDrive.
func (Disk) Scan(_ context.Context, q hwquery.Handle) ([]plugin.ScanRecord, error) {
	var disks []hwquery.Win32DiskDrive
	if err := query(q, "Win32_DiskDrive", &disks, ""); err != nil {
		return nil, err
	}

	records := make([]plugin.ScanRecord, 0, len(disks))
	for _, d := range disks {
		r := plugin.NewRecord(plugin.CategoryDisk)
		r.Brand = plugin.OrUnknown(firstWord(d.Model))
		r.Model = plugin.OrUnknown(d.Model)
		r.Size = sizeOrUnknown(d.Size)
		r.SerialNumber = strings.TrimSpace(d.SerialNumber)
		if r.SerialNumber == "" {
			r.SerialNumber = "Unavailable"
		}
		records = append(records, r)
	}
	return records, nil
}
