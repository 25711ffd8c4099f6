package scanners

import (
	"context"

	"github.com/go-tangra/go-tangra-assets/internal/hwquery"
	"github.com/go-tangra/go-tangra-assets/internal/plugin"
)

// Memory reports one record per DIMM.
type Memory struct{}

func (Memory) Name() string     { return "Memory" }
func (Memory) IconName() string { return "memory" }

// Scan queries Win32_PhysicalMemory.
func (Memory) Scan(_ context.Context, q hwquery.Handle) ([]plugin.ScanRecord, error) {
	var modules []hwquery.Win32PhysicalMemory
	if err := query(q, "Win32_PhysicalMemory", &modules, ""); err != nil {
		return nil, err
	}

	records := make([]plugin.ScanRecord, 0, len(modules))
	for _, m := range modules {
		r := plugin.NewRecord(plugin.CategoryMemory)
		r.Brand = plugin.OrUnknown(m.Manufacturer)
		r.Model = plugin.OrUnknown(m.PartNumber)
		r.Size = sizeOrUnknown(m.Capacity)
		r.SerialNumber = plugin.OrUnknown(m.SerialNumber)
		records = append(records, r)
	}
	return records, nil
}
