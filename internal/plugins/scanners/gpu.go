package scanners

import (
	"context"

	"github.com/go-tangra/go-tangra-assets/internal/hwquery"
	"github.com/go-tangra/go-tangra-assets/internal/plugin"
)

// GPU reports display adapters.
type GPU struct{}

func (GPU) Name() string     { return "Graphics" }
func (GPU) IconName() string { return "gpu" }

// Scan queries Win32_VideoController.
func (GPU) Scan(_ context.Context, q hwquery.Handle) ([]plugin.ScanRecord, error) {
	var adapters []hwquery.Win32VideoController
	if err := query(q, "Win32_VideoController", &adapters, ""); err != nil {
		return nil, err
	}

	records := make([]plugin.ScanRecord, 0, len(adapters))
	for _, a := range adapters {
		r := plugin.NewRecord(plugin.CategoryGPU)
		r.Brand = plugin.OrUnknown(firstWord(a.Name))
		r.Model = plugin.OrUnknown(a.Name)
		if a.AdapterRAM > 0 {
			r.Size = FormatBytes(uint64(a.AdapterRAM))
		}
		records = append(records, r)
	}
	return records, nil
}
