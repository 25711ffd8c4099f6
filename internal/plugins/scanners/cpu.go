package scanners

import (
	"context"
	"strings"

	"github.com/go-tangra/go-tangra-assets/internal/hwquery"
	"github.com/go-tangra/go-tangra-assets/internal/plugin"
)

// CPU reports processors. A failed query yields a single failure record so
// the report shows the attempt.
type CPU struct{}

func (CPU) Name() string     { return "CPU" }
func (CPU) IconName() string { return "cpu" }

// Scan queries Win32_Processor.
func (CPU) Scan(_ context.Context, q hwquery.Handle) ([]plugin.ScanRecord, error) {
	var procs []hwquery.Win32Processor
	if err := query(q, "Win32_Processor", &procs, ""); err != nil {
		return []plugin.ScanRecord{failureRecord(plugin.CategoryCPU, err)}, nil
	}

	records := make([]plugin.ScanRecord, 0, len(procs))
	for _, p := range procs {
		r := plugin.NewRecord(plugin.CategoryCPU)
		r.Brand = plugin.OrUnknown(p.Manufacturer)
		r.Model = plugin.OrUnknown(p.Name)
		r.SerialNumber = strings.TrimSpace(p.ProcessorId)
		if r.SerialNumber == "" {
			r.SerialNumber = "Unavailable"
		}
		records = append(records, r)
	}
	return records, nil
}
