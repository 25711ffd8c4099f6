package scanners

import (
	"context"
	"fmt"

	"github.com/go-tangra/go-tangra-assets/internal/hwquery"
	"github.com/go-tangra/go-tangra-assets/internal/plugin"
)

// Monitor reports connected displays from their EDID data. With no display
// found, or a failed query, it returns a single placeholder record.
type Monitor struct{}

func (Monitor) Name() string     { return "Monitors" }
func (Monitor) IconName() string { return "monitor" }

// Scan queries WmiMonitorID in root\wmi.
func (Monitor) Scan(_ context.Context, q hwquery.Handle) ([]plugin.ScanRecord, error) {
	var monitors []hwquery.WmiMonitorID
	stmt := hwquery.SelectQuery("WmiMonitorID", &monitors)
	if err := q.QueryNamespace(hwquery.MonitorNamespace, stmt, &monitors); err != nil {
		return []plugin.ScanRecord{failureRecord(plugin.CategoryMonitor, err)}, nil
	}

	if len(monitors) == 0 {
		r := plugin.NewRecord(plugin.CategoryMonitor)
		r.Brand = "Unavailable"
		r.Model = "No external monitor detected"
		return []plugin.ScanRecord{r}, nil
	}

	records := make([]plugin.ScanRecord, 0, len(monitors))
	for _, m := range monitors {
		r := plugin.NewRecord(plugin.CategoryMonitor)
		r.Brand = plugin.OrUnknown(hwquery.DecodeUTF16(m.ManufacturerName))
		r.Model = plugin.OrUnknown(hwquery.DecodeUTF16(m.UserFriendlyName))
		r.SerialNumber = plugin.OrUnknown(hwquery.DecodeUTF16(m.SerialNumberID))
		r.ManufactureDate = ManufactureWeek(m.YearOfManufacture, m.WeekOfManufacture)
		records = append(records, r)
	}
	return records, nil
}

// ManufactureWeek formats an EDID manufacture date as "2021-W7", or Unknown
// when either part is missing.
func ManufactureWeek(year uint16, week uint8) string {
	if year == 0 || week == 0 {
		return plugin.Unknown
	}
	return fmt.Sprintf("%d-W%d", year, week)
}
