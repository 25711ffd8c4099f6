// Package scanners holds the built-in scan plugins. Each queries the shared
// hardware handle for one device class and maps the rows to records.
package scanners

import (
	"fmt"
	"strings"

	"github.com/go-tangra/go-tangra-assets/internal/hwquery"
	"github.com/go-tangra/go-tangra-assets/internal/plugin"
)

func init() {
	register("scanners.CPU", CPU{})
	register("scanners.Memory", Memory{})
	register("scanners.Disk", Disk{})
	register("scanners.GPU", GPU{})
	register("scanners.Network", Network{})
	register("scanners.OS", OS{})
	register("scanners.Motherboard", Motherboard{})
	register("scanners.Monitor", Monitor{})
	register("scanners.Peripherals", Peripherals{})
	register("scanners.Activation", Activation{})
}

func register(name string, p plugin.ScanPlugin) {
	plugin.RegisterBuiltin(name, func() (any, error) { return p, nil })
}

// query loads every row of class into dst, selecting the struct's fields.
func query(q hwquery.Handle, class string, dst any, where string) error {
	stmt := hwquery.SelectQuery(class, dst)
	if where != "" {
		stmt += " WHERE " + where
	}
	if err := q.Query(stmt, dst); err != nil {
		return fmt.Errorf("query %s: %w", class, err)
	}
	return nil
}

var byteUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatBytes renders n with two decimals in the largest unit up to TB that
// keeps the value at or above 1.
func FormatBytes(n uint64) string {
	v := float64(n)
	unit := 0
	for v >= 1024 && unit < len(byteUnits)-1 {
		v /= 1024
		unit++
	}
	return fmt.Sprintf("%.2f %s", v, byteUnits[unit])
}

// sizeOrUnknown formats n, treating 0 as a size WMI did not report.
func sizeOrUnknown(n uint64) string {
	if n == 0 {
		return plugin.Unknown
	}
	return FormatBytes(n)
}

// firstWord returns the first whitespace separated word of s.
func firstWord(s string) string {
	if fields := strings.Fields(s); len(fields) > 0 {
		return fields[0]
	}
	return ""
}

func failureRecord(category string, err error) plugin.ScanRecord {
	r := plugin.NewRecord(category)
	r.Brand = "Scan failed"
	r.Model = err.Error()
	return r
}
