package scanners

import (
	"context"

	"github.com/go-tangra/go-tangra-assets/internal/hwquery"
	"github.com/go-tangra/go-tangra-assets/internal/plugin"
)

// Network reports IP-enabled adapters that have a MAC address. The serial
// column carries the adapter's first IP address.
type Network struct{}

func (Network) Name() string     { return "Network Adapters" }
func (Network) IconName() string { return "network" }

// Scan queries Win32_NetworkAdapterConfiguration.
func (Network) Scan(_ context.Context, q hwquery.Handle) ([]plugin.ScanRecord, error) {
	var nics []hwquery.Win32NetworkAdapterConfiguration
	if err := query(q, "Win32_NetworkAdapterConfiguration", &nics, "IPEnabled = TRUE"); err != nil {
		return nil, err
	}

	var records []plugin.ScanRecord
	for _, n := range nics {
		if !n.IPEnabled || n.MACAddress == "" {
			continue
		}
		r := plugin.NewRecord(plugin.CategoryNetwork)
		r.Brand = plugin.OrUnknown(n.Description)
		r.Model = "MAC: " + n.MACAddress
		if len(n.IPAddress) > 0 {
			r.SerialNumber = n.IPAddress[0]
		}
		records = append(records, r)
	}
	return records, nil
}
