package diagnostics

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-tangra/go-tangra-assets/internal/hwquery"
	"github.com/go-tangra/go-tangra-assets/internal/hwquery/hwquerytest"
	"github.com/go-tangra/go-tangra-assets/internal/plugin"
)

var now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeNet struct {
	reachable map[string]bool
	dialed    []string
	hosts     map[string][]string
}

func (n *fakeNet) dial(_ context.Context, _, address string) (net.Conn, error) {
	n.dialed = append(n.dialed, address)
	if !n.reachable[address] {
		return nil, errors.New("i/o timeout")
	}
	client, server := net.Pipe()
	server.Close()
	return client, nil
}

func (n *fakeNet) lookup(_ context.Context, host string) ([]string, error) {
	if addrs, ok := n.hosts[host]; ok {
		return addrs, nil
	}
	return nil, errors.New("no such host")
}

func healthyMachine() *hwquerytest.Fake {
	return hwquerytest.New().
		Set("Win32_OperatingSystem", []hwquery.Win32OperatingSystem{{
			Caption:                "Microsoft Windows 11 Pro",
			LastBootUpTime:         "20240308093000.500000+480",
			TotalVisibleMemorySize: 16 * 1024 * 1024,
			FreePhysicalMemory:     4 * 1024 * 1024,
		}}).
		Set("Win32_Processor", []hwquery.Win32Processor{{LoadPercentage: 12}, {LoadPercentage: 20}}).
		Set("Win32_Service", []hwquery.Win32Service{
			{Name: "Spooler", State: "Running"},
			{Name: "wuauserv", State: "Stopped"},
		}).
		Set("Win32_NTLogEvent", make([]hwquery.Win32NTLogEvent, 3)).
		Set("Win32_DiskDrive", []hwquery.Win32DiskDrive{
			{Caption: "Samsung SSD 980", Status: "OK"},
			{Caption: "WDC WD10EZEX", Status: "Pred Fail"},
		}).
		Set("Win32_Battery", []hwquery.Win32Battery{{DesignCapacity: 50000, FullChargeCapacity: 35000}}).
		Set("MSAcpi_ThermalZoneTemperature", []hwquery.MSAcpiThermalZoneTemperature{{CurrentTemperature: 3232}}).
		Set("Win32_IP4RouteTable", []hwquery.Win32IP4RouteTable{
			{Destination: "10.0.0.0", Mask: "255.0.0.0", NextHop: "0.0.0.0"},
			{Destination: "0.0.0.0", Mask: "0.0.0.0", NextHop: "192.168.1.1"},
		})
}

func newCheck(q hwquery.Handle, n *fakeNet) *HealthCheck {
	h := NewHealthCheck(q)
	h.Elevated = func() bool { return false }
	h.Now = func() time.Time { return now }
	h.Dial = n.dial
	h.LookupHost = n.lookup
	h.DNSTarget = "example.com"
	return h
}

func byTask(results []plugin.DiagnosticResult) map[string]plugin.DiagnosticResult {
	m := make(map[string]plugin.DiagnosticResult, len(results))
	for _, r := range results {
		m[r.Task] = r
	}
	return m
}

func TestHealthCheck(t *testing.T) {
	n := &fakeNet{
		reachable: map[string]bool{"192.168.1.1:80": true, "example.com:443": true},
		hosts:     map[string][]string{"example.com": {"93.184.216.34"}},
	}
	results, err := newCheck(healthyMachine(), n).RunDiagnostic(context.Background())
	require.NoError(t, err)
	got := byTask(results)

	tests := []struct {
		task    string
		status  plugin.Status
		message string
	}{
		{"Privileges", plugin.StatusWarning, "Not running as administrator"},
		{"System uptime", plugin.StatusInfo, "Up for 2d 2h 30m"},
		{"CPU usage", plugin.StatusNormal, "16%"},
		{"Memory usage", plugin.StatusNormal, "75.0% (12.00 GB used of 16.00 GB)"},
		{"Service (Print Spooler)", plugin.StatusNormal, "State: Running"},
		{"Service (Windows Update)", plugin.StatusWarning, "State: Stopped"},
		{"Service (Base Filtering Engine)", plugin.StatusFailed, "Service not found."},
		{"System error events (24h)", plugin.StatusNormal, "Found 3 critical errors."},
		{"Disk health (Samsung SSD 980)", plugin.StatusNormal, "S.M.A.R.T. status: OK"},
		{"Disk health (WDC WD10EZEX)", plugin.StatusWarning, "Pred Fail"},
		{"Battery health", plugin.StatusWarning, "About 70%"},
		{"CPU temperature", plugin.StatusNormal, "°C"},
		{"Default gateway (192.168.1.1)", plugin.StatusNormal, "Connected on port 80"},
		{"DNS resolution", plugin.StatusNormal, "example.com resolved to 93.184.216.34"},
		{"Internet connection (example.com)", plugin.StatusNormal, "Connected on port 443"},
	}
	for _, tt := range tests {
		t.Run(tt.task, func(t *testing.T) {
			r, ok := got[tt.task]
			require.True(t, ok, "missing row")
			assert.Equal(t, tt.status, r.Status)
			assert.Contains(t, r.Message, tt.message)
		})
	}
	assert.Len(t, results, len(tests))
	assert.Equal(t, []string{"192.168.1.1:53", "192.168.1.1:80", "example.com:443"}, n.dialed)
}

func TestHealthCheckWithoutWMI(t *testing.T) {
	q := hwquerytest.New().Fail("Win32_OperatingSystem", hwquery.ErrUnsupported).
		Fail("Win32_IP4RouteTable", hwquery.ErrUnsupported)
	n := &fakeNet{}

	results, err := newCheck(q, n).RunDiagnostic(context.Background())
	require.NoError(t, err)

	tasks := make([]string, len(results))
	for i, r := range results {
		tasks[i] = r.Task
	}
	assert.Equal(t, []string{
		"Privileges",
		"WMI service",
		"Default gateway",
		"DNS resolution",
		"Internet connection (example.com)",
	}, tasks)
	assert.Equal(t, plugin.StatusFailed, results[1].Status)
	assert.Equal(t, plugin.StatusWarning, results[2].Status)
	assert.Equal(t, plugin.StatusFailed, results[3].Status)
	assert.Equal(t, plugin.StatusFailed, results[4].Status)
	assert.Contains(t, results[4].Message, "i/o timeout")
}

func TestHealthCheckWarnings(t *testing.T) {
	q := healthyMachine().
		Set("Win32_NTLogEvent", make([]hwquery.Win32NTLogEvent, 11)).
		Set("MSAcpi_ThermalZoneTemperature", []hwquery.MSAcpiThermalZoneTemperature{{CurrentTemperature: 3682}}).
		Set("Win32_Processor", []hwquery.Win32Processor{{LoadPercentage: 97}}).
		Set("Win32_Battery", []hwquery.Win32Battery{})
	h := newCheck(q, &fakeNet{})
	h.Elevated = func() bool { return true }

	results, err := h.RunDiagnostic(context.Background())
	require.NoError(t, err)
	got := byTask(results)

	assert.Equal(t, plugin.StatusNormal, got["Privileges"].Status)
	assert.Equal(t, plugin.StatusWarning, got["System error events (24h)"].Status)
	assert.Equal(t, plugin.StatusWarning, got["CPU temperature"].Status)
	assert.Equal(t, plugin.StatusWarning, got["CPU usage"].Status)
	assert.NotContains(t, got, "Battery health")
}

func TestHealthCheckQueries(t *testing.T) {
	q := healthyMachine()
	_, err := newCheck(q, &fakeNet{}).RunDiagnostic(context.Background())
	require.NoError(t, err)

	all := strings.Join(q.Queries, "\n")
	assert.Contains(t, all, "FROM Win32_Service WHERE Name = 'Spooler' OR Name = 'wuauserv' OR Name = 'BFE'")
	assert.Contains(t, all, "TimeGenerated > '20240309120000.000000+000'")
	assert.Contains(t, all, "FROM Win32_IP4RouteTable WHERE Destination = '0.0.0.0'")
}

func TestHealthCheckCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newCheck(healthyMachine(), &fakeNet{}).RunDiagnostic(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseWMITime(t *testing.T) {
	got, err := ParseWMITime("20240308093000.500000+480", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 8, 9, 30, 0, 0, time.UTC), got)

	_, err = ParseWMITime("2024", time.UTC)
	assert.Error(t, err)
}

func TestKelvinTenthsToCelsius(t *testing.T) {
	assert.InDelta(t, 50.05, KelvinTenthsToCelsius(3232), 1e-9)
	assert.InDelta(t, 0, KelvinTenthsToCelsius(2732), 0.2)
}

func TestConfigureBuiltin(t *testing.T) {
	Configure(Settings{DNSTarget: "dns.example.net", ProbeTimeout: 5 * time.Second})
	t.Cleanup(func() { Configure(Settings{}) })

	r := plugin.NewRegistry()
	defer r.Close()
	r.AddBuiltins()

	p, ok := r.FindDiagnostic("System Health Check")
	require.True(t, ok)
	h, ok := p.(*HealthCheck)
	require.True(t, ok)
	assert.Equal(t, "dns.example.net", h.DNSTarget)
	assert.Equal(t, 5*time.Second, h.ProbeTimeout)

	Configure(Settings{})
	r2 := plugin.NewRegistry()
	defer r2.Close()
	r2.AddBuiltins()
	p, ok = r2.FindDiagnostic("System Health Check")
	require.True(t, ok)
	assert.Equal(t, DefaultDNSTarget, p.(*HealthCheck).DNSTarget)
	assert.Equal(t, "dns.example.net", h.DNSTarget)
}
