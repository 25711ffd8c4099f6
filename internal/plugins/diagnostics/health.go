// Package diagnostics holds the built-in health check diagnostic plugin.
package diagnostics

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/go-tangra/go-tangra-assets/internal/hwquery"
	"github.com/go-tangra/go-tangra-assets/internal/platform"
	"github.com/go-tangra/go-tangra-assets/internal/plugin"
)

func init() {
	plugin.RegisterBuiltin("diagnostics.HealthCheck", func() (any, error) {
		h := NewHealthCheck(hwquery.NewLocal())
		s := currentSettings()
		if s.DNSTarget != "" {
			h.DNSTarget = s.DNSTarget
		}
		if s.ProbeTimeout > 0 {
			h.ProbeTimeout = s.ProbeTimeout
		}
		return h, nil
	})
}

// Settings overrides the network check defaults of the built-in health
// check. Zero fields keep the defaults.
type Settings struct {
	DNSTarget    string
	ProbeTimeout time.Duration
}

var (
	settingsMu sync.Mutex
	settings   Settings
)

// Configure sets the Settings used by registries that add the built-in
// plugins afterwards. Instances already handed out are not changed.
func Configure(s Settings) {
	settingsMu.Lock()
	defer settingsMu.Unlock()
	settings = s
}

func currentSettings() Settings {
	settingsMu.Lock()
	defer settingsMu.Unlock()
	return settings
}

// Defaults for the network checks.
const (
	DefaultDNSTarget    = "www.microsoft.com"
	DefaultProbeTimeout = 2 * time.Second
)

// Thresholds above which a check reports a warning.
const (
	eventErrorLimit   = 10
	batteryHealthMin  = 80.0
	temperatureMaxC   = 90.0
	loadPercentMax    = 90
	memoryPercentMax  = 90.0
	wmiDateTimeLayout = "20060102150405"
)

// criticalServices maps service names to the label shown in results.
var criticalServices = []struct{ name, label string }{
	{"Spooler", "Print Spooler"},
	{"wuauserv", "Windows Update"},
	{"BFE", "Base Filtering Engine"},
}

// HealthCheck runs a fixed battery of system checks. Every check appends its
// own rows, so one failing probe never hides the others.
type HealthCheck struct {
	Hardware     hwquery.Handle
	DNSTarget    string
	ProbeTimeout time.Duration

	// Hooks for the host environment.
	Elevated   func() bool
	Now        func() time.Time
	LookupHost func(ctx context.Context, host string) ([]string, error)
	Dial       func(ctx context.Context, network, address string) (net.Conn, error)
}

// NewHealthCheck returns a HealthCheck against q using the real network.
func NewHealthCheck(q hwquery.Handle) *HealthCheck {
	dialer := &net.Dialer{}
	return &HealthCheck{
		Hardware:     q,
		DNSTarget:    DefaultDNSTarget,
		ProbeTimeout: DefaultProbeTimeout,
		Elevated:     platform.IsElevated,
		Now:          time.Now,
		LookupHost:   net.DefaultResolver.LookupHost,
		Dial:         dialer.DialContext,
	}
}

func (h *HealthCheck) Name() string     { return "System Health Check" }
func (h *HealthCheck) IconName() string { return "health" }

// results accumulates rows in check order.
type results []plugin.DiagnosticResult

func (r *results) add(task string, status plugin.Status, format string, args ...any) {
	*r = append(*r, plugin.DiagnosticResult{Task: task, Status: status, Message: fmt.Sprintf(format, args...)})
}

// RunDiagnostic runs every check. It only fails when ctx is done before the
// checks start.
func (h *HealthCheck) RunDiagnostic(ctx context.Context) ([]plugin.DiagnosticResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out results
	h.checkElevation(&out)

	var systems []hwquery.Win32OperatingSystem
	if err := h.Hardware.Query(hwquery.SelectQuery("Win32_OperatingSystem", &systems), &systems); err != nil {
		out.add("WMI service", plugin.StatusFailed, "Cannot query WMI, hardware checks skipped: %v", err)
	} else {
		h.checkUptime(&out, systems)
		h.checkPerformance(&out, systems)
		h.checkServices(&out)
		h.checkEventLog(&out)
		h.checkDisks(&out)
		h.checkBattery(&out)
		h.checkTemperature(&out)
	}
	h.checkNetwork(ctx, &out)
	return out, nil
}

func (h *HealthCheck) checkElevation(out *results) {
	const task = "Privileges"
	if h.Elevated() {
		out.add(task, plugin.StatusNormal, "Running with administrator privileges.")
		return
	}
	out.add(task, plugin.StatusWarning, "Not running as administrator; some hardware details may be missing.")
}

// ParseWMITime parses a CIM datetime such as "20240101083000.500000+480".
// The UTC offset is ignored; the value is read in loc.
func ParseWMITime(s string, loc *time.Location) (time.Time, error) {
	if len(s) < len(wmiDateTimeLayout) {
		return time.Time{}, fmt.Errorf("invalid WMI datetime %q", s)
	}
	return time.ParseInLocation(wmiDateTimeLayout, s[:len(wmiDateTimeLayout)], loc)
}

func (h *HealthCheck) checkUptime(out *results, systems []hwquery.Win32OperatingSystem) {
	const task = "System uptime"
	if len(systems) == 0 {
		out.add(task, plugin.StatusError, "No operating system reported.")
		return
	}
	now := h.Now()
	boot, err := ParseWMITime(systems[0].LastBootUpTime, now.Location())
	if err != nil {
		out.add(task, plugin.StatusError, "%v", err)
		return
	}
	up := now.Sub(boot)
	days := int(up.Hours()) / 24
	hours := int(up.Hours()) % 24
	minutes := int(up.Minutes()) % 60
	out.add(task, plugin.StatusInfo, "Up for %dd %dh %dm", days, hours, minutes)
}

func (h *HealthCheck) checkPerformance(out *results, systems []hwquery.Win32OperatingSystem) {
	var cpus []hwquery.Win32Processor
	if err := h.Hardware.Query(hwquery.SelectQuery("Win32_Processor", &cpus), &cpus); err != nil || len(cpus) == 0 {
		out.add("CPU usage", plugin.StatusSkipped, "No processor load reported.")
	} else {
		var total int
		for _, c := range cpus {
			total += int(c.LoadPercentage)
		}
		load := total / len(cpus)
		status := plugin.StatusNormal
		if load > loadPercentMax {
			status = plugin.StatusWarning
		}
		out.add("CPU usage", status, "%d%%", load)
	}

	if len(systems) == 0 || systems[0].TotalVisibleMemorySize == 0 {
		out.add("Memory usage", plugin.StatusSkipped, "No memory figures reported.")
		return
	}
	totalKB := systems[0].TotalVisibleMemorySize
	usedKB := totalKB - min(systems[0].FreePhysicalMemory, totalKB)
	percent := float64(usedKB) / float64(totalKB) * 100
	status := plugin.StatusNormal
	if percent > memoryPercentMax {
		status = plugin.StatusWarning
	}
	const kbPerGB = 1024 * 1024
	out.add("Memory usage", status, "%.1f%% (%.2f GB used of %.2f GB)",
		percent, float64(usedKB)/kbPerGB, float64(totalKB)/kbPerGB)
}

func (h *HealthCheck) checkServices(out *results) {
	names := make([]string, len(criticalServices))
	for i, s := range criticalServices {
		names[i] = fmt.Sprintf("Name = '%s'", s.name)
	}
	var services []hwquery.Win32Service
	stmt := hwquery.SelectQuery("Win32_Service", &services) + " WHERE " + strings.Join(names, " OR ")
	if err := h.Hardware.Query(stmt, &services); err != nil {
		out.add("Services", plugin.StatusError, "%v", err)
		return
	}

	state := make(map[string]string, len(services))
	for _, s := range services {
		state[strings.ToLower(s.Name)] = s.State
	}
	for _, s := range criticalServices {
		task := fmt.Sprintf("Service (%s)", s.label)
		st, ok := state[strings.ToLower(s.name)]
		switch {
		case !ok:
			out.add(task, plugin.StatusFailed, "Service not found.")
		case st == "Running":
			out.add(task, plugin.StatusNormal, "State: %s", st)
		default:
			out.add(task, plugin.StatusWarning, "State: %s", st)
		}
	}
}

func (h *HealthCheck) checkEventLog(out *results) {
	const task = "System error events (24h)"
	since := h.Now().Add(-24 * time.Hour).UTC().Format(wmiDateTimeLayout) + ".000000+000"
	var events []hwquery.Win32NTLogEvent
	stmt := hwquery.SelectQuery("Win32_NTLogEvent", &events) +
		fmt.Sprintf(" WHERE Logfile = 'System' AND EventType = 1 AND TimeGenerated > '%s'", since)
	if err := h.Hardware.Query(stmt, &events); err != nil {
		out.add(task, plugin.StatusError, "%v", err)
		return
	}
	status := plugin.StatusNormal
	if len(events) > eventErrorLimit {
		status = plugin.StatusWarning
	}
	out.add(task, status, "Found %d critical errors.", len(events))
}

func (h *HealthCheck) checkDisks(out *results) {
	var disks []hwquery.Win32DiskDrive
	if err := h.Hardware.Query(hwquery.SelectQuery("Win32_DiskDrive", &disks), &disks); err != nil {
		out.add("Disk health (S.M.A.R.T.)", plugin.StatusError, "%v", err)
		return
	}
	for _, d := range disks {
		status := plugin.StatusNormal
		if d.Status != "OK" {
			status = plugin.StatusWarning
		}
		out.add(fmt.Sprintf("Disk health (%s)", d.Caption), status, "S.M.A.R.T. status: %s", d.Status)
	}
}

// checkBattery reports nothing on machines without a battery.
func (h *HealthCheck) checkBattery(out *results) {
	var batteries []hwquery.Win32Battery
	if err := h.Hardware.Query(hwquery.SelectQuery("Win32_Battery", &batteries), &batteries); err != nil {
		return
	}
	if len(batteries) == 0 || batteries[0].DesignCapacity == 0 {
		return
	}
	health := float64(batteries[0].FullChargeCapacity) / float64(batteries[0].DesignCapacity) * 100
	status := plugin.StatusNormal
	if health < batteryHealthMin {
		status = plugin.StatusWarning
	}
	out.add("Battery health", status, "About %.0f%% of design capacity", health)
}

// KelvinTenthsToCelsius converts an ACPI thermal zone reading.
func KelvinTenthsToCelsius(v uint32) float64 {
	return float64(v)/10 - 273.15
}

func (h *HealthCheck) checkTemperature(out *results) {
	const task = "CPU temperature"
	var zones []hwquery.MSAcpiThermalZoneTemperature
	stmt := hwquery.SelectQuery("MSAcpi_ThermalZoneTemperature", &zones)
	if err := h.Hardware.QueryNamespace(hwquery.MonitorNamespace, stmt, &zones); err != nil || len(zones) == 0 {
		out.add(task, plugin.StatusInfo, "No temperature reading available on this device.")
		return
	}
	c := KelvinTenthsToCelsius(zones[0].CurrentTemperature)
	status := plugin.StatusNormal
	if c > temperatureMaxC {
		status = plugin.StatusWarning
	}
	out.add(task, status, "%.1f °C", c)
}
