package plugin

import "strings"

// Unknown is the placeholder for attributes a scanner could not determine.
const Unknown = "N/A"

// Categories of the built-in scanners.
const (
	CategoryCPU         = "CPU"
	CategoryMemory      = "Memory"
	CategoryDisk        = "Disk"
	CategoryGPU         = "GPU"
	CategoryNetwork     = "Network"
	CategoryOS          = "Operating System"
	CategoryMotherboard = "Motherboard"
	CategoryMonitor     = "Monitor"
	CategoryKeyboard    = "Keyboard"
	CategoryMouse       = "Mouse"
	CategoryActivation  = "Activation"
)

// Columns are the display headers of a ScanRecord, in field order.
var Columns = []string{
	"Category",
	"Brand",
	"Model",
	"Size",
	"Serial Number",
	"Manufacture Date",
	"Warranty Link",
}

// ScanRecord is one hardware or software attribute row. Records are never
// mutated after a scan plugin returns them.
type ScanRecord struct {
	Category        string `json:"category"`
	Brand           string `json:"brand"`
	Model           string `json:"model"`
	Size            string `json:"size"`
	SerialNumber    string `json:"serial_number"`
	ManufactureDate string `json:"manufacture_date"`
	WarrantyLink    string `json:"warranty_link"`
}

// NewRecord returns a record for category with every other field Unknown.
func NewRecord(category string) ScanRecord {
	return ScanRecord{
		Category:        category,
		Brand:           Unknown,
		Model:           Unknown,
		Size:            Unknown,
		SerialNumber:    Unknown,
		ManufactureDate: Unknown,
		WarrantyLink:    Unknown,
	}
}

// Values returns the record's fields in Columns order, with empty fields
// rendered as Unknown.
func (r ScanRecord) Values() []string {
	vals := []string{
		r.Category,
		r.Brand,
		r.Model,
		r.Size,
		r.SerialNumber,
		r.ManufactureDate,
		r.WarrantyLink,
	}
	for i, v := range vals {
		if strings.TrimSpace(v) == "" {
			vals[i] = Unknown
		}
	}
	return vals
}

// OrUnknown returns s trimmed, or Unknown when it is empty.
func OrUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return Unknown
	}
	return s
}

// Status is the outcome class of one diagnostic check.
type Status string

const (
	StatusNormal  Status = "normal"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
	StatusInfo    Status = "info"
)

// DiagnosticResult is one check outcome.
type DiagnosticResult struct {
	Task    string `json:"task"`
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// DiagnosticReport maps plugin names to their results and remembers the
// order plugins were added in.
type DiagnosticReport struct {
	order   []string
	results map[string][]DiagnosticResult
}

// NewDiagnosticReport creates an empty report.
func NewDiagnosticReport() *DiagnosticReport {
	return &DiagnosticReport{results: make(map[string][]DiagnosticResult)}
}

// Set stores results under plugin. Setting a name twice keeps its first
// position and replaces its results.
func (r *DiagnosticReport) Set(plugin string, results []DiagnosticResult) {
	if _, ok := r.results[plugin]; !ok {
		r.order = append(r.order, plugin)
	}
	r.results[plugin] = results
}

// Get returns the results stored under plugin.
func (r *DiagnosticReport) Get(plugin string) ([]DiagnosticResult, bool) {
	res, ok := r.results[plugin]
	return res, ok
}

// Plugins returns plugin names in insertion order.
func (r *DiagnosticReport) Plugins() []string {
	return append([]string(nil), r.order...)
}

// Len returns the number of plugins in the report.
func (r *DiagnosticReport) Len() int {
	return len(r.order)
}
