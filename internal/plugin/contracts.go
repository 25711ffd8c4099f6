// Package plugin defines the capability contracts asset plugins implement
// and the Registry that discovers, classifies and owns plugin instances.
//
// A plugin is any value with a Name that satisfies one of four contracts:
// ScanPlugin, ExportPlugin, DiagnosticPlugin or SyncPlugin. Plugins come from
// two places: compiled-in factories registered with RegisterBuiltin, and
// files in a plugin directory loaded by the Loader registered for their
// extension.
package plugin

import (
	"context"

	"github.com/go-tangra/go-tangra-assets/internal/hwquery"
)

// Plugin is the part every contract shares. Name is the only human-readable
// and log-correlation identifier of a plugin.
type Plugin interface {
	Name() string
}

// Presenter is implemented by plugins that carry an icon hint.
type Presenter interface {
	IconName() string
}

// FileTarget is implemented by export plugins that write a file the user
// picks. FileFilter is a dialog-style filter such as "CSV (*.csv)".
type FileTarget interface {
	FileExtension() string
	FileFilter() string
}

// ScanPlugin enumerates hardware or software attributes.
//
// Recoverable per-item failures must not fail the scan: return the partial
// records gathered so far. A returned error is logged for this plugin only.
type ScanPlugin interface {
	Plugin
	Scan(ctx context.Context, q hwquery.Handle) ([]ScanRecord, error)
}

// ExportPlugin renders records to a file, a printer or another sink.
type ExportPlugin interface {
	Plugin
	Export(ctx context.Context, req ExportRequest) ExportResult
}

// DiagnosticPlugin runs self-contained checks. It acquires and releases any
// external session it needs within the call.
type DiagnosticPlugin interface {
	Plugin
	RunDiagnostic(ctx context.Context) ([]DiagnosticResult, error)
}

// SyncPlugin pushes records into a remote inventory system. tc lets
// long-running sync logic narrate its own progress; it must not be retained
// after Sync returns.
type SyncPlugin interface {
	Plugin
	Sync(ctx context.Context, tc TaskContext, records []ScanRecord, cfg SyncConfig) error
}

// TaskContext is the emission handle of a dispatched unit of work.
type TaskContext interface {
	// Log emits one log line.
	Log(line string)
	// Progress reports completion in percent, 0 to 100.
	Progress(percent int)
	// Error reports a non-fatal structured error the host may surface.
	Error(title, message string)
}

// LogFunc receives log lines from an export plugin.
type LogFunc func(line string)

// SyncConfig is the per-invocation configuration mapping of a sync.
type SyncConfig map[string]string

// Get returns the value for key, or "" when unset.
func (c SyncConfig) Get(key string) string {
	if c == nil {
		return ""
	}
	return c[key]
}

// IconName returns p's icon hint, or "".
func IconName(p Plugin) string {
	if pr, ok := p.(Presenter); ok {
		return pr.IconName()
	}
	return ""
}

// FileExtension returns p's default file extension, or ".txt".
func FileExtension(p Plugin) string {
	if ft, ok := p.(FileTarget); ok && ft.FileExtension() != "" {
		return ft.FileExtension()
	}
	return ".txt"
}

// FileFilter returns p's file filter, or "All Files (*)".
func FileFilter(p Plugin) string {
	if ft, ok := p.(FileTarget); ok && ft.FileFilter() != "" {
		return ft.FileFilter()
	}
	return "All Files (*)"
}
