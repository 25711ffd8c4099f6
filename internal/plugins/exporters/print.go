package exporters

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/go-tangra/go-tangra-assets/internal/platform"
	"github.com/go-tangra/go-tangra-assets/internal/plugin"
)

// Print renders a temporary PDF and opens it with the desktop shell so the
// user can print it. The host removes the file once the viewer has had time
// to load it.
type Print struct {
	PDF
	TempDir string
	Open    func(path string) error
}

// NewPrint returns a Print exporter that opens files with platform.Open.
func NewPrint() Print {
	return Print{Open: platform.Open}
}

func (Print) Name() string     { return "Print Report" }
func (Print) IconName() string { return "print" }

// FileExtension is empty: printing does not ask the user for a path.
func (Print) FileExtension() string { return "" }
func (Print) FileFilter() string    { return "" }

// TempFileName returns a fresh "asset_report_print_<8 hex>.pdf" name.
func TempFileName() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("asset_report_print_%s.pdf", id[:8])
}

// Export ignores req.OutputPath and returns a ManualFollowUp naming the
// temporary file.
func (p Print) Export(_ context.Context, req plugin.ExportRequest) plugin.ExportResult {
	printer := req.Printer.Or("default printer")
	req.Emit(fmt.Sprintf("  -> Preparing report for printer %q...", printer))

	dir := p.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, TempFileName())
	req.Emit("  -> Generating temporary PDF for printing: " + filepath.Base(path))

	render := req
	render.OutputPath = path
	if err := renderPDF(render, p.FontDir); err != nil {
		return failure(req, "Print preparation failed: %v", err)
	}

	open := p.Open
	if open == nil {
		open = platform.Open
	}
	if err := open(path); err != nil {
		return failure(req, "Could not open the PDF automatically. Print it manually from %s: %v", path, err)
	}

	req.Emit("  -> Temporary PDF opened, print it from the viewer.")
	return plugin.ManualFollowUp{Action: plugin.ActionPrint, Path: path}
}
