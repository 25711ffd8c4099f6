package exporters

import (
	"context"
	"encoding/csv"
	"os"

	"github.com/go-tangra/go-tangra-assets/internal/plugin"
)

// utf8BOM lets Excel detect the encoding when opening the file directly.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSV writes records as comma separated values with a header row.
type CSV struct{}

func (CSV) Name() string          { return "Export to CSV" }
func (CSV) IconName() string      { return "csv" }
func (CSV) FileExtension() string { return ".csv" }
func (CSV) FileFilter() string    { return "CSV (Comma delimited) (*.csv)" }

// Export writes req.Records to req.OutputPath. The header text is not part
// of the CSV format and is ignored.
func (CSV) Export(_ context.Context, req plugin.ExportRequest) plugin.ExportResult {
	req.Emit("  -> Writing CSV data...")

	f, err := os.Create(req.OutputPath)
	if err != nil {
		return failure(req, "CSV export failed: %v", err)
	}
	defer f.Close()

	if _, err := f.Write(utf8BOM); err != nil {
		return failure(req, "CSV export failed: %v", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(plugin.Columns); err != nil {
		return failure(req, "CSV export failed: %v", err)
	}
	for _, r := range req.Records {
		if err := w.Write(r.Values()); err != nil {
			return failure(req, "CSV export failed: %v", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return failure(req, "CSV export failed: %v", err)
	}
	if err := f.Close(); err != nil {
		return failure(req, "CSV export failed: %v", err)
	}

	req.Emit("  -> CSV file written.")
	return plugin.FileWritten{Path: req.OutputPath}
}
