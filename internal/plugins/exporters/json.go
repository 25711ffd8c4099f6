package exporters

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/go-tangra/go-tangra-assets/internal/plugin"
)

// jsonReport is the document written by the JSON exporter.
type jsonReport struct {
	Header      string              `json:"header,omitempty"`
	GeneratedAt time.Time           `json:"generated_at"`
	Records     []plugin.ScanRecord `json:"records"`
}

// JSON writes records as an indented JSON document.
type JSON struct{}

func (JSON) Name() string          { return "Export to JSON" }
func (JSON) IconName() string      { return "json" }
func (JSON) FileExtension() string { return ".json" }
func (JSON) FileFilter() string    { return "JSON document (*.json)" }

func (JSON) Export(_ context.Context, req plugin.ExportRequest) plugin.ExportResult {
	records := req.Records
	if records == nil {
		records = []plugin.ScanRecord{}
	}
	data, err := json.MarshalIndent(jsonReport{
		Header:      req.Header,
		GeneratedAt: time.Now().UTC(),
		Records:     records,
	}, "", "  ")
	if err != nil {
		return failure(req, "JSON export failed: %v", err)
	}
	if err := os.WriteFile(req.OutputPath, append(data, '\n'), 0o644); err != nil {
		return failure(req, "JSON export failed: %v", err)
	}
	req.Emit("  -> JSON file written.")
	return plugin.FileWritten{Path: req.OutputPath}
}
