package wasmplugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/go-tangra/go-tangra-assets/internal/hwquery"
	"github.com/go-tangra/go-tangra-assets/internal/plugin"
)

// Plugin adapts one plugin type described by a module.
type Plugin struct {
	module *module
	desc   description
}

func (p *Plugin) Name() string { return p.desc.Name }

func (p *Plugin) IconName() string { return p.desc.Icon }

func (p *Plugin) FileExtension() string { return p.desc.Extension }

func (p *Plugin) FileFilter() string { return p.desc.Filter }

// Scan implements plugin.ScanPlugin.
func (p *Plugin) Scan(ctx context.Context, q hwquery.Handle) ([]plugin.ScanRecord, error) {
	out, err := p.module.call(ctx, &session{handle: q}, "scan", p.request())
	if err != nil {
		return nil, err
	}
	return decodeRecords(out)
}

// RunDiagnostic implements plugin.DiagnosticPlugin.
func (p *Plugin) RunDiagnostic(ctx context.Context) ([]plugin.DiagnosticResult, error) {
	out, err := p.module.call(ctx, &session{}, "run_diagnostic", p.request())
	if err != nil {
		return nil, err
	}
	return decodeResults(out)
}

// Export implements plugin.ExportPlugin.
func (p *Plugin) Export(ctx context.Context, req plugin.ExportRequest) plugin.ExportResult {
	in, err := encodeExport(p.request(), req)
	if err != nil {
		return plugin.ExportFailure{Reason: err.Error()}
	}
	out, err := p.module.call(ctx, &session{log: req.Log}, "export", in)
	if err != nil {
		return plugin.ExportFailure{Reason: err.Error()}
	}
	return decodeExportResult(req.OutputPath, out)
}

// Sync implements plugin.SyncPlugin.
func (p *Plugin) Sync(ctx context.Context, tc plugin.TaskContext, records []plugin.ScanRecord, cfg plugin.SyncConfig) error {
	in, err := encodeSync(p.request(), records, cfg)
	if err != nil {
		return err
	}
	out, err := p.module.call(ctx, &session{task: tc}, "sync", in)
	if err != nil {
		return err
	}
	if msg := gjson.GetBytes(out, "error").String(); msg != "" {
		return errors.New(msg)
	}
	return nil
}

func (p *Plugin) request() []byte {
	in, _ := sjson.SetBytes([]byte(`{}`), "plugin", p.desc.Name)
	return in
}

func encodeExport(in []byte, req plugin.ExportRequest) ([]byte, error) {
	records, err := json.Marshal(nonNil(req.Records))
	if err != nil {
		return nil, err
	}
	if in, err = sjson.SetRawBytes(in, "records", records); err != nil {
		return nil, err
	}
	if in, err = sjson.SetBytes(in, "path", req.OutputPath); err != nil {
		return nil, err
	}
	if in, err = sjson.SetBytes(in, "header", req.Header); err != nil {
		return nil, err
	}
	if printer, ok := req.Printer.Get(); ok {
		return sjson.SetBytes(in, "printer", printer)
	}
	return sjson.SetRawBytes(in, "printer", []byte("null"))
}

func encodeSync(in []byte, records []plugin.ScanRecord, cfg plugin.SyncConfig) ([]byte, error) {
	raw, err := json.Marshal(nonNil(records))
	if err != nil {
		return nil, err
	}
	if in, err = sjson.SetRawBytes(in, "records", raw); err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = plugin.SyncConfig{}
	}
	raw, err = json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	return sjson.SetRawBytes(in, "config", raw)
}

func nonNil(records []plugin.ScanRecord) []plugin.ScanRecord {
	if records == nil {
		return []plugin.ScanRecord{}
	}
	return records
}

func decodeRecords(out []byte) ([]plugin.ScanRecord, error) {
	if len(out) == 0 {
		return nil, nil
	}
	if msg := gjson.GetBytes(out, "error"); msg.Exists() {
		return nil, errors.New(msg.String())
	}
	var records []plugin.ScanRecord
	if err := json.Unmarshal(out, &records); err != nil {
		return nil, fmt.Errorf("decode scan result: %w", err)
	}
	for i, r := range records {
		records[i] = plugin.ScanRecord{
			Category:        plugin.OrUnknown(r.Category),
			Brand:           plugin.OrUnknown(r.Brand),
			Model:           plugin.OrUnknown(r.Model),
			Size:            plugin.OrUnknown(r.Size),
			SerialNumber:    plugin.OrUnknown(r.SerialNumber),
			ManufactureDate: plugin.OrUnknown(r.ManufactureDate),
			WarrantyLink:    plugin.OrUnknown(r.WarrantyLink),
		}
	}
	return records, nil
}

func decodeResults(out []byte) ([]plugin.DiagnosticResult, error) {
	if len(out) == 0 {
		return nil, nil
	}
	if msg := gjson.GetBytes(out, "error"); msg.Exists() {
		return nil, errors.New(msg.String())
	}
	var results []plugin.DiagnosticResult
	if err := json.Unmarshal(out, &results); err != nil {
		return nil, fmt.Errorf("decode diagnostic result: %w", err)
	}
	for i := range results {
		if results[i].Status == "" {
			results[i].Status = plugin.StatusInfo
		}
	}
	return results, nil
}

func decodeExportResult(path string, out []byte) plugin.ExportResult {
	if len(out) == 0 {
		return plugin.FileWritten{Path: path}
	}
	if !gjson.ValidBytes(out) {
		return plugin.ExportFailure{Reason: "export returned invalid JSON"}
	}
	res := gjson.ParseBytes(out)
	if msg := res.Get("error"); msg.Exists() {
		return plugin.ExportFailure{Reason: msg.String()}
	}
	if action := res.Get("action").String(); action != "" {
		return plugin.ManualFollowUp{Action: action, Path: res.Get("path").String()}
	}
	if p := res.Get("path").String(); p != "" {
		return plugin.FileWritten{Path: p}
	}
	return plugin.FileWritten{Path: path}
}
