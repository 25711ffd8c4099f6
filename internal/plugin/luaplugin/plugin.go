package luaplugin

import (
	"context"
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/go-tangra/go-tangra-assets/internal/hwquery"
	"github.com/go-tangra/go-tangra-assets/internal/plugin"
)

// Export parameter counts, from the full list down to the minimum.
const (
	exportParamsFull    = 5
	exportParamsLog     = 4
	exportParamsMinimum = 3
)

// Plugin adapts one Lua definition table to the plugin contracts it
// defines functions for.
type Plugin struct {
	vm   *vm
	tbl  *lua.LTable
	name string
}

func (p *Plugin) Name() string { return p.name }

func (p *Plugin) IconName() string { return p.str("icon") }

func (p *Plugin) FileExtension() string { return p.str("extension") }

func (p *Plugin) FileFilter() string { return p.str("filter") }

func (p *Plugin) str(field string) string {
	if s, ok := p.tbl.RawGetString(field).(lua.LString); ok {
		return string(s)
	}
	return ""
}

func (p *Plugin) function(field string) *lua.LFunction {
	fn, _ := p.tbl.RawGetString(field).(*lua.LFunction)
	return fn
}

// Scan implements plugin.ScanPlugin.
func (p *Plugin) Scan(ctx context.Context, q hwquery.Handle) ([]plugin.ScanRecord, error) {
	var records []plugin.ScanRecord
	err := p.vm.with(ctx, func(L *lua.LState) error {
		ret, err := call(L, p.function("scan"), 1, hostTable(L, q))
		if err != nil {
			return err
		}
		records, err = toRecords(ret[0])
		return err
	})
	return records, err
}

// RunDiagnostic implements plugin.DiagnosticPlugin.
func (p *Plugin) RunDiagnostic(ctx context.Context) ([]plugin.DiagnosticResult, error) {
	var results []plugin.DiagnosticResult
	err := p.vm.with(ctx, func(L *lua.LState) error {
		ret, err := call(L, p.function("run_diagnostic"), 1)
		if err != nil {
			return err
		}
		results, err = toResults(ret[0])
		return err
	})
	return results, err
}

// Sync implements plugin.SyncPlugin.
func (p *Plugin) Sync(ctx context.Context, tc plugin.TaskContext, records []plugin.ScanRecord, cfg plugin.SyncConfig) error {
	return p.vm.with(ctx, func(L *lua.LState) error {
		_, err := call(L, p.function("sync"), 0,
			taskTable(L, tc),
			recordsTable(L, records),
			stringMapTable(L, cfg),
		)
		return err
	})
}

// Export implements plugin.ExportPlugin. The script's export function is
// passed as many of (records, path, header, log, printer) as it declares,
// but never fewer than three.
func (p *Plugin) Export(ctx context.Context, req plugin.ExportRequest) plugin.ExportResult {
	fn := p.function("export")
	n := exportArity(fn)
	if n < exportParamsMinimum {
		return plugin.ExportFailure{Reason: (&plugin.SignatureMismatchError{
			Plugin:    p.name,
			Operation: "export",
			Accepts:   n,
			Minimum:   exportParamsMinimum,
		}).Error()}
	}

	var result plugin.ExportResult
	err := p.vm.with(ctx, func(L *lua.LState) error {
		args := []lua.LValue{
			recordsTable(L, req.Records),
			lua.LString(req.OutputPath),
			lua.LString(req.Header),
		}
		if n >= exportParamsLog {
			args = append(args, L.NewFunction(func(L *lua.LState) int {
				req.Emit(L.CheckString(1))
				return 0
			}))
		}
		if n >= exportParamsFull {
			if printer, ok := req.Printer.Get(); ok {
				args = append(args, lua.LString(printer))
			} else {
				args = append(args, lua.LNil)
			}
		}

		ret, err := call(L, fn, 2, args...)
		if err != nil {
			return err
		}
		result = toExportResult(req.OutputPath, ret[0], ret[1])
		return nil
	})
	if err != nil {
		return plugin.ExportFailure{Reason: err.Error()}
	}
	return result
}

func exportArity(fn *lua.LFunction) int {
	if fn == nil {
		return 0
	}
	if fn.IsG || fn.Proto == nil || fn.Proto.IsVarArg != 0 {
		return exportParamsFull
	}
	n := int(fn.Proto.NumParameters)
	if n > exportParamsFull {
		return exportParamsFull
	}
	return n
}

func toExportResult(path string, first, second lua.LValue) plugin.ExportResult {
	switch v := first.(type) {
	case *lua.LTable:
		action := lua.LVAsString(v.RawGetString("action"))
		if action == "" {
			return plugin.ExportFailure{Reason: "result table has no action"}
		}
		return plugin.ManualFollowUp{
			Action: action,
			Path:   lua.LVAsString(v.RawGetString("path")),
		}
	case lua.LString:
		return plugin.FileWritten{Path: string(v)}
	}
	if first == lua.LFalse || (first == lua.LNil && second != lua.LNil) {
		reason := lua.LVAsString(second)
		if reason == "" {
			reason = "export failed"
		}
		return plugin.ExportFailure{Reason: reason}
	}
	return plugin.FileWritten{Path: path}
}

var errNotTable = errors.New("expected a table")

func toRecords(lv lua.LValue) ([]plugin.ScanRecord, error) {
	if lv == lua.LNil {
		return nil, nil
	}
	tbl, ok := lv.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("scan result: %w, got %s", errNotTable, lv.Type())
	}
	records := make([]plugin.ScanRecord, 0, tbl.Len())
	for i := 1; i <= tbl.Len(); i++ {
		row, ok := tbl.RawGetInt(i).(*lua.LTable)
		if !ok {
			return records, fmt.Errorf("scan record %d: %w", i, errNotTable)
		}
		records = append(records, toRecord(row))
	}
	return records, nil
}

func toRecord(row *lua.LTable) plugin.ScanRecord {
	get := func(key string) string {
		return plugin.OrUnknown(lua.LVAsString(row.RawGetString(key)))
	}
	return plugin.ScanRecord{
		Category:        get("category"),
		Brand:           get("brand"),
		Model:           get("model"),
		Size:            get("size"),
		SerialNumber:    get("serial_number"),
		ManufactureDate: get("manufacture_date"),
		WarrantyLink:    get("warranty_link"),
	}
}

func toResults(lv lua.LValue) ([]plugin.DiagnosticResult, error) {
	if lv == lua.LNil {
		return nil, nil
	}
	tbl, ok := lv.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("diagnostic result: %w, got %s", errNotTable, lv.Type())
	}
	results := make([]plugin.DiagnosticResult, 0, tbl.Len())
	for i := 1; i <= tbl.Len(); i++ {
		row, ok := tbl.RawGetInt(i).(*lua.LTable)
		if !ok {
			return results, fmt.Errorf("diagnostic result %d: %w", i, errNotTable)
		}
		status := plugin.Status(lua.LVAsString(row.RawGetString("status")))
		if status == "" {
			status = plugin.StatusInfo
		}
		results = append(results, plugin.DiagnosticResult{
			Task:    lua.LVAsString(row.RawGetString("task")),
			Status:  status,
			Message: lua.LVAsString(row.RawGetString("message")),
		})
	}
	return results, nil
}
