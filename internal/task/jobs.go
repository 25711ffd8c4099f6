package task

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/go-tangra/go-tangra-assets/internal/hwquery"
	"github.com/go-tangra/go-tangra-assets/internal/plugin"
)

// PluginExecutionTask is the Task of the result standing in for a
// diagnostic plugin that failed.
const PluginExecutionTask = "plugin execution"

// ScanLoop runs plugins in order against q and concatenates their records.
// A failing plugin is logged and contributes nothing; the loop moves on.
// Progress is round(100*k/n) after the k-th plugin. With no plugins the loop
// returns an empty slice and emits nothing.
func ScanLoop(q hwquery.Handle, plugins []plugin.ScanPlugin) Work[[]plugin.ScanRecord] {
	return func(tc *Context) ([]plugin.ScanRecord, error) {
		records := []plugin.ScanRecord{}
		total := len(plugins)
		if total == 0 {
			return records, nil
		}

		tc.Logf("Starting scan with %d plugins...", total)
		for i, p := range plugins {
			tc.Logf("Running plugin: %s", p.Name())
			recs, err := scanOne(tc.Context(), p, q)
			if err != nil {
				tc.Logf("Error in plugin %s: %v", p.Name(), err)
			} else {
				records = append(records, recs...)
			}
			tc.Progress(percent(i+1, total))
		}
		tc.Logf("Scan complete: %d records", len(records))
		return records, nil
	}
}

func scanOne(ctx context.Context, p plugin.ScanPlugin, q hwquery.Handle) (recs []plugin.ScanRecord, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &plugin.PanicError{Value: v, Stack: debug.Stack()}
		}
	}()
	return p.Scan(ctx, q)
}

// DiagnosticLoop runs plugins in order. Every plugin gets an entry in the
// report: a failing one gets a single StatusError result describing the
// failure.
func DiagnosticLoop(plugins []plugin.DiagnosticPlugin) Work[*plugin.DiagnosticReport] {
	return func(tc *Context) (*plugin.DiagnosticReport, error) {
		report := plugin.NewDiagnosticReport()
		total := len(plugins)
		if total == 0 {
			return report, nil
		}

		tc.Logf("Starting diagnostics with %d plugins...", total)
		for i, p := range plugins {
			tc.Logf("Running diagnostic: %s", p.Name())
			results, err := diagnoseOne(tc.Context(), p)
			if err != nil {
				tc.Logf("Error in diagnostic %s: %v", p.Name(), err)
				results = []plugin.DiagnosticResult{{
					Task:    PluginExecutionTask,
					Status:  plugin.StatusError,
					Message: err.Error(),
				}}
			}
			report.Set(p.Name(), results)
			tc.Progress(percent(i+1, total))
		}
		tc.Log("Diagnostics complete")
		return report, nil
	}
}

func diagnoseOne(ctx context.Context, p plugin.DiagnosticPlugin) (res []plugin.DiagnosticResult, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &plugin.PanicError{Value: v, Stack: debug.Stack()}
		}
	}()
	return p.RunDiagnostic(ctx)
}

// ExportJob calls p.Export once with req. Lines the plugin emits go to the
// dispatch log unless req already carries a sink. A panic or a missing
// result becomes an ExportFailure.
func ExportJob(p plugin.ExportPlugin, req plugin.ExportRequest) Work[plugin.ExportResult] {
	return func(tc *Context) (plugin.ExportResult, error) {
		if req.Log == nil {
			req.Log = tc.Log
		}
		tc.Logf("Exporting %d records with %s...", len(req.Records), p.Name())

		res := exportOne(tc.Context(), p, req)
		switch r := res.(type) {
		case plugin.FileWritten:
			tc.Logf("Saved to %s", r.Path)
		case plugin.ManualFollowUp:
			tc.Logf("Export requires follow-up (%s): %s", r.Action, r.Path)
		case plugin.ExportFailure:
			tc.Logf("Export with %s failed: %s", p.Name(), r.Reason)
		}
		tc.Progress(100)
		return res, nil
	}
}

func exportOne(ctx context.Context, p plugin.ExportPlugin, req plugin.ExportRequest) (res plugin.ExportResult) {
	defer func() {
		if v := recover(); v != nil {
			res = plugin.ExportFailure{Reason: fmt.Sprintf("panic: %v", v)}
		}
	}()
	res = p.Export(ctx, req)
	if res == nil {
		res = plugin.ExportFailure{Reason: "plugin returned no result"}
	}
	return res
}

// SyncJob calls p.Sync once, handing it the task context. A sync error fails
// the dispatch.
func SyncJob(p plugin.SyncPlugin, records []plugin.ScanRecord, cfg plugin.SyncConfig) Work[struct{}] {
	return func(tc *Context) (struct{}, error) {
		tc.Logf("Syncing %d records with %s...", len(records), p.Name())
		if err := p.Sync(tc.Context(), tc, records, cfg); err != nil {
			return struct{}{}, &plugin.PluginExecutionError{Plugin: p.Name(), Err: err}
		}
		tc.Logf("Sync with %s complete", p.Name())
		return struct{}{}, nil
	}
}

// percent is round(100*done/total) with halves rounded up.
func percent(done, total int) int {
	return (200*done + total) / (2 * total)
}
