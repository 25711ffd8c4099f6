package plugin_test

import (
	"context"

	"github.com/go-tangra/go-tangra-assets/internal/hwquery"
	"github.com/go-tangra/go-tangra-assets/internal/plugin"
)

type scanStub struct{ name string }

func (s scanStub) Name() string { return s.name }
func (s scanStub) Scan(context.Context, hwquery.Handle) ([]plugin.ScanRecord, error) {
	return []plugin.ScanRecord{plugin.NewRecord(s.name)}, nil
}

type exportStub struct{ name string }

func (s exportStub) Name() string { return s.name }
func (s exportStub) Export(_ context.Context, req plugin.ExportRequest) plugin.ExportResult {
	return plugin.FileWritten{Path: req.OutputPath}
}

type diagStub struct{ name string }

func (s diagStub) Name() string { return s.name }
func (s diagStub) RunDiagnostic(context.Context) ([]plugin.DiagnosticResult, error) {
	return nil, nil
}

type syncStub struct{ name string }

func (s syncStub) Name() string { return s.name }
func (s syncStub) Sync(context.Context, plugin.TaskContext, []plugin.ScanRecord, plugin.SyncConfig) error {
	return nil
}

// everything satisfies all four contracts.
type everything struct {
	scanStub
	exportStub
	diagStub
	syncStub
}

func (everything) Name() string { return "everything" }

// namePanics is a scan plugin whose Name panics.
type namePanics struct{ scanStub }

func (namePanics) Name() string { panic("no name") }
