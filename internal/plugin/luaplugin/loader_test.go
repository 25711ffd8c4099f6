package luaplugin_test

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-tangra/go-tangra-assets/internal/hwquery"
	"github.com/go-tangra/go-tangra-assets/internal/hwquery/hwquerytest"
	"github.com/go-tangra/go-tangra-assets/internal/plugin"
	"github.com/go-tangra/go-tangra-assets/internal/plugin/luaplugin"
)

func writeScript(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func load(t *testing.T, src string) []plugin.Unit {
	t.Helper()
	path := writeScript(t, t.TempDir(), "plugin.lua", src)
	mod, err := luaplugin.NewLoader().Load(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mod.Closer.Close() })

	var units []plugin.Unit
	for _, f := range mod.Factories {
		u, err := f.New()
		require.NoError(t, err)
		units = append(units, u)
	}
	return units
}

const boardScanner = `
return {
  name = "Board Scanner",
  icon = "chip",
  scan = function(host)
    local out = {}
    for _, row in ipairs(host.class("Win32_BaseBoard")) do
      table.insert(out, {
        category = "Motherboard",
        brand = row.Manufacturer,
        model = row.Product,
        serial_number = row.SerialNumber,
      })
    end
    return out
  end,
}
`

func TestScan(t *testing.T) {
	units := load(t, boardScanner)
	require.Len(t, units, 1)
	require.NotNil(t, units[0].Scan)
	assert.Nil(t, units[0].Export)
	assert.Equal(t, "Board Scanner", units[0].Type)
	assert.Equal(t, "chip", plugin.IconName(units[0].Scan))

	q := hwquerytest.New().Set("Win32_BaseBoard", []hwquery.Win32BaseBoard{
		{Manufacturer: "Dell Inc.", Product: "0X8DXD", SerialNumber: "ABC123"},
	})
	records, err := units[0].Scan.Scan(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Dell Inc.", records[0].Brand)
	assert.Equal(t, "ABC123", records[0].SerialNumber)
	assert.Equal(t, plugin.Unknown, records[0].Size)
}

func TestScanHostError(t *testing.T) {
	units := load(t, boardScanner)
	q := hwquerytest.New().Fail("Win32_BaseBoard", errors.New("access denied"))
	_, err := units[0].Scan.Scan(context.Background(), q)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestMultipleDefinitionsShareFile(t *testing.T) {
	units := load(t, `
local count = 0
local function counter()
  count = count + 1
  return count
end
return {
  { name = "first", run_diagnostic = function() return {{task = "n", status = "normal", message = tostring(counter())}} end },
  function()
    return { name = "second", run_diagnostic = function() return {{task = "n", message = tostring(counter())}} end }
  end,
}
`)
	require.Len(t, units, 2)
	first, err := units[0].Diagnostic.RunDiagnostic(context.Background())
	require.NoError(t, err)
	second, err := units[1].Diagnostic.RunDiagnostic(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []plugin.DiagnosticResult{{Task: "n", Status: plugin.StatusNormal, Message: "1"}}, first)
	assert.Equal(t, []plugin.DiagnosticResult{{Task: "n", Status: plugin.StatusInfo, Message: "2"}}, second)
}

func TestExportArity(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		printer plugin.Option[string]
		want    plugin.ExportResult
		logs    []string
	}{
		{
			name: "five parameters",
			src: `return { name = "x", export = function(records, path, header, log, printer)
				log("printing to " .. (printer or "default"))
				return { action = "print", path = path .. ".pdf" }
			end }`,
			printer: plugin.Some("Office"),
			want:    plugin.ManualFollowUp{Action: "print", Path: "out.pdf"},
			logs:    []string{"printing to Office"},
		},
		{
			name: "five parameters no printer",
			src: `return { name = "x", export = function(records, path, header, log, printer)
				log("printing to " .. (printer or "default"))
			end }`,
			printer: plugin.None[string](),
			want:    plugin.FileWritten{Path: "out"},
			logs:    []string{"printing to default"},
		},
		{
			name: "four parameters",
			src: `return { name = "x", export = function(records, path, header, log)
				log(header .. ":" .. #records)
				return true
			end }`,
			want: plugin.FileWritten{Path: "out"},
			logs: []string{"Report:2"},
		},
		{
			name: "three parameters",
			src: `return { name = "x", export = function(records, path, header)
				return path .. ".csv"
			end }`,
			want: plugin.FileWritten{Path: "out.csv"},
		},
		{
			name: "variadic",
			src: `return { name = "x", export = function(...)
				local args = {...}
				args[4]("got " .. select("#", ...))
			end }`,
			want: plugin.FileWritten{Path: "out"},
			logs: []string{"got 5"},
		},
		{
			name: "two parameters",
			src:  `return { name = "x", export = function(records, path) end }`,
			want: plugin.ExportFailure{Reason: `plugin "x": export accepts 2 parameters, need at least 3: no compatible signature`},
		},
		{
			name: "reported failure",
			src:  `return { name = "x", export = function(records, path, header) return nil, "disk full" end }`,
			want: plugin.ExportFailure{Reason: "disk full"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			units := load(t, tt.src)
			require.NotNil(t, units[0].Export)

			var logs []string
			res := units[0].Export.Export(context.Background(), plugin.ExportRequest{
				Records:    []plugin.ScanRecord{plugin.NewRecord("CPU"), plugin.NewRecord("GPU")},
				OutputPath: "out",
				Header:     "Report",
				Log:        func(line string) { logs = append(logs, line) },
				Printer:    tt.printer,
			})
			assert.Equal(t, tt.want, res)
			assert.Equal(t, tt.logs, logs)
		})
	}
}

func TestExportRuntimeError(t *testing.T) {
	units := load(t, `return { name = "x", export = function(records, path, header) error("boom") end }`)
	res := units[0].Export.Export(context.Background(), plugin.ExportRequest{OutputPath: "out"})
	failure, ok := res.(plugin.ExportFailure)
	require.True(t, ok)
	assert.Contains(t, failure.Reason, "boom")
}

type taskRecorder struct {
	logs     []string
	progress []int
	errors   []string
}

func (r *taskRecorder) Log(line string)             { r.logs = append(r.logs, line) }
func (r *taskRecorder) Progress(p int)              { r.progress = append(r.progress, p) }
func (r *taskRecorder) Error(title, message string) { r.errors = append(r.errors, title+": "+message) }

func TestSync(t *testing.T) {
	units := load(t, `return {
  name = "Lua Sync",
  sync = function(task, records, config)
    for i, r in ipairs(records) do
      task.log("sync " .. r.serial_number .. " to " .. config.url)
      task.progress(i * 100 / #records)
    end
    task.error("Notice", "done")
  end,
}`)
	require.NotNil(t, units[0].Sync)

	rec := plugin.NewRecord("Motherboard")
	rec.SerialNumber = "SN1"
	tr := &taskRecorder{}
	err := units[0].Sync.Sync(context.Background(), tr, []plugin.ScanRecord{rec}, plugin.SyncConfig{"url": "http://snipe"})
	require.NoError(t, err)
	assert.Equal(t, []string{"sync SN1 to http://snipe"}, tr.logs)
	assert.Equal(t, []int{100}, tr.progress)
	assert.Equal(t, []string{"Notice: done"}, tr.errors)
}

func TestLoadErrors(t *testing.T) {
	tests := map[string]string{
		"syntax":     `return {`,
		"runtime":    `error("import failed")`,
		"not table":  `return 42`,
		"no returns": `local x = 1`,
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			path := writeScript(t, t.TempDir(), "bad.lua", src)
			_, err := luaplugin.NewLoader().Load(path)
			assert.Error(t, err)
		})
	}
}

func TestInstantiateErrors(t *testing.T) {
	path := writeScript(t, t.TempDir(), "bad.lua", `return {
  function() error("constructor failed") end,
  { scan = function() end },
  7,
}`)
	mod, err := luaplugin.NewLoader().Load(path)
	require.NoError(t, err)
	defer mod.Closer.Close()

	require.Len(t, mod.Factories, 3)
	for _, f := range mod.Factories {
		_, err := f.New()
		assert.Error(t, err, f.Type)
	}
}

func TestClosedState(t *testing.T) {
	path := writeScript(t, t.TempDir(), "p.lua", `return { name = "d", run_diagnostic = function() return {} end }`)
	mod, err := luaplugin.NewLoader().Load(path)
	require.NoError(t, err)
	u, err := mod.Factories[0].New()
	require.NoError(t, err)

	require.NoError(t, mod.Closer.Close())
	_, err = u.Diagnostic.RunDiagnostic(context.Background())
	assert.ErrorIs(t, err, luaplugin.ErrStateClosed)
}

func TestContextCancelsScript(t *testing.T) {
	units := load(t, `return { name = "spin", scan = function(host) while true do end end }`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := units[0].Scan.Scan(ctx, hwquerytest.New())
	assert.Error(t, err)
}

func TestRegistryDiscoversLuaFiles(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "board.lua", boardScanner)
	writeScript(t, dir, "broken.lua", `return {`)
	writeScript(t, dir, "__helpers.lua", `error("must not load")`)

	var buf bytes.Buffer
	r := plugin.NewRegistry(plugin.WithLogger(log.New(&buf, "", 0)))
	defer r.Close()
	require.NoError(t, r.Discover(dir))

	require.Len(t, r.ScanPlugins(), 1)
	assert.Equal(t, "Board Scanner", r.ScanPlugins()[0].Name())
	require.Len(t, r.LoadErrors(), 1)
	assert.Equal(t, "broken.lua", r.LoadErrors()[0].File)
}
