package wasmplugin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/go-tangra/go-tangra-assets/internal/plugin"
)

func TestLoadInvalidModule(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wasm")
	require.NoError(t, os.WriteFile(path, []byte("this is not valid WASM data"), 0o644))

	_, err := NewLoader().Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := NewLoader().Load(filepath.Join(t.TempDir(), "missing.wasm"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseDescribe(t *testing.T) {
	descs, err := parseDescribe([]byte(`{"plugins":[
		{"name":"BIOS","icon":"chip","capabilities":["scan"]},
		{"name":"YAML","extension":".yaml","filter":"YAML (*.yaml)","capabilities":["export"]}
	]}`))
	require.NoError(t, err)
	assert.Equal(t, []description{
		{Name: "BIOS", Icon: "chip", Capabilities: []string{"scan"}},
		{Name: "YAML", Extension: ".yaml", Filter: "YAML (*.yaml)", Capabilities: []string{"export"}},
	}, descs)

	descs, err = parseDescribe([]byte(`{"name":"Solo","capabilities":["run_diagnostic","sync"]}`))
	require.NoError(t, err)
	require.Len(t, descs, 1)
	assert.Equal(t, "Solo", descs[0].Name)

	_, err = parseDescribe([]byte(`{"plugins":[{"icon":"x"}]}`))
	assert.Error(t, err)

	_, err = parseDescribe([]byte(`not json`))
	assert.Error(t, err)
}

func TestUnitCapabilities(t *testing.T) {
	m := &module{file: "multi.wasm"}
	u, err := m.unit(description{Name: "multi", Capabilities: []string{"diagnostic", "scan", "sync"}})
	require.NoError(t, err)
	assert.Equal(t, "multi.wasm", u.Source)
	assert.Equal(t, []plugin.Capability{plugin.CapabilitySync, plugin.CapabilityScan, plugin.CapabilityDiagnostic}, u.Capabilities())

	c, p, ok := u.Classify()
	require.True(t, ok)
	assert.Equal(t, plugin.CapabilitySync, c)
	assert.Equal(t, "multi", p.Name())

	_, err = m.unit(description{Name: "odd", Capabilities: []string{"teleport"}})
	assert.Error(t, err)
}

func TestEncodeExport(t *testing.T) {
	p := &Plugin{desc: description{Name: "YAML"}}
	rec := plugin.NewRecord("CPU")
	rec.Brand = "Intel"

	in, err := encodeExport(p.request(), plugin.ExportRequest{
		Records:    []plugin.ScanRecord{rec},
		OutputPath: `C:\out.yaml`,
		Header:     "Report",
		Printer:    plugin.Some("Office"),
	})
	require.NoError(t, err)
	assert.Equal(t, "YAML", gjson.GetBytes(in, "plugin").String())
	assert.Equal(t, "Intel", gjson.GetBytes(in, "records.0.brand").String())
	assert.Equal(t, `C:\out.yaml`, gjson.GetBytes(in, "path").String())
	assert.Equal(t, "Office", gjson.GetBytes(in, "printer").String())

	in, err = encodeExport(p.request(), plugin.ExportRequest{Printer: plugin.None[string]()})
	require.NoError(t, err)
	assert.Equal(t, gjson.Null, gjson.GetBytes(in, "printer").Type)
	assert.True(t, gjson.GetBytes(in, "records").IsArray())
}

func TestEncodeSync(t *testing.T) {
	in, err := encodeSync([]byte(`{}`), nil, plugin.SyncConfig{"url": "http://snipe"})
	require.NoError(t, err)
	assert.Equal(t, "http://snipe", gjson.GetBytes(in, "config.url").String())
	assert.Equal(t, int64(0), gjson.GetBytes(in, "records.#").Int())
}

func TestDecodeExportResult(t *testing.T) {
	tests := []struct {
		out  string
		want plugin.ExportResult
	}{
		{``, plugin.FileWritten{Path: "out.yaml"}},
		{`{}`, plugin.FileWritten{Path: "out.yaml"}},
		{`{"path":"other.yaml"}`, plugin.FileWritten{Path: "other.yaml"}},
		{`{"action":"print","path":"tmp.pdf"}`, plugin.ManualFollowUp{Action: "print", Path: "tmp.pdf"}},
		{`{"error":"disk full"}`, plugin.ExportFailure{Reason: "disk full"}},
		{`garbage`, plugin.ExportFailure{Reason: "export returned invalid JSON"}},
	}
	for _, tt := range tests {
		t.Run(tt.out, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeExportResult("out.yaml", []byte(tt.out)))
		})
	}
}

func TestDecodeRecords(t *testing.T) {
	records, err := decodeRecords([]byte(`[{"category":"BIOS","brand":"AMI","serial_number":""}]`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "AMI", records[0].Brand)
	assert.Equal(t, plugin.Unknown, records[0].SerialNumber)

	_, err = decodeRecords([]byte(`{"error":"wmi failed"}`))
	assert.EqualError(t, err, "wmi failed")
}

func TestDecodeResults(t *testing.T) {
	results, err := decodeResults([]byte(`[{"task":"TPM","status":"warning","message":"disabled"},{"task":"x"}]`))
	require.NoError(t, err)
	assert.Equal(t, []plugin.DiagnosticResult{
		{Task: "TPM", Status: plugin.StatusWarning, Message: "disabled"},
		{Task: "x", Status: plugin.StatusInfo},
	}, results)
}

func TestRowsJSONDecodesUTF16(t *testing.T) {
	out := rowsJSON([]map[string]any{{
		"UserFriendlyName":  []uint16{'D', 'E', 'L', 'L', 0, 0},
		"YearOfManufacture": uint16(2021),
	}})
	assert.Equal(t, "DELL", gjson.GetBytes(out, "0.UserFriendlyName").String())
	assert.Equal(t, int64(2021), gjson.GetBytes(out, "0.YearOfManufacture").Int())
}

type taskRecorder struct{ lines []string }

func (r *taskRecorder) Log(line string)             { r.lines = append(r.lines, line) }
func (r *taskRecorder) Progress(p int)              {}
func (r *taskRecorder) Error(title, message string) { r.lines = append(r.lines, title+"|"+message) }

func TestSessionRouting(t *testing.T) {
	var exportLines []string
	s := &session{log: func(line string) { exportLines = append(exportLines, line) }}
	s.Log("hello")
	s.Error("Warn", "low toner")
	s.Progress(50)
	assert.Equal(t, []string{"hello", "Warn: low toner"}, exportLines)

	tr := &taskRecorder{}
	s = &session{task: tr, log: func(string) { t.Fatal("log sink used during sync") }}
	s.Log("sync")
	s.Error("A", "B")
	assert.Equal(t, []string{"sync", "A|B"}, tr.lines)

	(&session{}).Log("dropped")
}
