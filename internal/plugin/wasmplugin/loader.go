// Package wasmplugin loads asset plugins compiled to WebAssembly with an
// Extism PDK.
//
// A module exports "describe", returning the plugin types it hosts:
//
//	{"plugins":[{"name":"BIOS","icon":"chip","capabilities":["scan"]}]}
//
// and one export per capability: "scan", "export", "run_diagnostic" and
// "sync". Each receives a JSON object naming the plugin it is called for
// and returns JSON:
//
//	scan            in {"plugin"}                                  out [record...]
//	run_diagnostic  in {"plugin"}                                  out [result...]
//	export          in {"plugin","records","path","header","printer"}
//	                out {"path"} | {"action","path"} | {"error"}
//	sync            in {"plugin","records","config"}              out {} | {"error"}
//
// Host functions in the extism:host/user namespace give modules hardware
// access and task narration: hw_class(name) returns the rows of a WMI class
// as JSON, hw_smbios() the firmware tables, and task_log(line),
// task_progress(percent) and task_error(title, message) report through the
// current export log or sync task.
//
// Files are registered for the ".wasm" extension when this package is
// imported.
package wasmplugin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	extism "github.com/extism/go-sdk"
	"github.com/tidwall/gjson"

	"github.com/go-tangra/go-tangra-assets/internal/plugin"
)

// Extension is the file extension handled by Loader.
const Extension = ".wasm"

func init() {
	plugin.RegisterLoader(Extension, func() (plugin.Loader, error) {
		return NewLoader(), nil
	})
}

// ErrNoDescribe is returned for modules that do not export describe.
var ErrNoDescribe = errors.New("module does not export describe")

// Loader instantiates WASM plugin files.
type Loader struct {
	wasi bool
}

// NewLoader creates a Loader. WASI is enabled so modules built for
// wasm32-wasi can run.
func NewLoader() *Loader {
	return &Loader{wasi: true}
}

// Load instantiates the module at path and returns one factory per plugin
// type its describe export lists.
func (l *Loader) Load(path string) (*plugin.Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	file := filepath.Base(path)
	m := &module{file: file}

	manifest := extism.Manifest{
		Wasm: []extism.Wasm{
			extism.WasmData{Data: data, Name: file},
		},
	}
	config := extism.PluginConfig{EnableWasi: l.wasi}

	ctx := context.Background()
	p, err := extism.NewPlugin(ctx, manifest, config, m.hostFunctions())
	if err != nil {
		return nil, fmt.Errorf("failed to create Extism plugin: %w", err)
	}
	m.plugin = p

	if !p.FunctionExists("describe") {
		_ = p.Close(ctx)
		return nil, ErrNoDescribe
	}
	out, err := m.call(ctx, nil, "describe", nil)
	if err != nil {
		_ = p.Close(ctx)
		return nil, err
	}
	descs, err := parseDescribe(out)
	if err != nil {
		_ = p.Close(ctx)
		return nil, err
	}

	mod := &plugin.Module{Closer: m}
	for _, d := range descs {
		mod.Factories = append(mod.Factories, plugin.Factory{
			Type: d.Name,
			New: func() (plugin.Unit, error) {
				return m.unit(d)
			},
		})
	}
	return mod, nil
}

// module is one instantiated WASM file. Extism plugins are not safe for
// concurrent calls, so calls hold mu; the host functions read the session
// of the call in progress.
type module struct {
	file   string
	plugin *extism.Plugin

	mu      sync.Mutex
	session *session
	closed  bool
}

func (m *module) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.plugin == nil {
		return nil
	}
	m.closed = true
	return m.plugin.Close(context.Background())
}

// call runs export fn with input while s is the current session.
func (m *module) call(ctx context.Context, s *session, fn string, input []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, errors.New("wasm module is closed")
	}
	if !m.plugin.FunctionExists(fn) {
		return nil, fmt.Errorf("module does not export %s", fn)
	}

	m.session = s
	defer func() { m.session = nil }()

	exit, out, err := m.plugin.CallWithContext(ctx, fn, input)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", fn, err)
	}
	if exit != 0 {
		return nil, fmt.Errorf("%s returned non-zero exit code: %d", fn, exit)
	}
	return out, nil
}

// current is called from host functions, which run inside call with mu
// already held.
func (m *module) current() *session {
	if m.session == nil {
		return &session{}
	}
	return m.session
}

func (m *module) unit(d description) (plugin.Unit, error) {
	p := &Plugin{module: m, desc: d}
	u := plugin.Unit{Source: m.file, Type: d.Name}
	for _, c := range d.Capabilities {
		switch c {
		case "sync":
			u.Sync = p
		case "scan":
			u.Scan = p
		case "export":
			u.Export = p
		case "diagnostic", "run_diagnostic":
			u.Diagnostic = p
		default:
			return plugin.Unit{}, fmt.Errorf("unknown capability %q", c)
		}
	}
	return u, nil
}

type description struct {
	Name         string
	Icon         string
	Extension    string
	Filter       string
	Capabilities []string
}

// parseDescribe accepts {"plugins":[...]} or a single plugin object.
func parseDescribe(out []byte) ([]description, error) {
	if !gjson.ValidBytes(out) {
		return nil, errors.New("describe returned invalid JSON")
	}
	root := gjson.ParseBytes(out)
	items := []gjson.Result{root}
	if list := root.Get("plugins"); list.IsArray() {
		items = list.Array()
	}

	descs := make([]description, 0, len(items))
	for i, item := range items {
		d := description{
			Name:      item.Get("name").String(),
			Icon:      item.Get("icon").String(),
			Extension: item.Get("extension").String(),
			Filter:    item.Get("filter").String(),
		}
		if d.Name == "" {
			return nil, fmt.Errorf("describe: plugin %d has no name", i)
		}
		for _, c := range item.Get("capabilities").Array() {
			d.Capabilities = append(d.Capabilities, c.String())
		}
		descs = append(descs, d)
	}
	return descs, nil
}
