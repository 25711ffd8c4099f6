package luaplugin

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/go-tangra/go-tangra-assets/internal/plugin"
)

// Extension is the file extension handled by Loader.
const Extension = ".lua"

func init() {
	plugin.RegisterLoader(Extension, func() (plugin.Loader, error) {
		return NewLoader(), nil
	})
}

// ErrStateClosed is returned by calls into a closed interpreter.
var ErrStateClosed = errors.New("lua state is closed")

// Loader runs Lua plugin files.
type Loader struct {
	skipOpenLibs bool
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithBaseLibsOnly opens only the base, table, string and math libraries.
func WithBaseLibsOnly() LoaderOption {
	return func(l *Loader) {
		l.skipOpenLibs = true
	}
}

// NewLoader creates a Loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load runs the file at path in a fresh interpreter and returns one factory
// per definition it returned.
func (l *Loader) Load(path string) (*plugin.Module, error) {
	vm := newVM(l.skipOpenLibs)

	defs, err := vm.run(path)
	if err != nil {
		vm.Close()
		return nil, err
	}

	file := filepath.Base(path)
	mod := &plugin.Module{Closer: vm}
	for i, def := range defs {
		mod.Factories = append(mod.Factories, plugin.Factory{
			Type: typeName(file, i, def),
			New: func() (plugin.Unit, error) {
				return vm.instantiate(file, def)
			},
		})
	}
	return mod, nil
}

func typeName(file string, i int, def lua.LValue) string {
	if t, ok := def.(*lua.LTable); ok {
		if name := lua.LVAsString(t.RawGetString("name")); name != "" {
			return name
		}
	}
	return fmt.Sprintf("%s#%d", file, i+1)
}

// vm is one interpreter. gopher-lua states are single threaded, so every
// entry into the state holds mu.
type vm struct {
	mu     sync.Mutex
	L      *lua.LState
	closed bool
}

func newVM(baseOnly bool) *vm {
	if !baseOnly {
		return &vm{L: lua.NewState()}
	}
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	return &vm{L: L}
}

func (v *vm) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.closed {
		v.closed = true
		v.L.Close()
	}
	return nil
}

// run executes the file and collects the definitions it returned.
func (v *vm) run(path string) (defs []lua.LValue, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()

	top := v.L.GetTop()
	if err := v.L.DoFile(path); err != nil {
		return nil, err
	}
	ret := lua.LValue(lua.LNil)
	if v.L.GetTop() > top {
		ret = v.L.Get(top + 1)
	}
	v.L.SetTop(top)

	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("plugin file must return a table, got %s", ret.Type())
	}
	if tbl.RawGetString("name") != lua.LNil {
		return []lua.LValue{tbl}, nil
	}
	for i := 1; i <= tbl.Len(); i++ {
		defs = append(defs, tbl.RawGetInt(i))
	}
	return defs, nil
}

// instantiate resolves a definition to its table and wraps it.
func (v *vm) instantiate(file string, def lua.LValue) (plugin.Unit, error) {
	var tbl *lua.LTable
	err := v.with(context.Background(), func(L *lua.LState) error {
		switch d := def.(type) {
		case *lua.LTable:
			tbl = d
		case *lua.LFunction:
			ret, err := call(L, d, 1)
			if err != nil {
				return err
			}
			t, ok := ret[0].(*lua.LTable)
			if !ok {
				return fmt.Errorf("constructor must return a table, got %s", ret[0].Type())
			}
			tbl = t
		default:
			return fmt.Errorf("definition must be a table or a function, got %s", def.Type())
		}
		return nil
	})
	if err != nil {
		return plugin.Unit{}, err
	}

	name := lua.LVAsString(tbl.RawGetString("name"))
	if name == "" {
		return plugin.Unit{}, errors.New("definition has no name")
	}
	p := &Plugin{vm: v, tbl: tbl, name: name}

	u := plugin.Unit{Source: file, Type: name}
	if p.function("sync") != nil {
		u.Sync = p
	}
	if p.function("scan") != nil {
		u.Scan = p
	}
	if p.function("export") != nil {
		u.Export = p
	}
	if p.function("run_diagnostic") != nil {
		u.Diagnostic = p
	}
	return u, nil
}

// with runs fn holding the state lock, with ctx installed for the duration
// so Lua code stops when ctx is cancelled. Go panics come back as errors.
func (v *vm) with(ctx context.Context, fn func(L *lua.LState) error) (err error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return ErrStateClosed
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()

	if ctx != nil && ctx.Done() != nil {
		v.L.SetContext(ctx)
		defer v.L.RemoveContext()
	}
	return fn(v.L)
}

// call invokes fn in protected mode and returns exactly nret values.
func call(L *lua.LState, fn lua.LValue, nret int, args ...lua.LValue) ([]lua.LValue, error) {
	top := L.GetTop()
	defer L.SetTop(top)

	if err := L.CallByParam(lua.P{Fn: fn, NRet: nret, Protect: true}, args...); err != nil {
		return nil, err
	}
	ret := make([]lua.LValue, nret)
	for i := range ret {
		ret[i] = L.Get(top + 1 + i)
	}
	return ret, nil
}
