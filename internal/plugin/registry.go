package plugin

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
)

// ReservedPrefix marks files in a plugin directory that are not plugins.
const ReservedPrefix = "__"

// SourceBuiltin is the Unit.Source of compiled-in plugins.
const SourceBuiltin = "builtin"

// Registry discovers plugins and owns exactly one instance per plugin type
// for the lifetime of the process. Capability lists are mutated only while
// plugins are added and are read-only afterwards; callers get copies.
type Registry struct {
	mu     sync.RWMutex
	logger *log.Logger

	loaders       map[string]Loader
	loaderFailure map[string]bool

	scan       []ScanPlugin
	export     []ExportPlugin
	diagnostic []DiagnosticPlugin
	sync       []SyncPlugin

	loadErrs []*DiscoveryLoadError
	closers  []io.Closer
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger discovery narrates to. Defaults to log.Default().
func WithLogger(l *log.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = l
	}
}

// WithLoader installs a loader for ext, overriding any registered one.
func WithLoader(ext string, l Loader) RegistryOption {
	return func(r *Registry) {
		r.loaders[strings.ToLower(ext)] = l
	}
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		logger:        log.Default(),
		loaders:       make(map[string]Loader),
		loaderFailure: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddBuiltins instantiates every compiled-in plugin type registered with
// RegisterBuiltin, in registration order.
func (r *Registry) AddBuiltins() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instantiate(SourceBuiltin, builtinFactories())
}

// Discover loads every plugin file in dir. Entries that are directories,
// start with ReservedPrefix or have no registered loader are skipped. A file
// that fails to load, or a type that fails to instantiate, is logged and
// recorded in LoadErrors; discovery always continues.
//
// Discover appends: calling it twice yields duplicate instances. Call it once
// per process.
func (r *Registry) Discover(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.logger.Printf("Error: plugin directory %q not found", dir)
			return fmt.Errorf("%w: %s", ErrPluginDirNotFound, dir)
		}
		r.logger.Printf("Error: cannot read plugin directory %q: %v", dir, err)
		return fmt.Errorf("read plugin directory: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Printf("--- Loading plugins from %q ---", dir)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ReservedPrefix) {
			continue
		}
		loader, ok := r.loaderFor(strings.ToLower(filepath.Ext(name)))
		if !ok {
			continue
		}
		r.loadFile(loader, filepath.Join(dir, name))
	}
	r.logger.Println("--- Plugin loading complete ---")
	return nil
}

// Add classifies u and appends its plugin to the matching capability list.
// It reports the capability chosen; ok is false when u matches no contract
// or its plugin panics when asked for its name.
func (r *Registry) Add(u Unit) (c Capability, ok bool) {
	name, err := safeName(u)
	if err != nil {
		r.logger.Printf("  [Failed] Plugin %q from %s: %v", u.Type, u.Source, err)
		return 0, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.add(u, name)
}

func (r *Registry) add(u Unit, name string) (Capability, bool) {
	c, _, ok := u.Classify()
	if !ok {
		return 0, false
	}
	switch c {
	case CapabilitySync:
		r.sync = append(r.sync, u.Sync)
	case CapabilityScan:
		r.scan = append(r.scan, u.Scan)
	case CapabilityExport:
		r.export = append(r.export, u.Export)
	case CapabilityDiagnostic:
		r.diagnostic = append(r.diagnostic, u.Diagnostic)
	}
	r.logger.Printf("  [Success] Loaded %s plugin %q (%s) from %s", c, name, u.Type, u.Source)
	return c, true
}

func (r *Registry) loaderFor(ext string) (Loader, bool) {
	if l, ok := r.loaders[ext]; ok {
		return l, true
	}
	if r.loaderFailure[ext] {
		return nil, false
	}
	factory, ok := loaderFactory(ext)
	if !ok {
		return nil, false
	}
	l, err := factory()
	if err != nil {
		r.logger.Printf("  [Failed] Could not create loader for %s files: %v", ext, err)
		r.loaderFailure[ext] = true
		return nil, false
	}
	r.loaders[ext] = l
	return l, true
}

func (r *Registry) loadFile(loader Loader, path string) {
	file := filepath.Base(path)
	mod, err := safeLoad(loader, path)
	if err != nil {
		r.fail(&DiscoveryLoadError{File: file, Err: err})
		return
	}
	if mod.Closer != nil {
		r.closers = append(r.closers, mod.Closer)
	}
	r.instantiate(file, mod.Factories)
}

func (r *Registry) instantiate(source string, factories []Factory) {
	for _, f := range factories {
		u, err := safeNew(f)
		if err != nil {
			r.fail(&DiscoveryLoadError{File: source, Type: f.Type, Err: err})
			continue
		}
		if u.Source == "" {
			u.Source = source
		}
		if u.Type == "" {
			u.Type = f.Type
		}
		name, err := safeName(u)
		if err != nil {
			r.fail(&DiscoveryLoadError{File: source, Type: f.Type, Err: err})
			continue
		}
		r.add(u, name)
	}
}

func (r *Registry) fail(err *DiscoveryLoadError) {
	r.loadErrs = append(r.loadErrs, err)
	r.logger.Printf("  [Failed] %v", err)
}

func safeLoad(l Loader, path string) (mod *Module, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Value: v, Stack: debug.Stack()}
		}
	}()
	mod, err = l.Load(path)
	if err == nil && mod == nil {
		err = errors.New("loader returned no module")
	}
	return mod, err
}

func safeNew(f Factory) (u Unit, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Value: v, Stack: debug.Stack()}
		}
	}()
	if f.New == nil {
		return Unit{}, errors.New("no constructor")
	}
	return f.New()
}

// safeName returns the name of the plugin u classifies as, or "" when u
// matches no contract.
func safeName(u Unit) (name string, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Value: v, Stack: debug.Stack()}
		}
	}()
	if _, p, ok := u.Classify(); ok {
		name = p.Name()
	}
	return name, nil
}

// ScanPlugins returns the scan plugins in discovery order.
func (r *Registry) ScanPlugins() []ScanPlugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]ScanPlugin(nil), r.scan...)
}

// ExportPlugins returns the export plugins in discovery order.
func (r *Registry) ExportPlugins() []ExportPlugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]ExportPlugin(nil), r.export...)
}

// DiagnosticPlugins returns the diagnostic plugins in discovery order.
func (r *Registry) DiagnosticPlugins() []DiagnosticPlugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]DiagnosticPlugin(nil), r.diagnostic...)
}

// SyncPlugins returns the sync plugins in discovery order.
func (r *Registry) SyncPlugins() []SyncPlugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]SyncPlugin(nil), r.sync...)
}

// LoadErrors returns the load failures recorded so far.
func (r *Registry) LoadErrors() []*DiscoveryLoadError {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*DiscoveryLoadError(nil), r.loadErrs...)
}

// FindScan returns the first scan plugin named name.
func (r *Registry) FindScan(name string) (ScanPlugin, bool) {
	return find(r.ScanPlugins(), name)
}

// FindExport returns the first export plugin named name.
func (r *Registry) FindExport(name string) (ExportPlugin, bool) {
	return find(r.ExportPlugins(), name)
}

// FindDiagnostic returns the first diagnostic plugin named name.
func (r *Registry) FindDiagnostic(name string) (DiagnosticPlugin, bool) {
	return find(r.DiagnosticPlugins(), name)
}

// FindSync returns the first sync plugin named name.
func (r *Registry) FindSync(name string) (SyncPlugin, bool) {
	return find(r.SyncPlugins(), name)
}

func find[T Plugin](plugins []T, name string) (T, bool) {
	for _, p := range plugins {
		if strings.EqualFold(p.Name(), name) {
			return p, true
		}
	}
	var zero T
	return zero, false
}

// Close releases loader resources such as script interpreters. Plugins must
// not be used afterwards.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}
