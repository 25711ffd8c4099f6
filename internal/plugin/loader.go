package plugin

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// Factory instantiates one plugin type with no arguments.
type Factory struct {
	Type string
	New  func() (Unit, error)
}

// Module is a loaded plugin file: one factory per plugin type the file
// defines, plus the resources to release when the registry closes.
type Module struct {
	Factories []Factory
	Closer    io.Closer
}

// Loader loads plugin files of one kind into isolated modules.
type Loader interface {
	Load(path string) (*Module, error)
}

// LoaderFactory creates a Loader.
type LoaderFactory func() (Loader, error)

var (
	loaderRegistry   = make(map[string]LoaderFactory)
	loaderRegistryMu sync.RWMutex

	builtins   []Factory
	builtinsMu sync.Mutex
)

// RegisterLoader registers the loader for files with extension ext (".lua").
// It is meant to be called from init functions.
func RegisterLoader(ext string, factory LoaderFactory) {
	loaderRegistryMu.Lock()
	defer loaderRegistryMu.Unlock()
	loaderRegistry[strings.ToLower(ext)] = factory
}

// RegisteredExtensions lists extensions with a registered loader, sorted.
func RegisteredExtensions() []string {
	loaderRegistryMu.RLock()
	defer loaderRegistryMu.RUnlock()
	exts := make([]string, 0, len(loaderRegistry))
	for ext := range loaderRegistry {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func loaderFactory(ext string) (LoaderFactory, bool) {
	loaderRegistryMu.RLock()
	defer loaderRegistryMu.RUnlock()
	f, ok := loaderRegistry[ext]
	return f, ok
}

// RegisterBuiltin registers a compiled-in plugin type. newFn is called once
// per Registry.AddBuiltins with no arguments; the value it returns is
// classified like any discovered plugin.
func RegisterBuiltin(typeName string, newFn func() (any, error)) {
	builtinsMu.Lock()
	defer builtinsMu.Unlock()
	builtins = append(builtins, Factory{
		Type: typeName,
		New: func() (Unit, error) {
			v, err := newFn()
			if err != nil {
				return Unit{}, err
			}
			if v == nil {
				return Unit{}, fmt.Errorf("constructor returned nil")
			}
			u := UnitOf(v)
			u.Type = typeName
			return u, nil
		},
	})
}

func builtinFactories() []Factory {
	builtinsMu.Lock()
	defer builtinsMu.Unlock()
	return append([]Factory(nil), builtins...)
}
