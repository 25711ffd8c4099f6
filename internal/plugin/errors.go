package plugin

import (
	"errors"
	"fmt"
)

// ErrPluginDirNotFound is returned by Discover when the directory is missing.
var ErrPluginDirNotFound = errors.New("plugin directory not found")

// DiscoveryLoadError reports a plugin file that failed to load, or a plugin
// type in it that failed to instantiate. Type is empty for file failures.
type DiscoveryLoadError struct {
	File string
	Type string
	Err  error
}

func (e *DiscoveryLoadError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("could not load %s: %v", e.File, e.Err)
	}
	return fmt.Sprintf("could not instantiate %s from %s: %v", e.Type, e.File, e.Err)
}

func (e *DiscoveryLoadError) Unwrap() error { return e.Err }

// PluginExecutionError reports a plugin whose operation failed during a
// dispatched loop.
type PluginExecutionError struct {
	Plugin string
	Err    error
}

func (e *PluginExecutionError) Error() string {
	return fmt.Sprintf("plugin %q failed: %v", e.Plugin, e.Err)
}

func (e *PluginExecutionError) Unwrap() error { return e.Err }

// SignatureMismatchError reports a dynamically loaded operation that accepts
// none of the supported parameter lists.
type SignatureMismatchError struct {
	Plugin    string
	Operation string
	Accepts   int
	Minimum   int
}

func (e *SignatureMismatchError) Error() string {
	return fmt.Sprintf("plugin %q: %s accepts %d parameters, need at least %d: no compatible signature",
		e.Plugin, e.Operation, e.Accepts, e.Minimum)
}

// PanicError wraps a value recovered from a panicking plugin.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
