// Package hwquery provides the hardware query handle that scan plugins share
// during one scan. On Windows it is backed by WMI; SMBIOS tables are read on
// every platform that exposes them.
package hwquery

import (
	"errors"
	"fmt"
	"sync"

	"github.com/siderolabs/go-smbios/smbios"
)

// DefaultNamespace is the WMI namespace used when none is given.
const DefaultNamespace = `root\cimv2`

// ErrUnsupported is returned by WMI queries on platforms without WMI.
var ErrUnsupported = errors.New("WMI is only available on Windows")

// Handle is the read-only hardware query handle passed to scan plugins.
// A single Handle is shared by all plugins of one scan; plugins run
// sequentially, so implementations need not be safe for concurrent use
// beyond what Local guarantees.
type Handle interface {
	// Query runs a WQL query in the default namespace and loads the result
	// into dst, which must be a pointer to a slice of structs.
	Query(query string, dst any) error

	// QueryNamespace is Query against an explicit namespace such as root\wmi.
	QueryNamespace(namespace, query string, dst any) error

	// Class returns all rows of a well-known class as generic maps. It is the
	// entry point for scripted plugins that cannot declare Go structs.
	Class(name string) ([]map[string]any, error)

	// SMBIOS returns the decoded firmware tables.
	SMBIOS() (*smbios.SMBIOS, error)
}

// Local is the Handle for the machine the process runs on.
type Local struct {
	once    sync.Once
	tables  *smbios.SMBIOS
	readErr error
}

// NewLocal creates a Handle for the local machine. WMI connections are made
// per query; SMBIOS tables are read lazily once.
func NewLocal() *Local {
	return &Local{}
}

// Query implements Handle.
func (l *Local) Query(query string, dst any) error {
	return wmiQuery(DefaultNamespace, query, dst)
}

// QueryNamespace implements Handle.
func (l *Local) QueryNamespace(namespace, query string, dst any) error {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return wmiQuery(namespace, query, dst)
}

// Class implements Handle.
func (l *Local) Class(name string) ([]map[string]any, error) {
	return QueryClass(l, name)
}

// SMBIOS implements Handle.
func (l *Local) SMBIOS() (*smbios.SMBIOS, error) {
	l.once.Do(func() {
		l.tables, l.readErr = smbios.New()
		if l.readErr != nil {
			l.readErr = fmt.Errorf("read smbios: %w", l.readErr)
		}
	})
	return l.tables, l.readErr
}
