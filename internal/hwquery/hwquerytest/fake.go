// Package hwquerytest provides an in-memory hwquery.Handle for tests.
package hwquerytest

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sync"

	"github.com/siderolabs/go-smbios/smbios"

	"github.com/go-tangra/go-tangra-assets/internal/hwquery"
)

var fromClause = regexp.MustCompile(`(?i)\bFROM\s+([A-Za-z0-9_]+)`)

// Fake answers queries from rows registered per class. Classes without rows
// return an empty result; classes registered with an error return it.
type Fake struct {
	mu      sync.Mutex
	rows    map[string]any
	errs    map[string]error
	tables  *smbios.SMBIOS
	Queries []string
}

// New creates an empty Fake.
func New() *Fake {
	return &Fake{
		rows: make(map[string]any),
		errs: make(map[string]error),
	}
}

// Set registers rows (a slice of hwquery structs) for class.
func (f *Fake) Set(class string, rows any) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[class] = rows
	return f
}

// Fail makes every query against class return err.
func (f *Fake) Fail(class string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[class] = err
	return f
}

// SetSMBIOS registers the tables returned by SMBIOS.
func (f *Fake) SetSMBIOS(s *smbios.SMBIOS) *Fake {
	f.tables = s
	return f
}

// Query implements hwquery.Handle.
func (f *Fake) Query(query string, dst any) error {
	return f.QueryNamespace(hwquery.DefaultNamespace, query, dst)
}

// QueryNamespace implements hwquery.Handle.
func (f *Fake) QueryNamespace(_ string, query string, dst any) error {
	m := fromClause.FindStringSubmatch(query)
	if m == nil {
		return fmt.Errorf("no FROM clause in %q", query)
	}
	class := m[1]

	f.mu.Lock()
	defer f.mu.Unlock()
	f.Queries = append(f.Queries, query)

	if err, ok := f.errs[class]; ok {
		return err
	}
	rows, ok := f.rows[class]
	if !ok {
		return nil
	}

	out := reflect.ValueOf(dst)
	if out.Kind() != reflect.Pointer || out.Elem().Kind() != reflect.Slice {
		return errors.New("dst must be a pointer to a slice")
	}
	src := reflect.ValueOf(rows)
	if src.Type() != out.Elem().Type() {
		return fmt.Errorf("rows for %s are %s, query wants %s", class, src.Type(), out.Elem().Type())
	}
	out.Elem().Set(src)
	return nil
}

// Class implements hwquery.Handle.
func (f *Fake) Class(name string) ([]map[string]any, error) {
	return hwquery.QueryClass(f, name)
}

// SMBIOS implements hwquery.Handle.
func (f *Fake) SMBIOS() (*smbios.SMBIOS, error) {
	if f.tables == nil {
		return nil, errors.New("no smbios tables")
	}
	return f.tables, nil
}
