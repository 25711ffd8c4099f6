package plugin

import "fmt"

// Capability identifies one of the four contracts.
type Capability int

const (
	CapabilitySync Capability = iota
	CapabilityScan
	CapabilityExport
	CapabilityDiagnostic
)

// Priority is the fixed order contracts are tested in when a plugin type
// satisfies more than one of them.
var Priority = []Capability{
	CapabilitySync,
	CapabilityScan,
	CapabilityExport,
	CapabilityDiagnostic,
}

func (c Capability) String() string {
	switch c {
	case CapabilitySync:
		return "sync"
	case CapabilityScan:
		return "scan"
	case CapabilityExport:
		return "export"
	case CapabilityDiagnostic:
		return "diagnostic"
	default:
		return fmt.Sprintf("capability(%d)", int(c))
	}
}

// Unit is the tagged value a loadable unit yields for one plugin type. Any
// subset of the payloads may be set; the registry keeps exactly one of them.
type Unit struct {
	// Source is the file the type came from, or "builtin".
	Source string
	// Type names the plugin type within Source.
	Type string

	Sync       SyncPlugin
	Scan       ScanPlugin
	Export     ExportPlugin
	Diagnostic DiagnosticPlugin
}

// UnitOf builds a Unit from a Go value by testing it against each contract.
func UnitOf(v any) Unit {
	var u Unit
	if p, ok := v.(SyncPlugin); ok {
		u.Sync = p
	}
	if p, ok := v.(ScanPlugin); ok {
		u.Scan = p
	}
	if p, ok := v.(ExportPlugin); ok {
		u.Export = p
	}
	if p, ok := v.(DiagnosticPlugin); ok {
		u.Diagnostic = p
	}
	u.Type = fmt.Sprintf("%T", v)
	return u
}

// Capabilities lists every contract the unit carries, in priority order.
func (u Unit) Capabilities() []Capability {
	var caps []Capability
	for _, c := range Priority {
		if u.payload(c) != nil {
			caps = append(caps, c)
		}
	}
	return caps
}

// Classify returns the first capability in Priority order the unit carries,
// and the matching plugin. ok is false for units matching no contract.
func (u Unit) Classify() (c Capability, p Plugin, ok bool) {
	for _, c := range Priority {
		if p := u.payload(c); p != nil {
			return c, p, true
		}
	}
	return 0, nil, false
}

func (u Unit) payload(c Capability) Plugin {
	switch c {
	case CapabilitySync:
		if u.Sync != nil {
			return u.Sync
		}
	case CapabilityScan:
		if u.Scan != nil {
			return u.Scan
		}
	case CapabilityExport:
		if u.Export != nil {
			return u.Export
		}
	case CapabilityDiagnostic:
		if u.Diagnostic != nil {
			return u.Diagnostic
		}
	}
	return nil
}
