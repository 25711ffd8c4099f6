package plugin_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/go-tangra/go-tangra-assets/internal/plugin"
)

func TestUnitOf(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want []plugin.Capability
	}{
		{"scan", scanStub{"s"}, []plugin.Capability{plugin.CapabilityScan}},
		{"export", exportStub{"e"}, []plugin.Capability{plugin.CapabilityExport}},
		{"diagnostic", diagStub{"d"}, []plugin.Capability{plugin.CapabilityDiagnostic}},
		{"sync", syncStub{"y"}, []plugin.Capability{plugin.CapabilitySync}},
		{"all", everything{}, plugin.Priority},
		{"none", struct{}{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, plugin.UnitOf(tt.v).Capabilities())
		})
	}
}

func TestClassifyPrefersSync(t *testing.T) {
	c, p, ok := plugin.UnitOf(everything{}).Classify()
	assert.True(t, ok)
	assert.Equal(t, plugin.CapabilitySync, c)
	assert.Equal(t, "everything", p.Name())
}

func TestClassifyNone(t *testing.T) {
	_, _, ok := plugin.Unit{}.Classify()
	assert.False(t, ok)
}

// genUnit draws a unit carrying an arbitrary subset of the four contracts.
func genUnit(t *rapid.T) plugin.Unit {
	var u plugin.Unit
	if rapid.Bool().Draw(t, "sync") {
		u.Sync = syncStub{"sync"}
	}
	if rapid.Bool().Draw(t, "scan") {
		u.Scan = scanStub{"scan"}
	}
	if rapid.Bool().Draw(t, "export") {
		u.Export = exportStub{"export"}
	}
	if rapid.Bool().Draw(t, "diagnostic") {
		u.Diagnostic = diagStub{"diagnostic"}
	}
	return u
}

func TestClassifyFollowsPriority(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		u := genUnit(t)
		caps := u.Capabilities()
		c, p, ok := u.Classify()
		if len(caps) == 0 {
			assert.False(t, ok)
			return
		}
		assert.True(t, ok)
		assert.Equal(t, caps[0], c)
		assert.Equal(t, c.String(), p.Name())
	})
}

func TestCapabilityString(t *testing.T) {
	assert.Equal(t, "sync", plugin.CapabilitySync.String())
	assert.Equal(t, "diagnostic", plugin.CapabilityDiagnostic.String())
	assert.Equal(t, "capability(9)", plugin.Capability(9).String())
}
