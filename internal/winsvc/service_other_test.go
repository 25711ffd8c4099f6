//go:build !windows

package winsvc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnsupportedOffWindows(t *testing.T) {
	assert.False(t, IsWindowsService())
	assert.ErrorIs(t, Agent.Install("assetkit", []string{"agent"}), ErrUnsupported)
	assert.ErrorIs(t, Agent.Uninstall(), ErrUnsupported)
	assert.ErrorIs(t, Agent.Run(func(context.Context) error { return nil }), ErrUnsupported)

	p, err := ExePath()
	assert.NoError(t, err)
	assert.NotEmpty(t, p)
}
