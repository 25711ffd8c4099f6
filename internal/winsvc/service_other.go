//go:build !windows

package winsvc

import "context"

// IsWindowsService is always false off Windows.
func IsWindowsService() bool { return false }

// Run is not supported off Windows.
func (s Service) Run(_ func(ctx context.Context) error) error { return ErrUnsupported }

// Install is not supported off Windows.
func (s Service) Install(_ string, _ []string) error { return ErrUnsupported }

// Uninstall is not supported off Windows.
func (s Service) Uninstall() error { return ErrUnsupported }
