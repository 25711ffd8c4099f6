//go:build !windows

package platform

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// SetupEventLog is a no-op on non-Windows platforms.
func SetupEventLog(_ string) bool { return false }

// InstallEventSource is not supported on non-Windows platforms.
func InstallEventSource(_ string) error {
	return errors.New("the event log is only available on Windows")
}

// RemoveEventSource is not supported on non-Windows platforms.
func RemoveEventSource(_ string) error {
	return errors.New("the event log is only available on Windows")
}

// IsElevated reports whether the process runs as root.
func IsElevated() bool {
	return os.Geteuid() == 0
}

// Open starts the desktop opener for path without waiting for it.
func Open(path string) error {
	opener := "xdg-open"
	if runtime.GOOS == "darwin" {
		opener = "open"
	}
	cmd := exec.Command(opener, path)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	go cmd.Wait() //nolint:errcheck
	return nil
}
