//go:build windows

package platform

import (
	"fmt"
	"log"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc/eventlog"
)

// eventLogWriter wraps an eventlog.Log so standard log.Printf calls
// are written to the Windows Event Log as informational messages.
type eventLogWriter struct {
	elog *eventlog.Log
}

func (w *eventLogWriter) Write(p []byte) (int, error) {
	if err := w.elog.Info(1, string(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// SetupEventLog opens the event log source and redirects the standard
// logger output to it. Event log entries carry their own timestamps, so log
// flags are cleared. It reports whether the redirect took effect.
func SetupEventLog(source string) bool {
	elog, err := eventlog.Open(source)
	if err != nil {
		return false
	}
	log.SetOutput(&eventLogWriter{elog: elog})
	log.SetFlags(0)
	return true
}

// InstallEventSource registers source with the Event Log. Requires an
// elevated process.
func InstallEventSource(source string) error {
	if err := eventlog.InstallAsEventCreate(source, eventlog.Error|eventlog.Warning|eventlog.Info); err != nil {
		return fmt.Errorf("install event source %s: %w", source, err)
	}
	return nil
}

// RemoveEventSource removes source from the Event Log.
func RemoveEventSource(source string) error {
	if err := eventlog.Remove(source); err != nil {
		return fmt.Errorf("remove event source %s: %w", source, err)
	}
	return nil
}

// IsElevated reports whether the process token is elevated.
func IsElevated() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}

// Open hands path to the shell's default verb, as double-clicking it in
// Explorer would.
func Open(path string) error {
	verb, err := windows.UTF16PtrFromString("open")
	if err != nil {
		return err
	}
	file, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return err
	}
	if err := windows.ShellExecute(0, verb, file, nil, nil, windows.SW_SHOWNORMAL); err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	return nil
}
