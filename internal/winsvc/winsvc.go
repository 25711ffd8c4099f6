// Package winsvc runs the inventory agent as a Windows service.
package winsvc

import (
	"errors"
	"os"
)

// ErrUnsupported is returned by service management off Windows.
var ErrUnsupported = errors.New("windows services are not supported on this platform")

// Service describes a service registration.
type Service struct {
	Name        string
	DisplayName string
	Description string
}

// Agent is the registration of the scheduled inventory agent.
var Agent = Service{
	Name:        "AssetKitAgent",
	DisplayName: "AssetKit Inventory Agent",
	Description: "Scans this machine on a schedule, keeps the scan history and syncs it to Snipe-IT.",
}

// ExePath returns the path of the running executable.
func ExePath() (string, error) {
	p, err := os.Executable()
	if err != nil {
		return "", errors.New("cannot determine executable path")
	}
	return p, nil
}
