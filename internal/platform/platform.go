// Package platform wraps the host operating system facilities the asset
// tool needs: elevation checks, opening files with the desktop shell and
// mirroring the standard logger to the Windows Event Log.
package platform

// EventSource is the Windows Event Log source name.
const EventSource = "AssetKit"
