// Package luaplugin loads asset plugins written in Lua.
//
// A plugin file runs once in its own interpreter and returns either one
// plugin definition or a list of them. A definition is a table, or a
// function returning a table, with these fields:
//
//	name            string, required
//	icon            string
//	extension       string, for exporters (".csv")
//	filter          string, for exporters ("CSV (*.csv)")
//	scan            function(host) -> records
//	export          function(records, path, header[, log[, printer]]) -> result
//	run_diagnostic  function() -> results
//	sync            function(task, records, config)
//
// Records are tables keyed category, brand, model, size, serial_number,
// manufacture_date and warranty_link. Diagnostic results are tables keyed
// task, status and message.
//
// The host table given to scan offers host.class(name), returning the rows
// of a WMI class as tables, and host.smbios(), returning the firmware
// system, baseboard and bios tables.
//
// An export function returning nothing or true wrote path. Returning a
// table {action=..., path=...} asks the host for a follow-up; returning
// false or nil followed by a message reports a failure.
//
// Files are registered for the ".lua" extension when this package is
// imported.
package luaplugin
