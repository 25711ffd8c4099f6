package hwquery

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Win32Processor holds the Win32_Processor properties the scanners read.
type Win32Processor struct {
	Name                      string
	Manufacturer              string
	ProcessorId               string
	NumberOfCores             uint32
	NumberOfLogicalProcessors uint32
	MaxClockSpeed             uint32
	LoadPercentage            uint16
}

// Win32PhysicalMemory holds per-DIMM details.
type Win32PhysicalMemory struct {
	Capacity      uint64
	Speed         uint32
	Manufacturer  string
	PartNumber    string
	SerialNumber  string
	DeviceLocator string
}

// Win32DiskDrive holds physical disk details, including the SMART status.
type Win32DiskDrive struct {
	Caption      string
	Model        string
	Size         uint64
	SerialNumber string
	Status       string
}

// Win32VideoController holds display adapter details.
type Win32VideoController struct {
	Name       string
	AdapterRAM uint32
}

// Win32NetworkAdapterConfiguration holds IP-enabled adapter details.
type Win32NetworkAdapterConfiguration struct {
	Description string
	MACAddress  string
	IPAddress   []string
	IPEnabled   bool
}

// Win32OperatingSystem holds OS caption, serial, boot time and memory
// figures. Memory sizes are in KiB.
type Win32OperatingSystem struct {
	Caption                string
	Version                string
	SerialNumber           string
	LastBootUpTime         string
	TotalVisibleMemorySize uint64
	FreePhysicalMemory     uint64
}

// Win32BaseBoard holds motherboard details.
type Win32BaseBoard struct {
	Manufacturer string
	Product      string
	SerialNumber string
}

// Win32Keyboard holds keyboard details.
type Win32Keyboard struct {
	Name        string
	Description string
}

// Win32PointingDevice holds mouse and touchpad details.
type Win32PointingDevice struct {
	Name         string
	Description  string
	Manufacturer string
}

// SoftwareLicensingProduct holds Windows licensing state.
type SoftwareLicensingProduct struct {
	Description       string
	PartialProductKey string
	LicenseStatus     uint32
}

// WmiMonitorID lives in root\wmi. String properties are arrays of UTF-16
// code units, zero padded.
type WmiMonitorID struct {
	ManufacturerName  []uint16
	UserFriendlyName  []uint16
	SerialNumberID    []uint16
	YearOfManufacture uint16
	WeekOfManufacture uint8
}

// Win32Service holds service state.
type Win32Service struct {
	Name  string
	State string
}

// Win32Battery holds battery capacity figures.
type Win32Battery struct {
	DesignCapacity     uint32
	FullChargeCapacity uint32
}

// MSAcpiThermalZoneTemperature lives in root\wmi. CurrentTemperature is in
// tenths of a Kelvin.
type MSAcpiThermalZoneTemperature struct {
	CurrentTemperature uint32
}

// Win32IP4RouteTable holds IPv4 routes.
type Win32IP4RouteTable struct {
	Destination string
	Mask        string
	NextHop     string
}

// Win32NTLogEvent holds the properties needed to count events. Always
// filter by Logfile and TimeGenerated; the class is large.
type Win32NTLogEvent struct {
	RecordNumber uint32
}

// Win32Printer holds installed printers.
type Win32Printer struct {
	Name    string
	Default bool
}

// MonitorNamespace is the namespace of WmiMonitorID and thermal zones.
const MonitorNamespace = `root\wmi`

type classDef struct {
	namespace string
	newSlice  func() any
}

// classes lists the classes reachable through Handle.Class. Queries select
// exactly the struct fields so missing properties never fail a load.
var classes = map[string]classDef{
	"Win32_Processor":                   {DefaultNamespace, func() any { return &[]Win32Processor{} }},
	"Win32_PhysicalMemory":              {DefaultNamespace, func() any { return &[]Win32PhysicalMemory{} }},
	"Win32_DiskDrive":                   {DefaultNamespace, func() any { return &[]Win32DiskDrive{} }},
	"Win32_VideoController":             {DefaultNamespace, func() any { return &[]Win32VideoController{} }},
	"Win32_NetworkAdapterConfiguration": {DefaultNamespace, func() any { return &[]Win32NetworkAdapterConfiguration{} }},
	"Win32_OperatingSystem":             {DefaultNamespace, func() any { return &[]Win32OperatingSystem{} }},
	"Win32_BaseBoard":                   {DefaultNamespace, func() any { return &[]Win32BaseBoard{} }},
	"Win32_Keyboard":                    {DefaultNamespace, func() any { return &[]Win32Keyboard{} }},
	"Win32_PointingDevice":              {DefaultNamespace, func() any { return &[]Win32PointingDevice{} }},
	"SoftwareLicensingProduct":          {DefaultNamespace, func() any { return &[]SoftwareLicensingProduct{} }},
	"Win32_Service":                     {DefaultNamespace, func() any { return &[]Win32Service{} }},
	"Win32_Battery":                     {DefaultNamespace, func() any { return &[]Win32Battery{} }},
	"Win32_Printer":                     {DefaultNamespace, func() any { return &[]Win32Printer{} }},
	"WmiMonitorID":                      {MonitorNamespace, func() any { return &[]WmiMonitorID{} }},
	"MSAcpi_ThermalZoneTemperature":     {MonitorNamespace, func() any { return &[]MSAcpiThermalZoneTemperature{} }},
}

// Classes returns the names accepted by QueryClass, sorted.
func Classes() []string {
	names := make([]string, 0, len(classes))
	for name := range classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SelectQuery builds "SELECT a, b FROM class" from the exported fields of
// the struct element type of dst.
func SelectQuery(class string, dst any) string {
	t := reflect.TypeOf(dst)
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	fields := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if f := t.Field(i); f.IsExported() {
			fields = append(fields, f.Name)
		}
	}
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(fields, ", "), class)
}

// QueryClass loads every row of a well-known class through q and converts it
// to maps keyed by property name.
func QueryClass(q Handle, name string) ([]map[string]any, error) {
	def, ok := classes[name]
	if !ok {
		return nil, fmt.Errorf("unknown WMI class %q", name)
	}
	dst := def.newSlice()
	if err := q.QueryNamespace(def.namespace, SelectQuery(name, dst), dst); err != nil {
		return nil, fmt.Errorf("query %s: %w", name, err)
	}
	return rowsToMaps(dst), nil
}

func rowsToMaps(dst any) []map[string]any {
	v := reflect.ValueOf(dst).Elem()
	rows := make([]map[string]any, v.Len())
	for i := 0; i < v.Len(); i++ {
		item := v.Index(i)
		row := make(map[string]any, item.NumField())
		for j := 0; j < item.NumField(); j++ {
			f := item.Type().Field(j)
			if !f.IsExported() {
				continue
			}
			row[f.Name] = item.Field(j).Interface()
		}
		rows[i] = row
	}
	return rows
}

// DecodeUTF16 converts a zero padded WMI code unit array to a string.
func DecodeUTF16(units []uint16) string {
	var b strings.Builder
	for _, u := range units {
		if u == 0 {
			continue
		}
		b.WriteRune(rune(u))
	}
	return strings.TrimSpace(b.String())
}
