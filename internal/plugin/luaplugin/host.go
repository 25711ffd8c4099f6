package luaplugin

import (
	"reflect"

	lua "github.com/yuin/gopher-lua"

	"github.com/go-tangra/go-tangra-assets/internal/hwquery"
	"github.com/go-tangra/go-tangra-assets/internal/plugin"
)

// hostTable builds the host argument of scan functions.
func hostTable(L *lua.LState, q hwquery.Handle) *lua.LTable {
	host := L.NewTable()
	L.SetField(host, "class", L.NewFunction(func(L *lua.LState) int {
		rows, err := q.Class(L.CheckString(1))
		if err != nil {
			L.RaiseError("%v", err)
			return 0
		}
		tbl := L.NewTable()
		for _, row := range rows {
			tbl.Append(toLua(L, row))
		}
		L.Push(tbl)
		return 1
	}))
	L.SetField(host, "smbios", L.NewFunction(func(L *lua.LState) int {
		s, err := q.SMBIOS()
		if err != nil {
			L.RaiseError("%v", err)
			return 0
		}
		tbl := L.NewTable()
		L.SetField(tbl, "system", toLua(L, map[string]any{
			"manufacturer":  s.SystemInformation.Manufacturer,
			"product_name":  s.SystemInformation.ProductName,
			"serial_number": s.SystemInformation.SerialNumber,
			"uuid":          s.SystemInformation.UUID,
		}))
		L.SetField(tbl, "baseboard", toLua(L, map[string]any{
			"manufacturer":  s.BaseboardInformation.Manufacturer,
			"product":       s.BaseboardInformation.Product,
			"serial_number": s.BaseboardInformation.SerialNumber,
		}))
		L.SetField(tbl, "bios", toLua(L, map[string]any{
			"vendor":       s.BIOSInformation.Vendor,
			"version":      s.BIOSInformation.Version,
			"release_date": s.BIOSInformation.ReleaseDate,
		}))
		L.Push(tbl)
		return 1
	}))
	return host
}

// taskTable builds the task argument of sync functions.
func taskTable(L *lua.LState, tc plugin.TaskContext) *lua.LTable {
	task := L.NewTable()
	L.SetField(task, "log", L.NewFunction(func(L *lua.LState) int {
		tc.Log(L.CheckString(1))
		return 0
	}))
	L.SetField(task, "progress", L.NewFunction(func(L *lua.LState) int {
		tc.Progress(L.CheckInt(1))
		return 0
	}))
	L.SetField(task, "error", L.NewFunction(func(L *lua.LState) int {
		tc.Error(L.CheckString(1), L.OptString(2, ""))
		return 0
	}))
	return task
}

func recordsTable(L *lua.LState, records []plugin.ScanRecord) *lua.LTable {
	tbl := L.NewTable()
	for _, r := range records {
		row := L.NewTable()
		row.RawSetString("category", lua.LString(r.Category))
		row.RawSetString("brand", lua.LString(r.Brand))
		row.RawSetString("model", lua.LString(r.Model))
		row.RawSetString("size", lua.LString(r.Size))
		row.RawSetString("serial_number", lua.LString(r.SerialNumber))
		row.RawSetString("manufacture_date", lua.LString(r.ManufactureDate))
		row.RawSetString("warranty_link", lua.LString(r.WarrantyLink))
		tbl.Append(row)
	}
	return tbl
}

func stringMapTable(L *lua.LState, m map[string]string) *lua.LTable {
	tbl := L.NewTable()
	for k, v := range m {
		tbl.RawSetString(k, lua.LString(v))
	}
	return tbl
}

// toLua converts WMI row values. UTF-16 code unit arrays become strings.
func toLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case string:
		return lua.LString(val)
	case bool:
		return lua.LBool(val)
	case []uint16:
		return lua.LString(hwquery.DecodeUTF16(val))
	case map[string]any:
		tbl := L.NewTable()
		for k, item := range val {
			tbl.RawSetString(k, toLua(L, item))
		}
		return tbl
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return lua.LNumber(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return lua.LNumber(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return lua.LNumber(rv.Float())
	case reflect.Slice, reflect.Array:
		tbl := L.NewTable()
		for i := 0; i < rv.Len(); i++ {
			tbl.Append(toLua(L, rv.Index(i).Interface()))
		}
		return tbl
	default:
		return lua.LString(rv.String())
	}
}
