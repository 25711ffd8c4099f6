package wasmplugin

import (
	"context"
	"encoding/json"
	"fmt"

	extism "github.com/extism/go-sdk"
	"github.com/tidwall/sjson"

	"github.com/go-tangra/go-tangra-assets/internal/hwquery"
	"github.com/go-tangra/go-tangra-assets/internal/plugin"
)

// HostNamespace is the import module of the host functions.
const HostNamespace = "extism:host/user"

// session binds host functions to the call in progress.
type session struct {
	handle hwquery.Handle
	log    plugin.LogFunc
	task   plugin.TaskContext
}

func (s *session) Log(line string) {
	switch {
	case s.task != nil:
		s.task.Log(line)
	case s.log != nil:
		s.log(line)
	}
}

func (s *session) Progress(percent int) {
	if s.task != nil {
		s.task.Progress(percent)
	}
}

func (s *session) Error(title, message string) {
	if s.task != nil {
		s.task.Error(title, message)
		return
	}
	s.Log(title + ": " + message)
}

func (m *module) hostFunctions() []extism.HostFunction {
	fns := []extism.HostFunction{
		m.newClassFunction(),
		m.newSMBIOSFunction(),
		m.newTaskLogFunction(),
		m.newTaskProgressFunction(),
		m.newTaskErrorFunction(),
	}
	for i := range fns {
		fns[i].SetNamespace(HostNamespace)
	}
	return fns
}

// writeJSON stores out in plugin memory and returns its offset in stack[0].
func writeJSON(p *extism.CurrentPlugin, stack []uint64, out []byte) {
	off, err := p.WriteBytes(out)
	if err != nil {
		p.Log(extism.LogLevelError, fmt.Sprintf("failed to write result to plugin memory: %v", err))
		stack[0] = 0
		return
	}
	stack[0] = off
}

func errorJSON(err error) []byte {
	out, _ := sjson.SetBytes([]byte(`{}`), "error", err.Error())
	return out
}

// hw_class: (name_offset i64) -> json_offset i64
func (m *module) newClassFunction() extism.HostFunction {
	return extism.NewHostFunctionWithStack(
		"hw_class",
		func(ctx context.Context, p *extism.CurrentPlugin, stack []uint64) {
			name, err := p.ReadString(stack[0])
			if err != nil {
				writeJSON(p, stack, errorJSON(err))
				return
			}
			s := m.current()
			if s.handle == nil {
				writeJSON(p, stack, errorJSON(fmt.Errorf("hw_class: no hardware handle outside scan")))
				return
			}
			rows, err := s.handle.Class(name)
			if err != nil {
				writeJSON(p, stack, errorJSON(err))
				return
			}
			writeJSON(p, stack, rowsJSON(rows))
		},
		[]extism.ValueType{extism.ValueTypeI64},
		[]extism.ValueType{extism.ValueTypeI64},
	)
}

// hw_smbios: () -> json_offset i64
func (m *module) newSMBIOSFunction() extism.HostFunction {
	return extism.NewHostFunctionWithStack(
		"hw_smbios",
		func(ctx context.Context, p *extism.CurrentPlugin, stack []uint64) {
			s := m.current()
			if s.handle == nil {
				writeJSON(p, stack, errorJSON(fmt.Errorf("hw_smbios: no hardware handle outside scan")))
				return
			}
			tables, err := s.handle.SMBIOS()
			if err != nil {
				writeJSON(p, stack, errorJSON(err))
				return
			}
			out := []byte(`{}`)
			out, _ = sjson.SetBytes(out, "system.manufacturer", tables.SystemInformation.Manufacturer)
			out, _ = sjson.SetBytes(out, "system.product_name", tables.SystemInformation.ProductName)
			out, _ = sjson.SetBytes(out, "system.serial_number", tables.SystemInformation.SerialNumber)
			out, _ = sjson.SetBytes(out, "baseboard.manufacturer", tables.BaseboardInformation.Manufacturer)
			out, _ = sjson.SetBytes(out, "baseboard.product", tables.BaseboardInformation.Product)
			out, _ = sjson.SetBytes(out, "baseboard.serial_number", tables.BaseboardInformation.SerialNumber)
			out, _ = sjson.SetBytes(out, "bios.vendor", tables.BIOSInformation.Vendor)
			out, _ = sjson.SetBytes(out, "bios.version", tables.BIOSInformation.Version)
			writeJSON(p, stack, out)
		},
		[]extism.ValueType{},
		[]extism.ValueType{extism.ValueTypeI64},
	)
}

// task_log: (line_offset i64) -> void
func (m *module) newTaskLogFunction() extism.HostFunction {
	return extism.NewHostFunctionWithStack(
		"task_log",
		func(ctx context.Context, p *extism.CurrentPlugin, stack []uint64) {
			line, err := p.ReadString(stack[0])
			if err != nil {
				p.Log(extism.LogLevelError, fmt.Sprintf("task_log: failed to read line: %v", err))
				return
			}
			m.current().Log(line)
		},
		[]extism.ValueType{extism.ValueTypeI64},
		[]extism.ValueType{},
	)
}

// task_progress: (percent i32) -> void
func (m *module) newTaskProgressFunction() extism.HostFunction {
	return extism.NewHostFunctionWithStack(
		"task_progress",
		func(ctx context.Context, p *extism.CurrentPlugin, stack []uint64) {
			m.current().Progress(int(int32(stack[0])))
		},
		[]extism.ValueType{extism.ValueTypeI32},
		[]extism.ValueType{},
	)
}

// task_error: (title_offset i64, message_offset i64) -> void
func (m *module) newTaskErrorFunction() extism.HostFunction {
	return extism.NewHostFunctionWithStack(
		"task_error",
		func(ctx context.Context, p *extism.CurrentPlugin, stack []uint64) {
			title, err := p.ReadString(stack[0])
			if err != nil {
				p.Log(extism.LogLevelError, fmt.Sprintf("task_error: failed to read title: %v", err))
				return
			}
			message, err := p.ReadString(stack[1])
			if err != nil {
				p.Log(extism.LogLevelError, fmt.Sprintf("task_error: failed to read message: %v", err))
				return
			}
			m.current().Error(title, message)
		},
		[]extism.ValueType{extism.ValueTypeI64, extism.ValueTypeI64},
		[]extism.ValueType{},
	)
}

// rowsJSON encodes WMI rows, turning UTF-16 code unit arrays into strings.
func rowsJSON(rows []map[string]any) []byte {
	for _, row := range rows {
		for k, v := range row {
			if units, ok := v.([]uint16); ok {
				row[k] = hwquery.DecodeUTF16(units)
			}
		}
	}
	out, err := json.Marshal(rows)
	if err != nil {
		return errorJSON(err)
	}
	return out
}
