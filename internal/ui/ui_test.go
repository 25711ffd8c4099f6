package ui

import (
	"bytes"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-tangra/go-tangra-assets/internal/plugin"
	"github.com/go-tangra/go-tangra-assets/internal/task"
)

func update(t *testing.T, m progressModel, msg tea.Msg) (progressModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	pm, ok := next.(progressModel)
	require.True(t, ok)
	return pm, cmd
}

func TestProgressModelEvents(t *testing.T) {
	ch := make(chan task.Event, 1)
	m := newProgressModel("Scanning", ch)

	m, cmd := update(t, m, eventMsg{Kind: task.EventLog, Line: "CPU ok"})
	require.NotNil(t, cmd)
	m, _ = update(t, m, eventMsg{Kind: task.EventProgress, Percent: 40})
	m, _ = update(t, m, eventMsg{Kind: task.EventError, Title: "Disk", Message: "access denied"})

	assert.Equal(t, []string{"CPU ok"}, m.lines)
	assert.Equal(t, 40, m.percent)
	assert.Equal(t, []string{"Disk: access denied"}, m.errors)

	view := m.View()
	assert.Contains(t, view, "Scanning")
	assert.Contains(t, view, " 40%")
	assert.Contains(t, view, "CPU ok")
	assert.Contains(t, view, "Disk: access denied")
	assert.Contains(t, view, "q: quit")
}

func TestProgressModelNextEventCommand(t *testing.T) {
	ch := make(chan task.Event, 1)
	m := newProgressModel("Scanning", ch)

	ch <- task.Event{Kind: task.EventLog, Line: "hello"}
	assert.Equal(t, eventMsg{Kind: task.EventLog, Line: "hello"}, m.Init()())

	close(ch)
	assert.Equal(t, closedMsg{}, m.Init()())
}

func TestProgressModelKeepsLogTail(t *testing.T) {
	m := newProgressModel("Scanning", nil)
	m.maxLines = 3
	for _, line := range []string{"a", "b", "c", "d", "e"} {
		m, _ = update(t, m, eventMsg{Kind: task.EventLog, Line: line})
	}
	assert.Equal(t, []string{"c", "d", "e"}, m.lines)
}

func TestProgressModelFinishAndQuit(t *testing.T) {
	m := newProgressModel("Export", nil)

	done, cmd := update(t, m, closedMsg{})
	assert.True(t, done.finished)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Contains(t, done.View(), "Done.")

	quit, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, quit.aborted)
	require.NotNil(t, cmd)
	assert.Contains(t, quit.View(), "Aborted.")

	same, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	assert.Nil(t, cmd)
	assert.False(t, same.aborted)
}

func TestProgressModelBarBounds(t *testing.T) {
	m := newProgressModel("", nil)
	m.percent = 150
	assert.NotPanics(t, func() { _ = m.renderBar() })
	m.percent = -5
	assert.NotPanics(t, func() { _ = m.renderBar() })
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abcdef", truncate("abcdef", 0))
	assert.Equal(t, "abcdef", truncate("abcdef", 6))
	assert.Equal(t, "abc…", truncate("abcdef", 4))
}

func TestWatchRunsUntilChannelCloses(t *testing.T) {
	ch := make(chan task.Event, 3)
	ch <- task.Event{Kind: task.EventLog, Line: "step one"}
	ch <- task.Event{Kind: task.EventProgress, Percent: 100}
	close(ch)

	var in, out bytes.Buffer
	err := Watch("Diagnose", ch, tea.WithInput(&in), tea.WithOutput(&out))
	require.NoError(t, err)
	assert.NotZero(t, out.Len())
}

func TestWatchAbortedByUser(t *testing.T) {
	ch := make(chan task.Event)
	in := bytes.NewBufferString("q")
	var out bytes.Buffer

	err := Watch("Sync", ch, tea.WithInput(in), tea.WithOutput(&out))
	assert.ErrorIs(t, err, ErrAborted)

	// The drain goroutine keeps a late sender from blocking.
	ch <- task.Event{Kind: task.EventLog, Line: "late"}
	close(ch)
}

func TestRecordsTable(t *testing.T) {
	rec := plugin.NewRecord(plugin.CategoryCPU)
	rec.Brand = "Intel"
	rec.Model = "Core i7"

	out := Records([]plugin.ScanRecord{rec})
	for _, col := range plugin.Columns {
		assert.Contains(t, out, col)
	}
	assert.Contains(t, out, "Core i7")
	assert.Contains(t, out, plugin.Unknown)
}

func TestDiagnostics(t *testing.T) {
	assert.Contains(t, Diagnostics(nil), "No diagnostic results")

	report := plugin.NewDiagnosticReport()
	report.Set("System Health Check", []plugin.DiagnosticResult{
		{Task: "Disk space", Status: plugin.StatusNormal, Message: "C: 40% free"},
		{Task: "Battery", Status: plugin.StatusWarning, Message: "72% health"},
	})
	report.Set("Custom", []plugin.DiagnosticResult{
		{Task: "Probe", Status: plugin.Status("odd"), Message: "?"},
		{Task: "Other", Status: plugin.StatusFailed, Message: "boom"},
	})

	out := Diagnostics(report)
	assert.Contains(t, out, "System Health Check")
	assert.Contains(t, out, "Custom")
	assert.Contains(t, out, "72% health")
	assert.Less(t, bytes.Index([]byte(out), []byte("System Health Check")), bytes.Index([]byte(out), []byte("Custom")))

	assert.Equal(t, "1 normal, 1 warning, 1 failed, 1 odd", Summary(report))
	assert.Empty(t, Summary(nil))
}

func TestStatusStyle(t *testing.T) {
	assert.True(t, StatusStyle(plugin.StatusFailed).GetBold())
	assert.False(t, StatusStyle(plugin.StatusNormal).GetBold())
	assert.Contains(t, StatusStyle(plugin.Status("odd")).Render("odd"), "odd")
}
