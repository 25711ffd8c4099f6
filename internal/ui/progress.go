// Package ui renders task events and results on the terminal.
package ui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/go-tangra/go-tangra-assets/internal/task"
)

// ErrAborted is returned by Watch when the user quit before the task ended.
var ErrAborted = errors.New("aborted by user")

const (
	defaultLogLines = 12
	barWidth        = 30
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

type eventMsg task.Event

type closedMsg struct{}

// waitForEvent reads the next event. A closed channel means the dispatch
// has completed.
func waitForEvent(events <-chan task.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return closedMsg{}
		}
		return eventMsg(ev)
	}
}

type progressModel struct {
	title    string
	events   <-chan task.Event
	lines    []string
	maxLines int
	percent  int
	errors   []string
	width    int
	finished bool
	aborted  bool
}

func newProgressModel(title string, events <-chan task.Event) progressModel {
	return progressModel{
		title:    title,
		events:   events,
		maxLines: defaultLogLines,
	}
}

func (m progressModel) Init() tea.Cmd {
	return waitForEvent(m.events)
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.aborted = true
			return m, tea.Quit
		}
		return m, nil

	case eventMsg:
		switch msg.Kind {
		case task.EventLog:
			m.lines = append(m.lines, msg.Line)
			if len(m.lines) > m.maxLines {
				m.lines = m.lines[len(m.lines)-m.maxLines:]
			}
		case task.EventProgress:
			m.percent = msg.Percent
		case task.EventError:
			m.errors = append(m.errors, fmt.Sprintf("%s: %s", msg.Title, msg.Message))
		}
		return m, waitForEvent(m.events)

	case closedMsg:
		m.finished = true
		return m, tea.Quit
	}
	return m, nil
}

func (m progressModel) View() string {
	parts := []string{titleStyle.Render(m.title), m.renderBar()}

	if len(m.lines) > 0 {
		lines := make([]string, len(m.lines))
		for i, l := range m.lines {
			lines[i] = truncate(l, m.width)
		}
		parts = append(parts, dimStyle.Render(strings.Join(lines, "\n")))
	}
	for _, e := range m.errors {
		parts = append(parts, errStyle.Render("✗ "+e))
	}

	switch {
	case m.finished:
		parts = append(parts, okStyle.Render("Done."))
	case m.aborted:
		parts = append(parts, warnStyle.Render("Aborted."))
	default:
		parts = append(parts, helpStyle.Render("q: quit"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...) + "\n"
}

func (m progressModel) renderBar() string {
	filled := max(0, min(m.percent, 100)) * barWidth / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	return fmt.Sprintf("%s %3d%%", okStyle.Render(bar), m.percent)
}

func truncate(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	if len(r) > width-1 {
		r = r[:width-1]
	}
	return string(r) + "…"
}

// Watch shows the events read from events until the channel is closed or
// the user quits. Events still in flight after an early quit are drained so
// the sender never blocks.
func Watch(title string, events <-chan task.Event, opts ...tea.ProgramOption) error {
	final, err := tea.NewProgram(newProgressModel(title, events), opts...).Run()
	go func() {
		for range events {
		}
	}()
	if err != nil {
		return fmt.Errorf("progress view failed: %w", err)
	}
	if m, ok := final.(progressModel); ok && m.aborted {
		return ErrAborted
	}
	return nil
}
