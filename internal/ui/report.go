package ui

import (
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/go-tangra/go-tangra-assets/internal/plugin"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// statusColors maps diagnostic statuses to terminal colors.
var statusColors = map[plugin.Status]lipgloss.Color{
	plugin.StatusNormal:  lipgloss.Color("46"),
	plugin.StatusInfo:    lipgloss.Color("39"),
	plugin.StatusWarning: lipgloss.Color("214"),
	plugin.StatusError:   lipgloss.Color("196"),
	plugin.StatusFailed:  lipgloss.Color("196"),
	plugin.StatusSkipped: lipgloss.Color("245"),
}

// StatusStyle returns the style a status label is rendered with.
func StatusStyle(s plugin.Status) lipgloss.Style {
	style := cellStyle
	if c, ok := statusColors[s]; ok {
		style = style.Foreground(c)
	}
	if s == plugin.StatusError || s == plugin.StatusFailed {
		style = style.Bold(true)
	}
	return style
}

// Table renders rows under headers with the package's border and header
// styles.
func Table(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Render()
}

// Records renders scan records as a table with the standard columns.
func Records(records []plugin.ScanRecord) string {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = r.Values()
	}
	return Table(plugin.Columns, rows)
}

// Diagnostics renders one table per plugin, in report order, with the
// status column colored.
func Diagnostics(report *plugin.DiagnosticReport) string {
	if report == nil || report.Len() == 0 {
		return dimStyle.Render("No diagnostic results.")
	}
	var sections []string
	for _, name := range report.Plugins() {
		results, _ := report.Get(name)
		rows := make([][]string, len(results))
		for i, r := range results {
			rows[i] = []string{r.Task, string(r.Status), r.Message}
		}
		t := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(borderStyle).
			Headers("Check", "Status", "Details").
			Rows(rows...).
			StyleFunc(func(row, col int) lipgloss.Style {
				switch {
				case row == table.HeaderRow:
					return headerStyle
				case col == 1 && row < len(results):
					return StatusStyle(results[row].Status)
				}
				return cellStyle
			})
		sections = append(sections, titleStyle.Render(name), t.Render())
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// Summary counts results per status across the whole report, for example
// "12 normal, 2 warning, 1 failed".
func Summary(report *plugin.DiagnosticReport) string {
	if report == nil {
		return ""
	}
	order := []plugin.Status{
		plugin.StatusNormal,
		plugin.StatusInfo,
		plugin.StatusWarning,
		plugin.StatusError,
		plugin.StatusFailed,
		plugin.StatusSkipped,
	}
	counts := make(map[plugin.Status]int)
	for _, name := range report.Plugins() {
		results, _ := report.Get(name)
		for _, r := range results {
			counts[r.Status]++
		}
	}
	var parts []string
	for _, s := range order {
		if n := counts[s]; n > 0 {
			parts = append(parts, strconv.Itoa(n)+" "+string(s))
			delete(counts, s)
		}
	}
	// Statuses outside the standard set, from file plugins.
	var extra []string
	for s, n := range counts {
		extra = append(extra, strconv.Itoa(n)+" "+string(s))
	}
	sort.Strings(extra)
	return strings.Join(append(parts, extra...), ", ")
}
