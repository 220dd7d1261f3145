package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/objgraph/pkg/pipeline"
)

// uiOut receives status output so that stdout stays free for graph data.
var uiOut io.Writer = os.Stderr

var (
	colorAccent = lipgloss.Color("36")
	colorOK     = lipgloss.Color("35")
	colorWarn   = lipgloss.Color("220")
	colorErr    = lipgloss.Color("167")
	colorLink   = lipgloss.Color("75")
	colorText   = lipgloss.Color("255")
	colorMuted  = lipgloss.Color("245")
	colorFaint  = lipgloss.Color("240")
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	styleAccent  = lipgloss.NewStyle().Foreground(colorAccent)
	styleOK      = lipgloss.NewStyle().Foreground(colorOK)
	styleWarn    = lipgloss.NewStyle().Foreground(colorWarn)
	styleErr     = lipgloss.NewStyle().Foreground(colorErr)
	styleText    = lipgloss.NewStyle().Foreground(colorText)
	styleMuted   = lipgloss.NewStyle().Foreground(colorMuted)
	styleFaint   = lipgloss.NewStyle().Foreground(colorFaint)
	styleCommand = lipgloss.NewStyle().Foreground(colorLink)
	styleKey     = lipgloss.NewStyle().Foreground(colorMuted).Width(12)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// statusLine writes one status message prefixed by a styled icon.
func statusLine(icon lipgloss.Style, glyph, format string, args ...any) {
	fmt.Fprintln(uiOut, icon.Render(glyph)+" "+fmt.Sprintf(format, args...))
}

func printSuccess(format string, args ...any) { statusLine(styleOK, iconSuccess, format, args...) }
func printError(format string, args ...any)   { statusLine(styleErr, iconError, format, args...) }
func printInfo(format string, args ...any)    { statusLine(styleMuted, iconInfo, format, args...) }

func printWarning(format string, args ...any) {
	fmt.Fprintln(uiOut, styleWarn.Render(iconWarning+" "+fmt.Sprintf(format, args...)))
}

// printDetail prints an indented, muted line under a status message.
func printDetail(format string, args ...any) {
	fmt.Fprintln(uiOut, "  "+styleFaint.Render(fmt.Sprintf(format, args...)))
}

func printFile(path string) {
	fmt.Fprintln(uiOut, "  "+styleFaint.Render(iconArrow)+" "+styleText.Render(path))
}

func printKeyValue(key, value string) {
	fmt.Fprintln(uiOut, styleKey.Render(key)+" "+styleText.Render(value))
}

func printNextStep(description, cmd string) {
	fmt.Fprintln(uiOut, styleFaint.Render(description+":")+" "+styleCommand.Render(cmd))
}

func printNewline() { fmt.Fprintln(uiOut) }

// statsSummary renders graph counts as "3 nodes · 2 edges · 0 cycles"
// followed by any extra parts.
func statsSummary(st pipeline.Stats, extra ...string) string {
	parts := []string{
		fmt.Sprintf("%d nodes", st.NodeCount),
		fmt.Sprintf("%d edges", st.EdgeCount),
		fmt.Sprintf("%d cycles", st.Cycles),
	}
	if st.Truncated {
		parts = append(parts, "truncated")
	}
	return strings.Join(append(parts, extra...), " · ")
}

// printStats prints the summary of an eval run, marking whether the
// rendered artifacts came from the cache.
func printStats(st pipeline.Stats, cached bool) {
	origin := styleMuted.Render("fresh")
	if cached {
		origin = styleOK.Render("cached")
	}
	fmt.Fprintln(uiOut, "  "+styleFaint.Render(statsSummary(st))+styleFaint.Render(" · ")+origin)
}

// renderTable lays out rows under a muted header with the first column
// highlighted.
func renderTable(headers []string, rows [][]string) string {
	head := lipgloss.NewStyle().Foreground(colorMuted).Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleFaint).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return head
			case col == 0:
				return cell.Foreground(colorAccent)
			}
			return cell
		}).
		Render()
}

// formatRelativeTime renders recent times as "5m ago" and older ones as a
// date.
func formatRelativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
	return t.Format("Jan 2, 2006")
}
