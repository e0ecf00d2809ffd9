package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// styles holds the styles shared by every report
type styles struct {
	header lipgloss.Style
	accent lipgloss.Style
	dim    lipgloss.Style
}

func newStyles() styles {
	return styles{
		header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		accent: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		dim:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// table renders left-aligned columns padded to the widest cell
type table struct {
	headers []string
	rows    [][]string
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) render(w io.Writer, st styles) {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	line := func(cells []string) string {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			parts[i] = cell + strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	fmt.Fprintln(w, st.header.Render(line(t.headers)))
	for _, row := range t.rows {
		fmt.Fprintln(w, line(row))
	}
}

// bar draws count relative to peak in a fixed width
func bar(count, peak, width int, st styles) string {
	if peak == 0 {
		return ""
	}
	filled := count * width / peak
	if count > 0 && filled == 0 {
		filled = 1
	}
	return st.accent.Render(strings.Repeat("█", filled)) + st.dim.Render(strings.Repeat("░", width-filled))
}
