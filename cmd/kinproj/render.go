package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45")).
			Width(16)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	failureStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	containerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
)

type row struct {
	label, value string
}

// report is what solve and refine print.
type report interface {
	title() string
	ok() bool
	rows() []row
}

// render writes r as indented JSON or as a styled text block.
func render(w io.Writer, format string, r report) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	_, err := fmt.Fprintln(w, renderText(r))
	return err
}

func renderText(r report) string {
	status := successStyle.Render("✓ success")
	if !r.ok() {
		status = failureStyle.Render("✗ failed")
	}
	lines := []string{titleStyle.Render(r.title()) + " " + status}
	for _, rw := range r.rows() {
		lines = append(lines, labelStyle.Render(rw.label)+valueStyle.Render(rw.value))
	}
	return containerStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func formatVector(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("%.4f", x)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
