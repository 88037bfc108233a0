package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")) // gray
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))  // light cyan
	hitStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))   // green
	missStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))   // yellow
	summaryTitle = lipgloss.NewStyle().Bold(true)
)

// Summary is what the setup command reports after a run.
type Summary struct {
	Version      string
	Compiler     string
	Host         string
	QtRoot       string
	BinPath      string
	CacheKey     string
	CacheBackend string
	CacheHit     bool
	Duration     time.Duration
}

// RenderSummary renders s as an aligned label/value block.
func RenderSummary(s Summary) string {
	cache := missStyle.Render("miss")
	if s.CacheHit {
		cache = hitStyle.Render("hit")
	}
	if s.CacheBackend != "" {
		cache += labelStyle.Render(" (" + s.CacheBackend + ")")
	}

	rows := [][2]string{
		{"version", valueStyle.Render(s.Version)},
		{"compiler", valueStyle.Render(s.Compiler)},
		{"host", valueStyle.Render(s.Host)},
		{"qt-root", valueStyle.Render(s.QtRoot)},
		{"qt-bin-path", valueStyle.Render(s.BinPath)},
		{"cache-key", valueStyle.Render(s.CacheKey)},
		{"cache", cache},
	}
	if s.Duration > 0 {
		rows = append(rows, [2]string{"took", valueStyle.Render(s.Duration.Round(time.Millisecond).String())})
	}

	width := 0
	for _, r := range rows {
		width = max(width, len(r[0]))
	}

	var b strings.Builder
	b.WriteString(summaryTitle.Render("Qt is ready"))
	b.WriteByte('\n')
	for _, r := range rows {
		label := labelStyle.Render(fmt.Sprintf("%-*s", width, r[0]))
		fmt.Fprintf(&b, "  %s  %s\n", label, r[1])
	}
	return b.String()
}

// PrintSummary writes the rendered summary to w.
func PrintSummary(w io.Writer, s Summary) {
	fmt.Fprintln(w)
	fmt.Fprint(w, RenderSummary(s))
}
