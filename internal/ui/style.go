package ui

import (
	"github.com/fatih/color"
)

// Style holds common output styling for CLI commands.
type Style struct {
	SuccessMark string
	FailMark    string
	WarnMark    string
	CacheMark   string
	Header      *color.Color
	Path        *color.Color
	Success     *color.Color
	Step        *color.Color
}

// NewStyle creates a new Style with standard colors.
func NewStyle() *Style {
	return &Style{
		SuccessMark: color.New(color.FgGreen).Sprint("✓"),
		FailMark:    color.New(color.FgRed).Sprint("✗"),
		WarnMark:    color.New(color.FgYellow).Sprint("⚠"),
		CacheMark:   color.New(color.FgCyan).Sprint("⟳"),
		Header:      color.New(color.FgCyan, color.Bold),
		Path:        color.New(color.FgCyan),
		Success:     color.New(color.FgGreen, color.Bold),
		Step:        color.New(color.FgYellow),
	}
}

// CacheIcon returns the mark shown next to the cache status.
func (s *Style) CacheIcon(hit bool) string {
	if hit {
		return s.CacheMark
	}
	return s.SuccessMark
}
