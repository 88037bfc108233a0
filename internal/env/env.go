// Package env publishes the installed Qt bin directory to later steps.
package env

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sethvargo/go-githubactions"
)

// Exporter makes a directory available on PATH and publishes step outputs.
type Exporter interface {
	// AddPath prepends dir to PATH for the current process and later steps.
	AddPath(dir string) error

	// SetOutput publishes a named result of the run.
	SetOutput(name, value string) error
}

// PrependPath returns PATH with dir in front of current.
func PrependPath(dir, current string) string {
	if current == "" {
		return dir
	}
	return dir + string(os.PathListSeparator) + current
}

// ActionsExporter writes to the GitHub Actions environment files
// ($GITHUB_PATH, $GITHUB_ENV, $GITHUB_OUTPUT).
type ActionsExporter struct {
	action *githubactions.Action
	getenv func(string) string
	setenv func(string, string) error
}

var _ Exporter = (*ActionsExporter)(nil)

// NewActionsExporter creates an ActionsExporter. getenv and setenv access
// the current process environment and default to os.Getenv and os.Setenv.
func NewActionsExporter(action *githubactions.Action, getenv func(string) string, setenv func(string, string) error) *ActionsExporter {
	if getenv == nil {
		getenv = os.Getenv
	}
	if setenv == nil {
		setenv = os.Setenv
	}
	return &ActionsExporter{action: action, getenv: getenv, setenv: setenv}
}

// AddPath registers dir through $GITHUB_PATH and also exports the combined
// PATH through $GITHUB_ENV so steps that read PATH directly see it.
func (e *ActionsExporter) AddPath(dir string) error {
	e.action.AddPath(dir)

	newPath := PrependPath(dir, e.getenv("PATH"))
	e.action.SetEnv("PATH", newPath)
	if err := e.setenv("PATH", newPath); err != nil {
		return fmt.Errorf("failed to update PATH: %w", err)
	}

	slog.Info("added Qt to PATH", "path", dir)
	return nil
}

// SetOutput implements Exporter.
func (e *ActionsExporter) SetOutput(name, value string) error {
	e.action.SetOutput(name, value)
	return nil
}

// ShellExporter prints shell statements for local use, e.g.
// eval "$(setup-qt --username ... --password ...)".
type ShellExporter struct {
	w      io.Writer
	f      Formatter
	setenv func(string, string) error
}

var _ Exporter = (*ShellExporter)(nil)

// NewShellExporter creates a ShellExporter writing st syntax to w.
func NewShellExporter(w io.Writer, st ShellType) *ShellExporter {
	return &ShellExporter{w: w, f: NewFormatter(st), setenv: os.Setenv}
}

// AddPath implements Exporter.
func (e *ShellExporter) AddPath(dir string) error {
	if _, err := fmt.Fprintln(e.w, e.f.ExportPath([]string{dir})); err != nil {
		return err
	}
	if err := e.setenv("PATH", PrependPath(dir, os.Getenv("PATH"))); err != nil {
		return fmt.Errorf("failed to update PATH: %w", err)
	}
	return nil
}

// SetOutput implements Exporter. Outputs become SETUP_* variables:
// "qt-bin-path" is exported as SETUP_QT_BIN_PATH.
func (e *ShellExporter) SetOutput(name, value string) error {
	_, err := fmt.Fprintln(e.w, e.f.ExportVar(OutputVar(name), value))
	return err
}

// OutputVar converts an output name to an environment variable name.
func OutputVar(name string) string {
	b := []byte("SETUP_")
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
			b = append(b, c-'a'+'A')
		case c == '-':
			b = append(b, '_')
		default:
			b = append(b, c)
		}
	}
	return string(b)
}
