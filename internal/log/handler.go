// Package log provides slog handlers and installer output logs.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/sethvargo/go-githubactions"
)

// ActionsHandler is a slog.Handler that renders records as GitHub Actions
// workflow commands: debug records become ::debug::, warnings ::warning::
// and errors ::error::. Info records are printed as plain lines.
type ActionsHandler struct {
	mu     *sync.Mutex
	action *githubactions.Action
	level  slog.Leveler
	attrs  []slog.Attr // keys already qualified by the groups open when added
	group  string
}

var _ slog.Handler = (*ActionsHandler)(nil)

// NewActionsHandler creates a handler emitting commands through action.
func NewActionsHandler(action *githubactions.Action, level slog.Leveler) *ActionsHandler {
	return &ActionsHandler{
		mu:     &sync.Mutex{},
		action: action,
		level:  level,
	}
}

// Enabled reports whether the handler handles records at the given level.
// Debug records are always passed through because the runner hides them
// unless step debug logging is enabled.
func (h *ActionsHandler) Enabled(_ context.Context, level slog.Level) bool {
	if level == slog.LevelDebug {
		return true
	}
	return level >= h.level.Level()
}

// Handle formats the record as a single workflow command line.
func (h *ActionsHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Message)

	for _, a := range h.attrs {
		fmt.Fprintf(&b, " %s=%q", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%q", h.qualifiedKey(a.Key), a.Value)
		return true
	})

	h.mu.Lock()
	defer h.mu.Unlock()

	msg := b.String()
	switch {
	case r.Level >= slog.LevelError:
		h.action.Errorf("%s", msg)
	case r.Level >= slog.LevelWarn:
		h.action.Warningf("%s", msg)
	case r.Level >= slog.LevelInfo:
		h.action.Infof("%s", msg)
	default:
		h.action.Debugf("%s", msg)
	}
	return nil
}

// WithAttrs returns a new handler with the given attributes.
func (h *ActionsHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	for _, a := range attrs {
		newAttrs = append(newAttrs, slog.Attr{Key: h.qualifiedKey(a.Key), Value: a.Value})
	}
	return &ActionsHandler{
		mu:     h.mu,
		action: h.action,
		level:  h.level,
		attrs:  newAttrs,
		group:  h.group,
	}
}

// WithGroup returns a new handler with the given group name.
func (h *ActionsHandler) WithGroup(name string) slog.Handler {
	newGroup := name
	if h.group != "" {
		newGroup = h.group + "." + name
	}
	return &ActionsHandler{
		mu:     h.mu,
		action: h.action,
		level:  h.level,
		attrs:  h.attrs,
		group:  newGroup,
	}
}

func (h *ActionsHandler) qualifiedKey(key string) string {
	if h.group == "" {
		return key
	}
	return h.group + "." + key
}

// NewHandler returns the handler for the current environment: workflow
// commands on a GitHub Actions runner, text on stderr otherwise.
func NewHandler(w io.Writer, level slog.Level, actions bool) slog.Handler {
	if actions {
		return NewActionsHandler(githubactions.New(githubactions.WithWriter(w)), level)
	}
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
}

// InActions reports whether the process runs inside a GitHub Actions job.
func InActions() bool {
	return os.Getenv("GITHUB_ACTIONS") == "true"
}
