package logger

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

const colorReset = "\033[0m"

// ColorTextHandler wraps slog.TextHandler and prefixes each line with an
// ANSI-coloured level name. It is meant for interactive terminals.
//
// The prefix is written to w directly; passing it through the record would
// have TextHandler quote and escape the control bytes.
type ColorTextHandler struct {
	*slog.TextHandler
	w  io.Writer
	mu *sync.Mutex // shared by derived handlers so prefix and line stay together
}

// NewColorTextHandler creates a new ColorTextHandler. When showTime is false
// the time attribute is dropped, which keeps live FPS output compact.
func NewColorTextHandler(w io.Writer, opts *slog.HandlerOptions, showTime bool) *ColorTextHandler {
	o := slog.HandlerOptions{}
	if opts != nil {
		o = *opts
	}
	// the coloured prefix replaces the level attribute
	replace := o.ReplaceAttr
	o.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) == 0 && (a.Key == slog.LevelKey || (!showTime && a.Key == slog.TimeKey)) {
			return slog.Attr{}
		}
		if replace != nil {
			return replace(groups, a)
		}
		return a
	}
	return &ColorTextHandler{TextHandler: slog.NewTextHandler(w, &o), w: w, mu: &sync.Mutex{}}
}

// Handle implements slog.Handler
func (h *ColorTextHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, err := io.WriteString(h.w, levelColor(r.Level)+r.Level.String()+colorReset+" "); err != nil {
		return err
	}
	return h.TextHandler.Handle(ctx, r)
}

// WithAttrs keeps the colour wrapper on derived handlers.
func (h *ColorTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ColorTextHandler{TextHandler: h.TextHandler.WithAttrs(attrs).(*slog.TextHandler), w: h.w, mu: h.mu}
}

// WithGroup keeps the colour wrapper on derived handlers.
func (h *ColorTextHandler) WithGroup(name string) slog.Handler {
	return &ColorTextHandler{TextHandler: h.TextHandler.WithGroup(name).(*slog.TextHandler), w: h.w, mu: h.mu}
}

func levelColor(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "\033[31m" // Red
	case l >= slog.LevelWarn:
		return "\033[33m" // Yellow
	case l >= slog.LevelInfo:
		return "\033[32m" // Green
	default:
		return "\033[36m" // Cyan
	}
}
