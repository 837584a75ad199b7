// Package util provides low-level helpers shared by all other packages.
package util

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// LevelVerbose sits between Info and Debug and backs -vv.
const LevelVerbose = slog.Level(-2)

// VerbosityLevel maps a -v count to the minimum slog level printed
// (0 = errors only, 1 = normal, 2 = verbose, 3 = debug).
func VerbosityLevel(verbosity int) slog.Level {
	switch {
	case verbosity <= 0:
		return slog.LevelError
	case verbosity == 1:
		return slog.LevelInfo
	case verbosity == 2:
		return LevelVerbose
	default:
		return slog.LevelDebug
	}
}

// NewLogger returns a logger writing to stderr at the given verbosity.
// Timestamps are enabled automatically in debug mode.
func NewLogger(verbosity int) *slog.Logger {
	h := NewLineHandler(os.Stderr, VerbosityLevel(verbosity))
	h.SetTimestamps(verbosity >= 3)
	return slog.New(h)
}

// LineHandler is a slog.Handler that prints one "[LVL] msg k=v" line
// per record.
type LineHandler struct {
	mu         *sync.Mutex
	out        io.Writer
	level      slog.Leveler
	timestamps bool
	attrs      []slog.Attr
	group      string
}

// NewLineHandler returns a handler writing records at or above level to w.
func NewLineHandler(w io.Writer, level slog.Leveler) *LineHandler {
	return &LineHandler{mu: &sync.Mutex{}, out: w, level: level}
}

// SetTimestamps enables or disables timestamp prefixes.
func (h *LineHandler) SetTimestamps(on bool) { h.timestamps = on }

// Enabled implements slog.Handler.
func (h *LineHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *LineHandler) Handle(_ context.Context, r slog.Record) error {
	b := lineBufs.Get()
	defer lineBufs.Put(b)

	if h.timestamps {
		t := r.Time
		if t.IsZero() {
			t = time.Now()
		}
		b.WriteString(t.Format("15:04:05.000"))
		b.WriteByte(' ')
	}
	fmt.Fprintf(b, "[%s] %s", levelTag(r.Level), r.Message)
	for _, a := range h.attrs {
		writeAttr(b, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(b, h.group, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(b.Bytes())
	return err
}

// WithAttrs implements slog.Handler.
func (h *LineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	h2.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	h2.attrs = append(h2.attrs, h.attrs...)
	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		h2.attrs = append(h2.attrs, a)
	}
	return &h2
}

// WithGroup implements slog.Handler.
func (h *LineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	if h2.group != "" {
		h2.group += "." + name
	} else {
		h2.group = name
	}
	return &h2
}

func levelTag(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "ERR"
	case l >= slog.LevelWarn:
		return "WRN"
	case l >= slog.LevelInfo:
		return "INF"
	case l >= LevelVerbose:
		return "VRB"
	default:
		return "DBG"
	}
}

func writeAttr(b *bytes.Buffer, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if group != "" {
		key = group + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			writeAttr(b, key, ga)
		}
		return
	}
	b.WriteByte(' ')
	b.WriteString(key)
	b.WriteByte('=')
	v := a.Value.String()
	if v == "" || strings.ContainsAny(v, " =\"\t\n") {
		v = strconv.Quote(v)
	}
	b.WriteString(v)
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(NewLineHandler(io.Discard, slog.LevelError+1))
}
