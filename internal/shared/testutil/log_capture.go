package testutil

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"
)

// LogRecord is one captured log call with its attributes flattened. Keys
// inside groups are joined with dots ("request.id").
type LogRecord struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// Attr returns the attribute stored under key
func (r LogRecord) Attr(key string) (any, bool) {
	v, ok := r.Attrs[key]
	return v, ok
}

type captured struct {
	mu      sync.Mutex
	records []LogRecord
}

// BufferedSlogHandler keeps every record it handles in memory. Handlers
// derived with WithAttrs or WithGroup share the parent's buffer.
type BufferedSlogHandler struct {
	store  *captured
	prefix string
	bound  map[string]any
	t      testing.TB
}

// NewBufferedSlogHandler creates a handler that also echoes records to t.Logf
// when t is non-nil
func NewBufferedSlogHandler(t testing.TB) *BufferedSlogHandler {
	return &BufferedSlogHandler{store: &captured{}, bound: map[string]any{}, t: t}
}

// NewTestLogger returns a logger writing into a fresh BufferedSlogHandler
func NewTestLogger(t testing.TB) (*slog.Logger, *BufferedSlogHandler) {
	h := NewBufferedSlogHandler(t)
	return slog.New(h), h
}

func (h *BufferedSlogHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *BufferedSlogHandler) Handle(_ context.Context, r slog.Record) error {
	rec := LogRecord{Time: r.Time, Level: r.Level, Message: r.Message, Attrs: make(map[string]any, len(h.bound)+r.NumAttrs())}
	for k, v := range h.bound {
		rec.Attrs[k] = v
	}
	r.Attrs(func(a slog.Attr) bool {
		flatten(rec.Attrs, h.prefix, a)
		return true
	})

	h.store.mu.Lock()
	h.store.records = append(h.store.records, rec)
	h.store.mu.Unlock()

	if h.t != nil {
		h.t.Logf("%s %s %v", r.Level, r.Message, rec.Attrs)
	}
	return nil
}

func (h *BufferedSlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	child := h.derive(h.prefix)
	for _, a := range attrs {
		flatten(child.bound, h.prefix, a)
	}
	return child
}

func (h *BufferedSlogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.derive(h.prefix + name + ".")
}

func (h *BufferedSlogHandler) derive(prefix string) *BufferedSlogHandler {
	bound := make(map[string]any, len(h.bound))
	for k, v := range h.bound {
		bound[k] = v
	}
	return &BufferedSlogHandler{store: h.store, prefix: prefix, bound: bound, t: h.t}
}

func flatten(dst map[string]any, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, ga := range v.Group() {
			flatten(dst, p, ga)
		}
		return
	}
	dst[prefix+a.Key] = v.Any()
}

// Filter returns the captured records matching keep, oldest first
func (h *BufferedSlogHandler) Filter(keep func(LogRecord) bool) []LogRecord {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	var out []LogRecord
	for _, r := range h.store.records {
		if keep == nil || keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// GetRecords returns a copy of everything captured so far
func (h *BufferedSlogHandler) GetRecords() []LogRecord {
	return h.Filter(nil)
}

func (h *BufferedSlogHandler) GetRecordsByLevel(level slog.Level) []LogRecord {
	return h.Filter(func(r LogRecord) bool { return r.Level == level })
}

// ContainsMessage reports whether any message contains substr
func (h *BufferedSlogHandler) ContainsMessage(substr string) bool {
	return len(h.Filter(func(r LogRecord) bool { return strings.Contains(r.Message, substr) })) > 0
}

// ContainsAttr reports whether any record carries key with exactly value.
// Integers are captured as int64.
func (h *BufferedSlogHandler) ContainsAttr(key string, value any) bool {
	return len(h.Filter(func(r LogRecord) bool {
		v, ok := r.Attr(key)
		return ok && v == value
	})) > 0
}

func (h *BufferedSlogHandler) Count() int {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return len(h.store.records)
}

func (h *BufferedSlogHandler) Clear() {
	h.store.mu.Lock()
	h.store.records = nil
	h.store.mu.Unlock()
}

func messages(records []LogRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Message
	}
	return out
}

// AssertLogContains fails t unless a record at level contains message
func AssertLogContains(t testing.TB, h *BufferedSlogHandler, level slog.Level, message string) {
	t.Helper()
	records := h.GetRecordsByLevel(level)
	if slices.ContainsFunc(records, func(r LogRecord) bool { return strings.Contains(r.Message, message) }) {
		return
	}
	t.Errorf("no %s log containing %q; have %q", level, message, messages(records))
}

// AssertLogAttr fails t unless some record carries key=value
func AssertLogAttr(t testing.TB, h *BufferedSlogHandler, key string, value any) {
	t.Helper()
	if h.ContainsAttr(key, value) {
		return
	}
	t.Errorf("no log with %s=%v (%T)", key, value, value)
	for _, r := range h.GetRecords() {
		t.Logf("  %s %v", r.Message, r.Attrs)
	}
}

// AssertNoErrors fails t if anything was logged at error level
func AssertNoErrors(t testing.TB, h *BufferedSlogHandler) {
	t.Helper()
	if errs := h.GetRecordsByLevel(slog.LevelError); len(errs) > 0 {
		t.Errorf("unexpected error logs: %q", messages(errs))
	}
}
