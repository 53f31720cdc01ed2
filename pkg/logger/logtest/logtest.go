// Package logtest provides a slog.Handler that records log lines in a
// deterministic, timestamp-free form so tests can assert on what was logged.
package logtest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

type record struct {
	mu    sync.Mutex
	lines []string
}

// Recorder is a slog.Handler that keeps every handled record as a line of
// the form "[index] LEVEL: message key=value, key=value". Handlers derived
// with WithAttrs or WithGroup write to the same line buffer.
type Recorder struct {
	rec         *record
	attrs       []slog.Attr
	groups      []string
	ignoreDebug bool
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithIgnoreDebug drops DEBUG records.
func WithIgnoreDebug() Option {
	return func(r *Recorder) {
		r.ignoreDebug = true
	}
}

func New(opts ...Option) *Recorder {
	r := &Recorder{rec: &record{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Lines returns a copy of the recorded lines.
func (r *Recorder) Lines() []string {
	r.rec.mu.Lock()
	defer r.rec.mu.Unlock()
	return append([]string(nil), r.rec.lines...)
}

// Contains reports whether any recorded line contains substr.
func (r *Recorder) Contains(substr string) bool {
	for _, line := range r.Lines() {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

func (r *Recorder) Enabled(_ context.Context, level slog.Level) bool {
	return !r.ignoreDebug || level > slog.LevelDebug
}

//nolint:gocritic
func (r *Recorder) Handle(_ context.Context, rec slog.Record) error {
	if !r.Enabled(context.Background(), rec.Level) {
		return nil
	}

	parts := make([]string, 0, len(r.attrs)+rec.NumAttrs())
	for _, a := range r.attrs {
		parts = append(parts, formatAttr(a, ""))
	}
	prefix := ""
	if len(r.groups) > 0 {
		prefix = strings.Join(r.groups, ".") + "."
	}
	rec.Attrs(func(a slog.Attr) bool {
		parts = append(parts, formatAttr(a, prefix))
		return true
	})

	r.rec.mu.Lock()
	defer r.rec.mu.Unlock()
	line := fmt.Sprintf("[%d] %s: %s", len(r.rec.lines), rec.Level, rec.Message)
	if len(parts) > 0 {
		line += " " + strings.Join(parts, ", ")
	}
	r.rec.lines = append(r.rec.lines, line)
	return nil
}

func formatAttr(a slog.Attr, prefix string) string {
	if a.Value.Kind() == slog.KindGroup {
		groupPrefix := prefix + a.Key + "."
		parts := make([]string, 0, len(a.Value.Group()))
		for _, ga := range a.Value.Group() {
			parts = append(parts, formatAttr(ga, groupPrefix))
		}
		return strings.Join(parts, ", ")
	}
	return fmt.Sprintf("%s%s=%v", prefix, a.Key, a.Value)
}

func (r *Recorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	prefix := ""
	if len(r.groups) > 0 {
		prefix = strings.Join(r.groups, ".") + "."
	}
	next := *r
	next.attrs = make([]slog.Attr, 0, len(r.attrs)+len(attrs))
	next.attrs = append(next.attrs, r.attrs...)
	for _, a := range attrs {
		if prefix != "" {
			a = slog.Attr{Key: prefix + a.Key, Value: a.Value}
		}
		next.attrs = append(next.attrs, a)
	}
	return &next
}

func (r *Recorder) WithGroup(name string) slog.Handler {
	if name == "" {
		return r
	}
	next := *r
	next.groups = append(r.groups[:len(r.groups):len(r.groups)], name)
	return &next
}
