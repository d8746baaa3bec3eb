package testutil

import (
	"context"
	"sync"

	"github.com/Andi3172/fullstack-tic-project/pkg/observability/logger"
)

// Entry is one call recorded by RecordingLogger.
type Entry struct {
	Level   string
	Message string
	Args    []any
}

// Field returns the value logged under key, or nil.
func (e Entry) Field(key string) any {
	for i := 0; i+1 < len(e.Args); i += 2 {
		if k, ok := e.Args[i].(string); ok && k == key {
			return e.Args[i+1]
		}
	}
	return nil
}

// RecordingLogger is a logger.Logger that keeps every entry in memory.
// Children created by With share the parent's entries.
type RecordingLogger struct {
	mu      *sync.Mutex
	entries *[]Entry
	fields  []any
}

// NewRecordingLogger returns an empty RecordingLogger.
func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{mu: &sync.Mutex{}, entries: &[]Entry{}}
}

func (l *RecordingLogger) Debug(msg string, args ...any) { l.record("debug", msg, args) }
func (l *RecordingLogger) Info(msg string, args ...any)  { l.record("info", msg, args) }
func (l *RecordingLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args) }
func (l *RecordingLogger) Error(msg string, args ...any) { l.record("error", msg, args) }

func (l *RecordingLogger) With(args ...any) logger.Logger {
	fields := append(append([]any{}, l.fields...), args...)
	return &RecordingLogger{mu: l.mu, entries: l.entries, fields: fields}
}

func (l *RecordingLogger) WithContext(ctx context.Context) logger.Logger {
	if id := logger.RequestIDFromContext(ctx); id != "" {
		return l.With("request_id", id)
	}
	return l
}

// Entries returns a copy of the recorded entries.
func (l *RecordingLogger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), *l.entries...)
}

// Messages returns the recorded messages at level.
func (l *RecordingLogger) Messages(level string) []string {
	var out []string
	for _, e := range l.Entries() {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}

func (l *RecordingLogger) record(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.entries = append(*l.entries, Entry{
		Level:   level,
		Message: msg,
		Args:    append(append([]any{}, l.fields...), args...),
	})
}
