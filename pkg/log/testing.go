package log

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// TestLogger records structured log entries in memory for assertions.
// Each entry is the JSON form of one record, so numbers decode as float64.
//
//	logger := log.NewTestLogger(log.LevelDebug)
//	trainer.logger = logger
//	// ...
//	entry, ok := logger.Find("Forecast model trained")
type TestLogger struct {
	sink   *testSink
	level  Level
	fields map[string]any
}

type testSink struct {
	mu      sync.Mutex
	entries []map[string]any
}

// NewTestLogger returns a TestLogger that keeps records at or above level.
// Loggers derived from it with With record into the same entries.
func NewTestLogger(level Level) *TestLogger {
	return &TestLogger{sink: &testSink{}, level: level, fields: map[string]any{}}
}

func (t *TestLogger) Debug(msg string, fields ...any) { t.record(LevelDebug, msg, fields) }
func (t *TestLogger) Info(msg string, fields ...any)  { t.record(LevelInfo, msg, fields) }
func (t *TestLogger) Warn(msg string, fields ...any)  { t.record(LevelWarn, msg, fields) }
func (t *TestLogger) Error(msg string, fields ...any) { t.record(LevelError, msg, fields) }

// With implements Logger.With.
func (t *TestLogger) With(fields ...any) Logger {
	child := &TestLogger{sink: t.sink, level: t.level, fields: make(map[string]any, len(t.fields))}
	for k, v := range t.fields {
		child.fields[k] = v
	}
	_, pairs := splitError(fields)
	for i := 0; i+1 < len(pairs); i += 2 {
		child.fields[fmt.Sprint(pairs[i])] = plainValue(pairs[i+1])
	}
	return child
}

// Enabled implements Logger.Enabled.
func (t *TestLogger) Enabled(_ context.Context, level Level) bool {
	return level >= t.level
}

func (t *TestLogger) record(level Level, msg string, fields []any) {
	if level < t.level {
		return
	}
	entry := map[string]any{"level": level.String(), "message": msg}
	for k, v := range t.fields {
		entry[k] = v
	}
	err, pairs := splitError(fields)
	if err != nil {
		entry["error"] = err.Error()
		if st := extractStacktrace(err); st != "" {
			entry[StacktraceKey] = st
		}
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		entry[fmt.Sprint(pairs[i])] = plainValue(pairs[i+1])
	}

	// round-trip so assertions see the same types a JSON sink would
	var decoded map[string]any
	if raw, jerr := json.Marshal(entry); jerr == nil && json.Unmarshal(raw, &decoded) == nil {
		entry = decoded
	}

	t.sink.mu.Lock()
	t.sink.entries = append(t.sink.entries, entry)
	t.sink.mu.Unlock()
}

func plainValue(v any) any {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return v
}

// Entries returns every recorded entry in order.
func (t *TestLogger) Entries() []map[string]any {
	t.sink.mu.Lock()
	defer t.sink.mu.Unlock()
	return append([]map[string]any(nil), t.sink.entries...)
}

// Find returns the first entry whose message is msg.
func (t *TestLogger) Find(msg string) (map[string]any, bool) {
	for _, e := range t.Entries() {
		if e["message"] == msg {
			return e, true
		}
	}
	return nil, false
}

// Reset drops every recorded entry.
func (t *TestLogger) Reset() {
	t.sink.mu.Lock()
	t.sink.entries = nil
	t.sink.mu.Unlock()
}
