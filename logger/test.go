package logger

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
)

type TestLogEntry struct {
	Severity  string
	Prefix    string
	Message   string
	Arguments []interface{}
	Metadata  map[string]interface{}
}

// Formatted returns the message with its arguments applied.
func (e TestLogEntry) Formatted() string {
	if len(e.Arguments) == 0 {
		return e.Message
	}
	return fmt.Sprintf(e.Message, e.Arguments...)
}

type testLogStore struct {
	mu   sync.Mutex
	logs []TestLogEntry
}

// TestLogger records every entry in memory. Loggers derived through With or
// WithPrefix share the same record.
type TestLogger struct {
	prefixes []string
	metadata map[string]interface{}
	store    *testLogStore
}

var _ Logger = (*TestLogger)(nil)

func (c *TestLogger) WithPrefix(prefix string) Logger {
	if slices.Contains(c.prefixes, prefix) {
		return c
	}
	return &TestLogger{prefixes: append(slices.Clone(c.prefixes), prefix), metadata: c.metadata, store: c.store}
}

func (c *TestLogger) With(metadata map[string]interface{}) Logger {
	kv := make(map[string]interface{}, len(c.metadata)+len(metadata))
	for k, v := range c.metadata {
		kv[k] = v
	}
	for k, v := range metadata {
		kv[k] = v
	}
	return &TestLogger{prefixes: c.prefixes, metadata: kv, store: c.store}
}

func (c *TestLogger) IsLevelEnabled(level LogLevel) bool {
	return level < LevelNone
}

func (c *TestLogger) record(level string, msg string, args ...interface{}) {
	c.store.mu.Lock()
	c.store.logs = append(c.store.logs, TestLogEntry{level, strings.Join(c.prefixes, " "), msg, args, c.metadata})
	c.store.mu.Unlock()
}

// Logs returns a copy of every entry recorded so far.
func (c *TestLogger) Logs() []TestLogEntry {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	out := make([]TestLogEntry, len(c.store.logs))
	copy(out, c.store.logs)
	return out
}

// Filter returns the recorded entries with the given severity.
func (c *TestLogger) Filter(severity string) []TestLogEntry {
	var out []TestLogEntry
	for _, entry := range c.Logs() {
		if entry.Severity == severity {
			out = append(out, entry)
		}
	}
	return out
}

func (c *TestLogger) Trace(msg string, args ...interface{}) { c.record("TRACE", msg, args...) }
func (c *TestLogger) Debug(msg string, args ...interface{}) { c.record("DEBUG", msg, args...) }
func (c *TestLogger) Info(msg string, args ...interface{})  { c.record("INFO", msg, args...) }
func (c *TestLogger) Warn(msg string, args ...interface{})  { c.record("WARNING", msg, args...) }
func (c *TestLogger) Error(msg string, args ...interface{}) { c.record("ERROR", msg, args...) }

func (c *TestLogger) Fatal(msg string, args ...interface{}) {
	c.record("FATAL", msg, args...)
	os.Exit(1)
}

// NewTestLogger returns a new Logger instance useful for testing
func NewTestLogger() *TestLogger {
	return &TestLogger{store: &testLogStore{}}
}
