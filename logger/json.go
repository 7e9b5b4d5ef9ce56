package logger

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"
)

// JSONLogEntry defines a log entry
// this is modeled after the JSON format expected by Cloud Logging
type JSONLogEntry struct {
	Timestamp time.Time              `json:"timestamp,omitempty"`
	Message   string                 `json:"message"`
	Severity  string                 `json:"severity,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Component string                 `json:"component,omitempty"`
}

// String renders an entry structure to the JSON format expected by Cloud Logging.
func (e JSONLogEntry) String() string {
	if e.Severity == "" {
		e.Severity = "INFO"
	}
	out, err := json.Marshal(e)
	if err != nil {
		log.Printf("json.Marshal: %v", err)
	}
	return string(out)
}

var severities = map[LogLevel]string{
	LevelTrace: "TRACE",
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARNING",
	LevelError: "ERROR",
}

type jsonLogger struct {
	metadata  map[string]interface{}
	component string
	logLevel  LogLevel
	noConsole bool
	sink      *sinkState
	now       func() time.Time
}

var _ SinkLogger = (*jsonLogger)(nil)

func (c *jsonLogger) clone() *jsonLogger {
	clone := *c
	clone.metadata = make(map[string]interface{}, len(c.metadata))
	for k, v := range c.metadata {
		clone.metadata[k] = v
	}
	return &clone
}

func (c *jsonLogger) SetSink(sink Sink, level LogLevel) {
	c.sink.set(sink, level)
}

// WithPrefix appends prefix to the entry component, e.g. "kvcache ratelimit".
func (c *jsonLogger) WithPrefix(prefix string) Logger {
	clone := c.clone()
	prefix = strings.Trim(prefix, "[]")
	switch {
	case clone.component == "":
		clone.component = prefix
	case !strings.Contains(clone.component, prefix):
		clone.component = clone.component + " " + prefix
	}
	return clone
}

// With adds metadata fields. A "component" field replaces the component
// instead of landing in metadata.
func (c *jsonLogger) With(fields map[string]interface{}) Logger {
	clone := c.clone()
	for k, v := range fields {
		clone.metadata[k] = v
	}
	if comp, ok := clone.metadata["component"].(string); ok {
		clone.component = comp
		delete(clone.metadata, "component")
	}
	return clone
}

func (c *jsonLogger) IsLevelEnabled(level LogLevel) bool {
	if c.noConsole {
		return level >= c.sink.threshold()
	}
	return levelEnabled(level, c.logLevel, c.sink.threshold())
}

func (c *jsonLogger) log(level LogLevel, msg string, args ...interface{}) {
	if !c.IsLevelEnabled(level) {
		return
	}
	text := msg
	if len(args) > 0 {
		text = fmt.Sprintf(msg, args...)
	}
	entry := JSONLogEntry{
		Severity:  severities[level],
		Message:   text,
		Metadata:  c.metadata,
		Component: c.component,
		Timestamp: c.now(),
	}
	if !c.noConsole && level >= c.logLevel {
		log.Println(entry)
	}
	entry.Message = ansiColorStripper.ReplaceAllString(entry.Message, "")
	buf, _ := json.Marshal(entry)
	c.sink.write(level, append(buf, '\n'))
}

func (c *jsonLogger) Trace(msg string, args ...interface{}) { c.log(LevelTrace, msg, args...) }
func (c *jsonLogger) Debug(msg string, args ...interface{}) { c.log(LevelDebug, msg, args...) }
func (c *jsonLogger) Info(msg string, args ...interface{})  { c.log(LevelInfo, msg, args...) }
func (c *jsonLogger) Warn(msg string, args ...interface{})  { c.log(LevelWarn, msg, args...) }
func (c *jsonLogger) Error(msg string, args ...interface{}) { c.log(LevelError, msg, args...) }

// Fatal logs at error level. The JSON logger is used by services that
// decide for themselves how to exit.
func (c *jsonLogger) Fatal(msg string, args ...interface{}) {
	c.log(LevelError, msg, args...)
}

// NewJSONLogger returns a new Logger instance which can be used for structured logging
func NewJSONLogger(levels ...LogLevel) SinkLogger {
	level := GetLevelFromEnv()
	if len(levels) > 0 {
		level = levels[0]
	}
	return &jsonLogger{logLevel: level, sink: newSinkState(), now: time.Now}
}

// NewJSONLoggerWithSink returns a new Logger instance using a sink and suppressing the console logging
func NewJSONLoggerWithSink(sink Sink, level LogLevel) SinkLogger {
	l := &jsonLogger{noConsole: true, logLevel: LevelNone, sink: newSinkState(), now: time.Now}
	l.sink.set(sink, level)
	return l
}
