package logger

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

const isWindows = runtime.GOOS == "windows"

var noColor = os.Getenv("TERM") == "dumb" ||
	(!isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()))

func color(val string) string {
	if isWindows || noColor {
		return ""
	}
	return val
}

const (
	Reset       = "\033[0m"
	Red         = "\033[31m"
	Green       = "\033[32m"
	Magenta     = "\033[35m"
	BlueBold    = "\033[34;1m"
	MagentaBold = "\033[35;1m"
	RedBold     = "\033[31;1m"
	YellowBold  = "\033[33;1m"
	WhiteBold   = "\033[37;1m"
	CyanBold    = "\033[36;1m"
	Gray        = "\033[1;90m"
	Purple      = "\u001b[38;5;200m"
)

type levelStyle struct {
	label   string
	level   string
	message string
}

var consoleStyles = map[LogLevel]levelStyle{
	LevelTrace: {"TRACE", CyanBold, Gray},
	LevelDebug: {"DEBUG", BlueBold, Green},
	LevelInfo:  {"INFO", YellowBold, WhiteBold},
	LevelWarn:  {"WARN", MagentaBold, Magenta},
	LevelError: {"ERROR", RedBold, Red},
}

// sinkState is shared by a logger and everything derived from it, so
// SetSink on the root reaches loggers created earlier with With or WithPrefix.
type sinkState struct {
	mu    sync.Mutex
	w     Sink
	level LogLevel
}

func newSinkState() *sinkState {
	return &sinkState{level: LevelNone}
}

func (s *sinkState) set(w Sink, level LogLevel) {
	s.mu.Lock()
	s.w, s.level = w, level
	s.mu.Unlock()
}

func (s *sinkState) threshold() LogLevel {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return LevelNone
	}
	return s.level
}

// write sends line to the sink when level passes its threshold.
func (s *sinkState) write(level LogLevel, line []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil || level < s.level {
		return
	}
	if _, err := s.w.Write(line); err != nil {
		log.Printf("sink.Write: %v", err)
	}
}

type consoleLogger struct {
	prefixes []string
	metadata map[string]interface{}
	logLevel LogLevel
	sink     *sinkState
}

var _ SinkLogger = (*consoleLogger)(nil)

func (c *consoleLogger) clone() *consoleLogger {
	metadata := make(map[string]interface{}, len(c.metadata))
	for k, v := range c.metadata {
		metadata[k] = v
	}
	return &consoleLogger{
		prefixes: slices.Clone(c.prefixes),
		metadata: metadata,
		logLevel: c.logLevel,
		sink:     c.sink,
	}
}

func (c *consoleLogger) WithPrefix(prefix string) Logger {
	l := c.clone()
	if !slices.Contains(l.prefixes, prefix) {
		l.prefixes = append(l.prefixes, prefix)
	}
	return l
}

func (c *consoleLogger) With(metadata map[string]interface{}) Logger {
	clone := c.clone()
	for k, v := range metadata {
		clone.metadata[k] = v
	}
	return clone
}

func (c *consoleLogger) SetSink(sink Sink, level LogLevel) {
	c.sink.set(sink, level)
}

func (c *consoleLogger) IsLevelEnabled(level LogLevel) bool {
	return levelEnabled(level, c.logLevel, c.sink.threshold())
}

func (c *consoleLogger) log(level LogLevel, msg string, args ...interface{}) {
	if !c.IsLevelEnabled(level) {
		return
	}
	style := consoleStyles[level]
	text := msg
	if len(args) > 0 {
		text = fmt.Sprintf(msg, args...)
	}
	var prefix, suffix string
	if len(c.prefixes) > 0 {
		prefix = color(Purple) + strings.Join(c.prefixes, " ") + color(Reset) + " "
	}
	if len(c.metadata) > 0 {
		buf, _ := json.Marshal(c.metadata)
		suffix = " " + color(Gray) + string(buf) + color(Reset)
	}
	label := fmt.Sprintf("[%s]%s", style.label, strings.Repeat(" ", max(0, 5-len(style.label))))
	out := color(style.level) + label + color(Reset) + " " + prefix + color(style.message) + text + color(Reset) + suffix
	if level >= c.logLevel {
		log.Println(out)
	}
	ts := time.Now().Format(time.RFC3339Nano)
	c.sink.write(level, []byte(ts+" "+ansiColorStripper.ReplaceAllString(out, "")+"\n"))
}

func (c *consoleLogger) Trace(msg string, args ...interface{}) { c.log(LevelTrace, msg, args...) }
func (c *consoleLogger) Debug(msg string, args ...interface{}) { c.log(LevelDebug, msg, args...) }
func (c *consoleLogger) Info(msg string, args ...interface{})  { c.log(LevelInfo, msg, args...) }
func (c *consoleLogger) Warn(msg string, args ...interface{})  { c.log(LevelWarn, msg, args...) }
func (c *consoleLogger) Error(msg string, args ...interface{}) { c.log(LevelError, msg, args...) }

func (c *consoleLogger) Fatal(msg string, args ...interface{}) {
	c.log(LevelError, msg, args...)
	os.Exit(1)
}

// NewConsoleLogger returns a new Logger instance which will log to the console
func NewConsoleLogger(levels ...LogLevel) SinkLogger {
	level := GetLevelFromEnv()
	if len(levels) > 0 {
		level = levels[0]
	}
	return &consoleLogger{
		metadata: map[string]interface{}{},
		logLevel: level,
		sink:     newSinkState(),
	}
}
