// Package logger is the logging interface shared by whm components.
//
// Components take a Logger and never talk to the standard logger directly,
// so the dashboard can route everything to a file while it owns the
// terminal and tests can capture messages with a BufferLogger.
package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
)

// Environment variables that control EnvLogger output.
const (
	// DebugEnv enables debug messages when set to any value.
	DebugEnv = "WHM_DEBUG"
	// LevelEnv sets the lowest level printed: debug, info, warn or error.
	LevelEnv = "WHM_LOG_LEVEL"
)

// Level is the severity of a message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = []string{"debug", "info", "warn", "error"}

func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel parses a level name, case-insensitively.
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "warning" {
		name = "warn"
	}
	for i, n := range levelNames {
		if n == name {
			return Level(i), nil
		}
	}
	return LevelInfo, fmt.Errorf("unknown log level %q (want debug, info, warn or error)", s)
}

// Threshold returns the lowest level EnvLogger prints. WHM_DEBUG wins over
// WHM_LOG_LEVEL; an unset or unparsable level means info.
func Threshold() Level {
	if os.Getenv(DebugEnv) != "" {
		return LevelDebug
	}
	if lvl, err := ParseLevel(os.Getenv(LevelEnv)); err == nil {
		return lvl
	}
	return LevelInfo
}

// Logger is a printf-style leveled logger.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// envLogger writes through the standard logger, filtered by Threshold.
type envLogger struct {
	prefix string
}

// NewEnvLogger returns a logger that prepends prefix (e.g. "[panel]") to
// every message. The environment is read on each call.
func NewEnvLogger(prefix string) Logger {
	return &envLogger{prefix: prefix}
}

func (l *envLogger) logf(level Level, format string, args ...interface{}) {
	if level < Threshold() {
		return
	}
	var b strings.Builder
	b.WriteString(l.prefix)
	if l.prefix != "" {
		b.WriteByte(' ')
	}
	if level >= LevelWarn {
		b.WriteString(strings.ToUpper(level.String()) + ": ")
	}
	b.WriteString(fmt.Sprintf(format, args...))
	log.Print(b.String())
}

func (l *envLogger) Debug(format string, args ...interface{}) {
	l.logf(LevelDebug, format, args...)
}

func (l *envLogger) Info(format string, args ...interface{}) {
	l.logf(LevelInfo, format, args...)
}

func (l *envLogger) Warn(format string, args ...interface{}) {
	l.logf(LevelWarn, format, args...)
}

func (l *envLogger) Error(format string, args ...interface{}) {
	l.logf(LevelError, format, args...)
}

type noopLogger struct{}

// Noop returns a logger that discards everything.
func Noop() Logger {
	return noopLogger{}
}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}

// LogMessage is one captured message.
type LogMessage struct {
	Level   Level
	Message string
}

// BufferLogger captures messages for assertions. It is safe to share
// between HTTP handlers and recorder goroutines.
type BufferLogger struct {
	mu       sync.Mutex
	messages []LogMessage
}

// NewBufferLogger returns an empty BufferLogger.
func NewBufferLogger() *BufferLogger {
	return &BufferLogger{}
}

func (l *BufferLogger) record(level Level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, LogMessage{Level: level, Message: fmt.Sprintf(format, args...)})
}

func (l *BufferLogger) Debug(format string, args ...interface{}) {
	l.record(LevelDebug, format, args...)
}

func (l *BufferLogger) Info(format string, args ...interface{}) {
	l.record(LevelInfo, format, args...)
}

func (l *BufferLogger) Warn(format string, args ...interface{}) {
	l.record(LevelWarn, format, args...)
}

func (l *BufferLogger) Error(format string, args ...interface{}) {
	l.record(LevelError, format, args...)
}

// HasLevel reports whether anything was logged at level.
func (l *BufferLogger) HasLevel(level Level) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.messages {
		if m.Level == level {
			return true
		}
	}
	return false
}

// Contains reports whether a message containing substr was logged at level.
func (l *BufferLogger) Contains(level Level, substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.messages {
		if m.Level == level && strings.Contains(m.Message, substr) {
			return true
		}
	}
	return false
}

// Snapshot returns a copy of the captured messages.
func (l *BufferLogger) Snapshot() []LogMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LogMessage(nil), l.messages...)
}

// Clear drops all captured messages.
func (l *BufferLogger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = nil
}
