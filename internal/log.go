package internal

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// LogLevel orders verbosity from Error (always shown) to Debug.
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// ParseLogLevel maps a LOG_LEVEL value to a level. Unknown or empty
// values fall back to Info.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR":
		return LogLevelError
	case "WARN", "WARNING":
		return LogLevelWarn
	case "DEBUG":
		return LogLevelDebug
	default:
		return LogLevelInfo
	}
}

// Logger is a leveled printf logger. Component tags keep interleaved
// pipeline and request logs attributable.
type Logger struct {
	level LogLevel
	tag   string
	out   *log.Logger
}

func NewLogger(level LogLevel) *Logger {
	return &Logger{level: level, out: log.New(os.Stderr, "", log.LstdFlags)}
}

// WithTag returns a copy of the logger whose lines carry the given
// component tag.
func (l *Logger) WithTag(tag string) *Logger {
	clone := *l
	clone.tag = tag
	return &clone
}

func (l *Logger) printf(lvl LogLevel, name, format string, args ...interface{}) {
	if lvl > l.level {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if l.tag != "" {
		l.out.Printf("[%s] %s: %s", name, l.tag, msg)
		return
	}
	l.out.Printf("[%s] %s", name, msg)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.printf(LogLevelError, "ERROR", format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.printf(LogLevelWarn, "WARN", format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.printf(LogLevelInfo, "INFO", format, args...)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.printf(LogLevelDebug, "DEBUG", format, args...)
}

// DefaultLogger is the process-wide logger, leveled from LOG_LEVEL.
var DefaultLogger = NewLogger(ParseLogLevel(os.Getenv("LOG_LEVEL")))
