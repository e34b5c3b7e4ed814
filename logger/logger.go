package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
	FATAL
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
	FATAL: "FATAL",
}

// slog has no fatal level
const levelFatal = slog.LevelError + 4

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

func (l Level) slog() slog.Level {
	switch l {
	case DEBUG:
		return slog.LevelDebug
	case INFO:
		return slog.LevelInfo
	case WARN:
		return slog.LevelWarn
	case ERROR:
		return slog.LevelError
	default:
		return levelFatal
	}
}

type Logger struct {
	mu            sync.RWMutex
	level         Level
	packageLevels map[string]Level
	handler       slog.Handler
}

// Global logger instance
var defaultLogger *Logger

func init() {
	defaultLogger = New(INFO)
}

// New creates a new logger with the specified level writing text records to stderr
func New(level Level) *Logger {
	return NewWithWriter(level, os.Stderr)
}

// NewWithWriter creates a logger writing to w.
// The handler itself accepts everything; filtering is done by shouldLog.
func NewWithWriter(level Level, w io.Writer) *Logger {
	return &Logger{
		level:         level,
		packageLevels: map[string]Level{},
		handler: slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: slog.LevelDebug,
			ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
				if a.Key == slog.LevelKey {
					if lvl, ok := a.Value.Any().(slog.Level); ok && lvl >= levelFatal {
						return slog.String(slog.LevelKey, levelNames[FATAL])
					}
				}
				return a
			},
		}),
	}
}

// SetLevel sets the global logger level
func SetLevel(level Level) {
	defaultLogger.mu.Lock()
	defaultLogger.level = level
	defaultLogger.mu.Unlock()
}

// SetPackageLevels sets per-package level overrides.
// Keys match the [component] prefix used in log messages (e.g. "portal", "api", "remotedesktop").
func SetPackageLevels(levels map[string]Level) {
	copied := make(map[string]Level, len(levels))
	for k, v := range levels {
		copied[k] = v
	}
	defaultLogger.mu.Lock()
	defaultLogger.packageLevels = copied
	defaultLogger.mu.Unlock()
}

// SetOutput redirects the global logger, mainly for tests.
func SetOutput(w io.Writer) {
	l := NewWithWriter(INFO, w)
	defaultLogger.mu.Lock()
	defaultLogger.handler = l.handler
	defaultLogger.mu.Unlock()
}

// Slog exposes the global logger as a *slog.Logger for libraries that want one.
func Slog() *slog.Logger {
	defaultLogger.mu.RLock()
	defer defaultLogger.mu.RUnlock()
	return slog.New(defaultLogger.handler)
}

// extractComponent returns the component name from a "[component] ..." message, or "".
func extractComponent(msg string) string {
	if len(msg) < 3 || msg[0] != '[' {
		return ""
	}
	end := strings.IndexByte(msg[1:], ']')
	if end < 0 {
		return ""
	}
	return msg[1 : end+1]
}

// splitComponent separates the "[component]" prefix from the rest of the message.
func splitComponent(msg string) (string, string) {
	pkg := extractComponent(msg)
	if pkg == "" {
		return "", msg
	}
	return pkg, strings.TrimSpace(msg[len(pkg)+2:])
}

// shouldLog checks if a message at this level should be logged,
// applying a package-specific override when the message carries a [component] prefix.
func (l *Logger) shouldLog(level Level, msg string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if pkg := extractComponent(msg); pkg != "" {
		if pkgLevel, ok := l.packageLevels[pkg]; ok {
			return level >= pkgLevel
		}
	}
	return level >= l.level
}

func (l *Logger) log(level Level, msg string, args ...interface{}) {
	if !l.shouldLog(level, msg) {
		return
	}
	pkg, text := splitComponent(fmt.Sprintf(msg, args...))

	l.mu.RLock()
	h := l.handler
	l.mu.RUnlock()

	var attrs []slog.Attr
	if pkg != "" {
		attrs = append(attrs, slog.String("component", pkg))
	}
	slog.New(h).LogAttrs(context.Background(), level.slog(), text, attrs...)
}

// Debug logs a debug message
func Debug(msg string, args ...interface{}) {
	defaultLogger.log(DEBUG, msg, args...)
}

// Info logs an info message
func Info(msg string, args ...interface{}) {
	defaultLogger.log(INFO, msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...interface{}) {
	defaultLogger.log(WARN, msg, args...)
}

// Error logs an error message
func Error(msg string, args ...interface{}) {
	defaultLogger.log(ERROR, msg, args...)
}

// Fatal logs a fatal message and exits
func Fatal(msg string, args ...interface{}) {
	pkg, text := splitComponent(fmt.Sprintf(msg, args...))
	var attrs []slog.Attr
	if pkg != "" {
		attrs = append(attrs, slog.String("component", pkg))
	}
	defaultLogger.mu.RLock()
	h := defaultLogger.handler
	defaultLogger.mu.RUnlock()
	slog.New(h).LogAttrs(context.Background(), levelFatal, text, attrs...)
	os.Exit(1)
}
