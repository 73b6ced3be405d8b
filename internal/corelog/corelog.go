// Package corelog is the structured logging facade shared by every core
// subsystem. It mirrors eventloop/logging.go's package-level
// Logger/SetStructuredLogger design (a small interface, a process-wide
// default, lazy level checks) but is backed by zerolog rather than a
// hand-rolled pretty-printer, since zerolog is the logging library already
// present in the retrieved corpus (see DESIGN.md).
package corelog

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Level mirrors zerolog's levels so callers don't need to import zerolog
// directly.
type Level int8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Fields is a set of structured key/value pairs attached to a log entry.
type Fields map[string]any

// Logger is the logging interface consumed by every core package. Category
// groups related log lines the way eventloop's LogEntry.Category does
// ("reactor", "breaker", "healthcheck", ...).
type Logger interface {
	Log(level Level, category, message string, fields Fields)
	Enabled(level Level) bool
}

type zerologLogger struct {
	logger zerolog.Logger
}

// NewZerolog wraps an existing zerolog.Logger as a corelog.Logger.
func NewZerolog(logger zerolog.Logger) Logger {
	return &zerologLogger{logger: logger}
}

// NewDefault builds a zerolog.Logger writing to stderr at the given level,
// matching eventloop.NewDefaultLogger's role as the out-of-the-box default.
func NewDefault(level Level) Logger {
	l := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(level.zerolog())
	return &zerologLogger{logger: l}
}

func (z *zerologLogger) Enabled(level Level) bool {
	return level.zerolog() >= z.logger.GetLevel()
}

func (z *zerologLogger) Log(level Level, category, message string, fields Fields) {
	if !z.Enabled(level) {
		return
	}
	evt := z.logger.WithLevel(level.zerolog()).Str("category", category)
	for k, v := range fields {
		if err, ok := v.(error); ok {
			evt = evt.AnErr(k, err)
			continue
		}
		evt = evt.Interface(k, v)
	}
	evt.Msg(message)
}

var (
	globalMu     sync.RWMutex
	globalLogger Logger = NewDefault(LevelInfo)
)

// SetLogger installs the process-wide default logger used by Default().
func SetLogger(l Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	if l == nil {
		l = NewDefault(LevelInfo)
	}
	globalLogger = l
}

// Default returns the process-wide logger installed via SetLogger, or a
// stderr-backed zerolog default if none was installed.
func Default() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// noop is used by components constructed without an explicit logger in
// tests, so nil checks don't have to be scattered everywhere.
type noopLogger struct{}

func (noopLogger) Log(Level, string, string, Fields) {}
func (noopLogger) Enabled(Level) bool                { return false }

// NoOp returns a Logger that discards everything.
func NoOp() Logger { return noopLogger{} }
