package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	forecastErrors "github.com/YuminosukeSato/salesforecast/pkg/errors"
)

const (
	// FormatJSON writes one JSON object per record.
	FormatJSON = "json"
	// FormatConsole writes human readable, colorless records.
	FormatConsole = "console"
)

var (
	providerMu sync.RWMutex
	provider   = newZerologProvider(zerolog.New(os.Stderr).With().Timestamp().Logger(), LevelInfo)
)

// SetupLogger configures the process-wide logger provider.
// level is one of "debug", "info", "warn", "error"; format is "json" or
// "console". Library warnings raised through pkg/errors.Warn are routed to
// the new logger.
func SetupLogger(level, format string, w io.Writer) error {
	lvl, err := ToLogLevel(level)
	if err != nil {
		return err
	}
	if w == nil {
		w = os.Stderr
	}

	switch strings.ToLower(format) {
	case "", FormatJSON:
	case FormatConsole:
		w = zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: time.RFC3339}
	default:
		return forecastErrors.NewValidationError("log.format", "must be json or console", format)
	}

	p := newZerologProvider(zerolog.New(w).With().Timestamp().Logger(), lvl)

	providerMu.Lock()
	provider = p
	providerMu.Unlock()

	warnLogger := p.base.With().Str(ComponentKey, "warnings").Logger()
	forecastErrors.SetZerologWarnFunc(func(warning error) {
		ev := warnLogger.Warn()
		if m, ok := warning.(zerolog.LogObjectMarshaler); ok {
			ev = ev.EmbedObject(m)
		}
		ev.Msg(warning.Error())
	})
	return nil
}

// GetLogger returns the process-wide default logger.
func GetLogger() Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return provider.GetLogger()
}

// GetLoggerWithName returns a logger tagged with the given component name.
func GetLoggerWithName(name string) Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return provider.GetLoggerWithName(name)
}

// SetLevel changes the minimum level of the process-wide provider.
func SetLevel(level Level) {
	providerMu.RLock()
	defer providerMu.RUnlock()
	provider.SetLevel(level)
}

// ToLogLevel parses a level name.
func ToLogLevel(level string) (Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, forecastErrors.NewValidationError("log.level", "must be one of debug, info, warn, error", level)
	}
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// zerologProvider hands out loggers sharing one base zerolog.Logger.
type zerologProvider struct {
	mu    sync.RWMutex
	base  zerolog.Logger
	level Level
}

func newZerologProvider(base zerolog.Logger, level Level) *zerologProvider {
	return &zerologProvider{base: base.Level(toZerologLevel(level)), level: level}
}

func (p *zerologProvider) GetLogger() Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &zerologLogger{zl: p.base}
}

func (p *zerologProvider) GetLoggerWithName(name string) Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &zerologLogger{zl: p.base.With().Str(ComponentKey, name).Logger()}
}

func (p *zerologProvider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
	p.base = p.base.Level(toZerologLevel(level))
}

// zerologLogger adapts zerolog.Logger to the Logger interface.
type zerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger wraps an existing zerolog logger.
func NewZerologLogger(zl zerolog.Logger) Logger {
	return &zerologLogger{zl: zl}
}

func (l *zerologLogger) Debug(msg string, fields ...any) { l.emit(l.zl.Debug(), msg, fields) }
func (l *zerologLogger) Info(msg string, fields ...any)  { l.emit(l.zl.Info(), msg, fields) }
func (l *zerologLogger) Warn(msg string, fields ...any)  { l.emit(l.zl.Warn(), msg, fields) }
func (l *zerologLogger) Error(msg string, fields ...any) { l.emit(l.zl.Error(), msg, fields) }

func (l *zerologLogger) With(fields ...any) Logger {
	_, pairs := splitError(fields)
	return &zerologLogger{zl: l.zl.With().Fields(pairs).Logger()}
}

func (l *zerologLogger) Enabled(_ context.Context, level Level) bool {
	return toZerologLevel(level) >= l.zl.GetLevel()
}

func (l *zerologLogger) emit(ev *zerolog.Event, msg string, fields []any) {
	if ev == nil {
		return
	}
	err, pairs := splitError(fields)
	if err != nil {
		ev = ev.Err(err)
		if st := extractStacktrace(err); st != "" {
			ev = ev.Str(StacktraceKey, st)
		}
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		if e, ok := pairs[i+1].(error); ok {
			ev = ev.AnErr(fmt.Sprint(pairs[i]), e)
			continue
		}
		ev = ev.Interface(fmt.Sprint(pairs[i]), pairs[i+1])
	}
	ev.Msg(msg)
}

// splitError separates a leading error value from the key/value pairs.
func splitError(fields []any) (error, []any) {
	if len(fields)%2 == 1 {
		if err, ok := fields[0].(error); ok {
			return err, fields[1:]
		}
		return nil, fields[:len(fields)-1]
	}
	return nil, fields
}

// extractStacktrace renders the innermost stack recorded by cockroachdb/errors.
func extractStacktrace(err error) string {
	st := errors.GetReportableStackTrace(err)
	if st == nil || len(st.Frames) == 0 {
		return ""
	}
	var b strings.Builder
	// frames are ordered oldest first
	for i := len(st.Frames) - 1; i >= 0; i-- {
		f := st.Frames[i]
		fmt.Fprintf(&b, "%s\n\t%s:%d\n", f.Function, f.AbsPath, f.Lineno)
	}
	return b.String()
}
