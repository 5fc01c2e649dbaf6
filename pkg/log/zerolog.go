package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/sciforest/pkg/errors"
)

// ZerologLogger implements Logger on top of a zerolog.Logger.
type ZerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger wraps an existing zerolog logger.
func NewZerologLogger(zl zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{zl: zl}
}

func (l *ZerologLogger) Debug(msg string, fields ...any) {
	l.emit(l.zl.Debug(), msg, fields)
}

func (l *ZerologLogger) Info(msg string, fields ...any) {
	l.emit(l.zl.Info(), msg, fields)
}

func (l *ZerologLogger) Warn(msg string, fields ...any) {
	l.emit(l.zl.Warn(), msg, fields)
}

func (l *ZerologLogger) Error(msg string, fields ...any) {
	l.emit(l.zl.Error(), msg, fields)
}

// With returns a child logger carrying fields in its context.
func (l *ZerologLogger) With(fields ...any) Logger {
	ctx := l.zl.With()
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		switch v := fields[i+1].(type) {
		case error:
			ctx = ctx.Object(key, errorObject{err: v})
		case zerolog.LogObjectMarshaler:
			ctx = ctx.Object(key, v)
		default:
			ctx = ctx.Interface(key, v)
		}
	}
	return &ZerologLogger{zl: ctx.Logger()}
}

// Enabled implements Logger.Enabled.
func (l *ZerologLogger) Enabled(_ context.Context, level Level) bool {
	return l.zl.GetLevel() <= toZerologLevel(level)
}

func (l *ZerologLogger) emit(ev *zerolog.Event, msg string, fields []any) {
	if ev == nil {
		return
	}
	if len(fields)%2 == 1 {
		if err, ok := fields[0].(error); ok {
			addField(ev, ErrAttrKey, err)
			fields = fields[1:]
		}
	}
	for i := 0; i+1 < len(fields); i += 2 {
		addField(ev, fmt.Sprint(fields[i]), fields[i+1])
	}
	ev.Msg(msg)
}

func addField(ev *zerolog.Event, key string, value any) {
	switch v := value.(type) {
	case error:
		ev.Object(key, errorObject{err: v})
	case zerolog.LogObjectMarshaler:
		ev.Object(key, v)
	default:
		ev.Interface(key, v)
	}
}

// errorObject logs the message of err plus the structured fields of the
// first error in its chain that implements zerolog.LogObjectMarshaler.
type errorObject struct {
	err error
}

func (o errorObject) MarshalZerologObject(e *zerolog.Event) {
	e.Str("message", o.err.Error())
	var m zerolog.LogObjectMarshaler
	if errors.As(o.err, &m) {
		m.MarshalZerologObject(e)
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

// ZerologProvider is the default LoggerProvider.
type ZerologProvider struct {
	mu   sync.RWMutex
	base zerolog.Logger
}

// NewZerologProvider writes JSON records to w at the given level.
func NewZerologProvider(w io.Writer, level Level) *ZerologProvider {
	return &ZerologProvider{
		base: zerolog.New(w).Level(toZerologLevel(level)).With().Timestamp().Logger(),
	}
}

// NewConsoleProvider writes human readable records to w.
func NewConsoleProvider(w io.Writer, level Level) *ZerologProvider {
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	return &ZerologProvider{
		base: zerolog.New(out).Level(toZerologLevel(level)).With().Timestamp().Logger(),
	}
}

func (p *ZerologProvider) GetLogger() Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &ZerologLogger{zl: p.base}
}

func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &ZerologLogger{zl: p.base.With().Str(ComponentKey, name).Logger()}
}

func (p *ZerologProvider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.base = p.base.Level(toZerologLevel(level))
}

// warn routes library warnings through the provider.
func (p *ZerologProvider) warn(w error) {
	p.GetLoggerWithName("warnings").Warn(w.Error(), "warning", w)
}

var global atomic.Pointer[providerHolder]

type providerHolder struct {
	provider LoggerProvider
}

func init() {
	SetProvider(NewZerologProvider(os.Stderr, LevelInfo))
}

// SetProvider replaces the process wide provider. Loggers obtained earlier keep
// writing to the provider they came from.
func SetProvider(p LoggerProvider) {
	global.Store(&providerHolder{provider: p})
	if zp, ok := p.(*ZerologProvider); ok {
		errors.SetZerologWarnFunc(zp.warn)
		return
	}
	errors.SetZerologWarnFunc(func(w error) {
		p.GetLoggerWithName("warnings").Warn(w.Error(), "warning", w)
	})
}

// Provider returns the current process wide provider.
func Provider() LoggerProvider {
	return global.Load().provider
}

// GetLogger returns the default logger of the current provider.
func GetLogger() Logger {
	return Provider().GetLogger()
}

// GetLoggerWithName returns a component logger of the current provider.
func GetLoggerWithName(name string) Logger {
	return Provider().GetLoggerWithName(name)
}

// SetLevel changes the minimum level of the current provider.
func SetLevel(level Level) {
	Provider().SetLevel(level)
}
