package stocked

import (
	"context"
	"log/slog"
	"time"
)

// LogLevel ranks LogEvent severity.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelWarn:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// LogEvent describes a stock operation for logging.
type LogEvent struct {
	Level     LogLevel
	Operation string
	Stock     string
	Path      string
	Paths     []string
	Observers int
	Duration  time.Duration
	Err       error
}

// Logger records stock events.
type Logger interface {
	LogEvent(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// LogEvent implements Logger.
func (f LoggerFunc) LogEvent(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) LogEvent(LogEvent) {}

// SlogLogger emits stock events to a slog.Logger. The operation becomes the
// message and the remaining fields become attributes.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger wraps logger, falling back to slog.Default when nil.
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogLogger{logger: logger}
}

func (l *SlogLogger) LogEvent(event LogEvent) {
	attrs := make([]slog.Attr, 0, 6)
	attrs = append(attrs, slog.String("stock", event.Stock))
	if event.Path != "" {
		attrs = append(attrs, slog.String("path", event.Path))
	}
	if len(event.Paths) > 0 {
		attrs = append(attrs, slog.Any("paths", event.Paths))
	}
	attrs = append(attrs,
		slog.Int("observers", event.Observers),
		slog.Duration("duration", event.Duration),
	)
	if event.Err != nil {
		attrs = append(attrs, slog.String("error", event.Err.Error()))
	}
	l.logger.LogAttrs(context.Background(), event.Level.slogLevel(), event.Operation, attrs...)
}

// WithLogger attaches a Logger to the stock.
func WithLogger(logger Logger) Option {
	return func(cfg *stockConfig) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}
