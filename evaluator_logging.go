package stocked

import "time"

// EvaluatorLogEvent describes an evaluation attempt for logging.
type EvaluatorLogEvent struct {
	Engine   string
	Expr     string
	Path     string
	Duration time.Duration
	Err      error
}

// EvaluatorLogger records evaluator events.
type EvaluatorLogger interface {
	LogEvaluation(EvaluatorLogEvent)
}

// EvaluatorLoggerFunc adapts a function to EvaluatorLogger.
type EvaluatorLoggerFunc func(EvaluatorLogEvent)

// LogEvaluation implements EvaluatorLogger.
func (f EvaluatorLoggerFunc) LogEvaluation(event EvaluatorLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopEvaluatorLogger struct{}

func (noopEvaluatorLogger) LogEvaluation(EvaluatorLogEvent) {}

// LogEvaluation forwards evaluator events to slog. Failures log at warn.
func (l *SlogLogger) LogEvaluation(event EvaluatorLogEvent) {
	level := LogLevelDebug
	if event.Err != nil {
		level = LogLevelWarn
	}
	l.LogEvent(LogEvent{
		Level:     level,
		Operation: "stock.evaluate." + event.Engine,
		Path:      event.Path,
		Duration:  event.Duration,
		Err:       event.Err,
	})
}

// WithEvaluatorLogger attaches an evaluator logger to the stock.
func WithEvaluatorLogger(logger EvaluatorLogger) Option {
	return func(cfg *stockConfig) {
		if logger == nil {
			cfg.evaluatorLogger = noopEvaluatorLogger{}
			return
		}
		cfg.evaluatorLogger = logger
	}
}
