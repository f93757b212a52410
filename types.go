package stocked

import (
	"time"

	"github.com/goliatone/go-stocked/pkg/activity"
	"github.com/goliatone/go-stocked/pkg/keypath"
	"github.com/oklog/ulid/v2"
)

// Observer receives the value currently stored at the path it watches.
type Observer func(value any)

// Updater computes the next value at a path from the current one.
type Updater func(current any) any

// BatchUpdate describes one logical mutation of the whole tree. Values always
// carries the full resulting tree.
type BatchUpdate[T any] struct {
	ID     ulid.ULID
	Paths  []keypath.Path
	Values T
}

// Response stores a typed result produced by an evaluator.
type Response[T any] struct {
	Value T
}

// RuleContext carries inputs needed when evaluating an expression.
type RuleContext struct {
	Snapshot any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
	Path     string
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) withDefaults() RuleContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx RuleContext) pathLabel() string {
	if ctx.Path != "" {
		return ctx.Path
	}
	return "<root>"
}

// bindings returns the variables every engine exposes: now, args, metadata,
// path, value (the snapshot itself) and, for map snapshots, each top-level key.
func (ctx RuleContext) bindings() map[string]any {
	env := map[string]any{
		"now":      ctx.timestamp(),
		"args":     ctx.Args,
		"metadata": ctx.Metadata,
		"path":     ctx.Path,
		"value":    ctx.Snapshot,
	}
	if snapshot, ok := ctx.Snapshot.(map[string]any); ok {
		for key, value := range snapshot {
			env[key] = value
		}
	}
	return env
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// Option configures a Stock.
type Option func(*stockConfig)

type stockConfig struct {
	name            string
	logger          Logger
	evaluator       Evaluator
	engine          func(stockConfig) Evaluator
	programCache    ProgramCache
	functions       *FunctionRegistry
	evaluatorLogger EvaluatorLogger
	activityHooks   activity.Hooks
	activityConfig  activity.Config
	validate        bool
	optionErrs      []error
}

func applyOptions(opts []Option) stockConfig {
	cfg := stockConfig{
		name:           "stock",
		activityConfig: activity.Config{Enabled: true, Channel: "stock"},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.evaluator == nil && cfg.engine != nil {
		cfg.evaluator = cfg.engine(cfg)
	}
	return cfg
}

// WithName labels the stock in logs and activity events.
func WithName(name string) Option {
	return func(cfg *stockConfig) {
		if name != "" {
			cfg.name = name
		}
	}
}

// WithEvaluator configures the expression evaluator used by Evaluate and
// WatchExpression. The expr engine is used when none is configured.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *stockConfig) {
		cfg.evaluator = e
	}
}

func (cfg stockConfig) loggerOrNoop() Logger {
	if cfg.logger != nil {
		return cfg.logger
	}
	return noopLogger{}
}

func (cfg stockConfig) evaluatorLoggerOrNoop() EvaluatorLogger {
	if cfg.evaluatorLogger != nil {
		return cfg.evaluatorLogger
	}
	return noopEvaluatorLogger{}
}
