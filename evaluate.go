package stocked

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/goliatone/go-stocked/pkg/keypath"
)

// ErrNoEvaluator indicates an evaluation on a stock whose configured engine
// could not be built.
var ErrNoEvaluator = errors.New("stocked: evaluator not configured")

// Evaluate runs expr against the whole tree. Top-level keys of a map tree are
// bound as variables and the tree itself is bound as value.
func (s *Stock[T]) Evaluate(expr string) (Response[any], error) {
	return s.EvaluateAt(keypath.Root(), expr)
}

// EvaluateAt runs expr against the subtree at path.
func (s *Stock[T]) EvaluateAt(path keypath.Path, expr string) (Response[any], error) {
	return s.EvaluateWith(RuleContext{Path: pathLabelOf(path)}, path, expr)
}

// EvaluateWith runs expr using ctx, filling ctx.Snapshot from the subtree at
// path when it is nil.
func (s *Stock[T]) EvaluateWith(ctx RuleContext, path keypath.Path, expr string) (Response[any], error) {
	if expr == "" {
		return Response[any]{}, fmt.Errorf("stocked: expression must not be empty")
	}
	evaluator, err := s.resolveEvaluator()
	if err != nil {
		return Response[any]{}, err
	}
	path = canonical(path)
	if ctx.Snapshot == nil {
		ctx.Snapshot = s.GetValue(path)
	}
	if ctx.Path == "" {
		ctx.Path = pathLabelOf(path)
	}
	ctx = ctx.withDefaults()

	start := time.Now()
	value, evalErr := evaluator.Evaluate(ctx, expr)
	evalErr = wrapEvaluationError(evaluatorEngineName(evaluator), expr, ctx.pathLabel(), evalErr)
	s.logEvaluation(evaluator, expr, ctx, time.Since(start), evalErr)
	if evalErr != nil {
		return Response[any]{}, evalErr
	}
	return Response[any]{Value: value}, nil
}

// WatchExpression compiles expr once and re-evaluates it against the subtree
// at path after every write that touches path. observer only receives results
// that differ from the previous one. The first result is computed eagerly and
// is not delivered; evaluation errors on later writes are logged and skipped.
func (s *Stock[T]) WatchExpression(path keypath.Path, expr string, observer func(any)) (func(), error) {
	if observer == nil {
		return nil, ErrNilObserver
	}
	if expr == "" {
		return nil, fmt.Errorf("stocked: expression must not be empty")
	}
	evaluator, err := s.resolveEvaluator()
	if err != nil {
		return nil, err
	}
	engine := evaluatorEngineName(evaluator)
	rule, err := evaluator.Compile(expr)
	if err != nil {
		return nil, wrapEvaluationError(engine, expr, pathLabelOf(path), err)
	}

	path = canonical(path)
	run := func(snapshot any) (any, error) {
		ctx := RuleContext{
			Snapshot: snapshot,
			Path:     pathLabelOf(path),
		}.withDefaults()
		start := time.Now()
		value, err := rule.Evaluate(ctx)
		err = wrapEvaluationError(engine, expr, ctx.pathLabel(), err)
		s.logEvaluation(evaluator, expr, ctx, time.Since(start), err)
		return value, err
	}

	last, err := run(s.GetValue(path))
	if err != nil {
		return nil, err
	}
	return s.observers.Watch(path, func(snapshot any) {
		value, err := run(snapshot)
		if err != nil {
			s.log(LogEvent{
				Level:     LogLevelWarn,
				Operation: "stock.watch_expression",
				Path:      path.String(),
				Err:       err,
			})
			return
		}
		if reflect.DeepEqual(last, value) {
			return
		}
		last = value
		observer(value)
	}), nil
}

func (s *Stock[T]) resolveEvaluator() (Evaluator, error) {
	if s.evaluator != nil {
		return s.evaluator, nil
	}
	if s.cfg.engine != nil {
		return nil, ErrNoEvaluator
	}
	s.evaluator = NewExprEvaluator(s.cfg.engineOptions()...)
	return s.evaluator, nil
}

func (s *Stock[T]) logEvaluation(evaluator Evaluator, expr string, ctx RuleContext, duration time.Duration, err error) {
	s.cfg.evaluatorLoggerOrNoop().LogEvaluation(EvaluatorLogEvent{
		Engine:   evaluatorEngineName(evaluator),
		Expr:     expr,
		Path:     ctx.pathLabel(),
		Duration: duration,
		Err:      err,
	})
}

func pathLabelOf(path keypath.Path) string {
	if path.IsRoot() || path.IsEmpty() {
		return ""
	}
	return path.String()
}

type namedEngine interface {
	engine() string
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	if named, ok := e.(namedEngine); ok {
		return named.engine()
	}
	return "custom"
}
