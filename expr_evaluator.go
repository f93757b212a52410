package stocked

import (
	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// exprEngine runs github.com/expr-lang/expr programs. Programs are checked
// against the path functions and custom functions; tree variables stay
// dynamic, so one program serves every snapshot.
type exprEngine struct {
	engineConfig
}

// NewExprEvaluator returns the expr engine, the default for every stock.
func NewExprEvaluator(opts ...EngineOption) Evaluator {
	return &exprEngine{engineConfig: newEngineConfig(opts)}
}

func (e *exprEngine) engine() string { return EngineExpr }

func (e *exprEngine) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

func (e *exprEngine) Compile(expression string) (CompiledRule, error) {
	if err := requireExpression(EngineExpr, expression); err != nil {
		return nil, err
	}
	program, err := compiled(e.cache, programKey(EngineExpr, expression), func() (*exprvm.Program, error) {
		return exprlang.Compile(expression, e.compileOptions()...)
	})
	if err != nil {
		return nil, wrapEvaluationError(EngineExpr, expression, "", err)
	}
	return exprRule{engine: e, program: program, expression: expression}, nil
}

// compileOptions declares the path functions with their Go signature (expr's
// own get builtin is replaced) and registers custom functions natively.
func (e *exprEngine) compileOptions() []exprlang.Option {
	declared := map[string]any{}
	for name := range pathFunctions(nil) {
		declared[name] = Function(nil)
	}
	if e.functions != nil {
		declared[fnCall] = (func(string, ...any) (any, error))(nil)
	}
	opts := []exprlang.Option{
		exprlang.Env(declared),
		exprlang.AllowUndefinedVariables(),
		exprlang.DisableBuiltin(fnGet),
	}
	for _, name := range e.functions.Names() {
		if fn, ok := e.functions.Lookup(name); ok {
			opts = append(opts, exprlang.Function(name, fn))
		}
	}
	return opts
}

func (e *exprEngine) environment(ctx RuleContext) map[string]any {
	env := ctx.bindings()
	for name, fn := range pathFunctions(ctx.Snapshot) {
		env[name] = fn
	}
	if e.functions != nil {
		env[fnCall] = func(name string, args ...any) (any, error) {
			return e.functions.Call(name, args...)
		}
	}
	return env
}

type exprRule struct {
	engine     *exprEngine
	program    *exprvm.Program
	expression string
}

func (r exprRule) Evaluate(ctx RuleContext) (any, error) {
	ctx = ctx.withDefaults()
	result, err := exprlang.Run(r.program, r.engine.environment(ctx))
	if err != nil {
		return nil, wrapEvaluationError(EngineExpr, r.expression, ctx.pathLabel(), err)
	}
	return result, nil
}
