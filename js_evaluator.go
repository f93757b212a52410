//go:build js_eval

package stocked

import (
	"fmt"

	"github.com/dop251/goja"
)

// jsEngine runs expressions as JavaScript on goja. Each evaluation gets a
// fresh runtime; only the compiled program is shared.
type jsEngine struct {
	engineConfig
}

// NewJSEvaluator returns the goja engine.
func NewJSEvaluator(opts ...EngineOption) Evaluator {
	return &jsEngine{engineConfig: newEngineConfig(opts)}
}

func (e *jsEngine) engine() string { return EngineJS }

func (e *jsEngine) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

func (e *jsEngine) Compile(expression string) (CompiledRule, error) {
	if err := requireExpression(EngineJS, expression); err != nil {
		return nil, err
	}
	program, err := compiled(e.cache, programKey(EngineJS, expression), func() (*goja.Program, error) {
		return goja.Compile("expression", fmt.Sprintf("(function(){ return (%s); })()", expression), false)
	})
	if err != nil {
		return nil, wrapEvaluationError(EngineJS, expression, "", err)
	}
	return jsRule{engine: e, program: program, expression: expression}, nil
}

func (e *jsEngine) install(vm *goja.Runtime, ctx RuleContext) error {
	globals := ctx.bindings()
	for name, fn := range pathFunctions(ctx.Snapshot) {
		globals[name] = (func(...any) (any, error))(fn)
	}
	if e.functions != nil {
		globals[fnCall] = func(name string, args ...any) (any, error) {
			return e.functions.Call(name, args...)
		}
		for _, name := range e.functions.Names() {
			fn, _ := e.functions.Lookup(name)
			globals[name] = (func(...any) (any, error))(fn)
		}
	}
	for name, value := range globals {
		if err := vm.Set(name, value); err != nil {
			return err
		}
	}
	return nil
}

type jsRule struct {
	engine     *jsEngine
	program    *goja.Program
	expression string
}

func (r jsRule) Evaluate(ctx RuleContext) (any, error) {
	ctx = ctx.withDefaults()
	vm := goja.New()
	if err := r.engine.install(vm, ctx); err != nil {
		return nil, wrapEvaluatorError(EngineJS, err)
	}
	value, err := vm.RunProgram(r.program)
	if err != nil {
		return nil, wrapEvaluationError(EngineJS, r.expression, ctx.pathLabel(), err)
	}
	return value.Export(), nil
}

func jsEvaluatorAvailable() bool {
	return true
}
