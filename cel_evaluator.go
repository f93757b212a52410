package stocked

import (
	"fmt"
	"maps"
	"slices"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common"
	"github.com/google/cel-go/common/ast"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/parser"
)

// celEngine runs CEL programs. CEL needs every variable declared, so a
// program is checked per set of top-level tree keys and cached under that
// set. get(...) and defined(path) expand to lookup/defined over value.
type celEngine struct {
	engineConfig
}

// NewCELEvaluator returns the CEL engine.
func NewCELEvaluator(opts ...EngineOption) Evaluator {
	return &celEngine{engineConfig: newEngineConfig(opts)}
}

func (e *celEngine) engine() string { return EngineCEL }

func (e *celEngine) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

// Compile parses expression up front; type checking waits for the first
// snapshot.
func (e *celEngine) Compile(expression string) (CompiledRule, error) {
	if err := requireExpression(EngineCEL, expression); err != nil {
		return nil, err
	}
	env, err := e.env(nil)
	if err != nil {
		return nil, wrapEvaluatorError(EngineCEL, err)
	}
	if _, issues := env.Parse(expression); issues != nil && issues.Err() != nil {
		return nil, wrapEvaluationError(EngineCEL, expression, "", issues.Err())
	}
	return celRule{engine: e, expression: expression}, nil
}

func (e *celEngine) program(expression string, variables []string) (celgo.Program, error) {
	env, err := e.env(variables)
	if err != nil {
		return nil, err
	}
	checked, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	return env.Program(checked)
}

func (e *celEngine) env(variables []string) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("args", celgo.MapType(celgo.StringType, celgo.DynType)),
		celgo.Variable("metadata", celgo.MapType(celgo.StringType, celgo.DynType)),
		celgo.Variable("path", celgo.StringType),
		celgo.Variable("value", celgo.DynType),
		celgo.Macros(celPathMacros...),
		celgo.Function(fnLookup,
			celgo.Overload("stocked_lookup_dyn_string", []*celgo.Type{celgo.DynType, celgo.StringType}, celgo.DynType,
				celgo.BinaryBinding(func(tree, p ref.Val) ref.Val {
					return celResult(lookupValue(tree.Value(), p.Value()))
				})),
			celgo.Overload("stocked_lookup_dyn_string_dyn", []*celgo.Type{celgo.DynType, celgo.StringType, celgo.DynType}, celgo.DynType,
				celgo.FunctionBinding(func(values ...ref.Val) ref.Val {
					return celResult(lookupValue(values[0].Value(), values[1].Value(), values[2].Value()))
				})),
		),
		celgo.Function(fnDefined,
			celgo.Overload("stocked_defined_dyn_string", []*celgo.Type{celgo.DynType, celgo.StringType}, celgo.BoolType,
				celgo.BinaryBinding(func(tree, p ref.Val) ref.Val {
					found, err := definedValue(tree.Value(), p.Value())
					if err != nil {
						return types.NewErr("%s", err.Error())
					}
					return types.Bool(found)
				})),
		),
	}
	if e.functions != nil {
		opts = append(opts, celgo.Function(fnCall, e.callOverloads()...))
		for _, name := range e.functions.Names() {
			opts = append(opts, celgo.Function(name, e.namedOverloads(name)...))
		}
	}
	for _, name := range variables {
		opts = append(opts, celgo.Variable(name, celgo.DynType))
	}
	return celgo.NewEnv(opts...)
}

// celMaxArgs bounds the arity declared for custom functions; CEL has no
// variadic declarations.
const celMaxArgs = 4

// namedOverloads declares name(dyn, ...) for zero to celMaxArgs arguments.
func (e *celEngine) namedOverloads(name string) []celgo.FunctionOpt {
	binding := celgo.FunctionBinding(func(values ...ref.Val) ref.Val {
		return celResult(e.functions.Call(name, celNatives(values)...))
	})
	overloads := make([]celgo.FunctionOpt, 0, celMaxArgs+1)
	for n := 0; n <= celMaxArgs; n++ {
		overloads = append(overloads, celgo.Overload(fmt.Sprintf("stocked_%s_%d", name, n), slices.Repeat([]*celgo.Type{celgo.DynType}, n), celgo.DynType, binding))
	}
	return overloads
}

// callOverloads declares call(name, dyn, ...) for dynamic dispatch by name.
func (e *celEngine) callOverloads() []celgo.FunctionOpt {
	binding := celgo.FunctionBinding(func(values ...ref.Val) ref.Val {
		name, ok := values[0].Value().(string)
		if !ok {
			return types.NewErr("stocked: call name must be a string")
		}
		return celResult(e.functions.Call(name, celNatives(values[1:])...))
	})
	overloads := make([]celgo.FunctionOpt, 0, celMaxArgs+1)
	for n := 0; n <= celMaxArgs; n++ {
		args := append([]*celgo.Type{celgo.StringType}, slices.Repeat([]*celgo.Type{celgo.DynType}, n)...)
		overloads = append(overloads, celgo.Overload(fmt.Sprintf("stocked_call_%d", n), args, celgo.DynType, binding))
	}
	return overloads
}

var celPathMacros = []celgo.Macro{
	parser.NewGlobalMacro(fnGet, 1, expandOverValue(fnLookup)),
	parser.NewGlobalMacro(fnGet, 2, expandOverValue(fnLookup)),
	parser.NewGlobalMacro(fnDefined, 1, expandOverValue(fnDefined)),
}

// expandOverValue rewrites fn(args...) into function(value, args...).
func expandOverValue(function string) parser.MacroExpander {
	return func(eh parser.ExprHelper, _ ast.Expr, args []ast.Expr) (ast.Expr, *common.Error) {
		return eh.NewCall(function, append([]ast.Expr{eh.NewIdent("value")}, args...)...), nil
	}
}

func celNatives(values []ref.Val) []any {
	out := make([]any, len(values))
	for i, value := range values {
		out[i] = value.Value()
	}
	return out
}

func celResult(value any, err error) ref.Val {
	if err != nil {
		return types.NewErr("%s", err.Error())
	}
	if value == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(value)
}

// treeVariables lists the top-level keys of a map snapshot that CEL can
// declare as variables.
func treeVariables(snapshot any) []string {
	tree, ok := snapshot.(map[string]any)
	if !ok {
		return nil
	}
	var names []string
	for _, name := range slices.Sorted(maps.Keys(tree)) {
		if _, reserved := celReserved[name]; reserved || !isIdentifier(name) {
			continue
		}
		names = append(names, name)
	}
	return names
}

var celReserved = map[string]struct{}{
	"now": {}, "args": {}, "metadata": {}, "path": {}, "value": {},
	"true": {}, "false": {}, "null": {}, "in": {}, "as": {}, "break": {}, "const": {},
	"continue": {}, "else": {}, "for": {}, "function": {}, "if": {}, "import": {},
	"let": {}, "loop": {}, "package": {}, "namespace": {}, "return": {}, "var": {},
	"void": {}, "while": {},
}

type celRule struct {
	engine     *celEngine
	expression string
}

func (r celRule) Evaluate(ctx RuleContext) (any, error) {
	ctx = ctx.withDefaults()
	variables := treeVariables(ctx.Snapshot)
	program, err := compiled(r.engine.cache, programKey(EngineCEL, r.expression, variables...), func() (celgo.Program, error) {
		return r.engine.program(r.expression, variables)
	})
	if err != nil {
		return nil, wrapEvaluationError(EngineCEL, r.expression, ctx.pathLabel(), err)
	}
	out, _, err := program.Eval(ctx.bindings())
	if err != nil {
		return nil, wrapEvaluationError(EngineCEL, r.expression, ctx.pathLabel(), err)
	}
	if out.Type() == types.NullType {
		return nil, nil
	}
	return out.Value(), nil
}
