package stocked

import (
	"fmt"

	"github.com/goliatone/go-stocked/pkg/keypath"
)

// Path functions every engine exposes next to the bindings:
//
//	get(path)               value at path inside the evaluated subtree, or null
//	get(path, fallback)     fallback when nothing is stored at path
//	defined(path)           whether anything is stored at path
//	lookup(tree, path)      get against an explicit tree
//	defined(tree, path)     defined against an explicit tree
//
// Paths use the keypath syntax, so "items[0].price" and "items.0.price" read
// the same value.
const (
	fnGet     = "get"
	fnDefined = "defined"
	fnLookup  = "lookup"
	fnCall    = "call"
)

// reservedNames cannot be registered as custom functions.
var reservedNames = map[string]struct{}{
	"now": {}, "args": {}, "metadata": {}, "path": {}, "value": {},
	fnGet: {}, fnDefined: {}, fnLookup: {}, fnCall: {},
}

func resolvePath(tree, raw any) (any, bool, error) {
	text, ok := raw.(string)
	if !ok {
		return nil, false, fmt.Errorf("stocked: path must be a string, got %T", raw)
	}
	p, err := keypath.Parse(text)
	if err != nil {
		return nil, false, err
	}
	value, found := keypath.Get(tree, p)
	return value, found, nil
}

func lookupValue(tree any, args ...any) (any, error) {
	if len(args) < 1 || len(args) > 2 {
		return nil, fmt.Errorf("stocked: lookup expects a path and an optional fallback, got %d arguments", len(args))
	}
	value, found, err := resolvePath(tree, args[0])
	if err != nil {
		return nil, err
	}
	if !found && len(args) == 2 {
		return args[1], nil
	}
	return value, nil
}

func definedValue(tree, raw any) (bool, error) {
	_, found, err := resolvePath(tree, raw)
	return found, err
}

// pathFunctions binds the path functions to snapshot for one evaluation.
func pathFunctions(snapshot any) map[string]Function {
	return map[string]Function{
		fnGet: func(args ...any) (any, error) {
			return lookupValue(snapshot, args...)
		},
		fnLookup: func(args ...any) (any, error) {
			if len(args) < 2 {
				return nil, fmt.Errorf("stocked: lookup expects a tree and a path")
			}
			return lookupValue(args[0], args[1:]...)
		},
		fnDefined: func(args ...any) (any, error) {
			switch len(args) {
			case 1:
				return definedValue(snapshot, args[0])
			case 2:
				return definedValue(args[0], args[1])
			default:
				return nil, fmt.Errorf("stocked: defined expects a path and an optional tree, got %d arguments", len(args))
			}
		},
	}
}
