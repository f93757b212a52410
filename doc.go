// Package stocked is a path-addressable, observable value store.
//
// A Stock owns one value tree. Values are read, written and watched at
// nested paths (see pkg/keypath for the path syntax). A write notifies every
// observer whose path is the written path, an ancestor of it or a descendant
// of it, plus every batch observer exactly once:
//
//	stock := stocked.New(map[string]any{"user": map[string]any{"name": "ada"}})
//	stop := stock.Watch(keypath.MustParse("user"), func(v any) { fmt.Println(v) })
//	defer stop()
//	_ = stock.SetValue(keypath.MustParse("user.name"), "grace")
//
// Writes are copy-on-write: a tree returned by GetValues or passed to an
// observer is never modified by later writes.
//
// Proxies reshape a stock for a consumer. A MappingProxy maps virtual paths
// under a mount onto scattered underlying paths; Bind layers a proxy over any
// Source and returns a View, which is itself a Source.
//
// Expressions (expr by default, CEL, or JavaScript with the js_eval build tag)
// can be evaluated against the tree with Evaluate, EvaluateAt and
// WatchExpression.
package stocked
