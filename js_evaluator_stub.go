//go:build !js_eval

package stocked

// NewJSEvaluator returns nil without the js_eval build tag.
func NewJSEvaluator(...EngineOption) Evaluator {
	return nil
}

func jsEvaluatorAvailable() bool {
	return false
}
