package stocked

import (
	"fmt"
	"strings"
)

// EngineOption configures an expression engine built by NewExprEvaluator,
// NewCELEvaluator or NewJSEvaluator.
type EngineOption func(*engineConfig)

type engineConfig struct {
	cache     ProgramCache
	functions *FunctionRegistry
}

// EngineCache stores compiled programs in cache. Entries are keyed per
// engine, so one cache can back several engines.
func EngineCache(cache ProgramCache) EngineOption {
	return func(cfg *engineConfig) {
		cfg.cache = cache
	}
}

// EngineFunctions exposes a copy of registry to expressions.
func EngineFunctions(registry *FunctionRegistry) EngineOption {
	return func(cfg *engineConfig) {
		cfg.functions = registry.Clone()
	}
}

func newEngineConfig(opts []EngineOption) engineConfig {
	var cfg engineConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// engineOptions hands the stock's cache and registry to whichever engine the
// stock builds.
func (cfg stockConfig) engineOptions() []EngineOption {
	return []EngineOption{EngineCache(cfg.programCache), EngineFunctions(cfg.functions)}
}

// compiled returns the program cached under key, compiling and storing it on
// a miss.
func compiled[P any](cache ProgramCache, key string, compile func() (P, error)) (P, error) {
	if cache != nil {
		if cached, ok := cache.Get(key); ok {
			if program, ok := cached.(P); ok {
				return program, nil
			}
		}
	}
	program, err := compile()
	if err != nil {
		var zero P
		return zero, err
	}
	if cache != nil {
		cache.Set(key, program)
	}
	return program, nil
}

func programKey(engine, expression string, qualifiers ...string) string {
	key := engine + "\x00" + expression
	if len(qualifiers) > 0 {
		key += "\x00" + strings.Join(qualifiers, ",")
	}
	return key
}

func requireExpression(engine, expression string) error {
	if strings.TrimSpace(expression) == "" {
		return wrapEvaluatorError(engine, fmt.Errorf("expression must not be empty"))
	}
	return nil
}
