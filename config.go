package stocked

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goliatone/go-stocked/pkg/activity"
)

// Evaluator engine names accepted by Config.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// Config is the serialisable form of the stock options.
type Config struct {
	Name      string           `json:"name"`
	Evaluator string           `json:"evaluator"`
	Activity  *activity.Config `json:"activity,omitempty"`
}

// DefaultConfig returns the configuration New applies without options.
func DefaultConfig() Config {
	return Config{
		Name:      "stock",
		Evaluator: EngineExpr,
		Activity:  &activity.Config{Enabled: true, Channel: activity.DefaultChannel},
	}
}

// Merge returns c overridden by the non-zero fields of other.
func (c Config) Merge(other Config) Config {
	out := c
	if name := strings.TrimSpace(other.Name); name != "" {
		out.Name = name
	}
	if engine := strings.TrimSpace(other.Evaluator); engine != "" {
		out.Evaluator = engine
	}
	if other.Activity != nil {
		activityCfg := *other.Activity
		out.Activity = &activityCfg
	}
	return out
}

// DecodeConfig reads a JSON document and merges it over DefaultConfig.
func DecodeConfig(data []byte) (Config, error) {
	var parsed Config
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&parsed); err != nil {
		return Config{}, fmt.Errorf("stocked: decode config: %w", err)
	}
	return DefaultConfig().Merge(parsed), nil
}

// Options converts the configuration into stock options. The program cache
// and function registry are shared with whichever engine is selected.
func (c Config) Options(extra ...Option) ([]Option, error) {
	opts := []Option{WithName(c.Name)}
	if c.Activity != nil {
		opts = append(opts, WithActivityConfig(*c.Activity))
	}
	if engine := strings.ToLower(strings.TrimSpace(c.Evaluator)); engine != "" && engine != EngineExpr {
		switch engine {
		case EngineCEL:
			opts = append(opts, withEngine(func(cfg stockConfig) Evaluator {
				return NewCELEvaluator(cfg.engineOptions()...)
			}))
		case EngineJS:
			if !jsEvaluatorAvailable() {
				return nil, fmt.Errorf("stocked: evaluator %q requires the js_eval build tag", engine)
			}
			opts = append(opts, withEngine(func(cfg stockConfig) Evaluator {
				return NewJSEvaluator(cfg.engineOptions()...)
			}))
		default:
			return nil, fmt.Errorf("stocked: unknown evaluator %q", c.Evaluator)
		}
	}
	return append(opts, extra...), nil
}

// withEngine defers evaluator construction until every option has been
// applied, so the cache and registry options may appear in any order.
func withEngine(build func(stockConfig) Evaluator) Option {
	return func(cfg *stockConfig) {
		cfg.engine = build
	}
}

// NewFromConfig builds a stock from cfg. extra options apply after the
// configured ones.
func NewFromConfig[T any](initial T, cfg Config, extra ...Option) (*Stock[T], error) {
	opts, err := DefaultConfig().Merge(cfg).Options(extra...)
	if err != nil {
		return nil, err
	}
	return New(initial, opts...), nil
}
