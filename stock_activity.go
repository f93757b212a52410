package stocked

import (
	"strings"

	"github.com/goliatone/go-stocked/pkg/activity"
)

// WithActivityHooks attaches hooks notified after every mutation. Nil entries
// are dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := hooks.Clone()
	return func(cfg *stockConfig) {
		cfg.activityHooks = normalized
	}
}

// WithActivityConfig controls whether events are emitted and on which channel.
func WithActivityConfig(config activity.Config) Option {
	return func(cfg *stockConfig) {
		config.Channel = strings.TrimSpace(config.Channel)
		if config.Channel == "" {
			config.Channel = activity.DefaultChannel
		}
		cfg.activityConfig = config
	}
}

// ActivityHooks returns a copy of the configured hooks.
func (s *Stock[T]) ActivityHooks() activity.Hooks {
	if s == nil {
		return nil
	}
	return s.cfg.activityHooks.Clone()
}
