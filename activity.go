package admin

import "github.com/goliatone/go-admin/pkg/activity"

// WithActivityHooks notifies hooks whenever a configuration change is
// published. Nil entries are dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := cloneActivityHooks(hooks)
	return func(cfg *registryConfig) {
		cfg.activityHooks = normalized
	}
}

// WithActivityChannel overrides the channel stamped on emitted events.
func WithActivityChannel(channel string) Option {
	return func(cfg *registryConfig) {
		cfg.activityConfig.Channel = channel
	}
}

func (cfg registryConfig) activityEmitterConfig() activity.Config {
	out := cfg.activityConfig
	out.Enabled = len(cfg.activityHooks) > 0
	return out
}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]activity.ActivityHook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return activity.Hooks(normalized)
}
