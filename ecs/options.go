package ecs

import "go.uber.org/zap"

// Option configures a World.
type Option func(*World)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(w *World) {
		w.cfg = cfg
	}
}

// WithLogger sets the world's logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(w *World) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithResources sets the provider used by SpawnPrefab.
func WithResources(resources Resources) Option {
	return func(w *World) {
		w.resources = resources
	}
}

// WithUncaughtHandler sets the handler receiving per-system failures. The default
// logs them.
func WithUncaughtHandler(handler UncaughtHandler) Option {
	return func(w *World) {
		w.uncaught = handler
	}
}
