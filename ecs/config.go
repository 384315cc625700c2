package ecs

import (
	"os"

	jlconfig "github.com/JeremyLoy/config"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config tunes a World. Fields load from YAML and from ECS_* environment variables.
type Config struct {
	// MaxEntities bounds the entity arena. Running out panics with ErrPoolExhausted.
	MaxEntities int `yaml:"max_entities" config:"ECS_MAX_ENTITIES"`
	// MaxEntityComponents bounds the live components on one entity.
	MaxEntityComponents int `yaml:"max_entity_components" config:"ECS_MAX_ENTITY_COMPONENTS"`
	// FixedTimestep is the FixedUpdate period in seconds.
	FixedTimestep float64 `yaml:"fixed_timestep" config:"ECS_FIXED_TIMESTEP"`
	// MaxFixedSteps caps the FixedUpdate catch-up per Step; the rest is dropped.
	MaxFixedSteps int `yaml:"max_fixed_steps" config:"ECS_MAX_FIXED_STEPS"`
	// FailureThreshold is the number of consecutive failing frames after which a
	// system is reported as effectively dead.
	FailureThreshold int `yaml:"failure_threshold" config:"ECS_FAILURE_THRESHOLD"`
	// ReplicaAuthority allows destroying replicated entities locally.
	ReplicaAuthority bool `yaml:"replica_authority" config:"ECS_REPLICA_AUTHORITY"`
	// OverlapRender lets the frame driver render the previous frame while the
	// next one updates.
	OverlapRender bool   `yaml:"overlap_render" config:"ECS_OVERLAP_RENDER"`
	LogLevel      string `yaml:"log_level" config:"ECS_LOG_LEVEL"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		MaxEntities:         1 << 20,
		MaxEntityComponents: 64,
		FixedTimestep:       1.0 / 60.0,
		MaxFixedSteps:       5,
		FailureThreshold:    120,
		LogLevel:            "info",
	}
}

// LoadConfig returns the defaults overlaid with environment variables.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if err := jlconfig.FromEnv().To(&cfg); err != nil {
		return cfg, eris.Wrap(err, "load config from env")
	}
	return cfg, cfg.Validate()
}

// LoadConfigFile decodes a YAML file over the defaults, then overlays the environment.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, eris.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, eris.Wrapf(err, "decode config %s", path)
	}
	if err := jlconfig.FromEnv().To(&cfg); err != nil {
		return cfg, eris.Wrap(err, "load config from env")
	}
	return cfg, cfg.Validate()
}

// Validate rejects unusable values.
func (c Config) Validate() error {
	switch {
	case c.MaxEntities <= 0:
		return eris.Errorf("max_entities must be positive, got %d", c.MaxEntities)
	case c.MaxEntityComponents <= 0:
		return eris.Errorf("max_entity_components must be positive, got %d", c.MaxEntityComponents)
	case c.FixedTimestep <= 0:
		return eris.Errorf("fixed_timestep must be positive, got %g", c.FixedTimestep)
	case c.MaxFixedSteps <= 0:
		return eris.Errorf("max_fixed_steps must be positive, got %d", c.MaxFixedSteps)
	case c.FailureThreshold <= 0:
		return eris.Errorf("failure_threshold must be positive, got %d", c.FailureThreshold)
	}
	if _, err := zap.ParseAtomicLevel(c.LogLevel); err != nil {
		return eris.Wrapf(err, "log_level %q", c.LogLevel)
	}
	return nil
}

// NewLogger builds a JSON production logger at the configured level.
func (c Config) NewLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.LogLevel)
	if err != nil {
		return nil, eris.Wrapf(err, "log_level %q", c.LogLevel)
	}
	cfg := zap.Config{
		Level:       level,
		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
		DisableCaller:    true,
	}
	return cfg.Build()
}
