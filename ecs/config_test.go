package ecs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/plus3/famecs/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := ecs.DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.InDelta(t, 1.0/60.0, cfg.FixedTimestep, 1e-12)

	logger, err := cfg.NewLogger()
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("ECS_MAX_ENTITIES", "1024")
	t.Setenv("ECS_FIXED_TIMESTEP", "0.02")
	t.Setenv("ECS_REPLICA_AUTHORITY", "true")
	t.Setenv("ECS_LOG_LEVEL", "debug")

	cfg, err := ecs.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 1024, cfg.MaxEntities)
	assert.Equal(t, 0.02, cfg.FixedTimestep)
	assert.True(t, cfg.ReplicaAuthority)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5, cfg.MaxFixedSteps, "unset variables keep their defaults")
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
max_entities: 4096
max_fixed_steps: 2
overlap_render: true
`), 0o600))
	t.Setenv("ECS_MAX_FIXED_STEPS", "3")

	cfg, err := ecs.LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4096, cfg.MaxEntities)
	assert.True(t, cfg.OverlapRender)
	assert.Equal(t, 3, cfg.MaxFixedSteps, "the environment wins over the file")
	assert.Equal(t, 64, cfg.MaxEntityComponents)

	_, err = ecs.LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*ecs.Config)
	}{
		{"entities", func(c *ecs.Config) { c.MaxEntities = 0 }},
		{"components", func(c *ecs.Config) { c.MaxEntityComponents = -1 }},
		{"timestep", func(c *ecs.Config) { c.FixedTimestep = 0 }},
		{"fixed steps", func(c *ecs.Config) { c.MaxFixedSteps = 0 }},
		{"threshold", func(c *ecs.Config) { c.FailureThreshold = 0 }},
		{"log level", func(c *ecs.Config) { c.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := ecs.DefaultConfig()
			tt.modify(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
