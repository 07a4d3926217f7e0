package sim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero time step", func(c *Config) { c.Simulation.TimeStep = 0 }},
		{"negative max ticks", func(c *Config) { c.Simulation.MaxTicks = -1 }},
		{"zero snapshot interval", func(c *Config) { c.Simulation.SnapshotInterval = 0 }},
		{"decay rate at 1", func(c *Config) { c.Laws.TrustDecayRate = 1.0 }},
		{"negative decay rate", func(c *Config) { c.Laws.KindnessDecayRate = -0.1 }},
		{"threshold at 0", func(c *Config) { c.Thresholds.Collapse.TrustCollapse = 0 }},
		{"threshold at 1", func(c *Config) { c.Thresholds.Collapse.MoralInjuryCritical = 1.0 }},
		{"acceleration below 1", func(c *Config) { c.Collapse.AccelerationFactor = 0.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadConfig_MergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
seed: 7
simulation:
  max_ticks: 250
laws:
  trust_decay_rate: 0.05
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	// Overridden fields
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, int64(250), cfg.Simulation.MaxTicks)
	assert.InDelta(t, 0.05, cfg.Laws.TrustDecayRate, 1e-12)

	// Untouched fields keep their defaults
	assert.InDelta(t, 1.0, cfg.Simulation.TimeStep, 1e-12)
	assert.InDelta(t, 0.015, cfg.Laws.KindnessDecayRate, 1e-12)
	assert.Equal(t, "collapse-sim", cfg.SimulationName)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("seed: [not a number"), 0o644))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}
