package sim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SimulationConfig groups the run-level parameters.
type SimulationConfig struct {
	TimeStep         float64 `yaml:"time_step"`         // clock advance per tick (must be > 0)
	MaxTicks         int64   `yaml:"max_ticks"`         // terminal condition (must be > 0)
	SnapshotInterval int64   `yaml:"snapshot_interval"` // ledger snapshot cadence in ticks
}

// LawConfig groups every irreversibility-law coefficient. All rates are per
// tick and all impacts are absolute dimension deltas before clamping.
type LawConfig struct {
	TrustDecayRate       float64 `yaml:"trust_decay_rate"`
	KindnessDecayRate    float64 `yaml:"kindness_decay_rate"`
	LegitimacyDecayRate  float64 `yaml:"legitimacy_decay_rate"`
	EpistemicDecayRate   float64 `yaml:"epistemic_decay_rate"`
	MoralInjuryDecayRate float64 `yaml:"moral_injury_decay_rate"`

	BetrayalTrustImpact       float64 `yaml:"betrayal_trust_impact"`
	BetrayalCeilingReduction  float64 `yaml:"betrayal_ceiling_reduction"`
	KindnessCooperationBoost  float64 `yaml:"kindness_cooperation_boost"`
	BrokenPromiseImpact       float64 `yaml:"broken_promise_impact"`
	InstitutionalFailImpact   float64 `yaml:"institutional_failure_impact"`
	ManipulationImpact        float64 `yaml:"manipulation_impact"`
	ViolationSeverityBase     float64 `yaml:"violation_severity_base"`
	KindnessSingularityThresh float64 `yaml:"kindness_singularity_threshold"`
	LegitimacyRecoveryLimit   float64 `yaml:"legitimacy_recovery_limit"`
	MoralInjuryThreshold      float64 `yaml:"moral_injury_threshold"`

	BetrayalProbBase             float64 `yaml:"betrayal_prob_base"`
	BetrayalProbTrustFactor      float64 `yaml:"betrayal_prob_trust_factor"`
	BetrayalProbLegitimacyFactor float64 `yaml:"betrayal_prob_legitimacy_factor"`
	BetrayalProbMoralFactor      float64 `yaml:"betrayal_prob_moral_factor"`
}

// CollapseThresholds names the five automatic collapse triggers.
type CollapseThresholds struct {
	TrustCollapse       float64 `yaml:"trust_collapse"`
	KindnessSingularity float64 `yaml:"kindness_singularity"`
	MoralInjuryCritical float64 `yaml:"moral_injury_critical"`
	LegitimacyFailure   float64 `yaml:"legitimacy_failure"`
	EpistemicCollapse   float64 `yaml:"epistemic_collapse"`
}

// OutcomeThresholds parameterize final outcome classification.
type OutcomeThresholds struct {
	SurvivorTrust        float64 `yaml:"survivor_trust"`
	SurvivorLegitimacy   float64 `yaml:"survivor_legitimacy"`
	KindnessPreservation float64 `yaml:"kindness_preservation"`
	MoralInjuryCritical  float64 `yaml:"moral_injury_critical"`
}

// Thresholds groups collapse and outcome thresholds.
type Thresholds struct {
	Collapse CollapseThresholds `yaml:"collapse"`
	Outcome  OutcomeThresholds  `yaml:"outcome"`
}

// CollapseConfig controls post-collapse decay acceleration.
type CollapseConfig struct {
	AccelerationEnabled bool    `yaml:"acceleration_enabled"`
	AccelerationFactor  float64 `yaml:"acceleration_factor"`
}

// FeatureConfig toggles optional subsystems.
type FeatureConfig struct {
	// BlackVault enables red-team fingerprint deduplication.
	BlackVault bool `yaml:"black_vault"`
	// Dynamics enables the per-tick dynamics providers. Disable for
	// pure-injection scenarios that must be replayed exactly.
	Dynamics bool `yaml:"dynamics"`
	// LedgerStateBlobs embeds full state serializations in exported ledgers.
	LedgerStateBlobs bool `yaml:"ledger_state_blobs"`
	// ScheduledCollapses enables processing of explicitly scheduled collapses.
	ScheduledCollapses bool `yaml:"scheduled_collapses"`
}

// Config is the full engine configuration. Unknown YAML fields are ignored;
// missing fields take the DefaultConfig values.
type Config struct {
	SimulationName string `yaml:"simulation_name"`
	LogLevel       string `yaml:"log_level"`
	Seed           int64  `yaml:"seed"`

	Simulation SimulationConfig `yaml:"simulation"`
	Laws       LawConfig        `yaml:"laws"`
	Thresholds Thresholds       `yaml:"thresholds"`
	Collapse   CollapseConfig   `yaml:"collapse"`
	Features   FeatureConfig    `yaml:"features"`
}

// DefaultConfig returns the documented defaults for every field.
func DefaultConfig() Config {
	return Config{
		SimulationName: "collapse-sim",
		LogLevel:       "info",
		Seed:           42,
		Simulation: SimulationConfig{
			TimeStep:         1.0,
			MaxTicks:         1000,
			SnapshotInterval: 10,
		},
		Laws: LawConfig{
			TrustDecayRate:       0.02,
			KindnessDecayRate:    0.015,
			LegitimacyDecayRate:  0.01,
			EpistemicDecayRate:   0.01,
			MoralInjuryDecayRate: 0.001,

			BetrayalTrustImpact:       0.2,
			BetrayalCeilingReduction:  0.15,
			KindnessCooperationBoost:  0.1,
			BrokenPromiseImpact:       0.1,
			InstitutionalFailImpact:   0.15,
			ManipulationImpact:        0.08,
			ViolationSeverityBase:     0.1,
			KindnessSingularityThresh: 0.2,
			LegitimacyRecoveryLimit:   0.3,
			MoralInjuryThreshold:      0.7,

			BetrayalProbBase:             0.05,
			BetrayalProbTrustFactor:      0.3,
			BetrayalProbLegitimacyFactor: 0.2,
			BetrayalProbMoralFactor:      0.25,
		},
		Thresholds: Thresholds{
			Collapse: CollapseThresholds{
				TrustCollapse:       0.2,
				KindnessSingularity: 0.2,
				MoralInjuryCritical: 0.8,
				LegitimacyFailure:   0.15,
				EpistemicCollapse:   0.25,
			},
			Outcome: OutcomeThresholds{
				SurvivorTrust:        0.5,
				SurvivorLegitimacy:   0.4,
				KindnessPreservation: 0.5,
				MoralInjuryCritical:  0.6,
			},
		},
		Collapse: CollapseConfig{
			AccelerationEnabled: true,
			AccelerationFactor:  2.0,
		},
		Features: FeatureConfig{
			BlackVault:         true,
			Dynamics:           true,
			LedgerStateBlobs:   false,
			ScheduledCollapses: true,
		},
	}
}

// Validate reports configuration errors. A failing config leaves the engine
// uninitialized.
func (c *Config) Validate() error {
	if c.Simulation.TimeStep <= 0 {
		return fmt.Errorf("simulation.time_step must be > 0, got %v", c.Simulation.TimeStep)
	}
	if c.Simulation.MaxTicks <= 0 {
		return fmt.Errorf("simulation.max_ticks must be > 0, got %d", c.Simulation.MaxTicks)
	}
	if c.Simulation.SnapshotInterval <= 0 {
		return fmt.Errorf("simulation.snapshot_interval must be > 0, got %d", c.Simulation.SnapshotInterval)
	}
	rates := map[string]float64{
		"laws.trust_decay_rate":        c.Laws.TrustDecayRate,
		"laws.kindness_decay_rate":     c.Laws.KindnessDecayRate,
		"laws.legitimacy_decay_rate":   c.Laws.LegitimacyDecayRate,
		"laws.epistemic_decay_rate":    c.Laws.EpistemicDecayRate,
		"laws.moral_injury_decay_rate": c.Laws.MoralInjuryDecayRate,
	}
	for name, r := range rates {
		if r < 0 || r >= 1 {
			return fmt.Errorf("%s must be in [0, 1), got %v", name, r)
		}
	}
	thresholds := map[string]float64{
		"thresholds.collapse.trust_collapse":        c.Thresholds.Collapse.TrustCollapse,
		"thresholds.collapse.kindness_singularity":  c.Thresholds.Collapse.KindnessSingularity,
		"thresholds.collapse.moral_injury_critical": c.Thresholds.Collapse.MoralInjuryCritical,
		"thresholds.collapse.legitimacy_failure":    c.Thresholds.Collapse.LegitimacyFailure,
		"thresholds.collapse.epistemic_collapse":    c.Thresholds.Collapse.EpistemicCollapse,
	}
	for name, t := range thresholds {
		if t <= 0 || t >= 1 {
			return fmt.Errorf("%s must be in (0, 1), got %v", name, t)
		}
	}
	if c.Collapse.AccelerationEnabled && c.Collapse.AccelerationFactor < 1 {
		return fmt.Errorf("collapse.acceleration_factor must be >= 1, got %v", c.Collapse.AccelerationFactor)
	}
	return nil
}

// LoadConfig reads a YAML config file over the defaults: missing fields keep
// their default values, unrecognized fields are ignored.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
