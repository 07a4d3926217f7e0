package sim

import (
	"math/rand"

	"github.com/sirupsen/logrus"
)

// HumanForces models grassroots cooperation and spontaneous betrayal.
// Cooperation becomes likelier while kindness holds; betrayal emergence is
// driven by the laws' future-negative-event probability.
type HumanForces struct {
	laws *Laws
	rng  *rand.Rand

	cooperationEvents    int
	spontaneousBetrayals int
}

// NewHumanForces creates the provider with its own RNG stream.
func NewHumanForces(laws *Laws, rng *PartitionedRNG) *HumanForces {
	return &HumanForces{
		laws: laws,
		rng:  rng.ForSubsystem(SubsystemHumanForces),
	}
}

func (h *HumanForces) Name() string { return "human_forces" }

// Apply draws at most one cooperation and one betrayal per tick. Draw order
// is fixed (cooperation first) to keep the RNG stream stable.
func (h *HumanForces) Apply(s *StateVector) ProviderResult {
	res := ProviderResult{Provider: h.Name(), Changes: map[string]float64{}}

	cooperationChance := 0.3 * s.Kindness.Value
	if h.rng.Float64() < cooperationChance {
		magnitude := 0.3 + 0.4*h.rng.Float64()
		ev := &CooperationEvent{
			EventMeta: EventMeta{
				Timestamp:   s.Timestamp,
				Source:      h.Name(),
				Description: "spontaneous cooperation",
			},
			Magnitude:   magnitude,
			Reciprocity: s.Kindness.Value,
		}
		applied := h.laws.ApplyCooperationBoost(s, magnitude)
		h.cooperationEvents++
		res.Events = append(res.Events, ev)
		res.Changes["kindness_boost"] = applied
	}

	p := h.laws.FutureNegativeEventProbability(s)
	if h.rng.Float64() < p*0.5 {
		severity := 0.3 + 0.4*h.rng.Float64()
		ev := &BetrayalEvent{
			EventMeta: EventMeta{
				Timestamp:   s.Timestamp,
				Source:      h.Name(),
				Description: "spontaneous betrayal",
			},
			Severity:   severity,
			Visibility: 0.5,
		}
		changes := h.laws.ApplyBetrayalImpact(s, severity)
		h.spontaneousBetrayals++
		res.Events = append(res.Events, ev)
		res.Changes["trust_change"] = changes["trust_change"]
		logrus.Debugf("human forces: spontaneous betrayal severity=%.2f (p=%.3f)", severity, p)
	}

	return res
}

// Summary returns the provider's observable counters.
func (h *HumanForces) Summary() map[string]any {
	return map[string]any{
		"cooperation_events":    h.cooperationEvents,
		"spontaneous_betrayals": h.spontaneousBetrayals,
	}
}
