package sim

import (
	"math/rand"

	"github.com/sirupsen/logrus"
)

// campaign is an active information-manipulation operation.
type campaign struct {
	Reach          float64
	Sophistication float64
	TicksLeft      int
}

// PerceptionWarfare runs information-manipulation campaigns that degrade
// epistemic confidence while active. New campaigns launch probabilistically,
// likelier as confidence already erodes.
type PerceptionWarfare struct {
	laws *Laws
	rng  *rand.Rand

	campaigns []campaign
	launched  int
}

// NewPerceptionWarfare creates the provider with its own RNG stream.
func NewPerceptionWarfare(laws *Laws, rng *PartitionedRNG) *PerceptionWarfare {
	return &PerceptionWarfare{
		laws: laws,
		rng:  rng.ForSubsystem(SubsystemPerceptionWarfare),
	}
}

func (pw *PerceptionWarfare) Name() string { return "perception_warfare" }

// Apply progresses active campaigns then rolls for a new launch.
func (pw *PerceptionWarfare) Apply(s *StateVector) ProviderResult {
	res := ProviderResult{Provider: pw.Name(), Changes: map[string]float64{}}

	remaining := pw.campaigns[:0]
	var totalDamage float64
	for _, c := range pw.campaigns {
		changes := pw.laws.ApplyManipulationImpact(s, c.Reach, c.Sophistication)
		totalDamage += changes["epistemic_change"]
		ev := &ManipulationEvent{
			EventMeta: EventMeta{
				Timestamp:   s.Timestamp,
				Source:      pw.Name(),
				Description: "manipulation campaign wave",
			},
			Reach:          c.Reach,
			Sophistication: c.Sophistication,
		}
		res.Events = append(res.Events, ev)
		c.TicksLeft--
		if c.TicksLeft > 0 {
			remaining = append(remaining, c)
		}
	}
	pw.campaigns = remaining
	if totalDamage != 0 {
		res.Changes["epistemic_change"] = totalDamage
	}

	launchChance := 0.05 + 0.1*(1.0-s.EpistemicConfidence.Value)
	if pw.rng.Float64() < launchChance {
		c := campaign{
			Reach:          0.3 + 0.5*pw.rng.Float64(),
			Sophistication: 0.3 + 0.6*pw.rng.Float64(),
			TicksLeft:      3 + pw.rng.Intn(5),
		}
		pw.campaigns = append(pw.campaigns, c)
		pw.launched++
		res.Changes["campaigns_active"] = float64(len(pw.campaigns))
		logrus.Debugf("perception warfare: campaign launched reach=%.2f sophistication=%.2f duration=%d",
			c.Reach, c.Sophistication, c.TicksLeft)
	}

	return res
}

// Summary returns the provider's observable counters.
func (pw *PerceptionWarfare) Summary() map[string]any {
	return map[string]any{
		"campaigns_active":   len(pw.campaigns),
		"campaigns_launched": pw.launched,
	}
}
