package sim

import (
	"math/rand"

	"github.com/sirupsen/logrus"
)

// InstitutionalPressure accumulates governance stress as legitimacy erodes
// and discharges it as institutional failures and broken promises.
type InstitutionalPressure struct {
	laws *Laws
	rng  *rand.Rand

	// Pressure builds from the legitimacy deficit and bleeds off slowly.
	Pressure float64

	failures       int
	brokenPromises int
}

// NewInstitutionalPressure creates the provider with its own RNG stream.
func NewInstitutionalPressure(laws *Laws, rng *PartitionedRNG) *InstitutionalPressure {
	return &InstitutionalPressure{
		laws: laws,
		rng:  rng.ForSubsystem(SubsystemInstitutionalPressure),
	}
}

func (ip *InstitutionalPressure) Name() string { return "institutional_pressure" }

// Apply updates the pressure accumulator and emits at most one failure or
// broken promise per tick.
func (ip *InstitutionalPressure) Apply(s *StateVector) ProviderResult {
	res := ProviderResult{Provider: ip.Name(), Changes: map[string]float64{}}

	ip.Pressure = ip.Pressure*0.98 + (1.0-s.Legitimacy.Value)*0.05
	res.Changes["pressure"] = ip.Pressure

	if ip.Pressure > 0.5 && ip.rng.Float64() < ip.Pressure*0.3 {
		ev := &InstitutionalFailureEvent{
			EventMeta: EventMeta{
				Timestamp:   s.Timestamp,
				Source:      ip.Name(),
				Description: "institutional failure under accumulated pressure",
			},
			Scope:      ip.Pressure,
			Visibility: 0.7,
		}
		applied := ip.laws.LegitimacyErosion(s, 0, 1, 0.7)
		ip.failures++
		ip.Pressure *= 0.6 // failure discharges pressure
		res.Events = append(res.Events, ev)
		res.Changes["legitimacy_change"] = applied
		logrus.Debugf("institutional pressure discharged: failure, legitimacy %+.4f", applied)
		return res
	}

	p := ip.laws.FutureNegativeEventProbability(s)
	if ip.rng.Float64() < p*0.3 {
		ev := &BrokenPromiseEvent{
			EventMeta: EventMeta{
				Timestamp:   s.Timestamp,
				Source:      ip.Name(),
				Description: "broken promise",
			},
			Visibility: 0.5,
		}
		applied := ip.laws.LegitimacyErosion(s, 1, 0, 0.5)
		ip.brokenPromises++
		res.Events = append(res.Events, ev)
		res.Changes["legitimacy_change"] = applied
	}

	return res
}

// Summary returns the provider's observable counters.
func (ip *InstitutionalPressure) Summary() map[string]any {
	return map[string]any{
		"pressure":        ip.Pressure,
		"failures":        ip.failures,
		"broken_promises": ip.brokenPromises,
	}
}
