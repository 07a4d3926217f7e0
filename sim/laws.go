package sim

import (
	"math"

	"github.com/sirupsen/logrus"
)

// minCeiling is the lowest value a betrayal can cap trust recovery at.
const minCeiling = 0.1

// Laws is the physics engine for irreversible state evolution: pure-ish
// functions from (state, coefficients) to applied deltas. Laws never return
// errors for finite in-range inputs; a dimension pinned at a bound simply
// reports a zero delta.
type Laws struct {
	cfg LawConfig
}

// NewLaws creates the law engine from validated coefficients.
func NewLaws(cfg LawConfig) *Laws {
	logrus.Debug("irreversibility laws initialized")
	return &Laws{cfg: cfg}
}

// LawDeltas is the structured result of one TickAll pass.
type LawDeltas struct {
	TrustDecay         float64 `json:"trust_decay"`
	KindnessDecay      float64 `json:"kindness_decay"`
	LegitimacyDecay    float64 `json:"legitimacy_decay"`
	MoralInjuryHealing float64 `json:"moral_injury_healing"`
	EpistemicDecay     float64 `json:"epistemic_decay"`

	// FutureNegativeProbability is recomputed after the decay pass.
	FutureNegativeProbability float64 `json:"future_negative_probability"`
	// KindnessSingularity reports whether the singularity threshold was
	// crossed during this pass (only while not already in collapse).
	KindnessSingularity bool   `json:"kindness_singularity"`
	CollapseReason      string `json:"collapse_reason,omitempty"`
}

// TrustDecay applies exponential trust decay: delta = -value * rate, clamped
// against the betrayal ceiling.
func (l *Laws) TrustDecay(s *StateVector) float64 {
	if s.Trust.Value <= 0 {
		return 0
	}
	decay := -s.Trust.Value * l.cfg.TrustDecayRate
	return s.Trust.Update(decay, s.Timestamp)
}

// KindnessDecay applies kindness decay, accelerated sharply as the value
// approaches the singularity threshold (non-linear 1/(value+0.1) term).
func (l *Laws) KindnessDecay(s *StateVector) float64 {
	if s.Kindness.Value <= 0 {
		return 0
	}
	decay := -s.Kindness.Value * l.cfg.KindnessDecayRate
	if s.Kindness.Value < l.cfg.KindnessSingularityThresh*1.5 {
		decay *= 1.0 / (s.Kindness.Value + 0.1)
	}
	return s.Kindness.Update(decay, s.Timestamp)
}

// LegitimacyErosion applies base legitimacy decay plus impact from broken
// promises and institutional failures scaled by visibility. Significant
// erosion (< -0.05 applied) imposes a new recovery ceiling at 95% of the
// post-erosion value, never below the configured recovery limit.
func (l *Laws) LegitimacyErosion(s *StateVector, brokenPromises, failures int, visibility float64) float64 {
	decay := -s.Legitimacy.Value * l.cfg.LegitimacyDecayRate
	if brokenPromises > 0 {
		decay += -l.cfg.BrokenPromiseImpact * float64(brokenPromises) * visibility
		s.BrokenPromises += brokenPromises
	}
	if failures > 0 {
		decay += -l.cfg.InstitutionalFailImpact * float64(failures) * visibility
		s.InstitutionalFailures += failures
	}
	applied := s.Legitimacy.Update(decay, s.Timestamp)
	if applied < -0.05 {
		ceiling := math.Max(s.Legitimacy.Value*0.95, l.cfg.LegitimacyRecoveryLimit)
		if s.Legitimacy.ImposeCeiling(ceiling) {
			logrus.Infof("legitimacy ceiling imposed: %.4f", ceiling)
		}
	}
	return applied
}

// MoralInjuryHealing applies the very slow harm-accumulator healing. The
// floor raised by past violations prevents the value ever returning to zero.
func (l *Laws) MoralInjuryHealing(s *StateVector) float64 {
	if s.MoralInjury.Value <= 0 {
		return 0
	}
	healing := -s.MoralInjury.Value * l.cfg.MoralInjuryDecayRate
	return s.MoralInjury.Update(healing, s.Timestamp)
}

// EpistemicDecay applies epistemic confidence decay, accelerated once more
// than ten manipulation events have accumulated.
func (l *Laws) EpistemicDecay(s *StateVector) float64 {
	if s.EpistemicConfidence.Value <= 0 {
		return 0
	}
	decay := -s.EpistemicConfidence.Value * l.cfg.EpistemicDecayRate
	if s.ManipulationEvents > 10 {
		decay *= 1.0 + float64(s.ManipulationEvents)/20.0
	}
	return s.EpistemicConfidence.Update(decay, s.Timestamp)
}

// ApplyBetrayalImpact applies immediate trust loss and tightens the trust
// recovery ceiling. This (with the other Apply* impact laws) is the only
// place new ceilings or floors are introduced; an existing bound is never
// loosened.
func (l *Laws) ApplyBetrayalImpact(s *StateVector, severity float64) map[string]float64 {
	loss := -l.cfg.BetrayalTrustImpact * (0.5 + severity)
	applied := s.Trust.Update(loss, s.Timestamp)

	ceiling := math.Max(s.Trust.Value*(1.0-l.cfg.BetrayalCeilingReduction*severity), minCeiling)
	s.Trust.ImposeCeiling(ceiling)
	s.BetrayalCount++

	logrus.Infof("betrayal impact: trust %+.4f, ceiling %.4f, count %d", applied, ceiling, s.BetrayalCount)
	return map[string]float64{
		"trust_change":   applied,
		"new_ceiling":    ceiling,
		"betrayal_count": float64(s.BetrayalCount),
	}
}

// ApplyCooperationBoost raises kindness with diminishing returns at high
// kindness. The ceiling from past damage still binds.
func (l *Laws) ApplyCooperationBoost(s *StateVector, magnitude float64) float64 {
	boost := l.cfg.KindnessCooperationBoost * magnitude
	boost *= 1.0 - s.Kindness.Value*0.5
	applied := s.Kindness.Update(boost, s.Timestamp)
	s.CooperationCount++
	logrus.Debugf("cooperation boost: %+.4f applied %+.4f", boost, applied)
	return applied
}

// ApplyManipulationImpact degrades epistemic confidence by the manipulation
// base impact scaled by reach and sophistication, tightening the epistemic
// ceiling after significant damage.
func (l *Laws) ApplyManipulationImpact(s *StateVector, reach, sophistication float64) map[string]float64 {
	damage := -l.cfg.ManipulationImpact * (1.0 + reach) * (1.0 + sophistication)
	applied := s.EpistemicConfidence.Update(damage, s.Timestamp)
	if applied < -0.05 {
		ceiling := s.EpistemicConfidence.Value * 0.92
		if s.EpistemicConfidence.ImposeCeiling(ceiling) {
			logrus.Infof("epistemic confidence ceiling imposed: %.4f", ceiling)
		}
	}
	s.ManipulationEvents++
	return map[string]float64{
		"epistemic_change":    applied,
		"manipulation_events": float64(s.ManipulationEvents),
	}
}

// AccumulateMoralInjury adds harm and raises the moral-injury floor: the only
// law that raises floors, mirroring how betrayal is the only one lowering the
// trust ceiling.
func (l *Laws) AccumulateMoralInjury(s *StateVector, violationSeverity float64) map[string]float64 {
	injury := l.cfg.ViolationSeverityBase * (0.5 + violationSeverity)
	var oldFloor float64
	if s.MoralInjury.Floor != nil {
		oldFloor = *s.MoralInjury.Floor
	}
	newFloor := s.MoralInjury.Value + injury

	applied := s.MoralInjury.Update(injury, s.Timestamp)
	if newFloor > oldFloor {
		s.MoralInjury.ImposeFloor(newFloor)
	}
	critical := s.MoralInjury.Value > l.cfg.MoralInjuryThreshold
	logrus.Infof("moral injury accumulated: %+.4f total %.4f critical %v", applied, s.MoralInjury.Value, critical)

	result := map[string]float64{
		"moral_injury_change": applied,
		"moral_injury_value":  s.MoralInjury.Value,
		"new_floor":           newFloor,
	}
	if critical {
		result["critical_threshold_crossed"] = 1
	}
	return result
}

// FutureNegativeEventProbability is the deterministic weighted sum over
// (1-trust), (1-legitimacy) and the harm accumulator, capped at 1.0. Pure:
// no side effects. Dynamics providers use it to decide whether to emit an
// adverse event this tick.
func (l *Laws) FutureNegativeEventProbability(s *StateVector) float64 {
	p := l.cfg.BetrayalProbBase +
		l.cfg.BetrayalProbTrustFactor*(1.0-s.Trust.Value) +
		l.cfg.BetrayalProbLegitimacyFactor*(1.0-s.Legitimacy.Value) +
		l.cfg.BetrayalProbMoralFactor*s.MoralInjury.Value
	return math.Min(p, 1.0)
}

// CollapseAcceleration re-applies the natural decay laws with temporarily
// scaled rates once the system is in collapse. The configured rates are
// restored before returning.
func (l *Laws) CollapseAcceleration(s *StateVector, factor float64) {
	if !s.InCollapse {
		return
	}
	logrus.Warnf("applying collapse acceleration (factor %.2f)", factor)

	saved := l.cfg
	l.cfg.TrustDecayRate *= factor
	l.cfg.KindnessDecayRate *= factor
	l.cfg.LegitimacyDecayRate *= factor
	l.cfg.EpistemicDecayRate *= factor

	l.TrustDecay(s)
	l.KindnessDecay(s)
	l.LegitimacyErosion(s, 0, 0, 0)
	l.EpistemicDecay(s)

	l.cfg = saved
}

// CheckKindnessSingularity reports whether kindness has crossed the
// singularity threshold while the system is not yet in collapse.
func (l *Laws) CheckKindnessSingularity(s *StateVector) (bool, string) {
	if s.Kindness.Value < l.cfg.KindnessSingularityThresh && !s.InCollapse {
		logrus.Errorf("kindness singularity: value %.4f < threshold %.4f",
			s.Kindness.Value, l.cfg.KindnessSingularityThresh)
		return true, "kindness_singularity"
	}
	return false, ""
}

// TickAll applies every natural-decay law once in the fixed contract order
// (trust, kindness, legitimacy, harm-healing, epistemic), then recomputes the
// future-event probability and checks the kindness singularity.
func (l *Laws) TickAll(s *StateVector) LawDeltas {
	d := LawDeltas{}
	d.TrustDecay = l.TrustDecay(s)
	d.KindnessDecay = l.KindnessDecay(s)
	d.LegitimacyDecay = l.LegitimacyErosion(s, 0, 0, 0)
	d.MoralInjuryHealing = l.MoralInjuryHealing(s)
	d.EpistemicDecay = l.EpistemicDecay(s)

	d.FutureNegativeProbability = l.FutureNegativeEventProbability(s)
	d.KindnessSingularity, d.CollapseReason = l.CheckKindnessSingularity(s)
	return d
}
