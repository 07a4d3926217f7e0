package sim

// Outcome is the terminal classification of a run.
type Outcome string

const (
	OutcomeSurvivor   Outcome = "survivor"
	OutcomeMartyr     Outcome = "martyr"
	OutcomeExtinction Outcome = "extinction"
)

// ClassifyOutcome evaluates the final state against the outcome thresholds
// in fixed priority order: survivor, then martyr, then extinction. The
// ordering is the tie-break — a state that could satisfy both survivor and
// martyr classifies as survivor.
func ClassifyOutcome(s *StateVector, th OutcomeThresholds) Outcome {
	if s.Trust.Value > th.SurvivorTrust &&
		s.Legitimacy.Value > th.SurvivorLegitimacy &&
		s.MoralInjury.Value < th.MoralInjuryCritical {
		return OutcomeSurvivor
	}
	if s.Kindness.Value > th.KindnessPreservation &&
		s.MoralInjury.Value < th.MoralInjuryCritical {
		return OutcomeMartyr
	}
	return OutcomeExtinction
}

// OutcomeReport is the exportable final classification.
type OutcomeReport struct {
	Outcome             Outcome            `json:"outcome"`
	Tick                int64              `json:"tick"`
	Timestamp           float64            `json:"timestamp"`
	InCollapse          bool               `json:"in_collapse"`
	CollapseReason      string             `json:"collapse_reason,omitempty"`
	FinalDimensions     map[string]float64 `json:"final_dimensions"`
	FinalSystemHealth   float64            `json:"final_system_health"`
	FinalCollapseRisk   float64            `json:"final_collapse_risk"`
}

// BuildOutcomeReport classifies the state and packages the final scores.
func BuildOutcomeReport(s *StateVector, th OutcomeThresholds) OutcomeReport {
	v := s.DimensionValues()
	return OutcomeReport{
		Outcome:           ClassifyOutcome(s, th),
		Tick:              s.TickCount,
		Timestamp:         s.Timestamp,
		InCollapse:        s.InCollapse,
		CollapseReason:    s.CollapseReason,
		FinalDimensions:   v,
		FinalSystemHealth: SystemHealthOf(v),
		FinalCollapseRisk: CollapseRiskOf(v),
	}
}
