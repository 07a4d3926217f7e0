package sim

import (
	"encoding/json"
)

// Dimension names used in ledger deltas, replay and collapse records.
const (
	DimTrust               = "trust"
	DimLegitimacy          = "legitimacy"
	DimKindness            = "kindness"
	DimMoralInjury         = "moral_injury"
	DimEpistemicConfidence = "epistemic_confidence"
)

// StateVector aggregates the five primary dimensions, the monotone event
// counters and the derived metrics recomputed each tick. It is owned
// exclusively by one Engine; trial ("what-if") evaluations operate on Clone().
type StateVector struct {
	Trust               *BoundedDimension
	Legitimacy          *BoundedDimension
	Kindness            *BoundedDimension
	MoralInjury         *BoundedDimension
	EpistemicConfidence *BoundedDimension

	// Monotone counters, incremented by laws on event application.
	BetrayalCount         int
	CooperationCount      int
	BrokenPromises        int
	InstitutionalFailures int
	ManipulationEvents    int

	// Derived metrics, fixed linear combinations of the primary dimensions.
	// Recomputed by UpdateDerived after every law or event application.
	SocialCohesion     float64
	GovernanceCapacity float64
	RealityConsensus   float64

	TickCount int64
	Timestamp float64

	// InCollapse latches: once set it is never unset within a run.
	InCollapse          bool
	CollapseTriggeredAt float64
	CollapseReason      string
}

// NewInitialState constructs the tick-0 state vector with the type-specific
// initial values used by every run.
func NewInitialState(timestamp float64) *StateVector {
	s := &StateVector{
		Trust:               NewBoundedDimension(DimTrust, 0.8, 0.0, 1.0),
		Legitimacy:          NewBoundedDimension(DimLegitimacy, 0.75, 0.0, 1.0),
		Kindness:            NewBoundedDimension(DimKindness, 0.7, 0.0, 1.0),
		MoralInjury:         NewBoundedDimension(DimMoralInjury, 0.0, 0.0, 1.0),
		EpistemicConfidence: NewBoundedDimension(DimEpistemicConfidence, 0.85, 0.0, 1.0),
		Timestamp:           timestamp,
	}
	s.UpdateDerived()
	return s
}

// Dimensions returns the primary dimensions in canonical law-application
// order: trust, kindness, legitimacy, moral injury, epistemic confidence.
func (s *StateVector) Dimensions() []*BoundedDimension {
	return []*BoundedDimension{s.Trust, s.Kindness, s.Legitimacy, s.MoralInjury, s.EpistemicConfidence}
}

// Dimension returns the named primary dimension, or nil for unknown names.
func (s *StateVector) Dimension(name string) *BoundedDimension {
	switch name {
	case DimTrust:
		return s.Trust
	case DimLegitimacy:
		return s.Legitimacy
	case DimKindness:
		return s.Kindness
	case DimMoralInjury:
		return s.MoralInjury
	case DimEpistemicConfidence:
		return s.EpistemicConfidence
	}
	return nil
}

// UpdateDerived recomputes the three derived metrics from the primary
// dimensions. The combinations are fixed so the same values can be re-derived
// from any recorded post-state.
func (s *StateVector) UpdateDerived() {
	s.SocialCohesion = 0.5*s.Trust.Value + 0.3*s.Kindness.Value + 0.2*s.Legitimacy.Value
	s.GovernanceCapacity = 0.5*s.Legitimacy.Value + 0.3*s.Trust.Value + 0.2*(1.0-s.MoralInjury.Value)
	s.RealityConsensus = 0.7*s.EpistemicConfidence.Value + 0.3*s.Trust.Value
}

// CheckCollapse tests the five collapse thresholds in a fixed order and
// returns the first one crossed. Read-only; latching InCollapse is the
// caller's responsibility.
func (s *StateVector) CheckCollapse(th CollapseThresholds) (bool, string) {
	if s.Kindness.Value < th.KindnessSingularity {
		return true, "kindness_singularity"
	}
	if s.Trust.Value < th.TrustCollapse {
		return true, "trust_collapse"
	}
	if s.MoralInjury.Value > th.MoralInjuryCritical {
		return true, "moral_injury_critical"
	}
	if s.Legitimacy.Value < th.LegitimacyFailure {
		return true, "legitimacy_failure"
	}
	if s.EpistemicConfidence.Value < th.EpistemicCollapse {
		return true, "epistemic_collapse"
	}
	return false, ""
}

// Clone returns a fully independent deep copy: owned dimension histories and
// bound pointers, not shared references.
func (s *StateVector) Clone() *StateVector {
	cp := *s
	cp.Trust = s.Trust.Clone()
	cp.Legitimacy = s.Legitimacy.Clone()
	cp.Kindness = s.Kindness.Clone()
	cp.MoralInjury = s.MoralInjury.Clone()
	cp.EpistemicConfidence = s.EpistemicConfidence.Clone()
	return &cp
}

// stateCanonical fixes the field order of the canonical serialization.
// Ledger hashes are computed over this form, so the layout is part of the
// wire contract: identical runs must reproduce identical hashes.
type stateCanonical struct {
	Tick                  int64              `json:"tick"`
	Timestamp             float64            `json:"timestamp"`
	Dimensions            []dimCanonical     `json:"dimensions"`
	BetrayalCount         int                `json:"betrayal_count"`
	CooperationCount      int                `json:"cooperation_count"`
	BrokenPromises        int                `json:"broken_promises"`
	InstitutionalFailures int                `json:"institutional_failures"`
	ManipulationEvents    int                `json:"manipulation_events"`
	SocialCohesion        float64            `json:"social_cohesion"`
	GovernanceCapacity    float64            `json:"governance_capacity"`
	RealityConsensus      float64            `json:"reality_consensus"`
	InCollapse            bool               `json:"in_collapse"`
	CollapseTriggeredAt   float64            `json:"collapse_triggered_at"`
	CollapseReason        string             `json:"collapse_reason"`
}

type dimCanonical struct {
	Name    string   `json:"name"`
	Value   float64  `json:"value"`
	Min     float64  `json:"min"`
	Max     float64  `json:"max"`
	Ceiling *float64 `json:"ceiling"`
	Floor   *float64 `json:"floor"`
}

// CanonicalJSON serializes the state in the stable key order used for all
// content hashes. Histories are excluded: the ledger already records every
// transition.
func (s *StateVector) CanonicalJSON() []byte {
	c := stateCanonical{
		Tick:                  s.TickCount,
		Timestamp:             s.Timestamp,
		BetrayalCount:         s.BetrayalCount,
		CooperationCount:      s.CooperationCount,
		BrokenPromises:        s.BrokenPromises,
		InstitutionalFailures: s.InstitutionalFailures,
		ManipulationEvents:    s.ManipulationEvents,
		SocialCohesion:        s.SocialCohesion,
		GovernanceCapacity:    s.GovernanceCapacity,
		RealityConsensus:      s.RealityConsensus,
		InCollapse:            s.InCollapse,
		CollapseTriggeredAt:   s.CollapseTriggeredAt,
		CollapseReason:        s.CollapseReason,
	}
	for _, d := range []*BoundedDimension{s.Trust, s.Legitimacy, s.Kindness, s.MoralInjury, s.EpistemicConfidence} {
		c.Dimensions = append(c.Dimensions, dimCanonical{
			Name:    d.Name,
			Value:   d.Value,
			Min:     d.Min,
			Max:     d.Max,
			Ceiling: d.Ceiling,
			Floor:   d.Floor,
		})
	}
	buf, err := json.Marshal(c)
	if err != nil {
		// Marshal of a plain struct cannot fail; keep the contract panic-free anyway.
		return []byte("{}")
	}
	return buf
}

// DimensionValues returns the current primary dimension values keyed by
// canonical name. Used for ledger delta summaries and metric re-derivation.
func (s *StateVector) DimensionValues() map[string]float64 {
	return map[string]float64{
		DimTrust:               s.Trust.Value,
		DimLegitimacy:          s.Legitimacy.Value,
		DimKindness:            s.Kindness.Value,
		DimMoralInjury:         s.MoralInjury.Value,
		DimEpistemicConfidence: s.EpistemicConfidence.Value,
	}
}
