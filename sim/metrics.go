package sim

// MetricsPoint is one tick's derived health scores.
type MetricsPoint struct {
	Tick         int64   `json:"tick"`
	Timestamp    float64 `json:"timestamp"`
	SystemHealth float64 `json:"system_health"`
	CollapseRisk float64 `json:"collapse_risk"`
}

// SystemHealthOf is the fixed linear combination over the primary dimension
// values. Pure, so the same score can be re-derived from any ledger entry's
// recorded post-state.
func SystemHealthOf(v map[string]float64) float64 {
	return 0.25*v[DimTrust] +
		0.20*v[DimLegitimacy] +
		0.20*v[DimKindness] +
		0.15*v[DimEpistemicConfidence] +
		0.20*(1.0-v[DimMoralInjury])
}

// CollapseRiskOf is the fixed inverse combination; higher is worse.
func CollapseRiskOf(v map[string]float64) float64 {
	risk := 0.30*(1.0-v[DimTrust]) +
		0.25*(1.0-v[DimKindness]) +
		0.20*(1.0-v[DimLegitimacy]) +
		0.15*v[DimMoralInjury] +
		0.10*(1.0-v[DimEpistemicConfidence])
	if risk > 1.0 {
		risk = 1.0
	}
	return risk
}

// Metrics accumulates the per-tick history of derived scores.
type Metrics struct {
	History []MetricsPoint
}

// NewMetrics creates an empty metrics accumulator.
func NewMetrics() *Metrics {
	return &Metrics{History: make([]MetricsPoint, 0)}
}

// Compute derives the current point from the state, appends it to the
// history and returns it.
func (m *Metrics) Compute(s *StateVector) MetricsPoint {
	v := s.DimensionValues()
	p := MetricsPoint{
		Tick:         s.TickCount,
		Timestamp:    s.Timestamp,
		SystemHealth: SystemHealthOf(v),
		CollapseRisk: CollapseRiskOf(v),
	}
	m.History = append(m.History, p)
	return p
}

// Latest returns the most recent point, or a zero point if none exist.
func (m *Metrics) Latest() MetricsPoint {
	if len(m.History) == 0 {
		return MetricsPoint{}
	}
	return m.History[len(m.History)-1]
}

// Export returns the full metrics history.
func (m *Metrics) Export() []MetricsPoint {
	out := make([]MetricsPoint, len(m.History))
	copy(out, m.History)
	return out
}

// Summary returns the metrics module's observable counters.
func (m *Metrics) Summary() map[string]any {
	latest := m.Latest()
	return map[string]any{
		"points":        len(m.History),
		"system_health": latest.SystemHealth,
		"collapse_risk": latest.CollapseRisk,
	}
}
