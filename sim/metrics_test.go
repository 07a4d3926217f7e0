package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemHealthOf_InitialState(t *testing.T) {
	s := NewInitialState(0.0)
	// 0.25*0.8 + 0.20*0.75 + 0.20*0.7 + 0.15*0.85 + 0.20*1.0
	assert.InDelta(t, 0.8175, SystemHealthOf(s.DimensionValues()), 1e-9)
}

func TestCollapseRiskOf_InitialState(t *testing.T) {
	s := NewInitialState(0.0)
	// 0.30*0.2 + 0.25*0.3 + 0.20*0.25 + 0.15*0 + 0.10*0.15
	assert.InDelta(t, 0.2, CollapseRiskOf(s.DimensionValues()), 1e-9)
}

func TestCollapseRiskOf_CappedAtOne(t *testing.T) {
	v := map[string]float64{
		DimTrust:               0.0,
		DimLegitimacy:          0.0,
		DimKindness:            0.0,
		DimMoralInjury:         1.0,
		DimEpistemicConfidence: 0.0,
	}
	assert.InDelta(t, 1.0, CollapseRiskOf(v), 1e-12)
}

func TestMetrics_Compute_Appends(t *testing.T) {
	m := NewMetrics()
	s := NewInitialState(0.0)

	p1 := m.Compute(s)
	s.TickCount = 1
	s.Trust.Value = 0.4
	p2 := m.Compute(s)

	require.Len(t, m.History, 2)
	assert.Equal(t, p1, m.History[0])
	assert.Equal(t, p2, m.Latest())
	assert.Less(t, p2.SystemHealth, p1.SystemHealth)
	assert.Greater(t, p2.CollapseRisk, p1.CollapseRisk)
}

func TestMetrics_RederivableFromRecordedValues(t *testing.T) {
	// The scores must be pure functions of the dimension values so a ledger
	// reader can recompute them from any entry
	m := NewMetrics()
	s := NewInitialState(0.0)
	s.Trust.Value = 0.33
	s.MoralInjury.Value = 0.41
	s.UpdateDerived()

	p := m.Compute(s)
	recorded := s.DimensionValues()
	assert.Equal(t, p.SystemHealth, SystemHealthOf(recorded))
	assert.Equal(t, p.CollapseRisk, CollapseRiskOf(recorded))
}

func TestMetrics_Latest_EmptyHistory(t *testing.T) {
	m := NewMetrics()
	assert.Equal(t, MetricsPoint{}, m.Latest())
}
