package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedTeam(seed int64, vault bool) *RedTeam {
	return NewRedTeam(newTestLaws(), NewPartitionedRNG(seed), vault)
}

func TestStateEntropy_UniformDistributionIsThreeBits(t *testing.T) {
	// With all five primaries at 0.5 the three derived metrics are also 0.5,
	// giving a uniform distribution over eight dimensions: H = log2(8) = 3
	s := NewInitialState(0.0)
	for _, d := range s.Dimensions() {
		d.Value = 0.5
	}
	s.UpdateDerived()

	assert.InDelta(t, 3.0, StateEntropy(s), 1e-6)
}

func TestStateEntropy_SkewReducesEntropy(t *testing.T) {
	uniform := NewInitialState(0.0)
	for _, d := range uniform.Dimensions() {
		d.Value = 0.5
	}
	uniform.UpdateDerived()

	skewed := NewInitialState(0.0)
	skewed.Trust.Value = 0.95
	skewed.Legitimacy.Value = 0.01
	skewed.Kindness.Value = 0.01
	skewed.MoralInjury.Value = 0.01
	skewed.EpistemicConfidence.Value = 0.01
	skewed.UpdateDerived()

	assert.Less(t, StateEntropy(skewed), StateEntropy(uniform))
}

func TestEntropyDelta_Directional(t *testing.T) {
	before := NewInitialState(0.0)
	after := before.Clone()
	assert.InDelta(t, 0.0, EntropyDelta(before, after), 1e-12)
}

func TestScanAttackSurface_HealthyStateHasNoVulnerabilities(t *testing.T) {
	rt := newTestRedTeam(42, true)
	s := NewInitialState(0.0)
	assert.Empty(t, rt.ScanAttackSurface(s))
}

func TestScanAttackSurface_DegradedStateExposesAll(t *testing.T) {
	rt := newTestRedTeam(42, true)
	s := NewInitialState(0.0)
	s.Trust.Value = 0.3
	s.Legitimacy.Value = 0.2
	s.EpistemicConfidence.Value = 0.3
	s.MoralInjury.Value = 0.7
	s.InCollapse = true

	found := rt.ScanAttackSurface(s)
	require.Len(t, found, 5)
	types := make([]string, len(found))
	for i, v := range found {
		types[i] = v.Type
	}
	// Fixed scan order
	assert.Equal(t, []string{
		"low_trust", "low_legitimacy", "low_epistemic_confidence",
		"high_moral_injury", "collapse_state",
	}, types)
}

func TestBlackVault_Deduplication(t *testing.T) {
	rt := newTestRedTeam(42, true)
	ev := &RedTeamEvent{
		EventMeta:    EventMeta{Timestamp: 1.0, Source: "red_team", Description: "probe"},
		AttackType:   AttackTrust,
		AttackVector: "direct",
	}

	assert.False(t, rt.InBlackVault(ev))
	rt.addToBlackVault(ev)
	assert.True(t, rt.InBlackVault(ev))

	// A content-identical event is also recognized: dedup is by fingerprint
	dup := &RedTeamEvent{
		EventMeta:    EventMeta{Timestamp: 1.0, Source: "red_team", Description: "probe"},
		AttackType:   AttackTrust,
		AttackVector: "direct",
	}
	assert.True(t, rt.InBlackVault(dup))
}

func TestBlackVault_DisabledNeverBlocks(t *testing.T) {
	rt := newTestRedTeam(42, false)
	ev := &RedTeamEvent{EventMeta: EventMeta{Source: "red_team", Description: "probe"}}

	rt.addToBlackVault(ev)
	assert.False(t, rt.InBlackVault(ev))
}

func TestExecuteAttack_Deterministic(t *testing.T) {
	// Same seed, same state: identical attack selection and entropy score
	rtA := newTestRedTeam(42, true)
	rtB := newTestRedTeam(42, true)
	sA := NewInitialState(0.0)
	sB := NewInitialState(0.0)

	evA, _ := rtA.ExecuteAttack(sA)
	evB, _ := rtB.ExecuteAttack(sB)

	assert.Equal(t, evA.AttackType, evB.AttackType)
	assert.Equal(t, evA.AttackVector, evB.AttackVector)
	assert.Equal(t, evA.EntropyDelta, evB.EntropyDelta)
	assert.Equal(t, sA.CanonicalJSON(), sB.CanonicalJSON())
}

func TestExecuteAttack_ScoresOnCloneBeforeApplying(t *testing.T) {
	rt := newTestRedTeam(42, true)
	s := NewInitialState(0.0)
	before := s.Clone()

	ev, res := rt.ExecuteAttack(s)
	require.NotNil(t, ev)

	// The live state moved and the attack was recorded
	assert.NotEqual(t, before.CanonicalJSON(), s.CanonicalJSON())
	history := rt.AttackHistory()
	require.Len(t, history, 1)
	assert.False(t, history[0].Blocked)
	assert.Equal(t, ev.ID(), history[0].EventID)
	assert.Contains(t, res.Changes, "entropy_delta")
}

func TestExecuteAttack_TracksVulnerabilityExploitation(t *testing.T) {
	rt := newTestRedTeam(42, true)
	s := NewInitialState(0.0)
	s.Trust.Value = 0.2 // exposes low_trust

	ev, _ := rt.ExecuteAttack(s)
	assert.NotEmpty(t, ev.VulnerabilityExploited)

	sum := rt.Summary()
	assert.Equal(t, 1, sum["known_vulnerabilities"])
	assert.Equal(t, 1, sum["exploited_vulnerabilities"])
}

func TestRedTeam_Apply_CadenceIsSeedStable(t *testing.T) {
	runCount := func() int {
		rt := newTestRedTeam(42, true)
		s := NewInitialState(0.0)
		attacks := 0
		for i := 0; i < 50; i++ {
			s.Timestamp = float64(i)
			res := rt.Apply(s)
			if len(res.Events) > 0 {
				attacks++
			}
		}
		return attacks
	}
	assert.Equal(t, runCount(), runCount())
}
