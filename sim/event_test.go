package sim

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventFingerprint_ContentDerived(t *testing.T) {
	a := &BetrayalEvent{
		EventMeta: EventMeta{Timestamp: 5.0, Source: "test", Description: "broken alliance"},
		Severity:  0.7,
	}
	b := &BetrayalEvent{
		EventMeta: EventMeta{Timestamp: 5.0, Source: "test", Description: "broken alliance"},
		Severity:  0.7,
	}

	// Identical observable content yields identical fingerprints and IDs
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.Equal(t, a.ID(), b.ID())

	// Any content difference changes both
	b.Description = "broken treaty"
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestEventID_IsValidUUID(t *testing.T) {
	ev := &CooperationEvent{
		EventMeta: EventMeta{Timestamp: 1.0, Source: "test", Description: "mutual aid"},
		Magnitude: 0.5,
	}
	_, err := uuid.Parse(ev.ID())
	require.NoError(t, err)

	// Derivation is stable across calls
	assert.Equal(t, ev.ID(), ev.ID())
}

func TestEventKinds_AreDistinct(t *testing.T) {
	events := []Event{
		&BetrayalEvent{},
		&CooperationEvent{},
		&InstitutionalFailureEvent{},
		&BrokenPromiseEvent{},
		&ManipulationEvent{},
		&MoralViolationEvent{},
		&RedTeamEvent{},
	}
	seen := map[EventKind]bool{}
	for _, ev := range events {
		assert.False(t, seen[ev.Kind()], "duplicate kind %s", ev.Kind())
		seen[ev.Kind()] = true
	}
	assert.Len(t, seen, 7)
}

func TestRedTeamEvent_DimensionImpacts_VectorScaling(t *testing.T) {
	ev := &RedTeamEvent{AttackType: AttackTrust, AttackVector: "cascading"}
	impacts := ev.DimensionImpacts()
	require.Len(t, impacts, 1)
	assert.InDelta(t, -0.15*1.3, impacts[DimTrust], 1e-12)

	// Coordinated hits hardest
	ev.AttackVector = "coordinated"
	assert.InDelta(t, -0.15*1.5, ev.DimensionImpacts()[DimTrust], 1e-12)

	// Indirect is attenuated
	ev.AttackVector = "indirect"
	assert.InDelta(t, -0.15*0.7, ev.DimensionImpacts()[DimTrust], 1e-12)
}

func TestRedTeamEvent_DimensionImpacts_MultiDimension(t *testing.T) {
	ev := &RedTeamEvent{AttackType: AttackMoralInjury, AttackVector: "direct"}
	impacts := ev.DimensionImpacts()
	require.Len(t, impacts, 2)
	assert.InDelta(t, -0.10, impacts[DimKindness], 1e-12)
	assert.InDelta(t, 0.08, impacts[DimMoralInjury], 1e-12)
}

func TestRedTeamEvent_DimensionImpacts_UnknownType(t *testing.T) {
	ev := &RedTeamEvent{AttackType: "quantum_attack", AttackVector: "direct"}
	assert.Empty(t, ev.DimensionImpacts())

	// Unknown vector falls back to base impacts
	ev = &RedTeamEvent{AttackType: AttackEpistemic, AttackVector: "psychic"}
	assert.InDelta(t, -0.20, ev.DimensionImpacts()[DimEpistemicConfidence], 1e-12)
}

func TestAttackCatalog_Closed(t *testing.T) {
	assert.Len(t, AttackTypes, 6)
	assert.Len(t, AttackVectors, 4)
	for _, at := range AttackTypes {
		_, ok := baseAttackImpacts[at]
		assert.True(t, ok, "attack type %s has no base impacts", at)
	}
	for _, v := range AttackVectors {
		_, ok := vectorMultipliers[v]
		assert.True(t, ok, "attack vector %s has no multiplier", v)
	}
}
