package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollapseScheduler_ThresholdFiresOnce(t *testing.T) {
	cs := NewCollapseScheduler(DefaultConfig().Thresholds.Collapse)
	s := NewInitialState(0.0)
	s.Kindness.Value = 0.1

	fired := cs.ProcessTick(s, true)
	require.Len(t, fired, 1)
	assert.Equal(t, CollapseKindnessSingularity, fired[0].Type)
	assert.True(t, s.InCollapse)
	assert.Equal(t, "kindness_singularity threshold crossed", s.CollapseReason)

	// The condition still holds but the trigger is latched
	fired = cs.ProcessTick(s, true)
	assert.Empty(t, fired)
	assert.Len(t, cs.ExportCollapses(), 1)
}

func TestCollapseScheduler_MultipleThresholdsSameTick(t *testing.T) {
	cs := NewCollapseScheduler(DefaultConfig().Thresholds.Collapse)
	s := NewInitialState(0.0)
	s.Kindness.Value = 0.1
	s.Trust.Value = 0.1

	fired := cs.ProcessTick(s, true)
	require.Len(t, fired, 2)
	// Evaluation order is fixed: kindness singularity before trust collapse
	assert.Equal(t, CollapseKindnessSingularity, fired[0].Type)
	assert.Equal(t, CollapseTrust, fired[1].Type)

	// The first firing set the collapse reason; the second left it alone
	assert.Equal(t, "kindness_singularity threshold crossed", s.CollapseReason)
}

func TestCollapseScheduler_ScheduledCollapse(t *testing.T) {
	cs := NewCollapseScheduler(DefaultConfig().Thresholds.Collapse)
	cs.ScheduleCollapse(ScheduledCollapse{
		TriggerTime: 5.0,
		Severity:    0.9,
		Type:        CollapseScheduled,
		Description: "planned stress test",
	})

	s := NewInitialState(0.0)
	s.Timestamp = 4.0
	assert.Empty(t, cs.ProcessTick(s, true), "not due yet")

	s.Timestamp = 5.0
	fired := cs.ProcessTick(s, true)
	require.Len(t, fired, 1)
	assert.Equal(t, CollapseScheduled, fired[0].Type)
	assert.InDelta(t, 0.9, fired[0].Severity, 1e-12)
	assert.True(t, s.InCollapse)

	// Consumed: does not fire again
	s.Timestamp = 6.0
	assert.Empty(t, cs.ProcessTick(s, true))
}

func TestCollapseScheduler_ScheduledDisabled(t *testing.T) {
	cs := NewCollapseScheduler(DefaultConfig().Thresholds.Collapse)
	cs.ScheduleCollapse(ScheduledCollapse{TriggerTime: 1.0, Type: CollapseScheduled})

	s := NewInitialState(0.0)
	s.Timestamp = 10.0
	assert.Empty(t, cs.ProcessTick(s, false))
	assert.False(t, s.InCollapse)
}

func TestCollapseScheduler_CallbacksAndPanicRecovery(t *testing.T) {
	cs := NewCollapseScheduler(DefaultConfig().Thresholds.Collapse)

	var got []TriggeredCollapse
	cs.RegisterCallback(CollapseTrust, func(tc TriggeredCollapse) {
		panic("misbehaving observer")
	})
	cs.RegisterCallback(CollapseTrust, func(tc TriggeredCollapse) {
		got = append(got, tc)
	})

	s := NewInitialState(0.0)
	s.Trust.Value = 0.1

	// The panicking callback must not abort the tick or starve later callbacks
	assert.NotPanics(t, func() { cs.ProcessTick(s, true) })
	require.Len(t, got, 1)
	assert.Equal(t, CollapseTrust, got[0].Type)
	assert.NotEmpty(t, got[0].StateSnapshot)
}
