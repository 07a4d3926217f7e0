package sim

import (
	"encoding/json"

	"github.com/sirupsen/logrus"
)

// CollapseType names a collapse trigger.
type CollapseType string

const (
	CollapseKindnessSingularity CollapseType = "kindness_singularity"
	CollapseTrust               CollapseType = "trust_collapse"
	CollapseMoralInjury         CollapseType = "moral_injury_critical"
	CollapseLegitimacy          CollapseType = "legitimacy_failure"
	CollapseEpistemic           CollapseType = "epistemic_collapse"
	CollapseScheduled           CollapseType = "scheduled"
)

// thresholdOrder fixes the per-tick evaluation order of automatic triggers.
var thresholdOrder = []CollapseType{
	CollapseKindnessSingularity,
	CollapseTrust,
	CollapseMoralInjury,
	CollapseLegitimacy,
	CollapseEpistemic,
}

// ScheduledCollapse is an explicitly scheduled terminal condition with a
// future trigger time.
type ScheduledCollapse struct {
	TriggerTime float64      `json:"trigger_time"`
	Severity    float64      `json:"severity"`
	Type        CollapseType `json:"type"`
	Description string       `json:"description,omitempty"`
}

// TriggeredCollapse records a collapse that fired, with a snapshot of the
// state at trigger time.
type TriggeredCollapse struct {
	Type          CollapseType    `json:"type"`
	Timestamp     float64         `json:"timestamp"`
	Tick          int64           `json:"tick"`
	Severity      float64         `json:"severity"`
	Reason        string          `json:"reason"`
	StateSnapshot json.RawMessage `json:"state_snapshot,omitempty"`
}

// CollapseCallback is invoked when a collapse of its registered type fires.
// Panics inside callbacks are recovered and logged; a misbehaving callback
// must not abort the tick.
type CollapseCallback func(TriggeredCollapse)

// CollapseScheduler owns both trigger mechanisms: explicitly scheduled
// collapses checked against current time, and the five automatic threshold
// triggers, each firable at most once per run. Callback registration is an
// explicit per-instance mapping, not a global registry.
type CollapseScheduler struct {
	thresholds CollapseThresholds

	scheduled []ScheduledCollapse
	triggered []TriggeredCollapse
	fired     map[CollapseType]bool
	callbacks map[CollapseType][]CollapseCallback
}

// NewCollapseScheduler creates a scheduler with the given automatic
// thresholds and no scheduled collapses.
func NewCollapseScheduler(thresholds CollapseThresholds) *CollapseScheduler {
	return &CollapseScheduler{
		thresholds: thresholds,
		fired:      make(map[CollapseType]bool),
		callbacks:  make(map[CollapseType][]CollapseCallback),
	}
}

// ScheduleCollapse registers an explicit future collapse.
func (cs *CollapseScheduler) ScheduleCollapse(sc ScheduledCollapse) {
	cs.scheduled = append(cs.scheduled, sc)
	logrus.Infof("collapse scheduled: %s at t=%.2f severity=%.2f", sc.Type, sc.TriggerTime, sc.Severity)
}

// RegisterCallback appends a callback to the ordered list for the given type.
func (cs *CollapseScheduler) RegisterCallback(t CollapseType, cb CollapseCallback) {
	cs.callbacks[t] = append(cs.callbacks[t], cb)
}

// ProcessTick evaluates scheduled collapses against current time and the
// automatic thresholds against the state, fires any due triggers, and
// returns what fired this tick. Threshold triggers are idempotent: one
// already recorded as fired is skipped even if the condition still holds.
func (cs *CollapseScheduler) ProcessTick(s *StateVector, includeScheduled bool) []TriggeredCollapse {
	var fired []TriggeredCollapse

	if includeScheduled {
		remaining := cs.scheduled[:0]
		for _, sc := range cs.scheduled {
			if sc.TriggerTime <= s.Timestamp {
				fired = append(fired, cs.fire(s, sc.Type, sc.Severity, sc.Description))
			} else {
				remaining = append(remaining, sc)
			}
		}
		cs.scheduled = remaining
	}

	for _, t := range thresholdOrder {
		if cs.fired[t] {
			continue
		}
		crossed, severity := cs.thresholdCrossed(s, t)
		if !crossed {
			continue
		}
		cs.fired[t] = true
		fired = append(fired, cs.fire(s, t, severity, string(t)+" threshold crossed"))
	}

	return fired
}

func (cs *CollapseScheduler) thresholdCrossed(s *StateVector, t CollapseType) (bool, float64) {
	switch t {
	case CollapseKindnessSingularity:
		return s.Kindness.Value < cs.thresholds.KindnessSingularity, cs.thresholds.KindnessSingularity - s.Kindness.Value
	case CollapseTrust:
		return s.Trust.Value < cs.thresholds.TrustCollapse, cs.thresholds.TrustCollapse - s.Trust.Value
	case CollapseMoralInjury:
		return s.MoralInjury.Value > cs.thresholds.MoralInjuryCritical, s.MoralInjury.Value - cs.thresholds.MoralInjuryCritical
	case CollapseLegitimacy:
		return s.Legitimacy.Value < cs.thresholds.LegitimacyFailure, cs.thresholds.LegitimacyFailure - s.Legitimacy.Value
	case CollapseEpistemic:
		return s.EpistemicConfidence.Value < cs.thresholds.EpistemicCollapse, cs.thresholds.EpistemicCollapse - s.EpistemicConfidence.Value
	}
	return false, 0
}

// fire latches the collapse flag, snapshots the state into the record and
// runs the registered callbacks behind a recover boundary.
func (cs *CollapseScheduler) fire(s *StateVector, t CollapseType, severity float64, reason string) TriggeredCollapse {
	if !s.InCollapse {
		s.InCollapse = true
		s.CollapseTriggeredAt = s.Timestamp
		s.CollapseReason = reason
		logrus.Errorf("COLLAPSE TRIGGERED: %s (%s)", t, reason)
	}
	tc := TriggeredCollapse{
		Type:          t,
		Timestamp:     s.Timestamp,
		Tick:          s.TickCount,
		Severity:      severity,
		Reason:        reason,
		StateSnapshot: s.CanonicalJSON(),
	}
	cs.triggered = append(cs.triggered, tc)

	for i, cb := range cs.callbacks[t] {
		cs.invoke(t, i, cb, tc)
	}
	return tc
}

func (cs *CollapseScheduler) invoke(t CollapseType, idx int, cb CollapseCallback, tc TriggeredCollapse) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("collapse callback %s[%d] panicked: %v", t, idx, r)
		}
	}()
	cb(tc)
}

// ExportCollapses returns every triggered collapse in firing order.
func (cs *CollapseScheduler) ExportCollapses() []TriggeredCollapse {
	out := make([]TriggeredCollapse, len(cs.triggered))
	copy(out, cs.triggered)
	return out
}

// Summary returns the scheduler's observable counters.
func (cs *CollapseScheduler) Summary() map[string]any {
	firedTypes := make([]string, 0, len(cs.fired))
	for _, t := range thresholdOrder {
		if cs.fired[t] {
			firedTypes = append(firedTypes, string(t))
		}
	}
	return map[string]any{
		"scheduled_pending": len(cs.scheduled),
		"triggered_total":   len(cs.triggered),
		"fired_thresholds":  firedTypes,
		"callback_types":    len(cs.callbacks),
	}
}
