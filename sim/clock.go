package sim

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// CausalEvent is a node in the reality clock's causal DAG.
type CausalEvent struct {
	ID           string   `json:"id"`
	Timestamp    float64  `json:"timestamp"`
	CausalOrder  int64    `json:"causal_order"`
	Parents      []string `json:"parents,omitempty"`
	Irreversible bool     `json:"irreversible"`
}

// RealityClock advances simulation time in fixed steps and records a causal
// DAG of events. It answers rewind-feasibility queries but implements no
// actual rewind: the oracle only.
type RealityClock struct {
	CurrentTime float64
	TimeStep    float64
	TickCount   int64

	causalOrder int64
	events      map[string]*CausalEvent
	order       []string // insertion order, ascending causal order
}

// NewRealityClock creates a clock at startTime advancing by timeStep per tick.
func NewRealityClock(startTime, timeStep float64) *RealityClock {
	return &RealityClock{
		CurrentTime: startTime,
		TimeStep:    timeStep,
		events:      make(map[string]*CausalEvent),
	}
}

// Tick advances the clock by one step and returns the new time. Pure
// arithmetic, no suspension.
func (c *RealityClock) Tick() float64 {
	c.CurrentTime += c.TimeStep
	c.TickCount++
	return c.CurrentTime
}

// RecordEvent appends a causal node at the current time. It rejects unknown
// parent IDs and parents whose causal order is not strictly less than the
// child's.
func (c *RealityClock) RecordEvent(id string, parents []string, irreversible bool) error {
	if _, exists := c.events[id]; exists {
		return fmt.Errorf("causal event %q already recorded", id)
	}
	childOrder := c.causalOrder + 1
	for _, pid := range parents {
		parent, ok := c.events[pid]
		if !ok {
			return fmt.Errorf("causal event %q references unknown parent %q", id, pid)
		}
		if parent.CausalOrder >= childOrder {
			return fmt.Errorf("causal event %q parent %q has order %d >= child order %d",
				id, pid, parent.CausalOrder, childOrder)
		}
	}
	c.causalOrder = childOrder
	ev := &CausalEvent{
		ID:           id,
		Timestamp:    c.CurrentTime,
		CausalOrder:  childOrder,
		Parents:      append([]string(nil), parents...),
		Irreversible: irreversible,
	}
	c.events[id] = ev
	c.order = append(c.order, id)
	logrus.Debugf("causal event recorded: %s order=%d irreversible=%v", id, childOrder, irreversible)
	return nil
}

// CanRewindTo reports whether every causal event timestamped after t is
// non-irreversible, i.e. whether that point could be restored without
// discarding irreversible history. Read-only feasibility query.
func (c *RealityClock) CanRewindTo(t float64) bool {
	for _, id := range c.order {
		ev := c.events[id]
		if ev.Timestamp > t && ev.Irreversible {
			return false
		}
	}
	return true
}

// VerifyCausalConsistency re-walks the DAG checking that every parent exists
// and strictly precedes its child in causal order. A violation indicates the
// recorded history can no longer be trusted; it is reported, never repaired.
func (c *RealityClock) VerifyCausalConsistency() error {
	for _, id := range c.order {
		ev := c.events[id]
		for _, pid := range ev.Parents {
			parent, ok := c.events[pid]
			if !ok {
				return fmt.Errorf("causal inconsistency: %q references unknown parent %q", id, pid)
			}
			if parent.CausalOrder >= ev.CausalOrder {
				return fmt.Errorf("causal inconsistency: parent %q order %d >= child %q order %d",
					pid, parent.CausalOrder, id, ev.CausalOrder)
			}
		}
	}
	return nil
}

// ExportCausalChain returns every causal event in ascending causal order.
func (c *RealityClock) ExportCausalChain() []CausalEvent {
	out := make([]CausalEvent, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.events[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CausalOrder < out[j].CausalOrder })
	return out
}

// Summary returns the clock's observable counters.
func (c *RealityClock) Summary() map[string]any {
	irreversible := 0
	for _, ev := range c.events {
		if ev.Irreversible {
			irreversible++
		}
	}
	return map[string]any{
		"current_time":        c.CurrentTime,
		"tick_count":          c.TickCount,
		"causal_events":       len(c.events),
		"irreversible_events": irreversible,
	}
}
