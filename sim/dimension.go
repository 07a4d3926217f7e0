package sim

import (
	"github.com/sirupsen/logrus"
)

// DimensionChange records a single applied update to a BoundedDimension.
type DimensionChange struct {
	Timestamp float64 `json:"timestamp"`
	Delta     float64 `json:"delta"` // delta after clamping, not the requested one
	Value     float64 `json:"value"` // value after the change
}

// BoundedDimension is a scalar state dimension clamped to [Min, Max] with
// optional one-way bounds. A Ceiling can only ever be lowered and a Floor
// only ever raised over the dimension's lifetime, so past damage permanently
// limits the best (or worst) value the dimension can reach again.
type BoundedDimension struct {
	Name    string            `json:"name"`
	Value   float64           `json:"value"`
	Min     float64           `json:"min"`
	Max     float64           `json:"max"`
	Ceiling *float64          `json:"ceiling,omitempty"`
	Floor   *float64          `json:"floor,omitempty"`
	History []DimensionChange `json:"-"`
}

// NewBoundedDimension creates a dimension with an initial value clamped to
// [min, max] and no ceiling or floor.
func NewBoundedDimension(name string, initial, min, max float64) *BoundedDimension {
	d := &BoundedDimension{
		Name:    name,
		Value:   clamp(initial, min, max),
		Min:     min,
		Max:     max,
		History: make([]DimensionChange, 0),
	}
	return d
}

// Update applies delta to the dimension, re-clamping against all four bounds,
// and returns the delta actually applied. A dimension pinned at its floor (or
// ceiling) reports a zero delta rather than an error.
func (d *BoundedDimension) Update(delta, timestamp float64) float64 {
	old := d.Value
	next := clamp(old+delta, d.EffectiveMin(), d.EffectiveMax())
	applied := next - old
	d.Value = next
	d.History = append(d.History, DimensionChange{
		Timestamp: timestamp,
		Delta:     applied,
		Value:     next,
	})
	return applied
}

// ImposeCeiling lowers the recovery ceiling. A ceiling can never be raised:
// attempts to loosen an existing ceiling are ignored. The live value is
// pulled down if it now exceeds the ceiling. Returns true if the bound
// tightened.
func (d *BoundedDimension) ImposeCeiling(ceiling float64) bool {
	if ceiling < d.Min {
		ceiling = d.Min
	}
	if d.Ceiling != nil && ceiling >= *d.Ceiling {
		return false
	}
	c := ceiling
	d.Ceiling = &c
	if d.Value > c {
		d.Value = c
	}
	logrus.Debugf("dimension %s: ceiling imposed at %.4f", d.Name, c)
	return true
}

// ImposeFloor raises the accumulation floor. A floor can never be lowered:
// attempts to loosen an existing floor are ignored. The live value is pulled
// up if it now falls below the floor. Returns true if the bound tightened.
func (d *BoundedDimension) ImposeFloor(floor float64) bool {
	if floor > d.Max {
		floor = d.Max
	}
	if d.Floor != nil && floor <= *d.Floor {
		return false
	}
	f := floor
	d.Floor = &f
	if d.Value < f {
		d.Value = f
	}
	logrus.Debugf("dimension %s: floor imposed at %.4f", d.Name, f)
	return true
}

// EffectiveMax is the tighter of Max and the active ceiling.
func (d *BoundedDimension) EffectiveMax() float64 {
	if d.Ceiling != nil && *d.Ceiling < d.Max {
		return *d.Ceiling
	}
	return d.Max
}

// EffectiveMin is the tighter of Min and the active floor.
func (d *BoundedDimension) EffectiveMin() float64 {
	if d.Floor != nil && *d.Floor > d.Min {
		return *d.Floor
	}
	return d.Min
}

// Clone returns a fully independent copy with its own bound pointers and
// history slice, so what-if trial updates cannot leak into the original.
func (d *BoundedDimension) Clone() *BoundedDimension {
	cp := &BoundedDimension{
		Name:  d.Name,
		Value: d.Value,
		Min:   d.Min,
		Max:   d.Max,
	}
	if d.Ceiling != nil {
		c := *d.Ceiling
		cp.Ceiling = &c
	}
	if d.Floor != nil {
		f := *d.Floor
		cp.Floor = &f
	}
	cp.History = make([]DimensionChange, len(d.History))
	copy(cp.History, d.History)
	return cp
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
