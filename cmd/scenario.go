package cmd

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	sim "github.com/collapse-sim/collapse-sim/sim"
)

// ScenarioEvent is one scripted injection. Only the payload fields relevant
// to the kind are read; the rest are ignored.
type ScenarioEvent struct {
	Tick        int64  `yaml:"tick"`
	Kind        string `yaml:"kind"`
	Source      string `yaml:"source"`
	Description string `yaml:"description"`

	Severity       float64 `yaml:"severity"`
	Visibility     float64 `yaml:"visibility"`
	Magnitude      float64 `yaml:"magnitude"`
	Reciprocity    float64 `yaml:"reciprocity"`
	Scope          float64 `yaml:"scope"`
	Reach          float64 `yaml:"reach"`
	Sophistication float64 `yaml:"sophistication"`
	AttackType     string  `yaml:"attack_type"`
	AttackVector   string  `yaml:"attack_vector"`
}

// Scenario is a scripted run: a name plus events injected at given ticks.
type Scenario struct {
	Name   string          `yaml:"name"`
	Events []ScenarioEvent `yaml:"events"`
}

// LoadScenario reads a scenario YAML file and sorts its events by tick.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	sort.SliceStable(sc.Events, func(i, j int) bool { return sc.Events[i].Tick < sc.Events[j].Tick })
	for i, ev := range sc.Events {
		if _, err := ev.Build(); err != nil {
			return nil, fmt.Errorf("scenario event %d: %w", i, err)
		}
	}
	return &sc, nil
}

// Build constructs the engine event for this scripted entry.
func (se ScenarioEvent) Build() (sim.Event, error) {
	source := se.Source
	if source == "" {
		source = "scenario"
	}
	meta := sim.EventMeta{Source: source, Description: se.Description}

	switch sim.EventKind(se.Kind) {
	case sim.EventBetrayal:
		return &sim.BetrayalEvent{EventMeta: meta, Severity: se.Severity, Visibility: se.Visibility}, nil
	case sim.EventCooperation:
		return &sim.CooperationEvent{EventMeta: meta, Magnitude: se.Magnitude, Reciprocity: se.Reciprocity}, nil
	case sim.EventInstitutionalFailure:
		return &sim.InstitutionalFailureEvent{EventMeta: meta, Scope: se.Scope, Visibility: se.Visibility}, nil
	case sim.EventBrokenPromise:
		return &sim.BrokenPromiseEvent{EventMeta: meta, Visibility: se.Visibility}, nil
	case sim.EventManipulation:
		return &sim.ManipulationEvent{EventMeta: meta, Reach: se.Reach, Sophistication: se.Sophistication}, nil
	case sim.EventMoralViolation:
		return &sim.MoralViolationEvent{EventMeta: meta, Severity: se.Severity}, nil
	case sim.EventRedTeamAttack:
		return &sim.RedTeamEvent{EventMeta: meta, AttackType: se.AttackType, AttackVector: se.AttackVector}, nil
	default:
		return nil, fmt.Errorf("unknown event kind %q", se.Kind)
	}
}

// EventsAt returns the scripted events for one tick.
func (sc *Scenario) EventsAt(tick int64) []ScenarioEvent {
	var out []ScenarioEvent
	for _, ev := range sc.Events {
		if ev.Tick == tick {
			out = append(out, ev)
		}
	}
	return out
}
