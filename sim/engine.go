package sim

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/collapse-sim/collapse-sim/sim/ledger"
)

// Lifecycle errors. Tick and InjectEvent outside the running state fail
// explicitly, never silently no-op.
var (
	ErrNotInitialized = errors.New("engine not initialized: call Init first")
	ErrNotRunning     = errors.New("engine not running")
	ErrTerminated     = errors.New("engine terminated")
)

// collapseObservationTicks is how long a run is allowed to linger in
// collapse before terminating.
const collapseObservationTicks = 50

// TickResult is the structured outcome of one Tick call.
type TickResult struct {
	Tick      int64   `json:"tick"`
	Timestamp float64 `json:"timestamp"`

	LawDeltas LawDeltas           `json:"law_deltas"`
	Providers []ProviderResult    `json:"providers,omitempty"`
	Collapses []TriggeredCollapse `json:"collapses,omitempty"`
	Metrics   MetricsPoint        `json:"metrics"`

	InCollapse     bool    `json:"in_collapse"`
	CollapseReason string  `json:"collapse_reason,omitempty"`
	Terminal       bool    `json:"terminal"`
	FinalOutcome   Outcome `json:"final_outcome,omitempty"`
}

// Query selects what Observe returns.
type Query struct {
	Type string `json:"type"`
}

// Artifacts is the exportable archival document for one run. Field names are
// stable across ticks and runs so exports can be diffed.
type Artifacts struct {
	Config          Config                    `json:"config"`
	FinalState      json.RawMessage           `json:"final_state"`
	Timeline        ledger.Export             `json:"timeline"`
	MetricsHistory  []MetricsPoint            `json:"metrics_history"`
	CollapseEvents  []TriggeredCollapse       `json:"collapse_events"`
	CausalChain     []CausalEvent             `json:"causal_chain"`
	OutcomeReport   OutcomeReport             `json:"outcome_report"`
	ModuleSummaries map[string]map[string]any `json:"module_summaries"`
}

// Engine is the public state machine composing clock, laws, scheduler,
// dynamics providers, metrics and ledger:
// uninitialized → running ⇄ ticking → terminated.
// It is single-threaded and synchronous; the total ordering of sub-steps
// inside Tick is part of the contract.
type Engine struct {
	cfg Config

	state    *StateVector
	clock    *RealityClock
	laws     *Laws
	collapse *CollapseScheduler
	metrics  *Metrics
	timeline *ledger.Timeline
	rng      *PartitionedRNG

	humanForces           *HumanForces
	institutionalPressure *InstitutionalPressure
	perceptionWarfare     *PerceptionWarfare
	redTeam               *RedTeam
	providers             []DynamicsProvider

	initialized bool
	running     bool
	terminated  bool
	outcome     Outcome
}

// NewEngine creates an uninitialized engine. Call Init before Tick.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Init validates the configuration and constructs every sub-component,
// recording the tick-0 snapshot. A validation or construction failure is
// reported and leaves the engine uninitialized.
func (e *Engine) Init() error {
	if err := e.cfg.Validate(); err != nil {
		logrus.Errorf("initialization failed: %v", err)
		return fmt.Errorf("init: %w", err)
	}

	e.clock = NewRealityClock(0.0, e.cfg.Simulation.TimeStep)
	e.laws = NewLaws(e.cfg.Laws)
	e.collapse = NewCollapseScheduler(e.cfg.Thresholds.Collapse)
	e.metrics = NewMetrics()
	e.timeline = ledger.NewTimeline()
	e.rng = NewPartitionedRNG(e.cfg.Seed)
	e.state = NewInitialState(0.0)

	e.humanForces = NewHumanForces(e.laws, e.rng)
	e.institutionalPressure = NewInstitutionalPressure(e.laws, e.rng)
	e.perceptionWarfare = NewPerceptionWarfare(e.laws, e.rng)
	e.redTeam = NewRedTeam(e.laws, e.rng, e.cfg.Features.BlackVault)
	e.providers = []DynamicsProvider{
		e.humanForces,
		e.institutionalPressure,
		e.perceptionWarfare,
		e.redTeam,
	}

	e.timeline.CreateSnapshot(0, 0.0, e.state.CanonicalJSON())
	e.metrics.Compute(e.state)

	e.initialized = true
	e.running = true
	e.terminated = false
	e.outcome = ""

	logrus.Infof("engine initialized: %s (seed %d, max ticks %d)",
		e.cfg.SimulationName, e.cfg.Seed, e.cfg.Simulation.MaxTicks)
	return nil
}

// checkRunning enforces the lifecycle contract.
func (e *Engine) checkRunning() error {
	if !e.initialized {
		return ErrNotInitialized
	}
	if e.terminated {
		return ErrTerminated
	}
	if !e.running {
		return ErrNotRunning
	}
	return nil
}

// Tick advances the simulation by one time step: snapshot state-before,
// advance clock, natural-decay laws, derived metrics, dynamics providers,
// collapse evaluation, scheduler, ledger record, periodic snapshot, terminal
// evaluation. Later steps read state mutated by earlier ones, so this order
// is part of the contract.
func (e *Engine) Tick() (TickResult, error) {
	if err := e.checkRunning(); err != nil {
		return TickResult{}, err
	}

	before := e.state.Clone()
	beforeJSON := before.CanonicalJSON()
	beforeValues := before.DimensionValues()

	now := e.clock.Tick()
	e.state.Timestamp = now
	e.state.TickCount++
	logrus.Debugf("=== tick %d (t=%.2f) ===", e.state.TickCount, now)

	res := TickResult{Tick: e.state.TickCount, Timestamp: now}

	res.LawDeltas = e.laws.TickAll(e.state)
	e.state.UpdateDerived()

	if e.cfg.Features.Dynamics {
		for _, p := range e.providers {
			res.Providers = append(res.Providers, p.Apply(e.state))
		}
		e.state.UpdateDerived()
	}

	if crossed, reason := e.state.CheckCollapse(e.cfg.Thresholds.Collapse); crossed && !e.state.InCollapse {
		e.state.InCollapse = true
		e.state.CollapseTriggeredAt = e.state.Timestamp
		e.state.CollapseReason = reason
		logrus.Errorf("COLLAPSE TRIGGERED: %s", reason)
	}

	res.Collapses = e.collapse.ProcessTick(e.state, e.cfg.Features.ScheduledCollapses)

	if e.state.InCollapse && e.cfg.Collapse.AccelerationEnabled {
		e.laws.CollapseAcceleration(e.state, e.cfg.Collapse.AccelerationFactor)
		e.state.UpdateDerived()
	}

	res.Metrics = e.metrics.Compute(e.state)

	afterJSON := e.state.CanonicalJSON()
	afterValues := e.state.DimensionValues()
	delta := make(map[string]float64, len(afterValues)+2)
	for name, v := range afterValues {
		delta[name] = v - beforeValues[name]
	}
	delta["system_health"] = res.Metrics.SystemHealth
	delta["collapse_risk"] = res.Metrics.CollapseRisk
	e.timeline.Record(e.state.TickCount, now, nil, beforeJSON, afterJSON,
		delta, afterValues, e.cfg.Features.LedgerStateBlobs)

	if e.state.TickCount%e.cfg.Simulation.SnapshotInterval == 0 {
		e.timeline.CreateSnapshot(e.state.TickCount, now, afterJSON)
	}

	res.InCollapse = e.state.InCollapse
	res.CollapseReason = e.state.CollapseReason
	res.Terminal = e.checkTerminal()
	if res.Terminal {
		e.running = false
		e.terminated = true
		e.outcome = ClassifyOutcome(e.state, e.cfg.Thresholds.Outcome)
		res.FinalOutcome = e.outcome
		logrus.Errorf("SIMULATION TERMINATED: %s", e.outcome)
	}

	return res, nil
}

// InjectEvent stamps the event to the current time, applies its impact via
// the laws, records it in the ledger and marks an irreversible causal entry.
// Acceptance is all-or-nothing: a rejected event applies no state change.
func (e *Engine) InjectEvent(ev Event) error {
	if err := e.checkRunning(); err != nil {
		logrus.Warnf("cannot inject event: %v", err)
		return err
	}

	ev.Meta().Timestamp = e.state.Timestamp

	before := e.state.Clone()
	beforeJSON := before.CanonicalJSON()
	beforeValues := before.DimensionValues()

	changes, err := e.applyEvent(ev)
	if err != nil {
		return err
	}
	e.state.UpdateDerived()

	afterJSON := e.state.CanonicalJSON()
	afterValues := e.state.DimensionValues()
	delta := make(map[string]float64, len(afterValues)+len(changes))
	for name, v := range afterValues {
		delta[name] = v - beforeValues[name]
	}
	for k, v := range changes {
		delta[k] = v
	}

	rec := &ledger.EventRecord{
		ID:          ev.ID(),
		Kind:        string(ev.Kind()),
		Source:      ev.Meta().Source,
		Description: ev.Meta().Description,
		Fingerprint: ev.Fingerprint(),
	}
	e.timeline.Record(e.state.TickCount, e.state.Timestamp, rec,
		beforeJSON, afterJSON, delta, afterValues, e.cfg.Features.LedgerStateBlobs)

	if err := e.clock.RecordEvent(ev.ID(), nil, true); err != nil {
		// Same content injected twice at the same time: the causal node
		// already exists. The impact stands; the chain stays consistent.
		logrus.Debugf("causal record skipped for %s: %v", ev.ID(), err)
	}

	logrus.Infof("event injected: %s (%s)", ev.Kind(), ev.ID())
	return nil
}

// applyEvent dispatches the event to its impact law. The switch is
// exhaustive over the closed kind set; anything else is rejected before any
// state mutation.
func (e *Engine) applyEvent(ev Event) (map[string]float64, error) {
	switch v := ev.(type) {
	case *BetrayalEvent:
		return e.laws.ApplyBetrayalImpact(e.state, v.Severity), nil
	case *CooperationEvent:
		applied := e.laws.ApplyCooperationBoost(e.state, v.Magnitude)
		return map[string]float64{"kindness_boost": applied}, nil
	case *InstitutionalFailureEvent:
		applied := e.laws.LegitimacyErosion(e.state, 0, 1, v.Visibility)
		return map[string]float64{"legitimacy_change": applied}, nil
	case *BrokenPromiseEvent:
		applied := e.laws.LegitimacyErosion(e.state, 1, 0, v.Visibility)
		return map[string]float64{"legitimacy_change": applied}, nil
	case *ManipulationEvent:
		return e.laws.ApplyManipulationImpact(e.state, v.Reach, v.Sophistication), nil
	case *MoralViolationEvent:
		return e.laws.AccumulateMoralInjury(e.state, v.Severity), nil
	case *RedTeamEvent:
		changes := make(map[string]float64)
		for dim, impact := range v.DimensionImpacts() {
			if d := e.state.Dimension(dim); d != nil {
				changes[dim+"_impact"] = d.Update(impact, e.state.Timestamp)
			}
		}
		return changes, nil
	default:
		return nil, fmt.Errorf("reject event: unknown kind %q", ev.Kind())
	}
}

// checkTerminal evaluates the three terminal conditions: max ticks reached,
// extended time in collapse, or at least four of the five critical
// thresholds crossed.
func (e *Engine) checkTerminal() bool {
	if e.state.TickCount >= e.cfg.Simulation.MaxTicks {
		logrus.Infof("max ticks reached: %d", e.cfg.Simulation.MaxTicks)
		return true
	}

	if e.state.InCollapse {
		ticksInCollapse := e.state.TickCount - int64(e.state.CollapseTriggeredAt/e.cfg.Simulation.TimeStep)
		if ticksInCollapse > collapseObservationTicks {
			logrus.Info("extended collapse state, terminating")
			return true
		}
	}

	th := e.cfg.Thresholds.Collapse
	crossed := 0
	if e.state.Kindness.Value < th.KindnessSingularity {
		crossed++
	}
	if e.state.Trust.Value < th.TrustCollapse {
		crossed++
	}
	if e.state.MoralInjury.Value > th.MoralInjuryCritical {
		crossed++
	}
	if e.state.Legitimacy.Value < th.LegitimacyFailure {
		crossed++
	}
	if e.state.EpistemicConfidence.Value < th.EpistemicCollapse {
		crossed++
	}
	if crossed >= 4 {
		logrus.Error("multiple critical thresholds crossed, terminal state")
		return true
	}
	return false
}

// Observe answers read-only queries. Unknown query types return an explicit
// result, never an error or a panic; Observe never mutates.
func (e *Engine) Observe(q Query) map[string]any {
	if !e.initialized {
		return map[string]any{"error": "engine not initialized"}
	}

	switch q.Type {
	case "state", "":
		return map[string]any{"state": json.RawMessage(e.state.CanonicalJSON())}
	case "metrics":
		return e.metrics.Summary()
	case "timeline":
		return e.timeline.Summary()
	case "collapse":
		return e.collapse.Summary()
	case "clock":
		return e.clock.Summary()
	case "human_forces":
		return e.humanForces.Summary()
	case "institutional_pressure":
		return e.institutionalPressure.Summary()
	case "perception_warfare":
		return e.perceptionWarfare.Summary()
	case "red_team":
		return e.redTeam.Summary()
	case "outcomes":
		report := BuildOutcomeReport(e.state, e.cfg.Thresholds.Outcome)
		return map[string]any{"outcome_report": report}
	case "all":
		return map[string]any{
			"state":          json.RawMessage(e.state.CanonicalJSON()),
			"metrics":        e.metrics.Summary(),
			"timeline":       e.timeline.Summary(),
			"collapse":       e.collapse.Summary(),
			"clock":          e.clock.Summary(),
			"modules":        e.moduleSummaries(),
			"outcome_report": BuildOutcomeReport(e.state, e.cfg.Thresholds.Outcome),
		}
	default:
		return map[string]any{"error": fmt.Sprintf("unknown query type: %q", q.Type)}
	}
}

func (e *Engine) moduleSummaries() map[string]map[string]any {
	return map[string]map[string]any{
		"human_forces":           e.humanForces.Summary(),
		"institutional_pressure": e.institutionalPressure.Summary(),
		"perception_warfare":     e.perceptionWarfare.Summary(),
		"red_team":               e.redTeam.Summary(),
		"metrics":                e.metrics.Summary(),
		"timeline":               e.timeline.Summary(),
		"collapse":               e.collapse.Summary(),
	}
}

// ExportArtifacts serializes everything needed for archival or offline
// audit of the run.
func (e *Engine) ExportArtifacts() (*Artifacts, error) {
	if !e.initialized {
		return nil, ErrNotInitialized
	}
	logrus.Info("generating export artifacts")
	return &Artifacts{
		Config:          e.cfg,
		FinalState:      json.RawMessage(e.state.CanonicalJSON()),
		Timeline:        e.timeline.ExportTimeline(e.cfg.Features.LedgerStateBlobs),
		MetricsHistory:  e.metrics.Export(),
		CollapseEvents:  e.collapse.ExportCollapses(),
		CausalChain:     e.clock.ExportCausalChain(),
		OutcomeReport:   BuildOutcomeReport(e.state, e.cfg.Thresholds.Outcome),
		ModuleSummaries: e.moduleSummaries(),
	}, nil
}

// Reset returns the engine to the uninitialized state, discarding the run.
func (e *Engine) Reset() {
	e.state = nil
	e.clock = nil
	e.laws = nil
	e.collapse = nil
	e.metrics = nil
	e.timeline = nil
	e.rng = nil
	e.providers = nil
	e.humanForces = nil
	e.institutionalPressure = nil
	e.perceptionWarfare = nil
	e.redTeam = nil
	e.initialized = false
	e.running = false
	e.terminated = false
	e.outcome = ""
	logrus.Info("engine reset")
}

// State exposes the live state vector for inspection and scenario forcing.
// Mutating it outside the engine bypasses the laws; tests use this to set up
// edge conditions.
func (e *Engine) State() *StateVector { return e.state }

// Timeline exposes the ledger for verification.
func (e *Engine) Timeline() *ledger.Timeline { return e.timeline }

// Clock exposes the reality clock for causal queries.
func (e *Engine) Clock() *RealityClock { return e.clock }

// Scheduler exposes the collapse scheduler for explicit scheduling and
// callback registration.
func (e *Engine) Scheduler() *CollapseScheduler { return e.collapse }

// RedTeamModule exposes the red-team provider (attack history, vault).
func (e *Engine) RedTeamModule() *RedTeam { return e.redTeam }

// Running reports whether the engine accepts Tick and InjectEvent.
func (e *Engine) Running() bool { return e.initialized && e.running && !e.terminated }

// FinalOutcome returns the classification once terminated, or "" before.
func (e *Engine) FinalOutcome() Outcome { return e.outcome }
