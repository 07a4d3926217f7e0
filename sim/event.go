package sim

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/google/uuid"
)

// EventKind identifies one of the closed set of event variants. Every kind
// carries its own payload and impact function; the engine applies events
// through an exhaustive switch so a new kind cannot be added without one.
type EventKind string

const (
	EventBetrayal             EventKind = "betrayal"
	EventCooperation          EventKind = "cooperation"
	EventInstitutionalFailure EventKind = "institutional_failure"
	EventBrokenPromise        EventKind = "broken_promise"
	EventManipulation         EventKind = "manipulation"
	EventRedTeamAttack        EventKind = "red_team_attack"
	EventMoralViolation       EventKind = "moral_violation"
)

// eventIDNamespace is the fixed UUIDv5 namespace for content-derived event
// IDs. IDs must be reproducible across runs, so they are derived from the
// fingerprint rather than generated randomly.
var eventIDNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// EventMeta holds the observable content shared by all event variants.
// The fingerprint is computed over exactly these fields plus the kind, so
// two events with identical observable content collapse to one fingerprint
// regardless of object identity.
type EventMeta struct {
	Timestamp   float64           `json:"timestamp"`
	Source      string            `json:"source"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Event is the closed sum over the known event kinds. Events are immutable
// once constructed (the engine stamps Timestamp at injection, before any
// fingerprint is taken) and consumed exactly once.
type Event interface {
	Kind() EventKind
	Meta() *EventMeta
	// Fingerprint is the sha256 content hash over kind + meta.
	Fingerprint() string
	// ID is the deterministic UUIDv5 derived from the fingerprint.
	ID() string
}

type fingerprintContent struct {
	Kind        EventKind         `json:"kind"`
	Timestamp   float64           `json:"timestamp"`
	Source      string            `json:"source"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata"`
}

func fingerprintEvent(kind EventKind, m *EventMeta) string {
	buf, _ := json.Marshal(fingerprintContent{
		Kind:        kind,
		Timestamp:   m.Timestamp,
		Source:      m.Source,
		Description: m.Description,
		Metadata:    m.Metadata,
	})
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:])
}

func eventID(fingerprint string) string {
	return uuid.NewSHA1(eventIDNamespace, []byte(fingerprint)).String()
}

// BetrayalEvent is a trust-destroying act. Severity scales the immediate
// trust loss and the permanent ceiling reduction; visibility scales how
// widely the damage propagates.
type BetrayalEvent struct {
	EventMeta
	Severity   float64 `json:"severity"`
	Visibility float64 `json:"visibility"`
}

func (e *BetrayalEvent) Kind() EventKind     { return EventBetrayal }
func (e *BetrayalEvent) Meta() *EventMeta    { return &e.EventMeta }
func (e *BetrayalEvent) Fingerprint() string { return fingerprintEvent(e.Kind(), e.Meta()) }
func (e *BetrayalEvent) ID() string          { return eventID(e.Fingerprint()) }

// CooperationEvent is a kindness-restoring act with diminishing returns at
// high kindness.
type CooperationEvent struct {
	EventMeta
	Magnitude   float64 `json:"magnitude"`
	Reciprocity float64 `json:"reciprocity"`
}

func (e *CooperationEvent) Kind() EventKind     { return EventCooperation }
func (e *CooperationEvent) Meta() *EventMeta    { return &e.EventMeta }
func (e *CooperationEvent) Fingerprint() string { return fingerprintEvent(e.Kind(), e.Meta()) }
func (e *CooperationEvent) ID() string          { return eventID(e.Fingerprint()) }

// InstitutionalFailureEvent erodes legitimacy.
type InstitutionalFailureEvent struct {
	EventMeta
	Scope      float64 `json:"scope"`
	Visibility float64 `json:"visibility"`
}

func (e *InstitutionalFailureEvent) Kind() EventKind  { return EventInstitutionalFailure }
func (e *InstitutionalFailureEvent) Meta() *EventMeta { return &e.EventMeta }
func (e *InstitutionalFailureEvent) Fingerprint() string {
	return fingerprintEvent(e.Kind(), e.Meta())
}
func (e *InstitutionalFailureEvent) ID() string { return eventID(e.Fingerprint()) }

// BrokenPromiseEvent erodes legitimacy proportionally to visibility.
type BrokenPromiseEvent struct {
	EventMeta
	Visibility float64 `json:"visibility"`
}

func (e *BrokenPromiseEvent) Kind() EventKind     { return EventBrokenPromise }
func (e *BrokenPromiseEvent) Meta() *EventMeta    { return &e.EventMeta }
func (e *BrokenPromiseEvent) Fingerprint() string { return fingerprintEvent(e.Kind(), e.Meta()) }
func (e *BrokenPromiseEvent) ID() string          { return eventID(e.Fingerprint()) }

// ManipulationEvent degrades epistemic confidence. Reach is the fraction of
// the population affected; sophistication is how hard it is to detect.
type ManipulationEvent struct {
	EventMeta
	Reach          float64 `json:"reach"`
	Sophistication float64 `json:"sophistication"`
}

func (e *ManipulationEvent) Kind() EventKind     { return EventManipulation }
func (e *ManipulationEvent) Meta() *EventMeta    { return &e.EventMeta }
func (e *ManipulationEvent) Fingerprint() string { return fingerprintEvent(e.Kind(), e.Meta()) }
func (e *ManipulationEvent) ID() string          { return eventID(e.Fingerprint()) }

// MoralViolationEvent accumulates moral injury and raises its floor.
type MoralViolationEvent struct {
	EventMeta
	Severity float64 `json:"severity"`
}

func (e *MoralViolationEvent) Kind() EventKind     { return EventMoralViolation }
func (e *MoralViolationEvent) Meta() *EventMeta    { return &e.EventMeta }
func (e *MoralViolationEvent) Fingerprint() string { return fingerprintEvent(e.Kind(), e.Meta()) }
func (e *MoralViolationEvent) ID() string          { return eventID(e.Fingerprint()) }

// Red-team attack types and vectors form the closed attack surface.
const (
	AttackTrust          = "trust_attack"
	AttackEpistemic      = "epistemic_attack"
	AttackInstitutional  = "institutional_attack"
	AttackSocialCohesion = "social_cohesion_attack"
	AttackLegitimacy     = "legitimacy_attack"
	AttackMoralInjury    = "moral_injury_attack"
)

// AttackVectors lists the delivery vectors in deterministic selection order.
var AttackVectors = []string{"direct", "indirect", "cascading", "coordinated"}

// AttackTypes lists the attack types in deterministic selection order.
var AttackTypes = []string{
	AttackTrust,
	AttackEpistemic,
	AttackInstitutional,
	AttackSocialCohesion,
	AttackLegitimacy,
	AttackMoralInjury,
}

// vectorMultipliers scales an attack's dimension impacts by delivery vector.
var vectorMultipliers = map[string]float64{
	"direct":      1.0,
	"indirect":    0.7,
	"cascading":   1.3,
	"coordinated": 1.5,
}

// baseAttackImpacts maps each attack type to its raw per-dimension deltas.
var baseAttackImpacts = map[string]map[string]float64{
	AttackTrust:          {DimTrust: -0.15},
	AttackEpistemic:      {DimEpistemicConfidence: -0.20},
	AttackInstitutional:  {DimLegitimacy: -0.15},
	AttackSocialCohesion: {DimTrust: -0.08, DimKindness: -0.08},
	AttackLegitimacy:     {DimLegitimacy: -0.18},
	AttackMoralInjury:    {DimKindness: -0.10, DimMoralInjury: 0.08},
}

// RedTeamEvent is an adversarial attack against one or more dimensions.
// EntropyDelta is recorded by the red-team provider after scoring the attack
// against a what-if state clone.
type RedTeamEvent struct {
	EventMeta
	AttackType             string  `json:"attack_type"`
	AttackVector           string  `json:"attack_vector"`
	VulnerabilityExploited string  `json:"vulnerability_exploited,omitempty"`
	EntropyDelta           float64 `json:"entropy_delta"`
}

func (e *RedTeamEvent) Kind() EventKind     { return EventRedTeamAttack }
func (e *RedTeamEvent) Meta() *EventMeta    { return &e.EventMeta }
func (e *RedTeamEvent) Fingerprint() string { return fingerprintEvent(e.Kind(), e.Meta()) }
func (e *RedTeamEvent) ID() string          { return eventID(e.Fingerprint()) }

// DimensionImpacts is the pure impact function for a red-team attack:
// base impacts for the attack type scaled by the delivery vector. Unknown
// types or vectors yield no impact.
func (e *RedTeamEvent) DimensionImpacts() map[string]float64 {
	base, ok := baseAttackImpacts[e.AttackType]
	if !ok {
		return map[string]float64{}
	}
	mult, ok := vectorMultipliers[e.AttackVector]
	if !ok {
		mult = 1.0
	}
	impacts := make(map[string]float64, len(base))
	for dim, v := range base {
		impacts[dim] = v * mult
	}
	return impacts
}
