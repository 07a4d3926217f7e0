package sim

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

// Vulnerability is a weakness identified by an attack-surface scan.
type Vulnerability struct {
	ID             string  `json:"vulnerability_id"`
	Type           string  `json:"type"`
	Severity       float64 `json:"severity"`
	Exploitability float64 `json:"exploitability"`
	DiscoveredAt   float64 `json:"discovered_at"`
	Exploited      bool    `json:"exploited"`
}

// AttackRecord is one executed (or vault-blocked) attack.
type AttackRecord struct {
	Timestamp     float64 `json:"timestamp"`
	AttackType    string  `json:"attack_type"`
	AttackVector  string  `json:"attack_vector"`
	Vulnerability string  `json:"vulnerability,omitempty"`
	EntropyDelta  float64 `json:"entropy_delta"`
	EventID       string  `json:"event_id"`
	Fingerprint   string  `json:"fingerprint"`
	Blocked       bool    `json:"blocked"`
}

// EntropyPoint is one sample of post-attack state entropy.
type EntropyPoint struct {
	Timestamp float64 `json:"timestamp"`
	Entropy   float64 `json:"entropy"`
}

// RedTeam runs adversarial attacks against the state. Attacks are scored by
// the Shannon-entropy change they induce on a what-if state clone, and
// deduplicated through a black vault of content fingerprints: a repeated
// attack with identical observable content is blocked.
type RedTeam struct {
	laws *Laws
	rng  *rand.Rand

	blackVaultEnabled bool
	blackVault        map[string]struct{}

	vulns     map[string]*Vulnerability
	vulnOrder []string
	exploited map[string]struct{}

	attackHistory  []AttackRecord
	entropyHistory []EntropyPoint
	successful     int
	failed         int
}

// NewRedTeam creates the provider with its own RNG stream.
func NewRedTeam(laws *Laws, rng *PartitionedRNG, blackVaultEnabled bool) *RedTeam {
	return &RedTeam{
		laws:              laws,
		rng:               rng.ForSubsystem(SubsystemRedTeam),
		blackVaultEnabled: blackVaultEnabled,
		blackVault:        make(map[string]struct{}),
		vulns:             make(map[string]*Vulnerability),
		exploited:         make(map[string]struct{}),
	}
}

func (rt *RedTeam) Name() string { return "red_team" }

// StateEntropy computes the Shannon entropy (in bits) of the state treated
// as a probability distribution over its eight dimensions: the five primary
// values plus the three derived metrics. Higher entropy means more disorder.
func StateEntropy(s *StateVector) float64 {
	dims := []float64{
		s.Trust.Value,
		s.Legitimacy.Value,
		s.Kindness.Value,
		s.MoralInjury.Value,
		s.EpistemicConfidence.Value,
		s.SocialCohesion,
		s.GovernanceCapacity,
		s.RealityConsensus,
	}
	total := 1e-10
	for _, d := range dims {
		total += d
	}
	probs := make([]float64, len(dims))
	for i, d := range dims {
		probs[i] = d / total
	}
	// stat.Entropy returns nats; the contract is bits.
	return stat.Entropy(probs) / math.Ln2
}

// EntropyDelta is H(after) - H(before).
func EntropyDelta(before, after *StateVector) float64 {
	return StateEntropy(after) - StateEntropy(before)
}

// ScanAttackSurface identifies vulnerabilities in the current state in a
// fixed check order and records them in the registry.
func (rt *RedTeam) ScanAttackSurface(s *StateVector) []*Vulnerability {
	var found []*Vulnerability

	if s.Trust.Value < 0.4 {
		found = append(found, rt.identify(s, "low_trust", (0.4-s.Trust.Value)*2.5, 0.8))
	}
	if s.Legitimacy.Value < 0.3 {
		found = append(found, rt.identify(s, "low_legitimacy", (0.3-s.Legitimacy.Value)*3.0, 0.7))
	}
	if s.EpistemicConfidence.Value < 0.4 {
		found = append(found, rt.identify(s, "low_epistemic_confidence", (0.4-s.EpistemicConfidence.Value)*2.5, 0.9))
	}
	if s.MoralInjury.Value > 0.6 {
		found = append(found, rt.identify(s, "high_moral_injury", s.MoralInjury.Value, 0.6))
	}
	if s.InCollapse {
		found = append(found, rt.identify(s, "collapse_state", 1.0, 1.0))
	}

	logrus.Debugf("attack surface scan: %d vulnerabilities", len(found))
	return found
}

func (rt *RedTeam) identify(s *StateVector, vulnType string, severity, exploitability float64) *Vulnerability {
	id := fmt.Sprintf("vuln_%d", len(rt.vulns)+1)
	v := &Vulnerability{
		ID:             id,
		Type:           vulnType,
		Severity:       severity,
		Exploitability: exploitability,
		DiscoveredAt:   s.Timestamp,
	}
	rt.vulns[id] = v
	rt.vulnOrder = append(rt.vulnOrder, id)
	return v
}

// InBlackVault reports whether the event's fingerprint has been seen.
func (rt *RedTeam) InBlackVault(ev Event) bool {
	if !rt.blackVaultEnabled {
		return false
	}
	_, seen := rt.blackVault[ev.Fingerprint()]
	return seen
}

// addToBlackVault records the event's fingerprint.
func (rt *RedTeam) addToBlackVault(ev Event) {
	if !rt.blackVaultEnabled {
		return
	}
	rt.blackVault[ev.Fingerprint()] = struct{}{}
}

// ExecuteAttack scans for vulnerabilities, builds an attack event, scores it
// against a what-if clone, and applies its impacts to the live state through
// the laws. A vault-blocked attack is counted failed and applies nothing.
func (rt *RedTeam) ExecuteAttack(s *StateVector) (*RedTeamEvent, ProviderResult) {
	res := ProviderResult{Provider: rt.Name(), Changes: map[string]float64{}}

	vulnID := ""
	if found := rt.ScanAttackSurface(s); len(found) > 0 {
		v := found[rt.rng.Intn(len(found))]
		vulnID = v.ID
		v.Exploited = true
		rt.exploited[v.ID] = struct{}{}
	}

	attackType := AttackTypes[rt.rng.Intn(len(AttackTypes))]
	vector := AttackVectors[rt.rng.Intn(len(AttackVectors))]

	ev := &RedTeamEvent{
		EventMeta: EventMeta{
			Timestamp:   s.Timestamp,
			Source:      rt.Name(),
			Description: fmt.Sprintf("red team attack: %s via %s", attackType, vector),
		},
		AttackType:             attackType,
		AttackVector:           vector,
		VulnerabilityExploited: vulnID,
	}

	if rt.InBlackVault(ev) {
		rt.failed++
		rt.attackHistory = append(rt.attackHistory, AttackRecord{
			Timestamp:     s.Timestamp,
			AttackType:    attackType,
			AttackVector:  vector,
			Vulnerability: vulnID,
			EventID:       ev.ID(),
			Fingerprint:   ev.Fingerprint(),
			Blocked:       true,
		})
		logrus.Debugf("red team attack blocked by black vault: %.16s", ev.Fingerprint())
		return ev, res
	}
	rt.addToBlackVault(ev)

	// Score the attack on a fully independent clone before touching the
	// live state.
	trial := s.Clone()
	for dim, impact := range ev.DimensionImpacts() {
		if d := trial.Dimension(dim); d != nil {
			d.Update(impact, s.Timestamp)
		}
	}
	trial.UpdateDerived()
	ev.EntropyDelta = EntropyDelta(s, trial)

	// Apply for real, routed through the impact laws so ceilings and
	// counters move exactly as they would for injected events.
	for _, dim := range []string{DimTrust, DimLegitimacy, DimKindness, DimMoralInjury, DimEpistemicConfidence} {
		impact, ok := ev.DimensionImpacts()[dim]
		if !ok {
			continue
		}
		switch dim {
		case DimTrust:
			changes := rt.laws.ApplyBetrayalImpact(s, math.Abs(impact)*2)
			res.Changes["trust_change"] = changes["trust_change"]
		case DimLegitimacy:
			res.Changes["legitimacy_change"] = rt.laws.LegitimacyErosion(s, 1, 1, 0.8)
		case DimKindness:
			res.Changes["kindness_change"] = s.Kindness.Update(impact, s.Timestamp)
		case DimMoralInjury:
			changes := rt.laws.AccumulateMoralInjury(s, math.Abs(impact))
			res.Changes["moral_injury_change"] = changes["moral_injury_change"]
		case DimEpistemicConfidence:
			changes := rt.laws.ApplyManipulationImpact(s, 0.6, 0.7)
			res.Changes["epistemic_change"] = changes["epistemic_change"]
		}
	}
	s.UpdateDerived()

	rt.successful++
	rt.attackHistory = append(rt.attackHistory, AttackRecord{
		Timestamp:     s.Timestamp,
		AttackType:    attackType,
		AttackVector:  vector,
		Vulnerability: vulnID,
		EntropyDelta:  ev.EntropyDelta,
		EventID:       ev.ID(),
		Fingerprint:   ev.Fingerprint(),
	})
	rt.entropyHistory = append(rt.entropyHistory, EntropyPoint{
		Timestamp: s.Timestamp,
		Entropy:   StateEntropy(s),
	})
	res.Events = append(res.Events, ev)
	res.Changes["entropy_delta"] = ev.EntropyDelta

	logrus.Infof("red team attack executed: %s via %s, entropy delta %+.6f", attackType, vector, ev.EntropyDelta)
	return ev, res
}

// Apply rolls the per-tick attack cadence: likelier as the laws project
// adverse events.
func (rt *RedTeam) Apply(s *StateVector) ProviderResult {
	attackChance := 0.05 + 0.25*rt.laws.FutureNegativeEventProbability(s)
	if rt.rng.Float64() >= attackChance {
		return ProviderResult{Provider: rt.Name(), Changes: map[string]float64{}}
	}
	_, res := rt.ExecuteAttack(s)
	return res
}

// AttackHistory returns the recorded attacks in execution order.
func (rt *RedTeam) AttackHistory() []AttackRecord {
	out := make([]AttackRecord, len(rt.attackHistory))
	copy(out, rt.attackHistory)
	return out
}

// Summary returns the provider's observable counters.
func (rt *RedTeam) Summary() map[string]any {
	return map[string]any{
		"black_vault_enabled":       rt.blackVaultEnabled,
		"black_vault_size":          len(rt.blackVault),
		"total_attacks":             len(rt.attackHistory),
		"successful_attacks":        rt.successful,
		"failed_attacks":            rt.failed,
		"known_vulnerabilities":     len(rt.vulns),
		"exploited_vulnerabilities": len(rt.exploited),
	}
}
