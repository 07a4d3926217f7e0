// Package ledger implements the event-sourced timeline: a hash-chained,
// append-only record of every state transition with periodic snapshots,
// chain-integrity verification and snapshot-based replay.
//
// All hashes are sha256 hex digests over canonical JSON serializations with
// stable key ordering; a compatible reimplementation must use the same
// canonicalization to reproduce identical hashes from identical runs.
package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
)

// EventRecord is the event snapshot embedded in a ledger entry. Nil for
// plain tick entries.
type EventRecord struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Source      string `json:"source"`
	Description string `json:"description"`
	Fingerprint string `json:"fingerprint"`
}

// Entry is one link of the hash chain. PrevHash of entry i equals Hash of
// entry i-1; the first entry's PrevHash is the empty string. Hash covers
// every field except itself.
type Entry struct {
	Seq       int     `json:"seq"`
	Tick      int64   `json:"tick"`
	Timestamp float64 `json:"timestamp"`

	Event *EventRecord `json:"event,omitempty"`

	StateBeforeHash string `json:"state_before_hash"`
	StateAfterHash  string `json:"state_after_hash"`

	// Delta summarizes the transition: per-dimension deltas plus derived
	// scores, keyed canonically.
	Delta map[string]float64 `json:"delta"`
	// Dimensions holds the post-transition dimension values, enabling
	// metric re-derivation and replay without embedded state blobs.
	Dimensions map[string]float64 `json:"dimensions"`

	// StateAfter optionally embeds the full canonical post-state.
	StateAfter json.RawMessage `json:"state_after,omitempty"`

	PrevHash string `json:"prev_hash"`
	Hash     string `json:"hash"`
}

// Snapshot is a full state serialization keyed by tick for partial replay.
// Watermark is the number of entries recorded when the snapshot was taken:
// replay resumes from that chain position, not from a tick comparison, so
// entries appended later within the same tick (event injections) are never
// skipped.
type Snapshot struct {
	Tick      int64           `json:"tick"`
	Timestamp float64         `json:"timestamp"`
	Watermark int             `json:"watermark"`
	State     json.RawMessage `json:"state"`
}

// IntegrityError reports the first broken link found during verification.
type IntegrityError struct {
	Index  int
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("ledger integrity violation at entry %d: %s", e.Index, e.Reason)
}

// Timeline is the append-only ledger. Entries are never mutated or deleted.
type Timeline struct {
	entries   []Entry
	snapshots map[int64]Snapshot
	snapTicks []int64 // ascending
	chainHead string
}

// NewTimeline creates an empty timeline.
func NewTimeline() *Timeline {
	return &Timeline{
		entries:   make([]Entry, 0),
		snapshots: make(map[int64]Snapshot),
	}
}

// FromEntries rebuilds a timeline from stored entries (e.g. loaded from an
// archive) so its chain can be re-verified. The entries are trusted as-is;
// call VerifyChainIntegrity to check them.
func FromEntries(entries []Entry) *Timeline {
	t := NewTimeline()
	t.entries = append(t.entries, entries...)
	if n := len(entries); n > 0 {
		t.chainHead = entries[n-1].Hash
	}
	return t
}

// HashBytes returns the sha256 hex digest of a canonical serialization.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Record appends a new entry for one state transition. stateBefore and
// stateAfter are canonical serializations of the full state; delta and
// dimensions summarize the transition. embedState controls whether the
// post-state blob is stored on the entry.
func (t *Timeline) Record(tick int64, timestamp float64, ev *EventRecord,
	stateBefore, stateAfter []byte, delta, dimensions map[string]float64, embedState bool) Entry {

	e := Entry{
		Seq:             len(t.entries),
		Tick:            tick,
		Timestamp:       timestamp,
		Event:           ev,
		StateBeforeHash: HashBytes(stateBefore),
		StateAfterHash:  HashBytes(stateAfter),
		Delta:           delta,
		Dimensions:      dimensions,
		PrevHash:        t.chainHead,
	}
	if embedState {
		e.StateAfter = json.RawMessage(stateAfter)
	}
	e.Hash = entryHash(e)

	t.entries = append(t.entries, e)
	t.chainHead = e.Hash
	logrus.Debugf("ledger entry %d recorded (tick %d, hash %.16s)", e.Seq, tick, e.Hash)
	return e
}

// entryHash computes an entry's own hash over everything except the hash
// field itself. JSON map keys marshal in sorted order, keeping the digest
// canonical.
func entryHash(e Entry) string {
	e.Hash = ""
	buf, _ := json.Marshal(e)
	return HashBytes(buf)
}

// VerifyChainIntegrity recomputes every entry's hash from its stored fields
// and every link against its predecessor, failing fast with the offending
// index. Integrity violations are never auto-corrected.
func (t *Timeline) VerifyChainIntegrity() error {
	prev := ""
	for i, e := range t.entries {
		if e.PrevHash != prev {
			return &IntegrityError{Index: i, Reason: fmt.Sprintf("prev_hash %.16s does not match predecessor hash %.16s", e.PrevHash, prev)}
		}
		if recomputed := entryHash(e); recomputed != e.Hash {
			return &IntegrityError{Index: i, Reason: fmt.Sprintf("stored hash %.16s does not match recomputed %.16s", e.Hash, recomputed)}
		}
		prev = e.Hash
	}
	return nil
}

// CreateSnapshot stores a full canonical state keyed by tick, watermarked
// with the current chain length.
func (t *Timeline) CreateSnapshot(tick int64, timestamp float64, state []byte) {
	if _, exists := t.snapshots[tick]; !exists {
		t.snapTicks = append(t.snapTicks, tick)
	}
	t.snapshots[tick] = Snapshot{
		Tick:      tick,
		Timestamp: timestamp,
		Watermark: len(t.entries),
		State:     json.RawMessage(state),
	}
	logrus.Debugf("snapshot created at tick %d (watermark %d)", tick, len(t.entries))
}

// snapshotState mirrors the dimension layout of the engine's canonical
// state serialization, read back during replay.
type snapshotState struct {
	Dimensions []struct {
		Name  string  `json:"name"`
		Value float64 `json:"value"`
	} `json:"dimensions"`
}

// ReplayFrom reconstructs the dimension values at targetTick: it locates the
// latest snapshot at or before the target, then re-applies the recorded delta
// of every entry from the snapshot's watermark position onward. Anchoring on
// chain position rather than tick numbers keeps same-tick entries appended
// after the snapshot (event injections) in the replay.
func (t *Timeline) ReplayFrom(targetTick int64) (map[string]float64, error) {
	var base *Snapshot
	baseTick := int64(-1)
	for _, st := range t.snapTicks {
		if st <= targetTick && st > baseTick {
			snap := t.snapshots[st]
			base = &snap
			baseTick = st
		}
	}
	if base == nil {
		return nil, fmt.Errorf("no snapshot at or before tick %d", targetTick)
	}

	var ss snapshotState
	if err := json.Unmarshal(base.State, &ss); err != nil {
		return nil, fmt.Errorf("decode snapshot at tick %d: %w", baseTick, err)
	}
	values := make(map[string]float64, len(ss.Dimensions))
	for _, d := range ss.Dimensions {
		values[d.Name] = d.Value
	}

	for _, e := range t.entries {
		if e.Seq < base.Watermark || e.Tick > targetTick {
			continue
		}
		for name := range values {
			values[name] += e.Delta[name]
		}
	}
	return values, nil
}

// Entries returns a copy of every recorded entry in sequence order.
func (t *Timeline) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// ChainHead returns the hash of the most recent entry, or "" when empty.
func (t *Timeline) ChainHead() string {
	return t.chainHead
}

// Len returns the number of recorded entries.
func (t *Timeline) Len() int {
	return len(t.entries)
}

// Export is the archival form of the timeline.
type Export struct {
	Entries   []Entry    `json:"entries"`
	Snapshots []Snapshot `json:"snapshots"`
	ChainHead string     `json:"chain_head"`
}

// ExportTimeline returns the full ledger. With includeStates false, embedded
// state blobs are stripped from entries (hashes are computed over the
// original blobs, so stripping does not break verification of a re-recorded
// chain — but a stripped export no longer re-verifies byte-for-byte, which
// is why archives store entries exactly as exported).
func (t *Timeline) ExportTimeline(includeStates bool) Export {
	out := Export{
		Entries:   make([]Entry, len(t.entries)),
		Snapshots: make([]Snapshot, 0, len(t.snapTicks)),
		ChainHead: t.chainHead,
	}
	copy(out.Entries, t.entries)
	if !includeStates {
		for i := range out.Entries {
			out.Entries[i].StateAfter = nil
		}
	}
	for _, st := range t.snapTicks {
		out.Snapshots = append(out.Snapshots, t.snapshots[st])
	}
	return out
}

// Summary returns the timeline's observable counters.
func (t *Timeline) Summary() map[string]any {
	return map[string]any{
		"entries":    len(t.entries),
		"snapshots":  len(t.snapshots),
		"chain_head": t.chainHead,
	}
}
