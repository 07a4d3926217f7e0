package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordTestEntries(t *Timeline, n int) {
	trust := 0.8
	for i := 1; i <= n; i++ {
		before := []byte(`{"tick":` + string(rune('0'+i-1)) + `}`)
		after := []byte(`{"tick":` + string(rune('0'+i)) + `}`)
		trust -= 0.05
		t.Record(int64(i), float64(i), nil, before, after,
			map[string]float64{"trust": -0.05},
			map[string]float64{"trust": trust}, false)
	}
}

func TestTimeline_Record_ChainsHashes(t *testing.T) {
	tl := NewTimeline()
	recordTestEntries(tl, 3)

	entries := tl.Entries()
	require.Len(t, entries, 3)

	// First entry anchors the chain with an empty prev hash
	assert.Equal(t, "", entries[0].PrevHash)
	assert.Equal(t, entries[0].Hash, entries[1].PrevHash)
	assert.Equal(t, entries[1].Hash, entries[2].PrevHash)
	assert.Equal(t, entries[2].Hash, tl.ChainHead())
	assert.Equal(t, 3, tl.Len())
}

func TestTimeline_Record_EventEntry(t *testing.T) {
	tl := NewTimeline()
	ev := &EventRecord{
		ID:          "evt-1",
		Kind:        "betrayal",
		Source:      "test",
		Description: "broken alliance",
		Fingerprint: "abc123",
	}
	e := tl.Record(1, 1.0, ev, []byte(`{"a":1}`), []byte(`{"a":2}`),
		map[string]float64{"trust": -0.3}, map[string]float64{"trust": 0.5}, true)

	require.NotNil(t, e.Event)
	assert.Equal(t, "betrayal", e.Event.Kind)
	assert.NotEmpty(t, e.StateAfter, "embedState must keep the blob")
	assert.NotEqual(t, e.StateBeforeHash, e.StateAfterHash)
}

func TestTimeline_VerifyChainIntegrity_CleanChain(t *testing.T) {
	tl := NewTimeline()
	recordTestEntries(tl, 5)
	assert.NoError(t, tl.VerifyChainIntegrity())
}

func TestTimeline_VerifyChainIntegrity_DetectsTamperedDelta(t *testing.T) {
	tl := NewTimeline()
	recordTestEntries(tl, 5)

	// Rewrite history in the middle of the chain
	tl.entries[2].Delta["trust"] = +0.5

	err := tl.VerifyChainIntegrity()
	require.Error(t, err)
	var ierr *IntegrityError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, 2, ierr.Index)
}

func TestTimeline_VerifyChainIntegrity_DetectsBrokenLink(t *testing.T) {
	tl := NewTimeline()
	recordTestEntries(tl, 4)

	tl.entries[3].PrevHash = "0000"

	err := tl.VerifyChainIntegrity()
	require.Error(t, err)
	var ierr *IntegrityError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, 3, ierr.Index)
}

func TestTimeline_FromEntries_RoundTrip(t *testing.T) {
	tl := NewTimeline()
	recordTestEntries(tl, 4)

	rebuilt := FromEntries(tl.Entries())
	assert.NoError(t, rebuilt.VerifyChainIntegrity())
	assert.Equal(t, tl.ChainHead(), rebuilt.ChainHead())
	assert.Equal(t, tl.Len(), rebuilt.Len())
}

func TestTimeline_ReplayFrom_SnapshotPlusDeltas(t *testing.T) {
	tl := NewTimeline()
	snapshot := []byte(`{"dimensions":[{"name":"trust","value":0.8},{"name":"kindness","value":0.7}]}`)
	tl.CreateSnapshot(0, 0.0, snapshot)

	tl.Record(1, 1.0, nil, snapshot, []byte(`{"t":1}`),
		map[string]float64{"trust": -0.1, "kindness": -0.05},
		map[string]float64{"trust": 0.7, "kindness": 0.65}, false)
	tl.Record(2, 2.0, nil, []byte(`{"t":1}`), []byte(`{"t":2}`),
		map[string]float64{"trust": -0.05, "kindness": -0.05},
		map[string]float64{"trust": 0.65, "kindness": 0.6}, false)

	values, err := tl.ReplayFrom(2)
	require.NoError(t, err)
	assert.InDelta(t, 0.65, values["trust"], 1e-9)
	assert.InDelta(t, 0.6, values["kindness"], 1e-9)

	// Replay to an intermediate tick applies only the earlier deltas
	values, err = tl.ReplayFrom(1)
	require.NoError(t, err)
	assert.InDelta(t, 0.7, values["trust"], 1e-9)
}

func TestTimeline_ReplayFrom_UsesNearestSnapshot(t *testing.T) {
	tl := NewTimeline()
	tl.CreateSnapshot(0, 0.0, []byte(`{"dimensions":[{"name":"trust","value":0.8}]}`))
	tl.Record(1, 1.0, nil, []byte(`a`), []byte(`b`),
		map[string]float64{"trust": -0.3}, map[string]float64{"trust": 0.5}, false)
	tl.CreateSnapshot(1, 1.0, []byte(`{"dimensions":[{"name":"trust","value":0.5}]}`))
	tl.Record(2, 2.0, nil, []byte(`b`), []byte(`c`),
		map[string]float64{"trust": -0.1}, map[string]float64{"trust": 0.4}, false)

	// Starting from the tick-1 snapshot, only the tick-2 delta applies
	values, err := tl.ReplayFrom(2)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, values["trust"], 1e-9)
}

func TestTimeline_ReplayFrom_IncludesEntriesRecordedAfterSameTickSnapshot(t *testing.T) {
	// GIVEN a snapshot at tick 1 followed by an injected-event entry that
	// carries the same tick number
	tl := NewTimeline()
	tl.CreateSnapshot(0, 0.0, []byte(`{"dimensions":[{"name":"trust","value":0.8}]}`))
	tl.Record(1, 1.0, nil, []byte(`a`), []byte(`b`),
		map[string]float64{"trust": -0.1}, map[string]float64{"trust": 0.7}, false)
	tl.CreateSnapshot(1, 1.0, []byte(`{"dimensions":[{"name":"trust","value":0.7}]}`))
	tl.Record(1, 1.0, &EventRecord{ID: "evt-1", Kind: "betrayal"},
		[]byte(`b`), []byte(`c`),
		map[string]float64{"trust": -0.3}, map[string]float64{"trust": 0.4}, false)
	tl.Record(2, 2.0, nil, []byte(`c`), []byte(`d`),
		map[string]float64{"trust": -0.05}, map[string]float64{"trust": 0.35}, false)

	// WHEN replaying past the snapshot tick
	values, err := tl.ReplayFrom(2)
	require.NoError(t, err)

	// THEN the post-snapshot event delta at tick 1 is applied, not skipped
	assert.InDelta(t, 0.35, values["trust"], 1e-9)
}

func TestTimeline_ReplayFrom_NoSnapshot(t *testing.T) {
	tl := NewTimeline()
	recordTestEntries(tl, 2)
	_, err := tl.ReplayFrom(2)
	assert.Error(t, err)
}

func TestTimeline_ExportTimeline_StripsBlobs(t *testing.T) {
	tl := NewTimeline()
	tl.Record(1, 1.0, nil, []byte(`{"a":1}`), []byte(`{"a":2}`),
		map[string]float64{}, map[string]float64{}, true)
	tl.CreateSnapshot(1, 1.0, []byte(`{"a":2}`))

	full := tl.ExportTimeline(true)
	require.Len(t, full.Entries, 1)
	assert.NotEmpty(t, full.Entries[0].StateAfter)

	stripped := tl.ExportTimeline(false)
	assert.Empty(t, stripped.Entries[0].StateAfter)
	require.Len(t, stripped.Snapshots, 1)
	assert.Equal(t, tl.ChainHead(), stripped.ChainHead)
}

func TestHashBytes_Stable(t *testing.T) {
	a := HashBytes([]byte("content"))
	b := HashBytes([]byte("content"))
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, HashBytes([]byte("Content")))
}
