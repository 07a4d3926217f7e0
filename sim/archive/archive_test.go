package archive

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collapse-sim/collapse-sim/sim/ledger"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_SaveAndListRuns(t *testing.T) {
	s := openTestStore(t)

	id1, err := s.SaveRun("baseline", "survivor", []byte(`{"a":1}`))
	require.NoError(t, err)
	id2, err := s.SaveRun("stress", "extinction", []byte(`{"a":2}`))
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	runs, err := s.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	// Newest first
	assert.Equal(t, "stress", runs[0].Name)
	assert.Equal(t, "extinction", runs[0].Outcome)
	assert.Equal(t, "baseline", runs[1].Name)
}

func TestStore_LoadArtifacts(t *testing.T) {
	s := openTestStore(t)
	id, err := s.SaveRun("baseline", "survivor", []byte(`{"final":true}`))
	require.NoError(t, err)

	blob, err := s.LoadArtifacts(id)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"final":true}`), blob)

	_, err = s.LoadArtifacts(9999)
	assert.Error(t, err)
}

func TestStore_LedgerRoundTrip_ChainStillVerifies(t *testing.T) {
	s := openTestStore(t)
	id, err := s.SaveRun("baseline", "survivor", []byte(`{}`))
	require.NoError(t, err)

	tl := ledger.NewTimeline()
	for i := 1; i <= 4; i++ {
		tl.Record(int64(i), float64(i), nil,
			[]byte(`{"before":true}`), []byte(`{"after":true}`),
			map[string]float64{"trust": -0.02},
			map[string]float64{"trust": 0.8 - float64(i)*0.02}, false)
	}
	require.NoError(t, s.SaveLedger(id, tl.Entries()))

	loaded, err := s.LoadLedger(id)
	require.NoError(t, err)
	require.Len(t, loaded, 4)

	rebuilt := ledger.FromEntries(loaded)
	assert.NoError(t, rebuilt.VerifyChainIntegrity())
	assert.Equal(t, tl.ChainHead(), rebuilt.ChainHead())
}

func TestStore_LoadLedger_EmptyRun(t *testing.T) {
	s := openTestStore(t)
	id, err := s.SaveRun("empty", "", []byte(`{}`))
	require.NoError(t, err)

	entries, err := s.LoadLedger(id)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
