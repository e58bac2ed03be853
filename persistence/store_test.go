package persistence

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendAndReplayRoundTrip(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.AppendReplay(ReplayEntry{RunID: "r1", Iteration: 0, BasePlanName: "root", SelectedAction: "", HDTG: 3, HLand: 2}))
	require.NoError(t, s.AppendReplay(ReplayEntry{RunID: "r1", Iteration: 1, BasePlanName: "root-0.0", SelectedAction: "pickup", HDTG: 1, HLand: 0}))
	require.NoError(t, s.AppendReplay(ReplayEntry{RunID: "r2", Iteration: 0, BasePlanName: "root", HDTG: 3, HLand: 2}))

	entries, err := s.Replay("r1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, 0, entries[0].Iteration)
	require.Equal(t, "root", entries[0].BasePlanName)
	require.Equal(t, 1, entries[1].Iteration)
	require.Equal(t, "pickup", entries[1].SelectedAction)
}

func TestAppendReplayOverwritesSameIteration(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.AppendReplay(ReplayEntry{RunID: "r1", Iteration: 0, BasePlanName: "root", HDTG: 5, HLand: 5}))
	require.NoError(t, s.AppendReplay(ReplayEntry{RunID: "r1", Iteration: 0, BasePlanName: "root", HDTG: 1, HLand: 1}))

	entries, err := s.Replay("r1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, 1, entries[0].HDTG)
}

func TestMemoSnapshotRoundTrip(t *testing.T) {
	s := openTestStore(t)

	keys := []MemoKey{
		{StateHash: "v0=1;", LandmarkHash: 7},
		{StateHash: "v0=2;", LandmarkHash: 3},
	}
	require.NoError(t, s.SaveMemoSnapshot("r1", keys))

	loaded, err := s.LoadMemoSnapshot("r1")
	require.NoError(t, err)
	require.ElementsMatch(t, keys, loaded)
}

func TestMemoSnapshotReplacesPriorSave(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SaveMemoSnapshot("r1", []MemoKey{{StateHash: "a", LandmarkHash: 1}}))
	require.NoError(t, s.SaveMemoSnapshot("r1", []MemoKey{{StateHash: "b", LandmarkHash: 2}}))

	loaded, err := s.LoadMemoSnapshot("r1")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, "b", loaded[0].StateHash)
}
