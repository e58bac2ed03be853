package persistence

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReplayObserverRecordsEachIteration(t *testing.T) {
	s := openTestStore(t)
	ro := NewReplayObserver(s, "run-1")

	ro.OuterIterationStart(0)
	ro.BasePlanSelected("root", 4, 3)
	ro.OuterIterationStart(1)
	ro.BasePlanSelected("root-0.0", 2, 1)

	entries, err := s.Replay("run-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "root", entries[0].BasePlanName)
	require.Equal(t, 4, entries[0].HDTG)
	require.Equal(t, "root-0.0", entries[1].BasePlanName)
	require.Equal(t, 1, entries[1].HLand)
}
