package traceui

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lexcodex/mapop/observer"
)

func TestAppendEventTracksBestHeuristicsAndBaton(t *testing.T) {
	m := New(observer.NewChannelObserver(4))
	m = m.appendEvent(observer.Event{Type: observer.EventBasePlanSel, PlanName: "root", HDTG: 5, HLand: 3})
	m = m.appendEvent(observer.Event{Type: observer.EventBasePlanSel, PlanName: "root-0", HDTG: 2, HLand: 4})
	require.Equal(t, 2, m.bestHDTG)
	require.Equal(t, 3, m.bestHLand)

	m = m.appendEvent(observer.Event{Type: observer.EventLandmarkPromote, LandmarkID: 1, Agent: "a2"})
	require.Equal(t, "a2", m.batonAgent)

	m = m.appendEvent(observer.Event{Type: observer.EventTerminated, Result: observer.Solved})
	require.Equal(t, "solved", m.terminal)
}

func TestAppendEventCapsHistoryAtMaxLines(t *testing.T) {
	m := New(observer.NewChannelObserver(4))
	for i := 0; i < maxLines+50; i++ {
		m = m.appendEvent(observer.Event{Type: observer.EventIterationStart, Iteration: i})
	}
	require.Len(t, m.lines, maxLines)
}

func TestFormatEventCoversEveryEventType(t *testing.T) {
	cases := []observer.Event{
		{Type: observer.EventIterationStart, Iteration: 1},
		{Type: observer.EventBasePlanSel, PlanName: "root", HDTG: 1, HLand: 2},
		{Type: observer.EventRefinement, PlanName: "root-0", Parent: "root", Kind: "solution"},
		{Type: observer.EventThreatResolved, PlanName: "root-0", StepIndex: 2, Kind: "ordering"},
		{Type: observer.EventLandmarkPromote, LandmarkID: 3, Agent: "a1"},
		{Type: observer.EventHeuristicAdjust, PlanName: "root-0", Iteration: 2},
		{Type: observer.EventSolutionFound, PlanName: "root-0"},
		{Type: observer.EventTerminated, Result: observer.Solved},
	}
	for _, e := range cases {
		require.NotEmpty(t, formatEvent(e))
	}
}
