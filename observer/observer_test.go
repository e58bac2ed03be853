package observer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChannelObserverDropsOldestOnOverflow(t *testing.T) {
	o := NewChannelObserver(2)
	o.BasePlanSelected("p0", 3, 2)
	o.BasePlanSelected("p1", 2, 1)
	o.BasePlanSelected("p2", 1, 0) // channel full: p0 must be dropped

	first := <-o.Events()
	second := <-o.Events()
	require.Equal(t, "p1", first.PlanName)
	require.Equal(t, "p2", second.PlanName)

	select {
	case <-o.Events():
		t.Fatal("expected no third event")
	default:
	}
}

func TestMultiplexObserverForwardsToEverySink(t *testing.T) {
	a := NewChannelObserver(4)
	b := NewChannelObserver(4)
	m := MultiplexObserver{Observers: []Observer{a, b, NopObserver{}}}

	m.SolutionFound("plan-1")

	require.Equal(t, "plan-1", (<-a.Events()).PlanName)
	require.Equal(t, "plan-1", (<-b.Events()).PlanName)
}

func TestResultStringsAreStable(t *testing.T) {
	require.Equal(t, "solved", Solved.String())
	require.Equal(t, "unsolvable_proven", UnsolvableProven.String())
	require.Equal(t, "timeout", Timeout.String())
	require.Equal(t, "internal_error", InternalError.String())
}
