package heuristic

import (
	"sort"

	"github.com/lexcodex/mapop/landmark"
	"github.com/lexcodex/mapop/task"
)

// HeuristicChange is one agent's report that it recognized additional
// achieved landmarks in a proposal it did not originate.
type HeuristicChange struct {
	Sender       task.AgentID
	PlanName     string
	NewLandmarks []int // global landmark IDs
}

func (HeuristicChange) Kind() string { return "heuristic.change" }

// PlanAdjustment is the per-plan payload of a HeuristicAdjustment: the
// full, deduplicated set of newly confirmed landmark IDs for one plan.
type PlanAdjustment struct {
	PlanName     string
	NewLandmarks []int
}

// HeuristicAdjustment is the baton's aggregated broadcast, applied by
// every agent (itself included) before the named plans enter the open
// list.
type HeuristicAdjustment struct {
	Sender      task.AgentID
	Adjustments []PlanAdjustment
}

func (HeuristicAdjustment) Kind() string { return "heuristic.adjustment" }

// MergeChanges unions every reported change per plan name into a
// deterministic, sorted set of adjustments — the baton's aggregation
// step of spec §4.6.
func MergeChanges(changes []HeuristicChange) []PlanAdjustment {
	byPlan := map[string]map[int]bool{}
	var order []string
	for _, c := range changes {
		if byPlan[c.PlanName] == nil {
			byPlan[c.PlanName] = map[int]bool{}
			order = append(order, c.PlanName)
		}
		for _, id := range c.NewLandmarks {
			byPlan[c.PlanName][id] = true
		}
	}
	sort.Strings(order)

	out := make([]PlanAdjustment, 0, len(order))
	for _, name := range order {
		ids := make([]int, 0, len(byPlan[name]))
		for id := range byPlan[name] {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		out = append(out, PlanAdjustment{PlanName: name, NewLandmarks: ids})
	}
	return out
}

// Apply folds one PlanAdjustment into a plan's achieved-landmarks
// bitset and h_LAND value, maintaining the invariant
// h_LAND := h_LAND - Σ new_achievements (only landmarks not already
// marked achieved count toward the reduction).
func Apply(achieved landmark.Bitset, hLand int, adj PlanAdjustment) (landmark.Bitset, int) {
	out := achieved.Clone()
	delta := 0
	for _, id := range adj.NewLandmarks {
		if !out.Test(id) {
			out.Set(id)
			delta++
		}
	}
	return out, hLand - delta
}
