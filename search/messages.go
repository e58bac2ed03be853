package search

import (
	"github.com/lexcodex/mapop/heuristic"
	"github.com/lexcodex/mapop/plan"
	"github.com/lexcodex/mapop/task"
)

// NewBasePlanMsg is the baton's per-iteration announcement of the plan
// every agent must expand next. An empty Name is the "search space
// exhausted" sentinel. Searcher leaves Changes empty: merged
// landmark-recognition reports travel in a heuristic.HeuristicAdjustment
// sent within the same iteration and are applied before insertion.
type NewBasePlanMsg struct {
	Sender  task.AgentID
	Name    string
	Changes []heuristic.PlanAdjustment
}

func (NewBasePlanMsg) Kind() string { return "search.newBasePlan" }

// ProposalMsg mirrors one agent's refinement of the current base plan
// into every other agent's local plan arena, under the same
// deterministic name the proposer assigned it. An empty Name is the
// "no more proposals from this sender this iteration" sentinel.
type ProposalMsg struct {
	Sender task.AgentID
	Parent string
	Name   string
	Delta  plan.Delta
}

func (ProposalMsg) Kind() string { return "search.proposal" }

// VerdictMsg carries one agent's PrivateGoals/Borda acceptance vote to
// the baton, and the baton's aggregated decision back to every agent.
type VerdictMsg struct {
	Sender   task.AgentID
	PlanName string
	Approve  bool
}

func (VerdictMsg) Kind() string { return "search.verdict" }
