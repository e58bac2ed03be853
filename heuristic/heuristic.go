// Package heuristic implements the two plan-evaluation heuristics of
// C4 — h_DTG (domain-transition-graph distance to goal) and h_LAND
// (unachieved global landmark count) — plus the cross-agent
// achieved-landmark merge that keeps both in lockstep across agents.
package heuristic

import (
	"github.com/lexcodex/mapop/plan"
	"github.com/lexcodex/mapop/task"
)

// Heuristic is the small, swappable evaluation trait every plan
// scorer implements, so the outer search never depends on a concrete
// heuristic type.
type Heuristic interface {
	Evaluate(t *task.GroundedTask, p plan.Plan) int
}

var (
	_ Heuristic = (*HDTG)(nil)
	_ Heuristic = (*HLand)(nil)
)
