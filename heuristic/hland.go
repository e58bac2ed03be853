package heuristic

import (
	"github.com/lexcodex/mapop/landmark"
	"github.com/lexcodex/mapop/plan"
	"github.com/lexcodex/mapop/task"
)

// HLand counts the global landmarks not yet achieved by any step in
// the plan's linearization.
type HLand struct {
	graph *landmark.Graph
}

// NewHLand binds the evaluator to a consolidated landmark graph.
func NewHLand(g *landmark.Graph) *HLand {
	return &HLand{graph: g}
}

// Evaluate computes h_LAND(p).
func (h *HLand) Evaluate(_ *task.GroundedTask, p plan.Plan) int {
	return h.graph.TotalLandmarks() - p.Achieved().Count()
}

// AchievedByStep folds one newly-added step's effects into a parent
// achieved-landmarks bitset, returning a fresh clone — the outer
// search calls this once per new step of a refinement rather than rescanning
// the whole plan's linearization on every node.
func AchievedByStep(g *landmark.Graph, parent landmark.Bitset, s plan.Step) landmark.Bitset {
	if s.Action == nil {
		return parent
	}
	out := parent.Clone()
	for _, e := range s.Action.Effects {
		for _, id := range g.AchieversOf(e) {
			out.Set(id)
		}
	}
	return out
}
