package heuristic

import (
	"github.com/lexcodex/mapop/plan"
	"github.com/lexcodex/mapop/task"
)

// HDTG sums, over every open condition, the shortest DTG transition
// from the value last asserted in the plan's linearization to the
// value the condition requires. Ties between plans of equal h_DTG are
// broken by g elsewhere (the open list's queue key, not here).
type HDTG struct {
	dtgs map[int]*DTG
}

// NewHDTG builds the per-variable DTGs once for task t; the resulting
// evaluator is reused across every plan produced during that agent's
// search.
func NewHDTG(t *task.GroundedTask) *HDTG {
	return &HDTG{dtgs: BuildDTGs(t)}
}

// Evaluate computes h_DTG(p).
func (h *HDTG) Evaluate(t *task.GroundedTask, p plan.Plan) int {
	last := p.FinalState(t)
	total := 0
	for _, oc := range p.OpenConditions() {
		d, ok := h.dtgs[oc.Condition.Var]
		if !ok {
			continue
		}
		from, isSet := last[oc.Condition.Var]
		if !isSet {
			if init, ok := t.InitialState[oc.Condition.Var]; ok {
				from = init
			} else {
				continue
			}
		}
		switch oc.Condition.Kind {
		case task.Equal:
			total += d.Distance(from, oc.Condition.Value)
		case task.Distinct:
			if from != oc.Condition.Value {
				continue // already satisfied, no distance to pay
			}
			total++ // cheapest escape: one transition away from the forbidden value
		}
	}
	return total
}
