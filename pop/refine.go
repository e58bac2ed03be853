// Package pop implements the partial-order-planning internal search
// (C5): given a base plan and one candidate action, it enumerates every
// way to add that action as a new step with its preconditions supported
// by causal links and its threats resolved.
package pop

import (
	"github.com/lexcodex/mapop/plan"
	"github.com/lexcodex/mapop/task"
)

// Refinement is one successful output of the internal search: a
// candidate child of the base plan, not yet named, scored, or
// committed to an Arena. The outer search assigns a name, evaluates
// h_DTG/h_LAND and the achieved-landmarks bitset, and commits the
// result via plan.Arena.Add.
type Refinement struct {
	NewSteps       []plan.Step
	NewLinks       []plan.CausalLink
	NewOrderings   []plan.Ordering
	OpenConditions []plan.OpenCondition
	IsSolution     bool
}

// Refiner runs the internal POP search against one fixed base plan.
type Refiner struct {
	t    *task.GroundedTask
	base plan.Plan
}

// NewRefiner binds a refiner to the task and the base plan being
// expanded this outer iteration.
func NewRefiner(t *task.GroundedTask, base plan.Plan) *Refiner {
	return &Refiner{t: t, base: base}
}

// Expand runs §4.5's main loop for one supportable action, producing
// every refinement that adds it as a new step with its own
// preconditions resolved against the base plan's existing steps. For
// each such refinement it also attempts the Final-step close: if the
// new step's effects let the base plan's outstanding goals now be
// fully supported, an extra solution refinement is emitted alongside.
func (r *Refiner) Expand(a task.Action, agent task.AgentID) []Refinement {
	base := r.base
	baseSteps := base.Steps()
	idx := nextIndex(baseSteps)
	aCopy := a
	newStep := plan.Step{Index: idx, Agent: agent, Kind: plan.Normal, Action: &aCopy}

	steps := make([]plan.Step, 0, len(baseSteps)+1)
	steps = append(steps, baseSteps...)
	steps = append(steps, newStep)

	baseLinks := base.CausalLinks()
	baseOrderings := base.Orderings()

	root := workState{
		steps:     steps,
		links:     append([]plan.CausalLink(nil), baseLinks...),
		orderings: append([]plan.Ordering(nil), baseOrderings...),
		open:      actionPreconditions(&aCopy, idx),
		threats:   r.threatsFromNewStep(newStep, baseLinks, baseOrderings),
	}

	leaves := r.run(root)

	out := make([]Refinement, 0, len(leaves))
	for _, leaf := range leaves {
		out = append(out, Refinement{
			NewSteps:       []plan.Step{newStep},
			NewLinks:       leaf.newLinks,
			NewOrderings:   leaf.newOrderings,
			OpenConditions: base.OpenConditions(),
		})

		mergedLinks := append(append([]plan.CausalLink(nil), baseLinks...), leaf.newLinks...)
		mergedOrderings := append(append([]plan.Ordering(nil), baseOrderings...), leaf.newOrderings...)
		for _, fin := range r.closeGoals(steps, mergedLinks, mergedOrderings, base.OpenConditions()) {
			out = append(out, Refinement{
				NewSteps:     []plan.Step{newStep},
				NewLinks:     append(append([]plan.CausalLink(nil), leaf.newLinks...), fin.newLinks...),
				NewOrderings: append(append([]plan.Ordering(nil), leaf.newOrderings...), fin.newOrderings...),
				IsSolution:   true,
			})
		}
	}
	return out
}

// TryFinal attempts to close the base plan's outstanding goals using
// only its existing steps, adding no new step at all. This is what
// lets an already-solved base plan (every goal satisfied by Initial,
// or by actions placed in earlier outer iterations) terminate the
// search with a zero-new-step solution.
func (r *Refiner) TryFinal() []Refinement {
	base := r.base
	leaves := r.closeGoals(base.Steps(), base.CausalLinks(), base.Orderings(), base.OpenConditions())
	out := make([]Refinement, 0, len(leaves))
	for _, leaf := range leaves {
		out = append(out, Refinement{
			NewLinks:     leaf.newLinks,
			NewOrderings: leaf.newOrderings,
			IsSolution:   true,
		})
	}
	return out
}

// closeGoals runs the same internal search used for an action's own
// preconditions, seeded instead with the plan's remaining open goal
// conditions and no threats, so a solution emerges only when every
// open condition can be resolved by a step already present.
func (r *Refiner) closeGoals(steps []plan.Step, links []plan.CausalLink, orderings []plan.Ordering, open []plan.OpenCondition) []workState {
	if len(open) == 0 {
		return nil
	}
	root := workState{
		steps:     steps,
		links:     append([]plan.CausalLink(nil), links...),
		orderings: append([]plan.Ordering(nil), orderings...),
		open:      append([]plan.OpenCondition(nil), open...),
	}
	return r.run(root)
}

// workState is the scratch "internal plan" of spec §4.5: one
// (newStep?, causalLink?, ordering?, openConds, threats) node on the
// internal depth-first stack. newLinks/newOrderings track only what
// this particular run() call has added, separate from links/orderings
// which carry the full inherited context needed for threat detection
// and ordering queries.
type workState struct {
	steps     []plan.Step
	links     []plan.CausalLink
	orderings []plan.Ordering
	open      []plan.OpenCondition
	threats   []plan.Threat

	newLinks     []plan.CausalLink
	newOrderings []plan.Ordering
}

func (p workState) branch() workState {
	return workState{
		steps:        p.steps,
		links:        append([]plan.CausalLink(nil), p.links...),
		orderings:    append([]plan.Ordering(nil), p.orderings...),
		open:         append([]plan.OpenCondition(nil), p.open...),
		threats:      append([]plan.Threat(nil), p.threats...),
		newLinks:     append([]plan.CausalLink(nil), p.newLinks...),
		newOrderings: append([]plan.Ordering(nil), p.newOrderings...),
	}
}

// run drives the depth-first stack of steps 2-5: pop, rebuild the
// accessibility matrix, resolve a threat or an open condition, or
// (when both are empty) emit the state as a finished refinement.
func (r *Refiner) run(root workState) []workState {
	matrix := newAccessMatrix(len(root.steps))
	var results []workState
	stack := []workState{root}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		matrix.rebuild(edgesOf(p.orderings))

		if n := len(p.threats); n > 0 {
			th := p.threats[n-1]
			rest := p.threats[:n-1]
			s1, s2, clobberer := th.Link.From, th.Link.To, th.Clobberer

			if s1 == plan.InitialIndex {
				// Neither promotion nor demotion is available when the
				// link's producer is the Initial step; discard.
				continue
			}
			if !matrix.before(clobberer, s2) {
				np := p.branch()
				np.threats = append([]plan.Threat(nil), rest...)
				ord := plan.Ordering{Before: s2, After: clobberer}
				np.orderings = append(np.orderings, ord)
				np.newOrderings = append(np.newOrderings, ord)
				stack = append(stack, np)
			}
			if !matrix.before(s1, clobberer) {
				np := p.branch()
				np.threats = append([]plan.Threat(nil), rest...)
				ord := plan.Ordering{Before: clobberer, After: s1}
				np.orderings = append(np.orderings, ord)
				np.newOrderings = append(np.newOrderings, ord)
				stack = append(stack, np)
			}
			continue
		}

		if n := len(p.open); n > 0 {
			oc := p.open[n-1]
			rest := p.open[:n-1]

			for _, sp := range p.steps {
				if sp.Index == oc.Step {
					continue
				}
				if !produces(r.t, sp, oc.Condition) {
					continue
				}
				if matrix.before(oc.Step, sp.Index) {
					continue
				}

				np := p.branch()
				np.open = append([]plan.OpenCondition(nil), rest...)

				link := plan.CausalLink{From: sp.Index, To: oc.Step, Condition: oc.Condition}
				np.links = append(np.links, link)
				np.newLinks = append(np.newLinks, link)

				if !matrix.before(sp.Index, oc.Step) {
					ord := plan.Ordering{Before: sp.Index, After: oc.Step}
					np.orderings = append(np.orderings, ord)
					np.newOrderings = append(np.newOrderings, ord)
				}

				np.threats = append(np.threats, r.detectThreats(np.steps, np.orderings, link, sp.Index, oc.Step)...)
				stack = append(stack, np)
			}
			continue
		}

		results = append(results, p)
	}
	return results
}

// detectThreats implements the clobber check of step 4: every other
// step whose effect would undo the new link is a threat unless an
// ordering already forces it safely outside the link's span.
func (r *Refiner) detectThreats(steps []plan.Step, orderings []plan.Ordering, link plan.CausalLink, producer, consumer int) []plan.Threat {
	var out []plan.Threat
	for _, p := range steps {
		if p.Index == producer || p.Index == consumer {
			// A step can't threaten the very link its own precondition
			// or effect forms: the precondition is read before the
			// step's own effects apply.
			continue
		}
		for _, e := range effectsOf(r.t, p) {
			if !clobbers(e, link.Condition) {
				continue
			}
			if reachable(orderings, p.Index, producer) {
				continue
			}
			if reachable(orderings, consumer, p.Index) {
				continue
			}
			out = append(out, plan.Threat{Link: link, Clobberer: p.Index})
			break
		}
	}
	return out
}

// threatsFromNewStep is the dual clobber check triggered when a new
// step is inserted: its effects are checked against every causal link
// already present in the base plan.
func (r *Refiner) threatsFromNewStep(newStep plan.Step, links []plan.CausalLink, orderings []plan.Ordering) []plan.Threat {
	var out []plan.Threat
	effects := effectsOf(r.t, newStep)
	for _, link := range links {
		for _, e := range effects {
			if !clobbers(e, link.Condition) {
				continue
			}
			if reachable(orderings, newStep.Index, link.From) {
				continue
			}
			if reachable(orderings, link.To, newStep.Index) {
				continue
			}
			out = append(out, plan.Threat{Link: link, Clobberer: newStep.Index})
			break
		}
	}
	return out
}
