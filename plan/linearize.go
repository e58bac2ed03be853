package plan

import (
	"sort"

	"github.com/lexcodex/mapop/task"
)

// LinearizeMode selects how ties are broken among steps with no
// ordering constraint between them. Topological (the default, and
// only mode implemented so far) breaks ties by step index, per
// testable property 6.
type LinearizeMode int

const (
	Topological LinearizeMode = iota
)

// Linearize returns a topological order of every step index in the
// plan, computed by Kahn's algorithm over the ordering graph with the
// ready set always advancing in index order for determinism. The
// result is cached on the underlying node: re-linearizing the same
// plan is free after the first call.
func (p Plan) Linearize(mode LinearizeMode) []int {
	n := p.n()
	if n.totalOrder != nil {
		return n.totalOrder
	}

	steps := p.Steps()
	indeg := make(map[int]int, len(steps))
	for _, s := range steps {
		indeg[s.Index] = 0
	}
	adj := map[int][]int{}
	for _, o := range p.Orderings() {
		adj[o.Before] = append(adj[o.Before], o.After)
		indeg[o.After]++
	}

	ready := make([]int, 0, len(steps))
	for _, s := range steps {
		if indeg[s.Index] == 0 {
			ready = append(ready, s.Index)
		}
	}
	sort.Ints(ready)

	order := make([]int, 0, len(steps))
	for len(ready) > 0 {
		cur := ready[0]
		ready = ready[1:]
		order = append(order, cur)

		var freed []int
		for _, nxt := range adj[cur] {
			indeg[nxt]--
			if indeg[nxt] == 0 {
				freed = append(freed, nxt)
			}
		}
		if len(freed) > 0 {
			ready = append(ready, freed...)
			sort.Ints(ready)
		}
	}

	n.totalOrder = order
	return order
}

// Makespan returns the length (in user steps) of the longest chain
// through the ordering graph — a solved task with zero user steps has
// makespan 0, per testable property 9.
func (p Plan) Makespan() int {
	steps := p.Steps()
	kindOf := make(map[int]StepKind, len(steps))
	for _, s := range steps {
		kindOf[s.Index] = s.Kind
	}
	preds := map[int][]int{}
	for _, o := range p.Orderings() {
		preds[o.After] = append(preds[o.After], o.Before)
	}

	dist := make(map[int]int, len(steps))
	best := 0
	for _, idx := range p.Linearize(Topological) {
		d := 0
		for _, pr := range preds[idx] {
			if dist[pr] > d {
				d = dist[pr]
			}
		}
		if kindOf[idx] == Normal {
			d++
		}
		dist[idx] = d
		if d > best {
			best = d
		}
	}
	return best
}

// AssignTimeSteps stamps every step's TimeStep field with its position
// in the plan's linearization, for a plan about to be returned as a
// solution. Initial is time 0.
func (p Plan) AssignTimeSteps() []Step {
	steps := p.Steps()
	byIndex := make(map[int]*Step, len(steps))
	for i := range steps {
		byIndex[steps[i].Index] = &steps[i]
	}
	for t, idx := range p.Linearize(Topological) {
		if s, ok := byIndex[idx]; ok {
			s.TimeStep = t
		}
	}
	out := make([]Step, len(steps))
	for i, s := range steps {
		out[i] = *byIndex[s.Index]
	}
	return out
}

// FinalState replays every user step's effects, in linearized order,
// over the task's initial state — the canonical global state a plan's
// memoization key is built from, and the source of h_DTG's
// last-asserted-value lookups.
func (p Plan) FinalState(t *task.GroundedTask) map[int]int {
	state := make(map[int]int, len(t.InitialState))
	for v, val := range t.InitialState {
		state[v] = val
	}
	steps := p.Steps()
	byIndex := make(map[int]*Step, len(steps))
	for i := range steps {
		byIndex[steps[i].Index] = &steps[i]
	}
	for _, idx := range p.Linearize(Topological) {
		s, ok := byIndex[idx]
		if !ok || s.Action == nil {
			continue
		}
		for _, e := range s.Action.Effects {
			state[e.Var] = e.Value
		}
	}
	return state
}

// HashEffects returns the set of (var=value) facts asserted anywhere
// in the plan (initial state plus every step's effects) — the
// applicability-filtering precompute used by the outer search to keep
// only actions whose preconditions are asserted by the initial state
// or some existing step's effect, regardless of ordering.
func (p Plan) HashEffects(t *task.GroundedTask) map[task.Condition]bool {
	out := map[task.Condition]bool{}
	for v, val := range t.InitialState {
		out[task.Condition{Var: v, Value: val, Kind: task.Equal}] = true
	}
	for _, s := range p.Steps() {
		if s.Action == nil {
			continue
		}
		for _, e := range s.Action.Effects {
			out[e] = true
		}
	}
	return out
}
