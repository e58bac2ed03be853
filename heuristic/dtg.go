package heuristic

import "github.com/lexcodex/mapop/task"

// unreachablePenalty stands in for "no transition path exists" so a
// DTG distance always stays finite and comparable — a true infinity
// would poison every sum it enters.
const unreachablePenalty = 1 << 20

// DTG is the domain transition graph for one state variable: nodes
// are its reachable values, edges are action effects gated by any
// precondition the action itself has on the same variable.
type DTG struct {
	variable int
	edges    map[int]map[int]bool
}

// BuildDTGs constructs one DTG per declared variable of t. Shared
// variables get the same treatment as private ones here — the
// spec's "globally-distributed DTG" for shared variables reduces, in
// this single-projection representation, to building the DTG from
// every action any agent might use to write the variable, which the
// grounder has already made visible via Variable.Shareable.
func BuildDTGs(t *task.GroundedTask) map[int]*DTG {
	out := make(map[int]*DTG, len(t.Variables))
	for _, v := range t.Variables {
		out[v.Code] = buildDTG(t, v.Code)
	}
	return out
}

func buildDTG(t *task.GroundedTask, v int) *DTG {
	d := &DTG{variable: v, edges: map[int]map[int]bool{}}
	for _, a := range t.Actions {
		to, ok := a.EffectValue(v)
		if !ok {
			continue
		}
		for _, from := range sourceValues(t, a, v) {
			if from == to {
				continue
			}
			if d.edges[from] == nil {
				d.edges[from] = map[int]bool{}
			}
			d.edges[from][to] = true
		}
	}
	return d
}

// sourceValues returns the values of v that action a may fire from:
// pinned to one value if a has an EQUAL precondition on v, every
// value but one if a has a DISTINCT precondition on v, or the whole
// declared domain if a does not mention v at all.
func sourceValues(t *task.GroundedTask, a task.Action, v int) []int {
	domain := t.ReachableValues(v)
	for _, p := range a.Preconditions {
		if p.Var != v {
			continue
		}
		switch p.Kind {
		case task.Equal:
			return []int{p.Value}
		case task.Distinct:
			out := make([]int, 0, len(domain))
			for _, val := range domain {
				if val != p.Value {
					out = append(out, val)
				}
			}
			return out
		}
	}
	return domain
}

// Distance returns the minimum number of transitions from `from` to
// `to`, via breadth-first search over the transition graph.
func (d *DTG) Distance(from, to int) int {
	if from == to {
		return 0
	}
	visited := map[int]bool{from: true}
	frontier := []int{from}
	dist := 0
	for len(frontier) > 0 {
		dist++
		var next []int
		for _, v := range frontier {
			for n := range d.edges[v] {
				if visited[n] {
					continue
				}
				if n == to {
					return dist
				}
				visited[n] = true
				next = append(next, n)
			}
		}
		frontier = next
	}
	return unreachablePenalty
}
