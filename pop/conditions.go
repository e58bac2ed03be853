package pop

import (
	"github.com/lexcodex/mapop/plan"
	"github.com/lexcodex/mapop/task"
)

// produces reports whether step s has an effect satisfying c. Initial's
// "effects" are the task's initial-state assignments; Final has none.
func produces(t *task.GroundedTask, s plan.Step, c task.Condition) bool {
	switch s.Kind {
	case plan.Initial:
		val, ok := t.InitialState[c.Var]
		return c.Satisfies(val, ok)
	case plan.Normal:
		if s.Action == nil {
			return false
		}
		return s.Action.Produces(c)
	default:
		return false
	}
}

// effectsOf returns the conditions step s asserts, used for threat
// detection against causal links.
func effectsOf(t *task.GroundedTask, s plan.Step) []task.Condition {
	switch s.Kind {
	case plan.Initial:
		out := make([]task.Condition, 0, len(t.InitialState))
		for v, val := range t.InitialState {
			out = append(out, task.Condition{Var: v, Value: val, Kind: task.Equal})
		}
		return out
	case plan.Normal:
		if s.Action == nil {
			return nil
		}
		return s.Action.Effects
	default:
		return nil
	}
}

// clobbers reports whether effect e undoes condition c: an EQUAL
// condition is clobbered by any effect asserting a different value; a
// DISTINCT condition is clobbered by an effect asserting the forbidden
// value.
func clobbers(e, c task.Condition) bool {
	if e.Var != c.Var {
		return false
	}
	switch c.Kind {
	case task.Equal:
		return e.Value != c.Value
	case task.Distinct:
		return e.Value == c.Value
	default:
		return false
	}
}

func actionPreconditions(a *task.Action, consumer int) []plan.OpenCondition {
	out := make([]plan.OpenCondition, len(a.Preconditions))
	for i, c := range a.Preconditions {
		out[i] = plan.OpenCondition{Step: consumer, Condition: c}
	}
	return out
}

func nextIndex(steps []plan.Step) int {
	max := -1
	for _, s := range steps {
		if s.Index > max {
			max = s.Index
		}
	}
	return max + 1
}

// reachable is a plain, unmemoized BFS over an ordering set — used only
// by threat detection, which runs once per newly created causal link
// rather than the many times per pop that the accessibility matrix
// serves during open-condition selection.
func reachable(orderings []plan.Ordering, from, to int) bool {
	if from == to {
		return false
	}
	adj := map[int][]int{}
	for _, o := range orderings {
		adj[o.Before] = append(adj[o.Before], o.After)
	}
	visited := map[int]bool{from: true}
	queue := []int{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range adj[cur] {
			if n == to {
				return true
			}
			if visited[n] {
				continue
			}
			visited[n] = true
			queue = append(queue, n)
		}
	}
	return false
}

func edgesOf(orderings []plan.Ordering) [][2]int {
	out := make([][2]int, len(orderings))
	for i, o := range orderings {
		out[i] = [2]int{o.Before, o.After}
	}
	return out
}
