// Package rpg builds the Relaxed Planning Graph (C2): a standard
// delete-relaxation forward reachability graph used both to seed the
// distributed landmark extraction (C3) and to verify single-landmark
// and necessary-ordering claims.
package rpg

import (
	"github.com/lexcodex/mapop/task"
)

const unreachable = -1

// Fact is a grounded (var, value) pair — the delete-relaxed graph
// never distinguishes EQUAL from DISTINCT preconditions; it only
// tracks which facts are reachable and from what.
type Fact struct {
	Var   int
	Value int
}

// Graph is the layered literal/action reachability graph built
// forward from the initial state until a fixpoint.
type Graph struct {
	t *task.GroundedTask

	factLevel   map[Fact]int
	actionLevel map[int]int // index into t.Actions
	producers   map[Fact][]int
	maxLevel    int
}

// Build runs the fixpoint computation once. The result is read-only.
func Build(t *task.GroundedTask) *Graph {
	g := &Graph{
		t:           t,
		factLevel:   map[Fact]int{},
		actionLevel: map[int]int{},
		producers:   map[Fact][]int{},
	}
	g.run()
	return g
}

func (g *Graph) run() {
	level := 0
	for v, val := range g.t.InitialState {
		g.factLevel[Fact{Var: v, Value: val}] = 0
	}
	for {
		changed := false
		for idx, a := range g.t.Actions {
			if _, done := g.actionLevel[idx]; done {
				continue
			}
			if !g.applicableAt(a, level-1) {
				continue
			}
			g.actionLevel[idx] = level
			changed = true
			for _, e := range a.Effects {
				f := Fact{Var: e.Var, Value: e.Value}
				if _, ok := g.factLevel[f]; !ok {
					g.factLevel[f] = level
				}
				g.producers[f] = append(g.producers[f], idx)
			}
		}
		if !changed {
			break
		}
		level++
	}
	g.maxLevel = level
}

// applicableAt reports whether every precondition of a is satisfied by
// some fact reachable at or before actionLayer (delete-relaxed: once
// true, a value never becomes unreachable).
func (g *Graph) applicableAt(a task.Action, actionLayer int) bool {
	for _, p := range a.Preconditions {
		switch p.Kind {
		case task.Equal:
			lvl, ok := g.factLevel[Fact{Var: p.Var, Value: p.Value}]
			if !ok || lvl > actionLayer {
				return false
			}
		case task.Distinct:
			found := false
			for f, lvl := range g.factLevel {
				if f.Var == p.Var && f.Value != p.Value && lvl <= actionLayer {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

// Level returns the first layer a fact appears in, or -1 if unreachable.
func (g *Graph) Level(f Fact) int {
	if lvl, ok := g.factLevel[f]; ok {
		return lvl
	}
	return unreachable
}

// ConditionLevel is Level generalized to a task.Condition: for EQUAL it
// is the fact's own level; for DISTINCT it is the earliest level any
// differing value for the same variable becomes reachable.
func (g *Graph) ConditionLevel(c task.Condition) int {
	if c.Kind == task.Equal {
		return g.Level(Fact{Var: c.Var, Value: c.Value})
	}
	best := unreachable
	for f, lvl := range g.factLevel {
		if f.Var != c.Var || f.Value == c.Value {
			continue
		}
		if best == unreachable || lvl < best {
			best = lvl
		}
	}
	return best
}

// ActionLevel returns the first action-layer an action becomes
// applicable in, or -1 if it never does.
func (g *Graph) ActionLevel(actionIdx int) int {
	if lvl, ok := g.actionLevel[actionIdx]; ok {
		return lvl
	}
	return unreachable
}

// MaxLevel returns the final fixpoint layer reached.
func (g *Graph) MaxLevel() int { return g.maxLevel }

// Producers returns the indices of actions whose effect is f, in the
// order they first became applicable.
func (g *Graph) Producers(f Fact) []int {
	return append([]int(nil), g.producers[f]...)
}

// GoalsReachable reports whether every goal condition has a non-negative level.
func (g *Graph) GoalsReachable(goals []task.Condition) bool {
	for _, c := range goals {
		if g.ConditionLevel(c) < 0 {
			return false
		}
	}
	return true
}

// VerifySingleLandmark returns true iff removing every producer of f
// from the graph makes at least one goal unreachable (spec §4.2). It
// rebuilds a relaxed plan graph with those actions zeroed out and
// checks goal reachability there.
func (g *Graph) VerifySingleLandmark(f Fact, goals []task.Condition) bool {
	excluded := map[int]bool{}
	for _, idx := range g.producers[f] {
		excluded[idx] = true
	}
	return !g.reachableExcluding(excluded, goals)
}

// VerifyEdge returns true iff removing the given actions (typically
// the producers of a landmark a) makes consumer condition c
// unreachable — the necessary-ordering check of spec §4.3 step 4.
func (g *Graph) VerifyEdge(actions []int, c task.Condition) bool {
	excluded := map[int]bool{}
	for _, idx := range actions {
		excluded[idx] = true
	}
	return !g.reachableExcludingCondition(excluded, c)
}

// reachableExcluding rebuilds reachability with the given actions
// disabled and reports whether all goals remain reachable.
func (g *Graph) reachableExcluding(excluded map[int]bool, goals []task.Condition) bool {
	sub := g.rebuild(excluded)
	return sub.GoalsReachable(goals)
}

func (g *Graph) reachableExcludingCondition(excluded map[int]bool, c task.Condition) bool {
	sub := g.rebuild(excluded)
	return sub.ConditionLevel(c) >= 0
}

// rebuild recomputes the fixpoint with a subset of actions disabled.
// This is the "remove actions and re-derive" primitive every landmark
// verification step needs; it is intentionally a fresh, independent
// computation rather than an incremental patch of g, since excluded
// sets are transient and used once.
func (g *Graph) rebuild(excluded map[int]bool) *Graph {
	sub := &Graph{
		t:           g.t,
		factLevel:   map[Fact]int{},
		actionLevel: map[int]int{},
		producers:   map[Fact][]int{},
	}
	level := 0
	for v, val := range sub.t.InitialState {
		sub.factLevel[Fact{Var: v, Value: val}] = 0
	}
	for {
		changed := false
		for idx, a := range sub.t.Actions {
			if excluded[idx] {
				continue
			}
			if _, done := sub.actionLevel[idx]; done {
				continue
			}
			if !sub.applicableAt(a, level-1) {
				continue
			}
			sub.actionLevel[idx] = level
			changed = true
			for _, e := range a.Effects {
				f := Fact{Var: e.Var, Value: e.Value}
				if _, ok := sub.factLevel[f]; !ok {
					sub.factLevel[f] = level
				}
				sub.producers[f] = append(sub.producers[f], idx)
			}
		}
		if !changed {
			break
		}
		level++
	}
	sub.maxLevel = level
	return sub
}
