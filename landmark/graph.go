// Package landmark implements the Distributed Landmark Graph (C3):
// per-level backward extraction of necessary landmarks from the
// relaxed planning graph, consolidated across agents via the
// baton-passing protocol, with global IDs agreed at the end.
package landmark

import (
	"errors"
	"fmt"
	"sort"

	"github.com/lexcodex/mapop/task"
)

// ErrUnreachableGoal is the fatal pre-search error of spec §7: a goal
// fact has a negative RPG level.
var ErrUnreachableGoal = errors.New("landmark: goal unreachable in relaxed planning graph")

// Kind distinguishes a single-fact landmark from a disjunctive one.
type Kind int

const (
	Single Kind = iota
	Disjunctive
)

// OrderingKind distinguishes necessary from reasonable landmark orderings.
type OrderingKind int

const (
	Necessary OrderingKind = iota
	Reasonable
)

// Landmark is a single grounded fact, or a disjunction of facts from
// the same variable, that must hold at some point in any solution.
type Landmark struct {
	ID     int // global id; -1 until §4.3 step 5 assigns it
	Kind   Kind
	Var    int
	Facts  []task.Condition
	Level  int
	IsGoal bool
}

// Label is the stable, agent-local dedup key: the underlying variable
// plus the sorted set of member values, per spec §4.3 "duplicate
// disjunctions are deduplicated by ... variable name plus sorted
// values".
func (l *Landmark) Label() string {
	if l.Kind == Single {
		return fmt.Sprintf("f:%d=%d", l.Facts[0].Var, l.Facts[0].Value)
	}
	vals := make([]int, len(l.Facts))
	for i, f := range l.Facts {
		vals[i] = f.Value
	}
	sort.Ints(vals)
	return fmt.Sprintf("d:%d:%v", l.Var, vals)
}

// Achieves reports whether effect e satisfies this landmark: for a
// single-fact landmark, e must match it exactly; for a disjunction,
// any member suffices.
func (l *Landmark) Achieves(e task.Condition) bool {
	for _, f := range l.Facts {
		if f.Var == e.Var && f.Value == e.Value && f.Kind == e.Kind {
			return true
		}
	}
	return false
}

// Ordering is a necessary or reasonable precedence edge between two
// landmark labels.
type Ordering struct {
	From, To string
	Kind     OrderingKind
}

// Graph is one agent's local copy of the consolidated landmark graph.
// After a successful Build, every agent's Graph has the same node set
// and the same global IDs (testable property 4). Orderings are not
// exchanged: each agent holds only the orderings it recorded itself.
type Graph struct {
	nodes     map[string]*Landmark
	insertion []string
	orderings []Ordering

	achievers map[task.Condition][]int // built once global IDs are assigned
}

// NewGraph returns an empty landmark graph.
func NewGraph() *Graph {
	return &Graph{nodes: map[string]*Landmark{}}
}

// Get looks up a landmark by its local label.
func (g *Graph) Get(label string) (*Landmark, bool) {
	l, ok := g.nodes[label]
	return l, ok
}

// Landmarks returns every landmark in stable insertion order.
func (g *Graph) Landmarks() []*Landmark {
	out := make([]*Landmark, 0, len(g.insertion))
	for _, label := range g.insertion {
		out = append(out, g.nodes[label])
	}
	return out
}

// Orderings returns every necessary/reasonable ordering edge.
func (g *Graph) Orderings() []Ordering {
	return append([]Ordering(nil), g.orderings...)
}

// sortedLabels returns every node label in deterministic sorted order —
// the enumeration global IDs are assigned against.
func (g *Graph) sortedLabels() []string {
	labels := append([]string(nil), g.insertion...)
	sort.Strings(labels)
	return labels
}

// TotalLandmarks returns the number of landmarks with an assigned
// global ID — the denominator h_LAND's bit-vector is sized against.
func (g *Graph) TotalLandmarks() int {
	n := 0
	for _, l := range g.nodes {
		if l.ID >= 0 {
			n++
		}
	}
	return n
}

// addSingle inserts (or returns the existing) single-fact landmark
// node for condition c at the given RPG level.
func (g *Graph) addSingle(c task.Condition, level int, isGoal bool) *Landmark {
	l := &Landmark{Kind: Single, Var: c.Var, Facts: []task.Condition{c}, Level: level, IsGoal: isGoal, ID: -1}
	label := l.Label()
	if existing, ok := g.nodes[label]; ok {
		if level < existing.Level {
			existing.Level = level
		}
		existing.IsGoal = existing.IsGoal || isGoal
		return existing
	}
	g.nodes[label] = l
	g.insertion = append(g.insertion, label)
	return l
}

// addDisjunctive inserts (or returns the existing) disjunctive
// landmark node for a set of same-variable facts.
func (g *Graph) addDisjunctive(v int, facts []task.Condition, level int) *Landmark {
	l := &Landmark{Kind: Disjunctive, Var: v, Facts: append([]task.Condition(nil), facts...), Level: level, ID: -1}
	label := l.Label()
	if existing, ok := g.nodes[label]; ok {
		if level < existing.Level {
			existing.Level = level
		}
		return existing
	}
	g.nodes[label] = l
	g.insertion = append(g.insertion, label)
	return l
}

// addOrdering records from->to, deduplicated and never self-loops.
func (g *Graph) addOrdering(from, to string, kind OrderingKind) {
	if from == to || from == "" || to == "" {
		return
	}
	for _, o := range g.orderings {
		if o.From == from && o.To == to {
			return
		}
	}
	g.orderings = append(g.orderings, Ordering{From: from, To: to, Kind: kind})
}

// buildIndex populates the fact->landmark-IDs lookup AchieversOf
// serves. Call once global IDs are final (assignIDs/applyGlobalIDs).
func (g *Graph) buildIndex() {
	g.achievers = map[task.Condition][]int{}
	for _, label := range g.insertion {
		lm := g.nodes[label]
		if lm.ID < 0 {
			continue
		}
		for _, f := range lm.Facts {
			g.achievers[f] = append(g.achievers[f], lm.ID)
		}
	}
}

// AchieversOf returns the global IDs of every landmark that fact e
// would satisfy (itself for a single-fact landmark, or as one member
// of a disjunction).
func (g *Graph) AchieversOf(e task.Condition) []int {
	return g.achievers[e]
}

// removeOrdering deletes the from->to edge, if present.
func (g *Graph) removeOrdering(from, to string) {
	out := g.orderings[:0]
	for _, o := range g.orderings {
		if o.From == from && o.To == to {
			continue
		}
		out = append(out, o)
	}
	g.orderings = out
}
