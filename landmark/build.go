package landmark

import (
	"context"
	"fmt"
	"sort"

	"github.com/lexcodex/mapop/rpg"
	"github.com/lexcodex/mapop/task"
	"github.com/lexcodex/mapop/transport"
)

// Builder drives one agent's participation in distributed landmark
// graph construction (spec §4.3).
type Builder struct {
	t    *task.GroundedTask
	g    *rpg.Graph
	port transport.Port
}

// NewBuilder binds a grounded task, its relaxed planning graph, and the
// messaging port this agent will use to consolidate landmarks with its
// peers.
func NewBuilder(t *task.GroundedTask, g *rpg.Graph, port transport.Port) *Builder {
	return &Builder{t: t, g: g, port: port}
}

// Build runs the full procedure and returns the consolidated graph.
// With a single agent (or a nil port) every step runs locally with no
// message exchange, satisfying testable property 10. With more than
// one agent the baton holder drives a request/response sweep over the
// other participants.
func (b *Builder) Build(ctx context.Context) (*Graph, error) {
	goals := b.t.GlobalGoals()
	graph := NewGraph()
	for _, c := range goals {
		lvl := b.g.ConditionLevel(c)
		if lvl < 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnreachableGoal, c)
		}
		graph.addSingle(c, lvl, true)
	}

	if b.port == nil || b.port.NumAgents() <= 1 {
		b.sweepLocal(graph, goals, nil)
		assignIDs(graph)
		return graph, nil
	}

	if b.port.BatonAgent() {
		if err := b.runBaton(ctx, graph, goals); err != nil {
			return nil, err
		}
	} else {
		if err := b.runParticipant(ctx, graph, goals); err != nil {
			return nil, err
		}
	}
	return graph, nil
}

// sweepLocal runs the worklist-driven backward chaining using only this
// agent's own producer actions. When remote is non-nil it is invoked
// for every candidate so a baton can also solicit other agents'
// contributions; its results are merged in alongside the local ones.
func (b *Builder) sweepLocal(graph *Graph, goals []task.Condition, remote func(lm *Landmark) []discovered) {
	queue := append([]string(nil), graph.insertion...)
	processed := map[string]bool{}
	for len(queue) > 0 {
		bi := 0
		for i := 1; i < len(queue); i++ {
			if graph.nodes[queue[i]].Level > graph.nodes[queue[bi]].Level {
				bi = i
			}
		}
		label := queue[bi]
		queue = append(queue[:bi], queue[bi+1:]...)
		if processed[label] {
			continue
		}
		processed[label] = true

		lm := graph.nodes[label]
		if lm.Level <= 0 {
			continue
		}

		for _, d := range b.expandOwn(lm, goals) {
			nl := graph.insert(d)
			graph.addOrdering(nl.Label(), lm.Label(), Necessary)
			if !processed[nl.Label()] {
				queue = append(queue, nl.Label())
			}
		}
		if remote != nil {
			for _, d := range remote(lm) {
				nl := graph.insert(d)
				graph.addOrdering(nl.Label(), lm.Label(), Necessary)
				if !processed[nl.Label()] {
					queue = append(queue, nl.Label())
				}
			}
		}
	}
}

// discovered is a landmark candidate awaiting insertion into a Graph.
type discovered struct {
	kind  Kind
	v     int
	facts []task.Condition
	level int
}

func (g *Graph) insert(d discovered) *Landmark {
	if d.kind == Single {
		return g.addSingle(d.facts[0], d.level, false)
	}
	return g.addDisjunctive(d.v, d.facts, d.level)
}

// expandOwn computes the common-precondition and grouped-disjunction
// candidates that precede lm, restricted to this agent's own actions
// (the only actions it can see preconditions for), each verified
// against the global goal set before being returned.
func (b *Builder) expandOwn(lm *Landmark, goals []task.Condition) []discovered {
	producerIdx := map[int]bool{}
	for _, f := range lm.Facts {
		for _, idx := range b.g.Producers(rpg.Fact{Var: f.Var, Value: f.Value}) {
			producerIdx[idx] = true
		}
	}
	if len(producerIdx) == 0 {
		return nil
	}
	actions := make([]task.Action, 0, len(producerIdx))
	for idx := range producerIdx {
		actions = append(actions, b.t.Actions[idx])
	}

	var out []discovered

	common := commonEqualPreconditions(actions)
	for _, c := range common {
		lvl := b.g.ConditionLevel(c)
		if lvl < 0 {
			continue
		}
		if !b.g.VerifySingleLandmark(rpg.Fact{Var: c.Var, Value: c.Value}, goals) {
			continue
		}
		out = append(out, discovered{kind: Single, facts: []task.Condition{c}, level: lvl})
	}

	for v, vals := range groupedByVar(actions, common) {
		facts := make([]task.Condition, 0, len(vals))
		rpgFacts := make([]rpg.Fact, 0, len(vals))
		lvl := -1
		for _, val := range vals {
			c := task.Condition{Var: v, Value: val, Kind: task.Equal}
			l := b.g.ConditionLevel(c)
			if l < 0 {
				continue
			}
			facts = append(facts, c)
			rpgFacts = append(rpgFacts, rpg.Fact{Var: v, Value: val})
			if lvl == -1 || l < lvl {
				lvl = l
			}
		}
		if len(facts) < 2 || lvl < 0 {
			continue
		}
		if !b.g.VerifyDisjunctiveLandmark(rpgFacts, goals) {
			continue
		}
		out = append(out, discovered{kind: Disjunctive, v: v, facts: facts, level: lvl})
	}
	return out
}

// commonEqualPreconditions intersects the EQUAL preconditions shared by
// every action in actions.
func commonEqualPreconditions(actions []task.Action) []task.Condition {
	if len(actions) == 0 {
		return nil
	}
	counts := map[task.Condition]int{}
	for _, a := range actions {
		seen := map[task.Condition]bool{}
		for _, p := range a.Preconditions {
			if p.Kind != task.Equal || seen[p] {
				continue
			}
			seen[p] = true
			counts[p]++
		}
	}
	var out []task.Condition
	for c, n := range counts {
		if n == len(actions) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Var != out[j].Var {
			return out[i].Var < out[j].Var
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// groupedByVar finds variables (other than those already common) that
// every action constrains with an EQUAL precondition, but not all to
// the same value — the classic disjunctive-landmark shape — and
// returns the union of values per such variable.
func groupedByVar(actions []task.Action, common []task.Condition) map[int][]int {
	commonVars := map[int]bool{}
	for _, c := range common {
		commonVars[c.Var] = true
	}
	touchCount := map[int]int{}
	values := map[int]map[int]bool{}
	for _, a := range actions {
		touched := map[int]bool{}
		for _, p := range a.Preconditions {
			if p.Kind != task.Equal || commonVars[p.Var] {
				continue
			}
			if !touched[p.Var] {
				touched[p.Var] = true
				touchCount[p.Var]++
			}
			if values[p.Var] == nil {
				values[p.Var] = map[int]bool{}
			}
			values[p.Var][p.Value] = true
		}
	}
	out := map[int][]int{}
	for v, n := range touchCount {
		if n != len(actions) {
			continue
		}
		vals := make([]int, 0, len(values[v]))
		for val := range values[v] {
			vals = append(vals, val)
		}
		if len(vals) < 2 {
			continue
		}
		sort.Ints(vals)
		out[v] = vals
	}
	return out
}

func assignIDs(graph *Graph) {
	for i, l := range graph.sortedLabels() {
		graph.nodes[l].ID = i
	}
	graph.buildIndex()
}

