// Package task holds the Grounded Task model (C1): an immutable,
// already-grounded planning problem handed to the core by an
// out-of-scope parser+grounder. Nothing in this package mutates a
// GroundedTask after construction.
package task

import (
	"fmt"
	"sort"
)

// AgentID names a planning agent. Agent identity is opaque to the core;
// it is only ever compared for equality or used as a map key.
type AgentID string

// ConditionKind distinguishes equality from inequality preconditions.
type ConditionKind int

const (
	// Equal matches a condition whose value equals the variable's current value.
	Equal ConditionKind = iota
	// Distinct matches a condition whose value differs from the variable's current value.
	Distinct
)

func (k ConditionKind) String() string {
	if k == Distinct {
		return "DISTINCT"
	}
	return "EQUAL"
}

// Condition is a tuple (var, value, kind). var and value are always the
// grounder's global integer codes, never names, per the core's invariant.
type Condition struct {
	Var   int
	Value int
	Kind  ConditionKind
}

func (c Condition) String() string {
	return fmt.Sprintf("v%d%s%d", c.Var, map[ConditionKind]string{Equal: "=", Distinct: "!="}[c.Kind], c.Value)
}

// Satisfies reports whether the condition holds given the variable's
// asserted value. An unset value (absent from the map) never satisfies
// an Equal condition and always satisfies a Distinct one (there is
// nothing it could be equal to yet).
func (c Condition) Satisfies(value int, isSet bool) bool {
	switch c.Kind {
	case Equal:
		return isSet && value == c.Value
	case Distinct:
		return !isSet || value != c.Value
	default:
		return false
	}
}

// Variable is a named, finite-domain state variable plus the set of
// agents allowed to read or write it (its shareability set).
type Variable struct {
	Code       int
	Name       string
	Domain     []int
	Shareable  []AgentID // agents other than the owner that may observe this variable
	WritableBy AgentID   // the single agent allowed to write it; "" means task-global
}

// Action is a name plus ordered preconditions and effects. Effects are
// total assignments var := value and are always Equal conditions.
type Action struct {
	Name          string
	Agent         AgentID
	Preconditions []Condition
	Effects       []Condition
}

// EffectValue returns the value this action asserts for var, if any.
func (a *Action) EffectValue(v int) (int, bool) {
	for _, e := range a.Effects {
		if e.Var == v {
			return e.Value, true
		}
	}
	return 0, false
}

// Produces reports whether the action's effects satisfy condition c.
func (a *Action) Produces(c Condition) bool {
	value, ok := a.EffectValue(c.Var)
	if !ok {
		return false
	}
	return c.Satisfies(value, true)
}

// GroundedTask is the immutable planning problem for one agent's
// projection of the shared problem. It is created once by the
// out-of-scope grounder and never mutated by the search core.
type GroundedTask struct {
	Agent        AgentID
	Agents       []AgentID
	Variables    []Variable
	Actions      []Action
	InitialState map[int]int
	Goals        []Condition
	Metric       MetricSpec
}

// MetricSpec configures the optional metric-threshold acceptance filter (§4.6).
type MetricSpec struct {
	Enabled   bool
	Threshold float64
	Evaluate  func(state map[int]int) float64
}

// New constructs a GroundedTask, indexing variables by Code for fast lookup.
func New(agent AgentID, agents []AgentID, variables []Variable, actions []Action, initial map[int]int, goals []Condition, metric MetricSpec) *GroundedTask {
	t := &GroundedTask{
		Agent:        agent,
		Agents:       append([]AgentID(nil), agents...),
		Variables:    append([]Variable(nil), variables...),
		Actions:      append([]Action(nil), actions...),
		InitialState: make(map[int]int, len(initial)),
		Goals:        append([]Condition(nil), goals...),
		Metric:       metric,
	}
	for k, v := range initial {
		t.InitialState[k] = v
	}
	return t
}

// ActionsOf returns the actions owned by agent, in declaration order.
func (t *GroundedTask) ActionsOf(agent AgentID) []Action {
	var out []Action
	for _, a := range t.Actions {
		if a.Agent == agent {
			out = append(out, a)
		}
	}
	return out
}

// Variable looks up a variable by its global code.
func (t *GroundedTask) Variable(code int) (Variable, bool) {
	for _, v := range t.Variables {
		if v.Code == code {
			return v, true
		}
	}
	return Variable{}, false
}

// Shareable returns the set of agents that may observe condition c,
// i.e. the owner plus the variable's declared shareability set.
func (t *GroundedTask) Shareable(c Condition) []AgentID {
	v, ok := t.Variable(c.Var)
	if !ok {
		return nil
	}
	set := map[AgentID]bool{v.WritableBy: true}
	for _, a := range v.Shareable {
		set[a] = true
	}
	out := make([]AgentID, 0, len(set))
	for a := range set {
		if a != "" {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// GlobalGoals returns the task's global goal conditions.
func (t *GroundedTask) GlobalGoals() []Condition {
	return t.Goals
}

// ReachableValues returns the statically-declared domain of a
// variable: every value that could ever be asserted for it, as known
// from grounding (initial value plus every action-effect value). This
// is a cheap over-approximation the RPG layer (C2) uses as its seed
// set; the RPG itself computes the precise per-value reachability
// level.
func (t *GroundedTask) ReachableValues(v int) []int {
	seen := map[int]bool{}
	if val, ok := t.InitialState[v]; ok {
		seen[val] = true
	}
	for _, a := range t.Actions {
		if val, ok := a.EffectValue(v); ok {
			seen[val] = true
		}
	}
	out := make([]int, 0, len(seen))
	for val := range seen {
		out = append(out, val)
	}
	sort.Ints(out)
	return out
}

// MinTime returns the minimum number of action effects on var needed
// to reach value starting from the initial state: 0 if already
// initial, 1 if some action can assert it directly from the initial
// state, otherwise the cheap upper bound 2 (any value is reachable
// through at most one intermediate assignment in an unconstrained
// projection). The RPG computes the exact level; this is only the
// seed Task contributes per spec §4.1.
func (t *GroundedTask) MinTime(v, value int) int {
	if init, ok := t.InitialState[v]; ok && init == value {
		return 0
	}
	for _, a := range t.Actions {
		if val, ok := a.EffectValue(v); ok && val == value {
			return 1
		}
	}
	return 2
}

// MetricThreshold returns the configured metric acceptance threshold.
func (t *GroundedTask) MetricThreshold() float64 {
	return t.Metric.Threshold
}

// EvaluateMetric runs the task's metric function over a linearized state.
func (t *GroundedTask) EvaluateMetric(state map[int]int) float64 {
	if t.Metric.Evaluate == nil {
		return 0
	}
	return t.Metric.Evaluate(state)
}
