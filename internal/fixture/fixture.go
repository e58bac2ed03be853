// Package fixture loads a task.GroundedTask from a JSON file, for the
// CLI's own test fixtures (C13). Real grounding from a PDDL-style
// domain/problem pair is out of scope; this package only has to round-
// trip the shape search/landmark/rpg already operate on.
package fixture

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/lexcodex/mapop/task"
)

// ConditionJSON mirrors task.Condition with a readable "kind" string
// instead of task.ConditionKind's int encoding.
type ConditionJSON struct {
	Var   int    `json:"var"`
	Value int    `json:"value"`
	Kind  string `json:"kind,omitempty"` // "equal" (default) or "distinct"
}

func (c ConditionJSON) toCondition() task.Condition {
	kind := task.Equal
	if c.Kind == "distinct" {
		kind = task.Distinct
	}
	return task.Condition{Var: c.Var, Value: c.Value, Kind: kind}
}

// ActionJSON mirrors task.Action.
type ActionJSON struct {
	Name          string          `json:"name"`
	Agent         string          `json:"agent"`
	Preconditions []ConditionJSON `json:"preconditions,omitempty"`
	Effects       []ConditionJSON `json:"effects"`
}

// VariableJSON mirrors task.Variable.
type VariableJSON struct {
	Code       int      `json:"code"`
	Name       string   `json:"name"`
	Domain     []int    `json:"domain"`
	Shareable  []string `json:"shareable,omitempty"`
	WritableBy string   `json:"writable_by,omitempty"`
}

// TaskJSON is the on-disk shape loaded by `mapop run`/`mapop trace`.
type TaskJSON struct {
	Agent        string          `json:"agent"`
	Agents       []string        `json:"agents"`
	Variables    []VariableJSON  `json:"variables"`
	Actions      []ActionJSON    `json:"actions"`
	InitialState map[string]int  `json:"initial_state"`
	Goals        []ConditionJSON `json:"goals"`
}

// Load reads and decodes a TaskJSON file into a task.GroundedTask.
// InitialState keys are decimal variable codes, given as strings
// because JSON object keys are always strings.
func Load(path string) (*task.GroundedTask, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fixture: reading %s: %w", path, err)
	}
	var doc TaskJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("fixture: parsing %s: %w", path, err)
	}
	return doc.toTask()
}

func (doc TaskJSON) toTask() (*task.GroundedTask, error) {
	agents := make([]task.AgentID, 0, len(doc.Agents))
	for _, a := range doc.Agents {
		agents = append(agents, task.AgentID(a))
	}
	if len(agents) == 0 {
		agents = []task.AgentID{task.AgentID(doc.Agent)}
	}

	variables := make([]task.Variable, 0, len(doc.Variables))
	for _, v := range doc.Variables {
		shareable := make([]task.AgentID, 0, len(v.Shareable))
		for _, a := range v.Shareable {
			shareable = append(shareable, task.AgentID(a))
		}
		variables = append(variables, task.Variable{
			Code:       v.Code,
			Name:       v.Name,
			Domain:     append([]int(nil), v.Domain...),
			Shareable:  shareable,
			WritableBy: task.AgentID(v.WritableBy),
		})
	}

	actions := make([]task.Action, 0, len(doc.Actions))
	for _, a := range doc.Actions {
		if len(a.Effects) == 0 {
			return nil, fmt.Errorf("fixture: action %q has no effects", a.Name)
		}
		pre := make([]task.Condition, 0, len(a.Preconditions))
		for _, c := range a.Preconditions {
			pre = append(pre, c.toCondition())
		}
		eff := make([]task.Condition, 0, len(a.Effects))
		for _, c := range a.Effects {
			eff = append(eff, c.toCondition())
		}
		actions = append(actions, task.Action{
			Name:          a.Name,
			Agent:         task.AgentID(a.Agent),
			Preconditions: pre,
			Effects:       eff,
		})
	}

	initial := make(map[int]int, len(doc.InitialState))
	for k, v := range doc.InitialState {
		var code int
		if _, err := fmt.Sscanf(k, "%d", &code); err != nil {
			return nil, fmt.Errorf("fixture: initial_state key %q is not a variable code: %w", k, err)
		}
		initial[code] = v
	}

	goals := make([]task.Condition, 0, len(doc.Goals))
	for _, c := range doc.Goals {
		goals = append(goals, c.toCondition())
	}

	return task.New(task.AgentID(doc.Agent), agents, variables, actions, initial, goals, task.MetricSpec{}), nil
}
