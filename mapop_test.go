package mapop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lexcodex/mapop/config"
	"github.com/lexcodex/mapop/task"
)

const (
	varLoc  = 0
	valHome = 0
	valAway = 1
)

func carryTask() *task.GroundedTask {
	pickup := task.Action{
		Name:          "pickup",
		Agent:         "a1",
		Preconditions: []task.Condition{{Var: varLoc, Value: valHome, Kind: task.Equal}},
		Effects:       []task.Condition{{Var: varLoc, Value: valAway, Kind: task.Equal}},
	}
	return task.New("a1", []task.AgentID{"a1"}, []task.Variable{
		{Code: varLoc, Name: "loc", Domain: []int{valHome, valAway}, WritableBy: "a1"},
	}, []task.Action{pickup}, map[int]int{varLoc: valHome},
		[]task.Condition{{Var: varLoc, Value: valAway, Kind: task.Equal}}, task.MetricSpec{})
}

func TestRunPlannerSolvesSingleAgentTask(t *testing.T) {
	sol, status, err := RunPlanner(context.Background(), carryTask(), nil, config.Default(), nil)
	require.NoError(t, err)
	require.Equal(t, Solved, status)
	require.True(t, sol.IsSolution())
}

func TestRunPlannerReturnsUnsolvableProvenForUnreachableGoal(t *testing.T) {
	const varZ = 1
	stuck := task.New("a1", []task.AgentID{"a1"}, []task.Variable{
		{Code: varLoc, Name: "loc", Domain: []int{valHome, valAway}, WritableBy: "a1"},
		{Code: varZ, Name: "z", Domain: []int{0, 1}, WritableBy: "a1"},
	}, nil, map[int]int{varLoc: valHome},
		[]task.Condition{{Var: varZ, Value: 1, Kind: task.Equal}}, task.MetricSpec{})

	_, status, err := RunPlanner(context.Background(), stuck, nil, config.Default(), nil)
	require.NoError(t, err)
	require.Equal(t, UnsolvableProven, status)
}

func TestRunPlannerRejectsUnsupportedConfig(t *testing.T) {
	badCfg := config.Default()
	badCfg.NegotiationMode = "auction"

	_, status, err := RunPlanner(context.Background(), carryTask(), nil, badCfg, nil)
	require.Error(t, err)
	require.Equal(t, InternalError, status)
}

func TestRunPlannerRespectsMaxIterations(t *testing.T) {
	const varMid, varGoal = 0, 1
	actionA := task.Action{Name: "actionA", Agent: "a1", Effects: []task.Condition{{Var: varMid, Value: 1, Kind: task.Equal}}}
	actionB := task.Action{
		Name:          "actionB",
		Agent:         "a1",
		Preconditions: []task.Condition{{Var: varMid, Value: 1, Kind: task.Equal}},
		Effects:       []task.Condition{{Var: varGoal, Value: 1, Kind: task.Equal}},
	}
	chain := task.New("a1", []task.AgentID{"a1"}, []task.Variable{
		{Code: varMid, Name: "mid", Domain: []int{0, 1}, WritableBy: "a1"},
		{Code: varGoal, Name: "goal", Domain: []int{0, 1}, WritableBy: "a1"},
	}, []task.Action{actionA, actionB}, map[int]int{},
		[]task.Condition{{Var: varGoal, Value: 1, Kind: task.Equal}}, task.MetricSpec{})

	cfg := config.Default()
	cfg.MaxIterations = 1
	_, status, err := RunPlanner(context.Background(), chain, nil, cfg, nil)
	require.NoError(t, err)
	require.Equal(t, Timeout, status)
}
