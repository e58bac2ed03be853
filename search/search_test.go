package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lexcodex/mapop/landmark"
	"github.com/lexcodex/mapop/observer"
	"github.com/lexcodex/mapop/rpg"
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

func buildGraph(t *testing.T, tk *task.GroundedTask) *landmark.Graph {
	t.Helper()
	g := rpg.Build(tk)
	graph, err := landmark.NewBuilder(tk, g, nil).Build(context.Background())
	require.NoError(t, err)
	return graph
}

func TestSearcherSolvesSingleActionTask(t *testing.T) {
	tk := carryTask()
	graph := buildGraph(t, tk)

	s := NewSearcher(tk, graph, nil, CooperativeChecker{}, 100)
	sol, status, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, Solved, status)
	require.True(t, sol.IsSolution())
	require.Len(t, sol.Steps(), 3) // Initial, Final, pickup
}

func TestSearcherRecognizesAlreadySolvedRoot(t *testing.T) {
	tk := carryTask()
	tk.InitialState[varLoc] = valAway
	graph := buildGraph(t, tk)

	s := NewSearcher(tk, graph, nil, CooperativeChecker{}, 100)
	sol, status, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, Solved, status)
	require.Len(t, sol.Steps(), 2) // just Initial and Final, no pickup needed
}

func TestSearcherExhaustsWhenGoalUnreachable(t *testing.T) {
	const varZ = 1
	stuck := task.New("a1", []task.AgentID{"a1"}, []task.Variable{
		{Code: varLoc, Name: "loc", Domain: []int{valHome, valAway}, WritableBy: "a1"},
		{Code: varZ, Name: "z", Domain: []int{0, 1}, WritableBy: "a1"},
	}, nil, map[int]int{varLoc: valHome},
		[]task.Condition{{Var: varZ, Value: 1, Kind: task.Equal}}, task.MetricSpec{})

	// No action produces varZ=1, so the RPG never reaches the goal and
	// landmark.Build reports it as unreachable before search even starts.
	g := rpg.Build(stuck)
	_, err := landmark.NewBuilder(stuck, g, nil).Build(context.Background())
	require.ErrorIs(t, err, landmark.ErrUnreachableGoal)
}

func chainTask() *task.GroundedTask {
	const varMid, varGoal = 0, 1
	actionA := task.Action{Name: "actionA", Agent: "a1", Effects: []task.Condition{{Var: varMid, Value: 1, Kind: task.Equal}}}
	actionB := task.Action{
		Name:          "actionB",
		Agent:         "a1",
		Preconditions: []task.Condition{{Var: varMid, Value: 1, Kind: task.Equal}},
		Effects:       []task.Condition{{Var: varGoal, Value: 1, Kind: task.Equal}},
	}
	return task.New("a1", []task.AgentID{"a1"}, []task.Variable{
		{Code: varMid, Name: "mid", Domain: []int{0, 1}, WritableBy: "a1"},
		{Code: varGoal, Name: "goal", Domain: []int{0, 1}, WritableBy: "a1"},
	}, []task.Action{actionA, actionB}, map[int]int{},
		[]task.Condition{{Var: varGoal, Value: 1, Kind: task.Equal}}, task.MetricSpec{})
}

func TestSearcherRespectsMaxIterations(t *testing.T) {
	tk := chainTask()
	graph := buildGraph(t, tk)

	// actionB only becomes applicable once actionA has already run as an
	// earlier step of the base plan, so solving needs at least two outer
	// iterations. Capping at one must time out before that happens.
	capped := NewSearcher(tk, graph, nil, CooperativeChecker{}, 1)
	_, status, err := capped.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, TimedOut, status)

	uncapped := NewSearcher(tk, graph, nil, CooperativeChecker{}, 100)
	sol, status, err := uncapped.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, Solved, status)
	require.True(t, sol.IsSolution())
}

// Running with an observer attached must reach the exact same solution
// as running with none (spec §4.9's "observer never affects the plan"),
// while actually emitting events the real search produces.
func TestSearcherObserverDoesNotAffectOutcome(t *testing.T) {
	tk := carryTask()
	graph := buildGraph(t, tk)

	baseline := NewSearcher(tk, graph, nil, CooperativeChecker{}, 100)
	baseSol, baseStatus, err := baseline.Run(context.Background())
	require.NoError(t, err)

	ch := observer.NewChannelObserver(32)
	watched := NewSearcher(tk, graph, nil, CooperativeChecker{}, 100, ch)
	watchedSol, watchedStatus, err := watched.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, baseStatus, watchedStatus)
	require.Equal(t, baseSol.Name(), watchedSol.Name())
	require.Equal(t, baseSol.Steps(), watchedSol.Steps())

	var sawSolution, sawTerminated bool
	for {
		select {
		case e := <-ch.Events():
			switch e.Type {
			case observer.EventSolutionFound:
				sawSolution = true
			case observer.EventTerminated:
				sawTerminated = true
			}
			continue
		default:
		}
		break
	}
	require.True(t, sawSolution, "expected a solution_found event")
	require.True(t, sawTerminated, "expected a search_terminated event")
}
