package mapop

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lexcodex/mapop/config"
	"github.com/lexcodex/mapop/observer"
	"github.com/lexcodex/mapop/plan"
	"github.com/lexcodex/mapop/task"
	"github.com/lexcodex/mapop/transport"
)

const (
	varLocA = 0
	varLocB = 1
)

// twoAgentCarryTask builds a view of the same two-agent task for agent:
// a1 owns varLocA and pickupA, a2 owns varLocB and pickupB, and the
// shared goal needs both. Neither agent's action depends on the
// other's, so the only thing forcing cooperation is the outer search's
// base-plan/proposal/heuristic exchange itself (spec §5, §4.6).
func twoAgentCarryTask(agent task.AgentID) *task.GroundedTask {
	agents := []task.AgentID{"a1", "a2"}
	vars := []task.Variable{
		{Code: varLocA, Name: "locA", Domain: []int{valHome, valAway}, WritableBy: "a1"},
		{Code: varLocB, Name: "locB", Domain: []int{valHome, valAway}, WritableBy: "a2"},
	}
	actions := []task.Action{
		{
			Name:          "pickupA",
			Agent:         "a1",
			Preconditions: []task.Condition{{Var: varLocA, Value: valHome, Kind: task.Equal}},
			Effects:       []task.Condition{{Var: varLocA, Value: valAway, Kind: task.Equal}},
		},
		{
			Name:          "pickupB",
			Agent:         "a2",
			Preconditions: []task.Condition{{Var: varLocB, Value: valHome, Kind: task.Equal}},
			Effects:       []task.Condition{{Var: varLocB, Value: valAway, Kind: task.Equal}},
		},
	}
	goals := []task.Condition{
		{Var: varLocA, Value: valAway, Kind: task.Equal},
		{Var: varLocB, Value: valAway, Kind: task.Equal},
	}
	initial := map[int]int{varLocA: valHome, varLocB: valHome}
	return task.New(agent, agents, vars, actions, initial, goals, task.MetricSpec{})
}

type plannerRunResult struct {
	sol    plan.Plan
	status Result
	err    error
}

type basePlanObservation struct {
	name  string
	hDTG  int
	hLand int
}

// collectBasePlans drains every BasePlanSelected event already buffered
// on ch; callers only use this after the run that fed ch has returned,
// so nothing is still being written to it.
func collectBasePlans(ch *observer.ChannelObserver) []basePlanObservation {
	var out []basePlanObservation
	for {
		select {
		case e := <-ch.Events():
			if e.Type == observer.EventBasePlanSel {
				out = append(out, basePlanObservation{name: e.PlanName, hDTG: e.HDTG, hLand: e.HLand})
			}
			continue
		default:
		}
		break
	}
	return out
}

// TestRunPlannerConvergesAcrossAgents wires two agents over a real
// transport.NewLocalBusGroup and runs RunPlanner concurrently for each
// (mirroring cmd/mapop/cmd_run.go's runPlannerGroup), checking that
// both sides land on the identical accepted plan and report the same
// base-plan name/h_DTG/h_LAND sequence along the way (testable
// properties 4 and 5, scenarios S4/S6).
func TestRunPlannerConvergesAcrossAgents(t *testing.T) {
	group := transport.NewLocalBusGroup([]transport.AgentID{"a1", "a2"})
	defer func() {
		_ = group["a1"].Close()
		_ = group["a2"].Close()
	}()

	chA := observer.NewChannelObserver(256)
	chB := observer.NewChannelObserver(256)

	results := make(map[task.AgentID]plannerRunResult, 2)
	var mu sync.Mutex
	var wg sync.WaitGroup

	run := func(agent task.AgentID, port transport.Port, obs observer.Observer) {
		defer wg.Done()
		sol, status, err := RunPlanner(context.Background(), twoAgentCarryTask(agent), port, config.Default(), obs)
		mu.Lock()
		results[agent] = plannerRunResult{sol: sol, status: status, err: err}
		mu.Unlock()
	}

	wg.Add(2)
	go run("a1", group["a1"], chA)
	go run("a2", group["a2"], chB)
	wg.Wait()

	ra, rb := results["a1"], results["a2"]
	require.NoError(t, ra.err)
	require.NoError(t, rb.err)
	require.Equal(t, Solved, ra.status)
	require.Equal(t, Solved, rb.status)
	require.Equal(t, ra.sol.Name(), rb.sol.Name())
	require.Equal(t, ra.sol.Steps(), rb.sol.Steps())

	basePlansA := collectBasePlans(chA)
	basePlansB := collectBasePlans(chB)
	require.NotEmpty(t, basePlansA)
	require.Equal(t, basePlansA, basePlansB, "both agents must select the same base plan with the same h_DTG/h_LAND at every iteration")
}
