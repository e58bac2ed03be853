package pop

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lexcodex/mapop/plan"
	"github.com/lexcodex/mapop/task"
)

const (
	varLoc  = 0 // truck/package location
	valHome = 0
	valAway = 1
)

func carryTask() *task.GroundedTask {
	pickup := task.Action{
		Name:  "pickup",
		Agent: "a1",
		Preconditions: []task.Condition{
			{Var: varLoc, Value: valHome, Kind: task.Equal},
		},
		Effects: []task.Condition{{Var: varLoc, Value: valAway, Kind: task.Equal}},
	}
	return task.New("a1", []task.AgentID{"a1"}, []task.Variable{
		{Code: varLoc, Name: "loc", Domain: []int{valHome, valAway}, WritableBy: "a1"},
	}, []task.Action{pickup}, map[int]int{varLoc: valHome},
		[]task.Condition{{Var: varLoc, Value: valAway, Kind: task.Equal}}, task.MetricSpec{})
}

func TestExpandResolvesActionPreconditionFromInitial(t *testing.T) {
	tk := carryTask()
	arena := plan.NewArena()
	root := arena.Of(arena.NewRoot(tk.GlobalGoals(), 0))

	r := NewRefiner(tk, root)
	refs := r.Expand(tk.Actions[0], "a1")
	require.NotEmpty(t, refs)

	var plain, solved *Refinement
	for i := range refs {
		if refs[i].IsSolution {
			solved = &refs[i]
		} else {
			plain = &refs[i]
		}
	}
	require.NotNil(t, plain, "expected a non-solution refinement with pickup's own precondition closed")
	require.Len(t, plain.NewLinks, 1)
	require.Equal(t, plan.InitialIndex, plain.NewLinks[0].From)

	require.NotNil(t, solved, "pickup's effect should also close the outstanding goal")
	require.True(t, solved.IsSolution)
	// One link closes pickup's own precondition, one closes the goal.
	require.Len(t, solved.NewLinks, 2)
}

func TestTryFinalSolvesAlreadySatisfiedGoal(t *testing.T) {
	tk := carryTask()
	tk.InitialState[varLoc] = valAway // goal already holds at time 0
	arena := plan.NewArena()
	root := arena.Of(arena.NewRoot(tk.GlobalGoals(), 0))

	r := NewRefiner(tk, root)
	refs := r.TryFinal()
	require.Len(t, refs, 1)
	require.True(t, refs[0].IsSolution)
	require.Empty(t, refs[0].NewSteps)
	require.Equal(t, plan.InitialIndex, refs[0].NewLinks[0].From)
}

func TestExpandResolvesThreatByPromotionOrDemotion(t *testing.T) {
	// varZ's goal is never produced by any action here, so the
	// Final-step close never fires and every emitted refinement is a
	// plain (non-solution) one — isolating the threat-resolution count
	// from goal-closing branches.
	const varV, varW, varZ = 0, 1, 2
	produceV := task.Action{Name: "produceV", Agent: "a1", Effects: []task.Condition{{Var: varV, Value: 1, Kind: task.Equal}}}
	consumeV := task.Action{
		Name:          "consumeV",
		Agent:         "a1",
		Preconditions: []task.Condition{{Var: varV, Value: 1, Kind: task.Equal}},
		Effects:       []task.Condition{{Var: varW, Value: 1, Kind: task.Equal}},
	}
	clobberV := task.Action{Name: "clobberV", Agent: "a1", Effects: []task.Condition{{Var: varV, Value: 0, Kind: task.Equal}}}

	tk := task.New("a1", []task.AgentID{"a1"}, []task.Variable{
		{Code: varV, Name: "v", Domain: []int{0, 1}, WritableBy: "a1"},
		{Code: varW, Name: "w", Domain: []int{0, 1}, WritableBy: "a1"},
		{Code: varZ, Name: "z", Domain: []int{0, 1}, WritableBy: "a1"},
	}, []task.Action{produceV, consumeV, clobberV}, map[int]int{},
		[]task.Condition{{Var: varZ, Value: 1, Kind: task.Equal}}, task.MetricSpec{})

	arena := plan.NewArena()
	root := arena.Of(arena.NewRoot(tk.GlobalGoals(), 0))

	stepP := plan.Step{Index: 2, Agent: "a1", Kind: plan.Normal, Action: &produceV}
	base2 := arena.Of(arena.Add(root.ID(), plan.Delta{
		Steps:          []plan.Step{stepP},
		OpenConditions: root.OpenConditions(),
		Name:           "root-0",
	}))

	r := NewRefiner(tk, base2)
	refs := r.Expand(consumeV, "a1")
	require.NotEmpty(t, refs)
	var plain *Refinement
	for i := range refs {
		if !refs[i].IsSolution {
			plain = &refs[i]
			break
		}
	}
	require.NotNil(t, plain)
	require.Len(t, plain.NewLinks, 1)
	require.Equal(t, stepP.Index, plain.NewLinks[0].From)

	stepC := plan.Step{Index: 3, Agent: "a1", Kind: plan.Normal, Action: &consumeV}
	base3 := arena.Of(arena.Add(base2.ID(), plan.Delta{
		Steps:          []plan.Step{stepC},
		Links:          plain.NewLinks,
		Orderings:      plain.NewOrderings,
		OpenConditions: plain.OpenConditions,
		Name:           "root-0-0",
	}))

	r2 := NewRefiner(tk, base3)
	refs2 := r2.Expand(clobberV, "a1")
	require.Len(t, refs2, 2, "both promotion and demotion should resolve the threat clobberV poses")

	newStepIdx := nextIndex(base3.Steps())
	sawPromotion, sawDemotion := false, false
	for _, ref := range refs2 {
		for _, o := range ref.NewOrderings {
			if o.Before == stepC.Index && o.After == newStepIdx {
				sawPromotion = true
			}
			if o.Before == newStepIdx && o.After == stepP.Index {
				sawDemotion = true
			}
		}
	}
	require.True(t, sawPromotion, "expected an ordering consumer ≺ clobberer (promotion)")
	require.True(t, sawDemotion, "expected an ordering clobberer ≺ producer (demotion)")
}
