// Package mapop is the planner façade (C9, SPEC_FULL.md §2/§6):
// RunPlanner wires the Relaxed Planning Graph, the distributed
// Landmark Graph, the two heuristics and the distributed outer search
// into a single library call, the only one an adapter (CLI, test
// harness, another service) is meant to call directly.
package mapop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lexcodex/mapop/config"
	"github.com/lexcodex/mapop/landmark"
	"github.com/lexcodex/mapop/observer"
	"github.com/lexcodex/mapop/plan"
	"github.com/lexcodex/mapop/rpg"
	"github.com/lexcodex/mapop/search"
	"github.com/lexcodex/mapop/task"
	"github.com/lexcodex/mapop/transport"
)

// Result is spec §7's success/failure sentinel, returned from
// RunPlanner across the library boundary. It is a type alias over
// observer.Result: search.Searcher already reports SearchTerminated
// with exactly this enum (see DESIGN.md's C10 entry for why Result
// lives in observer rather than here — search cannot import mapop
// without a cycle).
type Result = observer.Result

const (
	Solved           = observer.Solved
	UnsolvableProven = observer.UnsolvableProven
	Timeout          = observer.Timeout
	InternalError    = observer.InternalError
)

// ErrUnsupportedFeature is returned when cfg names a mode the engine
// doesn't implement. Config.Validate already rejects this before a
// search starts; RunPlanner re-checks so a caller that builds a
// *config.Config by hand (skipping Validate) still fails safely.
var ErrUnsupportedFeature = errors.New("mapop: unsupported feature")

// RunPlanner runs the cooperative multi-agent search to completion for
// one agent's process. tr may be nil for a single-agent, non-
// distributed run (transport.LocalBus and transport/rpcnet.NetPort
// both satisfy transport.Port for the multi-agent case). obs is
// optional; a nil observer degrades to observer.NopObserver{}.
func RunPlanner(ctx context.Context, t *task.GroundedTask, tr transport.Port, cfg *config.Config, obs observer.Observer) (plan.Plan, Result, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return plan.Plan{}, InternalError, fmt.Errorf("%w: %v", ErrUnsupportedFeature, err)
	}
	if obs == nil {
		obs = observer.NopObserver{}
	}

	if cfg.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	graphRPG := rpg.Build(t)
	landmarkGraph, err := landmark.NewBuilder(t, graphRPG, tr).Build(ctx)
	if err != nil {
		if errors.Is(err, landmark.ErrUnreachableGoal) {
			obs.SearchTerminated(observer.UnsolvableProven)
			return plan.Plan{}, UnsolvableProven, nil
		}
		obs.SearchTerminated(observer.InternalError)
		return plan.Plan{}, InternalError, fmt.Errorf("mapop: building landmark graph: %w", err)
	}

	checker := solutionChecker(cfg, t, tr)
	searcher := search.NewSearcher(t, landmarkGraph, tr, checker, cfg.MaxIterations, obs)

	sol, status, err := searcher.Run(ctx)
	if err != nil {
		return plan.Plan{}, InternalError, fmt.Errorf("mapop: search failed: %w", err)
	}
	return sol, resultOf(status), nil
}

func solutionChecker(cfg *config.Config, t *task.GroundedTask, tr transport.Port) search.SolutionChecker {
	if cfg.SolutionMode() == search.Cooperative {
		return search.CooperativeChecker{}
	}
	var self task.AgentID
	if tr != nil {
		self = task.AgentID(tr.ThisAgent())
	} else {
		self = t.Agent
	}
	return search.NewMetricChecker(t, tr, self)
}

func resultOf(status search.Status) Result {
	switch status {
	case search.Solved:
		return Solved
	case search.TimedOut:
		return Timeout
	default:
		return UnsolvableProven
	}
}
