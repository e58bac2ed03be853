package search

import (
	"context"
	"fmt"

	"github.com/lexcodex/mapop/plan"
	"github.com/lexcodex/mapop/task"
	"github.com/lexcodex/mapop/transport"
)

// SolutionMode selects which acceptance regime governs a plan flagged
// IsSolution by the internal search (spec §4.6).
type SolutionMode int

const (
	// Cooperative accepts any IsSolution plan unconditionally: the
	// agents share one goal, so pop.Refiner already decided.
	Cooperative SolutionMode = iota
	// PrivateGoals and Borda both additionally require a metric-
	// threshold majority vote; the spec draws no distinction between
	// them at the acceptance-check level, only in how each agent's own
	// local verdict is otherwise weighted upstream.
	PrivateGoals
	Borda
)

// SolutionChecker decides whether a flagged-IsSolution plan is
// actually accepted and the search may terminate.
type SolutionChecker interface {
	Accept(ctx context.Context, p plan.Plan) (bool, error)
}

// CooperativeChecker implements Cooperative mode: accept iff the
// internal search already marked the plan a solution.
type CooperativeChecker struct{}

func (CooperativeChecker) Accept(_ context.Context, p plan.Plan) (bool, error) {
	return p.IsSolution(), nil
}

func isVerdictMsg(v any) bool {
	_, ok := v.(VerdictMsg)
	return ok
}

// MetricChecker implements the PrivateGoals/Borda acceptance vote of
// spec §4.6: each agent evaluates the task metric against its own
// threshold on the plan's final state to form a local boolean verdict;
// the baton collects every agent's verdict and accepts iff a strict
// majority (>50%, not >=50% — open question #1 in DESIGN.md) approve,
// then broadcasts the authoritative decision.
type MetricChecker struct {
	t    *task.GroundedTask
	port transport.Port
	self task.AgentID
}

// NewMetricChecker binds the checker to the task (for metric
// evaluation), the port (for vote exchange) and this agent's identity
// (stamped on outgoing votes). port may be nil for a single-agent run,
// in which case the sole agent's local verdict is authoritative.
func NewMetricChecker(t *task.GroundedTask, port transport.Port, self task.AgentID) *MetricChecker {
	return &MetricChecker{t: t, port: port, self: self}
}

func (m *MetricChecker) localVerdict(p plan.Plan) bool {
	state := p.FinalState(m.t)
	return m.t.EvaluateMetric(state) <= m.t.MetricThreshold()
}

func (m *MetricChecker) Accept(ctx context.Context, p plan.Plan) (bool, error) {
	if !p.IsSolution() {
		return false, nil
	}
	local := m.localVerdict(p)

	if m.port == nil {
		return local, nil
	}

	if m.port.BatonAgent() {
		approvals, total := 0, 0
		if local {
			approvals++
		}
		total++

		others := m.port.OtherAgents()
		pending := map[transport.AgentID]bool{}
		for _, a := range others {
			pending[a] = true
		}
		for len(pending) > 0 {
			env, err := m.port.ReceiveMessage(ctx, transport.Filter{Accept: isVerdictMsg})
			if err != nil {
				return false, fmt.Errorf("search: collecting verdicts for %q: %w", p.Name(), err)
			}
			v := env.Payload.(VerdictMsg)
			if !pending[env.From] {
				continue
			}
			delete(pending, env.From)
			total++
			if v.Approve {
				approvals++
			}
		}

		accepted := float64(approvals) > float64(total)/2
		if err := m.port.Broadcast(VerdictMsg{Sender: m.self, PlanName: p.Name(), Approve: accepted}, true); err != nil {
			return false, fmt.Errorf("search: broadcasting verdict for %q: %w", p.Name(), err)
		}
		return accepted, nil
	}

	if err := m.port.SendMessage(m.port.GetBatonAgent(), VerdictMsg{Sender: m.self, PlanName: p.Name(), Approve: local}, true); err != nil {
		return false, fmt.Errorf("search: sending verdict for %q: %w", p.Name(), err)
	}
	env, err := m.port.ReceiveMessage(ctx, transport.Filter{
		Sender: m.port.GetBatonAgent(),
		Accept: func(v any) bool {
			vv, ok := v.(VerdictMsg)
			return ok && vv.PlanName == p.Name()
		},
	})
	if err != nil {
		return false, fmt.Errorf("search: awaiting verdict decision for %q: %w", p.Name(), err)
	}
	return env.Payload.(VerdictMsg).Approve, nil
}
