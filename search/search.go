// Package search implements the distributed outer search (C6): the
// per-agent loop that selects a base plan, expands it through the
// internal POP search, exchanges proposals and landmark-recognition
// reports with every other agent, and decides when a refinement is an
// accepted solution.
package search

import (
	"context"
	"fmt"

	"github.com/lexcodex/mapop/heuristic"
	"github.com/lexcodex/mapop/landmark"
	"github.com/lexcodex/mapop/observer"
	"github.com/lexcodex/mapop/plan"
	"github.com/lexcodex/mapop/pop"
	"github.com/lexcodex/mapop/task"
	"github.com/lexcodex/mapop/transport"
)

// Status is how a Searcher's Run terminated.
type Status int

const (
	Solved Status = iota
	Exhausted
	TimedOut
)

func (s Status) String() string {
	switch s {
	case Solved:
		return "solved"
	case Exhausted:
		return "exhausted"
	case TimedOut:
		return "timed out"
	default:
		return "unknown"
	}
}

// namedRefinement is a pop.Refinement with the deterministic name and
// evaluation-ready Delta assigned, but not yet committed to the arena.
type namedRefinement struct {
	parent string
	name   string
	sender task.AgentID
	delta  plan.Delta
}

// Searcher runs one agent's side of the distributed outer search
// loop. Every agent owns a full local mirror of the plan arena: base
// plans are selected by name, and every refinement (own or received)
// is committed locally by every agent, so the arena stays identical
// across agents without ever transmitting arena indices.
type Searcher struct {
	t      *task.GroundedTask
	arena  *plan.Arena
	byName map[string]plan.PlanId

	graph *landmark.Graph
	hdtg  *heuristic.HDTG
	hland *heuristic.HLand

	open    *OpenList
	memo    *Memo
	expMemo *ExpansionMemo

	port    transport.Port
	checker SolutionChecker
	obs     observer.Observer

	agent      task.AgentID
	others     []task.AgentID
	agentOrder []task.AgentID

	maxIterations int
}

// NewSearcher builds a Searcher for one agent. port may be nil for a
// single-agent run (no messaging, every call degrades to the
// zero-other-agents case). checker decides acceptance of IsSolution
// refinements; use CooperativeChecker{} or NewMetricChecker. obs is
// optional (variadic so existing callers need not pass one); a nil or
// omitted observer defaults to observer.NopObserver{}.
func NewSearcher(t *task.GroundedTask, graph *landmark.Graph, port transport.Port, checker SolutionChecker, maxIterations int, obs ...observer.Observer) *Searcher {
	arena := plan.NewArena()
	arena.NewRoot(t.GlobalGoals(), graph.TotalLandmarks())

	var ob observer.Observer = observer.NopObserver{}
	if len(obs) > 0 && obs[0] != nil {
		ob = obs[0]
	}

	var agent task.AgentID
	var others, order []task.AgentID
	if port != nil {
		agent = task.AgentID(port.ThisAgent())
		for _, a := range port.OtherAgents() {
			others = append(others, task.AgentID(a))
		}
		for _, a := range port.AgentList() {
			order = append(order, task.AgentID(a))
		}
	} else {
		agent = t.Agent
		order = []task.AgentID{agent}
	}

	return &Searcher{
		t:             t,
		arena:         arena,
		byName:        map[string]plan.PlanId{},
		graph:         graph,
		hdtg:          heuristic.NewHDTG(t),
		hland:         heuristic.NewHLand(graph),
		open:          NewOpenList(),
		memo:          NewMemo(),
		expMemo:       NewExpansionMemo(),
		port:          port,
		checker:       checker,
		obs:           ob,
		agent:         agent,
		others:        others,
		agentOrder:    order,
		maxIterations: maxIterations,
	}
}

// Memo exposes the duplicate-state table so a caller can spill it to
// (or resume it from) persistent storage between runs.
func (s *Searcher) Memo() *Memo { return s.memo }

func (s *Searcher) agentIndex(a task.AgentID) int {
	for i, x := range s.agentOrder {
		if x == a {
			return i
		}
	}
	return 0
}

func classify(ctx context.Context, err error) (Status, error) {
	if ctx.Err() != nil {
		return TimedOut, nil
	}
	return Exhausted, err
}

func resultFor(status Status, err error) observer.Result {
	switch {
	case err != nil:
		return observer.InternalError
	case status == Solved:
		return observer.Solved
	case status == TimedOut:
		return observer.Timeout
	default:
		return observer.UnsolvableProven
	}
}

// Run drives the outer search loop to termination: a found-and-
// accepted solution, an exhausted search space, or a cancelled
// context.
func (s *Searcher) Run(ctx context.Context) (plan.Plan, Status, error) {
	root := s.arena.Of(0)
	s.byName[root.Name()] = 0
	s.open.Insert(root.Name(), 0, root.HDTG(), root.G(), root.HLand(), true)

	for iter := 0; ; iter++ {
		if err := ctx.Err(); err != nil {
			s.obs.SearchTerminated(observer.Timeout)
			return plan.Plan{}, TimedOut, nil
		}
		if s.maxIterations > 0 && iter >= s.maxIterations {
			s.obs.SearchTerminated(observer.Timeout)
			return plan.Plan{}, TimedOut, nil
		}
		s.obs.OuterIterationStart(iter)

		baseName, done, status, err := s.selectBasePlan(ctx)
		if err != nil {
			st, e := classify(ctx, err)
			s.obs.SearchTerminated(resultFor(st, e))
			return plan.Plan{}, st, e
		}
		if done {
			s.obs.SearchTerminated(resultFor(status, nil))
			return plan.Plan{}, status, nil
		}

		base := s.arena.Of(s.byName[baseName])
		s.obs.BasePlanSelected(baseName, base.HDTG(), base.HLand())

		named := s.nameRefinements(base, s.localRefinements(base))

		if err := s.broadcastProposals(named); err != nil {
			st, e := classify(ctx, err)
			s.obs.SearchTerminated(resultFor(st, e))
			return plan.Plan{}, st, e
		}
		received, err := s.receiveProposals(ctx)
		if err != nil {
			st, e := classify(ctx, err)
			s.obs.SearchTerminated(resultFor(st, e))
			return plan.Plan{}, st, e
		}
		all := append(append([]namedRefinement(nil), named...), received...)

		changes := s.collectLandmarkChanges(base, all)

		var adjustments []heuristic.PlanAdjustment
		if s.port == nil || s.port.BatonAgent() {
			adjustments, err = s.aggregateChanges(ctx, changes)
		} else {
			if err = s.sendChanges(changes); err == nil {
				adjustments, err = s.receiveAdjustments(ctx)
			}
		}
		if err != nil {
			st, e := classify(ctx, err)
			s.obs.SearchTerminated(resultFor(st, e))
			return plan.Plan{}, st, e
		}

		sol, found, err := s.insertAll(ctx, base, all, adjustments)
		if err != nil {
			st, e := classify(ctx, err)
			s.obs.SearchTerminated(resultFor(st, e))
			return plan.Plan{}, st, e
		}
		if found {
			s.obs.SolutionFound(sol.Name())
			s.obs.SearchTerminated(observer.Solved)
			return sol, Solved, nil
		}

		// Baton transfer happens once the full iteration settles (spec
		// §5): only the current holder calls PassBaton, since both Port
		// implementations treat it as "the holder's own turn just
		// ended," not a vote every agent casts independently.
		if s.port != nil && s.port.BatonAgent() {
			s.port.PassBaton()
		}
	}
}

// localRefinements computes every refinement this agent's own actions
// contribute against base: applicability-filtered, skipping any
// (base, action) pair already attempted, plus the standalone
// Final-step close attempt.
func (s *Searcher) localRefinements(base plan.Plan) []pop.Refinement {
	hashEffects := base.HashEffects(s.t)
	lastValues := base.FinalState(s.t)

	r := pop.NewRefiner(s.t, base)
	var out []pop.Refinement
	for _, a := range s.t.ActionsOf(s.agent) {
		if !supportable(a, hashEffects, lastValues) {
			continue
		}
		if s.expMemo.Tried(base.Name(), a.Name) {
			continue
		}
		out = append(out, r.Expand(a, s.agent)...)
	}
	out = append(out, r.TryFinal()...)
	return out
}

// nameRefinements assigns each refinement the deterministic name
// parentName-agentIndex.localIndex (spec §5's "agentOrderedIndex") and
// builds its evaluation-ready Delta (steps/links/orderings/open
// conditions, g, achieved-landmarks — h_DTG/h_LAND are left at zero and
// filled in once the node is committed, since evaluating them needs a
// Plan view of the committed result).
func (s *Searcher) nameRefinements(base plan.Plan, refs []pop.Refinement) []namedRefinement {
	idx := s.agentIndex(s.agent)
	out := make([]namedRefinement, len(refs))
	for i, ref := range refs {
		achieved := base.Achieved()
		for _, st := range ref.NewSteps {
			achieved = heuristic.AchievedByStep(s.graph, achieved, st)
		}
		g := base.G()
		if len(ref.NewSteps) > 0 {
			g++
		}
		out[i] = namedRefinement{
			parent: base.Name(),
			name:   fmt.Sprintf("%s-%d.%d", base.Name(), idx, i),
			sender: s.agent,
			delta: plan.Delta{
				Steps:          ref.NewSteps,
				Links:          ref.NewLinks,
				Orderings:      ref.NewOrderings,
				OpenConditions: ref.OpenConditions,
				G:              g,
				IsSolution:     ref.IsSolution,
				Achieved:       achieved,
			},
		}
	}
	return out
}

func isNewBasePlanMsg(v any) bool { _, ok := v.(NewBasePlanMsg); return ok }
func isProposalMsg(v any) bool    { _, ok := v.(ProposalMsg); return ok }
func isHeuristicChangeMsg(v any) bool {
	_, ok := v.(heuristic.HeuristicChange)
	return ok
}
func isHeuristicAdjustmentMsg(v any) bool {
	_, ok := v.(heuristic.HeuristicAdjustment)
	return ok
}

// selectBasePlan implements base-plan selection (spec §5): the baton
// pops the next plan from its own open list and broadcasts its name;
// every other agent receives that name and removes the same plan from
// its own, otherwise-identical, open list. An empty name is the
// "search space exhausted" sentinel.
func (s *Searcher) selectBasePlan(ctx context.Context) (name string, done bool, status Status, err error) {
	if s.port == nil || s.port.BatonAgent() {
		name, _, ok := s.open.Next()
		if !ok {
			if s.port != nil {
				_ = s.port.Broadcast(NewBasePlanMsg{Sender: s.agent}, true)
			}
			return "", true, Exhausted, nil
		}
		if s.port != nil {
			if err := s.port.Broadcast(NewBasePlanMsg{Sender: s.agent, Name: name}, true); err != nil {
				return "", true, Exhausted, fmt.Errorf("search: announcing base plan %q: %w", name, err)
			}
		}
		return name, false, 0, nil
	}

	// Accept by message type only, not by a Sender-scoped Filter, so a
	// message from anyone but the expected holder surfaces as a
	// BatonDesyncError instead of sitting silently in the pending queue
	// forever (spec §7).
	env, err := s.port.ReceiveMessage(ctx, transport.Filter{Accept: isNewBasePlanMsg})
	if err != nil {
		return "", true, Exhausted, fmt.Errorf("search: awaiting base plan announcement: %w", err)
	}
	if expected := s.port.GetBatonAgent(); env.From != expected {
		return "", true, Exhausted, &transport.BatonDesyncError{Expected: expected, Got: env.From, Phase: "base-plan-selection"}
	}
	msg := env.Payload.(NewBasePlanMsg)
	if msg.Name == "" {
		return "", true, Exhausted, nil
	}
	s.open.remove(msg.Name)
	return msg.Name, false, 0, nil
}

// broadcastProposals sends every one of this agent's refinements to
// every other agent, terminated by a sentinel so a receiver that
// expects zero proposals this iteration never blocks waiting for one.
func (s *Searcher) broadcastProposals(named []namedRefinement) error {
	if s.port == nil {
		return nil
	}
	for _, nr := range named {
		msg := ProposalMsg{Sender: s.agent, Parent: nr.parent, Name: nr.name, Delta: nr.delta}
		if err := s.port.Broadcast(msg, true); err != nil {
			return fmt.Errorf("search: broadcasting proposal %q: %w", nr.name, err)
		}
	}
	return s.port.Broadcast(ProposalMsg{Sender: s.agent}, true)
}

// receiveProposals collects every other agent's proposals for the
// current iteration, each sender's stream ending at its own sentinel.
func (s *Searcher) receiveProposals(ctx context.Context) ([]namedRefinement, error) {
	if s.port == nil || len(s.others) == 0 {
		return nil, nil
	}
	var out []namedRefinement
	pending := map[transport.AgentID]bool{}
	for _, a := range s.others {
		pending[transport.AgentID(a)] = true
	}
	for len(pending) > 0 {
		env, err := s.port.ReceiveMessage(ctx, transport.Filter{Accept: isProposalMsg})
		if err != nil {
			return nil, fmt.Errorf("search: receiving proposals: %w", err)
		}
		msg := env.Payload.(ProposalMsg)
		if !pending[env.From] {
			continue
		}
		if msg.Name == "" {
			delete(pending, env.From)
			continue
		}
		out = append(out, namedRefinement{parent: msg.Parent, name: msg.Name, sender: msg.Sender, delta: msg.Delta})
	}
	return out, nil
}

// collectLandmarkChanges checks every proposal this iteration (own and
// received) for landmarks this agent's own, possibly more current,
// knowledge of base's achieved set recognizes as reachable that the
// proposer's reported Achieved bitset does not yet reflect — staleness
// that can arise when an earlier heuristic adjustment reached this
// agent before it reached the proposer.
func (s *Searcher) collectLandmarkChanges(base plan.Plan, all []namedRefinement) []heuristic.HeuristicChange {
	var out []heuristic.HeuristicChange
	for _, nr := range all {
		extra := s.detectExtraLandmarks(base, nr)
		if len(extra) > 0 {
			out = append(out, heuristic.HeuristicChange{Sender: s.agent, PlanName: nr.name, NewLandmarks: extra})
		}
	}
	return out
}

func (s *Searcher) detectExtraLandmarks(base plan.Plan, nr namedRefinement) []int {
	recomputed := base.Achieved()
	for _, st := range nr.delta.Steps {
		recomputed = heuristic.AchievedByStep(s.graph, recomputed, st)
	}
	var extra []int
	for id := 0; id < s.graph.TotalLandmarks(); id++ {
		if recomputed.Test(id) && !nr.delta.Achieved.Test(id) {
			extra = append(extra, id)
		}
	}
	return extra
}

// aggregateChanges is the baton's side of spec §4.6's heuristic
// exchange: collect every other agent's HeuristicChange reports
// (terminated per-sender by a sentinel), merge them with its own, and
// broadcast the resulting adjustments for every agent to apply before
// this iteration's refinements are inserted.
func (s *Searcher) aggregateChanges(ctx context.Context, local []heuristic.HeuristicChange) ([]heuristic.PlanAdjustment, error) {
	all := append([]heuristic.HeuristicChange(nil), local...)

	if s.port != nil && len(s.others) > 0 {
		pending := map[transport.AgentID]bool{}
		for _, a := range s.others {
			pending[transport.AgentID(a)] = true
		}
		for len(pending) > 0 {
			env, err := s.port.ReceiveMessage(ctx, transport.Filter{Accept: isHeuristicChangeMsg})
			if err != nil {
				return nil, fmt.Errorf("search: collecting heuristic changes: %w", err)
			}
			msg := env.Payload.(heuristic.HeuristicChange)
			if !pending[env.From] {
				continue
			}
			if msg.PlanName == "" && len(msg.NewLandmarks) == 0 {
				delete(pending, env.From)
				continue
			}
			all = append(all, msg)
		}
	}

	adjustments := heuristic.MergeChanges(all)
	if s.port != nil {
		if err := s.port.Broadcast(heuristic.HeuristicAdjustment{Sender: s.agent, Adjustments: adjustments}, true); err != nil {
			return nil, fmt.Errorf("search: broadcasting heuristic adjustment: %w", err)
		}
	}
	return adjustments, nil
}

// sendChanges is a non-baton agent's side of the same exchange: send
// every locally recognized change to the baton, then a sentinel.
func (s *Searcher) sendChanges(changes []heuristic.HeuristicChange) error {
	baton := s.port.GetBatonAgent()
	for _, c := range changes {
		if err := s.port.SendMessage(baton, c, true); err != nil {
			return fmt.Errorf("search: sending heuristic change: %w", err)
		}
	}
	return s.port.SendMessage(baton, heuristic.HeuristicChange{Sender: s.agent}, true)
}

func (s *Searcher) receiveAdjustments(ctx context.Context) ([]heuristic.PlanAdjustment, error) {
	env, err := s.port.ReceiveMessage(ctx, transport.Filter{Accept: isHeuristicAdjustmentMsg})
	if err != nil {
		return nil, fmt.Errorf("search: awaiting heuristic adjustment: %w", err)
	}
	if expected := s.port.GetBatonAgent(); env.From != expected {
		return nil, &transport.BatonDesyncError{Expected: expected, Got: env.From, Phase: "heuristic-adjustment"}
	}
	return env.Payload.(heuristic.HeuristicAdjustment).Adjustments, nil
}

// insertAll commits every refinement of this iteration (own and
// received) to the local arena, applying any landmark adjustment
// before evaluating h_DTG/h_LAND so the recorded values already
// reflect it, discards memoized duplicates, inserts survivors into
// both queues, and checks acceptance for every IsSolution candidate in
// the order encountered — the first accepted one ends the search.
func (s *Searcher) insertAll(ctx context.Context, base plan.Plan, all []namedRefinement, adjustments []heuristic.PlanAdjustment) (plan.Plan, bool, error) {
	adjByName := map[string]heuristic.PlanAdjustment{}
	for _, a := range adjustments {
		adjByName[a.PlanName] = a
	}

	for _, nr := range all {
		delta := nr.delta
		delta.Name = nr.name
		s.obs.RefinementEmitted(nr.name, nr.parent, delta.IsSolution)
		if adj, ok := adjByName[nr.name]; ok {
			merged, _ := heuristic.Apply(delta.Achieved, 0, adj)
			delta.Achieved = merged
			s.obs.HeuristicAdjusted(nr.name, len(adj.NewLandmarks))
		}

		parentID, ok := s.byName[nr.parent]
		if !ok {
			continue
		}

		for _, ord := range delta.Orderings {
			s.obs.ThreatResolved(nr.name, ord.After, "ordering")
		}
		for id := 0; id < s.graph.TotalLandmarks(); id++ {
			if delta.Achieved.Test(id) && !base.Achieved().Test(id) {
				s.obs.LandmarkPromoted(id, string(nr.sender))
			}
		}

		id := s.arena.Add(parentID, delta)
		p := s.arena.Of(id)
		hDTG := s.hdtg.Evaluate(s.t, p)
		hLand := s.hland.Evaluate(s.t, p)
		s.arena.SetHeuristics(id, hDTG, hLand)
		s.byName[nr.name] = id

		if s.memo.Seen(s.t, p, delta.IsSolution) {
			continue
		}

		admitPref := hLand < base.HLand()
		s.open.Insert(nr.name, id, hDTG, delta.G, hLand, admitPref)

		if delta.IsSolution {
			accept, err := s.checker.Accept(ctx, p)
			if err != nil {
				return plan.Plan{}, false, fmt.Errorf("search: checking acceptance of %q: %w", nr.name, err)
			}
			if accept {
				s.open.remove(nr.name)
				return p, true, nil
			}
		}
	}
	return plan.Plan{}, false, nil
}
