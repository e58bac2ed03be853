// Package plan implements the incremental plan representation (C8): a
// parent-pointer chain of deltas over an arena-indexed slab, plus
// lazy topological linearization and makespan computation.
package plan

import (
	"github.com/lexcodex/mapop/landmark"
	"github.com/lexcodex/mapop/task"
)

// StepKind distinguishes the two synthetic steps every plan carries
// from ordinary action instantiations.
type StepKind int

const (
	Normal StepKind = iota
	Initial
	Final
)

// Fixed indices for the two synthetic steps every plan has.
const (
	InitialIndex = 0
	FinalIndex   = 1
)

// Step is one action instantiation inside a plan (or one of the two
// synthetic steps). TimeStep is left at zero until a solution plan is
// scheduled.
type Step struct {
	Index    int
	Agent    task.AgentID
	Kind     StepKind
	Action   *task.Action // nil for Initial/Final
	TimeStep int
}

// CausalLink records that step From supports condition Condition of
// step To.
type CausalLink struct {
	From, To  int
	Condition task.Condition
}

// Ordering is a Before-precedes-After edge in the plan's partial order.
type Ordering struct {
	Before, After int
}

// OpenCondition is a precondition of Step not yet supported by any
// causal link.
type OpenCondition struct {
	Step      int
	Condition task.Condition
}

// Threat is an unresolved causal-link clobber: step Clobberer's effect
// can undo Link unless an ordering forces it outside the link's span.
type Threat struct {
	Link      CausalLink
	Clobberer int
}

// PlanId indexes one node inside an Arena.
type PlanId int

// NoPlan is the parent id of a root plan.
const NoPlan PlanId = -1

// node is one incremental plan: everything introduced by the
// refinement that produced it, plus a pointer to the parent it
// refines. The full plan is only ever materialized on demand by
// walking this chain (see Plan.Steps/CausalLinks/Orderings).
type node struct {
	parent PlanId

	newSteps     []Step
	newLinks     []CausalLink
	newOrderings []Ordering

	name  string
	g     int
	hDTG  int
	hLand int

	isSolution bool
	achieved   landmark.Bitset

	openConditions []OpenCondition
	threats        []Threat

	totalOrder []int // lazily computed, cached here once per node
}

// Delta is everything a single refinement contributes to its parent.
type Delta struct {
	Steps          []Step
	Links          []CausalLink
	Orderings      []Ordering
	OpenConditions []OpenCondition
	Threats        []Threat
	Name           string
	G, HDTG, HLand int
	IsSolution     bool
	Achieved       landmark.Bitset
}

// Arena is a slab allocator for incremental plan nodes. Nothing is
// freed until the whole arena is dropped at search termination — every
// node may be an ancestor of a still-live plan.
type Arena struct {
	nodes []node
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// NewRoot creates the root plan: Initial and Final steps, Final's
// preconditions seeded as open conditions from the task's global
// goals, zero g/h, and an all-clear achieved-landmarks bitset.
func (a *Arena) NewRoot(goals []task.Condition, numLandmarks int) PlanId {
	open := make([]OpenCondition, 0, len(goals))
	for _, g := range goals {
		open = append(open, OpenCondition{Step: FinalIndex, Condition: g})
	}
	n := node{
		parent: NoPlan,
		newSteps: []Step{
			{Index: InitialIndex, Kind: Initial},
			{Index: FinalIndex, Kind: Final},
		},
		name:           "root",
		achieved:       landmark.NewBitset(numLandmarks),
		openConditions: open,
	}
	a.nodes = append(a.nodes, n)
	return PlanId(len(a.nodes) - 1)
}

// SetHeuristics updates a committed node's h_DTG/h_LAND in place. The
// outer search commits a refinement with provisional heuristic values
// (there is no Plan view to evaluate against until the node exists),
// evaluates the real values against the resulting Plan, and calls this
// once to record them — mirroring how landmark.Graph's achiever index
// is built only after the node set it indexes is finalized.
func (a *Arena) SetHeuristics(id PlanId, hDTG, hLand int) {
	a.nodes[id].hDTG = hDTG
	a.nodes[id].hLand = hLand
}

// Add appends a new node refining parent and returns its id.
func (a *Arena) Add(parent PlanId, d Delta) PlanId {
	n := node{
		parent:         parent,
		newSteps:       d.Steps,
		newLinks:       d.Links,
		newOrderings:   d.Orderings,
		name:           d.Name,
		g:              d.G,
		hDTG:           d.HDTG,
		hLand:          d.HLand,
		isSolution:     d.IsSolution,
		achieved:       d.Achieved,
		openConditions: d.OpenConditions,
		threats:        d.Threats,
	}
	a.nodes = append(a.nodes, n)
	return PlanId(len(a.nodes) - 1)
}

// Plan is a read-only view of one arena node, with convenience
// accessors that assemble the full plan by walking the parent chain.
type Plan struct {
	arena *Arena
	id    PlanId
}

// Of returns a Plan view of id within a.
func (a *Arena) Of(id PlanId) Plan {
	return Plan{arena: a, id: id}
}

// Valid reports whether the plan refers to a real node.
func (p Plan) Valid() bool { return p.arena != nil && p.id >= 0 && int(p.id) < len(p.arena.nodes) }

// ID returns the plan's arena index.
func (p Plan) ID() PlanId { return p.id }

func (p Plan) n() *node { return &p.arena.nodes[p.id] }

// Name returns the plan's assigned name ("root", or
// parentName-agentIndex.localIndex for a refinement).
func (p Plan) Name() string { return p.n().name }

// G returns the plan's path cost (step count along its refinement chain).
func (p Plan) G() int { return p.n().g }

// HDTG returns the plan's DTG-based heuristic value.
func (p Plan) HDTG() int { return p.n().hDTG }

// HLand returns the plan's unachieved-landmark count.
func (p Plan) HLand() int { return p.n().hLand }

// IsSolution reports whether this plan has no open conditions or
// threats and Final is fully supported.
func (p Plan) IsSolution() bool { return p.n().isSolution }

// Achieved returns the plan's achieved-landmarks bitset.
func (p Plan) Achieved() landmark.Bitset { return p.n().achieved }

// OpenConditions returns this plan's current open conditions (already
// fully replaced by the refinement that produced it, not accumulated).
func (p Plan) OpenConditions() []OpenCondition { return p.n().openConditions }

// Threats returns this plan's current unresolved threats.
func (p Plan) Threats() []Threat { return p.n().threats }

// Parent returns the plan this one refines, or ok=false at the root.
func (p Plan) Parent() (parent Plan, ok bool) {
	par := p.n().parent
	if par == NoPlan {
		return Plan{}, false
	}
	return p.arena.Of(par), true
}

// chain returns the ancestor ids from root to this plan, inclusive.
func (p Plan) chain() []PlanId {
	var rev []PlanId
	for id := p.id; id != NoPlan; id = p.arena.nodes[id].parent {
		rev = append(rev, id)
	}
	chain := make([]PlanId, len(rev))
	for i, id := range rev {
		chain[len(rev)-1-i] = id
	}
	return chain
}

// Steps assembles the full step list by walking the parent chain.
func (p Plan) Steps() []Step {
	var out []Step
	for _, id := range p.chain() {
		out = append(out, p.arena.nodes[id].newSteps...)
	}
	return out
}

// CausalLinks assembles the full causal-link set.
func (p Plan) CausalLinks() []CausalLink {
	var out []CausalLink
	for _, id := range p.chain() {
		out = append(out, p.arena.nodes[id].newLinks...)
	}
	return out
}

// Orderings assembles the full ordering set.
func (p Plan) Orderings() []Ordering {
	var out []Ordering
	for _, id := range p.chain() {
		out = append(out, p.arena.nodes[id].newOrderings...)
	}
	return out
}
