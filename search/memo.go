package search

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lexcodex/mapop/plan"
	"github.com/lexcodex/mapop/task"
)

// stateKey canonicalizes a plan's global state plus its achieved
// landmarks into a comparable value — the memoization key of spec
// §4.6's "duplicate state" discard rule.
type stateKey struct {
	state     string
	landmarks uint64
}

func canonicalState(state map[int]int) string {
	vars := make([]int, 0, len(state))
	for v := range state {
		vars = append(vars, v)
	}
	sort.Ints(vars)
	var b strings.Builder
	for _, v := range vars {
		fmt.Fprintf(&b, "%d=%d;", v, state[v])
	}
	return b.String()
}

// Memo discards a non-solution plan whose global state and achieved-
// landmark set exactly match an already-recorded plan. Solution plans
// are never memoized or discarded: the search must still return the
// first one accepted even if some earlier, unrelated plan reached the
// same state.
type Memo struct {
	seen      map[stateKey]bool
	discarded int
}

// NewMemo returns an empty memoization table.
func NewMemo() *Memo { return &Memo{seen: map[stateKey]bool{}} }

// Seen records p's state/landmark key if new, and reports whether a
// non-solution plan with the same key was already recorded.
func (m *Memo) Seen(t *task.GroundedTask, p plan.Plan, isSolution bool) bool {
	if isSolution {
		return false
	}
	key := stateKey{state: canonicalState(p.FinalState(t)), landmarks: p.Achieved().Hash()}
	if m.seen[key] {
		m.discarded++
		return true
	}
	m.seen[key] = true
	return false
}

// Discarded returns how many plans were dropped as duplicates so far.
func (m *Memo) Discarded() int { return m.discarded }

// MemoEntry is one exportable record of Memo's internal table, used to
// spill it to (and resume it from) a persistence.Store snapshot.
// search never imports persistence, and persistence never imports
// search, so a caller that holds both converts between MemoEntry and
// persistence.MemoKey. No package in this module does so: the mapop
// façade neither spills nor resumes a snapshot.
type MemoEntry struct {
	StateHash    string
	LandmarkHash uint64
}

// Entries exports every key currently recorded, for a durable spill.
func (m *Memo) Entries() []MemoEntry {
	out := make([]MemoEntry, 0, len(m.seen))
	for k := range m.seen {
		out = append(out, MemoEntry{StateHash: k.state, LandmarkHash: k.landmarks})
	}
	return out
}

// Load seeds the table from a prior spill, e.g. after a resumed run.
func (m *Memo) Load(entries []MemoEntry) {
	for _, e := range entries {
		m.seen[stateKey{state: e.StateHash, landmarks: e.LandmarkHash}] = true
	}
}

// ExpansionMemo records which (base plan, action) expansions an agent
// has already attempted, so a repeated outer-iteration pass over the
// same base plan never re-runs pop.Refiner.Expand for an action it has
// already tried against it.
type ExpansionMemo struct {
	seen map[string]bool
}

// NewExpansionMemo returns an empty expansion-attempt tracker.
func NewExpansionMemo() *ExpansionMemo { return &ExpansionMemo{seen: map[string]bool{}} }

// Tried reports whether (basePlan, action) was already attempted, and
// records it if not.
func (m *ExpansionMemo) Tried(basePlan, action string) bool {
	key := basePlan + "\x00" + action
	if m.seen[key] {
		return true
	}
	m.seen[key] = true
	return false
}
