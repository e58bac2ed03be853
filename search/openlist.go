package search

import (
	"container/heap"

	"github.com/lexcodex/mapop/plan"
)

// entry is one queued plan. index is maintained by container/heap (via
// pqueue.Swap) so a plan can be located and removed from whichever
// queue still holds it without a linear scan.
type entry struct {
	name  string
	id    plan.PlanId
	key   int
	index int
}

type pqueue []*entry

func (q pqueue) Len() int            { return len(q) }
func (q pqueue) Less(i, j int) bool  { return q[i].key < q[j].key }
func (q pqueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i]; q[i].index = i; q[j].index = j }
func (q *pqueue) Push(x any)         { e := x.(*entry); e.index = len(*q); *q = append(*q, e) }
func (q *pqueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*q = old[:n-1]
	return e
}

// OpenList is the outer search's pair of priority queues (spec §4.6):
// dtgQueue keyed by 2·h_DTG+g, prefQueue keyed by h_LAND and admitting
// only plans that strictly improved on their parent's h_LAND. Go's
// append already doubles a slice's backing array on overflow, so
// neither queue needs its own resize-by-doubling logic.
type OpenList struct {
	dtg  pqueue
	pref pqueue

	dtgByName  map[string]*entry
	prefByName map[string]*entry

	turn int
}

// NewOpenList returns an empty open list.
func NewOpenList() *OpenList {
	return &OpenList{dtgByName: map[string]*entry{}, prefByName: map[string]*entry{}}
}

// Insert adds a plan to dtgQueue unconditionally, and to prefQueue only
// when admitPref is true (the caller's h_LAND-strictly-improved check).
func (o *OpenList) Insert(name string, id plan.PlanId, hDTG, g, hLand int, admitPref bool) {
	e := &entry{name: name, id: id, key: 2*hDTG + g}
	heap.Push(&o.dtg, e)
	o.dtgByName[name] = e

	if admitPref {
		pe := &entry{name: name, id: id, key: hLand}
		heap.Push(&o.pref, pe)
		o.prefByName[name] = pe
	}
}

// remove drops a plan from both queues, wherever it still sits. Safe
// to call on a name that is absent from one or both.
func (o *OpenList) remove(name string) {
	if e, ok := o.dtgByName[name]; ok {
		if e.index >= 0 {
			heap.Remove(&o.dtg, e.index)
		}
		delete(o.dtgByName, name)
	}
	if e, ok := o.prefByName[name]; ok {
		if e.index >= 0 {
			heap.Remove(&o.pref, e.index)
		}
		delete(o.prefByName, name)
	}
}

func (o *OpenList) popOne(which int) (*entry, bool) {
	if which == 0 {
		if o.dtg.Len() == 0 {
			return nil, false
		}
		e := heap.Pop(&o.dtg).(*entry)
		delete(o.dtgByName, e.name)
		return e, true
	}
	if o.pref.Len() == 0 {
		return nil, false
	}
	e := heap.Pop(&o.pref).(*entry)
	delete(o.prefByName, e.name)
	return e, true
}

// Next extracts the next base plan, alternating which queue's head it
// prefers each call (spec §4.6's round-robin extraction), falling back
// to the other queue when the preferred one is empty. The chosen plan
// is removed from both queues. ok is false once both are empty.
func (o *OpenList) Next() (name string, id plan.PlanId, ok bool) {
	order := [2]int{0, 1}
	if o.turn%2 != 0 {
		order = [2]int{1, 0}
	}
	o.turn++

	for _, which := range order {
		if e, found := o.popOne(which); found {
			o.remove(e.name) // also drop any leftover twin in the other queue
			return e.name, e.id, true
		}
	}
	return "", 0, false
}

// Empty reports whether both queues are exhausted.
func (o *OpenList) Empty() bool { return o.dtg.Len() == 0 && o.pref.Len() == 0 }
