package persistence

import (
	"log"

	"github.com/lexcodex/mapop/observer"
)

// ReplayObserver adapts a Store into an observer.Observer, recording
// one replay_log row per outer iteration as the search runs. Errors
// writing to the store are logged, never propagated: per observer.go's
// contract, an observer must never affect search semantics, and a
// failed disk write is not a reason to abort a search in progress.
type ReplayObserver struct {
	store     *Store
	runID     string
	iteration int
	planName  string
	hDTG      int
	hLand     int
}

// NewReplayObserver returns an observer that appends every iteration
// of the given run to store.
func NewReplayObserver(store *Store, runID string) *ReplayObserver {
	return &ReplayObserver{store: store, runID: runID}
}

func (r *ReplayObserver) OuterIterationStart(iteration int) {
	r.iteration = iteration
}

func (r *ReplayObserver) BasePlanSelected(planName string, hDTG, hLand int) {
	r.planName, r.hDTG, r.hLand = planName, hDTG, hLand
	if err := r.store.AppendReplay(ReplayEntry{
		RunID:        r.runID,
		Iteration:    r.iteration,
		BasePlanName: r.planName,
		HDTG:         r.hDTG,
		HLand:        r.hLand,
	}); err != nil {
		log.Printf("persistence: recording replay entry for run %s iteration %d: %v", r.runID, r.iteration, err)
	}
}

func (r *ReplayObserver) RefinementEmitted(string, string, bool) {}
func (r *ReplayObserver) ThreatResolved(string, int, string)     {}
func (r *ReplayObserver) LandmarkPromoted(int, string)           {}
func (r *ReplayObserver) HeuristicAdjusted(string, int)          {}
func (r *ReplayObserver) SolutionFound(string)                   {}
func (r *ReplayObserver) SearchTerminated(observer.Result)       {}

var _ observer.Observer = (*ReplayObserver)(nil)
