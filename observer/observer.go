// Package observer is the optional trace port (spec §1's "observer
// port", SPEC_FULL.md §4.9): a synchronous, best-effort sink the core
// calls into at well-defined points during the outer search. An
// observer never influences search semantics — running the same task
// through NopObserver or a recording observer must yield the same
// plan — so every call here takes values already decided by the core,
// never a hook the core waits on for a decision.
package observer

import (
	"fmt"
	"log"
	"time"
)

// Result is how a planner run ended, reported to SearchTerminated and
// returned across the mapop façade boundary (spec §7).
type Result int

const (
	Solved Result = iota
	UnsolvableProven
	Timeout
	InternalError
)

func (r Result) String() string {
	switch r {
	case Solved:
		return "solved"
	case UnsolvableProven:
		return "unsolvable_proven"
	case Timeout:
		return "timeout"
	case InternalError:
		return "internal_error"
	default:
		return "unknown"
	}
}

// Observer is the interface the core calls into during a search run.
// Every method is synchronous and must return quickly; an observer
// that blocks stalls the search it is watching.
type Observer interface {
	OuterIterationStart(iteration int)
	BasePlanSelected(planName string, hDTG, hLand int)
	RefinementEmitted(planName, parentName string, isSolution bool)
	ThreatResolved(planName string, stepIndex int, kind string)
	LandmarkPromoted(landmarkID int, agent string)
	HeuristicAdjusted(planName string, newLandmarks int)
	SolutionFound(planName string)
	SearchTerminated(result Result)
}

// EventType names the kind of event an Event carries, for sinks that
// want to branch or filter on it (ChannelObserver's consumers, in
// particular) without type-switching on the Observer method that
// produced it.
type EventType string

const (
	EventIterationStart  EventType = "iteration_start"
	EventBasePlanSel     EventType = "base_plan_selected"
	EventRefinement      EventType = "refinement_emitted"
	EventThreatResolved  EventType = "threat_resolved"
	EventLandmarkPromote EventType = "landmark_promoted"
	EventHeuristicAdjust EventType = "heuristic_adjusted"
	EventSolutionFound   EventType = "solution_found"
	EventTerminated      EventType = "search_terminated"
)

// Event is the uniform payload every Observer implementation below
// converts its method call into before logging or forwarding it.
type Event struct {
	Type       EventType
	Timestamp  time.Time
	PlanName   string
	Parent     string
	Iteration  int
	HDTG       int
	HLand      int
	StepIndex  int
	Kind       string
	LandmarkID int
	Agent      string
	Result     Result
}

// NopObserver discards every call. It is the default when no trace is
// requested, and the baseline the "observer never changes the plan"
// property is checked against.
type NopObserver struct{}

func (NopObserver) OuterIterationStart(int)                {}
func (NopObserver) BasePlanSelected(string, int, int)      {}
func (NopObserver) RefinementEmitted(string, string, bool) {}
func (NopObserver) ThreatResolved(string, int, string)     {}
func (NopObserver) LandmarkPromoted(int, string)           {}
func (NopObserver) HeuristicAdjusted(string, int)          {}
func (NopObserver) SolutionFound(string)                   {}
func (NopObserver) SearchTerminated(Result)                {}

// LogObserver emits every event through a stdlib *log.Logger, matching
// the teacher's LoggerTelemetry: tiny, but enough to watch a search run
// live without any extra tooling. A nil Logger falls back to
// log.Default(), the same convenience LoggerTelemetry offers.
type LogObserver struct {
	Logger *log.Logger
}

func (o LogObserver) logger() *log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return log.Default()
}

func (o LogObserver) OuterIterationStart(iteration int) {
	o.logger().Printf("[iteration_start] n=%d", iteration)
}

func (o LogObserver) BasePlanSelected(planName string, hDTG, hLand int) {
	o.logger().Printf("[base_plan_selected] plan=%s h_dtg=%d h_land=%d", planName, hDTG, hLand)
}

func (o LogObserver) RefinementEmitted(planName, parentName string, isSolution bool) {
	o.logger().Printf("[refinement_emitted] plan=%s parent=%s solution=%t", planName, parentName, isSolution)
}

func (o LogObserver) ThreatResolved(planName string, stepIndex int, kind string) {
	o.logger().Printf("[threat_resolved] plan=%s step=%d kind=%s", planName, stepIndex, kind)
}

func (o LogObserver) LandmarkPromoted(landmarkID int, agent string) {
	o.logger().Printf("[landmark_promoted] landmark=%d agent=%s", landmarkID, agent)
}

func (o LogObserver) HeuristicAdjusted(planName string, newLandmarks int) {
	o.logger().Printf("[heuristic_adjusted] plan=%s new_landmarks=%d", planName, newLandmarks)
}

func (o LogObserver) SolutionFound(planName string) {
	o.logger().Printf("[solution_found] plan=%s", planName)
}

func (o LogObserver) SearchTerminated(result Result) {
	o.logger().Printf("[search_terminated] result=%s", result)
}

// ChannelObserver fans every event out over a bounded Go channel for
// internal/traceui to consume. Emit is always non-blocking: once the
// channel is full, the oldest queued event is dropped to make room
// rather than stalling the caller — killing the consumer must never
// affect the running search.
type ChannelObserver struct {
	events chan Event
}

// NewChannelObserver returns a ChannelObserver whose channel holds up
// to capacity undelivered events before it starts dropping the oldest.
func NewChannelObserver(capacity int) *ChannelObserver {
	if capacity <= 0 {
		capacity = 1
	}
	return &ChannelObserver{events: make(chan Event, capacity)}
}

// Events returns the channel internal/traceui reads from.
func (o *ChannelObserver) Events() <-chan Event { return o.events }

func (o *ChannelObserver) send(e Event) {
	for {
		select {
		case o.events <- e:
			return
		default:
		}
		select {
		case <-o.events:
		default:
		}
	}
}

func (o *ChannelObserver) OuterIterationStart(iteration int) {
	o.send(Event{Type: EventIterationStart, Timestamp: time.Now(), Iteration: iteration})
}

func (o *ChannelObserver) BasePlanSelected(planName string, hDTG, hLand int) {
	o.send(Event{Type: EventBasePlanSel, Timestamp: time.Now(), PlanName: planName, HDTG: hDTG, HLand: hLand})
}

func (o *ChannelObserver) RefinementEmitted(planName, parentName string, isSolution bool) {
	kind := "plain"
	if isSolution {
		kind = "solution"
	}
	o.send(Event{Type: EventRefinement, Timestamp: time.Now(), PlanName: planName, Parent: parentName, Kind: kind})
}

func (o *ChannelObserver) ThreatResolved(planName string, stepIndex int, kind string) {
	o.send(Event{Type: EventThreatResolved, Timestamp: time.Now(), PlanName: planName, StepIndex: stepIndex, Kind: kind})
}

func (o *ChannelObserver) LandmarkPromoted(landmarkID int, agent string) {
	o.send(Event{Type: EventLandmarkPromote, Timestamp: time.Now(), LandmarkID: landmarkID, Agent: agent})
}

func (o *ChannelObserver) HeuristicAdjusted(planName string, newLandmarks int) {
	o.send(Event{Type: EventHeuristicAdjust, Timestamp: time.Now(), PlanName: planName, Iteration: newLandmarks})
}

func (o *ChannelObserver) SolutionFound(planName string) {
	o.send(Event{Type: EventSolutionFound, Timestamp: time.Now(), PlanName: planName})
}

func (o *ChannelObserver) SearchTerminated(result Result) {
	o.send(Event{Type: EventTerminated, Timestamp: time.Now(), Result: result})
}

// MultiplexObserver broadcasts every call to every registered
// observer, same shape as the teacher's MultiplexTelemetry — used when
// both a LogObserver and a ChannelObserver should see the same run.
type MultiplexObserver struct {
	Observers []Observer
}

func (m MultiplexObserver) OuterIterationStart(iteration int) {
	for _, o := range m.Observers {
		o.OuterIterationStart(iteration)
	}
}

func (m MultiplexObserver) BasePlanSelected(planName string, hDTG, hLand int) {
	for _, o := range m.Observers {
		o.BasePlanSelected(planName, hDTG, hLand)
	}
}

func (m MultiplexObserver) RefinementEmitted(planName, parentName string, isSolution bool) {
	for _, o := range m.Observers {
		o.RefinementEmitted(planName, parentName, isSolution)
	}
}

func (m MultiplexObserver) ThreatResolved(planName string, stepIndex int, kind string) {
	for _, o := range m.Observers {
		o.ThreatResolved(planName, stepIndex, kind)
	}
}

func (m MultiplexObserver) LandmarkPromoted(landmarkID int, agent string) {
	for _, o := range m.Observers {
		o.LandmarkPromoted(landmarkID, agent)
	}
}

func (m MultiplexObserver) HeuristicAdjusted(planName string, newLandmarks int) {
	for _, o := range m.Observers {
		o.HeuristicAdjusted(planName, newLandmarks)
	}
}

func (m MultiplexObserver) SolutionFound(planName string) {
	for _, o := range m.Observers {
		o.SolutionFound(planName)
	}
}

func (m MultiplexObserver) SearchTerminated(result Result) {
	for _, o := range m.Observers {
		o.SearchTerminated(result)
	}
}

var _ fmt.Stringer = Result(0)
