package landmark

import "github.com/lexcodex/mapop/task"

// MsgType tags the phase of the baton protocol a LandmarkGraphMsg
// belongs to, mirroring spec §4.3's message catalogue.
type MsgType int

const (
	// CommonPrecs is the baton's broadcast of a landmark candidate,
	// asking every participant for its own producer-precondition sets.
	CommonPrecs MsgType = iota
	// Verification is a participant's reply: one message per discovered
	// predecessor landmark, terminated by an empty-USets message.
	Verification
)

// LandmarkGraphMsg is the per-candidate baton-protocol message: the
// current holder broadcasts the literal(s) under discussion; each
// participant streams back its own discovered predecessor landmarks.
type LandmarkGraphMsg struct {
	Type      MsgType
	Sender    task.AgentID
	Literal   task.Condition
	Literals  []task.Condition   // non-empty only for a disjunctive candidate/discovery
	USets     [][]task.Condition // exactly one group per Verification reply; empty marks "no more"
	NextLevel int
}

func (LandmarkGraphMsg) Kind() string { return "landmark.graphMsg" }

// GlobalIdMsg carries the final, agreed enumeration of landmark labels
// to global integer IDs (spec §4.3 step 5).
type GlobalIdMsg struct {
	Sender task.AgentID
	Labels []string // sorted; Labels[i] has global ID i
}

func (GlobalIdMsg) Kind() string { return "landmark.globalIdMsg" }

// LandmarkSharingMsg carries one node of the baton's graph to a
// participant; the baton sends one per node it holds, so every mirror
// has the full node set before global IDs are applied.
type LandmarkSharingMsg struct {
	Sender task.AgentID
	Label  string
	Kind_  Kind
	Var    int
	Facts  []task.Condition
	Level  int
	IsGoal bool
}

func (LandmarkSharingMsg) Kind() string { return "landmark.sharingMsg" }

// PostProcessingMsg carries one candidate necessary-ordering edge
// through the post-processing vote (spec §4.3 step 4): the baton asks
// each participant to confirm it, and the edge is dropped only if a
// reply has Verified false. Participants always reply true.
type PostProcessingMsg struct {
	Sender   task.AgentID
	From, To string
	Verified bool
}

func (PostProcessingMsg) Kind() string { return "landmark.postProcessingMsg" }
