package landmark

import (
	"context"

	"github.com/lexcodex/mapop/task"
	"github.com/lexcodex/mapop/transport"
)

// runBaton is the baton holder's side of the protocol: it drives the
// same backward worklist sweep as the single-agent case, but for every
// candidate it also solicits the other agents' own producer-precondition
// sets over the port before moving on. Once the sweep and the
// necessary-ordering post-processing pass settle, it shares its
// complete node set so every participant's local graph matches before
// global IDs are agreed and broadcast.
func (b *Builder) runBaton(ctx context.Context, graph *Graph, goals []task.Condition) error {
	others := b.port.OtherAgents()

	remote := func(lm *Landmark) []discovered {
		var all []discovered
		for _, agent := range others {
			ds, err := b.askCandidate(ctx, agent, lm)
			if err != nil {
				continue
			}
			all = append(all, ds...)
		}
		return all
	}

	b.sweepLocal(graph, goals, remote)
	b.postProcess(ctx, graph, others)
	b.broadcastSharing(graph, others)
	assignIDs(graph)
	if err := b.broadcastIDs(graph, others); err != nil {
		return err
	}

	// The baton's full turn (level sweep through global-ID assignment)
	// just ended; hand off once rather than at each internal phase
	// boundary (see DESIGN.md) so runBaton stays the sole driver for
	// the whole of its own invocation.
	b.port.PassBaton()
	return nil
}

// runParticipant is the non-baton side: it blocks on messages from the
// baton and answers each in turn until the closing GlobalIdMsg arrives.
func (b *Builder) runParticipant(ctx context.Context, graph *Graph, goals []task.Condition) error {
	baton := b.port.GetBatonAgent()
	for {
		// No Sender filter: a message from anyone but the baton this
		// agent is tracking for the whole construction is a protocol
		// violation, surfaced as BatonDesyncError rather than silently
		// parked in the pending queue forever.
		env, err := b.port.ReceiveMessage(ctx, transport.Filter{})
		if err != nil {
			return err
		}
		if env.From != baton {
			return &transport.BatonDesyncError{Expected: baton, Got: env.From, Phase: "landmark-graph-sync"}
		}
		switch msg := env.Payload.(type) {
		case LandmarkGraphMsg:
			if msg.Type == CommonPrecs {
				b.replyCandidate(graph, goals, env.From, msg)
			}
		case PostProcessingMsg:
			b.replyVerify(env.From, msg)
		case LandmarkSharingMsg:
			graph.insert(discovered{kind: msg.Kind_, v: msg.Var, facts: msg.Facts, level: msg.Level})
		case GlobalIdMsg:
			applyGlobalIDs(graph, msg.Labels)
			return nil
		}
	}
}

// askCandidate broadcasts a single landmark candidate to agent and
// reads back its contributed predecessor landmarks, one
// LandmarkGraphMsg per discovery, terminated by an empty-USets message.
func (b *Builder) askCandidate(ctx context.Context, agent transport.AgentID, lm *Landmark) ([]discovered, error) {
	msg := LandmarkGraphMsg{Type: CommonPrecs, Sender: task.AgentID(b.port.ThisAgent()), Literal: lm.Facts[0], Literals: lm.Facts}
	if err := b.port.SendMessage(agent, msg, true); err != nil {
		return nil, err
	}
	var out []discovered
	for {
		env, err := b.port.ReceiveMessage(ctx, transport.Filter{Sender: agent, Accept: isVerificationReply})
		if err != nil {
			return out, err
		}
		reply, ok := env.Payload.(LandmarkGraphMsg)
		if !ok {
			continue
		}
		if len(reply.USets) == 0 {
			break
		}
		facts := reply.USets[0]
		kind := Single
		if len(facts) > 1 {
			kind = Disjunctive
		}
		out = append(out, discovered{kind: kind, v: facts[0].Var, facts: facts, level: reply.NextLevel})
	}
	return out, nil
}

// replyCandidate answers a baton's CommonPrecs broadcast: it inserts the
// candidate landmark itself into this agent's graph mirror (so it has
// somewhere to hang orderings), computes its own producer-precondition
// expansion, mirrors every discovery locally, and streams them back.
func (b *Builder) replyCandidate(graph *Graph, goals []task.Condition, to transport.AgentID, msg LandmarkGraphMsg) {
	facts := msg.Literals
	if len(facts) == 0 {
		facts = []task.Condition{msg.Literal}
	}
	kind := Single
	if len(facts) > 1 {
		kind = Disjunctive
	}
	target := graph.insert(discovered{kind: kind, v: facts[0].Var, facts: facts})

	for _, d := range b.expandOwn(&Landmark{Kind: kind, Var: facts[0].Var, Facts: facts}, goals) {
		nl := graph.insert(d)
		graph.addOrdering(nl.Label(), target.Label(), Necessary)
		reply := LandmarkGraphMsg{Type: Verification, Sender: task.AgentID(b.port.ThisAgent()), USets: [][]task.Condition{d.facts}, NextLevel: d.level}
		_ = b.port.SendMessage(to, reply, true)
	}
	_ = b.port.SendMessage(to, LandmarkGraphMsg{Type: Verification, Sender: task.AgentID(b.port.ThisAgent())}, true)
}

func isVerificationReply(payload any) bool {
	m, ok := payload.(LandmarkGraphMsg)
	return ok && m.Type == Verification
}

// postProcess asks every other agent to confirm each necessary ordering
// recorded during the sweep and drops an edge only when a reply refutes
// it. replyVerify answers Verified: true for every edge without running
// an RPG check, and the baton runs no check of its own, so this pass
// keeps every edge the sweep recorded.
func (b *Builder) postProcess(ctx context.Context, graph *Graph, others []transport.AgentID) {
	for _, o := range graph.Orderings() {
		refuted := false
		for _, agent := range others {
			verified, responded := b.askVerify(ctx, agent, o)
			if responded && !verified {
				refuted = true
			}
		}
		if refuted {
			graph.removeOrdering(o.From, o.To)
		}
	}
}

func (b *Builder) askVerify(ctx context.Context, agent transport.AgentID, o Ordering) (verified, responded bool) {
	msg := PostProcessingMsg{Sender: task.AgentID(b.port.ThisAgent()), From: o.From, To: o.To}
	if err := b.port.SendMessage(agent, msg, true); err != nil {
		return false, false
	}
	env, err := b.port.ReceiveMessage(ctx, transport.Filter{Sender: agent, Accept: isPostProcessingReply})
	if err != nil {
		return false, false
	}
	reply, ok := env.Payload.(PostProcessingMsg)
	if !ok {
		return false, false
	}
	return reply.Verified, true
}

func isPostProcessingReply(payload any) bool {
	_, ok := payload.(PostProcessingMsg)
	return ok
}

func (b *Builder) replyVerify(to transport.AgentID, msg PostProcessingMsg) {
	reply := PostProcessingMsg{Sender: task.AgentID(b.port.ThisAgent()), From: msg.From, To: msg.To, Verified: true}
	_ = b.port.SendMessage(to, reply, true)
}

// broadcastSharing distributes the baton's complete node set so every
// participant's graph mirror agrees before global IDs are assigned —
// including landmarks a participant never saw because they surfaced in
// another agent's reply.
func (b *Builder) broadcastSharing(graph *Graph, others []transport.AgentID) {
	for _, label := range graph.insertion {
		lm := graph.nodes[label]
		msg := LandmarkSharingMsg{Sender: task.AgentID(b.port.ThisAgent()), Label: label, Kind_: lm.Kind, Var: lm.Var, Facts: lm.Facts, Level: lm.Level, IsGoal: lm.IsGoal}
		for _, o := range others {
			_ = b.port.SendMessage(o, msg, true)
		}
	}
}

func (b *Builder) broadcastIDs(graph *Graph, others []transport.AgentID) error {
	labels := graph.sortedLabels()
	msg := GlobalIdMsg{Sender: task.AgentID(b.port.ThisAgent()), Labels: labels}
	return b.port.Broadcast(msg, true)
}

func applyGlobalIDs(graph *Graph, labels []string) {
	for i, l := range labels {
		if lm, ok := graph.nodes[l]; ok {
			lm.ID = i
		}
	}
	graph.buildIndex()
}
