package transport

import (
	"context"
	"sync"
)

// batonState is shared by every LocalBus in a group so baton rotation
// is visible to all agents without a network round-trip.
type batonState struct {
	mu     sync.Mutex
	agents []AgentID
	holder int
}

func (b *batonState) current() AgentID {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.agents[b.holder]
}

func (b *batonState) pass() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.holder = (b.holder + 1) % len(b.agents)
}

// LocalBus is an in-process implementation of Port over Go channels.
// It backs single-process tests and the numAgents=1 centralized mode
// (testable property 10): the same Port contract is satisfied whether
// there is one agent or many, so search never special-cases the agent
// count.
type LocalBus struct {
	self    AgentID
	agents  []AgentID
	inboxes map[AgentID]chan Envelope
	baton   *batonState

	mu      sync.Mutex
	pending []Envelope // messages read off the channel but not yet matched by a filter
	closed  bool
	closeCh chan struct{}
}

// NewLocalBusGroup builds one LocalBus per agent, all sharing the same
// inboxes and baton state, with baton rotation following the order of
// agents as given (the "agreed permutation" of spec §4.7).
func NewLocalBusGroup(agents []AgentID) map[AgentID]*LocalBus {
	inboxes := make(map[AgentID]chan Envelope, len(agents))
	for _, a := range agents {
		inboxes[a] = make(chan Envelope, 4096)
	}
	baton := &batonState{agents: append([]AgentID(nil), agents...)}
	group := make(map[AgentID]*LocalBus, len(agents))
	for _, a := range agents {
		group[a] = &LocalBus{
			self:    a,
			agents:  append([]AgentID(nil), agents...),
			inboxes: inboxes,
			baton:   baton,
			closeCh: make(chan struct{}),
		}
	}
	return group
}

func (b *LocalBus) ThisAgent() AgentID { return b.self }

func (b *LocalBus) AgentList() []AgentID { return append([]AgentID(nil), b.agents...) }

func (b *LocalBus) OtherAgents() []AgentID {
	out := make([]AgentID, 0, len(b.agents)-1)
	for _, a := range b.agents {
		if a != b.self {
			out = append(out, a)
		}
	}
	return out
}

func (b *LocalBus) NumAgents() int { return len(b.agents) }

func (b *LocalBus) BatonAgent() bool { return b.baton.current() == b.self }

func (b *LocalBus) GetBatonAgent() AgentID { return b.baton.current() }

func (b *LocalBus) PassBaton() { b.baton.pass() }

func (b *LocalBus) SendMessage(recipient AgentID, payload any, reliable bool) error {
	ch, ok := b.inboxes[recipient]
	if !ok {
		return &unknownAgentError{recipient}
	}
	ch <- Envelope{From: b.self, Payload: payload}
	return nil
}

func (b *LocalBus) Broadcast(payload any, reliable bool) error {
	for _, a := range b.OtherAgents() {
		if err := b.SendMessage(a, payload, reliable); err != nil {
			return err
		}
	}
	return nil
}

func (b *LocalBus) ReceiveMessage(ctx context.Context, filter Filter) (Envelope, error) {
	b.mu.Lock()
	for i, e := range b.pending {
		if filter.matches(e) {
			b.pending = append(b.pending[:i], b.pending[i+1:]...)
			b.mu.Unlock()
			return e, nil
		}
	}
	b.mu.Unlock()

	inbox := b.inboxes[b.self]
	for {
		select {
		case <-ctx.Done():
			return Envelope{}, ctx.Err()
		case <-b.closeCh:
			return Envelope{}, ErrTransportClosed
		case e := <-inbox:
			if filter.matches(e) {
				return e, nil
			}
			b.mu.Lock()
			b.pending = append(b.pending, e)
			b.mu.Unlock()
		}
	}
}

func (b *LocalBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.closeCh)
	}
	return nil
}

type unknownAgentError struct{ agent AgentID }

func (e *unknownAgentError) Error() string {
	return "transport: unknown agent " + string(e.agent)
}
