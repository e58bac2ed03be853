// Package transport defines the abstract messaging adapter port (C7):
// an abstract point-to-point + broadcast delivery service with baton
// semantics. The core never introspects wire formats — payloads are
// carried as opaque values — so this package has no dependency on the
// planning domain types in task/plan/landmark/search.
package transport

import (
	"context"
	"errors"
	"fmt"
)

// AgentID names a participant on the bus. It is intentionally a
// distinct type from task.AgentID: the transport layer is a generic
// messaging service with no knowledge of the planning domain.
type AgentID string

// Envelope is a received message plus its sender.
type Envelope struct {
	From    AgentID
	Payload any
}

// Filter selects which buffered messages ReceiveMessage may return.
// A zero-value Filter matches everything.
type Filter struct {
	Sender AgentID           // "" matches any sender
	Accept func(any) bool    // nil matches any payload
}

func (f Filter) matches(e Envelope) bool {
	if f.Sender != "" && f.Sender != e.From {
		return false
	}
	if f.Accept != nil && !f.Accept(e.Payload) {
		return false
	}
	return true
}

// ErrTransportClosed is returned by ReceiveMessage once the port has
// been closed and no more messages are pending.
var ErrTransportClosed = errors.New("transport: closed")

// Port is the abstract messaging adapter every agent's search loop is
// driven through. Implementations must provide FIFO delivery per
// sender-receiver pair; no ordering guarantee is required across
// distinct senders.
type Port interface {
	ThisAgent() AgentID
	AgentList() []AgentID
	OtherAgents() []AgentID
	NumAgents() int

	// BatonAgent reports whether this agent currently holds the baton.
	BatonAgent() bool
	// GetBatonAgent returns the name of the current baton holder.
	GetBatonAgent() AgentID
	// PassBaton rotates the baton to the next agent in the agreed
	// permutation. Only the current holder should call it — it is the
	// holder ending its own turn, not a vote every agent casts — once
	// per synchronization point (spec §4.3/§4.7/§5); calling it from a
	// non-holder is a cooperative-invariant violation the transport
	// does not itself detect.
	PassBaton()

	SendMessage(recipient AgentID, payload any, reliable bool) error
	Broadcast(payload any, reliable bool) error
	// ReceiveMessage blocks until a message matching filter arrives,
	// ctx is cancelled, or the port is closed.
	ReceiveMessage(ctx context.Context, filter Filter) (Envelope, error)

	Close() error
}

// BatonDesyncError signals a message arrived under the wrong baton
// phase (spec §7, fatal, invariant violation — do not try to recover).
type BatonDesyncError struct {
	Expected AgentID
	Got      AgentID
	Phase    string
}

func (e *BatonDesyncError) Error() string {
	return fmt.Sprintf("transport: baton desync in phase %q: expected holder %q, message implies %q", e.Phase, e.Expected, e.Got)
}
