// Package rpcnet is the networked implementation of transport.Port
// (C7/C15), grounded on the teacher's tools.processLSPClient: a
// jsonrpc2.Conn per peer, speaking jsonrpc2.VSCodeObjectCodec over a
// plain net.Conn (TCP or, in tests, net.Pipe). Unlike the teacher's LSP
// client there is no document/text-edit protocol to model — the wire
// carries only the planner's own tagged message values — so
// go.lsp.dev/protocol's typed surface has no role here (see DESIGN.md).
package rpcnet

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"reflect"
	"sync"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/lexcodex/mapop/transport"
)

// Typed is implemented by every message struct the planner sends
// across the network; Kind is the registry key used to reconstruct
// the concrete type on the receiving side.
type Typed interface {
	Kind() string
}

var (
	registryMu sync.RWMutex
	registry   = map[string]func() any{}
)

// Register associates a wire-format kind name with a zero-value
// factory. Packages that define message types (landmark, search) call
// this from an init() so rpcnet can decode them without importing
// those packages back.
func Register(kind string, zero func() any) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[kind] = zero
}

type wireMessage struct {
	From transport.AgentID `json:"from"`
	Kind string            `json:"kind"`
	Data json.RawMessage   `json:"data"`
}

const batonTransferKind = "rpcnet.batonTransfer"

type batonTransferMsg struct {
	Holder transport.AgentID `json:"holder"`
}

func encode(self transport.AgentID, payload any) (wireMessage, error) {
	t, ok := payload.(Typed)
	if !ok {
		return wireMessage{}, fmt.Errorf("rpcnet: payload %T does not implement Kind() string", payload)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return wireMessage{}, err
	}
	return wireMessage{From: self, Kind: t.Kind(), Data: data}, nil
}

func decode(w wireMessage) (any, error) {
	registryMu.RLock()
	factory, ok := registry[w.Kind]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("rpcnet: unregistered message kind %q", w.Kind)
	}
	v := factory()
	if err := json.Unmarshal(w.Data, v); err != nil {
		return nil, err
	}
	// Registered factories return a pointer so json.Unmarshal has
	// somewhere to write; callers on both transports expect the same
	// concrete value type LocalBus hands them unserialized, so unwrap it.
	return reflect.ValueOf(v).Elem().Interface(), nil
}

// Peer is an established jsonrpc2 connection to one other agent.
type Peer struct {
	Agent transport.AgentID
	Conn  *jsonrpc2.Conn
}

// NewPeer wraps an already-dialed net.Conn as a jsonrpc2 peer, using
// the same buffered-stream/VSCode-codec combination the teacher's LSP
// client uses over stdio.
func NewPeer(ctx context.Context, agent transport.AgentID, conn net.Conn, handler jsonrpc2.Handler) *Peer {
	stream := jsonrpc2.NewBufferedStream(conn, jsonrpc2.VSCodeObjectCodec{})
	return &Peer{Agent: agent, Conn: jsonrpc2.NewConn(ctx, stream, handler)}
}

// NetPort is the networked transport.Port implementation: one peer
// connection per other agent, baton state tracked locally and kept in
// sync via an internal baton-transfer message.
type NetPort struct {
	self   transport.AgentID
	agents []transport.AgentID
	peers  map[transport.AgentID]*Peer

	inbox   chan transport.Envelope
	pending []transport.Envelope
	mu      sync.Mutex

	batonMu sync.Mutex
	holder  transport.AgentID

	closed  bool
	closeCh chan struct{}
}

// NewNetPort builds a NetPort. peers must contain one entry per other
// agent in agents; initialHolder names the agent that starts with the
// baton (the agreed permutation's first element).
func NewNetPort(self transport.AgentID, agents []transport.AgentID, peers map[transport.AgentID]*Peer, initialHolder transport.AgentID) *NetPort {
	p := &NetPort{
		self:    self,
		agents:  append([]transport.AgentID(nil), agents...),
		peers:   peers,
		inbox:   make(chan transport.Envelope, 4096),
		holder:  initialHolder,
		closeCh: make(chan struct{}),
	}
	return p
}

// Handler returns a jsonrpc2.Handler that feeds this port's inbox.
// Wire it into every Peer's connection when establishing it.
func (p *NetPort) Handler() jsonrpc2.Handler {
	return jsonrpc2.HandlerWithError(func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
		if req.Method != "message" || req.Params == nil {
			return nil, nil
		}
		var w wireMessage
		if err := json.Unmarshal(*req.Params, &w); err != nil {
			return nil, err
		}
		if w.Kind == batonTransferKind {
			var bt batonTransferMsg
			if err := json.Unmarshal(w.Data, &bt); err != nil {
				return nil, err
			}
			p.batonMu.Lock()
			p.holder = bt.Holder
			p.batonMu.Unlock()
			return nil, nil
		}
		payload, err := decode(w)
		if err != nil {
			return nil, err
		}
		p.inbox <- transport.Envelope{From: w.From, Payload: payload}
		return nil, nil
	})
}

func (p *NetPort) ThisAgent() transport.AgentID { return p.self }

func (p *NetPort) AgentList() []transport.AgentID { return append([]transport.AgentID(nil), p.agents...) }

func (p *NetPort) OtherAgents() []transport.AgentID {
	out := make([]transport.AgentID, 0, len(p.agents)-1)
	for _, a := range p.agents {
		if a != p.self {
			out = append(out, a)
		}
	}
	return out
}

func (p *NetPort) NumAgents() int { return len(p.agents) }

func (p *NetPort) BatonAgent() bool {
	p.batonMu.Lock()
	defer p.batonMu.Unlock()
	return p.holder == p.self
}

func (p *NetPort) GetBatonAgent() transport.AgentID {
	p.batonMu.Lock()
	defer p.batonMu.Unlock()
	return p.holder
}

// PassBaton advances to the next agent in the fixed permutation
// (agents[] order) and notifies every peer, including the new holder.
func (p *NetPort) PassBaton() {
	p.batonMu.Lock()
	idx := 0
	for i, a := range p.agents {
		if a == p.holder {
			idx = i
			break
		}
	}
	next := p.agents[(idx+1)%len(p.agents)]
	p.holder = next
	p.batonMu.Unlock()

	msg := batonTransferMsg{Holder: next}
	data, _ := json.Marshal(msg)
	w := wireMessage{From: p.self, Kind: batonTransferKind, Data: data}
	for _, peer := range p.peers {
		_ = peer.Conn.Notify(context.Background(), "message", w)
	}
}

func (p *NetPort) SendMessage(recipient transport.AgentID, payload any, reliable bool) error {
	peer, ok := p.peers[recipient]
	if !ok {
		return fmt.Errorf("rpcnet: no peer connection to %q", recipient)
	}
	w, err := encode(p.self, payload)
	if err != nil {
		return err
	}
	return peer.Conn.Notify(context.Background(), "message", w)
}

func (p *NetPort) Broadcast(payload any, reliable bool) error {
	w, err := encode(p.self, payload)
	if err != nil {
		return err
	}
	for _, peer := range p.peers {
		if err := peer.Conn.Notify(context.Background(), "message", w); err != nil {
			return err
		}
	}
	return nil
}

func (p *NetPort) ReceiveMessage(ctx context.Context, filter transport.Filter) (transport.Envelope, error) {
	p.mu.Lock()
	for i, e := range p.pending {
		if matches(filter, e) {
			p.pending = append(p.pending[:i], p.pending[i+1:]...)
			p.mu.Unlock()
			return e, nil
		}
	}
	p.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return transport.Envelope{}, ctx.Err()
		case <-p.closeCh:
			return transport.Envelope{}, transport.ErrTransportClosed
		case e := <-p.inbox:
			if matches(filter, e) {
				return e, nil
			}
			p.mu.Lock()
			p.pending = append(p.pending, e)
			p.mu.Unlock()
		}
	}
}

func matches(f transport.Filter, e transport.Envelope) bool {
	if f.Sender != "" && f.Sender != e.From {
		return false
	}
	if f.Accept != nil && !f.Accept(e.Payload) {
		return false
	}
	return true
}

func (p *NetPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	close(p.closeCh)
	var firstErr error
	for _, peer := range p.peers {
		if err := peer.Conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
