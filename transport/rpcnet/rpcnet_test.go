package rpcnet

import (
	"context"
	"net"
	"testing"

	"github.com/lexcodex/mapop/transport"
	"github.com/lexcodex/mapop/transport/porttest"
)

func init() {
	Register("porttest.ping", func() any { return &porttest.PingMsg{} })
}

// buildConnectedPair wires two NetPorts over a net.Pipe, named "a" and
// "b". Peer wiring is two-phase (construct each port with an empty
// peer map to get a Handler, dial the pipe, then fill in peers) since
// NewPeer needs a port's Handler and NewNetPort needs the resulting
// Peer — this test lives in package rpcnet so it can reach past the
// exported constructor to finish the wiring.
func buildConnectedPair(t *testing.T) porttest.Pair {
	t.Helper()
	agents := []transport.AgentID{"a", "b"}

	portA := NewNetPort("a", agents, map[transport.AgentID]*Peer{}, "a")
	portB := NewNetPort("b", agents, map[transport.AgentID]*Peer{}, "a")

	connA, connB := net.Pipe()
	ctx := context.Background()

	peerB := NewPeer(ctx, "b", connA, portA.Handler())
	peerA := NewPeer(ctx, "a", connB, portB.Handler())
	portA.peers["b"] = peerB
	portB.peers["a"] = peerA

	return porttest.Pair{
		A: portA,
		B: portB,
		Cleanup: func() {
			_ = portA.Close()
			_ = portB.Close()
		},
	}
}

func TestNetPortSatisfiesPortContract(t *testing.T) {
	porttest.Suite(t, buildConnectedPair)
}
