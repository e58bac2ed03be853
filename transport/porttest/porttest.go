// Package porttest is a shared compliance suite exercised against every
// transport.Port implementation (testable property from SPEC_FULL.md
// §8: "transport.LocalBus satisfies the same contract test suite as
// rpcnet"), grounded on the teacher's framework/test_helpers_test.go
// pattern of a package-exported helper shared across test files rather
// than duplicated fixtures per implementation.
package porttest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lexcodex/mapop/transport"
)

// PingMsg is the suite's one payload type. It implements rpcnet.Typed
// structurally (a Kind() string method) without importing rpcnet, so
// this package stays usable from transport's own tests too.
type PingMsg struct {
	Seq int
}

func (PingMsg) Kind() string { return "porttest.ping" }

// Pair is two connected Port instances naming each other as agent "a"
// and "b", plus a cleanup func to release both.
type Pair struct {
	A, B    transport.Port
	Cleanup func()
}

// BuildPair constructs a connected pair for one implementation under test.
type BuildPair func(t *testing.T) Pair

// Suite runs the shared contract against one implementation. Every
// implementation of transport.Port is expected to pass this unchanged.
func Suite(t *testing.T, build BuildPair) {
	t.Run("Identity", func(t *testing.T) { testIdentity(t, build) })
	t.Run("SendReceiveRoundTrip", func(t *testing.T) { testSendReceive(t, build) })
	t.Run("Broadcast", func(t *testing.T) { testBroadcast(t, build) })
	t.Run("FilterBySender", func(t *testing.T) { testFilterBySender(t, build) })
	t.Run("BatonRotation", func(t *testing.T) { testBatonRotation(t, build) })
	t.Run("CloseUnblocksReceive", func(t *testing.T) { testCloseUnblocksReceive(t, build) })
}

func testIdentity(t *testing.T, build BuildPair) {
	pair := build(t)
	defer pair.Cleanup()

	require.Equal(t, transport.AgentID("a"), pair.A.ThisAgent())
	require.Equal(t, transport.AgentID("b"), pair.B.ThisAgent())
	require.Equal(t, 2, pair.A.NumAgents())
	require.ElementsMatch(t, []transport.AgentID{"a", "b"}, pair.A.AgentList())
	require.Equal(t, []transport.AgentID{"b"}, pair.A.OtherAgents())
	require.Equal(t, []transport.AgentID{"a"}, pair.B.OtherAgents())
}

func testSendReceive(t *testing.T, build BuildPair) {
	pair := build(t)
	defer pair.Cleanup()

	require.NoError(t, pair.A.SendMessage("b", PingMsg{Seq: 1}, true))

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	env, err := pair.B.ReceiveMessage(ctx, transport.Filter{})
	require.NoError(t, err)
	require.Equal(t, transport.AgentID("a"), env.From)
	require.Equal(t, PingMsg{Seq: 1}, env.Payload)
}

func testBroadcast(t *testing.T, build BuildPair) {
	pair := build(t)
	defer pair.Cleanup()

	require.NoError(t, pair.A.Broadcast(PingMsg{Seq: 2}, true))

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	env, err := pair.B.ReceiveMessage(ctx, transport.Filter{})
	require.NoError(t, err)
	require.Equal(t, PingMsg{Seq: 2}, env.Payload)
}

func testFilterBySender(t *testing.T, build BuildPair) {
	pair := build(t)
	defer pair.Cleanup()

	require.NoError(t, pair.A.SendMessage("b", PingMsg{Seq: 3}, true))

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_, err := pair.B.ReceiveMessage(ctx, transport.Filter{Sender: "nobody"})
	require.Error(t, err, "a filter matching no sender should time out via ctx, not return a is-other-sender's message")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel2()
	env, err := pair.B.ReceiveMessage(ctx2, transport.Filter{Sender: "a"})
	require.NoError(t, err)
	require.Equal(t, PingMsg{Seq: 3}, env.Payload)
}

func testBatonRotation(t *testing.T, build BuildPair) {
	pair := build(t)
	defer pair.Cleanup()

	firstHolder := pair.A.GetBatonAgent()
	require.Equal(t, firstHolder == pair.A.ThisAgent(), pair.A.BatonAgent())

	pair.A.PassBaton()
	time.Sleep(50 * time.Millisecond) // let an async wire implementation propagate the transfer
	require.NotEqual(t, firstHolder, pair.A.GetBatonAgent())
	require.Equal(t, pair.A.GetBatonAgent(), pair.B.GetBatonAgent())
}

func testCloseUnblocksReceive(t *testing.T, build BuildPair) {
	pair := build(t)
	defer pair.Cleanup()

	errCh := make(chan error, 1)
	go func() {
		_, err := pair.B.ReceiveMessage(context.Background(), transport.Filter{})
		errCh <- err
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, pair.B.Close())

	select {
	case err := <-errCh:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("ReceiveMessage did not unblock after Close")
	}
}
