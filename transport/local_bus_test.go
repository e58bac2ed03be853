package transport_test

import (
	"testing"

	"github.com/lexcodex/mapop/transport"
	"github.com/lexcodex/mapop/transport/porttest"
)

func TestLocalBusSatisfiesPortContract(t *testing.T) {
	porttest.Suite(t, func(t *testing.T) porttest.Pair {
		group := transport.NewLocalBusGroup([]transport.AgentID{"a", "b"})
		return porttest.Pair{
			A: group["a"],
			B: group["b"],
			Cleanup: func() {
				_ = group["a"].Close()
				_ = group["b"].Close()
			},
		}
	})
}
