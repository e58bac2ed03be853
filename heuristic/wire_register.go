package heuristic

import "github.com/lexcodex/mapop/transport/rpcnet"

func init() {
	rpcnet.Register("heuristic.change", func() any { return &HeuristicChange{} })
	rpcnet.Register("heuristic.adjustment", func() any { return &HeuristicAdjustment{} })
}
