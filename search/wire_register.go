package search

import "github.com/lexcodex/mapop/transport/rpcnet"

func init() {
	rpcnet.Register("search.newBasePlan", func() any { return &NewBasePlanMsg{} })
	rpcnet.Register("search.proposal", func() any { return &ProposalMsg{} })
	rpcnet.Register("search.verdict", func() any { return &VerdictMsg{} })
}
