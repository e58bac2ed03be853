package landmark

import "github.com/lexcodex/mapop/transport/rpcnet"

func init() {
	rpcnet.Register("landmark.graphMsg", func() any { return &LandmarkGraphMsg{} })
	rpcnet.Register("landmark.globalIdMsg", func() any { return &GlobalIdMsg{} })
	rpcnet.Register("landmark.sharingMsg", func() any { return &LandmarkSharingMsg{} })
	rpcnet.Register("landmark.postProcessingMsg", func() any { return &PostProcessingMsg{} })
}
