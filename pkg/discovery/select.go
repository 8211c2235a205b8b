package discovery

import (
	"github.com/stonegrid/quarry/pkg/rpc"
	"github.com/stonegrid/quarry/pkg/types"
)

// BestResult reduces a round's per-rack outcomes to a single answer.
// Any discovered pod wins, no matter how many racks failed; which
// rack's pod is returned when several succeed is unspecified. When
// every rack failed, the most informative failure is returned, ranked
// unknown pod type, then not supported, then action failed, then
// everything else. A round that produced nothing at all yields
// (nil, nil).
func BestResult(result *Result) (*types.DiscoveredPod, error) {
	for _, pod := range result.Discovered {
		return pod, nil
	}

	var (
		best    error
		bestCat rpc.FailureCategory
	)
	for _, err := range result.Failures {
		cat := rpc.Classify(err)
		if best == nil || cat < bestCat {
			best = err
			bestCat = cat
		}
	}

	return nil, best
}
