package motionplan

import (
	"runtime"

	goutils "go.viam.com/utils"
)

// neighborsBeforeParallelization is the tree size above which the linear
// nearest-neighbor scan is split across workers.
const neighborsBeforeParallelization = 1000

// nearestNeighbor returns the tree node closest to the target under the state
// space metric.
func nearestNeighbor(space *stateSpace, tree []*node, target []float64) *node {
	if len(tree) > neighborsBeforeParallelization {
		return parallelNearestNeighbor(space, tree, target)
	}
	best := tree[0]
	bestDist := space.Distance(best.q, target)
	for _, n := range tree[1:] {
		if d := space.Distance(n.q, target); d < bestDist {
			best, bestDist = n, d
		}
	}
	return best
}

type neighborCandidate struct {
	node *node
	dist float64
}

func parallelNearestNeighbor(space *stateSpace, tree []*node, target []float64) *node {
	workers := runtime.NumCPU()
	chunk := (len(tree) + workers - 1) / workers
	results := make(chan neighborCandidate, workers)
	launched := 0
	for lo := 0; lo < len(tree); lo += chunk {
		hi := lo + chunk
		if hi > len(tree) {
			hi = len(tree)
		}
		slice := tree[lo:hi]
		launched++
		goutils.PanicCapturingGo(func() {
			best := slice[0]
			bestDist := space.Distance(best.q, target)
			for _, n := range slice[1:] {
				if d := space.Distance(n.q, target); d < bestDist {
					best, bestDist = n, d
				}
			}
			results <- neighborCandidate{best, bestDist}
		})
	}
	overall := <-results
	for i := 1; i < launched; i++ {
		if candidate := <-results; candidate.dist < overall.dist {
			overall = candidate
		}
	}
	return overall.node
}
