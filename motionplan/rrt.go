package motionplan

import (
	"context"
	"time"
)

// node is one configuration in a search tree, linked to the node it was
// extended from.
type node struct {
	q      []float64
	parent *node
}

// pathFromNode walks the parent links back to the root and returns the
// root-to-node sequence of configurations.
func pathFromNode(n *node) [][]float64 {
	reversed := [][]float64{}
	for ; n != nil; n = n.parent {
		reversed = append(reversed, n.q)
	}
	path := make([][]float64, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		path = append(path, reversed[i])
	}
	return path
}

// steer returns the state at most maxRange along the segment from one state
// towards another, or the target itself when it is already within range.
func steer(space *stateSpace, from, to []float64, maxRange float64) []float64 {
	dist := space.Distance(from, to)
	q := make([]float64, space.dim())
	if dist <= maxRange {
		copy(q, to)
		return q
	}
	space.Interpolate(from, to, maxRange/dist, q)
	return q
}

// rrtSearch grows a single tree from the start, sampling a goal with GoalBias
// probability and a uniform state otherwise. When a new node lands within one
// extension range of a goal and the closing segment checks out, the goal is
// appended and the path returned exact. On budget expiry it falls back to the
// node that got closest to any goal, if any node improved on the start.
func rrtSearch(ctx context.Context, p *Planner, start []float64, goals [][]float64, opts *PlanOptions, deadline time.Time) (*searchOutcome, error) {
	goalDistance := func(q []float64) float64 {
		best := p.space.Distance(q, goals[0])
		for _, goal := range goals[1:] {
			if d := p.space.Distance(q, goal); d < best {
				best = d
			}
		}
		return best
	}

	root := &node{q: start}
	tree := []*node{root}
	bestNode, bestDist := root, goalDistance(start)
	startDist := bestDist

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return approximateOutcome(bestNode, bestDist, startDist), nil
		default:
		}

		var target []float64
		if p.random.Float64() < opts.GoalBias {
			target = goals[p.random.Intn(len(goals))]
		} else {
			target = p.space.Sample(p.random)
		}

		near := nearestNeighbor(p.space, tree, target)
		candidate := steer(p.space, near.q, target, opts.Range)
		if !p.CheckMotion(near.q, candidate, opts.Resolution) {
			continue
		}
		added := &node{q: candidate, parent: near}
		tree = append(tree, added)

		for _, goal := range goals {
			d := p.space.Distance(candidate, goal)
			if d < bestDist {
				bestNode, bestDist = added, d
			}
			if d <= opts.Range && p.CheckMotion(candidate, goal, opts.Resolution) {
				return &searchOutcome{path: append(pathFromNode(added), goal), exact: true}, nil
			}
		}
	}
	return approximateOutcome(bestNode, bestDist, startDist), nil
}

// approximateOutcome returns the path to the closest node reached when the
// search made progress towards a goal, and an empty outcome otherwise.
func approximateOutcome(bestNode *node, bestDist, startDist float64) *searchOutcome {
	if bestDist >= startDist {
		return &searchOutcome{}
	}
	return &searchOutcome{path: pathFromNode(bestNode)}
}
