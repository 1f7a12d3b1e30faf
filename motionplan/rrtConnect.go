package motionplan

import (
	"context"
	"time"
)

// connectedEpsilon is how close two tree states must be to count as the same
// configuration when joining trees.
const connectedEpsilon = 1e-10

// rrtConnectSearch grows one tree from the start and one from the goal set,
// alternating which tree extends towards a uniform sample and which greedily
// connects to the freshly added node. When the connect side reaches the new
// node the trees are joined into an exact path. On budget expiry it falls back
// to the start-tree node closest to a goal, if any improved on the start.
func rrtConnectSearch(ctx context.Context, p *Planner, start []float64, goals [][]float64, opts *PlanOptions, deadline time.Time) (*searchOutcome, error) {
	startTree := []*node{{q: start}}
	goalTree := make([]*node, 0, len(goals))
	for _, goal := range goals {
		goalTree = append(goalTree, &node{q: goal})
	}

	a, b := &startTree, &goalTree
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return rrtConnectApproximate(p, startTree, goals), nil
		default:
		}

		target := p.space.Sample(p.random)
		added := extendTree(p, a, target, opts)
		if added != nil {
			if reached := connectTree(p, b, added.q, opts, deadline); reached != nil {
				startNode, goalNode := added, reached
				if a != &startTree {
					startNode, goalNode = reached, added
				}
				return &searchOutcome{path: joinTrees(startNode, goalNode), exact: true}, nil
			}
		}
		a, b = b, a
	}
	return rrtConnectApproximate(p, startTree, goals), nil
}

// extendTree takes one bounded step from the tree's nearest node towards the
// target, returning the added node or nil when the step collides.
func extendTree(p *Planner, tree *[]*node, target []float64, opts *PlanOptions) *node {
	near := nearestNeighbor(p.space, *tree, target)
	candidate := steer(p.space, near.q, target, opts.Range)
	if !p.CheckMotion(near.q, candidate, opts.Resolution) {
		return nil
	}
	added := &node{q: candidate, parent: near}
	*tree = append(*tree, added)
	return added
}

// connectTree repeatedly extends the tree towards a fixed target, returning
// the node that reached it or nil once an extension collides or stalls.
func connectTree(p *Planner, tree *[]*node, target []float64, opts *PlanOptions, deadline time.Time) *node {
	prevDist := p.space.Distance(nearestNeighbor(p.space, *tree, target).q, target)
	for time.Now().Before(deadline) {
		added := extendTree(p, tree, target, opts)
		if added == nil {
			return nil
		}
		dist := p.space.Distance(added.q, target)
		if dist < connectedEpsilon {
			return added
		}
		// no closer than last step, bail rather than loop
		if dist >= prevDist {
			return nil
		}
		prevDist = dist
	}
	return nil
}

// joinTrees splices the start-tree branch and the reversed goal-tree branch at
// their shared configuration.
func joinTrees(startNode, goalNode *node) [][]float64 {
	path := pathFromNode(startNode)
	for n := goalNode.parent; n != nil; n = n.parent {
		path = append(path, n.q)
	}
	return path
}

func rrtConnectApproximate(p *Planner, startTree []*node, goals [][]float64) *searchOutcome {
	closestToGoal := func(q []float64) float64 {
		best := p.space.Distance(q, goals[0])
		for _, goal := range goals[1:] {
			if d := p.space.Distance(q, goal); d < best {
				best = d
			}
		}
		return best
	}
	startDist := closestToGoal(startTree[0].q)
	bestNode, bestDist := startTree[0], startDist
	for _, n := range startTree[1:] {
		if d := closestToGoal(n.q); d < bestDist {
			bestNode, bestDist = n, d
		}
	}
	return approximateOutcome(bestNode, bestDist, startDist)
}
