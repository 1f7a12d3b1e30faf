// Package motionplan adapts a planning world into a sampling-based joint-space
// planner: it builds a bounded/periodic state space from move-group joint
// limits, wires a validity and clearance oracle against the world, and drives
// tree-search planners over it.
package motionplan

import (
	"math"
	"math/rand"

	"github.com/planworld/planworld/referenceframe"
)

// jointSpace is the one-dimensional state space of a single joint. Bounded
// joints clamp and measure linearly; joints with no declared limits are
// periodic on SO(2), where -pi and pi are the same state.
type jointSpace struct {
	min, max float64
	periodic bool
}

func newJointSpace(limit referenceframe.Limit) jointSpace {
	if math.IsInf(limit.Min, -1) || math.IsInf(limit.Max, 1) {
		return jointSpace{min: -math.Pi, max: math.Pi, periodic: true}
	}
	return jointSpace{min: limit.Min, max: limit.Max}
}

// wrapAngle maps an angle into [-pi, pi).
func wrapAngle(theta float64) float64 {
	wrapped := math.Mod(theta+math.Pi, 2*math.Pi)
	if wrapped < 0 {
		wrapped += 2 * math.Pi
	}
	return wrapped - math.Pi
}

func (js jointSpace) distance(a, b float64) float64 {
	if js.periodic {
		diff := math.Abs(wrapAngle(a) - wrapAngle(b))
		return math.Min(diff, 2*math.Pi-diff)
	}
	return math.Abs(a - b)
}

func (js jointSpace) interpolate(a, b, by float64) float64 {
	if js.periodic {
		a = wrapAngle(a)
		diff := wrapAngle(b) - a
		// go around the short way
		if diff > math.Pi {
			diff -= 2 * math.Pi
		} else if diff < -math.Pi {
			diff += 2 * math.Pi
		}
		return wrapAngle(a + diff*by)
	}
	return a + (b-a)*by
}

func (js jointSpace) enforceBounds(v float64) float64 {
	if js.periodic {
		return wrapAngle(v)
	}
	return math.Max(js.min, math.Min(js.max, v))
}

func (js jointSpace) sample(random *rand.Rand) float64 {
	return js.min + random.Float64()*(js.max-js.min)
}

// stateSpace is the compound state space of a move group, the ordered
// composition of its joints' subspaces.
type stateSpace struct {
	joints []jointSpace
}

func newStateSpace(limits []referenceframe.Limit) *stateSpace {
	joints := make([]jointSpace, 0, len(limits))
	for _, limit := range limits {
		joints = append(joints, newJointSpace(limit))
	}
	return &stateSpace{joints: joints}
}

func (ss *stateSpace) dim() int {
	return len(ss.joints)
}

// Distance is the L2 norm over the per-joint distances, with periodic joints
// measured around the circle.
func (ss *stateSpace) Distance(a, b []float64) float64 {
	acc := 0.
	for i, js := range ss.joints {
		d := js.distance(a[i], b[i])
		acc += d * d
	}
	return math.Sqrt(acc)
}

// Interpolate writes the state the given fraction of the way from a to b,
// taking the short way around periodic joints.
func (ss *stateSpace) Interpolate(a, b []float64, by float64, dst []float64) {
	for i, js := range ss.joints {
		dst[i] = js.interpolate(a[i], b[i], by)
	}
}

// EnforceBounds clamps bounded joints and wraps periodic ones, in place.
func (ss *stateSpace) EnforceBounds(q []float64) {
	for i, js := range ss.joints {
		q[i] = js.enforceBounds(q[i])
	}
}

// Sample draws a state uniformly from the space.
func (ss *stateSpace) Sample(random *rand.Rand) []float64 {
	q := make([]float64, len(ss.joints))
	for i, js := range ss.joints {
		q[i] = js.sample(random)
	}
	return q
}

// SampleNear draws a state from a uniform box of the given radius around the
// center, pushed back into bounds.
func (ss *stateSpace) SampleNear(random *rand.Rand, center []float64, radius float64) []float64 {
	q := make([]float64, len(ss.joints))
	for i, js := range ss.joints {
		q[i] = js.enforceBounds(center[i] + (random.Float64()*2-1)*radius)
	}
	return q
}
