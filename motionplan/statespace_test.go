package motionplan

import (
	"math"
	"math/rand"
	"testing"

	"go.viam.com/test"

	"github.com/planworld/planworld/referenceframe"
)

func TestJointSpacePeriodic(t *testing.T) {
	js := newJointSpace(referenceframe.FreeLimit)
	test.That(t, js.periodic, test.ShouldBeTrue)

	// -pi and pi are the same state on the circle
	test.That(t, js.distance(-math.Pi, math.Pi), test.ShouldAlmostEqual, 0, 1e-12)
	test.That(t, js.distance(3, -3), test.ShouldAlmostEqual, 2*math.Pi-6, 1e-12)
	test.That(t, js.distance(0.1, -0.1), test.ShouldAlmostEqual, 0.2, 1e-12)

	// interpolation goes the short way, through the wrap point
	mid := js.interpolate(3, -3, 0.5)
	test.That(t, js.distance(mid, math.Pi), test.ShouldAlmostEqual, 0, 1e-9)

	test.That(t, js.enforceBounds(3*math.Pi/2), test.ShouldAlmostEqual, -math.Pi/2, 1e-12)
}

func TestJointSpaceBounded(t *testing.T) {
	js := newJointSpace(referenceframe.Limit{Min: -1, Max: 2})
	test.That(t, js.periodic, test.ShouldBeFalse)

	test.That(t, js.distance(-1, 2), test.ShouldAlmostEqual, 3)
	test.That(t, js.interpolate(-1, 2, 0.5), test.ShouldAlmostEqual, 0.5)
	test.That(t, js.enforceBounds(5), test.ShouldAlmostEqual, 2)
	test.That(t, js.enforceBounds(-5), test.ShouldAlmostEqual, -1)

	random := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		v := js.sample(random)
		test.That(t, v, test.ShouldBeBetweenOrEqual, -1, 2)
	}
}

func TestStateSpace(t *testing.T) {
	ss := newStateSpace([]referenceframe.Limit{
		{Min: -math.Pi, Max: math.Pi},
		referenceframe.FreeLimit,
	})
	test.That(t, ss.dim(), test.ShouldEqual, 2)

	// L2 over the per-joint metrics, the periodic joint measured on the circle
	d := ss.Distance([]float64{0, -math.Pi}, []float64{3, math.Pi})
	test.That(t, d, test.ShouldAlmostEqual, 3, 1e-12)

	dst := make([]float64, 2)
	ss.Interpolate([]float64{0, 0}, []float64{1, 1}, 0.25, dst)
	test.That(t, dst, test.ShouldResemble, []float64{0.25, 0.25})

	q := []float64{5, 5}
	ss.EnforceBounds(q)
	test.That(t, q[0], test.ShouldAlmostEqual, math.Pi)
	test.That(t, q[1], test.ShouldAlmostEqual, 5-2*math.Pi, 1e-12)

	random := rand.New(rand.NewSource(1))
	center := []float64{1, 1}
	for i := 0; i < 100; i++ {
		near := ss.SampleNear(random, center, 0.1)
		for j := range near {
			test.That(t, math.Abs(near[j]-center[j]), test.ShouldBeLessThanOrEqualTo, 0.1+1e-12)
		}
	}
}
