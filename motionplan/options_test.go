package motionplan

import (
	"testing"
	"time"

	"go.viam.com/test"
)

func TestPlanOptionsDefaults(t *testing.T) {
	var nilOpts *PlanOptions
	test.That(t, nilOpts.withDefaults(), test.ShouldResemble, DefaultPlanOptions())

	// zero-valued fields are filled, set fields are kept
	opts := (&PlanOptions{Algorithm: AlgorithmRRT, TimeBudget: 5 * time.Second}).withDefaults()
	test.That(t, opts.Algorithm, test.ShouldEqual, AlgorithmRRT)
	test.That(t, opts.TimeBudget, test.ShouldEqual, 5*time.Second)
	test.That(t, opts.Range, test.ShouldEqual, DefaultPlanOptions().Range)
	test.That(t, opts.Resolution, test.ShouldEqual, DefaultPlanOptions().Resolution)

	// a negative weight disables smoothing and survives defaulting
	opts = (&PlanOptions{PathLenObjWeight: -1}).withDefaults()
	test.That(t, opts.PathLenObjWeight, test.ShouldEqual, -1)

	// the only-flag pins the weight
	opts = (&PlanOptions{PathLenObjOnly: true}).withDefaults()
	test.That(t, opts.PathLenObjWeight, test.ShouldEqual, 1)
	opts = (&PlanOptions{PathLenObjOnly: true, PathLenObjWeight: -1}).withDefaults()
	test.That(t, opts.PathLenObjWeight, test.ShouldEqual, 1)
}
