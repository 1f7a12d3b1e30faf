package planningworld

import (
	"math"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/planworld/planworld/referenceframe"
	"github.com/planworld/planworld/spatialmath"
)

// planar 2R arm with unit links. Each link carries a thin box slightly shorter
// than the link so adjacent links do not touch at the straight configuration.
func makeTestArm(t *testing.T) *referenceframe.Model {
	t.Helper()
	m := referenceframe.NewModel("testarm")

	j1, err := referenceframe.NewRotationalFrame("joint1", spatialmath.R4AA{RZ: 1},
		referenceframe.Limit{Min: -math.Pi, Max: math.Pi})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.AddFrame(j1, "world", nil), test.ShouldBeNil)

	geom1, err := spatialmath.NewBox(spatialmath.NewPoseFromPoint(r3.Vector{X: -0.5}), r3.Vector{X: 0.8, Y: 0.1, Z: 0.1}, "")
	test.That(t, err, test.ShouldBeNil)
	l1, err := referenceframe.NewStaticFrame("link1", spatialmath.NewPoseFromPoint(r3.Vector{X: 1}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.AddFrame(l1, "joint1", geom1), test.ShouldBeNil)

	j2, err := referenceframe.NewRotationalFrame("joint2", spatialmath.R4AA{RZ: 1},
		referenceframe.Limit{Min: -math.Pi, Max: math.Pi})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.AddFrame(j2, "link1", nil), test.ShouldBeNil)

	geom2, err := spatialmath.NewBox(spatialmath.NewPoseFromPoint(r3.Vector{X: -0.5}), r3.Vector{X: 0.8, Y: 0.1, Z: 0.1}, "")
	test.That(t, err, test.ShouldBeNil)
	l2, err := referenceframe.NewStaticFrame("link2", spatialmath.NewPoseFromPoint(r3.Vector{X: 1}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.AddFrame(l2, "joint2", geom2), test.ShouldBeNil)

	return m
}

func TestRegistries(t *testing.T) {
	pw := NewPlanningWorld(golog.NewTestLogger(t))

	_, err := pw.AddArticulation("arm", makeTestArm(t), true)
	test.That(t, err, test.ShouldBeNil)
	_, err = pw.AddArticulation("arm", makeTestArm(t), true)
	test.That(t, err, test.ShouldNotBeNil)

	// articulation and object names are independent namespaces
	obj, err := NewBoxObject("arm", spatialmath.NewZeroPose(), r3.Vector{X: 1, Y: 1, Z: 1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pw.AddObject(obj), test.ShouldBeNil)
	test.That(t, pw.AddObject(obj), test.ShouldNotBeNil)

	test.That(t, pw.ArticulationNames(), test.ShouldResemble, []string{"arm"})
	test.That(t, pw.ObjectNames(), test.ShouldResemble, []string{"arm"})

	test.That(t, pw.RemoveObject("arm"), test.ShouldBeNil)
	test.That(t, pw.RemoveObject("arm"), test.ShouldNotBeNil)
	test.That(t, pw.RemoveArticulation("arm"), test.ShouldBeNil)
	test.That(t, pw.RemoveArticulation("arm"), test.ShouldNotBeNil)
}

func TestSetQposMoveGroup(t *testing.T) {
	pw := NewPlanningWorld(golog.NewTestLogger(t))
	am, err := pw.AddArticulation("arm", makeTestArm(t), true)
	test.That(t, err, test.ShouldBeNil)

	// default move group covers every joint
	test.That(t, am.MoveGroup(), test.ShouldResemble, []int{0, 1})
	test.That(t, am.MoveGroupJointNames(), test.ShouldResemble, []string{"joint1", "joint2"})

	test.That(t, pw.SetQpos("arm", referenceframe.FloatsToInputs([]float64{0.5, 0.25})), test.ShouldBeNil)
	test.That(t, referenceframe.InputsToFloats(am.Qpos()), test.ShouldResemble, []float64{0.5, 0.25})

	// reduce the move group to the first joint's chain
	test.That(t, am.SetMoveGroup("link1"), test.ShouldBeNil)
	test.That(t, am.MoveGroup(), test.ShouldResemble, []int{0})
	test.That(t, am.MoveGroupDim(), test.ShouldEqual, 1)

	// reduced scatter writes only move-group joints
	test.That(t, am.SetQpos(referenceframe.FloatsToInputs([]float64{1.5}), false), test.ShouldBeNil)
	test.That(t, referenceframe.InputsToFloats(am.Qpos()), test.ShouldResemble, []float64{1.5, 0.25})

	// size mismatches fail without mutation
	test.That(t, am.SetQpos(referenceframe.FloatsToInputs([]float64{1, 2}), false), test.ShouldNotBeNil)
	test.That(t, am.SetQpos(referenceframe.FloatsToInputs([]float64{1}), true), test.ShouldNotBeNil)
	test.That(t, referenceframe.InputsToFloats(am.Qpos()), test.ShouldResemble, []float64{1.5, 0.25})
}

func TestSetQposAll(t *testing.T) {
	pw := NewPlanningWorld(golog.NewTestLogger(t))
	arm1, err := pw.AddArticulation("arm1", makeTestArm(t), true)
	test.That(t, err, test.ShouldBeNil)
	arm2, err := pw.AddArticulation("arm2", makeTestArm(t), true)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, arm2.SetMoveGroup("link1"), test.ShouldBeNil)

	// 2 + 1 move-group dims, registry order
	test.That(t, pw.SetQposAll(referenceframe.FloatsToInputs([]float64{0.1, 0.2, 0.3})), test.ShouldBeNil)
	test.That(t, referenceframe.InputsToFloats(arm1.Qpos()), test.ShouldResemble, []float64{0.1, 0.2})
	test.That(t, referenceframe.InputsToFloats(arm2.Qpos()), test.ShouldResemble, []float64{0.3, 0})

	// wrong total length fails before any mutation
	test.That(t, pw.SetQposAll(referenceframe.FloatsToInputs([]float64{9, 9})), test.ShouldNotBeNil)
	test.That(t, referenceframe.InputsToFloats(arm1.Qpos()), test.ShouldResemble, []float64{0.1, 0.2})
	test.That(t, referenceframe.InputsToFloats(arm2.Qpos()), test.ShouldResemble, []float64{0.3, 0})

	// fixed articulations are not spanned by the concatenated vector
	test.That(t, pw.SetArticulationPlanned("arm2", false), test.ShouldBeNil)
	test.That(t, pw.SetQposAll(referenceframe.FloatsToInputs([]float64{0.5, 0.6})), test.ShouldBeNil)
	test.That(t, referenceframe.InputsToFloats(arm2.Qpos()), test.ShouldResemble, []float64{0.3, 0})
}

func TestCollideWithOthersScenario(t *testing.T) {
	pw := NewPlanningWorld(golog.NewTestLogger(t))
	_, err := pw.AddArticulation("arm", makeTestArm(t), true)
	test.That(t, err, test.ShouldBeNil)

	// box intersecting the arm's home configuration
	obstacle, err := NewBoxObject("obstacle", spatialmath.NewPoseFromPoint(r3.Vector{X: 1.5}), r3.Vector{X: 0.5, Y: 0.5, Z: 0.5})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pw.AddObject(obstacle), test.ShouldBeNil)

	collides, err := pw.Collide(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, collides, test.ShouldBeTrue)

	results, err := pw.CollideFull(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(results), test.ShouldBeGreaterThan, 0)
	test.That(t, results[0].Scope, test.ShouldEqual, ScopeWithOthers)
	test.That(t, results[0].EntityName1, test.ShouldEqual, "arm")
	test.That(t, results[0].LinkName1, test.ShouldEqual, "link2")
	test.That(t, results[0].EntityName2, test.ShouldEqual, "obstacle")
	test.That(t, results[0].LinkName2, test.ShouldEqual, "")

	// moving the arm clear resolves the collision
	test.That(t, pw.SetQpos("arm", referenceframe.FloatsToInputs([]float64{math.Pi / 2, 0})), test.ShouldBeNil)
	collides, err = pw.Collide(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, collides, test.ShouldBeFalse)

	// a margin larger than the separation reports collision again
	dist, err := pw.Distance(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dist.Distance, test.ShouldBeGreaterThan, 0)
	collides, err = pw.Collide(&CollisionRequest{Margin: dist.Distance + 0.1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, collides, test.ShouldBeTrue)
}

func TestSelfCollideAndACM(t *testing.T) {
	pw := NewPlanningWorld(golog.NewTestLogger(t))
	_, err := pw.AddArticulation("arm", makeTestArm(t), true)
	test.That(t, err, test.ShouldBeNil)

	// straight out, the two link boxes are separated
	collides, err := pw.SelfCollide(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, collides, test.ShouldBeFalse)

	// folding the elbow back overlaps link2 onto link1
	test.That(t, pw.SetQpos("arm", referenceframe.FloatsToInputs([]float64{0, math.Pi})), test.ShouldBeNil)
	collides, err = pw.SelfCollide(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, collides, test.ShouldBeTrue)

	// an allowed pair is never reported, in any query form
	pw.ACM().Allow("arm:link1", "arm:link2")
	collides, err = pw.SelfCollide(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, collides, test.ShouldBeFalse)
	results, err := pw.CollideFull(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(results), test.ShouldEqual, 0)
}

func TestACMSRDF(t *testing.T) {
	acm := NewAllowedCollisionMatrix()
	srdf := []byte(`<?xml version="1.0"?>
<robot name="testarm">
  <disable_collisions link1="link1" link2="link2" reason="Adjacent"/>
</robot>`)
	test.That(t, acm.LoadSRDF("arm", srdf), test.ShouldBeNil)
	test.That(t, acm.Allowed("arm:link1", "arm:link2"), test.ShouldBeTrue)
	test.That(t, acm.Allowed("arm:link2", "arm:link1"), test.ShouldBeTrue)
	test.That(t, acm.Allowed("arm:link1", "arm:link3"), test.ShouldBeFalse)
	// reflexive pairs are always allowed
	test.That(t, acm.Allowed("arm:link1", "arm:link1"), test.ShouldBeTrue)

	acm.Disallow("arm:link1", "arm:link2")
	test.That(t, acm.Allowed("arm:link1", "arm:link2"), test.ShouldBeFalse)
}

func TestAttachDetach(t *testing.T) {
	pw := NewPlanningWorld(golog.NewTestLogger(t))
	am, err := pw.AddArticulation("arm", makeTestArm(t), true)
	test.That(t, err, test.ShouldBeNil)

	// attach a box to the end effector link, held 0.2 beyond the link origin
	relative := spatialmath.NewPoseFromPoint(r3.Vector{X: 0.2})
	test.That(t, pw.AttachBox("held", "arm", "link2", relative, r3.Vector{X: 0.1, Y: 0.1, Z: 0.1}), test.ShouldBeNil)

	obj, err := pw.Object("held")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, obj.IsAttached(), test.ShouldBeTrue)

	// attached pose follows the link: world pose = link pose composed with relative pose
	for _, q := range [][]float64{{0, 0}, {math.Pi / 4, -math.Pi / 3}} {
		test.That(t, pw.SetQpos("arm", referenceframe.FloatsToInputs(q)), test.ShouldBeNil)
		linkPose, err := am.LinkPose("link2")
		test.That(t, err, test.ShouldBeNil)
		objPose, err := pw.ObjectPose("held")
		test.That(t, err, test.ShouldBeNil)
		test.That(t, spatialmath.PoseAlmostEqual(objPose, spatialmath.Compose(linkPose, relative)), test.ShouldBeTrue)
	}

	// attached objects cannot be repositioned or removed directly
	test.That(t, obj.SetPose(spatialmath.NewZeroPose()), test.ShouldNotBeNil)
	test.That(t, pw.RemoveObject("held"), test.ShouldNotBeNil)
	test.That(t, pw.RemoveArticulation("arm"), test.ShouldNotBeNil)

	// detaching freezes the object at its last world pose
	lastPose, err := pw.ObjectPose("held")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pw.DetachObject("held", false), test.ShouldBeNil)
	test.That(t, obj.IsAttached(), test.ShouldBeFalse)
	test.That(t, spatialmath.PoseAlmostEqual(obj.Pose(), lastPose), test.ShouldBeTrue)

	// double detach fails; detach with removal empties the registry
	test.That(t, pw.DetachObject("held", false), test.ShouldNotBeNil)
	test.That(t, pw.AttachObject(AttachRequest{
		Articulation: "arm", Link: "link2", ObjectName: "held", RelativePose: relative,
	}), test.ShouldBeNil)
	test.That(t, pw.DetachObject("held", true), test.ShouldBeNil)
	_, err = pw.Object("held")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestAttachRequestValidation(t *testing.T) {
	pw := NewPlanningWorld(golog.NewTestLogger(t))
	_, err := pw.AddArticulation("arm", makeTestArm(t), true)
	test.That(t, err, test.ShouldBeNil)

	// neither variant
	err = pw.AttachObject(AttachRequest{Articulation: "arm", Link: "link2"})
	test.That(t, err, test.ShouldNotBeNil)

	// both variants
	sphere, err := spatialmath.NewSphere(spatialmath.NewZeroPose(), 1, "")
	test.That(t, err, test.ShouldBeNil)
	err = pw.AttachObject(AttachRequest{
		Articulation: "arm", Link: "link2",
		ObjectName: "x", NewObjectName: "y", Geometry: sphere,
	})
	test.That(t, err, test.ShouldNotBeNil)

	// unknown articulation and link
	err = pw.AttachObject(AttachRequest{Articulation: "nope", Link: "link2", NewObjectName: "y", Geometry: sphere})
	test.That(t, err, test.ShouldNotBeNil)
	err = pw.AttachObject(AttachRequest{Articulation: "arm", Link: "nope", NewObjectName: "y", Geometry: sphere})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestTouchLinksFilterAttached(t *testing.T) {
	pw := NewPlanningWorld(golog.NewTestLogger(t))
	_, err := pw.AddArticulation("arm", makeTestArm(t), true)
	test.That(t, err, test.ShouldBeNil)

	// a grasped box overlapping its own link; the attaching link is a touch
	// link by default so this is not a self collision
	relative := spatialmath.NewPoseFromPoint(r3.Vector{X: -0.1})
	test.That(t, pw.AttachBox("grasped", "arm", "link2", relative, r3.Vector{X: 0.2, Y: 0.2, Z: 0.2}), test.ShouldBeNil)

	collides, err := pw.SelfCollide(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, collides, test.ShouldBeFalse)

	// folding the arm back brings the grasped box against link1, which is not exempt
	test.That(t, pw.SetQpos("arm", referenceframe.FloatsToInputs([]float64{0, math.Pi})), test.ShouldBeNil)
	pw.ACM().Allow("arm:link1", "arm:link2")
	collides, err = pw.SelfCollide(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, collides, test.ShouldBeTrue)
}

func TestDistanceScopes(t *testing.T) {
	pw := NewPlanningWorld(golog.NewTestLogger(t))
	_, err := pw.AddArticulation("arm", makeTestArm(t), true)
	test.That(t, err, test.ShouldBeNil)

	obstacle, err := NewSphereObject("ball", spatialmath.NewPoseFromPoint(r3.Vector{X: 2, Y: 1}), 0.2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pw.AddObject(obstacle), test.ShouldBeNil)

	selfDist, err := pw.DistanceSelf(nil)
	test.That(t, err, test.ShouldBeNil)
	othersDist, err := pw.DistanceWithOthers(nil)
	test.That(t, err, test.ShouldBeNil)
	fullDist, err := pw.DistanceFull(nil)
	test.That(t, err, test.ShouldBeNil)

	// the full-scope minimum equals the minimum over the union of scopes
	test.That(t, fullDist.Distance, test.ShouldAlmostEqual, math.Min(selfDist.Distance, othersDist.Distance))
	test.That(t, othersDist.EntityName2, test.ShouldEqual, "ball")
	test.That(t, othersDist.Distance, test.ShouldBeGreaterThan, 0)

	// penetration is negative
	test.That(t, pw.SetQpos("arm", referenceframe.FloatsToInputs([]float64{math.Pi / 4, 0})), test.ShouldBeNil)
	deep, err := NewSphereObject("deep", spatialmath.NewPoseFromPoint(r3.Vector{X: 0.3, Y: 0.3}), 0.3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pw.AddObject(deep), test.ShouldBeNil)
	fullDist, err = pw.DistanceFull(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fullDist.Distance, test.ShouldBeLessThan, 0)
}

func TestPointCloudObject(t *testing.T) {
	pw := NewPlanningWorld(golog.NewTestLogger(t))
	_, err := pw.AddArticulation("arm", makeTestArm(t), true)
	test.That(t, err, test.ShouldBeNil)

	// a point inside the first link's box
	cloud, err := NewPointCloudObject("cloud", spatialmath.NewZeroPose(), []r3.Vector{
		{X: 0.5}, {X: 5, Y: 5},
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pw.AddObject(cloud), test.ShouldBeNil)

	collides, err := pw.CollideWithOthers(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, collides, test.ShouldBeTrue)
}

func TestAttachToFixedArticulation(t *testing.T) {
	pw := NewPlanningWorld(golog.NewTestLogger(t))
	_, err := pw.AddArticulation("arm", makeTestArm(t), true)
	test.That(t, err, test.ShouldBeNil)

	// a fixed mount off to the side, clear of the arm
	mount := referenceframe.NewModel("mount")
	geom, err := spatialmath.NewBox(spatialmath.NewZeroPose(), r3.Vector{X: 0.1, Y: 0.1, Z: 0.1}, "")
	test.That(t, err, test.ShouldBeNil)
	base, err := referenceframe.NewStaticFrame("base", spatialmath.NewPoseFromPoint(r3.Vector{Y: 5}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mount.AddFrame(base, "world", geom), test.ShouldBeNil)
	_, err = pw.AddArticulation("mount", mount, false)
	test.That(t, err, test.ShouldBeNil)

	collides, err := pw.Collide(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, collides, test.ShouldBeFalse)

	// cargo attached to the fixed mount, posed to engulf the arm
	err = pw.AttachBox("cargo", "mount", "base",
		spatialmath.NewPoseFromPoint(r3.Vector{X: 1, Y: -5}), r3.Vector{X: 4, Y: 4, Z: 4})
	test.That(t, err, test.ShouldBeNil)

	pose, err := pw.ObjectPose("cargo")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.R3VectorAlmostEqual(pose.Point(), r3.Vector{X: 1}, 1e-9), test.ShouldBeTrue)

	// attached-to-fixed objects are part of the static scene
	collides, err = pw.Collide(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, collides, test.ShouldBeTrue)

	results, err := pw.CollideFull(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(results), test.ShouldBeGreaterThan, 0)
	for _, result := range results {
		test.That(t, result.Scope, test.ShouldEqual, ScopeWithOthers)
		test.That(t, result.EntityName1, test.ShouldEqual, "arm")
		test.That(t, result.EntityName2, test.ShouldEqual, "cargo")
	}

	dist, err := pw.DistanceFull(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dist.Distance, test.ShouldBeLessThan, 0)
	test.That(t, dist.EntityName2, test.ShouldEqual, "cargo")
}
