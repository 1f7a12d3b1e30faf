package referenceframe

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/planworld/planworld/spatialmath"
)

// makeTwoJointArm builds a planar 2R arm with two unit length links, each
// carrying a box geometry centered along the link.
func makeTwoJointArm(t *testing.T) *Model {
	t.Helper()
	m := NewModel("arm")

	j1, err := NewRotationalFrame("joint1", spatialmath.R4AA{RZ: 1}, Limit{Min: -math.Pi, Max: math.Pi})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.AddFrame(j1, "world", nil), test.ShouldBeNil)

	geom1, err := spatialmath.NewBox(spatialmath.NewPoseFromPoint(r3.Vector{X: -0.5}), r3.Vector{X: 1, Y: 0.1, Z: 0.1}, "")
	test.That(t, err, test.ShouldBeNil)
	l1, err := NewStaticFrame("link1", spatialmath.NewPoseFromPoint(r3.Vector{X: 1}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.AddFrame(l1, "joint1", geom1), test.ShouldBeNil)

	j2, err := NewRotationalFrame("joint2", spatialmath.R4AA{RZ: 1}, Limit{Min: -math.Pi, Max: math.Pi})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.AddFrame(j2, "link1", nil), test.ShouldBeNil)

	geom2, err := spatialmath.NewBox(spatialmath.NewPoseFromPoint(r3.Vector{X: -0.5}), r3.Vector{X: 1, Y: 0.1, Z: 0.1}, "")
	test.That(t, err, test.ShouldBeNil)
	l2, err := NewStaticFrame("link2", spatialmath.NewPoseFromPoint(r3.Vector{X: 1}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.AddFrame(l2, "joint2", geom2), test.ShouldBeNil)

	return m
}

func TestModelForwardKinematics(t *testing.T) {
	m := makeTwoJointArm(t)
	test.That(t, m.JointNames(), test.ShouldResemble, []string{"joint1", "joint2"})
	test.That(t, len(m.DoF()), test.ShouldEqual, 2)

	// straight out along X
	pose, err := m.Transform(FloatsToInputs([]float64{0, 0}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.R3VectorAlmostEqual(pose.Point(), r3.Vector{X: 2}, 1e-8), test.ShouldBeTrue)

	// base joint rotated up
	pose, err = m.Transform(FloatsToInputs([]float64{math.Pi / 2, 0}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.R3VectorAlmostEqual(pose.Point(), r3.Vector{Y: 2}, 1e-8), test.ShouldBeTrue)

	// elbow bent
	pose, err = m.LinkPose(FloatsToInputs([]float64{0, math.Pi / 2}), "link2")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.R3VectorAlmostEqual(pose.Point(), r3.Vector{X: 1, Y: 1}, 1e-8), test.ShouldBeTrue)

	// elbow link unaffected by the elbow joint
	pose, err = m.LinkPose(FloatsToInputs([]float64{0, math.Pi / 2}), "link1")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.R3VectorAlmostEqual(pose.Point(), r3.Vector{X: 1}, 1e-8), test.ShouldBeTrue)

	// wrong input count errors
	_, err = m.Transform(FloatsToInputs([]float64{0}))
	test.That(t, err, test.ShouldNotBeNil)

	// unknown link errors
	_, err = m.LinkPose(FloatsToInputs([]float64{0, 0}), "missing")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestModelGeometries(t *testing.T) {
	m := makeTwoJointArm(t)
	geoms, err := m.Geometries(FloatsToInputs([]float64{0, 0}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(geoms), test.ShouldEqual, 2)
	test.That(t, geoms[0].LinkName, test.ShouldEqual, "link1")
	test.That(t, geoms[0].Geometry.Label(), test.ShouldEqual, "arm:link1")
	// link1 box center sits at the middle of the first link
	test.That(t, spatialmath.R3VectorAlmostEqual(geoms[0].Geometry.Pose().Point(), r3.Vector{X: 0.5}, 1e-8), test.ShouldBeTrue)
	test.That(t, spatialmath.R3VectorAlmostEqual(geoms[1].Geometry.Pose().Point(), r3.Vector{X: 1.5}, 1e-8), test.ShouldBeTrue)
}

func TestChainJointIndexes(t *testing.T) {
	m := makeTwoJointArm(t)

	indexes, err := m.ChainJointIndexes("link1")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, indexes, test.ShouldResemble, []int{0})

	indexes, err = m.ChainJointIndexes("link2")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, indexes, test.ShouldResemble, []int{0, 1})

	// multiple targets share joints without duplication
	indexes, err = m.ChainJointIndexes("link1", "link2")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, indexes, test.ShouldResemble, []int{0, 1})

	_, err = m.ChainJointIndexes("missing")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestReorderJoints(t *testing.T) {
	m := makeTwoJointArm(t)
	test.That(t, m.ReorderJoints([]string{"joint2", "joint1"}), test.ShouldBeNil)
	test.That(t, m.JointNames(), test.ShouldResemble, []string{"joint2", "joint1"})

	// inputs are now interpreted in the new order
	pose, err := m.LinkPose(FloatsToInputs([]float64{math.Pi / 2, 0}), "link1")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.R3VectorAlmostEqual(pose.Point(), r3.Vector{X: 1}, 1e-8), test.ShouldBeTrue)

	indexes, err := m.ChainJointIndexes("link1")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, indexes, test.ShouldResemble, []int{1})

	// bad orders are rejected
	test.That(t, m.ReorderJoints([]string{"joint1"}), test.ShouldNotBeNil)
	test.That(t, m.ReorderJoints([]string{"joint1", "joint1"}), test.ShouldNotBeNil)
	test.That(t, m.ReorderJoints([]string{"joint1", "link1"}), test.ShouldNotBeNil)
}

func TestAreJointPositionsValid(t *testing.T) {
	m := makeTwoJointArm(t)
	test.That(t, m.AreJointPositionsValid(FloatsToInputs([]float64{0, 0})), test.ShouldBeTrue)
	test.That(t, m.AreJointPositionsValid(FloatsToInputs([]float64{4, 0})), test.ShouldBeFalse)
	test.That(t, m.AreJointPositionsValid(FloatsToInputs([]float64{0})), test.ShouldBeFalse)
}

func TestParseModelJSON(t *testing.T) {
	jsonData := []byte(`{
		"name": "simple",
		"kinematic_param_type": "frames",
		"links": [
			{"id": "base", "parent": "world"},
			{
				"id": "upper",
				"parent": "waist",
				"translation": {"X": 0, "Y": 0, "Z": 100},
				"geometry": {"type": "box", "x": 40, "y": 40, "z": 100, "translation": {"Z": -50}}
			}
		],
		"joints": [
			{"id": "waist", "type": "revolute", "parent": "base", "axis": {"Z": 1}, "max": 180, "min": -180}
		]
	}`)
	m, err := UnmarshalModelJSON(jsonData, "")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.Name(), test.ShouldEqual, "simple")
	test.That(t, m.JointNames(), test.ShouldResemble, []string{"waist"})

	limits := m.DoF()
	test.That(t, limits[0].Min, test.ShouldAlmostEqual, -math.Pi)
	test.That(t, limits[0].Max, test.ShouldAlmostEqual, math.Pi)

	pose, err := m.LinkPose(FloatsToInputs([]float64{0}), "upper")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.R3VectorAlmostEqual(pose.Point(), r3.Vector{Z: 100}, 1e-8), test.ShouldBeTrue)
}

func TestParseDHModel(t *testing.T) {
	jsonData := []byte(`{
		"name": "dh2r",
		"kinematic_param_type": "DH",
		"dhParams": [
			{"id": "shoulder", "parent": "world", "a": 1, "d": 0, "alpha": 0, "max": 180, "min": -180},
			{"id": "elbow", "parent": "shoulder", "a": 1, "d": 0, "alpha": 0, "max": 180, "min": -180}
		]
	}`)
	m, err := UnmarshalModelJSON(jsonData, "")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.JointNames(), test.ShouldResemble, []string{"shoulder", "elbow"})

	pose, err := m.Transform(FloatsToInputs([]float64{0, 0}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.R3VectorAlmostEqual(pose.Point(), r3.Vector{X: 2}, 1e-8), test.ShouldBeTrue)

	pose, err = m.Transform(FloatsToInputs([]float64{math.Pi / 2, -math.Pi / 2}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.R3VectorAlmostEqual(pose.Point(), r3.Vector{X: 1, Y: 1}, 1e-8), test.ShouldBeTrue)
}

func TestParseURDF(t *testing.T) {
	xmlData := []byte(`<?xml version="1.0"?>
<robot name="planar2r">
  <link name="base_link">
    <collision>
      <geometry><box size="0.2 0.2 0.1"/></geometry>
    </collision>
  </link>
  <link name="link1">
    <collision>
      <origin xyz="0.5 0 0"/>
      <geometry><cylinder radius="0.05" length="1.0"/></geometry>
    </collision>
  </link>
  <link name="link2"/>
  <joint name="joint1" type="revolute">
    <parent link="base_link"/>
    <child link="link1"/>
    <axis xyz="0 0 1"/>
    <limit lower="-3.14" upper="3.14"/>
  </joint>
  <joint name="joint2" type="continuous">
    <origin xyz="1 0 0"/>
    <parent link="link1"/>
    <child link="link2"/>
    <axis xyz="0 0 1"/>
  </joint>
</robot>`)
	m, err := UnmarshalURDF(xmlData, "")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.Name(), test.ShouldEqual, "planar2r")
	test.That(t, m.JointNames(), test.ShouldResemble, []string{"joint1", "joint2"})

	// the continuous joint is unbounded
	limits := m.DoF()
	test.That(t, limits[0].Min, test.ShouldAlmostEqual, -3.14)
	test.That(t, math.IsInf(limits[1].Min, -1), test.ShouldBeTrue)
	test.That(t, math.IsInf(limits[1].Max, 1), test.ShouldBeTrue)

	pose, err := m.LinkPose(FloatsToInputs([]float64{0, 0}), "link2")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.R3VectorAlmostEqual(pose.Point(), r3.Vector{X: 1}, 1e-8), test.ShouldBeTrue)

	pose, err = m.LinkPose(FloatsToInputs([]float64{math.Pi / 2, 0}), "link2")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.R3VectorAlmostEqual(pose.Point(), r3.Vector{Y: 1}, 1e-8), test.ShouldBeTrue)

	geoms, err := m.Geometries(FloatsToInputs([]float64{0, 0}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(geoms), test.ShouldEqual, 2)
}
