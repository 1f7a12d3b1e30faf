// Package spatialmath defines spatial mathematical operations and collision geometries.
// Poses are backed by dual quaternions, which compose cheaply and do not accumulate
// the normalization error of homogeneous matrices.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/dualquat"
	"gonum.org/v1/gonum/num/quat"

	"github.com/planworld/planworld/utils"
)

// Pose represents a 6dof pose, position and orientation, with respect to the origin.
// The Point() method returns the position in (x, y, z) mm coordinates,
// and the Orientation() method returns an Orientation object, which has methods to
// parametrize the rotation in multiple different representations.
type Pose interface {
	Point() r3.Vector
	Orientation() Orientation
}

// dualQuaternion defines functions to perform rigid transformations in 3D.
type dualQuaternion struct {
	dualquat.Number
}

// newDualQuaternion returns a pointer to a new dualQuaternion object whose Quaternion is an
// identity Quaternion. Since the real part of a dual quaternion should be a unit quaternion,
// not all zeroes, this should be used instead of &dualQuaternion{}.
func newDualQuaternion() *dualQuaternion {
	return &dualQuaternion{dualquat.Number{
		Real: quat.Number{Real: 1},
		Dual: quat.Number{},
	}}
}

// NewZeroPose returns a pose at (0,0,0) with no rotation.
func NewZeroPose() Pose {
	return newDualQuaternion()
}

// NewPoseFromPoint takes in a cartesian (x,y,z) and stores it as a vector.
// It will have the same orientation as the frame it is in reference to.
func NewPoseFromPoint(point r3.Vector) Pose {
	q := newDualQuaternion()
	q.setTranslation(point)
	return q
}

// NewPoseFromOrientation takes in an orientation and returns a Pose at the origin with that orientation.
func NewPoseFromOrientation(o Orientation) Pose {
	if o == nil {
		return NewZeroPose()
	}
	q := newDualQuaternion()
	q.Real = Normalize(o.Quaternion())
	return q
}

// NewPose takes in a position and orientation and returns a Pose.
func NewPose(p r3.Vector, o Orientation) Pose {
	q := newDualQuaternion()
	if o != nil {
		q.Real = Normalize(o.Quaternion())
	}
	q.setTranslation(p)
	return q
}

// NewPoseFromAxisAngle takes in a position, rotation axis, and angle and returns a Pose.
func NewPoseFromAxisAngle(point, axis r3.Vector, angle float64) Pose {
	r4 := &R4AA{Theta: angle, RX: axis.X, RY: axis.Y, RZ: axis.Z}
	return NewPose(point, r4)
}

// setTranslation correctly sets the translation component of a dual quaternion whose
// rotation component has already been set.
func (q *dualQuaternion) setTranslation(pt r3.Vector) {
	q.Dual = quat.Scale(0.5, quat.Mul(quat.Number{Imag: pt.X, Jmag: pt.Y, Kmag: pt.Z}, q.Real))
}

// Point returns the cartesian point of the dual quaternion.
func (q *dualQuaternion) Point() r3.Vector {
	// 2 * Dual * Conj(Real) recovers the translation quaternion
	tq := quat.Scale(2, quat.Mul(q.Dual, quat.Conj(q.Real)))
	return r3.Vector{X: tq.Imag, Y: tq.Jmag, Z: tq.Kmag}
}

// Orientation returns the rotation component of the dual quaternion.
func (q *dualQuaternion) Orientation() Orientation {
	return NewOrientationFromQuaternion(q.Real)
}

// dualQuaternionFromPose returns a dual quaternion from a Pose, avoiding a conversion
// if the pose is already one underneath.
func dualQuaternionFromPose(p Pose) *dualQuaternion {
	if q, ok := p.(*dualQuaternion); ok {
		return q
	}
	q := newDualQuaternion()
	q.Real = Normalize(p.Orientation().Quaternion())
	q.setTranslation(p.Point())
	return q
}

// Compose treats Poses as functions A(x) and B(x), and produces a new function C(x) = A(B(x)).
// It converts the poses to dual quaternions and multiplies them together, normalizing the result.
func Compose(a, b Pose) Pose {
	result := &dualQuaternion{dualquat.Mul(dualQuaternionFromPose(a).Number, dualQuaternionFromPose(b).Number)}
	if vecLen := Norm(result.Real); vecLen != 1 {
		result.Real = quat.Scale(1/vecLen, result.Real)
	}
	return result
}

// PoseInverse will return the inverse of a pose. So if a given pose p is the pose of A relative to B,
// PoseInverse(p) will give the pose of B relative to A.
func PoseInverse(p Pose) Pose {
	q := dualQuaternionFromPose(p)
	return &dualQuaternion{dualquat.Inv(q.Number)}
}

// PoseBetween returns the difference between two dualQuaternions, that is, the dq which if
// multiplied by one will give the other.
func PoseBetween(a, b Pose) Pose {
	return Compose(PoseInverse(a), b)
}

// TransformPoint applies a pose to a point, giving the position of that point in the pose's frame.
func TransformPoint(p Pose, pt r3.Vector) r3.Vector {
	return Compose(p, NewPoseFromPoint(pt)).Point()
}

// PoseDelta returns the difference between two dualQuaternion as a six element array
// representing the delta in each dimension: (x, y, z) in mm followed by the R4AA
// axis scaled by the rotation angle in radians.
func PoseDelta(a, b Pose) []float64 {
	ptDelta := b.Point().Sub(a.Point())
	aa := QuatToR4AA(OrientationBetween(a.Orientation(), b.Orientation()).Quaternion())
	return []float64{ptDelta.X, ptDelta.Y, ptDelta.Z, aa.Theta * aa.RX, aa.Theta * aa.RY, aa.Theta * aa.RZ}
}

// PoseAlmostCoincident checks if two poses approximately are at the same cartesian coordinates.
func PoseAlmostCoincident(a, b Pose) bool {
	return PoseAlmostCoincidentEps(a, b, 1e-4)
}

// PoseAlmostCoincidentEps checks if two poses approximately are at the same
// cartesian coordinates, with a user-specified epsilon.
func PoseAlmostCoincidentEps(a, b Pose, epsilon float64) bool {
	return R3VectorAlmostEqual(a.Point(), b.Point(), epsilon)
}

// PoseAlmostEqual checks if two poses are approximately the same, in both position and orientation.
func PoseAlmostEqual(a, b Pose) bool {
	return PoseAlmostEqualEps(a, b, 1e-6)
}

// PoseAlmostEqualEps checks if two poses are approximately the same with a user-specified epsilon.
func PoseAlmostEqualEps(a, b Pose, epsilon float64) bool {
	return PoseAlmostCoincidentEps(a, b, epsilon) && OrientationAlmostEqual(a.Orientation(), b.Orientation())
}

// R3VectorAlmostEqual returns whether two r3 vectors are within a given epsilon of each other in
// every dimension.
func R3VectorAlmostEqual(a, b r3.Vector, epsilon float64) bool {
	return utils.Float64AlmostEqual(a.X, b.X, epsilon) &&
		utils.Float64AlmostEqual(a.Y, b.Y, epsilon) &&
		utils.Float64AlmostEqual(a.Z, b.Z, epsilon)
}

// slerp spherically interpolates between two quaternions. Interpolating this way rather than
// lerping keeps the angular velocity of the rotation constant along the path.
func slerp(qN1, qN2 quat.Number, by float64) quat.Number {
	q1 := Normalize(qN1)
	q2 := Normalize(qN2)
	dot := q1.Real*q2.Real + q1.Imag*q2.Imag + q1.Jmag*q2.Jmag + q1.Kmag*q2.Kmag
	// take the shorter path around the sphere
	if dot < 0 {
		q2 = quat.Scale(-1, q2)
		dot = -dot
	}
	if dot > 0.9995 {
		// quaternions are nearly parallel, lerp and normalize to avoid division by ~zero
		return Normalize(quat.Add(q1, quat.Scale(by, quat.Sub(q2, q1))))
	}
	theta0 := math.Acos(dot)
	theta := theta0 * by
	s1 := math.Cos(theta) - dot*math.Sin(theta)/math.Sin(theta0)
	s2 := math.Sin(theta) / math.Sin(theta0)
	return Normalize(quat.Add(quat.Scale(s1, q1), quat.Scale(s2, q2)))
}

// Interpolate will return a new Pose that has been interpolated the set amount between two poses.
// Note that position and orientation are interpolated separately, then the two are combined.
// by represents the amount to interpolate between the two poses. by=0 will return p1, by=1 will
// return p2, and by=0.5 will return the pose halfway between them.
func Interpolate(p1, p2 Pose, by float64) Pose {
	intQ := newDualQuaternion()
	intQ.Real = slerp(p1.Orientation().Quaternion(), p2.Orientation().Quaternion(), by)
	intQ.setTranslation(p1.Point().Add(p2.Point().Sub(p1.Point()).Mul(by)))
	return intQ
}
