package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// angleEpsilon is the amount two angles may differ while still being considered equal for
// the purpose of doing math around the poles of orientation.
const angleEpsilon = 1e-8

// Orientation is the rotation component of a pose, convertible between representations.
type Orientation interface {
	Quaternion() quat.Number
	AxisAngles() *R4AA
	RotationMatrix() *RotationMatrix
}

// NewZeroOrientation returns an orientation which signifies no rotation.
func NewZeroOrientation() Orientation {
	return &quaternion{Real: 1}
}

// quaternion is the canonical orientation implementation; all other representations convert
// through it.
type quaternion quat.Number

// NewOrientationFromQuaternion returns an Orientation from the given quaternion.
func NewOrientationFromQuaternion(q quat.Number) Orientation {
	qq := quaternion(q)
	return &qq
}

func (q *quaternion) Quaternion() quat.Number {
	return quat.Number(*q)
}

func (q *quaternion) AxisAngles() *R4AA {
	return QuatToR4AA(q.Quaternion())
}

func (q *quaternion) RotationMatrix() *RotationMatrix {
	return QuatToRotationMatrix(q.Quaternion())
}

// R4AA represents an R4 axis angle; the axis is normalized on construction.
type R4AA struct {
	Theta float64 `json:"th"`
	RX    float64 `json:"x"`
	RY    float64 `json:"y"`
	RZ    float64 `json:"z"`
}

// NewR4AA creates an empty R4AA struct.
func NewR4AA() *R4AA {
	return &R4AA{0, 1, 0, 0}
}

// Quaternion returns the quaternion representation of the R4AA.
func (r4 *R4AA) Quaternion() quat.Number {
	r4.Normalize()
	sinA := math.Sin(r4.Theta / 2)
	return quat.Number{
		Real: math.Cos(r4.Theta / 2),
		Imag: sinA * r4.RX,
		Jmag: sinA * r4.RY,
		Kmag: sinA * r4.RZ,
	}
}

// AxisAngles returns the R4AA itself, satisfying the Orientation interface.
func (r4 *R4AA) AxisAngles() *R4AA {
	return r4
}

// RotationMatrix converts the R4AA to a rotation matrix through its quaternion.
func (r4 *R4AA) RotationMatrix() *RotationMatrix {
	return QuatToRotationMatrix(r4.Quaternion())
}

// Normalize scales the axis of the R4AA to unit length. A zero axis becomes +Z.
func (r4 *R4AA) Normalize() {
	norm := math.Sqrt(r4.RX*r4.RX + r4.RY*r4.RY + r4.RZ*r4.RZ)
	if norm == 0 {
		r4.RX, r4.RY, r4.RZ = 0, 0, 1
		return
	}
	r4.RX /= norm
	r4.RY /= norm
	r4.RZ /= norm
}

// ToR3 returns the axis of the R4AA as an r3.Vector, ignoring the angle.
func (r4 *R4AA) ToR3() r3.Vector {
	return r3.Vector{X: r4.RX, Y: r4.RY, Z: r4.RZ}
}

// QuatToR4AA converts a quaternion to an R4 axis angle in the same way the C++ Eigen library does.
func QuatToR4AA(q quat.Number) *R4AA {
	denom := Norm(q)
	angle := 2 * math.Atan2(math.Sqrt(q.Imag*q.Imag+q.Jmag*q.Jmag+q.Kmag*q.Kmag), q.Real)
	if angle < angleEpsilon {
		return &R4AA{0, 1, 0, 0}
	}
	return &R4AA{angle, q.Imag / denom, q.Jmag / denom, q.Kmag / denom}
}

// RotationMatrix is a 3x3 rotation matrix stored row major.
type RotationMatrix struct {
	mat [9]float64
}

// NewRotationMatrix creates a rotation matrix from a row major slice of 9 floats.
func NewRotationMatrix(mat [9]float64) *RotationMatrix {
	return &RotationMatrix{mat}
}

// Row returns the a row of the rotation matrix.
func (rm *RotationMatrix) Row(row int) r3.Vector {
	return r3.Vector{X: rm.mat[row*3], Y: rm.mat[row*3+1], Z: rm.mat[row*3+2]}
}

// At returns the float corresponding to the i'th row and j'th column.
func (rm *RotationMatrix) At(row, col int) float64 {
	return rm.mat[row*3+col]
}

// Mul returns the matrix product of the rotation matrix and the given vector.
func (rm *RotationMatrix) Mul(v r3.Vector) r3.Vector {
	return r3.Vector{
		X: rm.mat[0]*v.X + rm.mat[1]*v.Y + rm.mat[2]*v.Z,
		Y: rm.mat[3]*v.X + rm.mat[4]*v.Y + rm.mat[5]*v.Z,
		Z: rm.mat[6]*v.X + rm.mat[7]*v.Y + rm.mat[8]*v.Z,
	}
}

// Quaternion returns the quaternion representation of the rotation matrix.
func (rm *RotationMatrix) Quaternion() quat.Number {
	// Shepperd's method for stability
	m := rm.mat
	tr := m[0] + m[4] + m[8]
	var q quat.Number
	switch {
	case tr > 0:
		s := 0.5 / math.Sqrt(tr+1.0)
		q = quat.Number{Real: 0.25 / s, Imag: (m[7] - m[5]) * s, Jmag: (m[2] - m[6]) * s, Kmag: (m[3] - m[1]) * s}
	case m[0] > m[4] && m[0] > m[8]:
		s := 2.0 * math.Sqrt(1.0+m[0]-m[4]-m[8])
		q = quat.Number{Real: (m[7] - m[5]) / s, Imag: 0.25 * s, Jmag: (m[1] + m[3]) / s, Kmag: (m[2] + m[6]) / s}
	case m[4] > m[8]:
		s := 2.0 * math.Sqrt(1.0+m[4]-m[0]-m[8])
		q = quat.Number{Real: (m[2] - m[6]) / s, Imag: (m[1] + m[3]) / s, Jmag: 0.25 * s, Kmag: (m[5] + m[7]) / s}
	default:
		s := 2.0 * math.Sqrt(1.0+m[8]-m[0]-m[4])
		q = quat.Number{Real: (m[3] - m[1]) / s, Imag: (m[2] + m[6]) / s, Jmag: (m[5] + m[7]) / s, Kmag: 0.25 * s}
	}
	return Normalize(q)
}

// AxisAngles returns the R4AA representation of the rotation matrix.
func (rm *RotationMatrix) AxisAngles() *R4AA {
	return QuatToR4AA(rm.Quaternion())
}

// RotationMatrix returns the rotation matrix itself, satisfying the Orientation interface.
func (rm *RotationMatrix) RotationMatrix() *RotationMatrix {
	return rm
}

// QuatToRotationMatrix converts a quaternion to a rotation matrix.
func QuatToRotationMatrix(q quat.Number) *RotationMatrix {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return &RotationMatrix{[9]float64{
		1 - 2*y*y - 2*z*z, 2*x*y - 2*z*w, 2*x*z + 2*y*w,
		2*x*y + 2*z*w, 1 - 2*x*x - 2*z*z, 2*y*z - 2*x*w,
		2*x*z - 2*y*w, 2*y*z + 2*x*w, 1 - 2*x*x - 2*y*y,
	}}
}

// Norm returns the norm of the quaternion.
func Norm(q quat.Number) float64 {
	return math.Sqrt(q.Real*q.Real + q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
}

// Normalize a quaternion, returning its, versor (unit quaternion).
func Normalize(q quat.Number) quat.Number {
	length := Norm(q)
	if math.Abs(length-1.0) < 1e-10 {
		return q
	}
	if length == 0 {
		return quat.Number{Real: 1}
	}
	if length == math.Inf(1) {
		length = float64(math.MaxFloat64)
	}
	return quat.Number{Real: q.Real / length, Imag: q.Imag / length, Jmag: q.Jmag / length, Kmag: q.Kmag / length}
}

// OrientationBetween returns the orientation representing the rotation from o1 to o2.
func OrientationBetween(o1, o2 Orientation) Orientation {
	q := Normalize(quat.Mul(o2.Quaternion(), quat.Conj(o1.Quaternion())))
	return NewOrientationFromQuaternion(q)
}

// OrientationAlmostEqual returns whether two orientations differ by less than a small epsilon.
func OrientationAlmostEqual(o1, o2 Orientation) bool {
	return QuatToR4AA(OrientationBetween(o1, o2).Quaternion()).Theta < 1e-4
}
