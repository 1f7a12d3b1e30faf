package spatialmath

import (
	"encoding/json"
	"fmt"
	"math"
	"sync"

	"github.com/golang/geo/r3"

	"github.com/planworld/planworld/utils"
)

// Ordered list of box vertices.
var boxVertices = [8]r3.Vector{
	{X: 1, Y: 1, Z: 1},
	{X: 1, Y: 1, Z: -1},
	{X: 1, Y: -1, Z: 1},
	{X: 1, Y: -1, Z: -1},
	{X: -1, Y: 1, Z: 1},
	{X: -1, Y: 1, Z: -1},
	{X: -1, Y: -1, Z: 1},
	{X: -1, Y: -1, Z: -1},
}

// The sets of indices of the box vertices that tile the box exterior.
var boxTriangles = [12][3]int{
	{0, 1, 3},
	{0, 2, 3},
	{0, 1, 5},
	{0, 4, 5},
	{0, 2, 6},
	{0, 4, 6},
	{7, 1, 3},
	{7, 2, 3},
	{7, 1, 5},
	{7, 4, 5},
	{7, 2, 6},
	{7, 4, 6},
}

// box is a collision geometry that represents a 3D rectangular prism, it has a pose and half size that fully define it.
type box struct {
	center          Pose
	centerPt        r3.Vector
	halfSize        [3]float64
	boundingSphereR float64
	label           string
	mesh            *Mesh
	rotMatrix       *RotationMatrix
	once            sync.Once
}

// NewBox instantiates a new box Geometry.
func NewBox(pose Pose, dims r3.Vector, label string) (Geometry, error) {
	// Negative dimensions not allowed. Zero dimensions are allowed for bounding boxes, etc.
	if dims.X < 0 || dims.Y < 0 || dims.Z < 0 {
		return nil, newBadGeometryDimensionsError(&box{})
	}
	halfSize := dims.Mul(0.5)
	return &box{
		center:          pose,
		centerPt:        pose.Point(),
		halfSize:        [3]float64{halfSize.X, halfSize.Y, halfSize.Z},
		boundingSphereR: halfSize.Norm(),
		label:           label,
	}, nil
}

// String returns a human readable string that represents the box.
func (b *box) String() string {
	return fmt.Sprintf("Type: Box | Position: X:%.1f, Y:%.1f, Z:%.1f | Dims: X:%.0f, Y:%.0f, Z:%.0f",
		b.centerPt.X, b.centerPt.Y, b.centerPt.Z, 2*b.halfSize[0], 2*b.halfSize[1], 2*b.halfSize[2])
}

func (b *box) MarshalJSON() ([]byte, error) {
	config, err := NewGeometryConfig(b)
	if err != nil {
		return nil, err
	}
	return json.Marshal(config)
}

// Label returns the label of this box.
func (b *box) Label() string {
	return b.label
}

// SetLabel sets the label of this box.
func (b *box) SetLabel(label string) {
	b.label = label
}

// Pose returns the pose of the box.
func (b *box) Pose() Pose {
	return b.center
}

// AlmostEqual compares the box with another geometry and checks if they are equivalent.
func (b *box) AlmostEqual(g Geometry) bool {
	other, ok := g.(*box)
	if !ok {
		return false
	}
	for i := 0; i < 3; i++ {
		if !utils.Float64AlmostEqual(b.halfSize[i], other.halfSize[i], 1e-8) {
			return false
		}
	}
	return PoseAlmostEqualEps(b.center, other.center, 1e-6)
}

// Transform premultiplies the box pose with a transform, allowing the box to be moved in space.
func (b *box) Transform(toPremultiply Pose) Geometry {
	p := Compose(toPremultiply, b.center)
	return &box{
		center:          p,
		centerPt:        p.Point(),
		halfSize:        b.halfSize,
		boundingSphereR: b.boundingSphereR,
		label:           b.label,
	}
}

// CollidesWith checks if the given box collides with the given geometry and returns true if it does.
func (b *box) CollidesWith(g Geometry, collisionBufferMM float64) (bool, error) {
	switch other := g.(type) {
	case *box:
		return boxVsBoxCollision(b, other, collisionBufferMM), nil
	case *sphere:
		return sphereVsBoxDistance(other, b) <= collisionBufferMM, nil
	case *capsule:
		return capsuleVsBoxCollision(other, b, collisionBufferMM), nil
	case *point:
		return pointVsBoxCollision(other.position, b, collisionBufferMM), nil
	case *Mesh:
		return other.CollidesWith(b, collisionBufferMM)
	default:
		return true, newCollisionTypeUnsupportedError(b, g)
	}
}

// DistanceFrom returns the separation distance from the given geometry, negative if penetrating.
func (b *box) DistanceFrom(g Geometry) (float64, error) {
	switch other := g.(type) {
	case *box:
		return boxVsBoxDistance(b, other), nil
	case *sphere:
		return sphereVsBoxDistance(other, b), nil
	case *capsule:
		return capsuleVsBoxDistance(other, b), nil
	case *point:
		return pointVsBoxDistance(other.position, b), nil
	case *Mesh:
		return other.DistanceFrom(b)
	default:
		return math.Inf(-1), newCollisionTypeUnsupportedError(b, g)
	}
}

// closestPoint returns the closest point on the specified box to the specified point
// Reference: https://github.com/gszauer/GamePhysicsCookbook/blob/a0b8ee0c39fed6d4b90bb6d2195004dfcf5a1115/Code/Geometry3D.cpp#L165
func (b *box) closestPoint(pt r3.Vector) r3.Vector {
	result := b.centerPt
	direction := pt.Sub(result)
	rm := b.rotationMatrix()
	for i := 0; i < 3; i++ {
		axis := rm.Row(i)
		distance := utils.Clamp(direction.Dot(axis), -b.halfSize[i], b.halfSize[i])
		result = result.Add(axis.Mul(distance))
	}
	return result
}

// pointPenetrationDepth returns the minimum distance needed to move a pt inside the box to the edge of the box.
func (b *box) pointPenetrationDepth(pt r3.Vector) float64 {
	direction := pt.Sub(b.centerPt)
	rm := b.rotationMatrix()
	depth := math.Inf(1)
	for i := 0; i < 3; i++ {
		axis := rm.Row(i)
		projection := direction.Dot(axis)
		if distance := math.Abs(projection - b.halfSize[i]); distance < depth {
			depth = distance
		}
		if distance := math.Abs(projection + b.halfSize[i]); distance < depth {
			depth = distance
		}
	}
	return depth
}

// vertices returns the vertices defining the box.
func (b *box) vertices() []r3.Vector {
	verts := make([]r3.Vector, 0, 8)
	for _, vert := range boxVertices {
		offset := NewPoseFromPoint(r3.Vector{X: vert.X * b.halfSize[0], Y: vert.Y * b.halfSize[1], Z: vert.Z * b.halfSize[2]})
		verts = append(verts, Compose(b.center, offset).Point())
	}
	return verts
}

// toMesh returns a 12-triangle mesh representation of the box, 2 right triangles for each face.
func (b *box) toMesh() *Mesh {
	if b.mesh == nil {
		m := &Mesh{pose: NewZeroPose()}
		triangles := make([]*Triangle, 0, 12)
		verts := b.vertices()
		for _, tri := range boxTriangles {
			triangles = append(triangles, NewTriangle(verts[tri[0]], verts[tri[1]], verts[tri[2]]))
		}
		m.triangles = triangles
		b.mesh = m
	}
	return b.mesh
}

// rotationMatrix returns the cached matrix if it exists, and generates it if not.
func (b *box) rotationMatrix() *RotationMatrix {
	b.once.Do(func() { b.rotMatrix = b.center.Orientation().RotationMatrix() })

	return b.rotMatrix
}

// boxVsBoxCollision takes two boxes as arguments and returns a bool describing if they are in collision.
// Since the separating axis test can exit early if no collision is found, it is more efficient than
// calling boxVsBoxDistance when only a binary answer is needed.
func boxVsBoxCollision(a, b *box, collisionBufferMM float64) bool {
	centerDist := b.centerPt.Sub(a.centerPt)

	// check if there is a distance between bounding spheres to potentially exit early
	if centerDist.Norm()-(a.boundingSphereR+b.boundingSphereR) > collisionBufferMM {
		return false
	}

	rmA := a.rotationMatrix()
	rmB := b.rotationMatrix()

	for i := 0; i < 3; i++ {
		if separatingAxisTest(centerDist, rmA.Row(i), a, b) > collisionBufferMM {
			return false
		}
		if separatingAxisTest(centerDist, rmB.Row(i), a, b) > collisionBufferMM {
			return false
		}
		for j := 0; j < 3; j++ {
			crossProductPlane := rmA.Row(i).Cross(rmB.Row(j))

			// if edges are parallel, this check is already accounted for by one of the face projections
			if !utils.Float64AlmostEqual(crossProductPlane.Norm(), 0, floatEpsilon) {
				if separatingAxisTest(centerDist, crossProductPlane.Normalize(), a, b) > collisionBufferMM {
					return false
				}
			}
		}
	}
	return true
}

// boxVsBoxDistance takes two boxes as arguments and returns a floating point number. If this number is nonpositive it
// represents the penetration depth for the two boxes, which are in collision. If the returned float is positive it
// represents the separation distance for the two boxes, which are not in collision. The penetration depth comes from
// the separating axis theorem and is exact; the separation distance is refined against the boxes' mesh representations,
// since SAT axis projections only lower-bound the distance between separated boxes.
func boxVsBoxDistance(a, b *box) float64 {
	centerDist := b.centerPt.Sub(a.centerPt)

	// check if there is a distance between bounding spheres to potentially exit early
	if boundingSphereDist := centerDist.Norm() - (a.boundingSphereR + b.boundingSphereR); boundingSphereDist > defaultCollisionBufferMM {
		return meshVsMeshDistance(a.toMesh(), b.toMesh())
	}

	rmA := a.rotationMatrix()
	rmB := b.rotationMatrix()

	// iterate over ways to fit a plane between the two boxes, maximizing the separation
	max := math.Inf(-1)
	for i := 0; i < 3; i++ {
		if separation := separatingAxisTest(centerDist, rmA.Row(i), a, b); separation > max {
			max = separation
		}
		if separation := separatingAxisTest(centerDist, rmB.Row(i), a, b); separation > max {
			max = separation
		}
		for j := 0; j < 3; j++ {
			crossProductPlane := rmA.Row(i).Cross(rmB.Row(j))

			// if edges are parallel, this check is already accounted for by one of the face projections
			if !utils.Float64AlmostEqual(crossProductPlane.Norm(), 0, floatEpsilon) {
				if separation := separatingAxisTest(centerDist, crossProductPlane.Normalize(), a, b); separation > max {
					max = separation
				}
			}
		}
	}
	if max > defaultCollisionBufferMM {
		return meshVsMeshDistance(a.toMesh(), b.toMesh())
	}
	return max
}

func pointVsBoxCollision(pt r3.Vector, b *box, collisionBufferMM float64) bool {
	return b.closestPoint(pt).Sub(pt).Norm() <= collisionBufferMM
}

func pointVsBoxDistance(pt r3.Vector, b *box) float64 {
	distance := b.closestPoint(pt).Sub(pt).Norm()
	if distance > 0 {
		return distance
	}
	return -b.pointPenetrationDepth(pt)
}

// separatingAxisTest projects two boxes onto the given plane and compute how much distance is between them along
// this plane. Per the separating hyperplane theorem, if such a plane exists (and a positive number is returned)
// this proves that there is no collision between the boxes
// references:  https://gamedev.stackexchange.com/questions/112883/simple-3d-obb-collision-directx9-c
//
//	https://gamedev.stackexchange.com/questions/25397/obb-vs-obb-collision-detection
func separatingAxisTest(positionDelta, plane r3.Vector, a, b *box) float64 {
	rmA := a.rotationMatrix()
	rmB := b.rotationMatrix()
	sum := math.Abs(positionDelta.Dot(plane))
	for i := 0; i < 3; i++ {
		sum -= math.Abs(rmA.Row(i).Mul(a.halfSize[i]).Dot(plane))
		sum -= math.Abs(rmB.Row(i).Mul(b.halfSize[i]).Dot(plane))
	}
	return sum
}
