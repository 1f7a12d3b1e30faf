package spatialmath

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/golang/geo/r3"
)

// point is a collision geometry that represents a single point in 3D space that occupies no volume.
type point struct {
	position r3.Vector
	label    string
}

// NewPoint instantiates a new point Geometry.
func NewPoint(pt r3.Vector, label string) Geometry {
	return &point{pt, label}
}

// String returns a human readable string that represents the point.
func (pt *point) String() string {
	return fmt.Sprintf("Type: Point | Position: X:%.1f, Y:%.1f, Z:%.1f", pt.position.X, pt.position.Y, pt.position.Z)
}

func (pt *point) MarshalJSON() ([]byte, error) {
	config, err := NewGeometryConfig(pt)
	if err != nil {
		return nil, err
	}
	return json.Marshal(config)
}

// Label returns the label of this point.
func (pt *point) Label() string {
	return pt.label
}

// SetLabel sets the label of this point.
func (pt *point) SetLabel(label string) {
	pt.label = label
}

// Pose returns the pose of the point.
func (pt *point) Pose() Pose {
	return NewPoseFromPoint(pt.position)
}

// AlmostEqual compares the point with another geometry and checks if they are equivalent.
func (pt *point) AlmostEqual(g Geometry) bool {
	other, ok := g.(*point)
	if !ok {
		return false
	}
	return R3VectorAlmostEqual(pt.position, other.position, 1e-8)
}

// Transform premultiplies the point pose with a transform, allowing the point to be moved in space.
func (pt *point) Transform(toPremultiply Pose) Geometry {
	return &point{TransformPoint(toPremultiply, pt.position), pt.label}
}

// CollidesWith checks if the given point collides with the given geometry and returns true if it does.
func (pt *point) CollidesWith(g Geometry, collisionBufferMM float64) (bool, error) {
	dist, err := pt.DistanceFrom(g)
	if err != nil {
		return true, err
	}
	return dist <= collisionBufferMM, nil
}

// DistanceFrom returns the distance from the point to the given geometry, negative if penetrating.
func (pt *point) DistanceFrom(g Geometry) (float64, error) {
	switch other := g.(type) {
	case *box:
		return pointVsBoxDistance(pt.position, other), nil
	case *sphere:
		return sphereVsPointDistance(other, pt.position), nil
	case *capsule:
		return capsuleVsPointDistance(other, pt.position), nil
	case *point:
		return pt.position.Sub(other.position).Norm(), nil
	case *Mesh:
		return other.DistanceFrom(pt)
	default:
		return math.Inf(-1), newCollisionTypeUnsupportedError(pt, g)
	}
}
