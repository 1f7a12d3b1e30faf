package spatialmath

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"github.com/planworld/planworld/utils"
)

// sphere is a collision geometry that represents a sphere, it has a pose and a radius that fully define it.
type sphere struct {
	pose   Pose
	radius float64
	label  string
}

// NewSphere instantiates a new sphere Geometry.
func NewSphere(pose Pose, radius float64, label string) (Geometry, error) {
	if radius < 0 {
		return nil, newBadGeometryDimensionsError(&sphere{})
	}
	return &sphere{pose, radius, label}, nil
}

// String returns a human readable string that represents the sphere.
func (s *sphere) String() string {
	pt := s.pose.Point()
	return fmt.Sprintf("Type: Sphere | Position: X:%.1f, Y:%.1f, Z:%.1f | Radius: %.0f", pt.X, pt.Y, pt.Z, s.radius)
}

func (s *sphere) MarshalJSON() ([]byte, error) {
	config, err := NewGeometryConfig(s)
	if err != nil {
		return nil, err
	}
	return json.Marshal(config)
}

// Label returns the label of this sphere.
func (s *sphere) Label() string {
	return s.label
}

// SetLabel sets the label of this sphere.
func (s *sphere) SetLabel(label string) {
	s.label = label
}

// Pose returns the pose of the sphere.
func (s *sphere) Pose() Pose {
	return s.pose
}

// AlmostEqual compares the sphere with another geometry and checks if they are equivalent.
func (s *sphere) AlmostEqual(g Geometry) bool {
	other, ok := g.(*sphere)
	if !ok {
		return false
	}
	return PoseAlmostEqual(s.pose, other.pose) && utils.Float64AlmostEqual(s.radius, other.radius, 1e-8)
}

// Transform premultiplies the sphere pose with a transform, allowing the sphere to be moved in space.
func (s *sphere) Transform(toPremultiply Pose) Geometry {
	return &sphere{Compose(toPremultiply, s.pose), s.radius, s.label}
}

// CollidesWith checks if the given sphere collides with the given geometry and returns true if it does.
func (s *sphere) CollidesWith(g Geometry, collisionBufferMM float64) (bool, error) {
	dist, err := s.DistanceFrom(g)
	if err != nil {
		return true, err
	}
	return dist <= collisionBufferMM, nil
}

// DistanceFrom returns the separation distance from the given geometry, negative if penetrating.
func (s *sphere) DistanceFrom(g Geometry) (float64, error) {
	switch other := g.(type) {
	case *box:
		return sphereVsBoxDistance(s, other), nil
	case *sphere:
		return sphereVsSphereDistance(s, other), nil
	case *capsule:
		return capsuleVsSphereDistance(other, s), nil
	case *point:
		return sphereVsPointDistance(s, other.position), nil
	case *Mesh:
		return other.DistanceFrom(s)
	default:
		return math.Inf(-1), newCollisionTypeUnsupportedError(s, g)
	}
}

func sphereVsPointDistance(s *sphere, pt r3.Vector) float64 {
	return s.pose.Point().Sub(pt).Norm() - s.radius
}

func sphereVsSphereDistance(a, b *sphere) float64 {
	return a.pose.Point().Sub(b.pose.Point()).Norm() - (a.radius + b.radius)
}

func sphereVsBoxDistance(s *sphere, b *box) float64 {
	return pointVsBoxDistance(s.pose.Point(), b) - s.radius
}
