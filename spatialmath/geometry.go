package spatialmath

import (
	"encoding/json"
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// defaultCollisionBufferMM is the default distance, in mm, at which two geometries are
// considered to be touching. Collision margins from query requests are added on top of it.
const defaultCollisionBufferMM = 1e-8

// CollisionBuffer is the default collision buffer, exported for callers that
// add margins on top of it.
const CollisionBuffer = defaultCollisionBufferMM

// floatEpsilon is used to check for parallel vectors and degenerate triangles.
const floatEpsilon = 1e-8

// Geometry is an entry point with which to access all types of collision geometries.
type Geometry interface {
	// Pose returns the pose of the geometry's reference point in its current frame.
	Pose() Pose

	// Transform premultiplies the geometry's pose, returning a re-posed copy. The receiver
	// is never mutated; attached and registered geometries rely on this.
	Transform(Pose) Geometry

	// CollidesWith returns whether the geometry is within collisionBufferMM of the given geometry.
	CollidesWith(g Geometry, collisionBufferMM float64) (bool, error)

	// DistanceFrom returns the separation distance from the given geometry, negative if penetrating.
	DistanceFrom(Geometry) (float64, error)

	Label() string
	SetLabel(string)
	AlmostEqual(Geometry) bool
	json.Marshaler
}

// GeometryConfig specifies the format of geometries specified through JSON configuration files.
type GeometryConfig struct {
	Type string `json:"type"`

	// parameters used for defining a box's rectangular cross-section
	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`
	Z float64 `json:"z,omitempty"`

	// parameters used for defining a sphere or capsule's radius and a capsule's length
	R float64 `json:"r,omitempty"`
	L float64 `json:"l,omitempty"`

	// parameter used for defining a mesh, path to a PLY file
	File string `json:"file,omitempty"`

	// pose of the geometry relative to the frame it is a part of
	TranslationOffset r3.Vector `json:"translation,omitempty"`
	OrientationOffset R4AA      `json:"orientation,omitempty"`

	Label string `json:"label,omitempty"`
}

// ParseConfig converts a GeometryConfig into the Geometry it describes.
func (config *GeometryConfig) ParseConfig() (Geometry, error) {
	offset := NewPose(config.TranslationOffset, &config.OrientationOffset)
	switch config.Type {
	case "box":
		return NewBox(offset, r3.Vector{X: config.X, Y: config.Y, Z: config.Z}, config.Label)
	case "sphere":
		return NewSphere(offset, config.R, config.Label)
	case "capsule":
		return NewCapsule(offset, config.R, config.L, config.Label)
	case "point":
		return NewPoint(offset.Point(), config.Label), nil
	case "mesh":
		return NewMeshFromPLYFile(config.File, config.Label)
	case "":
		// no geometry defined for the frame
		return nil, nil
	}
	return nil, newGeometryTypeUnsupportedError(config.Type)
}

// NewGeometryConfig creates a config for the given geometry so that it can be serialized.
func NewGeometryConfig(g Geometry) (*GeometryConfig, error) {
	config := &GeometryConfig{
		TranslationOffset: g.Pose().Point(),
		OrientationOffset: *g.Pose().Orientation().AxisAngles(),
		Label:             g.Label(),
	}
	switch gt := g.(type) {
	case *box:
		config.Type = "box"
		config.X = 2 * gt.halfSize[0]
		config.Y = 2 * gt.halfSize[1]
		config.Z = 2 * gt.halfSize[2]
	case *sphere:
		config.Type = "sphere"
		config.R = gt.radius
	case *capsule:
		config.Type = "capsule"
		config.R = gt.radius
		config.L = gt.length
	case *point:
		config.Type = "point"
	case *Mesh:
		config.Type = "mesh"
		config.File = gt.file
	default:
		return nil, newGeometryTypeUnsupportedError(fmt.Sprintf("%T", g))
	}
	return config, nil
}

func newGeometryTypeUnsupportedError(geometryType string) error {
	return errors.Errorf("unsupported geometry type %q", geometryType)
}

func newBadGeometryDimensionsError(g Geometry) error {
	return errors.Errorf("invalid dimensions for geometry of type %T", g)
}

func newCollisionTypeUnsupportedError(g1, g2 Geometry) error {
	return errors.Errorf("collision checking between %T and %T is not supported", g1, g2)
}
