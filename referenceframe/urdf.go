package referenceframe

import (
	"encoding/xml"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/planworld/planworld/spatialmath"
)

// urdfConfig is the root of a URDF robot description.
type urdfConfig struct {
	XMLName xml.Name    `xml:"robot"`
	Name    string      `xml:"name,attr"`
	Links   []urdfLink  `xml:"link"`
	Joints  []urdfJoint `xml:"joint"`
}

type urdfLink struct {
	Name      string          `xml:"name,attr"`
	Collision []urdfCollision `xml:"collision"`
}

type urdfCollision struct {
	Origin   *urdfOrigin  `xml:"origin"`
	Geometry urdfGeometry `xml:"geometry"`
}

type urdfGeometry struct {
	Box *struct {
		Size string `xml:"size,attr"`
	} `xml:"box"`
	Sphere *struct {
		Radius float64 `xml:"radius,attr"`
	} `xml:"sphere"`
	Cylinder *struct {
		Radius float64 `xml:"radius,attr"`
		Length float64 `xml:"length,attr"`
	} `xml:"cylinder"`
	Mesh *struct {
		Filename string `xml:"filename,attr"`
	} `xml:"mesh"`
}

type urdfOrigin struct {
	XYZ string `xml:"xyz,attr"`
	RPY string `xml:"rpy,attr"`
}

type urdfJoint struct {
	Name   string      `xml:"name,attr"`
	Type   string      `xml:"type,attr"`
	Origin *urdfOrigin `xml:"origin"`
	Parent struct {
		Link string `xml:"link,attr"`
	} `xml:"parent"`
	Child struct {
		Link string `xml:"link,attr"`
	} `xml:"child"`
	Axis *struct {
		XYZ string `xml:"xyz,attr"`
	} `xml:"axis"`
	Limit *struct {
		Lower float64 `xml:"lower,attr"`
		Upper float64 `xml:"upper,attr"`
	} `xml:"limit"`
}

// ParseURDFFile reads a URDF robot description and converts it into a Model.
// Only the kinematic structure and collision geometries are used. If modelName
// is empty the name from the URDF is used.
func ParseURDFFile(filename, modelName string) (*Model, error) {
	xmlData, err := os.ReadFile(filename) //nolint:gosec
	if err != nil {
		return nil, errors.Wrap(err, "failed to read URDF file")
	}
	return UnmarshalURDF(xmlData, modelName)
}

// UnmarshalURDF converts raw URDF XML into a Model.
func UnmarshalURDF(xmlData []byte, modelName string) (*Model, error) {
	urdf := &urdfConfig{}
	if err := xml.Unmarshal(xmlData, urdf); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal URDF")
	}
	if modelName == "" {
		modelName = urdf.Name
	}
	if len(urdf.Links) == 0 {
		return nil, ErrNoModelInformation
	}

	geometries := map[string]spatialmath.Geometry{}
	for _, link := range urdf.Links {
		if len(link.Collision) == 0 {
			continue
		}
		// Only the first collision element of each link is used.
		geometry, err := link.Collision[0].toGeometry(link.Name)
		if err != nil {
			return nil, err
		}
		geometries[link.Name] = geometry
	}

	// Links that never appear as a joint child are roots of the tree.
	isChild := map[string]bool{}
	for _, joint := range urdf.Joints {
		isChild[joint.Child.Link] = true
	}

	specs := make([]frameSpec, 0, len(urdf.Links)+2*len(urdf.Joints))
	for _, link := range urdf.Links {
		if isChild[link.Name] {
			continue
		}
		link := link
		specs = append(specs, frameSpec{link.Name, "world", func() (Frame, spatialmath.Geometry, error) {
			return NewZeroStaticFrame(link.Name), geometries[link.Name], nil
		}})
	}
	for _, joint := range urdf.Joints {
		joint := joint
		originName := joint.Name + "_origin"
		specs = append(specs, frameSpec{originName, joint.Parent.Link, func() (Frame, spatialmath.Geometry, error) {
			origin, err := originToPose(joint.Origin)
			if err != nil {
				return nil, nil, err
			}
			frame, err := NewStaticFrame(originName, origin)
			return frame, nil, err
		}})

		childParent := originName
		if joint.Type != "fixed" {
			childParent = joint.Name
			specs = append(specs, frameSpec{joint.Name, originName, func() (Frame, spatialmath.Geometry, error) {
				frame, err := joint.toFrame()
				return frame, nil, err
			}})
		}
		childName := joint.Child.Link
		specs = append(specs, frameSpec{childName, childParent, func() (Frame, spatialmath.Geometry, error) {
			return NewZeroStaticFrame(childName), geometries[childName], nil
		}})
	}
	return assembleTree(modelName, specs)
}

func (j *urdfJoint) toFrame() (Frame, error) {
	axis := r3.Vector{Z: 1}
	if j.Axis != nil {
		parsed, err := spaceDelimitedVector(j.Axis.XYZ)
		if err != nil {
			return nil, errors.Wrapf(err, "bad axis for joint %q", j.Name)
		}
		axis = parsed
	}
	limit := FreeLimit
	if j.Limit != nil {
		limit = Limit{Min: j.Limit.Lower, Max: j.Limit.Upper}
	}
	switch j.Type {
	case "revolute":
		return NewRotationalFrame(j.Name, spatialmath.R4AA{RX: axis.X, RY: axis.Y, RZ: axis.Z}, limit)
	case "continuous":
		return NewRotationalFrame(j.Name, spatialmath.R4AA{RX: axis.X, RY: axis.Y, RZ: axis.Z}, FreeLimit)
	case "prismatic":
		return NewTranslationalFrame(j.Name, axis, limit)
	default:
		return nil, NewUnsupportedJointTypeError(j.Type)
	}
}

func (collision *urdfCollision) toGeometry(linkName string) (spatialmath.Geometry, error) {
	origin, err := originToPose(collision.Origin)
	if err != nil {
		return nil, errors.Wrapf(err, "bad collision origin for link %q", linkName)
	}
	geom := collision.Geometry
	switch {
	case geom.Box != nil:
		size, err := spaceDelimitedVector(geom.Box.Size)
		if err != nil {
			return nil, errors.Wrapf(err, "bad box size for link %q", linkName)
		}
		return spatialmath.NewBox(origin, size, linkName)
	case geom.Sphere != nil:
		return spatialmath.NewSphere(origin, geom.Sphere.Radius, linkName)
	case geom.Cylinder != nil:
		// Cylinders are approximated by capsules of at least twice the radius in length.
		length := math.Max(geom.Cylinder.Length, 2*geom.Cylinder.Radius)
		return spatialmath.NewCapsule(origin, geom.Cylinder.Radius, length, linkName)
	case geom.Mesh != nil:
		mesh, err := spatialmath.NewMeshFromPLYFile(geom.Mesh.Filename, linkName)
		if err != nil {
			return nil, err
		}
		return mesh.Transform(origin), nil
	default:
		return nil, errors.Errorf("link %q has a collision element with no supported geometry", linkName)
	}
}

// originToPose converts a URDF origin, xyz translation plus fixed-axis
// roll-pitch-yaw rotation, into a Pose. A nil origin is the identity.
func originToPose(origin *urdfOrigin) (spatialmath.Pose, error) {
	if origin == nil {
		return spatialmath.NewZeroPose(), nil
	}
	xyz := r3.Vector{}
	if origin.XYZ != "" {
		parsed, err := spaceDelimitedVector(origin.XYZ)
		if err != nil {
			return nil, err
		}
		xyz = parsed
	}
	rpy := r3.Vector{}
	if origin.RPY != "" {
		parsed, err := spaceDelimitedVector(origin.RPY)
		if err != nil {
			return nil, err
		}
		rpy = parsed
	}
	// URDF rpy is extrinsic XYZ, R = Rz(yaw) Ry(pitch) Rx(roll)
	rot := spatialmath.Compose(
		spatialmath.NewPoseFromAxisAngle(r3.Vector{}, r3.Vector{Z: 1}, rpy.Z),
		spatialmath.Compose(
			spatialmath.NewPoseFromAxisAngle(r3.Vector{}, r3.Vector{Y: 1}, rpy.Y),
			spatialmath.NewPoseFromAxisAngle(r3.Vector{}, r3.Vector{X: 1}, rpy.X),
		),
	)
	return spatialmath.NewPose(xyz, rot.Orientation()), nil
}

func spaceDelimitedVector(s string) (r3.Vector, error) {
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return r3.Vector{}, errors.Errorf("expected 3 space-delimited values, got %q", s)
	}
	floats := make([]float64, 3)
	for i, field := range fields {
		f, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return r3.Vector{}, errors.Wrapf(err, "bad float %q", field)
		}
		floats[i] = f
	}
	return r3.Vector{X: floats[0], Y: floats[1], Z: floats[2]}, nil
}
