package planningworld

import (
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/planworld/planworld/spatialmath"
)

// Object is a named collision object in a planning world. It is either free,
// posed in world frame, or attached to a link of an articulated model, posed
// relative to that link. Attached objects cannot be repositioned directly,
// they follow the articulation they ride on.
type Object struct {
	name       string
	geometries []spatialmath.Geometry // in object frame
	pose       spatialmath.Pose       // world pose while free

	attachedTo   string // articulation name, empty while free
	attachedLink string
	relativePose spatialmath.Pose
	touchLinks   map[string]bool
}

// NewObject creates a free object from one or more geometries expressed in the
// object's own frame, posed at the world origin.
func NewObject(name string, geometries ...spatialmath.Geometry) (*Object, error) {
	if len(geometries) == 0 {
		return nil, errors.Errorf("object %q must have at least one geometry", name)
	}
	return &Object{
		name:       name,
		geometries: geometries,
		pose:       spatialmath.NewZeroPose(),
		touchLinks: map[string]bool{},
	}, nil
}

// NewSphereObject creates a free object with a single sphere geometry at the given world pose.
func NewSphereObject(name string, pose spatialmath.Pose, radius float64) (*Object, error) {
	sphere, err := spatialmath.NewSphere(spatialmath.NewZeroPose(), radius, name)
	if err != nil {
		return nil, err
	}
	obj, err := NewObject(name, sphere)
	if err != nil {
		return nil, err
	}
	obj.pose = pose
	return obj, nil
}

// NewBoxObject creates a free object with a single box geometry at the given world pose.
func NewBoxObject(name string, pose spatialmath.Pose, dims r3.Vector) (*Object, error) {
	box, err := spatialmath.NewBox(spatialmath.NewZeroPose(), dims, name)
	if err != nil {
		return nil, err
	}
	obj, err := NewObject(name, box)
	if err != nil {
		return nil, err
	}
	obj.pose = pose
	return obj, nil
}

// NewMeshObject creates a free object from a PLY mesh file at the given world pose.
func NewMeshObject(name string, pose spatialmath.Pose, plyFile string) (*Object, error) {
	mesh, err := spatialmath.NewMeshFromPLYFile(plyFile, name)
	if err != nil {
		return nil, err
	}
	obj, err := NewObject(name, mesh)
	if err != nil {
		return nil, err
	}
	obj.pose = pose
	return obj, nil
}

// NewPointCloudObject creates a free object from a set of points in the object
// frame. Points occupy no volume on their own; checks against them measure
// distance to the nearest point.
func NewPointCloudObject(name string, pose spatialmath.Pose, points []r3.Vector) (*Object, error) {
	if len(points) == 0 {
		return nil, errors.Errorf("point cloud object %q must have at least one point", name)
	}
	geometries := make([]spatialmath.Geometry, 0, len(points))
	for i, pt := range points {
		geometries = append(geometries, spatialmath.NewPoint(pt, fmt.Sprintf("%s:%d", name, i)))
	}
	obj, err := NewObject(name, geometries...)
	if err != nil {
		return nil, err
	}
	obj.pose = pose
	return obj, nil
}

// Name returns the name of the object.
func (o *Object) Name() string {
	return o.name
}

// IsAttached returns whether the object is attached to an articulation link.
func (o *Object) IsAttached() bool {
	return o.attachedTo != ""
}

// AttachedTo returns the articulation and link the object is attached to,
// empty strings while free.
func (o *Object) AttachedTo() (string, string) {
	return o.attachedTo, o.attachedLink
}

// Pose returns the object's world pose while free, or the last world pose it
// was placed at before attachment. Attached objects get their current world
// pose from the world, which knows the link poses.
func (o *Object) Pose() spatialmath.Pose {
	return o.pose
}

// SetPose repositions a free object in world frame. Attached objects cannot be
// repositioned, they move with their link.
func (o *Object) SetPose(pose spatialmath.Pose) error {
	if o.IsAttached() {
		return NewObjectAttachedError(o.name)
	}
	o.pose = pose
	return nil
}

// isTouchLink returns whether the named link is exempt from collision against this object.
func (o *Object) isTouchLink(linkName string) bool {
	return o.touchLinks[linkName]
}

// geometriesAtPose returns the object's geometries posed at the given world pose.
func (o *Object) geometriesAtPose(worldPose spatialmath.Pose) []spatialmath.Geometry {
	posed := make([]spatialmath.Geometry, 0, len(o.geometries))
	for _, g := range o.geometries {
		posed = append(posed, g.Transform(worldPose))
	}
	return posed
}

// attach binds the object to a link. Omitted touch links default to the attaching link.
func (o *Object) attach(articulationName, linkName string, relativePose spatialmath.Pose, touchLinks []string) {
	o.attachedTo = articulationName
	o.attachedLink = linkName
	o.relativePose = relativePose
	o.touchLinks = map[string]bool{}
	if len(touchLinks) == 0 {
		touchLinks = []string{linkName}
	}
	for _, link := range touchLinks {
		o.touchLinks[link] = true
	}
}

// detach reverts the object to world-fixed at the given pose.
func (o *Object) detach(worldPose spatialmath.Pose) {
	o.attachedTo = ""
	o.attachedLink = ""
	o.relativePose = nil
	o.touchLinks = map[string]bool{}
	o.pose = worldPose
}
