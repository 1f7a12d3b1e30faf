package planningworld

import (
	"math/rand"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"

	"github.com/planworld/planworld/referenceframe"
	"github.com/planworld/planworld/spatialmath"
)

// CollisionRequest configures collide queries.
type CollisionRequest struct {
	// Margin widens the collision buffer, geometries closer than it count as colliding.
	Margin float64
	// MaxContacts caps the number of results an enumerating query returns, 0 is unlimited.
	MaxContacts int
}

// DistanceRequest configures distance queries. Distances are exact signed
// minimums over the query scope, so there are currently no tunables; the
// request rides along for API symmetry with collide queries.
type DistanceRequest struct{}

// PlanningWorld is a registry of named articulated models, each flagged
// planned or fixed, and named collision objects, each attached or free.
// Planned articulations are the bodies a planner advances; fixed articulations
// and free objects form the static scene they are checked against.
//
// A world is single threaded. Validity checking writes candidate
// configurations into the world before every query, so callers that shard
// planning across goroutines must give each its own world.
type PlanningWorld struct {
	logger golog.Logger
	random *rand.Rand

	artOrder      []string
	articulations map[string]*ArticulatedModel
	planned       map[string]bool

	objOrder []string
	objects  map[string]*Object

	acm *AllowedCollisionMatrix
}

// NewPlanningWorld creates an empty world.
func NewPlanningWorld(logger golog.Logger) *PlanningWorld {
	return &PlanningWorld{
		logger:        logger,
		random:        rand.New(rand.NewSource(1)),
		articulations: map[string]*ArticulatedModel{},
		planned:       map[string]bool{},
		objects:       map[string]*Object{},
		acm:           NewAllowedCollisionMatrix(),
	}
}

// SetRandomSeed reseeds the world's random source, keeping runs reproducible.
func (pw *PlanningWorld) SetRandomSeed(seed int64) {
	pw.random = rand.New(rand.NewSource(seed))
}

// Random returns the world's owned random source.
func (pw *PlanningWorld) Random() *rand.Rand {
	return pw.random
}

// ACM returns the world's allowed collision matrix.
func (pw *PlanningWorld) ACM() *AllowedCollisionMatrix {
	return pw.acm
}

// AddArticulation registers a model under the given name and returns its
// world-owned wrapper. Articulation names are a namespace of their own,
// independent of object names.
func (pw *PlanningWorld) AddArticulation(name string, model *referenceframe.Model, planned bool) (*ArticulatedModel, error) {
	if _, ok := pw.articulations[name]; ok {
		return nil, NewDuplicateNameError("articulation", name)
	}
	am, err := newArticulatedModel(name, model)
	if err != nil {
		return nil, err
	}
	pw.articulations[name] = am
	pw.artOrder = append(pw.artOrder, name)
	pw.planned[name] = planned
	return am, nil
}

// Articulation returns the named articulation.
func (pw *PlanningWorld) Articulation(name string) (*ArticulatedModel, error) {
	am, ok := pw.articulations[name]
	if !ok {
		return nil, NewNotFoundError("articulation", name)
	}
	return am, nil
}

// ArticulationNames returns the registered articulation names in registry order.
func (pw *PlanningWorld) ArticulationNames() []string {
	out := make([]string, len(pw.artOrder))
	copy(out, pw.artOrder)
	return out
}

// RemoveArticulation deregisters an articulation. It fails while objects are
// still attached to it, callers must detach them first.
func (pw *PlanningWorld) RemoveArticulation(name string) error {
	if _, ok := pw.articulations[name]; !ok {
		return NewNotFoundError("articulation", name)
	}
	for _, objName := range pw.objOrder {
		if attachedTo, _ := pw.objects[objName].AttachedTo(); attachedTo == name {
			return NewObjectAttachedError(objName)
		}
	}
	delete(pw.articulations, name)
	delete(pw.planned, name)
	pw.artOrder = removeName(pw.artOrder, name)
	return nil
}

// SetArticulationPlanned flags an articulation as planned or fixed.
func (pw *PlanningWorld) SetArticulationPlanned(name string, planned bool) error {
	if _, ok := pw.articulations[name]; !ok {
		return NewNotFoundError("articulation", name)
	}
	pw.planned[name] = planned
	return nil
}

// IsArticulationPlanned returns whether the named articulation is planned.
func (pw *PlanningWorld) IsArticulationPlanned(name string) bool {
	return pw.planned[name]
}

// PlannedArticulations returns the planned articulations in registry order.
func (pw *PlanningWorld) PlannedArticulations() []*ArticulatedModel {
	out := []*ArticulatedModel{}
	for _, name := range pw.artOrder {
		if pw.planned[name] {
			out = append(out, pw.articulations[name])
		}
	}
	return out
}

// AddObject registers a collision object. Object names are a namespace of
// their own, independent of articulation names.
func (pw *PlanningWorld) AddObject(obj *Object) error {
	if _, ok := pw.objects[obj.Name()]; ok {
		return NewDuplicateNameError("object", obj.Name())
	}
	pw.objects[obj.Name()] = obj
	pw.objOrder = append(pw.objOrder, obj.Name())
	return nil
}

// Object returns the named collision object.
func (pw *PlanningWorld) Object(name string) (*Object, error) {
	obj, ok := pw.objects[name]
	if !ok {
		return nil, NewNotFoundError("object", name)
	}
	return obj, nil
}

// ObjectNames returns the registered object names in registry order.
func (pw *PlanningWorld) ObjectNames() []string {
	out := make([]string, len(pw.objOrder))
	copy(out, pw.objOrder)
	return out
}

// RemoveObject deregisters a free object. Removing an attached object fails,
// callers must detach first so relative poses are never silently orphaned.
func (pw *PlanningWorld) RemoveObject(name string) error {
	obj, ok := pw.objects[name]
	if !ok {
		return NewNotFoundError("object", name)
	}
	if obj.IsAttached() {
		return NewObjectAttachedError(name)
	}
	delete(pw.objects, name)
	pw.objOrder = removeName(pw.objOrder, name)
	return nil
}

// ObjectPose returns the current world pose of an object, following the link
// it is attached to if any.
func (pw *PlanningWorld) ObjectPose(name string) (spatialmath.Pose, error) {
	obj, ok := pw.objects[name]
	if !ok {
		return nil, NewNotFoundError("object", name)
	}
	return pw.objectWorldPose(obj)
}

func (pw *PlanningWorld) objectWorldPose(obj *Object) (spatialmath.Pose, error) {
	if !obj.IsAttached() {
		return obj.Pose(), nil
	}
	artName, linkName := obj.AttachedTo()
	am, ok := pw.articulations[artName]
	if !ok {
		return nil, NewNotFoundError("articulation", artName)
	}
	linkPose, err := am.LinkPose(linkName)
	if err != nil {
		return nil, err
	}
	return spatialmath.Compose(linkPose, obj.relativePose), nil
}

// AttachRequest describes an attach operation. Exactly one of ObjectName, an
// already registered object, or NewObjectName+Geometry, registered inline,
// must be set. A nil RelativePose keeps the object at its current world pose.
// Omitted TouchLinks default to the attaching link.
type AttachRequest struct {
	Articulation string
	Link         string

	ObjectName string

	NewObjectName string
	Geometry      spatialmath.Geometry

	RelativePose spatialmath.Pose
	TouchLinks   []string
}

// AttachObject binds an object's pose to an articulation link. From then on
// the object's world pose follows the link whenever the articulation moves.
func (pw *PlanningWorld) AttachObject(req AttachRequest) error {
	existing := req.ObjectName != ""
	inline := req.NewObjectName != "" || req.Geometry != nil
	if existing == inline {
		return NewAttachRequestError()
	}

	am, ok := pw.articulations[req.Articulation]
	if !ok {
		return NewNotFoundError("articulation", req.Articulation)
	}
	linkPose, err := am.LinkPose(req.Link)
	if err != nil {
		return err
	}

	var obj *Object
	if existing {
		obj, ok = pw.objects[req.ObjectName]
		if !ok {
			return NewNotFoundError("object", req.ObjectName)
		}
		if obj.IsAttached() {
			return NewObjectAttachedError(req.ObjectName)
		}
	} else {
		if req.NewObjectName == "" || req.Geometry == nil {
			return NewAttachRequestError()
		}
		obj, err = NewObject(req.NewObjectName, req.Geometry)
		if err != nil {
			return err
		}
		if err := pw.AddObject(obj); err != nil {
			return err
		}
	}

	relative := req.RelativePose
	if relative == nil {
		relative = spatialmath.PoseBetween(linkPose, obj.Pose())
	}
	obj.attach(req.Articulation, req.Link, relative, req.TouchLinks)
	return nil
}

// AttachSphere registers a sphere object inline and attaches it to a link at
// the given link-relative pose.
func (pw *PlanningWorld) AttachSphere(name, articulation, link string, relativePose spatialmath.Pose, radius float64) error {
	sphere, err := spatialmath.NewSphere(spatialmath.NewZeroPose(), radius, name)
	if err != nil {
		return err
	}
	return pw.AttachObject(AttachRequest{
		Articulation: articulation, Link: link,
		NewObjectName: name, Geometry: sphere, RelativePose: relativePose,
	})
}

// AttachBox registers a box object inline and attaches it to a link at the
// given link-relative pose.
func (pw *PlanningWorld) AttachBox(name, articulation, link string, relativePose spatialmath.Pose, dims r3.Vector) error {
	box, err := spatialmath.NewBox(spatialmath.NewZeroPose(), dims, name)
	if err != nil {
		return err
	}
	return pw.AttachObject(AttachRequest{
		Articulation: articulation, Link: link,
		NewObjectName: name, Geometry: box, RelativePose: relativePose,
	})
}

// AttachMesh registers a PLY mesh object inline and attaches it to a link at
// the given link-relative pose.
func (pw *PlanningWorld) AttachMesh(name, articulation, link string, relativePose spatialmath.Pose, plyFile string) error {
	mesh, err := spatialmath.NewMeshFromPLYFile(plyFile, name)
	if err != nil {
		return err
	}
	return pw.AttachObject(AttachRequest{
		Articulation: articulation, Link: link,
		NewObjectName: name, Geometry: mesh, RelativePose: relativePose,
	})
}

// DetachObject reverts an attached object to world-fixed at its current world
// pose, optionally also removing it from the registry.
func (pw *PlanningWorld) DetachObject(name string, alsoRemove bool) error {
	obj, ok := pw.objects[name]
	if !ok {
		return NewNotFoundError("object", name)
	}
	if !obj.IsAttached() {
		return NewObjectNotAttachedError(name)
	}
	worldPose, err := pw.objectWorldPose(obj)
	if err != nil {
		return err
	}
	obj.detach(worldPose)
	if alsoRemove {
		return pw.RemoveObject(name)
	}
	return nil
}

// SetQpos replaces the full configuration of the named articulation.
func (pw *PlanningWorld) SetQpos(name string, q []referenceframe.Input) error {
	am, ok := pw.articulations[name]
	if !ok {
		return NewNotFoundError("articulation", name)
	}
	return am.SetQpos(q, true)
}

// SetQposAll takes one concatenated vector spanning the planned articulations
// in registry order, each slice sized to its move group, and dispatches the
// slices. The total length is validated before any articulation is mutated.
func (pw *PlanningWorld) SetQposAll(q []referenceframe.Input) error {
	planned := pw.PlannedArticulations()
	total := 0
	for _, am := range planned {
		total += am.MoveGroupDim()
	}
	if len(q) != total {
		return NewConfigurationLengthError("planned move-group", len(q), total)
	}
	offset := 0
	for _, am := range planned {
		dim := am.MoveGroupDim()
		if err := am.SetQpos(q[offset:offset+dim], false); err != nil {
			return err
		}
		offset += dim
	}
	return nil
}

func removeName(names []string, name string) []string {
	out := names[:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}
