package planningworld

import (
	"github.com/planworld/planworld/spatialmath"
)

// worldGeometry is one posed geometry participating in a query, with enough
// identity to build a result record and apply pair filters.
type worldGeometry struct {
	entity   string // articulation or object name
	link     string // link name for articulation geometries, empty for objects
	object   *Object
	geometry spatialmath.Geometry
}

// geomPair is one candidate check between two world geometries.
type geomPair struct {
	scope CollisionScope
	a, b  worldGeometry
}

// plannedBody is the collision view of one planned articulation, its link
// geometries and the geometries of the objects attached to it.
type plannedBody struct {
	name     string
	links    []worldGeometry
	attached []worldGeometry
}

func (pw *PlanningWorld) articulationGeometries(am *ArticulatedModel) []worldGeometry {
	geoms := []worldGeometry{}
	for _, lg := range am.Geometries() {
		geoms = append(geoms, worldGeometry{entity: am.Name(), link: lg.LinkName, geometry: lg.Geometry})
	}
	return geoms
}

func (pw *PlanningWorld) attachedGeometries(artName string) ([]worldGeometry, error) {
	geoms := []worldGeometry{}
	for _, objName := range pw.objOrder {
		obj := pw.objects[objName]
		attachedTo, _ := obj.AttachedTo()
		if attachedTo != artName {
			continue
		}
		worldPose, err := pw.objectWorldPose(obj)
		if err != nil {
			return nil, err
		}
		for _, g := range obj.geometriesAtPose(worldPose) {
			geoms = append(geoms, worldGeometry{entity: objName, object: obj, geometry: g})
		}
	}
	return geoms, nil
}

func (pw *PlanningWorld) plannedBodies() ([]plannedBody, error) {
	bodies := []plannedBody{}
	for _, am := range pw.PlannedArticulations() {
		attached, err := pw.attachedGeometries(am.Name())
		if err != nil {
			return nil, err
		}
		bodies = append(bodies, plannedBody{
			name:     am.Name(),
			links:    pw.articulationGeometries(am),
			attached: attached,
		})
	}
	return bodies, nil
}

// staticGeometries are the fixed articulations' links, the objects attached
// to them, and the free objects. Objects attached to a fixed articulation
// ride with it but still belong to the static scene.
func (pw *PlanningWorld) staticGeometries() ([]worldGeometry, error) {
	geoms := []worldGeometry{}
	for _, name := range pw.artOrder {
		if pw.planned[name] {
			continue
		}
		geoms = append(geoms, pw.articulationGeometries(pw.articulations[name])...)
		attached, err := pw.attachedGeometries(name)
		if err != nil {
			return nil, err
		}
		geoms = append(geoms, attached...)
	}
	for _, objName := range pw.objOrder {
		obj := pw.objects[objName]
		if obj.IsAttached() {
			continue
		}
		for _, g := range obj.geometriesAtPose(obj.Pose()) {
			geoms = append(geoms, worldGeometry{entity: objName, object: obj, geometry: g})
		}
	}
	return geoms, nil
}

// touchExempt returns whether an articulation link geometry is exempt from
// checks against an attached object because it is one of the object's touch links.
func touchExempt(link, object worldGeometry) bool {
	if object.object == nil || link.link == "" {
		return false
	}
	attachedTo, _ := object.object.AttachedTo()
	return attachedTo == link.entity && object.object.isTouchLink(link.link)
}

// selfPairs enumerates the self scope: per planned articulation, its link
// pairs filtered by the allowed collision matrix, its links against its own
// attached objects filtered by touch links, and its attached objects pairwise.
func (pw *PlanningWorld) selfPairs() ([]geomPair, error) {
	bodies, err := pw.plannedBodies()
	if err != nil {
		return nil, err
	}
	pairs := []geomPair{}
	for _, body := range bodies {
		for i := 0; i < len(body.links); i++ {
			for j := i + 1; j < len(body.links); j++ {
				a, b := body.links[i], body.links[j]
				if pw.acm.Allowed(a.entity+":"+a.link, b.entity+":"+b.link) {
					continue
				}
				pairs = append(pairs, geomPair{ScopeSelf, a, b})
			}
		}
		for _, link := range body.links {
			for _, attached := range body.attached {
				if touchExempt(link, attached) {
					continue
				}
				pairs = append(pairs, geomPair{ScopeSelf, link, attached})
			}
		}
		for i := 0; i < len(body.attached); i++ {
			for j := i + 1; j < len(body.attached); j++ {
				a, b := body.attached[i], body.attached[j]
				if a.entity == b.entity {
					continue
				}
				pairs = append(pairs, geomPair{ScopeSelf, a, b})
			}
		}
	}
	return pairs, nil
}

// withOthersPairs enumerates the with-others scope: each planned body, links
// plus attached objects, against the static scene and against every other
// planned body.
func (pw *PlanningWorld) withOthersPairs() ([]geomPair, error) {
	bodies, err := pw.plannedBodies()
	if err != nil {
		return nil, err
	}
	static, err := pw.staticGeometries()
	if err != nil {
		return nil, err
	}
	pairs := []geomPair{}
	for i, body := range bodies {
		side := append(append([]worldGeometry{}, body.links...), body.attached...)
		for _, a := range side {
			for _, b := range static {
				pairs = append(pairs, geomPair{ScopeWithOthers, a, b})
			}
		}
		for j := i + 1; j < len(bodies); j++ {
			other := append(append([]worldGeometry{}, bodies[j].links...), bodies[j].attached...)
			for _, a := range side {
				for _, b := range other {
					pairs = append(pairs, geomPair{ScopeWithOthers, a, b})
				}
			}
		}
	}
	return pairs, nil
}

func (pw *PlanningWorld) fullPairs() ([]geomPair, error) {
	selfScope, err := pw.selfPairs()
	if err != nil {
		return nil, err
	}
	others, err := pw.withOthersPairs()
	if err != nil {
		return nil, err
	}
	return append(selfScope, others...), nil
}

func requestBuffer(req *CollisionRequest) float64 {
	buffer := spatialmath.CollisionBuffer
	if req != nil {
		buffer += req.Margin
	}
	return buffer
}

// collideAny short-circuits on the first colliding pair.
func collideAny(pairs []geomPair, req *CollisionRequest) (bool, error) {
	buffer := requestBuffer(req)
	for _, pair := range pairs {
		collides, err := pair.a.geometry.CollidesWith(pair.b.geometry, buffer)
		if err != nil {
			return false, err
		}
		if collides {
			return true, nil
		}
	}
	return false, nil
}

// collideAll enumerates every colliding pair, capped by MaxContacts if set.
func collideAll(pairs []geomPair, req *CollisionRequest) ([]WorldCollisionResult, error) {
	buffer := requestBuffer(req)
	maxContacts := 0
	if req != nil {
		maxContacts = req.MaxContacts
	}
	results := []WorldCollisionResult{}
	for _, pair := range pairs {
		collides, err := pair.a.geometry.CollidesWith(pair.b.geometry, buffer)
		if err != nil {
			return nil, err
		}
		if !collides {
			continue
		}
		results = append(results, WorldCollisionResult{
			Scope:       pair.scope,
			EntityName1: pair.a.entity,
			EntityName2: pair.b.entity,
			LinkName1:   pair.a.link,
			LinkName2:   pair.b.link,
		})
		if maxContacts > 0 && len(results) >= maxContacts {
			break
		}
	}
	return results, nil
}

// minDistance scans every pair and returns the most penetrating or closest
// one. It never returns an arbitrary pair, the scan is exhaustive.
func minDistance(pairs []geomPair) (WorldDistanceResult, error) {
	best := emptyDistanceResult()
	for _, pair := range pairs {
		dist, err := pair.a.geometry.DistanceFrom(pair.b.geometry)
		if err != nil {
			return WorldDistanceResult{}, err
		}
		if dist < best.Distance {
			best = WorldDistanceResult{
				Scope:       pair.scope,
				EntityName1: pair.a.entity,
				EntityName2: pair.b.entity,
				LinkName1:   pair.a.link,
				LinkName2:   pair.b.link,
				Distance:    dist,
			}
		}
	}
	return best, nil
}

// SelfCollide reports whether any self-scope pair collides, short-circuiting
// on the first hit.
func (pw *PlanningWorld) SelfCollide(req *CollisionRequest) (bool, error) {
	pairs, err := pw.selfPairs()
	if err != nil {
		return false, err
	}
	return collideAny(pairs, req)
}

// CollideWithOthers reports whether any planned body collides with the static
// scene or another planned body, short-circuiting on the first hit.
func (pw *PlanningWorld) CollideWithOthers(req *CollisionRequest) (bool, error) {
	pairs, err := pw.withOthersPairs()
	if err != nil {
		return false, err
	}
	return collideAny(pairs, req)
}

// Collide reports whether anything in the full scope collides,
// short-circuiting on the first hit. This is the call on a planner's hot path.
func (pw *PlanningWorld) Collide(req *CollisionRequest) (bool, error) {
	pairs, err := pw.fullPairs()
	if err != nil {
		return false, err
	}
	return collideAny(pairs, req)
}

// CollideFull enumerates every colliding pair in the full scope.
func (pw *PlanningWorld) CollideFull(req *CollisionRequest) ([]WorldCollisionResult, error) {
	pairs, err := pw.fullPairs()
	if err != nil {
		return nil, err
	}
	return collideAll(pairs, req)
}

// DistanceSelf returns the minimum signed distance over the self scope.
func (pw *PlanningWorld) DistanceSelf(req *DistanceRequest) (WorldDistanceResult, error) {
	pairs, err := pw.selfPairs()
	if err != nil {
		return WorldDistanceResult{}, err
	}
	return minDistance(pairs)
}

// DistanceWithOthers returns the minimum signed distance over the with-others scope.
func (pw *PlanningWorld) DistanceWithOthers(req *DistanceRequest) (WorldDistanceResult, error) {
	pairs, err := pw.withOthersPairs()
	if err != nil {
		return WorldDistanceResult{}, err
	}
	return minDistance(pairs)
}

// DistanceFull returns the minimum signed distance over the union of the self
// and with-others scopes. It always equals the smaller of DistanceSelf and
// DistanceWithOthers.
func (pw *PlanningWorld) DistanceFull(req *DistanceRequest) (WorldDistanceResult, error) {
	pairs, err := pw.fullPairs()
	if err != nil {
		return WorldDistanceResult{}, err
	}
	return minDistance(pairs)
}

// Distance is the full-scope minimum signed distance, negative when
// penetrating. Clearance oracles use it.
func (pw *PlanningWorld) Distance(req *DistanceRequest) (WorldDistanceResult, error) {
	return pw.DistanceFull(req)
}
