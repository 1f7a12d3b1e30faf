package planningworld

import (
	"fmt"
	"math"
)

// CollisionScope tags a result with the query scope that produced it.
type CollisionScope string

const (
	// ScopeSelf covers planned articulations against themselves and their attached objects.
	ScopeSelf CollisionScope = "self"
	// ScopeWithOthers covers planned bodies against the static scene and each other.
	ScopeWithOthers CollisionScope = "with_others"
)

// WorldCollisionResult records one colliding pair found by a query. Link names
// are empty when the pair is not link granular, e.g. object vs object.
type WorldCollisionResult struct {
	Scope       CollisionScope
	EntityName1 string
	EntityName2 string
	LinkName1   string
	LinkName2   string
}

func (r WorldCollisionResult) String() string {
	return fmt.Sprintf("[%s] %s:%s x %s:%s", r.Scope, r.EntityName1, r.LinkName1, r.EntityName2, r.LinkName2)
}

// WorldDistanceResult records the minimum distance pair found by a query.
// Distance is signed, negative means penetration.
type WorldDistanceResult struct {
	Scope       CollisionScope
	EntityName1 string
	EntityName2 string
	LinkName1   string
	LinkName2   string
	Distance    float64
}

// emptyDistanceResult is returned when a scope contains no checkable pairs.
func emptyDistanceResult() WorldDistanceResult {
	return WorldDistanceResult{Distance: math.Inf(1)}
}
