package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// ClosestPointSegmentPoint takes a line segment defined by pt1 and pt2, as well as some other
// point, and returns the point on the segment closest to the other point.
func ClosestPointSegmentPoint(pt1, pt2, point r3.Vector) r3.Vector {
	ab := pt2.Sub(pt1)
	abLen := ab.Norm2()
	if abLen < floatEpsilon {
		return pt1
	}
	t := point.Sub(pt1).Dot(ab) / abLen
	if t <= 0 {
		return pt1
	} else if t >= 1 {
		return pt2
	}
	return pt1.Add(ab.Mul(t))
}

// DistToLineSegment takes a line segment defined by pt1 and pt2, as well as some other point,
// and returns the cartesian distance of the other point from the line segment.
func DistToLineSegment(pt1, pt2, point r3.Vector) float64 {
	return point.Sub(ClosestPointSegmentPoint(pt1, pt2, point)).Norm()
}

// ClosestPointsSegmentSegment computes the closest points on two line segments (ap1, ap2) and
// (bp1, bp2). Reference: Ericson, "Real-Time Collision Detection", Ch. 5.1.9.
func ClosestPointsSegmentSegment(ap1, ap2, bp1, bp2 r3.Vector) (r3.Vector, r3.Vector) {
	d1 := ap2.Sub(ap1)
	d2 := bp2.Sub(bp1)
	r := ap1.Sub(bp1)
	a := d1.Norm2()
	e := d2.Norm2()
	f := d2.Dot(r)

	var s, t float64
	switch {
	case a <= floatEpsilon && e <= floatEpsilon:
		// both segments degenerate to points
		return ap1, bp1
	case a <= floatEpsilon:
		s = 0
		t = clamp01(f / e)
	default:
		c := d1.Dot(r)
		if e <= floatEpsilon {
			t = 0
			s = clamp01(-c / a)
		} else {
			b := d1.Dot(d2)
			denom := a*e - b*b
			if denom > floatEpsilon {
				s = clamp01((b*f - c*e) / denom)
			} else {
				// parallel segments, pick an arbitrary s
				s = 0
			}
			t = (b*s + f) / e
			if t < 0 {
				t = 0
				s = clamp01(-c / a)
			} else if t > 1 {
				t = 1
				s = clamp01((b - c) / a)
			}
		}
	}
	return ap1.Add(d1.Mul(s)), bp1.Add(d2.Mul(t))
}

// SegmentDistanceToSegment returns the distance between the closest points of two line segments.
func SegmentDistanceToSegment(ap1, ap2, bp1, bp2 r3.Vector) float64 {
	bestA, bestB := ClosestPointsSegmentSegment(ap1, ap2, bp1, bp2)
	return bestA.Sub(bestB).Norm()
}

// closestPointsSegmentTriangle returns the closest point on the segment (ap1, ap2) and the
// closest point on the triangle, in that order. If the segment intersects the triangle's plane
// within the triangle, that intersection is the closest pair.
func closestPointsSegmentTriangle(ap1, ap2 r3.Vector, t *Triangle) (r3.Vector, r3.Vector) {
	// If the segment intersects the plane of the triangle inside the triangle, distance is zero.
	if segPt, triPt, ok := segmentPlaneIntersectingPoint(ap1, ap2, t); ok {
		return segPt, triPt
	}

	// Otherwise the closest pair involves either a segment endpoint or a triangle edge.
	bestSeg := ap1
	bestTri := t.ClosestPointToPoint(ap1)
	bestDist := bestSeg.Sub(bestTri).Norm2()

	if triPt := t.ClosestPointToPoint(ap2); ap2.Sub(triPt).Norm2() < bestDist {
		bestSeg, bestTri = ap2, triPt
		bestDist = bestSeg.Sub(bestTri).Norm2()
	}

	pts := t.Points()
	for i := 0; i < 3; i++ {
		segPt, edgePt := ClosestPointsSegmentSegment(ap1, ap2, pts[i], pts[(i+1)%3])
		if d := segPt.Sub(edgePt).Norm2(); d < bestDist {
			bestSeg, bestTri = segPt, edgePt
			bestDist = d
		}
	}
	return bestSeg, bestTri
}

// segmentPlaneIntersectingPoint returns the point at which the given segment crosses the
// triangle's plane, if that crossing lies within the triangle.
func segmentPlaneIntersectingPoint(ap1, ap2 r3.Vector, t *Triangle) (r3.Vector, r3.Vector, bool) {
	d1 := t.normal.Dot(ap1.Sub(t.p0))
	d2 := t.normal.Dot(ap2.Sub(t.p0))
	if d1*d2 > 0 {
		return r3.Vector{}, r3.Vector{}, false
	}
	denom := d1 - d2
	if math.Abs(denom) < floatEpsilon {
		return r3.Vector{}, r3.Vector{}, false
	}
	pt := ap1.Add(ap2.Sub(ap1).Mul(d1 / denom))
	if inside, ok := t.ClosestInsidePoint(pt); ok {
		return pt, inside, true
	}
	return r3.Vector{}, r3.Vector{}, false
}

// closestPointsTriangleTriangle returns the closest points between two triangles. Degenerate
// triangles are tolerated, their edges are checked like any others.
func closestPointsTriangleTriangle(t1, t2 *Triangle) (r3.Vector, r3.Vector) {
	bestDist := math.Inf(1)
	var best1, best2 r3.Vector
	pts1 := t1.Points()
	for i := 0; i < 3; i++ {
		segPt, triPt := closestPointsSegmentTriangle(pts1[i], pts1[(i+1)%3], t2)
		if d := segPt.Sub(triPt).Norm2(); d < bestDist {
			best1, best2 = segPt, triPt
			bestDist = d
		}
	}
	pts2 := t2.Points()
	for i := 0; i < 3; i++ {
		segPt, triPt := closestPointsSegmentTriangle(pts2[i], pts2[(i+1)%3], t1)
		if d := segPt.Sub(triPt).Norm2(); d < bestDist {
			best1, best2 = triPt, segPt
			bestDist = d
		}
	}
	return best1, best2
}

// PlaneNormal returns the plane normal of the triangle defined by the three given points.
func PlaneNormal(p0, p1, p2 r3.Vector) r3.Vector {
	n := p1.Sub(p0).Cross(p2.Sub(p0))
	if n.Norm() < floatEpsilon {
		// degenerate triangle, any unit vector will do
		return r3.Vector{X: 0, Y: 0, Z: 1}
	}
	return n.Normalize()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func transformPointsToPose(pts []r3.Vector, pose Pose) []r3.Vector {
	transformed := make([]r3.Vector, 0, len(pts))
	for _, pt := range pts {
		transformed = append(transformed, TransformPoint(pose, pt))
	}
	return transformed
}
