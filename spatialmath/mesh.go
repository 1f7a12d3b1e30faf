package spatialmath

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/chenzhekl/goply"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"
)

// Mesh is a set of triangles at some pose. Triangle points are in the frame of the mesh.
type Mesh struct {
	pose      Pose
	triangles []*Triangle
	label     string
	file      string

	// worldTris caches the triangles transformed into world frame.
	worldTris []*Triangle
	once      sync.Once
}

// NewMesh creates a mesh from the given triangles and pose.
func NewMesh(pose Pose, triangles []*Triangle, label string) *Mesh {
	return &Mesh{
		pose:      pose,
		triangles: triangles,
		label:     label,
	}
}

// NewMeshFromPLYFile reads a triangle mesh from an ASCII or binary PLY file.
// Only the vertex positions and face indices are used; faces with more than
// three vertices are fanned into triangles.
func NewMeshFromPLYFile(path, label string) (Geometry, error) {
	file, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read mesh file %s", path)
	}
	defer goutils.UncheckedErrorFunc(file.Close)

	ply := goply.New(bufio.NewReader(file))
	vertices := ply.Elements("vertex")
	faces := ply.Elements("face")

	pts := make([]r3.Vector, 0, len(vertices))
	for _, v := range vertices {
		x, ok1 := v["x"].(float64)
		y, ok2 := v["y"].(float64)
		z, ok3 := v["z"].(float64)
		if !ok1 || !ok2 || !ok3 {
			return nil, errors.Errorf("mesh file %s has non-float vertex coordinates", path)
		}
		pts = append(pts, r3.Vector{X: x, Y: y, Z: z})
	}

	triangles := make([]*Triangle, 0, len(faces))
	for _, f := range faces {
		idxIfaces, ok := f["vertex_indices"].([]interface{})
		if !ok {
			return nil, errors.Errorf("mesh file %s is missing vertex_indices", path)
		}
		indices := make([]int, 0, len(idxIfaces))
		for _, idxIface := range idxIfaces {
			idx, err := plyIndex(idxIface)
			if err != nil {
				return nil, errors.Wrapf(err, "mesh file %s", path)
			}
			if idx < 0 || idx >= len(pts) {
				return nil, errors.Errorf("mesh file %s has out of range vertex index %d", path, idx)
			}
			indices = append(indices, idx)
		}
		if len(indices) < 3 {
			return nil, errors.Errorf("mesh file %s has a face with fewer than 3 vertices", path)
		}
		for i := 2; i < len(indices); i++ {
			triangles = append(triangles, NewTriangle(pts[indices[0]], pts[indices[i-1]], pts[indices[i]]))
		}
	}

	return &Mesh{
		pose:      NewZeroPose(),
		triangles: triangles,
		label:     label,
		file:      path,
	}, nil
}

// plyIndex converts the interface types goply produces for list properties into an int.
func plyIndex(v interface{}) (int, error) {
	switch i := v.(type) {
	case int:
		return i, nil
	case int8:
		return int(i), nil
	case int16:
		return int(i), nil
	case int32:
		return int(i), nil
	case int64:
		return int(i), nil
	case uint8:
		return int(i), nil
	case uint16:
		return int(i), nil
	case uint32:
		return int(i), nil
	case float64:
		return int(i), nil
	default:
		return 0, errors.Errorf("unsupported vertex index type %T", v)
	}
}

// String returns a human readable string that represents the mesh.
func (m *Mesh) String() string {
	return fmt.Sprintf("Type: Mesh, Triangles: %d", len(m.triangles))
}

func (m *Mesh) MarshalJSON() ([]byte, error) {
	config, err := NewGeometryConfig(m)
	if err != nil {
		return nil, err
	}
	return json.Marshal(config)
}

// Label returns the label of this mesh.
func (m *Mesh) Label() string {
	return m.label
}

// SetLabel sets the label of this mesh.
func (m *Mesh) SetLabel(label string) {
	m.label = label
}

// Pose returns the pose of the mesh.
func (m *Mesh) Pose() Pose {
	return m.pose
}

// Triangles returns the triangles associated with the mesh, in the mesh frame.
func (m *Mesh) Triangles() []*Triangle {
	return m.triangles
}

// worldTriangles returns the triangles of the mesh transformed into world frame.
func (m *Mesh) worldTriangles() []*Triangle {
	m.once.Do(func() {
		if PoseAlmostEqual(m.pose, NewZeroPose()) {
			m.worldTris = m.triangles
			return
		}
		tris := make([]*Triangle, 0, len(m.triangles))
		for _, t := range m.triangles {
			tris = append(tris, t.transform(m.pose))
		}
		m.worldTris = tris
	})
	return m.worldTris
}

// AlmostEqual compares the mesh with another geometry and checks if they are equivalent.
// Meshes are compared by pose and by their triangle sets in order.
func (m *Mesh) AlmostEqual(g Geometry) bool {
	other, ok := g.(*Mesh)
	if !ok {
		return false
	}
	if len(m.triangles) != len(other.triangles) {
		return false
	}
	if !PoseAlmostEqualEps(m.pose, other.pose, 1e-6) {
		return false
	}
	for i, t := range m.triangles {
		otherPts := other.triangles[i].Points()
		for j, pt := range t.Points() {
			if !R3VectorAlmostEqual(pt, otherPts[j], 1e-8) {
				return false
			}
		}
	}
	return true
}

// Transform premultiplies the mesh pose with a transform, allowing the mesh to be moved in space.
func (m *Mesh) Transform(toPremultiply Pose) Geometry {
	return &Mesh{
		pose:      Compose(toPremultiply, m.pose),
		triangles: m.triangles,
		label:     m.label,
		file:      m.file,
	}
}

// CollidesWith checks if the given mesh collides with the given geometry and returns true if it does.
// IMPORTANT: meshes are not considered solid. A mesh is not guaranteed to represent an enclosed area.
// Collisions are measured against the mesh surface only.
func (m *Mesh) CollidesWith(g Geometry, collisionBufferMM float64) (bool, error) {
	dist, err := m.DistanceFrom(g)
	if err != nil {
		return true, err
	}
	return dist <= collisionBufferMM, nil
}

// DistanceFrom returns the separation distance from the given geometry to the mesh surface.
func (m *Mesh) DistanceFrom(g Geometry) (float64, error) {
	switch other := g.(type) {
	case *box:
		return meshVsMeshDistance(m, other.toMesh()), nil
	case *sphere:
		return meshVsPointDistance(m, other.pose.Point()) - other.radius, nil
	case *capsule:
		return capsuleVsMeshDistance(other, m), nil
	case *point:
		return meshVsPointDistance(m, other.position), nil
	case *Mesh:
		return meshVsMeshDistance(m, other), nil
	default:
		return math.Inf(-1), newCollisionTypeUnsupportedError(m, g)
	}
}

func meshVsPointDistance(m *Mesh, pt r3.Vector) float64 {
	lowDist := math.Inf(1)
	for _, t := range m.worldTriangles() {
		if dist := t.ClosestPointToPoint(pt).Sub(pt).Norm(); dist < lowDist {
			lowDist = dist
		}
	}
	return lowDist
}

// meshVsMeshDistance returns the distance between the closest pair of triangles of the two meshes.
func meshVsMeshDistance(a, b *Mesh) float64 {
	lowDist := math.Inf(1)
	for _, aTri := range a.worldTriangles() {
		for _, bTri := range b.worldTriangles() {
			bestA, bestB := closestPointsTriangleTriangle(aTri, bTri)
			if dist := bestA.Sub(bestB).Norm(); dist < lowDist {
				lowDist = dist
			}
		}
	}
	return lowDist
}
