package geometry

import (
	"fmt"

	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/core"
)

// Mesh is an indexed triangle soup sharing one surface.
// Meshes are flattened into their triangles before the voxel grid is built,
// so Hit here is only a fallback for direct use.
type Mesh struct {
	Vertices  []core.Vec3
	Faces     []int // Each group of 3 indices forms a triangle
	surface   Surface
	triangles []*Triangle
	bbox      core.AABB
}

// NewMesh creates a mesh from vertices and face indices
func NewMesh(vertices []core.Vec3, faces []int, surface Surface) (*Mesh, error) {
	if len(faces)%3 != 0 {
		return nil, fmt.Errorf("face indices must be a multiple of 3, got %d", len(faces))
	}
	for i, idx := range faces {
		if idx < 0 || idx >= len(vertices) {
			return nil, fmt.Errorf("face index %d at position %d out of bounds (%d vertices)", idx, i, len(vertices))
		}
	}

	m := &Mesh{
		Vertices: vertices,
		Faces:    faces,
		surface:  surface,
		bbox:     core.EmptyAABB(),
	}
	m.triangles = make([]*Triangle, 0, len(faces)/3)
	for i := 0; i < len(faces); i += 3 {
		t := NewTriangle(vertices[faces[i]], vertices[faces[i+1]], vertices[faces[i+2]], surface)
		m.triangles = append(m.triangles, t)
		m.bbox = m.bbox.Union(t.BoundingBox())
	}
	return m, nil
}

// NewGridMesh tessellates a rows x cols grid of vertices, stored row-major,
// into a pair of triangles per quad
func NewGridMesh(vertices []core.Vec3, rows, cols int, surface Surface) (*Mesh, error) {
	if rows < 2 || cols < 2 {
		return nil, fmt.Errorf("grid mesh needs at least 2x2 vertices, got %dx%d", rows, cols)
	}
	if len(vertices) != rows*cols {
		return nil, fmt.Errorf("grid mesh expects %d vertices, got %d", rows*cols, len(vertices))
	}

	faces := make([]int, 0, (rows-1)*(cols-1)*6)
	for r := 0; r < rows-1; r++ {
		for c := 0; c < cols-1; c++ {
			i0 := r*cols + c
			i1 := i0 + 1
			i2 := i0 + cols + 1
			i3 := i0 + cols
			faces = append(faces, i0, i1, i2, i0, i2, i3)
		}
	}
	return NewMesh(vertices, faces, surface)
}

func (m *Mesh) isPrimitive() {}

// Hit tests every triangle and keeps the nearest
func (m *Mesh) Hit(ray core.Ray, tMin, tMax float64) (HitRecord, bool) {
	var closest HitRecord
	found := false
	for _, t := range m.triangles {
		if hit, ok := t.Hit(ray, tMin, tMax); ok {
			closest = hit
			tMax = hit.T
			found = true
		}
	}
	return closest, found
}

func (m *Mesh) IntersectsAABB(box core.AABB) bool {
	if !m.bbox.Overlaps(box) {
		return false
	}
	for _, t := range m.triangles {
		if t.IntersectsAABB(box) {
			return true
		}
	}
	return false
}

// BoundingBox returns the axis-aligned bounding box for the entire mesh
func (m *Mesh) BoundingBox() core.AABB {
	return m.bbox
}

func (m *Mesh) Center() core.Vec3 {
	return m.bbox.Center()
}

func (m *Mesh) Surface() *Surface {
	return &m.surface
}

// Prepare fails only when the mesh has no usable triangle.
// Individual bad triangles are dropped when the mesh is flattened.
func (m *Mesh) Prepare() error {
	for _, t := range m.triangles {
		if !t.Bad() {
			return nil
		}
	}
	return &core.GeometryError{Primitive: m.String(), Reason: "no non-degenerate triangles"}
}

// SetCullBackFace toggles back-face culling on every triangle.
// Call before rendering starts.
func (m *Mesh) SetCullBackFace(cull bool) {
	for _, t := range m.triangles {
		t.CullBackFace = cull
	}
}

// TriangleCount returns the number of triangles in this mesh
func (m *Mesh) TriangleCount() int {
	return len(m.triangles)
}

// Triangles returns the individual triangles
func (m *Mesh) Triangles() []*Triangle {
	return m.triangles
}

func (m *Mesh) String() string {
	return fmt.Sprintf("Mesh(%d vertices, %d triangles)", len(m.Vertices), len(m.triangles))
}

// Flatten replaces every mesh with its triangles, keeping other primitives in order.
// Bad mesh triangles are dropped since they can never be hit.
func Flatten(primitives []Primitive) []Primitive {
	out := make([]Primitive, 0, len(primitives))
	for _, p := range primitives {
		mesh, ok := p.(*Mesh)
		if !ok {
			out = append(out, p)
			continue
		}
		for _, t := range mesh.triangles {
			if !t.Bad() {
				out = append(out, t)
			}
		}
	}
	return out
}
