package geometry

import (
	"fmt"

	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/core"
)

// badTriangleEpsilon bounds |e1 x e2| relative to |e1||e2|
const badTriangleEpsilon = 1e-9

// Triangle represents a single triangle defined by three vertices
type Triangle struct {
	V0, V1, V2   core.Vec3 // The three vertices
	CullBackFace bool      // Ignore hits against the back side
	surface      Surface
	edge1, edge2 core.Vec3 // Cached edges from V0
	normal       core.Vec3 // Cached normal vector
	bbox         core.AABB // Cached bounding box
	bad          bool      // Near-zero area, never intersected
}

// NewTriangle creates a new triangle from three vertices.
// Degenerate triangles are flagged here and skipped by Hit.
func NewTriangle(v0, v1, v2 core.Vec3, surface Surface) *Triangle {
	t := &Triangle{
		V0:      v0,
		V1:      v1,
		V2:      v2,
		surface: surface,
	}

	t.edge1 = v1.Subtract(v0)
	t.edge2 = v2.Subtract(v0)
	cross := t.edge1.Cross(t.edge2)
	scale := t.edge1.Length() * t.edge2.Length()
	t.bad = scale == 0 || cross.Length() <= badTriangleEpsilon*scale
	t.normal = cross.Normalize()
	t.bbox = core.NewAABBFromPoints(v0, v1, v2)

	return t
}

func (t *Triangle) isPrimitive() {}

// Hit tests if a ray intersects with the triangle using the Möller-Trumbore algorithm
func (t *Triangle) Hit(ray core.Ray, tMin, tMax float64) (HitRecord, bool) {
	const epsilon = 1e-12

	if t.bad {
		return HitRecord{}, false
	}

	h := ray.Direction.Cross(t.edge2)
	a := t.edge1.Dot(h)

	// a > 0 when the ray travels against the normal (front face)
	if t.CullBackFace {
		if a < epsilon {
			return HitRecord{}, false
		}
	} else if a > -epsilon && a < epsilon {
		return HitRecord{}, false
	}

	f := 1.0 / a
	s := ray.Origin.Subtract(t.V0)
	u := f * s.Dot(h)
	if u < 0.0 || u > 1.0 {
		return HitRecord{}, false
	}

	q := s.Cross(t.edge1)
	v := f * ray.Direction.Dot(q)
	if v < 0.0 || u+v > 1.0 {
		return HitRecord{}, false
	}

	tParam := f * t.edge2.Dot(q)
	if tParam <= tMin || tParam >= tMax {
		return HitRecord{}, false
	}

	hit := HitRecord{T: tParam, Point: ray.At(tParam), Normal: t.normal}
	t.surface.fill(&hit)
	return hit, true
}

// IntersectsAABB runs a separating axis test against the box
func (t *Triangle) IntersectsAABB(box core.AABB) bool {
	if t.bad {
		return false
	}
	return triangleOverlapsBox(box, t.V0, t.V1, t.V2)
}

// BoundingBox returns the axis-aligned bounding box for this triangle
func (t *Triangle) BoundingBox() core.AABB {
	return t.bbox
}

func (t *Triangle) Center() core.Vec3 {
	return t.V0.Add(t.V1).Add(t.V2).Multiply(1.0 / 3.0)
}

func (t *Triangle) Surface() *Surface {
	return &t.surface
}

// Normal returns the triangle's unit normal vector
func (t *Triangle) Normal() core.Vec3 {
	return t.normal
}

// Bad reports whether the triangle was flagged as degenerate
func (t *Triangle) Bad() bool {
	return t.bad
}

func (t *Triangle) Prepare() error {
	if t.bad {
		return &core.GeometryError{
			Primitive: t.String(),
			Reason:    "near-zero cross product",
		}
	}
	return nil
}

func (t *Triangle) String() string {
	return fmt.Sprintf("Triangle(%v, %v, %v)", t.V0, t.V1, t.V2)
}
