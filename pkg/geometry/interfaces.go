package geometry

import (
	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/core"
)

// Primitive is a renderable object. The set is closed: Box, Sphere,
// Triangle and Mesh are the only implementations.
type Primitive interface {
	// BoundingBox returns the precomputed axis-aligned bounds
	BoundingBox() core.AABB
	Center() core.Vec3
	// Hit reports the nearest intersection with t in (tMin, tMax)
	Hit(ray core.Ray, tMin, tMax float64) (HitRecord, bool)
	// IntersectsAABB is the exact overlap test used when registering
	// the primitive in the voxel grid. It is never used while shading.
	IntersectsAABB(box core.AABB) bool
	// Prepare validates the primitive once before rendering and returns a
	// *core.GeometryError when it must be excluded.
	Prepare() error
	Surface() *Surface

	isPrimitive()
}

// HitRecord contains information about a ray-object intersection
type HitRecord struct {
	T         float64   // Parameter t along the ray
	Point     core.Vec3 // Point of intersection
	Normal    core.Vec3 // Outward geometric normal, unit length
	Color     core.Vec3
	Alpha     float64
	Material  *Material
	Primitive int // Index into the primitive arena, set by the caller
}

// Surface carries the appearance shared by every primitive kind
type Surface struct {
	Color    core.Vec3
	Alpha    float64 // 1 is opaque
	Material *Material
}

// NewSurface creates an opaque surface with the default material
func NewSurface(color core.Vec3) Surface {
	return Surface{Color: color, Alpha: 1, Material: DefaultMaterial()}
}

// fill copies the appearance into the hit record
func (s *Surface) fill(hit *HitRecord) {
	hit.Color = s.Color
	hit.Alpha = s.Alpha
	hit.Material = s.Material
}
