package geometry

import (
	"fmt"
	"math"

	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/core"
)

// orthogonalTolerance is the largest |cos| between edges still treated as a right angle
const orthogonalTolerance = 1e-6

// Box is a parallelepiped spanned by three edge vectors from a base corner.
// Orthogonal boxes are intersected with the slab method in their own frame;
// skewed boxes fall back to their 12 pre-tessellated triangles.
type Box struct {
	Base       core.Vec3    // Corner the edges start from
	Edges      [3]core.Vec3 // Edge vectors, not necessarily orthogonal
	surface    Surface
	center     core.Vec3
	normals    [3]core.Vec3 // Unit edge directions, face normals when orthogonal
	half       [3]float64   // Half extents along each normal
	inverse    [3]core.Vec3 // Rows of the inverse edge matrix, for point containment
	faces      []*Triangle  // 12 triangles, outward winding
	bbox       core.AABB
	orthogonal bool
	aligned    bool
	degenerate bool
}

// NewBox creates a box from a base corner and three edge vectors
func NewBox(base, e1, e2, e3 core.Vec3, surface Surface) *Box {
	b := &Box{
		Base:    base,
		Edges:   [3]core.Vec3{e1, e2, e3},
		surface: surface,
	}
	b.precompute()
	return b
}

// NewAxisAlignedBox creates a box covering [min, max]
func NewAxisAlignedBox(min, max core.Vec3, surface Surface) *Box {
	size := max.Subtract(min)
	return NewBox(min,
		core.NewVec3(size.X, 0, 0),
		core.NewVec3(0, size.Y, 0),
		core.NewVec3(0, 0, size.Z),
		surface)
}

func (b *Box) isPrimitive() {}

// precompute derives normals, extents, the inverse frame and the face triangles
func (b *Box) precompute() {
	e := b.Edges
	b.center = b.Base.Add(e[0].Add(e[1]).Add(e[2]).Multiply(0.5))

	for i := 0; i < 3; i++ {
		length := e[i].Length()
		b.normals[i] = e[i].Normalize()
		b.half[i] = length / 2
	}

	volume := e[0].Dot(e[1].Cross(e[2]))
	b.degenerate = math.Abs(volume) <= 1e-12*e[0].Length()*e[1].Length()*e[2].Length()
	if !b.degenerate {
		b.inverse[0] = e[1].Cross(e[2]).Multiply(1 / volume)
		b.inverse[1] = e[2].Cross(e[0]).Multiply(1 / volume)
		b.inverse[2] = e[0].Cross(e[1]).Multiply(1 / volume)
	}

	b.orthogonal = math.Abs(b.normals[0].Dot(b.normals[1])) < orthogonalTolerance &&
		math.Abs(b.normals[1].Dot(b.normals[2])) < orthogonalTolerance &&
		math.Abs(b.normals[0].Dot(b.normals[2])) < orthogonalTolerance
	b.aligned = isAxisAligned(e[0]) && isAxisAligned(e[1]) && isAxisAligned(e[2])

	var corners [8]core.Vec3
	for i := 0; i < 8; i++ {
		c := b.Base
		if i&1 != 0 {
			c = c.Add(e[0])
		}
		if i&2 != 0 {
			c = c.Add(e[1])
		}
		if i&4 != 0 {
			c = c.Add(e[2])
		}
		corners[i] = c
	}
	b.bbox = core.NewAABBFromPoints(corners[:]...)

	// Each face as a quad of corner indices, split into a triangle pair
	quads := [6][4]int{
		{0, 1, 3, 2}, {4, 6, 7, 5}, // e3 = 0 and e3 = 1
		{0, 4, 5, 1}, {2, 3, 7, 6}, // e2 = 0 and e2 = 1
		{0, 2, 6, 4}, {1, 5, 7, 3}, // e1 = 0 and e1 = 1
	}
	b.faces = b.faces[:0]
	for _, q := range quads {
		b.faces = append(b.faces,
			b.outwardTriangle(corners[q[0]], corners[q[1]], corners[q[2]]),
			b.outwardTriangle(corners[q[0]], corners[q[2]], corners[q[3]]))
	}
}

// outwardTriangle winds the triangle so its normal points away from the center
func (b *Box) outwardTriangle(v0, v1, v2 core.Vec3) *Triangle {
	t := NewTriangle(v0, v1, v2, b.surface)
	if t.Normal().Dot(t.Center().Subtract(b.center)) < 0 {
		t = NewTriangle(v0, v2, v1, b.surface)
	}
	return t
}

func isAxisAligned(v core.Vec3) bool {
	nonZero := 0
	for axis := 0; axis < 3; axis++ {
		if v.Axis(axis) != 0 {
			nonZero++
		}
	}
	return nonZero == 1
}

// Hit tests if a ray intersects the box
func (b *Box) Hit(ray core.Ray, tMin, tMax float64) (HitRecord, bool) {
	if b.degenerate {
		return HitRecord{}, false
	}
	if b.orthogonal {
		return b.hitSlabs(ray, tMin, tMax)
	}
	return b.hitFaces(ray, tMin, tMax)
}

// hitSlabs intersects the three slabs of an orthogonal box in its own frame
func (b *Box) hitSlabs(ray core.Ray, tMin, tMax float64) (HitRecord, bool) {
	p := b.center.Subtract(ray.Origin)
	tNear, tFar := math.Inf(-1), math.Inf(1)
	var nearNormal, farNormal core.Vec3

	for i := 0; i < 3; i++ {
		n := b.normals[i]
		e := n.Dot(p)
		f := n.Dot(ray.Direction)
		h := b.half[i]

		if math.Abs(f) < 1e-12 {
			// Parallel to this slab: the origin must lie between its planes
			if -e-h > 0 || -e+h < 0 {
				return HitRecord{}, false
			}
			continue
		}

		// t1 crosses the +n face, t2 the -n face
		t1 := (e + h) / f
		t2 := (e - h) / f
		n1, n2 := n, n.Negate()
		if t1 > t2 {
			t1, t2 = t2, t1
			n1, n2 = n2, n1
		}
		if t1 > tNear {
			tNear, nearNormal = t1, n1
		}
		if t2 < tFar {
			tFar, farNormal = t2, n2
		}
		if tNear > tFar || tFar <= tMin {
			return HitRecord{}, false
		}
	}

	var hit HitRecord
	switch {
	case tNear > tMin && tNear < tMax:
		hit = HitRecord{T: tNear, Normal: nearNormal}
	case tFar > tMin && tFar < tMax:
		// Origin inside the box: report the exit face
		hit = HitRecord{T: tFar, Normal: farNormal}
	default:
		return HitRecord{}, false
	}
	hit.Point = ray.At(hit.T)
	b.surface.fill(&hit)
	return hit, true
}

// hitFaces tests the pre-tessellated triangles of a skewed box
func (b *Box) hitFaces(ray core.Ray, tMin, tMax float64) (HitRecord, bool) {
	var closest HitRecord
	found := false
	for _, face := range b.faces {
		if hit, ok := face.Hit(ray, tMin, tMax); ok {
			closest = hit
			tMax = hit.T
			found = true
		}
	}
	return closest, found
}

// IntersectsAABB reports whether the solid box overlaps the given box
func (b *Box) IntersectsAABB(box core.AABB) bool {
	if b.degenerate || !b.bbox.Overlaps(box) {
		return false
	}
	if b.aligned {
		return true
	}
	// Either a face crosses the cell, or the cell lies entirely inside the box
	for _, face := range b.faces {
		if face.IntersectsAABB(box) {
			return true
		}
	}
	return b.Contains(box.Center())
}

// Contains reports whether p lies inside the solid box
func (b *Box) Contains(p core.Vec3) bool {
	if b.degenerate {
		return false
	}
	d := p.Subtract(b.Base)
	for i := 0; i < 3; i++ {
		c := b.inverse[i].Dot(d)
		if c < 0 || c > 1 {
			return false
		}
	}
	return true
}

// BoundingBox returns the axis-aligned bounding box for this box
func (b *Box) BoundingBox() core.AABB {
	return b.bbox
}

func (b *Box) Center() core.Vec3 {
	return b.center
}

func (b *Box) Surface() *Surface {
	return &b.surface
}

// Orthogonal reports whether the slab method is used
func (b *Box) Orthogonal() bool {
	return b.orthogonal
}

// Faces returns the 12 triangles tessellating the box
func (b *Box) Faces() []*Triangle {
	return b.faces
}

func (b *Box) Prepare() error {
	if b.degenerate {
		return &core.GeometryError{
			Primitive: b.String(),
			Reason:    "edge vectors span no volume",
		}
	}
	return nil
}

func (b *Box) String() string {
	return fmt.Sprintf("Box(base=%v, edges=%v)", b.Base, b.Edges)
}
