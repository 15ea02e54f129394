package geometry

import (
	"fmt"
	"math"

	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/core"
)

// Sphere represents a sphere shape
type Sphere struct {
	Position core.Vec3
	Radius   float64
	surface  Surface
}

// NewSphere creates a new sphere
func NewSphere(center core.Vec3, radius float64, surface Surface) *Sphere {
	return &Sphere{
		Position: center,
		Radius:   radius,
		surface:  surface,
	}
}

func (s *Sphere) isPrimitive() {}

// Hit tests if a ray intersects with the sphere
func (s *Sphere) Hit(ray core.Ray, tMin, tMax float64) (HitRecord, bool) {
	// Vector from ray origin to sphere center
	oc := ray.Origin.Subtract(s.Position)

	// Quadratic equation coefficients: at² + bt + c = 0
	a := ray.Direction.Dot(ray.Direction)
	halfB := oc.Dot(ray.Direction)
	c := oc.Dot(oc) - s.Radius*s.Radius

	discriminant := halfB*halfB - a*c
	if discriminant < 0 || a == 0 {
		return HitRecord{}, false
	}

	sqrtD := math.Sqrt(discriminant)

	// Try the closer intersection point first
	root := (-halfB - sqrtD) / a
	if root <= tMin || root >= tMax {
		root = (-halfB + sqrtD) / a
		if root <= tMin || root >= tMax {
			return HitRecord{}, false
		}
	}

	hit := HitRecord{T: root, Point: ray.At(root)}
	hit.Normal = hit.Point.Subtract(s.Position).Multiply(1.0 / s.Radius)
	s.surface.fill(&hit)
	return hit, true
}

// BoundingBox returns the axis-aligned bounding box for this sphere
func (s *Sphere) BoundingBox() core.AABB {
	radius := core.NewVec3(s.Radius, s.Radius, s.Radius)
	return core.NewAABB(
		s.Position.Subtract(radius),
		s.Position.Add(radius),
	)
}

// IntersectsAABB compares the squared distance from the center to the box
func (s *Sphere) IntersectsAABB(box core.AABB) bool {
	closest := box.ClosestPoint(s.Position)
	return closest.Subtract(s.Position).LengthSquared() <= s.Radius*s.Radius
}

func (s *Sphere) Center() core.Vec3 {
	return s.Position
}

func (s *Sphere) Surface() *Surface {
	return &s.surface
}

func (s *Sphere) Prepare() error {
	if !(s.Radius > 0) || math.IsInf(s.Radius, 0) {
		return &core.GeometryError{
			Primitive: fmt.Sprintf("sphere at %v", s.Position),
			Reason:    fmt.Sprintf("invalid radius %g", s.Radius),
		}
	}
	return nil
}

func (s *Sphere) String() string {
	return fmt.Sprintf("Sphere(%v, r=%g)", s.Position, s.Radius)
}
