package scene

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/core"
	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/geometry"
)

// Scene is everything the renderer consumes: primitives, camera matrices,
// a background color and the string settings the scene was authored with.
type Scene struct {
	Name       string
	Primitives []geometry.Primitive
	View       mgl64.Mat4
	Projection mgl64.Mat4
	Background core.Vec3
	Settings   map[string]string // Render options stored with the scene, overridable by the caller
}

// New creates an empty scene with an identity camera
func New(name string) *Scene {
	return &Scene{
		Name:       name,
		View:       mgl64.Ident4(),
		Projection: mgl64.Ident4(),
		Settings:   make(map[string]string),
	}
}

// Add appends primitives to the scene
func (s *Scene) Add(primitives ...geometry.Primitive) {
	s.Primitives = append(s.Primitives, primitives...)
}

// LookAt places the camera at eye looking towards center
func (s *Scene) LookAt(eye, center, up core.Vec3) {
	s.View = mgl64.LookAtV(eye.Mgl(), center.Mgl(), up.Mgl())
}

// Perspective sets a perspective projection with a vertical field of view in degrees
func (s *Scene) Perspective(fovDegrees, aspect, near, far float64) {
	s.Projection = mgl64.Perspective(mgl64.DegToRad(fovDegrees), aspect, near, far)
}

// Orthographic sets an orthographic projection covering halfWidth x halfHeight around the view axis
func (s *Scene) Orthographic(halfWidth, halfHeight, near, far float64) {
	s.Projection = mgl64.Ortho(-halfWidth, halfWidth, -halfHeight, halfHeight, near, far)
}

// PrimitiveCount returns the number of primitives, counting mesh triangles individually
func (s *Scene) PrimitiveCount() int {
	count := 0
	for _, p := range s.Primitives {
		if mesh, ok := p.(*geometry.Mesh); ok {
			count += mesh.TriangleCount()
			continue
		}
		count++
	}
	return count
}
