package renderer

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/core"
)

// ErrSingularCamera is returned when view * projection cannot be inverted
var ErrSingularCamera = errors.New("camera matrices are not invertible")

// Camera generates primary rays by interpolating the frustum corners
// recovered from the inverse view-projection matrix.
type Camera struct {
	eye   core.Vec3
	near  [4]core.Vec3 // Bottom-left, bottom-right, top-left, top-right
	far   [4]core.Vec3
	right core.Vec3 // Unit vector along the image rows
	up    core.Vec3 // Unit vector along the image columns
	dof   DepthOfField
}

// NewCamera derives the frustum from OpenGL-style view and projection matrices
func NewCamera(view, projection mgl64.Mat4, dof DepthOfField) (*Camera, error) {
	viewProjection := projection.Mul4(view)
	if math.Abs(viewProjection.Det()) < 1e-12 || math.Abs(view.Det()) < 1e-12 {
		return nil, ErrSingularCamera
	}
	inverse := viewProjection.Inv()

	c := &Camera{dof: dof}
	ndc := [4][2]float64{{-1, -1}, {1, -1}, {-1, 1}, {1, 1}}
	for i, p := range ndc {
		c.near[i] = core.Vec3FromMgl(mgl64.TransformCoordinate(mgl64.Vec3{p[0], p[1], -1}, inverse))
		c.far[i] = core.Vec3FromMgl(mgl64.TransformCoordinate(mgl64.Vec3{p[0], p[1], 1}, inverse))
	}

	c.eye = core.Vec3FromMgl(view.Inv().Col(3).Vec3())
	c.right = c.near[1].Subtract(c.near[0]).Normalize()
	c.up = c.near[2].Subtract(c.near[0]).Normalize()
	return c, nil
}

// Eye returns the camera position
func (c *Camera) Eye() core.Vec3 {
	return c.eye
}

// Ray returns the primary ray through image-plane coordinates (u, v) in [0,1]²,
// with v = 0 at the bottom edge. lens is a unit-disk sample, ignored unless
// depth of field is enabled.
func (c *Camera) Ray(u, v float64, lens core.Vec2) core.Ray {
	bottom := c.near[0].Lerp(c.near[1], u)
	top := c.near[2].Lerp(c.near[3], u)
	origin := bottom.Lerp(top, v)

	bottom = c.far[0].Lerp(c.far[1], u)
	top = c.far[2].Lerp(c.far[3], u)
	target := bottom.Lerp(top, v)

	direction := target.Subtract(origin).Normalize()
	if !c.dof.Enabled() {
		return core.NewRay(origin, direction)
	}

	focus := origin.Add(direction.Multiply(c.dof.Center))
	offset := c.right.Multiply(lens.X * c.dof.Falloff).Add(c.up.Multiply(lens.Y * c.dof.Falloff))
	origin = origin.Add(offset)
	return core.NewRay(origin, focus.Subtract(origin).Normalize())
}
