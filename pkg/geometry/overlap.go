package geometry

import (
	"math"

	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/core"
)

var unitAxes = [3]core.Vec3{
	{X: 1, Y: 0, Z: 0},
	{X: 0, Y: 1, Z: 0},
	{X: 0, Y: 0, Z: 1},
}

// triangleOverlapsBox is the Akenine-Möller separating axis test.
// Touching counts as overlap.
func triangleOverlapsBox(box core.AABB, a, b, c core.Vec3) bool {
	center := box.Center()
	half := box.Size().Multiply(0.5)

	// Move everything so the box is centered at the origin
	verts := [3]core.Vec3{a.Subtract(center), b.Subtract(center), c.Subtract(center)}
	edges := [3]core.Vec3{
		verts[1].Subtract(verts[0]),
		verts[2].Subtract(verts[1]),
		verts[0].Subtract(verts[2]),
	}

	// Box face normals
	for axis := 0; axis < 3; axis++ {
		lo := math.Min(verts[0].Axis(axis), math.Min(verts[1].Axis(axis), verts[2].Axis(axis)))
		hi := math.Max(verts[0].Axis(axis), math.Max(verts[1].Axis(axis), verts[2].Axis(axis)))
		if lo > half.Axis(axis) || hi < -half.Axis(axis) {
			return false
		}
	}

	// Triangle plane
	normal := edges[0].Cross(edges[1])
	if math.Abs(normal.Dot(verts[0])) > projectedRadius(normal, half) {
		return false
	}

	// Cross products of box axes and triangle edges
	for _, edge := range edges {
		for _, axis := range unitAxes {
			if separatedOn(axis.Cross(edge), verts, half) {
				return false
			}
		}
	}

	return true
}

func separatedOn(axis core.Vec3, verts [3]core.Vec3, half core.Vec3) bool {
	p0, p1, p2 := axis.Dot(verts[0]), axis.Dot(verts[1]), axis.Dot(verts[2])
	r := projectedRadius(axis, half)
	return math.Min(p0, math.Min(p1, p2)) > r || math.Max(p0, math.Max(p1, p2)) < -r
}

func projectedRadius(axis, half core.Vec3) float64 {
	return half.X*math.Abs(axis.X) + half.Y*math.Abs(axis.Y) + half.Z*math.Abs(axis.Z)
}
