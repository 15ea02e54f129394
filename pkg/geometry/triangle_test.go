package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/core"
)

func unitTriangle() *Triangle {
	// Counter-clockwise seen from +z, normal points to +z
	return NewTriangle(
		core.NewVec3(0, 0, 0),
		core.NewVec3(1, 0, 0),
		core.NewVec3(0, 1, 0),
		testSurface(),
	)
}

func TestTriangle_Hit(t *testing.T) {
	tri := unitTriangle()

	tests := []struct {
		name      string
		ray       core.Ray
		shouldHit bool
		expectedT float64
	}{
		{"inside", core.NewRay(core.NewVec3(0.25, 0.25, 1), core.NewVec3(0, 0, -1)), true, 1},
		{"from below", core.NewRay(core.NewVec3(0.25, 0.25, -2), core.NewVec3(0, 0, 1)), true, 2},
		{"outside hypotenuse", core.NewRay(core.NewVec3(0.8, 0.8, 1), core.NewVec3(0, 0, -1)), false, 0},
		{"negative u", core.NewRay(core.NewVec3(-0.1, 0.5, 1), core.NewVec3(0, 0, -1)), false, 0},
		{"parallel", core.NewRay(core.NewVec3(0, 0, 1), core.NewVec3(1, 0, 0)), false, 0},
		{"behind origin", core.NewRay(core.NewVec3(0.25, 0.25, 1), core.NewVec3(0, 0, 1)), false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hit, ok := tri.Hit(tt.ray, 0.001, math.Inf(1))
			require.Equal(t, tt.shouldHit, ok)
			if ok {
				assert.InDelta(t, tt.expectedT, hit.T, 1e-9)
				assert.InDelta(t, 1.0, hit.Normal.Z, 1e-9)
			}
		})
	}
}

func TestTriangle_CullBackFace(t *testing.T) {
	tri := unitTriangle()
	tri.CullBackFace = true

	front := core.NewRay(core.NewVec3(0.25, 0.25, 1), core.NewVec3(0, 0, -1))
	back := core.NewRay(core.NewVec3(0.25, 0.25, -1), core.NewVec3(0, 0, 1))

	_, ok := tri.Hit(front, 0.001, 100)
	assert.True(t, ok, "front face must still hit")
	_, ok = tri.Hit(back, 0.001, 100)
	assert.False(t, ok, "back face must be culled")
}

func TestTriangle_BadNeverHit(t *testing.T) {
	collinear := NewTriangle(
		core.NewVec3(0, 0, 0),
		core.NewVec3(1, 0, 0),
		core.NewVec3(2, 0, 0),
		testSurface(),
	)
	require.True(t, collinear.Bad())
	assert.Error(t, collinear.Prepare())

	_, ok := collinear.Hit(core.NewRay(core.NewVec3(1, 0, 1), core.NewVec3(0, 0, -1)), 0, 100)
	assert.False(t, ok)
	assert.False(t, collinear.IntersectsAABB(core.NewAABB(core.NewVec3(-1, -1, -1), core.NewVec3(3, 1, 1))))

	assert.NoError(t, unitTriangle().Prepare())
}

func TestTriangle_IntersectsAABB(t *testing.T) {
	tri := unitTriangle()

	tests := []struct {
		name     string
		box      core.AABB
		expected bool
	}{
		{"contains vertex", core.NewAABB(core.NewVec3(-0.1, -0.1, -0.1), core.NewVec3(0.1, 0.1, 0.1)), true},
		{"crosses interior", core.NewAABB(core.NewVec3(0.2, 0.2, -0.5), core.NewVec3(0.3, 0.3, 0.5)), true},
		{"above plane", core.NewAABB(core.NewVec3(0, 0, 0.1), core.NewVec3(1, 1, 1)), false},
		// Inside the bounding box but past the hypotenuse
		{"beyond hypotenuse", core.NewAABB(core.NewVec3(0.7, 0.7, -0.1), core.NewVec3(0.9, 0.9, 0.1)), false},
		{"touching", core.NewAABB(core.NewVec3(1, -0.5, -0.5), core.NewVec3(2, 0.5, 0.5)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tri.IntersectsAABB(tt.box))
		})
	}
}

func TestTriangle_BoundingBox(t *testing.T) {
	tri := NewTriangle(core.NewVec3(-1, 2, 0), core.NewVec3(3, -1, 1), core.NewVec3(0, 0, -2), testSurface())
	box := tri.BoundingBox()
	assert.Equal(t, core.NewVec3(-1, -1, -2), box.Min)
	assert.Equal(t, core.NewVec3(3, 2, 1), box.Max)
}
