package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/core"
)

func quadVertices() []core.Vec3 {
	return []core.Vec3{
		core.NewVec3(0, 0, 0), // 0
		core.NewVec3(1, 0, 0), // 1
		core.NewVec3(0, 1, 0), // 2
		core.NewVec3(1, 1, 0), // 3
	}
}

func TestNewMesh_Validation(t *testing.T) {
	tests := []struct {
		name  string
		faces []int
	}{
		{"not a multiple of three", []int{0, 1}},
		{"negative index", []int{0, 1, -1}},
		{"index out of range", []int{0, 1, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMesh(quadVertices(), tt.faces, testSurface())
			assert.Error(t, err)
		})
	}
}

func TestNewGridMesh(t *testing.T) {
	mesh, err := NewGridMesh(quadVertices(), 2, 2, testSurface())
	require.NoError(t, err)
	assert.Equal(t, 2, mesh.TriangleCount())
	assert.Equal(t, core.NewVec3(0, 0, 0), mesh.BoundingBox().Min)
	assert.Equal(t, core.NewVec3(1, 1, 0), mesh.BoundingBox().Max)

	// Both halves of the quad are hit
	for _, p := range []core.Vec3{core.NewVec3(0.8, 0.2, 1), core.NewVec3(0.2, 0.8, 1)} {
		hit, ok := mesh.Hit(core.NewRay(p, core.NewVec3(0, 0, -1)), 0.001, 100)
		require.True(t, ok, "ray at %v", p)
		assert.InDelta(t, 1.0, hit.T, 1e-9)
	}

	_, err = NewGridMesh(quadVertices(), 1, 4, testSurface())
	assert.Error(t, err)
	_, err = NewGridMesh(quadVertices(), 3, 3, testSurface())
	assert.Error(t, err)
}

func TestGridMesh_LargerGrid(t *testing.T) {
	var vertices []core.Vec3
	for r := 0; r < 4; r++ {
		for c := 0; c < 5; c++ {
			vertices = append(vertices, core.NewVec3(float64(c), float64(r), 0))
		}
	}
	mesh, err := NewGridMesh(vertices, 4, 5, testSurface())
	require.NoError(t, err)
	assert.Equal(t, 3*4*2, mesh.TriangleCount())

	for _, tri := range mesh.Triangles() {
		assert.False(t, tri.Bad())
	}
}

func TestMesh_SetCullBackFace(t *testing.T) {
	mesh, err := NewGridMesh(quadVertices(), 2, 2, testSurface())
	require.NoError(t, err)

	up := core.NewRay(core.NewVec3(0.5, 0.3, -1), core.NewVec3(0, 0, 1))
	down := core.NewRay(core.NewVec3(0.5, 0.3, 1), core.NewVec3(0, 0, -1))

	mesh.SetCullBackFace(true)
	_, hitUp := mesh.Hit(up, 0.001, 100)
	_, hitDown := mesh.Hit(down, 0.001, 100)

	// Exactly one side survives culling
	assert.NotEqual(t, hitUp, hitDown)
}

func TestMesh_IntersectsAABB(t *testing.T) {
	mesh, err := NewGridMesh(quadVertices(), 2, 2, testSurface())
	require.NoError(t, err)

	assert.True(t, mesh.IntersectsAABB(core.NewAABB(core.NewVec3(0.4, 0.4, -0.1), core.NewVec3(0.6, 0.6, 0.1))))
	assert.False(t, mesh.IntersectsAABB(core.NewAABB(core.NewVec3(0.4, 0.4, 0.1), core.NewVec3(0.6, 0.6, 0.3))))
}

func TestMesh_Prepare(t *testing.T) {
	degenerate, err := NewMesh(
		[]core.Vec3{core.NewVec3(0, 0, 0), core.NewVec3(1, 0, 0), core.NewVec3(2, 0, 0)},
		[]int{0, 1, 2},
		testSurface(),
	)
	require.NoError(t, err)
	assert.ErrorIs(t, degenerate.Prepare(), core.ErrDegenerate)

	good, err := NewGridMesh(quadVertices(), 2, 2, testSurface())
	require.NoError(t, err)
	assert.NoError(t, good.Prepare())
}

func TestFlatten(t *testing.T) {
	mesh, err := NewMesh(
		[]core.Vec3{
			core.NewVec3(0, 0, 0), core.NewVec3(1, 0, 0), core.NewVec3(0, 1, 0),
			core.NewVec3(2, 0, 0), core.NewVec3(3, 0, 0), core.NewVec3(4, 0, 0),
		},
		[]int{0, 1, 2, 3, 4, 5}, // Second triangle is collinear
		testSurface(),
	)
	require.NoError(t, err)

	sphere := NewSphere(core.NewVec3(5, 5, 5), 1, testSurface())
	box := unitBox()

	flat := Flatten([]Primitive{sphere, mesh, box})
	require.Len(t, flat, 3)
	assert.Same(t, sphere, flat[0])
	assert.IsType(t, &Triangle{}, flat[1])
	assert.Same(t, box, flat[2])
}
