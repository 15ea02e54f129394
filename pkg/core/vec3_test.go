package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func assertVec(t *testing.T, expected, actual Vec3, msgAndArgs ...interface{}) {
	t.Helper()
	assert.InDelta(t, expected.X, actual.X, 1e-9, msgAndArgs...)
	assert.InDelta(t, expected.Y, actual.Y, 1e-9, msgAndArgs...)
	assert.InDelta(t, expected.Z, actual.Z, 1e-9, msgAndArgs...)
}

func TestVec3_Cross(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Vec3
		expected Vec3
	}{
		{"x cross y", NewVec3(1, 0, 0), NewVec3(0, 1, 0), NewVec3(0, 0, 1)},
		{"y cross x", NewVec3(0, 1, 0), NewVec3(1, 0, 0), NewVec3(0, 0, -1)},
		{"parallel", NewVec3(2, 2, 2), NewVec3(1, 1, 1), NewVec3(0, 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertVec(t, tt.expected, tt.a.Cross(tt.b))
		})
	}
}

func TestVec3_Normalize(t *testing.T) {
	assertVec(t, NewVec3(0.6, 0, 0.8), NewVec3(3, 0, 4).Normalize())
	assert.Equal(t, Vec3{}, Vec3{}.Normalize(), "zero vector stays zero")
}

func TestVec3_Reflect(t *testing.T) {
	incoming := NewVec3(1, -1, 0)
	assertVec(t, NewVec3(1, 1, 0), incoming.Reflect(NewVec3(0, 1, 0)))
}

func TestVec3_Axis(t *testing.T) {
	v := NewVec3(1, 2, 3)
	for axis, expected := range []float64{1, 2, 3} {
		assert.Equal(t, expected, v.Axis(axis))
	}
	assert.Equal(t, NewVec3(1, 7, 3), v.WithAxis(1, 7))
	assert.Equal(t, NewVec3(1, 2, 3), v, "WithAxis returns a copy")
}

func TestVec3_ClampAndLerp(t *testing.T) {
	assert.Equal(t, NewVec3(0, 0.5, 1), NewVec3(-1, 0.5, 3).Clamp(0, 1))
	assertVec(t, NewVec3(0.25, 0.5, 1), NewVec3(0, 0, 0).Lerp(NewVec3(1, 2, 4), 0.25))
}

func TestVec3_MglRoundTrip(t *testing.T) {
	v := NewVec3(1.5, -2, math.Pi)
	assert.Equal(t, v, Vec3FromMgl(v.Mgl()))
}

func TestRay_At(t *testing.T) {
	ray := NewRay(NewVec3(1, 1, 1), NewVec3(0, 0, -2))
	assertVec(t, NewVec3(1, 1, -3), ray.At(2))
}
