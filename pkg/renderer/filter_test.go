package renderer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilters(t *testing.T) {
	for _, kind := range []FilterKind{BoxFilterKind, TriangleFilterKind, GaussianFilterKind} {
		t.Run(string(kind), func(t *testing.T) {
			f := NewFilter(kind)
			r := f.Radius()

			assert.GreaterOrEqual(t, r, math.Sqrt(0.5), "a sample must reach its own pixel")
			assert.Greater(t, f.Weight(0.5), 0.0)
			assert.Equal(t, 0.0, f.Weight(r*r*1.01))
			assert.GreaterOrEqual(t, f.Weight(0), f.Weight(0.25))
		})
	}
}

func TestParseFilterKind(t *testing.T) {
	kind, err := ParseFilterKind("TRIANGLE")
	require.NoError(t, err)
	assert.Equal(t, TriangleFilterKind, kind)

	_, err = ParseFilterKind("lanczos")
	assert.Error(t, err)
}
