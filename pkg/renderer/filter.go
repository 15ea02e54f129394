package renderer

import (
	"fmt"
	"math"
	"strings"
)

// FilterKind names a reconstruction filter for progressive splatting
type FilterKind string

const (
	BoxFilterKind      FilterKind = "box"
	TriangleFilterKind FilterKind = "triangle"
	GaussianFilterKind FilterKind = "gaussian"
)

// ParseFilterKind accepts box, triangle or gaussian
func ParseFilterKind(value string) (FilterKind, error) {
	switch kind := FilterKind(strings.ToLower(value)); kind {
	case BoxFilterKind, TriangleFilterKind, GaussianFilterKind:
		return kind, nil
	}
	return "", fmt.Errorf("unknown filter %q", value)
}

// Filter weights a sample's contribution to a pixel by the squared distance
// between the sample and the pixel center. Radius is never below
// sqrt(0.5) so a sample always reaches its own pixel.
type Filter interface {
	Radius() float64
	Weight(d2 float64) float64
}

// NewFilter returns the filter for a kind, defaulting to the box filter
func NewFilter(kind FilterKind) Filter {
	switch kind {
	case TriangleFilterKind:
		return TriangleFilter{R: 1.5}
	case GaussianFilterKind:
		return NewGaussianFilter(1.5, 2)
	default:
		return BoxFilter{R: 0.75}
	}
}

// BoxFilter gives every pixel within the radius the same weight
type BoxFilter struct {
	R float64
}

func (f BoxFilter) Radius() float64 { return f.R }

func (f BoxFilter) Weight(d2 float64) float64 {
	if d2 > f.R*f.R {
		return 0
	}
	return 1
}

// TriangleFilter falls off linearly to zero at the radius
type TriangleFilter struct {
	R float64
}

func (f TriangleFilter) Radius() float64 { return f.R }

func (f TriangleFilter) Weight(d2 float64) float64 {
	return math.Max(0, 1-math.Sqrt(d2)/f.R)
}

// GaussianFilter is a truncated Gaussian shifted to reach zero at the radius
type GaussianFilter struct {
	R      float64
	Alpha  float64
	offset float64
}

// NewGaussianFilter creates a Gaussian filter with falloff alpha
func NewGaussianFilter(radius, alpha float64) GaussianFilter {
	return GaussianFilter{R: radius, Alpha: alpha, offset: math.Exp(-alpha * radius * radius)}
}

func (f GaussianFilter) Radius() float64 { return f.R }

func (f GaussianFilter) Weight(d2 float64) float64 {
	if d2 >= f.R*f.R {
		return 0
	}
	return math.Exp(-f.Alpha*d2) - f.offset
}
