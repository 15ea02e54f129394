package renderer

import (
	"image"
	"image/color"
	"sync"

	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/core"
)

// AccumulationBuffer sums weighted colors per pixel. All writers go through
// the mutex; Image reads without it and must only run after writers have joined.
type AccumulationBuffer struct {
	mu     sync.Mutex
	width  int
	height int
	color  []core.Vec3
	weight []float64
}

// NewAccumulationBuffer creates an empty buffer
func NewAccumulationBuffer(width, height int) *AccumulationBuffer {
	return &AccumulationBuffer{
		width:  width,
		height: height,
		color:  make([]core.Vec3, width*height),
		weight: make([]float64, width*height),
	}
}

// AddColumn merges one fully resolved column with weight 1 per pixel
func (b *AccumulationBuffer) AddColumn(x int, colors []core.Vec3) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for y := 0; y < b.height && y < len(colors); y++ {
		i := y*b.width + x
		b.color[i] = b.color[i].Add(colors[y])
		b.weight[i]++
	}
}

// AddIteration merges one whole-image pass of weighted color sums
func (b *AccumulationBuffer) AddIteration(colors []core.Vec3, weights []float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.color {
		if weights[i] == 0 {
			continue
		}
		b.color[i] = b.color[i].Add(colors[i])
		b.weight[i] += weights[i]
	}
}

// Image tonemaps the buffer without locking
func (b *AccumulationBuffer) Image() *image.RGBA {
	return b.image()
}

// Snapshot tonemaps the buffer under the lock, for previews while rendering
func (b *AccumulationBuffer) Snapshot() *image.RGBA {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.image()
}

func (b *AccumulationBuffer) image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, b.width, b.height))
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			i := y*b.width + x
			var c core.Vec3
			if b.weight[i] > 0 {
				c = b.color[i].Multiply(1 / b.weight[i])
			}
			img.SetRGBA(x, y, vec3ToColor(c))
		}
	}
	return img
}

// vec3ToColor clips each channel to [0,1] and scales it to 8 bits
func vec3ToColor(c core.Vec3) color.RGBA {
	c = c.Clamp(0, 1)
	return color.RGBA{
		R: uint8(255 * c.X),
		G: uint8(255 * c.Y),
		B: uint8(255 * c.Z),
		A: 255,
	}
}
