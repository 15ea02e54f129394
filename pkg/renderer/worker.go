package renderer

import (
	"math"
	"math/rand"
	"runtime/debug"
	"sync/atomic"

	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/core"
	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/geometry"
	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/sampler"
)

// frame holds what every worker of one render shares. Nothing in it is
// written after the workers start except through buffer and terminated.
type frame struct {
	primitives []geometry.Primitive
	grid       *geometry.VoxelGrid
	camera     *Camera
	light      core.Vec3
	background core.Vec3
	opts       Options
	filter     Filter
	width      int
	height     int
	epsilon    float64
	buffer     *AccumulationBuffer
	terminated *atomic.Bool
}

// Worker renders claimed units on one goroutine. Its sampler, generator and
// scratch buffers are private; the frame is shared.
type Worker struct {
	ID      int
	frame   *frame
	random  *rand.Rand
	sampler sampler.Sampler
	pass    *sampler.ProgressiveSampler // Same object as sampler in progressive mode
	logger  core.Logger

	// Per-ray "already tested" stamps, indexed by primitive
	stamps []uint32
	rayID  uint32

	column  []core.Vec3
	colors  []core.Vec3
	weights []float64

	rays    int64
	tests   int64 // Primitive intersection tests
	failed  int
	aborted int
}

func newWorker(id int, f *frame, random *rand.Rand, strata *sampler.Strata, logger core.Logger) *Worker {
	w := &Worker{
		ID:     id,
		frame:  f,
		random: random,
		logger: logger,
		stamps: make([]uint32, len(f.primitives)),
	}
	if f.opts.Mode == Progressive {
		w.pass = sampler.NewProgressiveSampler(strata, random)
		w.sampler = w.pass
		w.colors = make([]core.Vec3, f.width*f.height)
		w.weights = make([]float64, f.width*f.height)
	} else {
		w.sampler = sampler.NewStratifiedSampler(random, f.opts.Samples, f.opts.AOSamples)
		w.column = make([]core.Vec3, f.height)
	}
	return w
}

// unitFunc picks the render routine once for the worker's lifetime
func (w *Worker) unitFunc() func(unit int) {
	render := w.RenderColumn
	if w.frame.opts.Mode == Progressive {
		render = func(pass int) {
			if !w.RenderPass(pass) {
				w.aborted++
			}
		}
	}
	return func(unit int) {
		w.safely(unit, render)
	}
}

// safely runs one unit and keeps a panic from escaping the worker.
// The unit still counts as complete.
func (w *Worker) safely(unit int, render func(int)) {
	defer func() {
		if r := recover(); r != nil {
			w.failed++
			w.logger.Printf("Worker %d: unit %d failed: %v\n%s", w.ID, unit, r, debug.Stack())
		}
	}()
	render(unit)
}

// RenderColumn fully samples image column x and merges it into the buffer
func (w *Worker) RenderColumn(x int) {
	f := w.frame
	for y := 0; y < f.height; y++ {
		w.sampler.BeginPixel()
		count := w.sampler.AACount()

		var sum core.Vec3
		for i := 0; i < count; i++ {
			offset := w.sampler.AASample(i)
			u := (float64(x) + 0.5 + offset.X) / float64(f.width)
			v := 1 - (float64(y)+0.5+offset.Y)/float64(f.height)
			ray := f.camera.Ray(u, v, w.sampler.LensSample(i))
			sum = sum.Add(w.trace(ray, -1, 0))
		}
		w.column[y] = sum.Multiply(1 / float64(count))
	}
	f.buffer.AddColumn(x, w.column)
}

// RenderPass casts one ray per pixel using the pass's shared sample and
// splats the results through the reconstruction filter. It returns false
// when the render was terminated, in which case nothing is merged.
func (w *Worker) RenderPass(pass int) bool {
	f := w.frame
	w.pass.SetPass(pass)

	for i := range w.colors {
		w.colors[i] = core.Vec3{}
		w.weights[i] = 0
	}

	radius := f.filter.Radius()
	for y := 0; y < f.height; y++ {
		if f.terminated.Load() {
			return false
		}
		for x := 0; x < f.width; x++ {
			w.sampler.BeginPixel()
			offset := w.sampler.AASample(0)
			sx := float64(x) + 0.5 + offset.X
			sy := float64(y) + 0.5 + offset.Y

			ray := f.camera.Ray(sx/float64(f.width), 1-sy/float64(f.height), w.sampler.LensSample(0))
			w.splat(sx, sy, radius, w.trace(ray, -1, 0))
		}
	}

	f.buffer.AddIteration(w.colors, w.weights)
	return true
}

// splat spreads color over every pixel whose center lies within radius of (sx, sy)
func (w *Worker) splat(sx, sy, radius float64, color core.Vec3) {
	f := w.frame
	x0 := max(0, int(math.Ceil(sx-radius-0.5)))
	x1 := min(f.width-1, int(math.Floor(sx+radius-0.5)))
	y0 := max(0, int(math.Ceil(sy-radius-0.5)))
	y1 := min(f.height-1, int(math.Floor(sy+radius-0.5)))

	for py := y0; py <= y1; py++ {
		dy := float64(py) + 0.5 - sy
		for px := x0; px <= x1; px++ {
			dx := float64(px) + 0.5 - sx
			weight := f.filter.Weight(dx*dx + dy*dy)
			if weight <= 0 {
				continue
			}
			i := py*f.width + px
			w.colors[i] = w.colors[i].Add(color.Multiply(weight))
			w.weights[i] += weight
		}
	}
}

// Rays returns how many rays this worker has cast. Read it after the worker has stopped.
func (w *Worker) Rays() int64 {
	return w.rays
}

// Tests returns the number of primitive intersection tests run so far
func (w *Worker) Tests() int64 {
	return w.tests
}
