package renderer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/core"
	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/geometry"
	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/sampler"
	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/scene"
)

// PreviewFunc receives the image accumulated so far and the fraction of
// completed units. It is called from the goroutine running CalculateImage.
type PreviewFunc func(img *image.RGBA, progress float64)

// Orchestrator prepares a scene once and renders images of it
type Orchestrator struct {
	primitives []geometry.Primitive
	excluded   int
	grid       *geometry.VoxelGrid
	camera     *Camera
	light      core.Vec3
	background core.Vec3
	opts       Options
	logger     core.Logger

	// Preview is optional
	Preview PreviewFunc

	beforeUnit func(work *WorkCoordinator, unit int) // Test hook, runs on the worker before each unit
}

// VoxelStepsFor picks the grid resolution for a primitive count
func VoxelStepsFor(primitives int) int {
	switch {
	case primitives < 10000:
		return 35
	case primitives < 50000:
		return 60
	default:
		return 100
	}
}

// NewOrchestrator validates the scene's primitives, builds the voxel grid
// and the camera. Degenerate primitives are logged and left out.
func NewOrchestrator(sc *scene.Scene, opts Options, logger core.Logger) (*Orchestrator, error) {
	if logger == nil {
		logger = core.NopLogger{}
	}

	camera, err := NewCamera(sc.View, sc.Projection, opts.DOF)
	if err != nil {
		return nil, fmt.Errorf("scene %q: %w", sc.Name, err)
	}

	o := &Orchestrator{
		camera:     camera,
		background: sc.Background,
		opts:       opts,
		logger:     logger,
	}

	valid := make([]geometry.Primitive, 0, len(sc.Primitives))
	for _, p := range sc.Primitives {
		if err := p.Prepare(); err != nil {
			var geomErr *core.GeometryError
			if errors.As(err, &geomErr) {
				logger.Printf("Excluding primitive: %v", geomErr)
			} else {
				logger.Printf("Excluding primitive: %v", err)
			}
			o.excluded++
			continue
		}
		valid = append(valid, p)
	}
	o.primitives = geometry.Flatten(valid)

	steps := opts.VoxelSteps
	if steps <= 0 {
		steps = VoxelStepsFor(len(o.primitives))
	}

	start := time.Now()
	o.grid = geometry.BuildVoxelGrid(o.primitives, steps)
	logger.Printf("Built %d^3 voxel grid over %d primitives in %v (%v)",
		steps, len(o.primitives), time.Since(start).Round(time.Millisecond), o.grid.Stats())

	o.light = camera.Eye()
	if opts.Light != nil {
		o.light = *opts.Light
	}
	return o, nil
}

// Options returns the options the orchestrator was built with
func (o *Orchestrator) Options() Options {
	return o.opts
}

// Primitives returns the flattened primitives the grid was built over
func (o *Orchestrator) Primitives() []geometry.Primitive {
	return o.primitives
}

// CalculateImage renders a width x height image. Cancelling ctx stops the
// render early: remaining units are drained, in-flight progressive passes
// are abandoned, and the partial image is returned with Cancelled set.
func (o *Orchestrator) CalculateImage(ctx context.Context, width, height int) (*image.RGBA, RenderStats, error) {
	if width <= 0 || height <= 0 {
		return nil, RenderStats{}, fmt.Errorf("invalid image size %dx%d", width, height)
	}

	start := time.Now()
	total := o.opts.Units(width)
	// Workers beyond the unit count would never claim anything
	threads := min(max(1, o.opts.MaxThreads), total)

	var terminated atomic.Bool
	f := &frame{
		primitives: o.primitives,
		grid:       o.grid,
		camera:     o.camera,
		light:      o.light,
		background: o.background,
		opts:       o.opts,
		filter:     NewFilter(o.opts.Filter),
		width:      width,
		height:     height,
		epsilon:    rayEpsilon(o.grid),
		buffer:     NewAccumulationBuffer(width, height),
		terminated: &terminated,
	}

	// Every worker generator and the shared strata derive from one base seed
	base := rand.New(rand.NewSource(o.opts.Seed))
	var strata *sampler.Strata
	if o.opts.Mode == Progressive {
		strata = sampler.NewStrata(base, o.opts.Samples, o.opts.AOSamples)
	}
	workers := make([]*Worker, threads)
	for i := range workers {
		workers[i] = newWorker(i, f, sampler.NewWorkerRand(base, i), strata, o.logger)
	}

	work := NewWorkCoordinator(total)
	o.logger.Printf("Rendering %dx%d (%s, %d units) with %d workers", width, height, o.opts.Mode, total, threads)

	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			render := w.unitFunc()
			work.Run(func(unit int) {
				if o.beforeUnit != nil {
					o.beforeUnit(work, unit)
				}
				render(unit)
			})
		}(w)
	}

	drained := o.poll(ctx, f, work)

	// Image reads the buffer without its lock
	wg.Wait()
	img := f.buffer.Image()

	stats := RenderStats{
		Width:          width,
		Height:         height,
		Mode:           o.opts.Mode,
		Workers:        threads,
		Units:          total,
		UnitsRendered:  total - drained,
		UnitsDrained:   drained,
		Primitives:     len(o.primitives),
		Excluded:       o.excluded,
		GridResolution: o.grid.Resolution,
		Grid:           o.grid.Stats(),
		Duration:       time.Since(start),
		Cancelled:      terminated.Load(),
	}
	for _, w := range workers {
		stats.Rays += w.Rays()
		stats.Tests += w.Tests()
		stats.UnitsFailed += w.failed
		stats.UnitsAborted += w.aborted
	}
	o.logger.Printf("%v", stats)
	return img, stats, nil
}

// poll waits for every unit to complete, reporting progress every
// PollInterval. On cancellation it raises the terminated flag and drains
// the units nobody has claimed yet.
func (o *Orchestrator) poll(ctx context.Context, f *frame, work *WorkCoordinator) int {
	interval := o.opts.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	total := work.Total()
	done := ctx.Done()
	drained := 0
	for {
		completed, changed := work.completed.Watch()
		if completed >= total {
			return drained
		}

		select {
		case <-done:
			f.terminated.Store(true)
			drained = work.Drain()
			done = nil
			o.logger.Printf("Render cancelled at %d/%d units, drained %d", completed, total, drained)
		case <-changed:
		case <-ticker.C:
			progress := float64(completed) / float64(total)
			o.logger.Printf("Progress: %.1f%% (%d/%d units)", progress*100, completed, total)
			if o.Preview != nil {
				o.Preview(f.buffer.Snapshot(), progress)
			}
		}
	}
}

// rayEpsilon scales the self-intersection offset to the scene size
func rayEpsilon(grid *geometry.VoxelGrid) float64 {
	diagonal := grid.Bounds.Size().Length()
	if diagonal == 0 || math.IsInf(diagonal, 0) || math.IsNaN(diagonal) {
		return 1e-6
	}
	return diagonal * 1e-7
}
