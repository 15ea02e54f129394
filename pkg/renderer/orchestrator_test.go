package renderer

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/core"
	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/geometry"
	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/scene"
)

// frontScene looks down -z from (0,0,10) with a narrow field of view, so
// the unit cube at the origin fills the whole image
func frontScene(primitives ...geometry.Primitive) *scene.Scene {
	sc := scene.New("test")
	sc.LookAt(core.NewVec3(0, 0, 10), core.NewVec3(0, 0, 0), core.NewVec3(0, 1, 0))
	sc.Perspective(5, 1, 0.1, 100)
	sc.Add(primitives...)
	return sc
}

func unitCube(surface geometry.Surface) *geometry.Box {
	return geometry.NewAxisAlignedBox(core.NewVec3(-0.5, -0.5, -0.5), core.NewVec3(0.5, 0.5, 0.5), surface)
}

func surfaceWith(c core.Vec3, alpha float64, m *geometry.Material) geometry.Surface {
	return geometry.Surface{Color: c, Alpha: alpha, Material: m}
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Samples = 1
	opts.AOSamples = 0
	opts.MaxThreads = 2
	opts.PollInterval = 5 * time.Millisecond
	return opts
}

func render(t *testing.T, sc *scene.Scene, opts Options, size int) (*Orchestrator, RenderStats, [][]color.RGBA) {
	t.Helper()
	o, err := NewOrchestrator(sc, opts, core.NopLogger{})
	require.NoError(t, err)

	img, stats, err := o.CalculateImage(context.Background(), size, size)
	require.NoError(t, err)
	require.Equal(t, size, img.Bounds().Dx())
	require.Equal(t, size, img.Bounds().Dy())

	pixels := make([][]color.RGBA, size)
	for y := range pixels {
		pixels[y] = make([]color.RGBA, size)
		for x := range pixels[y] {
			pixels[y][x] = img.RGBAAt(x, y)
		}
	}
	return o, stats, pixels
}

func assertRGB(t *testing.T, want [3]int, got color.RGBA, delta float64) {
	t.Helper()
	assert.InDelta(t, want[0], int(got.R), delta, "red of %v", got)
	assert.InDelta(t, want[1], int(got.G), delta, "green of %v", got)
	assert.InDelta(t, want[2], int(got.B), delta, "blue of %v", got)
}

func TestRenderDiffuseCube(t *testing.T) {
	matte := geometry.NewMaterial(1, "matte", 0, 1, 0, 0)
	sc := frontScene(unitCube(surfaceWith(core.NewVec3(0.8, 0.2, 0.1), 1, matte)))

	opts := testOptions()
	opts.AOSamples = 1
	light := core.NewVec3(0, 0, 10)
	opts.Light = &light

	_, stats, pixels := render(t, sc, opts, 9)

	assertRGB(t, [3]int{204, 51, 25}, pixels[4][4], 2)
	assert.False(t, stats.Cancelled)
	assert.Equal(t, 9, stats.Units)
	assert.Equal(t, 9, stats.UnitsRendered)
	assert.Zero(t, stats.UnitsFailed)
	assert.Greater(t, stats.Rays, int64(0))
}

func TestRenderNearestPrimitiveWins(t *testing.T) {
	flat := geometry.NewMaterial(1, "flat", 1, 0, 0, 0)
	far := unitCube(surfaceWith(core.NewVec3(0, 0, 1), 1, flat))
	near := geometry.NewAxisAlignedBox(core.NewVec3(-0.5, -0.5, 1), core.NewVec3(0.5, 0.5, 2),
		surfaceWith(core.NewVec3(1, 0, 0), 1, flat))

	opts := testOptions()
	opts.Shadows = false

	// Registration order must not matter
	_, _, pixels := render(t, frontScene(far, near), opts, 5)
	assertRGB(t, [3]int{255, 0, 0}, pixels[2][2], 0)

	_, _, pixels = render(t, frontScene(near, far), opts, 5)
	assertRGB(t, [3]int{255, 0, 0}, pixels[2][2], 0)
}

func TestRenderShadows(t *testing.T) {
	m := geometry.NewMaterial(1, "shaded", 0.2, 1, 0, 0)
	cube := unitCube(surfaceWith(core.NewVec3(0.8, 0.2, 0.1), 1, m))
	// Halfway between the top face and the light, outside the view frustum
	blocker := geometry.NewSphere(core.NewVec3(2.5, 0, 5.25), 0.3, geometry.NewSurface(core.NewVec3(1, 1, 1)))
	light := core.NewVec3(5, 0, 10)

	opts := testOptions()
	opts.Light = &light

	_, _, pixels := render(t, frontScene(cube, blocker), opts, 9)
	assertRGB(t, [3]int{40, 10, 5}, pixels[4][4], 2)

	opts.Shadows = false
	_, _, pixels = render(t, frontScene(cube, blocker), opts, 9)
	assert.Greater(t, int(pixels[4][4].R), 200)
}

func TestRenderTransparency(t *testing.T) {
	flat := geometry.NewMaterial(1, "flat", 1, 0, 0, 0)
	glass := geometry.NewAxisAlignedBox(core.NewVec3(-0.5, -0.5, 1), core.NewVec3(0.5, 0.5, 2),
		surfaceWith(core.NewVec3(1, 0, 0), 0.5, flat))
	back := unitCube(surfaceWith(core.NewVec3(0, 0, 1), 1, flat))

	opts := testOptions()
	opts.Shadows = false

	_, _, pixels := render(t, frontScene(glass, back), opts, 5)
	assertRGB(t, [3]int{127, 0, 127}, pixels[2][2], 1)
}

func TestRenderReflection(t *testing.T) {
	mirror := geometry.NewMaterial(1, "mirror", 1, 0, 0, 0.5)
	sc := frontScene(unitCube(surfaceWith(core.NewVec3(1, 0, 0), 1, mirror)))
	sc.Background = core.NewVec3(0, 0, 1)

	opts := testOptions()
	opts.Shadows = false

	// The mirror ray returns towards the camera and sees the background
	_, _, pixels := render(t, sc, opts, 5)
	assertRGB(t, [3]int{127, 0, 127}, pixels[2][2], 1)

	opts.MaxDepth = 0
	_, _, pixels = render(t, sc, opts, 5)
	assertRGB(t, [3]int{127, 0, 127}, pixels[2][2], 1)
}

func TestRenderBackgroundOnMiss(t *testing.T) {
	sc := frontScene(unitCube(geometry.NewSurface(core.NewVec3(1, 1, 1))))
	sc.LookAt(core.NewVec3(0, 0, 10), core.NewVec3(0, 0, 20), core.NewVec3(0, 1, 0))
	sc.Background = core.NewVec3(0.1, 0.2, 0.3)

	_, _, pixels := render(t, sc, testOptions(), 4)
	for y := range pixels {
		for x := range pixels[y] {
			assert.Equal(t, color.RGBA{25, 51, 76, 255}, pixels[y][x], "pixel %d,%d", x, y)
		}
	}
}

func TestRenderEmptyScene(t *testing.T) {
	sc := frontScene()
	sc.Background = core.NewVec3(1, 1, 1)

	_, stats, pixels := render(t, sc, testOptions(), 3)
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, pixels[1][1])
	assert.Zero(t, stats.Primitives)
}

func TestRenderProgressive(t *testing.T) {
	matte := geometry.NewMaterial(1, "matte", 0, 1, 0, 0)
	sc := frontScene(unitCube(surfaceWith(core.NewVec3(0.8, 0.2, 0.1), 1, matte)))

	opts := testOptions()
	opts.Mode = Progressive
	opts.Samples = 2
	opts.AOSamples = 1
	light := core.NewVec3(0, 0, 10)
	opts.Light = &light

	for _, kind := range []FilterKind{BoxFilterKind, TriangleFilterKind, GaussianFilterKind} {
		t.Run(string(kind), func(t *testing.T) {
			opts.Filter = kind
			_, stats, pixels := render(t, sc, opts, 9)

			assert.Equal(t, 4, stats.Units)
			assert.Equal(t, 4, stats.UnitsRendered)
			assert.Zero(t, stats.UnitsAborted)
			for y := range pixels {
				for x := range pixels[y] {
					assertRGB(t, [3]int{204, 51, 25}, pixels[y][x], 3)
				}
			}
		})
	}
}

func TestRenderIsDeterministicForOneThread(t *testing.T) {
	m := geometry.NewMaterial(1, "shaded", 0.5, 0.5, 0.5, 0)
	sc := frontScene(
		unitCube(surfaceWith(core.NewVec3(0.8, 0.2, 0.1), 1, m)),
		geometry.NewSphere(core.NewVec3(0.3, 0.3, 0.7), 0.2, surfaceWith(core.NewVec3(0.1, 0.9, 0.1), 1, m)),
	)

	for _, mode := range []RenderMode{Batch, Progressive} {
		t.Run(mode.String(), func(t *testing.T) {
			opts := testOptions()
			opts.Mode = mode
			opts.MaxThreads = 1
			opts.Samples = 2
			opts.AOSamples = 2

			_, _, first := render(t, sc, opts, 8)
			_, _, second := render(t, sc, opts, 8)
			assert.Equal(t, first, second)
		})
	}
}

func TestCancelledProgressiveRender(t *testing.T) {
	sc := frontScene(unitCube(geometry.NewSurface(core.NewVec3(0.5, 0.5, 0.5))))
	opts := testOptions()
	opts.Mode = Progressive
	opts.Samples = 10
	opts.MaxThreads = 4

	o, err := NewOrchestrator(sc, opts, core.NopLogger{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	dispatched := make(map[int]int)
	o.beforeUnit = func(work *WorkCoordinator, unit int) {
		mu.Lock()
		dispatched[unit]++
		mu.Unlock()
		if unit >= 50 {
			for work.Completed() < 50 {
				time.Sleep(time.Millisecond)
			}
			cancel()
			<-ctx.Done()
		}
	}

	img, stats, err := o.CalculateImage(ctx, 8, 8)
	require.NoError(t, err)

	assert.True(t, stats.Cancelled)
	assert.Equal(t, 8, img.Bounds().Dx())
	assert.Equal(t, 8, img.Bounds().Dy())
	assert.Equal(t, 100, stats.Units)
	assert.Greater(t, stats.UnitsDrained, 0)
	assert.Less(t, len(dispatched), 100)
	assert.Equal(t, 100, len(dispatched)+stats.UnitsDrained)
	for unit, count := range dispatched {
		assert.Less(t, unit, 100)
		assert.Equal(t, 1, count, "unit %d dispatched %d times", unit, count)
	}
}

func TestCancelledBatchRender(t *testing.T) {
	sc := frontScene(unitCube(geometry.NewSurface(core.NewVec3(0.5, 0.5, 0.5))))
	o, err := NewOrchestrator(sc, testOptions(), core.NopLogger{})
	require.NoError(t, err)
	o.beforeUnit = func(*WorkCoordinator, int) { time.Sleep(time.Millisecond) }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	img, stats, err := o.CalculateImage(ctx, 64, 4)
	require.NoError(t, err)
	assert.True(t, stats.Cancelled)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Greater(t, stats.UnitsDrained, 0)
	assert.Equal(t, stats.Units, stats.UnitsRendered+stats.UnitsDrained)
}

func TestPreviewIsReported(t *testing.T) {
	sc := frontScene(unitCube(geometry.NewSurface(core.NewVec3(0.5, 0.5, 0.5))))
	opts := testOptions()
	opts.MaxThreads = 1
	opts.PollInterval = time.Millisecond

	o, err := NewOrchestrator(sc, opts, core.NopLogger{})
	require.NoError(t, err)
	o.beforeUnit = func(*WorkCoordinator, int) { time.Sleep(3 * time.Millisecond) }

	previews := 0
	o.Preview = func(img *image.RGBA, progress float64) {
		previews++
		assert.Equal(t, 8, img.Bounds().Dx())
		assert.True(t, progress >= 0 && progress <= 1)
	}

	_, _, err = o.CalculateImage(context.Background(), 8, 8)
	require.NoError(t, err)
	assert.Greater(t, previews, 0)
}

func TestDegeneratePrimitivesAreExcluded(t *testing.T) {
	var buf bytes.Buffer
	logger := core.NewWriterLogger(&buf, "test")

	degenerate := geometry.NewTriangle(core.NewVec3(0, 0, 0), core.NewVec3(1, 1, 1), core.NewVec3(2, 2, 2),
		geometry.NewSurface(core.NewVec3(1, 1, 1)))
	flatBox := geometry.NewBox(core.NewVec3(0, 0, 0), core.NewVec3(1, 0, 0), core.NewVec3(0, 1, 0), core.NewVec3(1, 1, 0),
		geometry.NewSurface(core.NewVec3(1, 1, 1)))
	mesh, err := geometry.NewMesh(
		[]core.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 0}},
		[]int{0, 1, 2, 0, 2, 3},
		geometry.NewSurface(core.NewVec3(1, 1, 1)))
	require.NoError(t, err)
	sphere := geometry.NewSphere(core.NewVec3(0, 0, 0), 1, geometry.NewSurface(core.NewVec3(1, 1, 1)))

	o, err := NewOrchestrator(frontScene(degenerate, flatBox, mesh, sphere), testOptions(), logger)
	require.NoError(t, err)

	assert.Equal(t, 2, o.excluded)
	assert.Len(t, o.Primitives(), 3, "mesh triangles are registered individually")
	assert.Contains(t, buf.String(), "Excluding primitive")

	_, stats, err := o.CalculateImage(context.Background(), 4, 4)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Excluded)
	assert.Equal(t, 3, stats.Primitives)
}

func TestLightDefaultsToCamera(t *testing.T) {
	o, err := NewOrchestrator(frontScene(), testOptions(), nil)
	require.NoError(t, err)
	assertVecInDelta(t, core.NewVec3(0, 0, 10), o.light, 1e-9)
}

func TestOrchestratorErrors(t *testing.T) {
	sc := scene.New("broken")
	sc.Projection = sc.Projection.Mul(0)
	_, err := NewOrchestrator(sc, testOptions(), nil)
	assert.ErrorIs(t, err, ErrSingularCamera)

	o, err := NewOrchestrator(frontScene(), testOptions(), nil)
	require.NoError(t, err)
	_, _, err = o.CalculateImage(context.Background(), 0, 10)
	assert.Error(t, err)
}

func TestWorkerRecoversFromPanic(t *testing.T) {
	var buf bytes.Buffer
	w := &Worker{ID: 3, logger: core.NewWriterLogger(&buf, "test")}

	assert.NotPanics(t, func() {
		w.safely(7, func(int) { panic("boom") })
	})
	assert.Equal(t, 1, w.failed)
	assert.Contains(t, buf.String(), "unit 7 failed: boom")
}

func TestVoxelStepsFor(t *testing.T) {
	tests := []struct {
		primitives int
		want       int
	}{
		{0, 35},
		{9999, 35},
		{10000, 60},
		{49999, 60},
		{50000, 100},
		{1000000, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, VoxelStepsFor(tt.primitives), "%d primitives", tt.primitives)
	}
}

func TestInspect(t *testing.T) {
	red := unitCube(geometry.NewSurface(core.NewVec3(1, 0, 0)))
	o, err := NewOrchestrator(frontScene(red), testOptions(), nil)
	require.NoError(t, err)

	hit, p, ok := o.Inspect(0.5, 0.5)
	require.True(t, ok)
	assert.Same(t, red, p)
	assert.InDelta(t, 9.4, hit.T, 1e-6, "rays start on the near plane")
	assertVecInDelta(t, core.NewVec3(0, 0, 1), hit.Normal, 1e-9)

	sc := frontScene(red)
	sc.LookAt(core.NewVec3(0, 0, 10), core.NewVec3(0, 0, 20), core.NewVec3(0, 1, 0))
	o, err = NewOrchestrator(sc, testOptions(), nil)
	require.NoError(t, err)
	_, _, ok = o.Inspect(0.5, 0.5)
	assert.False(t, ok)
}

func TestConcurrentRendersShareOrchestrator(t *testing.T) {
	matte := geometry.NewMaterial(1, "matte", 0, 1, 0, 0)
	sc := frontScene(unitCube(surfaceWith(core.NewVec3(0.8, 0.2, 0.1), 1, matte)))
	opts := testOptions()
	light := core.NewVec3(0, 0, 10)
	opts.Light = &light

	o, err := NewOrchestrator(sc, opts, core.NopLogger{})
	require.NoError(t, err)

	sizes := []int{9, 33}
	stats := make([]RenderStats, len(sizes))
	images := make([]*image.RGBA, len(sizes))
	errs := make([]error, len(sizes))

	var wg sync.WaitGroup
	for i, size := range sizes {
		i, size := i, size
		wg.Add(1)
		go func() {
			defer wg.Done()
			images[i], stats[i], errs[i] = o.CalculateImage(context.Background(), size, size)
		}()
	}
	wg.Wait()

	for i, size := range sizes {
		require.NoError(t, errs[i])
		assert.Equal(t, size, stats[i].Units)
		assert.Equal(t, size, stats[i].UnitsRendered)
		assert.Zero(t, stats[i].UnitsDrained)
		assertRGB(t, [3]int{204, 51, 25}, images[i].RGBAAt(size/2, size/2), 2)
	}
}

func TestWorkersCappedByUnits(t *testing.T) {
	opts := testOptions()
	opts.MaxThreads = 16
	_, stats, _ := render(t, frontScene(), opts, 3)
	assert.Equal(t, 3, stats.Workers)
}
