package renderer

import (
	"math/rand"
	"sync/atomic"

	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/core"
	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/geometry"
)

// Inspect casts the pinhole ray through image coordinates (u, v), with
// v = 0 at the bottom, and returns the nearest hit and the primitive it
// belongs to. It is safe to call while a render is running.
func (o *Orchestrator) Inspect(u, v float64) (geometry.HitRecord, geometry.Primitive, bool) {
	w := o.detachedWorker()
	hit, ok := w.RayCast(o.camera.Ray(u, v, core.Vec2{}), -1)
	if !ok {
		return geometry.HitRecord{}, nil, false
	}
	return hit, o.primitives[hit.Primitive], true
}

// detachedWorker returns a batch worker over a 1x1 frame with no buffer,
// for casting single rays outside a render
func (o *Orchestrator) detachedWorker() *Worker {
	opts := o.opts
	opts.Mode = Batch
	f := &frame{
		primitives: o.primitives,
		grid:       o.grid,
		camera:     o.camera,
		light:      o.light,
		background: o.background,
		opts:       opts,
		filter:     NewFilter(opts.Filter),
		width:      1,
		height:     1,
		epsilon:    rayEpsilon(o.grid),
		terminated: &atomic.Bool{},
	}
	return newWorker(-1, f, rand.New(rand.NewSource(0)), nil, core.NopLogger{})
}
