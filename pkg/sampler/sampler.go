// Package sampler generates the stratified sample patterns used for
// anti-aliasing, thin-lens depth of field and ambient occlusion.
package sampler

import (
	"math/rand"

	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/core"
)

// Sampler hands out the samples a worker needs for one pixel.
// Implementations are owned by a single worker and are not safe for concurrent use.
type Sampler interface {
	// BeginPixel prepares the samples for the next pixel
	BeginPixel()
	// AASample returns a sub-pixel offset in [-0.5, 0.5]²
	AASample(i int) core.Vec2
	// LensSample returns a point on the unit disk
	LensSample(i int) core.Vec2
	// AODirection returns a cosine-weighted direction on the z-up hemisphere.
	// Callers orient it with core.ToWorld.
	AODirection(i int) core.Vec3
	// AACount is the number of primary rays per pixel
	AACount() int
	// AOCount is the number of occlusion rays per primary hit
	AOCount() int
}

// jitteredGrid fills dst with one uniformly jittered point per cell of a
// side x side grid over [0,1)², then shuffles the order
func jitteredGrid(random *rand.Rand, side int, dst []core.Vec2) {
	inv := 1.0 / float64(side)
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			dst[y*side+x] = core.NewVec2(
				(float64(x)+random.Float64())*inv,
				(float64(y)+random.Float64())*inv,
			)
		}
	}
	random.Shuffle(len(dst), func(i, j int) {
		dst[i], dst[j] = dst[j], dst[i]
	})
}

// jitterInStratum returns a random point inside stratum s of a side x side grid
func jitterInStratum(random *rand.Rand, side, s int) core.Vec2 {
	inv := 1.0 / float64(side)
	return core.NewVec2(
		(float64(s%side)+random.Float64())*inv,
		(float64(s/side)+random.Float64())*inv,
	)
}

// NewWorkerRand derives an independent generator for one worker from the base generator
func NewWorkerRand(base *rand.Rand, worker int) *rand.Rand {
	seed := base.Int63() ^ int64(uint64(worker+1)*0x9e3779b97f4a7c15>>1)
	return rand.New(rand.NewSource(seed))
}
