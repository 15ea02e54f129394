package sampler

import (
	"math/rand"

	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/core"
)

// StratifiedSampler produces full jittered sample grids for batch rendering.
// Every pixel gets a fresh jitter and a fresh permutation so neighboring
// pixels do not share a pattern.
type StratifiedSampler struct {
	random *rand.Rand
	aaSide int
	aoSide int
	aa     []core.Vec2
	lens   []core.Vec2
	ao     []core.Vec3
	aoGrid []core.Vec2
}

// NewStratifiedSampler creates a sampler with aaSide² anti-aliasing and lens
// samples and aoSide² occlusion samples per pixel
func NewStratifiedSampler(random *rand.Rand, aaSide, aoSide int) *StratifiedSampler {
	if aaSide < 1 {
		aaSide = 1
	}
	if aoSide < 0 {
		aoSide = 0
	}
	return &StratifiedSampler{
		random: random,
		aaSide: aaSide,
		aoSide: aoSide,
		aa:     make([]core.Vec2, aaSide*aaSide),
		lens:   make([]core.Vec2, aaSide*aaSide),
		ao:     make([]core.Vec3, aoSide*aoSide),
		aoGrid: make([]core.Vec2, aoSide*aoSide),
	}
}

func (s *StratifiedSampler) BeginPixel() {
	jitteredGrid(s.random, s.aaSide, s.aa)
	for i := range s.aa {
		s.aa[i] = core.NewVec2(s.aa[i].X-0.5, s.aa[i].Y-0.5)
	}

	// Lens samples get their own permutation so they don't correlate with AA
	jitteredGrid(s.random, s.aaSide, s.lens)
	for i := range s.lens {
		s.lens[i] = core.SamplePointInUnitDisk(s.lens[i])
	}

	if s.aoSide > 0 {
		jitteredGrid(s.random, s.aoSide, s.aoGrid)
		for i, u := range s.aoGrid {
			s.ao[i] = core.SampleCosineHemisphere(u)
		}
	}
}

func (s *StratifiedSampler) AASample(i int) core.Vec2 {
	return s.aa[i%len(s.aa)]
}

func (s *StratifiedSampler) LensSample(i int) core.Vec2 {
	return s.lens[i%len(s.lens)]
}

func (s *StratifiedSampler) AODirection(i int) core.Vec3 {
	return s.ao[i%len(s.ao)]
}

func (s *StratifiedSampler) AACount() int {
	return len(s.aa)
}

func (s *StratifiedSampler) AOCount() int {
	return len(s.ao)
}
