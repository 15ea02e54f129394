package sampler

import (
	"math/rand"

	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/core"
)

// Strata fixes the order in which progressive passes visit the strata.
// It is built once per render from the base generator and shared read-only
// by all workers, so pass k lands in the same stratum whichever worker runs it.
type Strata struct {
	aaSide int
	aoSide int
	aa     []int
	lens   []int
	ao     []int
}

// NewStrata shuffles the aaSide² image strata and aoSide² hemisphere strata
func NewStrata(random *rand.Rand, aaSide, aoSide int) *Strata {
	if aaSide < 1 {
		aaSide = 1
	}
	if aoSide < 0 {
		aoSide = 0
	}
	return &Strata{
		aaSide: aaSide,
		aoSide: aoSide,
		aa:     random.Perm(aaSide * aaSide),
		lens:   random.Perm(aaSide * aaSide),
		ao:     random.Perm(aoSide * aoSide),
	}
}

// Passes is the number of passes needed to visit every image stratum once
func (s *Strata) Passes() int {
	return len(s.aa)
}

// AAStratum returns the image stratum visited by a pass
func (s *Strata) AAStratum(pass int) int {
	return s.aa[pass%len(s.aa)]
}

// ProgressiveSampler yields a single sample per pass. Every pixel of the pass
// shares it; successive passes cover the strata and refine the image.
type ProgressiveSampler struct {
	strata *Strata
	random *rand.Rand
	aa     core.Vec2
	lens   core.Vec2
	ao     core.Vec3
}

// NewProgressiveSampler creates a sampler whose jitter comes from the worker's own generator
func NewProgressiveSampler(strata *Strata, random *rand.Rand) *ProgressiveSampler {
	return &ProgressiveSampler{strata: strata, random: random}
}

// SetPass draws the jittered samples for one pass
func (s *ProgressiveSampler) SetPass(pass int) {
	st := s.strata

	u := jitterInStratum(s.random, st.aaSide, st.aa[pass%len(st.aa)])
	s.aa = core.NewVec2(u.X-0.5, u.Y-0.5)

	u = jitterInStratum(s.random, st.aaSide, st.lens[pass%len(st.lens)])
	s.lens = core.SamplePointInUnitDisk(u)

	if len(st.ao) > 0 {
		u = jitterInStratum(s.random, st.aoSide, st.ao[pass%len(st.ao)])
		s.ao = core.SampleCosineHemisphere(u)
	}
}

func (s *ProgressiveSampler) BeginPixel() {}

func (s *ProgressiveSampler) AASample(int) core.Vec2 {
	return s.aa
}

func (s *ProgressiveSampler) LensSample(int) core.Vec2 {
	return s.lens
}

func (s *ProgressiveSampler) AODirection(int) core.Vec3 {
	return s.ao
}

func (s *ProgressiveSampler) AACount() int {
	return 1
}

func (s *ProgressiveSampler) AOCount() int {
	if len(s.strata.ao) == 0 {
		return 0
	}
	return 1
}
