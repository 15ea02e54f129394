package renderer

import (
	"fmt"
	"time"

	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/geometry"
)

// RenderStats contains statistics about one CalculateImage call
type RenderStats struct {
	Width, Height  int
	Mode           RenderMode
	Workers        int
	Units          int   // Total work units of the render
	UnitsRendered  int   // Units handed to a worker
	UnitsDrained   int   // Units skipped after cancellation
	UnitsAborted   int   // Progressive passes abandoned mid-way on cancellation
	UnitsFailed    int   // Units that panicked and were skipped
	Rays           int64 // Rays cast by all workers
	Tests          int64 // Primitive intersection tests by all workers
	Primitives     int   // Primitives in the grid, after flattening
	Excluded       int   // Primitives rejected at preparation
	GridResolution int
	Grid           geometry.GridStats
	Duration       time.Duration
	Cancelled      bool
}

func (s RenderStats) String() string {
	status := "complete"
	if s.Cancelled {
		status = "cancelled"
	}
	return fmt.Sprintf("%dx%d %s render %s in %v: %d/%d units, %d rays, %d workers",
		s.Width, s.Height, s.Mode, status, s.Duration.Round(time.Millisecond),
		s.UnitsRendered, s.Units, s.Rays, s.Workers)
}
