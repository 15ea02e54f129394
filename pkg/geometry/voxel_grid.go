package geometry

import (
	"fmt"
	"math"

	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/core"
)

// VoxelGrid is a uniform N x N x N spatial index over a primitive arena.
// Cells hold indices into the arena, never the primitives themselves.
// The grid is read-only once every primitive has been registered.
type VoxelGrid struct {
	Bounds     core.AABB
	Resolution int
	cellSize   core.Vec3
	cells      [][]int32
}

// GridStats summarizes how primitives are spread over the cells
type GridStats struct {
	Cells       int
	FilledCells int
	References  int // Sum of all cell list lengths
	MaxPerCell  int
}

func (s GridStats) String() string {
	return fmt.Sprintf("%d/%d cells filled, %d references, max %d per cell",
		s.FilledCells, s.Cells, s.References, s.MaxPerCell)
}

// NewVoxelGrid creates an empty grid covering bounds with resolution cells per axis.
// Flat axes are padded so every cell has a positive size.
func NewVoxelGrid(bounds core.AABB, resolution int) *VoxelGrid {
	if resolution < 1 {
		resolution = 1
	}
	if !bounds.IsValid() {
		bounds = core.NewAABB(core.NewVec3(-1, -1, -1), core.NewVec3(1, 1, 1))
	}

	size := bounds.Size()
	pad := math.Max(math.Max(size.X, size.Y), size.Z) * 1e-4
	if pad == 0 {
		pad = 1e-4
	}
	bounds = bounds.Expand(pad)
	size = bounds.Size()

	n := float64(resolution)
	return &VoxelGrid{
		Bounds:     bounds,
		Resolution: resolution,
		cellSize:   core.NewVec3(size.X/n, size.Y/n, size.Z/n),
		cells:      make([][]int32, resolution*resolution*resolution),
	}
}

// BuildVoxelGrid registers every primitive under its arena index
func BuildVoxelGrid(primitives []Primitive, resolution int) *VoxelGrid {
	bounds := core.EmptyAABB()
	for _, p := range primitives {
		bounds = bounds.Union(p.BoundingBox())
	}
	g := NewVoxelGrid(bounds, resolution)
	for i, p := range primitives {
		g.Register(int32(i), p)
	}
	return g
}

// CellSize returns the extent of a single cell
func (g *VoxelGrid) CellSize() core.Vec3 {
	return g.cellSize
}

func (g *VoxelGrid) cellIndex(x, y, z int) int {
	return (z*g.Resolution+y)*g.Resolution + x
}

// cellCoord maps a world coordinate on one axis to a clamped cell coordinate
func (g *VoxelGrid) cellCoord(axis int, v float64) int {
	c := int(math.Floor((v - g.Bounds.Min.Axis(axis)) / g.cellSize.Axis(axis)))
	if c < 0 {
		return 0
	}
	if c >= g.Resolution {
		return g.Resolution - 1
	}
	return c
}

// CellBounds returns the world-space box of cell (x, y, z)
func (g *VoxelGrid) CellBounds(x, y, z int) core.AABB {
	min := g.Bounds.Min.Add(core.NewVec3(
		float64(x)*g.cellSize.X,
		float64(y)*g.cellSize.Y,
		float64(z)*g.cellSize.Z,
	))
	return core.NewAABB(min, min.Add(g.cellSize))
}

// Cell returns the primitive indices listed in cell (x, y, z)
func (g *VoxelGrid) Cell(x, y, z int) []int32 {
	return g.cells[g.cellIndex(x, y, z)]
}

// Register lists the primitive in every cell it truly overlaps.
// The bounding box only narrows the candidate range.
func (g *VoxelGrid) Register(index int32, p Primitive) {
	box := p.BoundingBox()
	if !box.Overlaps(g.Bounds) {
		return
	}

	var lo, hi [3]int
	for axis := 0; axis < 3; axis++ {
		lo[axis] = g.cellCoord(axis, box.Min.Axis(axis))
		hi[axis] = g.cellCoord(axis, box.Max.Axis(axis))
	}

	for z := lo[2]; z <= hi[2]; z++ {
		for y := lo[1]; y <= hi[1]; y++ {
			for x := lo[0]; x <= hi[0]; x++ {
				if !p.IntersectsAABB(g.CellBounds(x, y, z)) {
					continue
				}
				i := g.cellIndex(x, y, z)
				g.cells[i] = append(g.cells[i], index)
			}
		}
	}
}

// Stats counts filled cells and references
func (g *VoxelGrid) Stats() GridStats {
	stats := GridStats{Cells: len(g.cells)}
	for _, cell := range g.cells {
		if len(cell) == 0 {
			continue
		}
		stats.FilledCells++
		stats.References += len(cell)
		if len(cell) > stats.MaxPerCell {
			stats.MaxPerCell = len(cell)
		}
	}
	return stats
}

// Traversal walks the cells pierced by one ray in order of increasing t.
// All distances are in units of the ray parameter of the ray passed to SetupRay.
type Traversal struct {
	grid   *VoxelGrid
	cell   [3]int
	step   [3]int
	tDelta [3]float64
	tMax   [3]float64
	steps  int
	done   bool
}

// SetupRay positions a traversal at the first non-empty cell along the ray.
// It returns false when the ray misses the grid or crosses only empty cells.
func (g *VoxelGrid) SetupRay(ray core.Ray) (Traversal, bool) {
	tr := Traversal{grid: g}
	if ray.Direction.LengthSquared() == 0 {
		return tr, false
	}

	entry := ray.Origin
	if !g.Bounds.Contains(ray.Origin) {
		var ok bool
		entry, ok = g.entryPoint(ray)
		if !ok {
			return tr, false
		}
	}

	for axis := 0; axis < 3; axis++ {
		tr.cell[axis] = g.cellCoord(axis, entry.Axis(axis))

		d := ray.Direction.Axis(axis)
		o := ray.Origin.Axis(axis)
		min := g.Bounds.Min.Axis(axis)
		size := g.cellSize.Axis(axis)

		switch {
		case d > 0:
			tr.step[axis] = 1
			tr.tDelta[axis] = size / d
			tr.tMax[axis] = (min + float64(tr.cell[axis]+1)*size - o) / d
		case d < 0:
			tr.step[axis] = -1
			tr.tDelta[axis] = -size / d
			tr.tMax[axis] = (min + float64(tr.cell[axis])*size - o) / d
		default:
			tr.step[axis] = 0
			tr.tDelta[axis] = math.Inf(1)
			tr.tMax[axis] = math.Inf(1)
		}
	}

	if len(tr.Cell()) == 0 && !tr.Advance() {
		return tr, false
	}
	return tr, true
}

// entryPoint finds where a ray starting outside the grid enters it.
// The X entry plane is tried first, then Y, then Z; the first crossing that
// lands within the other two extents wins.
func (g *VoxelGrid) entryPoint(ray core.Ray) (core.Vec3, bool) {
	for axis := 0; axis < 3; axis++ {
		d := ray.Direction.Axis(axis)
		if d == 0 {
			continue
		}
		plane := g.Bounds.Min.Axis(axis)
		if d < 0 {
			plane = g.Bounds.Max.Axis(axis)
		}
		t := (plane - ray.Origin.Axis(axis)) / d
		if t < 0 {
			continue
		}

		p := ray.At(t).WithAxis(axis, plane)
		inside := true
		for other := 0; other < 3; other++ {
			if other == axis {
				continue
			}
			v := p.Axis(other)
			if v < g.Bounds.Min.Axis(other) || v > g.Bounds.Max.Axis(other) {
				inside = false
				break
			}
		}
		if inside {
			return p, true
		}
	}
	return core.Vec3{}, false
}

// Cell returns the primitive indices of the current cell
func (t *Traversal) Cell() []int32 {
	return t.grid.cells[t.grid.cellIndex(t.cell[0], t.cell[1], t.cell[2])]
}

// TMax returns the ray parameter at which the ray leaves the current cell
func (t *Traversal) TMax() float64 {
	return math.Min(t.tMax[0], math.Min(t.tMax[1], t.tMax[2]))
}

// Steps returns how many cell boundaries have been crossed
func (t *Traversal) Steps() int {
	return t.steps
}

// Advance moves to the next non-empty cell. It returns false once the ray
// leaves the grid; the traversal is finished after that.
func (t *Traversal) Advance() bool {
	if t.done {
		return false
	}
	for {
		var axis int
		if t.tMax[0] < t.tMax[1] {
			if t.tMax[0] < t.tMax[2] {
				axis = 0
			} else {
				axis = 2
			}
		} else {
			if t.tMax[1] < t.tMax[2] {
				axis = 1
			} else {
				axis = 2
			}
		}

		if math.IsInf(t.tMax[axis], 1) {
			t.done = true
			return false
		}

		t.cell[axis] += t.step[axis]
		t.steps++
		if t.cell[axis] < 0 || t.cell[axis] >= t.grid.Resolution {
			t.done = true
			return false
		}
		t.tMax[axis] += t.tDelta[axis]

		if len(t.Cell()) > 0 {
			return true
		}
	}
}
