// Package systems provides ECS systems for the simulation.
package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"
)

// GridMargin is the number of extra cells scanned around a query's footprint.
const GridMargin = 1

// SpatialGrid provides O(1) neighbor lookups using a cell-based grid.
// Each cell is a fixed-capacity slot range in one flat buffer, so a rebuild
// never allocates. Inserts into a full cell are dropped for that tick.
type SpatialGrid struct {
	cellSize float64
	cols     int
	rows     int
	capacity int
	slots    []ecs.Entity // cols*rows*capacity, row-major
	counts   []int32
	overflow int
}

// NewSpatialGrid creates a spatial grid covering the given world size.
func NewSpatialGrid(width, height, cellSize float64, capacity int) *SpatialGrid {
	cols := int(width/cellSize) + 1
	rows := int(height/cellSize) + 1

	return &SpatialGrid{
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		capacity: capacity,
		slots:    make([]ecs.Entity, cols*rows*capacity),
		counts:   make([]int32, cols*rows),
	}
}

// Clear removes all entities from the grid and resets the overflow counter.
func (g *SpatialGrid) Clear() {
	clear(g.counts)
	g.overflow = 0
}

// Insert adds an entity to the cell containing (x, y).
// Returns false when the cell is full; the entity is then absent from
// queries until the next rebuild.
func (g *SpatialGrid) Insert(e ecs.Entity, x, y float64) bool {
	idx := g.cellIndex(x, y)
	n := int(g.counts[idx])
	if n >= g.capacity {
		g.overflow++
		return false
	}
	g.slots[idx*g.capacity+n] = e
	g.counts[idx]++
	return true
}

// QueryInto appends every entity stored in cells overlapping the square of
// half-width ceil(radius/cellSize)+GridMargin cells around (x, y).
// The result is a superset of the entities within radius; callers narrow it
// with exact distance tests. Reuse dst across calls to avoid allocations.
func (g *SpatialGrid) QueryInto(dst []ecs.Entity, x, y, radius float64) []ecs.Entity {
	reach := GridMargin
	if radius > 0 {
		reach += int(math.Ceil(radius / g.cellSize))
	}

	col, row := g.cellCoords(x, y)
	c0, c1 := max(col-reach, 0), min(col+reach, g.cols-1)
	r0, r1 := max(row-reach, 0), min(row+reach, g.rows-1)

	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			idx := r*g.cols + c
			base := idx * g.capacity
			dst = append(dst, g.slots[base:base+int(g.counts[idx])]...)
		}
	}
	return dst
}

// Overflow returns the number of inserts dropped since the last Clear.
func (g *SpatialGrid) Overflow() int {
	return g.overflow
}

// Dims returns the grid dimensions in cells.
func (g *SpatialGrid) Dims() (cols, rows int) {
	return g.cols, g.rows
}

// cellCoords returns the clamped cell column and row for a world position.
func (g *SpatialGrid) cellCoords(x, y float64) (col, row int) {
	col = int(x / g.cellSize)
	row = int(y / g.cellSize)

	// Clamp to valid range
	if col < 0 {
		col = 0
	} else if col >= g.cols {
		col = g.cols - 1
	}
	if row < 0 {
		row = 0
	} else if row >= g.rows {
		row = g.rows - 1
	}
	return col, row
}

// cellIndex returns the flat index for a world position.
func (g *SpatialGrid) cellIndex(x, y float64) int {
	col, row := g.cellCoords(x, y)
	return row*g.cols + col
}
