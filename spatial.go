package main

import (
	"fmt"
	"math"
)

// Trackable is everything the grid needs from an entity: a world-space
// position and a bounding radius for its broad-phase circle.
type Trackable interface {
	Position() (x, y float64)
	BoundingRadius() float64
}

// SpatialGrid is a fixed-size uniform grid for broad-phase proximity
// queries. The scene is partitioned into cols*rows rectangular cells,
// each owning a bucket of entity references, addressed by the flattened
// index col + row*cols. Entities are bucketed by the four corners of
// their bounding box, so one entity can occupy up to four cells and can
// land in the same bucket more than once when corners share a cell.
//
// GetNearby returns raw bucket contents: duplicates and the query
// entity itself are not filtered out. Callers deduplicate if needed.
//
// Not safe for concurrent use; the arena serializes all access within
// its tick (clear, then inserts, then queries).
type SpatialGrid struct {
	cols, rows   int
	cellW, cellH float64
	minX, minY   float64
	buckets      [][]Trackable
}

// NewSpatialGrid creates a grid covering a sceneW x sceneH region whose
// lower corner sits at (minX, minY). The bucket table is allocated once
// and its size never changes.
func NewSpatialGrid(cols, rows int, sceneW, sceneH, minX, minY float64) (*SpatialGrid, error) {
	if cols <= 0 || rows <= 0 {
		return nil, fmt.Errorf("spatial grid: non-positive cell counts %dx%d", cols, rows)
	}
	if sceneW <= 0 || sceneH <= 0 {
		return nil, fmt.Errorf("spatial grid: non-positive scene size %gx%g", sceneW, sceneH)
	}
	return &SpatialGrid{
		cols:    cols,
		rows:    rows,
		cellW:   sceneW / float64(cols),
		cellH:   sceneH / float64(rows),
		minX:    minX,
		minY:    minY,
		buckets: make([][]Trackable, cols*rows),
	}, nil
}

// cellIndex returns the flattened cell index for a world-space point.
// math.Floor, not int truncation: points left of or below the origin
// must map to negative cells rather than collapse onto cell 0. The
// result can fall outside [0, BucketCount()); callers range-check
// before touching the bucket table.
func (g *SpatialGrid) cellIndex(x, y float64) int {
	col := int(math.Floor((x - g.minX) / g.cellW))
	row := int(math.Floor((y - g.minY) / g.cellH))
	return col + row*g.cols
}

// cornerIndices returns the cell indices of the four corners of the
// bounding box centered at (x, y) with the given radius. This samples
// corners only: a box wider or taller than one cell would skip interior
// cells, so cell size must stay at or above the largest entity diameter.
func (g *SpatialGrid) cornerIndices(x, y, r float64) [4]int {
	x0, y0 := x-r, y-r
	x1, y1 := x+r, y+r
	return [4]int{
		g.cellIndex(x0, y0),
		g.cellIndex(x1, y0),
		g.cellIndex(x1, y1),
		g.cellIndex(x0, y1),
	}
}

// Insert adds an entity to every bucket its bounding box touches.
// Corners hashing outside the scene are skipped, not an error: a
// partially off-scene entity stays queryable through whichever corners
// do land in range.
func (g *SpatialGrid) Insert(obj Trackable) {
	x, y := obj.Position()
	g.InsertAt(x, y, obj)
}

// InsertAt is Insert with a caller-supplied position, for loops that
// already read it. Identical semantics.
func (g *SpatialGrid) InsertAt(x, y float64, obj Trackable) {
	for _, idx := range g.cornerIndices(x, y, obj.BoundingRadius()) {
		if idx >= 0 && idx < len(g.buckets) {
			g.buckets[idx] = append(g.buckets[idx], obj)
		}
	}
}

// GetNearby returns the combined contents of every bucket the entity's
// bounding box touches, in bucket order. The slice is freshly allocated
// per call, so later inserts or clears do not mutate returned results.
func (g *SpatialGrid) GetNearby(obj Trackable) []Trackable {
	x, y := obj.Position()
	var nearby []Trackable
	for _, idx := range g.cornerIndices(x, y, obj.BoundingRadius()) {
		if idx >= 0 && idx < len(g.buckets) {
			nearby = append(nearby, g.buckets[idx]...)
		}
	}
	return nearby
}

// ClearBuckets empties every bucket, keeping allocated capacity. Called
// once at the top of each tick before that tick's inserts.
func (g *SpatialGrid) ClearBuckets() {
	for i := range g.buckets {
		g.buckets[i] = g.buckets[i][:0]
	}
}

// BucketCount returns the fixed number of cells.
func (g *SpatialGrid) BucketCount() int { return len(g.buckets) }

// CellSize returns the world-space dimensions of one cell.
func (g *SpatialGrid) CellSize() (w, h float64) { return g.cellW, g.cellH }
