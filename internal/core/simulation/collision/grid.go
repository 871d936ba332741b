package collision

import (
	"math"

	"github.com/hackademics/runjumpski/internal/core/scene"
)

// cellKey addresses one uniform grid cell by integer coordinates.
type cellKey struct {
	x, y, z int32
}

// grid is the broad-phase bucket structure: an unbounded uniform grid backed
// by a hash map, so the world needs no fixed extent. Cells are created on
// demand; Clear keeps the allocated buckets and only empties them, which
// avoids re-allocating every refresh.
type grid struct {
	cellSize    float64
	invCellSize float64
	cells       map[cellKey][]ColliderID
}

func newGrid(cellSize float64) *grid {
	return &grid{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cells:       make(map[cellKey][]ColliderID),
	}
}

// clear empties every bucket without deallocating cell memory.
func (g *grid) clear() {
	for k := range g.cells {
		g.cells[k] = g.cells[k][:0]
	}
}

func (g *grid) cellAt(x, y, z float64) cellKey {
	return cellKey{
		x: int32(math.Floor(x * g.invCellSize)),
		y: int32(math.Floor(y * g.invCellSize)),
		z: int32(math.Floor(z * g.invCellSize)),
	}
}

// insert adds a collider to every cell overlapped by its bounding volume.
// Large or cell-straddling colliders occupy several buckets, which keeps the
// candidate test a plain same-cell check.
func (g *grid) insert(id ColliderID, v scene.Volume) {
	minC, maxC := g.cellRange(v)
	for x := minC.x; x <= maxC.x; x++ {
		for y := minC.y; y <= maxC.y; y++ {
			for z := minC.z; z <= maxC.z; z++ {
				k := cellKey{x, y, z}
				g.cells[k] = append(g.cells[k], id)
			}
		}
	}
}

func (g *grid) cellRange(v scene.Volume) (cellKey, cellKey) {
	ext := v.HalfExtents
	if v.Kind != scene.ShapeBox {
		ext[0], ext[1], ext[2] = v.Radius, v.Radius, v.Radius
	}
	minC := g.cellAt(v.Center.X()-ext.X(), v.Center.Y()-ext.Y(), v.Center.Z()-ext.Z())
	maxC := g.cellAt(v.Center.X()+ext.X(), v.Center.Y()+ext.Y(), v.Center.Z()+ext.Z())
	return minC, maxC
}

// candidatePairs invokes fn once per unordered collider pair that shares at
// least one cell. The seen set deduplicates pairs that co-occupy several
// cells.
func (g *grid) candidatePairs(fn func(a, b ColliderID)) int {
	seen := make(map[[2]ColliderID]struct{})
	for _, ids := range g.cells {
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				a, b := ids[i], ids[j]
				if a == b {
					continue
				}
				if b < a {
					a, b = b, a
				}
				key := [2]ColliderID{a, b}
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				fn(a, b)
			}
		}
	}
	return len(seen)
}

// occupancy reports non-empty cell count and the largest bucket, for the
// visualize/debug path.
func (g *grid) occupancy() (cells int, largest int) {
	for _, ids := range g.cells {
		if len(ids) == 0 {
			continue
		}
		cells++
		if len(ids) > largest {
			largest = len(ids)
		}
	}
	return cells, largest
}
