package collision

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"

	"github.com/hackademics/runjumpski/internal/core/scene"
)

func sphereAt(x, y, z, r float64) scene.Volume {
	return scene.Volume{Kind: scene.ShapeSphere, Center: mgl64.Vec3{x, y, z}, Radius: r}
}

func TestGridCellAtHandlesNegativeCoords(t *testing.T) {
	g := newGrid(10)
	assert.Equal(t, cellKey{0, 0, 0}, g.cellAt(1, 2, 3))
	assert.Equal(t, cellKey{-1, -1, -1}, g.cellAt(-1, -2, -3))
	assert.Equal(t, cellKey{1, 0, -1}, g.cellAt(10, 9.99, -0.01))
}

func TestGridStraddlingVolumeOccupiesMultipleCells(t *testing.T) {
	g := newGrid(10)
	// Sphere centered on the cell boundary between x cells 0 and 1.
	g.insert(1, sphereAt(10, 5, 5, 2))
	occupied, _ := g.occupancy()
	assert.Equal(t, 2, occupied)
}

func TestGridCandidatePairsDeduplicates(t *testing.T) {
	g := newGrid(10)
	// Both spheres straddle the same boundary, sharing two cells.
	g.insert(1, sphereAt(9, 5, 5, 2))
	g.insert(2, sphereAt(11, 5, 5, 2))

	count := 0
	n := g.candidatePairs(func(a, b ColliderID) {
		count++
		assert.Equal(t, ColliderID(1), a)
		assert.Equal(t, ColliderID(2), b)
	})
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, n)
}

func TestGridDistantCollidersAreNotCandidates(t *testing.T) {
	g := newGrid(10)
	g.insert(1, sphereAt(0, 0, 0, 1))
	g.insert(2, sphereAt(100, 0, 0, 1))
	n := g.candidatePairs(func(a, b ColliderID) {
		t.Fatalf("unexpected candidate pair %d/%d", a, b)
	})
	assert.Zero(t, n)
}

func TestGridClearKeepsBuckets(t *testing.T) {
	g := newGrid(10)
	g.insert(1, sphereAt(0, 0, 0, 1))
	g.clear()
	occupied, largest := g.occupancy()
	assert.Zero(t, occupied)
	assert.Zero(t, largest)
	// Bucket storage survives the clear.
	assert.NotEmpty(t, g.cells)
}

func BenchmarkGridCandidatePairs(b *testing.B) {
	g := newGrid(10)
	id := ColliderID(0)
	for x := 0; x < 10; x++ {
		for z := 0; z < 10; z++ {
			id++
			g.insert(id, sphereAt(float64(x*7), 0, float64(z*7), 1))
		}
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g.candidatePairs(func(a, b ColliderID) {})
	}
}
