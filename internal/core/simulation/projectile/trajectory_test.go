package projectile

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testGravity = mgl64.Vec3{0, -9.81, 0}

func dragless() Config {
	cfg := DefaultConfig()
	cfg.DragCoefficient = 0
	return cfg
}

func TestTrajectoryEndsExactlyOnGround(t *testing.T) {
	tr := CalculateTrajectory(mgl64.Vec3{0, 10, 0}, mgl64.Vec3{1, 0, 0}, dragless(), testGravity, 30, 0.005, 100000)

	require.NotEmpty(t, tr.Points)
	last := tr.Points[len(tr.Points)-1]
	assert.Zero(t, last.Position.Y(), "final sample must sit on the ground plane")

	// Horizontal launch from 10 units up: t = sqrt(2h/g).
	expected := math.Sqrt(2 * 10 / 9.81)
	assert.InDelta(t, expected, tr.FlightTime, 0.05)
	assert.InDelta(t, 40*expected, last.Position.X(), 0.5)
}

func TestTrajectoryStats(t *testing.T) {
	up := mgl64.Vec3{1, 1, 0}
	tr := CalculateTrajectory(mgl64.Vec3{0, 0.1, 0}, up, dragless(), testGravity, 30, 0.01, 100000)

	require.Greater(t, len(tr.Points), 2)
	// v_y = 40/sqrt(2); apex = v_y^2 / 2g above the start.
	vy := 40 / math.Sqrt2
	assert.InDelta(t, 0.1+vy*vy/(2*9.81), tr.MaxHeight, 1.0)
	assert.Greater(t, tr.TotalDistance, tr.MaxHeight)
	assert.Positive(t, tr.FlightTime)
}

func TestTrajectoryDragShortensRange(t *testing.T) {
	start := mgl64.Vec3{0, 5, 0}
	dir := mgl64.Vec3{1, 0.5, 0}

	free := CalculateTrajectory(start, dir, dragless(), testGravity, 60, 0.01, 100000)
	dragged := CalculateTrajectory(start, dir, DefaultConfig(), testGravity, 60, 0.01, 100000)

	freeLand := free.Points[len(free.Points)-1].Position.X()
	draggedLand := dragged.Points[len(dragged.Points)-1].Position.X()
	assert.Less(t, draggedLand, freeLand)
}

func TestTrajectoryRespectsMaxPoints(t *testing.T) {
	tr := CalculateTrajectory(mgl64.Vec3{0, 100, 0}, mgl64.Vec3{1, 1, 0}, dragless(), testGravity, 60, 0.01, 10)
	assert.Len(t, tr.Points, 10)
}

func TestTrajectoryZeroDirection(t *testing.T) {
	tr := CalculateTrajectory(mgl64.Vec3{1, 2, 3}, mgl64.Vec3{}, dragless(), testGravity, 10, 0.01, 100)
	require.Len(t, tr.Points, 1)
	assert.Equal(t, mgl64.Vec3{1, 2, 3}, tr.Points[0].Position)
}

func TestAimAnglesHitTarget(t *testing.T) {
	cfg := dragless()
	start := mgl64.Vec3{0, 0, 0}
	target := mgl64.Vec3{30, 0, 0}

	angles := CalculateAimAngles(start, target, cfg, testGravity)
	require.Len(t, angles, 2)
	assert.Less(t, angles[0], angles[1], "low arc first")

	// Fly the low arc and check it lands on the target.
	dir := mgl64.Vec3{math.Cos(angles[0]), math.Sin(angles[0]), 0}
	tr := CalculateTrajectory(start.Add(mgl64.Vec3{0, 1e-6, 0}), dir, cfg, testGravity, 60, 0.001, 1000000)
	land := tr.Points[len(tr.Points)-1].Position
	assert.InDelta(t, target.X(), land.X(), 0.5)
}

func TestAimAnglesOutOfRange(t *testing.T) {
	// Max dragless range at v=40 is v^2/g ≈ 163 units.
	angles := CalculateAimAngles(mgl64.Vec3{}, mgl64.Vec3{500, 0, 0}, dragless(), testGravity)
	assert.Empty(t, angles)
}

func TestAimAnglesWithoutGravity(t *testing.T) {
	cfg := dragless()
	cfg.AffectedByGravity = false
	angles := CalculateAimAngles(mgl64.Vec3{}, mgl64.Vec3{10, 10, 0}, cfg, testGravity)
	require.Len(t, angles, 1)
	assert.InDelta(t, math.Pi/4, angles[0], 1e-9)
}

func TestTrajectoryBatchMatchesSequential(t *testing.T) {
	reqs := []TrajectoryRequest{
		{Start: mgl64.Vec3{0, 5, 0}, Direction: mgl64.Vec3{1, 0, 0}, Config: dragless()},
		{Start: mgl64.Vec3{0, 10, 0}, Direction: mgl64.Vec3{1, 1, 0}, Config: DefaultConfig()},
		{Start: mgl64.Vec3{0, 2, 0}, Direction: mgl64.Vec3{0, 1, 1}, Config: dragless()},
	}
	batch := CalculateTrajectoryBatch(reqs, testGravity, 30, 0.01, 10000, 4)
	require.Len(t, batch, len(reqs))
	for i, r := range reqs {
		want := CalculateTrajectory(r.Start, r.Direction, r.Config, testGravity, 30, 0.01, 10000)
		assert.Equal(t, want, batch[i], "request %d", i)
	}
}

func BenchmarkCalculateTrajectory(b *testing.B) {
	cfg := DefaultConfig()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		CalculateTrajectory(mgl64.Vec3{0, 10, 0}, mgl64.Vec3{1, 0.5, 0}, cfg, testGravity, 30, 0.01, 4096)
	}
}
