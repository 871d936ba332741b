package projectile

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackademics/runjumpski/internal/core/scene"
	"github.com/hackademics/runjumpski/internal/core/simulation/collision"
)

type testRig struct {
	physics    *Physics
	world      scene.PhysicsWorld
	meshes     scene.MeshFactory
	collisions *collision.System
}

func newTestRig(t *testing.T, cfg Config, rigid bool) *testRig {
	t.Helper()
	colls, err := collision.NewSystem(collision.DefaultConfig(), nil)
	require.NoError(t, err)
	phys, err := NewPhysics(cfg, PoolSizing{Prewarm: 4, Max: 32}, nil, nil)
	require.NoError(t, err)
	rig := &testRig{
		physics:    phys,
		world:      scene.NewWorld(testGravity),
		meshes:     scene.NewMeshFactory(),
		collisions: colls,
	}
	rig.physics.Initialize(rig.world, rig.meshes, rig.collisions, rigid)
	return rig
}

func TestCreateBeforeInitializePanics(t *testing.T) {
	phys, err := NewPhysics(DefaultConfig(), PoolSizing{}, nil, nil)
	require.NoError(t, err)
	assert.Panics(t, func() {
		phys.CreateProjectile(SpawnParams{Direction: mgl64.Vec3{1, 0, 0}})
	})
}

func TestCreateRejectsZeroDirection(t *testing.T) {
	rig := newTestRig(t, DefaultConfig(), false)
	_, err := rig.physics.CreateProjectile(SpawnParams{Start: mgl64.Vec3{0, 5, 0}})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLifetimeExpiry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AffectedByGravity = false
	cfg.DragCoefficient = 0
	cfg.Lifetime = 0.5
	cfg.ExplosionRadius = 0
	rig := newTestRig(t, cfg, false)

	var expired []ID
	id, err := rig.physics.CreateProjectile(SpawnParams{
		Start:     mgl64.Vec3{0, 5, 0},
		Direction: mgl64.Vec3{1, 0, 0},
		OnExpire:  func(id ID) { expired = append(expired, id) },
	})
	require.NoError(t, err)
	assert.Equal(t, 1, rig.physics.ActiveCount())

	for i := 0; i < 6; i++ {
		rig.physics.Update(0.1)
	}
	assert.Equal(t, []ID{id}, expired)
	assert.Zero(t, rig.physics.ActiveCount())

	stats := rig.physics.Stats()
	assert.EqualValues(t, 1, stats.Expired)
	assert.Zero(t, stats.Impacts)
}

func TestMaxDistanceExpiry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AffectedByGravity = false
	cfg.DragCoefficient = 0
	cfg.MaxDistance = 2
	cfg.ExplosionRadius = 0
	rig := newTestRig(t, cfg, false)

	_, err := rig.physics.CreateProjectile(SpawnParams{
		Start:     mgl64.Vec3{0, 5, 0},
		Direction: mgl64.Vec3{1, 0, 0},
	})
	require.NoError(t, err)

	// One update at 40 u/s covers 4 units, past the 2 unit ceiling.
	rig.physics.Update(0.1)
	assert.Zero(t, rig.physics.ActiveCount())
	assert.EqualValues(t, 1, rig.physics.Stats().Expired)
}

func TestManualGroundImpact(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExplosionRadius = 0
	rig := newTestRig(t, cfg, false)

	var impact *collision.Contact
	id, err := rig.physics.CreateProjectile(SpawnParams{
		Start:     mgl64.Vec3{0, 3, 0},
		Direction: mgl64.Vec3{0, -1, 0},
		OnImpact: func(_ ID, c collision.Contact) {
			impact = &c
		},
	})
	require.NoError(t, err)

	// 40 u/s straight down from 3 units up lands within the first update.
	rig.physics.Update(0.1)
	require.NotNil(t, impact)
	assert.Equal(t, id, impact.AOwner)
	assert.Zero(t, impact.Point.Y(), "impact point is interpolated onto the ground")
	assert.Zero(t, rig.physics.ActiveCount())
	assert.EqualValues(t, 1, rig.physics.Stats().Impacts)
}

func TestColliderImpactDestroysProjectile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AffectedByGravity = false
	cfg.DragCoefficient = 0
	cfg.ExplosionRadius = 0
	rig := newTestRig(t, cfg, false)

	wall := rig.meshes.CreateBox("wall", mgl64.Vec3{1, 5, 5}, mgl64.Vec3{4, 5, 0})
	rig.collisions.RegisterCollider(wall, "wall")

	hits := 0
	_, err := rig.physics.CreateProjectile(SpawnParams{
		Start:     mgl64.Vec3{0, 5, 0},
		Direction: mgl64.Vec3{1, 0, 0},
		OnImpact: func(_ ID, c collision.Contact) {
			hits++
			assert.Equal(t, "wall", c.BOwner)
		},
	})
	require.NoError(t, err)

	for i := 0; i < 10 && hits == 0; i++ {
		rig.physics.Update(0.016)
		rig.collisions.Step(0.016)
	}
	assert.Equal(t, 1, hits)
	assert.Zero(t, rig.physics.ActiveCount())
	// The wall remains; the projectile's collider is gone.
	assert.Equal(t, 1, rig.collisions.ColliderCount())
}

func TestExplosionForceLinearFalloff(t *testing.T) {
	rig := newTestRig(t, DefaultConfig(), false)

	at := func(pos mgl64.Vec3) scene.Body {
		m := rig.meshes.CreateSphere("target", 0.5, pos)
		b, err := rig.world.CreateImpostor(m, scene.ShapeSphere, scene.BodyOptions{Mass: 1})
		require.NoError(t, err)
		return b
	}
	near := at(mgl64.Vec3{3, 0, 0})
	far := at(mgl64.Vec3{100, 0, 0})
	center := at(mgl64.Vec3{0, 0, 0})

	rig.physics.ApplyExplosionForce(mgl64.Vec3{}, 7, 1500)

	// Grenade tuning: 1500 * (1 - 3/7) at 3 units out, mass 1.
	assert.InDelta(t, 1500*(1-3.0/7.0), near.LinearVelocity().Len(), 1e-9)
	assert.Equal(t, mgl64.Vec3{}, far.LinearVelocity(), "outside the radius is untouched")
	// A body at the blast center is pushed straight up.
	assert.Positive(t, center.LinearVelocity().Y())
	assert.Zero(t, center.LinearVelocity().X())
}

func TestExplosionImpulseScalesWithInverseMass(t *testing.T) {
	rig := newTestRig(t, DefaultConfig(), false)

	light, err := rig.world.CreateImpostor(rig.meshes.CreateSphere("light", 0.5, mgl64.Vec3{2, 0, 0}), scene.ShapeSphere, scene.BodyOptions{Mass: 1})
	require.NoError(t, err)
	heavy, err := rig.world.CreateImpostor(rig.meshes.CreateSphere("heavy", 0.5, mgl64.Vec3{-2, 0, 0}), scene.ShapeSphere, scene.BodyOptions{Mass: 4})
	require.NoError(t, err)

	rig.physics.ApplyExplosionForce(mgl64.Vec3{}, 7, 1500)
	assert.InDelta(t, 4, light.LinearVelocity().Len()/heavy.LinearVelocity().Len(), 1e-9)
}

func TestDestroyReleasesEveryHandle(t *testing.T) {
	rig := newTestRig(t, DefaultConfig(), true)

	id, err := rig.physics.CreateProjectile(SpawnParams{
		Start:     mgl64.Vec3{0, 5, 0},
		Direction: mgl64.Vec3{1, 1, 0},
	})
	require.NoError(t, err)
	assert.Len(t, rig.world.Bodies(), 1)
	assert.Equal(t, 1, rig.collisions.ColliderCount())

	rig.physics.DestroyProjectile(id, false)
	assert.Empty(t, rig.world.Bodies())
	assert.Zero(t, rig.collisions.ColliderCount())
	assert.Zero(t, rig.physics.ActiveCount())

	// Destroy is idempotent.
	rig.physics.DestroyProjectile(id, false)
	assert.Zero(t, rig.physics.Stats().Pool.DoubleReleases)
}

func TestIDsAreNeverReused(t *testing.T) {
	rig := newTestRig(t, DefaultConfig(), false)
	seen := make(map[ID]bool)
	for i := 0; i < 50; i++ {
		id, err := rig.physics.CreateProjectile(SpawnParams{
			Start:     mgl64.Vec3{0, 5, 0},
			Direction: mgl64.Vec3{1, 0, 0},
		})
		require.NoError(t, err)
		require.False(t, seen[id], "id %d reused", id)
		seen[id] = true
		rig.physics.DestroyProjectile(id, false)
	}
}

func TestPoolReusesRecordsUnderChurn(t *testing.T) {
	rig := newTestRig(t, DefaultConfig(), false)
	for i := 0; i < 200; i++ {
		id, err := rig.physics.CreateProjectile(SpawnParams{
			Start:     mgl64.Vec3{0, 5, 0},
			Direction: mgl64.Vec3{1, 0, 0},
		})
		require.NoError(t, err)
		rig.physics.DestroyProjectile(id, false)
	}
	stats := rig.physics.Stats()
	assert.EqualValues(t, 200, stats.Spawned)
	assert.LessOrEqual(t, stats.Pool.Constructed, uint64(32), "churn must be served from the pool")
	assert.Zero(t, stats.Pool.Exhausted)
}

func TestRigidBodyPathFollowsBody(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExplosionRadius = 0
	rig := newTestRig(t, cfg, true)

	id, err := rig.physics.CreateProjectile(SpawnParams{
		Start:     mgl64.Vec3{0, 20, 0},
		Direction: mgl64.Vec3{1, 0, 0},
	})
	require.NoError(t, err)

	rig.world.Step(0.1)
	rig.physics.Update(0.1)

	pos, err := rig.physics.Position(id)
	require.NoError(t, err)
	assert.Less(t, pos.Y(), 20.0, "gravity pulls the rigid body down")
	assert.Positive(t, pos.X())

	vel, err := rig.physics.Velocity(id)
	require.NoError(t, err)
	assert.Negative(t, vel.Y())
}

func TestDisposeDestroysAllLiveProjectiles(t *testing.T) {
	rig := newTestRig(t, DefaultConfig(), true)
	for i := 0; i < 5; i++ {
		_, err := rig.physics.CreateProjectile(SpawnParams{
			Start:     mgl64.Vec3{float64(i), 5, 0},
			Direction: mgl64.Vec3{1, 0, 0},
		})
		require.NoError(t, err)
	}
	rig.physics.Dispose()
	assert.Zero(t, rig.physics.ActiveCount())
	assert.Empty(t, rig.world.Bodies())
	assert.Zero(t, rig.collisions.ColliderCount())
}
