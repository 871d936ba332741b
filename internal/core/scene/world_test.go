package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorldCreateImpostorRequiresMesh(t *testing.T) {
	w := NewWorld(mgl64.Vec3{0, -9.81, 0})
	_, err := w.CreateImpostor(nil, ShapeSphere, BodyOptions{Mass: 1})
	assert.ErrorIs(t, err, ErrNilMesh)
}

func TestWorldStepAppliesGravity(t *testing.T) {
	w := NewWorld(mgl64.Vec3{0, -10, 0})
	meshes := NewMeshFactory()
	m := meshes.CreateSphere("ball", 0.5, mgl64.Vec3{0, 100, 0})
	b, err := w.CreateImpostor(m, ShapeSphere, BodyOptions{Mass: 2})
	require.NoError(t, err)

	w.Step(0.1)
	assert.InDelta(t, -1.0, b.LinearVelocity().Y(), 1e-9)
	assert.Less(t, b.Position().Y(), 100.0)
	assert.Equal(t, b.Position(), m.Position(), "mesh follows body")
}

func TestWorldGroundBounceRespectsRestitution(t *testing.T) {
	w := NewWorld(mgl64.Vec3{0, -10, 0})
	meshes := NewMeshFactory()
	m := meshes.CreateSphere("ball", 0.5, mgl64.Vec3{0, 0.6, 0})
	b, err := w.CreateImpostor(m, ShapeSphere, BodyOptions{Mass: 1, Restitution: 0.5})
	require.NoError(t, err)
	b.SetLinearVelocity(mgl64.Vec3{0, -10, 0})

	w.Step(0.1)
	assert.InDelta(t, 0.5, b.Position().Y(), 1e-9, "clamped to ground contact")
	assert.Greater(t, b.LinearVelocity().Y(), 0.0, "bounced upward")
	assert.InDelta(t, 0.5*11.0, b.LinearVelocity().Y(), 1e-6)
}

func TestWorldImpulseScalesByInverseMass(t *testing.T) {
	w := NewWorld(mgl64.Vec3{})
	meshes := NewMeshFactory()
	m := meshes.CreateSphere("crate", 1, mgl64.Vec3{0, 5, 0})
	b, err := w.CreateImpostor(m, ShapeSphere, BodyOptions{Mass: 4})
	require.NoError(t, err)

	b.ApplyImpulse(mgl64.Vec3{8, 0, 0}, b.ObjectCenter())
	assert.InDelta(t, 2.0, b.LinearVelocity().X(), 1e-9)

	// Static bodies ignore impulses.
	sm := meshes.CreateBox("wall", mgl64.Vec3{1, 1, 1}, mgl64.Vec3{})
	sb, err := w.CreateImpostor(sm, ShapeBox, BodyOptions{Mass: 0})
	require.NoError(t, err)
	sb.ApplyImpulse(mgl64.Vec3{100, 0, 0}, sb.ObjectCenter())
	assert.Equal(t, mgl64.Vec3{}, sb.LinearVelocity())
}

func TestWorldRemoveImpostor(t *testing.T) {
	w := NewWorld(mgl64.Vec3{})
	meshes := NewMeshFactory()
	m := meshes.CreateSphere("ball", 1, mgl64.Vec3{})
	b, err := w.CreateImpostor(m, ShapeSphere, BodyOptions{Mass: 1})
	require.NoError(t, err)
	assert.Len(t, w.Bodies(), 1)
	w.RemoveImpostor(b)
	assert.Empty(t, w.Bodies())
}

func TestIntersectSpheres(t *testing.T) {
	a := Volume{Kind: ShapeSphere, Center: mgl64.Vec3{0, 0, 0}, Radius: 1}
	b := Volume{Kind: ShapeSphere, Center: mgl64.Vec3{1.5, 0, 0}, Radius: 1}
	c, ok := Intersect(a, b)
	require.True(t, ok)
	assert.InDelta(t, 0.5, c.Depth, 1e-9)
	assert.InDelta(t, 1.0, c.Normal.X(), 1e-9)

	far := Volume{Kind: ShapeSphere, Center: mgl64.Vec3{3, 0, 0}, Radius: 1}
	_, ok = Intersect(a, far)
	assert.False(t, ok)
}

func TestIntersectSphereBox(t *testing.T) {
	s := Volume{Kind: ShapeSphere, Center: mgl64.Vec3{2.2, 0, 0}, Radius: 0.5}
	b := Volume{Kind: ShapeBox, Center: mgl64.Vec3{0, 0, 0}, HalfExtents: mgl64.Vec3{2, 2, 2}}
	c, ok := Intersect(s, b)
	require.True(t, ok)
	assert.InDelta(t, 0.3, c.Depth, 1e-9)

	// Box-first argument order flips the normal.
	c2, ok := Intersect(b, s)
	require.True(t, ok)
	assert.InDelta(t, -c.Normal.X(), c2.Normal.X(), 1e-9)
}

func TestIntersectBoxes(t *testing.T) {
	a := Volume{Kind: ShapeBox, Center: mgl64.Vec3{0, 0, 0}, HalfExtents: mgl64.Vec3{1, 1, 1}}
	b := Volume{Kind: ShapeBox, Center: mgl64.Vec3{1.5, 0, 0}, HalfExtents: mgl64.Vec3{1, 1, 1}}
	c, ok := Intersect(a, b)
	require.True(t, ok)
	assert.InDelta(t, 0.5, c.Depth, 1e-9)
	assert.InDelta(t, 1.0, c.Normal.X(), 1e-9)
}

func TestMeshDispose(t *testing.T) {
	meshes := NewMeshFactory()
	m := meshes.CreateDisc("trail", 2, mgl64.Vec3{})
	assert.False(t, m.Disposed())
	m.Dispose()
	assert.True(t, m.Disposed())
}
