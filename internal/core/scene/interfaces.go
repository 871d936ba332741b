package scene

import "github.com/go-gl/mathgl/mgl64"

// This package models the external collaborators the simulation core consumes:
// a rigid-body physics backend, a mesh-producing rendering backend, and a
// particle-emitter backend. In the browser build these are Babylon.js
// services; here the interfaces are narrow enough that the in-memory
// implementations below serve both the headless server and the tests.

// ShapeKind selects the collision primitive attached to a body.
type ShapeKind uint8

const (
	ShapeSphere ShapeKind = iota
	ShapeBox
	ShapeDisc
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeSphere:
		return "sphere"
	case ShapeBox:
		return "box"
	case ShapeDisc:
		return "disc"
	default:
		return "unknown"
	}
}

// Mesh is an owned visual handle. The core creates meshes for pooled objects
// and must dispose every mesh it creates, on every exit path.
type Mesh interface {
	Name() string
	Position() mgl64.Vec3
	SetPosition(mgl64.Vec3)
	Dispose()
	Disposed() bool
}

// MeshFactory creates the primitive meshes used for projectile visuals.
type MeshFactory interface {
	CreateSphere(name string, radius float64, at mgl64.Vec3) Mesh
	CreateBox(name string, halfExtents mgl64.Vec3, at mgl64.Vec3) Mesh
	CreateDisc(name string, radius float64, at mgl64.Vec3) Mesh
}

// BodyOptions configures a rigid body at creation time.
type BodyOptions struct {
	Mass        float64
	Friction    float64
	Restitution float64
}

// Body is a rigid-body handle owned by the physics backend.
type Body interface {
	Mesh() Mesh
	Mass() float64
	Position() mgl64.Vec3
	SetPosition(mgl64.Vec3)
	LinearVelocity() mgl64.Vec3
	SetLinearVelocity(mgl64.Vec3)
	// ApplyImpulse applies an instantaneous impulse at the given world point.
	ApplyImpulse(impulse, at mgl64.Vec3)
	// ObjectCenter is the body's center of mass in world space.
	ObjectCenter() mgl64.Vec3
}

// PhysicsWorld is the rigid-body simulation backend. The projectile system
// prefers bodies created here; the manual-integration path is the fallback
// when no backend is attached.
type PhysicsWorld interface {
	CreateImpostor(mesh Mesh, shape ShapeKind, opts BodyOptions) (Body, error)
	RemoveImpostor(Body)
	// Bodies enumerates every live body, used for explosion force application.
	Bodies() []Body
	// GroundHeight is the ground-plane raycast query at (x, z).
	GroundHeight(x, z float64) (float64, bool)
	Gravity() mgl64.Vec3
	Step(dt float64)
}

// ParticleEmitter is an owned emitter handle supplied by the rendering
// backend. Emitters are pooled by the particle manager and must be disposed
// or recycled on every exit path.
type ParticleEmitter interface {
	Name() string
	Start()
	Stop()
	Running() bool
	SetCapacity(n int)
	SetEmitRate(rate float64)
	SetWorldPosition(mgl64.Vec3)
	// AttachTo pins the emitter to a moving mesh; a nil mesh detaches it.
	AttachTo(Mesh)
	Dispose()
	Disposed() bool
}

// EmitterFactory creates particle emitters.
type EmitterFactory interface {
	CreateEmitter(name string, capacity int) ParticleEmitter
}
