package scene

import (
	"errors"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	ErrNilMesh      = errors.New("scene: impostor requires a mesh")
	ErrWorldStepped = errors.New("scene: cannot create impostor during a step")
)

var _ PhysicsWorld = (*inMemoryWorld)(nil)

// inMemoryWorld is a minimal rigid-body backend: semi-implicit Euler
// integration, a flat ground plane at y=0 with restitution bounce, impulses
// applied directly to linear velocity. It exists so the headless server and
// the tests have a working rigid-body-driven path; a production deployment
// would satisfy PhysicsWorld with a real engine instead.
type inMemoryWorld struct {
	mu       sync.Mutex
	gravity  mgl64.Vec3
	bodies   []*inMemoryBody
	stepping bool
}

// NewWorld creates an in-memory physics world with the given gravity.
func NewWorld(gravity mgl64.Vec3) PhysicsWorld {
	return &inMemoryWorld{gravity: gravity}
}

func (w *inMemoryWorld) CreateImpostor(mesh Mesh, shape ShapeKind, opts BodyOptions) (Body, error) {
	if mesh == nil {
		return nil, ErrNilMesh
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stepping {
		return nil, ErrWorldStepped
	}
	b := &inMemoryBody{
		world:       w,
		mesh:        mesh,
		shape:       shape,
		mass:        opts.Mass,
		friction:    opts.Friction,
		restitution: opts.Restitution,
		position:    mesh.Position(),
	}
	w.bodies = append(w.bodies, b)
	return b, nil
}

func (w *inMemoryWorld) RemoveImpostor(body Body) {
	b, ok := body.(*inMemoryBody)
	if !ok {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, known := range w.bodies {
		if known == b {
			w.bodies = append(w.bodies[:i], w.bodies[i+1:]...)
			b.removed = true
			return
		}
	}
}

func (w *inMemoryWorld) Bodies() []Body {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Body, len(w.bodies))
	for i, b := range w.bodies {
		out[i] = b
	}
	return out
}

func (w *inMemoryWorld) GroundHeight(_, _ float64) (float64, bool) {
	return 0, true
}

func (w *inMemoryWorld) Gravity() mgl64.Vec3 { return w.gravity }

func (w *inMemoryWorld) Step(dt float64) {
	if dt <= 0 {
		return
	}
	w.mu.Lock()
	w.stepping = true
	bodies := make([]*inMemoryBody, len(w.bodies))
	copy(bodies, w.bodies)
	w.mu.Unlock()

	for _, b := range bodies {
		b.integrate(w.gravity, dt)
	}

	w.mu.Lock()
	w.stepping = false
	w.mu.Unlock()
}

type inMemoryBody struct {
	world       *inMemoryWorld
	mesh        Mesh
	shape       ShapeKind
	mass        float64
	friction    float64
	restitution float64
	position    mgl64.Vec3
	velocity    mgl64.Vec3
	removed     bool
}

func (b *inMemoryBody) Mesh() Mesh           { return b.mesh }
func (b *inMemoryBody) Mass() float64        { return b.mass }
func (b *inMemoryBody) Position() mgl64.Vec3 { return b.position }

func (b *inMemoryBody) SetPosition(p mgl64.Vec3) {
	b.position = p
	if b.mesh != nil {
		b.mesh.SetPosition(p)
	}
}

func (b *inMemoryBody) LinearVelocity() mgl64.Vec3     { return b.velocity }
func (b *inMemoryBody) SetLinearVelocity(v mgl64.Vec3) { b.velocity = v }

func (b *inMemoryBody) ApplyImpulse(impulse, _ mgl64.Vec3) {
	if b.mass <= 0 {
		return // static body
	}
	b.velocity = b.velocity.Add(impulse.Mul(1 / b.mass))
}

func (b *inMemoryBody) ObjectCenter() mgl64.Vec3 { return b.position }

func (b *inMemoryBody) integrate(gravity mgl64.Vec3, dt float64) {
	if b.mass <= 0 || b.removed {
		return
	}
	b.velocity = b.velocity.Add(gravity.Mul(dt))
	b.position = b.position.Add(b.velocity.Mul(dt))

	// Ground plane contact: clamp and bounce.
	radius := BoundingVolume(b.mesh).Radius
	if ground := b.position.Y() - radius; ground < 0 {
		b.position[1] = radius
		if b.velocity.Y() < 0 {
			b.velocity[1] = -b.velocity.Y() * b.restitution
			damp := 1 - b.friction*dt
			if damp < 0 {
				damp = 0
			}
			b.velocity[0] *= damp
			b.velocity[2] *= damp
		}
	}
	if b.mesh != nil {
		b.mesh.SetPosition(b.position)
	}
}
