package projectile

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/hackademics/runjumpski/internal/core/events/bus"
	"github.com/hackademics/runjumpski/internal/core/observability/log"
	"github.com/hackademics/runjumpski/internal/core/scene"
	"github.com/hackademics/runjumpski/internal/core/simulation/collision"
	"github.com/hackademics/runjumpski/pkg/generic"
)

// ID identifies a live projectile. IDs are allocated monotonically and never
// reused, so a stale ID held across a destroy cycle can never address a
// recycled record.
type ID uint64

var (
	ErrNotInitialized = errors.New("projectile: physics not initialized")
	ErrUnknownID      = errors.New("projectile: unknown projectile id")
)

// Event types published on the bus.
const (
	EventSpawned   = "projectile.spawned"
	EventDestroyed = "projectile.destroyed"
	EventExploded  = "projectile.exploded"
)

// SpawnedEvent is the payload of EventSpawned.
type SpawnedEvent struct {
	ID       ID
	Position mgl64.Vec3
	Velocity mgl64.Vec3
}

// DestroyedEvent is the payload of EventDestroyed.
type DestroyedEvent struct {
	ID       ID
	Position mgl64.Vec3
	Exploded bool
}

// ExplodedEvent is the payload of EventExploded.
type ExplodedEvent struct {
	ID     ID
	Center mgl64.Vec3
	Radius float64
	Force  float64
}

// SpawnParams describes one projectile launch. Config overrides the manager
// default when non-nil; the callbacks are optional.
type SpawnParams struct {
	Start     mgl64.Vec3
	Direction mgl64.Vec3
	Config    *Config
	// OnImpact fires when the projectile hits a collider or the ground, before
	// the projectile is destroyed.
	OnImpact func(id ID, contact collision.Contact)
	// OnExpire fires when lifetime or travel distance runs out with no impact.
	OnExpire func(id ID)
}

// Projectile is a pooled in-flight record. All fields are owned by Physics;
// external code addresses projectiles by ID only.
type Projectile struct {
	id       ID
	cfg      Config
	mesh     scene.Mesh
	body     scene.Body
	collider collision.ColliderID
	handler  string

	position mgl64.Vec3
	velocity mgl64.Vec3
	age      float64
	traveled float64
	manual   bool
	active   bool
	dying    bool

	onImpact func(id ID, contact collision.Contact)
	onExpire func(id ID)
}

// Reset returns the record to its idle state. Backend handles must already be
// released by the teardown path; Reset only clears the record itself.
func (p *Projectile) Reset() {
	*p = Projectile{}
}

// Stats is a snapshot of manager activity for the telemetry surface.
type Stats struct {
	Active   int
	Spawned  uint64
	Impacts  uint64
	Expired  uint64
	Exploded uint64
	Pool     generic.PoolStats
}

// Physics owns the pooled projectile lifecycle: spawn, per-tick integration,
// impact handling, explosion application, and guaranteed teardown of the mesh,
// rigid body and collider on every exit path.
type Physics struct {
	mu   sync.Mutex
	cfg  Config
	log  log.Log
	bus  bus.EventBus
	pool *generic.ObjectPool[*Projectile]

	world      scene.PhysicsWorld
	meshes     scene.MeshFactory
	collisions *collision.System
	rigid      bool

	nextID ID
	live   map[ID]*Projectile
	order  []ID

	spawned  uint64
	impacts  uint64
	expired  uint64
	exploded uint64
}

// PoolSizing controls projectile pool pre-warming.
type PoolSizing struct {
	Prewarm int
	Max     int
}

// NewPhysics creates the projectile manager with a default per-projectile
// configuration. Initialize must be called before the first spawn.
func NewPhysics(cfg Config, sizing PoolSizing, logger log.Log, events bus.EventBus) (*Physics, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Physics{
		cfg:  cfg,
		log:  logger,
		bus:  events,
		live: make(map[ID]*Projectile),
		pool: generic.NewObjectPool(func() *Projectile { return &Projectile{} }, generic.PoolConfig{
			InitialSize: sizing.Prewarm,
			MaxSize:     sizing.Max,
		}),
	}, nil
}

// Initialize attaches the scene backends. Projectiles use rigid bodies when a
// physics world is attached and useRigidBodies is set; otherwise each record
// integrates its own ballistic state. The mode is fixed per projectile at
// creation, so toggling backends mid-flight never switches a live record.
func (p *Physics) Initialize(world scene.PhysicsWorld, meshes scene.MeshFactory, collisions *collision.System, useRigidBodies bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.world = world
	p.meshes = meshes
	p.collisions = collisions
	p.rigid = useRigidBodies && world != nil
}

func (p *Physics) initialized() bool {
	return p.meshes != nil && p.world != nil
}

// CreateProjectile launches a projectile and returns its ID. Calling before
// Initialize is a programming error and panics.
func (p *Physics) CreateProjectile(params SpawnParams) (ID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized() {
		panic(ErrNotInitialized)
	}

	cfg := p.cfg
	if params.Config != nil {
		cfg = *params.Config
	}
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	dirLen := params.Direction.Len()
	if dirLen < 1e-12 {
		return 0, fmt.Errorf("projectile: zero launch direction: %w", ErrInvalidConfig)
	}

	rec := p.pool.Get()
	p.nextID++
	rec.id = p.nextID
	rec.cfg = cfg
	rec.position = params.Start
	rec.velocity = params.Direction.Mul(cfg.InitialVelocity / dirLen)
	rec.onImpact = params.OnImpact
	rec.onExpire = params.OnExpire
	rec.active = true
	rec.manual = !p.rigid

	rec.mesh = p.meshes.CreateSphere(fmt.Sprintf("projectile-%d", rec.id), cfg.Radius, params.Start)
	if !rec.manual {
		body, err := p.world.CreateImpostor(rec.mesh, scene.ShapeSphere, scene.BodyOptions{
			Mass:        cfg.Mass,
			Restitution: cfg.Restitution,
		})
		if err != nil {
			// Fall back to manual integration rather than failing the shot.
			p.log.Warn("impostor creation failed, using manual integration",
				log.Uint64("projectile", uint64(rec.id)), log.Error(err))
			rec.manual = true
		} else {
			rec.body = body
			body.SetLinearVelocity(rec.velocity)
		}
	}

	if p.collisions != nil {
		rec.collider = p.collisions.RegisterCollider(rec.mesh, rec.id)
		id := rec.id
		rec.handler = p.collisions.RegisterHandler(rec.collider, collision.AnyCollider, func(c collision.Contact) {
			p.handleImpact(id, c)
		})
	}

	p.live[rec.id] = rec
	p.order = append(p.order, rec.id)
	p.spawned++

	p.publish(EventSpawned, SpawnedEvent{ID: rec.id, Position: rec.position, Velocity: rec.velocity})
	return rec.id, nil
}

// handleImpact runs from the collision system's dispatch phase, outside its
// internal lock, so taking our own lock here is safe.
func (p *Physics) handleImpact(id ID, c collision.Contact) {
	p.mu.Lock()
	rec, ok := p.live[id]
	if !ok || rec.dying {
		p.mu.Unlock()
		return
	}
	rec.dying = true
	p.impacts++
	onImpact := rec.onImpact
	explode := rec.cfg.ExplosionRadius > 0
	p.mu.Unlock()

	if onImpact != nil {
		onImpact(id, c)
	}
	p.DestroyProjectile(id, explode)
}

// Update advances every live projectile by dt seconds. Manual records
// integrate gravity and drag here; rigid records only mirror their body state
// back into the record. Expiries collected during the pass are destroyed after
// it, so the iteration never mutates the live set underneath itself.
func (p *Physics) Update(dt float64) {
	p.mu.Lock()
	type expiry struct {
		id       ID
		onExpire func(id ID)
		onImpact func(id ID, contact collision.Contact)
		contact  collision.Contact
		explode  bool
	}
	var expiries []expiry
	for _, id := range p.order {
		rec, ok := p.live[id]
		if !ok || !rec.active || rec.dying {
			continue
		}

		if rec.manual {
			a := acceleration(rec.velocity, rec.cfg, p.world.Gravity())
			rec.velocity = rec.velocity.Add(a.Mul(dt))
			next := rec.position.Add(rec.velocity.Mul(dt))

			if ground, ok := p.world.GroundHeight(next.X(), next.Z()); ok && next.Y() <= ground && rec.position.Y() > ground {
				// Land exactly on the surface instead of tunneling through it.
				frac := (rec.position.Y() - ground) / (rec.position.Y() - next.Y())
				next = rec.position.Add(next.Sub(rec.position).Mul(frac))
				next[1] = ground
				rec.traveled += next.Sub(rec.position).Len()
				rec.position = next
				rec.mesh.SetPosition(next)
				rec.dying = true
				p.impacts++
				expiries = append(expiries, expiry{
					id:       id,
					onImpact: rec.onImpact,
					contact: collision.Contact{
						A:      rec.collider,
						AOwner: id,
						Point:  next,
						Normal: mgl64.Vec3{0, 1, 0},
					},
					explode: rec.cfg.ExplosionRadius > 0,
				})
				continue
			}
			rec.traveled += next.Sub(rec.position).Len()
			rec.position = next
			rec.mesh.SetPosition(next)
		} else if rec.body != nil {
			next := rec.body.Position()
			rec.traveled += next.Sub(rec.position).Len()
			rec.position = next
			rec.velocity = rec.body.LinearVelocity()
		}

		rec.age += dt
		if rec.age >= rec.cfg.Lifetime || (rec.cfg.MaxDistance > 0 && rec.traveled >= rec.cfg.MaxDistance) {
			rec.dying = true
			p.expired++
			expiries = append(expiries, expiry{id: id, onExpire: rec.onExpire})
		}
	}
	p.mu.Unlock()

	for _, e := range expiries {
		if e.onImpact != nil {
			e.onImpact(e.id, e.contact)
		}
		if e.onExpire != nil {
			e.onExpire(e.id)
		}
		p.DestroyProjectile(e.id, e.explode)
	}
}

// DestroyProjectile tears a projectile down and recycles its record. When
// explode is set the configured blast is applied and announced first.
// Destroying an unknown or already-destroyed ID is a no-op.
func (p *Physics) DestroyProjectile(id ID, explode bool) {
	p.mu.Lock()
	rec, ok := p.live[id]
	if !ok {
		p.mu.Unlock()
		return
	}
	delete(p.live, id)
	for i, oid := range p.order {
		if oid == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	center := rec.position
	if rec.body != nil {
		center = rec.body.ObjectCenter()
	}
	cfg := rec.cfg
	p.mu.Unlock()

	if explode && cfg.ExplosionRadius > 0 {
		p.ApplyExplosionForce(center, cfg.ExplosionRadius, cfg.ExplosionForce)
		p.mu.Lock()
		p.exploded++
		p.mu.Unlock()
		p.publish(EventExploded, ExplodedEvent{ID: id, Center: center, Radius: cfg.ExplosionRadius, Force: cfg.ExplosionForce})
	}

	p.teardown(rec)
	p.publish(EventDestroyed, DestroyedEvent{ID: id, Position: center, Exploded: explode && cfg.ExplosionRadius > 0})

	if err := p.pool.Release(rec); err != nil {
		p.log.Error("projectile release failed", log.Uint64("projectile", uint64(id)), log.Error(err))
	}
}

// teardown releases every backend handle the record owns. It must run on
// every destroy path: impact, expiry, explicit destroy, and Dispose.
func (p *Physics) teardown(rec *Projectile) {
	if p.collisions != nil {
		if rec.handler != "" {
			p.collisions.UnregisterHandler(rec.handler)
		}
		if rec.collider != 0 {
			p.collisions.UnregisterCollider(rec.collider)
		}
	}
	if rec.body != nil {
		p.world.RemoveImpostor(rec.body)
	}
	if rec.mesh != nil && !rec.mesh.Disposed() {
		rec.mesh.Dispose()
	}
}

// ApplyExplosionForce pushes every dynamic body within radius away from
// center. The impulse falls off linearly with distance: full force at the
// center, zero at the edge. Bodies exactly at the center receive an upward
// impulse, there being no meaningful radial direction.
func (p *Physics) ApplyExplosionForce(center mgl64.Vec3, radius, force float64) {
	if radius <= 0 || p.world == nil {
		return
	}
	for _, body := range p.world.Bodies() {
		at := body.ObjectCenter()
		delta := at.Sub(center)
		dist := delta.Len()
		if dist >= radius {
			continue
		}
		strength := force * (1 - dist/radius)
		dir := mgl64.Vec3{0, 1, 0}
		if dist > 1e-9 {
			dir = delta.Mul(1 / dist)
		}
		body.ApplyImpulse(dir.Mul(strength), at)
	}
}

// Position reports the current position of a live projectile.
func (p *Physics) Position(id ID) (mgl64.Vec3, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.live[id]
	if !ok {
		return mgl64.Vec3{}, ErrUnknownID
	}
	return rec.position, nil
}

// Velocity reports the current velocity of a live projectile.
func (p *Physics) Velocity(id ID) (mgl64.Vec3, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.live[id]
	if !ok {
		return mgl64.Vec3{}, ErrUnknownID
	}
	return rec.velocity, nil
}

// ActiveCount reports the number of in-flight projectiles.
func (p *Physics) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.live)
}

// Stats returns a snapshot of lifetime counters and pool occupancy.
func (p *Physics) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Active:   len(p.live),
		Spawned:  p.spawned,
		Impacts:  p.impacts,
		Expired:  p.expired,
		Exploded: p.exploded,
		Pool:     p.pool.Stats(),
	}
}

// Dispose destroys every live projectile without explosions and drains the
// pool.
func (p *Physics) Dispose() {
	p.mu.Lock()
	ids := make([]ID, len(p.order))
	copy(ids, p.order)
	p.mu.Unlock()
	for _, id := range ids {
		p.DestroyProjectile(id, false)
	}
	p.pool.Dispose(nil)
}

func (p *Physics) publish(typ string, data any) {
	if p.bus == nil {
		return
	}
	if err := p.bus.Publish(bus.NewEvent(typ, "projectile", data)); err != nil {
		p.log.Warn("event publish failed", log.String("event", typ), log.Error(err))
	}
}
