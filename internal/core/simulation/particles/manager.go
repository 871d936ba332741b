package particles

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/hackademics/runjumpski/internal/core/events/bus"
	"github.com/hackademics/runjumpski/internal/core/observability/log"
	"github.com/hackademics/runjumpski/internal/core/scene"
	"github.com/hackademics/runjumpski/pkg/generic"
	"github.com/hackademics/runjumpski/pkg/sequence"
)

// EffectID identifies a live effect. IDs are monotonic and never reused.
type EffectID uint64

var (
	ErrNotInitialized = errors.New("particles: manager not initialized")
	ErrUnknownEffect  = errors.New("particles: unknown effect id")
)

// Event types published on the bus.
const (
	EventCreated = "effect.created"
	EventStopped = "effect.stopped"
)

// CreatedEvent is the payload of EventCreated.
type CreatedEvent struct {
	ID   EffectID
	Type EffectType
}

// StoppedEvent is the payload of EventStopped.
type StoppedEvent struct {
	ID        EffectID
	Type      EffectType
	Immediate bool
}

// Effect is a pooled emitter record. The emitter handle survives recycling;
// everything else is cleared between uses.
type Effect struct {
	id      EffectID
	typ     EffectType
	opts    Options
	emitter scene.ParticleEmitter
	item    *sequence.Item[deadline]
	running bool
}

// Reset clears the record but keeps the emitter handle, which is the whole
// point of pooling particle systems.
func (e *Effect) Reset() {
	emitter := e.emitter
	*e = Effect{emitter: emitter}
}

// deadline schedules a non-looping or stopping effect for recycling once its
// longest-lived particles have expired.
type deadline struct {
	id EffectID
	at float64 // manager clock seconds
}

// Stats is a pool occupancy snapshot for the adaptive controller and the
// telemetry surface.
type Stats struct {
	Total     int
	Available int
	Active    int
	Created   uint64
	Recycled  uint64
	Exhausted uint64
}

// Manager mirrors the projectile pool pattern for particle effects: pooled
// emitter records configured from per-type presets, started on create, and
// recycled when stopped or when a non-looping effect's particles die out.
type Manager struct {
	mu       sync.Mutex
	log      log.Log
	bus      bus.EventBus
	factory  scene.EmitterFactory
	pool     *generic.ObjectPool[*Effect]
	live     map[EffectID]*Effect
	pending  *sequence.PriorityQueue[deadline]
	nextID   EffectID
	clock    float64
	scale    float64 // quality-driven multiplier applied to particle budgets
	created  uint64
	recycled uint64
}

// PoolSizing controls effect pool pre-warming.
type PoolSizing struct {
	Prewarm int
	Max     int
}

// NewManager creates the particle manager. The emitter factory is required;
// everything else may be nil.
func NewManager(factory scene.EmitterFactory, sizing PoolSizing, logger log.Log, events bus.EventBus) (*Manager, error) {
	if factory == nil {
		return nil, ErrNotInitialized
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Manager{
		log:     logger,
		bus:     events,
		factory: factory,
		live:    make(map[EffectID]*Effect),
		pending: sequence.NewPriorityQueue(func(a, b deadline) bool { return a.at < b.at }),
		scale:   1,
		pool: generic.NewObjectPool(func() *Effect { return &Effect{} }, generic.PoolConfig{
			InitialSize: sizing.Prewarm,
			MaxSize:     sizing.Max,
		}),
	}, nil
}

// CreateEffect draws a pooled record, configures its emitter from the type
// preset layered under the modifiers, and starts it at the given position.
func (m *Manager) CreateEffect(typ EffectType, at mgl64.Vec3, mods ...Modifier) (EffectID, error) {
	opts := PresetFor(typ)
	for _, mod := range mods {
		mod(&opts)
	}
	return m.createConfigured(typ, at, nil, opts)
}

// CreateExplosion starts a one-shot radial burst at the given position.
func (m *Manager) CreateExplosion(at mgl64.Vec3, mods ...Modifier) (EffectID, error) {
	return m.CreateEffect(EffectExplosion, at, mods...)
}

// CreateJetpackEffect starts a looping thruster flame attached to the mesh.
func (m *Manager) CreateJetpackEffect(attach scene.Mesh, mods ...Modifier) (EffectID, error) {
	opts := PresetFor(EffectJetpack)
	for _, mod := range mods {
		mod(&opts)
	}
	return m.createConfigured(EffectJetpack, attach.Position(), attach, opts)
}

// CreateSkiTrailEffect starts a looping snow spray attached to the mesh.
func (m *Manager) CreateSkiTrailEffect(attach scene.Mesh, mods ...Modifier) (EffectID, error) {
	opts := PresetFor(EffectSkiTrail)
	for _, mod := range mods {
		mod(&opts)
	}
	return m.createConfigured(EffectSkiTrail, attach.Position(), attach, opts)
}

// CreateProjectileTrailEffect starts a looping trail attached to the mesh.
func (m *Manager) CreateProjectileTrailEffect(attach scene.Mesh, mods ...Modifier) (EffectID, error) {
	opts := PresetFor(EffectProjectileTrail)
	for _, mod := range mods {
		mod(&opts)
	}
	return m.createConfigured(EffectProjectileTrail, attach.Position(), attach, opts)
}

func (m *Manager) createConfigured(typ EffectType, at mgl64.Vec3, attach scene.Mesh, opts Options) (EffectID, error) {
	if err := opts.Validate(); err != nil {
		return 0, err
	}
	if !opts.Enabled {
		return 0, nil
	}

	m.mu.Lock()

	// Quality clamp: budgets scale down with the current quality level.
	opts.MaxParticles = int(float64(opts.MaxParticles) * opts.Scale * m.scale)
	if opts.MaxParticles < 1 {
		opts.MaxParticles = 1
	}
	opts.EmitRate *= m.scale

	rec := m.pool.Get()
	m.nextID++
	rec.id = m.nextID
	rec.typ = typ
	rec.opts = opts
	rec.running = true
	if rec.emitter == nil {
		rec.emitter = m.factory.CreateEmitter(fmt.Sprintf("effect-%s-%d", typ, rec.id), opts.MaxParticles)
	}

	rec.emitter.SetCapacity(opts.MaxParticles)
	rec.emitter.SetEmitRate(opts.EmitRate)
	rec.emitter.SetWorldPosition(at)
	rec.emitter.AttachTo(attach)
	rec.emitter.Start()

	m.live[rec.id] = rec
	m.created++

	if !opts.Loop {
		rec.item = m.pending.Enqueue(deadline{id: rec.id, at: m.clock + opts.MaxLifeTime})
	}
	id := rec.id
	m.mu.Unlock()

	m.publish(EventCreated, CreatedEvent{ID: id, Type: typ})
	return id, nil
}

// StopEffect halts emission. With immediate set, live particles are cleared
// and the record is recycled now; otherwise particles finish their natural
// lifetime and the record is recycled by a later Update.
func (m *Manager) StopEffect(id EffectID, immediate bool) error {
	m.mu.Lock()
	rec, ok := m.live[id]
	if !ok {
		m.mu.Unlock()
		return ErrUnknownEffect
	}
	typ := rec.typ
	rec.emitter.Stop()
	rec.running = false

	if immediate {
		m.recycleLocked(rec)
	} else if rec.item == nil {
		rec.item = m.pending.Enqueue(deadline{id: id, at: m.clock + rec.opts.MaxLifeTime})
	}
	m.mu.Unlock()

	m.publish(EventStopped, StoppedEvent{ID: id, Type: typ, Immediate: immediate})
	return nil
}

// UpdatePosition moves a live effect's emitter in world space.
func (m *Manager) UpdatePosition(id EffectID, at mgl64.Vec3) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.live[id]
	if !ok {
		return ErrUnknownEffect
	}
	rec.emitter.SetWorldPosition(at)
	return nil
}

// UpdateEmitRate changes a live effect's emission rate, subject to the
// quality scale.
func (m *Manager) UpdateEmitRate(id EffectID, rate float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.live[id]
	if !ok {
		return ErrUnknownEffect
	}
	rec.opts.EmitRate = rate
	rec.emitter.SetEmitRate(rate * m.scale)
	return nil
}

// Running reports whether an effect is live and emitting.
func (m *Manager) Running(id EffectID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.live[id]
	return ok && rec.running
}

// Update advances the manager clock and recycles effects whose particles have
// all expired.
func (m *Manager) Update(dt float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock += dt
	for {
		head, ok := m.pending.Peek()
		if !ok || head.at > m.clock {
			return
		}
		m.pending.Dequeue()
		if rec, live := m.live[head.id]; live {
			rec.item = nil
			rec.emitter.Stop()
			m.recycleLocked(rec)
		}
	}
}

// ApplyQualityLevel implements the adaptive controller's tunable contract:
// the scale multiplies every subsequent effect's particle budget and emit
// rate. Live looping effects are re-clamped in place.
func (m *Manager) ApplyQualityLevel(scale float64) {
	if scale <= 0 {
		scale = 0.1
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scale = scale
	for _, rec := range m.live {
		rec.emitter.SetEmitRate(rec.opts.EmitRate * scale)
	}
}

// Stats returns pool occupancy and lifetime counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	ps := m.pool.Stats()
	return Stats{
		Total:     ps.Size,
		Available: ps.Available,
		Active:    len(m.live),
		Created:   m.created,
		Recycled:  m.recycled,
		Exhausted: ps.Exhausted,
	}
}

// Dispose stops and recycles every live effect, then drains the pool,
// disposing the pooled emitter handles.
func (m *Manager) Dispose() {
	m.mu.Lock()
	for _, rec := range m.live {
		rec.emitter.Stop()
		m.recycleLocked(rec)
	}
	m.mu.Unlock()
	m.pool.Dispose(func(e *Effect) {
		if e.emitter != nil && !e.emitter.Disposed() {
			e.emitter.Dispose()
		}
	})
}

func (m *Manager) recycleLocked(rec *Effect) {
	id := rec.id
	delete(m.live, id)
	if rec.item != nil {
		m.pending.Remove(rec.item)
		rec.item = nil
	}
	rec.emitter.AttachTo(nil)
	m.recycled++
	if err := m.pool.Release(rec); err != nil {
		m.log.Error("effect release failed", log.Uint64("effect", uint64(id)), log.Error(err))
	}
}

func (m *Manager) publish(typ string, data any) {
	if m.bus == nil {
		return
	}
	if err := m.bus.Publish(bus.NewEvent(typ, "particles", data)); err != nil {
		m.log.Warn("event publish failed", log.String("event", typ), log.Error(err))
	}
}
