package scene

import "github.com/go-gl/mathgl/mgl64"

var _ EmitterFactory = (*inMemoryEmitterFactory)(nil)

// inMemoryEmitterFactory produces headless particle emitters: state holders
// that track what a renderer-backed emitter would be doing.
type inMemoryEmitterFactory struct{}

// NewEmitterFactory creates the headless emitter factory.
func NewEmitterFactory() EmitterFactory {
	return &inMemoryEmitterFactory{}
}

func (f *inMemoryEmitterFactory) CreateEmitter(name string, capacity int) ParticleEmitter {
	return &inMemoryEmitter{name: name, capacity: capacity}
}

type inMemoryEmitter struct {
	name     string
	capacity int
	emitRate float64
	position mgl64.Vec3
	attached Mesh
	running  bool
	disposed bool
}

func (e *inMemoryEmitter) Name() string  { return e.name }
func (e *inMemoryEmitter) Start()        { e.running = true }
func (e *inMemoryEmitter) Stop()         { e.running = false }
func (e *inMemoryEmitter) Running() bool { return e.running }

func (e *inMemoryEmitter) SetCapacity(n int) {
	e.capacity = n
}

func (e *inMemoryEmitter) SetEmitRate(rate float64) {
	e.emitRate = rate
}

func (e *inMemoryEmitter) SetWorldPosition(p mgl64.Vec3) {
	e.position = p
	e.attached = nil
}

func (e *inMemoryEmitter) AttachTo(m Mesh) {
	e.attached = m
}

func (e *inMemoryEmitter) Dispose() {
	e.running = false
	e.disposed = true
}

func (e *inMemoryEmitter) Disposed() bool { return e.disposed }
