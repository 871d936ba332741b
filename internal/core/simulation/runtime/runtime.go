package runtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hackademics/runjumpski/internal/core/observability/log"
	"github.com/hackademics/runjumpski/internal/core/scene"
	"github.com/hackademics/runjumpski/internal/core/simulation/collision"
	"github.com/hackademics/runjumpski/internal/core/simulation/particles"
	"github.com/hackademics/runjumpski/internal/core/simulation/projectile"
	"github.com/hackademics/runjumpski/internal/core/simulation/quality"
)

var ErrInvalidConfig = errors.New("runtime: invalid configuration")

// Config tunes the fixed-tick loop.
type Config struct {
	// TickRate is the target simulation frequency in ticks per second.
	TickRate float64 `yaml:"tick_rate"`
	// SlowTickFactor triggers a warning when one tick's wall time exceeds
	// this multiple of the tick budget.
	SlowTickFactor float64 `yaml:"slow_tick_factor"`
}

// DefaultConfig returns the standard 60 Hz loop tuning.
func DefaultConfig() Config {
	return Config{TickRate: 60, SlowTickFactor: 1.5}
}

func (c Config) Validate() error {
	if c.TickRate <= 0 || c.SlowTickFactor <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// Interval is the tick period implied by the configured rate.
func (c Config) Interval() time.Duration {
	return time.Duration(float64(time.Second) / c.TickRate)
}

// Deps are the subsystems the engine drives each tick. World is required;
// the rest may be nil and their phase is skipped.
type Deps struct {
	World       scene.PhysicsWorld
	Projectiles *projectile.Physics
	Collisions  *collision.System
	Particles   *particles.Manager
	Quality     *quality.Controller
}

// PhaseTimings is the wall time each phase consumed in the last tick.
type PhaseTimings struct {
	World       time.Duration `json:"world"`
	Projectiles time.Duration `json:"projectiles"`
	Collisions  time.Duration `json:"collisions"`
	Particles   time.Duration `json:"particles"`
}

// Snapshot is a point-in-time view of the whole simulation, serialized by the
// telemetry surface.
type Snapshot struct {
	Ticks        uint64           `json:"ticks"`
	LastTick     time.Duration    `json:"last_tick"`
	Timings      PhaseTimings     `json:"timings"`
	AverageFPS   float64          `json:"average_fps"`
	QualityLevel string           `json:"quality_level"`
	Projectiles  projectile.Stats `json:"projectiles"`
	Particles    particles.Stats  `json:"particles"`
	Collision    CollisionStats   `json:"collision"`
}

// CollisionStats mirrors the collision system's lifetime counters.
type CollisionStats struct {
	Colliders    int    `json:"colliders"`
	BroadPairs   uint64 `json:"broad_pairs"`
	NarrowChecks uint64 `json:"narrow_checks"`
	Contacts     uint64 `json:"contacts"`
}

// Engine owns the per-tick step order: rigid bodies first so projectile
// records mirror fresh transforms, then projectile integration, collision
// detection (whose handlers may spawn effects), particle bookkeeping, and
// finally the quality controller's sample intake.
type Engine struct {
	cfg  Config
	log  log.Log
	deps Deps

	// mu serializes Step against Snapshot; the telemetry server reads
	// snapshots from its own goroutines.
	mu       sync.Mutex
	ticks    uint64
	lastTick time.Duration
	timings  PhaseTimings
}

// NewEngine creates the simulation engine.
func NewEngine(cfg Config, deps Deps, logger log.Log) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.World == nil {
		return nil, errors.New("runtime: physics world is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Engine{cfg: cfg, log: logger, deps: deps}, nil
}

// Step advances the whole simulation by dt seconds of game time and feeds the
// measured cost into the quality controller.
func (e *Engine) Step(dt float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	start := time.Now()

	phase := func(d *time.Duration, fn func()) {
		begin := time.Now()
		fn()
		*d = time.Since(begin)
	}

	phase(&e.timings.World, func() { e.deps.World.Step(dt) })
	if e.deps.Projectiles != nil {
		phase(&e.timings.Projectiles, func() { e.deps.Projectiles.Update(dt) })
	}
	if e.deps.Collisions != nil {
		phase(&e.timings.Collisions, func() { e.deps.Collisions.Step(dt) })
	}
	if e.deps.Particles != nil {
		phase(&e.timings.Particles, func() { e.deps.Particles.Update(dt) })
	}

	e.ticks++
	e.lastTick = time.Since(start)

	if e.deps.Quality != nil && dt > 0 {
		e.deps.Quality.Record(quality.Sample{
			FPS:       1 / dt,
			FrameTime: e.lastTick,
		})
	}

	budget := e.cfg.Interval()
	if e.lastTick > time.Duration(float64(budget)*e.cfg.SlowTickFactor) {
		e.log.Warn("slow tick",
			log.Uint64("tick", e.ticks),
			log.Duration("took", e.lastTick),
			log.Duration("budget", budget),
		)
	}
}

// Run drives Step from a wall-clock ticker until the context is canceled.
// Game time follows wall time, so a stalled tick produces one large dt rather
// than a backlog of catch-up steps.
func (e *Engine) Run(ctx context.Context) error {
	interval := e.cfg.Interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.log.Info("simulation loop started",
		log.Float64("tick_rate", e.cfg.TickRate),
		log.Duration("interval", interval),
	)
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			e.log.Info("simulation loop stopped", log.Uint64("ticks", e.ticks))
			return ctx.Err()
		case now := <-ticker.C:
			e.Step(now.Sub(last).Seconds())
			last = now
		}
	}
}

// Ticks reports how many steps have run.
func (e *Engine) Ticks() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ticks
}

// Snapshot collects the current cross-system telemetry view.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := Snapshot{
		Ticks:    e.ticks,
		LastTick: e.lastTick,
		Timings:  e.timings,
	}
	if e.deps.Quality != nil {
		snap.QualityLevel = e.deps.Quality.Level().String()
		snap.AverageFPS = e.deps.Quality.Monitor().AverageFPS()
	}
	if e.deps.Projectiles != nil {
		snap.Projectiles = e.deps.Projectiles.Stats()
	}
	if e.deps.Particles != nil {
		snap.Particles = e.deps.Particles.Stats()
	}
	if e.deps.Collisions != nil {
		broad, narrow, contacts := e.deps.Collisions.Stats()
		snap.Collision = CollisionStats{
			Colliders:    e.deps.Collisions.ColliderCount(),
			BroadPairs:   broad,
			NarrowChecks: narrow,
			Contacts:     contacts,
		}
	}
	return snap
}

// ParticleTunable adapts the particle manager to the quality controller's
// notification contract by translating the discrete level into the manager's
// budget scale.
type ParticleTunable struct {
	Manager *particles.Manager
}

func (p ParticleTunable) ApplyQualityLevel(level quality.Level) {
	p.Manager.ApplyQualityLevel(level.ParticleScale())
}
