package collision

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/hackademics/runjumpski/internal/core/observability/log"
	"github.com/hackademics/runjumpski/internal/core/scene"
)

// ColliderID identifies a registered collider. The zero value means "any
// collider" in handler registrations.
type ColliderID uint64

// AnyCollider matches every counterpart in RegisterHandler.
const AnyCollider ColliderID = 0

// Contact is delivered to collision handlers when a candidate pair is
// confirmed by the narrow phase.
type Contact struct {
	A, B           ColliderID
	AOwner, BOwner any
	Point          mgl64.Vec3
	Normal         mgl64.Vec3 // from A toward B
	Depth          float64
	// Impulse is the penetration-resolution impulse magnitude estimated for
	// this tick (depth over tick duration).
	Impulse float64
}

// Handler is invoked synchronously during Step for each confirmed contact a
// registration matches. Handlers may destroy colliders reentrantly; the
// system dispatches from a collected contact list, never while iterating its
// live structures.
type Handler func(Contact)

// Instrumentation observes broad/narrow phase work per Step. It replaces the
// ad hoc method wrapping the demo code used for benchmarking.
type Instrumentation interface {
	OnBroadPhase(colliders, candidatePairs int)
	OnNarrowPhase(checks, contacts int)
}

// Collider tracks one mesh in the broad-phase grid. The cached volume is
// what the grid buckets were computed from at the last refresh; the narrow
// phase always reads the current mesh transform.
type Collider struct {
	id     ColliderID
	mesh   scene.Mesh
	owner  any
	cached scene.Volume
}

func (c *Collider) ID() ColliderID { return c.id }
func (c *Collider) Owner() any     { return c.owner }

type handlerReg struct {
	token  string
	a, b   ColliderID
	fn     Handler
	active bool
}

// System is the spatial-partitioned collision detector. Broad phase buckets
// colliders into a uniform grid refreshed on a bounded interval; narrow phase
// confirms candidate pairs with the backend's precise overlap test and
// dispatches registered handlers.
type System struct {
	mu        sync.Mutex
	cfg       Config
	log       log.Log
	colliders map[ColliderID]*Collider
	order     []*Collider // registration order, for deterministic iteration
	grid      *grid
	handlers  map[string]*handlerReg
	instr     []Instrumentation

	nextID       ColliderID
	sinceRefresh float64
	gridDirty    bool

	// Lifetime counters for diagnostics and the telemetry surface.
	broadPairs   uint64
	narrowChecks uint64
	contacts     uint64
}

// NewSystem creates a collision system with the given configuration.
func NewSystem(cfg Config, logger log.Log) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &System{
		cfg:       cfg,
		log:       logger,
		colliders: make(map[ColliderID]*Collider),
		grid:      newGrid(cfg.CellSize),
		handlers:  make(map[string]*handlerReg),
		gridDirty: true,
	}, nil
}

// RegisterCollider starts tracking a mesh. The owner is an opaque reference
// handed back in contacts (a projectile id, an entity, ...).
func (s *System) RegisterCollider(mesh scene.Mesh, owner any) ColliderID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	c := &Collider{
		id:     s.nextID,
		mesh:   mesh,
		owner:  owner,
		cached: scene.BoundingVolume(mesh),
	}
	s.colliders[c.id] = c
	s.order = append(s.order, c)
	s.gridDirty = true
	return c.id
}

// UnregisterCollider stops tracking a collider. Safe to call from within a
// collision handler.
func (s *System) UnregisterCollider(id ColliderID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.colliders[id]; !ok {
		return
	}
	delete(s.colliders, id)
	for i, c := range s.order {
		if c.id == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.gridDirty = true
}

// RegisterHandler registers a callback for contacts involving collider a and
// collider b. Pass AnyCollider for b to match any counterpart. The returned
// token unregisters the handler.
func (s *System) RegisterHandler(a, b ColliderID, fn Handler) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := uuid.NewString()
	s.handlers[token] = &handlerReg{token: token, a: a, b: b, fn: fn, active: true}
	return token
}

// UnregisterHandler removes a handler registration. Unknown tokens are ignored.
func (s *System) UnregisterHandler(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if reg, ok := s.handlers[token]; ok {
		reg.active = false
		delete(s.handlers, token)
	}
}

// AddInstrumentation registers a per-step observer.
func (s *System) AddInstrumentation(in Instrumentation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instr = append(s.instr, in)
}

// SetSpatialPartitioning toggles the grid broad phase at runtime. Disabling
// it falls back to brute-force all-pairs candidate generation.
func (s *System) SetSpatialPartitioning(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.UseSpatialPartitioning = enabled
	s.gridDirty = true
}

// ColliderCount reports how many colliders are currently tracked.
func (s *System) ColliderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.colliders)
}

// Stats reports lifetime broad/narrow phase counters.
func (s *System) Stats() (broadPairs, narrowChecks, contacts uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.broadPairs, s.narrowChecks, s.contacts
}

// Step advances the detector by dt seconds: refreshes grid residency when the
// update interval has elapsed, generates candidate pairs, confirms them with
// the precise overlap test, and dispatches handlers for confirmed contacts.
func (s *System) Step(dt float64) {
	s.mu.Lock()

	// Narrow phase always sees current transforms.
	for _, c := range s.order {
		c.cached = scene.BoundingVolume(c.mesh)
	}

	var pairs [][2]*Collider
	candidates := 0
	if s.cfg.UseSpatialPartitioning {
		s.sinceRefresh += dt
		if s.gridDirty || s.sinceRefresh >= s.cfg.GridUpdateInterval {
			s.refreshGridLocked()
		}
		candidates = s.grid.candidatePairs(func(a, b ColliderID) {
			ca, okA := s.colliders[a]
			cb, okB := s.colliders[b]
			if okA && okB {
				pairs = append(pairs, [2]*Collider{ca, cb})
			}
		})
	} else {
		for i := 0; i < len(s.order); i++ {
			for j := i + 1; j < len(s.order); j++ {
				pairs = append(pairs, [2]*Collider{s.order[i], s.order[j]})
			}
		}
		candidates = len(pairs)
	}

	checks := 0
	var confirmed []Contact
	for _, pair := range pairs {
		checks++
		contact, ok := scene.Intersect(pair[0].cached, pair[1].cached)
		if !ok {
			continue
		}
		impulse := 0.0
		if dt > 0 {
			impulse = contact.Depth / dt
		}
		confirmed = append(confirmed, Contact{
			A:       pair[0].id,
			B:       pair[1].id,
			AOwner:  pair[0].owner,
			BOwner:  pair[1].owner,
			Point:   contact.Point,
			Normal:  contact.Normal,
			Depth:   contact.Depth,
			Impulse: impulse,
		})
	}

	s.broadPairs += uint64(candidates)
	s.narrowChecks += uint64(checks)
	s.contacts += uint64(len(confirmed))

	instr := make([]Instrumentation, len(s.instr))
	copy(instr, s.instr)
	colliderCount := len(s.order)

	// Snapshot matching handlers before releasing the lock so reentrant
	// register/unregister calls from callbacks cannot corrupt iteration.
	type dispatch struct {
		fn      Handler
		contact Contact
	}
	var dispatches []dispatch
	for _, contact := range confirmed {
		for _, reg := range s.handlers {
			if !reg.active {
				continue
			}
			if matched, flipped := reg.matches(contact); matched {
				c := contact
				if flipped {
					c = flip(c)
				}
				dispatches = append(dispatches, dispatch{fn: reg.fn, contact: c})
			}
		}
	}
	s.mu.Unlock()

	for _, in := range instr {
		in.OnBroadPhase(colliderCount, candidates)
		in.OnNarrowPhase(checks, len(confirmed))
	}
	for _, d := range dispatches {
		d.fn(d.contact)
	}

	if s.cfg.Visualize && len(confirmed) > 0 {
		s.log.Debug("collision step",
			log.Int("candidates", candidates),
			log.Int("checks", checks),
			log.Int("contacts", len(confirmed)),
		)
	}
}

// matches reports whether the registration applies to the contact, and
// whether the contact must be flipped so the registered collider appears as A.
func (r *handlerReg) matches(c Contact) (matched, flipped bool) {
	switch {
	case r.a == c.A && (r.b == AnyCollider || r.b == c.B):
		return true, false
	case r.a == c.B && (r.b == AnyCollider || r.b == c.A):
		return true, true
	default:
		return false, false
	}
}

func flip(c Contact) Contact {
	return Contact{
		A:       c.B,
		B:       c.A,
		AOwner:  c.BOwner,
		BOwner:  c.AOwner,
		Point:   c.Point,
		Normal:  c.Normal.Mul(-1),
		Depth:   c.Depth,
		Impulse: c.Impulse,
	}
}

func (s *System) refreshGridLocked() {
	s.grid.clear()
	for _, c := range s.order {
		s.grid.insert(c.id, c.cached)
	}
	s.sinceRefresh = 0
	s.gridDirty = false
	if s.cfg.Visualize {
		cells, largest := s.grid.occupancy()
		s.log.Debug("grid refresh",
			log.Int("colliders", len(s.order)),
			log.Int("occupied_cells", cells),
			log.Int("largest_bucket", largest),
		)
	}
}
