package generic

import (
	"errors"
	"sync"
)

// Poolable is the capability contract required of records managed by an
// ObjectPool. Reset returns the record to its documented idle state and is
// invoked on every release, before the record re-enters the free list.
type Poolable interface {
	Reset()
}

var (
	// ErrDoubleRelease is returned when Release is called for a record that is
	// not currently checked out. The call is a no-op; the free list is never
	// corrupted by it.
	ErrDoubleRelease = errors.New("generic: release of record that is not checked out")
	// ErrPoolDisposed is returned by Release after Dispose has been called.
	ErrPoolDisposed = errors.New("generic: pool is disposed")
)

// PoolConfig controls pre-warming and capacity of an ObjectPool.
type PoolConfig struct {
	// InitialSize is the number of records constructed up front.
	InitialSize int
	// MaxSize caps the number of tracked records. 0 means unbounded. When the
	// cap is reached Get still returns a usable record, constructed outside the
	// tracked capacity and counted in Stats.Exhausted.
	MaxSize int
	// Strict makes a double release panic instead of returning
	// ErrDoubleRelease. Intended for tests and debug builds.
	Strict bool
}

// PoolStats is a snapshot of pool occupancy and lifetime counters.
type PoolStats struct {
	Size           int    // tracked records constructed so far
	Available      int    // records currently in the free list
	Active         int    // records currently checked out
	Constructed    uint64 // total constructions, including overflow
	Exhausted      uint64 // Get calls served by overflow construction
	DoubleReleases uint64
}

// ObjectPool hands out reusable records via Get and takes them back via
// Release. A record is either in the free list or checked out by exactly one
// consumer; the checked-out set is tracked explicitly so a double release is
// detected instead of corrupting the free list.
type ObjectPool[T Poolable] struct {
	mu         sync.Mutex
	factory    func() T
	free       []T
	checkedOut map[Poolable]bool // value: record counts toward the tracked capacity
	size       int
	cfg        PoolConfig
	disposed   bool

	constructed    uint64
	exhausted      uint64
	doubleReleases uint64
}

// NewObjectPool creates a pool that constructs records with factory.
// InitialSize records are constructed eagerly; the rest are created on demand.
func NewObjectPool[T Poolable](factory func() T, cfg PoolConfig) *ObjectPool[T] {
	if cfg.MaxSize > 0 && cfg.InitialSize > cfg.MaxSize {
		cfg.InitialSize = cfg.MaxSize
	}
	p := &ObjectPool[T]{
		factory:    factory,
		free:       make([]T, 0, cfg.InitialSize),
		checkedOut: make(map[Poolable]bool),
		cfg:        cfg,
	}
	for i := 0; i < cfg.InitialSize; i++ {
		p.free = append(p.free, p.construct())
	}
	return p
}

func (p *ObjectPool[T]) construct() T {
	obj := p.factory()
	p.size++
	p.constructed++
	return obj
}

// Get returns a ready-to-use record. The free list is drained first; beyond
// that new records are constructed until MaxSize, after which Get still
// succeeds by constructing an untracked overflow record and bumping the
// exhaustion counter for the adaptive controller to observe.
func (p *ObjectPool[T]) Get() T {
	p.mu.Lock()
	defer p.mu.Unlock()

	var obj T
	tracked := true
	switch {
	case len(p.free) > 0:
		n := len(p.free) - 1
		obj = p.free[n]
		var zero T
		p.free[n] = zero
		p.free = p.free[:n]
	case p.cfg.MaxSize == 0 || p.size < p.cfg.MaxSize:
		obj = p.construct()
	default:
		obj = p.factory()
		p.constructed++
		p.exhausted++
		tracked = false
	}
	p.checkedOut[obj] = tracked
	return obj
}

// Release resets the record and returns it to the free list. Releasing a
// record that is not checked out is a caller error: the pool leaves its state
// untouched and reports it (panic in Strict mode).
func (p *ObjectPool[T]) Release(obj T) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.disposed {
		return ErrPoolDisposed
	}
	tracked, ok := p.checkedOut[obj]
	if !ok {
		p.doubleReleases++
		if p.cfg.Strict {
			panic(ErrDoubleRelease)
		}
		return ErrDoubleRelease
	}
	delete(p.checkedOut, obj)
	obj.Reset()
	if tracked {
		p.free = append(p.free, obj)
	}
	return nil
}

// Available reports the current free-list length.
func (p *ObjectPool[T]) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

// Size reports the number of tracked records constructed so far.
func (p *ObjectPool[T]) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.size
}

// Active reports the number of records currently checked out.
func (p *ObjectPool[T]) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.checkedOut)
}

// Stats returns a snapshot of occupancy and lifetime counters.
func (p *ObjectPool[T]) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{
		Size:           p.size,
		Available:      len(p.free),
		Active:         len(p.checkedOut),
		Constructed:    p.constructed,
		Exhausted:      p.exhausted,
		DoubleReleases: p.doubleReleases,
	}
}

// Dispose drains the free list, invoking dispose (may be nil) for every free
// record, and marks the pool unusable. Checked-out records are the caller's
// responsibility; releasing them afterwards returns ErrPoolDisposed.
func (p *ObjectPool[T]) Dispose(dispose func(T)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed {
		return
	}
	p.disposed = true
	if dispose != nil {
		for _, obj := range p.free {
			dispose(obj)
		}
	}
	p.free = nil
}
