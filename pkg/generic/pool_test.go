package generic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRecord struct {
	value  int
	resets int
}

func (r *testRecord) Reset() {
	r.value = 0
	r.resets++
}

func newTestPool(cfg PoolConfig) *ObjectPool[*testRecord] {
	return NewObjectPool(func() *testRecord { return &testRecord{} }, cfg)
}

func TestPoolPrewarm(t *testing.T) {
	p := newTestPool(PoolConfig{InitialSize: 8})
	assert.Equal(t, 8, p.Available())
	assert.Equal(t, 8, p.Size())
	assert.Equal(t, 0, p.Active())
}

func TestPoolGetReleaseRoundTrip(t *testing.T) {
	p := newTestPool(PoolConfig{InitialSize: 1})

	r := p.Get()
	r.value = 42
	assert.Equal(t, 1, p.Active())
	assert.Equal(t, 0, p.Available())

	require.NoError(t, p.Release(r))
	assert.Equal(t, 0, p.Active())
	assert.Equal(t, 1, p.Available())
	assert.Equal(t, 0, r.value, "release must apply the reset contract")

	// The same instance comes back before anything new is constructed.
	assert.Same(t, r, p.Get())
}

func TestPoolDoubleReleaseIsGuarded(t *testing.T) {
	p := newTestPool(PoolConfig{})
	r := p.Get()
	require.NoError(t, p.Release(r))
	assert.ErrorIs(t, p.Release(r), ErrDoubleRelease)
	assert.Equal(t, 1, p.Available(), "free list must not grow on double release")
	assert.Equal(t, uint64(1), p.Stats().DoubleReleases)
}

func TestPoolReleaseOfForeignRecord(t *testing.T) {
	p := newTestPool(PoolConfig{})
	assert.ErrorIs(t, p.Release(&testRecord{}), ErrDoubleRelease)
}

func TestPoolStrictDoubleReleasePanics(t *testing.T) {
	p := newTestPool(PoolConfig{Strict: true})
	r := p.Get()
	require.NoError(t, p.Release(r))
	assert.Panics(t, func() { _ = p.Release(r) })
}

func TestPoolOverflowBeyondMaxStillReturns(t *testing.T) {
	p := newTestPool(PoolConfig{MaxSize: 2})

	a, b := p.Get(), p.Get()
	c := p.Get() // beyond the cap
	require.NotNil(t, c)
	assert.Equal(t, 2, p.Size(), "overflow records are not tracked")
	assert.Equal(t, uint64(1), p.Stats().Exhausted)

	// Overflow record releases cleanly but never enters the free list.
	require.NoError(t, p.Release(c))
	assert.Equal(t, 0, p.Available())

	require.NoError(t, p.Release(a))
	require.NoError(t, p.Release(b))
	assert.Equal(t, 2, p.Available())
}

func TestPoolCheckedOutNeverExceedsBalance(t *testing.T) {
	p := newTestPool(PoolConfig{InitialSize: 4})
	out := make([]*testRecord, 0, 16)
	for i := 0; i < 16; i++ {
		out = append(out, p.Get())
	}
	assert.Equal(t, 16, p.Active())
	for _, r := range out[:10] {
		require.NoError(t, p.Release(r))
	}
	assert.Equal(t, 6, p.Active())
}

// Churn scenario: 1000 sequential create/destroy cycles against a pool
// pre-warmed to 20 with a cap of 100 must never construct more than 100
// tracked records.
func TestPoolReuseUnderChurn(t *testing.T) {
	p := newTestPool(PoolConfig{InitialSize: 20, MaxSize: 100})
	for i := 0; i < 1000; i++ {
		r := p.Get()
		require.NoError(t, p.Release(r))
	}
	stats := p.Stats()
	assert.LessOrEqual(t, stats.Size, 100)
	assert.LessOrEqual(t, stats.Constructed, uint64(100))
	assert.Equal(t, uint64(0), stats.Exhausted)
	assert.Equal(t, 20, stats.Available)
}

func TestPoolDispose(t *testing.T) {
	p := newTestPool(PoolConfig{InitialSize: 3})
	r := p.Get()

	disposed := 0
	p.Dispose(func(*testRecord) { disposed++ })
	assert.Equal(t, 2, disposed, "only free records are disposed")
	assert.ErrorIs(t, p.Release(r), ErrPoolDisposed)

	// Second dispose is a no-op.
	p.Dispose(func(*testRecord) { disposed++ })
	assert.Equal(t, 2, disposed)
}

func BenchmarkPoolGetRelease(b *testing.B) {
	p := newTestPool(PoolConfig{InitialSize: 64, MaxSize: 256})
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r := p.Get()
		_ = p.Release(r)
	}
}
