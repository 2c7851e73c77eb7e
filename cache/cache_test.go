package cache

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
}

// backends returns a fresh instance of every Backend implementation.
func backends(t *testing.T) map[string]Backend {
	t.Helper()
	b, err := OpenBadgerInMemory()
	require.NoError(t, err)
	m := NewMemory(0, 0)
	t.Cleanup(func() {
		_ = b.Close()
		_ = m.Close()
	})
	return map[string]Backend{"memory": m, "badger": b}
}

func TestManager_SetGet(t *testing.T) {
	ctx := context.Background()
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			m := NewManager(backend, time.Hour)

			require.True(t, m.Set(ctx, "k", payload{Title: "Pancakes", Tags: []string{"breakfast"}}, 0))

			var got payload
			require.True(t, m.Get(ctx, "k", &got))
			assert.Equal(t, "Pancakes", got.Title)
			assert.Equal(t, []string{"breakfast"}, got.Tags)

			assert.False(t, m.Get(ctx, "missing", &got))
			assert.True(t, m.Exists(ctx, "k"))
			assert.False(t, m.Exists(ctx, "missing"))

			require.True(t, m.Delete(ctx, "k"))
			assert.False(t, m.Exists(ctx, "k"))
			assert.True(t, m.Delete(ctx, "k"), "deleting an absent key succeeds")
		})
	}
}

func TestManager_Increment(t *testing.T) {
	ctx := context.Background()
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			m := NewManager(backend, time.Hour)

			n, ok := m.Increment(ctx, "counter", 1, time.Minute)
			require.True(t, ok)
			assert.Equal(t, int64(1), n)

			n, ok = m.Increment(ctx, "counter", 5, time.Minute)
			require.True(t, ok)
			assert.Equal(t, int64(6), n)

			var stored int64
			require.True(t, m.Get(ctx, "counter", &stored))
			assert.Equal(t, int64(6), stored)
		})
	}
}

func TestManager_IncrementNonInteger(t *testing.T) {
	ctx := context.Background()
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			m := NewManager(backend, time.Hour)
			require.True(t, m.Set(ctx, "text", "hello", 0))

			n, ok := m.Increment(ctx, "text", 1, 0)
			assert.False(t, ok)
			assert.Zero(t, n)
		})
	}
}

func TestManager_IncrementConcurrent(t *testing.T) {
	ctx := context.Background()
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			m := NewManager(backend, time.Hour)

			const workers, perWorker = 8, 25
			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < perWorker; j++ {
						_, ok := m.Increment(ctx, "hits", 1, time.Minute)
						assert.True(t, ok)
					}
				}()
			}
			wg.Wait()

			var total int64
			require.True(t, m.Get(ctx, "hits", &total))
			assert.Equal(t, int64(workers*perWorker), total)
		})
	}
}

func TestManager_ManyAndClear(t *testing.T) {
	ctx := context.Background()
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			m := NewManager(backend, time.Hour)

			require.True(t, m.SetMany(ctx, map[string]any{
				"a": payload{Title: "A"},
				"b": payload{Title: "B"},
			}, 0))

			got := m.GetMany(ctx, []string{"a", "b", "c"})
			require.Len(t, got, 2)
			var b payload
			require.NoError(t, got["b"].Decode(&b))
			assert.Equal(t, "B", b.Title)

			stats := m.Stats(ctx)
			assert.Equal(t, name, stats.Backend)
			assert.Equal(t, 2, stats.Keys)

			require.True(t, m.Clear(ctx))
			assert.Equal(t, 0, m.Stats(ctx).Keys)
			assert.False(t, m.Exists(ctx, "a"))
		})
	}
}

func TestManager_GobFallback(t *testing.T) {
	type reading struct {
		Value float64
	}
	ctx := context.Background()
	m := NewManager(NewMemory(0, 0), time.Hour)

	// JSON cannot represent +Inf.
	require.True(t, m.Set(ctx, "inf", reading{Value: math.Inf(1)}, 0))

	var got reading
	require.True(t, m.Get(ctx, "inf", &got))
	assert.True(t, math.IsInf(got.Value, 1))
}

func TestManager_HitMissStats(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemory(0, 0), time.Hour)
	m.Set(ctx, "k", 1, 0)

	var v int
	m.Get(ctx, "k", &v)
	m.Get(ctx, "k", &v)
	m.Get(ctx, "nope", &v)

	stats := m.Stats(ctx)
	assert.Equal(t, uint64(2), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
}

func TestMemory_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	mem := NewMemory(0, 0)
	mem.now = func() time.Time { return now }

	require.NoError(t, mem.Set(ctx, "short", []byte(`1`), time.Second))
	require.NoError(t, mem.Set(ctx, "forever", []byte(`2`), 0))

	_, ok, _ := mem.Get(ctx, "short")
	assert.True(t, ok)

	now = now.Add(2 * time.Second)

	_, ok, _ = mem.Get(ctx, "short")
	assert.False(t, ok, "entry must expire after its ttl")
	_, ok, _ = mem.Get(ctx, "forever")
	assert.True(t, ok)

	n, _ := mem.Len(ctx)
	assert.Equal(t, 1, n)
}

func TestMemory_IncrKeepsExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	mem := NewMemory(0, 0)
	mem.now = func() time.Time { return now }

	_, err := mem.Incr(ctx, "c", 1, 10*time.Second)
	require.NoError(t, err)

	now = now.Add(6 * time.Second)
	n, err := mem.Incr(ctx, "c", 1, 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// The second increment must not extend the original window.
	now = now.Add(5 * time.Second)
	n, err = mem.Incr(ctx, "c", 1, 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMemory_Sweep(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	mem := NewMemory(0, 0)
	mem.now = func() time.Time { return now }

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, mem.Set(ctx, k, []byte(`0`), time.Second))
	}
	now = now.Add(time.Minute)
	assert.Equal(t, 3, mem.sweep())
	assert.Empty(t, mem.store)
}

func TestMemory_Eviction(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory(2, 0)

	require.NoError(t, mem.Set(ctx, "a", []byte(`1`), 0))
	require.NoError(t, mem.Set(ctx, "b", []byte(`2`), 0))
	require.NoError(t, mem.Set(ctx, "c", []byte(`3`), 0))

	n, _ := mem.Len(ctx)
	assert.Equal(t, 2, n)
	_, ok, _ := mem.Get(ctx, "c")
	assert.True(t, ok, "the newest entry is always kept")

	// Overwriting an existing key never evicts.
	require.NoError(t, mem.Set(ctx, "c", []byte(`4`), 0))
	n, _ = mem.Len(ctx)
	assert.Equal(t, 2, n)
}

func TestBadger_TTLExpiry(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for badger's second-granularity expiry")
	}
	ctx := context.Background()
	b, err := OpenBadgerInMemory()
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Set(ctx, "short", []byte(`1`), time.Second))
	_, ok, err := b.Get(ctx, "short")
	require.NoError(t, err)
	assert.True(t, ok)

	time.Sleep(2100 * time.Millisecond)

	_, ok, err = b.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFingerprint_OrderIndependent(t *testing.T) {
	a := map[string]string{"q": "pasta", "limit": "10", "tags": "dinner,quick"}
	b := map[string]string{"tags": "dinner,quick", "q": "pasta", "limit": "10"}
	assert.Equal(t, Fingerprint(PrefixSearch, a), Fingerprint(PrefixSearch, b))

	c := map[string]string{"q": "pasta", "limit": "10", "tags": "dinner,quick", "cuisine": ""}
	assert.Equal(t, Fingerprint(PrefixSearch, a), Fingerprint(PrefixSearch, c), "empty values are ignored")

	d := map[string]string{"q": "pasta", "limit": "20", "tags": "dinner,quick"}
	assert.NotEqual(t, Fingerprint(PrefixSearch, a), Fingerprint(PrefixSearch, d))
	assert.NotEqual(t, Fingerprint(PrefixSearch, a), Fingerprint(PrefixDetail, a))
}
