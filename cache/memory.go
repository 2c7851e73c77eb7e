package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// entry holds a cached value with its expiry. A zero expiresAt never expires.
type entry struct {
	value     []byte
	expiresAt time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Memory is an in-process Backend. Expired entries are invisible to reads
// and removed by a background sweep. When full, a random entry is evicted.
type Memory struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	now        func() time.Time
	done       chan struct{}
	closeOnce  sync.Once
}

// NewMemory creates a Memory backend holding at most maxEntries keys
// (0 means unbounded) and sweeping expired keys every sweepInterval.
func NewMemory(maxEntries int, sweepInterval time.Duration) *Memory {
	m := &Memory{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		now:        time.Now,
		done:       make(chan struct{}),
	}
	if sweepInterval > 0 {
		go m.cleanupLoop(sweepInterval)
	}
	return m
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	e, ok := m.store[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if e.expired(m.now()) {
		m.mu.Lock()
		if cur, still := m.store[key]; still && cur == e {
			delete(m.store, key)
		}
		m.mu.Unlock()
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(key, &entry{value: value, expiresAt: m.expiry(ttl)})
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.store, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := m.Get(ctx, key)
	return ok, err
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	m.store = make(map[string]*entry)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Incr(_ context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var (
		current   int64
		expiresAt = m.expiry(ttl)
	)
	if e, ok := m.store[key]; ok && !e.expired(now) {
		n, err := strconv.ParseInt(string(e.value), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cache: value at %q is not an integer", key)
		}
		current = n
		expiresAt = e.expiresAt
	}

	next := current + delta
	m.put(key, &entry{value: []byte(strconv.FormatInt(next, 10)), expiresAt: expiresAt})
	return next, nil
}

func (m *Memory) Len(_ context.Context) (int, error) {
	now := m.now()
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, e := range m.store {
		if !e.expired(now) {
			n++
		}
	}
	return n, nil
}

// Close stops the sweep goroutine.
func (m *Memory) Close() error {
	m.closeOnce.Do(func() { close(m.done) })
	return nil
}

func (m *Memory) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return m.now().Add(ttl)
}

// put stores e under key, evicting first if the store is full. Caller holds mu.
func (m *Memory) put(key string, e *entry) {
	if _, exists := m.store[key]; !exists && m.maxEntries > 0 && len(m.store) >= m.maxEntries {
		m.evictLocked()
	}
	m.store[key] = e
}

// evictLocked drops expired entries, or one random entry when none expired
// (map iteration order is random in Go).
func (m *Memory) evictLocked() {
	now := m.now()
	removed := false
	for k, e := range m.store {
		if e.expired(now) {
			delete(m.store, k)
			removed = true
		}
	}
	if removed {
		return
	}
	for k := range m.store {
		delete(m.store, k)
		return
	}
}

// cleanupLoop evicts expired entries every interval until Close.
func (m *Memory) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Memory) sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, e := range m.store {
		if e.expired(now) {
			delete(m.store, k)
			n++
		}
	}
	return n
}
