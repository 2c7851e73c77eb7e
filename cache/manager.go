// Package cache stores assembled API responses and counters behind a
// pluggable Backend. Every Manager operation is total: backend faults are
// logged and mapped to a safe default, never returned to the caller.
package cache

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/use-agent/souschef/metrics"
)

// gobMarker prefixes values that could not be encoded as JSON.
// No JSON document starts with a NUL byte.
const gobMarker byte = 0x00

// Manager is the cache facade shared by handlers and the rate limiter.
type Manager struct {
	backend    Backend
	defaultTTL time.Duration
	hits       atomic.Uint64
	misses     atomic.Uint64
}

// Stats is a point-in-time cache summary.
type Stats struct {
	Backend string
	Keys    int
	Hits    uint64
	Misses  uint64
}

// NewManager wraps backend. A Set with ttl <= 0 uses defaultTTL.
func NewManager(backend Backend, defaultTTL time.Duration) *Manager {
	return &Manager{backend: backend, defaultTTL: defaultTTL}
}

// Backend returns the underlying store.
func (m *Manager) Backend() Backend { return m.backend }

// Get decodes the value at key into dst. It returns false on a miss, on a
// backend error or when the stored value cannot be decoded into dst.
func (m *Manager) Get(ctx context.Context, key string, dst any) bool {
	raw, ok, err := m.backend.Get(ctx, key)
	if err != nil {
		slog.Warn("cache get failed", "key", key, "error", err)
		metrics.CacheOperations.WithLabelValues("get", "error").Inc()
		return false
	}
	if !ok {
		m.misses.Add(1)
		metrics.CacheOperations.WithLabelValues("get", "miss").Inc()
		return false
	}
	if err := decode(raw, dst); err != nil {
		slog.Warn("cache value undecodable", "key", key, "error", err)
		metrics.CacheOperations.WithLabelValues("get", "error").Inc()
		return false
	}
	m.hits.Add(1)
	metrics.CacheOperations.WithLabelValues("get", "hit").Inc()
	return true
}

// Set encodes value and stores it for ttl (defaultTTL when ttl <= 0).
func (m *Manager) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	raw, err := encode(value)
	if err != nil {
		slog.Warn("cache value unencodable", "key", key, "error", err)
		metrics.CacheOperations.WithLabelValues("set", "error").Inc()
		return false
	}
	if err := m.backend.Set(ctx, key, raw, m.ttl(ttl)); err != nil {
		slog.Warn("cache set failed", "key", key, "error", err)
		metrics.CacheOperations.WithLabelValues("set", "error").Inc()
		return false
	}
	metrics.CacheOperations.WithLabelValues("set", "ok").Inc()
	return true
}

// Delete removes key. Deleting an absent key succeeds.
func (m *Manager) Delete(ctx context.Context, key string) bool {
	if err := m.backend.Delete(ctx, key); err != nil {
		slog.Warn("cache delete failed", "key", key, "error", err)
		return false
	}
	return true
}

// Exists reports whether key holds a live value.
func (m *Manager) Exists(ctx context.Context, key string) bool {
	ok, err := m.backend.Exists(ctx, key)
	if err != nil {
		slog.Warn("cache exists failed", "key", key, "error", err)
		return false
	}
	return ok
}

// Clear drops every key.
func (m *Manager) Clear(ctx context.Context) bool {
	if err := m.backend.Clear(ctx); err != nil {
		slog.Error("cache clear failed", "backend", m.backend.Name(), "error", err)
		return false
	}
	slog.Info("cache cleared", "backend", m.backend.Name())
	return true
}

// Value is an undecoded cache payload returned by GetMany.
type Value struct {
	raw []byte
}

// Decode unmarshals the payload into dst.
func (v Value) Decode(dst any) error {
	return decode(v.raw, dst)
}

// GetMany returns the live values among keys. Missing or failing keys are
// absent from the result.
func (m *Manager) GetMany(ctx context.Context, keys []string) map[string]Value {
	out := make(map[string]Value, len(keys))
	for _, key := range keys {
		raw, ok, err := m.backend.Get(ctx, key)
		if err != nil {
			slog.Warn("cache get failed", "key", key, "error", err)
			continue
		}
		if !ok {
			m.misses.Add(1)
			continue
		}
		m.hits.Add(1)
		out[key] = Value{raw: raw}
	}
	return out
}

// SetMany stores every item with the same ttl. It returns true only when
// all writes succeed; successful writes are kept either way.
func (m *Manager) SetMany(ctx context.Context, items map[string]any, ttl time.Duration) bool {
	ok := true
	for key, value := range items {
		if !m.Set(ctx, key, value, ttl) {
			ok = false
		}
	}
	return ok
}

// Increment adds amount to the counter at key. A new counter starts at 0
// and expires after ttl (defaultTTL when ttl <= 0); an existing counter
// keeps its expiry. On failure it returns (0, false).
func (m *Manager) Increment(ctx context.Context, key string, amount int64, ttl time.Duration) (int64, bool) {
	n, err := m.backend.Incr(ctx, key, amount, m.ttl(ttl))
	if err != nil {
		slog.Warn("cache increment failed", "key", key, "error", err)
		metrics.CacheOperations.WithLabelValues("incr", "error").Inc()
		return 0, false
	}
	metrics.CacheOperations.WithLabelValues("incr", "ok").Inc()
	return n, true
}

// Stats reports backend name, live key count and hit/miss counters.
func (m *Manager) Stats(ctx context.Context) Stats {
	keys, err := m.backend.Len(ctx)
	if err != nil {
		slog.Warn("cache stats failed", "error", err)
		keys = 0
	}
	return Stats{
		Backend: m.backend.Name(),
		Keys:    keys,
		Hits:    m.hits.Load(),
		Misses:  m.misses.Load(),
	}
}

// Close releases the backend.
func (m *Manager) Close() error {
	return m.backend.Close()
}

func (m *Manager) ttl(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return m.defaultTTL
	}
	return ttl
}

// encode prefers JSON and falls back to gob for values JSON cannot represent.
func encode(value any) ([]byte, error) {
	raw, jsonErr := json.Marshal(value)
	if jsonErr == nil {
		return raw, nil
	}
	var buf bytes.Buffer
	buf.WriteByte(gobMarker)
	if err := gob.NewEncoder(&buf).Encode(value); err != nil {
		return nil, fmt.Errorf("json: %v; gob: %w", jsonErr, err)
	}
	return buf.Bytes(), nil
}

func decode(raw []byte, dst any) error {
	if len(raw) > 0 && raw[0] == gobMarker {
		return gob.NewDecoder(bytes.NewReader(raw[1:])).Decode(dst)
	}
	return json.Unmarshal(raw, dst)
}
