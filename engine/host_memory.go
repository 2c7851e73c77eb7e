package engine

import (
	"context"
	"net/url"
	"time"

	"github.com/use-agent/souschef/cache"
)

const hostMemoryPrefix = "engine_pref:"

// HostMemory remembers which engine last won the race for each host.
// Entries live in the shared cache and expire after the configured TTL.
type HostMemory struct {
	cache *cache.Manager
	ttl   time.Duration
}

// NewHostMemory creates a HostMemory storing its entries in c.
func NewHostMemory(c *cache.Manager, ttl time.Duration) *HostMemory {
	return &HostMemory{cache: c, ttl: ttl}
}

// Get returns the remembered engine name for a host, or "" if there is none.
func (m *HostMemory) Get(ctx context.Context, host string) string {
	if m == nil {
		return ""
	}
	var name string
	if !m.cache.Get(ctx, hostMemoryPrefix+host, &name) {
		return ""
	}
	return name
}

// Set records which engine succeeded for a host.
func (m *HostMemory) Set(ctx context.Context, host, engineName string) {
	if m == nil {
		return
	}
	m.cache.Set(ctx, hostMemoryPrefix+host, engineName, m.ttl)
}

// Forget drops the entry for host, e.g. after the remembered engine failed.
func (m *HostMemory) Forget(ctx context.Context, host string) {
	if m == nil {
		return
	}
	m.cache.Delete(ctx, hostMemoryPrefix+host)
}

// hostOf parses the hostname from a URL string.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
