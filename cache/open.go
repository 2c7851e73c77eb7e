package cache

import (
	"fmt"
	"log/slog"

	"github.com/use-agent/souschef/config"
)

// Open builds the Manager for the configured backend.
func Open(cfg config.CacheConfig) (*Manager, error) {
	var backend Backend
	switch cfg.Backend {
	case "badger":
		b, err := OpenBadger(cfg.Path)
		if err != nil {
			return nil, err
		}
		backend = b
	case "memory", "":
		backend = NewMemory(cfg.MaxEntries, cfg.SweepInterval)
	default:
		return nil, fmt.Errorf("cache: unknown backend %q", cfg.Backend)
	}

	slog.Info("cache initialised",
		"backend", backend.Name(),
		"defaultTTL", cfg.DefaultTTL,
	)
	return NewManager(backend, cfg.DefaultTTL), nil
}
