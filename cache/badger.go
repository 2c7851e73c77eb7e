package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// incrRetries bounds optimistic retries when concurrent increments conflict.
const incrRetries = 100

// Badger is a durable Backend on BadgerDB. Expiry uses badger's native TTL.
type Badger struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a badger store in dir.
func OpenBadger(dir string) (*Badger, error) {
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("cache: open badger at %s: %w", dir, err)
	}
	return &Badger{db: db}, nil
}

// OpenBadgerInMemory opens a non-persistent badger store. Used by tests.
func OpenBadgerInMemory() (*Badger, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("cache: open in-memory badger: %w", err)
	}
	return &Badger{db: db}, nil
}

func (b *Badger) Name() string { return "badger" }

func (b *Badger) Get(_ context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: get %q: %w", key, err)
	}
	return value, true, nil
}

func (b *Badger) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	return b.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
}

func (b *Badger) Delete(_ context.Context, key string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

func (b *Badger) Exists(_ context.Context, key string) (bool, error) {
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache: exists %q: %w", key, err)
	}
	return true, nil
}

func (b *Badger) Clear(_ context.Context) error {
	return b.db.DropAll()
}

func (b *Badger) Incr(_ context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	var next int64
	incr := func(txn *badger.Txn) error {
		var (
			current   int64
			expiresAt uint64
		)
		item, err := txn.Get([]byte(key))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			expiresAt = item.ExpiresAt()
			err = item.Value(func(val []byte) error {
				n, perr := strconv.ParseInt(string(val), 10, 64)
				if perr != nil {
					return fmt.Errorf("value at %q is not an integer", key)
				}
				current = n
				return nil
			})
			if err != nil {
				return err
			}
		}

		next = current + delta
		e := badger.NewEntry([]byte(key), []byte(strconv.FormatInt(next, 10)))
		switch {
		case expiresAt > 0:
			e.ExpiresAt = expiresAt
		case ttl > 0:
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	}

	var err error
	for attempt := 0; attempt < incrRetries; attempt++ {
		if err = b.db.Update(incr); !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil {
		return 0, fmt.Errorf("cache: incr %q: %w", key, err)
	}
	return next, nil
}

func (b *Badger) Len(_ context.Context) (int, error) {
	n := 0
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("cache: count keys: %w", err)
	}
	return n, nil
}

func (b *Badger) Close() error {
	return b.db.Close()
}

// RunGC triggers value-log garbage collection until nothing is reclaimed.
func (b *Badger) RunGC() {
	for b.db.RunValueLogGC(0.5) == nil {
	}
}

// badgerLogger routes badger's internal logging through slog.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	slog.Error(fmt.Sprintf(format, args...), "component", "badger")
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	slog.Warn(fmt.Sprintf(format, args...), "component", "badger")
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	slog.Debug(fmt.Sprintf(format, args...), "component", "badger")
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	slog.Debug(fmt.Sprintf(format, args...), "component", "badger")
}
