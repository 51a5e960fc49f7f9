// Package cache provides the tag-based response cache backing the catalog
// read paths. Entries sharing a tag are evicted together: the invalidation
// contract is deliberately coarse, one mutation purges every cached list
// and detail view under the tag.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// Store is the injected caching capability. Implementations must be safe
// for concurrent use.
type Store interface {
	// Get returns the cached value for (tag, key), reporting a miss when
	// the entry is absent or expired.
	Get(ctx context.Context, tag, key string) ([]byte, bool)
	// Set stores the value under (tag, key) with the given time to live.
	Set(ctx context.Context, tag, key string, value []byte, ttl time.Duration) error
	// EvictTag removes every entry stored under the tag.
	EvictTag(ctx context.Context, tag string) error
	Close() error
}

// BadgerStore implements Store on an in-memory badger database. Tags are
// encoded as key prefixes so tag eviction is a prefix drop.
type BadgerStore struct {
	db     *badger.DB
	logger *slog.Logger
}

// NewBadgerStore opens an in-memory badger instance.
func NewBadgerStore(logger *slog.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache store: %w", err)
	}
	return &BadgerStore{db: db, logger: logger}, nil
}

func taggedKey(tag, key string) []byte {
	return []byte(tag + "/" + key)
}

func (s *BadgerStore) Get(ctx context.Context, tag, key string) ([]byte, bool) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(taggedKey(tag, key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			s.logger.WarnContext(ctx, "Cache read failed", slog.String("tag", tag), slog.String("error", err.Error()))
		}
		return nil, false
	}
	return value, true
}

func (s *BadgerStore) Set(ctx context.Context, tag, key string, value []byte, ttl time.Duration) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(taggedKey(tag, key), value).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("failed to cache entry: %w", err)
	}
	return nil
}

func (s *BadgerStore) EvictTag(ctx context.Context, tag string) error {
	if err := s.db.DropPrefix([]byte(tag + "/")); err != nil {
		return fmt.Errorf("failed to evict cache tag %q: %w", tag, err)
	}
	s.logger.DebugContext(ctx, "Cache tag evicted", slog.String("tag", tag))
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
