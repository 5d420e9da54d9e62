// Package cache stores computed query results with a TTL and collapses
// concurrent misses for the same key into one computation.
package cache

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Backend is a concurrency-safe key-value store of entries.
type Backend interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, e Entry) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	Close() error
}

// MemoryBackend keeps entries in process.
type MemoryBackend struct {
	c *gocache.Cache
}

// NewMemoryBackend creates an in-process backend that purges expired items every cleanup interval.
func NewMemoryBackend(cleanup time.Duration) *MemoryBackend {
	return &MemoryBackend{c: gocache.New(gocache.NoExpiration, cleanup)}
}

func (m *MemoryBackend) Get(_ context.Context, key string) (Entry, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return Entry{}, false, nil
	}
	return v.(Entry).Clone(), true, nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, e Entry) error {
	m.c.Set(key, e.Clone(), e.TTL)
	return nil
}

func (m *MemoryBackend) DeletePrefix(_ context.Context, prefix string) (int, error) {
	n := 0
	for key := range m.c.Items() {
		if strings.HasPrefix(key, prefix) {
			m.c.Delete(key)
			n++
		}
	}
	return n, nil
}

// Len reports the number of stored items, including expired ones not yet purged.
func (m *MemoryBackend) Len() int { return m.c.ItemCount() }

func (m *MemoryBackend) Close() error {
	m.c.Flush()
	return nil
}
