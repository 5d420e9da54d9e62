package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Clock supplies the instant used for TTL checks.
type Clock interface {
	Now() time.Time
}

// ComputeFunc produces the entry for a missing key. It runs detached from
// the caller's cancellation.
type ComputeFunc func(ctx context.Context) (Entry, error)

// Stats counts loader outcomes.
type Stats struct {
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
	Computes int64 `json:"computes"`
	Shared   int64 `json:"shared"`
}

// Loader reads through a Backend. Concurrent misses for one key share a
// single computation; misses for different keys proceed independently.
type Loader struct {
	backend Backend
	clock   Clock
	group   singleflight.Group

	hits, misses, computes, shared atomic.Int64
}

// NewLoader creates a Loader over backend.
func NewLoader(backend Backend, clock Clock) *Loader {
	return &Loader{backend: backend, clock: clock}
}

// Load returns the cached entry for key or computes, stores and returns it.
// If ctx is cancelled while waiting, Load returns ctx.Err() but the shared
// computation still completes and populates the cache.
func (l *Loader) Load(ctx context.Context, key Key, ttl time.Duration, compute ComputeFunc) (Entry, error) {
	k := key.String()
	if e, ok := l.lookup(ctx, k); ok {
		l.hits.Add(1)
		return e, nil
	}
	l.misses.Add(1)

	detached := context.WithoutCancel(ctx)
	ch := l.group.DoChan(k, func() (any, error) {
		// A flight that finished just before this one started may have filled the key.
		if e, ok := l.lookup(detached, k); ok {
			return e, nil
		}
		l.computes.Add(1)
		e, err := compute(detached)
		if err != nil {
			return Entry{}, err
		}
		e.ComputedAt = l.clock.Now()
		e.TTL = ttl
		if err := l.backend.Set(detached, k, e); err != nil {
			log.Warn().Err(err).Str("key", k).Msg("cache store failed")
		}
		return e, nil
	})

	select {
	case <-ctx.Done():
		return Entry{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Entry{}, res.Err
		}
		if res.Shared {
			l.shared.Add(1)
		}
		return res.Val.(Entry).Clone(), nil
	}
}

func (l *Loader) lookup(ctx context.Context, k string) (Entry, bool) {
	e, ok, err := l.backend.Get(ctx, k)
	if err != nil {
		log.Warn().Err(err).Str("key", k).Msg("cache read failed, recomputing")
		return Entry{}, false
	}
	if !ok || e.Expired(l.clock.Now()) {
		return Entry{}, false
	}
	return e, true
}

// Invalidate drops every entry for prefix and returns how many were removed.
func (l *Loader) Invalidate(ctx context.Context, prefix string) (int, error) {
	return l.backend.DeletePrefix(ctx, prefix)
}

// Stats returns a snapshot of the counters.
func (l *Loader) Stats() Stats {
	return Stats{
		Hits:     l.hits.Load(),
		Misses:   l.misses.Load(),
		Computes: l.computes.Load(),
		Shared:   l.shared.Load(),
	}
}
