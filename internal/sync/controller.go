package sync

import (
	"context"
	stdsync "sync"
	"time"

	"camp-companion/internal/remote"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// FetchFunc retrieves the remote entries inside a filter scope.
type FetchFunc[T any] func(ctx context.Context, f remote.Filter) ([]T, error)

// MatchFunc reports whether a local entry falls inside a filter scope.
type MatchFunc[T any] func(item T, f remote.Filter) bool

// Controller keeps a local copy of one remote collection approximately
// fresh via polling and explicit refreshes.
//
// Merge rule: entries matching the refresh filter are replaced wholesale by
// the fetched set; entries outside the filter are left untouched. An empty
// filter replaces the whole collection. Responses are applied last-writer-wins
// by a per-filter sequence number, so a slow stale response never overwrites
// a newer one.
type Controller[T any] struct {
	name  string
	fetch FetchFunc[T]
	match MatchFunc[T]
	clock clockwork.Clock

	// onChange is invoked with a snapshot after every applied merge,
	// outside the collection lock. Used to persist to the local cache.
	onChange func([]T)

	group singleflight.Group

	mu         stdsync.Mutex
	items      []T
	lastErr    error
	nextSeq    map[remote.Filter]uint64
	appliedSeq map[remote.Filter]uint64
	inflight   map[remote.Filter]bool
	background bool
	polled     []polledFilter
}

type polledFilter struct {
	filter   remote.Filter
	interval time.Duration
}

// NewController creates a controller for one named collection
func NewController[T any](name string, fetch FetchFunc[T], match MatchFunc[T], clock clockwork.Clock) *Controller[T] {
	return &Controller[T]{
		name:       name,
		fetch:      fetch,
		match:      match,
		clock:      clock,
		nextSeq:    make(map[remote.Filter]uint64),
		appliedSeq: make(map[remote.Filter]uint64),
		inflight:   make(map[remote.Filter]bool),
	}
}

// OnChange registers the persistence hook
func (c *Controller[T]) OnChange(fn func([]T)) {
	c.onChange = fn
}

// SetItems replaces the local collection without a fetch. Used to rehydrate
// from the persisted cache before the first remote fetch completes.
func (c *Controller[T]) SetItems(items []T) {
	c.mu.Lock()
	c.items = append([]T(nil), items...)
	c.mu.Unlock()
}

// Mutate applies a local, provisional change to the collection and invokes
// the persistence hook. The change is optimistic: the next applied refresh
// for a covering filter scope overwrites it.
func (c *Controller[T]) Mutate(fn func(items []T) []T) {
	c.mu.Lock()
	c.items = fn(c.snapshotLocked())
	snap := c.snapshotLocked()
	c.mu.Unlock()
	if c.onChange != nil {
		c.onChange(snap)
	}
}

// Items returns a snapshot of the local collection
func (c *Controller[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Err returns the error recorded by the most recent refresh, or nil
func (c *Controller[T]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Refresh fetches the entries inside the filter scope and merges them into
// the local collection. Concurrent refreshes for the same filter share one
// fetch; a refresh whose response arrives after a newer one has been applied
// is discarded.
func (c *Controller[T]) Refresh(ctx context.Context, f remote.Filter) ([]T, error) {
	v, err, _ := c.group.Do(filterKey(f), func() (interface{}, error) {
		return c.refreshOnce(ctx, f)
	})
	if err != nil {
		return nil, err
	}
	return v.([]T), nil
}

func (c *Controller[T]) refreshOnce(ctx context.Context, f remote.Filter) ([]T, error) {
	c.mu.Lock()
	c.nextSeq[f]++
	seq := c.nextSeq[f]
	c.inflight[f] = true
	c.mu.Unlock()

	items, err := c.fetch(ctx, f)

	c.mu.Lock()
	c.inflight[f] = false
	if err != nil {
		c.lastErr = err
		c.mu.Unlock()
		log.Error().Err(err).Str("collection", c.name).Msg("refresh failed")
		return nil, err
	}
	c.lastErr = nil

	applied := false
	if seq > c.appliedSeq[f] {
		c.appliedSeq[f] = seq
		c.mergeLocked(f, items)
		applied = true
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if applied {
		log.Debug().Str("collection", c.name).Int("fetched", len(items)).Msg("refresh applied")
		if c.onChange != nil {
			c.onChange(snap)
		}
	} else {
		log.Debug().Str("collection", c.name).Msg("discarded stale refresh response")
	}
	return snap, nil
}

// mergeLocked applies the asymmetric merge rule. Caller holds c.mu.
func (c *Controller[T]) mergeLocked(f remote.Filter, fetched []T) {
	if f.IsZero() || c.match == nil {
		c.items = append([]T(nil), fetched...)
		return
	}
	merged := make([]T, 0, len(c.items)+len(fetched))
	for _, item := range c.items {
		if !c.match(item, f) {
			merged = append(merged, item)
		}
	}
	merged = append(merged, fetched...)
	c.items = merged
}

func (c *Controller[T]) snapshotLocked() []T {
	return append([]T(nil), c.items...)
}

// StartPolling refreshes the filter scope on a fixed interval until ctx is
// cancelled. A tick that fires while the app is backgrounded, or while a
// refresh for the same filter is already in flight, is skipped, never queued.
func (c *Controller[T]) StartPolling(ctx context.Context, interval time.Duration, f remote.Filter) {
	c.mu.Lock()
	c.polled = append(c.polled, polledFilter{filter: f, interval: interval})
	c.mu.Unlock()

	go func() {
		ticker := c.clock.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				if c.skipTick(f) {
					continue
				}
				if _, err := c.Refresh(ctx, f); err != nil {
					// Next attempt is the next tick; no immediate retry.
					log.Debug().Err(err).Str("collection", c.name).Msg("poll tick failed")
				}
			}
		}
	}()
}

func (c *Controller[T]) skipTick(f remote.Filter) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.background || c.inflight[f]
}

// Background suspends polling. In-flight requests are not cancelled; their
// results remain subject to the sequence rule.
func (c *Controller[T]) Background() {
	c.mu.Lock()
	c.background = true
	c.mu.Unlock()
	log.Debug().Str("collection", c.name).Msg("polling suspended")
}

// Foreground resumes polling and triggers an immediate refresh of every
// polled filter scope.
func (c *Controller[T]) Foreground(ctx context.Context) {
	c.mu.Lock()
	c.background = false
	polled := append([]polledFilter(nil), c.polled...)
	c.mu.Unlock()
	log.Debug().Str("collection", c.name).Msg("polling resumed")

	for _, p := range polled {
		go func(f remote.Filter) {
			if _, err := c.Refresh(ctx, f); err != nil {
				log.Debug().Err(err).Str("collection", c.name).Msg("foreground refresh failed")
			}
		}(p.filter)
	}
}

func filterKey(f remote.Filter) string {
	return string(f.Type) + "|" + string(f.Day)
}
