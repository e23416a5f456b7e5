// Package querycache implements the resource query/mutation cache mediating
// all reads and writes between HTTP handlers and the Postgres repositories.
// Reads are read-through with in-flight deduplication; mutations invalidate
// the key scopes whose underlying data they could have changed.
package querycache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Fetcher loads the value for a key from the backing store when the cache
// misses. The returned bytes are the JSON encoding of the view model.
type Fetcher func(ctx context.Context) ([]byte, error)

// EventType classifies a cache notification.
type EventType string

const (
	EventInvalidated EventType = "invalidated"
	EventRemoved     EventType = "removed"
)

// Event notifies a subscriber that a key it watches went stale or was removed.
type Event struct {
	Key  string
	Type EventType
}

type subscriber struct {
	prefix string
	ch     chan Event
}

// Cache is the process-wide query cache. It owns staleness, in-flight
// deduplication, invalidation, and subscriber notification; consumers never
// mutate entries directly.
type Cache struct {
	store  Store
	ttl    time.Duration
	group  singleflight.Group
	logger zerolog.Logger

	mu     sync.Mutex
	nextID int
	subs   map[int]subscriber
}

// New creates a Cache over the given store. ttl bounds the lifetime of a
// fresh entry; zero means entries live until invalidated or evicted.
func New(store Store, ttl time.Duration, logger zerolog.Logger) *Cache {
	return &Cache{
		store:  store,
		ttl:    ttl,
		logger: logger,
		subs:   make(map[int]subscriber),
	}
}

// GetOrFetch returns the cached value for key, fetching it when the entry is
// missing or stale. Concurrent reads of the same key while a fetch is
// outstanding share a single fetch and its result. Store failures degrade to
// a miss; they never fail the read on their own.
func (c *Cache) GetOrFetch(ctx context.Context, key Key, fetch Fetcher) ([]byte, error) {
	ks := key.String()

	e, ok, err := c.store.Get(ctx, ks)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", ks).Msg("cache store read failed, treating as miss")
	}
	if ok && !e.Stale {
		hitsTotal.WithLabelValues(key.Resource).Inc()
		return e.Data, nil
	}
	missesTotal.WithLabelValues(key.Resource).Inc()

	v, err, shared := c.group.Do(ks, func() (any, error) {
		data, ferr := fetch(ctx)
		if ferr != nil {
			return nil, ferr
		}
		entry := &Entry{Data: data, UpdatedAt: time.Now()}
		if serr := c.store.Set(ctx, ks, entry, c.ttl); serr != nil {
			c.logger.Warn().Err(serr).Str("key", ks).Msg("cache store write failed")
		}
		return data, nil
	})
	if shared {
		dedupJoinsTotal.Inc()
	}
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Invalidate marks the given keys stale. The next read of a stale key fetches
// fresh data; subscribers watching the key are notified.
func (c *Cache) Invalidate(ctx context.Context, keys ...Key) {
	for _, key := range keys {
		ks := key.String()
		if err := c.store.MarkStale(ctx, ks); err != nil {
			c.logger.Warn().Err(err).Str("key", ks).Msg("cache invalidate failed")
		}
		invalidationsTotal.WithLabelValues(key.Resource, "key").Inc()
		c.notify(ks, EventInvalidated)
	}
}

// InvalidateLists marks every list key of a resource stale. Used after
// mutations whose affected filter scopes cannot be enumerated.
func (c *Cache) InvalidateLists(ctx context.Context, resource string) {
	prefix := ListPrefix(resource)
	if err := c.store.MarkStalePrefix(ctx, prefix); err != nil {
		c.logger.Warn().Err(err).Str("prefix", prefix).Msg("cache list invalidate failed")
	}
	invalidationsTotal.WithLabelValues(resource, "lists").Inc()
	c.notify(prefix, EventInvalidated)
}

// InvalidateScopedLists marks every list key under one parent stale. An
// empty parent targets the unscoped "all" collection.
func (c *Cache) InvalidateScopedLists(ctx context.Context, resource, parent string) {
	prefix := ScopedListPrefix(resource, parent)
	if err := c.store.MarkStalePrefix(ctx, prefix); err != nil {
		c.logger.Warn().Err(err).Str("prefix", prefix).Msg("cache scoped list invalidate failed")
	}
	invalidationsTotal.WithLabelValues(resource, "lists").Inc()
	c.notify(prefix, EventInvalidated)
}

// InvalidateResource marks every key of a resource stale, list and detail
// alike. This is the broad fallback when the identifying parent is unknown at
// call time: less efficient, never incorrect.
func (c *Cache) InvalidateResource(ctx context.Context, resource string) {
	prefix := ResourcePrefix(resource)
	if err := c.store.MarkStalePrefix(ctx, prefix); err != nil {
		c.logger.Warn().Err(err).Str("prefix", prefix).Msg("cache resource invalidate failed")
	}
	invalidationsTotal.WithLabelValues(resource, "resource").Inc()
	c.notify(prefix, EventInvalidated)
}

// Remove evicts a key's entry outright. Used after deletes, where a refetch
// of the detail key would only find nothing.
func (c *Cache) Remove(ctx context.Context, key Key) {
	ks := key.String()
	if err := c.store.Delete(ctx, ks); err != nil {
		c.logger.Warn().Err(err).Str("key", ks).Msg("cache remove failed")
	}
	invalidationsTotal.WithLabelValues(key.Resource, "remove").Inc()
	c.notify(ks, EventRemoved)
}

// Subscribe registers a watcher for every key under the given prefix. The
// returned cancel func unregisters it and closes the channel. Notification is
// fire-and-forget: a subscriber that cannot keep up misses events rather than
// blocking invalidation.
func (c *Cache) Subscribe(prefix string) (<-chan Event, func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	ch := make(chan Event, 16)
	c.subs[id] = subscriber{prefix: prefix, ch: ch}
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub.ch)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

func (c *Cache) notify(key string, t EventType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sub := range c.subs {
		if !matchesPrefix(key, sub.prefix) {
			continue
		}
		select {
		case sub.ch <- Event{Key: key, Type: t}:
		default:
		}
	}
}

// matchesPrefix relates a notification key to a subscription prefix. A prefix
// notification (ending in "/") also reaches subscribers of keys under it.
func matchesPrefix(key, prefix string) bool {
	if len(prefix) <= len(key) {
		return key[:len(prefix)] == prefix
	}
	return prefix[:len(key)] == key
}

// Cached is the typed read-through helper: it routes a typed fetch through
// the cache's byte-level entries via JSON.
func Cached[T any](ctx context.Context, c *Cache, key Key, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	data, err := c.GetOrFetch(ctx, key, func(ctx context.Context) ([]byte, error) {
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	})
	if err != nil {
		return zero, err
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, err
	}
	return out, nil
}
