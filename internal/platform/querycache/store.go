package querycache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Entry holds the last-known-good data for a key together with its staleness
// flag. Entries are created on first read, marked stale on invalidation, and
// deleted on removal or idle eviction.
type Entry struct {
	Data      []byte    `json:"data"`
	Stale     bool      `json:"stale"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the backend holding cache entries. The memory store is the default;
// a Redis store serves multi-replica deployments. Store errors are surfaced to
// the cache, which logs them and degrades to a miss rather than failing reads.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, bool, error)
	Set(ctx context.Context, key string, e *Entry, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	MarkStale(ctx context.Context, key string) error
	MarkStalePrefix(ctx context.Context, prefix string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

type memoryEntry struct {
	entry      Entry
	expiresAt  time.Time
	lastAccess time.Time
}

// MemoryStore is a thread-safe in-process Store with lazy TTL expiration and
// an optional background sweeper for idle eviction.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*memoryEntry)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, bool, error) {
	s.mu.RLock()
	me, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	now := time.Now()
	if !me.expiresAt.IsZero() && now.After(me.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, false, nil
	}
	s.mu.Lock()
	me.lastAccess = now
	e := me.entry
	s.mu.Unlock()
	return &e, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, e *Entry, ttl time.Duration) error {
	me := &memoryEntry{entry: *e, lastAccess: time.Now()}
	if ttl > 0 {
		me.expiresAt = time.Now().Add(ttl)
	}
	s.mu.Lock()
	s.entries[key] = me
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) MarkStale(_ context.Context, key string) error {
	s.mu.Lock()
	if me, ok := s.entries[key]; ok {
		me.entry.Stale = true
	}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) MarkStalePrefix(_ context.Context, prefix string) error {
	s.mu.Lock()
	for k, me := range s.entries {
		if strings.HasPrefix(k, prefix) {
			me.entry.Stale = true
		}
	}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) DeletePrefix(_ context.Context, prefix string) error {
	s.mu.Lock()
	for k := range s.entries {
		if strings.HasPrefix(k, prefix) {
			delete(s.entries, k)
		}
	}
	s.mu.Unlock()
	return nil
}

// Len reports the number of live entries. Used by tests and metrics.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// StartSweeper runs a background goroutine that evicts entries unused for
// longer than idleTTL. It stops when the context is cancelled.
func (s *MemoryStore) StartSweeper(ctx context.Context, interval, idleTTL time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().Add(-idleTTL)
				s.mu.Lock()
				for k, me := range s.entries {
					if me.lastAccess.Before(cutoff) {
						delete(s.entries, k)
						evictionsTotal.Inc()
					}
				}
				s.mu.Unlock()
			}
		}
	}()
}
