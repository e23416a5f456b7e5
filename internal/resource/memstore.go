package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemStore is an in-memory Store used by tests and local development. Records
// are held serialized so reads hand out copies, never aliases to shared
// state. Filter matching and patch application work over the records' JSON
// field names, mirroring how the Postgres stores address columns.
type MemStore[T Entity] struct {
	mu    sync.RWMutex
	recs  map[uuid.UUID][]byte
	order []uuid.UUID
}

// NewMemStore creates an empty MemStore.
func NewMemStore[T Entity]() *MemStore[T] {
	return &MemStore[T]{recs: make(map[uuid.UUID][]byte)}
}

func (s *MemStore[T]) decode(raw []byte) (T, error) {
	var zero T
	rec := reflect.New(reflect.TypeOf(zero).Elem()).Interface().(T)
	if err := json.Unmarshal(raw, rec); err != nil {
		return zero, err
	}
	return rec, nil
}

func (s *MemStore[T]) List(_ context.Context, q Query) ([]T, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type candidate struct {
		raw    []byte
		fields map[string]any
	}
	var matched []candidate
	for _, id := range s.order {
		raw, ok := s.recs[id]
		if !ok {
			continue
		}
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, 0, err
		}
		if matchesFilters(fields, q.Filters) {
			matched = append(matched, candidate{raw: raw, fields: fields})
		}
	}

	if q.Sort.Column != "" {
		col, desc := q.Sort.Column, q.Sort.Desc
		sort.SliceStable(matched, func(i, j int) bool {
			a := fmt.Sprintf("%v", matched[i].fields[col])
			b := fmt.Sprintf("%v", matched[j].fields[col])
			if desc {
				return a > b
			}
			return a < b
		})
	}

	total := len(matched)
	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[q.Offset:]
		}
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	items := make([]T, 0, len(matched))
	for _, c := range matched {
		rec, err := s.decode(c.raw)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rec)
	}
	return items, total, nil
}

func (s *MemStore[T]) Get(_ context.Context, id uuid.UUID) (T, error) {
	s.mu.RLock()
	raw, ok := s.recs[id]
	s.mu.RUnlock()
	var zero T
	if !ok {
		return zero, ErrNotFound
	}
	return s.decode(raw)
}

func (s *MemStore[T]) Insert(_ context.Context, rec T) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	id := rec.EntityMeta().ID
	s.mu.Lock()
	if _, exists := s.recs[id]; !exists {
		s.order = append(s.order, id)
	}
	s.recs[id] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemStore[T]) Update(_ context.Context, id uuid.UUID, patch map[string]any) (T, error) {
	var zero T
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.recs[id]
	if !ok {
		return zero, ErrNotFound
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return zero, err
	}
	for k, v := range patch {
		fields[k] = v
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return zero, err
	}
	s.recs[id] = merged
	return s.decode(merged)
}

func (s *MemStore[T]) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recs[id]; !ok {
		return ErrNotFound
	}
	delete(s.recs, id)
	for i, other := range s.order {
		if other == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len reports the number of stored records.
func (s *MemStore[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.recs)
}

// Raw returns the stored JSON for a record, for tests asserting exactly which
// fields reached the store.
func (s *MemStore[T]) Raw(id uuid.UUID) (map[string]any, bool) {
	s.mu.RLock()
	raw, ok := s.recs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, false
	}
	return fields, true
}

func matchesFilters(fields map[string]any, filters []Filter) bool {
	for _, f := range filters {
		got := fmt.Sprintf("%v", fields[f.Column])
		want := fmt.Sprintf("%v", f.Value)
		switch f.Op {
		case OpEq:
			if got != want {
				return false
			}
		case OpNeq:
			if got == want {
				return false
			}
		case OpGt:
			if !(got > want) {
				return false
			}
		case OpGte:
			if !(got >= want) {
				return false
			}
		case OpLt:
			if !(got < want) {
				return false
			}
		case OpLte:
			if !(got <= want) {
				return false
			}
		case OpIn:
			vals, ok := f.Value.([]string)
			if !ok {
				return false
			}
			found := false
			for _, v := range vals {
				if got == v {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			return false
		}
	}
	return true
}
