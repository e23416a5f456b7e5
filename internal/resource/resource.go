// Package resource provides the generic, entity-agnostic resource layer: one
// parametrized factory replacing the per-entity read/write boilerplate. Each
// domain entity declares a Descriptor and a Store implementation; the Resource
// built from them routes reads through the query cache and scopes cache
// invalidation after every mutation.
package resource

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/telecare/telecare/internal/platform/querycache"
)

// Meta carries the fields every stored record shares. Domain models embed it;
// the resource layer owns stamping its timestamps.
type Meta struct {
	ID        uuid.UUID `db:"id" json:"id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// EntityMeta implements Entity for every model embedding Meta.
func (m *Meta) EntityMeta() *Meta { return m }

// Entity is satisfied by pointer-to-model types embedding Meta.
type Entity interface {
	EntityMeta() *Meta
}

// ParentScoped is implemented by entities that live under a parent record
// (notes under a patient, items under an order). The parent value scopes list
// invalidation after mutations.
type ParentScoped interface {
	ParentScope() string
}

// Store is the injected backing-store abstraction for one entity. Get and
// Delete return ErrNotFound for missing records; Update receives only the
// mutable fields that survived stripping.
type Store[T Entity] interface {
	List(ctx context.Context, q Query) ([]T, int, error)
	Get(ctx context.Context, id uuid.UUID) (T, error)
	Insert(ctx context.Context, rec T) error
	Update(ctx context.Context, id uuid.UUID, patch map[string]any) (T, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Descriptor identifies an entity type to the resource layer.
type Descriptor struct {
	// Name is the immutable cache base key, e.g. "notes".
	Name string
	// Immutable lists update-payload fields stripped before the store sees
	// them, in addition to the always-stripped id and created_at.
	Immutable []string
}

// Resource wires a Descriptor, a Store, and the query cache into the
// list/detail/create/update/delete contract shared by every entity.
type Resource[T Entity] struct {
	desc  Descriptor
	store Store[T]
	cache *querycache.Cache
}

// New builds the resource for one entity.
func New[T Entity](desc Descriptor, store Store[T], cache *querycache.Cache) *Resource[T] {
	return &Resource[T]{desc: desc, store: store, cache: cache}
}

// Name returns the resource's cache base key.
func (r *Resource[T]) Name() string { return r.desc.Name }

// Store exposes the underlying store for callers that need to bypass the
// cache inside a transaction.
func (r *Resource[T]) Store() Store[T] { return r.store }

type listPage[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// List performs a cached list read. The cache key is scoped under the query's
// parent value when parentField names a filter present in q.
func (r *Resource[T]) List(ctx context.Context, q Query, parent string) ([]T, int, error) {
	key := querycache.BuildScopedListKey(r.desc.Name, parent, q.FilterMap())
	page, err := querycache.Cached(ctx, r.cache, key, func(ctx context.Context) (listPage[T], error) {
		items, total, err := r.store.List(ctx, q)
		if err != nil {
			return listPage[T]{}, err
		}
		return listPage[T]{Items: items, Total: total}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return page.Items, page.Total, nil
}

type detailPage[T any] struct {
	Record T    `json:"record"`
	Found  bool `json:"found"`
}

// Get performs a cached detail read. A missing record yields the zero value
// with a nil error; callers distinguish absence by the nil result, and the
// negative result is cached like any other so repeated reads of a missing id
// do not hammer the store.
func (r *Resource[T]) Get(ctx context.Context, id uuid.UUID) (T, error) {
	var zero T
	key := querycache.BuildDetailKey(r.desc.Name, id.String())
	page, err := querycache.Cached(ctx, r.cache, key, func(ctx context.Context) (detailPage[T], error) {
		rec, err := r.store.Get(ctx, id)
		if IsNotFound(err) {
			return detailPage[T]{}, nil
		}
		if err != nil {
			return detailPage[T]{}, err
		}
		return detailPage[T]{Record: rec, Found: true}, nil
	})
	if err != nil {
		return zero, err
	}
	if !page.Found {
		return zero, nil
	}
	return page.Record, nil
}

// Create stamps identity and timestamps server-side, ignoring caller-supplied
// values, inserts the record, and invalidates the affected list scopes.
func (r *Resource[T]) Create(ctx context.Context, rec T) error {
	StampNew(rec)
	if err := r.store.Insert(ctx, rec); err != nil {
		return err
	}
	r.invalidateWrite(ctx, rec, rec.EntityMeta().ID)
	return nil
}

// Update strips immutable fields from the patch, bumps updated_at, applies
// the rest, and invalidates the record's detail key and affected list scopes.
// A status-only patch invalidates the same scopes as a full update.
func (r *Resource[T]) Update(ctx context.Context, id uuid.UUID, patch map[string]any) (T, error) {
	var zero T
	clean := make(map[string]any, len(patch))
	for k, v := range patch {
		if r.immutable(k) {
			continue
		}
		clean[k] = v
	}
	clean["updated_at"] = time.Now().UTC()

	rec, err := r.store.Update(ctx, id, clean)
	if err != nil {
		return zero, err
	}
	r.invalidateWrite(ctx, rec, id)
	return rec, nil
}

// Delete removes the record, evicts its detail cache entry outright (a
// refetch would only find nothing), and invalidates the affected list scopes.
// It returns the deleted record's parent scope so callers know what changed.
func (r *Resource[T]) Delete(ctx context.Context, id uuid.UUID) (string, error) {
	rec, err := r.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if err := r.store.Delete(ctx, id); err != nil {
		return "", err
	}

	parent := parentOf(rec)
	r.cache.Remove(ctx, querycache.BuildDetailKey(r.desc.Name, id.String()))
	r.invalidateLists(ctx, parent)
	return parent, nil
}

// InvalidateAll marks every key of the resource stale. The broad fallback for
// writes whose scope is unknown at call time.
func (r *Resource[T]) InvalidateAll(ctx context.Context) {
	r.cache.InvalidateResource(ctx, r.desc.Name)
}

// InvalidateRecord invalidates the record's detail key and affected list
// scopes. For callers that wrote through the store directly, e.g. inside a
// transaction spanning multiple resources.
func (r *Resource[T]) InvalidateRecord(ctx context.Context, rec T) {
	r.invalidateWrite(ctx, rec, rec.EntityMeta().ID)
}

// RemoveRecord evicts a deleted record's detail entry and invalidates its
// list scopes, for callers that deleted through the store directly.
func (r *Resource[T]) RemoveRecord(ctx context.Context, rec T) {
	r.cache.Remove(ctx, querycache.BuildDetailKey(r.desc.Name, rec.EntityMeta().ID.String()))
	r.invalidateLists(ctx, parentOf(rec))
}

// StampNew assigns a fresh id and equal created/updated timestamps, exactly
// as Create does, for records inserted through a store directly.
func StampNew[T Entity](rec T) {
	m := rec.EntityMeta()
	m.ID = uuid.New()
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
}

func (r *Resource[T]) immutable(field string) bool {
	if field == "id" || field == "created_at" {
		return true
	}
	for _, f := range r.desc.Immutable {
		if f == field {
			return true
		}
	}
	return false
}

func (r *Resource[T]) invalidateWrite(ctx context.Context, rec T, id uuid.UUID) {
	r.cache.Invalidate(ctx, querycache.BuildDetailKey(r.desc.Name, id.String()))
	r.invalidateLists(ctx, parentOf(rec))
}

// invalidateLists marks the unscoped list collection stale and, when the
// parent is known, that parent's list collection too. An unknown parent falls
// back to the whole resource: broader, never incorrect.
func (r *Resource[T]) invalidateLists(ctx context.Context, parent string) {
	if parent == "" {
		r.cache.InvalidateLists(ctx, r.desc.Name)
		return
	}
	r.cache.InvalidateScopedLists(ctx, r.desc.Name, parent)
	r.cache.InvalidateScopedLists(ctx, r.desc.Name, "")
}

func parentOf(rec any) string {
	if ps, ok := rec.(ParentScoped); ok {
		return ps.ParentScope()
	}
	return ""
}
