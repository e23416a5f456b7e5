package querycache

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Scope identifies whether a key addresses a list of records or a single record.
type Scope string

const (
	ScopeList   Scope = "list"
	ScopeDetail Scope = "detail"
)

// Key is a structured, comparable identifier for a cached read. Two logically
// equivalent reads (same resource, same filters regardless of map insertion
// order) always build the identical Key; distinct filters build distinct Keys.
type Key struct {
	Resource      string
	Scope         Scope
	Discriminator string
}

// String renders the key in its canonical "resource/scope/discriminator" form.
// This form is what the store indexes by and what prefix invalidation matches.
func (k Key) String() string {
	return k.Resource + "/" + string(k.Scope) + "/" + k.Discriminator
}

// ResourcePrefix returns the prefix matching every key of a resource,
// list and detail alike.
func ResourcePrefix(resource string) string {
	return resource + "/"
}

// ListPrefix returns the prefix matching every list key of a resource.
func ListPrefix(resource string) string {
	return resource + "/" + string(ScopeList) + "/"
}

// BuildDetailKey builds the key for a single record.
func BuildDetailKey(resource, id string) Key {
	return Key{Resource: resource, Scope: ScopeDetail, Discriminator: id}
}

// BuildListKey builds the key for an unscoped list read. Filters are
// canonicalized with sorted keys so equality is order-independent.
func BuildListKey(resource string, filters map[string]any) Key {
	return BuildScopedListKey(resource, "", filters)
}

// BuildScopedListKey builds the key for a list read scoped under a parent
// record (a patient's notes, an order's items). The parent forms its own key
// segment so invalidation can target just that parent's lists. An empty
// parent means the unscoped "all" collection.
func BuildScopedListKey(resource, parent string, filters map[string]any) Key {
	if parent == "" {
		parent = "all"
	}
	return Key{
		Resource:      resource,
		Scope:         ScopeList,
		Discriminator: parent + "/" + CanonicalFilters(filters),
	}
}

// ScopedListPrefix returns the prefix matching every list key under a parent.
func ScopedListPrefix(resource, parent string) string {
	if parent == "" {
		parent = "all"
	}
	return resource + "/" + string(ScopeList) + "/" + parent + "/"
}

// CanonicalFilters serializes a filter map deterministically: keys sorted,
// nested maps recursed, slices kept in order. Keys and string values are
// quoted so user-supplied values containing the serialization's own
// delimiters (",", ":", braces) cannot build the same key as a structurally
// different map. An empty or nil map serializes to "{}" so the unfiltered
// list has a stable key.
func CanonicalFilters(filters map[string]any) string {
	var b strings.Builder
	writeCanonical(&b, filters)
	return b.String()
}

func writeCanonical(b *strings.Builder, v any) {
	switch val := v.(type) {
	case nil:
		b.WriteString("null")
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(k))
			b.WriteByte(':')
			writeCanonical(b, val[k])
		}
		b.WriteByte('}')
	case map[string]string:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(k))
			b.WriteByte(':')
			b.WriteString(strconv.Quote(val[k]))
		}
		b.WriteByte('}')
	case []any:
		b.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, item)
		}
		b.WriteByte(']')
	case []string:
		b.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(item))
		}
		b.WriteByte(']')
	case string:
		b.WriteString(strconv.Quote(val))
	default:
		fmt.Fprintf(b, "%v", val)
	}
}
