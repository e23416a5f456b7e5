package resource

import "fmt"

// Op is a filter comparison operator.
type Op string

const (
	OpEq   Op = "eq"
	OpNeq  Op = "neq"
	OpGt   Op = "gt"
	OpGte  Op = "gte"
	OpLt   Op = "lt"
	OpLte  Op = "lte"
	OpLike Op = "like"
	OpIn   Op = "in"
)

// Filter is a single column-operator-value condition.
type Filter struct {
	Column string
	Op     Op
	Value  any
}

// Sort orders a list read by one column.
type Sort struct {
	Column string
	Desc   bool
}

// Query is the normalized filter/pagination/ordering spec for a list read.
type Query struct {
	Filters []Filter
	Sort    Sort
	Limit   int
	Offset  int
}

// Eq appends an equality filter and returns the query for chaining.
func (q Query) Eq(column string, value any) Query {
	q.Filters = append(q.Filters, Filter{Column: column, Op: OpEq, Value: value})
	return q
}

// Where appends an arbitrary filter and returns the query for chaining.
func (q Query) Where(column string, op Op, value any) Query {
	q.Filters = append(q.Filters, Filter{Column: column, Op: op, Value: value})
	return q
}

// OrderBy sets the sort column and direction.
func (q Query) OrderBy(column string, desc bool) Query {
	q.Sort = Sort{Column: column, Desc: desc}
	return q
}

// Page sets limit and offset.
func (q Query) Page(limit, offset int) Query {
	q.Limit = limit
	q.Offset = offset
	return q
}

// FilterMap renders the query as a flat map for cache key canonicalization.
// Logically equivalent queries produce deeply-equal maps regardless of how
// they were assembled.
func (q Query) FilterMap() map[string]any {
	m := make(map[string]any, len(q.Filters)+4)
	for _, f := range q.Filters {
		m[f.Column+"."+string(f.Op)] = fmt.Sprintf("%v", f.Value)
	}
	if q.Sort.Column != "" {
		dir := "asc"
		if q.Sort.Desc {
			dir = "desc"
		}
		m["_sort"] = q.Sort.Column + "." + dir
	}
	if q.Limit > 0 {
		m["_limit"] = q.Limit
	}
	if q.Offset > 0 {
		m["_offset"] = q.Offset
	}
	return m
}
