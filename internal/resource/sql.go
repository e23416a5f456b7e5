package resource

import (
	"fmt"
	"strings"
)

// sqlOps maps filter operators to SQL. OpIn is handled separately.
var sqlOps = map[Op]string{
	OpEq:   "=",
	OpNeq:  "<>",
	OpGt:   ">",
	OpGte:  ">=",
	OpLt:   "<",
	OpLte:  "<=",
	OpLike: "ILIKE",
}

// SelectSQL renders a query into data and count statements for one table.
// Column names come from code, not request input; callers whitelist any
// user-supplied column before it reaches a Filter or Sort.
func SelectSQL(table, cols string, q Query) (dataSQL string, dataArgs []any, countSQL string, countArgs []any) {
	var where strings.Builder
	var args []any
	for _, f := range q.Filters {
		if where.Len() == 0 {
			where.WriteString(" WHERE ")
		} else {
			where.WriteString(" AND ")
		}
		args = append(args, f.Value)
		if f.Op == OpIn {
			fmt.Fprintf(&where, "%s = ANY($%d)", f.Column, len(args))
			continue
		}
		op, ok := sqlOps[f.Op]
		if !ok {
			op = "="
		}
		fmt.Fprintf(&where, "%s %s $%d", f.Column, op, len(args))
	}

	countSQL = fmt.Sprintf("SELECT COUNT(*) FROM %s%s", table, where.String())
	countArgs = args

	var tail strings.Builder
	dataArgs = append([]any(nil), args...)
	if q.Sort.Column != "" {
		dir := "ASC"
		if q.Sort.Desc {
			dir = "DESC"
		}
		fmt.Fprintf(&tail, " ORDER BY %s %s", q.Sort.Column, dir)
	}
	if q.Limit > 0 {
		dataArgs = append(dataArgs, q.Limit)
		fmt.Fprintf(&tail, " LIMIT $%d", len(dataArgs))
	}
	if q.Offset > 0 {
		dataArgs = append(dataArgs, q.Offset)
		fmt.Fprintf(&tail, " OFFSET $%d", len(dataArgs))
	}

	dataSQL = fmt.Sprintf("SELECT %s FROM %s%s%s", cols, table, where.String(), tail.String())
	return dataSQL, dataArgs, countSQL, countArgs
}
