package db

import (
	"fmt"
	"sort"
	"strings"
)

// BuildUpdate renders an UPDATE statement for a partial patch. Columns are
// sorted so the same patch always produces the same SQL. The id is always the
// last argument; returning may be empty.
func BuildUpdate(table string, patch map[string]any, id any, returning string) (string, []any) {
	cols := make([]string, 0, len(patch))
	for c := range patch {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	var sets []string
	args := make([]any, 0, len(cols)+1)
	for i, c := range cols {
		sets = append(sets, fmt.Sprintf("%s = $%d", c, i+1))
		args = append(args, patch[c])
	}
	args = append(args, id)

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d", table, strings.Join(sets, ", "), len(args))
	if returning != "" {
		sql += " RETURNING " + returning
	}
	return sql, args
}
