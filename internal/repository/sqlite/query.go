package sqlite

import (
	"strings"

	"github.com/RomanK74/api-yamdb/internal/repository"
)

// orderBy turns a whitelisted ordering such as "-year" into an ORDER BY
// expression. columns maps ordering fields to qualified column names; the id
// column is appended as a tie-breaker so paging is stable. Values outside
// allowed fall back to the default; services reject them before this point.
func orderBy(allowed []string, ordering string, columns map[string]string, idColumn string) string {
	ordering, ok := repository.ResolveOrdering(allowed, ordering)
	if !ok {
		ordering = allowed[0]
	}

	dir := "ASC"
	field := ordering
	if strings.HasPrefix(ordering, "-") {
		dir = "DESC"
		field = ordering[1:]
	}

	col, ok := columns[field]
	if !ok {
		col = field
	}
	if col == idColumn {
		return col + " " + dir
	}
	return col + " " + dir + ", " + idColumn + " DESC"
}

// where joins conditions with AND, or returns "" for none.
func where(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}
