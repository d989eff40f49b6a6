package querybuilder

import (
	"fmt"
	"strings"
)

// Builder accumulates WHERE conditions and their positional arguments for a
// single query, rejecting any column name not present in its whitelist.
// Generalizes the teacher's buildInClause/buildFilterConditions helpers into
// a reusable type instead of one bespoke method per filter struct.
type Builder struct {
	allowedColumns map[string]bool
	conditions     []string
	args           []any
}

// New creates a Builder that only accepts the given column names.
func New(allowedColumns ...string) *Builder {
	allowed := make(map[string]bool, len(allowedColumns))
	for _, c := range allowedColumns {
		allowed[c] = true
	}
	return &Builder{allowedColumns: allowed}
}

// Eq adds "column = ?" for any value, so callers skip it themselves when a
// filter is unset; panics if column is not whitelisted, since an unrecognized column name here is always a
// programmer error, never user input.
func (b *Builder) Eq(column string, value any) *Builder {
	b.requireAllowed(column)
	b.conditions = append(b.conditions, fmt.Sprintf("%s = ?", column))
	b.args = append(b.args, value)
	return b
}

// Like adds a case-insensitive substring match against column using SQLite's
// LIKE with ESCAPE, used for the q filter.
func (b *Builder) Like(column string, value string) *Builder {
	b.requireAllowed(column)
	b.conditions = append(b.conditions, fmt.Sprintf("%s LIKE ? ESCAPE '\\'", column))
	b.args = append(b.args, "%"+escapeLike(value)+"%")
	return b
}

// GTE adds "column >= ?".
func (b *Builder) GTE(column string, value any) *Builder {
	b.requireAllowed(column)
	b.conditions = append(b.conditions, fmt.Sprintf("%s >= ?", column))
	b.args = append(b.args, value)
	return b
}

// In adds "column IN (?,?,...)" for the given values. A nil or empty values
// slice is a no-op so callers don't need to special-case "no filter".
func (b *Builder) In(column string, values []string) *Builder {
	if len(values) == 0 {
		return b
	}
	b.requireAllowed(column)
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		b.args = append(b.args, v)
	}
	b.conditions = append(b.conditions, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ",")))
	return b
}

// Raw appends a pre-built condition (e.g. a BASENAME(path) LIKE expression)
// and its arguments verbatim, for conditions the typed helpers don't cover.
func (b *Builder) Raw(condition string, args ...any) *Builder {
	b.conditions = append(b.conditions, condition)
	b.args = append(b.args, args...)
	return b
}

// Build returns the accumulated conditions joined with AND (empty string if
// none were added) and the matching positional arguments.
func (b *Builder) Build() (string, []any) {
	if len(b.conditions) == 0 {
		return "", nil
	}
	return strings.Join(b.conditions, " AND "), b.args
}

// WhereClause is Build prefixed with "WHERE ", or an empty string if no
// conditions were added.
func (b *Builder) WhereClause() (string, []any) {
	cond, args := b.Build()
	if cond == "" {
		return "", args
	}
	return "WHERE " + cond, args
}

func (b *Builder) requireAllowed(column string) {
	if !b.allowedColumns[column] {
		panic(fmt.Sprintf("querybuilder: column %q is not whitelisted", column))
	}
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
