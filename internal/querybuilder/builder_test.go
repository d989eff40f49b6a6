package querybuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilder_CombinesConditions(t *testing.T) {
	b := New("category", "ext", "path")
	b.Eq("category", "video")
	b.In("ext", []string{"mkv", "mp4"})
	b.Like("path", "office hours")

	clause, args := b.WhereClause()

	assert.Equal(t, `WHERE category = ? AND ext IN (?,?) AND path LIKE ? ESCAPE '\'`, clause)
	assert.Equal(t, []any{"video", "mkv", "mp4", "%office hours%"}, args)
}

func TestBuilder_EmptyWhenNoConditions(t *testing.T) {
	b := New("category")

	clause, args := b.WhereClause()

	assert.Empty(t, clause)
	assert.Empty(t, args)
}

func TestBuilder_InIsNoOpOnEmptySlice(t *testing.T) {
	b := New("ext")
	b.In("ext", nil)

	clause, args := b.WhereClause()

	assert.Empty(t, clause)
	assert.Empty(t, args)
}

func TestBuilder_RejectsUnwhitelistedColumn(t *testing.T) {
	b := New("category")

	assert.Panics(t, func() {
		b.Eq("drop_table_users", "x")
	})
}

func TestBuilder_EscapesLikeWildcards(t *testing.T) {
	b := New("path")
	b.Like("path", "100%_done")

	_, args := b.WhereClause()

	assert.Equal(t, []any{`%100\%\_done%`}, args)
}
