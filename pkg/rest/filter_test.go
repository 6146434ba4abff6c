package rest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tablerest/tablerest/internal/testutil"
	"github.com/tablerest/tablerest/pkg/schema"
)

func postsTable(t *testing.T) schema.Table {
	t.Helper()
	tbl, ok := testutil.SampleRegistry().Lookup("posts")
	require.True(t, ok)
	return tbl
}

func decodeFilter(t *testing.T, raw string) map[string]any {
	t.Helper()
	var expr map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &expr))
	return expr
}

func TestCompileFilterDirectValueIsEquality(t *testing.T) {
	table := postsTable(t)
	argIndex := 1

	pred, ok := compileFilter(decodeFilter(t, `{"title":"hello"}`), table, &argIndex)
	require.True(t, ok)
	assert.Equal(t, `"title" = $1`, pred.sql)
	assert.Equal(t, []any{"hello"}, pred.args)
	assert.Equal(t, 2, argIndex)
}

func TestCompileFilterOperators(t *testing.T) {
	table := postsTable(t)

	tests := []struct {
		name    string
		expr    string
		wantSQL string
		wantArg any
	}{
		{"eq", `{"author_id":{"eq":7}}`, `"author_id" = $1`, float64(7)},
		{"ne", `{"author_id":{"ne":7}}`, `"author_id" <> $1`, float64(7)},
		{"gt", `{"author_id":{"gt":7}}`, `"author_id" > $1`, float64(7)},
		{"gte", `{"author_id":{"gte":7}}`, `"author_id" >= $1`, float64(7)},
		{"lt", `{"author_id":{"lt":7}}`, `"author_id" < $1`, float64(7)},
		{"lte", `{"author_id":{"lte":7}}`, `"author_id" <= $1`, float64(7)},
		{"like", `{"title":{"like":"%go%"}}`, `"title" LIKE $1`, "%go%"},
		{"ilike", `{"title":{"ilike":"%go%"}}`, `"title" ILIKE $1`, "%go%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			argIndex := 1
			pred, ok := compileFilter(decodeFilter(t, tt.expr), table, &argIndex)
			require.True(t, ok)
			assert.Equal(t, tt.wantSQL, pred.sql)
			assert.Equal(t, []any{tt.wantArg}, pred.args)
		})
	}
}

func TestCompileFilterLogicalComposition(t *testing.T) {
	table := postsTable(t)
	argIndex := 1

	expr := decodeFilter(t, `{"or":[{"title":{"like":"a%"}},{"title":{"like":"b%"}}]}`)
	pred, ok := compileFilter(expr, table, &argIndex)
	require.True(t, ok)
	assert.Equal(t, `("title" LIKE $1 OR "title" LIKE $2)`, pred.sql)
	assert.Equal(t, []any{"a%", "b%"}, pred.args)
}

func TestCompileFilterNot(t *testing.T) {
	table := postsTable(t)
	argIndex := 1

	pred, ok := compileFilter(decodeFilter(t, `{"not":{"published":true}}`), table, &argIndex)
	require.True(t, ok)
	assert.Equal(t, `NOT ("published" = $1)`, pred.sql)
	assert.Equal(t, []any{true}, pred.args)
}

func TestCompileFilterNotOfEmptyIsEmpty(t *testing.T) {
	table := postsTable(t)
	argIndex := 1

	_, ok := compileFilter(decodeFilter(t, `{"not":{"bogus":1}}`), table, &argIndex)
	assert.False(t, ok)
}

func TestCompileFilterEmptyYieldsNoPredicate(t *testing.T) {
	table := postsTable(t)

	for _, raw := range []string{`{}`, `{"and":[]}`, `{"AND":[]}`, `{"or":[]}`} {
		argIndex := 1
		_, ok := compileFilter(decodeFilter(t, raw), table, &argIndex)
		assert.False(t, ok, "expr %s should compile to no predicate", raw)
		assert.Equal(t, 1, argIndex)
	}
}

// Unknown columns and operators are skipped, never errored. A typo thus
// silently weakens the filter; the permissive policy is deliberate.
func TestCompileFilterSkipsUnknownColumnsAndOperators(t *testing.T) {
	table := postsTable(t)
	argIndex := 1

	expr := decodeFilter(t, `{"bogus":"x","title":{"regex":".*","eq":"keep"}}`)
	pred, ok := compileFilter(expr, table, &argIndex)
	require.True(t, ok)
	assert.Equal(t, `"title" = $1`, pred.sql)
	assert.Equal(t, []any{"keep"}, pred.args)
}

func TestCompileFilterMultipleOpsOneFieldAreANDed(t *testing.T) {
	table := postsTable(t)
	argIndex := 1

	expr := decodeFilter(t, `{"author_id":{"gte":1,"lte":9}}`)
	pred, ok := compileFilter(expr, table, &argIndex)
	require.True(t, ok)
	assert.Equal(t, `("author_id" >= $1 AND "author_id" <= $2)`, pred.sql)
	assert.Equal(t, []any{float64(1), float64(9)}, pred.args)
}

func TestCompileFilterTopLevelFieldsAreANDed(t *testing.T) {
	table := postsTable(t)
	argIndex := 1

	expr := decodeFilter(t, `{"published":true,"title":{"like":"a%"}}`)
	pred, ok := compileFilter(expr, table, &argIndex)
	require.True(t, ok)
	assert.Equal(t, `"published" = $1 AND "title" LIKE $2`, pred.sql)
	assert.Equal(t, []any{true, "a%"}, pred.args)
}

func TestCompileFilterNullHandling(t *testing.T) {
	table := postsTable(t)

	argIndex := 1
	pred, ok := compileFilter(decodeFilter(t, `{"body":{"eq":null}}`), table, &argIndex)
	require.True(t, ok)
	assert.Equal(t, `"body" IS NULL`, pred.sql)
	assert.Empty(t, pred.args)

	argIndex = 1
	pred, ok = compileFilter(decodeFilter(t, `{"body":{"ne":null}}`), table, &argIndex)
	require.True(t, ok)
	assert.Equal(t, `"body" IS NOT NULL`, pred.sql)

	// null with a comparison operator matches nothing useful and is skipped
	argIndex = 1
	_, ok = compileFilter(decodeFilter(t, `{"author_id":{"gt":null}}`), table, &argIndex)
	assert.False(t, ok)
}

// Compiling the JSON round-trip of an expression yields the same predicate
// as compiling the original.
func TestCompileFilterStableUnderRoundTrip(t *testing.T) {
	table := postsTable(t)
	raw := `{"and":[{"published":true},{"or":[{"title":{"ilike":"%intro%"}},{"author_id":{"gte":3}}]}],"body":{"ne":null}}`

	first := decodeFilter(t, raw)
	rounded, err := json.Marshal(first)
	require.NoError(t, err)
	second := decodeFilter(t, string(rounded))

	i1, i2 := 1, 1
	p1, ok1 := compileFilter(first, table, &i1)
	p2, ok2 := compileFilter(second, table, &i2)
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, p1.sql, p2.sql)
	assert.Equal(t, p1.args, p2.args)
}

func TestCompileFilterNestedLogical(t *testing.T) {
	table := postsTable(t)
	argIndex := 1

	expr := decodeFilter(t, `{"and":[{"published":true},{"not":{"title":{"like":"draft%"}}}]}`)
	pred, ok := compileFilter(expr, table, &argIndex)
	require.True(t, ok)
	assert.Equal(t, `("published" = $1 AND NOT ("title" LIKE $2))`, pred.sql)
	assert.Equal(t, []any{true, "draft%"}, pred.args)
}
