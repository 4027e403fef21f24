package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/replica/internal/core/domain"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		name     string
		actual   any
		op       domain.Operator
		expected any
		want     bool
	}{
		{"eq string", "a", domain.OpEq, "a", true},
		{"eq int vs float", 3, domain.OpEq, 3.0, true},
		{"eq list contains", []any{"a", "b"}, domain.OpEq, "b", true},
		{"eq list missing", []any{"a"}, domain.OpEq, "c", false},
		{"ne", "a", domain.OpNe, "b", true},
		{"in", "b", domain.OpIn, []any{"a", "b"}, true},
		{"nin", "c", domain.OpNin, []any{"a", "b"}, true},
		{"lt numbers", 1, domain.OpLt, 2, true},
		{"gte numbers", 2, domain.OpGte, 2, true},
		{"gt strings", "b", domain.OpGt, "a", true},
		{"lt mixed types", "1", domain.OpLt, 2, false},
		{"lte time", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), domain.OpLte, "2024-06-01T00:00:00Z", true},
		{"exists", "x", domain.OpExists, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.actual, tt.op, tt.expected))
		})
	}
}

func TestMatch_MissingValues(t *testing.T) {
	doc := entry("a", "post", map[string]any{"title": loc("x")})
	ctx := context.Background()

	cond := func(op domain.Operator, expected any) domain.Condition {
		return domain.Condition{Path: []string{"fields", "missing"}, Op: op, Expected: expected, Locales: []string{"en-US"}}
	}

	for _, tt := range []struct {
		op       domain.Operator
		expected any
		want     bool
	}{
		{domain.OpEq, "x", false},
		{domain.OpNe, "x", true},
		{domain.OpNin, []any{"x"}, true},
		{domain.OpExists, false, true},
		{domain.OpExists, true, false},
		{domain.OpLt, 1, false},
	} {
		ok, err := Match(ctx, doc, cond(tt.op, tt.expected), nil)
		require.NoError(t, err)
		assert.Equal(t, tt.want, ok, tt.op)
	}
}

func TestMatch_LocaleFallbackAcrossLinkHop(t *testing.T) {
	chain := []string{"es-MX", "es-US", "en-US"}
	cond := domain.Condition{
		Path:     []string{"fields", "author", "fields", "name"},
		Op:       domain.OpEq,
		Expected: "target",
		Locales:  chain,
	}

	// the link and the name may each live under any locale of the chain
	for _, linkLocale := range chain {
		for _, nameLocale := range chain {
			t.Run(linkLocale+"/"+nameLocale, func(t *testing.T) {
				author := entry("author", "person", map[string]any{"name": map[string]any{nameLocale: "target"}})
				post := entry("post", "post", map[string]any{"author": map[string]any{linkLocale: linkTo("author")}})
				lookup := func(_ context.Context, id string) (*domain.Document, error) {
					if id == "author" {
						return author, nil
					}
					return nil, nil
				}

				ok, err := Match(context.Background(), post, cond, lookup)
				require.NoError(t, err)
				assert.True(t, ok)
			})
		}
	}
}

func TestMatch_MostSpecificLocaleWins(t *testing.T) {
	doc := entry("a", "post", map[string]any{"slug": map[string]any{"es-MX": "mx", "en-US": "us"}})
	cond := domain.Condition{Path: []string{"fields", "slug"}, Op: domain.OpEq, Expected: "us", Locales: []string{"es-MX", "en-US"}}

	ok, err := Match(context.Background(), doc, cond, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatch_SingleLocaleDocument(t *testing.T) {
	doc := &domain.Document{ID: "a", Kind: domain.KindEntry, Locale: "de-DE", Fields: map[string]any{"slug": "x"}}
	cond := domain.Condition{Path: []string{"fields", "slug"}, Op: domain.OpEq, Expected: "x", Locales: []string{"en-US"}}

	ok, err := Match(context.Background(), doc, cond, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMatch_LinkSysID(t *testing.T) {
	doc := entry("a", "post", map[string]any{"author": loc(linkTo("author-1"))})
	cond := domain.Condition{Path: []string{"fields", "author", "sys", "id"}, Op: domain.OpEq, Expected: "author-1", Locales: []string{"en-US"}}

	ok, err := Match(context.Background(), doc, cond, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMatch_ResolvedDocument(t *testing.T) {
	author := &domain.Document{ID: "author-1", Kind: domain.KindEntry, Locale: "en-US", Fields: map[string]any{"name": "Ada"}}
	doc := &domain.Document{ID: "a", Kind: domain.KindEntry, Locale: "en-US", Fields: map[string]any{"author": author}}
	cond := domain.Condition{Path: []string{"fields", "author", "fields", "name"}, Op: domain.OpEq, Expected: "Ada", Locales: []string{"en-US"}}

	ok, err := Match(context.Background(), doc, cond, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMatch_SysID(t *testing.T) {
	doc := entry("abc", "post", nil)
	cond := domain.Condition{Path: []string{"sys", "id"}, Op: domain.OpEq, Expected: "abc"}

	ok, err := Match(context.Background(), doc, cond, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}
