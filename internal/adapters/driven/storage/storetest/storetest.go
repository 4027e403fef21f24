// Package storetest holds the behaviour tests every driven.Store backend
// that accepts writes must pass. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/replica/internal/core/domain"
	"github.com/custodia-labs/replica/internal/core/ports/driven"
)

// Locales is the locale configuration factories must give their store.
var Locales = domain.LocaleConfig{
	Default:   "en-US",
	Fallbacks: map[string]string{"es-MX": "es-US", "es-US": "en-US"},
}

// Factory returns a new, empty store configured with Locales.
type Factory func(t *testing.T) driven.Store

// Entry builds an all-locales entry with every field under en-US.
func Entry(id, contentType string, revision int, fields map[string]any) *domain.Document {
	localized := make(map[string]any, len(fields))
	for k, v := range fields {
		localized[k] = map[string]any{"en-US": v}
	}
	return &domain.Document{
		ID:          id,
		Kind:        domain.KindEntry,
		Revision:    revision,
		ContentType: contentType,
		CreatedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2024, 1, 1, 0, 0, revision, 0, time.UTC),
		Fields:      localized,
	}
}

// LinkTo returns a link descriptor to an entry.
func LinkTo(id string) map[string]any {
	return domain.NewLink(id, "Entry").Descriptor()
}

func ids(docs []*domain.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func title(t *testing.T, doc *domain.Document) any {
	t.Helper()
	require.NotNil(t, doc)
	v, _ := doc.Field("title", "en-US")
	return v
}

// Run executes every behaviour test against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("FindAbsent", func(t *testing.T) { testFindAbsent(t, newStore(t)) })
	t.Run("IndexThenFind", func(t *testing.T) { testIndexThenFind(t, newStore(t)) })
	t.Run("EqualRevisionOverwrites", func(t *testing.T) { testEqualRevisionOverwrites(t, newStore(t)) })
	t.Run("Monotonicity", func(t *testing.T) { testMonotonicity(t, newStore(t)) })
	t.Run("Idempotence", func(t *testing.T) { testIdempotence(t, newStore(t)) })
	t.Run("TombstoneMasking", func(t *testing.T) { testTombstoneMasking(t, newStore(t)) })
	t.Run("StaleAfterTombstone", func(t *testing.T) { testStaleAfterTombstone(t, newStore(t)) })
	t.Run("RejectsMalformed", func(t *testing.T) { testRejectsMalformed(t, newStore(t)) })
	t.Run("SetAndDelete", func(t *testing.T) { testSetAndDelete(t, newStore(t)) })
	t.Run("FindAllContentType", func(t *testing.T) { testFindAllContentType(t, newStore(t)) })
	t.Run("Operators", func(t *testing.T) { testOperators(t, newStore(t)) })
	t.Run("LocaleFallback", func(t *testing.T) { testLocaleFallback(t, newStore(t)) })
	t.Run("LinkHop", func(t *testing.T) { testLinkHop(t, newStore(t)) })
	t.Run("LocalizedLinkHop", func(t *testing.T) { testLocalizedLinkHop(t, newStore(t)) })
	t.Run("Include", func(t *testing.T) { testInclude(t, newStore(t)) })
	t.Run("FindBy", func(t *testing.T) { testFindBy(t, newStore(t)) })
}

func testFindAbsent(t *testing.T, s driven.Store) {
	doc, err := s.Find(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func testIndexThenFind(t *testing.T, s driven.Store) {
	ctx := context.Background()
	in := Entry("A", "post", 1, map[string]any{"title": "x"})

	effective, err := s.Index(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "x", title(t, effective))

	got, err := s.Find(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "x", title(t, got))
	assert.Equal(t, "post", got.ContentType)
	assert.Equal(t, 1, got.Revision)
	assert.True(t, got.UpdatedAt.Equal(in.UpdatedAt))
}

// Example A.
func testEqualRevisionOverwrites(t *testing.T, s driven.Store) {
	ctx := context.Background()
	_, err := s.Index(ctx, Entry("A", "post", 1, map[string]any{"title": "x"}))
	require.NoError(t, err)
	_, err = s.Index(ctx, Entry("A", "post", 1, map[string]any{"title": "y"}))
	require.NoError(t, err)

	got, err := s.Find(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "y", title(t, got))
}

// Example B.
func testMonotonicity(t *testing.T, s driven.Store) {
	ctx := context.Background()
	_, err := s.Index(ctx, Entry("A", "post", 3, map[string]any{"title": "new"}))
	require.NoError(t, err)

	effective, err := s.Index(ctx, Entry("A", "post", 2, map[string]any{"title": "old"}))
	require.NoError(t, err)
	require.NotNil(t, effective, "stale index returns the existing value")
	assert.Equal(t, 3, effective.Revision)

	got, err := s.Find(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Revision)
	assert.Equal(t, "new", title(t, got))
}

func testIdempotence(t *testing.T, s driven.Store) {
	ctx := context.Background()
	doc := Entry("A", "post", 2, map[string]any{"title": "x"})

	first, err := s.Index(ctx, doc)
	require.NoError(t, err)
	second, err := s.Index(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, first.Fields, second.Fields)

	all, err := s.FindAll("post").All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func testTombstoneMasking(t *testing.T, s driven.Store) {
	ctx := context.Background()
	_, err := s.Index(ctx, Entry("A", "post", 1, map[string]any{"slug": "a"}))
	require.NoError(t, err)

	effective, err := s.Index(ctx, &domain.Document{ID: "A", Kind: domain.KindDeletedEntry, Revision: 2})
	require.NoError(t, err)
	assert.Nil(t, effective)

	got, err := s.Find(ctx, "A")
	require.NoError(t, err)
	assert.Nil(t, got)

	all, err := s.FindAll("").All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	by, err := s.FindBy(ctx, "post", map[string]any{"slug": "a"})
	require.NoError(t, err)
	assert.Nil(t, by)
}

func testStaleAfterTombstone(t *testing.T, s driven.Store) {
	ctx := context.Background()
	_, err := s.Index(ctx, &domain.Document{ID: "A", Kind: domain.KindDeletedEntry, Revision: 5})
	require.NoError(t, err)

	effective, err := s.Index(ctx, Entry("A", "post", 4, map[string]any{"title": "late"}))
	require.NoError(t, err)
	assert.Nil(t, effective)

	got, err := s.Find(ctx, "A")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testRejectsMalformed(t *testing.T, s driven.Store) {
	ctx := context.Background()
	_, err := s.Index(ctx, &domain.Document{Kind: domain.KindEntry})
	assert.True(t, errors.Is(err, domain.ErrInvalidDocument))

	_, err = s.Index(ctx, &domain.Document{ID: "A", Kind: "Widget"})
	assert.True(t, errors.Is(err, domain.ErrInvalidDocument))

	got, err := s.Find(ctx, "A")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testSetAndDelete(t *testing.T, s driven.Store) {
	ctx := context.Background()
	token := &domain.Document{ID: domain.DefaultTokenKey, Kind: domain.KindSyncToken, Fields: map[string]any{"token": "t1"}}

	prev, err := s.Set(ctx, token.ID, token)
	require.NoError(t, err)
	assert.Nil(t, prev)

	next := &domain.Document{ID: domain.DefaultTokenKey, Kind: domain.KindSyncToken, Fields: map[string]any{"token": "t2"}}
	prev, err = s.Set(ctx, next.ID, next)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, "t1", prev.Fields["token"])

	got, err := s.Find(ctx, domain.DefaultTokenKey)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "t2", got.Fields["token"])

	all, err := s.FindAll("").All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "the token record is not content")

	prev, err = s.Delete(ctx, domain.DefaultTokenKey)
	require.NoError(t, err)
	require.NotNil(t, prev)

	got, err = s.Find(ctx, domain.DefaultTokenKey)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func seed(t *testing.T, s driven.Store, docs ...*domain.Document) {
	t.Helper()
	for _, d := range docs {
		_, err := s.Index(context.Background(), d)
		require.NoError(t, err)
	}
}

func testFindAllContentType(t *testing.T, s driven.Store) {
	ctx := context.Background()
	asset := &domain.Document{ID: "img", Kind: domain.KindAsset, Revision: 1, Fields: map[string]any{"title": map[string]any{"en-US": "Logo"}}}
	seed(t, s,
		Entry("p1", "post", 1, map[string]any{"title": "one"}),
		Entry("p2", "post", 1, map[string]any{"title": "two"}),
		Entry("a1", "author", 1, map[string]any{"name": "Ada"}),
		asset,
	)

	posts, err := s.FindAll("post").All(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"p1", "p2"}, ids(posts))

	all, err := s.FindAll("").All(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"p1", "p2", "a1", "img"}, ids(all))

	limited, err := s.FindAll("post").Limit(1).All(ctx)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	n, err := s.FindAll("author").Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func testOperators(t *testing.T, s driven.Store) {
	ctx := context.Background()
	seed(t, s,
		Entry("p1", "post", 1, map[string]any{"slug": "home", "rank": 1, "tags": []any{"a", "b"}}),
		Entry("p2", "post", 1, map[string]any{"slug": "about", "rank": 2, "tags": []any{"c"}}),
		Entry("p3", "post", 1, map[string]any{"slug": "blog", "rank": 3}),
	)
	q := s.FindAll("post")

	tests := []struct {
		name string
		got  func() ([]*domain.Document, error)
		want []string
	}{
		{"eq", func() ([]*domain.Document, error) { return q.Eq("slug", "home").All(ctx) }, []string{"p1"}},
		{"eq on list", func() ([]*domain.Document, error) { return q.Eq("tags", "b").All(ctx) }, []string{"p1"}},
		{"ne includes missing", func() ([]*domain.Document, error) { return q.Ne("tags", "c").All(ctx) }, []string{"p1", "p3"}},
		{"in", func() ([]*domain.Document, error) { return q.In("slug", "home", "blog").All(ctx) }, []string{"p1", "p3"}},
		{"nin", func() ([]*domain.Document, error) { return q.Nin("slug", "home", "blog").All(ctx) }, []string{"p2"}},
		{"exists", func() ([]*domain.Document, error) { return q.Exists("tags", true).All(ctx) }, []string{"p1", "p2"}},
		{"not exists", func() ([]*domain.Document, error) { return q.Exists("tags", false).All(ctx) }, []string{"p3"}},
		{"lt", func() ([]*domain.Document, error) { return q.Lt("rank", 2).All(ctx) }, []string{"p1"}},
		{"lte", func() ([]*domain.Document, error) { return q.Lte("rank", 2).All(ctx) }, []string{"p1", "p2"}},
		{"gt", func() ([]*domain.Document, error) { return q.Gt("rank", 2).All(ctx) }, []string{"p3"}},
		{"gte", func() ([]*domain.Document, error) { return q.Gte("rank", 2).All(ctx) }, []string{"p2", "p3"}},
		{"sys.id", func() ([]*domain.Document, error) { return q.Eq("sys.id", "p2").All(ctx) }, []string{"p2"}},
		{"chained", func() ([]*domain.Document, error) { return q.Gt("rank", 1).Ne("slug", "blog").All(ctx) }, []string{"p2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := tt.got()
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, ids(docs))
		})
	}
}

func testLocaleFallback(t *testing.T, s driven.Store) {
	ctx := context.Background()
	seed(t, s,
		&domain.Document{ID: "mx", Kind: domain.KindEntry, Revision: 1, ContentType: "post",
			Fields: map[string]any{"slug": map[string]any{"es-MX": "hola", "en-US": "hello"}}},
		&domain.Document{ID: "us", Kind: domain.KindEntry, Revision: 1, ContentType: "post",
			Fields: map[string]any{"slug": map[string]any{"es-US": "hola", "en-US": "hi"}}},
		&domain.Document{ID: "en", Kind: domain.KindEntry, Revision: 1, ContentType: "post",
			Fields: map[string]any{"slug": map[string]any{"en-US": "hola"}}},
	)

	docs, err := s.FindAll("post", domain.WithLocale("es-MX")).Eq("slug", "hola").All(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"mx", "us", "en"}, ids(docs))

	docs, err = s.FindAll("post", domain.WithLocale("es-MX")).Eq("slug", "hello").All(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs, "a more specific locale shadows the default")

	docs, err = s.FindAll("post").Eq("slug", "hello").All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"mx"}, ids(docs))
}

func testLinkHop(t *testing.T, s driven.Store) {
	ctx := context.Background()
	seed(t, s,
		Entry("ada", "author", 1, map[string]any{"name": "Ada"}),
		Entry("grace", "author", 1, map[string]any{"name": "Grace"}),
		Entry("p1", "post", 1, map[string]any{"author": LinkTo("ada")}),
		Entry("p2", "post", 1, map[string]any{"author": LinkTo("grace")}),
		Entry("p3", "post", 1, map[string]any{"author": LinkTo("nobody")}),
	)

	docs, err := s.FindAll("post").Apply(map[string]any{"author": map[string]any{"name": "Grace"}}).All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"p2"}, ids(docs))

	docs, err = s.FindAll("post").Eq("author.sys.id", "ada").All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, ids(docs))

	docs, err = s.FindAll("post").Exists("author.name", false).All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"p3"}, ids(docs))
}

// testLocalizedLinkHop resolves each step of a link path in its own
// fallback locale: the link only exists in en-US, the name only in es-US.
func testLocalizedLinkHop(t *testing.T, s driven.Store) {
	ctx := context.Background()
	seed(t, s,
		&domain.Document{ID: "ana", Kind: domain.KindEntry, Revision: 1, ContentType: "author",
			Fields: map[string]any{"name": map[string]any{"es-US": "Ana"}}},
		&domain.Document{ID: "p1", Kind: domain.KindEntry, Revision: 1, ContentType: "post",
			Fields: map[string]any{"author": map[string]any{"en-US": LinkTo("ana")}}},
	)

	docs, err := s.FindAll("post", domain.WithLocale("es-MX")).
		Apply(map[string]any{"author": map[string]any{"name": "Ana"}}).All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, ids(docs))

	docs, err = s.FindAll("post", domain.WithLocale("es-MX")).
		Apply(map[string]any{"author": map[string]any{"name": "Bob"}}).All(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func testInclude(t *testing.T, s driven.Store) {
	ctx := context.Background()
	seed(t, s,
		Entry("ada", "author", 1, map[string]any{"name": "Ada"}),
		Entry("p1", "post", 1, map[string]any{"author": LinkTo("ada"), "editor": LinkTo("missing")}),
	)

	raw, err := s.Find(ctx, "p1")
	require.NoError(t, err)
	_, isLink := domain.AsLink(raw.Fields["author"].(map[string]any)["en-US"])
	assert.True(t, isLink)

	resolved, err := s.Find(ctx, "p1", domain.WithInclude(1))
	require.NoError(t, err)
	author, ok := resolved.Fields["author"].(map[string]any)["en-US"].(*domain.Document)
	require.True(t, ok)
	assert.Equal(t, "ada", author.ID)

	_, isLink = domain.AsLink(resolved.Fields["editor"].(map[string]any)["en-US"])
	assert.True(t, isLink, "missing targets keep their descriptor")

	docs, err := s.FindAll("post", domain.WithInclude(1)).All(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.IsType(t, &domain.Document{}, docs[0].Fields["author"].(map[string]any)["en-US"])
}

func testFindBy(t *testing.T, s driven.Store) {
	ctx := context.Background()
	seed(t, s,
		Entry("p1", "post", 1, map[string]any{"slug": "home"}),
		Entry("a1", "author", 1, map[string]any{"slug": "home"}),
	)

	doc, err := s.FindBy(ctx, "post", map[string]any{"slug": "home"})
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "p1", doc.ID)

	doc, err = s.FindBy(ctx, "post", map[string]any{"slug": "nope"})
	require.NoError(t, err)
	assert.Nil(t, doc)

	_, err = s.FindBy(ctx, "post", map[string]any{"slug": map[string]any{"ne": 1, "x": 2}})
	assert.True(t, errors.Is(err, domain.ErrInvalidFilter))
}
