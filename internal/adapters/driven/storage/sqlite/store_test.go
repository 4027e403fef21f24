package sqlite

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/replica/internal/adapters/driven/storage/storetest"
	"github.com/custodia-labs/replica/internal/core/domain"
	"github.com/custodia-labs/replica/internal/core/ports/driven"
	"github.com/custodia-labs/replica/internal/core/query"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "replica-test-*")
	require.NoError(t, err)

	store, err := NewStore(tempDir, storetest.Locales)
	require.NoError(t, err)
	require.NotNil(t, store)

	t.Cleanup(func() {
		assert.NoError(t, store.Close())
		assert.NoError(t, os.RemoveAll(tempDir))
	})
	return store
}

func TestStore_Behaviour(t *testing.T) {
	storetest.Run(t, func(t *testing.T) driven.Store {
		return setupTestStore(t)
	})
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewStore(dir, storetest.Locales)
	require.NoError(t, err)
	_, err = s.Index(ctx, storetest.Entry("A", "post", 1, map[string]any{"title": "x"}))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = NewStore(dir, storetest.Locales)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Find(ctx, "A")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "A", got.ID)

	var versions int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&versions))
	assert.Equal(t, 1, versions)
}

func TestStore_GeneratedColumns(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	_, err := s.Index(ctx, storetest.Entry("A", "post", 7, nil))
	require.NoError(t, err)

	var kind, contentType string
	var revision int
	err = s.db.QueryRow("SELECT kind, content_type, revision FROM documents WHERE id = 'A'").Scan(&kind, &contentType, &revision)
	require.NoError(t, err)
	assert.Equal(t, "Entry", kind)
	assert.Equal(t, "post", contentType)
	assert.Equal(t, 7, revision)
}

func TestStore_ConcurrentIndexKeepsHighestRevision(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	var wg sync.WaitGroup
	for rev := 1; rev <= 10; rev++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Index(ctx, storetest.Entry("A", "post", rev, nil))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Find(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 10, got.Revision)
}

func TestStore_SingleLocaleRow(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	_, err := s.Set(ctx, "view", &domain.Document{
		ID: "view", Kind: domain.KindEntry, ContentType: "post", Locale: "de-DE",
		Fields: map[string]any{"slug": "hallo"},
	})
	require.NoError(t, err)

	docs, err := s.FindAll("post").Eq("slug", "hallo").All(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "de-DE", docs[0].Locale)
}

func TestCompileSelect(t *testing.T) {
	exec := query.ExecutorFunc(nil)
	q := query.New(exec, "post", domain.FindOptions{}, domain.LocaleConfig{Default: "en-US"}).
		Apply(map[string]any{"author": map[string]any{"name": "Ada"}}).
		Limit(5)

	stmt, args, err := compileSelect(q)
	require.NoError(t, err)

	assert.Contains(t, stmt, "d.content_type = ?")
	assert.Contains(t, stmt, "FROM documents l1 WHERE l1.id = (")
	assert.True(t, strings.HasSuffix(stmt, "ORDER BY d.id LIMIT ?"))
	assert.Equal(t, strings.Count(stmt, "?"), len(args))

	assert.Equal(t, "post", args[0])
	assert.Equal(t, `$.fields."name"."en-US"`, args[1], "sub-select placeholders come first")
	assert.Equal(t, `$.fields."author"."en-US".sys."id"`, args[3])
	assert.Equal(t, "Ada", args[len(args)-2])
	assert.Equal(t, 5, args[len(args)-1])
}

func TestCompileSelect_LocaleVariants(t *testing.T) {
	cfg := domain.LocaleConfig{Default: "en-US", Fallbacks: map[string]string{"es-MX": "es-US"}}
	q := query.New(nil, "", domain.FindOptions{Locale: "es-MX"}, cfg).Eq("author.name", "x")

	stmt, _, err := compileSelect(q)
	require.NoError(t, err)
	assert.Contains(t, stmt, "d.kind IN ('Entry', 'Asset')")
	assert.Equal(t, 9, strings.Count(stmt, "FROM documents l"))
}
