package export

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/replica/internal/core/domain"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// writeDoc writes doc to dir with a fixed modification time offset from base.
func writeDoc(t *testing.T, dir string, doc *domain.Document, offset time.Duration) {
	t.Helper()
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	path := filepath.Join(dir, doc.ID+".json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	mt := base.Add(offset)
	require.NoError(t, os.Chtimes(path, mt, mt))
}

func entry(id, contentType string, rev int, fields map[string]any) *domain.Document {
	return &domain.Document{ID: id, Kind: domain.KindEntry, Revision: rev, ContentType: contentType, Fields: fields}
}

func TestClient_GetSyncPage(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, entry("b", "post", 1, nil), time.Second)
	writeDoc(t, dir, entry("a", "post", 1, nil), time.Second)
	writeDoc(t, dir, entry("c", "post", 1, nil), 2*time.Second)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.json"), []byte(`{}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(`x`), 0o644))

	c := New(dir)
	c.pageSize = 2
	ctx := context.Background()

	first, err := c.GetSyncPage(ctx, "")
	require.NoError(t, err)
	assert.True(t, first.HasMore)
	require.Len(t, first.Items, 2)
	assert.Equal(t, "a", first.Items[0].ID, "ties break by name")
	assert.Equal(t, "b", first.Items[1].ID)

	second, err := c.GetSyncPage(ctx, first.NextToken)
	require.NoError(t, err)
	assert.False(t, second.HasMore)
	require.Len(t, second.Items, 1)
	assert.Equal(t, "c", second.Items[0].ID)

	idle, err := c.GetSyncPage(ctx, second.NextToken)
	require.NoError(t, err)
	assert.Empty(t, idle.Items)
	assert.Equal(t, second.NextToken, idle.NextToken)

	writeDoc(t, dir, &domain.Document{ID: "a", Kind: domain.KindDeletedEntry, Revision: 2}, 3*time.Second)
	changed, err := c.GetSyncPage(ctx, second.NextToken)
	require.NoError(t, err)
	require.Len(t, changed.Items, 1)
	assert.True(t, changed.Items[0].IsTombstone())
}

func TestClient_GetSyncPageInvalidCursor(t *testing.T) {
	_, err := New(t.TempDir()).GetSyncPage(context.Background(), "%%%")
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestClient_MissingDir(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope")).GetSyncPage(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClient_GetPage(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, entry("author", "person", 1, map[string]any{"name": map[string]any{"en-US": "Ada"}}), 0)
	writeDoc(t, dir, entry("p1", "post", 1, map[string]any{
		"slug":   map[string]any{"en-US": "home"},
		"author": map[string]any{"en-US": domain.NewLink("author", "Entry").Descriptor()},
	}), 0)
	writeDoc(t, dir, entry("p2", "post", 1, map[string]any{"slug": map[string]any{"en-US": "about"}}), 0)
	writeDoc(t, dir, &domain.Document{ID: "p3", Kind: domain.KindDeletedEntry, Revision: 2}, 0)
	writeDoc(t, dir, &domain.Document{ID: "img", Kind: domain.KindAsset, Revision: 1}, 0)

	c := New(dir)
	ctx := context.Background()

	t.Run("content type and paging", func(t *testing.T) {
		page, err := c.GetPage(ctx, domain.PageRequest{Kind: domain.KindEntry, ContentType: "post", Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, 2, page.Total)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "p1", page.Items[0].ID)
		assert.True(t, page.HasNext)

		next, err := c.GetPage(ctx, domain.PageRequest{Kind: domain.KindEntry, ContentType: "post", Limit: 1, Token: page.NextToken})
		require.NoError(t, err)
		require.Len(t, next.Items, 1)
		assert.Equal(t, "p2", next.Items[0].ID)
		assert.False(t, next.HasNext)
	})

	t.Run("conditions and link hops", func(t *testing.T) {
		page, err := c.GetPage(ctx, domain.PageRequest{
			Kind: domain.KindEntry,
			Conditions: []domain.Condition{{
				Path:     []string{"fields", "author", "fields", "name"},
				Op:       domain.OpEq,
				Expected: "Ada",
				Locales:  []string{"en-US"},
			}},
		})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "p1", page.Items[0].ID)
	})

	t.Run("includes", func(t *testing.T) {
		page, err := c.GetPage(ctx, domain.PageRequest{Kind: domain.KindEntry, ContentType: "post", Include: 1})
		require.NoError(t, err)
		require.Len(t, page.Includes, 1)
		assert.Equal(t, "author", page.Includes[0].ID)
	})

	t.Run("assets", func(t *testing.T) {
		page, err := c.GetPage(ctx, domain.PageRequest{Kind: domain.KindAsset})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "img", page.Items[0].ID)
	})

	t.Run("bad token", func(t *testing.T) {
		_, err := c.GetPage(ctx, domain.PageRequest{Token: "x"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestCursor_RoundTrip(t *testing.T) {
	c := &Cursor{Version: CursorVersion, Since: base, After: "a.json"}
	decoded, err := DecodeCursor(c.Encode())
	require.NoError(t, err)
	assert.True(t, decoded.Since.Equal(base))
	assert.Equal(t, "a.json", decoded.After)

	var nilCursor *Cursor
	assert.Equal(t, "", nilCursor.Encode())

	_, err = DecodeCursor("eyJ2Ijo5fQ==") // {"v":9}
	assert.ErrorIs(t, err, ErrInvalidCursor)
}
