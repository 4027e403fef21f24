package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/replica/internal/core/domain"
	"github.com/custodia-labs/replica/internal/core/links"
	"github.com/custodia-labs/replica/internal/core/ports/driven"
	"github.com/custodia-labs/replica/internal/core/query"
	"github.com/custodia-labs/replica/internal/logger"
)

// Ensure Client implements the interfaces.
var (
	_ driven.RemoteClient   = (*Client)(nil)
	_ driven.ChangeNotifier = (*Client)(nil)
)

// DefaultPageSize is the number of documents per page.
const DefaultPageSize = 100

// Client reads documents from a directory.
type Client struct {
	dir      string
	pageSize int
}

// New creates a client over dir.
func New(dir string) *Client {
	return &Client{dir: dir, pageSize: DefaultPageSize}
}

// file is one exported document with its modification time.
type file struct {
	name    string
	modTime time.Time
	doc     *domain.Document
}

// isDocumentFile reports whether name holds an exported document.
func isDocumentFile(name string) bool {
	return strings.HasSuffix(name, ".json") && !strings.HasPrefix(name, ".")
}

// load reads every document file, ordered by modification time then name.
func (c *Client) load() ([]file, error) {
	entries, err := os.ReadDir(c.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("export: %s: %w", c.dir, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("export: read dir: %w", err)
	}

	files := make([]file, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isDocumentFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// removed between listing and stat
			continue
		}
		data, err := os.ReadFile(filepath.Join(c.dir, entry.Name()))
		if err != nil {
			continue
		}
		var doc domain.Document
		if err := json.Unmarshal(data, &doc); err != nil {
			logger.Warn("export: skipping %s: %v", entry.Name(), err)
			continue
		}
		files = append(files, file{name: entry.Name(), modTime: info.ModTime(), doc: &doc})
	}

	sort.Slice(files, func(i, j int) bool {
		if !files[i].modTime.Equal(files[j].modTime) {
			return files[i].modTime.Before(files[j].modTime)
		}
		return files[i].name < files[j].name
	})
	return files, nil
}

// GetPage filters the exported documents like the delivery API would.
// Conditions are evaluated with their own locale chains.
func (c *Client) GetPage(ctx context.Context, req domain.PageRequest) (*domain.Page, error) {
	files, err := c.load()
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*domain.Document, len(files))
	for _, f := range files {
		if !f.doc.IsTombstone() {
			byID[f.doc.ID] = f.doc
		}
	}
	lookup := func(_ context.Context, id string) (*domain.Document, error) {
		return byID[id], nil
	}

	kind := req.Kind
	if kind == "" {
		kind = domain.KindEntry
	}
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var matched []*domain.Document
	for _, id := range ids {
		doc := byID[id]
		if doc.Kind != kind {
			continue
		}
		if req.ContentType != "" && doc.ContentType != req.ContentType {
			continue
		}
		ok, err := query.MatchAll(ctx, doc, req.Conditions, lookup)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, doc)
		}
	}

	skip := 0
	if req.Token != "" {
		skip, err = strconv.Atoi(req.Token)
		if err != nil || skip < 0 {
			return nil, fmt.Errorf("%w: page token %q", domain.ErrInvalidInput, req.Token)
		}
	}
	limit := req.Limit
	if limit <= 0 {
		limit = c.pageSize
	}
	start := min(skip, len(matched))
	end := min(start+limit, len(matched))

	page := &domain.Page{
		Items:    matched[start:end],
		Includes: includes(matched[start:end], byID, req.Include),
		Total:    len(matched),
	}
	if end < len(matched) {
		page.HasNext = true
		page.NextToken = strconv.Itoa(end)
	}
	return page, nil
}

// includes collects link targets of items up to depth levels.
func includes(items []*domain.Document, byID map[string]*domain.Document, depth int) []*domain.Document {
	seen := make(map[string]bool, len(items))
	for _, d := range items {
		seen[d.ID] = true
	}
	var out []*domain.Document
	frontier := items
	for level := 0; level < depth && len(frontier) > 0; level++ {
		var next []*domain.Document
		for _, d := range frontier {
			for _, id := range links.Collect(d.Fields) {
				target, ok := byID[id]
				if !ok || seen[id] {
					continue
				}
				seen[id] = true
				out = append(out, target)
				next = append(next, target)
			}
		}
		frontier = next
	}
	return out
}

// GetSyncPage returns files changed after the cursor in token.
func (c *Client) GetSyncPage(_ context.Context, token string) (*domain.SyncPage, error) {
	cursor, err := DecodeCursor(token)
	if err != nil {
		return nil, err
	}
	files, err := c.load()
	if err != nil {
		return nil, err
	}

	page := &domain.SyncPage{}
	next := *cursor
	for _, f := range files {
		if cursor.before(f.modTime, f.name) {
			continue
		}
		if len(page.Items) == c.pageSize {
			page.HasMore = true
			break
		}
		page.Items = append(page.Items, f.doc)
		next.Since, next.After = f.modTime, f.name
	}
	page.NextToken = next.Encode()
	return page, nil
}
