package remote

import (
	"context"
	"strconv"
	"sync"

	"github.com/custodia-labs/replica/internal/core/domain"
)

// fakeClient pages through fixed documents, applying sys.id filters only.
type fakeClient struct {
	mu       sync.Mutex
	entries  []*domain.Document
	assets   []*domain.Document
	includes []*domain.Document
	requests []domain.PageRequest
	err      error
}

func (c *fakeClient) GetPage(_ context.Context, req domain.PageRequest) (*domain.Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}

	source := c.entries
	if req.Kind == domain.KindAsset {
		source = c.assets
	}
	var matched []*domain.Document
	for _, d := range source {
		if req.ContentType != "" && d.ContentType != req.ContentType {
			continue
		}
		if id, ok := sysID(req.Conditions); ok && d.ID != id {
			continue
		}
		matched = append(matched, d)
	}

	skip, _ := strconv.Atoi(req.Token)
	limit := req.Limit
	if limit <= 0 {
		limit = len(matched)
	}
	end := min(skip+limit, len(matched))
	page := &domain.Page{Items: matched[skip:end], Includes: c.includes, Total: len(matched)}
	if end < len(matched) {
		page.HasNext = true
		page.NextToken = strconv.Itoa(end)
	}
	return page, nil
}

func (c *fakeClient) GetSyncPage(context.Context, string) (*domain.SyncPage, error) {
	return &domain.SyncPage{}, nil
}

func (c *fakeClient) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

func sysID(conds []domain.Condition) (string, bool) {
	for _, c := range conds {
		if len(c.Path) == 2 && c.Path[0] == "sys" && c.Path[1] == "id" {
			id, ok := c.Expected.(string)
			return id, ok
		}
	}
	return "", false
}
