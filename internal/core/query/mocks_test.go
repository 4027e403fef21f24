package query

import (
	"context"
	"iter"

	"github.com/custodia-labs/replica/internal/core/domain"
)

// sliceExecutor filters a fixed slice with MatchAll.
type sliceExecutor struct {
	docs     []*domain.Document
	executed int
}

func (e *sliceExecutor) Execute(ctx context.Context, q *Query) iter.Seq2[*domain.Document, error] {
	return func(yield func(*domain.Document, error) bool) {
		e.executed++
		byID := make(map[string]*domain.Document, len(e.docs))
		for _, d := range e.docs {
			byID[d.ID] = d
		}
		lookup := func(_ context.Context, id string) (*domain.Document, error) {
			return byID[id], nil
		}
		for _, d := range e.docs {
			if q.ContentType() != "" && d.ContentType != q.ContentType() {
				continue
			}
			ok, err := MatchAll(ctx, d, q.Conditions(), lookup)
			if err != nil {
				yield(nil, err)
				return
			}
			if ok && !yield(d, nil) {
				return
			}
		}
	}
}

func entry(id, contentType string, fields map[string]any) *domain.Document {
	return &domain.Document{ID: id, Kind: domain.KindEntry, Revision: 1, ContentType: contentType, Fields: fields}
}

func loc(v any) map[string]any {
	return map[string]any{"en-US": v}
}

func linkTo(id string) map[string]any {
	return domain.NewLink(id, "Entry").Descriptor()
}
