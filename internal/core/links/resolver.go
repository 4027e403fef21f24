package links

import (
	"context"
	"fmt"

	"github.com/custodia-labs/replica/internal/core/domain"
)

// Finder looks up a document by id. Every driven.Store is a Finder.
type Finder interface {
	Find(ctx context.Context, id string, opts ...domain.FindOption) (*domain.Document, error)
}

// Resolver replaces link descriptors with the Documents they point to.
type Resolver struct {
	finder Finder
}

// NewResolver creates a resolver reading targets from finder.
func NewResolver(finder Finder) *Resolver {
	return &Resolver{finder: finder}
}

// Resolve returns a copy of doc with links resolved depth levels deep.
// Depth zero returns doc unchanged. Links whose target is missing keep
// their descriptor. Targets are read with opts.Locale and no includes.
func (r *Resolver) Resolve(ctx context.Context, doc *domain.Document, depth int, opts domain.FindOptions) (*domain.Document, error) {
	if doc == nil || depth <= 0 {
		return doc, nil
	}

	out := *doc
	out.Fields = make(map[string]any, len(doc.Fields))
	for name, v := range doc.Fields {
		resolved, err := r.resolveValue(ctx, v, depth, opts)
		if err != nil {
			return nil, fmt.Errorf("resolve %s.%s: %w", doc.ID, name, err)
		}
		out.Fields[name] = resolved
	}
	return &out, nil
}

func (r *Resolver) resolveValue(ctx context.Context, v any, depth int, opts domain.FindOptions) (any, error) {
	if link, ok := asDescriptor(v); ok {
		target, err := r.finder.Find(ctx, link.ID, domain.WithLocale(opts.Locale), domain.WithInclude(0))
		if err != nil {
			return nil, err
		}
		if target == nil {
			return v, nil
		}
		return r.Resolve(ctx, target, depth-1, opts)
	}

	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			resolved, err := r.resolveValue(ctx, inner, depth, opts)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			resolved, err := r.resolveValue(ctx, inner, depth, opts)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	default:
		return v, nil
	}
}

// asDescriptor only accepts unresolved wire descriptors.
func asDescriptor(v any) (domain.Link, bool) {
	if _, ok := v.(map[string]any); !ok {
		return domain.Link{}, false
	}
	return domain.AsLink(v)
}

// Collect returns the ids of every link descriptor found in fields.
func Collect(fields map[string]any) []string {
	var ids []string
	var walk func(v any)
	walk = func(v any) {
		if link, ok := asDescriptor(v); ok {
			ids = append(ids, link.ID)
			return
		}
		switch t := v.(type) {
		case []any:
			for _, inner := range t {
				walk(inner)
			}
		case map[string]any:
			for _, inner := range t {
				walk(inner)
			}
		}
	}
	for _, v := range fields {
		walk(v)
	}
	return ids
}
