package middleware

import (
	"context"

	"github.com/custodia-labs/replica/internal/core/domain"
	"github.com/custodia-labs/replica/internal/core/links"
	"github.com/custodia-labs/replica/internal/core/ports/driven"
)

// Locale returns a middleware producing single-locale views.
// Each field takes the first value along the fallback chain of the
// requested locale, or of the default locale when none is requested.
// Requests for every locale ("*"), single-locale documents and
// non-content kinds pass through unchanged.
func Locale(cfg domain.LocaleConfig) Middleware {
	return func(next driven.Store) driven.Store {
		return WithHooks(next, Hooks{
			Name: "locale",
			Transform: func(_ context.Context, doc *domain.Document, opts domain.FindOptions) (*domain.Document, error) {
				if opts.Locale == domain.LocaleAll || !doc.Localized() {
					return doc, nil
				}
				if doc.Kind != domain.KindEntry && doc.Kind != domain.KindAsset {
					return doc, nil
				}
				return links.Localize(doc, links.LocaleChain(opts.Locale, cfg)), nil
			},
		})
	}
}

// Select returns a middleware dropping documents for which pred is false.
// Queries read through it are not cacheable.
func Select(name string, pred func(ctx context.Context, doc *domain.Document) bool) Middleware {
	return func(next driven.Store) driven.Store {
		return WithHooks(next, Hooks{Name: name, Select: pred})
	}
}
