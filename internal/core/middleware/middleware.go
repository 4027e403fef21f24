// Package middleware provides Store decorators composed at construction time.
//
// Every middleware wraps a driven.Store and is itself a driven.Store, so a
// chain built with Stack is used exactly like a bare backend:
//
//	store := middleware.Stack(backend,
//		middleware.Locale(cfg.Locale),
//		middleware.Caching(cache, middleware.CachingOptions{TTL: time.Minute}),
//	)
//
// The first middleware listed is the outermost.
package middleware

import "github.com/custodia-labs/replica/internal/core/ports/driven"

// Middleware wraps a Store.
type Middleware func(next driven.Store) driven.Store

// Stack wraps backend with mws. mws[0] ends up outermost.
func Stack(backend driven.Store, mws ...Middleware) driven.Store {
	store := backend
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		store = mws[i](store)
	}
	return store
}
