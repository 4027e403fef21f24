package middleware

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/minio/highwayhash"

	"github.com/custodia-labs/replica/internal/core/domain"
	"github.com/custodia-labs/replica/internal/core/ports/driven"
	"github.com/custodia-labs/replica/internal/core/query"
)

var hashKey = []byte("replica-collection-cache-key-v01")

// CacheKeyer derives cache keys for collection queries.
type CacheKeyer interface {
	CacheKey(ctx context.Context, q *query.Query) (string, error)
}

// CacheKey derives a key for the result of q. It changes whenever the most
// recently updated matching document changes, or the query does.
// Returns domain.ErrNotCacheable when q went through a non-deterministic stage.
func CacheKey(ctx context.Context, q *query.Query) (string, error) {
	if !q.Cacheable() {
		return "", domain.ErrNotCacheable
	}

	var (
		latestID string
		latestAt time.Time
	)
	for doc, err := range q.Limit(0).Result(ctx) {
		if err != nil {
			return "", fmt.Errorf("cache key: %w", err)
		}
		if latestID == "" || doc.UpdatedAt.After(latestAt) {
			latestID, latestAt = doc.ID, doc.UpdatedAt
		}
	}

	h, err := highwayhash.New(hashKey)
	if err != nil {
		return "", fmt.Errorf("cache key: %w", err)
	}
	fmt.Fprintf(h, "%s\x00%s\x00%s", latestID, latestAt.UTC().Format(time.RFC3339Nano), q.Key())
	return hex.EncodeToString(h.Sum(nil)), nil
}

type cacheKeyStore struct {
	driven.Store
}

// CollectionCacheKey returns a middleware exposing CacheKey on the store.
func CollectionCacheKey() Middleware {
	return func(next driven.Store) driven.Store {
		return &cacheKeyStore{Store: next}
	}
}

// CacheKey implements CacheKeyer.
func (s *cacheKeyStore) CacheKey(ctx context.Context, q *query.Query) (string, error) {
	return CacheKey(ctx, q)
}
