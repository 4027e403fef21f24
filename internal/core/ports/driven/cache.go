package driven

import (
	"time"

	"github.com/custodia-labs/replica/internal/core/domain"
)

// DocumentCache holds documents by key with a time-to-live.
// Expiry is passive: an expired entry is reported as missing on read.
type DocumentCache interface {
	// Get returns the cached document. ok is false on a miss or expiry.
	// A cached nil (a known-absent id) returns nil with ok true.
	Get(key string) (doc *domain.Document, ok bool)

	// Put caches doc under key. A ttl of zero never expires.
	Put(key string, doc *domain.Document, ttl time.Duration)

	// Evict removes key.
	Evict(key string)

	// Len returns the number of live entries.
	Len() int
}
