package driven

import (
	"context"

	"github.com/custodia-labs/replica/internal/core/domain"
)

// SyncSubscriber receives every item applied by a sync cycle, in delivery order.
// A failing subscriber never undoes the store write.
type SyncSubscriber interface {
	// Name identifies the subscriber in logs.
	Name() string

	// OnItem is called after doc was indexed.
	OnItem(ctx context.Context, doc *domain.Document) error
}
