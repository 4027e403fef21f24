package driven

import (
	"context"

	"github.com/custodia-labs/replica/internal/core/domain"
)

// RemoteClient reads from the remote space.
// Errors classify with errors.Is into domain.ErrNotFound, domain.ErrUnauthorized
// and domain.ErrRateLimited. Anything else is a generic, retryable failure.
type RemoteClient interface {
	// GetPage runs one delivery API query.
	GetPage(ctx context.Context, req domain.PageRequest) (*domain.Page, error)

	// GetSyncPage fetches one page of the sync stream.
	// An empty token requests the initial sync.
	GetSyncPage(ctx context.Context, token string) (*domain.SyncPage, error)
}

// ChangeNotifier is implemented by remote clients that can push change notifications.
type ChangeNotifier interface {
	// Watch calls fn with the id of every changed document until ctx is done.
	Watch(ctx context.Context, fn func(id string)) error
}
