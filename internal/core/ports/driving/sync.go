package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/replica/internal/core/domain"
)

// SyncService runs sync cycles against the remote space.
type SyncService interface {
	// Sync runs one cycle. upToID may be empty; when set, Found in the
	// result reports whether that id was among the synced items.
	Sync(ctx context.Context, upToID string) (domain.SyncResult, error)

	// Reset drops the stored sync token so the next cycle is a full resync.
	Reset(ctx context.Context) error

	// Status returns the state of the engine.
	Status() SyncStatus
}

// WebhookService accepts change notifications pushed by the remote.
type WebhookService interface {
	// Receive indexes doc and runs a sync cycle up to it.
	// When the cycle does not see doc a delayed retry is scheduled.
	Receive(ctx context.Context, doc *domain.Document) (domain.SyncResult, error)
}

// SyncStatus represents the current state of the sync engine.
type SyncStatus struct {
	// Running indicates a cycle is in progress.
	Running bool

	// CycleID identifies the running or last cycle.
	CycleID string

	// LastSync is when the last cycle completed.
	LastSync time.Time

	// LastError is the error of the last cycle, if any.
	LastError string

	// ItemsSynced is the number of items applied by the last cycle.
	ItemsSynced int

	// PendingRetries is the number of scheduled webhook retries.
	PendingRetries int
}
