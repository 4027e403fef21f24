package cli

import (
	"context"

	"github.com/custodia-labs/replica/internal/core/domain"
	"github.com/custodia-labs/replica/internal/core/ports/driven"
	"github.com/custodia-labs/replica/internal/core/ports/driving"
)

// Runner is a long-running background service.
type Runner interface {
	Start(ctx context.Context) error
	Stop() error
}

// App is the set of services commands run against.
type App struct {
	Documents driving.DocumentService
	Schemas   driving.SchemaService
	Sync      driving.SyncService
	Webhook   driving.WebhookService

	// Scheduler runs periodic syncs while serving. Optional.
	Scheduler Runner

	// Watcher pushes change notifications from the remote. Optional.
	Watcher driven.ChangeNotifier

	// Closer releases the store. Optional.
	Closer func() error
}

// Close releases resources held by the App.
func (a *App) Close() error {
	if a.Closer == nil {
		return nil
	}
	return a.Closer()
}

// Builder builds an App from the resolved configuration.
type Builder func(cfg domain.Config) (*App, error)
