package main

import (
	"fmt"

	"github.com/custodia-labs/replica/internal/adapters/driven/cache"
	"github.com/custodia-labs/replica/internal/adapters/driven/cdn"
	"github.com/custodia-labs/replica/internal/adapters/driven/export"
	"github.com/custodia-labs/replica/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/replica/internal/adapters/driven/storage/remote"
	"github.com/custodia-labs/replica/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/replica/internal/adapters/driving/cli"
	"github.com/custodia-labs/replica/internal/core/domain"
	"github.com/custodia-labs/replica/internal/core/middleware"
	"github.com/custodia-labs/replica/internal/core/ports/driven"
	"github.com/custodia-labs/replica/internal/core/services"
)

// build wires the adapters and services selected by cfg.
func build(cfg domain.Config) (*cli.App, error) {
	client, watcher, err := newRemoteClient(cfg)
	if err != nil {
		return nil, err
	}

	backend, err := newBackend(cfg, client)
	if err != nil {
		return nil, err
	}
	store := stack(cfg, backend)

	indexer := services.NewContentTypeIndexer()
	if cfg.Backend == domain.BackendRemote {
		// the passthrough store is read-only, so there is nothing to sync into
		return &cli.App{
			Documents: services.NewDocumentService(store),
			Schemas:   services.NewSchemaService(store, indexer),
			Closer:    func() error { return closeBackend(backend) },
		}, nil
	}
	scheduler := services.NewScheduler(nil, cfg.Sync.Interval.Std())
	engine := services.NewSyncEngine(store, client, scheduler, cfg.Sync, indexer)
	scheduler.Bind(engine)

	a := &cli.App{
		Documents: services.NewDocumentService(store),
		Schemas:   services.NewSchemaService(store, indexer),
		Sync:      engine,
		Webhook:   engine,
		Scheduler: scheduler,
		Closer: func() error {
			if err := scheduler.Stop(); err != nil {
				return err
			}
			return closeBackend(backend)
		},
	}
	if watcher != nil {
		a.Watcher = watcher
	}
	return a, nil
}

func closeBackend(backend driven.Store) error {
	if c, ok := backend.(driven.Closer); ok {
		return c.Close()
	}
	return nil
}

// newRemoteClient returns the export client when an export directory is
// configured and the HTTP delivery client otherwise.
func newRemoteClient(cfg domain.Config) (driven.RemoteClient, driven.ChangeNotifier, error) {
	if cfg.Export.Dir != "" {
		c := export.New(cfg.Export.Dir)
		return c, c, nil
	}
	c, err := cdn.NewClient(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating delivery client: %w", err)
	}
	return c, nil, nil
}

// newBackend opens the store named by cfg.Backend.
func newBackend(cfg domain.Config, client driven.RemoteClient) (driven.Store, error) {
	switch cfg.Backend {
	case domain.BackendMemory:
		return memory.NewStore(cfg.Locale), nil
	case domain.BackendSQLite:
		s, err := sqlite.NewStore(cfg.DataDir, cfg.Locale)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return s, nil
	case domain.BackendRemote:
		return remote.NewStore(client, cfg.Locale), nil
	case domain.BackendLazy:
		return remote.NewLazyCacheStore(client, cache.NewTTLCache(), cfg.Locale, cfg.Cache.TTL.Std()), nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedBackend, cfg.Backend)
	}
}

// stack wraps backend with the read middlewares. The cache key middleware
// is outermost so services find it on the returned store.
func stack(cfg domain.Config, backend driven.Store) driven.Store {
	mws := []middleware.Middleware{
		middleware.CollectionCacheKey(),
		middleware.Locale(cfg.Locale),
	}
	// the lazy backend caches already
	if cfg.Cache.Enabled && cfg.Backend != domain.BackendLazy {
		mws = append(mws, middleware.Caching(cache.NewTTLCache(), middleware.CachingOptions{
			TTL:          cfg.Cache.TTL.Std(),
			WriteThrough: true,
		}))
	}
	return middleware.Stack(backend, mws...)
}
