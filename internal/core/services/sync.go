package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/replica/internal/core/domain"
	"github.com/custodia-labs/replica/internal/core/ports/driven"
	"github.com/custodia-labs/replica/internal/core/ports/driving"
	"github.com/custodia-labs/replica/internal/logger"
)

// Ensure SyncEngine implements the interfaces.
var (
	_ driving.SyncService    = (*SyncEngine)(nil)
	_ driving.WebhookService = (*SyncEngine)(nil)
)

// tokenField holds the cursor inside the token record.
const tokenField = "token"

// SyncEngine replicates the remote sync stream into a Store.
//
// Cycles are serialized; reads against the store are never blocked by a
// cycle. The sync token is written only after every item of a cycle was
// indexed, so an interrupted cycle is replayed from the previous token.
type SyncEngine struct {
	store       driven.Store
	client      driven.RemoteClient
	scheduler   driven.JobScheduler
	subscribers []driven.SyncSubscriber
	cfg         domain.SyncConfig
	tokenKey    string

	// cycleMu serializes cycles
	cycleMu sync.Mutex

	mu      sync.RWMutex
	status  driving.SyncStatus
	pending int
	// awaited holds pushed ids with a retry in flight; any cycle that
	// indexes one of them removes it
	awaited map[string]struct{}
}

// NewSyncEngine creates a sync engine. scheduler may be nil, which
// disables webhook retries.
func NewSyncEngine(
	store driven.Store,
	client driven.RemoteClient,
	scheduler driven.JobScheduler,
	cfg domain.SyncConfig,
	subscribers ...driven.SyncSubscriber,
) *SyncEngine {
	tokenKey := cfg.TokenKey
	if tokenKey == "" {
		tokenKey = domain.DefaultTokenKey
	}
	return &SyncEngine{
		store:       store,
		client:      client,
		scheduler:   scheduler,
		subscribers: subscribers,
		cfg:         cfg,
		tokenKey:    tokenKey,
		awaited:     make(map[string]struct{}),
	}
}

// Sync runs one cycle: every page of the sync stream is indexed in
// delivery order, then the next token is persisted.
func (e *SyncEngine) Sync(ctx context.Context, upToID string) (domain.SyncResult, error) {
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()

	result := domain.SyncResult{CycleID: uuid.NewString(), Found: upToID == ""}
	e.setRunning(result.CycleID)
	logger.Info("sync %s: starting", result.CycleID)

	err := e.cycle(ctx, upToID, &result)
	e.finish(result, err)
	if err != nil {
		logger.Error("sync %s: %v", result.CycleID, err)
		return result, err
	}

	logger.Info("sync %s: %d items synced", result.CycleID, result.ItemsSynced)
	return result, nil
}

func (e *SyncEngine) cycle(ctx context.Context, upToID string, result *domain.SyncResult) error {
	token, err := e.loadToken(ctx)
	if err != nil {
		return err
	}

	for {
		var page *domain.SyncPage
		err := retry(ctx, "fetch sync page", e.cfg.MaxRetries, e.cfg.RetryDelay.Std(), func() error {
			var err error
			page, err = e.client.GetSyncPage(ctx, token)
			return err
		})
		if err != nil {
			return fmt.Errorf("fetch sync page: %w", err)
		}
		logger.Debug("sync %s: page with %d items (more: %v)", result.CycleID, len(page.Items), page.HasMore)

		for _, item := range page.Items {
			if err := ctx.Err(); err != nil {
				return err
			}
			applied, err := e.apply(ctx, item)
			if err != nil {
				return err
			}
			if !applied {
				continue
			}
			result.ItemsSynced++
			if item.ID == upToID {
				result.Found = true
			}
			e.arrived(item.ID)
		}

		token = page.NextToken
		if !page.HasMore {
			break
		}
	}

	if err := e.saveToken(ctx, token); err != nil {
		return err
	}
	result.Token = token
	return nil
}

// apply indexes one item and notifies subscribers. Malformed items are
// skipped; store failures abort the cycle.
func (e *SyncEngine) apply(ctx context.Context, item *domain.Document) (bool, error) {
	if _, err := e.store.Index(ctx, item); err != nil {
		if errors.Is(err, domain.ErrInvalidDocument) {
			logger.Warn("sync: skipping item: %v", err)
			return false, nil
		}
		return false, fmt.Errorf("index %s: %w", item.ID, err)
	}
	e.notify(ctx, item)
	return true, nil
}

// notify fans doc out to every subscriber. Failures are logged, never returned.
func (e *SyncEngine) notify(ctx context.Context, doc *domain.Document) {
	var errs []error
	for _, sub := range e.subscribers {
		if err := deliver(ctx, sub, doc); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		logger.Error("sync: subscribers failed for %s: %v", doc.ID, err)
	}
}

func deliver(ctx context.Context, sub driven.SyncSubscriber, doc *domain.Document) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber %s panicked: %v", sub.Name(), r)
		}
	}()
	if err := sub.OnItem(ctx, doc); err != nil {
		return fmt.Errorf("subscriber %s: %w", sub.Name(), err)
	}
	return nil
}

func (e *SyncEngine) loadToken(ctx context.Context) (string, error) {
	doc, err := e.store.Find(ctx, e.tokenKey, domain.WithLocale(domain.LocaleAll))
	if err != nil {
		return "", fmt.Errorf("load sync token: %w", err)
	}
	if doc == nil {
		return "", nil
	}
	token, _ := doc.Fields[tokenField].(string)
	return token, nil
}

func (e *SyncEngine) saveToken(ctx context.Context, token string) error {
	doc := &domain.Document{
		ID:        e.tokenKey,
		Kind:      domain.KindSyncToken,
		UpdatedAt: time.Now().UTC(),
		Fields:    map[string]any{tokenField: token},
	}
	if _, err := e.store.Set(ctx, e.tokenKey, doc); err != nil {
		return fmt.Errorf("save sync token: %w", err)
	}
	return nil
}

// Reset drops the stored token so the next cycle starts from scratch.
func (e *SyncEngine) Reset(ctx context.Context) error {
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()

	if _, err := e.store.Delete(ctx, e.tokenKey); err != nil {
		return fmt.Errorf("reset sync token: %w", err)
	}
	logger.Info("sync: token reset, next cycle is a full sync")
	return nil
}

// Receive applies a pushed document, then syncs until the stream has
// caught up with it. When the cycle does not see it a retry is scheduled.
func (e *SyncEngine) Receive(ctx context.Context, doc *domain.Document) (domain.SyncResult, error) {
	if err := doc.Validate(); err != nil {
		return domain.SyncResult{}, err
	}
	if _, err := e.apply(ctx, doc); err != nil {
		return domain.SyncResult{}, err
	}

	result, err := e.Sync(ctx, doc.ID)
	if err != nil || result.Found {
		return result, err
	}
	result.RetryScheduled = e.scheduleRetry(doc.ID, 0)
	return result, nil
}

// scheduleRetry schedules a sync up to id after WebhookRetryDelay << attempt.
// The job does nothing once another cycle has indexed id.
func (e *SyncEngine) scheduleRetry(id string, attempt int) bool {
	if e.scheduler == nil || attempt >= e.cfg.MaxWebhookRetries {
		logger.Warn("sync: %s not seen, giving up after %d retries", id, attempt)
		e.arrived(id)
		return false
	}

	delay := e.cfg.WebhookRetryDelay.Std() << attempt
	e.mu.Lock()
	e.pending++
	e.awaited[id] = struct{}{}
	e.mu.Unlock()

	logger.Info("sync: %s not seen yet, retrying in %s", id, delay)
	accepted := e.scheduler.ScheduleOnce(fmt.Sprintf("webhook:%s:%d", id, attempt), delay, func(ctx context.Context) error {
		e.mu.Lock()
		e.pending--
		_, waiting := e.awaited[id]
		e.mu.Unlock()

		if err := ctx.Err(); err != nil {
			e.arrived(id)
			return err
		}
		if !waiting {
			logger.Debug("sync: %s already synced, dropping retry", id)
			return nil
		}

		result, err := e.Sync(ctx, id)
		if err == nil && result.Found {
			return nil
		}
		e.scheduleRetry(id, attempt+1)
		return err
	})
	if !accepted {
		e.mu.Lock()
		e.pending--
		delete(e.awaited, id)
		e.mu.Unlock()
	}
	return accepted
}

// arrived stops waiting for id.
func (e *SyncEngine) arrived(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.awaited, id)
}

// Status returns the state of the engine.
func (e *SyncEngine) Status() driving.SyncStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	status := e.status
	status.PendingRetries = e.pending
	return status
}

func (e *SyncEngine) setRunning(cycleID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status.Running = true
	e.status.CycleID = cycleID
}

func (e *SyncEngine) finish(result domain.SyncResult, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status.Running = false
	e.status.LastSync = time.Now()
	e.status.ItemsSynced = result.ItemsSynced
	e.status.LastError = ""
	if err != nil {
		e.status.LastError = err.Error()
	}
}
