package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/replica/internal/core/domain"
	"github.com/custodia-labs/replica/internal/core/ports/driving"
)

// --- Mock implementations for service testing ---

// fakeRemote serves a sync stream in pages. Tokens are "t<offset>".
type fakeRemote struct {
	mu       sync.Mutex
	stream   []*domain.Document
	pageSize int
	failures []error
	tokens   []string
}

func newFakeRemote(pageSize int, docs ...*domain.Document) *fakeRemote {
	return &fakeRemote{stream: docs, pageSize: pageSize}
}

func (f *fakeRemote) publish(docs ...*domain.Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stream = append(f.stream, docs...)
}

// failNext makes the next calls fail with errs, in order.
func (f *fakeRemote) failNext(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, errs...)
}

func (f *fakeRemote) requested() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tokens...)
}

func (f *fakeRemote) GetPage(_ context.Context, _ domain.PageRequest) (*domain.Page, error) {
	return &domain.Page{}, nil
}

func (f *fakeRemote) GetSyncPage(_ context.Context, token string) (*domain.SyncPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)

	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return nil, err
	}

	start := 0
	if token != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(token, "t"))
		if err != nil {
			return nil, fmt.Errorf("%w: bad token %q", domain.ErrInvalidInput, token)
		}
		start = n
	}
	end := min(start+f.pageSize, len(f.stream))
	if start > end {
		start = end
	}
	items := make([]*domain.Document, 0, end-start)
	for _, d := range f.stream[start:end] {
		items = append(items, d.Clone())
	}
	return &domain.SyncPage{
		Items:     items,
		HasMore:   end < len(f.stream),
		NextToken: "t" + strconv.Itoa(end),
	}, nil
}

// manualScheduler records jobs; tests run them explicitly.
type manualScheduler struct {
	mu   sync.Mutex
	jobs []scheduledJob
	all  []scheduledJob
}

type scheduledJob struct {
	id    string
	delay time.Duration
	fn    func(ctx context.Context) error
}

func (m *manualScheduler) ScheduleOnce(id string, delay time.Duration, fn func(ctx context.Context) error) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	job := scheduledJob{id: id, delay: delay, fn: fn}
	m.jobs = append(m.jobs, job)
	m.all = append(m.all, job)
	return true
}

func (m *manualScheduler) pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

func (m *manualScheduler) scheduled() []scheduledJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]scheduledJob(nil), m.all...)
}

// runNext runs the oldest pending job. It reports false when none is pending.
func (m *manualScheduler) runNext(ctx context.Context) (bool, error) {
	m.mu.Lock()
	if len(m.jobs) == 0 {
		m.mu.Unlock()
		return false, nil
	}
	job := m.jobs[0]
	m.jobs = m.jobs[1:]
	m.mu.Unlock()
	return true, job.fn(ctx)
}

// recordingSubscriber records the ids it was given.
type recordingSubscriber struct {
	name  string
	err   error
	panic bool

	mu  sync.Mutex
	ids []string
}

func (r *recordingSubscriber) Name() string { return r.name }

func (r *recordingSubscriber) OnItem(_ context.Context, doc *domain.Document) error {
	r.mu.Lock()
	r.ids = append(r.ids, doc.ID)
	r.mu.Unlock()
	if r.panic {
		panic("subscriber exploded")
	}
	return r.err
}

func (r *recordingSubscriber) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

// fakeSyncService counts cycles for scheduler tests.
type fakeSyncService struct {
	mu    sync.Mutex
	calls int
	err   error
	ran   chan struct{}
}

func newFakeSyncService() *fakeSyncService {
	return &fakeSyncService{ran: make(chan struct{}, 16)}
}

func (f *fakeSyncService) Sync(_ context.Context, _ string) (domain.SyncResult, error) {
	f.mu.Lock()
	f.calls++
	err := f.err
	f.mu.Unlock()
	select {
	case f.ran <- struct{}{}:
	default:
	}
	return domain.SyncResult{ItemsSynced: 2, Found: true}, err
}

func (f *fakeSyncService) Reset(_ context.Context) error { return nil }

func (f *fakeSyncService) Status() driving.SyncStatus { return driving.SyncStatus{} }

func (f *fakeSyncService) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// retryAfterError asks for a specific wait before retrying.
type retryAfterError struct {
	wait time.Duration
}

func (e retryAfterError) Error() string             { return "slow down" }
func (e retryAfterError) RetryDelay() time.Duration { return e.wait }
func (e retryAfterError) Is(target error) bool      { return target == domain.ErrRateLimited }

var errTransient = errors.New("connection reset")

var testLocales = domain.LocaleConfig{
	Default:   "en-US",
	Fallbacks: map[string]string{"de-DE": "en-US"},
}

// entry builds a localized entry with every field in en-US.
func entry(id, contentType string, rev int, fields map[string]any) *domain.Document {
	localized := make(map[string]any, len(fields))
	for k, v := range fields {
		localized[k] = map[string]any{"en-US": v}
	}
	return &domain.Document{
		ID:          id,
		Kind:        domain.KindEntry,
		Revision:    rev,
		ContentType: contentType,
		UpdatedAt:   time.Unix(int64(rev), 0).UTC(),
		Fields:      localized,
	}
}

func tombstone(id string, rev int) *domain.Document {
	return &domain.Document{ID: id, Kind: domain.KindDeletedEntry, Revision: rev}
}

func testSyncConfig() domain.SyncConfig {
	return domain.SyncConfig{
		TokenKey:          domain.DefaultTokenKey,
		MaxRetries:        2,
		RetryDelay:        domain.Duration(time.Millisecond),
		MaxWebhookRetries: 3,
		WebhookRetryDelay: domain.Duration(10 * time.Second),
	}
}
