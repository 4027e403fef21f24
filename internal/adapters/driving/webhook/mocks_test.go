package webhook

import (
	"context"
	"sync"

	"github.com/custodia-labs/replica/internal/core/domain"
)

// mockWebhookService records received documents.
type mockWebhookService struct {
	mu       sync.Mutex
	received []*domain.Document
	result   domain.SyncResult
	err      error
	done     chan struct{}
}

func newMockWebhookService() *mockWebhookService {
	return &mockWebhookService{done: make(chan struct{}, 16)}
}

func (m *mockWebhookService) Receive(_ context.Context, doc *domain.Document) (domain.SyncResult, error) {
	m.mu.Lock()
	m.received = append(m.received, doc)
	m.mu.Unlock()
	m.done <- struct{}{}
	return m.result, m.err
}

func (m *mockWebhookService) docs() []*domain.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.Document(nil), m.received...)
}
