package cli

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/replica/internal/core/domain"
	"github.com/custodia-labs/replica/internal/core/ports/driving"
)

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	docs map[string]*domain.Document
	list []*domain.Document
	key  string
	err  error

	lastContentType string
	lastFilter      map[string]any
	lastLimit       int
	lastOptions     domain.FindOptions
}

func (m *mockDocumentService) Get(_ context.Context, id string, opts ...domain.FindOption) (*domain.Document, error) {
	m.lastOptions = domain.NewFindOptions(opts...)
	if m.err != nil {
		return nil, m.err
	}
	return m.docs[id], nil
}

func (m *mockDocumentService) List(_ context.Context, contentType string, filter map[string]any, limit int, opts ...domain.FindOption) ([]*domain.Document, error) {
	m.lastContentType = contentType
	m.lastFilter = filter
	m.lastLimit = limit
	m.lastOptions = domain.NewFindOptions(opts...)
	if m.err != nil {
		return nil, m.err
	}
	return m.list, nil
}

func (m *mockDocumentService) FindBy(_ context.Context, contentType string, filter map[string]any, opts ...domain.FindOption) (*domain.Document, error) {
	m.lastContentType = contentType
	m.lastFilter = filter
	m.lastOptions = domain.NewFindOptions(opts...)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.list) == 0 {
		return nil, nil
	}
	return m.list[0], nil
}

func (m *mockDocumentService) CacheKey(_ context.Context, contentType string, filter map[string]any, _ ...domain.FindOption) (string, error) {
	m.lastContentType = contentType
	m.lastFilter = filter
	return m.key, m.err
}

// mockSchemaService is a mock implementation of driving.SchemaService.
type mockSchemaService struct {
	types    []domain.SchemaType
	rebuilt  []domain.SchemaType
	rebuilds int
	err      error
}

func (m *mockSchemaService) Types() []domain.SchemaType {
	return m.types
}

func (m *mockSchemaService) Rebuild(_ context.Context) ([]domain.SchemaType, error) {
	m.rebuilds++
	return m.rebuilt, m.err
}

// mockSyncService is a mock implementation of driving.SyncService and driving.WebhookService.
type mockSyncService struct {
	mu      sync.Mutex
	result  domain.SyncResult
	status  driving.SyncStatus
	err     error
	resets  int
	upToIDs []string
	synced  chan string
}

func newMockSyncService() *mockSyncService {
	return &mockSyncService{synced: make(chan string, 16)}
}

func (m *mockSyncService) Sync(_ context.Context, upToID string) (domain.SyncResult, error) {
	m.mu.Lock()
	m.upToIDs = append(m.upToIDs, upToID)
	result, err := m.result, m.err
	m.mu.Unlock()
	select {
	case m.synced <- upToID:
	default:
	}
	return result, err
}

func (m *mockSyncService) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets++
	return nil
}

func (m *mockSyncService) Status() driving.SyncStatus {
	return m.status
}

func (m *mockSyncService) Receive(ctx context.Context, doc *domain.Document) (domain.SyncResult, error) {
	return m.Sync(ctx, doc.ID)
}

// mockWatcher reports ids once, then blocks until cancelled.
type mockWatcher struct {
	ids []string
}

func (m *mockWatcher) Watch(ctx context.Context, fn func(id string)) error {
	for _, id := range m.ids {
		fn(id)
	}
	<-ctx.Done()
	return ctx.Err()
}

// testApp holds the mocks behind an App.
type testApp struct {
	*App
	documents *mockDocumentService
	schemas   *mockSchemaService
	sync      *mockSyncService
	closed    int
	built     []domain.Config
}

// setupTestApp installs a builder returning mock services and points
// --config at a temporary file. Everything is restored on cleanup.
func setupTestApp(t *testing.T) *testApp {
	t.Helper()

	ta := &testApp{
		documents: &mockDocumentService{docs: map[string]*domain.Document{}},
		schemas:   &mockSchemaService{},
		sync:      newMockSyncService(),
	}
	ta.App = &App{
		Documents: ta.documents,
		Schemas:   ta.schemas,
		Sync:      ta.sync,
		Webhook:   ta.sync,
		Closer: func() error {
			ta.closed++
			return nil
		},
	}

	originalBuilder := builder
	builder = func(c domain.Config) (*App, error) {
		ta.built = append(ta.built, c)
		return ta.App, nil
	}

	resetFlags(rootCmd)
	rootCmd.SetContext(context.Background())
	configPath = filepath.Join(t.TempDir(), "config.toml")

	t.Cleanup(func() {
		builder = originalBuilder
		app = nil
		resetFlags(rootCmd)
		configPath = ""
		rootCmd.SetContext(context.Background())
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	return ta
}

// resetFlags restores every flag of cmd and its children to its default.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func testEntry(id, contentType string, fields map[string]any) *domain.Document {
	return &domain.Document{
		ID:          id,
		Kind:        domain.KindEntry,
		Revision:    1,
		ContentType: contentType,
		Locale:      "en-US",
		Fields:      fields,
	}
}
