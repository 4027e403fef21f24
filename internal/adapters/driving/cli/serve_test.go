package cli

import (
	"bytes"
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRunner records Start and Stop calls.
type mockRunner struct {
	started chan struct{}
	stops   atomic.Int32
}

func (m *mockRunner) Start(ctx context.Context) error {
	close(m.started)
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockRunner) Stop() error {
	m.stops.Add(1)
	return nil
}

// executeAsync runs rootCmd under ctx in the background.
func executeAsync(ctx context.Context, args ...string) (*bytes.Buffer, <-chan error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	done := make(chan error, 1)
	go func() { done <- rootCmd.ExecuteContext(ctx) }()
	return buf, done
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("command did not return")
		return nil
	}
}

func TestServeCmd_RunsUntilCancelled(t *testing.T) {
	ta := setupTestApp(t)
	runner := &mockRunner{started: make(chan struct{})}
	ta.App.Scheduler = runner
	ta.App.Watcher = &mockWatcher{ids: []string{"p1"}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	buf, done := executeAsync(ctx, "serve", "--addr", "127.0.0.1:0")

	select {
	case id := <-ta.sync.synced:
		assert.Equal(t, "p1", id)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher change never synced")
	}
	select {
	case <-runner.started:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler never started")
	}

	cancel()
	require.NoError(t, waitDone(t, done))

	assert.Equal(t, int32(1), runner.stops.Load())
	assert.Equal(t, 1, ta.closed)
	out := buf.String()
	assert.Contains(t, out, "Webhook receiver listening on http://127.0.0.1:")
	assert.Contains(t, out, "webhook.secret is not set")
	assert.Contains(t, out, "Shutting down...")
}

func TestServeCmd_NoWebhook(t *testing.T) {
	setupTestApp(t)

	ctx, cancel := context.WithCancel(context.Background())
	buf, done := executeAsync(ctx, "serve", "--no-webhook")
	time.Sleep(50 * time.Millisecond)
	cancel()

	require.NoError(t, waitDone(t, done))
	assert.NotContains(t, buf.String(), "Webhook receiver")
}

func TestServeCmd_PortInUse(t *testing.T) {
	setupTestApp(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	_, err = execute(t, "serve", "--addr", ln.Addr().String())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
}

func TestServeCmd_NotConfigured(t *testing.T) {
	ta := setupTestApp(t)
	ta.App.Sync = nil

	_, err := execute(t, "serve")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync service not configured")
}
