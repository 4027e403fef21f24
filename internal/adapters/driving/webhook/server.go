// Package webhook provides the HTTP receiver for change notifications
// pushed by the remote space.
package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/replica/internal/core/domain"
	"github.com/custodia-labs/replica/internal/core/ports/driving"
	"github.com/custodia-labs/replica/internal/logger"
)

const (
	// Path is the endpoint notifications are posted to.
	Path = "/webhook"

	// HeaderSecret carries the shared secret when one is configured.
	HeaderSecret = "X-Replica-Webhook-Secret"

	// HeaderDeliveryID is set on accepted responses.
	HeaderDeliveryID = "X-Replica-Delivery-Id"

	// maxBodySize bounds a notification body.
	maxBodySize = 1 << 20
)

// Server receives webhook notifications and hands them to the sync engine.
// Each accepted notification is processed in the background.
type Server struct {
	mu       sync.Mutex
	svc      driving.WebhookService
	addr     string
	secret   string
	server   *http.Server
	listener net.Listener

	// ctx is cancelled by Stop; deliveries run under it
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer creates a webhook receiver.
func NewServer(svc driving.WebhookService, cfg domain.WebhookConfig) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		svc:    svc,
		addr:   cfg.Addr,
		secret: cfg.Secret,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Handler returns the HTTP handler serving Path.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(Path, s.handleWebhook)
	return mux
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = listener
	logger.Info("webhook: listening on %s", listener.Addr())

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("webhook: server stopped: %v", err)
		}
	}()
	return nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop shuts the listener down and waits for in-flight deliveries.
func (s *Server) Stop() error {
	s.mu.Lock()
	server := s.server
	s.mu.Unlock()

	var err error
	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = server.Shutdown(ctx)
	}
	s.cancel()
	s.wg.Wait()
	return err
}

type acceptedResponse struct {
	DeliveryID string `json:"delivery_id"`
	ID         string `json:"id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid secret"})
		return
	}

	var doc domain.Document
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&doc); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed body: " + err.Error()})
		return
	}
	if err := doc.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	deliveryID := uuid.NewString()
	logger.Info("webhook %s: received %s %s rev %d", deliveryID, doc.Kind, doc.ID, doc.Revision)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.deliver(deliveryID, &doc)
	}()

	w.Header().Set(HeaderDeliveryID, deliveryID)
	writeJSON(w, http.StatusAccepted, acceptedResponse{DeliveryID: deliveryID, ID: doc.ID})
}

func (s *Server) deliver(deliveryID string, doc *domain.Document) {
	result, err := s.svc.Receive(s.ctx, doc)
	switch {
	case err != nil:
		logger.Error("webhook %s: %v", deliveryID, err)
	case result.Found:
		logger.Info("webhook %s: %s synced in cycle %s", deliveryID, doc.ID, result.CycleID)
	case result.RetryScheduled:
		logger.Info("webhook %s: %s not in sync stream yet, retry scheduled", deliveryID, doc.ID)
	default:
		logger.Warn("webhook %s: %s not in sync stream", deliveryID, doc.ID)
	}
}

func (s *Server) authorized(r *http.Request) bool {
	if s.secret == "" {
		return true
	}
	got := r.Header.Get(HeaderSecret)
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.secret)) == 1
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
