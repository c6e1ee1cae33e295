// Package channel implements the user-facing transports: the LINE-style
// webhook server with its reply API client, and an alternative Telegram
// webhook transport. Channels decode platform payloads into domain events
// and hand them to a batch handler; they never interpret message content.
package channel

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"kakeibot/internal/domain"
)

// BatchHandler receives the decoded events of one webhook call.
type BatchHandler interface {
	HandleBatch(ctx context.Context, events []domain.InboundEvent)
}

// Server hosts the webhook endpoints and the optional metrics endpoint on
// one HTTP listener.
type Server struct {
	port   int
	mux    *http.ServeMux
	logger *slog.Logger
	server *http.Server
}

type ServerConfig struct {
	Port   int
	Logger *slog.Logger
}

func NewServer(cfg ServerConfig) *Server {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Server{
		port:   cfg.Port,
		mux:    http.NewServeMux(),
		logger: cfg.Logger,
	}
}

// Mount registers a handler on the server's mux.
func (s *Server) Mount(path string, h http.Handler) {
	s.mux.Handle(path, h)
}

// Start runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("webhook server starting", "port", s.port)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("webhook server: %w", err)
	}
}
