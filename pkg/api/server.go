package api

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// shutdownTimeout bounds how long a shutting-down server waits for
// in-flight requests; sync runs can take up to the handler timeout.
const shutdownTimeout = 10 * time.Minute

// Server is the inbound HTTP server exposing sync triggers.
type Server struct {
	addr     string
	handlers *Handlers
}

// NewServer creates a new Server.
func NewServer(addr string, handlers *Handlers) *Server {
	return &Server{
		addr:     addr,
		handlers: handlers,
	}
}

// Router builds the chi router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Minute))

	r.Post("/sync", s.handlers.HandleSync)
	r.Get("/cron-sync", s.handlers.HandleCronSync)
	r.Post("/sync-currency", s.handlers.HandleSyncCurrency)
	r.Get("/stats", s.handlers.HandleStats)
	r.Get("/health", s.handlers.HandleHealth)

	return r
}

// Run starts the server and blocks until SIGINT or SIGTERM.
func (s *Server) Run() error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: let in-flight sync runs finish, bounded by the
	// same limit as the write timeout.
	drained := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		slog.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		close(drained)
	}()

	slog.Info("starting server", "addr", s.addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-drained
	return nil
}
