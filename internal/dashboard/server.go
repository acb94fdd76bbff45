// Package dashboard serves a read-only HTTP view of the active profile's
// journal: trades, metrics, the PnL curve, the calendar and the report.
package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"trading-journal-go/internal/config"
	"trading-journal-go/internal/ledger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Server provides the dashboard HTTP interface.
type Server struct {
	server *http.Server
	logger *zap.Logger
}

// NewServer creates a Server listening on cfg.Server.Port.
func NewServer(cfg config.Config, l *ledger.Ledger, logger *zap.Logger) *Server {
	logger = logger.Named("dashboard")
	h := NewHandler(l, cfg.Ledger.Currency, logger)

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      NewRouter(h),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// NewRouter mounts the dashboard routes.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", h.Health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/profile", h.Profile)
		r.Get("/trades", h.Trades)
		r.Get("/statistics", h.Statistics)
		r.Get("/pnl-series", h.PnLSeries)
		r.Get("/calendar", h.Calendar)
		r.Get("/calendar/month", h.CalendarMonth)
		r.Get("/report", h.Report)
	})
	return r
}

// Start runs the HTTP server in a new goroutine.
func (s *Server) Start() {
	s.logger.Info("Starting dashboard server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("Dashboard server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping dashboard server...")
	return s.server.Shutdown(ctx)
}
