package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tunecrawl/internal/api"
	"tunecrawl/internal/config"
	"tunecrawl/internal/logging"
)

const readyTimeout = 5 * time.Second

type apiServer struct {
	bind       string
	logger     *slog.Logger
	daemon     *Daemon
	catalogSvc *api.CatalogService
	handler    http.Handler

	crawlLimit func(http.Handler) http.Handler

	readyOnce sync.Once
	ready     chan struct{}
	startErr  chan error

	mu   sync.Mutex
	addr string
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:       strings.TrimSpace(cfg.Paths.APIBind),
		logger:     logging.NewComponentLogger(logger, "api-server"),
		daemon:     d,
		catalogSvc: api.NewCatalogService(d.store, d.scheduler),
		crawlLimit: crawlLimiter(cfg.API.CrawlRequestsPerMinute),
		ready:      make(chan struct{}),
		startErr:   make(chan error, 1),
	}
	srv.handler = srv.routes(cfg.API.CORSOrigins)
	return srv
}

func (s *apiServer) routes(origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDWithLogging())
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/catalog", s.handleCatalog)
		r.With(s.crawlLimit).Post("/catalog/crawl", s.handleCrawl)
		r.Get("/catalog/status", s.handleStatus)
		r.Post("/catalog/reset", s.handleReset)
		r.Get("/health", s.handleHealth)
		r.Post("/notifications/test", s.handleTestNotification)
	})
	r.Handle("/metrics", promhttp.Handler())
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// Serve implements suture.Service.
func (s *apiServer) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		err = fmt.Errorf("api listen: %w", err)
		select {
		case s.startErr <- err:
		default:
		}
		return err
	}
	s.mu.Lock()
	s.addr = listener.Addr().String()
	s.mu.Unlock()

	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Crawls run synchronously and the slowest simulated source sleeps
		// for its configured delay.
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.logger.Info("api server listening",
		logging.String("address", s.Addr()),
		logging.String(logging.FieldEventType, "api_listening"),
	)
	s.readyOnce.Do(func() { close(s.ready) })

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("api server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (s *apiServer) String() string { return "api-server" }

// Addr returns the bound address, or the configured bind before listening.
func (s *apiServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addr != "" {
		return s.addr
	}
	return s.bind
}

func (s *apiServer) waitReady(ctx context.Context) error {
	timer := time.NewTimer(readyTimeout)
	defer timer.Stop()
	select {
	case <-s.ready:
		return nil
	case err := <-s.startErr:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return errors.New("timed out waiting for api listener")
	}
}

func (s *apiServer) handleCatalog(w http.ResponseWriter, r *http.Request) {
	action := strings.TrimSpace(r.URL.Query().Get("action"))
	if action == api.ActionCrawl {
		s.crawlLimit(http.HandlerFunc(s.handleCrawl)).ServeHTTP(w, r)
		return
	}
	body, status := s.catalogSvc.Dispatch(r.Context(), action)
	s.writeJSON(w, status, body)
}

func (s *apiServer) handleCrawl(w http.ResponseWriter, r *http.Request) {
	resp, status := s.catalogSvc.Crawl(r.Context())
	s.writeJSON(w, status, resp)
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.catalogSvc.Status(r.Context()))
}

func (s *apiServer) handleReset(w http.ResponseWriter, r *http.Request) {
	resp, status := s.catalogSvc.Reset(r.Context())
	if status == http.StatusOK {
		s.logger.Info("catalog reset",
			logging.String(logging.FieldEventType, "catalog_reset"),
		)
	}
	s.writeJSON(w, status, resp)
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.daemon.Health(r.Context())
	status := http.StatusOK
	if health.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, health)
}

func (s *apiServer) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	sent, message, err := s.daemon.TestNotification(r.Context())
	if err != nil {
		s.writeJSON(w, http.StatusBadGateway, api.MessageResponse{Message: message, Error: err.Error()})
		return
	}
	if !sent {
		s.writeJSON(w, http.StatusConflict, api.MessageResponse{Message: message})
		return
	}
	s.writeJSON(w, http.StatusOK, api.MessageResponse{Message: message})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.MessageResponse{Message: message, Error: http.StatusText(status)})
}
