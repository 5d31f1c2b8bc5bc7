// Package server serves the treemap over HTTP.
//
// Routes:
//
//	GET  /                     interactive page (resizes and polls the treemap)
//	GET  /treemap.{format}     the current zone set rendered as svg, png, pdf, json or term
//	GET  /zones                the current zone set
//	GET  /zones/{id}           zone detail with score history
//	POST /zones/{id}/flag      toggle a zone's flag
//	GET  /healthz              liveness
//
// The zone set is pushed in through [Server.SetZones]; the serve command
// wires it to a poller or file watcher.
package server

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/matzehuels/zonemap/pkg/pipeline"
	"github.com/matzehuels/zonemap/pkg/source"
	"github.com/matzehuels/zonemap/pkg/zone"
)

// DefaultPollInterval is how often the page re-fetches the treemap.
const DefaultPollInterval = time.Minute

// Config configures a [Server].
type Config struct {
	Addr string

	Runner *pipeline.Runner
	// Options are the base pipeline options; requests override width and
	// format.
	Options pipeline.Options
	Source  source.Source

	AllowedOrigins []string
	PollInterval   time.Duration
	// Debounce is the resize quiet window used by the page.
	Debounce time.Duration
	Title    string

	Logger *log.Logger
}

// Server serves one zone source.
type Server struct {
	cfg    Config
	router *chi.Mux
	http   *http.Server
	logger *log.Logger

	mu      sync.RWMutex
	zones   []zone.Zone
	updated time.Time
}

// New builds the router. The server starts with an empty zone set.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 250 * time.Millisecond
	}
	if cfg.Title == "" {
		cfg.Title = "zonemap"
	}

	s := &Server{
		cfg:    cfg,
		router: chi.NewRouter(),
		logger: cfg.Logger.WithPrefix("http"),
	}
	s.setupMiddleware()
	s.setupRoutes()

	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Recoverer)

	if len(s.cfg.AllowedOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "If-None-Match"},
			ExposedHeaders: []string{"ETag"},
			MaxAge:         300,
		}))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleIndex)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/treemap.{format}", s.handleTreemap)

	s.router.Route("/zones", func(r chi.Router) {
		r.Get("/", s.handleZones)
		r.Get("/{id}", s.handleZone)
		r.Post("/{id}/flag", s.handleFlag)
	})
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// SetZones replaces the served zone set. Its signature matches
// refresh.Func.
func (s *Server) SetZones(_ context.Context, zones []zone.Zone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zones = append([]zone.Zone(nil), zones...)
	s.updated = time.Now()
	s.logger.Info("zone set updated", "zones", len(zones))
	return nil
}

// Zones returns the served zone set and when it was last replaced.
func (s *Server) Zones() ([]zone.Zone, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.zones, s.updated
}

// reload fetches the zone set from the source, e.g. after a flag toggle.
func (s *Server) reload(ctx context.Context) error {
	zones, err := s.cfg.Runner.Load(ctx, s.cfg.Source)
	if err != nil {
		return err
	}
	return s.SetZones(ctx, zones)
}

// ListenAndServe serves until [Server.Shutdown].
func (s *Server) ListenAndServe() error {
	s.logger.Info("listening", "addr", s.cfg.Addr)
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")
	return s.http.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
