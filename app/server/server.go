// Package server provides HTTP server for the tile endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/didip/tollbooth/v8"
	"github.com/didip/tollbooth/v8/limiter"
	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/routegroup"

	"github.com/transect/tileserver/app/tile"
)

//go:generate moq -out mocks/tileservice.go -pkg mocks -skip-ensure -fmt goimports . TileService

// Server represents the HTTP server.
type Server struct {
	Deps
	Config
}

// TileService defines the interface for the tile pipeline.
type TileService interface {
	Tile(ctx context.Context, p tile.Params) ([]byte, error)
	Stats() tile.Stats
}

// Config holds server configuration.
type Config struct {
	Address           string
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	Version           string

	RequestsPerSec float64 // max requests per second (rate limit)
	MaxConcurrent  int64   // max concurrent in-flight requests
}

// Deps holds server dependencies.
type Deps struct {
	Tiles TileService
}

// New creates a new Server instance.
func New(deps Deps, cfg Config) (*Server, error) {
	if deps.Tiles == nil {
		return nil, errors.New("tile service is required")
	}
	return &Server{Deps: deps, Config: cfg}, nil
}

// Run starts the HTTP server and blocks until context is canceled.
func (s *Server) Run(ctx context.Context) error {
	httpServer := s.httpServer()

	// graceful shutdown
	go func() {
		<-ctx.Done()
		log.Printf("[INFO] shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout())
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] shutdown error: %v", err)
		}
	}()

	log.Printf("[DEBUG] started server on %s", s.Address)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// httpServer makes the http.Server for the configured address and timeouts.
func (s *Server) httpServer() *http.Server {
	return &http.Server{
		Addr:              s.Address,
		Handler:           s.routes(),
		ReadHeaderTimeout: s.ReadHeaderTimeout,
		WriteTimeout:      s.WriteTimeout,
		IdleTimeout:       s.IdleTimeout,
	}
}

// routes configures and returns the HTTP handler with all routes and middleware.
func (s *Server) routes() http.Handler {
	router := routegroup.New(http.NewServeMux())

	router.Use(
		rest.Recoverer(log.Default()),
		rest.RealIP, // must be before rate limiting to limit by real client IP
		s.rateLimiter(),
		rest.Throttle(s.maxConcurrent()),
		rest.Trace,
		rest.AppInfo("tileserver", "transect", s.Version),
		rest.Ping,
		rest.Gzip(contentTypeMVT, "application/json"),
	)

	router.HandleFunc("GET /stats", s.handleStats)
	router.HandleFunc("GET /{z}/{x}/{tile}", s.handleTile)

	return router
}

// shutdownTimeout returns the configured shutdown timeout, or default 10s if not set.
func (s *Server) shutdownTimeout() time.Duration {
	if s.ShutdownTimeout > 0 {
		return s.ShutdownTimeout
	}
	return 10 * time.Second
}

// requestsPerSec returns the configured rate limit (requests per second), or default 100 if not set.
func (s *Server) requestsPerSec() float64 {
	if s.RequestsPerSec > 0 {
		return s.RequestsPerSec
	}
	return 100
}

// maxConcurrent returns the configured max concurrent in-flight requests, or default 1000 if not set.
func (s *Server) maxConcurrent() int64 {
	if s.MaxConcurrent > 0 {
		return s.MaxConcurrent
	}
	return 1000
}

// rateLimiter returns middleware that limits requests per second using tollbooth.
func (s *Server) rateLimiter() func(http.Handler) http.Handler {
	lmt := tollbooth.NewLimiter(s.requestsPerSec(), &limiter.ExpirableOptions{DefaultExpirationTTL: time.Hour})
	lmt.SetIPLookup(limiter.IPLookup{Name: "RemoteAddr", IndexFromRight: 0}) // use RemoteAddr (RealIP middleware sets it)
	lmt.SetBurst(int(s.requestsPerSec()))                                    // burst equals rate limit
	return func(next http.Handler) http.Handler {
		return tollbooth.LimitHandler(lmt, next)
	}
}
