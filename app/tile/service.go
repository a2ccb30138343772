// Package tile implements the tile request pipeline: parameter validation,
// the shared tile cache and the cache-then-generate flow in front of a tile backend.
package tile

import (
	"context"
	"fmt"
	"sync/atomic"

	log "github.com/go-pkgz/lgr"
	"github.com/paulmach/orb/maptile"
	"golang.org/x/sync/singleflight"
)

//go:generate moq -out mocks/generator.go -pkg mocks -skip-ensure -fmt goimports . Generator

// Generator produces an encoded vector tile. Any error is treated as opaque.
type Generator interface {
	Generate(ctx context.Context, t maptile.Tile) ([]byte, error)
}

// Config holds optional pipeline behavior.
type Config struct {
	// Dedup collapses concurrent misses for the same key into a single backend call.
	// Off by default, concurrent misses each call the backend and the last store wins.
	Dedup bool
}

// Stats is a snapshot of pipeline counters.
type Stats struct {
	Keys          int   `json:"keys"`
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	BackendCalls  int64 `json:"backend_calls"`
	BackendErrors int64 `json:"backend_errors"`
}

// Service answers tile requests from the cache, falling back to the generator on miss.
type Service struct {
	cache Cache
	gen   Generator
	cfg   Config
	group singleflight.Group

	hits, misses, calls, failures atomic.Int64
}

// NewService makes a Service sharing the given cache.
func NewService(cache Cache, gen Generator, cfg Config) *Service {
	return &Service{cache: cache, gen: gen, cfg: cfg}
}

// Tile validates params and returns the encoded tile.
// Errors are always *Error, either InvalidInput for bad params or DBError for backend failures.
func (s *Service) Tile(ctx context.Context, p Params) ([]byte, error) {
	req, err := ParseRequest(p)
	if err != nil {
		return nil, err
	}

	key := req.Key()
	if data, ok := s.cache.Lookup(key); ok {
		s.hits.Add(1)
		log.Printf("[DEBUG] tile %s from cache, %d bytes", key, len(data))
		return data, nil
	}
	s.misses.Add(1)

	if !s.cfg.Dedup {
		return s.generate(ctx, req, key)
	}

	// the shared call outlives any single caller, so it can't use the caller's cancellation
	sharedCtx := context.WithoutCancel(ctx)
	res, err, shared := s.group.Do(key, func() (any, error) {
		if data, ok := s.cache.Lookup(key); ok {
			return data, nil
		}
		return s.generate(sharedCtx, req, key)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Printf("[DEBUG] tile %s shared with a concurrent request", key)
	}
	return res.([]byte), nil
}

// generate calls the backend with no lock held and stores the result on success.
func (s *Service) generate(ctx context.Context, req Request, key string) ([]byte, error) {
	s.calls.Add(1)
	data, err := s.gen.Generate(ctx, req.Tile)
	if err != nil {
		s.failures.Add(1)
		log.Printf("[WARN] failed to generate tile %s: %v", key, err)
		return nil, errBackend()
	}
	s.cache.Store(key, data)
	log.Printf("[DEBUG] tile %s generated, %d bytes", key, len(data))
	return data, nil
}

// Stats returns current counters and cache size.
func (s *Service) Stats() Stats {
	return Stats{
		Keys:          s.cache.Len(),
		Hits:          s.hits.Load(),
		Misses:        s.misses.Load(),
		BackendCalls:  s.calls.Load(),
		BackendErrors: s.failures.Load(),
	}
}

// String describes the service setup for startup logging.
func (s *Service) String() string {
	return fmt.Sprintf("tile service (cache %T, dedup %v)", s.cache, s.cfg.Dedup)
}
