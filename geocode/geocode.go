// Package geocode resolves delivery addresses to coordinates through an
// injected resolver, with a shared in-memory cache and a token-bucket rate
// limiter awaited via the caller's context (never a blocking sleep).
package geocode

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"food-marketplace-api/errs"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Resolver is the upstream geocoding collaborator.
type Resolver interface {
	Resolve(ctx context.Context, address string) (Coordinates, error)
}

type Service struct {
	resolver Resolver
	limiter  *rate.Limiter
	log      *zap.Logger

	mu    sync.RWMutex
	cache map[string]Coordinates
}

// NewService wraps a resolver with a cache and a limiter of rps requests per
// second (burst 1), matching a typical free geocoding tier.
func NewService(resolver Resolver, rps float64, log *zap.Logger) *Service {
	return &Service{
		resolver: resolver,
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		log:      log,
		cache:    make(map[string]Coordinates),
	}
}

// Lookup returns coordinates for an address, serving cache hits without
// consuming limiter tokens.
func (s *Service) Lookup(ctx context.Context, address string) (Coordinates, error) {
	key := normalize(address)
	if key == "" {
		return Coordinates{}, fmt.Errorf("%w: empty address", errs.ErrInvalidArgument)
	}

	s.mu.RLock()
	coords, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return coords, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return Coordinates{}, err
	}

	coords, err := s.resolver.Resolve(ctx, address)
	if err != nil {
		return Coordinates{}, fmt.Errorf("%w: geocoding failed: %v", errs.ErrUnavailable, err)
	}

	s.mu.Lock()
	s.cache[key] = coords
	s.mu.Unlock()
	return coords, nil
}

func normalize(address string) string {
	return strings.Join(strings.Fields(strings.ToLower(address)), " ")
}
