package geocode_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"food-marketplace-api/errs"
	"food-marketplace-api/geocode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeResolver struct {
	calls  atomic.Int64
	coords geocode.Coordinates
	err    error
}

func (r *fakeResolver) Resolve(ctx context.Context, address string) (geocode.Coordinates, error) {
	r.calls.Add(1)
	return r.coords, r.err
}

func TestLookup_CachesNormalizedAddresses(t *testing.T) {
	resolver := &fakeResolver{coords: geocode.Coordinates{Lat: 48.8566, Lon: 2.3522}}
	svc := geocode.NewService(resolver, 1000, zap.NewNop())
	ctx := context.Background()

	first, err := svc.Lookup(ctx, "12 Rue des Lilas, Paris")
	require.NoError(t, err)
	assert.Equal(t, resolver.coords, first)

	// Same address modulo case and whitespace: served from cache
	second, err := svc.Lookup(ctx, "  12 rue DES lilas,   paris ")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, resolver.calls.Load(), "cache hit must not hit the resolver")
}

func TestLookup_EmptyAddress(t *testing.T) {
	svc := geocode.NewService(&fakeResolver{}, 1000, zap.NewNop())
	_, err := svc.Lookup(context.Background(), "   ")
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))
}

func TestLookup_UpstreamFailureIsUnavailable(t *testing.T) {
	resolver := &fakeResolver{err: errors.New("timeout")}
	svc := geocode.NewService(resolver, 1000, zap.NewNop())

	_, err := svc.Lookup(context.Background(), "somewhere")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrUnavailable))

	// Failures are not cached
	_, _ = svc.Lookup(context.Background(), "somewhere")
	assert.EqualValues(t, 2, resolver.calls.Load())
}

func TestLookup_CancelledContextStopsLimiterWait(t *testing.T) {
	// rps low enough that the second call must wait on the bucket
	resolver := &fakeResolver{}
	svc := geocode.NewService(resolver, 0.001, zap.NewNop())

	ctx := context.Background()
	_, err := svc.Lookup(ctx, "first address")
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.Lookup(cancelled, "second address")
	assert.Error(t, err)
	assert.EqualValues(t, 1, resolver.calls.Load(), "the rate limiter must gate the upstream call")
}
