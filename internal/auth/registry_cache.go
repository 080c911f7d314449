package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskify/backend/internal/cache"
	"taskify/backend/internal/models"

	"github.com/rs/zerolog"
)

const (
	tokenCacheKeyPrefix = "user_token:"
	revokedMarkerPrefix = "user_token_revoked:"
)

func tokenCacheKey(tokenUUID string) string {
	return tokenCacheKeyPrefix + tokenUUID
}

func revokedMarkerKey(tokenUUID string) string {
	return revokedMarkerPrefix + tokenUUID
}

// CachedRegistry serves lookups from Redis in front of another Registry.
// Reads and fills go through a circuit breaker and fall back to the wrapped
// registry. Evictions always hit Redis, and a failed eviction fails the
// revocation so a revoked token cannot be served from cache.
//
// Revoking a token leaves a marker that lives as long as a cache entry can.
// Fills are skipped while a marker exists, so a lookup that read the record
// before the revocation cannot put it back.
type CachedRegistry struct {
	next    Registry
	cache   *cache.RedisCache
	breaker *cache.CircuitBreaker
	maxTTL  time.Duration
	metrics *cache.CacheMetrics
	log     zerolog.Logger
	now     func() time.Time
}

func NewCachedRegistry(next Registry, c *cache.RedisCache, breaker *cache.CircuitBreaker, maxTTL time.Duration, log zerolog.Logger, opts ...Option) *CachedRegistry {
	if breaker == nil {
		breaker = cache.NewCircuitBreaker(nil)
	}
	if maxTTL <= 0 {
		maxTTL = 5 * time.Minute
	}
	o := buildOptions(opts)
	return &CachedRegistry{
		next:    next,
		cache:   c,
		breaker: breaker,
		maxTTL:  maxTTL,
		metrics: cache.NewCacheMetrics(),
		log:     log,
		now:     o.now,
	}
}

func (r *CachedRegistry) Record(ctx context.Context, token *models.UserToken) error {
	if err := r.next.Record(ctx, token); err != nil {
		return err
	}
	r.fill(ctx, token)
	return nil
}

func (r *CachedRegistry) Lookup(ctx context.Context, tokenUUID string) (*models.UserToken, error) {
	var entry models.UserToken
	hit := false
	err := r.breaker.Execute(func() error {
		err := r.cache.Get(ctx, tokenCacheKey(tokenUUID), &entry)
		switch {
		case err == nil:
			hit = true
			return nil
		case errors.Is(err, cache.ErrCacheMiss):
			return nil
		default:
			return err
		}
	})
	switch {
	case hit:
		r.metrics.RecordHit()
		return &entry, nil
	case err != nil:
		r.metrics.RecordError()
		r.log.Debug().Err(err).Msg("token cache read skipped")
	default:
		r.metrics.RecordMiss()
	}

	token, err := r.next.Lookup(ctx, tokenUUID)
	if err != nil {
		return nil, err
	}
	r.fill(ctx, token)
	return token, nil
}

func (r *CachedRegistry) Revoke(ctx context.Context, tokenUUID string) error {
	if err := r.next.Revoke(ctx, tokenUUID); err != nil {
		return err
	}
	return r.evict(ctx, tokenUUID)
}

func (r *CachedRegistry) RevokeAll(ctx context.Context, userID uint) ([]string, error) {
	ids, err := r.next.RevokeAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := r.evict(ctx, ids...); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *CachedRegistry) Stats() cache.CacheStats {
	return r.metrics.GetStats()
}

func (r *CachedRegistry) BreakerState() cache.CircuitBreakerState {
	return r.breaker.GetState()
}

// fill caches a record for at most maxTTL and never past its expiry.
func (r *CachedRegistry) fill(ctx context.Context, token *models.UserToken) {
	ttl := token.ExpiresAt.Sub(r.now())
	if ttl > r.maxTTL {
		ttl = r.maxTTL
	}
	if ttl <= 0 {
		return
	}
	stored := false
	err := r.breaker.Execute(func() error {
		var err error
		stored, err = r.cache.SetUnlessMarked(ctx, tokenCacheKey(token.TokenUUID), revokedMarkerKey(token.TokenUUID), token, ttl)
		return err
	})
	if err != nil {
		r.metrics.RecordError()
		r.log.Debug().Err(err).Str("token_uuid", token.TokenUUID).Msg("token cache fill skipped")
		return
	}
	if !stored {
		r.log.Debug().Str("token_uuid", token.TokenUUID).Msg("token revoked during lookup, not cached")
		return
	}
	r.metrics.RecordSet()
}

func (r *CachedRegistry) evict(ctx context.Context, tokenUUIDs ...string) error {
	if len(tokenUUIDs) == 0 {
		return nil
	}
	keys := make([]string, len(tokenUUIDs))
	markers := make([]string, len(tokenUUIDs))
	for i, id := range tokenUUIDs {
		keys[i] = tokenCacheKey(id)
		markers[i] = revokedMarkerKey(id)
	}
	if err := r.cache.MarkAndDelete(ctx, markers, r.maxTTL, keys...); err != nil {
		r.metrics.RecordError()
		return newError(KindInfrastructure, fmt.Errorf("evict cached tokens: %w", err))
	}
	r.metrics.RecordDelete()
	return nil
}
