package auth_test

import (
	"context"
	"testing"
	"time"

	"taskify/backend/internal/auth"
	"taskify/backend/internal/cache"
	"taskify/backend/internal/database"
	"taskify/backend/internal/models"
	"taskify/backend/internal/repositories"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupRegistryDB(t *testing.T) (*gorm.DB, *models.User) {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)

	user := &models.User{Email: "registry@example.com"}
	require.NoError(t, db.Create(user).Error)
	return db, user
}

func TestGormRegistry_Lifecycle(t *testing.T) {
	db, user := setupRegistryDB(t)
	registry := auth.NewGormRegistry(db)
	ctx := context.Background()
	expires := time.Now().UTC().Add(time.Hour)

	require.NoError(t, registry.Record(ctx, &models.UserToken{TokenUUID: "a", UserID: user.ID, ExpiresAt: expires}))
	require.NoError(t, registry.Record(ctx, &models.UserToken{TokenUUID: "b", UserID: user.ID, ExpiresAt: expires}))

	found, err := registry.Lookup(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.UserID)

	require.NoError(t, registry.Revoke(ctx, "a"))
	_, err = registry.Lookup(ctx, "a")
	assert.ErrorIs(t, err, auth.ErrTokenNotFound)

	assert.NoError(t, registry.Revoke(ctx, "a"), "revoking twice is a no-op")

	ids, err := registry.RevokeAll(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids)

	_, err = registry.Lookup(ctx, "b")
	assert.ErrorIs(t, err, auth.ErrTokenNotFound)
}

func TestGormRegistry_DuplicateTokenIDIsRejected(t *testing.T) {
	db, user := setupRegistryDB(t)
	registry := auth.NewGormRegistry(db)
	ctx := context.Background()
	token := models.UserToken{TokenUUID: "dup", UserID: user.ID, ExpiresAt: time.Now().UTC().Add(time.Hour)}

	require.NoError(t, registry.Record(ctx, &token))
	again := token
	again.ID = 0
	assert.Error(t, registry.Record(ctx, &again))
}

func TestGormRegistry_PurgeExpired(t *testing.T) {
	db, user := setupRegistryDB(t)
	registry := auth.NewGormRegistry(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, registry.Record(ctx, &models.UserToken{TokenUUID: "old", UserID: user.ID, ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, registry.Record(ctx, &models.UserToken{TokenUUID: "boundary", UserID: user.ID, ExpiresAt: now}))
	require.NoError(t, registry.Record(ctx, &models.UserToken{TokenUUID: "live", UserID: user.ID, ExpiresAt: now.Add(time.Hour)}))

	purged, err := registry.PurgeExpired(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)

	_, err = registry.Lookup(ctx, "live")
	assert.NoError(t, err)
	_, err = registry.Lookup(ctx, "boundary")
	assert.NoError(t, err, "a token is still valid at its expiry instant")
}

func TestVerifierWithGormStores_SoftDeletedUser(t *testing.T) {
	db, user := setupRegistryDB(t)
	registry := auth.NewGormRegistry(db)
	users := repositories.NewUserRepository(db)
	cfg := auth.TokenConfig{Secret: testSecret, Issuer: testIssuer, TTL: time.Hour}

	issuer, err := auth.NewIssuer(cfg, registry)
	require.NoError(t, err)
	verifier, err := auth.NewVerifier(cfg, registry, users)
	require.NoError(t, err)

	issued, err := issuer.Issue(context.Background(), user.ID)
	require.NoError(t, err)

	identity, err := verifier.Authenticate(context.Background(), "Bearer "+issued.Token)
	require.NoError(t, err)
	assert.Equal(t, user.UUID, identity.User.UUID)

	require.NoError(t, db.Delete(&models.User{}, user.ID).Error)

	_, err = verifier.Authenticate(context.Background(), "Bearer "+issued.Token)
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
}

func TestVerifier_CanceledContextIsInfrastructureError(t *testing.T) {
	db, user := setupRegistryDB(t)
	registry := auth.NewGormRegistry(db)
	cfg := auth.TokenConfig{Secret: testSecret, Issuer: testIssuer, TTL: time.Hour}

	issuer, err := auth.NewIssuer(cfg, registry)
	require.NoError(t, err)
	verifier, err := auth.NewVerifier(cfg, registry, repositories.NewUserRepository(db))
	require.NoError(t, err)
	issued, err := issuer.Issue(context.Background(), user.ID)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = verifier.Authenticate(ctx, "Bearer "+issued.Token)
	assert.ErrorIs(t, err, auth.ErrInfrastructure)
}

type cachedRegistryFixture struct {
	mr       *miniredis.Miniredis
	backing  *memRegistry
	registry *auth.CachedRegistry
	clock    *fakeClock
}

func newTestRedisCache(t *testing.T, mr *miniredis.Miniredis) *cache.RedisCache {
	t.Helper()
	redisCache := cache.NewRedisCache(&cache.CacheConfig{
		Addr:         mr.Addr(),
		MaxRetries:   -1,
		DialTimeout:  200 * time.Millisecond,
		ReadTimeout:  200 * time.Millisecond,
		WriteTimeout: 200 * time.Millisecond,
	})
	t.Cleanup(func() { redisCache.Close() })
	return redisCache
}

func setupCachedRegistry(t *testing.T) *cachedRegistryFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	redisCache := newTestRedisCache(t, mr)

	clock := newFakeClock()
	backing := newMemRegistry()
	breaker := cache.NewCircuitBreaker(&cache.CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Minute, HalfOpenMaxCalls: 1})
	registry := auth.NewCachedRegistry(backing, redisCache, breaker, 5*time.Minute, zerolog.Nop(), auth.WithClock(clock.Now))

	return &cachedRegistryFixture{mr: mr, backing: backing, registry: registry, clock: clock}
}

func TestCachedRegistry_LookupServedFromCache(t *testing.T) {
	f := setupCachedRegistry(t)
	ctx := context.Background()
	token := &models.UserToken{TokenUUID: "cached", UserID: 42, ExpiresAt: f.clock.Now().Add(time.Hour)}

	require.NoError(t, f.registry.Record(ctx, token))
	assert.True(t, f.mr.Exists("user_token:cached"))
	assert.Equal(t, 5*time.Minute, f.mr.TTL("user_token:cached"))

	found, err := f.registry.Lookup(ctx, "cached")
	require.NoError(t, err)
	assert.Equal(t, uint(42), found.UserID)
	assert.Equal(t, 0, f.backing.lookups)
	assert.EqualValues(t, 1, f.registry.Stats().Hits)
}

func TestCachedRegistry_TTLNeverOutlivesToken(t *testing.T) {
	f := setupCachedRegistry(t)
	token := &models.UserToken{TokenUUID: "short", UserID: 42, ExpiresAt: f.clock.Now().Add(90 * time.Second)}

	require.NoError(t, f.registry.Record(context.Background(), token))

	assert.Equal(t, 90*time.Second, f.mr.TTL("user_token:short"))
}

func TestCachedRegistry_MissFallsThroughAndFills(t *testing.T) {
	f := setupCachedRegistry(t)
	ctx := context.Background()
	f.backing.put(models.UserToken{TokenUUID: "db-only", UserID: 7, ExpiresAt: f.clock.Now().Add(time.Hour)})

	found, err := f.registry.Lookup(ctx, "db-only")
	require.NoError(t, err)
	assert.Equal(t, uint(7), found.UserID)
	assert.True(t, f.mr.Exists("user_token:db-only"))

	_, err = f.registry.Lookup(ctx, "unknown")
	assert.ErrorIs(t, err, auth.ErrTokenNotFound)
}

func TestCachedRegistry_RevokeEvicts(t *testing.T) {
	f := setupCachedRegistry(t)
	ctx := context.Background()
	expires := f.clock.Now().Add(time.Hour)
	require.NoError(t, f.registry.Record(ctx, &models.UserToken{TokenUUID: "one", UserID: 42, ExpiresAt: expires}))
	require.NoError(t, f.registry.Record(ctx, &models.UserToken{TokenUUID: "two", UserID: 42, ExpiresAt: expires}))
	require.NoError(t, f.registry.Record(ctx, &models.UserToken{TokenUUID: "three", UserID: 42, ExpiresAt: expires}))

	require.NoError(t, f.registry.Revoke(ctx, "one"))
	_, err := f.registry.Lookup(ctx, "one")
	assert.ErrorIs(t, err, auth.ErrTokenNotFound)

	ids, err := f.registry.RevokeAll(ctx, 42)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"two", "three"}, ids)
	assert.False(t, f.mr.Exists("user_token:two"))
	assert.False(t, f.mr.Exists("user_token:three"))
}

func TestCachedRegistry_RedisDownFallsBackForReads(t *testing.T) {
	f := setupCachedRegistry(t)
	ctx := context.Background()
	f.backing.put(models.UserToken{TokenUUID: "resilient", UserID: 42, ExpiresAt: f.clock.Now().Add(time.Hour)})
	f.mr.Close()

	found, err := f.registry.Lookup(ctx, "resilient")
	require.NoError(t, err)
	assert.Equal(t, uint(42), found.UserID)
	assert.Equal(t, cache.CircuitBreakerOpen, f.registry.BreakerState())

	found, err = f.registry.Lookup(ctx, "resilient")
	require.NoError(t, err)
	assert.Equal(t, uint(42), found.UserID)
}

func TestCachedRegistry_FailedEvictionFailsRevoke(t *testing.T) {
	f := setupCachedRegistry(t)
	ctx := context.Background()
	f.backing.put(models.UserToken{TokenUUID: "stuck", UserID: 42, ExpiresAt: f.clock.Now().Add(time.Hour)})
	f.mr.Close()

	err := f.registry.Revoke(ctx, "stuck")
	assert.Error(t, err)

	_, err = f.backing.Lookup(ctx, "stuck")
	assert.ErrorIs(t, err, auth.ErrTokenNotFound, "the durable record is removed before eviction")
}

func TestCachedRegistry_FailedEvictionIsInfrastructureError(t *testing.T) {
	f := setupCachedRegistry(t)
	ctx := context.Background()
	f.backing.put(models.UserToken{TokenUUID: "a", UserID: 42, ExpiresAt: f.clock.Now().Add(time.Hour)})
	f.mr.Close()

	err := f.registry.Revoke(ctx, "a")
	assert.ErrorIs(t, err, auth.ErrInfrastructure)

	f.backing.put(models.UserToken{TokenUUID: "b", UserID: 42, ExpiresAt: f.clock.Now().Add(time.Hour)})
	_, err = f.registry.RevokeAll(ctx, 42)
	assert.ErrorIs(t, err, auth.ErrInfrastructure)
}

// slowLookupRegistry holds every Lookup after the backing read until resume
// is closed.
type slowLookupRegistry struct {
	auth.Registry
	read   chan struct{}
	resume chan struct{}
}

func (r *slowLookupRegistry) Lookup(ctx context.Context, tokenUUID string) (*models.UserToken, error) {
	token, err := r.Registry.Lookup(ctx, tokenUUID)
	r.read <- struct{}{}
	<-r.resume
	return token, err
}

func TestCachedRegistry_RevokeDuringLookupIsNotRefilled(t *testing.T) {
	mr := miniredis.RunT(t)
	clock := newFakeClock()
	backing := newMemRegistry()
	backing.put(models.UserToken{TokenUUID: "t1", UserID: 42, ExpiresAt: clock.Now().Add(time.Hour)})
	slow := &slowLookupRegistry{Registry: backing, read: make(chan struct{}, 2), resume: make(chan struct{})}
	registry := auth.NewCachedRegistry(slow, newTestRedisCache(t, mr), nil, 5*time.Minute, zerolog.Nop(), auth.WithClock(clock.Now))
	ctx := context.Background()

	inFlight := make(chan error, 1)
	go func() {
		_, err := registry.Lookup(ctx, "t1")
		inFlight <- err
	}()
	<-slow.read

	require.NoError(t, registry.Revoke(ctx, "t1"))
	close(slow.resume)
	require.NoError(t, <-inFlight, "the request that read the record before logout still completes")

	assert.False(t, mr.Exists("user_token:t1"))
	assert.True(t, mr.Exists("user_token_revoked:t1"))
	assert.Equal(t, 5*time.Minute, mr.TTL("user_token_revoked:t1"))

	_, err := registry.Lookup(ctx, "t1")
	assert.ErrorIs(t, err, auth.ErrTokenNotFound)
	assert.False(t, mr.Exists("user_token:t1"))
}

func TestCachedRegistry_RevokeAllMarksEveryToken(t *testing.T) {
	f := setupCachedRegistry(t)
	ctx := context.Background()
	expires := f.clock.Now().Add(time.Hour)
	f.backing.put(models.UserToken{TokenUUID: "x", UserID: 9, ExpiresAt: expires})
	f.backing.put(models.UserToken{TokenUUID: "y", UserID: 9, ExpiresAt: expires})

	_, err := f.registry.RevokeAll(ctx, 9)
	require.NoError(t, err)

	assert.True(t, f.mr.Exists("user_token_revoked:x"))
	assert.True(t, f.mr.Exists("user_token_revoked:y"))

	// A stale read of a revoked record is not written back.
	f.backing.put(models.UserToken{TokenUUID: "x", UserID: 9, ExpiresAt: expires})
	_, err = f.registry.Lookup(ctx, "x")
	require.NoError(t, err)
	assert.False(t, f.mr.Exists("user_token:x"))
}
