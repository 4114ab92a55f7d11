package redis

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synapse-service/internal/client"
	"synapse-service/internal/models"
)

func newTestCache(t *testing.T) (*SessionCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc, err := client.NewRedisClientWithOptions(&goredis.Options{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { rc.Close() })
	return NewSessionCache(rc), mr
}

func TestNewSessionIDIsAlnum(t *testing.T) {
	id := NewSessionID()
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}$`), id)
	assert.NotEqual(t, id, NewSessionID())
}

func TestSessionCache_SaveGetDestroy(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	s := &models.Session{SessionID: "abc", UserID: "1000", CompanyID: "5", DeviceID: "dev1", CreatedAt: time.Now().UTC()}
	require.NoError(t, cache.Save(ctx, s, time.Hour))
	require.NoError(t, cache.SetIdentity(ctx, "abc", "1000", time.Hour))

	assert.True(t, mr.Exists("synapse_session:abc"))
	assert.Equal(t, time.Hour, mr.TTL("synapse_session:abc"))

	got, err := cache.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "1000", got.UserID)
	assert.Equal(t, "dev1", got.DeviceID)

	identity, err := cache.GetIdentity(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "1000", identity)

	require.NoError(t, cache.Destroy(ctx, "abc"))
	_, err = cache.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = cache.GetIdentity(ctx, "abc")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionCache_RegenerateDestroysOld(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Save(ctx, &models.Session{SessionID: "old"}, time.Hour))

	id, err := cache.Regenerate(ctx, "old")
	require.NoError(t, err)
	assert.NotEqual(t, "old", id)
	assert.False(t, mr.Exists("synapse_session:old"))
}

func TestSessionCache_Expiry(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Save(ctx, &models.Session{SessionID: "ttl"}, time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := cache.Get(ctx, "ttl")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &models.Session{SessionID: "m1", UserID: "7"}, time.Minute))
	require.NoError(t, store.SetIdentity(ctx, "m1", "7", time.Minute))

	got, err := store.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "7", got.UserID)

	now = now.Add(2 * time.Minute)
	_, err = store.Get(ctx, "m1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, store.Save(ctx, &models.Session{SessionID: "m2"}, time.Minute))
	id, err := store.Regenerate(ctx, "m2")
	require.NoError(t, err)
	assert.Len(t, id, 32)
	_, err = store.GetIdentity(ctx, "m2")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
