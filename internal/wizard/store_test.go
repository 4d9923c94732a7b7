// internal/wizard/store_test.go
package wizard

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oikos-server/internal/common/database"
	stderrors "oikos-server/internal/common/errors"
)

func newTestStore(t *testing.T, ttl time.Duration) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := &database.RedisClient{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { rdb.Close() })

	return NewSessionStore(rdb, ttl), mr
}

func TestSessionStore_SaveLoadRoundtrip(t *testing.T) {
	store, _ := newTestStore(t, time.Minute)
	ctx := context.Background()

	def := testFlow()
	sess := NewSession("sess-rt", def, "user-9")
	sess.Fields["title"] = StringValue("Cozy Cottage")
	sess.CurrentStep = 2

	require.NoError(t, store.Save(ctx, sess))

	loaded, err := store.Load(ctx, "sess-rt")
	require.NoError(t, err)
	assert.Equal(t, "sess-rt", loaded.ID)
	assert.Equal(t, "test-flow", loaded.Flow)
	assert.Equal(t, "user-9", loaded.UserID)
	assert.Equal(t, 2, loaded.CurrentStep)
	assert.Equal(t, StringValue("Cozy Cottage"), loaded.Fields["title"])
}

func TestSessionStore_LoadMissing(t *testing.T) {
	store, _ := newTestStore(t, time.Minute)

	_, err := store.Load(context.Background(), "no-such-session")

	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeSessionNotFound, stderrors.AsStandard(err).Code)
}

func TestSessionStore_ExpiryDiscardsSession(t *testing.T) {
	store, mr := newTestStore(t, 30*time.Second)
	ctx := context.Background()

	sess := NewSession("sess-exp", testFlow(), "")
	require.NoError(t, store.Save(ctx, sess))

	mr.FastForward(31 * time.Second)

	_, err := store.Load(ctx, "sess-exp")
	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeSessionNotFound, stderrors.AsStandard(err).Code)
}

func TestSessionStore_SaveRefreshesTTL(t *testing.T) {
	store, mr := newTestStore(t, 30*time.Second)
	ctx := context.Background()

	sess := NewSession("sess-ttl", testFlow(), "")
	require.NoError(t, store.Save(ctx, sess))

	mr.FastForward(20 * time.Second)
	require.NoError(t, store.Save(ctx, sess))
	mr.FastForward(20 * time.Second)

	// 40s elapsed in total but the second save restarted the clock.
	_, err := store.Load(ctx, "sess-ttl")
	require.NoError(t, err)
}

func TestSessionStore_Delete(t *testing.T) {
	store, _ := newTestStore(t, time.Minute)
	ctx := context.Background()

	sess := NewSession("sess-del", testFlow(), "")
	require.NoError(t, store.Save(ctx, sess))
	require.NoError(t, store.Delete(ctx, "sess-del"))

	_, err := store.Load(ctx, "sess-del")
	require.Error(t, err)

	// Deleting an already-absent session is not an error.
	require.NoError(t, store.Delete(ctx, "sess-del"))
}
