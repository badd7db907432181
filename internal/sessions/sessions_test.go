package sessions

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/shared"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// testStore runs the behavior every [Store] backend shares.
func testStore(t *testing.T, store Store) {
	ctx := context.Background()
	cred := &models.Credential{AccessToken: "at", RefreshToken: "rt", TokenType: "Bearer", Scope: "a b", ExpiresIn: 3600, IssuedAt: 1700000000}

	t.Run("Get Missing", func(t *testing.T) {
		_, err := store.Get(ctx, "missing")
		require.ErrorIs(t, err, shared.ErrSessionNotFound)
	})

	t.Run("Set And Get", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "s1", cred))

		got, err := store.Get(ctx, "s1")
		require.NoError(t, err)
		require.Equal(t, *cred, *got)
	})

	t.Run("Set Replaces", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "s1", &models.Credential{AccessToken: "at-2", TokenType: "Bearer"}))

		got, err := store.Get(ctx, "s1")
		require.NoError(t, err)
		require.Equal(t, "at-2", got.AccessToken)
		require.Empty(t, got.RefreshToken)
	})

	t.Run("Returned Record Is A Copy", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "s2", cred))

		got, err := store.Get(ctx, "s2")
		require.NoError(t, err)
		got.AccessToken = "mutated"

		again, err := store.Get(ctx, "s2")
		require.NoError(t, err)
		require.Equal(t, "at", again.AccessToken)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "s3", cred))
		require.NoError(t, store.Delete(ctx, "s3"))

		_, err := store.Get(ctx, "s3")
		require.ErrorIs(t, err, shared.ErrSessionNotFound)

		require.NoError(t, store.Delete(ctx, "s3"), "deleting twice should not fail")
	})

	t.Run("Set Requires Session ID", func(t *testing.T) {
		require.ErrorIs(t, store.Set(ctx, "", cred), shared.ErrBadRequest)
	})

	t.Run("Concurrent Sessions", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := range 10 {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id := fmt.Sprintf("concurrent-%d", i)
				c := &models.Credential{AccessToken: id}
				if err := store.Set(ctx, id, c); err != nil {
					t.Errorf("set %s: %v", id, err)
				}
			}(i)
		}
		wg.Wait()

		for i := range 10 {
			id := fmt.Sprintf("concurrent-%d", i)
			got, err := store.Get(ctx, id)
			require.NoError(t, err)
			require.Equal(t, id, got.AccessToken)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	testStore(t, store)

	require.Positive(t, store.Len())
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := NewRedisStore(client, "", 0)
	testStore(t, store)

	t.Run("Hash Layout", func(t *testing.T) {
		ctx := context.Background()
		require.NoError(t, store.Set(ctx, "layout", &models.Credential{AccessToken: "at", RefreshToken: "rt", ExpiresIn: 60}))

		require.True(t, mr.Exists("plsync-sess:layout"))
		require.Equal(t, "rt", mr.HGet("plsync-sess:layout", "refresh_token"))
		require.Equal(t, "60", mr.HGet("plsync-sess:layout", "expires_in"))
	})

	t.Run("Corrupt Record", func(t *testing.T) {
		mr.HSet("plsync-sess:corrupt", "access_token", "at", "expires_in", "soon")

		_, err := store.Get(context.Background(), "corrupt")
		require.ErrorIs(t, err, shared.ErrSessionInvalid)
	})

	t.Run("TTL", func(t *testing.T) {
		ttlStore := NewRedisStore(client, "ttl", time.Minute)
		ctx := context.Background()
		require.NoError(t, ttlStore.Set(ctx, "s", &models.Credential{AccessToken: "at"}))

		mr.FastForward(2 * time.Minute)

		_, err := ttlStore.Get(ctx, "s")
		require.ErrorIs(t, err, shared.ErrSessionNotFound)
	})

	t.Run("OpenRedisStore", func(t *testing.T) {
		opened, err := OpenRedisStore(context.Background(), "redis://"+mr.Addr(), "opened")
		require.NoError(t, err)
		defer opened.Close()

		require.Equal(t, "opened:x", opened.key("x"))
	})

	t.Run("OpenRedisStore Bad URL", func(t *testing.T) {
		_, err := OpenRedisStore(context.Background(), "not a url", "")
		require.ErrorIs(t, err, shared.ErrInvalidConfig)
	})
}
