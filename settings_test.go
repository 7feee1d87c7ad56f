package newsapi

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSettingsRoundTripOverStore(t *testing.T) {
	s := NewSettings(setupTestStore(t))
	ctx := context.Background()

	key, err := s.AuthKey(ctx)
	require.NoError(t, err)
	require.Equal(t, "", key)

	for _, want := range []string{"abc", "  spaced  ", "ünïcode", ""} {
		require.NoError(t, s.SetAuthKey(ctx, want))
		got, err := s.AuthKey(ctx)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestRedisSettingsUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedisSettings(ctx, SettingsConfig{Backend: "redis", RedisAddr: "127.0.0.1:1"})
	require.ErrorContains(t, err, "ping redis 127.0.0.1:1")
}

// TestRedisSettings runs against a live server when NEWSAPI_TEST_REDIS_ADDR
// is set.
func TestRedisSettings(t *testing.T) {
	addr := os.Getenv("NEWSAPI_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("NEWSAPI_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()

	rs, err := NewRedisSettings(ctx, SettingsConfig{Backend: "redis", RedisAddr: addr, RedisDB: 15})
	require.NoError(t, err)
	t.Cleanup(func() {
		rs.rdb.Del(context.Background(), SettingsNamespace)
		rs.Close()
	})

	s := NewSettings(rs)
	key, err := s.AuthKey(ctx)
	require.NoError(t, err)
	require.Equal(t, "", key)

	require.NoError(t, s.SetAuthKey(ctx, "from-redis"))
	key, err = s.AuthKey(ctx)
	require.NoError(t, err)
	require.Equal(t, "from-redis", key)
	require.NoError(t, rs.Ping(ctx))
}
