package cache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/m-2-h/TextSecure-Server/internal/storage/cache"
)

func TestNewRedisClient_FailsFastWhenUnreachable(t *testing.T) {
	start := time.Now()
	_, err := cache.NewRedisClient(cache.RedisConfig{
		// Port 1 is reserved and nothing listens there.
		Addr:        "127.0.0.1:1",
		PingTimeout: 200 * time.Millisecond,
	})

	require.Error(t, err)
	require.Less(t, time.Since(start), 5*time.Second)
}
