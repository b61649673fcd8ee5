package redis

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/alexlup06-authgate/walletgate/storage/storagetest"
)

func TestStore_Conformance(t *testing.T) {
	url := os.Getenv("WALLETGATE_REDIS_URL")
	if url == "" {
		t.Skip("WALLETGATE_REDIS_URL not set")
	}

	s, err := New(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	storagetest.Run(t, s)
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New(context.Background(), "://not-a-url")
	require.Error(t, err)
}

func TestNewFromClient_Conformance(t *testing.T) {
	url := os.Getenv("WALLETGATE_REDIS_URL")
	if url == "" {
		t.Skip("WALLETGATE_REDIS_URL not set")
	}

	opts, err := redis.ParseURL(url)
	require.NoError(t, err)

	s := NewFromClient(redis.NewClient(opts))
	t.Cleanup(func() { _ = s.Close() })

	storagetest.Run(t, s)
}
