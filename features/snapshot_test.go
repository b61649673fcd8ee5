package features

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fetcherFunc func(ctx context.Context) ([]byte, error)

func (f fetcherFunc) FetchConfig(ctx context.Context) ([]byte, error) {
	return f(ctx)
}

func countingFetcher(calls *atomic.Int32, body string, err error) Fetcher {
	return fetcherFunc(func(context.Context) ([]byte, error) {
		calls.Add(1)
		return []byte(body), err
	})
}

func TestSnapshot_DefaultsBeforeLoad(t *testing.T) {
	s := NewSnapshot(Defaults, nil)

	assert.True(t, s.Loading())
	assert.Equal(t, Defaults, s.Get())
}

func TestSnapshot_Success(t *testing.T) {
	var calls atomic.Int32
	s := NewSnapshot(Defaults, nil)

	s.Load(context.Background(), countingFetcher(&calls,
		`{"success":true,"data":{"app_name":"Pocket","wallet_enabled":true}}`, nil))

	assert.False(t, s.Loading())
	assert.Equal(t, Features{AppName: "Pocket", WalletEnabled: true}, s.Get())
}

func TestSnapshot_PartialPayload(t *testing.T) {
	var calls atomic.Int32
	defaults := Features{AppName: "Wallet", WalletEnabled: true}
	s := NewSnapshot(defaults, nil)

	s.Load(context.Background(), countingFetcher(&calls, `{"app_name":"Pocket"}`, nil))

	assert.False(t, s.Loading())
	assert.Equal(t, Features{AppName: "Pocket", WalletEnabled: true}, s.Get())
}

func TestSnapshot_WrongTypesKeepDefaults(t *testing.T) {
	var calls atomic.Int32
	s := NewSnapshot(Defaults, nil)

	s.Load(context.Background(), countingFetcher(&calls,
		`{"data":{"app_name":42,"wallet_enabled":"yes"}}`, nil))

	assert.Equal(t, Defaults, s.Get())
}

func TestSnapshot_FallbackWithoutRetry(t *testing.T) {
	cases := map[string]struct {
		body string
		err  error
	}{
		"fetch error":   {err: errors.New("dial tcp: timeout")},
		"malformed":     {body: `{"app_name": "Pocket"`},
		"success false": {body: `{"success":false,"data":{"app_name":"Pocket"}}`},
		"not an object": {body: `["Pocket"]`},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var calls atomic.Int32
			s := NewSnapshot(Defaults, nil)
			f := countingFetcher(&calls, tc.body, tc.err)

			s.Load(context.Background(), f)
			s.Load(context.Background(), f)
			s.Start(context.Background(), f)

			assert.False(t, s.Loading())
			assert.Equal(t, Defaults, s.Get())
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestSnapshot_StartIsAsync(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32

	s := NewSnapshot(Defaults, nil)
	s.Start(context.Background(), fetcherFunc(func(context.Context) ([]byte, error) {
		calls.Add(1)
		<-release
		return []byte(`{"app_name":"Pocket"}`), nil
	}))

	assert.True(t, s.Loading())
	assert.Equal(t, Defaults, s.Get())

	close(release)

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("snapshot never finished loading")
	}

	require.False(t, s.Loading())
	assert.Equal(t, "Pocket", s.Get().AppName)
	assert.Equal(t, int32(1), calls.Load())
}
