package jwks

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sessionkit/verifytoken/core"
	"github.com/sessionkit/verifytoken/internal/testkeys"
)

const testSecret = "sk_test_provider"

func Test_RemoteProvider(t *testing.T) {
	key := testkeys.RSA(t, "ins_1")

	t.Run("It fetches the key set with the secret key as bearer token", func(t *testing.T) {
		server := testkeys.NewJWKSServer(t, testSecret, key)
		p, err := NewRemoteProvider()
		require.NoError(t, err)

		set, ttl, err := p.Fetch(context.Background(), Endpoint{URL: server.URL + "/v1/jwks", SecretKey: testSecret})
		require.NoError(t, err)
		assert.Equal(t, time.Duration(0), ttl)
		assert.Equal(t, 1, set.Len())

		got, ok := set.LookupKeyID("ins_1")
		require.True(t, ok)
		assert.Equal(t, "ins_1", got.KeyID())
		assert.Equal(t, 1, server.Hits())
	})

	t.Run("It returns the Cache-Control max-age as ttl", func(t *testing.T) {
		server := testkeys.NewJWKSServer(t, testSecret, key)
		server.SetCacheControl("public, max-age=600")
		p, err := NewRemoteProvider()
		require.NoError(t, err)

		_, ttl, err := p.Fetch(context.Background(), Endpoint{URL: server.URL + "/v1/jwks", SecretKey: testSecret})
		require.NoError(t, err)
		assert.Equal(t, 10*time.Minute, ttl)
	})

	testCases := []struct {
		name     string
		setup    func(s *testkeys.JWKSServer)
		secret   string
		wantCode core.Code
	}{
		{
			name:     "wrong secret is an auth error",
			secret:   "sk_wrong",
			wantCode: core.CodeAuthError,
		},
		{
			name:     "forbidden is an auth error",
			setup:    func(s *testkeys.JWKSServer) { s.SetStatus(http.StatusForbidden) },
			secret:   testSecret,
			wantCode: core.CodeAuthError,
		},
		{
			name:     "server error is a network error",
			setup:    func(s *testkeys.JWKSServer) { s.SetStatus(http.StatusInternalServerError) },
			secret:   testSecret,
			wantCode: core.CodeNetworkError,
		},
		{
			name:     "invalid json is a network error",
			setup:    func(s *testkeys.JWKSServer) { s.SetRawPayload("{not json") },
			secret:   testSecret,
			wantCode: core.CodeNetworkError,
		},
		{
			name:     "missing secret is a configuration error",
			secret:   "",
			wantCode: core.CodeMissingKeyConfiguration,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := testkeys.NewJWKSServer(t, testSecret, key)
			if tc.setup != nil {
				tc.setup(server)
			}
			p, err := NewRemoteProvider()
			require.NoError(t, err)

			_, _, err = p.Fetch(context.Background(), Endpoint{URL: server.URL + "/v1/jwks", SecretKey: tc.secret})
			require.Error(t, err)
			code, ok := core.CodeOf(err)
			require.True(t, ok)
			assert.Equal(t, tc.wantCode, code)
		})
	}

	t.Run("It times out slow backends", func(t *testing.T) {
		server := testkeys.NewJWKSServer(t, testSecret, key)
		server.SetDelay(time.Second)
		p, err := NewRemoteProvider(WithFetchTimeout(50 * time.Millisecond))
		require.NoError(t, err)

		start := time.Now()
		_, _, err = p.Fetch(context.Background(), Endpoint{URL: server.URL + "/v1/jwks", SecretKey: testSecret})
		assert.ErrorIs(t, err, core.ErrTimeout)
		assert.ErrorIs(t, err, core.ErrTransport)
		assert.Less(t, time.Since(start), 900*time.Millisecond)
	})

	t.Run("It reports unreachable hosts as network errors", func(t *testing.T) {
		server := testkeys.NewJWKSServer(t, testSecret, key)
		url := server.URL
		server.Close()

		p, err := NewRemoteProvider()
		require.NoError(t, err)

		_, _, err = p.Fetch(context.Background(), Endpoint{URL: url + "/v1/jwks", SecretKey: testSecret})
		assert.ErrorIs(t, err, core.ErrNetwork)
	})

	t.Run("Option validation", func(t *testing.T) {
		_, err := NewRemoteProvider(WithHTTPClient(nil))
		assert.ErrorContains(t, err, "HTTP client cannot be nil")

		_, err = NewRemoteProvider(WithFetchTimeout(0))
		assert.ErrorContains(t, err, "fetch timeout must be positive")
	})
}

func Test_parseCacheControl(t *testing.T) {
	testCases := []struct {
		header string
		want   time.Duration
	}{
		{"max-age=3600", time.Hour},
		{"public, max-age=60, must-revalidate", time.Minute},
		{"no-cache", 0},
		{"max-age=abc", 0},
		{"max-age=-5", 0},
		{"max-age=0", 0},
		{"max-age=604801", 0},
		{"max-age=604800", 7 * 24 * time.Hour},
	}

	for _, tc := range testCases {
		t.Run(tc.header, func(t *testing.T) {
			assert.Equal(t, tc.want, parseCacheControl(tc.header))
		})
	}
}
