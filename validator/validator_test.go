package validator

import (
	"context"
	"encoding/base64"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sessionkit/verifytoken/core"
	"github.com/sessionkit/verifytoken/internal/testkeys"
	"github.com/sessionkit/verifytoken/jwks"
	"github.com/sessionkit/verifytoken/options"
)

const testSecret = "sk_test_validator"

type countingCache struct {
	jwks.KeyCache
	invalidations atomic.Int64
}

func (c *countingCache) Invalidate(ctx context.Context, k jwks.CacheKey) error {
	c.invalidations.Add(1)
	return c.KeyCache.Invalidate(ctx, k)
}

type recordingMetrics struct {
	mu         sync.Mutex
	counters   []map[string]string
	histograms int
}

func (m *recordingMetrics) IncCounter(name string, tags map[string]string) {
	if name != core.MetricVerifications {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = append(m.counters, tags)
}

func (m *recordingMetrics) ObserveHistogram(name string, _ float64, _ map[string]string) {
	if name != core.MetricVerifyDuration {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms++
}

type fixture struct {
	server *testkeys.JWKSServer
	cache  *countingCache
	v      *Validator
}

func newFixture(t *testing.T, keys ...*testkeys.Key) *fixture {
	t.Helper()
	server := testkeys.NewJWKSServer(t, testSecret, keys...)
	cache := &countingCache{KeyCache: jwks.NewMemoryCache()}
	resolver, err := jwks.NewResolver(jwks.WithCache(cache))
	require.NoError(t, err)
	v, err := New(WithResolver(resolver))
	require.NoError(t, err)
	return &fixture{server: server, cache: cache, v: v}
}

func (f *fixture) remoteOptions(t *testing.T, opts ...options.Option) *options.VerifyTokenOptions {
	t.Helper()
	o, err := options.FromSecretKey(testSecret, append([]options.Option{options.WithAPIURL(f.server.URL)}, opts...)...)
	require.NoError(t, err)
	return o
}

func validClaims() jwtv5.MapClaims {
	now := time.Now()
	return jwtv5.MapClaims{
		"sub": "user_123",
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": now.Add(time.Minute).Unix(),
	}
}

func TestValidator_Verify_RoundTrip(t *testing.T) {
	key := testkeys.RSA(t, "ins_1")
	now := time.Now().Truncate(time.Second)

	token := key.SignGolangJWT(t, jwtv5.MapClaims{
		"sub":    "user_123",
		"iss":    "https://clerk.example.com",
		"aud":    "api",
		"azp":    "https://app.example.com",
		"sid":    "sess_456",
		"jti":    "tok_789",
		"iat":    now.Unix(),
		"nbf":    now.Unix(),
		"exp":    now.Add(time.Minute).Unix(),
		"org_id": "org_1",
		"tier":   3,
	})

	want := &Claims{
		Subject:         "user_123",
		Issuer:          "https://clerk.example.com",
		Audience:        []string{"api"},
		AuthorizedParty: "https://app.example.com",
		SessionID:       "sess_456",
		ID:              "tok_789",
		IssuedAt:        now,
		NotBefore:       now,
		ExpiresAt:       now.Add(time.Minute),
		Extra:           map[string]any{"org_id": "org_1", "tier": float64(3)},
	}

	t.Run("networkless", func(t *testing.T) {
		f := newFixture(t)
		opts, err := options.FromJWTKey(key.PublicPEM(t),
			options.WithAudience("api"),
			options.WithAuthorizedParty("https://app.example.com"),
		)
		require.NoError(t, err)

		got, err := f.v.Verify(context.Background(), token, opts)
		require.NoError(t, err)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("claims mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("remote", func(t *testing.T) {
		f := newFixture(t, key)
		got, err := f.v.Verify(context.Background(), token, f.remoteOptions(t, options.WithAudience("api")))
		require.NoError(t, err)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("claims mismatch (-want +got):\n%s", diff)
		}
		assert.Equal(t, 1, f.server.Hits())
	})

	t.Run("ec key signed by jwx", func(t *testing.T) {
		ecKey := testkeys.EC(t, "ins_ec")
		f := newFixture(t, ecKey)
		ecToken := ecKey.Sign(t, map[string]any{
			"sub": "user_123",
			"exp": time.Now().Add(time.Minute),
		})

		got, err := f.v.Verify(context.Background(), ecToken, f.remoteOptions(t))
		require.NoError(t, err)
		assert.Equal(t, "user_123", got.Subject)
	})
}

func TestValidator_Verify_Networkless(t *testing.T) {
	key := testkeys.RSA(t, "ins_1")
	token := key.SignGolangJWT(t, validClaims())

	f := newFixture(t, key)
	staticOpts := f.remoteOptions(t, options.WithJWTKey(key.PublicPEM(t)))

	unprimed, err := f.v.Verify(context.Background(), token, staticOpts)
	require.NoError(t, err)
	assert.Equal(t, 0, f.server.Hits())

	// Prime the cache for the same kid through remote mode.
	_, err = f.v.Verify(context.Background(), token, f.remoteOptions(t))
	require.NoError(t, err)
	require.Equal(t, 1, f.server.Hits())

	primed, err := f.v.Verify(context.Background(), token, staticOpts)
	require.NoError(t, err)
	assert.Equal(t, 1, f.server.Hits())
	if diff := cmp.Diff(unprimed, primed); diff != "" {
		t.Errorf("primed and unprimed results differ (-unprimed +primed):\n%s", diff)
	}

	t.Run("wrong static key is never refreshed", func(t *testing.T) {
		other := testkeys.RSA(t, "ins_1")
		opts, err := options.FromSecretKey(testSecret,
			options.WithAPIURL(f.server.URL),
			options.WithJWTKey(other.PublicPEM(t)),
		)
		require.NoError(t, err)

		_, err = f.v.Verify(context.Background(), token, opts)
		assert.ErrorIs(t, err, core.ErrSignatureInvalid)
		assert.Equal(t, 1, f.server.Hits())
	})

	t.Run("static key works without kid", func(t *testing.T) {
		anon := testkeys.RSA(t, "")
		opts, err := options.FromJWTKey(anon.PublicPEM(t))
		require.NoError(t, err)

		_, err = f.v.Verify(context.Background(), anon.SignGolangJWT(t, validClaims()), opts)
		assert.NoError(t, err)
	})
}

func TestValidator_Verify_Rotation(t *testing.T) {
	oldKey := testkeys.RSA(t, "ins_1")
	newKey := testkeys.RSA(t, "ins_1")

	t.Run("rotated key is picked up after one refresh", func(t *testing.T) {
		f := newFixture(t, oldKey)
		opts := f.remoteOptions(t)

		_, err := f.v.Verify(context.Background(), oldKey.SignGolangJWT(t, validClaims()), opts)
		require.NoError(t, err)

		f.server.SetKeys(t, newKey)

		_, err = f.v.Verify(context.Background(), newKey.SignGolangJWT(t, validClaims()), opts)
		require.NoError(t, err)
		assert.Equal(t, int64(1), f.cache.invalidations.Load())
		assert.Equal(t, 2, f.server.Hits())
	})

	t.Run("bad signature fails after exactly one refresh", func(t *testing.T) {
		f := newFixture(t, oldKey)
		opts := f.remoteOptions(t)

		_, err := f.v.Verify(context.Background(), oldKey.SignGolangJWT(t, validClaims()), opts)
		require.NoError(t, err)

		_, err = f.v.Verify(context.Background(), newKey.SignGolangJWT(t, validClaims()), opts)
		assert.ErrorIs(t, err, core.ErrSignatureInvalid)
		assert.Equal(t, int64(1), f.cache.invalidations.Load())
		assert.Equal(t, 2, f.server.Hits())
	})

	t.Run("freshly fetched key is not refreshed", func(t *testing.T) {
		f := newFixture(t, oldKey)

		_, err := f.v.Verify(context.Background(), newKey.SignGolangJWT(t, validClaims()), f.remoteOptions(t))
		assert.ErrorIs(t, err, core.ErrSignatureInvalid)
		assert.Equal(t, int64(0), f.cache.invalidations.Load())
		assert.Equal(t, 1, f.server.Hits())
	})

	t.Run("refresh transport error is reported", func(t *testing.T) {
		f := newFixture(t, oldKey)
		opts := f.remoteOptions(t)

		_, err := f.v.Verify(context.Background(), oldKey.SignGolangJWT(t, validClaims()), opts)
		require.NoError(t, err)

		f.server.SetKeys(t)
		_, err = f.v.Verify(context.Background(), newKey.SignGolangJWT(t, validClaims()), opts)
		assert.ErrorIs(t, err, core.ErrKeyNotFound)
	})
}

func TestValidator_Verify_Concurrent(t *testing.T) {
	key := testkeys.RSA(t, "ins_1")
	f := newFixture(t, key)
	f.server.SetDelay(100 * time.Millisecond)
	opts := f.remoteOptions(t)
	token := key.SignGolangJWT(t, validClaims())

	const n = 25
	var wg sync.WaitGroup
	errs := make([]error, n)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = f.v.Verify(context.Background(), token, opts)
		}(i)
	}
	close(start)
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, f.server.Hits())
}

func TestValidator_Verify_Errors(t *testing.T) {
	key := testkeys.RSA(t, "ins_1")
	b64 := base64.RawURLEncoding.EncodeToString

	testCases := []struct {
		name     string
		token    func(t *testing.T) string
		opts     func(t *testing.T, f *fixture) *options.VerifyTokenOptions
		wantCode core.Code
		wantHits int
	}{
		{
			name:     "not a jws",
			token:    func(*testing.T) string { return "not-a-token" },
			wantCode: core.CodeMalformedToken,
		},
		{
			name:     "undecodable segments",
			token:    func(*testing.T) string { return "a.b.c" },
			wantCode: core.CodeMalformedToken,
		},
		{
			name: "missing key configuration",
			token: func(t *testing.T) string {
				return key.SignGolangJWT(t, validClaims())
			},
			opts: func(t *testing.T, f *fixture) *options.VerifyTokenOptions {
				o, err := options.New(options.Params{
					SecretKey:   options.None[string]().Ptr(),
					JWTKey:      options.None[string]().Ptr(),
					Audience:    options.None[string]().Ptr(),
					ClockSkewMs: options.None[int64]().Ptr(),
					APIURL:      options.Some(f.server.URL).Ptr(),
					APIVersion:  options.None[string]().Ptr(),
				})
				require.NoError(t, err)
				return o
			},
			wantCode: core.CodeMissingKeyConfiguration,
		},
		{
			name: "invalid jwt key",
			token: func(t *testing.T) string {
				return key.SignGolangJWT(t, validClaims())
			},
			opts: func(t *testing.T, f *fixture) *options.VerifyTokenOptions {
				o, err := options.FromJWTKey("-----BEGIN PUBLIC KEY-----\nAAAA\n-----END PUBLIC KEY-----")
				require.NoError(t, err)
				return o
			},
			wantCode: core.CodeInvalidKeyFormat,
		},
		{
			name: "hmac is refused",
			token: func(t *testing.T) string {
				return testkeys.SignHMAC(t, []byte(testSecret), "ins_1", validClaims())
			},
			wantCode: core.CodeUnsupportedAlgorithm,
		},
		{
			name: "alg none is refused",
			token: func(*testing.T) string {
				return b64([]byte(`{"alg":"none","kid":"ins_1"}`)) + "." + b64([]byte(`{"sub":"user_123"}`)) + "." + b64([]byte("sig"))
			},
			wantCode: core.CodeUnsupportedAlgorithm,
		},
		{
			name: "missing kid in remote mode",
			token: func(t *testing.T) string {
				return testkeys.RSA(t, "").SignGolangJWT(t, validClaims())
			},
			wantCode: core.CodeMalformedToken,
		},
		{
			name: "unknown kid",
			token: func(t *testing.T) string {
				return testkeys.RSA(t, "ins_unknown").SignGolangJWT(t, validClaims())
			},
			wantCode: core.CodeKeyNotFound,
			wantHits: 1,
		},
		{
			name: "rejected secret key",
			token: func(t *testing.T) string {
				return key.SignGolangJWT(t, validClaims())
			},
			opts: func(t *testing.T, f *fixture) *options.VerifyTokenOptions {
				o, err := options.FromSecretKey("sk_revoked", options.WithAPIURL(f.server.URL))
				require.NoError(t, err)
				return o
			},
			wantCode: core.CodeAuthError,
			wantHits: 1,
		},
		{
			name: "missing azp with a party set",
			token: func(t *testing.T) string {
				return key.SignGolangJWT(t, validClaims())
			},
			opts: func(t *testing.T, f *fixture) *options.VerifyTokenOptions {
				return f.remoteOptions(t, options.WithAuthorizedParty("https://app.example.com"))
			},
			wantCode: core.CodeUnauthorizedParty,
			wantHits: 1,
		},
		{
			name: "exp is not a number",
			token: func(t *testing.T) string {
				c := validClaims()
				c["exp"] = "tomorrow"
				return key.SignGolangJWT(t, c)
			},
			wantCode: core.CodeMalformedClaims,
			wantHits: 1,
		},
		{
			name: "azp is not a string",
			token: func(t *testing.T) string {
				c := validClaims()
				c["azp"] = 42
				return key.SignGolangJWT(t, c)
			},
			wantCode: core.CodeMalformedClaims,
			wantHits: 1,
		},
		{
			name: "expired",
			token: func(t *testing.T) string {
				c := validClaims()
				c["exp"] = time.Now().Add(-time.Minute).Unix()
				return key.SignGolangJWT(t, c)
			},
			wantCode: core.CodeTokenExpired,
			wantHits: 1,
		},
		{
			name: "unauthorized party",
			token: func(t *testing.T) string {
				c := validClaims()
				c["azp"] = "https://evil.example.com"
				return key.SignGolangJWT(t, c)
			},
			opts: func(t *testing.T, f *fixture) *options.VerifyTokenOptions {
				return f.remoteOptions(t, options.WithAuthorizedParty("https://app.example.com"))
			},
			wantCode: core.CodeUnauthorizedParty,
			wantHits: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, key)
			opts := f.remoteOptions(t)
			if tc.opts != nil {
				opts = tc.opts(t, f)
			}

			claims, err := f.v.Verify(context.Background(), tc.token(t), opts)
			assert.Nil(t, claims)

			code, ok := core.CodeOf(err)
			require.True(t, ok, "expected a VerificationError, got %v", err)
			assert.Equal(t, tc.wantCode, code)
			assert.Equal(t, tc.wantHits, f.server.Hits())
		})
	}
}

func TestValidator_Verify_WithoutSubject(t *testing.T) {
	key := testkeys.RSA(t, "ins_1")
	f := newFixture(t, key)

	c := validClaims()
	delete(c, "sub")

	got, err := f.v.Verify(context.Background(), key.SignGolangJWT(t, c), f.remoteOptions(t))
	require.NoError(t, err)
	assert.Empty(t, got.Subject)
	assert.False(t, got.ExpiresAt.IsZero())
}

func TestValidator_Verify_ClockSkewBoundary(t *testing.T) {
	key := testkeys.RSA(t, "")
	exp := time.Unix(1_700_000_000, 0)
	token := key.SignGolangJWT(t, jwtv5.MapClaims{"sub": "user_123", "exp": exp.Unix()})
	opts, err := options.FromJWTKey(key.PublicPEM(t))
	require.NoError(t, err)

	verifyAt := func(now time.Time) error {
		v, err := New(WithClock(func() time.Time { return now }))
		require.NoError(t, err)
		_, err = v.Verify(context.Background(), token, opts)
		return err
	}

	assert.NoError(t, verifyAt(exp.Add(5000*time.Millisecond)))
	assert.ErrorIs(t, verifyAt(exp.Add(5001*time.Millisecond)), core.ErrTokenExpired)
}

func TestValidator_Metrics(t *testing.T) {
	key := testkeys.RSA(t, "")
	opts, err := options.FromJWTKey(key.PublicPEM(t))
	require.NoError(t, err)

	metrics := &recordingMetrics{}
	v, err := New(WithMetrics(metrics))
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), key.SignGolangJWT(t, validClaims()), opts)
	require.NoError(t, err)

	expired := validClaims()
	expired["exp"] = time.Now().Add(-time.Hour).Unix()
	_, err = v.Verify(context.Background(), key.SignGolangJWT(t, expired), opts)
	require.Error(t, err)

	assert.Equal(t, []map[string]string{
		{"result": "valid", "code": ""},
		{"result": "invalid", "code": "token_expired"},
	}, metrics.counters)
	assert.Equal(t, 2, metrics.histograms)
}

func TestBound(t *testing.T) {
	key := testkeys.RSA(t, "")
	opts, err := options.FromJWTKey(key.PublicPEM(t))
	require.NoError(t, err)

	v, err := New()
	require.NoError(t, err)

	var verifier core.TokenVerifier = v.Bind(opts)
	claims, err := verifier.VerifyToken(context.Background(), key.SignGolangJWT(t, validClaims()))
	require.NoError(t, err)
	assert.Equal(t, "user_123", claims.(*Claims).Subject)

	claims, err = verifier.VerifyToken(context.Background(), "garbage")
	assert.ErrorIs(t, err, core.ErrMalformedToken)
	assert.Nil(t, claims)
	assert.Same(t, opts, v.Bind(opts).Options())
}
