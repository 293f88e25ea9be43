package jwks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/sessionkit/verifytoken/core"
)

const (
	// DefaultFetchTimeout bounds a single JWKS request.
	DefaultFetchTimeout = 5 * time.Second

	// 1MB is generous for a JWKS (typically <10KB).
	maxJWKSBodySize = 1 * 1024 * 1024
)

// Fetcher retrieves the key set published at an endpoint together with a
// freshness hint (zero when the backend gave none).
type Fetcher interface {
	Fetch(ctx context.Context, ep Endpoint) (jwk.Set, time.Duration, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, ep Endpoint) (jwk.Set, time.Duration, error)

// Fetch calls f(ctx, ep).
func (f FetcherFunc) Fetch(ctx context.Context, ep Endpoint) (jwk.Set, time.Duration, error) {
	return f(ctx, ep)
}

// RemoteProvider fetches signing keys from the backend API's JWKS endpoint,
// authenticating with the secret key as a bearer token.
type RemoteProvider struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
}

// NewRemoteProvider builds a RemoteProvider.
//
// Optional options:
//   - WithHTTPClient: custom HTTP client (default: http.DefaultTransport, no client timeout)
//   - WithFetchTimeout: per-request deadline (default: 5s)
//   - WithUserAgent: User-Agent header
func NewRemoteProvider(opts ...ProviderOption) (*RemoteProvider, error) {
	p := &RemoteProvider{
		client:    &http.Client{},
		timeout:   DefaultFetchTimeout,
		userAgent: "verifytoken-go",
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	return p, nil
}

// Fetch performs GET {ep.URL} and parses the response as a JWK set.
//
// Errors are *core.VerificationError: 401 and 403 map to auth_error, an
// exceeded deadline to timeout, anything else to network_error.
func (p *RemoteProvider) Fetch(ctx context.Context, ep Endpoint) (jwk.Set, time.Duration, error) {
	if ep.SecretKey == "" {
		return nil, 0, core.NewVerificationError(core.CodeMissingKeyConfiguration, "remote key fetch requires a secret key", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.URL, nil)
	if err != nil {
		return nil, 0, core.NewVerificationError(core.CodeNetworkError, "failed to create jwks request", err)
	}
	req.Header.Set("Authorization", "Bearer "+ep.SecretKey)
	req.Header.Set("Accept", "application/json")
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, 0, transportError("jwks request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, 0, core.NewVerificationError(
			core.CodeAuthError,
			fmt.Sprintf("jwks request returned status %d", resp.StatusCode),
			nil,
		)
	case resp.StatusCode != http.StatusOK:
		return nil, 0, core.NewVerificationError(
			core.CodeNetworkError,
			fmt.Sprintf("jwks request returned status %d, expected 200", resp.StatusCode),
			nil,
		)
	}

	var cacheTTL time.Duration
	if cacheControl := resp.Header.Get("Cache-Control"); cacheControl != "" {
		cacheTTL = parseCacheControl(cacheControl)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxJWKSBodySize))
	if err != nil {
		return nil, 0, transportError("failed to read jwks response", err)
	}

	set, err := jwk.Parse(body)
	if err != nil {
		return nil, 0, core.NewVerificationError(core.CodeNetworkError, "failed to parse jwks response", err)
	}

	return set, cacheTTL, nil
}

func transportError(msg string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return core.NewVerificationError(core.CodeTimeout, msg, err)
	}
	return core.NewVerificationError(core.CodeNetworkError, msg, err)
}

// parseCacheControl extracts max-age from a Cache-Control header.
// Returns 0 if max-age is not present, invalid, or outside 1s..7d.
func parseCacheControl(cacheControl string) time.Duration {
	const (
		maxAgePrefix = "max-age="
		minTTL       = 1 * time.Second
		maxTTL       = 7 * 24 * time.Hour
	)

	for _, directive := range strings.Split(cacheControl, ",") {
		directive = strings.TrimSpace(directive)
		if !strings.HasPrefix(directive, maxAgePrefix) {
			continue
		}

		seconds, err := strconv.ParseInt(strings.TrimPrefix(directive, maxAgePrefix), 10, 64)
		if err != nil || seconds <= 0 {
			continue
		}

		ttl := time.Duration(seconds) * time.Second
		if ttl < minTTL || ttl > maxTTL {
			return 0
		}
		return ttl
	}

	return 0
}
