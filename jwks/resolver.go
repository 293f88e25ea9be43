package jwks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"golang.org/x/sync/singleflight"

	"github.com/sessionkit/verifytoken/core"
	"github.com/sessionkit/verifytoken/options"
)

// DefaultMinRefreshInterval is how often one key may be refetched after a
// signature failure.
const DefaultMinRefreshInterval = 30 * time.Second

// ResolveRequest asks for the key that verifies a token with KeyID, under
// the given options.
type ResolveRequest struct {
	Options *options.VerifyTokenOptions
	KeyID   string
}

// Resolver selects between the static key and the remote key set and
// manages the key cache for the remote case.
//
// A configured JWT key always wins: the Resolver then parses it and never
// touches the network or the cache. With only a secret key, keys are looked
// up in the cache and fetched on a miss. Concurrent misses for the same key
// share one fetch.
type Resolver struct {
	fetcher Fetcher
	cache   KeyCache
	group   singleflight.Group

	// last refresh per key, for minRefreshInterval
	refreshMu          sync.Mutex
	refreshed          map[CacheKey]time.Time
	minRefreshInterval time.Duration

	logger  core.Logger
	metrics core.Metrics
	tracer  core.Tracer
	now     func() time.Time
}

// NewResolver builds a Resolver.
//
// Optional options:
//   - WithFetcher: how key sets are fetched (default: a RemoteProvider)
//   - WithCache: where fetched keys live (default: a new MemoryCache)
//   - WithLogger, WithMetrics, WithTracer
func NewResolver(opts ...ResolverOption) (*Resolver, error) {
	r := &Resolver{
		logger:  core.NopLogger{},
		metrics: core.NopMetrics{},
		tracer:  core.NopTracer{},
		now:     time.Now,

		refreshed:          make(map[CacheKey]time.Time),
		minRefreshInterval: DefaultMinRefreshInterval,
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	if r.fetcher == nil {
		p, err := NewRemoteProvider()
		if err != nil {
			return nil, err
		}
		r.fetcher = p
	}
	if r.cache == nil {
		r.cache = NewMemoryCache()
	}

	return r, nil
}

// Resolve returns the key for req.
func (r *Resolver) Resolve(ctx context.Context, req ResolveRequest) (*KeyMaterial, error) {
	if err := checkKeyConfiguration(req.Options); err != nil {
		return nil, err
	}

	if pemKey, ok := req.Options.JWTKey().Get(); ok {
		return r.resolveStatic(pemKey)
	}

	ep, ck, err := remoteKey(req)
	if err != nil {
		return nil, err
	}

	if m, ok := r.cacheGet(ctx, ck); ok {
		r.logger.Debug("Signing key served from cache", "kid", ck.KeyID)
		return m.withSource(SourceCache), nil
	}

	return r.fetch(ctx, ep, ck)
}

// Refresh drops the cached key for req and fetches it again. Used when a
// cached key failed to verify a signature, in case the key was rotated.
// In static mode it is the same as Resolve.
//
// A key is refreshed at most once per minimum refresh interval; within it,
// Refresh returns the key Resolve would, so forged signatures naming a live
// kid cannot turn into one backend request each.
func (r *Resolver) Refresh(ctx context.Context, req ResolveRequest) (*KeyMaterial, error) {
	if err := checkKeyConfiguration(req.Options); err != nil {
		return nil, err
	}

	if pemKey, ok := req.Options.JWTKey().Get(); ok {
		return r.resolveStatic(pemKey)
	}

	ep, ck, err := remoteKey(req)
	if err != nil {
		return nil, err
	}

	if !r.allowRefresh(ck) {
		r.logger.Debug("Signing key refreshed recently, not refetching", "kid", ck.KeyID)
		r.metrics.IncCounter(core.MetricJWKSFetches, map[string]string{"result": "throttled"})
		if m, ok := r.cacheGet(ctx, ck); ok {
			return m.withSource(SourceCache), nil
		}
		return r.fetch(ctx, ep, ck)
	}

	if err := r.cache.Invalidate(ctx, ck); err != nil {
		r.logger.Warn("Failed to invalidate cached signing key", "kid", ck.KeyID, "error", err)
	}
	r.logger.Info("Refreshing signing key", "kid", ck.KeyID)

	return r.fetch(ctx, ep, ck)
}

func checkKeyConfiguration(opts *options.VerifyTokenOptions) error {
	if opts == nil || (!opts.JWTKey().IsPresent() && !opts.SecretKey().IsPresent()) {
		return core.NewVerificationError(
			core.CodeMissingKeyConfiguration,
			"either a secret key or a jwt key must be configured",
			nil,
		)
	}
	return nil
}

func remoteKey(req ResolveRequest) (Endpoint, CacheKey, error) {
	if req.KeyID == "" {
		return Endpoint{}, CacheKey{}, core.NewVerificationError(core.CodeMalformedToken, "token header has no kid", nil)
	}
	ep := EndpointFor(req.Options)
	return ep, CacheKeyFor(ep, req.KeyID), nil
}

func (r *Resolver) resolveStatic(pemKey string) (*KeyMaterial, error) {
	return ParsePEM(pemKey)
}

// allowRefresh records a refresh of ck unless one happened less than
// minRefreshInterval ago. Stale records are dropped on the way.
func (r *Resolver) allowRefresh(ck CacheKey) bool {
	if r.minRefreshInterval <= 0 {
		return true
	}

	now := r.now()
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	if last, ok := r.refreshed[ck]; ok && now.Sub(last) < r.minRefreshInterval {
		return false
	}
	for k, last := range r.refreshed {
		if now.Sub(last) >= r.minRefreshInterval {
			delete(r.refreshed, k)
		}
	}
	r.refreshed[ck] = now
	return true
}

func (r *Resolver) cacheGet(ctx context.Context, ck CacheKey) (*KeyMaterial, bool) {
	m, ok, err := r.cache.Get(ctx, ck)
	if err != nil {
		r.logger.Warn("Key cache lookup failed, treating as miss", "kid", ck.KeyID, "error", err)
		return nil, false
	}
	return m, ok
}

// fetch coalesces concurrent fetches for the same key. The fetch itself is
// detached from the caller's cancellation and bounded by the fetcher's
// timeout; a caller that gives up stops waiting without failing the others.
func (r *Resolver) fetch(ctx context.Context, ep Endpoint, ck CacheKey) (*KeyMaterial, error) {
	ch := r.group.DoChan(ck.String(), func() (any, error) {
		return r.fetchAndStore(context.WithoutCancel(ctx), ep, ck)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*KeyMaterial), nil
	case <-ctx.Done():
		return nil, transportError("gave up waiting for jwks", ctx.Err())
	}
}

func (r *Resolver) fetchAndStore(ctx context.Context, ep Endpoint, ck CacheKey) (*KeyMaterial, error) {
	ctx, span := r.tracer.Start(ctx, "jwks.fetch")
	defer span.End()
	span.SetAttribute("jwks.url", ep.URL)
	span.SetAttribute("jwks.kid", ck.KeyID)

	start := r.now()
	set, hint, err := r.fetcher.Fetch(ctx, ep)
	if err != nil {
		err = asVerificationError(err)
		span.RecordError(err)
		r.metrics.IncCounter(core.MetricJWKSFetches, map[string]string{"result": "error"})
		r.logger.Error("JWKS fetch failed", "url", ep.URL, "error", err)
		return nil, err
	}
	r.metrics.IncCounter(core.MetricJWKSFetches, map[string]string{"result": "success"})

	now := r.now()
	r.logger.Info("JWKS fetched", "url", ep.URL, "keys", set.Len(), "duration", now.Sub(start))

	var target *KeyMaterial
	for i := 0; i < set.Len(); i++ {
		key, ok := set.Key(i)
		if !ok {
			continue
		}
		m, ok := materialFromJWK(key, now, hint)
		if !ok {
			continue
		}

		k := CacheKey{Endpoint: ck.Endpoint, Credential: ck.Credential, KeyID: m.KeyID}
		if err := r.cache.Put(ctx, k, m); err != nil {
			r.logger.Warn("Failed to cache signing key", "kid", m.KeyID, "error", err)
		}
		if m.KeyID == ck.KeyID {
			target = m
		}
	}

	if target == nil {
		err := core.NewVerificationError(core.CodeKeyNotFound, "no signing key with kid "+ck.KeyID, nil)
		span.RecordError(err)
		return nil, err
	}
	return target, nil
}

// materialFromJWK keeps asymmetric keys that carry a kid.
func materialFromJWK(key jwk.Key, now time.Time, hint time.Duration) (*KeyMaterial, bool) {
	if key.KeyID() == "" || key.KeyType() == jwa.OctetSeq {
		return nil, false
	}
	pub, err := jwk.PublicKeyOf(key)
	if err != nil {
		return nil, false
	}

	m := &KeyMaterial{
		KeyID:     key.KeyID(),
		Key:       pub,
		Source:    SourceRemote,
		FetchedAt: now,
	}
	if alg := key.Algorithm(); alg != nil {
		m.Algorithm = jwa.SignatureAlgorithm(alg.String())
	}
	if hint > 0 {
		m.ExpiresAt = now.Add(hint)
	}
	return m, true
}

func asVerificationError(err error) error {
	var verr *core.VerificationError
	if errors.As(err, &verr) {
		return err
	}
	return transportError("jwks fetch failed", err)
}
