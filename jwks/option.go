package jwks

import (
	"errors"
	"net/http"
	"time"

	"github.com/sessionkit/verifytoken/core"
)

// ProviderOption is how options for the RemoteProvider are set up.
type ProviderOption func(*RemoteProvider) error

// WithHTTPClient sets the HTTP client used for JWKS requests.
func WithHTTPClient(c *http.Client) ProviderOption {
	return func(p *RemoteProvider) error {
		if c == nil {
			return errors.New("HTTP client cannot be nil")
		}
		p.client = c
		return nil
	}
}

// WithFetchTimeout bounds each JWKS request. Defaults to 5s.
func WithFetchTimeout(d time.Duration) ProviderOption {
	return func(p *RemoteProvider) error {
		if d <= 0 {
			return errors.New("fetch timeout must be positive")
		}
		p.timeout = d
		return nil
	}
}

// WithUserAgent sets the User-Agent header. An empty string omits it.
func WithUserAgent(ua string) ProviderOption {
	return func(p *RemoteProvider) error {
		p.userAgent = ua
		return nil
	}
}

// ResolverOption is how options for the Resolver are set up.
type ResolverOption func(*Resolver) error

// WithFetcher sets how key sets are fetched.
func WithFetcher(f Fetcher) ResolverOption {
	return func(r *Resolver) error {
		if f == nil {
			return errors.New("fetcher cannot be nil")
		}
		r.fetcher = f
		return nil
	}
}

// WithCache sets the key cache. Share one cache between resolvers to share
// fetched keys.
//
// Example:
//
//	cache := jwks.NewRedisCache(redisClient)
//	resolver, err := jwks.NewResolver(jwks.WithCache(cache))
func WithCache(c KeyCache) ResolverOption {
	return func(r *Resolver) error {
		if c == nil {
			return errors.New("cache cannot be nil")
		}
		r.cache = c
		return nil
	}
}

// WithMinRefreshInterval sets how long after refreshing a key a further
// Refresh for the same key is served from the cache instead of the backend.
// Zero refreshes every time.
func WithMinRefreshInterval(d time.Duration) ResolverOption {
	return func(r *Resolver) error {
		if d < 0 {
			return errors.New("min refresh interval cannot be negative")
		}
		r.minRefreshInterval = d
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l core.Logger) ResolverOption {
	return func(r *Resolver) error {
		if l == nil {
			return errors.New("logger cannot be nil")
		}
		r.logger = l
		return nil
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m core.Metrics) ResolverOption {
	return func(r *Resolver) error {
		if m == nil {
			return errors.New("metrics cannot be nil")
		}
		r.metrics = m
		return nil
	}
}

// WithTracer sets the tracer.
func WithTracer(t core.Tracer) ResolverOption {
	return func(r *Resolver) error {
		if t == nil {
			return errors.New("tracer cannot be nil")
		}
		r.tracer = t
		return nil
	}
}

// MemoryCacheOption configures a MemoryCache.
type MemoryCacheOption func(*MemoryCache)

// WithTTL sets how long entries live. Non-positive values keep the default.
func WithTTL(ttl time.Duration) MemoryCacheOption {
	return func(c *MemoryCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides the cache's time source.
func WithClock(now func() time.Time) MemoryCacheOption {
	return func(c *MemoryCache) {
		if now != nil {
			c.now = now
		}
	}
}

// RedisCacheOption configures a RedisCache.
type RedisCacheOption func(*RedisCache)

// WithKeyPrefix sets the Redis key prefix. An empty prefix stores bare keys.
func WithKeyPrefix(prefix string) RedisCacheOption {
	return func(c *RedisCache) {
		c.prefix = prefix
	}
}

// WithRedisTTL sets the Redis expiry for cached keys.
func WithRedisTTL(ttl time.Duration) RedisCacheOption {
	return func(c *RedisCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}
