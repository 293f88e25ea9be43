package jwks

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeyPrefix namespaces cached keys in Redis.
const DefaultRedisKeyPrefix = "verifytoken:jwks"

// RedisCache is a KeyCache backed by Redis, so that several processes share
// fetched keys.
type RedisCache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

type redisEntry struct {
	Key       json.RawMessage `json:"key"`
	Algorithm string          `json:"alg,omitempty"`
	FetchedAt time.Time       `json:"fetched_at"`
	ExpiresAt time.Time       `json:"expires_at,omitempty"`
}

// NewRedisCache creates a RedisCache on client.
func NewRedisCache(client redis.Cmdable, opts ...RedisCacheOption) *RedisCache {
	c := &RedisCache{
		client: client,
		prefix: DefaultRedisKeyPrefix,
		ttl:    DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewRedisCacheFromURL parses a redis:// URL and creates a RedisCache.
func NewRedisCacheFromURL(redisURL string, opts ...RedisCacheOption) (*RedisCache, error) {
	o, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return NewRedisCache(redis.NewClient(o), opts...), nil
}

// redisKey is <prefix>:<sha256(endpoint|credential)>:<kid>.
func (c *RedisCache) redisKey(k CacheKey) string {
	sum := sha256.Sum256([]byte(k.Endpoint + "|" + k.Credential))
	scope := hex.EncodeToString(sum[:])
	if c.prefix == "" {
		return scope + ":" + k.KeyID
	}
	return c.prefix + ":" + scope + ":" + k.KeyID
}

func (c *RedisCache) Get(ctx context.Context, k CacheKey) (*KeyMaterial, bool, error) {
	raw, err := c.client.Get(ctx, c.redisKey(k)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var entry redisEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false, fmt.Errorf("decode cached key: %w", err)
	}

	key, err := jwk.ParseKey(entry.Key)
	if err != nil {
		return nil, false, fmt.Errorf("parse cached key: %w", err)
	}

	return &KeyMaterial{
		KeyID:     k.KeyID,
		Key:       key,
		Algorithm: jwa.SignatureAlgorithm(entry.Algorithm),
		Source:    SourceRemote,
		FetchedAt: entry.FetchedAt,
		ExpiresAt: entry.ExpiresAt,
	}, true, nil
}

// Put stores m with the cache TTL, extended to m.ExpiresAt when that is
// later.
func (c *RedisCache) Put(ctx context.Context, k CacheKey, m *KeyMaterial) error {
	keyJSON, err := json.Marshal(m.Key)
	if err != nil {
		return fmt.Errorf("encode key: %w", err)
	}

	raw, err := json.Marshal(redisEntry{
		Key:       keyJSON,
		Algorithm: m.Algorithm.String(),
		FetchedAt: m.FetchedAt,
		ExpiresAt: m.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}

	ttl := c.ttl
	if !m.ExpiresAt.IsZero() {
		if hint := time.Until(m.ExpiresAt); hint > ttl {
			ttl = hint
		}
	}

	if err := c.client.Set(ctx, c.redisKey(k), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, k CacheKey) error {
	if err := c.client.Del(ctx, c.redisKey(k)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
