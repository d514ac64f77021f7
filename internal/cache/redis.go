package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/querypilot/querypilot/internal/observability"
)

const redisKeyPrefix = "querypilot:respcache:"

// Redis is the shared cache backend for multi-replica deployments. Expiry is
// delegated to the server via per-key TTLs, so ClearExpired has nothing to
// sweep and always reports zero.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis wraps an existing client. ttl <= 0 stores entries without expiry.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// Connect dials a Redis URL and returns a client usable with NewRedis.
func Connect(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}

func (r *Redis) Get(ctx context.Context, query, systemPrompt, model, contextStr string) (string, bool) {
	key := redisKeyPrefix + Key(query, systemPrompt, model, contextStr)
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		observability.IncrementCacheEvent(observability.CacheMiss)
		return "", false
	}
	if err != nil {
		log.Warn().Err(err).Msg("redis cache get failed, treating as miss")
		observability.IncrementCacheEvent(observability.CacheMiss)
		return "", false
	}
	observability.IncrementCacheEvent(observability.CacheHit)
	return val, true
}

func (r *Redis) Set(ctx context.Context, query, response, systemPrompt, model, contextStr string) {
	key := redisKeyPrefix + Key(query, systemPrompt, model, contextStr)
	ttl := r.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, key, response, ttl).Err(); err != nil {
		log.Warn().Err(err).Msg("redis cache set failed")
	}
}

// Clear removes every entry under the cache prefix.
func (r *Redis) Clear(ctx context.Context) {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, redisKeyPrefix+"*", 200).Result()
		if err != nil {
			log.Warn().Err(err).Msg("redis cache clear scan failed")
			return
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				log.Warn().Err(err).Msg("redis cache clear delete failed")
				return
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}

func (r *Redis) ClearExpired(_ context.Context) int {
	return 0
}
