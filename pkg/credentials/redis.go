package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisKeyPrefix namespaces settings keys in Redis.
const RedisKeyPrefix = "woo:settings:"

// RedisStore persists settings in Redis. Every value is sealed before it is
// written, so Redis never holds the consumer secret in cleartext.
type RedisStore struct {
	redis  *redis.Client
	sealer *Sealer
	logger zerolog.Logger
}

// NewRedisStore creates a sealed settings store.
func NewRedisStore(redisClient *redis.Client, sealer *Sealer, logger zerolog.Logger) (*RedisStore, error) {
	if redisClient == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if sealer == nil {
		return nil, fmt.Errorf("sealer is required")
	}
	return &RedisStore{
		redis:  redisClient,
		sealer: sealer,
		logger: logger,
	}, nil
}

// Get implements Store.
func (r *RedisStore) Get(ctx context.Context, key string) (string, error) {
	data, err := r.redis.Get(ctx, RedisKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrKeyNotFound
		}
		return "", fmt.Errorf("redis get: %w", err)
	}

	plaintext, err := r.sealer.Open(data)
	if err != nil {
		r.logger.Warn().Str("key", key).Msg("Stored setting could not be opened")
		return "", fmt.Errorf("open %s: %w", key, err)
	}
	return string(plaintext), nil
}

// Set implements Writer. All values are written in one pipeline.
func (r *RedisStore) Set(ctx context.Context, values map[string]string) error {
	pipe := r.redis.TxPipeline()
	for key, value := range values {
		sealed, err := r.sealer.Seal([]byte(value))
		if err != nil {
			return fmt.Errorf("seal %s: %w", key, err)
		}
		pipe.Set(ctx, RedisKeyPrefix+key, sealed, 0)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store settings in redis: %w", err)
	}

	r.logger.Info().Int("keys", len(values)).Msg("Settings stored")
	return nil
}

// Clear implements Writer.
func (r *RedisStore) Clear(ctx context.Context) error {
	keys := make([]string, 0, len(Keys))
	for _, key := range Keys {
		keys = append(keys, RedisKeyPrefix+key)
	}
	if err := r.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}

	r.logger.Info().Msg("Settings cleared")
	return nil
}
