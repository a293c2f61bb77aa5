package duration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stwalsh4118/retroguide/internal/config"
	"github.com/stwalsh4118/retroguide/internal/logger"
	"github.com/stwalsh4118/retroguide/internal/models"
)

const redisKeyPrefix = "retroguide:duration:"

// RedisStore keeps durations in Redis as JSON values without expiry
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Log.Info().
		Str("addr", cfg.Addr).
		Int("db", cfg.DB).
		Msg("Connected to Redis duration cache")

	return NewRedisStoreFromClient(client), nil
}

// NewRedisStoreFromClient wraps an existing client
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(id uuid.UUID) string {
	return redisKeyPrefix + id.String()
}

// Get retrieves a cached duration
func (s *RedisStore) Get(ctx context.Context, id uuid.UUID) (*models.DurationCacheEntry, error) {
	data, err := s.client.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var entry models.DurationCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		// Treat undecodable values as missing so they get re-probed and overwritten
		logger.Log.Warn().
			Err(err).
			Str("content_item_id", id.String()).
			Msg("Discarding malformed cached duration")
		return nil, ErrCacheMiss
	}
	return &entry, nil
}

// GetMany retrieves several cached durations with one MGET
func (s *RedisStore) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.DurationCacheEntry, error) {
	out := make(map[uuid.UUID]*models.DurationCacheEntry, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = redisKey(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget failed: %w", err)
	}

	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var entry models.DurationCacheEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			continue
		}
		out[ids[i]] = &entry
	}
	return out, nil
}

// Put stores a duration
func (s *RedisStore) Put(ctx context.Context, entry *models.DurationCacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode duration: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(entry.ContentItemID), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Delete removes a cached duration
func (s *RedisStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.client.Del(ctx, redisKey(id)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// HealthCheck checks if Redis is reachable
func (s *RedisStore) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
