package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"digi-shop/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const DefaultTTL = 5 * time.Minute

// Manager is a read-through cache over Redis. It is a performance
// shortcut only: the write paths invalidate entries after commit and
// nothing consults the cache before mutating the ledger.
type Manager struct {
	redis  *redis.Client
	logger *logger.Logger
}

func NewManager(redisClient *redis.Client, log *logger.Logger) *Manager {
	return &Manager{
		redis:  redisClient,
		logger: log,
	}
}

func (m *Manager) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := m.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return true, nil
}

func (m *Manager) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := m.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (m *Manager) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return m.redis.Del(ctx, keys...).Err()
}

// InvalidatePattern removes every key matching the pattern via SCAN.
func (m *Manager) InvalidatePattern(ctx context.Context, pattern string) (int, error) {
	var deleted int
	iter := m.redis.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := m.redis.Del(ctx, iter.Val()).Err(); err != nil {
			m.logger.Error("Cache invalidate error for key %s: %v", iter.Val(), err)
			continue
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("cache scan %s: %w", pattern, err)
	}
	return deleted, nil
}

// InvalidateAsync fires invalidation in the background. A failed
// invalidation is logged and never affects the committed transaction.
func (m *Manager) InvalidateAsync(keys ...string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.Delete(ctx, keys...); err != nil {
			m.logger.Warn("Background cache invalidation failed: %v", err)
		}
	}()
}

func (m *Manager) Ping(ctx context.Context) error {
	return m.redis.Ping(ctx).Err()
}
