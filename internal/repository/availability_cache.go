package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/petcare-marketplace/service-scheduling/internal/domain/schedule"
)

const availabilityKeyPrefix = "scheduling:availability:"

// redisStore is the subset of *redis.Client the cache needs.
type redisStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CachedAvailabilityRepository is a read-through redis cache in front of an AvailabilityRepository.
// Redis faults never fail a request: reads fall through to the wrapped repository.
type CachedAvailabilityRepository struct {
	next   schedule.AvailabilityRepository
	rdb    redisStore
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedAvailabilityRepository wraps next with a cache whose entries live for ttl.
func NewCachedAvailabilityRepository(next schedule.AvailabilityRepository, rdb redisStore, ttl time.Duration, logger *zap.Logger) *CachedAvailabilityRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedAvailabilityRepository{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

func availabilityKey(providerID uuid.UUID) string {
	return availabilityKeyPrefix + providerID.String()
}

func (c *CachedAvailabilityRepository) FindByProviderID(ctx context.Context, providerID uuid.UUID) (*schedule.WeeklyAvailability, error) {
	key := availabilityKey(providerID)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached schedule.WeeklyAvailability
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			if cached.Days == nil {
				cached.Days = map[schedule.Weekday]schedule.DayAvailability{}
			}
			return &cached, nil
		}
		c.logger.Warn("discarding undecodable availability cache entry", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("availability cache read failed", zap.String("key", key), zap.Error(err))
	}

	weekly, err := c.next.FindByProviderID(ctx, providerID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(weekly); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("availability cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return weekly, nil
}

// Save writes through to the wrapped repository and drops the cached week.
func (c *CachedAvailabilityRepository) Save(ctx context.Context, w *schedule.WeeklyAvailability) error {
	if err := c.next.Save(ctx, w); err != nil {
		return err
	}
	key := availabilityKey(w.ProviderID)
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("availability cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
	return nil
}
