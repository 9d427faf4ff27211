package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AngelCh415/KPI_GO/internal/models"
)

const goalKeyPrefix = "kpi:goals:"

// RedisGoalCache shares fetched goal sets between server instances.
type RedisGoalCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisGoalCache parses a redis:// URL. ttl 0 keeps entries until the
// next refresh overwrites them.
func NewRedisGoalCache(rawURL string, ttl time.Duration) (*RedisGoalCache, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	return &RedisGoalCache{rdb: redis.NewClient(opt), ttl: ttl}, nil
}

func (c *RedisGoalCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *RedisGoalCache) Close() error { return c.rdb.Close() }

func (c *RedisGoalCache) GetGoals(ctx context.Context, year int) ([]models.GoalRecord, bool, error) {
	b, err := c.rdb.Get(ctx, goalKey(year)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var recs []models.GoalRecord
	if err := json.Unmarshal(b, &recs); err != nil {
		return nil, false, fmt.Errorf("decode goals %d: %w", year, err)
	}
	for i := range recs {
		recs[i].Year = year
	}
	return recs, true, nil
}

func (c *RedisGoalCache) PutGoals(ctx context.Context, year int, recs []models.GoalRecord) error {
	if recs == nil {
		recs = []models.GoalRecord{}
	}
	b, err := json.Marshal(recs)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, goalKey(year), b, c.ttl).Err()
}

func goalKey(year int) string { return fmt.Sprintf("%s%d", goalKeyPrefix, year) }
