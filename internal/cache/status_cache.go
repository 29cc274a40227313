package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"mockexam-registration/internal/model"
	"mockexam-registration/internal/status"

	"github.com/redis/go-redis/v9"
)

// StatusCache keeps projected availability in Redis so that display polling never
// touches the ledger's write path. Entries are already number-free by the time they
// get here; the cache stores the projection, not the snapshot.
type StatusCache interface {
	Get(ctx context.Context, sessionTime model.SessionTime, examDate time.Time) (*status.AvailabilityStatus, bool, error)
	Set(ctx context.Context, sessionTime model.SessionTime, examDate time.Time, st *status.AvailabilityStatus, ttl time.Duration) error
	Invalidate(ctx context.Context, sessionTime model.SessionTime, examDate time.Time) error
}

type StatusCacheImpl struct {
	client *redis.Client
}

func NewStatusCache(client *redis.Client) StatusCache {
	return &StatusCacheImpl{
		client: client,
	}
}

// 狀態快取 key
func (c *StatusCacheImpl) getStatusKey(sessionTime model.SessionTime, examDate time.Time) string {
	return fmt.Sprintf("session:%s:%s:status", examDate.Format("2006-01-02"), sessionTime)
}

func (c *StatusCacheImpl) Get(ctx context.Context, sessionTime model.SessionTime, examDate time.Time) (*status.AvailabilityStatus, bool, error) {
	key := c.getStatusKey(sessionTime, examDate)

	raw, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var st status.AvailabilityStatus
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached status: %w", err)
	}

	return &st, true, nil
}

func (c *StatusCacheImpl) Set(ctx context.Context, sessionTime model.SessionTime, examDate time.Time, st *status.AvailabilityStatus, ttl time.Duration) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}

	key := c.getStatusKey(sessionTime, examDate)
	return c.client.Set(ctx, key, raw, ttl).Err()
}

func (c *StatusCacheImpl) Invalidate(ctx context.Context, sessionTime model.SessionTime, examDate time.Time) error {
	key := c.getStatusKey(sessionTime, examDate)
	return c.client.Del(ctx, key).Err()
}
