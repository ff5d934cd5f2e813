package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResumeCache stores quiz snapshots in Redis so an interrupted quiz survives
// reconnects and restarts. Snapshots are stored as: SET quiz:resume:{ownerID} {json} EX ttl
// The TTL bounds how long an abandoned attempt stays resumable.
type ResumeCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewResumeCache(client *redis.Client, ttl time.Duration) *ResumeCache {
	return &ResumeCache{client: client, ttl: ttl}
}

func (c *ResumeCache) Put(ctx context.Context, ownerID string, snapshot []byte) error {
	return c.client.Set(ctx, c.key(ownerID), snapshot, c.ttl).Err()
}

func (c *ResumeCache) Get(ctx context.Context, ownerID string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.key(ownerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (c *ResumeCache) Delete(ctx context.Context, ownerID string) error {
	return c.client.Del(ctx, c.key(ownerID)).Err()
}

func (c *ResumeCache) key(ownerID string) string {
	return "quiz:resume:" + ownerID
}
