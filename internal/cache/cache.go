package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const accessKeyPrefix = "ACCESS_TOKEN"

// AccessKey is the cache key holding the live access tokens of one (user, device) session.
func AccessKey(userID, deviceID string) string {
	return fmt.Sprintf("%s:%s:%s", accessKeyPrefix, userID, deviceID)
}

// RedisCache is the access revocation cache: one expiring set per device session.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache returns a cache whose entries live for ttl, normally the access token lifetime.
func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

// Replace drops whatever the key held and leaves value as its only member, in one MULTI/EXEC.
func (c *RedisCache) Replace(ctx context.Context, key, value string, ttl time.Duration) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.SAdd(ctx, key, value)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache replace: %w", err)
	}
	return nil
}

func (c *RedisCache) IsMember(ctx context.Context, key, value string) (bool, error) {
	ok, err := c.rdb.SIsMember(ctx, key, value).Result()
	if err != nil {
		return false, fmt.Errorf("cache is member: %w", err)
	}
	return ok, nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

func (c *RedisCache) SetExpiry(ctx context.Context, key string, ttl time.Duration) error {
	if err := c.rdb.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("cache expire: %w", err)
	}
	return nil
}

func (c *RedisCache) SaveToken(ctx context.Context, userID, deviceID, token string) error {
	return c.Replace(ctx, AccessKey(userID, deviceID), token, c.ttl)
}

func (c *RedisCache) IsAccessTokenExist(ctx context.Context, userID, deviceID, token string) (bool, error) {
	return c.IsMember(ctx, AccessKey(userID, deviceID), token)
}

func (c *RedisCache) DeleteToken(ctx context.Context, userID, deviceID string) error {
	return c.Delete(ctx, AccessKey(userID, deviceID))
}

// DeleteUser removes the entries of every device of userID.
func (c *RedisCache) DeleteUser(ctx context.Context, userID string) error {
	pattern := fmt.Sprintf("%s:%s:*", accessKeyPrefix, userID)
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache delete user: %w", err)
	}
	return nil
}
