package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/Noble200/nose-sub001/internal/domain"
)

const keyPrefix = "farm:deliverables:"

type RedisDeliverableCache struct {
	client *redis.Client
}

func NewRedisDeliverableCache(addr string, password string, db int) *RedisDeliverableCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisDeliverableCacheFromClient(client)
}

func NewRedisDeliverableCacheFromClient(client *redis.Client) *RedisDeliverableCache {
	return &RedisDeliverableCache{client: client}
}

func (c *RedisDeliverableCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisDeliverableCache) Close() error {
	return c.client.Close()
}

func (c *RedisDeliverableCache) Get(ctx context.Context, purchaseID string) ([]domain.DeliverableLineItem, bool, error) {
	val, err := c.client.Get(ctx, keyPrefix+purchaseID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var items []domain.DeliverableLineItem
	if err := json.Unmarshal(val, &items); err != nil {
		return nil, false, err
	}
	return items, true, nil
}

func (c *RedisDeliverableCache) Set(ctx context.Context, purchaseID string, items []domain.DeliverableLineItem, ttl time.Duration) error {
	if items == nil {
		items = []domain.DeliverableLineItem{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, keyPrefix+purchaseID, payload, ttl).Err()
}

func (c *RedisDeliverableCache) Invalidate(ctx context.Context, purchaseID string) error {
	return c.client.Del(ctx, keyPrefix+purchaseID).Err()
}
