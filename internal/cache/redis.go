package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	redis_v9 "github.com/redis/go-redis/v9"
)

// Cache is a thin JSON cache over redis. A nil *Cache is valid and behaves
// as a permanent miss, so callers can run without redis configured.
type Cache struct {
	client *redis_v9.Client
}

func NewCache(addr, password string) *Cache {
	if addr == "" {
		log.Println("Redis not configured, caching disabled")
		return nil
	}

	client := redis_v9.NewClient(&redis_v9.Options{
		Addr:     addr,
		Password: password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: could not connect to Redis: %s", err)
	}

	return &Cache{client: client}
}

func (c *Cache) SetStruct(ctx context.Context, key string, model any, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	val, err := json.Marshal(model)
	if err != nil {
		return fmt.Errorf("error saving struct to cache: %s", err)
	}
	return c.client.Set(ctx, key, val, ttl).Err()
}

func (c *Cache) GetStruct(ctx context.Context, key string, model any) (bool, error) {
	if c == nil {
		return false, nil
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == redis_v9.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error get struct in cache: %s", err)
	}
	return true, json.Unmarshal(raw, model)
}

func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if c == nil || len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.Printf("error deleting cache keys %v: %s", keys, err)
	}
}

func (c *Cache) Close() {
	if c != nil && c.client != nil {
		_ = c.client.Close()
	}
}
