package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"todo-api/api"
)

const DefaultCacheTTL = 5 * time.Minute

// tombstone marks a deleted todo. It outlives any read that started before
// the delete, so such a read cannot put the old record back.
const (
	tombstone    = "deleted"
	tombstoneTTL = 30 * time.Second
)

// CachedStore puts a Redis cache layer in front of single-todo reads.
// Writes go through to the cache; a read miss only fills a key nobody else
// has written. Redis problems are logged and never fail a request.
type CachedStore struct {
	next Store
	rdb  redis.Cmdable
	ttl  time.Duration
}

func NewCachedStore(next Store, rdb redis.Cmdable, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedStore{next: next, rdb: rdb, ttl: ttl}
}

func cacheKey(id int64) string {
	return fmt.Sprintf("todo:%d", id)
}

func (c *CachedStore) FindAll(ctx context.Context) ([]api.Todo, error) {
	return c.next.FindAll(ctx)
}

func (c *CachedStore) FindByID(ctx context.Context, id int64) (api.Todo, error) {
	key := cacheKey(id)

	val, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil && val == tombstone:
		// recently deleted; the store has the final word
	case err == nil:
		var t api.Todo
		if err := json.Unmarshal([]byte(val), &t); err == nil {
			log.Println("CACHE HIT for key:", key)
			return t, nil
		}
		log.Printf("WARN: dropping undecodable cache entry %s", key)
		c.invalidate(ctx, id)
	case !errors.Is(err, redis.Nil):
		log.Printf("WARN: cache read failed for %s: %v", key, err)
	}

	t, err := c.next.FindByID(ctx, id)
	if err != nil {
		return api.Todo{}, err
	}

	cacheData, err := json.Marshal(t)
	if err != nil {
		log.Printf("WARN: not caching %s, marshalling failed: %v", key, err)
		return t, nil
	}
	// SetNX: a write or delete that landed since our read wins.
	if err := c.rdb.SetNX(ctx, key, cacheData, c.ttl).Err(); err != nil {
		log.Printf("WARN: failed to set cache key %s: %v", key, err)
	}
	return t, nil
}

func (c *CachedStore) Save(ctx context.Context, todo api.Todo) (api.Todo, error) {
	saved, err := c.next.Save(ctx, todo)
	if err != nil {
		return api.Todo{}, err
	}

	key := cacheKey(saved.ID)
	cacheData, err := json.Marshal(saved)
	if err == nil {
		err = c.rdb.Set(ctx, key, cacheData, c.ttl).Err()
	}
	if err != nil {
		log.Printf("WARN: failed to write through cache key %s: %v", key, err)
		c.invalidate(ctx, saved.ID)
	}
	return saved, nil
}

func (c *CachedStore) DeleteByID(ctx context.Context, id int64) error {
	if err := c.next.DeleteByID(ctx, id); err != nil {
		return err
	}

	key := cacheKey(id)
	if err := c.rdb.Set(ctx, key, tombstone, tombstoneTTL).Err(); err != nil {
		log.Printf("WARN: failed to mark cache key %s deleted: %v", key, err)
		c.invalidate(ctx, id)
	}
	return nil
}

func (c *CachedStore) invalidate(ctx context.Context, id int64) {
	key := cacheKey(id)
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		log.Printf("WARN: Failed to delete the cache key, %s, %v", key, err)
	}
}
