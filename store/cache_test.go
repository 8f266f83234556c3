package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo-api/api"
)

// countingStore records how often reads reach the backing store.
type countingStore struct {
	Store
	finds int
}

func (c *countingStore) FindByID(ctx context.Context, id int64) (api.Todo, error) {
	c.finds++
	return c.Store.FindByID(ctx, id)
}

// racingStore runs afterRead once, between reading the backing store and
// returning, the window in which a concurrent request can write.
type racingStore struct {
	Store
	afterRead func()
}

func (r *racingStore) FindByID(ctx context.Context, id int64) (api.Todo, error) {
	t, err := r.Store.FindByID(ctx, id)
	if hook := r.afterRead; hook != nil {
		r.afterRead = nil
		hook()
	}
	return t, err
}

func cachedTodo(t *testing.T, raw string) api.Todo {
	t.Helper()
	var cached api.Todo
	require.NoError(t, json.Unmarshal([]byte(raw), &cached))
	return cached
}

func TestCachedStoreServesRepeatReadsFromRedis(t *testing.T) {
	mr, rdb := newTestRedis(t)
	backing := &countingStore{Store: NewMemoryStore()}
	s := NewCachedStore(backing, rdb, time.Minute)
	ctx := context.Background()

	created, err := backing.Store.Save(ctx, api.Todo{Title: "Cache me"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		got, err := s.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created, got)
	}
	assert.Equal(t, 1, backing.finds)

	raw, err := mr.Get(cacheKey(created.ID))
	require.NoError(t, err)
	assert.Equal(t, created, cachedTodo(t, raw))
	assert.Equal(t, time.Minute, mr.TTL(cacheKey(created.ID)))
}

func TestCachedStoreWritesThrough(t *testing.T) {
	mr, rdb := newTestRedis(t)
	backing := &countingStore{Store: NewMemoryStore()}
	s := NewCachedStore(backing, rdb, time.Minute)
	ctx := context.Background()

	created, err := s.Save(ctx, api.Todo{Title: "Old"})
	require.NoError(t, err)
	raw, err := mr.Get(cacheKey(created.ID))
	require.NoError(t, err)
	assert.Equal(t, created, cachedTodo(t, raw))

	updated, err := s.Save(ctx, api.Todo{ID: created.ID, Title: "New", Completed: true})
	require.NoError(t, err)
	raw, err = mr.Get(cacheKey(created.ID))
	require.NoError(t, err)
	assert.Equal(t, updated, cachedTodo(t, raw))

	got, err := s.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)
	assert.Zero(t, backing.finds)
}

func TestCachedStoreDeleteLeavesTombstone(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewCachedStore(NewMemoryStore(), rdb, time.Minute)
	ctx := context.Background()

	created, err := s.Save(ctx, api.Todo{Title: "Doomed"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteByID(ctx, created.ID))
	raw, err := mr.Get(cacheKey(created.ID))
	require.NoError(t, err)
	assert.Equal(t, tombstone, raw)
	assert.Equal(t, tombstoneTTL, mr.TTL(cacheKey(created.ID)))

	_, err = s.FindByID(ctx, created.ID)
	assert.ErrorIs(t, err, api.ErrNotFound)

	// re-creating the id replaces the tombstone
	again, err := s.Save(ctx, api.Todo{ID: created.ID, Title: "Back"})
	require.NoError(t, err)
	got, err := s.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, again, got)
}

func TestCachedStoreReadRacingUpdate(t *testing.T) {
	_, rdb := newTestRedis(t)
	backing := &racingStore{Store: NewMemoryStore()}
	s := NewCachedStore(backing, rdb, time.Minute)
	ctx := context.Background()

	created, err := backing.Store.Save(ctx, api.Todo{Title: "Old"})
	require.NoError(t, err)

	updated := api.Todo{ID: created.ID, Title: "New", Completed: true}
	backing.afterRead = func() {
		_, err := s.Save(ctx, updated)
		require.NoError(t, err)
	}

	stale, err := s.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, stale)

	got, err := s.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)
}

func TestCachedStoreReadRacingDelete(t *testing.T) {
	_, rdb := newTestRedis(t)
	backing := &racingStore{Store: NewMemoryStore()}
	s := NewCachedStore(backing, rdb, time.Minute)
	ctx := context.Background()

	created, err := backing.Store.Save(ctx, api.Todo{Title: "Doomed"})
	require.NoError(t, err)

	backing.afterRead = func() {
		require.NoError(t, s.DeleteByID(ctx, created.ID))
	}

	_, err = s.FindByID(ctx, created.ID)
	require.NoError(t, err)

	_, err = s.FindByID(ctx, created.ID)
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestCachedStoreDoesNotCacheMisses(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewCachedStore(NewMemoryStore(), rdb, 0)

	_, err := s.FindByID(context.Background(), 7)
	assert.ErrorIs(t, err, api.ErrNotFound)
	assert.False(t, mr.Exists(cacheKey(7)))
}

func TestCachedStoreFallsBackWhenRedisIsDown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	backing := NewMemoryStore()
	s := NewCachedStore(backing, rdb, time.Minute)
	ctx := context.Background()

	created, err := backing.Save(ctx, api.Todo{Title: "Still here"})
	require.NoError(t, err)

	mr.Close()

	got, err := s.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, err = s.Save(ctx, api.Todo{ID: created.ID, Title: "Changed"})
	require.NoError(t, err)
	require.NoError(t, s.DeleteByID(ctx, created.ID))
}

func TestCachedStoreIgnoresCorruptEntries(t *testing.T) {
	mr, rdb := newTestRedis(t)
	backing := NewMemoryStore()
	s := NewCachedStore(backing, rdb, time.Minute)
	ctx := context.Background()

	created, err := backing.Save(ctx, api.Todo{Title: "Real"})
	require.NoError(t, err)
	require.NoError(t, mr.Set(cacheKey(created.ID), "not json"))

	got, err := s.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	raw, err := mr.Get(cacheKey(created.ID))
	require.NoError(t, err)
	assert.Equal(t, created, cachedTodo(t, raw))
}
