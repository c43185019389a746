package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"time"
)

// ErrCacheMiss is returned by Cache.Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CachedStore serves quiz definitions from a cache and invalidates on
// writes. Cache failures fall through to the wrapped store.
type CachedStore struct {
	Store
	cache Cache
	ttl   time.Duration
}

func NewCachedStore(next Store, cache Cache, ttl time.Duration) *CachedStore {
	return &CachedStore{Store: next, cache: cache, ttl: ttl}
}

func quizKey(id int64) string { return "quiz:" + strconv.FormatInt(id, 10) }

func (c *CachedStore) GetQuiz(ctx context.Context, id int64) (Quiz, error) {
	key := quizKey(id)
	if raw, err := c.cache.Get(ctx, key); err == nil {
		var q Quiz
		if err := json.Unmarshal([]byte(raw), &q); err == nil {
			return q, nil
		}
		log.Printf("[quiz] cache entry %s unreadable, refetching", key)
	} else if !errors.Is(err, ErrCacheMiss) {
		log.Printf("[quiz] cache get %s: %v", key, err)
	}

	q, err := c.Store.GetQuiz(ctx, id)
	if err != nil {
		return Quiz{}, err
	}
	if buf, err := json.Marshal(q); err == nil {
		if err := c.cache.Set(ctx, key, string(buf), c.ttl); err != nil {
			log.Printf("[quiz] cache set %s: %v", key, err)
		}
	}
	return q, nil
}

func (c *CachedStore) PutQuiz(ctx context.Context, q Quiz) (Quiz, error) {
	out, err := c.Store.PutQuiz(ctx, q)
	if err != nil {
		return Quiz{}, err
	}
	c.invalidate(ctx, out.ID)
	return out, nil
}

func (c *CachedStore) DeleteQuiz(ctx context.Context, id int64) error {
	err := c.Store.DeleteQuiz(ctx, id)
	c.invalidate(ctx, id)
	return err
}

func (c *CachedStore) invalidate(ctx context.Context, id int64) {
	if err := c.cache.Delete(ctx, quizKey(id)); err != nil {
		log.Printf("[quiz] cache delete %s: %v", quizKey(id), err)
	}
}
