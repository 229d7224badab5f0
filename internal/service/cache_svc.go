package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	QuestionCacheTTL   = 5 * time.Minute
	RankedPageCacheTTL = 30 * time.Second // short: pages go stale on every rank flush
)

// CacheService provides a Redis cache-aside layer for question lookups and
// ranked pages. If redisURL is empty or the connection fails, the client is
// nil and every operation is a no-op.
type CacheService struct {
	rdb *redis.Client
}

func NewCacheService(redisURL string) *CacheService {
	if redisURL == "" {
		log.Println("redis: no URL configured, caching disabled")
		return &CacheService{}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Printf("redis: invalid URL %q, caching disabled: %v", redisURL, err)
		return &CacheService{}
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("redis: connection failed, caching disabled: %v", err)
		return &CacheService{}
	}

	log.Println("redis: connected, caching enabled")
	return &CacheService{rdb: rdb}
}

// Client returns the underlying Redis client (for health checks). May be nil.
func (c *CacheService) Client() *redis.Client {
	return c.rdb
}

// GetQuestion retrieves a cached question response. Returns nil when not
// cached or caching is disabled.
func (c *CacheService) GetQuestion(ctx context.Context, id int64) ([]byte, error) {
	if c.rdb == nil {
		return nil, nil
	}
	data, err := c.rdb.Get(ctx, questionKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return data, err
}

// SetQuestion stores a question response.
func (c *CacheService) SetQuestion(ctx context.Context, id int64, data any) error {
	if c.rdb == nil {
		return nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, questionKey(id), b, QuestionCacheTTL).Err()
}

// InvalidateQuestion removes a question from cache after a vote, rank, or
// moderation change.
func (c *CacheService) InvalidateQuestion(ctx context.Context, id int64) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, questionKey(id)).Err()
}

// GetRankedPage retrieves a cached ranked page for a contest.
func (c *CacheService) GetRankedPage(ctx context.Context, contestID int64, page, pageSize int) ([]byte, error) {
	if c.rdb == nil {
		return nil, nil
	}
	data, err := c.rdb.Get(ctx, rankedKey(contestID, page, pageSize)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return data, err
}

// SetRankedPage stores one ranked page.
func (c *CacheService) SetRankedPage(ctx context.Context, contestID int64, page, pageSize int, data any) error {
	if c.rdb == nil {
		return nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, rankedKey(contestID, page, pageSize), b, RankedPageCacheTTL).Err()
}

// InvalidateContest drops every cached ranked page for a contest.
func (c *CacheService) InvalidateContest(ctx context.Context, contestID int64) error {
	if c.rdb == nil {
		return nil
	}

	pattern := fmt.Sprintf("ranked:%d:*", contestID)
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Close shuts down the Redis connection.
func (c *CacheService) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func questionKey(id int64) string {
	return fmt.Sprintf("question:%d", id)
}

func rankedKey(contestID int64, page, pageSize int) string {
	return fmt.Sprintf("ranked:%d:%d:%d", contestID, page, pageSize)
}
