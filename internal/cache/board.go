// Package cache stores projected boards in Redis so a server can keep
// showing a board while the record store is unreachable.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/imkarma/taskboard/internal/board"
)

// BoardCache is a Redis-backed board.Cache.
type BoardCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// New creates a cache using client. A non-positive ttl keeps entries
// until they are overwritten or invalidated.
func New(client *redis.Client, ttl time.Duration) *BoardCache {
	if client == nil {
		panic("cache.New: redis client is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &BoardCache{redis: client, ttl: ttl}
}

// Dial connects to Redis and checks the connection.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

// Get returns the cached board, or nil on a miss. Undecodable entries
// are dropped and reported as a miss.
func (c *BoardCache) Get(ctx context.Context, projectID string) (*board.Board, error) {
	data, err := c.redis.Get(ctx, boardKey(projectID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached board: %w", err)
	}
	var b board.Board
	if err := json.Unmarshal(data, &b); err != nil {
		_ = c.redis.Del(ctx, boardKey(projectID)).Err()
		return nil, nil
	}
	return &b, nil
}

// Put stores b under its project ID.
func (c *BoardCache) Put(ctx context.Context, b board.Board) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode board: %w", err)
	}
	if err := c.redis.Set(ctx, boardKey(b.ProjectID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache board: %w", err)
	}
	return nil
}

// Invalidate removes the cached board of a project.
func (c *BoardCache) Invalidate(ctx context.Context, projectID string) error {
	if err := c.redis.Del(ctx, boardKey(projectID)).Err(); err != nil {
		return fmt.Errorf("invalidate board: %w", err)
	}
	return nil
}

func boardKey(projectID string) string {
	return "board:" + projectID
}
