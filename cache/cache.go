// Package cache provides an optional Redis-backed cache for chat
// histories. When no Redis address is configured the nil cache is used
// and every lookup is a miss, so the serving path works identically
// with and without Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AgentiviseAI/AgentPlane/metrics"
	"github.com/AgentiviseAI/AgentPlane/store"
)

// ConversationCache caches chat histories keyed per user and chat.
type ConversationCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New connects a cache to the given Redis address. Returns nil when the
// address is empty; a nil cache is valid and always misses.
func New(addr, password string, ttl time.Duration) *ConversationCache {
	if addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	return &ConversationCache{rdb: rdb, ttl: ttl}
}

// Ping checks Redis reachability.
func (c *ConversationCache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.rdb.Ping(ctx).Err()
}

// Close releases the underlying client.
func (c *ConversationCache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}

// GetHistory returns the cached history for a chat, if present.
func (c *ConversationCache) GetHistory(ctx context.Context, userID, chatID string) ([]store.Conversation, bool) {
	if c == nil {
		return nil, false
	}
	payload, err := c.rdb.Get(ctx, historyKey(userID, chatID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.IncrementCacheOperation("get", "miss")
		} else {
			metrics.IncrementCacheOperation("get", "error")
		}
		return nil, false
	}
	var history []store.Conversation
	if err := json.Unmarshal(payload, &history); err != nil {
		// A corrupt entry is dropped rather than served.
		metrics.IncrementCacheOperation("get", "error")
		c.Invalidate(ctx, userID, chatID)
		return nil, false
	}
	metrics.IncrementCacheOperation("get", "hit")
	return history, true
}

// SetHistory stores a chat history with the configured TTL.
func (c *ConversationCache) SetHistory(ctx context.Context, userID, chatID string, history []store.Conversation) {
	if c == nil {
		return
	}
	payload, err := json.Marshal(history)
	if err != nil {
		log.Printf("Warning: could not marshal chat history for cache: %v", err)
		return
	}
	if err := c.rdb.Set(ctx, historyKey(userID, chatID), payload, c.ttl).Err(); err != nil {
		metrics.IncrementCacheOperation("set", "error")
		log.Printf("Warning: could not cache chat history: %v", err)
		return
	}
	metrics.IncrementCacheOperation("set", "ok")
}

// Invalidate removes a cached chat history after a write.
func (c *ConversationCache) Invalidate(ctx context.Context, userID, chatID string) {
	if c == nil {
		return
	}
	if err := c.rdb.Del(ctx, historyKey(userID, chatID)).Err(); err != nil {
		metrics.IncrementCacheOperation("invalidate", "error")
		log.Printf("Warning: could not invalidate chat history cache: %v", err)
		return
	}
	metrics.IncrementCacheOperation("invalidate", "ok")
}

func historyKey(userID, chatID string) string {
	return fmt.Sprintf("agentplane:history:%s:%s", userID, chatID)
}
