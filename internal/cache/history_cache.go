// Package cache keeps the recent message window of chat sessions in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"github.com/liliang-cn/ragdesk/internal/domain"
)

// optimistic transaction attempts before Append gives up and drops the window
const maxAppendAttempts = 3

// HistoryCache stores the last messages of a session as one JSON value.
//
// Writes go through: Append extends a cached window in place. When no window
// is cached, Append and Invalidate set a short-lived dirty marker instead, and
// Fill refuses to store while the marker exists. That keeps a reader that
// loaded SQLite before a concurrent write from caching the older window.
type HistoryCache struct {
	client   *redisv9.Client
	ttl      time.Duration
	dirtyTTL time.Duration
}

// NewHistoryCache creates a cache whose entries expire after ttl
func NewHistoryCache(client *redisv9.Client, ttl, dirtyTTL time.Duration) *HistoryCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if dirtyTTL <= 0 {
		dirtyTTL = 5 * time.Second
	}
	return &HistoryCache{client: client, ttl: ttl, dirtyTTL: dirtyTTL}
}

// Get returns the cached window and whether it was present
func (c *HistoryCache) Get(ctx context.Context, sessionID string) ([]*domain.Message, bool, error) {
	raw, err := c.client.Get(ctx, historyKey(sessionID)).Bytes()
	if errors.Is(err, redisv9.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get history failed: %w", err)
	}

	var messages []*domain.Message
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached history failed: %w", err)
	}
	return messages, true, nil
}

// Fill stores a window loaded from the database. It does nothing when a
// window is already cached or the session was written to recently.
func (c *HistoryCache) Fill(ctx context.Context, sessionID string, messages []*domain.Message) error {
	if messages == nil {
		messages = []*domain.Message{}
	}
	payload, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("marshal history cache failed: %w", err)
	}

	key, dirty := historyKey(sessionID), dirtyKey(sessionID)
	err = c.client.Watch(ctx, func(tx *redisv9.Tx) error {
		n, err := tx.Exists(ctx, key, dirty).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
			pipe.Set(ctx, key, payload, c.ttl)
			return nil
		})
		return err
	}, key, dirty)

	// a writer got in between; the next read loads again
	if errors.Is(err, redisv9.TxFailedErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis fill history failed: %w", err)
	}
	return nil
}

// Append adds msg to the cached window and keeps its last window messages
func (c *HistoryCache) Append(ctx context.Context, sessionID string, msg *domain.Message, window int) error {
	key := historyKey(sessionID)
	txf := func(tx *redisv9.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redisv9.Nil) {
			_, err = tx.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
				pipe.Set(ctx, dirtyKey(sessionID), "1", c.dirtyTTL)
				return nil
			})
			return err
		}
		if err != nil {
			return err
		}

		var messages []*domain.Message
		if err := json.Unmarshal(raw, &messages); err != nil {
			return fmt.Errorf("unmarshal cached history failed: %w", err)
		}
		messages, changed := appendWindow(messages, msg, window)
		if !changed {
			return nil
		}
		payload, err := json.Marshal(messages)
		if err != nil {
			return fmt.Errorf("marshal history cache failed: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
			pipe.Set(ctx, key, payload, c.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxAppendAttempts; i++ {
		err := c.client.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, redisv9.TxFailedErr) {
			return fmt.Errorf("redis append history failed: %w", err)
		}
	}
	return c.Invalidate(ctx, sessionID)
}

// Invalidate drops the cached window of a session and marks it dirty
func (c *HistoryCache) Invalidate(ctx context.Context, sessionID string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
		pipe.Del(ctx, historyKey(sessionID))
		pipe.Set(ctx, dirtyKey(sessionID), "1", c.dirtyTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete history failed: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable
func (c *HistoryCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// appendWindow adds msg unless the window already holds it, then trims the
// front so at most window messages remain.
func appendWindow(messages []*domain.Message, msg *domain.Message, window int) ([]*domain.Message, bool) {
	for _, m := range messages {
		if m.ID == msg.ID {
			return messages, false
		}
	}
	messages = append(messages, msg)
	if window > 0 && len(messages) > window {
		messages = messages[len(messages)-window:]
	}
	return messages, true
}

func historyKey(sessionID string) string {
	return "ragdesk:history:" + sessionID
}

func dirtyKey(sessionID string) string {
	return "ragdesk:history:dirty:" + sessionID
}
