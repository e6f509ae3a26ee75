package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"bookwise/internal/model"
)

// HistoryCache keeps per-session conversation turns in a Redis list, one
// JSON element per turn. History is ephemeral: it lives only for the TTL
// and is never mirrored to MySQL.
type HistoryCache struct {
	client     *redisv9.Client
	historyTTL time.Duration
	maxTurns   int
}

func NewHistoryCache(client *redisv9.Client, historyTTL time.Duration, maxTurns int) *HistoryCache {
	if historyTTL <= 0 {
		historyTTL = 30 * time.Minute
	}
	if maxTurns <= 0 {
		maxTurns = 10
	}
	return &HistoryCache{
		client:     client,
		historyTTL: historyTTL,
		maxTurns:   maxTurns,
	}
}

func (c *HistoryCache) GetTurns(ctx context.Context, sessionID string) ([]model.Turn, error) {
	raw, err := c.client.LRange(ctx, c.historyKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get history failed: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	turns := make([]model.Turn, 0, len(raw))
	for _, item := range raw {
		var turn model.Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, fmt.Errorf("unmarshal cached turn failed: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// AppendTurn pushes a turn onto the session's history, trims the list to
// the configured window, and refreshes the TTL. The three commands run in
// one transaction, so concurrent appends on the same session interleave
// without losing turns.
func (c *HistoryCache) AppendTurn(ctx context.Context, sessionID string, turn model.Turn) error {
	payload, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshal turn failed: %w", err)
	}

	key := c.historyKey(sessionID)
	pipe := c.client.TxPipeline()
	pipe.RPush(ctx, key, payload)
	pipe.LTrim(ctx, key, int64(-c.maxTurns), -1)
	pipe.Expire(ctx, key, c.historyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis append turn failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) DeleteTurns(ctx context.Context, sessionID string) error {
	if err := c.client.Del(ctx, c.historyKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete history failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) historyKey(sessionID string) string {
	return fmt.Sprintf("chat:history:%s", sessionID)
}
