package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/rushteam/feedrank/core"
)

// MemoryInteractionLog 是内存实现的只追加交互日志。
type MemoryInteractionLog struct {
	mu      sync.RWMutex
	records []core.Interaction
	byUser  map[string][]int
}

func NewMemoryInteractionLog() *MemoryInteractionLog {
	return &MemoryInteractionLog{byUser: make(map[string][]int)}
}

func (l *MemoryInteractionLog) Append(_ context.Context, records ...core.Interaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, r := range records {
		l.byUser[r.UserID] = append(l.byUser[r.UserID], len(l.records))
		l.records = append(l.records, r)
	}
	return nil
}

func (l *MemoryInteractionLog) All(_ context.Context) ([]core.Interaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return append([]core.Interaction(nil), l.records...), nil
}

func (l *MemoryInteractionLog) ByUser(_ context.Context, userID string) ([]core.Interaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	idx := l.byUser[userID]
	out := make([]core.Interaction, len(idx))
	for i, n := range idx {
		out[i] = l.records[n]
	}
	return out, nil
}

func (l *MemoryInteractionLog) Len(_ context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.records), nil
}

var _ core.InteractionLog = (*MemoryInteractionLog)(nil)

// RedisInteractionLog 用 Redis List 保存交互日志：
//   - {prefix}              全量日志
//   - {prefix}:user:{id}    单个用户的日志
//
// 两个 List 在同一个 MULTI 中写入。
type RedisInteractionLog struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisInteractionLog 创建日志，prefix 为空时使用 "feedrank:interactions"。
func NewRedisInteractionLog(client redis.UniversalClient, prefix string) *RedisInteractionLog {
	if prefix == "" {
		prefix = "feedrank:interactions"
	}
	return &RedisInteractionLog{client: client, prefix: prefix}
}

func (l *RedisInteractionLog) userKey(userID string) string {
	return l.prefix + ":user:" + userID
}

func (l *RedisInteractionLog) Append(ctx context.Context, records ...core.Interaction) error {
	if len(records) == 0 {
		return nil
	}
	pipe := l.client.TxPipeline()
	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("store: encode interaction: %w", err)
		}
		pipe.RPush(ctx, l.prefix, data)
		pipe.RPush(ctx, l.userKey(r.UserID), data)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (l *RedisInteractionLog) All(ctx context.Context) ([]core.Interaction, error) {
	return l.load(ctx, l.prefix)
}

func (l *RedisInteractionLog) ByUser(ctx context.Context, userID string) ([]core.Interaction, error) {
	return l.load(ctx, l.userKey(userID))
}

func (l *RedisInteractionLog) Len(ctx context.Context) (int, error) {
	n, err := l.client.LLen(ctx, l.prefix).Result()
	return int(n), err
}

func (l *RedisInteractionLog) load(ctx context.Context, key string) ([]core.Interaction, error) {
	raw, err := l.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]core.Interaction, 0, len(raw))
	for i, s := range raw {
		var r core.Interaction
		if err := json.Unmarshal([]byte(s), &r); err != nil {
			return nil, fmt.Errorf("store: decode interaction %s[%d]: %w", key, i, err)
		}
		out = append(out, r)
	}
	return out, nil
}

var _ core.InteractionLog = (*RedisInteractionLog)(nil)
