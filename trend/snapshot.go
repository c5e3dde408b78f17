package trend

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/rushteam/feedrank/core"
)

// DefaultSnapshotKey 是热度榜快照的默认 key。
const DefaultSnapshotKey = "feedrank:trend:snapshot"

type snapshot struct {
	Decay   float64 `json:"decay"`
	Entries []Entry `json:"entries"`
}

// Snapshot 把未衰减的原始记录写入 Store。调用方负责在读写期间持有 Board 的锁。
func Snapshot(ctx context.Context, s core.Store, key string, b *Board) error {
	if key == "" {
		key = DefaultSnapshotKey
	}
	data, err := json.Marshal(snapshot{Decay: b.Decay, Entries: b.Entries()})
	if err != nil {
		return fmt.Errorf("trend: encode snapshot: %w", err)
	}
	return s.Set(ctx, key, data)
}

// Restore 从 Store 恢复 Board；key 不存在时返回空 Board（decay 为 DefaultDecay）。
func Restore(ctx context.Context, s core.Store, key string) (*Board, error) {
	if key == "" {
		key = DefaultSnapshotKey
	}
	data, err := s.Get(ctx, key)
	if core.IsStoreNotFound(err) {
		return NewBoard(DefaultDecay), nil
	}
	if err != nil {
		return nil, fmt.Errorf("trend: load snapshot: %w", err)
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("trend: decode snapshot: %w", err)
	}
	b := NewBoard(snap.Decay)
	for i := range snap.Entries {
		e := snap.Entries[i]
		b.entries[e.Key] = &e
	}
	return b, nil
}

// Publish 把排好序的 ID 写入有序集合（例如 recall.Hot 读取的热门榜）。
func Publish(ctx context.Context, kv core.KeyValueStore, key string, ranked []Ranked) error {
	if err := kv.Delete(ctx, key); err != nil {
		return fmt.Errorf("trend: reset %s: %w", key, err)
	}
	for _, r := range ranked {
		if err := kv.ZAdd(ctx, key, r.Score, r.ID); err != nil {
			return fmt.Errorf("trend: publish %s: %w", key, err)
		}
	}
	return nil
}
