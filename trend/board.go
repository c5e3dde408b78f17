// Package trend 计算话题标签/类目的时间衰减热度，以及帖子的互动热度分。
//
// Board 不加锁：Record 是对共享状态的读-改-写，调用方需要串行化写入（engine 使用互斥锁）。
package trend

import (
	"math"
	"sort"
	"time"
)

// DefaultDecay 是每小时的衰减系数。
const DefaultDecay = 0.95

// Entry 是一个话题标签或类目的热度记录。
type Entry struct {
	Key         string    `json:"key"`
	Score       float64   `json:"score"`
	Mentions    int       `json:"mentions"`
	LastUpdated time.Time `json:"last_updated"`
}

// Board 是热度榜。分数随墙钟时间按 Decay^小时数 连续衰减，
// 任何读取都先按经过的时间做衰减。
type Board struct {
	Decay   float64
	entries map[string]*Entry
}

// NewBoard 创建热度榜，decay 不在 (0,1] 内时使用 DefaultDecay。
func NewBoard(decay float64) *Board {
	if decay <= 0 || decay > 1 {
		decay = DefaultDecay
	}
	return &Board{Decay: decay, entries: make(map[string]*Entry)}
}

// Record 先把已有分数衰减到 now，再加上 delta，更新 LastUpdated 并累加提及次数。
// now 早于 LastUpdated 时按 0 小时处理。
func (b *Board) Record(key string, delta float64, now time.Time) Entry {
	if b.entries == nil {
		b.entries = make(map[string]*Entry)
	}
	e, ok := b.entries[key]
	if !ok {
		e = &Entry{Key: key}
		b.entries[key] = e
	} else {
		e.Score = b.decayed(e, now)
	}
	e.Score += delta
	if now.After(e.LastUpdated) || !ok {
		e.LastUpdated = now
	}
	e.Mentions++
	return *e
}

// Score 返回 key 在 now 时刻衰减后的分数，不存在时为 0。
func (b *Board) Score(key string, now time.Time) float64 {
	e, ok := b.entries[key]
	if !ok {
		return 0
	}
	return b.decayed(e, now)
}

// Top 返回衰减到 now 之后的前 limit 个记录：
// 分数降序，同分按提及次数降序，再按 key 升序。limit <= 0 返回全部。
func (b *Board) Top(limit int, now time.Time) []Entry {
	out := make([]Entry, 0, len(b.entries))
	for _, e := range b.entries {
		cp := *e
		cp.Score = b.decayed(e, now)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Mentions != out[j].Mentions {
			return out[i].Mentions > out[j].Mentions
		}
		return out[i].Key < out[j].Key
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Entries 返回未衰减的原始记录（按 key 排序），用于持久化。
func (b *Board) Entries() []Entry {
	out := make([]Entry, 0, len(b.entries))
	for _, e := range b.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Len 返回记录数。
func (b *Board) Len() int { return len(b.entries) }

func (b *Board) decayed(e *Entry, now time.Time) float64 {
	hours := now.Sub(e.LastUpdated).Hours()
	if hours <= 0 {
		return e.Score
	}
	return e.Score * math.Pow(b.Decay, hours)
}
