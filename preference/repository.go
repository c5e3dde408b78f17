// Package preference 维护用户的类目偏好分。
//
// 偏好分是非负权重的累加和，只会增长，唯一的例外是显式的衰减任务（Decay）。
// Repository 本身不加锁：同一用户的读-改-写需要调用方串行化（engine 按用户加锁）。
package preference

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/rushteam/feedrank/core"
)

// DefaultKeyPrefix 是偏好哈希的 key 前缀，完整 key 为 {prefix}:{user_id}。
const DefaultKeyPrefix = "feedrank:pref"

// ErrInvalidWeight 表示权重为负数或不是有限值。
var ErrInvalidWeight = core.NewDomainError(core.ModulePreference, core.ErrorCodeInvalidInput, "preference: weight must be a finite non-negative number")

// Score 是单个类目的偏好分。
type Score struct {
	Category string  `json:"category"`
	Score    float64 `json:"score"`
}

// Repository 把每个用户的偏好存成一个 Hash：field 为类目，value 为十进制分数。
type Repository struct {
	Store  core.KeyValueStore
	Prefix string
}

// NewRepository 使用默认前缀创建 Repository。
func NewRepository(store core.KeyValueStore) *Repository {
	return &Repository{Store: store, Prefix: DefaultKeyPrefix}
}

func (r *Repository) key(userID string) string {
	prefix := r.Prefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return prefix + ":" + userID
}

// Add 把 weight 累加到 (userID, category) 上并返回新的分数。
func (r *Repository) Add(ctx context.Context, userID, category string, weight float64) (float64, error) {
	if weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidWeight, weight)
	}
	key := r.key(userID)
	current, err := r.get(ctx, key, category)
	if err != nil {
		return 0, err
	}
	next := current + weight
	if err := r.Store.HSet(ctx, key, category, encode(next)); err != nil {
		return 0, fmt.Errorf("preference: write %s/%s: %w", userID, category, err)
	}
	return next, nil
}

func (r *Repository) get(ctx context.Context, key, category string) (float64, error) {
	raw, err := r.Store.HGet(ctx, key, category)
	if core.IsStoreNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("preference: read %s/%s: %w", key, category, err)
	}
	return decode(raw)
}

// Scores 返回用户全部类目的偏好分；没有记录时返回空映射。
func (r *Repository) Scores(ctx context.Context, userID string) (map[string]float64, error) {
	raw, err := r.Store.HGetAll(ctx, r.key(userID))
	if err != nil && !core.IsStoreNotFound(err) {
		return nil, fmt.Errorf("preference: read %s: %w", userID, err)
	}
	out := make(map[string]float64, len(raw))
	for category, v := range raw {
		s, err := decode(v)
		if err != nil {
			return nil, err
		}
		out[category] = s
	}
	return out, nil
}

// Top 返回分数最高的 n 个类目：分数降序，同分按类目名升序。n <= 0 返回全部。
func (r *Repository) Top(ctx context.Context, userID string, n int) ([]Score, error) {
	scores, err := r.Scores(ctx, userID)
	if err != nil {
		return nil, err
	}
	return Rank(scores, n), nil
}

// Rank 对偏好分排序，规则同 Top。
func Rank(scores map[string]float64, n int) []Score {
	out := make([]Score, 0, len(scores))
	for c, s := range scores {
		out = append(out, Score{Category: c, Score: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Category < out[j].Category
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Decay 把用户全部偏好分乘以 factor（0 <= factor <= 1）。
func (r *Repository) Decay(ctx context.Context, userID string, factor float64) error {
	if factor < 0 || factor > 1 || math.IsNaN(factor) {
		return core.NewDomainError(core.ModulePreference, core.ErrorCodeInvalidInput,
			fmt.Sprintf("preference: decay factor %v outside [0, 1]", factor))
	}
	scores, err := r.Scores(ctx, userID)
	if err != nil {
		return err
	}
	key := r.key(userID)
	for category, s := range scores {
		if err := r.Store.HSet(ctx, key, category, encode(s*factor)); err != nil {
			return fmt.Errorf("preference: decay %s/%s: %w", userID, category, err)
		}
	}
	return nil
}

func encode(v float64) []byte {
	return strconv.AppendFloat(nil, v, 'g', -1, 64)
}

func decode(raw []byte) (float64, error) {
	v, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("preference: bad score %q: %w", raw, err)
	}
	return v, nil
}
