// Package cluster 按画像/活跃度特征对用户聚类，并预测用户活跃时段。
package cluster

import (
	"context"
	"fmt"
	"sort"

	"github.com/rushteam/feedrank/core"
	"github.com/rushteam/feedrank/feature"
)

// Config 是聚类参数。
type Config struct {
	// MaxK 簇数上限，实际 k = min(MaxK, 用户数)
	MaxK int `yaml:"max_k" envconfig:"MAX_K"`
	// Seed k-means++ 初始化的随机种子
	Seed int64 `yaml:"seed" envconfig:"SEED"`
	// MaxIter Lloyd 迭代上限
	MaxIter int `yaml:"max_iter" envconfig:"MAX_ITER"`
}

// DefaultConfig 返回 k ≤ 5、种子 42、最多 300 次迭代。
func DefaultConfig() Config {
	return Config{MaxK: 5, Seed: 42, MaxIter: 300}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxK <= 0 {
		c.MaxK = d.MaxK
	}
	if c.MaxIter <= 0 {
		c.MaxIter = d.MaxIter
	}
	return c
}

// Cluster 按 bio 长度、粉丝数、关注数、帖子数、交互次数聚类，返回 user_id → 簇编号。
// 没有用户时返回空映射。
func Cluster(users []core.User, interactionCounts map[string]int, cfg Config) (map[string]int, error) {
	rows, _ := (&feature.ProfileExtractor{}).Extract(context.Background(), users, interactionCounts)
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ClusterRows(ids, rows, cfg)
}

// StatsSource 是粉丝/关注/帖子计数的外部来源（例如 Feast 在线特征）。
type StatsSource = feature.StatsSource

// Clusterer 在 Cluster 的基础上接入外部计数来源。
type Clusterer struct {
	Config Config
	Stats  StatsSource
	// OnStatsError 外部来源出错时回调（可选）；聚类会回退到画像字段继续进行
	OnStatsError func(err error)
}

// Cluster 抽取特征（计数优先取自 Stats）后聚类。
func (c *Clusterer) Cluster(ctx context.Context, users []core.User, interactionCounts map[string]int) (map[string]int, error) {
	rows, statsErr := (&feature.ProfileExtractor{Stats: c.Stats}).Extract(ctx, users, interactionCounts)
	if statsErr != nil && c.OnStatsError != nil {
		c.OnStatsError(statsErr)
	}
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ClusterRows(ids, rows, c.Config)
}

// ClusterRows 对预先抽取好的特征行聚类：列做 z-score 标准化后跑 k-means。
// ids 与 rows 数量不一致或行宽不一致时返回 core.ErrShapeMismatch。
func ClusterRows(ids []string, rows [][]float64, cfg Config) (map[string]int, error) {
	if len(ids) != len(rows) {
		return nil, fmt.Errorf("cluster: %d ids for %d rows: %w", len(ids), len(rows), core.ErrShapeMismatch)
	}
	out := make(map[string]int, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	normalized, err := feature.StandardizeColumns(rows)
	if err != nil {
		return nil, fmt.Errorf("cluster: %w", err)
	}
	cfg = cfg.withDefaults()
	k := cfg.MaxK
	if len(ids) < k {
		k = len(ids)
	}
	labels := KMeans(normalized, k, cfg.Seed, cfg.MaxIter)
	for i, id := range ids {
		out[id] = labels[i]
	}
	return out, nil
}

// SimilarUsers 返回与 userID 同簇的其他用户，按 ID 排序；用户未聚类时返回空列表。
// limit <= 0 返回全部。
func SimilarUsers(userID string, labels map[string]int, limit int) []string {
	c, ok := labels[userID]
	if !ok {
		return []string{}
	}
	out := make([]string, 0)
	for id, l := range labels {
		if l == c && id != userID {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
