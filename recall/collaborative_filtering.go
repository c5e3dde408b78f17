package recall

import (
	"context"
	"sort"

	"github.com/rushteam/feedrank/core"
	"github.com/rushteam/feedrank/feature"
)

const (
	// DefaultK 是各召回方法未指定 k 时的返回条数
	DefaultK = 10

	// DefaultNeighbors 是协同过滤使用的相似用户数
	DefaultNeighbors = 5

	// DefaultMaxRank 是 SVD 隐空间维度上限
	DefaultMaxRank = 50
)

// FallbackReason 说明协同过滤为什么退化到热门列表。
type FallbackReason string

const (
	FallbackNone        FallbackReason = ""
	FallbackUnknownUser FallbackReason = "unknown_user"
	FallbackTooFewUsers FallbackReason = "too_few_users"
	FallbackEmptyMatrix FallbackReason = "empty_matrix"
)

// TrendingSource 提供热门内容 ID 列表，作为冷启动兜底。
type TrendingSource interface {
	TrendingIDs(k int) []string
}

// TrendingFunc 把普通函数适配为 TrendingSource。
type TrendingFunc func(k int) []string

func (f TrendingFunc) TrendingIDs(k int) []string { return f(k) }

// CollaborativeFilter 是基于 SVD 隐空间的用户协同过滤。
//
// 算法流程：
//  1. 交互矩阵截断 SVD，rank = min(MaxRank, 用户数-1)
//  2. 目标用户隐向量与其他用户做余弦相似度
//  3. 取 TopN 相似用户（不含自己，同分按矩阵行序）
//  4. 目标用户权重为 0 的物品：score = Σ 邻居权重 × 相似度，保留 score > 0
//  5. 按分数降序，同分按物品编号（插入顺序）
//
// 用户未出现、用户数 < 2、矩阵全 0 时返回 Fallback 的热门列表。
// 只读取 matrix，不做修改；无内部状态，可并发调用。
type CollaborativeFilter struct {
	Neighbors int
	MaxRank   int
	Fallback  TrendingSource
}

// Recommend 返回推荐的物品 ID，k <= 0 时使用 DefaultK。
func (cf *CollaborativeFilter) Recommend(userID string, m *feature.InteractionMatrix, k int) []string {
	ids, _ := cf.RecommendWithReason(userID, m, k)
	return ids
}

// RecommendWithReason 同 Recommend，额外返回兜底原因（未兜底时为 FallbackNone）。
func (cf *CollaborativeFilter) RecommendWithReason(userID string, m *feature.InteractionMatrix, k int) ([]string, FallbackReason) {
	if k <= 0 {
		k = DefaultK
	}
	if m == nil {
		return cf.fallback(k), FallbackUnknownUser
	}
	target, ok := m.UserIndex[userID]
	switch {
	case !ok:
		return cf.fallback(k), FallbackUnknownUser
	case m.NumUsers() < 2:
		return cf.fallback(k), FallbackTooFewUsers
	case m.IsZero():
		return cf.fallback(k), FallbackEmptyMatrix
	}

	latent := TruncatedSVD(m.Rows, cf.rank(m.NumUsers()))

	type neighbor struct {
		idx int
		sim float64
	}
	neighbors := make([]neighbor, 0, m.NumUsers()-1)
	for i := range latent {
		if i == target {
			continue
		}
		neighbors = append(neighbors, neighbor{idx: i, sim: feature.CosineDense(latent[target], latent[i])})
	}
	sort.SliceStable(neighbors, func(a, b int) bool { return neighbors[a].sim > neighbors[b].sim })
	if n := cf.neighbors(); len(neighbors) > n {
		neighbors = neighbors[:n]
	}

	own := m.Rows[target]
	type scored struct {
		idx   int
		score float64
	}
	candidates := make([]scored, 0, m.NumItems())
	for j := range own {
		if own[j] != 0 {
			continue
		}
		var s float64
		for _, nb := range neighbors {
			s += m.Rows[nb.idx][j] * nb.sim
		}
		if s > 0 {
			candidates = append(candidates, scored{idx: j, score: s})
		}
	}
	sort.SliceStable(candidates, func(a, b int) bool { return candidates[a].score > candidates[b].score })
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = m.Items[c.idx]
	}
	return out, FallbackNone
}

func (cf *CollaborativeFilter) rank(numUsers int) int {
	r := cf.MaxRank
	if r <= 0 {
		r = DefaultMaxRank
	}
	if numUsers-1 < r {
		r = numUsers - 1
	}
	return r
}

func (cf *CollaborativeFilter) neighbors() int {
	if cf.Neighbors <= 0 {
		return DefaultNeighbors
	}
	return cf.Neighbors
}

func (cf *CollaborativeFilter) fallback(k int) []string {
	if cf.Fallback == nil {
		return []string{}
	}
	ids := cf.Fallback.TrendingIDs(k)
	if len(ids) > k {
		ids = ids[:k]
	}
	return ids
}

// CFRecall 把 CollaborativeFilter 适配为召回源，在 Pipeline 中使用。
type CFRecall struct {
	CF     *CollaborativeFilter
	Matrix *feature.InteractionMatrix

	// K 召回条数，<= 0 时取 rctx.K 或 DefaultK
	K int
}

func (r *CFRecall) Name() string { return "recall.cf" }

func (r *CFRecall) Recall(_ context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if r.CF == nil || rctx == nil || rctx.UserID == "" {
		return nil, nil
	}
	k := r.K
	if k <= 0 {
		k = rctx.TopK(DefaultK)
	}
	ids, reason := r.CF.RecommendWithReason(rctx.UserID, r.Matrix, k)
	items := rankedItems(ids)
	if reason != FallbackNone {
		for _, it := range items {
			it.Meta["fallback"] = string(reason)
		}
	}
	return items, nil
}

// rankedItems 把有序 ID 列表转为 Item，Score 为位置分 1 - pos/len。
func rankedItems(ids []string) []*core.Item {
	out := make([]*core.Item, len(ids))
	for i, id := range ids {
		it := core.NewItem(id)
		it.Score = 1 - float64(i)/float64(len(ids))
		it.Meta["rank"] = i
		out[i] = it
	}
	return out
}
