package rerank

import (
	"context"
	"math"
	"sort"

	"github.com/rushteam/feedrank/core"
	"github.com/rushteam/feedrank/pipeline"
	"github.com/rushteam/feedrank/pkg/utils"
)

const (
	// DefaultCollabWeight 是协同过滤列表的融合权重
	DefaultCollabWeight = 0.6
	// DefaultContentWeight 是内容推荐列表的融合权重
	DefaultContentWeight = 0.4
)

// Merge 按位置衰减加权融合协同过滤与内容推荐两个有序列表。
//
// score(item) = collabWeight·(1 − pos/len(collab)) + contentWeight·(1 − pos/len(content))，
// 不在某个列表中的物品该项为 0。按分数降序，同分按先 collab 后 content 的首次出现顺序。
// 任一列表为空时结果即另一个列表；k <= 0 时返回全部。
func Merge(collab, content []string, k int, collabWeight, contentWeight float64) []string {
	ids, _ := MergeWeighted([][]string{collab, content}, []float64{collabWeight, contentWeight}, k)
	return ids
}

// MergeWeighted 是 Merge 的多列表形式，同时返回每个物品的融合分。
// weights 短于 lists 时缺失的权重按 0 处理；同一列表内重复的 ID 只取首次位置。
func MergeWeighted(lists [][]string, weights []float64, k int) ([]string, map[string]float64) {
	scores := make(map[string]float64)
	order := make([]string, 0)
	for li, list := range lists {
		var w float64
		if li < len(weights) {
			w = weights[li]
		}
		seen := make(map[string]struct{}, len(list))
		for pos, id := range list {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if _, ok := scores[id]; !ok {
				order = append(order, id)
				scores[id] = 0
			}
			scores[id] += w * (1 - float64(pos)/float64(len(list)))
		}
	}
	for id, sc := range scores {
		scores[id] = roundScore(sc)
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })
	if k > 0 && len(order) > k {
		order = order[:k]
	}
	return order, scores
}

// scoreResolution 是融合分的比较精度。不同列表的加权和在浮点下可能差 1ulp，
// 舍入后同分才能按首次出现顺序排列。
const scoreResolution = 1e-9

func roundScore(s float64) float64 {
	return math.Round(s/scoreResolution) * scoreResolution
}

// HybridNode 是融合重排节点：按 recall_source label 把候选拆回各召回列表，再按权重融合。
//
// 上游 Fanout 需使用 union 合并策略（不去重），才能保留物品在每个列表中的位置；
// 不在 Weights 中的召回源权重为 0，只在其他列表都没有时按原顺序排在末尾。
type HybridNode struct {
	// Sources 参与融合的召回源名称，顺序即同分时的先后
	Sources []string
	// Weights 与 Sources 一一对应
	Weights []float64
	// K 返回条数，<= 0 时取 rctx.K，仍未设置则返回全部
	K int
}

// NewHybridNode 创建默认的 CF(0.6) + 内容(0.4) 融合节点。
func NewHybridNode() *HybridNode {
	return &HybridNode{
		Sources: []string{"recall.cf", "recall.content"},
		Weights: []float64{DefaultCollabWeight, DefaultContentWeight},
	}
}

func (n *HybridNode) Name() string        { return "rerank.hybrid" }
func (n *HybridNode) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *HybridNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	srcIndex := make(map[string]int, len(n.Sources))
	for i, s := range n.Sources {
		srcIndex[s] = i
	}
	lists := make([][]string, len(n.Sources)+1)
	weights := make([]float64, len(lists))
	copy(weights, n.Weights)
	weights[len(n.Sources)] = 0
	byID := make(map[string]*core.Item, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		if _, ok := byID[it.ID]; !ok {
			byID[it.ID] = it
		} else {
			for k, v := range it.Labels {
				byID[it.ID].PutLabel(k, v)
			}
		}
		placed := false
		if lbl, ok := it.Labels["recall_source"]; ok {
			for _, src := range lbl.Values() {
				if i, ok := srcIndex[src]; ok {
					lists[i] = append(lists[i], it.ID)
					placed = true
				}
			}
		}
		if !placed {
			lists[len(n.Sources)] = append(lists[len(n.Sources)], it.ID)
		}
	}

	k := n.K
	if k <= 0 {
		k = rctx.TopK(0)
	}
	ids, scores := MergeWeighted(lists, weights, k)
	out := make([]*core.Item, 0, len(ids))
	for _, id := range ids {
		it := byID[id]
		it.Score = scores[id]
		it.PutLabel("rerank", utils.Label{Value: "hybrid", Source: "rerank"})
		out = append(out, it)
	}
	return out, nil
}
