package rerank

import (
	"context"

	"github.com/rushteam/feedrank/core"
	"github.com/rushteam/feedrank/pipeline"
)

// Diversity 是多样性重排：同一作者（或类目）最多保留 MaxPerKey 个。
// 分组 key 来源优先级：
// - label[LabelKey].Value
// - meta[LabelKey] (string)
//
// 超出上限的物品默认丢弃；Demote=true 时按原顺序挪到末尾。
type Diversity struct {
	LabelKey  string // 默认 "author"
	MaxPerKey int    // 默认 1
	Demote    bool
}

func (n *Diversity) Name() string {
	return "rerank.diversity"
}

func (n *Diversity) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *Diversity) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	key := n.LabelKey
	if key == "" {
		key = "author"
	}
	limit := n.MaxPerKey
	if limit <= 0 {
		limit = 1
	}

	seen := make(map[string]int, 32)
	out := make([]*core.Item, 0, len(items))
	var tail []*core.Item

	for _, it := range items {
		if it == nil {
			continue
		}
		group := ""
		if lbl, ok := it.Labels[key]; ok {
			group = lbl.Value
		}
		if group == "" {
			group = it.MetaString(key)
		}
		if group == "" {
			out = append(out, it)
			continue
		}
		if seen[group] >= limit {
			if n.Demote {
				tail = append(tail, it)
			}
			continue
		}
		seen[group]++
		out = append(out, it)
	}
	return append(out, tail...), nil
}
