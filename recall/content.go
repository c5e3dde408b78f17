package recall

import (
	"context"
	"sort"

	"github.com/rushteam/feedrank/core"
	"github.com/rushteam/feedrank/feature"
)

// ContentFilter 是基于 TF-IDF 文本相似度的内容推荐。
//
// 核心思想："用户兴趣文本（bio + interests）与物品文本越相似，越值得推荐"
//
// 用户文本必须用物品语料拟合出的同一个 Vectorizer 向量化；
// 相似度 <= 0 的物品不返回，同分按语料顺序。
type ContentFilter struct{}

// Recommend 返回 TopK 物品 ID，k <= 0 时使用 DefaultK。空语料返回空列表。
func (ContentFilter) Recommend(userText string, vz *feature.Vectorizer, corpus *feature.ContentMatrix, k int) []string {
	scored := ContentFilter{}.Score(userText, vz, corpus)
	if k <= 0 {
		k = DefaultK
	}
	if len(scored) > k {
		scored = scored[:k]
	}
	out := make([]string, len(scored))
	for i, s := range scored {
		out[i] = s.ID
	}
	return out
}

// ScoredID 是带分数的物品 ID。
type ScoredID struct {
	ID    string
	Score float64
}

// Score 返回全部相似度 > 0 的物品，按分数降序、语料顺序稳定排序。
func (ContentFilter) Score(userText string, vz *feature.Vectorizer, corpus *feature.ContentMatrix) []ScoredID {
	if corpus.Len() == 0 || userText == "" {
		return []ScoredID{}
	}
	q := vz.Transform(userText)
	if q.Len() == 0 {
		return []ScoredID{}
	}
	out := make([]ScoredID, 0, corpus.Len())
	for i, row := range corpus.Rows {
		if s := feature.Cosine(q, row); s > 0 {
			out = append(out, ScoredID{ID: corpus.IDs[i], Score: s})
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	return out
}

// SimilarItems 返回与 itemID 文本最相似的 k 个其他物品（k <= 0 时使用 DefaultK）。
// 相似度 <= 0 的物品不返回，同分按语料顺序；itemID 不在语料中时返回空列表。
func (ContentFilter) SimilarItems(itemID string, corpus *feature.ContentMatrix, k int) []ScoredID {
	q, ok := corpus.Row(itemID)
	if !ok || q.Len() == 0 {
		return []ScoredID{}
	}
	if k <= 0 {
		k = DefaultK
	}
	out := make([]ScoredID, 0, corpus.Len())
	for i, row := range corpus.Rows {
		if corpus.IDs[i] == itemID {
			continue
		}
		if s := feature.Cosine(q, row); s > 0 {
			out = append(out, ScoredID{ID: corpus.IDs[i], Score: s})
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// ContentRecall 是内容推荐召回源，使用 rctx.UserText 作为查询。
type ContentRecall struct {
	Vectorizer *feature.Vectorizer
	Corpus     *feature.ContentMatrix

	// K 召回条数，<= 0 时取 rctx.K 或 DefaultK
	K int
}

func (r *ContentRecall) Name() string { return "recall.content" }

func (r *ContentRecall) Recall(_ context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if rctx == nil || rctx.UserText == "" {
		return nil, nil
	}
	k := r.K
	if k <= 0 {
		k = rctx.TopK(DefaultK)
	}
	scored := ContentFilter{}.Score(rctx.UserText, r.Vectorizer, r.Corpus)
	if len(scored) > k {
		scored = scored[:k]
	}
	ids := make([]string, len(scored))
	for i, s := range scored {
		ids[i] = s.ID
	}
	items := rankedItems(ids)
	for i, it := range items {
		it.Features["content_similarity"] = scored[i].Score
	}
	return items, nil
}
