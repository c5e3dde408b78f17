package recall

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/rushteam/feedrank/core"
	"github.com/rushteam/feedrank/pipeline"
)

// DefaultHotKey 是热门榜在 Store 中的默认 key。
const DefaultHotKey = "feedrank:hot:posts"

// Hot 是热门召回源，支持从 Store 读取热门内容列表。
//   - 如果 Store 实现了 KeyValueStore，优先使用 ZRange（有序集合，按分数降序）
//   - 否则从普通 key 读取 JSON 数组
//   - 都取不到时使用 Trending 兜底（例如 trend 包按互动分实时计算的列表）
//
// Hot 同时实现了 Source 和 Node 接口，可以直接在 Pipeline 中使用。
type Hot struct {
	Store    core.Store
	Key      string
	Trending TrendingSource

	// K 召回条数，<= 0 时取 rctx.K 或 DefaultK
	K int
}

func (r *Hot) Name() string { return "recall.hot" }

func (r *Hot) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	k := r.K
	if k <= 0 {
		k = rctx.TopK(DefaultK)
	}
	return rankedItems(r.ids(ctx, k)), nil
}

// TrendingIDs 让 Hot 本身也能作为协同过滤的兜底来源。
func (r *Hot) TrendingIDs(k int) []string {
	return r.ids(context.Background(), k)
}

func (r *Hot) ids(ctx context.Context, k int) []string {
	var ids []string
	if r.Store != nil {
		key := r.Key
		if key == "" {
			key = DefaultHotKey
		}
		if kv, ok := r.Store.(core.KeyValueStore); ok {
			members, err := kv.ZRange(ctx, key, 0, int64(k-1))
			if err == nil {
				ids = members
			}
		} else if data, err := r.Store.Get(ctx, key); err == nil {
			var parsed []string
			if json.Unmarshal(data, &parsed) == nil {
				ids = parsed
			}
		}
	}
	if len(ids) == 0 && r.Trending != nil {
		ids = r.Trending.TrendingIDs(k)
	}
	if len(ids) > k {
		ids = ids[:k]
	}
	return ids
}

func (r *Hot) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall
func (r *Hot) Process(ctx context.Context, rctx *core.RecommendContext, _ []*core.Item) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}
