// Package builders 注册内置 Node 的配置构建逻辑，使用时匿名导入即可：
//
//	import _ "github.com/rushteam/feedrank/config/builders"
package builders

import (
	"fmt"
	"time"

	"github.com/rushteam/feedrank/config"
	"github.com/rushteam/feedrank/filter"
	"github.com/rushteam/feedrank/moderation"
	"github.com/rushteam/feedrank/pipeline"
	"github.com/rushteam/feedrank/pkg/conv"
	"github.com/rushteam/feedrank/recall"
	"github.com/rushteam/feedrank/rerank"
)

func init() {
	config.Register("recall.fanout", BuildFanoutNode)
	config.Register("recall.hot", BuildHotNode)
	config.Register("rerank.hybrid", BuildHybridNode)
	config.Register("rerank.topn", BuildTopNNode)
	config.Register("rerank.diversity", BuildDiversityNode)
	config.Register("filter", BuildFilterNode)
}

// BuildFanoutNode 配置示例：
//
//	type: recall.fanout
//	config:
//	  merge_strategy: union
//	  timeout: 2          # 秒
//	  max_concurrent: 4
//	  sources:
//	    - {type: ref, name: recall.cf}
//	    - {type: ref, name: recall.content}
//	    - {type: hot, key: "feedrank:hot:posts", k: 20}
func BuildFanoutNode(res *config.Resources, cfg map[string]any) (pipeline.Node, error) {
	sourcesConfig, ok := cfg["sources"].([]any)
	if !ok {
		return nil, fmt.Errorf("sources not found or invalid")
	}
	sources := make([]recall.Source, 0, len(sourcesConfig))
	for _, sc := range sourcesConfig {
		sourceMap, ok := sc.(map[string]any)
		if !ok {
			continue
		}
		switch sourceType := conv.ConfigGet(sourceMap, "type", ""); sourceType {
		case "ref":
			src, err := res.Source(conv.ConfigGet(sourceMap, "name", ""))
			if err != nil {
				return nil, err
			}
			sources = append(sources, src)
		case "hot":
			hot, err := buildHot(res, sourceMap)
			if err != nil {
				return nil, err
			}
			sources = append(sources, hot)
		default:
			return nil, fmt.Errorf("unknown source type: %s", sourceType)
		}
	}

	strategy := conv.ConfigGet(cfg, "merge_strategy", "first")
	switch strategy {
	case "first", "union", "priority":
	default:
		return nil, fmt.Errorf("unknown merge strategy: %s", strategy)
	}
	fanout := &recall.Fanout{
		Sources:       sources,
		Dedup:         conv.ConfigGet(cfg, "dedup", true),
		MergeStrategy: strategy,
	}
	if sec := conv.ConfigGetInt64(cfg, "timeout", 0); sec > 0 {
		fanout.Timeout = time.Duration(sec) * time.Second
	}
	if n := conv.ConfigGetInt64(cfg, "max_concurrent", 0); n > 0 {
		fanout.MaxConcurrent = int(n)
	}
	return fanout, nil
}

// BuildHotNode 配置项：store（默认 default）、key、k。
func BuildHotNode(res *config.Resources, cfg map[string]any) (pipeline.Node, error) {
	return buildHot(res, cfg)
}

func buildHot(res *config.Resources, cfg map[string]any) (*recall.Hot, error) {
	hot := &recall.Hot{
		Key:      conv.ConfigGet(cfg, "key", recall.DefaultHotKey),
		Trending: res.Trending,
		K:        int(conv.ConfigGetInt64(cfg, "k", 0)),
	}
	name := conv.ConfigGet(cfg, "store", "")
	s, err := res.Store(name)
	switch {
	case err == nil:
		hot.Store = s
	case name != "":
		return nil, err
	}
	return hot, nil
}

// BuildHybridNode 配置项：sources（召回源名称列表）、weights（与 sources 对应）、k。
// 未配置 sources 时使用 CF 0.6 + 内容 0.4。
func BuildHybridNode(_ *config.Resources, cfg map[string]any) (pipeline.Node, error) {
	node := rerank.NewHybridNode()
	if sources := conv.SliceAnyToString(cfg["sources"]); len(sources) > 0 {
		raw, _ := cfg["weights"].([]any)
		weights := conv.ConvertSlice(raw, conv.ToFloat64)
		if len(weights) != len(sources) {
			return nil, fmt.Errorf("hybrid: %d weights for %d sources", len(weights), len(sources))
		}
		for _, w := range weights {
			if w < 0 {
				return nil, fmt.Errorf("hybrid: negative weight %v", w)
			}
		}
		node.Sources, node.Weights = sources, weights
	}
	node.K = int(conv.ConfigGetInt64(cfg, "k", 0))
	return node, nil
}

// BuildTopNNode 配置项：n（<= 0 时取请求的 k）。
func BuildTopNNode(_ *config.Resources, cfg map[string]any) (pipeline.Node, error) {
	return &rerank.TopNNode{N: int(conv.ConfigGetInt64(cfg, "n", 0))}, nil
}

// BuildDiversityNode 配置项：label_key（默认 author）、max_per_key（默认 1）、demote。
func BuildDiversityNode(_ *config.Resources, cfg map[string]any) (pipeline.Node, error) {
	labelKey := conv.ConfigGet(cfg, "label_key", "author")
	if labelKey == "" {
		labelKey = "author"
	}
	return &rerank.Diversity{
		LabelKey:  labelKey,
		MaxPerKey: int(conv.ConfigGetInt64(cfg, "max_per_key", 1)),
		Demote:    conv.ConfigGet(cfg, "demote", false),
	}, nil
}

// BuildFilterNode 配置示例：
//
//	type: filter
//	config:
//	  filters:
//	    - {type: blacklist, item_ids: [p13], key: "feedrank:blacklist"}
//	    - {type: user_block, key_prefix: "feedrank:block"}
//	    - {type: ref, name: filter.seen}
//	    - {type: moderation, text_key: text}
//	    - {type: expr, expr: 'item.meta.category == "spam"'}
func BuildFilterNode(res *config.Resources, cfg map[string]any) (pipeline.Node, error) {
	filtersConfig, ok := cfg["filters"].([]any)
	if !ok {
		return nil, fmt.Errorf("filters not found or invalid")
	}
	filters := make([]filter.Filter, 0, len(filtersConfig))
	for _, fc := range filtersConfig {
		filterMap, ok := fc.(map[string]any)
		if !ok {
			continue
		}
		f, err := buildFilter(res, filterMap)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return &filter.FilterNode{Filters: filters}, nil
}

func buildFilter(res *config.Resources, m map[string]any) (filter.Filter, error) {
	adapter := func() *filter.StoreAdapter {
		s, err := res.Store(conv.ConfigGet(m, "store", ""))
		if err != nil {
			return nil
		}
		return filter.NewStoreAdapter(s)
	}

	switch filterType := conv.ConfigGet(m, "type", ""); filterType {
	case "blacklist":
		ids := conv.SliceAnyToString(m["item_ids"])
		if ids == nil {
			ids = []string{}
		}
		key := conv.ConfigGet(m, "key", "")
		var sa *filter.StoreAdapter
		if key != "" {
			sa = adapter()
		}
		return filter.NewBlacklistFilter(ids, sa, key), nil
	case "user_block":
		return filter.NewUserBlockFilter(adapter(), conv.ConfigGet(m, "key_prefix", "")), nil
	case "moderation":
		mod := res.Moderator
		if mod == nil {
			mod = moderation.NewModerator()
		}
		return &filter.ModerationFilter{Moderator: mod, TextKey: conv.ConfigGet(m, "text_key", "")}, nil
	case "expr":
		return filter.NewExprFilter(conv.ConfigGet(m, "expr", ""))
	case "ref":
		return res.Filter(conv.ConfigGet(m, "name", ""))
	default:
		return nil, fmt.Errorf("unknown filter type: %s", filterType)
	}
}
