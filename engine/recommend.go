package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rushteam/feedrank/config"
	"github.com/rushteam/feedrank/core"
	"github.com/rushteam/feedrank/filter"
	"github.com/rushteam/feedrank/pipeline"
	"github.com/rushteam/feedrank/recall"
	"github.com/rushteam/feedrank/rerank"
)

const (
	strategyHybrid   = "hybrid"
	strategyPipeline = "pipeline"

	reasonEmpty = "empty_result"
)

// Recommendation 是一次推荐的结果。
type Recommendation struct {
	RequestID string   `json:"request_id"`
	UserID    string   `json:"user_id"`
	ItemIDs   []string `json:"item_ids"`
	Strategy  string   `json:"strategy"`
	// Fallback 协同过滤退化到热门列表的原因，未退化时为空
	Fallback string `json:"fallback,omitempty"`
}

// Recommend 为用户返回最多 k 个物品 ID（k <= 0 时使用 DefaultK）。
//
// 内置链路：协同过滤 + 内容召回（union 合并）→ 过滤已交互物品 → 按 0.6/0.4 位置加权融合。
// 配置了 Pipeline 文件时改用配置驱动的链路，召回源/过滤器按名称引用。
// 未知用户不是错误：协同过滤退化到热门列表，内容召回没有兴趣文本时不产出。
func (e *Engine) Recommend(ctx context.Context, userID string, k int) (Recommendation, error) {
	ctx, log, requestID := e.requestContext(ctx, "recommend")
	if k <= 0 {
		k = e.cfg.DefaultK
	}
	start := time.Now()
	snap := e.snap.Load()

	rctx := &core.RecommendContext{UserID: userID, K: k}
	if u, ok := e.User(userID); ok {
		rctx = core.NewRecommendContext(&u, k)
	}
	rctx.RequestID = requestID
	e.ensureSeen(ctx, userID)
	rec := Recommendation{RequestID: requestID, UserID: userID, Strategy: strategyHybrid}

	var fallback string
	sources := e.sources(snap, func(reason string) { fallback = reason })

	var (
		p   *pipeline.Pipeline
		err error
	)
	if e.pipeline != nil {
		rec.Strategy = strategyPipeline
		p, err = config.BuildPipeline(e.pipeline, e.resources(snap, sources))
		if err != nil {
			return rec, fmt.Errorf("engine: build pipeline: %w", err)
		}
	} else {
		p = e.hybridPipeline(sources)
	}

	items, err := p.Run(ctx, rctx, nil)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("recommend failed")
		return rec, err
	}
	if len(items) > k {
		items = items[:k]
	}
	rec.ItemIDs = core.ItemIDs(items)
	rec.Fallback = fallback

	e.metrics.Recommendations.WithLabelValues(rec.Strategy).Inc()
	if fallback != "" {
		e.metrics.Fallbacks.WithLabelValues(fallback).Inc()
	}
	if len(rec.ItemIDs) == 0 {
		e.metrics.Fallbacks.WithLabelValues(reasonEmpty).Inc()
	}
	log.Debug().
		Str("user_id", userID).
		Int("k", k).
		Int("returned", len(rec.ItemIDs)).
		Str("fallback", fallback).
		Dur("elapsed", time.Since(start)).
		Msg("recommend")
	return rec, nil
}

// namedSources 是内置召回源，键为 Source.Name()。
type namedSources struct {
	cf      recall.Source
	content recall.Source
	hot     *recall.Hot
}

func (e *Engine) sources(snap *snapshot, onFallback func(reason string)) namedSources {
	hot := &recall.Hot{Store: e.store, Key: e.cfg.Trend.HotKey, Trending: snap.ranking}
	cf := &recall.CFRecall{
		CF: &recall.CollaborativeFilter{
			Neighbors: e.cfg.Collaborative.Neighbors,
			MaxRank:   e.cfg.Collaborative.MaxRank,
			Fallback:  hot,
		},
		Matrix: snap.matrix,
	}
	content := &recall.ContentRecall{Vectorizer: snap.vectorizer, Corpus: snap.content}
	return namedSources{
		cf:      &catalogSource{Source: cf, engine: e, onFallback: onFallback},
		content: &catalogSource{Source: content, engine: e},
		hot:     hot,
	}
}

func (e *Engine) hybridPipeline(src namedSources) *pipeline.Pipeline {
	return &pipeline.Pipeline{Nodes: []pipeline.Node{
		&recall.Fanout{
			Sources:       []recall.Source{src.cf, src.content},
			MergeStrategy: "union",
			OnError:       e.onSourceError,
		},
		&filter.FilterNode{
			Filters: []filter.Filter{&filter.SeenFilter{Index: e.seen}},
			OnError: e.onFilterError,
		},
		&rerank.HybridNode{
			Sources: []string{src.cf.Name(), src.content.Name()},
			Weights: []float64{e.cfg.Hybrid.CollabWeight, e.cfg.Hybrid.ContentWeight},
		},
	}}
}

// resources 是配置驱动链路可以按名称引用的依赖。
func (e *Engine) resources(snap *snapshot, src namedSources) *config.Resources {
	seen := &filter.SeenFilter{Index: e.seen}
	mod := &filter.ModerationFilter{Moderator: e.moderator}
	return &config.Resources{
		Stores: map[string]core.Store{config.DefaultStoreName: e.store},
		Sources: map[string]recall.Source{
			src.cf.Name():      src.cf,
			src.content.Name(): src.content,
			src.hot.Name():     &catalogSource{Source: src.hot, engine: e},
		},
		Filters: map[string]filter.Filter{
			seen.Name(): seen,
			mod.Name():  mod,
		},
		Trending:  snap.ranking,
		Moderator: e.moderator,
	}
}

func (e *Engine) onSourceError(source string, err error) {
	e.log.Warn().Err(err).Str("source", source).Msg("recall source failed")
	e.metrics.Fallbacks.WithLabelValues("source_error").Inc()
}

func (e *Engine) onFilterError(name, itemID string, err error) {
	e.log.Warn().Err(err).Str("filter", name).Str("item_id", itemID).Msg("filter failed, item kept")
}

// catalogSource 给召回结果补上帖子元信息（author/text/category/kind），
// 供多样性打散、屏蔽作者、审核过滤和表达式过滤使用；
// 同时把协同过滤的兜底原因上报给 onFallback。
type catalogSource struct {
	recall.Source
	engine     *Engine
	onFallback func(reason string)
}

func (s *catalogSource) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	items, err := s.Source.Recall(ctx, rctx)
	if err != nil {
		return nil, err
	}
	if s.onFallback != nil && len(items) > 0 {
		if reason := items[0].MetaString("fallback"); reason != "" {
			s.onFallback(reason)
		}
	}
	for _, it := range items {
		p, ok := s.engine.Post(it.ID)
		if !ok {
			continue
		}
		it.Meta["author"] = p.UserID
		it.Meta["text"] = p.ContentText()
		it.Meta["category"] = p.Category
		it.Meta["kind"] = string(p.Kind)
	}
	return items, nil
}
