// Package engine 是排序推荐引擎的入口：持有交互日志、热度榜、偏好分与离线快照，
// 并把 feature / recall / rerank / filter 等纯算法包串成在线请求。
//
// 并发约定：
//   - 热度榜的读-改-写由 trendMu 串行化
//   - 偏好分按用户加锁
//   - 快照（向量化器、内容矩阵、交互矩阵、聚类结果）由 Rebuild 整体构建后原子替换，
//     请求只读取替换前后的某一个完整版本
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/rushteam/feedrank/config"
	_ "github.com/rushteam/feedrank/config/builders"
	"github.com/rushteam/feedrank/core"
	"github.com/rushteam/feedrank/feast"
	"github.com/rushteam/feedrank/feature"
	"github.com/rushteam/feedrank/filter"
	"github.com/rushteam/feedrank/moderation"
	"github.com/rushteam/feedrank/pipeline"
	"github.com/rushteam/feedrank/pkg/logger"
	"github.com/rushteam/feedrank/preference"
	"github.com/rushteam/feedrank/service"
	"github.com/rushteam/feedrank/store"
	"github.com/rushteam/feedrank/trend"
)

// Engine 是推荐引擎。零值不可用，使用 New 创建。
type Engine struct {
	cfg     config.EngineConfig
	weights core.ActionWeights
	log     zerolog.Logger
	metrics *Metrics
	now     func() time.Time

	store        core.KeyValueStore
	interactions core.InteractionLog
	prefs        *preference.Repository
	prefLocks    keyedMutex
	seen         *filter.SeenIndex

	moderator *moderation.Moderator
	media     moderation.MediaAnalyzer
	stats     feature.StatsSource
	pipeline  *pipeline.Config

	trendMu sync.Mutex
	trends  *trend.Board

	catalogMu sync.RWMutex
	users     map[string]core.User
	userOrder []string
	posts     map[string]core.Post
	postOrder []string

	snap atomic.Pointer[snapshot]

	closers []func(context.Context) error
}

// Option 定制 Engine 的依赖，未设置的依赖按配置创建。
type Option func(*options)

type options struct {
	store        core.KeyValueStore
	interactions core.InteractionLog
	log          *zerolog.Logger
	registerer   prometheus.Registerer
	sentiment    moderation.SentimentAnalyzer
	media        moderation.MediaAnalyzer
	stats        feature.StatsSource
	now          func() time.Time
}

// WithStore 使用给定的存储（替代按配置创建的 Redis / 内存存储）。
func WithStore(s core.KeyValueStore) Option {
	return func(o *options) { o.store = s }
}

// WithInteractionLog 使用给定的交互日志。
func WithInteractionLog(l core.InteractionLog) Option {
	return func(o *options) { o.interactions = l }
}

// WithLogger 使用给定的 logger（替代按 cfg.Log 创建）。
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = &l }
}

// WithRegisterer 把指标注册到给定的 Registerer。
func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *options) { o.registerer = r }
}

// WithSentiment 使用给定的情感分析器。
func WithSentiment(a moderation.SentimentAnalyzer) Option {
	return func(o *options) { o.sentiment = a }
}

// WithMedia 使用给定的媒体分析器。
func WithMedia(a moderation.MediaAnalyzer) Option {
	return func(o *options) { o.media = a }
}

// WithStats 使用给定的用户计数来源。
func WithStats(s feature.StatsSource) Option {
	return func(o *options) { o.stats = s }
}

// WithClock 替换时钟，用于测试。
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New 按配置创建引擎：
//   - Redis 地址非空时使用 RedisStore + RedisInteractionLog，否则使用内存实现
//   - 配置了情感/媒体服务地址时接入 TorchServe 客户端（带熔断），本地词典情感分析兜底
//   - 配置了 Feast 地址时聚类计数取自 Feast 在线特征
//   - 从存储中恢复热度榜快照和内容快照（词表 + 内容矩阵）
func New(ctx context.Context, cfg config.EngineConfig, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	e := &Engine{
		cfg:     cfg,
		weights: cfg.Weights(),
		now:     time.Now,
		users:   make(map[string]core.User),
		posts:   make(map[string]core.Post),
	}
	if o.now != nil {
		e.now = o.now
	}
	if o.log != nil {
		e.log = *o.log
	} else {
		e.log = logger.New(cfg.Log)
	}
	e.metrics = NewMetrics(o.registerer)

	if err := e.openStore(ctx, o); err != nil {
		return nil, err
	}
	e.prefs = preference.NewRepository(e.store)
	e.seen = filter.NewSeenIndex(cfg.Seen.Capacity, cfg.Seen.FalsePositiveRate)

	if err := e.openServices(o); err != nil {
		_ = e.Close(ctx)
		return nil, err
	}

	board, err := trend.Restore(ctx, e.store, cfg.Trend.SnapshotKey)
	if err != nil {
		e.log.Warn().Err(err).Msg("trend snapshot unreadable, starting empty")
		board = trend.NewBoard(cfg.Trend.Decay)
	}
	board.Decay = cfg.Trend.Decay
	e.trends = board

	if cfg.Pipeline != "" {
		pc, err := pipeline.Load(cfg.Pipeline)
		if err != nil {
			_ = e.Close(ctx)
			return nil, fmt.Errorf("engine: load pipeline %s: %w", cfg.Pipeline, err)
		}
		if err := config.ValidatePipelineConfig(pc); err != nil {
			_ = e.Close(ctx)
			return nil, fmt.Errorf("engine: pipeline %s: %w", cfg.Pipeline, err)
		}
		e.pipeline = pc
	}

	snap := emptySnapshot()
	restored, err := e.restoreContent(ctx, snap)
	if err != nil {
		e.log.Warn().Err(err).Msg("content snapshot unreadable, starting empty")
	} else if restored {
		e.log.Info().Int("items", snap.content.Len()).Msg("content snapshot restored")
	}
	e.snap.Store(snap)
	return e, nil
}

func (e *Engine) openStore(ctx context.Context, o *options) error {
	switch {
	case o.store != nil:
		e.store = o.store
	case e.cfg.Redis.Addr != "":
		rs, err := store.NewRedisStore(ctx, store.RedisOptions{
			Addr:     e.cfg.Redis.Addr,
			Password: e.cfg.Redis.Password,
			DB:       e.cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		e.store = rs
		if o.interactions == nil {
			o.interactions = store.NewRedisInteractionLog(rs.Client(), "")
		}
		e.log.Info().Str("addr", e.cfg.Redis.Addr).Msg("using redis store")
	default:
		e.store = store.NewMemoryStore()
	}
	e.closers = append(e.closers, func(context.Context) error { return e.store.Close() })

	e.interactions = o.interactions
	if e.interactions == nil {
		e.interactions = store.NewMemoryInteractionLog()
	}
	return nil
}

func (e *Engine) openServices(o *options) error {
	svc := e.cfg.Services
	newClient := func(name, endpoint, model string) (core.ModelService, error) {
		client, err := service.NewModelService(&service.ServiceConfig{
			Type:      service.ServiceTypeTorchServe,
			Endpoint:  endpoint,
			ModelName: model,
			Timeout:   svc.Timeout,
			Breaker:   &service.BreakerConfig{Name: name, ConsecutiveFailures: svc.BreakerFailures},
		}, e.log)
		if err != nil {
			return nil, fmt.Errorf("engine: %s service: %w", name, err)
		}
		e.closers = append(e.closers, client.Close)
		return client, nil
	}

	sentiment := o.sentiment
	if sentiment == nil {
		sentiment = moderation.NewLexiconAnalyzer()
		if svc.SentimentURL != "" {
			client, err := newClient("sentiment", svc.SentimentURL, svc.SentimentModel)
			if err != nil {
				return err
			}
			sentiment = moderation.FallbackSentiment{
				&moderation.RemoteSentiment{Service: client, ModelName: svc.SentimentModel},
				sentiment,
			}
		}
	}
	e.moderator = &moderation.Moderator{
		BannedKeywords:     moderation.DefaultBannedKeywords,
		SentimentThreshold: e.cfg.Moderation.SentimentThreshold,
		Sentiment:          sentiment,
	}
	if len(e.cfg.Moderation.BannedKeywords) > 0 {
		e.moderator.BannedKeywords = e.cfg.Moderation.BannedKeywords
	}

	e.media = o.media
	if e.media == nil {
		e.media = moderation.UnavailableMedia{}
		if svc.MediaURL != "" {
			client, err := newClient("media", svc.MediaURL, svc.MediaModel)
			if err != nil {
				return err
			}
			e.media = &moderation.RemoteMedia{Service: client, ModelName: svc.MediaModel}
		}
	}

	e.stats = o.stats
	if e.stats == nil && e.cfg.Feast.Host != "" {
		client, err := feast.NewGrpcClient(e.cfg.Feast.Host, e.cfg.Feast.Port, e.cfg.Feast.Project, feast.WithTimeout(svc.Timeout))
		if err != nil {
			return fmt.Errorf("engine: feast: %w", err)
		}
		e.closers = append(e.closers, func(context.Context) error { return client.Close() })
		e.stats = &feast.UserStatsSource{Client: client, Project: e.cfg.Feast.Project}
	}
	return nil
}

// Config 返回引擎配置。
func (e *Engine) Config() config.EngineConfig { return e.cfg }

// Metrics 返回引擎指标。
func (e *Engine) Metrics() *Metrics { return e.metrics }

// Store 返回引擎使用的存储。
func (e *Engine) Store() core.KeyValueStore { return e.store }

// Close 保存热度榜快照与已交互过滤器，并释放存储和远程客户端。
func (e *Engine) Close(ctx context.Context) error {
	var errs []error
	if e.trends != nil {
		e.trendMu.Lock()
		if err := trend.Snapshot(ctx, e.store, e.cfg.Trend.SnapshotKey, e.trends); err != nil {
			errs = append(errs, err)
		}
		e.trendMu.Unlock()
	}
	if e.seen != nil && e.store != nil {
		if _, err := e.seen.SaveAll(ctx, e.store, filter.DefaultSeenKeyPrefix); err != nil {
			errs = append(errs, err)
		}
	}
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}

// requestContext 给 ctx 挂上带 request_id 的 logger。
func (e *Engine) requestContext(ctx context.Context, op string) (context.Context, *zerolog.Logger, string) {
	id := logger.NewRequestID()
	ctx = logger.WithRequestID(ctx, e.log.With().Str("op", op).Logger(), id)
	return ctx, zerolog.Ctx(ctx), id
}
