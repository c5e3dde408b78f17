package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rushteam/feedrank/cluster"
	"github.com/rushteam/feedrank/core"
	"github.com/rushteam/feedrank/feature"
	"github.com/rushteam/feedrank/filter"
	"github.com/rushteam/feedrank/trend"
)

// ContentKey 是词表与内容矩阵在 Store 中的 key，New 从这里恢复内容召回所需的快照。
const ContentKey = "feedrank:content"

// snapshot 是一次 Rebuild 的全部产物，构建完成后只读。
type snapshot struct {
	vectorizer *feature.Vectorizer
	content    *feature.ContentMatrix
	matrix     *feature.InteractionMatrix
	ranking    *trend.PostRanking
	clusters   map[string]int
	builtAt    time.Time
}

func emptySnapshot() *snapshot {
	vz, content := feature.BuildContentVectors(nil, 0)
	return &snapshot{
		vectorizer: vz,
		content:    content,
		matrix:     feature.BuildInteractionMatrix(nil, nil),
		ranking:    &trend.PostRanking{},
		clusters:   map[string]int{},
	}
}

// restoreContent 读取上次 Rebuild 保存的内容快照，使首次 Rebuild 之前内容召回即可用。
// 没有保存过时返回 false。
func (e *Engine) restoreContent(ctx context.Context, snap *snapshot) (bool, error) {
	data, err := e.store.Get(ctx, ContentKey)
	if core.IsStoreNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("engine: read content snapshot: %w", err)
	}
	vz, content, err := feature.LoadContent(data)
	if err != nil {
		return false, err
	}
	snap.vectorizer, snap.content = vz, content
	return true, nil
}

// RebuildStats 汇总一次 Rebuild 的规模。
type RebuildStats struct {
	Users      int       `json:"users"`
	Posts      int       `json:"posts"`
	Vocabulary int       `json:"vocabulary"`
	MatrixRows int       `json:"matrix_rows"`
	MatrixCols int       `json:"matrix_cols"`
	Clusters   int       `json:"clusters"`
	BuiltAt    time.Time `json:"built_at"`
}

// Rebuild 从当前画像、帖子与交互日志重新构建快照并原子替换：
// TF-IDF 内容矩阵、交互矩阵、用户聚类、帖子热度榜。
// 已交互索引按完整日志重建。之后把热门帖子发布到 HotKey 有序集合，
// 并持久化热度榜、词表与内容矩阵、每个用户的已交互过滤器。
//
// Rebuild 开销较大，应由调用方按固定周期调度，而不是每个请求调用。
func (e *Engine) Rebuild(ctx context.Context) (RebuildStats, error) {
	ctx, log, _ := e.requestContext(ctx, "rebuild")
	users, posts := e.catalog()
	now := e.now()

	e.seen.Mark()
	interactions, err := e.interactions.All(ctx)
	if err != nil {
		e.seen.Unmark()
		return RebuildStats{}, fmt.Errorf("engine: read interactions: %w", err)
	}

	next := &snapshot{builtAt: now}

	e.timed("content", func() {
		docs := make([]feature.Document, len(posts))
		for i := range posts {
			docs[i] = feature.Document{ID: posts[i].ID, Text: posts[i].ContentText()}
		}
		next.vectorizer, next.content = feature.BuildContentVectors(docs, e.cfg.Content.MaxFeatures)
	})

	e.timed("matrix", func() {
		next.matrix = feature.BuildInteractionMatrix(interactions, e.weights)
		e.seen.Reset(interactions)
	})

	var clusterErr error
	e.timed("cluster", func() {
		c := &cluster.Clusterer{
			Config: e.cfg.Cluster,
			Stats:  e.stats,
			OnStatsError: func(err error) {
				log.Warn().Err(err).Msg("user stats unavailable, clustering on profile counts")
			},
		}
		next.clusters, clusterErr = c.Cluster(ctx, users, cluster.InteractionCounts(interactions))
	})
	if clusterErr != nil {
		return RebuildStats{}, fmt.Errorf("engine: cluster: %w", clusterErr)
	}

	next.ranking = &trend.PostRanking{Posts: posts, Now: e.now}

	e.snap.Store(next)

	e.timed("persist", func() {
		if err := e.persist(ctx, next, posts, now); err != nil {
			log.Warn().Err(err).Msg("persist snapshot")
		}
	})

	stats := RebuildStats{
		Users:      len(users),
		Posts:      len(posts),
		Vocabulary: next.vectorizer.VocabularySize(),
		MatrixRows: next.matrix.NumUsers(),
		MatrixCols: next.matrix.NumItems(),
		Clusters:   countClusters(next.clusters),
		BuiltAt:    now,
	}
	log.Info().
		Int("users", stats.Users).
		Int("posts", stats.Posts).
		Int("vocabulary", stats.Vocabulary).
		Int("interactions", len(interactions)).
		Int("clusters", stats.Clusters).
		Msg("snapshot rebuilt")
	return stats, nil
}

// persist 发布热门帖子、保存热度榜、内容快照与已交互过滤器。失败不影响已替换的快照。
func (e *Engine) persist(ctx context.Context, snap *snapshot, posts []core.Post, now time.Time) error {
	if err := trend.Publish(ctx, e.store, e.cfg.Trend.HotKey, trend.RankPosts(posts, now, 0)); err != nil {
		return err
	}
	e.trendMu.Lock()
	err := trend.Snapshot(ctx, e.store, e.cfg.Trend.SnapshotKey, e.trends)
	e.trendMu.Unlock()
	if err != nil {
		return err
	}
	state, err := feature.MarshalContent(snap.vectorizer, snap.content)
	if err != nil {
		return fmt.Errorf("engine: encode content: %w", err)
	}
	if err := e.store.Set(ctx, ContentKey, state); err != nil {
		return err
	}
	_, err = e.seen.SaveAll(ctx, e.store, filter.DefaultSeenKeyPrefix)
	return err
}

func (e *Engine) timed(stage string, fn func()) {
	start := time.Now()
	fn()
	e.metrics.RebuildSeconds.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func countClusters(labels map[string]int) int {
	seen := make(map[int]struct{})
	for _, l := range labels {
		seen[l] = struct{}{}
	}
	return len(seen)
}
