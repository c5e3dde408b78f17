package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/feedrank/cluster"
	"github.com/rushteam/feedrank/core"
	"github.com/rushteam/feedrank/feature"
	"github.com/rushteam/feedrank/moderation"
	"github.com/rushteam/feedrank/preference"
	"github.com/rushteam/feedrank/recall"
	"github.com/rushteam/feedrank/trend"
)

// Trending 返回当前热度最高的话题标签/类目，读取前按经过的时间衰减，不修改状态。
func (e *Engine) Trending(limit int) []trend.Entry {
	now := e.now()
	e.trendMu.Lock()
	defer e.trendMu.Unlock()
	return e.trends.Top(limit, now)
}

// TrendingPosts 按互动分 × 新鲜度返回前 k 个帖子（基于最近一次 Rebuild 的帖子快照）。
func (e *Engine) TrendingPosts(k int) []string {
	if k <= 0 {
		k = e.cfg.DefaultK
	}
	return e.snap.Load().ranking.TrendingIDs(k)
}

// CategoryTrends 汇总最近 window 内发布的帖子的类目热度。
func (e *Engine) CategoryTrends(window time.Duration) []trend.CategoryTrend {
	_, posts := e.catalog()
	return trend.CategoryTrends(posts, e.now(), window)
}

// PredictEngagement 预测用户发布一条内容后的互动量。postedAt 为零值时按当前时间计算。
// 用户不在目录中时返回 NOT_FOUND。
func (e *Engine) PredictEngagement(userID, caption string, hashtags []string, postedAt time.Time) (trend.Prediction, error) {
	u, ok := e.User(userID)
	if !ok {
		return trend.Prediction{}, core.NewDomainError(core.ModuleEngine, core.ErrorCodeNotFound, fmt.Sprintf("engine: unknown user %s", userID))
	}
	if postedAt.IsZero() {
		postedAt = e.now()
	}
	return trend.PredictEngagement(trend.PredictInput{
		Caption:   caption,
		Hashtags:  hashtags,
		PostedAt:  postedAt,
		Followers: u.FollowersCount,
	}), nil
}

// SuggestHashtags 为 caption 和媒体 URL 建议话题标签。
// 媒体标签来自视觉服务，服务不可用或出错时只用 caption。两者都为空时返回 INVALID_INPUT。
func (e *Engine) SuggestHashtags(ctx context.Context, caption, mediaURL string) ([]string, error) {
	if caption == "" && mediaURL == "" {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput, "engine: caption or media url required")
	}
	ctx, log, _ := e.requestContext(ctx, "suggest_hashtags")
	var labels []string
	if mediaURL != "" && e.media != nil {
		rep, err := e.media.AnalyzeMedia(ctx, mediaURL)
		if err != nil {
			log.Debug().Err(err).Str("url", mediaURL).Msg("media labels unavailable")
		} else {
			labels = rep.Labels
		}
	}
	return feature.SuggestHashtags(caption, labels), nil
}

// SimilarContent 返回与帖子文本最相似的 k 个其他帖子（基于最近一次 Rebuild 的内容矩阵）。
// 帖子不在内容矩阵中时返回空列表。
func (e *Engine) SimilarContent(itemID string, k int) []string {
	if k <= 0 {
		k = e.cfg.DefaultK
	}
	scored := recall.ContentFilter{}.SimilarItems(itemID, e.snap.Load().content, k)
	ids := make([]string, len(scored))
	for i, s := range scored {
		ids[i] = s.ID
	}
	return ids
}

// Moderate 审核文本。情感服务失败时跳过情感判断，不会返回错误。
func (e *Engine) Moderate(ctx context.Context, text string) moderation.Verdict {
	ctx, log, _ := e.requestContext(ctx, "moderate")
	v := e.moderator.ModerateContext(ctx, text)
	e.observeVerdict(log, v)
	return v
}

// ModerateMedia 审核图片/视频 URL。未接入视觉服务时返回 review。
func (e *Engine) ModerateMedia(ctx context.Context, url string) moderation.Verdict {
	ctx, log, _ := e.requestContext(ctx, "moderate_media")
	v := moderation.ModerateMedia(ctx, e.media, url, e.cfg.Moderation.MediaThreshold)
	e.observeVerdict(log, v)
	return v
}

func (e *Engine) observeVerdict(log *zerolog.Logger, v moderation.Verdict) {
	e.metrics.Verdicts.WithLabelValues(string(v.SuggestedAction)).Inc()
	if v.IsAppropriate {
		return
	}
	log.Info().
		Strs("issues", v.Issues).
		Float64("confidence", v.Confidence).
		Str("action", string(v.SuggestedAction)).
		Msg("content flagged")
}

// UserCluster 返回用户所在的簇（最近一次 Rebuild 的结果）。
func (e *Engine) UserCluster(userID string) (int, bool) {
	c, ok := e.snap.Load().clusters[userID]
	return c, ok
}

// SimilarUsers 返回与用户同簇的其他用户，按 ID 排序。
func (e *Engine) SimilarUsers(userID string, limit int) []string {
	return cluster.SimilarUsers(userID, e.snap.Load().clusters, limit)
}

// ActiveHours 预测用户最活跃的 4 个小时；没有记录时返回默认高峰时段。
func (e *Engine) ActiveHours(ctx context.Context, userID string) ([]int, error) {
	log, err := e.interactions.ByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("engine: read interactions: %w", err)
	}
	return cluster.PredictActiveHours(userID, log), nil
}

// ActivitySummary 汇总用户的行为量、高峰时段与活跃分层。
func (e *Engine) ActivitySummary(ctx context.Context, userID string) (cluster.Summary, error) {
	log, err := e.interactions.ByUser(ctx, userID)
	if err != nil {
		return cluster.Summary{}, fmt.Errorf("engine: read interactions: %w", err)
	}
	return cluster.ActivitySummary(userID, log), nil
}

// TopCategories 返回用户偏好分最高的 n 个类目。
func (e *Engine) TopCategories(ctx context.Context, userID string, n int) ([]preference.Score, error) {
	return e.prefs.Top(ctx, userID, n)
}

// DecayPreferences 把所有已知用户的偏好分乘以 factor（0..1），作为周期任务调用。
func (e *Engine) DecayPreferences(ctx context.Context, factor float64) error {
	ctx, log, _ := e.requestContext(ctx, "decay_preferences")
	users, _ := e.catalog()
	ids := make(map[string]struct{}, len(users))
	for _, u := range users {
		ids[u.ID] = struct{}{}
	}
	all, err := e.interactions.All(ctx)
	if err != nil {
		return fmt.Errorf("engine: read interactions: %w", err)
	}
	for _, in := range all {
		ids[in.UserID] = struct{}{}
	}

	for id := range ids {
		unlock := e.prefLocks.lock(id)
		err := e.prefs.Decay(ctx, id, factor)
		unlock()
		if err != nil {
			return fmt.Errorf("engine: decay preferences of %s: %w", id, err)
		}
	}
	log.Info().Int("users", len(ids)).Float64("factor", factor).Msg("preferences decayed")
	return nil
}
