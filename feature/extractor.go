package feature

import (
	"context"

	"github.com/rushteam/feedrank/core"
)

// ProfileFeatureNames 是用户聚类特征的列顺序。
var ProfileFeatureNames = []string{
	"bio_length",
	"followers_count",
	"following_count",
	"posts_count",
	"interaction_count",
}

// UserStats 是外部特征源提供的用户计数（例如 Feast 在线特征）。
type UserStats struct {
	FollowersCount int
	FollowingCount int
	PostsCount     int
}

// StatsSource 是用户计数的可选外部来源。
// 返回结果中缺失的用户保持画像中的原值。
type StatsSource interface {
	UserStats(ctx context.Context, userIDs []string) (map[string]UserStats, error)
}

// ProfileExtractor 抽取用户聚类特征：
// bio 长度、粉丝数、关注数、帖子数、交互次数。
type ProfileExtractor struct {
	// Stats 外部计数来源（可选）；出错时回退到 User 上的字段
	Stats StatsSource
}

// Extract 按 users 顺序返回特征行，列顺序为 ProfileFeatureNames。
// 外部来源出错时仍返回基于画像字段的完整特征行，同时返回该错误。
func (e *ProfileExtractor) Extract(ctx context.Context, users []core.User, interactionCounts map[string]int) ([][]float64, error) {
	var stats map[string]UserStats
	var statsErr error
	if e != nil && e.Stats != nil && len(users) > 0 {
		ids := make([]string, len(users))
		for i, u := range users {
			ids[i] = u.ID
		}
		stats, statsErr = e.Stats.UserStats(ctx, ids)
	}

	rows := make([][]float64, len(users))
	for i, u := range users {
		followers, following, posts := u.FollowersCount, u.FollowingCount, u.PostsCount
		if s, ok := stats[u.ID]; ok {
			followers, following, posts = s.FollowersCount, s.FollowingCount, s.PostsCount
		}
		rows[i] = []float64{
			float64(len([]rune(u.Bio))),
			float64(followers),
			float64(following),
			float64(posts),
			float64(interactionCounts[u.ID]),
		}
	}
	return rows, statsErr
}
