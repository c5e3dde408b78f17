package feast

import (
	"context"
	"fmt"

	"github.com/rushteam/feedrank/feature"
)

// 默认的特征视图与实体键。
const (
	DefaultStatsView = "user_stats"
	DefaultEntityKey = "user_id"
)

// UserStatsSource 从 Feast 在线特征读取用户计数，实现 feature.StatsSource。
//
// 特征引用为 {View}:followers_count、{View}:following_count、{View}:posts_count。
// 某个用户三个特征都缺失时不出现在结果中，由调用方回退到画像字段。
type UserStatsSource struct {
	Client    Client
	View      string
	EntityKey string
	Project   string
}

func (s *UserStatsSource) refs() (followers, following, posts string) {
	view := s.View
	if view == "" {
		view = DefaultStatsView
	}
	return view + ":followers_count", view + ":following_count", view + ":posts_count"
}

// UserStats 批量读取用户计数。
func (s *UserStatsSource) UserStats(ctx context.Context, userIDs []string) (map[string]feature.UserStats, error) {
	out := make(map[string]feature.UserStats, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	if s.Client == nil {
		return nil, fmt.Errorf("feast: client not configured")
	}
	key := s.EntityKey
	if key == "" {
		key = DefaultEntityKey
	}
	followers, following, posts := s.refs()

	rows := make([]map[string]any, len(userIDs))
	for i, id := range userIDs {
		rows[i] = map[string]any{key: id}
	}
	resp, err := s.Client.GetOnlineFeatures(ctx, &GetOnlineFeaturesRequest{
		Features:   []string{followers, following, posts},
		EntityRows: rows,
		Project:    s.Project,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.FeatureVectors) != len(userIDs) {
		return nil, fmt.Errorf("feast: %d feature vectors for %d users", len(resp.FeatureVectors), len(userIDs))
	}

	for i, fv := range resp.FeatureVectors {
		f, okF := number(fv.Values[followers])
		g, okG := number(fv.Values[following])
		p, okP := number(fv.Values[posts])
		if !okF && !okG && !okP {
			continue
		}
		out[userIDs[i]] = feature.UserStats{FollowersCount: int(f), FollowingCount: int(g), PostsCount: int(p)}
	}
	return out, nil
}

func number(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

var _ feature.StatsSource = (*UserStatsSource)(nil)
