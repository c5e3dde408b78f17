package trend

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rushteam/feedrank/core"
)

// EngagementScore = likes + 2·comments + 3·shares。
func EngagementScore(likes, comments, shares int) float64 {
	return float64(likes) + 2*float64(comments) + 3*float64(shares)
}

// RecencyMultiplier = max(0.1, 1/(1+0.1·days))。负的天数按 0 处理。
func RecencyMultiplier(daysOld float64) float64 {
	if daysOld < 0 {
		daysOld = 0
	}
	m := 1 / (1 + daysOld*0.1)
	if m < 0.1 {
		return 0.1
	}
	return m
}

// PostScore 返回帖子在 now 时刻的热度分：互动分 × 新鲜度系数。
func PostScore(p *core.Post, now time.Time) float64 {
	days := now.Sub(p.CreatedAt).Hours() / 24
	return EngagementScore(p.Likes, p.Comments, p.Shares) * RecencyMultiplier(days)
}

// Ranked 是带分数的 ID。
type Ranked struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// RankPosts 按热度分降序排列帖子，同分保持输入顺序。k <= 0 返回全部。
func RankPosts(posts []core.Post, now time.Time, k int) []Ranked {
	out := make([]Ranked, len(posts))
	for i := range posts {
		out[i] = Ranked{ID: posts[i].ID, Score: PostScore(&posts[i], now)}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

// TrendingPosts 返回热度前 k 的帖子 ID。
func TrendingPosts(posts []core.Post, now time.Time, k int) []string {
	ranked := RankPosts(posts, now, k)
	ids := make([]string, len(ranked))
	for i, r := range ranked {
		ids[i] = r.ID
	}
	return ids
}

// PostRanking 是基于帖子快照的热门来源，可作为协同过滤的冷启动兜底。
type PostRanking struct {
	Posts []core.Post
	Now   func() time.Time
}

// TrendingIDs 返回热度前 k 的帖子 ID。
func (r *PostRanking) TrendingIDs(k int) []string {
	if r == nil {
		return []string{}
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	return TrendingPosts(r.Posts, now(), k)
}

// CategoryTrend 是一个类目在时间窗口内的热度汇总。
type CategoryTrend struct {
	Category        string  `json:"category"`
	Posts           int     `json:"posts"`
	TotalEngagement float64 `json:"total_engagement"`
	AvgEngagement   float64 `json:"avg_engagement"`
	Score           float64 `json:"score"`
}

// OtherCategory 是未分类帖子在类目热度里的归类。
const OtherCategory = "other"

// CategoryTrends 汇总发布时长不超过 window 的帖子（含恰好 window 的）：
// score = 平均互动分 × 帖子数。按 score 降序，同分按类目名。未分类的帖子记入 OtherCategory。
func CategoryTrends(posts []core.Post, now time.Time, window time.Duration) []CategoryTrend {
	agg := make(map[string]*CategoryTrend)
	for i := range posts {
		p := &posts[i]
		if now.Sub(p.CreatedAt) > window {
			continue
		}
		category := p.Category
		if category == "" {
			category = OtherCategory
		}
		ct, ok := agg[category]
		if !ok {
			ct = &CategoryTrend{Category: category}
			agg[category] = ct
		}
		ct.Posts++
		ct.TotalEngagement += EngagementScore(p.Likes, p.Comments, p.Shares)
	}

	out := make([]CategoryTrend, 0, len(agg))
	for _, ct := range agg {
		ct.AvgEngagement = ct.TotalEngagement / float64(ct.Posts)
		ct.Score = ct.AvgEngagement * float64(ct.Posts)
		out = append(out, *ct)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Category < out[j].Category
	})
	return out
}

var hashtagPattern = regexp.MustCompile(`#\w+`)

// ExtractHashtags 提取文本中的话题标签，去掉 '#' 并小写，按首次出现去重。
func ExtractHashtags(text string) []string {
	matches := hashtagPattern.FindAllString(text, -1)
	out := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		tag := NormalizeTag(m)
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// NormalizeTag 把 "#Travel" / "travel" 统一为 "travel"。
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
}

// PostKeys 返回帖子贡献热度的 key：话题标签（含 caption 中提取的）与 "category:" 前缀的类目。
func PostKeys(p *core.Post) []string {
	seen := make(map[string]struct{})
	var keys []string
	add := func(k string) {
		if k == "" {
			return
		}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	for _, tag := range p.Hashtags {
		add(NormalizeTag(tag))
	}
	for _, tag := range ExtractHashtags(p.Caption) {
		add(tag)
	}
	if p.Category != "" {
		add("category:" + strings.ToLower(p.Category))
	}
	return keys
}
