package trend

import (
	"math"
	"strings"
	"time"
)

// 发布时机与文案的加成系数。
const (
	baseLikesPerFollower = 0.05

	peakHourBoost     = 1.3
	weekendBoost      = 1.2
	captionBoost      = 1.1
	hashtagCountBoost = 1.1

	minCaptionLen = 50
	maxCaptionLen = 200
	minHashtags   = 3
	maxHashtags   = 7
)

// PredictInput 是预测一条待发布内容互动量所需的信息。
type PredictInput struct {
	Caption   string
	Hashtags  []string
	PostedAt  time.Time
	Followers int
}

// Prediction 是预测的互动量。
type Prediction struct {
	Likes           int     `json:"predicted_likes"`
	Comments        int     `json:"predicted_comments"`
	Shares          int     `json:"predicted_shares"`
	EngagementScore float64 `json:"engagement_score"`
	Confidence      float64 `json:"confidence"`
}

// PredictEngagement 用确定性的启发式规则预测互动量：
//
//	likes = followers·0.05 × 时段加成 × 周末加成 × 文案长度加成 × 标签数量加成
//	comments = likes·0.1，shares = likes·0.05（均向下取整）
//	confidence = min(1, followers/1000 + 0.3)
//
// 高峰时段为 8-10 点和 19-21 点（含端点），周末为周五到周日；
// 文案长度按字符计，标签数取 caption 中 '#' 的个数与 Hashtags 中未出现在 caption 里的标签之和。
func PredictEngagement(in PredictInput) Prediction {
	followers := in.Followers
	if followers < 0 {
		followers = 0
	}
	base := float64(followers) * baseLikesPerFollower
	if isPeakHour(in.PostedAt.Hour()) {
		base *= peakHourBoost
	}
	switch in.PostedAt.Weekday() {
	case time.Friday, time.Saturday, time.Sunday:
		base *= weekendBoost
	}
	if n := len([]rune(in.Caption)); n >= minCaptionLen && n <= maxCaptionLen {
		base *= captionBoost
	}
	if n := hashtagCount(in.Caption, in.Hashtags); n >= minHashtags && n <= maxHashtags {
		base *= hashtagCountBoost
	}

	likes := int(base)
	comments := int(float64(likes) * 0.1)
	shares := int(float64(likes) * 0.05)
	return Prediction{
		Likes:           likes,
		Comments:        comments,
		Shares:          shares,
		EngagementScore: EngagementScore(likes, comments, shares),
		Confidence:      math.Min(1, float64(followers)/1000+0.3),
	}
}

func isPeakHour(h int) bool {
	return (h >= 8 && h <= 10) || (h >= 19 && h <= 21)
}

func hashtagCount(caption string, tags []string) int {
	n := strings.Count(caption, "#")
	lower := strings.ToLower(caption)
	for _, tag := range tags {
		t := strings.ToLower(strings.TrimPrefix(tag, "#"))
		if t == "" || strings.Contains(lower, "#"+t) {
			continue
		}
		n++
	}
	return n
}
