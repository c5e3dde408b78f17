package cluster

import (
	"math"
	"sort"

	"github.com/rushteam/feedrank/core"
)

// DefaultPeakHours 是没有行为记录时的默认活跃时段。
var DefaultPeakHours = []int{9, 12, 18, 21}

// 用户活跃度分层
const (
	SegmentHighlyActive     = "highly_active"
	SegmentModeratelyActive = "moderately_active"
	SegmentLowActivity      = "low_activity"
)

// PredictActiveHours 统计用户行为所在的小时（0..23），返回次数最多的 4 个小时：
// 次数降序，同次数时较早的小时在前。用户没有记录时返回 DefaultPeakHours。
// 小时取自记录时间戳本身的时区。
func PredictActiveHours(userID string, log []core.Interaction) []int {
	var counts [24]int
	seen := false
	for _, in := range log {
		if in.UserID != userID {
			continue
		}
		counts[in.Timestamp.Hour()]++
		seen = true
	}
	if !seen {
		return append([]int(nil), DefaultPeakHours...)
	}
	return topHours(counts, 4)
}

func topHours(counts [24]int, n int) []int {
	hours := make([]int, 0, 24)
	for h, c := range counts {
		if c > 0 {
			hours = append(hours, h)
		}
	}
	sort.SliceStable(hours, func(i, j int) bool { return counts[hours[i]] > counts[hours[j]] })
	if len(hours) > n {
		hours = hours[:n]
	}
	return hours
}

// Summary 是用户行为概览。
type Summary struct {
	UserID        string  `json:"user_id"`
	TotalActions  int     `json:"total_actions"`
	PeakHours     []int   `json:"peak_hours"`
	ActivityScore float64 `json:"activity_score"`
	Segment       string  `json:"segment"`
}

// ActivitySummary 汇总用户行为：activity_score = min(行为数/100, 1)，
// > 0.7 为 highly_active，> 0.3 为 moderately_active，否则 low_activity。
// 没有记录的用户 PeakHours 为空。
func ActivitySummary(userID string, log []core.Interaction) Summary {
	s := Summary{UserID: userID, PeakHours: []int{}, Segment: SegmentLowActivity}
	for _, in := range log {
		if in.UserID == userID {
			s.TotalActions++
		}
	}
	if s.TotalActions == 0 {
		return s
	}
	s.PeakHours = PredictActiveHours(userID, log)
	s.ActivityScore = math.Min(float64(s.TotalActions)/100, 1)
	switch {
	case s.ActivityScore > 0.7:
		s.Segment = SegmentHighlyActive
	case s.ActivityScore > 0.3:
		s.Segment = SegmentModeratelyActive
	}
	return s
}

// InteractionCounts 统计每个用户的交互次数，供 Cluster 使用。
func InteractionCounts(log []core.Interaction) map[string]int {
	out := make(map[string]int)
	for _, in := range log {
		out[in.UserID]++
	}
	return out
}
