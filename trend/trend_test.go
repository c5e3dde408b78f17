package trend

import (
	"context"
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rushteam/feedrank/core"
	"github.com/rushteam/feedrank/store"
)

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestBoard_DecayThenAdd(t *testing.T) {
	b := NewBoard(DefaultDecay)
	b.Record("music", 10.0, t0)
	b.Record("music", 5.0, t0.Add(time.Hour))

	top := b.Top(1, t0.Add(time.Hour))
	if len(top) != 1 || top[0].Key != "music" {
		t.Fatalf("Top(1) = %+v", top)
	}
	if !almostEqual(top[0].Score, 14.5) {
		t.Errorf("score = %v, want 14.5", top[0].Score)
	}
	if top[0].Mentions != 2 {
		t.Errorf("mentions = %d, want 2", top[0].Mentions)
	}
}

func TestBoard_ZeroElapsedIsExact(t *testing.T) {
	b := NewBoard(0.9)
	prev := b.Record("k", 3.3, t0).Score
	got := b.Record("k", 1.7, t0).Score
	if got != prev+1.7 {
		t.Errorf("score = %v, want exactly %v", got, prev+1.7)
	}
}

func TestBoard_ReadsApplyDecay(t *testing.T) {
	b := NewBoard(0.5)
	b.Record("a", 8, t0)
	if got := b.Score("a", t0.Add(2*time.Hour)); !almostEqual(got, 2) {
		t.Errorf("Score after 2h = %v, want 2", got)
	}
	if got := b.Score("a", t0.Add(-time.Hour)); got != 8 {
		t.Errorf("Score before last update = %v, want 8", got)
	}
	if got := b.Score("missing", t0); got != 0 {
		t.Errorf("Score(missing) = %v", got)
	}
	// 读取不修改状态
	if e := b.Entries()[0]; e.Score != 8 || !e.LastUpdated.Equal(t0) {
		t.Errorf("Entries() = %+v", e)
	}
}

func TestBoard_TopOrdering(t *testing.T) {
	b := NewBoard(DefaultDecay)
	b.Record("old", 10, t0.Add(-10*time.Hour))
	b.Record("b", 5, t0)
	b.Record("a", 5, t0)
	b.Record("c", 2, t0)
	b.Record("c", 3, t0)

	got := b.Top(0, t0)
	keys := make([]string, len(got))
	for i, e := range got {
		keys[i] = e.Key
	}
	// old 衰减到 10·0.95^10 ≈ 5.99；c 与 a/b 同为 5，提及次数更多排前
	if want := []string{"old", "c", "a", "b"}; !reflect.DeepEqual(keys, want) {
		t.Errorf("Top() = %v, want %v", keys, want)
	}
	if got := b.Top(2, t0); len(got) != 2 {
		t.Errorf("Top(2) len = %d", len(got))
	}
}

func TestEngagement(t *testing.T) {
	if got := EngagementScore(10, 2, 1); got != 17 {
		t.Errorf("EngagementScore = %v, want 17", got)
	}
	tests := []struct {
		days float64
		want float64
	}{
		{0, 1},
		{10, 0.5},
		{1000, 0.1},
		{-3, 1},
	}
	for _, tt := range tests {
		if got := RecencyMultiplier(tt.days); !almostEqual(got, tt.want) {
			t.Errorf("RecencyMultiplier(%v) = %v, want %v", tt.days, got, tt.want)
		}
	}
}

func TestTrendingPosts(t *testing.T) {
	posts := []core.Post{
		{ID: "fresh", Likes: 10, CreatedAt: t0},
		{ID: "old", Likes: 15, CreatedAt: t0.Add(-10 * 24 * time.Hour)},
		{ID: "viral", Likes: 5, Shares: 5, CreatedAt: t0},
		{ID: "tie", Likes: 10, CreatedAt: t0},
	}
	got := TrendingPosts(posts, t0, 3)
	if want := []string{"viral", "fresh", "tie"}; !reflect.DeepEqual(got, want) {
		t.Errorf("TrendingPosts() = %v, want %v", got, want)
	}

	r := &PostRanking{Posts: posts, Now: func() time.Time { return t0 }}
	if got := r.TrendingIDs(1); !reflect.DeepEqual(got, []string{"viral"}) {
		t.Errorf("TrendingIDs(1) = %v", got)
	}
}

func TestCategoryTrends(t *testing.T) {
	posts := []core.Post{
		{ID: "1", Category: "travel", Likes: 10, CreatedAt: t0.Add(-time.Hour)},
		{ID: "2", Category: "travel", Likes: 20, CreatedAt: t0.Add(-2 * time.Hour)},
		{ID: "3", Category: "food", Likes: 100, CreatedAt: t0.Add(-48 * time.Hour)},
		{ID: "4", Category: "food", Likes: 5, CreatedAt: t0.Add(-time.Hour)},
		// 恰好 window 前发布的帖子计入
		{ID: "5", Category: "food", Likes: 3, CreatedAt: t0.Add(-24 * time.Hour)},
		{ID: "6", Likes: 1000, CreatedAt: t0},
	}
	got := CategoryTrends(posts, t0, 24*time.Hour)
	if len(got) != 3 {
		t.Fatalf("CategoryTrends() = %+v", got)
	}
	if got[0].Category != OtherCategory || got[0].Posts != 1 || got[0].Score != 1000 {
		t.Errorf("other = %+v", got[0])
	}
	if got[1].Category != "travel" || got[1].Posts != 2 || got[1].AvgEngagement != 15 || got[1].Score != 30 {
		t.Errorf("travel = %+v", got[1])
	}
	if got[2].Category != "food" || got[2].Posts != 2 || got[2].Score != 8 {
		t.Errorf("food = %+v", got[2])
	}
}

func TestExtractHashtags(t *testing.T) {
	got := ExtractHashtags("Sunset at the #Beach with #friends #beach!")
	if want := []string{"beach", "friends"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractHashtags() = %v, want %v", got, want)
	}
	p := &core.Post{Caption: "Morning #Coffee", Hashtags: []string{"#latte", "coffee"}, Category: "Food"}
	if got := PostKeys(p); !reflect.DeepEqual(got, []string{"latte", "coffee", "category:food"}) {
		t.Errorf("PostKeys() = %v", got)
	}
}

func TestSnapshotRestore(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	defer ms.Close()

	empty, err := Restore(ctx, ms, "")
	if err != nil || empty.Len() != 0 {
		t.Fatalf("Restore(empty) = %v, %v", empty, err)
	}

	b := NewBoard(0.9)
	b.Record("music", 10, t0)
	b.Record("art", 4, t0.Add(time.Hour))
	if err := Snapshot(ctx, ms, "", b); err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	restored, err := Restore(ctx, ms, "")
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	now := t0.Add(5 * time.Hour)
	if !reflect.DeepEqual(b.Top(0, now), restored.Top(0, now)) || restored.Decay != 0.9 {
		t.Errorf("restored board differs: %+v vs %+v", restored.Top(0, now), b.Top(0, now))
	}
}

func TestPublish(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	defer ms.Close()

	_ = ms.ZAdd(ctx, "hot", 1, "stale")
	if err := Publish(ctx, ms, "hot", []Ranked{{ID: "a", Score: 2}, {ID: "b", Score: 3}}); err != nil {
		t.Fatal(err)
	}
	got, _ := ms.ZRange(ctx, "hot", 0, -1)
	if !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Errorf("published = %v", got)
	}
}

func TestPredictEngagement(t *testing.T) {
	friday := time.Date(2024, 6, 7, 20, 0, 0, 0, time.UTC)
	monday := time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC)
	tuesday := time.Date(2024, 6, 4, 10, 59, 0, 0, time.UTC)
	longCaption := strings.Repeat("x", 51) + " #a #b #c"

	tests := []struct {
		name string
		in   PredictInput
		want Prediction
	}{
		{
			name: "all boosts",
			in:   PredictInput{Caption: longCaption, PostedAt: friday, Followers: 1000},
			want: Prediction{Likes: 94, Comments: 9, Shares: 4, EngagementScore: 124, Confidence: 1},
		},
		{
			name: "no boosts",
			in:   PredictInput{Caption: "hi", PostedAt: monday, Followers: 100},
			want: Prediction{Likes: 5, EngagementScore: 5, Confidence: 0.4},
		},
		{
			name: "peak hour end inclusive",
			in:   PredictInput{PostedAt: tuesday, Followers: 200},
			want: Prediction{Likes: 13, Comments: 1, EngagementScore: 15, Confidence: 0.5},
		},
		{
			name: "negative followers",
			in:   PredictInput{PostedAt: monday, Followers: -5},
			want: Prediction{Confidence: 0.3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PredictEngagement(tt.in)
			if got.Likes != tt.want.Likes || got.Comments != tt.want.Comments || got.Shares != tt.want.Shares {
				t.Errorf("counts = %+v, want %+v", got, tt.want)
			}
			if !almostEqual(got.EngagementScore, tt.want.EngagementScore) || !almostEqual(got.Confidence, tt.want.Confidence) {
				t.Errorf("score/confidence = %v/%v, want %v/%v", got.EngagementScore, got.Confidence, tt.want.EngagementScore, tt.want.Confidence)
			}
		})
	}
}

func TestHashtagCount(t *testing.T) {
	tests := []struct {
		caption string
		tags    []string
		want    int
	}{
		{"", nil, 0},
		{"#a #b", nil, 2},
		{"#travel day", []string{"#travel", "beach", "#sun"}, 3},
		{"no tags", []string{"", "#"}, 0},
	}
	for _, tt := range tests {
		if got := hashtagCount(tt.caption, tt.tags); got != tt.want {
			t.Errorf("hashtagCount(%q, %v) = %d, want %d", tt.caption, tt.tags, got, tt.want)
		}
	}
}
