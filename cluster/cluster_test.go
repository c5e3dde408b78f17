package cluster

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/rushteam/feedrank/core"
	"github.com/rushteam/feedrank/feature"
)

func TestCluster_Empty(t *testing.T) {
	got, err := Cluster(nil, nil, DefaultConfig())
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("Cluster(nil) = %v, %v", got, err)
	}
}

func TestCluster_SeparatesGroups(t *testing.T) {
	users := []core.User{
		{ID: "a1", Bio: "x", FollowersCount: 10, FollowingCount: 10, PostsCount: 1},
		{ID: "a2", Bio: "x", FollowersCount: 12, FollowingCount: 11, PostsCount: 1},
		{ID: "b1", Bio: "a much longer biography", FollowersCount: 90000, FollowingCount: 50, PostsCount: 900},
		{ID: "b2", Bio: "a much longer biography", FollowersCount: 91000, FollowingCount: 52, PostsCount: 910},
	}
	cfg := Config{MaxK: 2, Seed: 42}
	labels, err := Cluster(users, map[string]int{"b1": 100, "b2": 100}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if labels["a1"] != labels["a2"] || labels["b1"] != labels["b2"] || labels["a1"] == labels["b1"] {
		t.Errorf("labels = %v", labels)
	}
	if labels["a1"] != 0 {
		t.Errorf("first user should be relabeled to 0, got %d", labels["a1"])
	}

	again, _ := Cluster(users, map[string]int{"b1": 100, "b2": 100}, cfg)
	if !reflect.DeepEqual(labels, again) {
		t.Error("clustering is not deterministic")
	}

	if got := SimilarUsers("b1", labels, 0); !reflect.DeepEqual(got, []string{"b2"}) {
		t.Errorf("SimilarUsers(b1) = %v", got)
	}
	if got := SimilarUsers("ghost", labels, 0); len(got) != 0 {
		t.Errorf("SimilarUsers(ghost) = %v", got)
	}
}

func TestCluster_KCappedByUsers(t *testing.T) {
	users := []core.User{{ID: "only", Bio: "hi"}}
	labels, err := Cluster(users, nil, DefaultConfig())
	if err != nil || labels["only"] != 0 {
		t.Fatalf("labels = %v, err = %v", labels, err)
	}

	same := []core.User{{ID: "x"}, {ID: "y"}, {ID: "z"}}
	labels, err = Cluster(same, nil, DefaultConfig())
	if err != nil || len(labels) != 3 {
		t.Fatalf("identical users: %v, %v", labels, err)
	}
}

func TestClusterRows_ShapeMismatch(t *testing.T) {
	if _, err := ClusterRows([]string{"a"}, nil, DefaultConfig()); !errors.Is(err, core.ErrShapeMismatch) {
		t.Errorf("ids/rows mismatch error = %v", err)
	}
	if _, err := ClusterRows([]string{"a", "b"}, [][]float64{{1, 2}, {1}}, DefaultConfig()); !errors.Is(err, core.ErrShapeMismatch) {
		t.Errorf("ragged rows error = %v", err)
	}
}

type failingStats struct{}

func (failingStats) UserStats(context.Context, []string) (map[string]feature.UserStats, error) {
	return nil, errors.New("feature store down")
}

func TestClusterer_StatsFallback(t *testing.T) {
	var reported error
	c := &Clusterer{Config: DefaultConfig(), Stats: failingStats{}, OnStatsError: func(err error) { reported = err }}
	labels, err := c.Cluster(context.Background(), []core.User{{ID: "a"}, {ID: "b", FollowersCount: 5}}, nil)
	if err != nil || len(labels) != 2 {
		t.Fatalf("Cluster() = %v, %v", labels, err)
	}
	if reported == nil {
		t.Error("stats error was not reported")
	}
}

func TestKMeans(t *testing.T) {
	points := [][]float64{{0, 0}, {0, 0.1}, {10, 10}, {10, 10.1}, {0.1, 0}}
	labels := KMeans(points, 2, 7, 300)
	if want := []int{0, 0, 1, 1, 0}; !reflect.DeepEqual(labels, want) {
		t.Errorf("KMeans() = %v, want %v", labels, want)
	}
	if got := KMeans(nil, 3, 1, 10); len(got) != 0 {
		t.Errorf("KMeans(nil) = %v", got)
	}
}

func at(hour int) time.Time {
	return time.Date(2024, 3, 1, hour, 30, 0, 0, time.UTC)
}

func TestPredictActiveHours(t *testing.T) {
	log := []core.Interaction{
		{UserID: "u", Timestamp: at(20)},
		{UserID: "u", Timestamp: at(8)},
		{UserID: "u", Timestamp: at(20)},
		{UserID: "u", Timestamp: at(7)},
		{UserID: "u", Timestamp: at(23)},
		{UserID: "u", Timestamp: at(6)},
		{UserID: "other", Timestamp: at(1)},
	}
	if got := PredictActiveHours("u", log); !reflect.DeepEqual(got, []int{20, 6, 7, 8}) {
		t.Errorf("PredictActiveHours(u) = %v, want [20 6 7 8]", got)
	}
	if got := PredictActiveHours("ghost", log); !reflect.DeepEqual(got, []int{9, 12, 18, 21}) {
		t.Errorf("PredictActiveHours(ghost) = %v", got)
	}
	if got := PredictActiveHours("other", log); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("PredictActiveHours(other) = %v", got)
	}
}

func TestActivitySummary(t *testing.T) {
	var log []core.Interaction
	for i := 0; i < 40; i++ {
		log = append(log, core.Interaction{UserID: "mid", Timestamp: at(i % 24)})
	}
	for i := 0; i < 150; i++ {
		log = append(log, core.Interaction{UserID: "top", Timestamp: at(9)})
	}
	log = append(log, core.Interaction{UserID: "low", Timestamp: at(3)})

	tests := []struct {
		user    string
		total   int
		score   float64
		segment string
	}{
		{"mid", 40, 0.4, SegmentModeratelyActive},
		{"top", 150, 1, SegmentHighlyActive},
		{"low", 1, 0.01, SegmentLowActivity},
		{"ghost", 0, 0, SegmentLowActivity},
	}
	for _, tt := range tests {
		t.Run(tt.user, func(t *testing.T) {
			s := ActivitySummary(tt.user, log)
			if s.TotalActions != tt.total || s.ActivityScore != tt.score || s.Segment != tt.segment {
				t.Errorf("ActivitySummary() = %+v", s)
			}
		})
	}
	if got := InteractionCounts(log)["top"]; got != 150 {
		t.Errorf("InteractionCounts[top] = %d", got)
	}
}
