package recall

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/rushteam/feedrank/core"
	"github.com/rushteam/feedrank/feature"
	"github.com/rushteam/feedrank/store"
)

var trending = TrendingFunc(func(k int) []string {
	ids := []string{"hot1", "hot2", "hot3"}
	if len(ids) > k {
		ids = ids[:k]
	}
	return ids
})

func mustMatrix(t *testing.T, users, items []string, rows [][]float64) *feature.InteractionMatrix {
	t.Helper()
	m, err := feature.NewInteractionMatrix(users, items, rows)
	if err != nil {
		t.Fatalf("NewInteractionMatrix: %v", err)
	}
	return m
}

func TestCollaborativeFilter_Fallbacks(t *testing.T) {
	cf := &CollaborativeFilter{Fallback: trending}
	tests := []struct {
		name   string
		m      *feature.InteractionMatrix
		user   string
		reason FallbackReason
	}{
		{"nil matrix", nil, "u1", FallbackUnknownUser},
		{"unknown user", mustMatrix(t, []string{"u1", "u2"}, []string{"p1"}, [][]float64{{1}, {1}}), "ghost", FallbackUnknownUser},
		{"single user", mustMatrix(t, []string{"u1"}, []string{"p1", "p2"}, [][]float64{{0.3, 0}}), "u1", FallbackTooFewUsers},
		{"all zero", mustMatrix(t, []string{"u1", "u2"}, []string{"p1"}, [][]float64{{0}, {0}}), "u1", FallbackEmptyMatrix},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := cf.RecommendWithReason(tt.user, tt.m, 2)
			if reason != tt.reason {
				t.Errorf("reason = %q, want %q", reason, tt.reason)
			}
			if !reflect.DeepEqual(got, []string{"hot1", "hot2"}) {
				t.Errorf("Recommend() = %v, want trending fallback", got)
			}
		})
	}

	t.Run("no fallback source", func(t *testing.T) {
		got := (&CollaborativeFilter{}).Recommend("ghost", nil, 5)
		if got == nil || len(got) != 0 {
			t.Errorf("Recommend() = %#v, want empty slice", got)
		}
	})
}

func TestCollaborativeFilter_NeverRecommendsInteracted(t *testing.T) {
	users := []string{"u1", "u2", "u3", "u4"}
	items := []string{"p1", "p2", "p3", "p4", "p5"}
	rows := [][]float64{
		{0.3, 0.5, 0, 0, 0},
		{0.3, 0.5, 0.7, 0, 0},
		{0.3, 0, 0.1, 0.5, 0},
		{0, 0, 0, 0, 0.7},
	}
	m := mustMatrix(t, users, items, rows)
	cf := &CollaborativeFilter{Fallback: trending}

	for ui, u := range users {
		got, reason := cf.RecommendWithReason(u, m, 10)
		if reason != FallbackNone {
			t.Fatalf("%s: unexpected fallback %q", u, reason)
		}
		for _, id := range got {
			if rows[ui][m.ItemIndex[id]] != 0 {
				t.Errorf("%s was recommended already-seen item %s", u, id)
			}
		}
	}

	got := cf.Recommend("u1", m, 10)
	if len(got) == 0 || got[0] != "p3" {
		t.Errorf("Recommend(u1) = %v, want p3 first", got)
	}
	if again := cf.Recommend("u1", m, 10); !reflect.DeepEqual(got, again) {
		t.Errorf("not deterministic: %v vs %v", got, again)
	}
	if limited := cf.Recommend("u1", m, 1); len(limited) != 1 {
		t.Errorf("k=1 returned %v", limited)
	}
}

func TestTruncatedSVD_PreservesGeometry(t *testing.T) {
	rows := [][]float64{
		{1, 0, 0},
		{1, 0, 0},
		{0, 1, 0},
	}
	latent := TruncatedSVD(rows, 2)
	if len(latent) != 3 {
		t.Fatalf("latent rows = %d", len(latent))
	}
	if s := feature.CosineDense(latent[0], latent[1]); math.Abs(s-1) > 1e-9 {
		t.Errorf("identical rows similarity = %v, want 1", s)
	}
	if s := feature.CosineDense(latent[0], latent[2]); math.Abs(s) > 1e-9 {
		t.Errorf("orthogonal rows similarity = %v, want 0", s)
	}

	// 用户数多于物品数时走 MᵀM 分支，行间相似度相同
	tall := TruncatedSVD([][]float64{{1, 0}, {1, 0}, {0, 1}, {1, 1}}, 3)
	if s := feature.CosineDense(tall[0], tall[1]); math.Abs(s-1) > 1e-9 {
		t.Errorf("tall identical rows similarity = %v", s)
	}
	if s := feature.CosineDense(tall[0], tall[3]); math.Abs(s-1/math.Sqrt2) > 1e-9 {
		t.Errorf("tall similarity = %v, want %v", s, 1/math.Sqrt2)
	}
}

func TestTruncatedSVD_Rank(t *testing.T) {
	rows := [][]float64{{3, 0, 0}, {0, 2, 0}, {0, 0, 1}}
	latent := TruncatedSVD(rows, 1)
	for i, row := range latent {
		if len(row) != 1 {
			t.Fatalf("row %d width = %d, want 1", i, len(row))
		}
	}
	// 只保留最大奇异值方向：第一行落在该方向上，其余行为 0
	if math.Abs(math.Abs(latent[0][0])-3) > 1e-9 || math.Abs(latent[1][0]) > 1e-9 || math.Abs(latent[2][0]) > 1e-9 {
		t.Errorf("rank-1 latent = %v", latent)
	}

	if zero := TruncatedSVD([][]float64{{0, 0}, {0, 0}}, 2); len(zero) != 2 || len(zero[0]) != 0 {
		t.Errorf("all-zero latent = %v, want 2 empty rows", zero)
	}
	if got := TruncatedSVD(nil, 2); len(got) != 0 {
		t.Errorf("empty latent = %v", got)
	}
}

func TestContentFilter_Recommend(t *testing.T) {
	t.Run("empty corpus", func(t *testing.T) {
		vz, m := feature.BuildContentVectors(nil, 0)
		got := ContentFilter{}.Recommend("travel photography", vz, m, 10)
		if got == nil || len(got) != 0 {
			t.Errorf("Recommend() = %#v, want empty slice", got)
		}
	})

	docs := []feature.Document{
		{ID: "p1", Text: "coffee latte art"},
		{ID: "p2", Text: "mountain hiking travel"},
		{ID: "p3", Text: "travel beach"},
		{ID: "p4", Text: "travel beach"},
	}
	vz, m := feature.BuildContentVectors(docs, 0)

	got := ContentFilter{}.Recommend("I love travel and beach days", vz, m, 10)
	if !reflect.DeepEqual(got, []string{"p3", "p4", "p2"}) {
		t.Errorf("Recommend() = %v, want [p3 p4 p2]", got)
	}
	if got := (ContentFilter{}).Recommend("travel beach", vz, m, 1); !reflect.DeepEqual(got, []string{"p3"}) {
		t.Errorf("k=1 = %v", got)
	}
	if got := (ContentFilter{}).Recommend("quantum physics", vz, m, 10); len(got) != 0 {
		t.Errorf("unrelated text = %v, want empty", got)
	}
}

func TestContentFilter_SimilarItems(t *testing.T) {
	docs := []feature.Document{
		{ID: "p1", Text: "travel beach sunset"},
		{ID: "p2", Text: "coffee latte art"},
		{ID: "p3", Text: "travel beach"},
		{ID: "p4", Text: "travel mountain"},
		{ID: "p5", Text: "travel beach"},
	}
	_, m := feature.BuildContentVectors(docs, 0)

	ids := func(scored []ScoredID) []string {
		out := make([]string, len(scored))
		for i, s := range scored {
			out[i] = s.ID
		}
		return out
	}
	got := ContentFilter{}.SimilarItems("p3", m, 10)
	if !reflect.DeepEqual(ids(got), []string{"p5", "p1", "p4"}) {
		t.Errorf("SimilarItems(p3) = %v, want [p5 p1 p4]", ids(got))
	}
	if math.Abs(got[0].Score-1) > 1e-9 {
		t.Errorf("identical text score = %v, want 1", got[0].Score)
	}
	if got := (ContentFilter{}).SimilarItems("p3", m, 1); !reflect.DeepEqual(ids(got), []string{"p5"}) {
		t.Errorf("k=1 = %v", ids(got))
	}
	if got := (ContentFilter{}).SimilarItems("p2", m, 10); len(got) != 0 {
		t.Errorf("unrelated item = %v, want empty", ids(got))
	}
	if got := (ContentFilter{}).SimilarItems("missing", m, 10); got == nil || len(got) != 0 {
		t.Errorf("unknown item = %#v, want empty slice", got)
	}
}

type stubSource struct {
	name  string
	ids   []string
	err   error
	delay time.Duration
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Recall(ctx context.Context, _ *core.RecommendContext) ([]*core.Item, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return rankedItems(s.ids), nil
}

func TestFanout(t *testing.T) {
	var failed []string
	f := &Fanout{
		Sources: []Source{
			&stubSource{name: "a", ids: []string{"x", "y"}},
			&stubSource{name: "b", ids: []string{"y", "z"}},
			&stubSource{name: "broken", err: errors.New("boom")},
			&stubSource{name: "slow", ids: []string{"w"}, delay: time.Second},
		},
		Dedup:   true,
		Timeout: 20 * time.Millisecond,
		OnError: func(source string, err error) { failed = append(failed, source) },
	}

	items, err := f.Process(context.Background(), &core.RecommendContext{UserID: "u"}, nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if got := core.ItemIDs(items); !reflect.DeepEqual(got, []string{"x", "y", "z"}) {
		t.Errorf("ids = %v, want [x y z]", got)
	}
	if lbl := items[1].Labels["recall_source"]; lbl.Value != "a|b" {
		t.Errorf("merged label = %q, want a|b", lbl.Value)
	}
	if len(failed) != 2 {
		t.Errorf("OnError called for %v, want broken and slow", failed)
	}

	f.MergeStrategy = "union"
	items, _ = f.Process(context.Background(), nil, nil)
	if len(items) != 4 {
		t.Errorf("union returned %d items, want 4", len(items))
	}
}

func TestHot(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	defer ms.Close()

	h := &Hot{Store: ms, Trending: trending}
	items, _ := h.Recall(ctx, &core.RecommendContext{K: 2})
	if got := core.ItemIDs(items); !reflect.DeepEqual(got, []string{"hot1", "hot2"}) {
		t.Errorf("empty store should fall back to trending, got %v", got)
	}

	_ = ms.ZAdd(ctx, DefaultHotKey, 5, "p1")
	_ = ms.ZAdd(ctx, DefaultHotKey, 9, "p2")
	_ = ms.ZAdd(ctx, DefaultHotKey, 1, "p3")
	if got := h.TrendingIDs(2); !reflect.DeepEqual(got, []string{"p2", "p1"}) {
		t.Errorf("TrendingIDs() = %v, want [p2 p1]", got)
	}
}

func TestCFRecall_MarksFallback(t *testing.T) {
	r := &CFRecall{CF: &CollaborativeFilter{Fallback: trending}}
	items, err := r.Recall(context.Background(), &core.RecommendContext{UserID: "ghost", K: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 3 || items[0].MetaString("fallback") != string(FallbackUnknownUser) {
		t.Errorf("items = %v", core.ItemIDs(items))
	}
	if items[0].Score <= items[1].Score {
		t.Errorf("positional scores not decreasing: %v, %v", items[0].Score, items[1].Score)
	}
}
