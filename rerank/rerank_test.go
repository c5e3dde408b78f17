package rerank

import (
	"context"
	"math"
	"reflect"
	"testing"

	"github.com/rushteam/feedrank/core"
	"github.com/rushteam/feedrank/pkg/utils"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name    string
		collab  []string
		content []string
		k       int
		want    []string
	}{
		{"both empty", nil, nil, 10, []string{}},
		{"collab empty", nil, []string{"c", "d"}, 10, []string{"c", "d"}},
		{"content empty", []string{"a", "b"}, nil, 10, []string{"a", "b"}},
		{"shared item wins", []string{"a", "b"}, []string{"b", "c"}, 10, []string{"b", "a", "c"}},
		{"k truncates", []string{"a", "b"}, []string{"b", "c"}, 2, []string{"b", "a"}},
		{"k zero returns all", []string{"a"}, []string{"c"}, 0, []string{"a", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.collab, tt.content, tt.k, DefaultCollabWeight, DefaultContentWeight)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Merge() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMergeWeighted_Score(t *testing.T) {
	collab := []string{"a", "b", "c", "d"}
	content := []string{"x", "c"}
	_, scores := MergeWeighted([][]string{collab, content}, []float64{0.6, 0.4}, 0)

	want := 0.6*(1-2.0/4) + 0.4*(1-1.0/2)
	if math.Abs(scores["c"]-want) > 1e-12 {
		t.Errorf("score(c) = %v, want %v", scores["c"], want)
	}
	if _, ok := scores["zzz"]; ok {
		t.Error("item in neither list was scored")
	}
}

func TestMerge_TieBreakByFirstAppearance(t *testing.T) {
	// a 与 x 同为 0.5，按先 collab 后 content
	got := Merge([]string{"a"}, []string{"x"}, 0, 0.5, 0.5)
	if !reflect.DeepEqual(got, []string{"a", "x"}) {
		t.Errorf("Merge() = %v, want [a x]", got)
	}

	// c = 0.6·(1−2/3) + 0.4·1 与 a = 0.6 在浮点下相差 1ulp，仍按 a 先出现排列
	got, scores := MergeWeighted([][]string{{"a", "b", "c"}, {"c", "d"}}, []float64{0.6, 0.4}, 0)
	if !reflect.DeepEqual(got, []string{"a", "c", "b", "d"}) {
		t.Errorf("MergeWeighted() = %v (scores %v), want [a c b d]", got, scores)
	}
	if scores["a"] != scores["c"] {
		t.Errorf("score(a) = %v, score(c) = %v, want equal", scores["a"], scores["c"])
	}
}

func item(id, source string) *core.Item {
	it := core.NewItem(id)
	it.PutLabel("recall_source", utils.Label{Value: source, Source: "recall"})
	return it
}

func TestHybridNode(t *testing.T) {
	items := []*core.Item{
		item("a", "recall.cf"),
		item("b", "recall.cf"),
		item("b", "recall.content"),
		item("c", "recall.content"),
		item("h", "recall.hot"),
	}
	out, err := NewHybridNode().Process(context.Background(), &core.RecommendContext{}, items)
	if err != nil {
		t.Fatal(err)
	}
	if got := core.ItemIDs(out); !reflect.DeepEqual(got, []string{"b", "a", "c", "h"}) {
		t.Errorf("ids = %v, want [b a c h]", got)
	}
	if math.Abs(out[0].Score-(0.6*0.5+0.4*1)) > 1e-12 {
		t.Errorf("score(b) = %v", out[0].Score)
	}

	limited, _ := NewHybridNode().Process(context.Background(), &core.RecommendContext{K: 1}, items)
	if len(limited) != 1 {
		t.Errorf("rctx.K=1 returned %d items", len(limited))
	}
}

func TestDiversity(t *testing.T) {
	mk := func(id, author string) *core.Item {
		it := core.NewItem(id)
		it.Meta["author"] = author
		return it
	}
	items := []*core.Item{mk("1", "u1"), mk("2", "u1"), mk("3", "u2"), mk("4", "u1"), core.NewItem("5")}

	out, _ := (&Diversity{}).Process(context.Background(), nil, items)
	if got := core.ItemIDs(out); !reflect.DeepEqual(got, []string{"1", "3", "5"}) {
		t.Errorf("drop = %v", got)
	}
	out, _ = (&Diversity{MaxPerKey: 2, Demote: true}).Process(context.Background(), nil, items)
	if got := core.ItemIDs(out); !reflect.DeepEqual(got, []string{"1", "2", "3", "5", "4"}) {
		t.Errorf("demote = %v", got)
	}
}

func TestTopNNode(t *testing.T) {
	items := []*core.Item{core.NewItem("1"), core.NewItem("2"), core.NewItem("3")}
	out, _ := (&TopNNode{N: 2}).Process(context.Background(), nil, items)
	if len(out) != 2 {
		t.Errorf("N=2 returned %d", len(out))
	}
	out, _ = (&TopNNode{}).Process(context.Background(), &core.RecommendContext{K: 1}, items)
	if len(out) != 1 {
		t.Errorf("rctx.K=1 returned %d", len(out))
	}
	out, _ = (&TopNNode{}).Process(context.Background(), nil, items)
	if len(out) != 3 {
		t.Errorf("no limit returned %d", len(out))
	}
}
