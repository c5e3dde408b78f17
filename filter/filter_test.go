package filter

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/rushteam/feedrank/core"
	"github.com/rushteam/feedrank/moderation"
	"github.com/rushteam/feedrank/store"
)

func items(ids ...string) []*core.Item {
	out := make([]*core.Item, len(ids))
	for i, id := range ids {
		out[i] = core.NewItem(id)
	}
	return out
}

func newStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	s := store.NewMemoryStore()
	t.Cleanup(func() { _ = s.Close() })
	return s
}

type errFilter struct{}

func (errFilter) Name() string { return "filter.err" }
func (errFilter) ShouldFilter(context.Context, *core.RecommendContext, *core.Item) (bool, error) {
	return true, errors.New("boom")
}

func TestFilterNode(t *testing.T) {
	ctx := context.Background()
	rctx := &core.RecommendContext{UserID: "u1"}
	in := items("p1", "p2", "p3")

	var failures int
	node := &FilterNode{
		Filters: []Filter{errFilter{}, &BlacklistFilter{ItemIDs: []string{"p2"}}},
		OnError: func(string, string, error) { failures++ },
	}
	out, err := node.Process(ctx, rctx, append(in, nil))
	if err != nil {
		t.Fatal(err)
	}
	if got := core.ItemIDs(out); !reflect.DeepEqual(got, []string{"p1", "p3"}) {
		t.Errorf("Process() = %v", got)
	}
	if failures != 3 {
		t.Errorf("OnError called %d times, want 3", failures)
	}
	if lbl := in[1].Labels["filtered"]; lbl.Source != "filter.blacklist" {
		t.Errorf("filtered label = %+v", lbl)
	}
}

func TestBlacklistFilter_Store(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	adapter := NewStoreAdapter(s)
	if err := adapter.SetBlacklist(ctx, "feedrank:blacklist", []string{"p9"}); err != nil {
		t.Fatal(err)
	}
	f := NewBlacklistFilter(nil, adapter, "feedrank:blacklist")
	out, _ := (&FilterNode{Filters: []Filter{f}}).Process(ctx, nil, items("p1", "p9"))
	if got := core.ItemIDs(out); !reflect.DeepEqual(got, []string{"p1"}) {
		t.Errorf("Process() = %v", got)
	}

	missing := NewBlacklistFilter(nil, adapter, "feedrank:nothing")
	if drop, err := missing.ShouldFilter(ctx, nil, core.NewItem("p1")); drop || err != nil {
		t.Errorf("missing blacklist key: %v, %v", drop, err)
	}
}

func TestUserBlockFilter(t *testing.T) {
	ctx := context.Background()
	adapter := NewStoreAdapter(newStore(t))
	if err := adapter.SetBlacklist(ctx, DefaultUserBlockPrefix+":u1", []string{"troll"}); err != nil {
		t.Fatal(err)
	}
	in := items("p1", "p2", "p3")
	in[0].Meta["author"] = "troll"
	in[1].Meta["author"] = "friend"

	node := &FilterNode{Filters: []Filter{NewUserBlockFilter(adapter, "")}}
	out, _ := node.Process(ctx, &core.RecommendContext{UserID: "u1"}, in)
	if got := core.ItemIDs(out); !reflect.DeepEqual(got, []string{"p2", "p3"}) {
		t.Errorf("u1 = %v", got)
	}
	out, _ = node.Process(ctx, &core.RecommendContext{UserID: "u2"}, items("p1"))
	if len(out) != 1 {
		t.Errorf("u2 without block list lost items: %v", core.ItemIDs(out))
	}
}

func TestSeenFilter(t *testing.T) {
	ctx := context.Background()
	idx := NewSeenIndex(0, 0)
	idx.Reset([]core.Interaction{
		{UserID: "u1", ItemID: "p1"},
		{UserID: "u1", ItemID: "p3"},
		{UserID: "u2", ItemID: "p2"},
	})
	if idx.Users() != 2 {
		t.Errorf("Users() = %d", idx.Users())
	}

	node := &FilterNode{Filters: []Filter{&SeenFilter{Index: idx}}}
	out, _ := node.Process(ctx, &core.RecommendContext{UserID: "u1"}, items("p1", "p2", "p3"))
	if got := core.ItemIDs(out); !reflect.DeepEqual(got, []string{"p2"}) {
		t.Errorf("u1 = %v", got)
	}
	out, _ = node.Process(ctx, &core.RecommendContext{UserID: "u3"}, items("p1", "p2"))
	if len(out) != 2 {
		t.Errorf("unknown user lost items: %v", core.ItemIDs(out))
	}
}

func TestSeenIndex_SaveLoad(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	idx := NewSeenIndex(100, 0.01)
	idx.Add("u1", "p1", "p2")
	if err := idx.Save(ctx, s, "", "u1"); err != nil {
		t.Fatal(err)
	}
	if err := idx.Save(ctx, s, "", "nobody"); err != nil {
		t.Fatal(err)
	}

	restored := NewSeenIndex(100, 0.01)
	if err := restored.Load(ctx, s, "", "u1"); err != nil {
		t.Fatal(err)
	}
	if !restored.Seen("u1", "p1") || !restored.Seen("u1", "p2") {
		t.Error("restored index lost members")
	}
	if err := restored.Load(ctx, s, "", "nobody"); err != nil || restored.Users() != 1 {
		t.Errorf("Load(missing) = %v, users = %d", err, restored.Users())
	}
}

func TestSeenIndex_SaveAllEnsure(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	idx := NewSeenIndex(100, 0.01)
	idx.Add("u1", "p1")
	idx.Add("u2", "p2")
	if n, err := idx.SaveAll(ctx, s, "seen"); err != nil || n != 2 {
		t.Fatalf("SaveAll() = %d, %v", n, err)
	}

	fresh := NewSeenIndex(100, 0.01)
	// 加载前的写入与已保存的内容合并
	fresh.Add("u1", "p9")
	if err := fresh.Ensure(ctx, s, "seen", "u1"); err != nil {
		t.Fatal(err)
	}
	if !fresh.Seen("u1", "p1") || !fresh.Seen("u1", "p9") {
		t.Error("Ensure did not merge the saved filter")
	}

	// 只加载一次：之后存储中的变化不再覆盖内存
	if err := s.Delete(ctx, "seen:u1"); err != nil {
		t.Fatal(err)
	}
	if err := fresh.Ensure(ctx, s, "seen", "u1"); err != nil || !fresh.Seen("u1", "p1") {
		t.Errorf("second Ensure() = %v", err)
	}
	if err := fresh.Ensure(ctx, s, "seen", "nobody"); err != nil || fresh.Seen("nobody", "p1") {
		t.Errorf("Ensure(missing) = %v", err)
	}
}

func TestSeenIndex_ResetSizing(t *testing.T) {
	idx := NewSeenIndex(10, 0.01)
	idx.Reset([]core.Interaction{{UserID: "u1", ItemID: "p0"}, {UserID: "u2", ItemID: "p0"}})
	small := idx.SizeBits()
	if idx.Users() != 2 || small == 0 {
		t.Fatalf("users = %d, bits = %d", idx.Users(), small)
	}

	log := make([]core.Interaction, 0, 100)
	for i := 0; i < 100; i++ {
		log = append(log, core.Interaction{UserID: "u1", ItemID: fmt.Sprintf("p%d", i)})
	}
	idx.Reset(log)
	if idx.Users() != 1 {
		t.Errorf("users missing from the log were not released: %d", idx.Users())
	}
	if idx.SizeBits() <= small {
		t.Errorf("heavy user filter = %d bits, want more than %d", idx.SizeBits(), small)
	}
	for i := 0; i < 100; i++ {
		if !idx.Seen("u1", fmt.Sprintf("p%d", i)) {
			t.Fatalf("p%d lost after Reset", i)
		}
	}
}

func TestSeenIndex_MarkReplaysConcurrentAdds(t *testing.T) {
	idx := NewSeenIndex(0, 0)
	idx.Mark()
	// 读取日志之后、替换索引之前的写入
	idx.Add("u9", "late")
	idx.Reset([]core.Interaction{{UserID: "u1", ItemID: "p1"}})
	if !idx.Seen("u9", "late") || !idx.Seen("u1", "p1") {
		t.Error("write between Mark and Reset was lost")
	}

	idx.Mark()
	idx.Unmark()
	idx.Add("u9", "after")
	idx.Reset(nil)
	if idx.Seen("u9", "after") {
		t.Error("Unmark should stop journaling")
	}
}

func TestModerationFilter(t *testing.T) {
	ctx := context.Background()
	m := &moderation.Moderator{
		BannedKeywords:     moderation.DefaultBannedKeywords,
		SentimentThreshold: moderation.DefaultSentimentThreshold,
	}
	in := items("clean", "banned", "promo", "empty")
	in[0].Meta["text"] = "sunset over the quiet beach"
	in[1].Meta["text"] = "this is a threat"
	in[2].Meta["text"] = "click the link in bio"

	out, _ := (&FilterNode{Filters: []Filter{&ModerationFilter{Moderator: m}}}).Process(ctx, nil, in)
	if got := core.ItemIDs(out); !reflect.DeepEqual(got, []string{"clean", "promo", "empty"}) {
		t.Errorf("Process() = %v", got)
	}
	if lbl := in[2].Labels["moderation"]; lbl.Value != "review" {
		t.Errorf("promo label = %+v", lbl)
	}
}

func TestExprFilter(t *testing.T) {
	ctx := context.Background()
	if _, err := NewExprFilter(""); err == nil {
		t.Error("empty expression should fail")
	}
	if _, err := NewExprFilter("item.score >"); err == nil {
		t.Error("invalid expression should fail")
	}

	f, err := NewExprFilter(`item.meta.category == "spam" || item.score < 0.1`)
	if err != nil {
		t.Fatal(err)
	}
	in := items("a", "b", "c")
	in[0].Score, in[0].Meta["category"] = 0.9, "travel"
	in[1].Score, in[1].Meta["category"] = 0.9, "spam"
	in[2].Score, in[2].Meta["category"] = 0.05, "food"

	out, _ := (&FilterNode{Filters: []Filter{f}}).Process(ctx, nil, in)
	if got := core.ItemIDs(out); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("Process() = %v", got)
	}
}
