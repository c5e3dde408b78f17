package datagen

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rushteam/feedrank/core"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestGenerate_Deterministic(t *testing.T) {
	a := New(DefaultConfig()).Generate(now, nil)
	b := New(DefaultConfig()).Generate(now, nil)
	if !reflect.DeepEqual(a, b) {
		t.Error("same seed produced different datasets")
	}
	c := New(Config{Seed: 7}).Generate(now, nil)
	if reflect.DeepEqual(a.Users, c.Users) {
		t.Error("different seeds produced identical users")
	}
}

func TestGenerate_Shape(t *testing.T) {
	ds := New(Config{Seed: 1, Users: 5, Posts: 10, Reels: 4, Interactions: 30}).Generate(now, nil)
	if len(ds.Users) != 5 || len(ds.Posts) != 14 || len(ds.Interactions) != 30 {
		t.Fatalf("sizes = %d/%d/%d", len(ds.Users), len(ds.Posts), len(ds.Interactions))
	}
	if ds.Users[0].ID != "user_001" || ds.Posts[0].ID != "post_0001" || ds.Posts[10].ID != "reel_0001" {
		t.Errorf("ids = %s %s %s", ds.Users[0].ID, ds.Posts[0].ID, ds.Posts[10].ID)
	}

	users := make(map[string]bool)
	for _, u := range ds.Users {
		users[u.ID] = true
		if len(u.Interests) < 2 || len(u.Interests) > 4 {
			t.Errorf("user %s interests = %v", u.ID, u.Interests)
		}
		distinct := make(map[string]bool)
		for _, c := range u.Interests {
			if distinct[c] {
				t.Errorf("user %s repeats interest %s", u.ID, c)
			}
			distinct[c] = true
		}
	}
	posts := make(map[string]core.ItemKind)
	for _, p := range ds.Posts {
		posts[p.ID] = p.Kind
		if !users[p.UserID] {
			t.Errorf("post %s has unknown author %s", p.ID, p.UserID)
		}
		if p.CreatedAt.After(now) {
			t.Errorf("post %s created in the future", p.ID)
		}
		if p.Kind == core.KindReel && !strings.Contains(strings.Join(p.Hashtags, " "), "#fyp") {
			t.Errorf("reel %s hashtags = %v", p.ID, p.Hashtags)
		}
	}
	weights := core.DefaultActionWeights()
	for _, in := range ds.Interactions {
		kind, ok := posts[in.ItemID]
		if !ok || !users[in.UserID] || kind != in.Kind {
			t.Errorf("interaction %+v references unknown entities", in)
		}
		if in.Weight != weights.Weight(in.Action) {
			t.Errorf("interaction weight %v for %s", in.Weight, in.Action)
		}
	}
}

func TestGenerate_UUIDs(t *testing.T) {
	ds := New(Config{Seed: 3, Users: 2, Posts: 1, Reels: 0, Interactions: 0, UUIDs: true}).Generate(now, nil)
	for _, id := range []string{ds.Users[0].ID, ds.Users[1].ID, ds.Posts[0].ID} {
		if _, err := uuid.Parse(id); err != nil {
			t.Errorf("id %q is not a uuid: %v", id, err)
		}
	}
	again := New(Config{Seed: 3, Users: 2, Posts: 1, Reels: 0, Interactions: 0, UUIDs: true}).Generate(now, nil)
	if again.Users[0].ID != ds.Users[0].ID {
		t.Error("uuid ids are not reproducible")
	}
}

func TestGenerate_NoPosts(t *testing.T) {
	ds := New(Config{Seed: 1, Users: 3, Posts: 0, Reels: 0, Interactions: 10}).Generate(now, nil)
	if len(ds.Posts) != 0 || len(ds.Interactions) != 0 {
		t.Errorf("posts=%d interactions=%d", len(ds.Posts), len(ds.Interactions))
	}
}
