// Package datagen 生成可复现的测试数据集：用户、帖子、短视频与交互记录。
// 相同的 Seed 与 now 生成完全相同的数据。
package datagen

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/rushteam/feedrank/core"
)

// Config 是数据规模与随机种子。
type Config struct {
	Seed         int64 `yaml:"seed"`
	Users        int   `yaml:"users"`
	Posts        int   `yaml:"posts"`
	Reels        int   `yaml:"reels"`
	Interactions int   `yaml:"interactions"`
	// UUIDs 为 true 时 ID 使用（由种子决定的）UUID，否则使用 user_001 / post_0001 形式
	UUIDs bool `yaml:"uuids"`
}

// DefaultConfig 返回 20 个用户、100 个帖子、50 个短视频、500 条交互。
func DefaultConfig() Config {
	return Config{Seed: 42, Users: 20, Posts: 100, Reels: 50, Interactions: 500}
}

// Dataset 是生成结果。Posts 同时包含帖子与短视频（Kind 区分）。
type Dataset struct {
	Users        []core.User        `json:"users"`
	Posts        []core.Post        `json:"posts"`
	Interactions []core.Interaction `json:"interactions"`
}

// Categories 是内容类目。
var Categories = []string{"music", "comedy", "dance", "education", "sports", "food", "lifestyle", "tech", "art", "travel"}

var usernames = []string{
	"musiclover", "comedyfan", "dancer123", "techguru", "foodie_life",
	"sports_fanatic", "art_creator", "travel_addict", "lifestyle_blogger", "educator",
}

var postTemplates = map[string][]string{
	"music": {
		"Just dropped my new track! What do you think?",
		"Jamming to this amazing song right now!",
		"Working on some new beats in the studio",
		"This melody has been stuck in my head all day!",
	},
	"comedy": {
		"When you realize it's Monday tomorrow",
		"Me trying to adult like...",
		"That awkward moment when...",
		"Why is adulting so hard? Someone explain!",
	},
	"dance": {
		"Nailed this choreography! Check it out!",
		"Dancing my heart out to this amazing song!",
		"New dance challenge accepted! Who's joining?",
		"Practice makes perfect! Still working on this routine",
	},
	"education": {
		"Today I learned something incredible about quantum physics!",
		"Study tip: Use the Pomodoro technique for better focus!",
		"Breaking down complex concepts into simple explanations",
		"Learning something new every day keeps the mind sharp!",
	},
	"food": {
		"Homemade pasta from scratch! Recipe in the comments",
		"This pizza looks too good to eat... almost!",
		"Trying out a new dessert recipe today!",
		"Fresh ingredients make all the difference!",
	},
}

var reelTitles = map[string][]string{
	"music":  {"New beat drop!", "Vibing to this!", "Music magic"},
	"dance":  {"Watch this move!", "Dance battle!", "Smooth moves"},
	"comedy": {"You'll laugh!", "Comedy gold!", "So funny!"},
	"food":   {"Satisfying!", "Delicious!", "Food art!"},
}

var hashtagPools = map[string][]string{
	"music":     {"#music", "#song", "#newtrack", "#studio", "#musician", "#beats", "#melody"},
	"comedy":    {"#funny", "#comedy", "#humor", "#meme", "#lol", "#hilarious", "#joke"},
	"dance":     {"#dance", "#choreography", "#dancing", "#moves", "#dancer", "#performance"},
	"education": {"#learning", "#education", "#knowledge", "#study", "#tips", "#science"},
	"food":      {"#food", "#cooking", "#recipe", "#delicious", "#homemade", "#chef"},
}

var actions = []core.Action{core.ActionView, core.ActionLike, core.ActionShare, core.ActionComment, core.ActionSave}

// Generator 是带种子的数据生成器，非并发安全。
type Generator struct {
	cfg       Config
	rng       *rand.Rand
	interests map[string][]string
}

// New 创建生成器，规模为 0 的字段使用默认值。
func New(cfg Config) *Generator {
	d := DefaultConfig()
	if cfg.Users <= 0 {
		cfg.Users = d.Users
	}
	if cfg.Posts < 0 {
		cfg.Posts = d.Posts
	}
	if cfg.Reels < 0 {
		cfg.Reels = d.Reels
	}
	if cfg.Interactions < 0 {
		cfg.Interactions = d.Interactions
	}
	return &Generator{
		cfg:       cfg,
		rng:       rand.New(rand.NewSource(cfg.Seed)),
		interests: make(map[string][]string),
	}
}

// Generate 以 now 为基准时间生成完整数据集。
func (g *Generator) Generate(now time.Time, weights core.ActionWeights) Dataset {
	users := g.users(now)
	posts := g.posts(users, now)
	posts = append(posts, g.reels(users, now)...)
	return Dataset{
		Users:        users,
		Posts:        posts,
		Interactions: g.interactions(users, posts, now, weights),
	}
}

func (g *Generator) id(prefix string, n, width int) string {
	if g.cfg.UUIDs {
		id, err := uuid.NewRandomFromReader(g.rng)
		if err == nil {
			return id.String()
		}
	}
	return fmt.Sprintf("%s_%0*d", prefix, width, n)
}

func (g *Generator) pick(options []string) string {
	return options[g.rng.Intn(len(options))]
}

// between 返回 [lo, hi] 内的随机整数。
func (g *Generator) between(lo, hi int) int {
	return lo + g.rng.Intn(hi-lo+1)
}

func (g *Generator) users(now time.Time) []core.User {
	out := make([]core.User, g.cfg.Users)
	for i := range out {
		username := fmt.Sprintf("%s_%d", g.pick(usernames), g.between(1, 999))
		interests := make([]string, g.between(2, 4))
		for j, idx := range g.rng.Perm(len(Categories))[:len(interests)] {
			interests[j] = Categories[idx]
		}
		u := core.User{
			ID:             g.id("user", i+1, 3),
			Username:       username,
			Bio:            fmt.Sprintf("Content creator passionate about %s!", g.pick(Categories)),
			Interests:      interests,
			FollowersCount: g.between(10, 10000),
			FollowingCount: g.between(50, 1000),
			PostsCount:     g.between(5, 100),
			CreatedAt:      now.Add(-time.Duration(g.between(30, 365)) * 24 * time.Hour),
		}
		g.interests[u.ID] = interests
		out[i] = u
	}
	return out
}

func (g *Generator) hashtags(category string, lo, hi int) []string {
	pool, ok := hashtagPools[category]
	if !ok {
		pool = []string{"#" + category}
	}
	tags := make([]string, g.between(lo, hi))
	for i := range tags {
		tags[i] = g.pick(pool)
	}
	return tags
}

func (g *Generator) posts(users []core.User, now time.Time) []core.Post {
	out := make([]core.Post, g.cfg.Posts)
	for i := range out {
		u := users[g.rng.Intn(len(users))]
		category := g.pick(g.interests[u.ID])
		caption := "Great content! Check this out!"
		if templates, ok := postTemplates[category]; ok {
			caption = g.pick(templates)
		}
		if g.rng.Float64() > 0.7 {
			caption += fmt.Sprintf(" #%s #%s", category, g.pick([]string{"trending", "viral", "awesome", "amazing"}))
		}
		out[i] = core.Post{
			ID:        g.id("post", i+1, 4),
			UserID:    u.ID,
			Kind:      core.KindPost,
			Caption:   caption,
			Hashtags:  g.hashtags(category, 1, 5),
			Category:  category,
			CreatedAt: now.Add(-time.Duration(g.between(1, 168)) * time.Hour),
			Likes:     g.between(0, 1000),
			Comments:  g.between(0, 100),
			Shares:    g.between(0, 50),
		}
	}
	return out
}

func (g *Generator) reels(users []core.User, now time.Time) []core.Post {
	out := make([]core.Post, g.cfg.Reels)
	for i := range out {
		u := users[g.rng.Intn(len(users))]
		category := g.pick(g.interests[u.ID])
		title := "Check this out!"
		if titles, ok := reelTitles[category]; ok {
			title = g.pick(titles)
		}
		tags := append(g.hashtags(category, 2, 6), "#reels", "#viral", "#fyp")
		out[i] = core.Post{
			ID:        g.id("reel", i+1, 4),
			UserID:    u.ID,
			Kind:      core.KindReel,
			Caption:   fmt.Sprintf("%s Amazing %s content! Don't miss this!", title, category),
			Hashtags:  tags,
			Category:  category,
			CreatedAt: now.Add(-time.Duration(g.between(1, 72)) * time.Hour),
			Views:     g.between(100, 50000),
			Likes:     g.between(10, 5000),
			Comments:  g.between(5, 500),
			Shares:    g.between(0, 200),
		}
	}
	return out
}

func (g *Generator) interactions(users []core.User, posts []core.Post, now time.Time, weights core.ActionWeights) []core.Interaction {
	if len(posts) == 0 {
		return []core.Interaction{}
	}
	if weights == nil {
		weights = core.DefaultActionWeights()
	}
	out := make([]core.Interaction, g.cfg.Interactions)
	for i := range out {
		u := users[g.rng.Intn(len(users))]
		p := posts[g.rng.Intn(len(posts))]
		action := actions[g.rng.Intn(len(actions))]
		ts := now.Add(-time.Duration(g.between(1, 1440)) * time.Minute)
		out[i] = core.NewInteraction(u.ID, p.ID, p.Kind, action, weights, ts)
	}
	return out
}
