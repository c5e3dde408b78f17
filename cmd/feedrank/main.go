// feedrank 生成一份测试数据集，灌入引擎后输出推荐、热门话题与热门帖子。
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/rushteam/feedrank/config"
	"github.com/rushteam/feedrank/datagen"
	"github.com/rushteam/feedrank/engine"
	"github.com/rushteam/feedrank/moderation"
	"github.com/rushteam/feedrank/pkg/logger"
	"github.com/rushteam/feedrank/trend"
)

type report struct {
	Rebuild         engine.RebuildStats     `json:"rebuild"`
	Recommendations []engine.Recommendation `json:"recommendations"`
	Trending        []trend.Entry           `json:"trending"`
	TrendingPosts   []string                `json:"trending_posts"`
	SimilarPosts    map[string][]string     `json:"similar_posts,omitempty"`
	Moderation      []moderation.Verdict    `json:"moderation,omitempty"`
}

func main() {
	var (
		configPath string
		userID     string
		k          int
		gen        = datagen.DefaultConfig()
		texts      stringList
	)
	flag.StringVar(&configPath, "config", "", "Path to YAML config file")
	flag.StringVar(&userID, "user", "", "Recommend for this user only (default: every generated user)")
	flag.IntVar(&k, "k", 0, "Number of recommendations (default: default_k from config)")
	flag.Int64Var(&gen.Seed, "seed", gen.Seed, "Random seed for generated data")
	flag.IntVar(&gen.Users, "users", gen.Users, "Number of generated users")
	flag.IntVar(&gen.Posts, "posts", gen.Posts, "Number of generated posts")
	flag.IntVar(&gen.Reels, "reels", gen.Reels, "Number of generated reels")
	flag.IntVar(&gen.Interactions, "interactions", gen.Interactions, "Number of generated interactions")
	flag.Var(&texts, "moderate", "Text to moderate (repeatable)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("feedrank: load config")
	}
	base := logger.New(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	eng, err := engine.New(ctx, cfg,
		engine.WithLogger(base),
		engine.WithRegisterer(prometheus.DefaultRegisterer),
	)
	if err != nil {
		base.Fatal().Err(err).Msg("feedrank: create engine")
	}
	defer func() {
		if err := eng.Close(context.Background()); err != nil {
			base.Error().Err(err).Msg("feedrank: close engine")
		}
	}()

	ds := datagen.New(gen).Generate(time.Now(), cfg.Weights())
	eng.AddUsers(ds.Users...)
	eng.AddPosts(ds.Posts...)
	for _, in := range ds.Interactions {
		if err := eng.Record(ctx, in); err != nil {
			base.Fatal().Err(err).Msg("feedrank: record interaction")
		}
	}

	out := report{}
	if out.Rebuild, err = eng.Rebuild(ctx); err != nil {
		base.Fatal().Err(err).Msg("feedrank: rebuild")
	}

	users := []string{userID}
	if userID == "" {
		users = users[:0]
		for _, u := range ds.Users {
			users = append(users, u.ID)
		}
	}
	for _, id := range users {
		rec, err := eng.Recommend(ctx, id, k)
		if err != nil {
			base.Fatal().Err(err).Str("user_id", id).Msg("feedrank: recommend")
		}
		out.Recommendations = append(out.Recommendations, rec)
	}
	out.Trending = eng.Trending(10)
	out.TrendingPosts = eng.TrendingPosts(k)
	if len(out.TrendingPosts) > 0 {
		top := out.TrendingPosts[0]
		out.SimilarPosts = map[string][]string{top: eng.SimilarContent(top, k)}
	}
	for _, text := range texts {
		out.Moderation = append(out.Moderation, eng.Moderate(ctx, text))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		base.Fatal().Err(err).Msg("feedrank: encode report")
	}
}

// stringList 收集可重复的命令行参数。
type stringList []string

func (l *stringList) String() string { return "" }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}
