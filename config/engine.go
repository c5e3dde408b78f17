// Package config 负责两类配置：
//   - EngineConfig：引擎参数（YAML 文件 + FEEDRANK_ 前缀环境变量覆盖）
//   - Pipeline 节点注册表：按 type 名称从 pipeline.Config 构建 Node
//
// 使用配置驱动的 Pipeline 时，需在入口处 import _ "github.com/rushteam/feedrank/config/builders"
// 以触发内置 Node 的 init 注册。
package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/rushteam/feedrank/cluster"
	"github.com/rushteam/feedrank/core"
	"github.com/rushteam/feedrank/pkg/logger"
)

// EnvPrefix 是环境变量前缀，例如 FEEDRANK_DEFAULT_K、FEEDRANK_TREND_DECAY。
const EnvPrefix = "FEEDRANK"

// EngineConfig 是引擎配置。
type EngineConfig struct {
	// DefaultK 请求未指定条数时的返回条数
	DefaultK int `yaml:"default_k" envconfig:"DEFAULT_K"`
	// ActionWeights 行为权重，环境变量格式 view:0.1,like:0.3
	ActionWeights map[string]float64 `yaml:"action_weights" envconfig:"ACTION_WEIGHTS"`

	Content       ContentConfig       `yaml:"content" envconfig:"CONTENT"`
	Collaborative CollaborativeConfig `yaml:"collaborative" envconfig:"CF"`
	Hybrid        HybridConfig        `yaml:"hybrid" envconfig:"HYBRID"`
	Trend         TrendConfig         `yaml:"trend" envconfig:"TREND"`
	Moderation    ModerationConfig    `yaml:"moderation" envconfig:"MODERATION"`
	Cluster       cluster.Config      `yaml:"cluster" envconfig:"CLUSTER"`
	Seen          SeenConfig          `yaml:"seen" envconfig:"SEEN"`

	Redis    RedisConfig    `yaml:"redis" envconfig:"REDIS"`
	Services ServicesConfig `yaml:"services" envconfig:"SERVICES"`
	Feast    FeastConfig    `yaml:"feast" envconfig:"FEAST"`
	Log      logger.Config  `yaml:"log" envconfig:"LOG"`

	// Pipeline 可选的 Pipeline 配置文件路径（YAML/JSON），为空时使用内置链路
	Pipeline string `yaml:"pipeline" envconfig:"PIPELINE"`
}

// ContentConfig 是 TF-IDF 参数。
type ContentConfig struct {
	MaxFeatures int `yaml:"max_features" envconfig:"MAX_FEATURES"`
}

// CollaborativeConfig 是协同过滤参数。
type CollaborativeConfig struct {
	Neighbors int `yaml:"neighbors" envconfig:"NEIGHBORS"`
	MaxRank   int `yaml:"max_rank" envconfig:"MAX_RANK"`
}

// HybridConfig 是融合权重。
type HybridConfig struct {
	CollabWeight  float64 `yaml:"collab_weight" envconfig:"COLLAB_WEIGHT"`
	ContentWeight float64 `yaml:"content_weight" envconfig:"CONTENT_WEIGHT"`
}

// TrendConfig 是趋势榜参数。
type TrendConfig struct {
	// Decay 每小时衰减系数，取值 (0, 1]
	Decay float64 `yaml:"decay" envconfig:"DECAY"`
	// SnapshotKey 趋势榜快照在 Store 中的 key
	SnapshotKey string `yaml:"snapshot_key" envconfig:"SNAPSHOT_KEY"`
	// HotKey 发布热门帖子有序集合的 key
	HotKey string `yaml:"hot_key" envconfig:"HOT_KEY"`
}

// ModerationConfig 是内容审核参数。
type ModerationConfig struct {
	SentimentThreshold float64  `yaml:"sentiment_threshold" envconfig:"SENTIMENT_THRESHOLD"`
	MediaThreshold     float64  `yaml:"media_threshold" envconfig:"MEDIA_THRESHOLD"`
	BannedKeywords     []string `yaml:"banned_keywords" envconfig:"BANNED_KEYWORDS"`
}

// SeenConfig 是已交互布隆过滤器参数。
// 内存占用约为 每用户 max(Capacity, 2×交互数) × 9.6 bit（1% 误判率），常驻内存，
// Rebuild 时按交互日志重新分配并释放日志里已没有的用户。
type SeenConfig struct {
	// Capacity 每个用户过滤器的最小容量
	Capacity          uint    `yaml:"capacity" envconfig:"CAPACITY"`
	FalsePositiveRate float64 `yaml:"false_positive_rate" envconfig:"FALSE_POSITIVE_RATE"`
}

// RedisConfig 为空地址时使用内存存储。
type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"ADDR"`
	Password string `yaml:"password" envconfig:"PASSWORD"`
	DB       int    `yaml:"db" envconfig:"DB"`
}

// ServicesConfig 是远程模型服务（情感、媒体审核）的地址与熔断参数。
// 地址为空时使用本地实现。
type ServicesConfig struct {
	SentimentURL   string        `yaml:"sentiment_url" envconfig:"SENTIMENT_URL"`
	SentimentModel string        `yaml:"sentiment_model" envconfig:"SENTIMENT_MODEL"`
	MediaURL       string        `yaml:"media_url" envconfig:"MEDIA_URL"`
	MediaModel     string        `yaml:"media_model" envconfig:"MEDIA_MODEL"`
	Timeout        time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	// BreakerFailures 连续失败多少次后熔断
	BreakerFailures uint32 `yaml:"breaker_failures" envconfig:"BREAKER_FAILURES"`
}

// FeastConfig 为空 Host 时不使用 Feast 补充用户计数。
type FeastConfig struct {
	Host    string `yaml:"host" envconfig:"HOST"`
	Port    int    `yaml:"port" envconfig:"PORT"`
	Project string `yaml:"project" envconfig:"PROJECT"`
}

// Default 返回默认配置。
func Default() EngineConfig {
	weights := core.DefaultActionWeights()
	aw := make(map[string]float64, len(weights))
	for a, w := range weights {
		aw[string(a)] = w
	}
	return EngineConfig{
		DefaultK:      10,
		ActionWeights: aw,
		Content:       ContentConfig{MaxFeatures: 1000},
		Collaborative: CollaborativeConfig{Neighbors: 5, MaxRank: 50},
		Hybrid:        HybridConfig{CollabWeight: 0.6, ContentWeight: 0.4},
		Trend: TrendConfig{
			Decay:       0.95,
			SnapshotKey: "feedrank:trend:snapshot",
			HotKey:      "feedrank:hot:posts",
		},
		Moderation: ModerationConfig{SentimentThreshold: -0.5, MediaThreshold: 0.5},
		Cluster:    cluster.DefaultConfig(),
		Seen:       SeenConfig{Capacity: 1000, FalsePositiveRate: 0.01},
		Services: ServicesConfig{
			SentimentModel:  "sentiment",
			MediaModel:      "media_safety",
			Timeout:         2 * time.Second,
			BreakerFailures: 5,
		},
		Feast: FeastConfig{Port: 6566, Project: "feedrank"},
		Log:   logger.Config{Level: "info", Format: "json"},
	}
}

// Load 依次应用默认值、YAML 文件（path 为空则跳过）、环境变量，然后校验。
func Load(path string) (EngineConfig, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("config: env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate 校验取值范围。
func (c EngineConfig) Validate() error {
	invalid := func(format string, args ...any) error {
		return core.NewDomainError(core.ModuleConfig, core.ErrorCodeInvalidInput, "config: "+fmt.Sprintf(format, args...))
	}
	switch {
	case c.DefaultK <= 0:
		return invalid("default_k must be positive, got %d", c.DefaultK)
	case c.Content.MaxFeatures <= 0:
		return invalid("content.max_features must be positive, got %d", c.Content.MaxFeatures)
	case c.Collaborative.Neighbors <= 0:
		return invalid("collaborative.neighbors must be positive, got %d", c.Collaborative.Neighbors)
	case c.Collaborative.MaxRank <= 0:
		return invalid("collaborative.max_rank must be positive, got %d", c.Collaborative.MaxRank)
	case c.Hybrid.CollabWeight < 0 || c.Hybrid.ContentWeight < 0:
		return invalid("hybrid weights must be non-negative")
	case !(c.Trend.Decay > 0 && c.Trend.Decay <= 1):
		return invalid("trend.decay must be in (0, 1], got %v", c.Trend.Decay)
	case c.Cluster.MaxK <= 0:
		return invalid("cluster.max_k must be positive, got %d", c.Cluster.MaxK)
	case c.Seen.FalsePositiveRate <= 0 || c.Seen.FalsePositiveRate >= 1:
		return invalid("seen.false_positive_rate must be in (0, 1), got %v", c.Seen.FalsePositiveRate)
	}
	for action, w := range c.ActionWeights {
		if w < 0 || math.IsNaN(w) {
			return invalid("action weight %s must be non-negative, got %v", action, w)
		}
	}
	return nil
}

// Weights 返回 core.ActionWeights；未配置的行为使用默认权重。
func (c EngineConfig) Weights() core.ActionWeights {
	out := core.DefaultActionWeights()
	for action, w := range c.ActionWeights {
		out[core.Action(action)] = w
	}
	return out
}
