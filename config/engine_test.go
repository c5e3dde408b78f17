package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rushteam/feedrank/core"
)

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	w := cfg.Weights()
	if w[core.ActionView] != 0.1 || w[core.ActionShare] != 0.7 {
		t.Errorf("Weights() = %v", w)
	}
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "feedrank.yaml")
	yml := `
default_k: 20
action_weights:
  like: 0.4
hybrid:
  collab_weight: 0.7
  content_weight: 0.3
trend:
  decay: 0.9
services:
  timeout: 500ms
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FEEDRANK_TREND_DECAY", "0.8")
	t.Setenv("FEEDRANK_CF_NEIGHBORS", "7")
	t.Setenv("FEEDRANK_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		got  any
		want any
	}{
		{"default_k from yaml", cfg.DefaultK, 20},
		{"hybrid from yaml", cfg.Hybrid.CollabWeight, 0.7},
		{"decay from env", cfg.Trend.Decay, 0.8},
		{"neighbors from env", cfg.Collaborative.Neighbors, 7},
		{"untouched default", cfg.Collaborative.MaxRank, 50},
		{"log level from env", cfg.Log.Level, "debug"},
		{"duration from yaml", cfg.Services.Timeout, 500 * time.Millisecond},
		{"like weight from yaml", cfg.Weights()[core.ActionLike], 0.4},
		{"view weight kept", cfg.Weights()[core.ActionView], 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load(missing) should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*EngineConfig)
	}{
		{"zero k", func(c *EngineConfig) { c.DefaultK = 0 }},
		{"decay above one", func(c *EngineConfig) { c.Trend.Decay = 1.5 }},
		{"zero decay", func(c *EngineConfig) { c.Trend.Decay = 0 }},
		{"negative hybrid weight", func(c *EngineConfig) { c.Hybrid.ContentWeight = -1 }},
		{"negative action weight", func(c *EngineConfig) { c.ActionWeights["like"] = -0.3 }},
		{"zero neighbors", func(c *EngineConfig) { c.Collaborative.Neighbors = 0 }},
		{"bad bloom rate", func(c *EngineConfig) { c.Seen.FalsePositiveRate = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !core.IsInvalidInput(err) {
				t.Errorf("Validate() = %v, want invalid input", err)
			}
			var de *core.DomainError
			if !errors.As(err, &de) || de.Module != core.ModuleConfig {
				t.Errorf("error module = %v", de)
			}
		})
	}
	cfg := Default()
	cfg.Trend.Decay = 1
	if err := cfg.Validate(); err != nil {
		t.Errorf("decay 1 should be valid: %v", err)
	}
}
