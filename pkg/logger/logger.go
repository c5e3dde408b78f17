// Package logger 基于 zerolog 构建结构化日志。
//
// 算法包不打日志，只返回值/错误；日志集中在 engine、service 与 cmd：
//
//	log := logger.New(logger.Config{Level: "debug", Format: "console"})
//	ctx = logger.WithRequestID(ctx, log, logger.NewRequestID())
//	zerolog.Ctx(ctx).Info().Str("user_id", uid).Msg("recommend")
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Config 是日志配置。
type Config struct {
	// Level: trace/debug/info/warn/error，默认 info
	Level string `yaml:"level" envconfig:"LEVEL"`
	// Format: json/console，默认 json
	Format string `yaml:"format" envconfig:"FORMAT"`
	// Output 默认 os.Stderr
	Output io.Writer `yaml:"-" ignored:"true"`
}

// New 按配置创建 logger，附带时间戳。无法识别的 level 按 info 处理。
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).With().Timestamp().Logger().Level(ParseLevel(cfg.Level))
}

// ParseLevel 解析日志级别，空串或非法值返回 info。
func ParseLevel(s string) zerolog.Level {
	if s == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Nop 返回丢弃所有输出的 logger，用于测试和未配置日志的调用方。
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

// NewRequestID 生成请求 ID。
func NewRequestID() string {
	return uuid.NewString()
}

// WithRequestID 把带 request_id 字段的子 logger 挂到 ctx 上，之后用 zerolog.Ctx(ctx) 取出。
func WithRequestID(ctx context.Context, base zerolog.Logger, requestID string) context.Context {
	l := base.With().Str("request_id", requestID).Logger()
	return l.WithContext(ctx)
}
