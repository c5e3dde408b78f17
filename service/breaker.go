package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/rushteam/feedrank/core"
)

// BreakerConfig 熔断配置。
type BreakerConfig struct {
	// Name 熔断器名称，出现在日志里
	Name string
	// ConsecutiveFailures 连续失败多少次后打开，默认 5
	ConsecutiveFailures uint32
	// MaxRequests 半开状态允许的探测请求数，默认 1
	MaxRequests uint32
	// Interval 关闭状态下计数清零周期，0 表示不清零
	Interval time.Duration
	// Timeout 打开多久后进入半开，默认 30s
	Timeout time.Duration
}

// BreakerClient 给 core.ModelService 加上熔断：熔断打开时直接返回 core.ErrServiceUnavailable，
// 不再请求下游。输入错误（INVALID_INPUT）不计入失败。
type BreakerClient struct {
	next core.ModelService
	cb   *gobreaker.CircuitBreaker[*core.PredictResponse]
	log  zerolog.Logger
}

// NewBreakerClient 包装 next。
func NewBreakerClient(next core.ModelService, cfg BreakerConfig, log zerolog.Logger) *BreakerClient {
	if cfg.Name == "" {
		cfg.Name = "model-service"
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	b := &BreakerClient{next: next, log: log}
	b.cb = gobreaker.NewCircuitBreaker[*core.PredictResponse](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || core.IsInvalidInput(err) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
	return b
}

// Predict 经熔断器调用下游。
func (b *BreakerClient) Predict(ctx context.Context, req *core.PredictRequest) (*core.PredictResponse, error) {
	resp, err := b.cb.Execute(func() (*core.PredictResponse, error) {
		return b.next.Predict(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, core.WrapDomainError(core.ModuleService, core.ErrorCodeUnavailable, "service: circuit open", err)
	}
	return resp, err
}

// State 返回熔断器当前状态：closed / half-open / open。
func (b *BreakerClient) State() string {
	return b.cb.State().String()
}

// Health 熔断打开时直接返回不可用。
func (b *BreakerClient) Health(ctx context.Context) error {
	if b.cb.State() == gobreaker.StateOpen {
		return core.WrapDomainError(core.ModuleService, core.ErrorCodeUnavailable, "service: circuit open", gobreaker.ErrOpenState)
	}
	return b.next.Health(ctx)
}

func (b *BreakerClient) Close(ctx context.Context) error {
	return b.next.Close(ctx)
}

var _ core.ModelService = (*BreakerClient)(nil)
