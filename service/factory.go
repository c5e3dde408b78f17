package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rushteam/feedrank/core"
)

// NewModelService 根据配置创建 core.ModelService（工厂方法）。
// 配置了 Breaker 时返回带熔断的包装。
func NewModelService(config *ServiceConfig, log zerolog.Logger) (core.ModelService, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	var svc core.ModelService
	switch config.Type {
	case ServiceTypeTorchServe, "":
		opts := []TorchServeOption{}
		if config.Timeout > 0 {
			opts = append(opts, WithTorchServeTimeout(config.Timeout))
		}
		if config.ModelVersion != "" {
			opts = append(opts, WithTorchServeVersion(config.ModelVersion))
		}
		if config.Auth != nil {
			opts = append(opts, WithTorchServeAuth(config.Auth))
		}
		svc = NewTorchServeClient(strings.TrimRight(config.Endpoint, "/"), config.ModelName, opts...)
	default:
		return nil, fmt.Errorf("unsupported service type: %s", config.Type)
	}

	if config.Breaker != nil {
		bc := *config.Breaker
		if bc.Name == "" {
			bc.Name = config.ModelName
		}
		svc = NewBreakerClient(svc, bc, log)
	}
	return svc, nil
}

// ValidateConfig 验证服务配置
func ValidateConfig(config *ServiceConfig) error {
	if config == nil {
		return fmt.Errorf("config is required")
	}
	if !hasHTTPPrefix(config.Endpoint) {
		return fmt.Errorf("endpoint must start with http:// or https://, got %q", config.Endpoint)
	}
	if config.ModelName == "" {
		return fmt.Errorf("model name is required")
	}
	return nil
}

// hasHTTPPrefix 检查是否包含 HTTP 前缀
func hasHTTPPrefix(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// TestConnection 测试服务连接
func TestConnection(ctx context.Context, svc core.ModelService) error {
	if svc == nil {
		return fmt.Errorf("service is nil")
	}
	return svc.Health(ctx)
}
