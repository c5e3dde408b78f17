// Package service 对接外部模型服务（情感分析、图像/视频审核），实现 core.ModelService。
//
//	svc, _ := service.NewModelService(&service.ServiceConfig{
//	    Type:      service.ServiceTypeTorchServe,
//	    Endpoint:  "http://localhost:8080",
//	    ModelName: "sentiment",
//	})
//	sentiment := &moderation.RemoteSentiment{Service: svc}
package service

import "time"

// ServiceType 服务类型
type ServiceType string

const (
	ServiceTypeTorchServe ServiceType = "torch_serve" // TorchServe REST 推理
)

// ServiceConfig 服务配置
type ServiceConfig struct {
	// Type 服务类型，默认 torch_serve
	Type ServiceType

	// Endpoint 服务端点，例如 "http://localhost:8080"
	Endpoint string

	// ModelName 模型名称
	ModelName string

	// ModelVersion 模型版本（可选）
	ModelVersion string

	// Timeout 单次请求超时，默认 30s
	Timeout time.Duration

	// Auth 认证信息（可选）
	Auth *AuthConfig

	// Breaker 熔断配置（可选），为 nil 时不包装熔断
	Breaker *BreakerConfig
}

// AuthConfig 认证配置
type AuthConfig struct {
	Type     string // "basic", "bearer", "api_key"
	Username string
	Password string
	Token    string
	APIKey   string
}
