// Package feast 从 Feast 在线特征服务读取用户计数特征（粉丝数/关注数/帖子数），
// 作为用户聚类的可选数据来源。
package feast

import (
	"context"
	"time"
)

// Client 是 Feast 客户端的领域接口，由 GrpcClient 实现。
type Client interface {
	// GetOnlineFeatures 获取在线特征
	GetOnlineFeatures(ctx context.Context, req *GetOnlineFeaturesRequest) (*GetOnlineFeaturesResponse, error)

	// Close 关闭客户端连接
	Close() error
}

// GetOnlineFeaturesRequest 在线特征请求。
type GetOnlineFeaturesRequest struct {
	// Features 特征引用，格式 {feature_view}:{feature}
	Features []string

	// EntityRows 实体行，例如 [{"user_id": "u1"}]
	EntityRows []map[string]any

	// Project 项目名称（可选，默认取客户端配置）
	Project string
}

// GetOnlineFeaturesResponse 在线特征响应，FeatureVectors 与 EntityRows 一一对应。
type GetOnlineFeaturesResponse struct {
	FeatureVectors []FeatureVector
}

// FeatureVector 是一个实体的特征值，数值统一为 float64。
type FeatureVector struct {
	Values    map[string]any
	EntityRow map[string]any
}

// ClientOption 客户端配置选项
type ClientOption func(*ClientConfig)

// ClientConfig 客户端配置
type ClientConfig struct {
	Endpoint string
	Project  string
	Timeout  time.Duration
	Auth     *AuthConfig
}

// AuthConfig 认证配置，目前支持 static token。
type AuthConfig struct {
	Type  string
	Token string
}

// WithTimeout 设置单次请求超时
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.Timeout = timeout
	}
}

// WithAuth 设置认证信息
func WithAuth(auth *AuthConfig) ClientOption {
	return func(c *ClientConfig) {
		c.Auth = auth
	}
}
