package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/rushteam/feedrank/core"
)

// TorchServeClient 是 TorchServe REST 推理客户端，实现 core.ModelService。
//
// REST API 格式：
//   - 推理端点：POST /predictions/{model_name}
//   - 请求体：{"data": [...]}，文本模型为字符串数组，媒体模型为 URL 数组
//   - 响应：数值数组、{"prediction": x}、{"predictions": [...]}
//     或 {"scores": [...], "labels": [[...]], "model_version": "..."}
//
// 网络错误和 5xx 返回 core.ErrServiceUnavailable，调用方据此降级。
type TorchServeClient struct {
	// Endpoint 服务端点，例如 "http://localhost:8080"
	Endpoint string

	// ModelName 默认模型名称，请求中的 ModelName 优先
	ModelName string

	// ModelVersion 模型版本（可选）
	ModelVersion string

	// Timeout 超时时间
	Timeout time.Duration

	// Auth 认证信息
	Auth *AuthConfig

	httpClient *http.Client
}

// NewTorchServeClient 创建一个新的 TorchServe 客户端。
func NewTorchServeClient(endpoint, modelName string, opts ...TorchServeOption) *TorchServeClient {
	client := &TorchServeClient{
		Endpoint:  endpoint,
		ModelName: modelName,
		Timeout:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: client.Timeout}
	}
	return client
}

// TorchServeOption TorchServe 客户端配置选项
type TorchServeOption func(*TorchServeClient)

// WithTorchServeVersion 设置模型版本
func WithTorchServeVersion(version string) TorchServeOption {
	return func(c *TorchServeClient) {
		c.ModelVersion = version
	}
}

// WithTorchServeTimeout 设置超时时间
func WithTorchServeTimeout(timeout time.Duration) TorchServeOption {
	return func(c *TorchServeClient) {
		c.Timeout = timeout
		if c.httpClient != nil {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithTorchServeAuth 设置认证信息
func WithTorchServeAuth(auth *AuthConfig) TorchServeOption {
	return func(c *TorchServeClient) {
		c.Auth = auth
	}
}

// WithTorchServeHTTPClient 设置自定义 HTTP 客户端
func WithTorchServeHTTPClient(httpClient *http.Client) TorchServeOption {
	return func(c *TorchServeClient) {
		c.httpClient = httpClient
	}
}

type torchServeRequest struct {
	Data []string `json:"data"`
}

type torchServeObject struct {
	Prediction   *float64   `json:"prediction"`
	Predictions  []float64  `json:"predictions"`
	Scores       []float64  `json:"scores"`
	Labels       [][]string `json:"labels"`
	ModelVersion string     `json:"model_version"`
}

// Predict 批量预测：Texts 与 URLs 二选一。
func (c *TorchServeClient) Predict(ctx context.Context, req *core.PredictRequest) (*core.PredictResponse, error) {
	if req == nil || req.Len() == 0 {
		return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeInvalidInput, "service: texts or urls are required")
	}
	if len(req.Texts) > 0 && len(req.URLs) > 0 {
		return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeInvalidInput, "service: texts and urls are exclusive")
	}
	data := req.Texts
	if len(data) == 0 {
		data = req.URLs
	}

	model := req.ModelName
	if model == "" {
		model = c.ModelName
	}
	url := fmt.Sprintf("%s/predictions/%s", c.Endpoint, model)
	if c.ModelVersion != "" {
		url = fmt.Sprintf("%s/%s", url, c.ModelVersion)
	}

	body, err := json.Marshal(torchServeRequest{Data: data})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.addAuth(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleService, core.ErrorCodeUnavailable, "service: torchserve request failed", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleService, core.ErrorCodeUnavailable, "service: read response", err)
	}
	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeUnavailable,
			fmt.Sprintf("service: torchserve status=%d, body=%s", resp.StatusCode, bodyBytes))
	case resp.StatusCode != http.StatusOK:
		return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeInternalError,
			fmt.Sprintf("service: torchserve status=%d, body=%s", resp.StatusCode, bodyBytes))
	}

	out, err := parseTorchServe(bodyBytes)
	if err != nil {
		return nil, err
	}
	if out.ModelVersion == "" {
		out.ModelVersion = c.ModelVersion
	}
	return out, nil
}

// parseTorchServe 兼容多种 Handler 输出格式。
func parseTorchServe(body []byte) (*core.PredictResponse, error) {
	var scores []float64
	if err := json.Unmarshal(body, &scores); err == nil {
		return &core.PredictResponse{Scores: scores}, nil
	}

	var obj torchServeObject
	if err := json.Unmarshal(body, &obj); err == nil {
		out := &core.PredictResponse{Labels: obj.Labels, ModelVersion: obj.ModelVersion}
		switch {
		case len(obj.Scores) > 0:
			out.Scores = obj.Scores
		case len(obj.Predictions) > 0:
			out.Scores = obj.Predictions
		case obj.Prediction != nil:
			out.Scores = []float64{*obj.Prediction}
		}
		if len(out.Scores) > 0 {
			return out, nil
		}
	}

	var single float64
	if err := json.Unmarshal(body, &single); err == nil {
		return &core.PredictResponse{Scores: []float64{single}}, nil
	}
	return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeInternalError,
		fmt.Sprintf("service: unable to parse response: %s", body))
}

// addAuth 添加认证信息到 HTTP 请求
func (c *TorchServeClient) addAuth(req *http.Request) {
	if c.Auth == nil {
		return
	}
	switch c.Auth.Type {
	case "basic":
		req.SetBasicAuth(c.Auth.Username, c.Auth.Password)
	case "bearer":
		req.Header.Set("Authorization", "Bearer "+c.Auth.Token)
	case "api_key":
		req.Header.Set("X-API-Key", c.Auth.APIKey)
	}
}

// Health 健康检查（GET /ping）
func (c *TorchServeClient) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint+"/ping", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.addAuth(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return core.WrapDomainError(core.ModuleService, core.ErrorCodeUnavailable, "service: health check failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return core.NewDomainError(core.ModuleService, core.ErrorCodeUnavailable,
			fmt.Sprintf("service: health check status=%d, body=%s", resp.StatusCode, bodyBytes))
	}
	return nil
}

// Close 释放空闲连接。
func (c *TorchServeClient) Close(context.Context) error {
	c.httpClient.CloseIdleConnections()
	return nil
}

var _ core.ModelService = (*TorchServeClient)(nil)
