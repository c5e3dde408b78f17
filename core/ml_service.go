package core

import "context"

// ModelService 是外部模型服务的领域接口（情感分析、图像/视频审核等）。
//
// 定义在领域层（core），由基础设施层（service）实现：
//   - service.TorchServeClient：TorchServe REST 推理服务
//   - service.BreakerClient：带熔断的包装
//
// 外部模型不可用时返回 ErrServiceUnavailable，调用方按文档降级。
type ModelService interface {
	// Predict 批量预测
	Predict(ctx context.Context, req *PredictRequest) (*PredictResponse, error)

	// Health 健康检查
	Health(ctx context.Context) error

	// Close 关闭连接
	Close(ctx context.Context) error
}

// PredictRequest 预测请求
type PredictRequest struct {
	// ModelName 模型名称（可选，如果服务支持多模型）
	ModelName string

	// Texts 文本输入（情感分析）
	Texts []string

	// URLs 媒体地址（图像/视频审核）
	URLs []string

	// Params 额外参数（可选）
	Params map[string]any
}

// Len 返回输入实例数。
func (r *PredictRequest) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Texts) + len(r.URLs)
}

// PredictResponse 预测响应
type PredictResponse struct {
	// Scores 与请求实例一一对应的分数
	Scores []float64

	// Labels 与请求实例一一对应的标签（可选，例如媒体审核的违规类型）
	Labels [][]string

	// ModelVersion 模型版本（如果服务返回）
	ModelVersion string
}
