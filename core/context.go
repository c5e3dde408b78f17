package core

import "github.com/rushteam/feedrank/pkg/utils"

// RecommendContext 承载一次推荐请求的用户/场景信息，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	// RequestID 用于日志串联
	RequestID string

	UserID string
	Scene  string // feed / explore / reels

	// UserText 是内容召回使用的兴趣文本（bio + interests），为空时内容召回不产出
	UserText string

	// K 是本次请求期望的结果数，<= 0 时各组件使用自身默认值
	K int

	// Labels 是用户级标签，可驱动整个 Pipeline 行为
	Labels map[string]utils.Label

	// Params 请求级参数，例如 now、scene 相关开关
	Params map[string]any
}

// NewRecommendContext 根据用户记录构建上下文。
func NewRecommendContext(user *User, k int) *RecommendContext {
	rctx := &RecommendContext{K: k}
	if user != nil {
		rctx.UserID = user.ID
		rctx.UserText = user.ProfileText()
	}
	return rctx
}

// PutLabel 写入用户级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取用户级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}

// TopK 返回请求的结果数，未设置时使用 def。
func (rctx *RecommendContext) TopK(def int) int {
	if rctx == nil || rctx.K <= 0 {
		return def
	}
	return rctx.K
}
