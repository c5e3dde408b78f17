// Package filter 在召回之后剔除不应出现在结果里的候选：
// 黑名单、用户拉黑的作者、已交互过的内容、审核拦截的内容以及 CEL 规则命中的内容。
package filter

import (
	"context"

	"github.com/rushteam/feedrank/core"
)

// Filter 是过滤器的抽象接口，用于判断一个 Item 是否应该被过滤掉。
// 返回 true 表示应该过滤（移除），false 表示保留。
type Filter interface {
	// Name 返回过滤器名称
	Name() string

	// ShouldFilter 判断 item 是否应该被过滤
	ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error)
}
