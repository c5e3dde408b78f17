package filter

import (
	"context"

	"github.com/rushteam/feedrank/core"
	"github.com/rushteam/feedrank/pkg/dsl"
)

// ExprFilter 用 CEL 表达式描述过滤规则，表达式为 true 的 item 被过滤。
//
//	item.meta.category == "spam"
//	item.score < 0.05 && label.recall_source == "content"
type ExprFilter struct {
	program *dsl.Program
}

// NewExprFilter 编译表达式。表达式为空时返回错误。
func NewExprFilter(expr string) (*ExprFilter, error) {
	if expr == "" {
		return nil, core.NewDomainError(core.ModuleConfig, core.ErrorCodeInvalidInput, "filter: empty expression")
	}
	prg, err := dsl.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &ExprFilter{program: prg}, nil
}

func (f *ExprFilter) Name() string {
	return "filter.expr"
}

// Expr 返回原始表达式。
func (f *ExprFilter) Expr() string {
	return f.program.String()
}

func (f *ExprFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return false, nil
	}
	return f.program.Match(item, rctx)
}
