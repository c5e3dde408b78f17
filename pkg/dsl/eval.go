package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/feedrank/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("item", cel.DynType),
			cel.Variable("label", cel.DynType),
			cel.Variable("rctx", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// Program 是编译好的 CEL 表达式，线程安全，可在多个请求间复用。
//
// 表达式语法（CEL 标准语法）：
//   - 基础：label.recall_source == "cf"
//   - 数值：item.score > 0.7
//   - Meta：item.meta.category == "travel"
//   - 逻辑：label.recall_source == "content" && item.score > 0.3
//   - 存在性：has(item.meta.author)
//   - 包含：label.recall_source.contains("cf")
type Program struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式。空表达式返回 nil Program，Match 恒为 true。
func Compile(expr string) (*Program, error) {
	if expr == "" {
		return nil, nil
	}
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("dsl: env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("dsl: compile %q: %w", expr, issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("dsl: program %q: %w", expr, err)
	}
	return &Program{expr: expr, prg: prg}, nil
}

// String 返回原始表达式。
func (p *Program) String() string {
	if p == nil {
		return ""
	}
	return p.expr
}

// Match 对单个物品求值，表达式必须返回 bool。
func (p *Program) Match(item *core.Item, rctx *core.RecommendContext) (bool, error) {
	if p == nil {
		return true, nil
	}
	out, _, err := p.prg.Eval(buildInput(item, rctx))
	if err != nil {
		return false, fmt.Errorf("dsl: eval %q: %w", p.expr, err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("dsl: expression %q must return bool, got %T", p.expr, out.Value())
	}
	return result, nil
}

// Eval 是单次求值的便捷封装，每次调用都会编译表达式。
// 热路径请使用 Compile + Program.Match。
type Eval struct {
	item *core.Item
	rctx *core.RecommendContext
}

func NewEval(item *core.Item, rctx *core.RecommendContext) *Eval {
	return &Eval{item: item, rctx: rctx}
}

// Evaluate 解析并执行表达式，返回布尔结果。
func (e *Eval) Evaluate(expr string) (bool, error) {
	prg, err := Compile(expr)
	if err != nil {
		return false, err
	}
	return prg.Match(e.item, e.rctx)
}

func buildInput(it *core.Item, rctx *core.RecommendContext) map[string]any {
	if it == nil {
		it = core.NewItem("")
	}
	if rctx == nil {
		rctx = &core.RecommendContext{}
	}

	labels := make(map[string]any, len(it.Labels))
	labelValues := make(map[string]any, len(it.Labels))
	for k, v := range it.Labels {
		labels[k] = map[string]any{"value": v.Value, "source": v.Source}
		labelValues[k] = v.Value
	}

	meta := it.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	features := it.Features
	if features == nil {
		features = map[string]float64{}
	}
	params := rctx.Params
	if params == nil {
		params = map[string]any{}
	}

	return map[string]any{
		"item": map[string]any{
			"id":       it.ID,
			"score":    it.Score,
			"features": features,
			"meta":     meta,
			"labels":   labels,
		},
		// label.xxx 直接访问 Value
		"label": labelValues,
		"rctx": map[string]any{
			"user_id": rctx.UserID,
			"scene":   rctx.Scene,
			"k":       rctx.K,
			"params":  params,
		},
	}
}
