package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rushteam/feedrank/core"
)

// Pipeline 把推荐逻辑拆成可组合的 Node 链。
type Pipeline struct {
	Nodes []Node

	// OnNode 每个 Node 执行完成后的回调（可选），用于打点
	OnNode func(node Node, in, out int, elapsed time.Duration)
}

func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			return nil, fmt.Errorf("pipeline: node %s: %w", node.Name(), err)
		}
		if p.OnNode != nil {
			p.OnNode(node, len(cur), len(next), time.Since(start))
		}
		cur = next
	}
	return cur, nil
}
