package filter

import (
	"context"

	"github.com/rushteam/feedrank/core"
)

// DefaultUserBlockPrefix 是拉黑列表的默认 key 前缀。
const DefaultUserBlockPrefix = "feedrank:block"

// UserBlockFilter 过滤掉用户拉黑的作者发布的内容。
// 作者取自 item.Meta["author"]，没有作者信息的 item 放行。
type UserBlockFilter struct {
	// Store 用于从存储中读取用户拉黑的作者列表
	Store UserBlockStore

	// KeyPrefix 是 Store 中的 key 前缀，实际 key 为 {KeyPrefix}:{UserID}
	KeyPrefix string
}

// UserBlockStore 是用户拉黑存储接口。
type UserBlockStore interface {
	// GetUserBlocks 获取用户拉黑的作者 ID 列表
	GetUserBlocks(ctx context.Context, userID string, keyPrefix string) ([]string, error)
}

// NewUserBlockFilter 创建一个用户拉黑过滤器。
func NewUserBlockFilter(storeAdapter *StoreAdapter, keyPrefix string) *UserBlockFilter {
	f := &UserBlockFilter{KeyPrefix: keyPrefix}
	if storeAdapter != nil {
		f.Store = storeAdapter
	}
	return f
}

func (f *UserBlockFilter) Name() string {
	return "filter.user_block"
}

func (f *UserBlockFilter) ShouldFilter(
	ctx context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil || rctx == nil || rctx.UserID == "" || f.Store == nil {
		return false, nil
	}
	author := item.MetaString("author")
	if author == "" {
		return false, nil
	}

	keyPrefix := f.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = DefaultUserBlockPrefix
	}
	blocked, err := f.Store.GetUserBlocks(ctx, rctx.UserID, keyPrefix)
	if core.IsStoreNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return contains(blocked, author), nil
}
