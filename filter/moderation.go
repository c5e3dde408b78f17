package filter

import (
	"context"

	"github.com/rushteam/feedrank/core"
	"github.com/rushteam/feedrank/moderation"
	"github.com/rushteam/feedrank/pkg/utils"
)

// ModerationFilter 审核候选内容的文本，建议动作为 block 的内容被过滤。
// 建议 review 的内容保留，并打上 moderation=review 标签。
type ModerationFilter struct {
	Moderator *moderation.Moderator

	// TextKey 是 item.Meta 中文本字段的 key，默认 "text"
	TextKey string
}

func (f *ModerationFilter) Name() string {
	return "filter.moderation"
}

func (f *ModerationFilter) ShouldFilter(
	ctx context.Context,
	_ *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if f.Moderator == nil || item == nil {
		return false, nil
	}
	key := f.TextKey
	if key == "" {
		key = "text"
	}
	text := item.MetaString(key)
	if text == "" {
		return false, nil
	}
	v := f.Moderator.ModerateContext(ctx, text)
	switch v.SuggestedAction {
	case moderation.ActionBlock:
		return true, nil
	case moderation.ActionReview:
		item.PutLabel("moderation", utils.Label{Value: string(v.SuggestedAction), Source: f.Name()})
	}
	return false, nil
}
