package core

import (
	"strings"
	"time"
)

// Action 是用户对内容的行为类型。
type Action string

const (
	ActionView    Action = "view"
	ActionLike    Action = "like"
	ActionComment Action = "comment"
	ActionShare   Action = "share"
	ActionSave    Action = "save"
)

// ItemKind 是内容类型。
type ItemKind string

const (
	KindPost ItemKind = "post"
	KindReel ItemKind = "reel"
)

// ActionWeights 是行为 → 交互权重的映射，可通过配置覆盖。
type ActionWeights map[Action]float64

// DefaultActionWeights 返回默认权重：view < like < comment < save < share。
func DefaultActionWeights() ActionWeights {
	return ActionWeights{
		ActionView:    0.1,
		ActionLike:    0.3,
		ActionComment: 0.5,
		ActionSave:    0.6,
		ActionShare:   0.7,
	}
}

// Weight 返回行为权重；未知行为按 view 处理。
func (w ActionWeights) Weight(a Action) float64 {
	if v, ok := w[a]; ok {
		return v
	}
	if v, ok := w[ActionView]; ok {
		return v
	}
	return 0.1
}

// Interaction 是一条不可变的交互记录（只追加日志）。
type Interaction struct {
	UserID    string    `json:"user_id"`
	ItemID    string    `json:"item_id"`
	Kind      ItemKind  `json:"item_kind"`
	Action    Action    `json:"action"`
	Weight    float64   `json:"weight"`
	Timestamp time.Time `json:"timestamp"`
}

// NewInteraction 按行为权重表构造交互记录。
func NewInteraction(userID, itemID string, kind ItemKind, action Action, weights ActionWeights, ts time.Time) Interaction {
	return Interaction{
		UserID:    userID,
		ItemID:    itemID,
		Kind:      kind,
		Action:    action,
		Weight:    weights.Weight(action),
		Timestamp: ts,
	}
}

// Post 是帖子/短视频的统一记录（合并了原先两套不兼容的模型）。
type Post struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Kind      ItemKind  `json:"kind"`
	Text      string    `json:"text,omitempty"`
	Caption   string    `json:"caption"`
	Hashtags  []string  `json:"hashtags,omitempty"`
	Location  string    `json:"location,omitempty"`
	Category  string    `json:"category,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Likes     int       `json:"likes"`
	Comments  int       `json:"comments"`
	Shares    int       `json:"shares"`
	Views     int       `json:"views"`
}

// ContentText 返回用于文本特征的内容：caption + hashtags + location；三者都为空时退化为 Text。
func (p *Post) ContentText() string {
	parts := make([]string, 0, 2+len(p.Hashtags))
	if p.Caption != "" {
		parts = append(parts, p.Caption)
	}
	for _, tag := range p.Hashtags {
		parts = append(parts, strings.TrimPrefix(tag, "#"))
	}
	if p.Location != "" {
		parts = append(parts, p.Location)
	}
	if len(parts) == 0 {
		return p.Text
	}
	return strings.Join(parts, " ")
}

// Engagement 返回原始互动总量（不含浏览）。
func (p *Post) Engagement() (likes, comments, shares int) {
	return p.Likes, p.Comments, p.Shares
}

// User 是用户画像的静态部分。
type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Bio            string    `json:"bio"`
	Interests      []string  `json:"interests,omitempty"`
	FollowersCount int       `json:"followers_count"`
	FollowingCount int       `json:"following_count"`
	PostsCount     int       `json:"posts_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// ProfileText 返回内容推荐使用的用户兴趣文本：bio + interests。
func (u *User) ProfileText() string {
	if len(u.Interests) == 0 {
		return u.Bio
	}
	return strings.TrimSpace(u.Bio + " " + strings.Join(u.Interests, " "))
}
