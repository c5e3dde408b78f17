package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rushteam/feedrank/core"
	"github.com/rushteam/feedrank/filter"
	"github.com/rushteam/feedrank/trend"
)

// AddUsers 写入或更新用户画像。首次出现的顺序即聚类与矩阵构建时的顺序。
// 新的画像在下一次 Rebuild 后生效。
func (e *Engine) AddUsers(users ...core.User) {
	e.catalogMu.Lock()
	defer e.catalogMu.Unlock()
	for _, u := range users {
		if u.ID == "" {
			continue
		}
		if _, ok := e.users[u.ID]; !ok {
			e.userOrder = append(e.userOrder, u.ID)
		}
		e.users[u.ID] = u
	}
}

// AddPosts 写入或更新帖子/短视频。首次出现的顺序即内容语料顺序。
func (e *Engine) AddPosts(posts ...core.Post) {
	e.catalogMu.Lock()
	defer e.catalogMu.Unlock()
	for _, p := range posts {
		if p.ID == "" {
			continue
		}
		if _, ok := e.posts[p.ID]; !ok {
			e.postOrder = append(e.postOrder, p.ID)
		}
		e.posts[p.ID] = p
	}
}

// User 按 ID 查找用户画像。
func (e *Engine) User(id string) (core.User, bool) {
	e.catalogMu.RLock()
	defer e.catalogMu.RUnlock()
	u, ok := e.users[id]
	return u, ok
}

// Post 按 ID 查找帖子。
func (e *Engine) Post(id string) (core.Post, bool) {
	e.catalogMu.RLock()
	defer e.catalogMu.RUnlock()
	p, ok := e.posts[id]
	return p, ok
}

func (e *Engine) catalog() ([]core.User, []core.Post) {
	e.catalogMu.RLock()
	defer e.catalogMu.RUnlock()
	users := make([]core.User, len(e.userOrder))
	for i, id := range e.userOrder {
		users[i] = e.users[id]
	}
	posts := make([]core.Post, len(e.postOrder))
	for i, id := range e.postOrder {
		posts[i] = e.posts[id]
	}
	return users, posts
}

// Record 追加一条交互：
//   - 写入交互日志（Weight 为 0 时按配置的行为权重补齐，Timestamp 为零值时取当前时间）
//   - 记入已交互索引，供推荐时过滤
//   - 帖子已知时，按权重累加用户对其类目的偏好分，并给帖子的话题标签/类目加热度
//
// 交互矩阵在下一次 Rebuild 后才包含这条记录。
func (e *Engine) Record(ctx context.Context, in core.Interaction) error {
	if in.UserID == "" || in.ItemID == "" {
		return core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput, "engine: interaction requires user_id and item_id")
	}
	if in.Weight < 0 || math.IsNaN(in.Weight) || math.IsInf(in.Weight, 0) {
		return core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput, fmt.Sprintf("engine: invalid interaction weight %v", in.Weight))
	}
	if in.Weight == 0 {
		in.Weight = e.weights.Weight(in.Action)
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = e.now()
	}
	post, known := e.Post(in.ItemID)
	if in.Kind == "" {
		in.Kind = core.KindPost
		if known && post.Kind != "" {
			in.Kind = post.Kind
		}
	}

	if err := e.interactions.Append(ctx, in); err != nil {
		return fmt.Errorf("engine: append interaction: %w", err)
	}
	e.ensureSeen(ctx, in.UserID)
	e.seen.Add(in.UserID, in.ItemID)
	if !known {
		return nil
	}

	if post.Category != "" {
		unlock := e.prefLocks.lock(in.UserID)
		_, err := e.prefs.Add(ctx, in.UserID, post.Category, in.Weight)
		unlock()
		if err != nil {
			return fmt.Errorf("engine: preference: %w", err)
		}
	}

	keys := trend.PostKeys(&post)
	e.trendMu.Lock()
	for _, k := range keys {
		e.trends.Record(k, in.Weight, in.Timestamp)
	}
	e.trendMu.Unlock()
	return nil
}

// RecordTrend 直接给话题标签/类目加热度（例如发帖时按标签计一次提及）。
func (e *Engine) RecordTrend(key string, delta float64, now time.Time) trend.Entry {
	e.trendMu.Lock()
	defer e.trendMu.Unlock()
	return e.trends.Record(trend.NormalizeTag(key), delta, now)
}

// ensureSeen 在第一次遇到用户时加载其已保存的已交互过滤器，失败只记日志。
func (e *Engine) ensureSeen(ctx context.Context, userID string) {
	if err := e.seen.Ensure(ctx, e.store, filter.DefaultSeenKeyPrefix, userID); err != nil {
		e.log.Warn().Err(err).Str("user_id", userID).Msg("seen filter unreadable")
	}
}
