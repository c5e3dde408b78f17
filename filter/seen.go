package filter

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/rushteam/feedrank/core"
)

// 布隆过滤器默认参数。每个用户的过滤器至少按 DefaultSeenCapacity 个物品、1% 误判率分配，
// 约 9.6k bit（1.2KB）；Reset 按用户实际交互数的 2 倍重新分配，活跃用户的过滤器随之变大。
const (
	DefaultSeenCapacity          uint    = 1000
	DefaultSeenFalsePositiveRate float64 = 0.01
	DefaultSeenKeyPrefix                 = "feedrank:seen"
)

// SeenIndex 按用户维护已交互物品的布隆过滤器。
// Seen 返回 true 表示可能交互过（存在误判），false 表示一定没有。
// 并发安全。
type SeenIndex struct {
	capacity uint
	fpRate   float64

	mu      sync.RWMutex
	filters map[string]*bloom.BloomFilter
	// loaded 记录已经尝试过从存储加载的用户
	loaded map[string]struct{}
	// Mark 之后的写入同时记到 journal，Reset 时重放
	journaling bool
	journal    []core.Interaction
}

// NewSeenIndex 创建索引；capacity 为 0 或 fpRate 不在 (0,1) 时使用默认值。
func NewSeenIndex(capacity uint, fpRate float64) *SeenIndex {
	if capacity == 0 {
		capacity = DefaultSeenCapacity
	}
	if fpRate <= 0 || fpRate >= 1 {
		fpRate = DefaultSeenFalsePositiveRate
	}
	return &SeenIndex{
		capacity: capacity,
		fpRate:   fpRate,
		filters:  make(map[string]*bloom.BloomFilter),
		loaded:   make(map[string]struct{}),
	}
}

func (s *SeenIndex) sized(items int) *bloom.BloomFilter {
	n := uint(2 * items)
	if n < s.capacity {
		n = s.capacity
	}
	return bloom.NewWithEstimates(n, s.fpRate)
}

// Add 记录用户交互过的物品。
func (s *SeenIndex) Add(userID string, itemIDs ...string) {
	if userID == "" || len(itemIDs) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	bf, ok := s.filters[userID]
	if !ok {
		bf = s.sized(0)
		s.filters[userID] = bf
	}
	for _, id := range itemIDs {
		bf.AddString(id)
		if s.journaling {
			s.journal = append(s.journal, core.Interaction{UserID: userID, ItemID: id})
		}
	}
}

// Mark 标记重建开始：此后的 Add 在 Reset 时重放，不会因读取日志与替换索引之间的写入而丢失。
func (s *SeenIndex) Mark() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journaling = true
	s.journal = nil
}

// Unmark 放弃本次重建，停止记录 journal。
func (s *SeenIndex) Unmark() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journaling = false
	s.journal = nil
}

// Reset 用完整的交互日志重建索引：每个用户的过滤器按其交互数重新分配，
// 日志中没有的用户被释放。Mark 之后的写入随后重放。
func (s *SeenIndex) Reset(log []core.Interaction) {
	counts := make(map[string]int)
	for _, in := range log {
		if in.UserID != "" {
			counts[in.UserID]++
		}
	}
	filters := make(map[string]*bloom.BloomFilter, len(counts))
	for user, n := range counts {
		filters[user] = s.sized(n)
	}
	for _, in := range log {
		if bf, ok := filters[in.UserID]; ok {
			bf.AddString(in.ItemID)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, in := range s.journal {
		bf, ok := filters[in.UserID]
		if !ok {
			bf = s.sized(0)
			filters[in.UserID] = bf
		}
		bf.AddString(in.ItemID)
	}
	s.journaling = false
	s.journal = nil
	s.filters = filters
	s.loaded = make(map[string]struct{}, len(filters))
	for user := range filters {
		s.loaded[user] = struct{}{}
	}
}

// Seen 判断用户是否可能交互过该物品。
func (s *SeenIndex) Seen(userID, itemID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bf, ok := s.filters[userID]
	return ok && bf.TestString(itemID)
}

// Users 返回索引中的用户数。
func (s *SeenIndex) Users() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.filters)
}

// SizeBits 返回所有过滤器占用的位数。
func (s *SeenIndex) SizeBits() uint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total uint
	for _, bf := range s.filters {
		total += bf.Cap()
	}
	return total
}

func seenKey(prefix, userID string) string {
	if prefix == "" {
		prefix = DefaultSeenKeyPrefix
	}
	return prefix + ":" + userID
}

// Save 把用户的布隆过滤器序列化写入 store，key 为 {prefix}:{userID}。
// 用户没有记录时不写入。
func (s *SeenIndex) Save(ctx context.Context, store core.Store, prefix, userID string, ttl ...int) error {
	s.mu.RLock()
	bf, ok := s.filters[userID]
	var buf bytes.Buffer
	var err error
	if ok {
		_, err = bf.WriteTo(&buf)
	}
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	if err != nil {
		return fmt.Errorf("seen: serialize %s: %w", userID, err)
	}
	if err := store.Set(ctx, seenKey(prefix, userID), buf.Bytes(), ttl...); err != nil {
		return fmt.Errorf("seen: save %s: %w", userID, err)
	}
	return nil
}

// SaveAll 保存索引中的全部用户，返回写入的用户数。
func (s *SeenIndex) SaveAll(ctx context.Context, store core.Store, prefix string) (int, error) {
	s.mu.RLock()
	users := make([]string, 0, len(s.filters))
	for user := range s.filters {
		users = append(users, user)
	}
	s.mu.RUnlock()
	for i, user := range users {
		if err := s.Save(ctx, store, prefix, user); err != nil {
			return i, err
		}
	}
	return len(users), nil
}

// Load 从 store 读取用户的布隆过滤器；key 不存在时保持不变。
// 内存中已有同规格的过滤器时两者合并，规格不同时保留内存中的版本。
func (s *SeenIndex) Load(ctx context.Context, store core.Store, prefix, userID string) error {
	data, err := store.Get(ctx, seenKey(prefix, userID))
	if core.IsStoreNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("seen: load %s: %w", userID, err)
	}
	bf := &bloom.BloomFilter{}
	if _, err := bf.ReadFrom(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("seen: deserialize %s: %w", userID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.filters[userID]; ok {
		if err := bf.Merge(current); err != nil {
			return nil
		}
	}
	s.filters[userID] = bf
	return nil
}

// Ensure 在第一次遇到用户时从 store 加载其过滤器，之后的调用直接返回。
func (s *SeenIndex) Ensure(ctx context.Context, store core.Store, prefix, userID string) error {
	if userID == "" {
		return nil
	}
	s.mu.Lock()
	if _, ok := s.loaded[userID]; ok {
		s.mu.Unlock()
		return nil
	}
	s.loaded[userID] = struct{}{}
	s.mu.Unlock()

	if err := s.Load(ctx, store, prefix, userID); err != nil {
		s.mu.Lock()
		delete(s.loaded, userID)
		s.mu.Unlock()
		return err
	}
	return nil
}

// SeenFilter 过滤掉用户已经交互过的物品。
type SeenFilter struct {
	Index *SeenIndex
}

func (f *SeenFilter) Name() string {
	return "filter.seen"
}

func (f *SeenFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if f.Index == nil || item == nil || rctx == nil || rctx.UserID == "" {
		return false, nil
	}
	return f.Index.Seen(rctx.UserID, item.ID), nil
}
