package feature

import (
	"fmt"

	"github.com/rushteam/feedrank/core"
)

var errShapeMismatch = core.ErrShapeMismatch

// InteractionMatrix 是用户 × 物品的稠密交互矩阵。
//
// 行/列编号只在一次构建内有效，重建后不稳定；
// Users/UserIndex 与 Items/ItemIndex 总是一起构建，不做局部更新。
type InteractionMatrix struct {
	Users     []string
	Items     []string
	UserIndex map[string]int
	ItemIndex map[string]int
	Rows      [][]float64
}

// BuildInteractionMatrix 按首次出现顺序为用户和物品分配 0 起始编号。
//
// 同一 (user, item) 的多条交互按日志顺序覆盖：矩阵单元格保存最后一条的权重，不累加。
// 交互权重为 0 时按行为默认权重补齐。无交互时返回空矩阵。
func BuildInteractionMatrix(interactions []core.Interaction, weights core.ActionWeights) *InteractionMatrix {
	if weights == nil {
		weights = core.DefaultActionWeights()
	}
	m := &InteractionMatrix{
		UserIndex: make(map[string]int),
		ItemIndex: make(map[string]int),
	}
	for _, in := range interactions {
		if _, ok := m.UserIndex[in.UserID]; !ok {
			m.UserIndex[in.UserID] = len(m.Users)
			m.Users = append(m.Users, in.UserID)
		}
		if _, ok := m.ItemIndex[in.ItemID]; !ok {
			m.ItemIndex[in.ItemID] = len(m.Items)
			m.Items = append(m.Items, in.ItemID)
		}
	}

	m.Rows = make([][]float64, len(m.Users))
	for i := range m.Rows {
		m.Rows[i] = make([]float64, len(m.Items))
	}
	for _, in := range interactions {
		w := in.Weight
		if w == 0 {
			w = weights.Weight(in.Action)
		}
		m.Rows[m.UserIndex[in.UserID]][m.ItemIndex[in.ItemID]] = w
	}
	return m
}

// NewInteractionMatrix 由调用方预先构建的索引和行数据组装矩阵。
// 行数与用户数、列数与物品数不一致或 ID 重复时返回 core.ErrShapeMismatch。
func NewInteractionMatrix(users, items []string, rows [][]float64) (*InteractionMatrix, error) {
	if len(rows) != len(users) {
		return nil, fmt.Errorf("feature: %d rows for %d users: %w", len(rows), len(users), errShapeMismatch)
	}
	m := &InteractionMatrix{
		Users:     append([]string(nil), users...),
		Items:     append([]string(nil), items...),
		UserIndex: make(map[string]int, len(users)),
		ItemIndex: make(map[string]int, len(items)),
		Rows:      make([][]float64, len(rows)),
	}
	for i, u := range users {
		if _, dup := m.UserIndex[u]; dup {
			return nil, fmt.Errorf("feature: duplicate user %q: %w", u, errShapeMismatch)
		}
		m.UserIndex[u] = i
	}
	for j, it := range items {
		if _, dup := m.ItemIndex[it]; dup {
			return nil, fmt.Errorf("feature: duplicate item %q: %w", it, errShapeMismatch)
		}
		m.ItemIndex[it] = j
	}
	for i, row := range rows {
		if len(row) != len(items) {
			return nil, fmt.Errorf("feature: row %d has %d columns for %d items: %w", i, len(row), len(items), errShapeMismatch)
		}
		m.Rows[i] = append([]float64(nil), row...)
	}
	return m, nil
}

// NumUsers 返回用户数。
func (m *InteractionMatrix) NumUsers() int {
	if m == nil {
		return 0
	}
	return len(m.Users)
}

// NumItems 返回物品数。
func (m *InteractionMatrix) NumItems() int {
	if m == nil {
		return 0
	}
	return len(m.Items)
}

// Row 返回用户所在行，用户不存在时 ok=false。
func (m *InteractionMatrix) Row(userID string) ([]float64, bool) {
	if m == nil {
		return nil, false
	}
	i, ok := m.UserIndex[userID]
	if !ok {
		return nil, false
	}
	return m.Rows[i], true
}

// Weight 返回 (user, item) 的权重，任一不存在时为 0。
func (m *InteractionMatrix) Weight(userID, itemID string) float64 {
	row, ok := m.Row(userID)
	if !ok {
		return 0
	}
	j, ok := m.ItemIndex[itemID]
	if !ok {
		return 0
	}
	return row[j]
}

// IsZero 判断矩阵是否为空或全 0。
func (m *InteractionMatrix) IsZero() bool {
	if m == nil {
		return true
	}
	for _, row := range m.Rows {
		for _, v := range row {
			if v != 0 {
				return false
			}
		}
	}
	return true
}
