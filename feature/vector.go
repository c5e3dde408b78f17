package feature

import (
	"math"
	"sort"
)

// SparseVector 是按 Index 升序存储的稀疏向量。
type SparseVector struct {
	Indices []int     `json:"indices"`
	Values  []float64 `json:"values"`
}

// NewSparseVector 由 map 构建稀疏向量，丢弃 0 值。
func NewSparseVector(m map[int]float64) SparseVector {
	idx := make([]int, 0, len(m))
	for i, v := range m {
		if v != 0 {
			idx = append(idx, i)
		}
	}
	sort.Ints(idx)
	vals := make([]float64, len(idx))
	for n, i := range idx {
		vals[n] = m[i]
	}
	return SparseVector{Indices: idx, Values: vals}
}

// Len 返回非零元素个数。
func (v SparseVector) Len() int { return len(v.Indices) }

// Norm 返回 L2 范数。
func (v SparseVector) Norm() float64 {
	var s float64
	for _, x := range v.Values {
		s += x * x
	}
	return math.Sqrt(s)
}

// Dot 计算两个稀疏向量的内积。
func (v SparseVector) Dot(o SparseVector) float64 {
	var s float64
	i, j := 0, 0
	for i < len(v.Indices) && j < len(o.Indices) {
		switch {
		case v.Indices[i] == o.Indices[j]:
			s += v.Values[i] * o.Values[j]
			i++
			j++
		case v.Indices[i] < o.Indices[j]:
			i++
		default:
			j++
		}
	}
	return s
}

// Cosine 计算稀疏向量余弦相似度。零向量或 NaN/Inf 结果视为 0。
func Cosine(a, b SparseVector) float64 {
	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 0
	}
	return finite(a.Dot(b) / (na * nb))
}

// CosineDense 计算稠密向量余弦相似度，长度不一致时按较短者计算。
func CosineDense(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return finite(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

func finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}
