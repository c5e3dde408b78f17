package feature

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ZScoreEpsilon 加在标准差上，避免常数列除零。
const ZScoreEpsilon = 1e-8

// ZScoreNormalizer Z-score 标准化（Standardization）
// 公式: z = (x - μ) / (σ + ε)
// 特点: 每列均值变为 0，标准差约为 1；常数列变为全 0。
type ZScoreNormalizer struct {
	Mean []float64 // 列均值
	Std  []float64 // 列总体标准差
}

// FitZScore 按列拟合均值与总体标准差。行宽不一致时返回 core.ErrShapeMismatch。
func FitZScore(rows [][]float64) (*ZScoreNormalizer, error) {
	if len(rows) == 0 {
		return &ZScoreNormalizer{}, nil
	}
	width := len(rows[0])
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("feature: row %d has width %d, want %d: %w", i, len(row), width, errShapeMismatch)
		}
	}
	norm := &ZScoreNormalizer{Mean: make([]float64, width), Std: make([]float64, width)}
	if width == 0 {
		return norm, nil
	}
	data := mat.NewDense(len(rows), width, nil)
	for i, row := range rows {
		data.SetRow(i, row)
	}
	col := make([]float64, len(rows))
	for j := 0; j < width; j++ {
		mat.Col(col, j, data)
		norm.Mean[j], norm.Std[j] = stat.PopMeanStdDev(col, nil)
	}
	return norm, nil
}

// Normalize 标准化单行，返回新切片。
func (n *ZScoreNormalizer) Normalize(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		if j >= len(n.Mean) {
			out[j] = v
			continue
		}
		out[j] = (v - n.Mean[j]) / (n.Std[j] + ZScoreEpsilon)
	}
	return out
}

// NormalizeAll 标准化全部行。
func (n *ZScoreNormalizer) NormalizeAll(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = n.Normalize(row)
	}
	return out
}

// StandardizeColumns 是 FitZScore + NormalizeAll 的便捷封装。
func StandardizeColumns(rows [][]float64) ([][]float64, error) {
	n, err := FitZScore(rows)
	if err != nil {
		return nil, err
	}
	return n.NormalizeAll(rows), nil
}
