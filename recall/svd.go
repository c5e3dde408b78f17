package recall

import (
	"gonum.org/v1/gonum/mat"
)

// svdRelativeCutoff 小于 最大奇异值 × cutoff 的方向视为零，丢弃。
const svdRelativeCutoff = 1e-12

// TruncatedSVD 将 rows（n × m）降维到 rank 维隐空间，返回 U_k·Σ_k（n × k）。
//
// 奇异值为零（或数值上为零）的方向被丢弃，因此实际维度可能小于 rank。
// 奇异向量的符号不影响行之间的余弦相似度，下游只使用相似度。
func TruncatedSVD(rows [][]float64, rank int) [][]float64 {
	n := len(rows)
	latent := make([][]float64, n)
	if n == 0 || rank <= 0 || len(rows[0]) == 0 {
		return latent
	}
	m := len(rows[0])

	a := mat.NewDense(n, m, nil)
	for i, row := range rows {
		a.SetRow(i, row)
	}
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThinU) {
		return latent
	}
	values := svd.Values(nil)
	var u mat.Dense
	svd.UTo(&u)

	keep := 0
	if len(values) > 0 {
		cutoff := values[0] * svdRelativeCutoff
		for keep < len(values) && keep < rank && values[keep] > cutoff {
			keep++
		}
	}
	for i := range latent {
		latent[i] = make([]float64, keep)
		for d := 0; d < keep; d++ {
			latent[i][d] = u.At(i, d) * values[d]
		}
	}
	return latent
}
