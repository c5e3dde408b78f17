package cluster

import (
	"math"
	"math/rand"
)

// KMeans 对 points 做 k-means 聚类：k-means++ 初始化（固定种子），
// Lloyd 迭代直到分配不再变化或达到 maxIter。
//
// 返回的标签按首次出现顺序重新编号（第一个点总是 0），结果只取决于输入和种子。
func KMeans(points [][]float64, k int, seed int64, maxIter int) []int {
	n := len(points)
	if n == 0 || k <= 0 {
		return make([]int, n)
	}
	if k > n {
		k = n
	}
	rng := rand.New(rand.NewSource(seed))
	centers := initPlusPlus(points, k, rng)

	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}
	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, p := range points {
			best := nearest(p, centers)
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}
		recompute(points, labels, centers)
	}
	return relabel(labels)
}

func initPlusPlus(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centers := make([][]float64, 0, k)
	centers = append(centers, clone(points[rng.Intn(len(points))]))

	dist := make([]float64, len(points))
	for len(centers) < k {
		var total float64
		for i, p := range points {
			d := sqDist(p, centers[nearest(p, centers)])
			dist[i] = d
			total += d
		}
		if total == 0 {
			// 剩余点都与已有中心重合
			centers = append(centers, clone(points[rng.Intn(len(points))]))
			continue
		}
		r := rng.Float64() * total
		pick := len(points) - 1
		for i, d := range dist {
			r -= d
			if r <= 0 && d > 0 {
				pick = i
				break
			}
		}
		centers = append(centers, clone(points[pick]))
	}
	return centers
}

func nearest(p []float64, centers [][]float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, center := range centers {
		if d := sqDist(p, center); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// recompute 把每个中心移到其成员均值；空簇保持原中心。
func recompute(points [][]float64, labels []int, centers [][]float64) {
	dim := len(centers[0])
	sums := make([][]float64, len(centers))
	counts := make([]int, len(centers))
	for c := range sums {
		sums[c] = make([]float64, dim)
	}
	for i, p := range points {
		c := labels[i]
		counts[c]++
		for d := range p {
			sums[c][d] += p[d]
		}
	}
	for c := range centers {
		if counts[c] == 0 {
			continue
		}
		for d := range centers[c] {
			centers[c][d] = sums[c][d] / float64(counts[c])
		}
	}
}

func relabel(labels []int) []int {
	mapping := make(map[int]int)
	out := make([]int, len(labels))
	for i, l := range labels {
		m, ok := mapping[l]
		if !ok {
			m = len(mapping)
			mapping[l] = m
		}
		out[i] = m
	}
	return out
}

func sqDist(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

func clone(p []float64) []float64 { return append([]float64(nil), p...) }
