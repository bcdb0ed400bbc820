package trainer

import (
	"math"
	"math/rand/v2"
)

// SyntheticExamples 冷启动预热样本：带噪声的正弦信号 + 正常范围内的随机标签
func SyntheticExamples(n, length int, labelMin, labelMax float64, rng *rand.Rand) ([][]float64, []float64) {
	xs := make([][]float64, n)
	ys := make([]float64, n)
	for i := range xs {
		x := make([]float64, length)
		for j := range x {
			x[j] = math.Sin(float64(j)*0.1)*0.5 + 0.5 + rng.Float64()*0.1
		}
		xs[i] = x
		ys[i] = labelMin + rng.Float64()*(labelMax-labelMin)
	}
	return xs, ys
}
