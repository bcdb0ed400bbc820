// Package ppg 把每帧的原始亮度转换为干净的脉搏波采样
package ppg

import "gonum.org/v1/gonum/floats"

// DefaultBaselineWindow 基线窗口（约 5 秒 @ 30fps）
const DefaultBaselineWindow = 150

// Normalizer 去除单通道亮度的慢基线漂移
// 输出为相对交流分量 (value - baseline) / baseline
type Normalizer struct {
	window []float64
	size   int
}

// NewNormalizer 创建归一化器，windowSize <= 0 时使用默认值
func NewNormalizer(windowSize int) *Normalizer {
	if windowSize <= 0 {
		windowSize = DefaultBaselineWindow
	}
	return &Normalizer{
		window: make([]float64, 0, windowSize),
		size:   windowSize,
	}
}

// Process 写入一个采样并返回归一化值
func (n *Normalizer) Process(value float64) float64 {
	if len(n.window) == n.size {
		copy(n.window, n.window[1:])
		n.window = n.window[:n.size-1]
	}
	n.window = append(n.window, value)

	baseline := floats.Sum(n.window) / float64(len(n.window))
	if baseline == 0 {
		return 0
	}
	return (value - baseline) / baseline
}

// Reset 清空窗口（新的测量会话）
func (n *Normalizer) Reset() {
	n.window = n.window[:0]
}
