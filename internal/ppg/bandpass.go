package ppg

import "math"

// 默认截止频率：0.7Hz ≈ 42 BPM，3.5Hz ≈ 210 BPM
const (
	DefaultSampleRate = 30.0
	DefaultLowCutoff  = 0.7
	DefaultHighCutoff = 3.5
)

// BandpassFilter 两级一阶 RC 滤波：先高通去基线，再低通平滑
type BandpassFilter struct {
	alphaLow  float64
	alphaHigh float64
	lastLow   float64
	lastHigh  float64
}

// NewBandpassFilter 创建带通滤波器，非正参数使用默认值
func NewBandpassFilter(fs, fLow, fHigh float64) *BandpassFilter {
	if fs <= 0 {
		fs = DefaultSampleRate
	}
	if fLow <= 0 {
		fLow = DefaultLowCutoff
	}
	if fHigh <= 0 {
		fHigh = DefaultHighCutoff
	}
	dt := 1 / fs
	return &BandpassFilter{
		alphaLow:  smoothingFactor(dt, fLow),
		alphaHigh: smoothingFactor(dt, fHigh),
	}
}

func smoothingFactor(dt, f float64) float64 {
	rc := 2 * math.Pi * dt * f
	return rc / (rc + 1)
}

// Process 过滤一个采样
func (b *BandpassFilter) Process(value float64) float64 {
	highPassed := value - b.lastLow
	b.lastLow = value*b.alphaLow + b.lastLow*(1-b.alphaLow)

	b.lastHigh = highPassed*b.alphaHigh + b.lastHigh*(1-b.alphaHigh)
	return b.lastHigh
}

// Reset 清零两级状态
func (b *BandpassFilter) Reset() {
	b.lastLow = 0
	b.lastHigh = 0
}
