// Package heartrate 从脉搏波缓冲区估计心率和置信度
package heartrate

import (
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultSampleRate 默认帧率
const DefaultSampleRate = 30.0

// thresholdFactor 动态阈值 = thresholdFactor × RMS
const thresholdFactor = 0.6

// Estimate 一次心率估计结果
type Estimate struct {
	BPM        float64        `json:"bpm"`
	Confidence float64        `json:"confidence"`
	Peaks      []int          `json:"peaks,omitempty"`
	Quality    QualityMetrics `json:"quality"`
}

// Detector 心率检测器
// 除持有的配置外无跨调用状态，可并发使用
type Detector struct {
	cfg atomic.Pointer[Config]
}

// NewDetector 创建检测器
func NewDetector(cfg Config) *Detector {
	d := &Detector{}
	d.cfg.Store(&cfg)
	return d
}

// UpdateConfig 整体替换配置，对下一次 Process 生效
func (d *Detector) UpdateConfig(cfg Config) {
	d.cfg.Store(&cfg)
}

// Config 返回当前配置快照
func (d *Detector) Config() Config {
	return *d.cfg.Load()
}

// Process 估计缓冲区的心率，fs <= 0 时按 30fps 处理
// 峰值不足或 BPM 超出范围时返回 0/0
func (d *Detector) Process(buffer []float64, fs float64) Estimate {
	if fs <= 0 {
		fs = DefaultSampleRate
	}
	cfg := d.cfg.Load()
	if len(buffer) < 5 {
		return Estimate{}
	}

	detrended := detrend(buffer, int(math.Round(0.5*fs)))
	smoothed := movingAverage(detrended, cfg.Detection.SmoothingWindow)

	rms := math.Sqrt(floats.Dot(smoothed, smoothed) / float64(len(smoothed)))
	peaks := findPeaks(smoothed, thresholdFactor*rms, cfg.Detection.RefractoryPeriodFrames)
	if len(peaks) < 2 {
		return Estimate{Peaks: peaks}
	}

	intervals := make([]float64, len(peaks)-1)
	for i := 1; i < len(peaks); i++ {
		intervals[i-1] = float64(peaks[i] - peaks[i-1])
	}

	mean, std := stat.PopMeanStdDev(intervals, nil)
	bpm := 60 / (mean / fs)
	if bpm < cfg.Detection.MinBPM || bpm > cfg.Detection.MaxBPM {
		return Estimate{Peaks: peaks}
	}

	quality := assessQuality(smoothed, intervals, fs, cfg.Validation)
	quality.IntervalStd = std
	confidence := clamp(100-100*std/mean, 0, 100)
	confidence = clamp(confidence-quality.PenaltyPoints, 0, 100)

	return Estimate{
		BPM:        bpm,
		Confidence: confidence,
		Peaks:      peaks,
		Quality:    quality,
	}
}

// detrend 减去 ±half 范围内的居中均值（边缘截断）
func detrend(x []float64, half int) []float64 {
	mean := centeredMean(x, half)
	floats.SubTo(mean, x, mean)
	return mean
}

// movingAverage 居中滑动平均，每侧 half 个采样
func movingAverage(x []float64, half int) []float64 {
	if half <= 0 {
		out := make([]float64, len(x))
		copy(out, x)
		return out
	}
	return centeredMean(x, half)
}

func centeredMean(x []float64, half int) []float64 {
	n := len(x)
	prefix := make([]float64, n+1)
	for i, v := range x {
		prefix[i+1] = prefix[i] + v
	}

	out := make([]float64, n)
	for i := range x {
		lo := max(0, i-half)
		hi := min(n-1, i+half)
		out[i] = (prefix[hi+1] - prefix[lo]) / float64(hi-lo+1)
	}
	return out
}

// findPeaks 高于阈值且严格大于两侧各两个邻点，并满足不应期
func findPeaks(s []float64, threshold float64, refractory int) []int {
	var peaks []int
	for i := 2; i < len(s)-2; i++ {
		v := s[i]
		if v <= threshold {
			continue
		}
		if v <= s[i-1] || v <= s[i-2] || v <= s[i+1] || v <= s[i+2] {
			continue
		}
		if len(peaks) > 0 && i-peaks[len(peaks)-1] < refractory {
			continue
		}
		peaks = append(peaks, i)
	}
	return peaks
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
