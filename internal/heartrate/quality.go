package heartrate

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

const (
	skewnessPenalty = 30.0
	kurtosisPenalty = 20.0
)

// QualityMetrics 信号质量指标
type QualityMetrics struct {
	Skewness      float64 `json:"skewness"`
	Kurtosis      float64 `json:"kurtosis"` // 超额峰度
	RMSSD         float64 `json:"rmssd_ms"`
	IntervalStd   float64 `json:"interval_std_frames"` // 峰间期总体标准差
	SkewnessOK    bool    `json:"skewness_ok"`
	KurtosisOK    bool    `json:"kurtosis_ok"`
	RMSSDInRange  bool    `json:"rmssd_in_range"`
	PenaltyPoints float64 `json:"penalty_points"`
}

// assessQuality 计算平滑信号的分布形态和间期的 RMSSD，返回扣分
func assessQuality(smoothed, intervals []float64, fs float64, cfg ValidationConfig) QualityMetrics {
	q := QualityMetrics{
		Skewness: finiteOrZero(stat.Skew(smoothed, nil)),
		Kurtosis: finiteOrZero(stat.ExKurtosis(smoothed, nil)),
		RMSSD:    rmssdMillis(intervals, fs),
	}

	q.SkewnessOK = q.Skewness >= cfg.SkewnessMin && q.Skewness <= cfg.SkewnessMax
	q.KurtosisOK = q.Kurtosis <= cfg.KurtosisMax
	q.RMSSDInRange = q.RMSSD >= cfg.RMSSDMin && q.RMSSD <= cfg.RMSSDMax

	if !q.SkewnessOK {
		q.PenaltyPoints += skewnessPenalty
	}
	if !q.KurtosisOK {
		q.PenaltyPoints += kurtosisPenalty
	}
	return q
}

// rmssdMillis 相邻间期差的均方根，单位毫秒
func rmssdMillis(intervals []float64, fs float64) float64 {
	if len(intervals) < 2 {
		return 0
	}
	var sum float64
	for i := 1; i < len(intervals); i++ {
		d := (intervals[i] - intervals[i-1]) / fs * 1000
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(intervals)-1))
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
