package session

import "time"

// MaxIntensity 原始亮度上限（8 位通道）
const MaxIntensity = 255.0

// Config 测量会话参数
type Config struct {
	SampleRate  float64
	DurationSec int
	// MinIntensity 亮度不高于此值视为未检测到手指，该帧忽略
	MinIntensity float64

	EvalEvery      int     // 每累积多少个采样评估一次心率
	EvalMinSamples int     // 评估所需的最少采样数
	ConfidenceGate float64 // 只有置信度高于此值才更新 BPM
	DefaultBPM     int     // 没有可信心率时记录的 BPM

	// SelfTrain 测量结束后用模型结果自训练（仅非兜底结果）
	SelfTrain     bool
	FinishTimeout time.Duration
}

// DefaultConfig 默认 10 秒 @ 30fps
func DefaultConfig() Config {
	return Config{
		SampleRate:     30,
		DurationSec:    10,
		MinIntensity:   20,
		EvalEvery:      30,
		EvalMinSamples: 60,
		ConfidenceGate: 50,
		DefaultBPM:     75,
		FinishTimeout:  30 * time.Second,
	}
}

// TotalSamples 一次测量需要的采样数
func (c Config) TotalSamples() int {
	return int(c.SampleRate) * c.DurationSec
}
