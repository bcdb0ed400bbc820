package ppg

// Extractor 组合 归一化 -> 反相 -> 带通，每帧产出一个脉搏采样
//
// 血容量增加时吸收更多光，原始亮度在脉搏峰值处下降；
// 反相后生理峰值表现为信号峰值。
type Extractor struct {
	normalizer *Normalizer
	bandpass   *BandpassFilter
}

// NewExtractor 使用默认参数创建提取器
func NewExtractor(fs float64) *Extractor {
	return &Extractor{
		normalizer: NewNormalizer(DefaultBaselineWindow),
		bandpass:   NewBandpassFilter(fs, DefaultLowCutoff, DefaultHighCutoff),
	}
}

// Process 处理一帧原始亮度 (0-255)
func (e *Extractor) Process(rawIntensity float64) float64 {
	return e.bandpass.Process(-e.normalizer.Process(rawIntensity))
}

// Reset 重置所有子滤波器
func (e *Extractor) Reset() {
	e.normalizer.Reset()
	e.bandpass.Reset()
}
