package heartrate

import "fmt"

// DetectionConfig 峰值检测参数
type DetectionConfig struct {
	MinBPM                 float64 `json:"min_bpm"`
	MaxBPM                 float64 `json:"max_bpm"`
	SmoothingWindow        int     `json:"smoothing_window"`
	RefractoryPeriodFrames int     `json:"refractory_period_frames"`
}

// ValidationConfig 信号质量门限（来自人群数据集标定，不按用户调整）
type ValidationConfig struct {
	SkewnessMin float64 `json:"skewness_min"`
	SkewnessMax float64 `json:"skewness_max"`
	KurtosisMax float64 `json:"kurtosis_max"`
	RMSSDMin    float64 `json:"rmssd_min"`
	RMSSDMax    float64 `json:"rmssd_max"`
}

// Config 检测器完整配置，作为不可变值整体替换
type Config struct {
	Detection  DetectionConfig  `json:"detection"`
	Validation ValidationConfig `json:"validation"`
}

// DefaultConfig 远端配置不可用时的硬编码默认值
func DefaultConfig() Config {
	return Config{
		Detection: DetectionConfig{
			MinBPM:                 45,
			MaxBPM:                 185,
			SmoothingWindow:        3,
			RefractoryPeriodFrames: 10,
		},
		Validation: ValidationConfig{
			SkewnessMin: -1.5,
			SkewnessMax: 1.5,
			KurtosisMax: 5.0,
			RMSSDMin:    5.0,
			RMSSDMax:    30.0,
		},
	}
}

// Validate 校验配置自洽
func (c Config) Validate() error {
	d := c.Detection
	if d.MinBPM <= 0 || d.MaxBPM <= d.MinBPM {
		return fmt.Errorf("invalid bpm range [%v, %v]", d.MinBPM, d.MaxBPM)
	}
	if d.SmoothingWindow < 0 {
		return fmt.Errorf("invalid smoothing_window %d", d.SmoothingWindow)
	}
	if d.RefractoryPeriodFrames < 1 {
		return fmt.Errorf("invalid refractory_period_frames %d", d.RefractoryPeriodFrames)
	}

	v := c.Validation
	if v.SkewnessMax < v.SkewnessMin {
		return fmt.Errorf("invalid skewness range [%v, %v]", v.SkewnessMin, v.SkewnessMax)
	}
	if v.KurtosisMax <= 0 {
		return fmt.Errorf("invalid kurtosis_max %v", v.KurtosisMax)
	}
	if v.RMSSDMin < 0 || v.RMSSDMax < v.RMSSDMin {
		return fmt.Errorf("invalid rmssd range [%v, %v]", v.RMSSDMin, v.RMSSDMax)
	}
	return nil
}
