package inference

import "encoding/json"

// Source 结果来源
type Source string

const (
	// SourceModel 模型直接输出
	SourceModel Source = "model"
	// SourceBlended 模型离群值与启发值混合
	SourceBlended Source = "blended"
	// SourceFallback 模型不可用时的模拟值，低可信
	SourceFallback Source = "fallback"
)

// Result 血糖预测结果
type Result struct {
	Glucose    int     `json:"glucose"` // mg/dL
	Confidence float64 `json:"confidence"`
	Source     Source  `json:"source"`
}

// IsCalibrated 结果是否来自模型
func (r Result) IsCalibrated() bool {
	return r.Source != SourceFallback
}

func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	return json.Marshal(struct {
		plain
		IsCalibrated bool `json:"is_calibrated"`
	}{plain(r), r.IsCalibrated()})
}

// LearnOutcome 在线学习结果
type LearnOutcome string

const (
	LearnTrained  LearnOutcome = "trained"
	LearnSkipped  LearnOutcome = "skipped"
	LearnNotReady LearnOutcome = "not_ready"
	LearnFailed   LearnOutcome = "failed"
)
