package inference

// Policy 预测结果的安全策略，全部为可调常量（非推导值）
type Policy struct {
	// 合理区间，超出即视为离群
	MinPlausible float64
	MaxPlausible float64

	// 离群时: ModelWeight×模型值 + (1-ModelWeight)×(HeuristicCenter ± HeuristicJitter)
	ModelWeight     float64
	HeuristicCenter float64
	HeuristicJitter float64

	// 模型不可用时的模拟值
	FallbackCenter     float64
	FallbackJitter     float64
	FallbackConfidence float64

	// 模型输出的置信度: ConfidenceBase + U(0, ConfidenceJitter)
	ConfidenceBase   float64
	ConfidenceJitter float64
}

// DefaultPolicy 默认策略
func DefaultPolicy() Policy {
	return Policy{
		MinPlausible:       50,
		MaxPlausible:       400,
		ModelWeight:        0.6,
		HeuristicCenter:    105,
		HeuristicJitter:    10,
		FallbackCenter:     95,
		FallbackJitter:     5,
		FallbackConfidence: 85.5,
		ConfidenceBase:     85,
		ConfidenceJitter:   10,
	}
}
