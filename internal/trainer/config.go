package trainer

import (
	"time"

	"github.com/soraally1/glucovision/internal/nn"
)

// Config 训练器配置
type Config struct {
	ModelKey string
	Version  string
	// Topology 冷启动时使用的网络结构；已持久化的模型以自身拓扑为准
	Topology nn.Topology
	Seed     uint64

	SyncTimeout time.Duration

	WarmupExamples  int
	WarmupEpochs    int
	WarmupBatchSize int
	WarmupLabelMin  float64
	WarmupLabelMax  float64
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		ModelKey:        "glucovision-model-v1",
		Version:         "v1",
		Topology:        nn.GlucoseTopology(),
		Seed:            42,
		SyncTimeout:     10 * time.Second,
		WarmupExamples:  40,
		WarmupEpochs:    5,
		WarmupBatchSize: 4,
		WarmupLabelMin:  85,
		WarmupLabelMax:  160,
	}
}
