// Package nn 实现血糖回归网络：Conv1D/MaxPool1D/LSTM/Dense/Dropout 的前向、反向传播、
// Adam 优化器以及权重编码，纯 Go float64 实现
package nn

import (
	"encoding/json"
	"fmt"
)

// 层类型
const (
	LayerConv1D    = "conv1d"
	LayerMaxPool1D = "max_pooling1d"
	LayerLSTM      = "lstm"
	LayerDense     = "dense"
	LayerDropout   = "dropout"
)

// 激活函数
const (
	ActivationLinear = "linear"
	ActivationReLU   = "relu"
	ActivationTanh   = "tanh"
)

// 初始化方式
const (
	InitHeNormal      = "he_normal"
	InitGlorotUniform = "glorot_uniform"
)

// InputLength 模型固定输入长度（10 秒 @ 30fps）
const InputLength = 300

// LayerSpec 单层描述
type LayerSpec struct {
	Type        string  `json:"type"`
	Name        string  `json:"name"`
	Filters     int     `json:"filters,omitempty"`
	KernelSize  int     `json:"kernel_size,omitempty"`
	PoolSize    int     `json:"pool_size,omitempty"`
	Units       int     `json:"units,omitempty"`
	Activation  string  `json:"activation,omitempty"`
	Initializer string  `json:"kernel_initializer,omitempty"`
	Rate        float64 `json:"rate,omitempty"`
}

// Topology 网络结构，随权重一起持久化
type Topology struct {
	InputLength   int         `json:"input_length"`
	InputChannels int         `json:"input_channels"`
	Layers        []LayerSpec `json:"layers"`
}

// GlucoseTopology 血糖回归网络
//
//	conv1d(32,k5) -> maxpool(2) -> conv1d(64,k3) -> maxpool(2)  形态特征
//	lstm(64)                                                   时间聚合，只取最后状态
//	dense(32,relu) -> dropout(0.2) -> dense(1,linear)          回归头
func GlucoseTopology() Topology {
	return Topology{
		InputLength:   InputLength,
		InputChannels: 1,
		Layers: []LayerSpec{
			{Type: LayerConv1D, Name: "conv1d_1", Filters: 32, KernelSize: 5, Activation: ActivationReLU, Initializer: InitHeNormal},
			{Type: LayerMaxPool1D, Name: "max_pooling1d_1", PoolSize: 2},
			{Type: LayerConv1D, Name: "conv1d_2", Filters: 64, KernelSize: 3, Activation: ActivationReLU, Initializer: InitHeNormal},
			{Type: LayerMaxPool1D, Name: "max_pooling1d_2", PoolSize: 2},
			{Type: LayerLSTM, Name: "lstm_1", Units: 64},
			{Type: LayerDense, Name: "dense_1", Units: 32, Activation: ActivationReLU, Initializer: InitHeNormal},
			{Type: LayerDropout, Name: "dropout_1", Rate: 0.2},
			{Type: LayerDense, Name: "dense_2", Units: 1, Activation: ActivationLinear, Initializer: InitGlorotUniform},
		},
	}
}

// MarshalTopology 序列化为 JSON
func MarshalTopology(t Topology) (json.RawMessage, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal topology: %w", err)
	}
	return data, nil
}

// UnmarshalTopology 从 JSON 解析
func UnmarshalTopology(data []byte) (Topology, error) {
	var t Topology
	if err := json.Unmarshal(data, &t); err != nil {
		return Topology{}, fmt.Errorf("failed to unmarshal topology: %w", err)
	}
	return t, nil
}

// shape 序列张量形状，Steps=1 时即普通向量
type shape struct {
	Steps    int
	Channels int
}

func (s shape) size() int { return s.Steps * s.Channels }
