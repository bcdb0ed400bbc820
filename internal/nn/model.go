package nn

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

var (
	// ErrInputShape 输入长度与拓扑不符
	ErrInputShape = errors.New("input does not match model input shape")
	// ErrNonFinite 输入或标签含 NaN/Inf
	ErrNonFinite = errors.New("non-finite value")
)

// FitOptions 训练参数
type FitOptions struct {
	Epochs    int
	BatchSize int
	// Shuffle 每个 epoch 打乱样本顺序
	Shuffle bool
}

// FitResult 最后一个 epoch 的平均指标
type FitResult struct {
	Loss   float64 `json:"loss"` // MSE
	MAE    float64 `json:"mae"`
	Epochs int     `json:"epochs"`
}

// Model 顺序网络
//
// Predict 只读取权重，可以并发调用；Fit/LoadWeights/SetOutputBias 会修改权重，
// 调用方负责与 Predict 互斥。
type Model struct {
	topology Topology
	layers   []layer
	params   []*Param
	in       shape
	opt      *adam
	rng      *rand.Rand
}

// NewModel 按拓扑构建模型并随机初始化权重
func NewModel(t Topology, seed uint64) (*Model, error) {
	if t.InputLength <= 0 || t.InputChannels <= 0 {
		return nil, fmt.Errorf("invalid input shape %dx%d", t.InputLength, t.InputChannels)
	}
	if len(t.Layers) == 0 {
		return nil, errors.New("topology has no layers")
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x5851f42d4c957f2d))
	m := &Model{
		topology: t,
		in:       shape{Steps: t.InputLength, Channels: t.InputChannels},
		opt:      newAdam(DefaultAdamConfig()),
		rng:      rng,
	}

	cur := m.in
	seen := make(map[string]bool, len(t.Layers))
	for _, s := range t.Layers {
		if s.Name == "" || seen[s.Name] {
			return nil, fmt.Errorf("layer name %q is empty or duplicated", s.Name)
		}
		seen[s.Name] = true

		l, err := buildLayer(s, cur, rng)
		if err != nil {
			return nil, err
		}
		m.layers = append(m.layers, l)
		m.params = append(m.params, l.params()...)
		cur = l.outputShape()
	}
	if cur.size() != 1 {
		return nil, fmt.Errorf("model output must be a scalar, got %dx%d", cur.Steps, cur.Channels)
	}
	return m, nil
}

// Topology 返回模型拓扑
func (m *Model) Topology() Topology { return m.topology }

// InputLength 输入采样数
func (m *Model) InputLength() int { return m.in.Steps }

// Params 按层顺序返回所有参数
func (m *Model) Params() []*Param { return m.params }

// ParamCount 参数总数
func (m *Model) ParamCount() int {
	n := 0
	for _, p := range m.params {
		n += len(p.Value)
	}
	return n
}

// Predict 单次前向传播（推理模式，dropout 关闭）
func (m *Model) Predict(x []float64) (float64, error) {
	if err := m.checkInput(x); err != nil {
		return 0, err
	}
	y, _ := m.forward(x, false)
	return y, nil
}

// Fit 以 MSE 为损失、Adam 为优化器训练
func (m *Model) Fit(xs [][]float64, ys []float64, opts FitOptions) (FitResult, error) {
	if len(xs) == 0 || len(xs) != len(ys) {
		return FitResult{}, fmt.Errorf("invalid training set: %d inputs, %d labels", len(xs), len(ys))
	}
	for i := range xs {
		if err := m.checkInput(xs[i]); err != nil {
			return FitResult{}, fmt.Errorf("example %d: %w", i, err)
		}
		if math.IsNaN(ys[i]) || math.IsInf(ys[i], 0) {
			return FitResult{}, fmt.Errorf("example %d label: %w", i, ErrNonFinite)
		}
	}
	if opts.Epochs <= 0 {
		opts.Epochs = 1
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 32
	}

	order := make([]int, len(xs))
	for i := range order {
		order[i] = i
	}

	var res FitResult
	for epoch := 0; epoch < opts.Epochs; epoch++ {
		if opts.Shuffle {
			m.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		}

		var sumLoss, sumAbs float64
		for start := 0; start < len(order); start += opts.BatchSize {
			batch := order[start:min(start+opts.BatchSize, len(order))]
			m.zeroGrad()
			for _, idx := range batch {
				pred := m.accumulate(xs[idx], ys[idx], 1/float64(len(batch)), true)
				diff := pred - ys[idx]
				sumLoss += diff * diff
				sumAbs += math.Abs(diff)
			}
			m.opt.step(m.params)
		}
		res = FitResult{
			Loss:   sumLoss / float64(len(xs)),
			MAE:    sumAbs / float64(len(xs)),
			Epochs: epoch + 1,
		}
	}
	return res, nil
}

// SetOutputBias 设置输出层偏置，冷启动时让初始输出落在标签均值附近
func (m *Model) SetOutputBias(v float64) {
	last := m.layers[len(m.layers)-1]
	ps := last.params()
	if len(ps) < 2 {
		return
	}
	for i := range ps[1].Value {
		ps[1].Value[i] = v
	}
}

func (m *Model) checkInput(x []float64) error {
	if len(x) != m.in.size() {
		return fmt.Errorf("%w: got %d values, want %d", ErrInputShape, len(x), m.in.size())
	}
	if !isFinite(x) {
		return fmt.Errorf("input: %w", ErrNonFinite)
	}
	return nil
}

func (m *Model) forward(x []float64, training bool) (float64, []any) {
	var rng *rand.Rand
	if training {
		rng = m.rng
	}
	tape := make([]any, len(m.layers))
	cur := x
	for i, l := range m.layers {
		cur, tape[i] = l.forward(cur, training, rng)
	}
	return cur[0], tape
}

// accumulate 单样本前向+反向，梯度 = d(pred-y)^2/dθ × scale
func (m *Model) accumulate(x []float64, y, scale float64, training bool) float64 {
	pred, tape := m.forward(x, training)
	grad := []float64{2 * (pred - y) * scale}
	for i := len(m.layers) - 1; i >= 0; i-- {
		grad = m.layers[i].backward(tape[i], grad)
	}
	return pred
}

func (m *Model) zeroGrad() {
	for _, p := range m.params {
		p.zeroGrad()
	}
}
