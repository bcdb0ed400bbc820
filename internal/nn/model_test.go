package nn

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tinyTopology 梯度检查用的小网络，使用平滑激活避免 ReLU 折点
func tinyTopology() Topology {
	return Topology{
		InputLength:   12,
		InputChannels: 1,
		Layers: []LayerSpec{
			{Type: LayerConv1D, Name: "conv_a", Filters: 3, KernelSize: 3, Activation: ActivationTanh},
			{Type: LayerMaxPool1D, Name: "pool_a", PoolSize: 2},
			{Type: LayerConv1D, Name: "conv_b", Filters: 2, KernelSize: 2, Activation: ActivationTanh},
			{Type: LayerLSTM, Name: "lstm", Units: 3},
			{Type: LayerDense, Name: "hidden", Units: 4, Activation: ActivationTanh},
			{Type: LayerDense, Name: "out", Units: 1, Activation: ActivationLinear},
		},
	}
}

func randomInput(n int, seed uint64) []float64 {
	rng := rand.New(rand.NewPCG(seed, 1))
	x := make([]float64, n)
	for i := range x {
		x[i] = rng.Float64()*2 - 1
	}
	return x
}

func TestGlucoseTopology_Shape(t *testing.T) {
	m, err := NewModel(GlucoseTopology(), 1)
	require.NoError(t, err)

	assert.Equal(t, InputLength, m.InputLength())
	// conv1 192 + conv2 6208 + lstm 33024 + dense1 2080 + dense2 33
	assert.Equal(t, 41537, m.ParamCount())

	names := make([]string, 0, len(m.Params()))
	for _, p := range m.Params() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{
		"conv1d_1/kernel", "conv1d_1/bias",
		"conv1d_2/kernel", "conv1d_2/bias",
		"lstm_1/kernel", "lstm_1/recurrent_kernel", "lstm_1/bias",
		"dense_1/kernel", "dense_1/bias",
		"dense_2/kernel", "dense_2/bias",
	}, names)

	pred, err := m.Predict(randomInput(InputLength, 3))
	require.NoError(t, err)
	assert.False(t, math.IsNaN(pred))
}

func TestNewModel_InvalidTopology(t *testing.T) {
	cases := map[string]Topology{
		"no layers": {InputLength: 10, InputChannels: 1},
		"bad input": {InputLength: 0, InputChannels: 1, Layers: []LayerSpec{{Type: LayerDense, Name: "d", Units: 1}}},
		"unknown":   {InputLength: 10, InputChannels: 1, Layers: []LayerSpec{{Type: "gru", Name: "g", Units: 1}}},
		"non-scalar": {InputLength: 10, InputChannels: 1, Layers: []LayerSpec{
			{Type: LayerConv1D, Name: "c", Filters: 2, KernelSize: 3},
		}},
		"duplicate": {InputLength: 10, InputChannels: 1, Layers: []LayerSpec{
			{Type: LayerDense, Name: "d", Units: 4},
			{Type: LayerDense, Name: "d", Units: 1},
		}},
		"dropout rate": {InputLength: 10, InputChannels: 1, Layers: []LayerSpec{
			{Type: LayerDense, Name: "d", Units: 1},
			{Type: LayerDropout, Name: "x", Rate: 1},
		}},
	}
	for name, top := range cases {
		_, err := NewModel(top, 1)
		assert.Error(t, err, name)
	}
}

func TestModel_PredictValidatesInput(t *testing.T) {
	m, err := NewModel(tinyTopology(), 1)
	require.NoError(t, err)

	_, err = m.Predict(make([]float64, 11))
	assert.ErrorIs(t, err, ErrInputShape)

	x := make([]float64, 12)
	x[4] = math.NaN()
	_, err = m.Predict(x)
	assert.ErrorIs(t, err, ErrNonFinite)
}

func TestModel_SameSeedIsDeterministic(t *testing.T) {
	a, err := NewModel(tinyTopology(), 42)
	require.NoError(t, err)
	b, err := NewModel(tinyTopology(), 42)
	require.NoError(t, err)

	x := randomInput(12, 7)
	pa, _ := a.Predict(x)
	pb, _ := b.Predict(x)
	assert.Equal(t, pa, pb)
}

func TestModel_GradientCheck(t *testing.T) {
	m, err := NewModel(tinyTopology(), 9)
	require.NoError(t, err)

	x := randomInput(12, 11)
	const label = 0.75
	loss := func() float64 {
		p, err := m.Predict(x)
		require.NoError(t, err)
		return (p - label) * (p - label)
	}

	m.zeroGrad()
	m.accumulate(x, label, 1, false)

	const h = 1e-6
	for _, p := range m.Params() {
		for i := range p.Value {
			orig := p.Value[i]
			p.Value[i] = orig + h
			up := loss()
			p.Value[i] = orig - h
			down := loss()
			p.Value[i] = orig

			numeric := (up - down) / (2 * h)
			assert.InDelta(t, numeric, p.Grad[i], 1e-6+1e-4*math.Abs(numeric), "%s[%d]", p.Name, i)
		}
	}
}

func TestModel_FitReducesLoss(t *testing.T) {
	m, err := NewModel(tinyTopology(), 5)
	require.NoError(t, err)

	xs := make([][]float64, 8)
	ys := make([]float64, 8)
	for i := range xs {
		xs[i] = randomInput(12, uint64(i+100))
		ys[i] = 2
	}

	mse := func() float64 {
		var sum float64
		for i := range xs {
			p, _ := m.Predict(xs[i])
			sum += (p - ys[i]) * (p - ys[i])
		}
		return sum / float64(len(xs))
	}

	before := mse()
	res, err := m.Fit(xs, ys, FitOptions{Epochs: 50, BatchSize: 4, Shuffle: true})
	require.NoError(t, err)
	assert.Equal(t, 50, res.Epochs)
	assert.Less(t, mse(), before)
	assert.Greater(t, res.Loss, 0.0)
	assert.Greater(t, res.MAE, 0.0)
}

func TestModel_FitRejectsBadData(t *testing.T) {
	m, err := NewModel(tinyTopology(), 5)
	require.NoError(t, err)

	_, err = m.Fit(nil, nil, FitOptions{})
	assert.Error(t, err)

	_, err = m.Fit([][]float64{make([]float64, 12)}, []float64{math.Inf(1)}, FitOptions{})
	assert.ErrorIs(t, err, ErrNonFinite)

	_, err = m.Fit([][]float64{make([]float64, 3)}, []float64{1}, FitOptions{})
	assert.ErrorIs(t, err, ErrInputShape)
}

func TestModel_SetOutputBias(t *testing.T) {
	m, err := NewModel(tinyTopology(), 5)
	require.NoError(t, err)

	x := randomInput(12, 1)
	before, _ := m.Predict(x)
	m.SetOutputBias(120)
	after, _ := m.Predict(x)
	assert.InDelta(t, before+120, after, 1e-9)
}

func TestDropout_OnlyActiveWhileTraining(t *testing.T) {
	d := &dropout{s: LayerSpec{Rate: 0.5}, in: shape{Steps: 1, Channels: 1000}}
	x := make([]float64, 1000)
	for i := range x {
		x[i] = 1
	}

	y, _ := d.forward(x, false, rand.New(rand.NewPCG(1, 2)))
	assert.Equal(t, x, y)

	y, cache := d.forward(x, true, rand.New(rand.NewPCG(1, 2)))
	var zeros int
	for _, v := range y {
		if v == 0 {
			zeros++
		} else {
			assert.Equal(t, 2.0, v)
		}
	}
	assert.InDelta(t, 500, zeros, 80)

	dx := d.backward(cache, x)
	assert.Equal(t, y, dx)
}

func TestTopology_JSON(t *testing.T) {
	raw, err := MarshalTopology(GlucoseTopology())
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"lstm"`)

	back, err := UnmarshalTopology(raw)
	require.NoError(t, err)
	assert.Equal(t, GlucoseTopology(), back)

	_, err = UnmarshalTopology([]byte("{"))
	assert.Error(t, err)
}
