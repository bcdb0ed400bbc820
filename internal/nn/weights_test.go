package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeights_RoundTripIsBitIdentical(t *testing.T) {
	m, err := NewModel(tinyTopology(), 21)
	require.NoError(t, err)

	// 训练几步，避免只验证到初始化
	_, err = m.Fit([][]float64{randomInput(12, 1), randomInput(12, 2)}, []float64{1, 3}, FitOptions{Epochs: 3, BatchSize: 1})
	require.NoError(t, err)

	specs, data := m.EncodeWeights()
	assert.Len(t, data, m.ParamCount()*8)
	for _, s := range specs {
		assert.Equal(t, DTypeFloat64, s.DType)
	}

	restored, err := Restore(m.Topology(), specs, data, 999)
	require.NoError(t, err)

	for i, p := range m.Params() {
		assert.Equal(t, p.Value, restored.Params()[i].Value, p.Name)
	}

	x := randomInput(12, 77)
	want, _ := m.Predict(x)
	got, _ := restored.Predict(x)
	assert.Equal(t, want, got)
}

func TestLoadWeights_Mismatch(t *testing.T) {
	m, err := NewModel(tinyTopology(), 1)
	require.NoError(t, err)
	specs, data := m.EncodeWeights()

	assert.ErrorIs(t, m.LoadWeights(specs[1:], data), ErrWeightMismatch)
	assert.ErrorIs(t, m.LoadWeights(specs, data[:len(data)-8]), ErrWeightMismatch)

	renamed := append([]WeightSpec(nil), specs...)
	renamed[0].Name = "other/kernel"
	assert.ErrorIs(t, m.LoadWeights(renamed, data), ErrWeightMismatch)

	other, err := NewModel(GlucoseTopology(), 1)
	require.NoError(t, err)
	assert.Error(t, other.LoadWeights(specs, data))
}
