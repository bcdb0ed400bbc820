package heartrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRMSSDMillis(t *testing.T) {
	assert.Zero(t, rmssdMillis(nil, 30))
	assert.Zero(t, rmssdMillis([]float64{25}, 30))
	assert.Zero(t, rmssdMillis([]float64{25, 25, 25}, 30))

	// 差值 3 帧 = 100ms
	assert.InDelta(t, 100, rmssdMillis([]float64{24, 27, 24}, 30), 1e-9)
}

func TestAssessQuality_Penalties(t *testing.T) {
	cfg := DefaultConfig().Validation

	symmetric := []float64{-1, 1, -1, 1, -1, 1, -1, 1}
	q := assessQuality(symmetric, []float64{25, 25}, 30, cfg)
	assert.True(t, q.SkewnessOK)
	assert.True(t, q.KurtosisOK)
	assert.Zero(t, q.PenaltyPoints)

	// 一个尖峰：强右偏、高峰度
	spiky := make([]float64, 100)
	spiky[50] = 10
	q = assessQuality(spiky, []float64{25, 25}, 30, cfg)
	assert.False(t, q.SkewnessOK)
	assert.False(t, q.KurtosisOK)
	assert.Equal(t, skewnessPenalty+kurtosisPenalty, q.PenaltyPoints)
}

func TestAssessQuality_FlatSignalIsFinite(t *testing.T) {
	q := assessQuality(make([]float64, 30), nil, 30, DefaultConfig().Validation)
	assert.Zero(t, q.Skewness)
	assert.Zero(t, q.Kurtosis)
}
