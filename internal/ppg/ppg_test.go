package ppg

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizer_ConstantInputConvergesToZero(t *testing.T) {
	for _, c := range []float64{1, 42, 128.5, 255} {
		n := NewNormalizer(DefaultBaselineWindow)
		var out float64
		for i := 0; i < 400; i++ {
			out = n.Process(c)
		}
		assert.InDelta(t, 0, out, 1e-12, "constant %v", c)
	}
}

func TestNormalizer_ZeroBaselineReturnsZero(t *testing.T) {
	n := NewNormalizer(4)
	assert.Equal(t, 0.0, n.Process(0))
	assert.Equal(t, 0.0, n.Process(0))

	// 正负抵消，基线恰好为 0
	n = NewNormalizer(2)
	n.Process(5)
	assert.Equal(t, 0.0, n.Process(-5))
}

func TestNormalizer_SlidingWindow(t *testing.T) {
	n := NewNormalizer(3)
	n.Process(1)
	n.Process(2)
	n.Process(3)
	// 窗口 [2,3,4]，基线 3
	assert.InDelta(t, (4.0-3.0)/3.0, n.Process(4), 1e-12)

	n.Reset()
	// 重置后第一个采样就是基线
	assert.Equal(t, 0.0, n.Process(200))
}

func TestNewNormalizer_DefaultWindow(t *testing.T) {
	n := NewNormalizer(0)
	assert.Equal(t, DefaultBaselineWindow, n.size)
}

func TestBandpassFilter_Coefficients(t *testing.T) {
	f := NewBandpassFilter(30, 0.7, 3.5)
	assert.InDelta(t, 0.127862, f.alphaLow, 1e-6)
	assert.InDelta(t, 0.422979, f.alphaHigh, 1e-6)

	out := f.Process(1)
	assert.InDelta(t, 0.422979, out, 1e-6)
	assert.InDelta(t, 0.127862, f.lastLow, 1e-6)
}

func TestBandpassFilter_ConstantInputConvergesToZero(t *testing.T) {
	for _, c := range []float64{-0.5, 0.02, 1, 150} {
		f := NewBandpassFilter(DefaultSampleRate, DefaultLowCutoff, DefaultHighCutoff)
		var out float64
		for i := 0; i < 600; i++ {
			out = f.Process(c)
		}
		assert.InDelta(t, 0, out, 1e-9*math.Max(1, math.Abs(c)), "constant %v", c)
	}
}

func TestBandpassFilter_Reset(t *testing.T) {
	f := NewBandpassFilter(0, 0, 0)
	f.Process(3)
	f.Process(-1)
	f.Reset()
	assert.Equal(t, 0.0, f.lastLow)
	assert.Equal(t, 0.0, f.lastHigh)
}

func TestExtractor_ConstantIntensityIsFlat(t *testing.T) {
	e := NewExtractor(DefaultSampleRate)
	for i := 0; i < 300; i++ {
		assert.InDelta(t, 0, e.Process(150), 1e-12)
	}
}

func TestExtractor_IntensityDropBecomesPositivePulse(t *testing.T) {
	e := NewExtractor(DefaultSampleRate)
	for i := 0; i < 200; i++ {
		e.Process(150)
	}
	// 亮度下降（血容量增加）反相后应为正向脉冲
	assert.Greater(t, e.Process(140), 0.0)
}

func TestExtractor_ResetRestoresInitialState(t *testing.T) {
	raw := make([]float64, 90)
	for i := range raw {
		raw[i] = 150 + 4*math.Sin(2*math.Pi*1.2*float64(i)/30)
	}

	e := NewExtractor(DefaultSampleRate)
	first := make([]float64, len(raw))
	for i, v := range raw {
		first[i] = e.Process(v)
	}

	e.Reset()
	for i, v := range raw {
		assert.Equal(t, first[i], e.Process(v))
	}
}
