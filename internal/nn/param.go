package nn

import (
	"math"
	"math/rand/v2"
)

// Param 可训练参数及其梯度
type Param struct {
	Name  string
	Shape []int
	Value []float64
	Grad  []float64
}

func newParam(name string, dims ...int) *Param {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return &Param{
		Name:  name,
		Shape: dims,
		Value: make([]float64, n),
		Grad:  make([]float64, n),
	}
}

func (p *Param) zeroGrad() {
	clear(p.Grad)
}

// heNormal 截断正态，stddev = sqrt(2/fanIn)
func heNormal(p *Param, fanIn int, rng *rand.Rand) {
	std := math.Sqrt(2 / float64(fanIn))
	for i := range p.Value {
		v := rng.NormFloat64()
		for math.Abs(v) > 2 {
			v = rng.NormFloat64()
		}
		p.Value[i] = v * std
	}
}

// glorotUniform U(-limit, limit)，limit = sqrt(6/(fanIn+fanOut))
func glorotUniform(p *Param, fanIn, fanOut int, rng *rand.Rand) {
	limit := math.Sqrt(6 / float64(fanIn+fanOut))
	for i := range p.Value {
		p.Value[i] = (rng.Float64()*2 - 1) * limit
	}
}

func initKernel(p *Param, initializer string, fanIn, fanOut int, rng *rand.Rand) {
	if initializer == InitHeNormal {
		heNormal(p, fanIn, rng)
		return
	}
	glorotUniform(p, fanIn, fanOut, rng)
}

func activate(kind string, v float64) float64 {
	switch kind {
	case ActivationReLU:
		return math.Max(0, v)
	case ActivationTanh:
		return math.Tanh(v)
	default:
		return v
	}
}

// activationGrad 按激活后的输出求导
func activationGrad(kind string, y float64) float64 {
	switch kind {
	case ActivationReLU:
		if y > 0 {
			return 1
		}
		return 0
	case ActivationTanh:
		return 1 - y*y
	default:
		return 1
	}
}

func sigmoid(v float64) float64 {
	return 1 / (1 + math.Exp(-v))
}
