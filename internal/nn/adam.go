package nn

import "math"

// AdamConfig Adam 超参数
type AdamConfig struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64
}

// DefaultAdamConfig lr=0.001
func DefaultAdamConfig() AdamConfig {
	return AdamConfig{
		LearningRate: 0.001,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-7,
	}
}

type adam struct {
	cfg AdamConfig
	t   int
	m   map[*Param][]float64
	v   map[*Param][]float64
}

func newAdam(cfg AdamConfig) *adam {
	return &adam{
		cfg: cfg,
		m:   make(map[*Param][]float64),
		v:   make(map[*Param][]float64),
	}
}

func (a *adam) step(params []*Param) {
	a.t++
	b1, b2 := a.cfg.Beta1, a.cfg.Beta2
	lr := a.cfg.LearningRate * math.Sqrt(1-math.Pow(b2, float64(a.t))) / (1 - math.Pow(b1, float64(a.t)))

	for _, p := range params {
		m, ok := a.m[p]
		if !ok {
			m = make([]float64, len(p.Value))
			a.m[p] = m
		}
		v, ok := a.v[p]
		if !ok {
			v = make([]float64, len(p.Value))
			a.v[p] = v
		}
		for i, g := range p.Grad {
			m[i] = b1*m[i] + (1-b1)*g
			v[i] = b2*v[i] + (1-b2)*g*g
			p.Value[i] -= lr * m[i] / (math.Sqrt(v[i]) + a.cfg.Epsilon)
		}
	}
}
