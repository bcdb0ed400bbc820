package nn

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// lstm 只输出最后一个时间步的隐状态
// 门顺序 i, f, g, o；kernel [Cin][4U]，recurrent_kernel [U][4U]，bias [4U]
type lstm struct {
	s         LayerSpec
	in        shape
	kernel    *Param
	recurrent *Param
	bias      *Param
}

type lstmStep struct {
	x, hPrev, cPrev []float64
	i, f, g, o      []float64
	tanhC           []float64
}

func newLSTM(s LayerSpec, in shape, rng *rand.Rand) *lstm {
	u := s.Units
	l := &lstm{
		s:         s,
		in:        in,
		kernel:    newParam(s.Name+"/kernel", in.Channels, 4*u),
		recurrent: newParam(s.Name+"/recurrent_kernel", u, 4*u),
		bias:      newParam(s.Name+"/bias", 4*u),
	}
	glorotUniform(l.kernel, in.Channels, 4*u, rng)
	glorotUniform(l.recurrent, u, 4*u, rng)
	// unit forget bias
	for j := u; j < 2*u; j++ {
		l.bias.Value[j] = 1
	}
	return l
}

func (l *lstm) spec() LayerSpec { return l.s }
func (l *lstm) params() []*Param { return []*Param{l.kernel, l.recurrent, l.bias} }
func (l *lstm) outputShape() shape { return shape{Steps: 1, Channels: l.s.Units} }

func (l *lstm) forward(x []float64, _ bool, _ *rand.Rand) ([]float64, any) {
	u, cin := l.s.Units, l.in.Channels
	h := make([]float64, u)
	c := make([]float64, u)
	steps := make([]lstmStep, l.in.Steps)

	for t := range steps {
		xt := x[t*cin : (t+1)*cin]
		z := make([]float64, 4*u)
		copy(z, l.bias.Value)
		for ch, xv := range xt {
			floats.AddScaled(z, xv, l.kernel.Value[ch*4*u:(ch+1)*4*u])
		}
		for j, hv := range h {
			floats.AddScaled(z, hv, l.recurrent.Value[j*4*u:(j+1)*4*u])
		}

		st := lstmStep{
			x: xt, hPrev: h, cPrev: c,
			i: z[0:u], f: z[u : 2*u], g: z[2*u : 3*u], o: z[3*u : 4*u],
			tanhC: make([]float64, u),
		}
		nextH := make([]float64, u)
		nextC := make([]float64, u)
		for j := 0; j < u; j++ {
			st.i[j] = sigmoid(st.i[j])
			st.f[j] = sigmoid(st.f[j])
			st.g[j] = math.Tanh(st.g[j])
			st.o[j] = sigmoid(st.o[j])
			nextC[j] = st.f[j]*c[j] + st.i[j]*st.g[j]
			st.tanhC[j] = math.Tanh(nextC[j])
			nextH[j] = st.o[j] * st.tanhC[j]
		}
		steps[t] = st
		h, c = nextH, nextC
	}
	return h, steps
}

func (l *lstm) backward(cache any, dy []float64) []float64 {
	steps := cache.([]lstmStep)
	u, cin := l.s.Units, l.in.Channels
	dx := make([]float64, l.in.size())

	dh := make([]float64, u)
	copy(dh, dy)
	dc := make([]float64, u)
	dz := make([]float64, 4*u)

	for t := len(steps) - 1; t >= 0; t-- {
		st := steps[t]
		dcPrev := make([]float64, u)
		for j := 0; j < u; j++ {
			dc[j] += dh[j] * st.o[j] * (1 - st.tanhC[j]*st.tanhC[j])
			do := dh[j] * st.tanhC[j]
			di := dc[j] * st.g[j]
			dg := dc[j] * st.i[j]
			df := dc[j] * st.cPrev[j]
			dcPrev[j] = dc[j] * st.f[j]

			dz[j] = di * st.i[j] * (1 - st.i[j])
			dz[u+j] = df * st.f[j] * (1 - st.f[j])
			dz[2*u+j] = dg * (1 - st.g[j]*st.g[j])
			dz[3*u+j] = do * st.o[j] * (1 - st.o[j])
		}

		floats.Add(l.bias.Grad, dz)
		for ch, xv := range st.x {
			row := l.kernel.Grad[ch*4*u : (ch+1)*4*u]
			floats.AddScaled(row, xv, dz)
			dx[t*cin+ch] = floats.Dot(l.kernel.Value[ch*4*u:(ch+1)*4*u], dz)
		}
		dhPrev := make([]float64, u)
		for j, hv := range st.hPrev {
			floats.AddScaled(l.recurrent.Grad[j*4*u:(j+1)*4*u], hv, dz)
			dhPrev[j] = floats.Dot(l.recurrent.Value[j*4*u:(j+1)*4*u], dz)
		}
		dh, dc = dhPrev, dcPrev
	}
	return dx
}
