package nn

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// layer 单层实现；forward 返回的 cache 只属于本次调用，因此推理可并发
type layer interface {
	spec() LayerSpec
	params() []*Param
	outputShape() shape
	forward(x []float64, training bool, rng *rand.Rand) ([]float64, any)
	// backward 累加参数梯度并返回输入梯度
	backward(cache any, dy []float64) []float64
}

func buildLayer(s LayerSpec, in shape, rng *rand.Rand) (layer, error) {
	switch s.Type {
	case LayerConv1D:
		if s.Filters <= 0 || s.KernelSize <= 0 {
			return nil, fmt.Errorf("layer %s: filters and kernel_size must be positive", s.Name)
		}
		return newConv1D(s, in, rng), nil
	case LayerMaxPool1D:
		if s.PoolSize <= 0 || in.Steps < s.PoolSize {
			return nil, fmt.Errorf("layer %s: invalid pool_size %d for %d steps", s.Name, s.PoolSize, in.Steps)
		}
		return &maxPool1D{s: s, in: in}, nil
	case LayerLSTM:
		if s.Units <= 0 {
			return nil, fmt.Errorf("layer %s: units must be positive", s.Name)
		}
		return newLSTM(s, in, rng), nil
	case LayerDense:
		if s.Units <= 0 {
			return nil, fmt.Errorf("layer %s: units must be positive", s.Name)
		}
		return newDense(s, in, rng), nil
	case LayerDropout:
		if s.Rate < 0 || s.Rate >= 1 {
			return nil, fmt.Errorf("layer %s: rate must be in [0, 1)", s.Name)
		}
		return &dropout{s: s, in: in}, nil
	default:
		return nil, fmt.Errorf("layer %s: unknown type %q", s.Name, s.Type)
	}
}

// conv1D 'same' 填充、步长 1，kernel 布局 [K][Cin][F]
type conv1D struct {
	s      LayerSpec
	in     shape
	kernel *Param
	bias   *Param
}

func newConv1D(s LayerSpec, in shape, rng *rand.Rand) *conv1D {
	c := &conv1D{
		s:      s,
		in:     in,
		kernel: newParam(s.Name+"/kernel", s.KernelSize, in.Channels, s.Filters),
		bias:   newParam(s.Name+"/bias", s.Filters),
	}
	initKernel(c.kernel, s.Initializer, s.KernelSize*in.Channels, s.KernelSize*s.Filters, rng)
	return c
}

func (c *conv1D) spec() LayerSpec { return c.s }
func (c *conv1D) params() []*Param { return []*Param{c.kernel, c.bias} }
func (c *conv1D) outputShape() shape { return shape{Steps: c.in.Steps, Channels: c.s.Filters} }
func (c *conv1D) padLeft() int { return (c.s.KernelSize - 1) / 2 }
func (c *conv1D) kernelRow(k, ch int) []float64 {
	f := c.s.Filters
	off := (k*c.in.Channels + ch) * f
	return c.kernel.Value[off : off+f]
}

func (c *conv1D) forward(x []float64, _ bool, _ *rand.Rand) ([]float64, any) {
	steps, cin, f := c.in.Steps, c.in.Channels, c.s.Filters
	pad := c.padLeft()
	y := make([]float64, steps*f)

	for t := 0; t < steps; t++ {
		row := y[t*f : (t+1)*f]
		copy(row, c.bias.Value)
		for k := 0; k < c.s.KernelSize; k++ {
			src := t + k - pad
			if src < 0 || src >= steps {
				continue
			}
			for ch := 0; ch < cin; ch++ {
				if xv := x[src*cin+ch]; xv != 0 {
					floats.AddScaled(row, xv, c.kernelRow(k, ch))
				}
			}
		}
		for i := range row {
			row[i] = activate(c.s.Activation, row[i])
		}
	}
	return y, [2][]float64{x, y}
}

func (c *conv1D) backward(cache any, dy []float64) []float64 {
	xy := cache.([2][]float64)
	x, y := xy[0], xy[1]
	steps, cin, f := c.in.Steps, c.in.Channels, c.s.Filters
	pad := c.padLeft()

	dz := make([]float64, len(dy))
	for i := range dy {
		dz[i] = dy[i] * activationGrad(c.s.Activation, y[i])
	}

	dx := make([]float64, len(x))
	for t := 0; t < steps; t++ {
		dzRow := dz[t*f : (t+1)*f]
		floats.Add(c.bias.Grad, dzRow)
		for k := 0; k < c.s.KernelSize; k++ {
			src := t + k - pad
			if src < 0 || src >= steps {
				continue
			}
			for ch := 0; ch < cin; ch++ {
				off := (k*cin + ch) * f
				floats.AddScaled(c.kernel.Grad[off:off+f], x[src*cin+ch], dzRow)
				dx[src*cin+ch] += floats.Dot(c.kernelRow(k, ch), dzRow)
			}
		}
	}
	return dx
}

// maxPool1D 'valid' 池化，步长等于窗口
type maxPool1D struct {
	s  LayerSpec
	in shape
}

func (m *maxPool1D) spec() LayerSpec { return m.s }
func (m *maxPool1D) params() []*Param { return nil }
func (m *maxPool1D) outputShape() shape {
	return shape{Steps: m.in.Steps / m.s.PoolSize, Channels: m.in.Channels}
}

func (m *maxPool1D) forward(x []float64, _ bool, _ *rand.Rand) ([]float64, any) {
	out := m.outputShape()
	ch := m.in.Channels
	y := make([]float64, out.size())
	argmax := make([]int, out.size())

	for t := 0; t < out.Steps; t++ {
		for c := 0; c < ch; c++ {
			best := (t*m.s.PoolSize)*ch + c
			for p := 1; p < m.s.PoolSize; p++ {
				idx := (t*m.s.PoolSize+p)*ch + c
				if x[idx] > x[best] {
					best = idx
				}
			}
			y[t*ch+c] = x[best]
			argmax[t*ch+c] = best
		}
	}
	return y, argmax
}

func (m *maxPool1D) backward(cache any, dy []float64) []float64 {
	argmax := cache.([]int)
	dx := make([]float64, m.in.size())
	for i, src := range argmax {
		dx[src] += dy[i]
	}
	return dx
}

// dense 全连接，输入按 Steps*Channels 展平，kernel 布局 [In][Units]
type dense struct {
	s      LayerSpec
	in     shape
	kernel *Param
	bias   *Param
}

func newDense(s LayerSpec, in shape, rng *rand.Rand) *dense {
	d := &dense{
		s:      s,
		in:     in,
		kernel: newParam(s.Name+"/kernel", in.size(), s.Units),
		bias:   newParam(s.Name+"/bias", s.Units),
	}
	initKernel(d.kernel, s.Initializer, in.size(), s.Units, rng)
	return d
}

func (d *dense) spec() LayerSpec { return d.s }
func (d *dense) params() []*Param { return []*Param{d.kernel, d.bias} }
func (d *dense) outputShape() shape { return shape{Steps: 1, Channels: d.s.Units} }
func (d *dense) kernelRow(i int) []float64 {
	return d.kernel.Value[i*d.s.Units : (i+1)*d.s.Units]
}

func (d *dense) forward(x []float64, _ bool, _ *rand.Rand) ([]float64, any) {
	y := make([]float64, d.s.Units)
	copy(y, d.bias.Value)
	for i, xv := range x {
		if xv != 0 {
			floats.AddScaled(y, xv, d.kernelRow(i))
		}
	}
	for i := range y {
		y[i] = activate(d.s.Activation, y[i])
	}
	return y, [2][]float64{x, y}
}

func (d *dense) backward(cache any, dy []float64) []float64 {
	xy := cache.([2][]float64)
	x, y := xy[0], xy[1]
	u := d.s.Units

	dz := make([]float64, u)
	for i := range dy {
		dz[i] = dy[i] * activationGrad(d.s.Activation, y[i])
	}
	floats.Add(d.bias.Grad, dz)

	dx := make([]float64, len(x))
	for i, xv := range x {
		floats.AddScaled(d.kernel.Grad[i*u:(i+1)*u], xv, dz)
		dx[i] = floats.Dot(d.kernelRow(i), dz)
	}
	return dx
}

// dropout 反向缩放 dropout，仅训练时生效
type dropout struct {
	s  LayerSpec
	in shape
}

func (d *dropout) spec() LayerSpec { return d.s }
func (d *dropout) params() []*Param { return nil }
func (d *dropout) outputShape() shape { return d.in }

func (d *dropout) forward(x []float64, training bool, rng *rand.Rand) ([]float64, any) {
	if !training || d.s.Rate == 0 || rng == nil {
		return x, nil
	}
	scale := 1 / (1 - d.s.Rate)
	mask := make([]float64, len(x))
	y := make([]float64, len(x))
	for i := range x {
		if rng.Float64() >= d.s.Rate {
			mask[i] = scale
			y[i] = x[i] * scale
		}
	}
	return y, mask
}

func (d *dropout) backward(cache any, dy []float64) []float64 {
	mask, ok := cache.([]float64)
	if !ok {
		return dy
	}
	dx := make([]float64, len(dy))
	for i := range dy {
		dx[i] = dy[i] * mask[i]
	}
	return dx
}

// isFinite 检查整段数据是否全部有限
func isFinite(xs []float64) bool {
	for _, v := range xs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
