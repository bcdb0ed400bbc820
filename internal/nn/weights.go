package nn

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"
)

// DTypeFloat64 权重数据类型
const DTypeFloat64 = "float64"

// ErrWeightMismatch 权重描述与模型拓扑不一致
var ErrWeightMismatch = errors.New("weights do not match model topology")

// WeightSpec 单个权重张量的描述，数据按顺序拼接在权重字节中
type WeightSpec struct {
	Name  string `json:"name"`
	Shape []int  `json:"shape"`
	DType string `json:"dtype"`
}

// EncodeWeights 导出权重：描述列表 + 小端 float64 字节
func (m *Model) EncodeWeights() ([]WeightSpec, []byte) {
	specs := make([]WeightSpec, 0, len(m.params))
	buf := make([]byte, 0, m.ParamCount()*8)
	for _, p := range m.params {
		specs = append(specs, WeightSpec{
			Name:  p.Name,
			Shape: slices.Clone(p.Shape),
			DType: DTypeFloat64,
		})
		for _, v := range p.Value {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
		}
	}
	return specs, buf
}

// LoadWeights 用导出的权重覆盖当前参数，全部校验通过后才写入
func (m *Model) LoadWeights(specs []WeightSpec, data []byte) error {
	if len(specs) != len(m.params) {
		return fmt.Errorf("%w: got %d tensors, want %d", ErrWeightMismatch, len(specs), len(m.params))
	}
	if len(data) != m.ParamCount()*8 {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrWeightMismatch, len(data), m.ParamCount()*8)
	}
	for i, s := range specs {
		p := m.params[i]
		if s.Name != p.Name || !slices.Equal(s.Shape, p.Shape) {
			return fmt.Errorf("%w: tensor %d is %s%v, want %s%v", ErrWeightMismatch, i, s.Name, s.Shape, p.Name, p.Shape)
		}
		if s.DType != "" && s.DType != DTypeFloat64 {
			return fmt.Errorf("%w: unsupported dtype %q", ErrWeightMismatch, s.DType)
		}
	}

	off := 0
	for _, p := range m.params {
		for i := range p.Value {
			p.Value[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[off:]))
			off += 8
		}
	}
	return nil
}

// Restore 根据拓扑和权重重建模型
func Restore(t Topology, specs []WeightSpec, data []byte, seed uint64) (*Model, error) {
	m, err := NewModel(t, seed)
	if err != nil {
		return nil, fmt.Errorf("failed to build model: %w", err)
	}
	if err := m.LoadWeights(specs, data); err != nil {
		return nil, err
	}
	return m, nil
}
