package models

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/soraally1/glucovision/internal/nn"
)

var (
	// ErrArtifactNotFound 存储中没有该模型
	ErrArtifactNotFound = errors.New("model artifact not found")
	// ErrPermissionDenied 远端存储拒绝写入（进入仅本地模式）
	ErrPermissionDenied = errors.New("permission denied")
)

// ModelArtifact 模型持久化单元：拓扑 + 权重描述 + 权重字节 + 版本
// 每次训练后整体替换，不做增量修改
type ModelArtifact struct {
	Key         string          `json:"model_key"`
	Version     string          `json:"version"`
	Revision    int64           `json:"revision"`
	Topology    json.RawMessage `json:"topology"`
	WeightSpecs []nn.WeightSpec `json:"weight_specs"`
	WeightData  []byte          `json:"weight_data"` // JSON 中为 base64
	SizeBytes   int             `json:"size_bytes"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Validate 检查必需字段
func (a *ModelArtifact) Validate() error {
	if a == nil {
		return &DataFormatError{Message: "artifact is nil"}
	}
	if a.Key == "" {
		return &DataFormatError{Message: "artifact key is empty"}
	}
	if len(a.Topology) == 0 {
		return &DataFormatError{Message: "artifact topology is empty"}
	}
	if len(a.WeightSpecs) == 0 || len(a.WeightData) == 0 {
		return &DataFormatError{Message: "artifact has no weights"}
	}
	return nil
}

// DataFormatError 数据格式错误类型
type DataFormatError struct {
	Message string
}

func (e *DataFormatError) Error() string {
	return e.Message
}
