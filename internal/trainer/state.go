package trainer

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotReady 模型尚未就绪
	ErrNotReady = errors.New("model is not ready")
	// ErrTrainingInProgress 已有训练在进行，本次样本被丢弃
	ErrTrainingInProgress = errors.New("training already in progress")
	// ErrInvalidInput 输入信号长度或数值非法
	ErrInvalidInput = errors.New("invalid input signal")
	// ErrInvalidLabel 标签非正数或非有限值
	ErrInvalidLabel = errors.New("invalid label")
	// ErrAlreadyInitializing Initialize 重复调用
	ErrAlreadyInitializing = errors.New("trainer is already initializing")

	errStaleRemote = errors.New("remote model is older than local cache")
)

// State 模型生命周期状态
type State int32

const (
	StateUninitialized State = iota
	StateLoading
	StateColdStart
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateColdStart:
		return "cold_start"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText 以字符串形式输出到 JSON
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText 解析 MarshalText 输出的状态名
func (s *State) UnmarshalText(text []byte) error {
	for v := StateUninitialized; v <= StateFailed; v++ {
		if v.String() == string(text) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown model state %q", text)
}

// Origin 当前权重的来源
type Origin string

const (
	OriginNone   Origin = ""
	OriginRemote Origin = "remote"
	OriginLocal  Origin = "local"
	OriginWarmup Origin = "warmup"
)

// Status 模型状态快照
type Status struct {
	ModelKey         string    `json:"model_key"`
	Version          string    `json:"version"`
	State            State     `json:"state"`
	Origin           Origin    `json:"origin"`
	Revision         int64     `json:"revision"`
	LocalOnly        bool      `json:"local_only"`
	TrainingInFlight bool      `json:"training_in_flight"`
	ParamCount       int       `json:"param_count"`
	UpdatedAt        time.Time `json:"updated_at,omitempty"`
}
