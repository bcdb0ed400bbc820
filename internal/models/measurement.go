package models

import (
	"errors"
	"time"
)

// ErrMeasurementNotFound 测量记录不存在
var ErrMeasurementNotFound = errors.New("measurement not found")

// MeasurementRecord 一次完整测量的输出，交给持久化/下游
type MeasurementRecord struct {
	ID           string    `json:"measurement_id"`
	DeviceID     string    `json:"device_id"`
	Glucose      int       `json:"glucose"` // mg/dL
	BPM          int       `json:"bpm"`
	Confidence   float64   `json:"confidence"`
	IsCalibrated bool      `json:"is_calibrated"`
	RawSignal    []float64 `json:"raw_signal"` // 提取后的脉搏波，≤300
	CreatedAt    time.Time `json:"created_at"`
}
