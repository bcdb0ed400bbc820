package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FrameMessage 帧源消息，topic: ppg/{device_id}/frame
// 支持单帧 intensity 或批量 intensities
type FrameMessage struct {
	DeviceID    string    `json:"device_id,omitempty"`
	Intensity   *float64  `json:"intensity,omitempty"`
	Intensities []float64 `json:"intensities,omitempty"`
	Timestamp   int64     `json:"timestamp,omitempty"`
}

// Values 按顺序返回本条消息携带的亮度值
func (m *FrameMessage) Values() []float64 {
	if m.Intensity != nil {
		return append([]float64{*m.Intensity}, m.Intensities...)
	}
	return m.Intensities
}

// 会话控制动作
const (
	ControlStart = "start"
	ControlStop  = "stop"
)

// ControlMessage 会话控制，topic: ppg/{device_id}/control
type ControlMessage struct {
	DeviceID string `json:"device_id,omitempty"`
	Action   string `json:"action"`
}

// ParseFrameMessage 解析帧消息
func ParseFrameMessage(payload []byte) (*FrameMessage, error) {
	var m FrameMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, fmt.Errorf("failed to parse frame message: %w", err)
	}
	if len(m.Values()) == 0 {
		return nil, &DataFormatError{Message: "frame message has no intensity"}
	}
	return &m, nil
}

// ParseControlMessage 解析控制消息
func ParseControlMessage(payload []byte) (*ControlMessage, error) {
	var m ControlMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, fmt.Errorf("failed to parse control message: %w", err)
	}
	m.Action = strings.ToLower(strings.TrimSpace(m.Action))
	if m.Action != ControlStart && m.Action != ControlStop {
		return nil, &DataFormatError{Message: fmt.Sprintf("unknown control action %q", m.Action)}
	}
	return &m, nil
}

// DeviceIDFromTopic 从 ppg/{device_id}/xxx 中取设备 ID
func DeviceIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[len(parts)-2]
}
