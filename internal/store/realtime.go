package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RealtimeHeartRate 设备最新的可信心率
type RealtimeHeartRate struct {
	DeviceID   string  `json:"device_id"`
	SessionID  string  `json:"session_id"`
	BPM        int     `json:"bpm"`
	Confidence float64 `json:"confidence"`
	Progress   float64 `json:"progress"`
	Timestamp  int64   `json:"timestamp"`
}

// RealtimeCache 实时心率缓存
// key: {prefix}{device_id}:realtime
type RealtimeCache struct {
	kv     KV
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRealtimeCache 创建实时心率缓存
func NewRealtimeCache(kv KV, prefix string, ttl time.Duration, logger *zap.Logger) *RealtimeCache {
	return &RealtimeCache{kv: kv, prefix: prefix, ttl: ttl, logger: logger}
}

func (c *RealtimeCache) key(deviceID string) string {
	return fmt.Sprintf("%s%s:realtime", c.prefix, deviceID)
}

// Put 写入（覆盖）设备最新心率
func (c *RealtimeCache) Put(ctx context.Context, hr RealtimeHeartRate) error {
	data, err := json.Marshal(hr)
	if err != nil {
		return fmt.Errorf("failed to marshal heart rate: %w", err)
	}
	if err := c.kv.Set(ctx, c.key(hr.DeviceID), string(data), c.ttl); err != nil {
		return fmt.Errorf("failed to set realtime cache: %w", err)
	}
	return nil
}

// Get 读取设备最新心率，过期或不存在时返回 ErrMiss
func (c *RealtimeCache) Get(ctx context.Context, deviceID string) (*RealtimeHeartRate, error) {
	raw, err := c.kv.Get(ctx, c.key(deviceID))
	if err != nil {
		if errors.Is(err, ErrMiss) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("failed to get realtime cache: %w", err)
	}
	var hr RealtimeHeartRate
	if err := json.Unmarshal([]byte(raw), &hr); err != nil {
		return nil, fmt.Errorf("failed to decode realtime cache: %w", err)
	}
	return &hr, nil
}
