// Package hrconfig 拉取远程心率检测配置并整体替换到检测器
package hrconfig

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/soraally1/glucovision/internal/heartrate"
)

// Client 远程配置客户端
type Client struct {
	httpClient *resty.Client
	url        string
	logger     *zap.Logger
}

// NewClient 创建配置客户端
func NewClient(url string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: client,
		url:        url,
		logger:     logger,
	}
}

// Fetch 拉取 {detection, validation} 文档
// 每次都以硬编码默认值为底解码，缺失字段取默认值，不与上一次结果合并
func (c *Client) Fetch(ctx context.Context) (heartrate.Config, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		Get(c.url)
	if err != nil {
		return heartrate.Config{}, fmt.Errorf("failed to fetch heart rate config: %w", err)
	}
	if resp.IsError() {
		return heartrate.Config{}, fmt.Errorf("heart rate config endpoint returned %d", resp.StatusCode())
	}

	cfg := heartrate.DefaultConfig()
	if err := json.Unmarshal(resp.Body(), &cfg); err != nil {
		return heartrate.Config{}, fmt.Errorf("failed to decode heart rate config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return heartrate.Config{}, fmt.Errorf("invalid heart rate config: %w", err)
	}
	return cfg, nil
}
