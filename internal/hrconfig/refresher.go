package hrconfig

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/soraally1/glucovision/internal/heartrate"
	"github.com/soraally1/glucovision/internal/metrics"
)

// Fetcher 配置来源
type Fetcher interface {
	Fetch(ctx context.Context) (heartrate.Config, error)
}

// Applier 配置接收方（heartrate.Detector）
type Applier interface {
	UpdateConfig(cfg heartrate.Config)
	Config() heartrate.Config
}

// Refresher 周期性拉取配置；失败时保留当前快照
type Refresher struct {
	fetcher  Fetcher
	target   Applier
	interval time.Duration
	logger   *zap.Logger
}

// NewRefresher 创建刷新器
func NewRefresher(fetcher Fetcher, target Applier, interval time.Duration, logger *zap.Logger) *Refresher {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Refresher{
		fetcher:  fetcher,
		target:   target,
		interval: interval,
		logger:   logger,
	}
}

// RefreshOnce 拉取一次，返回是否替换了配置
func (r *Refresher) RefreshOnce(ctx context.Context) bool {
	cfg, err := r.fetcher.Fetch(ctx)
	if err != nil {
		metrics.ConfigRefresh.WithLabelValues("error").Inc()
		r.logger.Warn("Failed to refresh heart rate config, keeping current", zap.Error(err))
		return false
	}
	if cfg == r.target.Config() {
		metrics.ConfigRefresh.WithLabelValues("unchanged").Inc()
		return false
	}

	r.target.UpdateConfig(cfg)
	metrics.ConfigRefresh.WithLabelValues("applied").Inc()
	r.logger.Info("Applied heart rate config",
		zap.Float64("min_bpm", cfg.Detection.MinBPM),
		zap.Float64("max_bpm", cfg.Detection.MaxBPM),
		zap.Int("smoothing_window", cfg.Detection.SmoothingWindow),
		zap.Int("refractory_period_frames", cfg.Detection.RefractoryPeriodFrames),
	)
	return true
}

// Run 立即拉取一次，之后按间隔刷新，直到 ctx 取消
func (r *Refresher) Run(ctx context.Context) {
	r.RefreshOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RefreshOnce(ctx)
		}
	}
}
