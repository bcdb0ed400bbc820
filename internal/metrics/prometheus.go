// Package metrics 服务的 Prometheus 指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Predictions 血糖预测次数，source: model/blended/fallback
	Predictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glucovision_predictions_total",
			Help: "Total number of glucose predictions by result source",
		},
		[]string{"source"},
	)

	// PredictionLatency 预测耗时
	PredictionLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "glucovision_prediction_latency_seconds",
			Help:    "Glucose prediction latency in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	// TrainingSteps 在线训练结果，outcome: trained/skipped/not_ready/failed
	TrainingSteps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glucovision_training_steps_total",
			Help: "Total number of online training requests by outcome",
		},
		[]string{"outcome"},
	)

	// TrainingLatency 单步训练耗时
	TrainingLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "glucovision_training_latency_seconds",
			Help:    "Online training step latency in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	// ModelSync 模型同步结果，target: local/remote，status: success/error/denied/skipped
	ModelSync = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glucovision_model_sync_total",
			Help: "Total number of model artifact writes",
		},
		[]string{"target", "status"},
	)

	// ModelRevision 当前模型修订号
	ModelRevision = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "glucovision_model_revision",
			Help: "Revision of the live model artifact",
		},
	)

	// ModelLoads 模型初始化来源，origin: remote/local/warmup
	ModelLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glucovision_model_loads_total",
			Help: "Total number of model initializations by origin",
		},
		[]string{"origin"},
	)

	// HeartRateEvaluations 心率评估，status: accepted/low_confidence/no_pulse
	HeartRateEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glucovision_heart_rate_evaluations_total",
			Help: "Total number of heart rate evaluations by status",
		},
		[]string{"status"},
	)

	// Sessions 测量会话结束，outcome: completed/stopped/failed
	Sessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glucovision_sessions_total",
			Help: "Total number of measurement sessions by outcome",
		},
		[]string{"outcome"},
	)

	// ActiveSessions 进行中的会话数
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "glucovision_active_sessions",
			Help: "Number of measurement sessions in progress",
		},
	)

	// ConfigRefresh 远程心率配置拉取，status: applied/unchanged/invalid/error
	ConfigRefresh = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glucovision_hr_config_refresh_total",
			Help: "Total number of remote heart rate config fetches by status",
		},
		[]string{"status"},
	)

	// RequestsTotal HTTP 请求数
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glucovision_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
)
