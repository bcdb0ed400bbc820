// Package inference 血糖预测门面：输入整形、离群混合和模型不可用时的兜底
package inference

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/soraally1/glucovision/internal/metrics"
	"github.com/soraally1/glucovision/internal/nn"
	"github.com/soraally1/glucovision/internal/trainer"
)

// Model 门面依赖的模型能力（由 trainer.Trainer 实现）
type Model interface {
	Predict(ctx context.Context, signal []float64) (float64, error)
	Train(ctx context.Context, signal []float64, label float64) (nn.FitResult, error)
	InputLength() int
}

// Option 可选项
type Option func(*Inference)

// WithRand 替换 [0,1) 随机源（测试用）
func WithRand(fn func() float64) Option {
	return func(g *Inference) { g.rand = fn }
}

// Inference 血糖推理门面，Predict 永不返回错误
type Inference struct {
	model  Model
	policy Policy
	rand   func() float64
	logger *zap.Logger
}

// NewInference 创建推理门面
func NewInference(model Model, policy Policy, logger *zap.Logger, opts ...Option) *Inference {
	g := &Inference{
		model:  model,
		policy: policy,
		rand:   rand.Float64,
		logger: logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Prepare 补零或截断到 length
func Prepare(signal []float64, length int) []float64 {
	out := make([]float64, length)
	copy(out, signal)
	return out
}

// Predict 预测血糖
func (g *Inference) Predict(ctx context.Context, signal []float64, heartRate float64) Result {
	started := time.Now()
	res := g.predict(ctx, signal, heartRate)
	metrics.PredictionLatency.Observe(time.Since(started).Seconds())
	metrics.Predictions.WithLabelValues(string(res.Source)).Inc()
	return res
}

func (g *Inference) predict(ctx context.Context, signal []float64, heartRate float64) Result {
	input := Prepare(signal, g.model.InputLength())
	if !usable(input) {
		g.logger.Warn("Signal is flat or non-finite, using fallback", zap.Int("samples", len(signal)))
		return g.fallback()
	}

	raw, err := g.model.Predict(ctx, input)
	if err != nil {
		if errors.Is(err, trainer.ErrNotReady) {
			g.logger.Warn("Model not ready, using fallback")
		} else {
			g.logger.Error("Inference failed, using fallback", zap.Error(err))
		}
		return g.fallback()
	}
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		g.logger.Error("Model produced non-finite output, using fallback")
		return g.fallback()
	}

	p := g.policy
	confidence := p.ConfidenceBase + g.rand()*p.ConfidenceJitter
	if raw >= p.MinPlausible && raw <= p.MaxPlausible {
		return Result{Glucose: int(math.Round(raw)), Confidence: confidence, Source: SourceModel}
	}

	heuristic := p.HeuristicCenter + (g.rand()*2-1)*p.HeuristicJitter
	blended := raw*p.ModelWeight + heuristic*(1-p.ModelWeight)
	blended = math.Max(p.MinPlausible, math.Min(p.MaxPlausible, blended))
	g.logger.Warn("Model predicted outlier, blending with heuristic",
		zap.Float64("raw", raw),
		zap.Float64("blended", blended),
		zap.Float64("heart_rate", heartRate),
	)
	return Result{Glucose: int(math.Round(blended)), Confidence: confidence, Source: SourceBlended}
}

func (g *Inference) fallback() Result {
	p := g.policy
	v := p.FallbackCenter + (g.rand()*2-1)*p.FallbackJitter
	return Result{
		Glucose:    int(math.Round(v)),
		Confidence: p.FallbackConfidence,
		Source:     SourceFallback,
	}
}

// Learn 用确认的血糖值训练一步，失败只记录日志
func (g *Inference) Learn(ctx context.Context, signal []float64, label float64) LearnOutcome {
	input := Prepare(signal, g.model.InputLength())

	started := time.Now()
	res, err := g.model.Train(ctx, input, label)
	outcome := LearnTrained
	switch {
	case err == nil:
		metrics.TrainingLatency.Observe(time.Since(started).Seconds())
		g.logger.Info("Model learned from confirmed measurement",
			zap.Float64("label", label),
			zap.Float64("loss", res.Loss),
		)
	case errors.Is(err, trainer.ErrTrainingInProgress):
		outcome = LearnSkipped
		g.logger.Warn("Training already in progress, dropping example", zap.Float64("label", label))
	case errors.Is(err, trainer.ErrNotReady):
		outcome = LearnNotReady
		g.logger.Warn("Model not ready, dropping example", zap.Float64("label", label))
	default:
		outcome = LearnFailed
		g.logger.Error("Learning failed", zap.Float64("label", label), zap.Error(err))
	}
	metrics.TrainingSteps.WithLabelValues(string(outcome)).Inc()
	return outcome
}

// usable 信号有限且不是常数
func usable(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return len(x) > 0 && floats.Max(x) > floats.Min(x)
}
