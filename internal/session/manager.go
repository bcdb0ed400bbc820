// Package session 测量会话：逐帧提取脉搏波、周期评估心率，采满后后台完成血糖推理并输出记录
package session

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/soraally1/glucovision/internal/heartrate"
	"github.com/soraally1/glucovision/internal/inference"
	"github.com/soraally1/glucovision/internal/metrics"
	"github.com/soraally1/glucovision/internal/models"
	"github.com/soraally1/glucovision/internal/store"
)

var (
	// ErrNoSession 设备没有会话
	ErrNoSession = errors.New("no measurement session for device")
	// ErrNotCollecting 会话已不在采集状态
	ErrNotCollecting = errors.New("measurement session is not collecting")
	// ErrInvalidDevice 设备 ID 为空
	ErrInvalidDevice = errors.New("device id is required")
)

// HeartRateEstimator 心率估计（heartrate.Detector）
type HeartRateEstimator interface {
	Process(buffer []float64, fs float64) heartrate.Estimate
}

// Predictor 血糖推理（inference.Inference）
type Predictor interface {
	Predict(ctx context.Context, signal []float64, heartRate float64) inference.Result
	Learn(ctx context.Context, signal []float64, label float64) inference.LearnOutcome
}

// RealtimePublisher 实时心率输出（store.RealtimeCache）
type RealtimePublisher interface {
	Put(ctx context.Context, hr store.RealtimeHeartRate) error
}

// Option 可选项
type Option func(*Manager)

// WithSinks 测量记录输出
func WithSinks(sinks ...Sink) Option {
	return func(m *Manager) { m.sinks = append(m.sinks, sinks...) }
}

// WithRealtime 实时心率缓存
func WithRealtime(p RealtimePublisher) Option {
	return func(m *Manager) { m.realtime = p }
}

// Manager 按设备管理测量会话
type Manager struct {
	cfg       Config
	detector  HeartRateEstimator
	predictor Predictor
	sinks     []Sink
	realtime  RealtimePublisher
	logger    *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session

	// 后台完成任务
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager 创建会话管理器
func NewManager(cfg Config, detector HeartRateEstimator, predictor Predictor, logger *zap.Logger, opts ...Option) *Manager {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultConfig().SampleRate
	}
	if cfg.DurationSec <= 0 {
		cfg.DurationSec = DefaultConfig().DurationSec
	}
	if cfg.EvalEvery <= 0 {
		cfg.EvalEvery = DefaultConfig().EvalEvery
	}
	if cfg.FinishTimeout <= 0 {
		cfg.FinishTimeout = DefaultConfig().FinishTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:       cfg,
		detector:  detector,
		predictor: predictor,
		logger:    logger,
		sessions:  make(map[string]*Session),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start 开始新的测量，同一设备正在采集的旧会话直接丢弃
func (m *Manager) Start(deviceID string) (Snapshot, error) {
	if deviceID == "" {
		return Snapshot{}, ErrInvalidDevice
	}
	sess := newSession(uuid.NewString(), deviceID, m.cfg.TotalSamples(), m.cfg.SampleRate)

	m.mu.Lock()
	if old, ok := m.sessions[deviceID]; ok {
		old.mu.Lock()
		if old.state == StateCollecting {
			old.state = StateStopped
			old.buffer = nil
			metrics.ActiveSessions.Dec()
			metrics.Sessions.WithLabelValues("stopped").Inc()
		}
		old.mu.Unlock()
	}
	m.sessions[deviceID] = sess
	m.mu.Unlock()

	metrics.ActiveSessions.Inc()
	m.logger.Info("Measurement started",
		zap.String("device_id", deviceID),
		zap.String("session_id", sess.id),
	)
	return sess.Snapshot(), nil
}

// Stop 取消测量，丢弃缓冲区，不保存任何部分结果
func (m *Manager) Stop(deviceID string) (Snapshot, error) {
	sess, err := m.get(deviceID)
	if err != nil {
		return Snapshot{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.state != StateCollecting {
		return sess.snapshotLocked(), ErrNotCollecting
	}
	sess.state = StateStopped
	sess.buffer = sess.buffer[:0]

	metrics.ActiveSessions.Dec()
	metrics.Sessions.WithLabelValues("stopped").Inc()
	m.logger.Info("Measurement stopped",
		zap.String("device_id", deviceID),
		zap.String("session_id", sess.id),
	)
	return sess.snapshotLocked(), nil
}

// Get 返回设备当前（或最近一次）会话
func (m *Manager) Get(deviceID string) (Snapshot, error) {
	sess, err := m.get(deviceID)
	if err != nil {
		return Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

func (m *Manager) get(deviceID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[deviceID]
	if !ok {
		return nil, ErrNoSession
	}
	return sess, nil
}

// PushFrame 处理一帧原始亮度
// 同一会话的帧串行处理；采满后在后台完成推理
func (m *Manager) PushFrame(ctx context.Context, deviceID string, intensity float64) (Snapshot, error) {
	sess, err := m.get(deviceID)
	if err != nil {
		return Snapshot{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.state != StateCollecting {
		return sess.snapshotLocked(), ErrNotCollecting
	}

	// 手指未覆盖或亮度越界：暂停进度，不进入归一化窗口
	if !validIntensity(intensity, m.cfg.MinIntensity) {
		sess.fingerDetected = false
		return sess.snapshotLocked(), nil
	}
	sess.fingerDetected = true

	v := sess.extractor.Process(intensity)
	sess.lastSignal = v
	sess.buffer = append(sess.buffer, v)

	n := len(sess.buffer)
	if n%m.cfg.EvalEvery == 0 && n >= m.cfg.EvalMinSamples {
		m.evaluateHeartRate(ctx, sess)
	}

	if n >= sess.total {
		sess.state = StateFinishing
		signal := append([]float64(nil), sess.buffer...)
		bpm := sess.bpm
		if bpm <= 0 {
			bpm = m.cfg.DefaultBPM
		}

		m.wg.Add(1)
		go m.finish(sess, signal, bpm)
	}
	return sess.snapshotLocked(), nil
}

// evaluateHeartRate 调用方持有 sess.mu
func (m *Manager) evaluateHeartRate(ctx context.Context, sess *Session) {
	est := m.detector.Process(sess.buffer, m.cfg.SampleRate)
	switch {
	case est.BPM == 0:
		metrics.HeartRateEvaluations.WithLabelValues("no_pulse").Inc()
		return
	case est.Confidence <= m.cfg.ConfidenceGate:
		metrics.HeartRateEvaluations.WithLabelValues("low_confidence").Inc()
		return
	}
	metrics.HeartRateEvaluations.WithLabelValues("accepted").Inc()

	sess.bpm = int(math.Round(est.BPM))
	sess.confidence = est.Confidence

	if m.realtime == nil {
		return
	}
	hr := store.RealtimeHeartRate{
		DeviceID:   sess.deviceID,
		SessionID:  sess.id,
		BPM:        sess.bpm,
		Confidence: est.Confidence,
		Progress:   100 * float64(len(sess.buffer)) / float64(sess.total),
		Timestamp:  time.Now().Unix(),
	}
	if err := m.realtime.Put(ctx, hr); err != nil {
		m.logger.Warn("Failed to publish realtime heart rate",
			zap.String("device_id", sess.deviceID),
			zap.Error(err),
		)
	}
}

// finish 后台：推理 -> 可选自训练 -> 输出记录
func (m *Manager) finish(sess *Session, signal []float64, bpm int) {
	defer m.wg.Done()

	ctx, cancel := context.WithTimeout(m.ctx, m.cfg.FinishTimeout)
	defer cancel()

	res := m.predictor.Predict(ctx, signal, float64(bpm))
	if m.cfg.SelfTrain && res.IsCalibrated() {
		m.predictor.Learn(ctx, signal, float64(res.Glucose))
	}

	rec := &models.MeasurementRecord{
		ID:           sess.id,
		DeviceID:     sess.deviceID,
		Glucose:      res.Glucose,
		BPM:          bpm,
		Confidence:   res.Confidence,
		IsCalibrated: res.IsCalibrated(),
		RawSignal:    signal,
		CreatedAt:    time.Now().UTC(),
	}

	outcome := "completed"
	for _, sink := range m.sinks {
		if err := sink.Save(ctx, rec); err != nil {
			outcome = "failed"
			m.logger.Error("Failed to hand off measurement",
				zap.String("sink", sink.Name()),
				zap.String("session_id", sess.id),
				zap.Error(err),
			)
		}
	}

	sess.mu.Lock()
	sess.state = StateCompleted
	sess.result = rec
	sess.mu.Unlock()

	metrics.ActiveSessions.Dec()
	metrics.Sessions.WithLabelValues(outcome).Inc()
	m.logger.Info("Measurement completed",
		zap.String("device_id", sess.deviceID),
		zap.String("session_id", sess.id),
		zap.Int("glucose", rec.Glucose),
		zap.Int("bpm", rec.BPM),
		zap.String("source", string(res.Source)),
	)
}

// Wait 等待所有后台任务结束
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Close 取消后台任务并等待退出
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
}

func validIntensity(v, minIntensity float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return v > minIntensity && v <= MaxIntensity
}
