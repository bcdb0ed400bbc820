// Package trainer 管理唯一一份在线模型：加载、冷启动预热、串行训练和持久化同步
package trainer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/soraally1/glucovision/internal/metrics"
	"github.com/soraally1/glucovision/internal/models"
	"github.com/soraally1/glucovision/internal/nn"
)

// ArtifactStore 模型快照存储（远端 Postgres / 本地 Redis 缓存）
type ArtifactStore interface {
	Load(ctx context.Context, modelKey string) (*models.ModelArtifact, error)
	Save(ctx context.Context, a *models.ModelArtifact) error
}

// loadStrategy 初始化时按顺序尝试的加载方式
type loadStrategy struct {
	origin Origin
	load   func(ctx context.Context) (*nn.Model, *models.ModelArtifact, error)
	// loaded 成功后的收尾动作
	loaded func(ctx context.Context, a *models.ModelArtifact)
}

// Trainer 模型唯一写者
//
// Predict 持读锁并发执行；Train 由 inFlight 标志保证同一时刻最多一个，
// 修改权重期间持写锁。
type Trainer struct {
	cfg    Config
	remote ArtifactStore
	local  ArtifactStore
	logger *zap.Logger

	mu        sync.RWMutex
	model     *nn.Model
	revision  int64
	origin    Origin
	updatedAt time.Time

	state     atomic.Int32
	inFlight  atomic.Int32
	localOnly atomic.Bool
}

// NewTrainer 创建训练器；remote 为 nil 时直接工作在仅本地模式
func NewTrainer(cfg Config, remote, local ArtifactStore, logger *zap.Logger) *Trainer {
	if cfg.SyncTimeout <= 0 {
		cfg.SyncTimeout = DefaultConfig().SyncTimeout
	}
	if cfg.Topology.InputLength == 0 {
		cfg.Topology = nn.GlucoseTopology()
	}
	t := &Trainer{
		cfg:    cfg,
		remote: remote,
		local:  local,
		logger: logger,
	}
	if remote == nil {
		t.localOnly.Store(true)
	}
	return t
}

// State 当前状态
func (t *Trainer) State() State {
	return State(t.state.Load())
}

// InFlight 正在进行的训练数（0 或 1）
func (t *Trainer) InFlight() int {
	return int(t.inFlight.Load())
}

// LocalOnly 远端写入被拒绝后为 true
func (t *Trainer) LocalOnly() bool {
	return t.localOnly.Load()
}

// InputLength 模型输入长度
func (t *Trainer) InputLength() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.model != nil {
		return t.model.InputLength()
	}
	return t.cfg.Topology.InputLength
}

// Status 返回状态快照
func (t *Trainer) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := Status{
		ModelKey:         t.cfg.ModelKey,
		Version:          t.cfg.Version,
		State:            t.State(),
		Origin:           t.origin,
		Revision:         t.revision,
		LocalOnly:        t.LocalOnly(),
		TrainingInFlight: t.InFlight() > 0,
		UpdatedAt:        t.updatedAt,
	}
	if t.model != nil {
		s.ParamCount = t.model.ParamCount()
	}
	return s
}

// Initialize 依次尝试 远端 -> 本地缓存 -> 冷启动预热
// 失败后状态为 StateFailed，可再次调用重试
func (t *Trainer) Initialize(ctx context.Context) error {
	if !t.state.CompareAndSwap(int32(StateUninitialized), int32(StateLoading)) &&
		!t.state.CompareAndSwap(int32(StateFailed), int32(StateLoading)) {
		if t.State() == StateReady {
			return nil
		}
		return ErrAlreadyInitializing
	}

	for _, s := range t.loadStrategies() {
		if err := ctx.Err(); err != nil {
			t.state.Store(int32(StateUninitialized))
			return err
		}

		model, artifact, err := s.load(ctx)
		if errors.Is(err, errStaleRemote) {
			t.logger.Info("Local model cache is newer than remote, preferring local", zap.Error(err))
			continue
		}
		if err != nil {
			t.logger.Warn("Model load strategy failed",
				zap.String("origin", string(s.origin)),
				zap.Error(err),
			)
			continue
		}

		t.install(model, artifact, s.origin)
		metrics.ModelLoads.WithLabelValues(string(s.origin)).Inc()
		t.logger.Info("Model ready",
			zap.String("origin", string(s.origin)),
			zap.Int64("revision", artifact.Revision),
			zap.Int("param_count", model.ParamCount()),
		)
		if s.loaded != nil {
			s.loaded(ctx, artifact)
		}
		return nil
	}

	t.state.Store(int32(StateFailed))
	return errors.New("failed to initialize model from any source")
}

func (t *Trainer) loadStrategies() []loadStrategy {
	var strategies []loadStrategy
	if t.remote != nil {
		strategies = append(strategies, loadStrategy{
			origin: OriginRemote,
			load:   t.loadRemote,
			loaded: func(ctx context.Context, a *models.ModelArtifact) {
				// 远端不旧于本地时回填本地缓存
				if t.local == nil {
					return
				}
				if err := t.local.Save(ctx, a); err != nil {
					metrics.ModelSync.WithLabelValues("local", "error").Inc()
					t.logger.Warn("Failed to repopulate local model cache", zap.Error(err))
					return
				}
				metrics.ModelSync.WithLabelValues("local", "success").Inc()
			},
		})
	}
	if t.local != nil {
		strategies = append(strategies, loadStrategy{
			origin: OriginLocal,
			load:   t.loadFrom(t.local),
		})
	}
	return append(strategies, loadStrategy{
		origin: OriginWarmup,
		load:   t.warmup,
		loaded: func(ctx context.Context, a *models.ModelArtifact) {
			if err := t.SaveAndSync(ctx, a); err != nil {
				t.logger.Error("Failed to persist warmed-up model", zap.Error(err))
			}
		},
	})
}

// loadRemote 加载远端快照；本地缓存修订号更高时返回 errStaleRemote，
// 交给本地策略加载（仅本地模式下的训练不会被旧的远端副本覆盖）
func (t *Trainer) loadRemote(ctx context.Context) (*nn.Model, *models.ModelArtifact, error) {
	model, a, err := t.loadFrom(t.remote)(ctx)
	if err != nil || t.local == nil {
		return model, a, err
	}
	_, cached, lerr := t.loadFrom(t.local)(ctx)
	if lerr != nil {
		return model, a, nil
	}
	if cached.Revision > a.Revision {
		return nil, nil, fmt.Errorf("%w: remote revision %d, local revision %d", errStaleRemote, a.Revision, cached.Revision)
	}
	return model, a, nil
}

func (t *Trainer) loadFrom(store ArtifactStore) func(ctx context.Context) (*nn.Model, *models.ModelArtifact, error) {
	return func(ctx context.Context) (*nn.Model, *models.ModelArtifact, error) {
		a, err := store.Load(ctx, t.cfg.ModelKey)
		if err != nil {
			return nil, nil, err
		}
		model, err := restore(a, t.cfg.Seed)
		if err != nil {
			return nil, nil, err
		}
		return model, a, nil
	}
}

func restore(a *models.ModelArtifact, seed uint64) (*nn.Model, error) {
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("invalid artifact: %w", err)
	}
	top, err := nn.UnmarshalTopology(a.Topology)
	if err != nil {
		return nil, err
	}
	// 优化器状态不随快照持久化，恢复后的模型从新的 Adam 状态开始
	return nn.Restore(top, a.WeightSpecs, a.WeightData, seed)
}

// warmup 新建模型并用合成样本预热
func (t *Trainer) warmup(ctx context.Context) (*nn.Model, *models.ModelArtifact, error) {
	t.state.Store(int32(StateColdStart))
	t.logger.Info("No persisted model found, starting cold-start warmup",
		zap.Int("examples", t.cfg.WarmupExamples),
		zap.Int("epochs", t.cfg.WarmupEpochs),
	)

	model, err := nn.NewModel(t.cfg.Topology, t.cfg.Seed)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build model: %w", err)
	}

	n := max(t.cfg.WarmupExamples, 1)
	rng := rand.New(rand.NewPCG(t.cfg.Seed, 0x2545f4914f6cdd1d))
	xs, ys := SyntheticExamples(n, model.InputLength(), t.cfg.WarmupLabelMin, t.cfg.WarmupLabelMax, rng)

	// 输出偏置置为标签均值，避免随机权重给出离谱的初始预测
	model.SetOutputBias(stat.Mean(ys, nil))

	started := time.Now()
	res, err := model.Fit(xs, ys, nn.FitOptions{
		Epochs:    t.cfg.WarmupEpochs,
		BatchSize: t.cfg.WarmupBatchSize,
		Shuffle:   true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to run warmup: %w", err)
	}
	t.logger.Info("Warmup finished",
		zap.Float64("loss", res.Loss),
		zap.Float64("mae", res.MAE),
		zap.Duration("elapsed", time.Since(started)),
	)

	a, err := t.snapshot(model, 0)
	if err != nil {
		return nil, nil, err
	}
	return model, a, nil
}

func (t *Trainer) install(model *nn.Model, a *models.ModelArtifact, origin Origin) {
	t.mu.Lock()
	t.model = model
	t.revision = a.Revision
	t.origin = origin
	t.updatedAt = a.UpdatedAt
	t.mu.Unlock()

	metrics.ModelRevision.Set(float64(a.Revision))
	t.state.Store(int32(StateReady))
}

// Predict 单次前向传播
func (t *Trainer) Predict(ctx context.Context, signal []float64) (float64, error) {
	if t.State() != StateReady {
		return 0, ErrNotReady
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	v, err := t.model.Predict(signal)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return v, nil
}

// Train 单样本、单 epoch 在线训练，成功后同步持久化
// 已有训练进行中时直接返回 ErrTrainingInProgress（不排队）
func (t *Trainer) Train(ctx context.Context, signal []float64, label float64) (nn.FitResult, error) {
	if math.IsNaN(label) || math.IsInf(label, 0) || label <= 0 {
		return nn.FitResult{}, fmt.Errorf("%w: %v", ErrInvalidLabel, label)
	}
	if t.State() != StateReady {
		return nn.FitResult{}, ErrNotReady
	}
	if !t.inFlight.CompareAndSwap(0, 1) {
		return nn.FitResult{}, ErrTrainingInProgress
	}
	defer t.inFlight.Store(0)

	t.mu.Lock()
	res, err := t.model.Fit([][]float64{signal}, []float64{label}, nn.FitOptions{Epochs: 1, BatchSize: 1})
	if err != nil {
		t.mu.Unlock()
		return nn.FitResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	t.revision++
	artifact, err := t.snapshot(t.model, t.revision)
	if err == nil {
		t.updatedAt = artifact.UpdatedAt
	}
	t.mu.Unlock()
	if err != nil {
		return res, err
	}

	metrics.ModelRevision.Set(float64(artifact.Revision))
	t.logger.Debug("Training step finished",
		zap.Int64("revision", artifact.Revision),
		zap.Float64("label", label),
		zap.Float64("loss", res.Loss),
	)

	if err := t.SaveAndSync(ctx, artifact); err != nil {
		t.logger.Error("Failed to persist trained model", zap.Error(err))
	}
	return res, nil
}

// SaveAndSync 先无条件写本地缓存，再尝试远端写入
// 远端拒绝写入时切换到仅本地模式，不作为错误返回
func (t *Trainer) SaveAndSync(ctx context.Context, a *models.ModelArtifact) error {
	var localErr error
	if t.local != nil {
		if err := t.local.Save(ctx, a); err != nil {
			metrics.ModelSync.WithLabelValues("local", "error").Inc()
			localErr = fmt.Errorf("failed to save local model cache: %w", err)
		} else {
			metrics.ModelSync.WithLabelValues("local", "success").Inc()
		}
	}

	if t.remote == nil || t.localOnly.Load() {
		metrics.ModelSync.WithLabelValues("remote", "skipped").Inc()
		return localErr
	}

	syncCtx, cancel := context.WithTimeout(ctx, t.cfg.SyncTimeout)
	defer cancel()

	err := t.remote.Save(syncCtx, a)
	switch {
	case err == nil:
		metrics.ModelSync.WithLabelValues("remote", "success").Inc()
	case errors.Is(err, models.ErrPermissionDenied):
		t.localOnly.Store(true)
		metrics.ModelSync.WithLabelValues("remote", "denied").Inc()
		t.logger.Warn("Remote model store denied write, switching to local-only mode",
			zap.String("model_key", a.Key),
			zap.Error(err),
		)
	default:
		metrics.ModelSync.WithLabelValues("remote", "error").Inc()
		t.logger.Warn("Remote model sync failed",
			zap.String("model_key", a.Key),
			zap.Int64("revision", a.Revision),
			zap.Error(err),
		)
	}
	return localErr
}

// Snapshot 当前模型的完整快照
func (t *Trainer) Snapshot() (*models.ModelArtifact, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.model == nil {
		return nil, ErrNotReady
	}
	return t.snapshot(t.model, t.revision)
}

func (t *Trainer) snapshot(model *nn.Model, revision int64) (*models.ModelArtifact, error) {
	top, err := nn.MarshalTopology(model.Topology())
	if err != nil {
		return nil, err
	}
	specs, data := model.EncodeWeights()
	return &models.ModelArtifact{
		Key:         t.cfg.ModelKey,
		Version:     t.cfg.Version,
		Revision:    revision,
		Topology:    top,
		WeightSpecs: specs,
		WeightData:  data,
		SizeBytes:   len(data),
		UpdatedAt:   time.Now().UTC(),
	}, nil
}
