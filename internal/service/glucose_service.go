package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/soraally1/glucovision/common/database"
	mqttcommon "github.com/soraally1/glucovision/common/mqtt"
	rediscommon "github.com/soraally1/glucovision/common/redis"
	"github.com/soraally1/glucovision/internal/config"
	"github.com/soraally1/glucovision/internal/consumer"
	"github.com/soraally1/glucovision/internal/heartrate"
	"github.com/soraally1/glucovision/internal/hrconfig"
	"github.com/soraally1/glucovision/internal/httpapi"
	"github.com/soraally1/glucovision/internal/inference"
	"github.com/soraally1/glucovision/internal/repository"
	"github.com/soraally1/glucovision/internal/session"
	"github.com/soraally1/glucovision/internal/store"
	"github.com/soraally1/glucovision/internal/trainer"
)

// GlucoseService 血糖服务
type GlucoseService struct {
	config     *config.Config
	logger     *zap.Logger
	db         *sql.DB
	redis      *redis.Client
	mqttClient *mqttcommon.Client

	trainer   *trainer.Trainer
	sessions  *session.Manager
	consumer  *consumer.MQTTConsumer
	refresher *hrconfig.Refresher
	server    *Server

	wg sync.WaitGroup
}

// NewGlucoseService 创建血糖服务
// Postgres 与 MQTT 可选；Redis 必需（本地模型缓存）
func NewGlucoseService(cfg *config.Config, logger *zap.Logger) (*GlucoseService, error) {
	s := &GlucoseService{config: cfg, logger: logger}

	// 初始化数据库
	var (
		remote       trainer.ArtifactStore
		measurements httpapi.MeasurementReader
		sinks        []session.Sink
	)
	if cfg.Database.Enabled() {
		db, err := database.NewPostgresDB(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := database.Migrate(db); err != nil {
			database.Close(db)
			return nil, err
		}
		s.db = db
		logger.Info("Connected to database", zap.String("dsn", cfg.Database.GetDSNForLog()))

		remote = repository.NewModelArtifactRepository(db, logger)
		measurementRepo := repository.NewMeasurementRepository(db, logger)
		measurements = measurementRepo
		sinks = append(sinks, session.NewArchiveSink(measurementRepo))
	} else {
		logger.Warn("Database not configured, running without durable model store and archive")
	}

	// 初始化Redis
	s.redis = rediscommon.NewRedisClient(&cfg.Redis)
	if err := rediscommon.Ping(context.Background(), s.redis); err != nil {
		s.closeStores()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	kv := store.NewRedisKV(s.redis)
	local := store.NewArtifactCache(kv, logger)
	realtime := store.NewRealtimeCache(kv, cfg.Cache.RealtimePrefix, time.Duration(cfg.Cache.RealtimeTTL)*time.Second, logger)
	sinks = append(sinks, session.NewStreamSink(s.redis, cfg.Stream.Measurement, cfg.Stream.MaxLen))

	// 模型与推理
	trainerCfg := trainer.DefaultConfig()
	trainerCfg.ModelKey = cfg.Model.Key
	trainerCfg.Version = cfg.Model.Version
	trainerCfg.Seed = cfg.Model.Seed
	trainerCfg.SyncTimeout = cfg.Model.SyncTimeout
	trainerCfg.WarmupExamples = cfg.Model.WarmupExamples
	trainerCfg.WarmupEpochs = cfg.Model.WarmupEpochs
	s.trainer = trainer.NewTrainer(trainerCfg, remote, local, logger)

	detector := heartrate.NewDetector(heartrate.DefaultConfig())
	glucose := inference.NewInference(s.trainer, inference.DefaultPolicy(), logger)

	// 测量会话
	sessionCfg := session.DefaultConfig()
	sessionCfg.SampleRate = cfg.Session.SampleRate
	sessionCfg.DurationSec = cfg.Session.DurationSec
	sessionCfg.MinIntensity = cfg.Session.MinIntensity
	sessionCfg.SelfTrain = cfg.Session.SelfTrain
	s.sessions = session.NewManager(sessionCfg, detector, glucose, logger,
		session.WithSinks(sinks...),
		session.WithRealtime(realtime),
	)

	// 远程心率配置
	if cfg.HRConfig.URL != "" {
		client := hrconfig.NewClient(cfg.HRConfig.URL, cfg.HRConfig.Timeout, logger)
		s.refresher = hrconfig.NewRefresher(client, detector, cfg.HRConfig.Refresh, logger)
	}

	// 初始化MQTT
	if cfg.MQTT.Enabled() {
		mqttClient, err := mqttcommon.NewClient(&cfg.MQTT, logger)
		if err != nil {
			s.closeStores()
			return nil, fmt.Errorf("failed to connect to MQTT: %w", err)
		}
		s.mqttClient = mqttClient
		s.consumer = consumer.NewMQTTConsumer(consumer.Topics{
			Frame:   cfg.Topics.Frame,
			Control: cfg.Topics.Control,
			QoS:     cfg.MQTT.QoS,
		}, mqttClient, s.sessions, logger)
	}

	// HTTP
	router := httpapi.NewRouter(logger)
	router.RegisterSystemRoutes(s.trainer)
	router.RegisterGlucoseRoutes(httpapi.NewGlucoseHandler(glucose, s.trainer, measurements, cfg.Session.SampleRate, logger))
	router.RegisterHeartRateRoutes(httpapi.NewHeartRateHandler(detector, realtime, cfg.Session.SampleRate, logger))
	router.RegisterSessionRoutes(httpapi.NewSessionHandler(s.sessions, logger))
	router.RegisterMeasurementRoutes(httpapi.NewMeasurementHandler(measurements, logger))
	s.server = NewServer(cfg.HTTP.Addr, router, logger)

	return s, nil
}

// Start 启动服务，各组件在后台运行直到 ctx 取消
func (s *GlucoseService) Start(ctx context.Context) error {
	s.logger.Info("Starting glucovision service components")

	// 模型加载/冷启动在后台完成，期间预测走兜底
	s.goRun(func() {
		if err := s.trainer.Initialize(ctx); err != nil {
			s.logger.Error("Model initialization failed", zap.Error(err))
		}
	})

	if s.refresher != nil {
		s.goRun(func() { s.refresher.Run(ctx) })
	}

	if s.consumer != nil {
		s.goRun(func() {
			if err := s.consumer.Start(ctx); err != nil {
				s.logger.Error("MQTT consumer stopped with error", zap.Error(err))
			}
		})
	}

	s.goRun(func() {
		if err := s.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server failed", zap.Error(err))
		}
	})

	s.logger.Info("Glucovision service started successfully")
	return nil
}

func (s *GlucoseService) goRun(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// Stop 停止服务
func (s *GlucoseService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping glucovision service")

	if err := s.server.Stop(ctx); err != nil {
		s.logger.Error("Error stopping HTTP server", zap.Error(err))
	}

	if s.consumer != nil {
		if err := s.consumer.Stop(ctx); err != nil {
			s.logger.Error("Error stopping consumer", zap.Error(err))
		}
	}
	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}

	// 等待进行中的测量完成任务；冷启动预热不响应取消，最多等到 ctx 截止
	s.sessions.Close()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("Background tasks did not finish before shutdown deadline")
	}

	s.closeStores()
	s.logger.Info("Glucovision service stopped")
	return nil
}

func (s *GlucoseService) closeStores() {
	if s.redis != nil {
		if err := rediscommon.Close(s.redis); err != nil {
			s.logger.Error("Error closing redis", zap.Error(err))
		}
	}
	if s.db != nil {
		if err := database.Close(s.db); err != nil {
			s.logger.Error("Error closing database", zap.Error(err))
		}
	}
}
