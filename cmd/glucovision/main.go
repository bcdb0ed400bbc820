package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/soraally1/glucovision/common/logger"
	"github.com/soraally1/glucovision/internal/config"
	"github.com/soraally1/glucovision/internal/service"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化Logger
	zapLogger, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "glucovision")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting glucovision service",
		zap.String("http_addr", cfg.HTTP.Addr),
		zap.String("model_key", cfg.Model.Key),
		zap.Bool("database", cfg.Database.Enabled()),
		zap.String("mqtt_broker", cfg.MQTT.Broker),
	)

	// 创建服务
	glucoseService, err := service.NewGlucoseService(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to create glucovision service", zap.Error(err))
	}

	// 启动服务
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := glucoseService.Start(ctx); err != nil {
		zapLogger.Fatal("Failed to start glucovision service", zap.Error(err))
	}

	// 等待中断信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	zapLogger.Info("Received signal, shutting down", zap.String("signal", sig.String()))

	// 优雅关闭
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := glucoseService.Stop(shutdownCtx); err != nil {
		zapLogger.Error("Error during shutdown", zap.Error(err))
	}

	zapLogger.Info("Service stopped")
}
