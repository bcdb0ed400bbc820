package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/soraally1/glucovision/common/config"
)

// Config 血糖服务配置
type Config struct {
	Database config.DatabaseConfig // DB_HOST 为空时不启用归档与远端模型库
	Redis    config.RedisConfig
	MQTT     config.MQTTConfig // MQTT_BROKER 为空时只接受 HTTP 帧源

	Topics struct {
		Frame   string // ppg/+/frame
		Control string // ppg/+/control
	}

	HTTP struct {
		Addr string
	}

	// 心率检测远程配置
	HRConfig struct {
		URL     string // 为空则只用内置默认值
		Refresh time.Duration
		Timeout time.Duration
	}

	Model struct {
		Key            string
		Version        string
		Seed           uint64
		SyncTimeout    time.Duration
		WarmupExamples int
		WarmupEpochs   int
	}

	Session struct {
		SampleRate   float64
		DurationSec  int
		MinIntensity float64
		SelfTrain    bool
	}

	Cache struct {
		RealtimePrefix string
		RealtimeTTL    int // 秒
	}

	Stream struct {
		Measurement string
		MaxLen      int64
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置（.env 可选）
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	// 共享块：先给默认值，再由 LoadFromEnv 按前缀覆盖
	cfg.Database = config.DatabaseConfig{
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "glucovision",
		SSLMode:  "disable",
		MaxConns: 10,
		MaxIdle:  5,
	}
	cfg.Database.LoadFromEnv("DB")

	cfg.Redis = config.RedisConfig{Addr: "localhost:6379"}
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.MQTT = config.MQTTConfig{ClientID: "glucovision", QoS: 1}
	cfg.MQTT.LoadFromEnv("MQTT")

	cfg.Topics.Frame = getEnv("MQTT_FRAME_TOPIC", "ppg/+/frame")
	cfg.Topics.Control = getEnv("MQTT_CONTROL_TOPIC", "ppg/+/control")

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8090")

	cfg.HRConfig.URL = getEnv("HR_CONFIG_URL", "")
	cfg.HRConfig.Refresh = getEnvDuration("HR_CONFIG_REFRESH", 5*time.Minute)
	cfg.HRConfig.Timeout = getEnvDuration("HR_CONFIG_TIMEOUT", 5*time.Second)

	cfg.Model.Key = getEnv("MODEL_KEY", "glucovision-model-v1")
	cfg.Model.Version = getEnv("MODEL_VERSION", "v1")
	cfg.Model.Seed = uint64(getEnvInt("MODEL_SEED", 42))
	cfg.Model.SyncTimeout = getEnvDuration("MODEL_SYNC_TIMEOUT", 10*time.Second)
	cfg.Model.WarmupExamples = getEnvInt("WARMUP_EXAMPLES", 40)
	cfg.Model.WarmupEpochs = getEnvInt("WARMUP_EPOCHS", 5)

	cfg.Session.SampleRate = getEnvFloat("SAMPLE_RATE", 30)
	cfg.Session.DurationSec = getEnvInt("SESSION_DURATION_SEC", 10)
	cfg.Session.MinIntensity = getEnvFloat("SESSION_MIN_INTENSITY", 20)
	cfg.Session.SelfTrain = getEnvBool("SELF_TRAIN_ON_MEASURE", false)

	cfg.Cache.RealtimePrefix = getEnv("CACHE_REALTIME_PREFIX", "ppg:device:")
	cfg.Cache.RealtimeTTL = getEnvInt("CACHE_REALTIME_TTL", 30)

	cfg.Stream.Measurement = getEnv("MEASUREMENT_STREAM", "ppg:measurement:stream")
	cfg.Stream.MaxLen = int64(getEnvInt("MEASUREMENT_STREAM_MAXLEN", 10000))

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验取值范围
func (c *Config) Validate() error {
	if !c.Redis.Enabled() {
		return fmt.Errorf("REDIS_ADDR is required")
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("invalid MQTT_QOS %d", c.MQTT.QoS)
	}
	if c.Session.SampleRate <= 0 || c.Session.DurationSec <= 0 {
		return fmt.Errorf("invalid session config: sample rate %v, duration %ds", c.Session.SampleRate, c.Session.DurationSec)
	}
	if c.Model.Key == "" {
		return fmt.Errorf("MODEL_KEY is required")
	}
	if c.Model.WarmupExamples <= 0 || c.Model.WarmupEpochs <= 0 {
		return fmt.Errorf("invalid warmup config: %d examples, %d epochs", c.Model.WarmupExamples, c.Model.WarmupEpochs)
	}
	if c.HRConfig.URL != "" && c.HRConfig.Refresh <= 0 {
		return fmt.Errorf("HR_CONFIG_REFRESH must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration 支持 "30s" 形式，纯数字按秒处理
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
