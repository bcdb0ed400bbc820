package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	// 清除环境变量
	os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.False(t, cfg.Database.Enabled())
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "glucovision", cfg.Database.Database)
	assert.Equal(t, "disable", cfg.Database.SSLMode)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 0, cfg.Redis.DB)

	assert.False(t, cfg.MQTT.Enabled())
	assert.Equal(t, "ppg/+/frame", cfg.Topics.Frame)
	assert.Equal(t, "ppg/+/control", cfg.Topics.Control)

	assert.Equal(t, ":8090", cfg.HTTP.Addr)
	assert.Equal(t, "", cfg.HRConfig.URL)
	assert.Equal(t, 5*time.Minute, cfg.HRConfig.Refresh)

	assert.Equal(t, "glucovision-model-v1", cfg.Model.Key)
	assert.Equal(t, "v1", cfg.Model.Version)
	assert.Equal(t, 10*time.Second, cfg.Model.SyncTimeout)
	assert.Equal(t, 40, cfg.Model.WarmupExamples)
	assert.Equal(t, 5, cfg.Model.WarmupEpochs)

	assert.Equal(t, 30.0, cfg.Session.SampleRate)
	assert.Equal(t, 10, cfg.Session.DurationSec)
	assert.Equal(t, 20.0, cfg.Session.MinIntensity)
	assert.False(t, cfg.Session.SelfTrain)

	assert.Equal(t, "ppg:device:", cfg.Cache.RealtimePrefix)
	assert.Equal(t, 30, cfg.Cache.RealtimeTTL)
	assert.Equal(t, "ppg:measurement:stream", cfg.Stream.Measurement)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	os.Clearenv()
	os.Setenv("DB_HOST", "pg")
	os.Setenv("DB_PORT", "6543")
	os.Setenv("REDIS_ADDR", "test-redis:6380")
	os.Setenv("MQTT_BROKER", "tcp://broker:1883")
	os.Setenv("HR_CONFIG_URL", "http://config/heart-rate")
	os.Setenv("HR_CONFIG_REFRESH", "90")
	os.Setenv("MODEL_SYNC_TIMEOUT", "2s")
	os.Setenv("MODEL_SEED", "7")
	os.Setenv("SELF_TRAIN_ON_MEASURE", "true")
	os.Setenv("SESSION_DURATION_SEC", "5")
	os.Setenv("LOG_LEVEL", "debug")
	defer os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Database.Enabled())
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "test-redis:6380", cfg.Redis.Addr)
	assert.True(t, cfg.MQTT.Enabled())
	assert.Equal(t, "http://config/heart-rate", cfg.HRConfig.URL)
	assert.Equal(t, 90*time.Second, cfg.HRConfig.Refresh)
	assert.Equal(t, 2*time.Second, cfg.Model.SyncTimeout)
	assert.Equal(t, uint64(7), cfg.Model.Seed)
	assert.True(t, cfg.Session.SelfTrain)
	assert.Equal(t, 5, cfg.Session.DurationSec)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_InvalidValues(t *testing.T) {
	os.Clearenv()
	os.Setenv("SAMPLE_RATE", "-1")
	defer os.Clearenv()

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_SharedBlocksFromEnv(t *testing.T) {
	os.Clearenv()
	os.Setenv("DB_HOST", "pg")
	os.Setenv("DB_PASSWORD", "secret")
	os.Setenv("DB_MAX_IDLE", "2")
	os.Setenv("REDIS_DB", "3")
	os.Setenv("MQTT_QOS", "0")
	os.Setenv("MQTT_CLIENT_ID", "gv-2")
	defer os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Database.MaxIdle)
	assert.Equal(t, 10, cfg.Database.MaxConns)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, byte(0), cfg.MQTT.QoS)
	assert.Equal(t, "gv-2", cfg.MQTT.ClientID)
	assert.NotContains(t, cfg.Database.GetDSNForLog(), "secret")
}

func TestLoad_RedisRequired(t *testing.T) {
	os.Clearenv()
	os.Setenv("REDIS_ADDR", "")
	defer os.Clearenv()

	_, err := Load()
	assert.Error(t, err)
}

func TestGetEnvHelpers(t *testing.T) {
	os.Clearenv()
	defer os.Clearenv()

	assert.Equal(t, "default-value", getEnv("TEST_KEY", "default-value"))
	os.Setenv("TEST_KEY", "custom")
	assert.Equal(t, "custom", getEnv("TEST_KEY", "default-value"))

	os.Setenv("TEST_INT", "abc")
	assert.Equal(t, 3, getEnvInt("TEST_INT", 3))

	os.Setenv("TEST_FLOAT", "1.5")
	assert.Equal(t, 1.5, getEnvFloat("TEST_FLOAT", 0))

	os.Setenv("TEST_BOOL", "nope")
	assert.True(t, getEnvBool("TEST_BOOL", true))

	os.Setenv("TEST_DURATION", "bad")
	assert.Equal(t, time.Minute, getEnvDuration("TEST_DURATION", time.Minute))
}
