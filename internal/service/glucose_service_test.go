package service

import (
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/soraally1/glucovision/internal/config"
	"github.com/soraally1/glucovision/internal/trainer"
)

func testConfig(t *testing.T, redisAddr string) *config.Config {
	t.Helper()
	os.Clearenv()
	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.Redis.Addr = redisAddr
	cfg.HTTP.Addr = "127.0.0.1:0"
	return cfg
}

func TestNewGlucoseService_WithoutDatabaseAndMQTT(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t, mr.Addr())
	cfg.HRConfig.URL = "http://127.0.0.1:1/heart-rate"

	s, err := NewGlucoseService(cfg, zap.NewNop())
	require.NoError(t, err)
	defer s.closeStores()

	assert.Nil(t, s.db)
	assert.Nil(t, s.mqttClient)
	assert.Nil(t, s.consumer)
	assert.NotNil(t, s.refresher)
	assert.NotNil(t, s.server)

	// 无远端模型库时直接处于仅本地模式
	assert.True(t, s.trainer.LocalOnly())
	assert.Equal(t, trainer.StateUninitialized, s.trainer.State())
}

func TestNewGlucoseService_RedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewGlucoseService(testConfig(t, addr), zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}
