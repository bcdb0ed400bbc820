package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseConfig_LoadFromEnv(t *testing.T) {
	os.Clearenv()
	defer os.Clearenv()

	c := DatabaseConfig{Host: "localhost", Port: 5432, SSLMode: "disable"}
	c.LoadFromEnv("DB")
	assert.Equal(t, "localhost", c.Host)
	assert.True(t, c.Enabled())

	os.Setenv("DB_HOST", "")
	os.Setenv("DB_PORT", "6543")
	os.Setenv("DB_PASSWORD", "pw")
	c.LoadFromEnv("DB")
	assert.False(t, c.Enabled())
	assert.Equal(t, 6543, c.Port)
	assert.Contains(t, c.GetDSN(), "password=pw")
	assert.Contains(t, c.GetDSNForLog(), "password=***")
}

func TestRedisAndMQTTConfig_LoadFromEnv(t *testing.T) {
	os.Clearenv()
	os.Setenv("REDIS_ADDR", "redis:6380")
	os.Setenv("REDIS_DB", "2")
	os.Setenv("MQTT_BROKER", "tcp://broker:1883")
	os.Setenv("MQTT_QOS", "2")
	defer os.Clearenv()

	var r RedisConfig
	r.LoadFromEnv("REDIS")
	assert.True(t, r.Enabled())
	assert.Equal(t, "redis:6380", r.Addr)
	assert.Equal(t, 2, r.DB)

	m := MQTTConfig{QoS: 1}
	m.LoadFromEnv("MQTT")
	assert.True(t, m.Enabled())
	assert.Equal(t, byte(2), m.QoS)
}
