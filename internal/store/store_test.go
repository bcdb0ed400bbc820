package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/soraally1/glucovision/internal/models"
	"github.com/soraally1/glucovision/internal/nn"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *RedisKV) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisKV(client)
}

func TestRedisKV_GetMiss(t *testing.T) {
	_, kv := setupRedis(t)
	_, err := kv.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestArtifactCache_RoundTrip(t *testing.T) {
	mr, kv := setupRedis(t)
	cache := NewArtifactCache(kv, zap.NewNop())
	ctx := context.Background()

	_, err := cache.Load(ctx, "glucovision-model-v1")
	assert.ErrorIs(t, err, models.ErrArtifactNotFound)

	a := &models.ModelArtifact{
		Key:         "glucovision-model-v1",
		Version:     "v1",
		Revision:    3,
		Topology:    json.RawMessage(`{"input_length":300}`),
		WeightSpecs: []nn.WeightSpec{{Name: "dense_2/bias", Shape: []int{1}, DType: nn.DTypeFloat64}},
		WeightData:  []byte{0, 0, 0, 0, 0, 0, 0xf0, 0x3f},
		SizeBytes:   8,
		UpdatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, cache.Save(ctx, a))

	// 无 TTL
	assert.Equal(t, time.Duration(0), mr.TTL("model:artifact:glucovision-model-v1"))

	got, err := cache.Load(ctx, "glucovision-model-v1")
	require.NoError(t, err)
	assert.Equal(t, a.WeightData, got.WeightData)
	assert.Equal(t, a.Revision, got.Revision)
	assert.True(t, a.UpdatedAt.Equal(got.UpdatedAt))
	assert.JSONEq(t, string(a.Topology), string(got.Topology))
}

func TestArtifactCache_RejectsInvalid(t *testing.T) {
	_, kv := setupRedis(t)
	cache := NewArtifactCache(kv, zap.NewNop())
	assert.Error(t, cache.Save(context.Background(), &models.ModelArtifact{Key: "k"}))
}

func TestArtifactCache_CorruptValue(t *testing.T) {
	mr, kv := setupRedis(t)
	require.NoError(t, mr.Set("model:artifact:k", "{broken"))

	_, err := NewArtifactCache(kv, zap.NewNop()).Load(context.Background(), "k")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrArtifactNotFound)
}

func TestRealtimeCache_PutGetExpire(t *testing.T) {
	mr, kv := setupRedis(t)
	cache := NewRealtimeCache(kv, "ppg:device:", 30*time.Second, zap.NewNop())
	ctx := context.Background()

	hr := RealtimeHeartRate{DeviceID: "dev-1", BPM: 72, Confidence: 91.5, Progress: 40}
	require.NoError(t, cache.Put(ctx, hr))
	assert.Equal(t, 30*time.Second, mr.TTL("ppg:device:dev-1:realtime"))

	got, err := cache.Get(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, hr, *got)

	mr.FastForward(31 * time.Second)
	_, err = cache.Get(ctx, "dev-1")
	assert.ErrorIs(t, err, ErrMiss)
}
