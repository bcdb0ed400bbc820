package redis

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishJSONToStream(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	payload := map[string]interface{}{"glucose": 104, "device_id": "dev-1"}

	id, err := PublishJSONToStream(ctx, client, "ppg:measurement:stream", 0, payload)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	msgs, err := client.XRange(ctx, "ppg:measurement:stream", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	raw, ok := msgs[0].Values["data"].(string)
	require.True(t, ok)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	assert.Equal(t, "dev-1", decoded["device_id"])
	assert.Equal(t, float64(104), decoded["glucose"])
	assert.NotEmpty(t, msgs[0].Values["timestamp"])
}

func TestPublishToStream_StringifiesValues(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	_, err := PublishToStream(ctx, client, "s", 0, map[string]interface{}{
		"bpm":        72,
		"confidence": 91.5,
		"calibrated": true,
		"signal":     []float64{0.1, 0.2},
	})
	require.NoError(t, err)

	msgs, err := client.XRange(ctx, "s", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "72", msgs[0].Values["bpm"])
	assert.Equal(t, "91.5", msgs[0].Values["confidence"])
	assert.Equal(t, "true", msgs[0].Values["calibrated"])
	assert.Equal(t, "[0.1,0.2]", msgs[0].Values["signal"])
}
