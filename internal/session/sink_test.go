package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soraally1/glucovision/internal/models"
)

type recordingWriter struct {
	recs []*models.MeasurementRecord
}

func (w *recordingWriter) Insert(ctx context.Context, rec *models.MeasurementRecord) error {
	w.recs = append(w.recs, rec)
	return nil
}

func TestArchiveSink(t *testing.T) {
	w := &recordingWriter{}
	rec := &models.MeasurementRecord{ID: "m-1"}
	require.NoError(t, NewArchiveSink(w).Save(context.Background(), rec))
	assert.Equal(t, []*models.MeasurementRecord{rec}, w.recs)
}

func TestStreamSink_PublishesRecord(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	rec := &models.MeasurementRecord{
		ID:           "m-1",
		DeviceID:     "dev-1",
		Glucose:      101,
		BPM:          70,
		Confidence:   88.4,
		IsCalibrated: true,
		RawSignal:    []float64{0.01, -0.02},
		CreatedAt:    time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	sink := NewStreamSink(client, "ppg:measurement:stream", 1000)
	require.NoError(t, sink.Save(context.Background(), rec))

	msgs, err := client.XRange(context.Background(), "ppg:measurement:stream", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	var got models.MeasurementRecord
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["data"].(string)), &got))
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.RawSignal, got.RawSignal)
	assert.True(t, got.IsCalibrated)
}
