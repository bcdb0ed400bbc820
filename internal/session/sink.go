package session

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	rediscommon "github.com/soraally1/glucovision/common/redis"
	"github.com/soraally1/glucovision/internal/models"
)

// Sink 测量记录的外部持久化/下游
type Sink interface {
	Name() string
	Save(ctx context.Context, rec *models.MeasurementRecord) error
}

// MeasurementWriter 测量归档（repository.MeasurementRepository）
type MeasurementWriter interface {
	Insert(ctx context.Context, rec *models.MeasurementRecord) error
}

// ArchiveSink 写入 Postgres measurements 表
type ArchiveSink struct {
	repo MeasurementWriter
}

func NewArchiveSink(repo MeasurementWriter) *ArchiveSink {
	return &ArchiveSink{repo: repo}
}

func (s *ArchiveSink) Name() string { return "archive" }

func (s *ArchiveSink) Save(ctx context.Context, rec *models.MeasurementRecord) error {
	return s.repo.Insert(ctx, rec)
}

// StreamSink 发布到 Redis Stream，供下游数据集收集
type StreamSink struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewStreamSink(client *redis.Client, stream string, maxLen int64) *StreamSink {
	return &StreamSink{client: client, stream: stream, maxLen: maxLen}
}

func (s *StreamSink) Name() string { return "stream" }

func (s *StreamSink) Save(ctx context.Context, rec *models.MeasurementRecord) error {
	if _, err := rediscommon.PublishJSONToStream(ctx, s.client, s.stream, s.maxLen, rec); err != nil {
		return fmt.Errorf("failed to publish measurement to %s: %w", s.stream, err)
	}
	return nil
}
