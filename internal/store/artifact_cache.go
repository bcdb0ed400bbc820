package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/soraally1/glucovision/internal/models"
)

// ArtifactCache 模型快照的本地缓存，不设 TTL
// key: model:artifact:{model_key}
type ArtifactCache struct {
	kv     KV
	logger *zap.Logger
}

// NewArtifactCache 创建本地模型缓存
func NewArtifactCache(kv KV, logger *zap.Logger) *ArtifactCache {
	return &ArtifactCache{kv: kv, logger: logger}
}

func artifactKey(modelKey string) string {
	return "model:artifact:" + modelKey
}

// Load 读取缓存的模型快照，不存在时返回 models.ErrArtifactNotFound
func (c *ArtifactCache) Load(ctx context.Context, modelKey string) (*models.ModelArtifact, error) {
	raw, err := c.kv.Get(ctx, artifactKey(modelKey))
	if err != nil {
		if errors.Is(err, ErrMiss) {
			return nil, models.ErrArtifactNotFound
		}
		return nil, fmt.Errorf("failed to read cached artifact: %w", err)
	}

	var a models.ModelArtifact
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return nil, fmt.Errorf("failed to decode cached artifact: %w", err)
	}
	return &a, nil
}

// Save 写入模型快照（整体覆盖）
func (c *ArtifactCache) Save(ctx context.Context, a *models.ModelArtifact) error {
	if err := a.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}
	if err := c.kv.Set(ctx, artifactKey(a.Key), string(data), 0); err != nil {
		return fmt.Errorf("failed to cache artifact: %w", err)
	}

	c.logger.Debug("Cached model artifact",
		zap.String("model_key", a.Key),
		zap.Int64("revision", a.Revision),
		zap.Int("size_bytes", a.SizeBytes),
	)
	return nil
}
