package repository

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/soraally1/glucovision/internal/models"
)

// SQLSTATE insufficient_privilege
const pqInsufficientPrivilege = "42501"

// ModelArtifactRepository 远端持久模型存储（model_artifacts 表）
type ModelArtifactRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewModelArtifactRepository 创建模型存储
func NewModelArtifactRepository(db *sql.DB, logger *zap.Logger) *ModelArtifactRepository {
	return &ModelArtifactRepository{
		db:     db,
		logger: logger,
	}
}

// Load 读取指定 key 的模型
func (r *ModelArtifactRepository) Load(ctx context.Context, modelKey string) (*models.ModelArtifact, error) {
	query := `
		SELECT model_key, version, revision, topology, weight_specs, weight_data, size_bytes, updated_at
		FROM model_artifacts
		WHERE model_key = $1
	`

	var (
		a        models.ModelArtifact
		topology []byte
		specsRaw []byte
		encoded  string
	)
	err := r.db.QueryRowContext(ctx, query, modelKey).Scan(
		&a.Key, &a.Version, &a.Revision, &topology, &specsRaw, &encoded, &a.SizeBytes, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrArtifactNotFound
		}
		return nil, mapPQError(fmt.Errorf("failed to query model artifact: %w", err))
	}

	a.Topology = json.RawMessage(topology)
	if err := json.Unmarshal(specsRaw, &a.WeightSpecs); err != nil {
		return nil, fmt.Errorf("failed to decode weight specs: %w", err)
	}
	if a.WeightData, err = base64.StdEncoding.DecodeString(encoded); err != nil {
		return nil, fmt.Errorf("failed to decode weight data: %w", err)
	}
	return &a, nil
}

// Save 写入或覆盖模型
func (r *ModelArtifactRepository) Save(ctx context.Context, a *models.ModelArtifact) error {
	if err := a.Validate(); err != nil {
		return err
	}
	specs, err := json.Marshal(a.WeightSpecs)
	if err != nil {
		return fmt.Errorf("failed to marshal weight specs: %w", err)
	}

	query := `
		INSERT INTO model_artifacts (model_key, version, revision, topology, weight_specs, weight_data, size_bytes, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (model_key) DO UPDATE SET
			version = EXCLUDED.version,
			revision = EXCLUDED.revision,
			topology = EXCLUDED.topology,
			weight_specs = EXCLUDED.weight_specs,
			weight_data = EXCLUDED.weight_data,
			size_bytes = EXCLUDED.size_bytes,
			updated_at = EXCLUDED.updated_at
	`
	_, err = r.db.ExecContext(ctx, query,
		a.Key, a.Version, a.Revision, []byte(a.Topology), specs,
		base64.StdEncoding.EncodeToString(a.WeightData), a.SizeBytes, a.UpdatedAt,
	)
	if err != nil {
		return mapPQError(fmt.Errorf("failed to upsert model artifact: %w", err))
	}

	r.logger.Debug("Saved model artifact",
		zap.String("model_key", a.Key),
		zap.Int64("revision", a.Revision),
	)
	return nil
}

// mapPQError 权限错误映射为 models.ErrPermissionDenied
func mapPQError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pqInsufficientPrivilege {
		return fmt.Errorf("%w: %s", models.ErrPermissionDenied, pqErr.Message)
	}
	return err
}
