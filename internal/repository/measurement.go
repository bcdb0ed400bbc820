package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/soraally1/glucovision/internal/models"
)

// MeasurementRepository 测量归档（measurements 表）
type MeasurementRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMeasurementRepository 创建测量归档仓库
func NewMeasurementRepository(db *sql.DB, logger *zap.Logger) *MeasurementRepository {
	return &MeasurementRepository{
		db:     db,
		logger: logger,
	}
}

// Insert 写入一条测量记录
func (r *MeasurementRepository) Insert(ctx context.Context, rec *models.MeasurementRecord) error {
	query := `
		INSERT INTO measurements (measurement_id, device_id, glucose, bpm, confidence, is_calibrated, raw_signal, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.DeviceID, rec.Glucose, rec.BPM, rec.Confidence, rec.IsCalibrated,
		pq.Array(rec.RawSignal), rec.CreatedAt,
	)
	if err != nil {
		return mapPQError(fmt.Errorf("failed to insert measurement: %w", err))
	}
	return nil
}

const measurementColumns = `measurement_id, device_id, glucose, bpm, confidence, is_calibrated, raw_signal, created_at`

// GetByID 按 ID 读取
func (r *MeasurementRepository) GetByID(ctx context.Context, id string) (*models.MeasurementRecord, error) {
	query := `SELECT ` + measurementColumns + ` FROM measurements WHERE measurement_id = $1`

	rec, err := scanMeasurement(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrMeasurementNotFound
		}
		return nil, fmt.Errorf("failed to query measurement: %w", err)
	}
	return rec, nil
}

// ListRecent 按时间倒序列出，deviceID 为空时不过滤
func (r *MeasurementRepository) ListRecent(ctx context.Context, deviceID string, limit int) ([]*models.MeasurementRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	var (
		rows *sql.Rows
		err  error
	)
	if deviceID == "" {
		query := `SELECT ` + measurementColumns + ` FROM measurements ORDER BY created_at DESC LIMIT $1`
		rows, err = r.db.QueryContext(ctx, query, limit)
	} else {
		query := `SELECT ` + measurementColumns + ` FROM measurements WHERE device_id = $1 ORDER BY created_at DESC LIMIT $2`
		rows, err = r.db.QueryContext(ctx, query, deviceID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list measurements: %w", err)
	}
	defer rows.Close()

	var out []*models.MeasurementRecord
	for rows.Next() {
		rec, err := scanMeasurement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan measurement: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate measurements: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeasurement(row rowScanner) (*models.MeasurementRecord, error) {
	var (
		rec    models.MeasurementRecord
		signal pq.Float64Array
	)
	if err := row.Scan(
		&rec.ID, &rec.DeviceID, &rec.Glucose, &rec.BPM, &rec.Confidence, &rec.IsCalibrated, &signal, &rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	rec.RawSignal = []float64(signal)
	return &rec, nil
}
