package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/soraally1/glucovision/internal/export"
	"github.com/soraally1/glucovision/internal/models"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

type MeasurementHandler struct {
	measurements MeasurementReader // 未启用数据库时为 nil
	logger       *zap.Logger
}

func NewMeasurementHandler(measurements MeasurementReader, logger *zap.Logger) *MeasurementHandler {
	return &MeasurementHandler{measurements: measurements, logger: logger}
}

func (h *MeasurementHandler) available(w http.ResponseWriter) bool {
	if h.measurements == nil {
		writeError(w, http.StatusServiceUnavailable, "measurement archive is not configured")
		return false
	}
	return true
}

func listLimit(r *http.Request) int {
	limit := parseInt(r.URL.Query().Get("limit"), defaultListLimit)
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// List GET /api/v1/measurements?device_id=&limit=
func (h *MeasurementHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	items, err := h.measurements.ListRecent(r.Context(), r.URL.Query().Get("device_id"), listLimit(r))
	if err != nil {
		h.logger.Error("Failed to list measurements", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list measurements")
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": items, "total": len(items)}))
}

// Get GET /api/v1/measurements/{id}
func (h *MeasurementHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	rec, err := h.measurements.GetByID(r.Context(), r.PathValue("id"))
	if errors.Is(err, models.ErrMeasurementNotFound) {
		writeError(w, http.StatusNotFound, "measurement not found")
		return
	}
	if err != nil {
		h.logger.Error("Failed to get measurement", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get measurement")
		return
	}
	writeJSON(w, http.StatusOK, Ok(rec))
}

// Export GET /api/v1/measurements/export?device_id=&limit=
func (h *MeasurementHandler) Export(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	items, err := h.measurements.ListRecent(r.Context(), r.URL.Query().Get("device_id"), listLimit(r))
	if err != nil {
		h.logger.Error("Failed to list measurements for export", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list measurements")
		return
	}
	data, err := export.MeasurementWorkbook(items)
	if err != nil {
		h.logger.Error("Failed to generate workbook", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to generate workbook")
		return
	}

	filename := fmt.Sprintf("measurements-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
