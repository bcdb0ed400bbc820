package httpapi

import (
	"context"
	"errors"
	"math"
	"net/http"

	"go.uber.org/zap"

	"github.com/soraally1/glucovision/internal/inference"
	"github.com/soraally1/glucovision/internal/models"
	"github.com/soraally1/glucovision/internal/ppg"
	"github.com/soraally1/glucovision/internal/trainer"
)

// GlucoseService 推理门面（inference.Inference）
type GlucoseService interface {
	Predict(ctx context.Context, signal []float64, heartRate float64) inference.Result
	Learn(ctx context.Context, signal []float64, label float64) inference.LearnOutcome
}

// ModelStatusProvider 模型状态（trainer.Trainer）
type ModelStatusProvider interface {
	Status() trainer.Status
}

// MeasurementReader 测量归档（repository.MeasurementRepository）
type MeasurementReader interface {
	GetByID(ctx context.Context, id string) (*models.MeasurementRecord, error)
	ListRecent(ctx context.Context, deviceID string, limit int) ([]*models.MeasurementRecord, error)
}

// GlucoseHandler 血糖预测/学习
type GlucoseHandler struct {
	glucose      GlucoseService
	model        ModelStatusProvider
	measurements MeasurementReader // 未启用数据库时为 nil
	sampleRate   float64
	logger       *zap.Logger
}

func NewGlucoseHandler(glucose GlucoseService, model ModelStatusProvider, measurements MeasurementReader, sampleRate float64, logger *zap.Logger) *GlucoseHandler {
	return &GlucoseHandler{
		glucose:      glucose,
		model:        model,
		measurements: measurements,
		sampleRate:   sampleRate,
		logger:       logger,
	}
}

type predictRequest struct {
	Signal    []float64 `json:"signal"`
	HeartRate float64   `json:"heart_rate"`
	// Raw 为 true 时 signal 是原始亮度，先做脉搏提取
	Raw bool `json:"raw"`
}

type learnRequest struct {
	Signal        []float64 `json:"signal"`
	Raw           bool      `json:"raw"`
	MeasurementID string    `json:"measurement_id"`
	Glucose       float64   `json:"glucose"`
}

type learnResponse struct {
	Outcome       inference.LearnOutcome `json:"outcome"`
	MeasurementID string                 `json:"measurement_id,omitempty"`
}

// extractPulse 原始亮度序列转脉搏波
func extractPulse(raw []float64, fs float64) []float64 {
	e := ppg.NewExtractor(fs)
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = e.Process(v)
	}
	return out
}

// Predict POST /api/v1/glucose/predict
func (h *GlucoseHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Signal) == 0 {
		writeError(w, http.StatusBadRequest, "signal is required")
		return
	}
	signal := req.Signal
	if req.Raw {
		signal = extractPulse(signal, h.sampleRate)
	}
	writeJSON(w, http.StatusOK, Ok(h.glucose.Predict(r.Context(), signal, req.HeartRate)))
}

// Learn POST /api/v1/glucose/learn
// 信号可直接给出，也可引用已归档的 measurement_id
func (h *GlucoseHandler) Learn(w http.ResponseWriter, r *http.Request) {
	var req learnRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Glucose <= 0 || math.IsNaN(req.Glucose) || math.IsInf(req.Glucose, 0) {
		writeError(w, http.StatusBadRequest, "glucose must be a positive number")
		return
	}

	signal := req.Signal
	switch {
	case req.MeasurementID != "":
		if h.measurements == nil {
			writeError(w, http.StatusServiceUnavailable, "measurement archive is not configured")
			return
		}
		rec, err := h.measurements.GetByID(r.Context(), req.MeasurementID)
		if errors.Is(err, models.ErrMeasurementNotFound) {
			writeError(w, http.StatusNotFound, "measurement not found")
			return
		}
		if err != nil {
			h.logger.Error("Failed to load measurement", zap.String("measurement_id", req.MeasurementID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to load measurement")
			return
		}
		signal = rec.RawSignal
	case len(signal) == 0:
		writeError(w, http.StatusBadRequest, "signal or measurement_id is required")
		return
	case req.Raw:
		signal = extractPulse(signal, h.sampleRate)
	}

	outcome := h.glucose.Learn(r.Context(), signal, req.Glucose)
	resp := learnResponse{Outcome: outcome, MeasurementID: req.MeasurementID}
	if outcome == inference.LearnTrained {
		writeJSON(w, http.StatusOK, Ok(resp))
		return
	}

	status := http.StatusInternalServerError
	switch outcome {
	case inference.LearnSkipped:
		status = http.StatusConflict
	case inference.LearnNotReady:
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, Result[learnResponse]{
		Code:    ResultError,
		Type:    "warning",
		Message: "training example was not applied",
		Result:  resp,
	})
}

// ModelStatus GET /api/v1/model/status
func (h *GlucoseHandler) ModelStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(h.model.Status()))
}
