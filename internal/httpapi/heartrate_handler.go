package httpapi

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/soraally1/glucovision/internal/heartrate"
	"github.com/soraally1/glucovision/internal/store"
)

// HeartRateEstimator 心率检测（heartrate.Detector）
type HeartRateEstimator interface {
	Process(buffer []float64, fs float64) heartrate.Estimate
	Config() heartrate.Config
}

// RealtimeReader 实时心率缓存（store.RealtimeCache）
type RealtimeReader interface {
	Get(ctx context.Context, deviceID string) (*store.RealtimeHeartRate, error)
}

type HeartRateHandler struct {
	detector   HeartRateEstimator
	realtime   RealtimeReader
	sampleRate float64
	logger     *zap.Logger
}

func NewHeartRateHandler(detector HeartRateEstimator, realtime RealtimeReader, sampleRate float64, logger *zap.Logger) *HeartRateHandler {
	return &HeartRateHandler{
		detector:   detector,
		realtime:   realtime,
		sampleRate: sampleRate,
		logger:     logger,
	}
}

type estimateRequest struct {
	Signal     []float64 `json:"signal"`
	SampleRate float64   `json:"sample_rate"`
	Raw        bool      `json:"raw"`
}

// Estimate POST /api/v1/heart-rate/estimate
func (h *HeartRateHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	var req estimateRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Signal) == 0 {
		writeError(w, http.StatusBadRequest, "signal is required")
		return
	}
	fs := req.SampleRate
	if fs <= 0 {
		fs = h.sampleRate
	}
	signal := req.Signal
	if req.Raw {
		signal = extractPulse(signal, fs)
	}
	writeJSON(w, http.StatusOK, Ok(h.detector.Process(signal, fs)))
}

// GetConfig GET /api/v1/heart-rate/config
func (h *HeartRateHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(h.detector.Config()))
}

// GetRealtime GET /api/v1/heart-rate/realtime/{device_id}
func (h *HeartRateHandler) GetRealtime(w http.ResponseWriter, r *http.Request) {
	if h.realtime == nil {
		writeError(w, http.StatusServiceUnavailable, "realtime cache is not configured")
		return
	}
	hr, err := h.realtime.Get(r.Context(), r.PathValue("device_id"))
	if errors.Is(err, store.ErrMiss) {
		writeError(w, http.StatusNotFound, "no recent heart rate")
		return
	}
	if err != nil {
		h.logger.Error("Failed to read realtime heart rate", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read realtime heart rate")
		return
	}
	writeJSON(w, http.StatusOK, Ok(hr))
}
