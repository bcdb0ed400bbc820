package httpapi

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/soraally1/glucovision/internal/models"
	"github.com/soraally1/glucovision/internal/session"
)

// SessionController 测量会话（session.Manager）
type SessionController interface {
	Start(deviceID string) (session.Snapshot, error)
	Stop(deviceID string) (session.Snapshot, error)
	Get(deviceID string) (session.Snapshot, error)
	PushFrame(ctx context.Context, deviceID string, intensity float64) (session.Snapshot, error)
}

type SessionHandler struct {
	sessions SessionController
	logger   *zap.Logger
}

func NewSessionHandler(sessions SessionController, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, logger: logger}
}

func (h *SessionHandler) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNoSession):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrNotCollecting):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrInvalidDevice):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("Session operation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "session operation failed")
	}
}

// Start POST /api/v1/sessions/{device_id}/start
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.Start(r.PathValue("device_id"))
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(snap))
}

// Stop POST /api/v1/sessions/{device_id}/stop
func (h *SessionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.Stop(r.PathValue("device_id"))
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(snap))
}

// Get GET /api/v1/sessions/{device_id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.Get(r.PathValue("device_id"))
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(snap))
}

// PushFrames POST /api/v1/sessions/{device_id}/frames
// 请求体与 MQTT 帧消息相同：{"intensity": x} 或 {"intensities": [...]}
func (h *SessionHandler) PushFrames(w http.ResponseWriter, r *http.Request) {
	var msg models.FrameMessage
	if err := readBodyJSON(r, maxBodyBytes, &msg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	values := msg.Values()
	if len(values) == 0 {
		writeError(w, http.StatusBadRequest, "intensity is required")
		return
	}

	deviceID := r.PathValue("device_id")
	var snap session.Snapshot
	for _, v := range values {
		var err error
		snap, err = h.sessions.PushFrame(r.Context(), deviceID, v)
		if err != nil {
			h.writeSessionError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, Ok(snap))
}
