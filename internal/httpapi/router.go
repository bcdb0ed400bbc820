package httpapi

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/soraally1/glucovision/internal/metrics"
)

// Router 使用标准库 http.ServeMux（方法+路径模式）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler 支持 http.Handler 接口（用于 /metrics）
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	r.mux.ServeHTTP(rec, req)

	endpoint := req.Pattern
	if endpoint == "" {
		endpoint = "unmatched"
	}
	metrics.RequestsTotal.WithLabelValues(req.Method, endpoint, strconv.Itoa(rec.status)).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// RegisterSystemRoutes /healthz 与 /metrics
func (r *Router) RegisterSystemRoutes(model ModelStatusProvider) {
	r.Handle("GET /healthz", func(w http.ResponseWriter, req *http.Request) {
		body := map[string]any{"status": "ok"}
		if model != nil {
			body["model_state"] = model.Status().State
		}
		writeJSON(w, http.StatusOK, Ok(body))
	})
	r.HandleHandler("GET /metrics", promhttp.Handler())
}

// RegisterGlucoseRoutes 预测、学习与模型状态
func (r *Router) RegisterGlucoseRoutes(h *GlucoseHandler) {
	r.Handle("POST /api/v1/glucose/predict", h.Predict)
	r.Handle("POST /api/v1/glucose/learn", h.Learn)
	r.Handle("GET /api/v1/model/status", h.ModelStatus)
}

// RegisterHeartRateRoutes 心率估计与当前检测配置
func (r *Router) RegisterHeartRateRoutes(h *HeartRateHandler) {
	r.Handle("POST /api/v1/heart-rate/estimate", h.Estimate)
	r.Handle("GET /api/v1/heart-rate/config", h.GetConfig)
	r.Handle("GET /api/v1/heart-rate/realtime/{device_id}", h.GetRealtime)
}

// RegisterSessionRoutes HTTP 帧源
func (r *Router) RegisterSessionRoutes(h *SessionHandler) {
	r.Handle("POST /api/v1/sessions/{device_id}/start", h.Start)
	r.Handle("POST /api/v1/sessions/{device_id}/stop", h.Stop)
	r.Handle("POST /api/v1/sessions/{device_id}/frames", h.PushFrames)
	r.Handle("GET /api/v1/sessions/{device_id}", h.Get)
}

// RegisterMeasurementRoutes 测量归档查询与导出
func (r *Router) RegisterMeasurementRoutes(h *MeasurementHandler) {
	r.Handle("GET /api/v1/measurements", h.List)
	r.Handle("GET /api/v1/measurements/export", h.Export)
	r.Handle("GET /api/v1/measurements/{id}", h.Get)
}
