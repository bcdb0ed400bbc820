package session

import (
	"sync"
	"time"

	"github.com/soraally1/glucovision/internal/models"
	"github.com/soraally1/glucovision/internal/ppg"
)

// State 会话状态
type State string

const (
	StateCollecting State = "collecting"
	StateFinishing  State = "finishing"
	StateCompleted  State = "completed"
	StateStopped    State = "stopped"
)

// Snapshot 会话对外视图
type Snapshot struct {
	SessionID      string                    `json:"session_id"`
	DeviceID       string                    `json:"device_id"`
	State          State                     `json:"state"`
	Samples        int                       `json:"samples"`
	TotalSamples   int                       `json:"total_samples"`
	Progress       float64                   `json:"progress"` // 百分比
	BPM            int                       `json:"bpm"`
	Confidence     float64                   `json:"confidence"`
	FingerDetected bool                      `json:"finger_detected"`
	Signal         float64                   `json:"signal"` // 最新脉搏采样
	StartedAt      time.Time                 `json:"started_at"`
	Result         *models.MeasurementRecord `json:"result,omitempty"`
}

// Session 单个设备的一次测量
type Session struct {
	mu sync.Mutex

	id        string
	deviceID  string
	total     int
	extractor *ppg.Extractor
	buffer    []float64

	state          State
	bpm            int
	confidence     float64
	fingerDetected bool
	lastSignal     float64
	startedAt      time.Time
	result         *models.MeasurementRecord
}

func newSession(id, deviceID string, total int, fs float64) *Session {
	return &Session{
		id:        id,
		deviceID:  deviceID,
		total:     total,
		extractor: ppg.NewExtractor(fs),
		buffer:    make([]float64, 0, total),
		state:     StateCollecting,
		startedAt: time.Now().UTC(),
	}
}

func (s *Session) snapshotLocked() Snapshot {
	progress := 100 * float64(len(s.buffer)) / float64(s.total)
	if progress > 100 {
		progress = 100
	}
	return Snapshot{
		SessionID:      s.id,
		DeviceID:       s.deviceID,
		State:          s.state,
		Samples:        len(s.buffer),
		TotalSamples:   s.total,
		Progress:       progress,
		BPM:            s.bpm,
		Confidence:     s.confidence,
		FingerDetected: s.fingerDetected,
		Signal:         s.lastSignal,
		StartedAt:      s.startedAt,
		Result:         s.result,
	}
}

// Snapshot 返回当前视图
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}
