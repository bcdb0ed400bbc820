package hrconfig

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/soraally1/glucovision/internal/heartrate"
)

func serve(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestClient_FetchFillsDefaults(t *testing.T) {
	srv, _ := serve(t, http.StatusOK, `{"detection": {"min_bpm": 50, "max_bpm": 170}}`)
	c := NewClient(srv.URL, time.Second, zap.NewNop())

	cfg, err := c.Fetch(context.Background())
	require.NoError(t, err)

	want := heartrate.DefaultConfig()
	want.Detection.MinBPM = 50
	want.Detection.MaxBPM = 170
	assert.Equal(t, want, cfg)
}

func TestClient_FetchRejectsInvalid(t *testing.T) {
	srv, _ := serve(t, http.StatusOK, `{"detection": {"min_bpm": 200, "max_bpm": 100}}`)
	_, err := NewClient(srv.URL, time.Second, zap.NewNop()).Fetch(context.Background())
	assert.Error(t, err)

	srv, _ = serve(t, http.StatusOK, `not json`)
	_, err = NewClient(srv.URL, time.Second, zap.NewNop()).Fetch(context.Background())
	assert.Error(t, err)

	srv, _ = serve(t, http.StatusNotFound, `{}`)
	_, err = NewClient(srv.URL, time.Second, zap.NewNop()).Fetch(context.Background())
	assert.Error(t, err)
}

func TestRefresher_AppliesAndKeepsOnFailure(t *testing.T) {
	det := heartrate.NewDetector(heartrate.DefaultConfig())

	srv, _ := serve(t, http.StatusOK, `{"validation": {"kurtosis_max": 7.5}}`)
	r := NewRefresher(NewClient(srv.URL, time.Second, zap.NewNop()), det, time.Minute, zap.NewNop())
	assert.True(t, r.RefreshOnce(context.Background()))
	assert.Equal(t, 7.5, det.Config().Validation.KurtosisMax)

	// 相同文档不重复替换
	assert.False(t, r.RefreshOnce(context.Background()))

	bad, _ := serve(t, http.StatusOK, `{"detection": {"refractory_period_frames": 0}}`)
	r = NewRefresher(NewClient(bad.URL, time.Second, zap.NewNop()), det, time.Minute, zap.NewNop())
	assert.False(t, r.RefreshOnce(context.Background()))
	assert.Equal(t, 7.5, det.Config().Validation.KurtosisMax)
}

func TestRefresher_EachDocumentStartsFromDefaults(t *testing.T) {
	det := heartrate.NewDetector(heartrate.DefaultConfig())

	first, _ := serve(t, http.StatusOK, `{"detection": {"min_bpm": 55}}`)
	NewRefresher(NewClient(first.URL, time.Second, zap.NewNop()), det, time.Minute, zap.NewNop()).RefreshOnce(context.Background())
	require.Equal(t, 55.0, det.Config().Detection.MinBPM)

	second, _ := serve(t, http.StatusOK, `{"detection": {"max_bpm": 160}}`)
	NewRefresher(NewClient(second.URL, time.Second, zap.NewNop()), det, time.Minute, zap.NewNop()).RefreshOnce(context.Background())
	assert.Equal(t, 45.0, det.Config().Detection.MinBPM)
	assert.Equal(t, 160.0, det.Config().Detection.MaxBPM)
}

func TestRefresher_RunStopsOnCancel(t *testing.T) {
	srv, hits := serve(t, http.StatusOK, `{}`)
	det := heartrate.NewDetector(heartrate.DefaultConfig())
	r := NewRefresher(NewClient(srv.URL, time.Second, zap.NewNop()), det, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return hits.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop")
	}
}
