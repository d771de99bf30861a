package healthprobe

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestNew(t *testing.T) {
	hc := New()

	if time.Since(hc.startTime) > time.Second {
		t.Errorf("start time is too old: %v", hc.startTime)
	}
	if hc.ready.Load() {
		t.Error("HealthChecker should not be ready by default")
	}
}

func TestHealth(t *testing.T) {
	hc := New()
	w := httptest.NewRecorder()
	hc.Health()(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("status = %q, want healthy", resp.Status)
	}
}

func TestReady(t *testing.T) {
	streamErr := errors.New("stream state RECONNECTING")

	tests := []struct {
		name       string
		ready      bool
		checkErr   error
		wantStatus int
		wantBody   string
	}{
		{name: "not_started", ready: false, wantStatus: http.StatusServiceUnavailable, wantBody: "not_ready"},
		{name: "ready", ready: true, wantStatus: http.StatusOK, wantBody: "ready"},
		{name: "check_failing", ready: true, checkErr: streamErr, wantStatus: http.StatusServiceUnavailable, wantBody: "not_ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := New()
			hc.SetReady(tt.ready)
			hc.AddCheck("stream", func() error { return tt.checkErr })

			w := httptest.NewRecorder()
			hc.Ready()(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}

			var resp HealthResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != tt.wantBody {
				t.Errorf("status = %q, want %q", resp.Status, tt.wantBody)
			}
			if tt.checkErr != nil && resp.Failing["stream"] != tt.checkErr.Error() {
				t.Errorf("failing = %v, want stream entry", resp.Failing)
			}
		})
	}
}

func TestReady_Toggle(t *testing.T) {
	hc := New()
	hc.SetReady(true)
	hc.SetReady(false)

	w := httptest.NewRecorder()
	hc.Ready()(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 after SetReady(false)", w.Code)
	}
}
