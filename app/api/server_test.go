package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lysyi3m/screening-comb/app/event"
	"github.com/lysyi3m/screening-comb/app/feed"
	"github.com/lysyi3m/screening-comb/app/monitor"
	"github.com/lysyi3m/screening-comb/app/notify"
	"github.com/lysyi3m/screening-comb/app/scheduler"
	"github.com/lysyi3m/screening-comb/app/venue"
)

type mockReports struct {
	report *monitor.Report
}

func (m *mockReports) LastReport() *monitor.Report {
	return m.report
}

type mockTrigger struct {
	err   error
	calls int
}

func (m *mockTrigger) Trigger() error {
	m.calls++
	return m.err
}

func setupServer(t *testing.T, trigger *mockTrigger, reports *mockReports) (http.Handler, *notify.Recent) {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "cgv.yml"), []byte("brand: CGV\nsettings:\n  enabled: true\nvenues:\n  - name: 강남\n"), 0644); err != nil {
		t.Fatal(err)
	}
	catalog := venue.NewCatalog(dir)
	if err := catalog.Run(); err != nil {
		t.Fatal(err)
	}

	recent := notify.NewRecent(10)
	handler := NewHandler(catalog, recent, feed.NewGenerator("http://localhost:8080", "test"), reports, trigger, "test")
	return NewServer(handler, "secret"), recent
}

func do(h http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	server, _ := setupServer(t, &mockTrigger{}, &mockReports{})

	tests := []struct {
		name     string
		headers  map[string]string
		expected int
	}{
		{"missing key", nil, http.StatusUnauthorized},
		{"wrong key", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"header key", map[string]string{"X-API-Key": "secret"}, http.StatusOK},
		{"bearer key", map[string]string{"Authorization": "Bearer secret"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(server, http.MethodGet, "/api/venues", tt.headers)
			if w.Code != tt.expected {
				t.Errorf("Expected status %d, got %d", tt.expected, w.Code)
			}
		})
	}
}

func TestTriggerRun(t *testing.T) {
	trigger := &mockTrigger{}
	server, _ := setupServer(t, trigger, &mockReports{})
	auth := map[string]string{"X-API-Key": "secret"}

	if w := do(server, http.MethodPost, "/api/runs", auth); w.Code != http.StatusAccepted {
		t.Errorf("Expected 202, got %d", w.Code)
	}

	trigger.err = scheduler.ErrRunPending
	if w := do(server, http.MethodPost, "/api/runs", auth); w.Code != http.StatusConflict {
		t.Errorf("Expected 409 while a run is pending, got %d", w.Code)
	}

	trigger.err = errors.New("stopped")
	if w := do(server, http.MethodPost, "/api/runs", auth); w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", w.Code)
	}

	if trigger.calls != 3 {
		t.Errorf("Expected 3 trigger calls, got %d", trigger.calls)
	}
}

func TestNewEventsFeed(t *testing.T) {
	server, recent := setupServer(t, &mockTrigger{}, &mockReports{})

	date, _ := event.ParseDate("2024-06-15")
	_ = recent.Notify(context.Background(), event.Event{
		MovieTitle: "영화제목A",
		VenueName:  "CGV 강남",
		Type:       event.TypeStageGreeting,
		PlayDate:   date,
		StartTime:  "14:30",
		Vendor:     "cgv",
	})

	w := do(server, http.MethodGet, "/feeds/new", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "application/xml") {
		t.Errorf("Unexpected content type '%s'", w.Header().Get("Content-Type"))
	}
	if w.Header().Get("X-Feed-Items") != "1" {
		t.Errorf("Expected 1 feed item, got '%s'", w.Header().Get("X-Feed-Items"))
	}
	if !strings.Contains(w.Body.String(), "영화제목A") {
		t.Error("Expected feed to contain the event title")
	}

	if w := do(server, http.MethodGet, "/feeds/new?limit=abc", nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid limit, got %d", w.Code)
	}
}

func TestStatsAndHealth(t *testing.T) {
	reports := &mockReports{}
	server, _ := setupServer(t, &mockTrigger{}, reports)

	w := do(server, http.MethodGet, "/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	reports.report = &monitor.Report{RunID: "run-1", New: 2, Tracked: 7}
	w = do(server, http.MethodGet, "/stats", nil)

	var body struct {
		LastRun monitor.Report `json:"last_run"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid stats JSON: %v", err)
	}
	if body.LastRun.RunID != "run-1" || body.LastRun.Tracked != 7 {
		t.Errorf("Unexpected stats %+v", body.LastRun)
	}

	w = do(server, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "loaded_configurations") {
		t.Errorf("Unexpected health response %d %s", w.Code, w.Body.String())
	}
}
