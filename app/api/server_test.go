package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/krtrends/marketpulse/app/database"
	"github.com/krtrends/marketpulse/app/item"
)

type stubItemRepo struct{}

func (stubItemRepo) UpsertBatch([]item.Item, time.Time) (database.UpsertStats, error) {
	return database.UpsertStats{}, nil
}
func (stubItemRepo) GetRecentItems(time.Time, int) ([]database.Item, error) { return nil, nil }
func (stubItemRepo) GetRecentItemsByKind(string, time.Time, int) ([]database.Item, error) {
	return nil, nil
}
func (stubItemRepo) GetItemCount() (int, error)                             { return 42, nil }
func (stubItemRepo) GetSourceCounts() (map[string]int, error) {
	return map[string]int{"크몽": 30, "트렌드 블로그": 12}, nil
}
func (stubItemRepo) ExpireNewFlags(string, time.Time) (int64, error) { return 0, nil }

type stubRunLogRepo struct{}

func (stubRunLogRepo) Record(database.RunLog) error { return nil }
func (stubRunLogRepo) GetRecent(int) ([]database.RunLog, error) {
	return []database.RunLog{{Action: "ingest", Status: "success", ItemsTotal: 5}}, nil
}

type stubSummaryRepo struct{}

func (stubSummaryRepo) Upsert(database.DailySummary) error { return nil }
func (stubSummaryRepo) GetByDate(string) (*database.DailySummary, error) {
	return &database.DailySummary{Summary: "오늘의 한국 마케팅 동향: 테스트"}, nil
}
func (stubSummaryRepo) GetLatest() (*database.DailySummary, error) { return nil, nil }

func newTestServer() http.Handler {
	handler := NewHandler(stubItemRepo{}, stubRunLogRepo{}, stubSummaryRepo{}, nil, nil, nil)
	return NewServer(handler, "secret-token")
}

func TestServer_HealthCheck(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	newTestServer().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("unexpected health body %v", body)
	}
}

func TestServer_GetStats(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	newTestServer().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}

	var body statsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.TotalItems != 42 {
		t.Errorf("unexpected total %d", body.TotalItems)
	}
	if body.SourceCounts["크몽"] != 30 {
		t.Errorf("unexpected source counts %v", body.SourceCounts)
	}
	if len(body.RecentRuns) != 1 || body.RecentRuns[0].Action != "ingest" {
		t.Errorf("unexpected run logs %v", body.RecentRuns)
	}
	if body.TodaySummary == "" {
		t.Error("expected today's summary in stats")
	}
}

func TestServer_RunRequiresToken(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		header   string
		expected int
	}{
		{"no token", "/api/run", "", http.StatusForbidden},
		{"wrong header token", "/api/run", "wrong", http.StatusForbidden},
		{"wrong query token", "/api/run?token=wrong", "", http.StatusForbidden},
		// A valid token with a bogus action passes auth and fails validation.
		{"valid header token", "/api/run?action=bogus", "secret-token", http.StatusBadRequest},
		{"valid query token", "/api/run?action=bogus&token=secret-token", "", http.StatusBadRequest},
	}

	server := newTestServer()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("X-API-Token", tc.header)
			}
			server.ServeHTTP(w, req)

			if w.Code != tc.expected {
				t.Errorf("status = %d, expected %d (body %s)", w.Code, tc.expected, w.Body.String())
			}
		})
	}
}

func TestServer_RunUnknownAction(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/run?action=reindex", nil)
	req.Header.Set("X-API-Token", "secret-token")
	newTestServer().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["error"] == "" {
		t.Errorf("expected an error message, got %v", body)
	}
}
