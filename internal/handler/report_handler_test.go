package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/liblogin/internal/service"
)

func TestGetReachReportQueryParameters(t *testing.T) {
	api := newTestAPI()
	stub := &reachStub{}
	api.reach = stub
	router := newTestRouter()
	router.GET("/api/reach-report", api.GetReachReport)

	rec := perform(t, router, http.MethodGet, "/api/reach-report?hotspot=hotspot_lab&days=30&ad_cost=50", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	q := stub.query
	if q.HotspotName != "hotspot_lab" || q.TargetAudience != 1000 || q.AdCost != 50 {
		t.Fatalf("unexpected query: %+v", q)
	}
	wantStart := time.Date(2025, 2, 9, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
	if !q.Window.Start.Equal(wantStart) || !q.Window.End.Equal(wantEnd) {
		t.Fatalf("unexpected window: %v - %v", q.Window.Start, q.Window.End)
	}

	rec = perform(t, router, http.MethodGet, "/api/reach-report?start_date=2025-03-01&end_date=2025-03-03&target_audience=250", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if stub.query.TargetAudience != 250 || stub.query.Window.End.Sub(stub.query.Window.Start) != 72*time.Hour {
		t.Fatalf("unexpected explicit window query: %+v", stub.query)
	}
}

func TestGetReachReportErrors(t *testing.T) {
	cases := []struct {
		name   string
		query  string
		err    error
		status int
		code   string
	}{
		{"malformed date", "?start_date=2025-13-01&end_date=2025-03-01", nil, http.StatusBadRequest, "invalid_date"},
		{"half open range", "?start_date=2025-03-01", nil, http.StatusBadRequest, "invalid_date"},
		{"reversed range", "?start_date=2025-03-05&end_date=2025-03-01", nil, http.StatusBadRequest, "invalid_window"},
		{"storage failure", "", errStorageDown, http.StatusInternalServerError, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := newTestAPI()
			api.reach = &reachStub{err: tc.err}
			router := newTestRouter()
			router.GET("/api/reach-report", api.GetReachReport)

			rec := perform(t, router, http.MethodGet, "/api/reach-report"+tc.query, "")
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			body := decodeBody(t, rec)
			if tc.code != "" && body["code"] != tc.code {
				t.Fatalf("expected code %s, got %v", tc.code, body)
			}
			if tc.status == http.StatusInternalServerError && body["error"] != "internal server error" {
				t.Fatalf("internal detail leaked: %v", body)
			}
		})
	}
}

func TestRunRollupDefaultsToToday(t *testing.T) {
	api := newTestAPI()
	stub := &rollupStub{}
	api.rollups = stub
	router := newTestRouter()
	router.POST("/api/admin/reach-stats/rollup", api.RunRollup)

	rec := perform(t, router, http.MethodPost, "/api/admin/reach-stats/rollup", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["date"] != "2025-03-10" {
		t.Fatalf("expected today's rollup, got %v", body)
	}

	rec = perform(t, router, http.MethodPost, "/api/admin/reach-stats/rollup", `{"date":"2025-03-01"}`)
	if rec.Code != http.StatusOK || !stub.day.Start.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected explicit day, got %d %v", rec.Code, stub.day)
	}

	rec = perform(t, router, http.MethodPost, "/api/admin/reach-stats/rollup?date=yesterday", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date, got %d", rec.Code)
	}
}

func TestImpressionSummaryAndReachStats(t *testing.T) {
	api := newTestAPI()
	impressions := &impressionStub{}
	rollups := &rollupStub{}
	api.impressions = impressions
	api.rollups = rollups
	router := newTestRouter()
	router.GET("/api/impressions/summary", api.GetImpressionSummary)
	router.GET("/api/reach-stats", api.GetReachStats)

	rec := perform(t, router, http.MethodGet, "/api/impressions/summary?hotspot_name=hotspot_lab&days=1", "")
	if rec.Code != http.StatusOK || impressions.hotspot != "hotspot_lab" {
		t.Fatalf("unexpected summary call: %d %q", rec.Code, impressions.hotspot)
	}
	if got := impressions.window; !got.Start.Equal(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected today's window, got %v", got)
	}

	rec = perform(t, router, http.MethodGet, "/api/reach-stats?from=2025-03-01&to=2025-03-07", "")
	if rec.Code != http.StatusOK || rollups.from != "2025-03-01" || rollups.to != "2025-03-07" {
		t.Fatalf("unexpected reach stats call: %d %+v", rec.Code, rollups)
	}

	api.rollups = &rollupStub{err: service.ErrDateInvalid}
	router = newTestRouter()
	router.GET("/api/reach-stats", api.GetReachStats)
	if rec = perform(t, router, http.MethodGet, "/api/reach-stats?from=03/01", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
