package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"covidash/internal/analysis"
	"covidash/internal/dataset"
	"covidash/internal/models"
)

func testTable(t *testing.T) *dataset.Table {
	t.Helper()
	nf := func(v float64) sql.NullFloat64 { return sql.NullFloat64{Float64: v, Valid: true} }

	var rows []models.Observation
	base := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		rows = append(rows, models.Observation{
			Location:    "United States",
			Continent:   "North America",
			Date:        base.AddDate(0, 0, i),
			TotalCases:  nf(float64(28_000_000 + i*60_000)),
			NewCases:    nf(float64(60_000 + i*500)),
			TotalDeaths: nf(float64(500_000 + i*1_000)),
			Population:  nf(331_000_000),
		})
	}
	// Kenya has too few observations for a projection.
	for i := 0; i < 3; i++ {
		rows = append(rows, models.Observation{
			Location:   "Kenya",
			Continent:  "Africa",
			Date:       base.AddDate(0, 0, i),
			TotalCases: nf(float64(105_000 + i*500)),
			NewCases:   nf(float64(500 + i*100)),
			Population: nf(53_771_300),
		})
	}
	table := analysis.Derive(dataset.NewTable(rows))
	return analysis.DetectWaves(table, 7)
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return NewServer(testTable(t), "0", 7)
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func TestHealth(t *testing.T) {
	rec := get(t, newTestServer(t), "/health")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestAPILocations(t *testing.T) {
	var locations []string
	decode(t, get(t, newTestServer(t), "/api/locations"), &locations)

	want := []string{"Kenya", "United States"}
	if len(locations) != len(want) {
		t.Fatalf("locations = %v, want %v", locations, want)
	}
	for i := range want {
		if locations[i] != want[i] {
			t.Errorf("locations[%d] = %q, want %q", i, locations[i], want[i])
		}
	}
}

func TestAPISeriesFiltered(t *testing.T) {
	var points []SeriesPoint
	decode(t, get(t, newTestServer(t), "/api/series?metric=new_cases&locations=Kenya"), &points)

	if len(points) != 3 {
		t.Fatalf("len(points) = %d, want 3", len(points))
	}
	for _, p := range points {
		if p.Location != "Kenya" {
			t.Errorf("point for %q leaked through location filter", p.Location)
		}
		if p.Value == nil {
			t.Error("new_cases value unexpectedly null")
		}
	}
}

func TestAPISeriesDateRange(t *testing.T) {
	var points []SeriesPoint
	decode(t, get(t, newTestServer(t), "/api/series?locations=United+States&from=2021-03-05&to=2021-03-07"), &points)

	if len(points) != 3 {
		t.Fatalf("len(points) = %d, want 3", len(points))
	}
}

func TestAPIBadRequests(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name string
		path string
	}{
		{"unknown metric", "/api/series?metric=nope"},
		{"bad from date", "/api/series?from=March+1"},
		{"waves without location", "/api/waves"},
		{"projection without location", "/api/projection"},
		{"projection days too large", "/api/projection?location=United+States&days=9000"},
		{"projection days not a number", "/api/projection?location=United+States&days=soon"},
		{"export unknown format", "/export?format=xlsx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := get(t, s, tt.path); rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestAPISummaryCarriesProvenanceFlag(t *testing.T) {
	var resp struct {
		ActiveCasesApprox bool         `json:"active_cases_approx"`
		Rows              []SummaryRow `json:"rows"`
	}
	decode(t, get(t, newTestServer(t), "/api/summary"), &resp)

	if !resp.ActiveCasesApprox {
		t.Error("active_cases_approx should be true after derivation")
	}
	if len(resp.Rows) != 2 {
		t.Fatalf("len(rows) = %d, want one per location", len(resp.Rows))
	}
}

func TestAPIWaves(t *testing.T) {
	var segs []WaveSegmentView
	decode(t, get(t, newTestServer(t), "/api/waves?location=United+States"), &segs)

	if len(segs) == 0 {
		t.Fatal("expected at least one wave segment")
	}
	if segs[0].Start != "2021-03-01" {
		t.Errorf("segs[0].Start = %q, want first observation date", segs[0].Start)
	}
}

func TestAPIProjectionOK(t *testing.T) {
	var resp ProjectionResponse
	decode(t, get(t, newTestServer(t), "/api/projection?location=United+States&metric=total_cases&days=14"), &resp)

	if resp.Status != "ok" {
		t.Fatalf("status = %q (reason %q), want ok", resp.Status, resp.Reason)
	}
	if len(resp.Dates) != 14 || len(resp.Values) != 14 {
		t.Errorf("horizon = %d dates, %d values; want 14", len(resp.Dates), len(resp.Values))
	}
}

func TestAPIProjectionInsufficientData(t *testing.T) {
	var resp ProjectionResponse
	decode(t, get(t, newTestServer(t), "/api/projection?location=Kenya&metric=total_cases"), &resp)

	if resp.Status != "insufficient_data" {
		t.Errorf("status = %q, want insufficient_data", resp.Status)
	}
	if len(resp.Values) != 0 {
		t.Errorf("insufficient_data response should carry no values")
	}
}

func TestAPIInsightsUnavailableWithoutGenerator(t *testing.T) {
	var resp map[string]string
	decode(t, get(t, newTestServer(t), "/api/insights"), &resp)

	if resp["status"] != "unavailable" {
		t.Errorf("status = %q, want unavailable", resp["status"])
	}
}

func TestExportCSV(t *testing.T) {
	rec := get(t, newTestServer(t), "/export?format=csv&locations=Kenya")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 4 { // header + 3 Kenya rows
		t.Fatalf("len(lines) = %d, want 4", len(lines))
	}
	if !strings.HasPrefix(lines[0], "location,date") {
		t.Errorf("header = %q", lines[0])
	}
}

func TestExportJSON(t *testing.T) {
	rec := get(t, newTestServer(t), "/export?format=json&locations=Kenya")
	var rows []map[string]any
	decode(t, rec, &rows)
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}
	if rows[0]["location"] != "Kenya" {
		t.Errorf("rows[0].location = %v", rows[0]["location"])
	}
}

func TestChartPNG(t *testing.T) {
	rec := get(t, newTestServer(t), "/chart.png?metric=new_cases&locations=United+States")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestIndexPage(t *testing.T) {
	rec := get(t, newTestServer(t), "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "United States") {
		t.Error("index page missing location name")
	}
	if !strings.Contains(body, "chart.png") {
		t.Error("index page missing chart reference")
	}
}

func TestIndexUnknownPathIs404(t *testing.T) {
	if rec := get(t, newTestServer(t), "/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestSwapTableChangesServedData(t *testing.T) {
	s := newTestServer(t)

	var before []string
	decode(t, get(t, s, "/api/locations"), &before)

	s.SwapTable(dataset.NewTable([]models.Observation{{
		Location: "Brazil",
		Date:     time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC),
	}}))

	var after []string
	decode(t, get(t, s, "/api/locations"), &after)
	if len(after) != 1 || after[0] != "Brazil" {
		t.Errorf("locations after swap = %v, want [Brazil]", after)
	}
}
