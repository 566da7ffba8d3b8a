package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"covidash/internal/analysis"
	"covidash/internal/dataset"
	"covidash/internal/metrics"
	"covidash/internal/models"
)

func (s *Server) handleAPILocations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Table().Locations())
}

func (s *Server) handleAPISeries(w http.ResponseWriter, r *http.Request) {
	metric, ok := models.ParseMetric(queryDefault(r, "metric", string(models.MetricNewCases)))
	if !ok {
		http.Error(w, "unknown metric", http.StatusBadRequest)
		return
	}
	view, err := s.filteredView(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rows := view.Rows()
	points := make([]SeriesPoint, 0, len(rows))
	for i := range rows {
		points = append(points, SeriesPoint{
			Location: rows[i].Location,
			Date:     rows[i].Date,
			Value:    nullPtr(metric.Value(&rows[i])),
		})
	}
	writeJSON(w, points)
}

func (s *Server) handleAPISummary(w http.ResponseWriter, r *http.Request) {
	view, err := s.filteredView(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	latest := view.LatestPerLocation()
	out := make([]SummaryRow, 0, len(latest))
	for i := range latest {
		out = append(out, summaryRow(&latest[i]))
	}
	writeJSON(w, struct {
		ActiveCasesApprox bool         `json:"active_cases_approx"`
		Rows              []SummaryRow `json:"rows"`
	}{view.ActiveCasesApprox, out})
}

func (s *Server) handleAPIWaves(w http.ResponseWriter, r *http.Request) {
	location := r.URL.Query().Get("location")
	if location == "" {
		http.Error(w, "location required", http.StatusBadRequest)
		return
	}

	segs := analysis.WaveSegments(s.Table(), location)
	out := make([]WaveSegmentView, 0, len(segs))
	for _, seg := range segs {
		out = append(out, WaveSegmentView{
			Wave:  seg.Wave,
			Start: seg.Start.Format(dataset.DateLayout),
			End:   seg.End.Format(dataset.DateLayout),
		})
	}
	writeJSON(w, out)
}

func (s *Server) handleAPIProjection(w http.ResponseWriter, r *http.Request) {
	location := r.URL.Query().Get("location")
	if location == "" {
		http.Error(w, "location required", http.StatusBadRequest)
		return
	}
	metric, ok := models.ParseMetric(queryDefault(r, "metric", string(models.MetricNewCases)))
	if !ok {
		http.Error(w, "unknown metric", http.StatusBadRequest)
		return
	}
	horizon := analysis.DefaultHorizon
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 365 {
			http.Error(w, "days must be between 1 and 365", http.StatusBadRequest)
			return
		}
		horizon = n
	}

	writeJSON(w, s.project(location, metric, horizon))
}

// project maps the projector's result sum-type onto the response body. Both
// failure shapes are normal outcomes scoped to this (location, metric) pair.
func (s *Server) project(location string, metric models.Metric, horizon int) ProjectionResponse {
	p, err := analysis.Project(s.Table(), location, metric, horizon)
	switch {
	case errors.Is(err, analysis.ErrInsufficientData):
		metrics.ProjectionsTotal.WithLabelValues("insufficient_data").Inc()
		return ProjectionResponse{Status: "insufficient_data", Location: location, Metric: string(metric)}
	case err != nil:
		var numErr *analysis.NumericalError
		reason := err.Error()
		if errors.As(err, &numErr) {
			reason = numErr.Reason
		}
		metrics.ProjectionsTotal.WithLabelValues("numerical_failure").Inc()
		return ProjectionResponse{Status: "numerical_failure", Location: location, Metric: string(metric), Reason: reason}
	}
	metrics.ProjectionsTotal.WithLabelValues("ok").Inc()
	return ProjectionResponse{
		Status:   "ok",
		Location: location,
		Metric:   string(metric),
		Dates:    p.Dates,
		Values:   p.Values,
	}
}

func (s *Server) handleAPIInsights(w http.ResponseWriter, r *http.Request) {
	if s.insights == nil {
		writeJSON(w, map[string]string{"status": "unavailable", "reason": "insights generation is not configured"})
		return
	}

	view, err := s.filteredView(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	key := s.datasetVersion() + "|" + r.URL.Query().Get("locations")
	text, err := s.insights.Generate(r.Context(), view.LatestPerLocation(), key)
	if err != nil {
		writeJSON(w, map[string]string{"status": "unavailable", "reason": err.Error()})
		return
	}
	writeJSON(w, map[string]string{"status": "ok", "narrative": text})
}

// filteredView applies the shared locations/from/to query parameters, always
// returning a copy distinct from the base table.
func (s *Server) filteredView(r *http.Request) (*dataset.Table, error) {
	view := s.Table()
	if raw := r.URL.Query().Get("locations"); raw != "" {
		view = view.FilterLocations(strings.Split(raw, ","))
	}
	from, to, err := dateRange(r)
	if err != nil {
		return nil, err
	}
	if !from.IsZero() || !to.IsZero() {
		view = view.FilterDateRange(from, to)
	}
	return view, nil
}

func dateRange(r *http.Request) (from, to time.Time, err error) {
	if v := r.URL.Query().Get("from"); v != "" {
		from, err = time.Parse(dataset.DateLayout, v)
		if err != nil {
			return from, to, fmt.Errorf("invalid from date %q", v)
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		to, err = time.Parse(dataset.DateLayout, v)
		if err != nil {
			return from, to, fmt.Errorf("invalid to date %q", v)
		}
	}
	return from, to, nil
}

func queryDefault(r *http.Request, key, def string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return def
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
