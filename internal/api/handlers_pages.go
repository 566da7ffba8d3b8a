package api

import (
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"covidash/internal/dataset"
	"covidash/internal/models"
)

// defaultLocations mirrors the countries the analysis scripts focus on.
var defaultLocations = []string{"United States", "India", "Brazil", "United Kingdom", "Kenya"}

type indexData struct {
	Locations         []string
	Selected          []string
	Metrics           []models.Metric
	Metric            models.Metric
	From, To          time.Time
	Summary           []SummaryRow
	ActiveCasesApprox bool
	LoadedAt          time.Time
	ChartQuery        string
	HasInsights       bool
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	table := s.Table()

	metric, ok := models.ParseMetric(queryDefault(r, "metric", string(models.MetricNewCases)))
	if !ok {
		metric = models.MetricNewCases
	}

	selected := defaultLocations
	if raw := r.URL.Query().Get("locations"); raw != "" {
		selected = strings.Split(raw, ",")
	}

	from, to, err := dateRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if from.IsZero() && to.IsZero() {
		// Default view: the most recent 180 days, as the source dashboard does.
		if _, maxDate, ok := table.DateBounds(); ok {
			from, to = maxDate.AddDate(0, 0, -180), maxDate
		}
	}

	view := table.FilterLocations(selected).FilterDateRange(from, to)
	latest := view.LatestPerLocation()
	summary := make([]SummaryRow, 0, len(latest))
	for i := range latest {
		summary = append(summary, summaryRow(&latest[i]))
	}

	s.mu.RLock()
	loadedAt := s.loadedAt
	s.mu.RUnlock()

	data := indexData{
		Locations:         table.Locations(),
		Selected:          selected,
		Metrics:           models.Metrics,
		Metric:            metric,
		From:              from,
		To:                to,
		Summary:           summary,
		ActiveCasesApprox: view.ActiveCasesApprox,
		LoadedAt:          loadedAt,
		ChartQuery:        chartQuery(selected, metric, from, to),
		HasInsights:       s.insights != nil,
	}

	if err := s.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		log.Printf("render index: %v", err)
	}
}

func chartQuery(locations []string, metric models.Metric, from, to time.Time) string {
	q := url.Values{}
	q.Set("metric", string(metric))
	q.Set("locations", strings.Join(locations, ","))
	if !from.IsZero() {
		q.Set("from", from.Format(dataset.DateLayout))
	}
	if !to.IsZero() {
		q.Set("to", to.Format(dataset.DateLayout))
	}
	return q.Encode()
}
