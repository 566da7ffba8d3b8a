package api

import (
	"net/http"

	"covidash/internal/analysis"
	"covidash/internal/chart"
	"covidash/internal/models"
)

// handleChartPNG renders a static line chart of one metric for the selected
// locations. Wave shading is applied when exactly one location is charted.
func (s *Server) handleChartPNG(w http.ResponseWriter, r *http.Request) {
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

	locations := view.Locations()
	series := make([]chart.Series, 0, len(locations))
	for _, loc := range locations {
		rows := view.LocationRows(loc)
		s := chart.Series{Label: loc}
		for i := range rows {
			s.Dates = append(s.Dates, rows[i].Date)
			s.Values = append(s.Values, nullPtr(metric.Value(&rows[i])))
		}
		series = append(series, s)
	}

	opts := chart.Options{Title: metricTitle(metric)}
	if len(locations) == 1 {
		opts.Shading = analysis.WaveSegments(view, locations[0])
	}

	pngBytes, err := chart.RenderLines(series, opts)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(pngBytes)
}
