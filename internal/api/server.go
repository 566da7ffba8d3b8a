// Package api serves the dashboard: HTML pages, a JSON API, exports, and
// rendered PNG charts over the analysis pipeline's output table.
package api

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"covidash/internal/analysis"
	"covidash/internal/dataset"
	"covidash/internal/insights"
	"covidash/internal/models"
)

//go:embed templates/*
var templateFS embed.FS

// Server holds the currently served table. The table itself is immutable;
// refreshes swap the pointer whole, so request handlers never observe a
// partially built dataset.
type Server struct {
	port       string
	tmpl       *template.Template
	insights   *insights.Generator
	waveWindow int

	mu       sync.RWMutex
	table    *dataset.Table
	loadedAt time.Time
}

func NewServer(table *dataset.Table, port string, waveWindow int) *Server {
	if waveWindow <= 0 {
		waveWindow = analysis.DefaultWaveWindow
	}
	funcs := template.FuncMap{
		"fmtDate": func(t time.Time) string { return t.Format(dataset.DateLayout) },
		"title":   func(m models.Metric) string { return metricTitle(m) },
		"deref": func(f *float64) float64 {
			if f == nil {
				return 0
			}
			return *f
		},
	}
	tmpl := template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))

	return &Server{
		port:       port,
		tmpl:       tmpl,
		waveWindow: waveWindow,
		table:      table,
		loadedAt:   time.Now(),
	}
}

// SetInsights enables narrative generation. Left unset, the insights endpoint
// reports itself unavailable.
func (s *Server) SetInsights(g *insights.Generator) {
	s.insights = g
}

// Table returns the current table snapshot.
func (s *Server) Table() *dataset.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}

// SwapTable atomically replaces the served table, e.g. after a refresh.
func (s *Server) SwapTable(t *dataset.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = t
	s.loadedAt = time.Now()
}

func (s *Server) datasetVersion() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt.UTC().Format(time.RFC3339)
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/locations", s.handleAPILocations)
	mux.HandleFunc("/api/series", s.handleAPISeries)
	mux.HandleFunc("/api/summary", s.handleAPISummary)
	mux.HandleFunc("/api/waves", s.handleAPIWaves)
	mux.HandleFunc("/api/projection", s.handleAPIProjection)
	mux.HandleFunc("/api/insights", s.handleAPIInsights)
	mux.HandleFunc("/export", s.handleExport)
	mux.HandleFunc("/chart.png", s.handleChartPNG)
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
