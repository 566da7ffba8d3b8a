package api

import (
	"database/sql"
	"strings"
	"time"

	"covidash/internal/models"
)

// SeriesPoint is one dated value of a metric for one location. Value is nil
// where the source or derived cell is null; the sentinel travels as data.
type SeriesPoint struct {
	Location string    `json:"location"`
	Date     time.Time `json:"date"`
	Value    *float64  `json:"value"`
}

// SummaryRow is the latest observation of a location, flattened for JSON and
// template consumption.
type SummaryRow struct {
	Location            string    `json:"location"`
	Date                time.Time `json:"date"`
	TotalCases          *float64  `json:"total_cases"`
	TotalDeaths         *float64  `json:"total_deaths"`
	MortalityRate       *float64  `json:"mortality_rate"`
	ActiveCases         *float64  `json:"active_cases"`
	VaccinationRate     *float64  `json:"vaccination_rate"`
	FullyVaccinatedRate *float64  `json:"fully_vaccinated_rate"`
	Wave                int       `json:"wave"`
}

// WaveSegmentView is a wave's date span for shading.
type WaveSegmentView struct {
	Wave  int    `json:"wave"`
	Start string `json:"start_date"`
	End   string `json:"end_date"`
}

// ProjectionResponse carries one of three distinguishable outcomes: ok,
// insufficient_data, or numerical_failure. The caller renders the latter two
// as a "not available" state, never an error page.
type ProjectionResponse struct {
	Status   string      `json:"status"`
	Location string      `json:"location,omitempty"`
	Metric   string      `json:"metric,omitempty"`
	Reason   string      `json:"reason,omitempty"`
	Dates    []time.Time `json:"dates,omitempty"`
	Values   []float64   `json:"values,omitempty"`
}

func nullPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func summaryRow(o *models.Observation) SummaryRow {
	return SummaryRow{
		Location:            o.Location,
		Date:                o.Date,
		TotalCases:          nullPtr(o.TotalCases),
		TotalDeaths:         nullPtr(o.TotalDeaths),
		MortalityRate:       nullPtr(o.MortalityRate),
		ActiveCases:         nullPtr(o.ActiveCases),
		VaccinationRate:     nullPtr(o.VaccinationRate),
		FullyVaccinatedRate: nullPtr(o.FullyVaccinatedRate),
		Wave:                o.Wave,
	}
}

func metricTitle(m models.Metric) string {
	words := strings.Split(string(m), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
