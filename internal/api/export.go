package api

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"covidash/internal/dataset"
	"covidash/internal/metrics"
)

// exportColumns is the header order for delimited exports: source columns
// first, derived columns after.
var exportColumns = []string{
	"location", "date", "continent",
	"total_cases", "new_cases", "total_deaths", "new_deaths",
	"total_vaccinations", "people_vaccinated", "people_fully_vaccinated",
	"population",
	"mortality_rate", "recovery_rate", "active_cases", "case_fatality_ratio",
	"vaccination_rate", "fully_vaccinated_rate", "new_cases_ma", "wave",
}

// handleExport serializes the filtered view as CSV or JSON. Formatting lives
// here in the presentation layer; the core table never renders itself.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := queryDefault(r, "format", "csv")
	view, err := s.filteredView(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch format {
	case "csv":
		metrics.ExportsTotal.WithLabelValues("csv").Inc()
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="covidash_export.csv"`)
		writeCSV(w, view)
	case "json":
		metrics.ExportsTotal.WithLabelValues("json").Inc()
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="covidash_export.json"`)
		writeRecords(w, view)
	default:
		http.Error(w, fmt.Sprintf("unsupported format %q", format), http.StatusBadRequest)
	}
}

func writeCSV(w http.ResponseWriter, view *dataset.Table) {
	cw := csv.NewWriter(w)
	cw.Write(exportColumns)
	rows := view.Rows()
	for i := range rows {
		o := &rows[i]
		record := []string{
			o.Location,
			o.Date.Format(dataset.DateLayout),
			o.Continent,
			cell(o.TotalCases), cell(o.NewCases), cell(o.TotalDeaths), cell(o.NewDeaths),
			cell(o.TotalVaccinations), cell(o.PeopleVaccinated), cell(o.PeopleFullyVaccinated),
			cell(o.Population),
			cell(o.MortalityRate), cell(o.RecoveryRate), cell(o.ActiveCases), cell(o.CaseFatalityRatio),
			cell(o.VaccinationRate), cell(o.FullyVaccinatedRate), cell(o.NewCasesMA),
			strconv.Itoa(o.Wave),
		}
		cw.Write(record)
	}
	cw.Flush()
}

// record mirrors the export columns for JSON, with nulls kept as nulls.
type record struct {
	Location            string   `json:"location"`
	Date                string   `json:"date"`
	Continent           string   `json:"continent,omitempty"`
	TotalCases          *float64 `json:"total_cases"`
	NewCases            *float64 `json:"new_cases"`
	TotalDeaths         *float64 `json:"total_deaths"`
	NewDeaths           *float64 `json:"new_deaths"`
	TotalVaccinations   *float64 `json:"total_vaccinations"`
	PeopleVaccinated    *float64 `json:"people_vaccinated"`
	PeopleFullyVacc     *float64 `json:"people_fully_vaccinated"`
	Population          *float64 `json:"population"`
	MortalityRate       *float64 `json:"mortality_rate"`
	RecoveryRate        *float64 `json:"recovery_rate"`
	ActiveCases         *float64 `json:"active_cases"`
	CaseFatalityRatio   *float64 `json:"case_fatality_ratio"`
	VaccinationRate     *float64 `json:"vaccination_rate"`
	FullyVaccinatedRate *float64 `json:"fully_vaccinated_rate"`
	NewCasesMA          *float64 `json:"new_cases_ma"`
	Wave                int      `json:"wave"`
}

func writeRecords(w http.ResponseWriter, view *dataset.Table) {
	rows := view.Rows()
	out := make([]record, 0, len(rows))
	for i := range rows {
		o := &rows[i]
		out = append(out, record{
			Location:            o.Location,
			Date:                o.Date.Format(dataset.DateLayout),
			Continent:           o.Continent,
			TotalCases:          nullPtr(o.TotalCases),
			NewCases:            nullPtr(o.NewCases),
			TotalDeaths:         nullPtr(o.TotalDeaths),
			NewDeaths:           nullPtr(o.NewDeaths),
			TotalVaccinations:   nullPtr(o.TotalVaccinations),
			PeopleVaccinated:    nullPtr(o.PeopleVaccinated),
			PeopleFullyVacc:     nullPtr(o.PeopleFullyVaccinated),
			Population:          nullPtr(o.Population),
			MortalityRate:       nullPtr(o.MortalityRate),
			RecoveryRate:        nullPtr(o.RecoveryRate),
			ActiveCases:         nullPtr(o.ActiveCases),
			CaseFatalityRatio:   nullPtr(o.CaseFatalityRatio),
			VaccinationRate:     nullPtr(o.VaccinationRate),
			FullyVaccinatedRate: nullPtr(o.FullyVaccinatedRate),
			NewCasesMA:          nullPtr(o.NewCasesMA),
			Wave:                o.Wave,
		})
	}
	json.NewEncoder(w).Encode(out)
}

func cell(v sql.NullFloat64) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.Float64, 'f', -1, 64)
}
