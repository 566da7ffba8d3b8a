package dataset

import (
	"bufio"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"covidash/internal/models"
)

// DateLayout is the calendar-date format used throughout the dataset.
const DateLayout = "2006-01-02"

// Columns materialised from the raw file. The OWID export is much wider;
// loading the full width spends memory on columns nothing downstream reads.
var loadColumns = []string{
	"date", "location", "total_cases", "new_cases", "total_deaths", "new_deaths",
	"total_vaccinations", "people_vaccinated", "people_fully_vaccinated",
	"population", "population_density", "median_age", "gdp_per_capita",
	"life_expectancy", "human_development_index", "continent",
}

// LoadReport accounts for what the loader did with the file. Skipped rows are
// rows with an unparseable date or an empty location; they are counted rather
// than dropped silently.
type LoadReport struct {
	Rows        int
	SkippedRows int
}

// Load reads the dataset at path into a Table. A missing file yields a
// *NotFoundError carrying the resolved absolute path; a structurally
// unparseable file yields a *FormatError.
func Load(path string) (*Table, *LoadReport, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			abs, aerr := filepath.Abs(path)
			if aerr != nil {
				abs = path
			}
			return nil, nil, &NotFoundError{Path: abs}
		}
		return nil, nil, err
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader parses the dataset from r. See Load for error semantics.
func LoadFromReader(r io.Reader) (*Table, *LoadReport, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil, &FormatError{Err: errors.New("empty file")}
		}
		return nil, nil, &FormatError{Row: 1, Err: err}
	}

	idx := make(map[string]int, len(loadColumns))
	for _, col := range loadColumns {
		for i, h := range header {
			if h == col {
				idx[col] = i
				break
			}
		}
	}
	for _, required := range []string{"date", "location"} {
		if _, ok := idx[required]; !ok {
			return nil, nil, &FormatError{Row: 1, Err: fmt.Errorf("missing required column %q", required)}
		}
	}

	report := &LoadReport{}
	var rows []models.Observation
	for rowNum := 2; ; rowNum++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, &FormatError{Row: rowNum, Err: err}
		}

		field := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(record) {
				return ""
			}
			return record[i]
		}

		location := field("location")
		date, derr := parseDate(field("date"))
		if derr != nil || location == "" {
			report.SkippedRows++
			continue
		}

		o := models.Observation{
			Location:              location,
			Continent:             field("continent"),
			Date:                  date,
			TotalCases:            parseNumeric(field("total_cases")),
			NewCases:              parseNumeric(field("new_cases")),
			TotalDeaths:           parseNumeric(field("total_deaths")),
			NewDeaths:             parseNumeric(field("new_deaths")),
			TotalVaccinations:     parseNumeric(field("total_vaccinations")),
			PeopleVaccinated:      parseNumeric(field("people_vaccinated")),
			PeopleFullyVaccinated: parseNumeric(field("people_fully_vaccinated")),
			Population:            parseNumeric(field("population")),
			PopulationDensity:     parseNumeric(field("population_density")),
			MedianAge:             parseNumeric(field("median_age")),
			GDPPerCapita:          parseNumeric(field("gdp_per_capita")),
			LifeExpectancy:        parseNumeric(field("life_expectancy")),
			HumanDevelopmentIndex: parseNumeric(field("human_development_index")),
		}
		rows = append(rows, o)
		report.Rows++
	}

	if len(rows) == 0 && report.SkippedRows > 0 {
		return nil, nil, &FormatError{Err: fmt.Errorf("no parseable rows (%d skipped)", report.SkippedRows)}
	}
	return NewTable(rows), report, nil
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// parseNumeric maps empty or unparseable cells to null rather than failing the
// row: optional covariates are frequently absent in the source data.
func parseNumeric(s string) sql.NullFloat64 {
	if s == "" {
		return sql.NullFloat64{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
