package models

import (
	"database/sql"
	"time"
)

// Observation is one row of the dataset: a single (location, date) pair.
// Measures are nullable because early dates and unreported days carry no value.
type Observation struct {
	Location  string
	Continent string
	Date      time.Time

	TotalCases            sql.NullFloat64
	NewCases              sql.NullFloat64
	TotalDeaths           sql.NullFloat64
	NewDeaths             sql.NullFloat64
	TotalVaccinations     sql.NullFloat64
	PeopleVaccinated      sql.NullFloat64
	PeopleFullyVaccinated sql.NullFloat64
	Population            sql.NullFloat64
	PopulationDensity     sql.NullFloat64
	MedianAge             sql.NullFloat64
	GDPPerCapita          sql.NullFloat64
	LifeExpectancy        sql.NullFloat64
	HumanDevelopmentIndex sql.NullFloat64

	// Computed by the analysis pipeline, never read from the input file.
	MortalityRate       sql.NullFloat64
	RecoveryRate        sql.NullFloat64
	ActiveCases         sql.NullFloat64
	CaseFatalityRatio   sql.NullFloat64
	VaccinationRate     sql.NullFloat64
	FullyVaccinatedRate sql.NullFloat64
	NewCasesMA          sql.NullFloat64
	Wave                int
}

// WaveSegment is one contiguous stretch of a location's timeline that shares a
// wave index, used to shade chart regions.
type WaveSegment struct {
	Wave  int
	Start time.Time
	End   time.Time
}
