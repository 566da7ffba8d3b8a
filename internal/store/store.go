// Package store persists parsed dataset snapshots in SQLite so the server can
// start without re-parsing the raw CSV on every boot.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"covidash/internal/dataset"
	"covidash/internal/models"
)

// Meta keys recorded alongside a snapshot.
const (
	MetaSourcePath = "source_path"
	MetaIngestedAt = "ingested_at"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// ReplaceSnapshot swaps the stored snapshot for the given rows in one
// transaction, so readers never observe a half-written snapshot.
func (s *Store) ReplaceSnapshot(rows []models.Observation) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM observations"); err != nil {
		return fmt.Errorf("clear observations: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO observations (
			location, date, continent,
			total_cases, new_cases, total_deaths, new_deaths,
			total_vaccinations, people_vaccinated, people_fully_vaccinated,
			population, population_density, median_age, gdp_per_capita,
			life_expectancy, human_development_index
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(location, date) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range rows {
		if _, err := stmt.Exec(
			o.Location, o.Date.Format(dataset.DateLayout), o.Continent,
			o.TotalCases, o.NewCases, o.TotalDeaths, o.NewDeaths,
			o.TotalVaccinations, o.PeopleVaccinated, o.PeopleFullyVaccinated,
			o.Population, o.PopulationDensity, o.MedianAge, o.GDPPerCapita,
			o.LifeExpectancy, o.HumanDevelopmentIndex,
		); err != nil {
			return fmt.Errorf("insert observation %s/%s: %w", o.Location, o.Date.Format(dataset.DateLayout), err)
		}
	}

	return tx.Commit()
}

// LoadObservations reads the full snapshot back, ordered by (location, date).
func (s *Store) LoadObservations() ([]models.Observation, error) {
	rows, err := s.db.Query(`
		SELECT location, date, continent,
		       total_cases, new_cases, total_deaths, new_deaths,
		       total_vaccinations, people_vaccinated, people_fully_vaccinated,
		       population, population_density, median_age, gdp_per_capita,
		       life_expectancy, human_development_index
		FROM observations
		ORDER BY location, date
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Observation
	for rows.Next() {
		var o models.Observation
		var date string
		var continent sql.NullString
		if err := rows.Scan(
			&o.Location, &date, &continent,
			&o.TotalCases, &o.NewCases, &o.TotalDeaths, &o.NewDeaths,
			&o.TotalVaccinations, &o.PeopleVaccinated, &o.PeopleFullyVaccinated,
			&o.Population, &o.PopulationDensity, &o.MedianAge, &o.GDPPerCapita,
			&o.LifeExpectancy, &o.HumanDevelopmentIndex,
		); err != nil {
			return nil, err
		}
		o.Continent = continent.String
		o.Date, err = time.Parse(dataset.DateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("parse stored date %q: %w", date, err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// CountObservations returns the number of stored rows.
func (s *Store) CountObservations() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM observations").Scan(&n)
	return n, err
}

func (s *Store) SetMeta(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// GetMeta returns the stored value, or "" when the key has never been set.
func (s *Store) GetMeta(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}
