package store

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"covidash/internal/models"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s := New(db)
	if err := s.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func nf(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}

func sampleObservations() []models.Observation {
	return []models.Observation{
		{
			Location:   "Kenya",
			Continent:  "Africa",
			Date:       time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC),
			TotalCases: nf(105000),
			NewCases:   nf(700),
			Population: nf(53_771_300),
			// TotalDeaths deliberately null.
		},
		{
			Location:    "United States",
			Continent:   "North America",
			Date:        time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC),
			TotalCases:  nf(28_700_000),
			TotalDeaths: nf(515_000),
			MedianAge:   nf(38.3),
		},
	}
}

func TestReplaceSnapshotRoundTrip(t *testing.T) {
	s := setupTestStore(t)

	if err := s.ReplaceSnapshot(sampleObservations()); err != nil {
		t.Fatalf("ReplaceSnapshot: %v", err)
	}

	got, err := s.LoadObservations()
	if err != nil {
		t.Fatalf("LoadObservations: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}

	ke := got[0]
	if ke.Location != "Kenya" || ke.Continent != "Africa" {
		t.Errorf("got[0] = %s/%s, want Kenya/Africa", ke.Location, ke.Continent)
	}
	if !ke.Date.Equal(time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Date = %v", ke.Date)
	}
	if !ke.TotalCases.Valid || ke.TotalCases.Float64 != 105000 {
		t.Errorf("TotalCases = %+v", ke.TotalCases)
	}
	if ke.TotalDeaths.Valid {
		t.Errorf("TotalDeaths should stay null, got %+v", ke.TotalDeaths)
	}

	us := got[1]
	if us.Location != "United States" {
		t.Errorf("got[1].Location = %s", us.Location)
	}
	if !us.MedianAge.Valid || us.MedianAge.Float64 != 38.3 {
		t.Errorf("MedianAge = %+v", us.MedianAge)
	}
}

func TestReplaceSnapshotOverwritesPrevious(t *testing.T) {
	s := setupTestStore(t)

	if err := s.ReplaceSnapshot(sampleObservations()); err != nil {
		t.Fatalf("first ReplaceSnapshot: %v", err)
	}
	replacement := []models.Observation{{
		Location:   "Brazil",
		Date:       time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC),
		TotalCases: nf(16_500_000),
	}}
	if err := s.ReplaceSnapshot(replacement); err != nil {
		t.Fatalf("second ReplaceSnapshot: %v", err)
	}

	n, err := s.CountObservations()
	if err != nil {
		t.Fatalf("CountObservations: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
	got, err := s.LoadObservations()
	if err != nil {
		t.Fatalf("LoadObservations: %v", err)
	}
	if got[0].Location != "Brazil" {
		t.Errorf("got[0].Location = %s, want Brazil", got[0].Location)
	}
}

func TestLoadObservationsOrdered(t *testing.T) {
	s := setupTestStore(t)

	var rows []models.Observation
	for d := 3; d >= 1; d-- {
		rows = append(rows, models.Observation{
			Location: "India",
			Date:     time.Date(2021, 1, d, 0, 0, 0, 0, time.UTC),
			NewCases: nf(float64(d)),
		})
	}
	rows = append(rows, models.Observation{
		Location: "Brazil",
		Date:     time.Date(2021, 1, 5, 0, 0, 0, 0, time.UTC),
	})
	if err := s.ReplaceSnapshot(rows); err != nil {
		t.Fatalf("ReplaceSnapshot: %v", err)
	}

	got, err := s.LoadObservations()
	if err != nil {
		t.Fatalf("LoadObservations: %v", err)
	}
	if got[0].Location != "Brazil" {
		t.Errorf("got[0].Location = %s, want Brazil first", got[0].Location)
	}
	for i := 2; i < len(got); i++ {
		if got[i].Date.Before(got[i-1].Date) {
			t.Errorf("dates out of order at %d: %v after %v", i, got[i].Date, got[i-1].Date)
		}
	}
}

func TestMetaRoundTrip(t *testing.T) {
	s := setupTestStore(t)

	if v, err := s.GetMeta(MetaSourcePath); err != nil || v != "" {
		t.Fatalf("GetMeta on empty store = %q, %v; want \"\", nil", v, err)
	}

	if err := s.SetMeta(MetaSourcePath, "/data/covid.csv"); err != nil {
		t.Fatalf("SetMeta: %v", err)
	}
	if err := s.SetMeta(MetaSourcePath, "/data/covid-2.csv"); err != nil {
		t.Fatalf("SetMeta overwrite: %v", err)
	}

	v, err := s.GetMeta(MetaSourcePath)
	if err != nil {
		t.Fatalf("GetMeta: %v", err)
	}
	if v != "/data/covid-2.csv" {
		t.Errorf("GetMeta = %q, want latest value", v)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	s := setupTestStore(t)

	if err := s.Migrate(); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	version, err := s.MigrationVersion()
	if err != nil {
		t.Fatalf("MigrationVersion: %v", err)
	}
	if version != len(migrations) {
		t.Errorf("version = %d, want %d", version, len(migrations))
	}
}
