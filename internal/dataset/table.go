package dataset

import (
	"database/sql"
	"sort"
	"time"

	"covidash/internal/models"
)

// Table is the in-memory observation table. Rows are kept sorted by
// (location, date) so every location forms a contiguous, date-ordered group.
// A Table is immutable once published: all filtering operations return fresh
// copies, so concurrent readers need no locking.
type Table struct {
	rows []models.Observation

	// ActiveCasesApprox reports that ActiveCases was computed without a
	// recoveries column, i.e. as total_cases - total_deaths. The decision is
	// per-dataset because it is driven by column presence, not row content.
	ActiveCasesApprox bool
}

// NewTable builds a table from rows, copying and sorting them.
func NewTable(rows []models.Observation) *Table {
	owned := make([]models.Observation, len(rows))
	copy(owned, rows)
	sort.SliceStable(owned, func(i, j int) bool {
		if owned[i].Location != owned[j].Location {
			return owned[i].Location < owned[j].Location
		}
		return owned[i].Date.Before(owned[j].Date)
	})
	return &Table{rows: owned}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Rows returns a copy of the table's rows in (location, date) order.
func (t *Table) Rows() []models.Observation {
	out := make([]models.Observation, len(t.rows))
	copy(out, t.rows)
	return out
}

// Row returns the i-th row.
func (t *Table) Row(i int) models.Observation { return t.rows[i] }

func (t *Table) derive(rows []models.Observation) *Table {
	nt := NewTable(rows)
	nt.ActiveCasesApprox = t.ActiveCasesApprox
	return nt
}

// FilterLocations returns a view containing only the given locations.
func (t *Table) FilterLocations(locations []string) *Table {
	want := make(map[string]bool, len(locations))
	for _, l := range locations {
		want[l] = true
	}
	var rows []models.Observation
	for _, o := range t.rows {
		if want[o.Location] {
			rows = append(rows, o)
		}
	}
	return t.derive(rows)
}

// FilterDateRange returns a view restricted to [from, to] inclusive. A zero
// time leaves that bound open.
func (t *Table) FilterDateRange(from, to time.Time) *Table {
	var rows []models.Observation
	for _, o := range t.rows {
		if !from.IsZero() && o.Date.Before(from) {
			continue
		}
		if !to.IsZero() && o.Date.After(to) {
			continue
		}
		rows = append(rows, o)
	}
	return t.derive(rows)
}

// Locations returns the sorted, de-duplicated set of location names.
func (t *Table) Locations() []string {
	var out []string
	for i, o := range t.rows {
		if i == 0 || o.Location != t.rows[i-1].Location {
			out = append(out, o.Location)
		}
	}
	return out
}

// LocationRows returns a copy of one location's rows in date order.
func (t *Table) LocationRows(location string) []models.Observation {
	start, end := t.locationSpan(location)
	out := make([]models.Observation, end-start)
	copy(out, t.rows[start:end])
	return out
}

func (t *Table) locationSpan(location string) (int, int) {
	start := sort.Search(len(t.rows), func(i int) bool {
		return t.rows[i].Location >= location
	})
	end := start
	for end < len(t.rows) && t.rows[end].Location == location {
		end++
	}
	return start, end
}

// DateBounds returns the earliest and latest dates in the table. ok is false
// for an empty table.
func (t *Table) DateBounds() (min, max time.Time, ok bool) {
	for i, o := range t.rows {
		if i == 0 {
			min, max = o.Date, o.Date
			continue
		}
		if o.Date.Before(min) {
			min = o.Date
		}
		if o.Date.After(max) {
			max = o.Date
		}
	}
	return min, max, len(t.rows) > 0
}

// LatestPerLocation returns each location's most recent observation, in
// location order.
func (t *Table) LatestPerLocation() []models.Observation {
	var out []models.Observation
	for i, o := range t.rows {
		if i+1 == len(t.rows) || t.rows[i+1].Location != o.Location {
			out = append(out, o)
		}
	}
	return out
}

// ForwardFill returns a view with null input measures filled from the previous
// row of the same location. It is an explicit opt-in transform; the base table
// is never filled implicitly. Derived columns are left untouched.
func (t *Table) ForwardFill() *Table {
	rows := t.Rows()
	for i := 1; i < len(rows); i++ {
		if rows[i].Location != rows[i-1].Location {
			continue
		}
		prev := &rows[i-1]
		cur := &rows[i]
		fill(&cur.TotalCases, prev.TotalCases)
		fill(&cur.NewCases, prev.NewCases)
		fill(&cur.TotalDeaths, prev.TotalDeaths)
		fill(&cur.NewDeaths, prev.NewDeaths)
		fill(&cur.TotalVaccinations, prev.TotalVaccinations)
		fill(&cur.PeopleVaccinated, prev.PeopleVaccinated)
		fill(&cur.PeopleFullyVaccinated, prev.PeopleFullyVaccinated)
		fill(&cur.Population, prev.Population)
		fill(&cur.PopulationDensity, prev.PopulationDensity)
		fill(&cur.MedianAge, prev.MedianAge)
		fill(&cur.GDPPerCapita, prev.GDPPerCapita)
		fill(&cur.LifeExpectancy, prev.LifeExpectancy)
		fill(&cur.HumanDevelopmentIndex, prev.HumanDevelopmentIndex)
	}
	return t.derive(rows)
}

func fill(dst *sql.NullFloat64, prev sql.NullFloat64) {
	if !dst.Valid && prev.Valid {
		*dst = prev
	}
}
