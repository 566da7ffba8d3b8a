package dataset

import (
	"database/sql"
	"testing"
	"time"

	"covidash/internal/models"
)

func day(d int) time.Time {
	return time.Date(2021, 1, d, 0, 0, 0, 0, time.UTC)
}

func obs(loc string, d int, cases float64) models.Observation {
	return models.Observation{
		Location:   loc,
		Date:       day(d),
		TotalCases: sql.NullFloat64{Float64: cases, Valid: true},
	}
}

func TestNewTableSortsRows(t *testing.T) {
	table := NewTable([]models.Observation{
		obs("United States", 2, 150),
		obs("Kenya", 1, 5),
		obs("United States", 1, 100),
	})

	rows := table.Rows()
	if rows[0].Location != "Kenya" {
		t.Errorf("rows[0].Location = %q, want Kenya", rows[0].Location)
	}
	if !rows[1].Date.Equal(day(1)) || !rows[2].Date.Equal(day(2)) {
		t.Error("location group not in date order")
	}
}

func TestFilterLocations(t *testing.T) {
	table := NewTable([]models.Observation{
		obs("Brazil", 1, 10),
		obs("Kenya", 1, 20),
		obs("United States", 1, 30),
	})

	view := table.FilterLocations([]string{"Kenya", "Brazil"})
	if got := view.Locations(); len(got) != 2 || got[0] != "Brazil" || got[1] != "Kenya" {
		t.Errorf("Locations() = %v, want [Brazil Kenya]", got)
	}
	// The base table is untouched.
	if table.Len() != 3 {
		t.Errorf("base table mutated: Len = %d", table.Len())
	}
}

func TestFilterDateRange(t *testing.T) {
	table := NewTable([]models.Observation{
		obs("Kenya", 1, 1), obs("Kenya", 2, 2), obs("Kenya", 3, 3), obs("Kenya", 4, 4),
	})

	tests := []struct {
		name     string
		from, to time.Time
		want     int
	}{
		{"inclusive bounds", day(2), day(3), 2},
		{"open from", time.Time{}, day(2), 2},
		{"open to", day(3), time.Time{}, 2},
		{"outside range", day(10), day(20), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := table.FilterDateRange(tt.from, tt.to).Len(); got != tt.want {
				t.Errorf("Len = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLatestPerLocation(t *testing.T) {
	table := NewTable([]models.Observation{
		obs("Kenya", 1, 1), obs("Kenya", 3, 3),
		obs("United States", 2, 2),
	})

	latest := table.LatestPerLocation()
	if len(latest) != 2 {
		t.Fatalf("len = %d, want 2", len(latest))
	}
	if !latest[0].Date.Equal(day(3)) {
		t.Errorf("Kenya latest = %v, want day 3", latest[0].Date)
	}
	if !latest[1].Date.Equal(day(2)) {
		t.Errorf("United States latest = %v, want day 2", latest[1].Date)
	}
}

func TestDateBounds(t *testing.T) {
	if _, _, ok := NewTable(nil).DateBounds(); ok {
		t.Error("empty table reported bounds")
	}

	table := NewTable([]models.Observation{obs("Kenya", 3, 1), obs("Brazil", 1, 1)})
	min, max, ok := table.DateBounds()
	if !ok || !min.Equal(day(1)) || !max.Equal(day(3)) {
		t.Errorf("DateBounds = %v..%v ok=%v", min, max, ok)
	}
}

func TestForwardFill(t *testing.T) {
	rows := []models.Observation{
		obs("Kenya", 1, 100),
		{Location: "Kenya", Date: day(2)},                // all measures null
		{Location: "United States", Date: day(3)},        // different location, stays null
		obs("Kenya", 3, 120),
	}
	table := NewTable(rows)

	filled := table.ForwardFill()
	kenyaRows := filled.LocationRows("Kenya")
	if !kenyaRows[1].TotalCases.Valid || kenyaRows[1].TotalCases.Float64 != 100 {
		t.Errorf("day 2 TotalCases = %+v, want filled 100", kenyaRows[1].TotalCases)
	}
	if kenyaRows[2].TotalCases.Float64 != 120 {
		t.Error("existing value overwritten by fill")
	}

	// Fill never crosses a location boundary.
	usRows := filled.LocationRows("United States")
	if usRows[0].TotalCases.Valid {
		t.Error("fill leaked across locations")
	}

	// The base table keeps its nulls.
	if table.LocationRows("Kenya")[1].TotalCases.Valid {
		t.Error("ForwardFill mutated the base table")
	}
}

func TestLocationRowsCopies(t *testing.T) {
	table := NewTable([]models.Observation{obs("Kenya", 1, 100)})
	rows := table.LocationRows("Kenya")
	rows[0].TotalCases = sql.NullFloat64{Float64: 999, Valid: true}
	if table.Row(0).TotalCases.Float64 != 100 {
		t.Error("LocationRows returned a view into the base table")
	}
}
