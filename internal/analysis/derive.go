// Package analysis turns the raw observation table into the derived series the
// dashboard renders: ratio metrics, smoothed new-case waves, and polynomial
// trend projections.
package analysis

import (
	"database/sql"

	"covidash/internal/dataset"
)

// Derive returns a new table with the ratio metrics computed per row. A null
// or zero denominator yields a null result, never Inf, NaN, or a silent zero.
// Rates are deliberately unclamped: inconsistent upstream data (deaths
// exceeding cases, double-counted vaccinations) can push them past 100%, and
// hiding that would misrepresent the source.
//
// The input table is not mutated and its source columns are never rewritten.
func Derive(t *dataset.Table) *dataset.Table {
	rows := t.Rows()
	for i := range rows {
		o := &rows[i]
		o.MortalityRate = percentRatio(o.TotalDeaths, o.TotalCases)
		o.CaseFatalityRatio = percentRatio(o.TotalDeaths, o.TotalCases)
		o.RecoveryRate = percentRatio(minus(o.TotalCases, o.TotalDeaths), o.TotalCases)
		// The source data carries no recoveries column, so active cases are the
		// cases-minus-deaths approximation; the table flags this for consumers.
		o.ActiveCases = minus(o.TotalCases, o.TotalDeaths)
		o.VaccinationRate = percentRatio(o.PeopleVaccinated, o.Population)
		o.FullyVaccinatedRate = percentRatio(o.PeopleFullyVaccinated, o.Population)
	}
	nt := dataset.NewTable(rows)
	nt.ActiveCasesApprox = true
	return nt
}

func percentRatio(num, den sql.NullFloat64) sql.NullFloat64 {
	if !num.Valid || !den.Valid || den.Float64 == 0 {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: num.Float64 / den.Float64 * 100, Valid: true}
}

func minus(a, b sql.NullFloat64) sql.NullFloat64 {
	if !a.Valid || !b.Valid {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: a.Float64 - b.Float64, Valid: true}
}
