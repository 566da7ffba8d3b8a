package models

import "database/sql"

// Metric names a plottable column of an Observation. Names match the dataset's
// column naming so API parameters and export headers line up with the source.
type Metric string

const (
	MetricTotalCases            Metric = "total_cases"
	MetricNewCases              Metric = "new_cases"
	MetricTotalDeaths           Metric = "total_deaths"
	MetricNewDeaths             Metric = "new_deaths"
	MetricTotalVaccinations     Metric = "total_vaccinations"
	MetricPeopleVaccinated      Metric = "people_vaccinated"
	MetricPeopleFullyVaccinated Metric = "people_fully_vaccinated"
	MetricPopulation            Metric = "population"
	MetricMortalityRate         Metric = "mortality_rate"
	MetricRecoveryRate          Metric = "recovery_rate"
	MetricActiveCases           Metric = "active_cases"
	MetricCaseFatalityRatio     Metric = "case_fatality_ratio"
	MetricVaccinationRate       Metric = "vaccination_rate"
	MetricFullyVaccinatedRate   Metric = "fully_vaccinated_rate"
	MetricNewCasesMA            Metric = "new_cases_ma"
)

// Metrics lists every known metric in display order.
var Metrics = []Metric{
	MetricTotalCases,
	MetricNewCases,
	MetricTotalDeaths,
	MetricNewDeaths,
	MetricTotalVaccinations,
	MetricPeopleVaccinated,
	MetricPeopleFullyVaccinated,
	MetricPopulation,
	MetricMortalityRate,
	MetricRecoveryRate,
	MetricActiveCases,
	MetricCaseFatalityRatio,
	MetricVaccinationRate,
	MetricFullyVaccinatedRate,
	MetricNewCasesMA,
}

// ParseMetric resolves a metric name, reporting whether it is known. Resolving
// at the boundary keeps "column not present" a request-time decision instead of
// a silent missing-key lookup at render time.
func ParseMetric(name string) (Metric, bool) {
	m := Metric(name)
	for _, known := range Metrics {
		if m == known {
			return m, true
		}
	}
	return "", false
}

// Value reads the metric's column from an observation.
func (m Metric) Value(o *Observation) sql.NullFloat64 {
	switch m {
	case MetricTotalCases:
		return o.TotalCases
	case MetricNewCases:
		return o.NewCases
	case MetricTotalDeaths:
		return o.TotalDeaths
	case MetricNewDeaths:
		return o.NewDeaths
	case MetricTotalVaccinations:
		return o.TotalVaccinations
	case MetricPeopleVaccinated:
		return o.PeopleVaccinated
	case MetricPeopleFullyVaccinated:
		return o.PeopleFullyVaccinated
	case MetricPopulation:
		return o.Population
	case MetricMortalityRate:
		return o.MortalityRate
	case MetricRecoveryRate:
		return o.RecoveryRate
	case MetricActiveCases:
		return o.ActiveCases
	case MetricCaseFatalityRatio:
		return o.CaseFatalityRatio
	case MetricVaccinationRate:
		return o.VaccinationRate
	case MetricFullyVaccinatedRate:
		return o.FullyVaccinatedRate
	case MetricNewCasesMA:
		return o.NewCasesMA
	}
	return sql.NullFloat64{}
}
