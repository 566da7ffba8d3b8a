package analysis

import (
	"database/sql"

	"covidash/internal/dataset"
	"covidash/internal/models"
)

// DefaultWaveWindow is the moving-average window used when none is given.
const DefaultWaveWindow = 30

// DetectWaves returns a new table with NewCasesMA and Wave populated.
//
// Per location, in date order, NewCasesMA is a trailing moving average of
// NewCases over up to window observations: the first window-1 rows average
// over however many points exist rather than going null, and null inputs are
// excluded from the window mean. Wave counts the upward inflections of the
// smoothed curve: Wave[i] is the number of indices j <= i at which the first
// difference of NewCasesMA is positive, restarting at 0 for each location.
//
// This is a charting heuristic for shading wave regions, not an
// epidemiological wave model. A location with fewer than two observations, or
// a never-increasing smoothed series, stays in wave 0.
func DetectWaves(t *dataset.Table, window int) *dataset.Table {
	if window <= 0 {
		window = DefaultWaveWindow
	}
	rows := t.Rows()
	// Rows are sorted by (location, date); walk each contiguous group.
	for start := 0; start < len(rows); {
		end := start
		for end < len(rows) && rows[end].Location == rows[start].Location {
			end++
		}
		detectGroup(rows[start:end], window)
		start = end
	}
	nt := dataset.NewTable(rows)
	nt.ActiveCasesApprox = t.ActiveCasesApprox
	return nt
}

func detectGroup(group []models.Observation, window int) {
	wave := 0
	var prevMA sql.NullFloat64
	for i := range group {
		ma := trailingMean(group, i, window)
		group[i].NewCasesMA = ma
		// The first difference is undefined at the start of the series and
		// wherever either side of it is null; only a defined positive
		// difference advances the wave counter.
		if i > 0 && ma.Valid && prevMA.Valid && ma.Float64-prevMA.Float64 > 0 {
			wave++
		}
		group[i].Wave = wave
		prevMA = ma
	}
}

func trailingMean(group []models.Observation, i, window int) sql.NullFloat64 {
	lo := i - window + 1
	if lo < 0 {
		lo = 0
	}
	sum, n := 0.0, 0
	for j := lo; j <= i; j++ {
		if v := group[j].NewCases; v.Valid {
			sum += v.Float64
			n++
		}
	}
	if n == 0 {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: sum / float64(n), Valid: true}
}

// WaveSegments returns one (start, end) date pair per wave index for the given
// location, in wave order. Wave is non-decreasing along the date axis, so each
// wave occupies a single contiguous stretch; a single-observation location
// yields one zero-width segment.
func WaveSegments(t *dataset.Table, location string) []models.WaveSegment {
	rows := t.LocationRows(location)
	var segs []models.WaveSegment
	for _, o := range rows {
		if n := len(segs); n > 0 && segs[n-1].Wave == o.Wave {
			segs[n-1].End = o.Date
			continue
		}
		segs = append(segs, models.WaveSegment{Wave: o.Wave, Start: o.Date, End: o.Date})
	}
	return segs
}
