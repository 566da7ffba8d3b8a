package analysis

import (
	"errors"
	"fmt"
	"math"
	"time"

	"covidash/internal/dataset"
	"covidash/internal/models"
)

const (
	// DefaultHorizon is the number of future days projected when none is given.
	DefaultHorizon = 30

	polyDegree      = 3
	minObservations = 10
)

// ErrInsufficientData signals that a (location, metric) pair has too few
// non-null observations to fit. It is a normal outcome, not a fault: callers
// show a "not enough data" state and carry on.
var ErrInsufficientData = errors.New("insufficient data for projection")

// NumericalError reports a fit that failed numerically (singular normal
// matrix, non-finite values). It is recoverable like ErrInsufficientData but
// kept distinct so callers and tests can tell the two causes apart.
type NumericalError struct {
	Reason string
}

func (e *NumericalError) Error() string { return "numerical failure: " + e.Reason }

// Projection is a trend extrapolation: parallel future dates and predicted
// values for one location and metric. It is a visual aid with no accuracy
// guarantees.
type Projection struct {
	Location string
	Metric   models.Metric
	Dates    []time.Time
	Values   []float64
}

// Project fits a degree-3 polynomial over the integer index of the location's
// non-null observations of metric and extrapolates horizon future days,
// continuing at one-day cadence from the last observed date. The fit is
// deterministic: identical inputs yield identical predictions.
//
// Errors are scoped to this (location, metric) pair and never panic: too few
// points yields ErrInsufficientData, and any numerical failure inside the fit
// is converted to a *NumericalError at this boundary.
func Project(t *dataset.Table, location string, metric models.Metric, horizon int) (*Projection, error) {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	rows := t.LocationRows(location)

	var ys []float64
	var lastDate time.Time
	for i := range rows {
		if v := metric.Value(&rows[i]); v.Valid {
			ys = append(ys, v.Float64)
			lastDate = rows[i].Date
		}
	}
	if len(ys) < minObservations {
		return nil, ErrInsufficientData
	}

	coeffs, err := polyfit(ys, polyDegree)
	if err != nil {
		return nil, err
	}

	p := &Projection{
		Location: location,
		Metric:   metric,
		Dates:    make([]time.Time, horizon),
		Values:   make([]float64, horizon),
	}
	for i := 0; i < horizon; i++ {
		x := float64(len(ys) + i)
		v := polyval(coeffs, x)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &NumericalError{Reason: fmt.Sprintf("non-finite prediction at day %d", i+1)}
		}
		p.Dates[i] = lastDate.AddDate(0, 0, i+1)
		p.Values[i] = v
	}
	return p, nil
}

// polyfit solves the least-squares polynomial of the given degree over
// x = 0..len(ys)-1 via the normal equations. Coefficients are returned in
// ascending power order.
func polyfit(ys []float64, degree int) ([]float64, error) {
	k := degree + 1
	n := len(ys)

	// Normal equations: A[i][j] = sum x^(i+j), b[i] = sum y*x^i.
	powSums := make([]float64, 2*degree+1)
	b := make([]float64, k)
	for xi := 0; xi < n; xi++ {
		x := float64(xi)
		y := ys[xi]
		p := 1.0
		for d := 0; d <= 2*degree; d++ {
			powSums[d] += p
			if d < k {
				b[d] += y * p
			}
			p *= x
		}
	}
	a := make([][]float64, k)
	for i := 0; i < k; i++ {
		a[i] = make([]float64, k)
		for j := 0; j < k; j++ {
			a[i][j] = powSums[i+j]
		}
	}

	coeffs, err := solveLinear(a, b)
	if err != nil {
		return nil, err
	}
	for _, c := range coeffs {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, &NumericalError{Reason: "non-finite fit coefficients"}
		}
	}
	return coeffs, nil
}

func polyval(coeffs []float64, x float64) float64 {
	v := 0.0
	for i := len(coeffs) - 1; i >= 0; i-- {
		v = v*x + coeffs[i]
	}
	return v
}

// solveLinear solves a*x = b by Gauss-Jordan elimination with partial
// pivoting. The matrix is tiny (4x4 for a cubic fit), so no decomposition
// library is warranted.
func solveLinear(a [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	// Augment in place on copies; callers keep their inputs.
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n+1)
		copy(m[i], a[i])
		m[i][n] = b[i]
	}

	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(m[r][col]) > math.Abs(m[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(m[pivot][col]) < 1e-12 {
			return nil, &NumericalError{Reason: "singular normal matrix"}
		}
		m[col], m[pivot] = m[pivot], m[col]

		inv := 1 / m[col][col]
		for j := col; j <= n; j++ {
			m[col][j] *= inv
		}
		for r := 0; r < n; r++ {
			if r == col || m[r][col] == 0 {
				continue
			}
			factor := m[r][col]
			for j := col; j <= n; j++ {
				m[r][j] -= factor * m[col][j]
			}
		}
	}

	x := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = m[i][n]
	}
	return x, nil
}
