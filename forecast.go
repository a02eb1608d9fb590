package ordercast

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/ordercast/ordercast/timeseries"
)

var (
	ErrNotTrained     = errors.New("model has not been trained")
	ErrInvalidHorizon = errors.New("forecast horizon must be at least 1")
)

// zScores maps supported confidence levels to their normal quantiles.
var zScores = map[float64]float64{
	0.90: 1.645,
	0.95: 1.960,
	0.99: 2.576,
}

// ForecastResult holds the forecasted points along with parallel confidence
// interval bounds. It is never mutated after creation.
type ForecastResult struct {
	ModelID     uuid.UUID          `json:"model_id"`
	Horizon     int                `json:"horizon"`
	Confidence  float64            `json:"confidence"`
	Origin      int64              `json:"origin"`
	Predictions []timeseries.Point `json:"predictions"`
	Upper       []float64          `json:"upper"`
	Lower       []float64          `json:"lower"`
}

// Values returns the forecasted values without timestamps.
func (r *ForecastResult) Values() []float64 {
	v := make([]float64, 0, len(r.Predictions))
	for _, pt := range r.Predictions {
		v = append(v, pt.V)
	}
	return v
}

// Forecast produces horizon future values from a fitted model using default
// options, satisfying the Forecaster interface.
func (m *Model) Forecast(horizon int, confidenceLevel float64) (*ForecastResult, error) {
	return Forecast(m, horizon, confidenceLevel, nil)
}

// Forecast recursively produces horizon future values one step at a time,
// feeding each prediction back in as pseudo-history, then widens confidence
// intervals with the step and undifferences the result back to the original
// scale. Forecasted values are floored at zero since the series represents
// non-negative business quantities.
func Forecast(m *Model, horizon int, confidenceLevel float64, opt *Options) (*ForecastResult, error) {
	if m == nil || m.Fit == nil || m.Series == nil {
		return nil, ErrNotTrained
	}
	if horizon < 1 {
		return nil, fmt.Errorf("got horizon of %d, %w", horizon, ErrInvalidHorizon)
	}
	if opt == nil {
		opt = NewDefaultOptions()
	}

	p := m.Order.P
	q := m.Order.Q
	d := m.Order.D

	diffed, _ := timeseries.Difference(m.Series.V, d)

	// bound the working history so long horizons stay cheap
	window := max(p, q, 20) + 50
	working := tail(diffed, window)
	residuals := tail(m.Fit.Residuals, window)

	deltas := make([]float64, horizon)
	for step := 1; step <= horizon; step++ {
		pred := m.Fit.Intercept
		for i := 0; i < p && i < len(working); i++ {
			pred += m.Fit.ARCoef[i] * working[len(working)-1-i]
		}
		for j := 0; j < q && j < len(residuals); j++ {
			pred += m.Fit.MACoef[j] * residuals[len(residuals)-1-j]
		}

		if d == 0 && opt.MeanReversionWindow > 0 {
			pred = (1-opt.MeanReversionBlend)*pred +
				opt.MeanReversionBlend*rollingMean(working, opt.MeanReversionWindow)
		}

		// future residuals have expectation zero
		working = append(working, pred)
		residuals = append(residuals, 0)
		if len(working) > window {
			working = working[1:]
			residuals = residuals[1:]
		}
		deltas[step-1] = pred
	}

	z, ok := zScores[confidenceLevel]
	if !ok {
		z = zScores[0.95]
		confidenceLevel = 0.95
	}
	sigma := math.Sqrt(m.Fit.Variance)
	halfWidths := make([]float64, horizon)
	for i := range halfWidths {
		halfWidths[i] = z * sigma * (1 + opt.CIGrowth*float64(i))
	}

	var preds, upper, lower []float64
	if d == 0 {
		preds = deltas
		upper = make([]float64, horizon)
		lower = make([]float64, horizon)
		for i := range deltas {
			upper[i] = deltas[i] + halfWidths[i]
			lower[i] = deltas[i] - halfWidths[i]
		}
	} else {
		damp := opt.DampD1
		if d >= 2 {
			damp = opt.DampD2
		}
		base := tail(m.Series.V, max(d, 2))

		upperDeltas := make([]float64, horizon)
		lowerDeltas := make([]float64, horizon)
		for i := range deltas {
			upperDeltas[i] = deltas[i] + halfWidths[i]
			lowerDeltas[i] = deltas[i] - halfWidths[i]
		}
		preds = timeseries.UndifferenceDamped(deltas, base, d, damp)
		upper = timeseries.UndifferenceDamped(upperDeltas, base, d, damp)
		lower = timeseries.UndifferenceDamped(lowerDeltas, base, d, damp)
	}

	for i := range preds {
		preds[i] = math.Max(0, preds[i])
		lower[i] = math.Max(0, lower[i])
		upper[i] = math.Max(preds[i], upper[i])
	}

	interval := m.Series.Interval()
	origin := m.Series.EndTime()
	points := make([]timeseries.Point, 0, horizon)
	for i := 0; i < horizon; i++ {
		points = append(points, timeseries.Point{
			T: origin + int64(i+1)*interval,
			V: preds[i],
		})
	}

	return &ForecastResult{
		ModelID:     m.ID,
		Horizon:     horizon,
		Confidence:  confidenceLevel,
		Origin:      origin,
		Predictions: points,
		Upper:       upper,
		Lower:       lower,
	}, nil
}

func tail(v []float64, n int) []float64 {
	if len(v) > n {
		v = v[len(v)-n:]
	}
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

func rollingMean(v []float64, window int) float64 {
	if len(v) == 0 {
		return 0
	}
	if window > len(v) {
		window = len(v)
	}
	var sum float64
	for _, val := range v[len(v)-window:] {
		sum += val
	}
	return sum / float64(window)
}
