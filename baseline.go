package ordercast

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/ordercast/ordercast/timeseries"
	"gonum.org/v1/gonum/stat"
)

var ErrUnknownBaseline = errors.New("unknown baseline kind")

// BaselineKind selects one of the closed set of naive reference models. The
// variants live behind a single type rather than a class hierarchy so the
// candidate set stays a flat, inspectable table.
type BaselineKind int

const (
	BaselineMovingAverage BaselineKind = iota
	BaselineExponentialSmoothing
	BaselineSeasonalNaive
	BaselineLinearTrend
)

func (k BaselineKind) String() string {
	switch k {
	case BaselineMovingAverage:
		return "moving_average"
	case BaselineExponentialSmoothing:
		return "exponential_smoothing"
	case BaselineSeasonalNaive:
		return "seasonal_naive"
	case BaselineLinearTrend:
		return "linear_trend"
	default:
		return "unknown"
	}
}

// BaselineOptions configure the reference models.
type BaselineOptions struct {
	// Window is the moving average lookback.
	Window int `json:"window" yaml:"window"`

	// Alpha is the exponential smoothing factor in (0, 1].
	Alpha float64 `json:"alpha" yaml:"alpha"`

	// SeasonLength is the seasonal-naive period in observations.
	SeasonLength int `json:"season_length" yaml:"season_length"`
}

func NewDefaultBaselineOptions() *BaselineOptions {
	return &BaselineOptions{
		Window:       7,
		Alpha:        0.3,
		SeasonLength: 7,
	}
}

// BaselineModel is the immutable fitted state of one baseline variant.
type BaselineModel struct {
	ID   uuid.UUID    `json:"id"`
	Kind BaselineKind `json:"kind"`

	level    float64
	slope    float64
	season   []float64
	sigma    float64
	n        int
	origin   int64
	interval int64
}

// TrainBaseline fits the selected baseline variant on the series and returns
// an immutable model usable for forecasting.
func TrainBaseline(kind BaselineKind, s *timeseries.Series, opt *BaselineOptions) (*BaselineModel, error) {
	if opt == nil {
		opt = NewDefaultBaselineOptions()
	}
	if s.Len() < 2 {
		return nil, fmt.Errorf("baseline %s requires at least 2 observations, %w", kind, timeseries.ErrInsufficientData)
	}

	m := &BaselineModel{
		ID:       uuid.New(),
		Kind:     kind,
		n:        s.Len(),
		origin:   s.EndTime(),
		interval: s.Interval(),
	}
	v := s.V

	switch kind {
	case BaselineMovingAverage:
		window := opt.Window
		if window < 1 {
			window = 1
		}
		if s.Len() <= window {
			return nil, fmt.Errorf(
				"moving average window of %d needs more than %d observations, %w",
				window, s.Len(), timeseries.ErrInsufficientData,
			)
		}
		residuals := make([]float64, 0, len(v)-window)
		for i := window; i < len(v); i++ {
			var sum float64
			for _, val := range v[i-window : i] {
				sum += val
			}
			residuals = append(residuals, v[i]-sum/float64(window))
		}
		var sum float64
		for _, val := range v[len(v)-window:] {
			sum += val
		}
		m.level = sum / float64(window)
		m.sigma = stdDev(residuals)

	case BaselineExponentialSmoothing:
		alpha := opt.Alpha
		if alpha <= 0 || alpha > 1 {
			alpha = 0.3
		}
		fitted := v[0]
		residuals := make([]float64, 0, len(v)-1)
		for i := 1; i < len(v); i++ {
			fitted = alpha*v[i-1] + (1-alpha)*fitted
			residuals = append(residuals, v[i]-fitted)
		}
		m.level = alpha*v[len(v)-1] + (1-alpha)*fitted
		m.sigma = stdDev(residuals)

	case BaselineSeasonalNaive:
		season := opt.SeasonLength
		if season < 1 {
			season = 1
		}
		if s.Len() < 2*season {
			return nil, fmt.Errorf(
				"seasonal naive with period %d needs at least %d observations, %w",
				season, 2*season, timeseries.ErrInsufficientData,
			)
		}
		residuals := make([]float64, 0, len(v)-season)
		for i := season; i < len(v); i++ {
			residuals = append(residuals, v[i]-v[i-season])
		}
		m.season = make([]float64, season)
		copy(m.season, v[len(v)-season:])
		m.sigma = stdDev(residuals)

	case BaselineLinearTrend:
		xs := make([]float64, len(v))
		for i := range xs {
			xs[i] = float64(i)
		}
		intercept, slope := stat.LinearRegression(xs, v, nil, false)
		residuals := make([]float64, len(v))
		for i := range v {
			residuals[i] = v[i] - (intercept + slope*xs[i])
		}
		m.level = intercept + slope*float64(len(v)-1)
		m.slope = slope
		m.sigma = stdDev(residuals)

	default:
		return nil, fmt.Errorf("kind %d, %w", kind, ErrUnknownBaseline)
	}

	return m, nil
}

// Forecast extends the fitted baseline over the horizon with widening
// confidence bounds. Values are floored at zero like the ARIMA engine.
func (m *BaselineModel) Forecast(horizon int, confidenceLevel float64) (*ForecastResult, error) {
	if m == nil {
		return nil, ErrNotTrained
	}
	if horizon < 1 {
		return nil, fmt.Errorf("got horizon of %d, %w", horizon, ErrInvalidHorizon)
	}

	z, ok := zScores[confidenceLevel]
	if !ok {
		z = zScores[0.95]
		confidenceLevel = 0.95
	}

	points := make([]timeseries.Point, 0, horizon)
	upper := make([]float64, horizon)
	lower := make([]float64, horizon)
	for i := 0; i < horizon; i++ {
		step := i + 1

		var pred float64
		switch m.Kind {
		case BaselineSeasonalNaive:
			pred = m.season[i%len(m.season)]
		case BaselineLinearTrend:
			pred = m.level + m.slope*float64(step)
		default:
			pred = m.level
		}
		pred = math.Max(0, pred)

		hw := z * m.sigma * math.Sqrt(float64(step))
		upper[i] = math.Max(pred, pred+hw)
		lower[i] = math.Max(0, pred-hw)

		points = append(points, timeseries.Point{
			T: m.origin + int64(step)*m.interval,
			V: pred,
		})
	}

	return &ForecastResult{
		ModelID:     m.ID,
		Horizon:     horizon,
		Confidence:  confidenceLevel,
		Origin:      m.origin,
		Predictions: points,
		Upper:       upper,
		Lower:       lower,
	}, nil
}

func stdDev(v []float64) float64 {
	if len(v) < 2 {
		return 0
	}
	return math.Sqrt(stat.Variance(v, nil))
}
