// Package ordercast implements ARIMA based demand forecasting: differencing,
// AR/MA coefficient estimation, model scoring, multi-model auto-selection,
// and iterative multi-step forecasting with confidence intervals.
package ordercast

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/ordercast/ordercast/estimator"
	"github.com/ordercast/ordercast/score"
	"github.com/ordercast/ordercast/timeseries"
	"go.uber.org/zap"
)

// Forecaster is the capability shared by a fitted ARIMA model and the
// baseline reference models.
type Forecaster interface {
	Forecast(horizon int, confidenceLevel float64) (*ForecastResult, error)
}

var (
	_ Forecaster = (*Model)(nil)
	_ Forecaster = (*BaselineModel)(nil)
)

// Model is the immutable result of one training call: the fitted
// coefficients, validation metrics, and the cleaned training series required
// for forecasting. It is created once and read-only afterward so forecasting
// from the same model concurrently requires no locks.
type Model struct {
	ID      uuid.UUID              `json:"id"`
	Order   estimator.Order        `json:"order"`
	Fit     *estimator.FittedModel `json:"fit"`
	Metrics *score.Metrics         `json:"metrics"`
	Series  *timeseries.Series     `json:"series"`
}

// Train cleans the input series, differences it to the requested order, and
// fits the AR/MA coefficients. The order actually fit may carry a lower
// differencing order than requested when the series is too short to
// difference safely; the effective order is recorded on the returned model.
func Train(s *timeseries.Series, order estimator.Order, opt *Options) (*Model, error) {
	if opt == nil {
		opt = NewDefaultOptions()
	}
	if s.Len() < timeseries.MinTrainLen {
		return nil, fmt.Errorf(
			"training requires at least %d observations, got %d, %w",
			timeseries.MinTrainLen, s.Len(), timeseries.ErrInsufficientData,
		)
	}

	cleaned, err := s.Clean()
	if err != nil {
		return nil, fmt.Errorf("unable to clean training series, %w", err)
	}
	return trainCleaned(cleaned, order, opt)
}

// trainCleaned fits on a series that has already been cleaned. AutoSelect
// uses this to clean once across all candidate orders.
func trainCleaned(cleaned *timeseries.Series, order estimator.Order, opt *Options) (*Model, error) {
	if cleaned.Len() < timeseries.MinTrainLen {
		return nil, fmt.Errorf(
			"training requires at least %d observations after cleaning, got %d, %w",
			timeseries.MinTrainLen, cleaned.Len(), timeseries.ErrInsufficientData,
		)
	}

	diffed, applied := timeseries.Difference(cleaned.V, order.D)
	if applied < order.D {
		opt.logger().Debug("reduced differencing order on short series",
			zap.String("order", order.String()),
			zap.Int("applied", applied),
		)
	}
	effective := order
	effective.D = applied

	fit, err := estimator.Estimate(diffed, effective, opt.estimatorOptions())
	if err != nil {
		return nil, fmt.Errorf("unable to estimate %s, %w", effective, err)
	}

	fittedOrig := fittedOriginalScale(cleaned.V, fit.Fitted, effective.D)
	actual := cleaned.V
	if effective.D > 2 {
		// beyond double differencing the reconstruction is not exact, so the
		// fit is scored on the differenced scale instead
		actual = diffed
	}
	metrics, err := score.NewMetrics(actual, fittedOrig, fit.Residuals, fit.AIC, fit.BIC, opt.scoreOptions())
	if err != nil {
		return nil, fmt.Errorf("unable to score %s, %w", effective, err)
	}

	return &Model{
		ID:      uuid.New(),
		Order:   effective,
		Fit:     fit,
		Metrics: metrics,
		Series:  cleaned,
	}, nil
}

// fittedOriginalScale reconstructs fitted values on the original scale using
// the actual lagged levels, so validation metrics compare like with like when
// the model was fit on a differenced series.
func fittedOriginalScale(v, fitted []float64, d int) []float64 {
	out := make([]float64, len(fitted))
	switch d {
	case 1:
		// fitted[j] estimates v[j+1] - v[j]
		for j := range fitted {
			out[j] = v[j] + fitted[j]
		}
	case 2:
		// fitted[j] estimates v[j+2] - 2*v[j+1] + v[j]
		for j := range fitted {
			out[j] = 2*v[j+1] - v[j] + fitted[j]
		}
	default:
		copy(out, fitted)
	}
	return out
}
