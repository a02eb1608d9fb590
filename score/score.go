// Package score computes validation metrics for a fitted forecast model.
// Metrics are pure functions of the model outputs and the actual series so a
// model may be rescored at any time without retraining.
package score

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

var ErrLenMismatch = errors.New("actual and fitted have different lengths")

const (
	// MinR2 bounds the coefficient of determination from below so
	// pathological fits do not report absurd values.
	MinR2 = -5.0

	// mapeFloor excludes near-zero actual values from MAPE to avoid
	// division blow-up.
	mapeFloor = 0.001

	// mapeTermCap bounds a single percentage error term.
	mapeTermCap = 500.0

	// mapeCap bounds the overall MAPE.
	mapeCap = 999.0
)

// Options adjust the scoring heuristics.
type Options struct {
	// CorrR2Override replaces the RSS-based R² with the squared Pearson
	// correlation of actual and fitted when the two disagree by more than
	// CorrR2Delta and the correlation-based value is higher. This counters an
	// ill-conditioned RSS-based R² under heavy outlier capping.
	CorrR2Override bool    `json:"corr_r2_override" yaml:"corr_r2_override"`
	CorrR2Delta    float64 `json:"corr_r2_delta" yaml:"corr_r2_delta"`

	// Lags is the number of residual autocorrelation lags tested by the
	// Box-Pierce statistic. The bucketed p-value table assumes the default
	// of 10 lags; other values coarsen the approximation.
	Lags int `json:"lags" yaml:"lags"`
}

func NewDefaultOptions() *Options {
	return &Options{
		CorrR2Override: true,
		CorrR2Delta:    0.5,
		Lags:           10,
	}
}

// Metrics holds the validation metrics of a fitted model. AIC and BIC are
// copied from the model fit; the remainder is computed against the
// original-scale actual series aligned with the fitted values.
type Metrics struct {
	MAE            float64 `json:"mae"`
	RMSE           float64 `json:"rmse"`
	MAPE           float64 `json:"mape"`
	R2             float64 `json:"r2"`
	AIC            float64 `json:"aic"`
	BIC            float64 `json:"bic"`
	ResidualMean   float64 `json:"residual_mean"`
	ResidualStd    float64 `json:"residual_std"`
	LjungBoxPValue float64 `json:"ljung_box_p_value"`
}

// NewMetrics scores fitted values against the last len(fitted) points of the
// actual series. residuals are the model residuals on the fitting scale and
// drive the residual diagnostics.
func NewMetrics(actual, fitted, residuals []float64, aic, bic float64, opt *Options) (*Metrics, error) {
	if opt == nil {
		opt = NewDefaultOptions()
	}
	if len(fitted) > len(actual) {
		return nil, fmt.Errorf("%d fitted values for %d actuals, %w", len(fitted), len(actual), ErrLenMismatch)
	}
	if len(fitted) == 0 {
		return nil, ErrLenMismatch
	}
	actual = actual[len(actual)-len(fitted):]

	m := &Metrics{
		MAE:  mae(actual, fitted),
		RMSE: rmse(actual, fitted),
		MAPE: mape(actual, fitted),
		R2:   rSquared(actual, fitted, opt),
		AIC:  aic,
		BIC:  bic,
	}

	if len(residuals) > 0 {
		m.ResidualMean = stat.Mean(residuals, nil)
		m.ResidualStd = math.Sqrt(stat.Variance(residuals, nil))
		m.LjungBoxPValue = BoxPiercePValue(residuals, opt.Lags)
	}
	return m, nil
}

func mae(actual, fitted []float64) float64 {
	var sum float64
	for i := range actual {
		sum += math.Abs(actual[i] - fitted[i])
	}
	return sum / float64(len(actual))
}

func rmse(actual, fitted []float64) float64 {
	var sum float64
	for i := range actual {
		d := actual[i] - fitted[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(actual)))
}

func mape(actual, fitted []float64) float64 {
	var sum float64
	var count int
	for i := range actual {
		if math.Abs(actual[i]) < mapeFloor {
			continue
		}
		term := math.Abs((actual[i]-fitted[i])/actual[i]) * 100.0
		sum += math.Min(term, mapeTermCap)
		count++
	}
	if count == 0 {
		return 0
	}
	return math.Min(sum/float64(count), mapeCap)
}

func rSquared(actual, fitted []float64, opt *Options) float64 {
	mean := stat.Mean(actual, nil)

	var rss, tss float64
	for i := range actual {
		r := actual[i] - fitted[i]
		rss += r * r
		dev := actual[i] - mean
		tss += dev * dev
	}

	// degenerate constant series: perfect fit reports 1, anything else -1
	if tss < 1e-12 {
		if rss < 1e-12 {
			return 1.0
		}
		return -1.0
	}

	r2 := 1.0 - rss/tss
	if math.IsNaN(r2) || math.IsInf(r2, 0) {
		return -1.0
	}
	r2 = math.Max(MinR2, math.Min(1.0, r2))

	if opt.CorrR2Override {
		corr := stat.Correlation(actual, fitted, nil)
		if !math.IsNaN(corr) {
			corrR2 := corr * corr
			if corrR2-r2 > opt.CorrR2Delta {
				r2 = corrR2
			}
		}
	}
	return r2
}
