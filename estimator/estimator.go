// Package estimator fits AR, MA, and combined ARMA coefficients on a possibly
// differenced series. AR terms are estimated with least squares on the normal
// equations; MA terms use damped method-of-moments on sample autocorrelations,
// an approximation to full joint MLE chosen for speed and stability over
// iterative Kalman-filter based exact estimation.
package estimator

import (
	"errors"
	"fmt"
	"math"

	"github.com/ordercast/ordercast/timeseries"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var ErrEstimationFailure = errors.New("numerical failure during estimation")

const (
	// MinVariance floors the residual noise variance to avoid a degenerate
	// log-likelihood on near-perfect fits.
	MinVariance = 1e-8

	// stabilityBound is the largest tolerated magnitude for the sum of AR or
	// MA coefficients before rescaling kicks in.
	stabilityBound = 0.99
)

// Order holds the ARIMA model order: AR lag order p, differencing order d,
// and MA lag order q.
type Order struct {
	P int `json:"p" yaml:"p"`
	D int `json:"d" yaml:"d"`
	Q int `json:"q" yaml:"q"`
}

func (o Order) String() string {
	return fmt.Sprintf("ARIMA(%d,%d,%d)", o.P, o.D, o.Q)
}

// NumParams returns the parameter count used by information criteria.
func (o Order) NumParams() int {
	return o.P + o.Q + 1
}

// MinObservations returns the fewest points Estimate accepts for this order.
func (o Order) MinObservations() int {
	return max(o.P, o.Q) + timeseries.MinTrainLen
}

// Options control the estimation heuristics. The damping constants are
// calibration choices rather than theory-derived values and are kept
// adjustable for that reason.
type Options struct {
	// MADamp shrinks the lag-k autocorrelation by MADamp^k when estimating
	// pure MA coefficients, keeping them inside the invertibility region.
	MADamp float64 `json:"ma_damp" yaml:"ma_damp"`

	// ResidualMADamp plays the same role for MA coefficients estimated from
	// AR residual autocorrelations in the combined ARMA path.
	ResidualMADamp float64 `json:"residual_ma_damp" yaml:"residual_ma_damp"`

	// MaxMACoef clamps each MA coefficient magnitude.
	MaxMACoef float64 `json:"max_ma_coef" yaml:"max_ma_coef"`

	// MaxIterations bounds the coefficient stability rescaling loop.
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`

	// Tolerance stops the rescaling loop once the coefficient sum moves by
	// less than this amount.
	Tolerance float64 `json:"tolerance" yaml:"tolerance"`

	Logger *zap.Logger `json:"-" yaml:"-"`
}

func NewDefaultOptions() *Options {
	return &Options{
		MADamp:         0.8,
		ResidualMADamp: 0.7,
		MaxMACoef:      0.8,
		MaxIterations:  25,
		Tolerance:      1e-6,
		Logger:         zap.NewNop(),
	}
}

func (o *Options) logger() *zap.Logger {
	if o == nil || o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// FittedModel is the immutable result of a single estimation. It is created
// once and read-only afterward so concurrent forecasting from the same model
// is safe without locks.
type FittedModel struct {
	Order         Order     `json:"order"`
	ARCoef        []float64 `json:"ar_coefficients"`
	MACoef        []float64 `json:"ma_coefficients"`
	Intercept     float64   `json:"intercept"`
	Variance      float64   `json:"noise_variance"`
	Residuals     []float64 `json:"-"`
	Fitted        []float64 `json:"-"`
	LogLikelihood float64   `json:"log_likelihood"`
	AIC           float64   `json:"aic"`
	BIC           float64   `json:"bic"`
	Converged     bool      `json:"converged"`
}

// Estimate fits the AR and MA coefficients of the given order on v, which is
// expected to already be differenced to order.D. The returned model carries
// residuals, fitted values, noise variance, and Gaussian log-likelihood based
// information criteria.
func Estimate(v []float64, order Order, opt *Options) (*FittedModel, error) {
	if opt == nil {
		opt = NewDefaultOptions()
	}
	if order.P < 0 || order.D < 0 || order.Q < 0 {
		return nil, fmt.Errorf("negative order %s, %w", order, ErrEstimationFailure)
	}
	if len(v) < order.MinObservations() {
		return nil, fmt.Errorf(
			"%s requires at least %d observations, got %d, %w",
			order, order.MinObservations(), len(v), timeseries.ErrInsufficientData,
		)
	}

	m := &FittedModel{
		Order:     order,
		ARCoef:    make([]float64, order.P),
		MACoef:    make([]float64, order.Q),
		Converged: true,
	}

	switch {
	case order.P == 0 && order.Q == 0:
		if order.D == 0 {
			m.Intercept = stat.Mean(v, nil)
		}
	case order.Q == 0:
		ar, intercept, err := fitAR(v, order.P, order.D == 0)
		if err != nil {
			return nil, err
		}
		m.ARCoef = ar
		m.Intercept = intercept
	case order.P == 0:
		m.MACoef = fitMA(v, order.Q, opt.MADamp, opt.MaxMACoef)
		if order.D == 0 {
			m.Intercept = stat.Mean(v, nil)
		}
	default:
		ar, intercept, err := fitAR(v, order.P, order.D == 0)
		if err != nil {
			return nil, err
		}
		_, arResiduals := recurse(v, ar, nil, intercept)
		m.ARCoef = ar
		m.Intercept = intercept
		m.MACoef = fitMA(arResiduals, order.Q, opt.ResidualMADamp, opt.MaxMACoef)
	}

	if rescaled := stabilize(m.ARCoef, opt.MaxIterations, opt.Tolerance); rescaled {
		m.Converged = false
	}
	if rescaled := stabilize(m.MACoef, opt.MaxIterations, opt.Tolerance); rescaled {
		m.Converged = false
	}
	if sanitize(m.ARCoef) || sanitize(m.MACoef) || !isFinite(m.Intercept) {
		m.Intercept = 0
		m.Converged = false
	}

	m.Fitted, m.Residuals = recurse(v, m.ARCoef, m.MACoef, m.Intercept)
	m.Variance = math.Max(stat.Variance(m.Residuals, nil), MinVariance)
	m.LogLikelihood = gaussianLogLikelihood(m.Residuals, m.Variance)

	k := float64(order.NumParams())
	n := float64(len(m.Residuals))
	m.AIC = 2*k - 2*m.LogLikelihood
	m.BIC = k*math.Log(n) - 2*m.LogLikelihood

	opt.logger().Debug("estimated model",
		zap.String("order", order.String()),
		zap.Float64("variance", m.Variance),
		zap.Float64("aic", m.AIC),
		zap.Bool("converged", m.Converged),
	)
	return m, nil
}

// fitAR solves for AR coefficients with OLS on a design matrix of p lagged
// values. An intercept column is only included for non-differenced fits since
// differencing already removes the mean.
func fitAR(v []float64, p int, withIntercept bool) ([]float64, float64, error) {
	rows := len(v) - p
	cols := p
	if withIntercept {
		cols++
	}

	x := mat.NewDense(rows, cols, nil)
	y := make([]float64, rows)
	for t := p; t < len(v); t++ {
		row := t - p
		col := 0
		if withIntercept {
			x.Set(row, 0, 1.0)
			col = 1
		}
		for i := 0; i < p; i++ {
			x.Set(row, col+i, v[t-1-i])
		}
		y[row] = v[t]
	}

	beta, err := lstsq(x, y)
	if err != nil {
		return nil, 0, fmt.Errorf("ar(%d) least squares, %w", p, err)
	}

	if withIntercept {
		return beta[1:], beta[0], nil
	}
	return beta, 0, nil
}

// fitMA estimates MA coefficients with the method of moments: the lag-k
// sample autocorrelation damped by damp^k and clamped into the invertibility
// region.
func fitMA(v []float64, q int, damp, maxCoef float64) []float64 {
	theta := make([]float64, q)
	acf := timeseries.ACF(v, q)
	for j := 0; j < q; j++ {
		var rho float64
		if j+1 < len(acf) {
			rho = acf[j+1]
		}
		coef := rho * math.Pow(damp, float64(j+1))
		theta[j] = clamp(coef, -maxCoef, maxCoef)
	}
	return theta
}

// recurse computes fitted values and residuals one step at a time. The first
// max(p,q,1) points are seeded with the raw series value and a zero residual
// as a cold-start approximation.
func recurse(v, ar, ma []float64, intercept float64) (fitted, residuals []float64) {
	n := len(v)
	fitted = make([]float64, n)
	residuals = make([]float64, n)

	start := max(len(ar), len(ma), 1)
	for t := 0; t < n; t++ {
		if t < start {
			fitted[t] = v[t]
			continue
		}

		pred := intercept
		for i := 0; i < len(ar); i++ {
			pred += ar[i] * v[t-1-i]
		}
		for j := 0; j < len(ma); j++ {
			pred += ma[j] * residuals[t-1-j]
		}
		fitted[t] = pred
		residuals[t] = v[t] - pred
	}
	return fitted, residuals
}

// stabilize rescales coefficients until their sum magnitude is inside the
// stationarity/invertibility bound. Reports whether any rescaling happened.
func stabilize(coef []float64, maxIterations int, tolerance float64) bool {
	if len(coef) == 0 {
		return false
	}
	rescaled := false
	for iter := 0; iter < maxIterations; iter++ {
		var sum float64
		for _, c := range coef {
			sum += c
		}
		mag := math.Abs(sum)
		if mag < stabilityBound || mag < tolerance {
			break
		}
		scale := (stabilityBound - 0.04) / mag
		for i := range coef {
			coef[i] *= scale
		}
		rescaled = true
	}
	return rescaled
}

// sanitize zeroes non-finite coefficients so a degenerate but usable model is
// still produced. Reports whether anything was replaced.
func sanitize(coef []float64) bool {
	replaced := false
	for i, c := range coef {
		if !isFinite(c) {
			coef[i] = 0
			replaced = true
		}
	}
	return replaced
}

func gaussianLogLikelihood(residuals []float64, variance float64) float64 {
	n := float64(len(residuals))
	var rss float64
	for _, r := range residuals {
		rss += r * r
	}
	return -0.5*n*math.Log(2*math.Pi*variance) - rss/(2*variance)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
