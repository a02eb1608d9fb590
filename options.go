package ordercast

import (
	"github.com/ordercast/ordercast/estimator"
	"github.com/ordercast/ordercast/score"
	"go.uber.org/zap"
)

// Options configure training and forecasting. The forecast damping and
// blending constants are empirically calibrated rather than derived from
// ARIMA theory, so they are exposed here instead of being hard-coded.
type Options struct {
	EstimatorOptions *estimator.Options `json:"estimator_options" yaml:"estimator_options"`
	ScoreOptions     *score.Options     `json:"score_options" yaml:"score_options"`

	// MeanReversionBlend nudges each one-step prediction of a non-differenced
	// model toward the rolling mean of the last MeanReversionWindow working
	// values so stationary models do not diverge over long horizons.
	MeanReversionBlend  float64 `json:"mean_reversion_blend" yaml:"mean_reversion_blend"`
	MeanReversionWindow int     `json:"mean_reversion_window" yaml:"mean_reversion_window"`

	// CIGrowth inflates the confidence interval half-width linearly per step,
	// approximating the growing forecast-error variance of an ARMA process.
	CIGrowth float64 `json:"ci_growth" yaml:"ci_growth"`

	// DampD1 and DampD2 damp each forecast step's contribution during
	// undifferencing for d=1 and d>=2 respectively, pulling long-horizon
	// forecasts back toward the last observed level.
	DampD1 float64 `json:"damp_d1" yaml:"damp_d1"`
	DampD2 float64 `json:"damp_d2" yaml:"damp_d2"`

	// Logger receives structured training and selection diagnostics. The
	// core has no other output channel.
	Logger *zap.Logger `json:"-" yaml:"-"`
}

// NewDefaultOptions returns the calibration used by the original demand
// forecasting deployment.
func NewDefaultOptions() *Options {
	return &Options{
		EstimatorOptions:    estimator.NewDefaultOptions(),
		ScoreOptions:        score.NewDefaultOptions(),
		MeanReversionBlend:  0.05,
		MeanReversionWindow: 20,
		CIGrowth:            0.1,
		DampD1:              0.95,
		DampD2:              0.9,
		Logger:              zap.NewNop(),
	}
}

func (o *Options) logger() *zap.Logger {
	if o == nil || o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o *Options) estimatorOptions() *estimator.Options {
	opt := o.EstimatorOptions
	if opt == nil {
		opt = estimator.NewDefaultOptions()
	}
	if opt.Logger == nil {
		opt.Logger = o.logger()
	}
	return opt
}

func (o *Options) scoreOptions() *score.Options {
	if o.ScoreOptions == nil {
		return score.NewDefaultOptions()
	}
	return o.ScoreOptions
}
