package ordercast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ordercast/ordercast/estimator"
	"github.com/ordercast/ordercast/timeseries"
	"go.uber.org/zap"
)

var ErrAllModelsFailed = errors.New("all candidate models failed")

// DefaultCandidateOrders is the fixed catalog of orders evaluated by
// AutoSelect spanning simple AR/MA, first and second differenced ARIMA, and a
// few higher order combinations.
var DefaultCandidateOrders = []estimator.Order{
	{P: 1, D: 0, Q: 0},
	{P: 2, D: 0, Q: 0},
	{P: 3, D: 0, Q: 0},
	{P: 0, D: 0, Q: 1},
	{P: 0, D: 0, Q: 2},
	{P: 1, D: 0, Q: 1},
	{P: 2, D: 0, Q: 1},
	{P: 1, D: 0, Q: 2},
	{P: 2, D: 0, Q: 2},
	{P: 1, D: 1, Q: 0},
	{P: 2, D: 1, Q: 0},
	{P: 0, D: 1, Q: 1},
	{P: 0, D: 1, Q: 2},
	{P: 1, D: 1, Q: 1},
	{P: 2, D: 1, Q: 1},
	{P: 1, D: 1, Q: 2},
	{P: 1, D: 2, Q: 0},
	{P: 0, D: 2, Q: 1},
	{P: 1, D: 2, Q: 1},
}

// ScoreWeights tune the composite candidate score. The R² term is piecewise
// to punish bad fits non-linearly rather than linearly.
type ScoreWeights struct {
	R2Strong    float64 `json:"r2_strong" yaml:"r2_strong"` // weight when R² > 0
	R2Mild      float64 `json:"r2_mild" yaml:"r2_mild"`     // weight when R² in (-0.5, 0]
	R2Weak      float64 `json:"r2_weak" yaml:"r2_weak"`     // weight below -0.5
	RMSE        float64 `json:"rmse" yaml:"rmse"`           // penalty per unit of scale-normalized RMSE
	Complexity  float64 `json:"complexity" yaml:"complexity"`
	Convergence float64 `json:"convergence" yaml:"convergence"`
}

func NewDefaultScoreWeights() *ScoreWeights {
	return &ScoreWeights{
		R2Strong:    10.0,
		R2Mild:      5.0,
		R2Weak:      2.0,
		RMSE:        2.0,
		Complexity:  0.3,
		Convergence: 1.0,
	}
}

// AutoSelectOptions configure the candidate sweep.
type AutoSelectOptions struct {
	Options *Options `json:"options" yaml:"options"`

	// ForecastHorizon, when positive, produces a forecast from the winning
	// model as part of the result.
	ForecastHorizon int     `json:"forecast_horizon" yaml:"forecast_horizon"`
	ConfidenceLevel float64 `json:"confidence_level" yaml:"confidence_level"`

	// CandidateOrders overrides the default catalog.
	CandidateOrders []estimator.Order `json:"candidate_orders" yaml:"candidate_orders"`

	Weights *ScoreWeights `json:"weights" yaml:"weights"`

	// MinR2 is the lenient floor below which a candidate is never selected.
	// Kept loose so hard datasets still surface a result.
	MinR2 float64 `json:"min_r2" yaml:"min_r2"`
}

func NewDefaultAutoSelectOptions() *AutoSelectOptions {
	return &AutoSelectOptions{
		Options:         NewDefaultOptions(),
		ForecastHorizon: 0,
		ConfidenceLevel: 0.95,
		CandidateOrders: DefaultCandidateOrders,
		Weights:         NewDefaultScoreWeights(),
		MinR2:           -2.0,
	}
}

// CandidateResult records how one candidate order fared during selection.
// Failed candidates carry infinite information criteria and the failure
// reason instead of aborting the sweep.
type CandidateResult struct {
	Order     estimator.Order `json:"order"`
	AIC       float64         `json:"aic"`
	BIC       float64         `json:"bic"`
	R2        float64         `json:"r2"`
	MAPE      float64         `json:"mape"`
	RMSE      float64         `json:"rmse"`
	Score     float64         `json:"score"`
	Converged bool            `json:"converged"`
	Err       string          `json:"error,omitempty"`
}

// AutoSelectResult is the outcome of a candidate sweep: the winning model, a
// table of all candidates ranked by composite score, and optionally a
// forecast from the winner.
type AutoSelectResult struct {
	BestOrder  estimator.Order   `json:"best_order"`
	Best       *Model            `json:"best"`
	Candidates []CandidateResult `json:"candidates"`
	Forecast   *ForecastResult   `json:"forecast,omitempty"`
}

// AutoSelect trains and scores every candidate order and picks the best by
// composite score. A failing candidate is recorded and skipped; only when
// every candidate and the AR(1) fallback fail does the call error. The
// context is checked between candidates since individual fits are fast and
// not worth interrupting mid-computation.
func AutoSelect(ctx context.Context, s *timeseries.Series, opt *AutoSelectOptions) (*AutoSelectResult, error) {
	if opt == nil {
		opt = NewDefaultAutoSelectOptions()
	}
	o := opt.Options
	if o == nil {
		o = NewDefaultOptions()
	}
	weights := opt.Weights
	if weights == nil {
		weights = NewDefaultScoreWeights()
	}
	catalog := opt.CandidateOrders
	if len(catalog) == 0 {
		catalog = DefaultCandidateOrders
	}
	logger := o.logger()

	cleaned, err := s.Clean()
	if err != nil {
		return nil, fmt.Errorf("unable to clean series, %w", err)
	}

	scale := meanAbs(cleaned.V)

	var best *Model
	bestScore := math.Inf(-1)
	candidates := make([]CandidateResult, 0, len(catalog))

	for _, order := range catalog {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		model, err := trainCleaned(cleaned, order, o)
		if err != nil {
			logger.Debug("candidate failed",
				zap.String("order", order.String()),
				zap.Error(err),
			)
			candidates = append(candidates, CandidateResult{
				Order: order,
				AIC:   math.Inf(1),
				BIC:   math.Inf(1),
				Score: math.Inf(-1),
				Err:   err.Error(),
			})
			continue
		}

		cs := compositeScore(model, scale, weights)
		candidates = append(candidates, CandidateResult{
			Order:     order,
			AIC:       model.Metrics.AIC,
			BIC:       model.Metrics.BIC,
			R2:        model.Metrics.R2,
			MAPE:      model.Metrics.MAPE,
			RMSE:      model.Metrics.RMSE,
			Score:     cs,
			Converged: model.Fit.Converged,
		})
		logger.Debug("candidate scored",
			zap.String("order", order.String()),
			zap.Float64("r2", model.Metrics.R2),
			zap.Float64("mape", model.Metrics.MAPE),
			zap.Float64("score", cs),
		)

		if model.Metrics.R2 > opt.MinR2 && cs > bestScore {
			best = model
			bestScore = cs
		}
	}

	if best == nil {
		// last resort: a plain AR(1) fit
		fallback := estimator.Order{P: 1, D: 0, Q: 0}
		model, err := trainCleaned(cleaned, fallback, o)
		if err != nil {
			return nil, fmt.Errorf(
				"no usable candidate among [%s] and AR(1) fallback failed, %w",
				describeFailures(candidates), ErrAllModelsFailed,
			)
		}
		logger.Info("falling back to AR(1)", zap.Int("attempted", len(candidates)))
		best = model
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	res := &AutoSelectResult{
		BestOrder:  best.Order,
		Best:       best,
		Candidates: candidates,
	}
	logger.Info("selected model",
		zap.String("order", best.Order.String()),
		zap.Float64("r2", best.Metrics.R2),
		zap.Float64("aic", best.Metrics.AIC),
	)

	if opt.ForecastHorizon > 0 {
		forecast, err := Forecast(best, opt.ForecastHorizon, opt.ConfidenceLevel, o)
		if err != nil {
			return nil, fmt.Errorf("unable to forecast from selected %s, %w", best.Order, err)
		}
		res.Forecast = forecast
	}
	return res, nil
}

// compositeScore combines fit quality and parsimony into a single ranking
// value. Higher is better.
func compositeScore(m *Model, scale float64, w *ScoreWeights) float64 {
	var s float64

	r2 := m.Metrics.R2
	switch {
	case r2 > 0:
		s += w.R2Strong * r2
	case r2 > -0.5:
		s += w.R2Mild * r2
	default:
		s += w.R2Weak * r2
	}

	switch mape := m.Metrics.MAPE; {
	case mape < 10:
		s += 3.0
	case mape < 25:
		s += 1.0
	case mape < 50:
		s -= 1.0
	default:
		s -= 3.0
	}

	if scale > 0 {
		s -= w.RMSE * m.Metrics.RMSE / scale
	}

	s -= w.Complexity * float64(m.Order.P+m.Order.Q+m.Order.D)

	if m.Fit.Converged {
		s += w.Convergence
	}
	return s
}

func meanAbs(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var sum float64
	for _, val := range v {
		sum += math.Abs(val)
	}
	return sum / float64(len(v))
}

func describeFailures(candidates []CandidateResult) string {
	parts := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c.Err == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", c.Order, c.Err))
	}
	return strings.Join(parts, "; ")
}
