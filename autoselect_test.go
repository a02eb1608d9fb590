package ordercast

import (
	"context"
	"math"
	"testing"

	"github.com/ordercast/ordercast/estimator"
	"github.com/ordercast/ordercast/score"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoSelect(t *testing.T) {
	s := simulateWeeklyDemand(120, 100, 10, 2, 20)

	opt := NewDefaultAutoSelectOptions()
	opt.ForecastHorizon = 14

	res, err := AutoSelect(context.Background(), s, opt)
	require.Nil(t, err)
	require.NotNil(t, res.Best)
	assert.Equal(t, res.Best.Order, res.BestOrder)
	assert.Equal(t, len(DefaultCandidateOrders), len(res.Candidates))

	// a stationary series should not need heavy differencing
	assert.LessOrEqual(t, res.BestOrder.D, 1)
	assert.Greater(t, res.Best.Metrics.R2, 0.0)
	assert.Less(t, res.Best.Metrics.MAPE, 30.0)

	require.NotNil(t, res.Forecast)
	assert.Equal(t, 14, len(res.Forecast.Predictions))

	// candidates come back ranked best first
	for i := 1; i < len(res.Candidates); i++ {
		assert.GreaterOrEqual(t, res.Candidates[i-1].Score, res.Candidates[i].Score)
	}
}

func TestAutoSelectRecordsFailures(t *testing.T) {
	// 52 observations: only orders with max(p,q) <= 2 have enough data, so the
	// sweep succeeds while recording the rest as failed candidates
	s := simulateWeeklyDemand(52, 100, 10, 2, 21)

	res, err := AutoSelect(context.Background(), s, nil)
	require.Nil(t, err)
	require.NotNil(t, res.Best)

	failed := 0
	for _, c := range res.Candidates {
		if c.Err != "" {
			failed++
			assert.True(t, math.IsInf(c.AIC, 1))
			assert.True(t, math.IsInf(c.BIC, 1))
			assert.True(t, math.IsInf(c.Score, -1))
		}
	}
	assert.Greater(t, failed, 0)
	assert.Less(t, failed, len(DefaultCandidateOrders))
}

func TestAutoSelectAllFailed(t *testing.T) {
	// AR fits on a constant series hit a singular design matrix, and the
	// fallback is AR(1) too
	s := constantSeries(120, 42)

	opt := NewDefaultAutoSelectOptions()
	opt.CandidateOrders = []estimator.Order{{P: 1}}

	_, err := AutoSelect(context.Background(), s, opt)
	assert.ErrorIs(t, err, ErrAllModelsFailed)
}

func TestAutoSelectConstantSeries(t *testing.T) {
	s := constantSeries(120, 42)

	opt := NewDefaultAutoSelectOptions()
	opt.ForecastHorizon = 5

	res, err := AutoSelect(context.Background(), s, opt)
	require.Nil(t, err)
	// MA candidates survive with a perfect degenerate fit
	assert.Equal(t, 1.0, res.Best.Metrics.R2)
	for _, v := range res.Forecast.Values() {
		assert.InDelta(t, 42.0, v, 0.5)
	}
}

func TestAutoSelectCancelled(t *testing.T) {
	s := simulateWeeklyDemand(120, 100, 10, 2, 22)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := AutoSelect(ctx, s, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompositeScorePrefersParsimony(t *testing.T) {
	model := func(r2, mape, rmse float64) *Model {
		return &Model{
			Order: estimator.Order{P: 1},
			Fit:   &estimator.FittedModel{Converged: true},
			Metrics: &score.Metrics{
				R2:   r2,
				MAPE: mape,
				RMSE: rmse,
			},
		}
	}

	w := NewDefaultScoreWeights()
	simple := model(0.9, 5, 2)
	richer := model(0.9, 5, 2)
	richer.Order = estimator.Order{P: 2, D: 1, Q: 2}

	assert.Greater(t, compositeScore(simple, 100, w), compositeScore(richer, 100, w))

	// worse fit scores lower even with identical complexity
	bad := model(-1.0, 60, 20)
	assert.Greater(t, compositeScore(simple, 100, w), compositeScore(bad, 100, w))
}
