package ordercast

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/ordercast/ordercast/estimator"
	"github.com/ordercast/ordercast/timeseries"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const daySeconds = 24 * 60 * 60

// simulateWeeklyDemand builds a daily demand series with a weekly cycle used
// across the package tests.
func simulateWeeklyDemand(n int, level, amp, noise float64, seed uint64) *timeseries.Series {
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC).Unix()
	t := timeseries.GenerateT(n, daySeconds, start)

	rnd := rand.New(rand.NewPCG(seed, seed+7))
	v := timeseries.GenerateConst(n, level).
		Add(timeseries.GenerateWave(t, amp, 7*daySeconds, 0)).
		Add(timeseries.GenerateNoise(n, noise, rnd))

	s, err := timeseries.New(t, v)
	if err != nil {
		panic(err)
	}
	return s
}

func constantSeries(n int, val float64) *timeseries.Series {
	t := timeseries.GenerateT(n, daySeconds, 0)
	s, err := timeseries.New(t, timeseries.GenerateConst(n, val))
	if err != nil {
		panic(err)
	}
	return s
}

func TestTrain(t *testing.T) {
	s := simulateWeeklyDemand(120, 100, 10, 2, 1)

	m, err := Train(s, estimator.Order{P: 2}, nil)
	require.Nil(t, err)
	assert.NotEqual(t, uuid.Nil, m.ID)
	assert.Equal(t, estimator.Order{P: 2}, m.Order)
	assert.Equal(t, len(m.Fit.Fitted), len(m.Fit.Residuals))
	assert.NotNil(t, m.Metrics)
	assert.Greater(t, m.Metrics.R2, 0.0)
	assert.Less(t, m.Metrics.MAPE, 30.0)
}

func TestTrainInsufficientData(t *testing.T) {
	s := simulateWeeklyDemand(30, 100, 10, 2, 2)
	_, err := Train(s, estimator.Order{P: 1}, nil)
	assert.ErrorIs(t, err, timeseries.ErrInsufficientData)
}

func TestTrainReducesDifferencingOnShortSeries(t *testing.T) {
	s := simulateWeeklyDemand(80, 100, 10, 2, 3)

	m, err := Train(s, estimator.Order{P: 1, D: 1}, nil)
	require.Nil(t, err)
	// 80 points cannot be differenced safely so the effective order drops
	assert.Equal(t, 0, m.Order.D)
}

func TestTrainDifferenced(t *testing.T) {
	n := 150
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC).Unix()
	ts := timeseries.GenerateT(n, daySeconds, start)
	rnd := rand.New(rand.NewPCG(11, 13))
	v := timeseries.GenerateConst(n, 50).
		Add(timeseries.GenerateTrend(n, 75)).
		Add(timeseries.GenerateNoise(n, 2, rnd))
	s, err := timeseries.New(ts, v)
	require.Nil(t, err)

	m, err := Train(s, estimator.Order{P: 1, D: 1}, nil)
	require.Nil(t, err)
	assert.Equal(t, 1, m.Order.D)
	// one-step reconstruction tracks a trending series closely
	assert.Less(t, m.Metrics.MAPE, 10.0)
}

func TestModelJSONRoundTrip(t *testing.T) {
	s := simulateWeeklyDemand(120, 100, 10, 2, 4)
	m, err := Train(s, estimator.Order{P: 1, Q: 1}, nil)
	require.Nil(t, err)

	raw, err := json.Marshal(m)
	require.Nil(t, err)

	var decoded Model
	require.Nil(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, m.ID, decoded.ID)
	assert.Equal(t, m.Order, decoded.Order)
	assert.InDelta(t, m.Fit.Intercept, decoded.Fit.Intercept, 1e-12)
	assert.InDelta(t, m.Metrics.R2, decoded.Metrics.R2, 1e-12)
	assert.Equal(t, m.Series.Len(), decoded.Series.Len())
}

func TestFittedOriginalScale(t *testing.T) {
	v := []float64{10, 12, 15, 19}

	// d=1: fitted deltas are added onto the previous actual level
	got := fittedOriginalScale(v, []float64{2, 3, 4}, 1)
	assert.InDeltaSlice(t, []float64{12, 15, 19}, got, 1e-12)

	// d=2: the recurrence rebuilds the level from two actual lags
	d2 := []float64{15 - 2*12 + 10, 19 - 2*15 + 12}
	got = fittedOriginalScale(v, d2, 2)
	assert.InDeltaSlice(t, []float64{15, 19}, got, 1e-12)
}

func TestForecasterInterface(t *testing.T) {
	s := simulateWeeklyDemand(120, 100, 10, 2, 5)
	m, err := Train(s, estimator.Order{P: 1}, nil)
	require.Nil(t, err)

	var f Forecaster = m
	res, err := f.Forecast(5, 0.95)
	require.Nil(t, err)
	assert.Equal(t, 5, len(res.Predictions))
	assert.False(t, math.IsNaN(res.Predictions[0].V))
}
