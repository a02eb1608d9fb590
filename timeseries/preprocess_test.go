package timeseries

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanValues(t *testing.T) {
	v := make([]float64, 100)
	for i := range v {
		v[i] = 10.0
	}
	v[3] = math.NaN()
	v[7] = math.Inf(1)

	cleaned, err := CleanValues(v)
	require.Nil(t, err)
	assert.Equal(t, 98, len(cleaned))
	for _, val := range cleaned {
		assert.Equal(t, 10.0, val)
	}
}

func TestCleanValuesTooManyInvalid(t *testing.T) {
	v := make([]float64, 20)
	for i := range v {
		v[i] = 5.0
	}
	for i := 0; i < 3; i++ {
		v[i] = math.NaN()
	}
	_, err := CleanValues(v)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestCleanValuesCapsOutliers(t *testing.T) {
	v := make([]float64, 100)
	for i := range v {
		v[i] = 10.0
	}
	v[50] = 1000.0
	v[51] = -1000.0

	cleaned, err := CleanValues(v)
	require.Nil(t, err)
	// quartiles sit at 10 so the three-IQR fence collapses onto the level
	assert.Equal(t, 10.0, cleaned[50])
	assert.Equal(t, 10.0, cleaned[51])
}

func TestSeriesClean(t *testing.T) {
	tstamps := make([]int64, 100)
	v := make([]float64, 100)
	for i := range v {
		tstamps[i] = int64(i)
		v[i] = float64(50 + i%10)
	}
	v[10] = math.NaN()

	s, err := New(tstamps, v)
	require.Nil(t, err)
	cleaned, err := s.Clean()
	require.Nil(t, err)
	assert.Equal(t, 99, cleaned.Len())
	// the dropped observation takes its timestamp with it
	assert.NotContains(t, cleaned.T, int64(10))
}

func TestDifferenceRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewPCG(7, 11))
	n := 150
	v := make([]float64, n)
	level := 100.0
	for i := range v {
		level += rnd.NormFloat64() * 3
		v[i] = level + 0.5*float64(i)
	}

	for _, order := range []int{1, 2} {
		diffed, applied := Difference(v, order)
		require.Equal(t, order, applied)
		require.Equal(t, n-order, len(diffed))

		got := Undifference(diffed, Base(v, order), order)
		assert.InDeltaSlice(t, v[order:], got, 1e-9)
	}
}

func TestDifferenceGuardsShortSeries(t *testing.T) {
	v := make([]float64, 80)
	for i := range v {
		v[i] = float64(i)
	}
	diffed, applied := Difference(v, 2)
	assert.Equal(t, 0, applied)
	assert.Equal(t, len(v), len(diffed))

	v = make([]float64, 101)
	for i := range v {
		v[i] = float64(i)
	}
	diffed, applied = Difference(v, 2)
	assert.Equal(t, 1, applied)
	assert.Equal(t, 100, len(diffed))
}

func TestUndifferenceOrder1(t *testing.T) {
	deltas := []float64{1, 2, 3}
	got := Undifference(deltas, []float64{10}, 1)
	assert.Equal(t, []float64{11, 13, 16}, got)
}

func TestUndifferenceDamped(t *testing.T) {
	// zero deltas hold the last observed level regardless of damping
	got := UndifferenceDamped([]float64{0, 0, 0}, []float64{42}, 1, 0.95)
	assert.InDeltaSlice(t, []float64{42, 42, 42}, got, 1e-12)

	// damping shrinks each step's contribution before accumulation
	got = UndifferenceDamped([]float64{10, 10}, []float64{100}, 1, 0.5)
	assert.InDeltaSlice(t, []float64{105, 107.5}, got, 1e-12)
}
