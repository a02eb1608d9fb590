package timeseries

import (
	"fmt"
	"math"
	"sort"
)

const (
	// MinTrainLen is the minimum number of observations required to fit a model.
	MinTrainLen = 50

	// MinDifferenceLen guards against over-differencing short series. A
	// differencing pass is skipped if it would drop the series below this size.
	MinDifferenceLen = 100

	// MaxInvalidFraction is the largest tolerated share of non-finite values
	// before cleaning fails outright.
	MaxInvalidFraction = 0.10

	// IQRFenceFactor caps values to [Q1 - f*IQR, Q3 + f*IQR]. The conservative
	// three-IQR fence keeps legitimate demand spikes intact where the usual
	// 1.5 factor would flatten them.
	IQRFenceFactor = 3.0
)

// CleanValues drops non-finite entries and caps the remainder to the
// three-IQR fence. Fails if more than MaxInvalidFraction of the input was
// non-finite since the series is then too corrupted to trust.
func CleanValues(v []float64) ([]float64, error) {
	if len(v) == 0 {
		return nil, ErrNoData
	}

	cleaned := make([]float64, 0, len(v))
	for _, val := range v {
		if !isFinite(val) {
			continue
		}
		cleaned = append(cleaned, val)
	}

	dropped := len(v) - len(cleaned)
	if float64(dropped) > MaxInvalidFraction*float64(len(v)) {
		return nil, fmt.Errorf(
			"%d of %d values are non-finite, %w",
			dropped, len(v), ErrInsufficientData,
		)
	}

	lower, upper := iqrFence(cleaned, IQRFenceFactor)
	for i, val := range cleaned {
		if val < lower {
			cleaned[i] = lower
		} else if val > upper {
			cleaned[i] = upper
		}
	}
	return cleaned, nil
}

// Clean returns a new series with non-finite observations removed and the
// remaining values capped to the three-IQR fence. Timestamps of dropped
// observations are removed alongside their values.
func (s *Series) Clean() (*Series, error) {
	if s.Len() == 0 {
		return nil, ErrNoData
	}

	t := make([]int64, 0, len(s.V))
	v := make([]float64, 0, len(s.V))
	for i, val := range s.V {
		if !isFinite(val) {
			continue
		}
		t = append(t, s.T[i])
		v = append(v, val)
	}

	dropped := s.Len() - len(v)
	if float64(dropped) > MaxInvalidFraction*float64(s.Len()) {
		return nil, fmt.Errorf(
			"%d of %d values are non-finite, %w",
			dropped, s.Len(), ErrInsufficientData,
		)
	}
	if len(v) == 0 {
		return nil, ErrNoData
	}

	lower, upper := iqrFence(v, IQRFenceFactor)
	for i, val := range v {
		if val < lower {
			v[i] = lower
		} else if val > upper {
			v[i] = upper
		}
	}
	return &Series{T: t, V: v}, nil
}

func iqrFence(v []float64, factor float64) (float64, float64) {
	sorted := make([]float64, len(v))
	copy(sorted, v)
	sort.Float64s(sorted)

	q1 := quantileSorted(sorted, 0.25)
	q3 := quantileSorted(sorted, 0.75)
	iqr := q3 - q1
	return q1 - factor*iqr, q3 + factor*iqr
}

func quantileSorted(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Difference applies first differences order times returning the differenced
// values along with the order actually applied. Passes stop early once
// another difference would drop the series below MinDifferenceLen.
func Difference(v []float64, order int) ([]float64, int) {
	diffed := make([]float64, len(v))
	copy(diffed, v)

	applied := 0
	for i := 0; i < order; i++ {
		if len(diffed)-1 < MinDifferenceLen {
			break
		}
		next := make([]float64, len(diffed)-1)
		for j := 1; j < len(diffed); j++ {
			next[j-1] = diffed[j] - diffed[j-1]
		}
		diffed = next
		applied++
	}
	return diffed, applied
}

// Base returns the level values consumed by differencing v to the given
// order. These are the values required to invert the transform with
// Undifference.
func Base(v []float64, order int) []float64 {
	if order <= 0 || len(v) == 0 {
		return nil
	}
	if order > len(v) {
		order = len(v)
	}
	base := make([]float64, order)
	copy(base, v[:order])
	return base
}

// Undifference integrates deltas back to the original scale continuing after
// the base level values which must be ordered oldest first. For order 1 this
// is a cumulative sum from the last observed level. Order 2 applies the
// double integration recurrence r[i] = 2*r[i-1] - r[i-2] + delta[i]. Orders
// beyond 2 are approximated by repeated order-1 integration.
func Undifference(deltas, base []float64, order int) []float64 {
	switch {
	case order <= 0 || len(base) == 0:
		out := make([]float64, len(deltas))
		copy(out, deltas)
		return out
	case order == 1:
		out := make([]float64, len(deltas))
		level := base[len(base)-1]
		for i, d := range deltas {
			level += d
			out[i] = level
		}
		return out
	case order == 2 && len(base) >= 2:
		out := make([]float64, len(deltas))
		prev2 := base[len(base)-2]
		prev1 := base[len(base)-1]
		for i, d := range deltas {
			r := 2*prev1 - prev2 + d
			out[i] = r
			prev2, prev1 = prev1, r
		}
		return out
	default:
		// repeated order-1 integration from the last observed level
		out := make([]float64, len(deltas))
		copy(out, deltas)
		for i := 0; i < order; i++ {
			level := base[len(base)-1]
			for j, d := range out {
				level += d
				out[j] = level
			}
		}
		return out
	}
}

// UndifferenceDamped integrates forecasted deltas back to the original scale
// applying a per-step damping factor to each delta before accumulation. This
// pulls long-horizon forecasts back toward the last observed level instead of
// letting a random-walk drift run away. For order 1 the step contribution is
// scaled by damp^step; for order >= 2 by damp^(step+1).
func UndifferenceDamped(deltas, base []float64, order int, damp float64) []float64 {
	if order <= 0 || len(base) == 0 {
		out := make([]float64, len(deltas))
		copy(out, deltas)
		return out
	}

	damped := make([]float64, len(deltas))
	for i, d := range deltas {
		step := i + 1
		exp := step
		if order >= 2 {
			exp = step + 1
		}
		damped[i] = d * math.Pow(damp, float64(exp))
	}

	if order >= 2 && len(base) >= 2 {
		return Undifference(damped, base, 2)
	}
	return Undifference(damped, base, 1)
}
