package timeseries

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	ErrNoData           = errors.New("no series data")
	ErrNonMonotonic     = errors.New("timestamps are not strictly increasing")
	ErrLenMismatch      = errors.New("timestamps have a different length than values")
	ErrInsufficientData = errors.New("insufficient series data")
)

// Point is a single observation of a discrete index series. The timestamp is
// an epoch or sequence index; the engine is agnostic to the time unit.
type Point struct {
	T int64   `json:"t"`
	V float64 `json:"v"`
}

// Series represents an ordered univariate time series storing a slice of
// timestamps and values. Both must be of the same length and timestamps must
// be strictly increasing.
type Series struct {
	T []int64   `json:"t"`
	V []float64 `json:"v"`
}

// New returns a Series instance given a timestamp and value slice. Inputs are
// copied so the series owns its backing storage.
func New(t []int64, v []float64) (*Series, error) {
	if len(v) == 0 {
		return nil, ErrNoData
	}
	if len(t) != len(v) {
		return nil, fmt.Errorf(
			"timestamps have length of %d, but values have a length of %d, %w",
			len(t), len(v), ErrLenMismatch,
		)
	}

	for i := 1; i < len(t); i++ {
		if t[i] <= t[i-1] {
			return nil, fmt.Errorf("non-monotonic timestamp at %d, %w", i, ErrNonMonotonic)
		}
	}

	tSeries := make([]int64, len(t))
	vSeries := make([]float64, len(v))
	copy(tSeries, t)
	copy(vSeries, v)
	return &Series{T: tSeries, V: vSeries}, nil
}

// FromPoints returns a Series built from a point slice.
func FromPoints(pts []Point) (*Series, error) {
	t := make([]int64, 0, len(pts))
	v := make([]float64, 0, len(pts))
	for _, pt := range pts {
		t = append(t, pt.T)
		v = append(v, pt.V)
	}
	return New(t, v)
}

func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.V)
}

func (s *Series) Copy() *Series {
	t := make([]int64, len(s.T))
	v := make([]float64, len(s.V))
	copy(t, s.T)
	copy(v, s.V)
	return &Series{T: t, V: v}
}

// Points returns the series as a point slice.
func (s *Series) Points() []Point {
	pts := make([]Point, 0, len(s.V))
	for i := range s.V {
		pts = append(pts, Point{T: s.T[i], V: s.V[i]})
	}
	return pts
}

// Interval infers the spacing between consecutive timestamps using the median
// of the observed deltas. Irregularly spaced series are allowed so this is
// only used to stamp forecasted points past the end of the series.
func (s *Series) Interval() int64 {
	if s.Len() < 2 {
		return 1
	}
	deltas := make([]int64, 0, len(s.T)-1)
	for i := 1; i < len(s.T); i++ {
		deltas = append(deltas, s.T[i]-s.T[i-1])
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i] < deltas[j] })
	return deltas[len(deltas)/2]
}

// EndTime returns the timestamp of the last observation.
func (s *Series) EndTime() int64 {
	if s.Len() == 0 {
		return 0
	}
	return s.T[len(s.T)-1]
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
