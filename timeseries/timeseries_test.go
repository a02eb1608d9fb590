package timeseries

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	s, err := New([]int64{1, 2, 3}, []float64{1.0, 2.0, 3.0})
	require.Nil(t, err)
	assert.Equal(t, 3, s.Len())

	// series owns its storage
	src := []float64{1.0, 2.0, 3.0}
	s, err = New([]int64{1, 2, 3}, src)
	require.Nil(t, err)
	src[0] = 99
	assert.Equal(t, 1.0, s.V[0])
}

func TestNewErrors(t *testing.T) {
	testData := map[string]struct {
		t        []int64
		v        []float64
		expected error
	}{
		"empty":         {nil, nil, ErrNoData},
		"len mismatch":  {[]int64{1, 2}, []float64{1.0}, ErrLenMismatch},
		"duplicate":     {[]int64{1, 1, 2}, []float64{1, 2, 3}, ErrNonMonotonic},
		"non monotonic": {[]int64{3, 2, 1}, []float64{1, 2, 3}, ErrNonMonotonic},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := New(td.t, td.v)
			assert.ErrorIs(t, err, td.expected)
		})
	}
}

func TestFromPoints(t *testing.T) {
	s, err := FromPoints([]Point{{T: 10, V: 1.5}, {T: 20, V: 2.5}})
	require.Nil(t, err)
	assert.Equal(t, []int64{10, 20}, s.T)
	assert.Equal(t, []float64{1.5, 2.5}, s.V)
	assert.Equal(t, s.Points(), []Point{{T: 10, V: 1.5}, {T: 20, V: 2.5}})
}

func TestInterval(t *testing.T) {
	s, err := New([]int64{0, 60, 120, 180}, []float64{1, 2, 3, 4})
	require.Nil(t, err)
	assert.Equal(t, int64(60), s.Interval())
	assert.Equal(t, int64(180), s.EndTime())

	// irregular spacing settles on the median delta
	s, err = New([]int64{0, 60, 120, 500}, []float64{1, 2, 3, 4})
	require.Nil(t, err)
	assert.Equal(t, int64(60), s.Interval())

	single, err := New([]int64{5}, []float64{1})
	require.Nil(t, err)
	assert.Equal(t, int64(1), single.Interval())
}

func TestCopy(t *testing.T) {
	s, err := New([]int64{1, 2}, []float64{3, 4})
	require.Nil(t, err)
	c := s.Copy()
	c.V[0] = 99
	assert.Equal(t, 3.0, s.V[0])
}
