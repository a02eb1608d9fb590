package timeseries

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
	"gonum.org/v1/gonum/floats"
)

// GenerateT produces n strictly increasing epoch timestamps spaced step
// seconds apart ending just before start+n*step.
func GenerateT(n int, step int64, start int64) []int64 {
	t := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		t = append(t, start+int64(i)*step)
	}
	return t
}

// Values is a composable series of observations used to simulate demand data
// for tests and examples.
type Values []float64

func (v Values) Add(src Values) Values {
	floats.Add(v, src)
	return v
}

func (v Values) Scale(f float64) Values {
	floats.Scale(f, v)
	return v
}

func GenerateConst(n int, val float64) Values {
	v := make([]float64, n)
	for i := range v {
		v[i] = val
	}
	return Values(v)
}

// GenerateWave produces a sinusoid with the given amplitude and period in
// seconds evaluated at each timestamp.
func GenerateWave(t []int64, amp, periodSec, timeOffset float64) Values {
	v := make([]float64, 0, len(t))
	for i := 0; i < len(t); i++ {
		v = append(v, amp*math.Sin(2.0*math.Pi/periodSec*(float64(t[i])+timeOffset)))
	}
	return Values(v)
}

// GenerateTrend produces a linear ramp of the given total rise across n points.
func GenerateTrend(n int, rise float64) Values {
	v := make([]float64, n)
	if n < 2 {
		return Values(v)
	}
	for i := range v {
		v[i] = rise * float64(i) / float64(n-1)
	}
	return Values(v)
}

// GenerateNoise produces seeded Gaussian noise so simulations stay
// reproducible across test runs.
func GenerateNoise(n int, scale float64, rnd *rand.Rand) Values {
	v := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		v = append(v, rnd.NormFloat64()*scale)
	}
	return Values(v)
}

// DefaultHolidays are the observed US holidays that commonly produce demand
// spikes in ordering data.
var DefaultHolidays = []*cal.Holiday{
	us.NewYear,
	us.IndependenceDay,
	us.ThanksgivingDay,
	us.ChristmasDay,
}

// GenerateHolidaySpikes adds amp to every point whose timestamp falls on the
// observed date of one of the provided holidays. Timestamps are interpreted
// as epoch seconds in UTC.
func GenerateHolidaySpikes(t []int64, amp float64, holidays []*cal.Holiday) Values {
	if len(holidays) == 0 {
		holidays = DefaultHolidays
	}

	v := make([]float64, len(t))
	if len(t) == 0 {
		return Values(v)
	}

	startYear := time.Unix(t[0], 0).UTC().Year()
	endYear := time.Unix(t[len(t)-1], 0).UTC().Year()

	observed := make(map[string]struct{})
	for _, hol := range holidays {
		for year := startYear; year <= endYear; year++ {
			_, obs := hol.Calc(year)
			observed[obs.UTC().Format("2006-01-02")] = struct{}{}
		}
	}

	for i, ts := range t {
		day := time.Unix(ts, 0).UTC().Format("2006-01-02")
		if _, ok := observed[day]; ok {
			v[i] = amp
		}
	}
	return Values(v)
}
