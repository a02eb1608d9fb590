package timeseries

import "gonum.org/v1/gonum/stat"

// ACF computes sample autocorrelations of v up to maxLag. The returned slice
// has maxLag+1 entries with index 0 fixed at 1. A degenerate zero-variance
// series yields zero correlations at all positive lags.
func ACF(v []float64, maxLag int) []float64 {
	if maxLag < 0 {
		return nil
	}
	if maxLag >= len(v) {
		maxLag = len(v) - 1
	}

	acf := make([]float64, maxLag+1)
	acf[0] = 1.0
	if len(v) < 2 {
		return acf
	}

	mean := stat.Mean(v, nil)
	var c0 float64
	for _, val := range v {
		dev := val - mean
		c0 += dev * dev
	}
	if c0 <= 0 {
		return acf
	}

	for lag := 1; lag <= maxLag; lag++ {
		var ck float64
		for t := lag; t < len(v); t++ {
			ck += (v[t] - mean) * (v[t-lag] - mean)
		}
		acf[lag] = ck / c0
	}
	return acf
}
