package score

import "github.com/ordercast/ordercast/timeseries"

// chi-square critical values for 10 degrees of freedom at the tail
// probabilities used by the bucketed p-value map. The mapping is intentionally
// coarse: residual whiteness only gates diagnostics, so a bucketed
// approximation is preferred over a full chi-square CDF. The table matches
// the default of 10 lags; other lag counts reuse it as a further
// approximation since the statistic's degrees of freedom equal the lag count.
var chiSquareCritical = []struct {
	critical float64
	pValue   float64
}{
	{9.34, 0.5},
	{15.99, 0.1},
	{18.31, 0.05},
	{23.21, 0.01},
}

// BoxPiercePValue computes a Box-Pierce statistic over the residual
// autocorrelations up to lags and maps it to an approximate p-value. A high
// p-value indicates the residuals behave like white noise. The p-value
// buckets are calibrated for the default of 10 lags.
func BoxPiercePValue(residuals []float64, lags int) float64 {
	if lags <= 0 {
		lags = 10
	}
	n := len(residuals)
	if n <= lags+1 {
		return 1.0
	}

	acf := timeseries.ACF(residuals, lags)
	var q float64
	for k := 1; k <= lags && k < len(acf); k++ {
		q += acf[k] * acf[k]
	}
	q *= float64(n)

	for _, bucket := range chiSquareCritical {
		if q <= bucket.critical {
			return bucket.pValue
		}
	}
	return 0.001
}
