package ordercast

import (
	"math"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/ordercast/ordercast/timeseries"
)

// LineForecast generates an echart line chart plotting the training series
// along with the forecasted values and their upper and lower confidence
// bounds. Timestamps are interpreted as epoch seconds for axis labels.
func LineForecast(title string, s *timeseries.Series, res *ForecastResult) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
	)

	n := s.Len()
	h := len(res.Predictions)

	xAxis := make([]string, 0, n+h)
	for _, ts := range s.T {
		xAxis = append(xAxis, formatTimestamp(ts))
	}

	lineDataActual := make([]opts.LineData, 0, n+h)
	for _, v := range s.V {
		if math.IsNaN(v) {
			lineDataActual = append(lineDataActual, opts.LineData{})
			continue
		}
		lineDataActual = append(lineDataActual, opts.LineData{Value: v})
	}

	// forecast series only start after the end of the training data
	lineDataForecast := make([]opts.LineData, 0, n+h)
	lineDataUpper := make([]opts.LineData, 0, n+h)
	lineDataLower := make([]opts.LineData, 0, n+h)
	for i := 0; i < n; i++ {
		lineDataForecast = append(lineDataForecast, opts.LineData{})
		lineDataUpper = append(lineDataUpper, opts.LineData{})
		lineDataLower = append(lineDataLower, opts.LineData{})
	}
	for i, pt := range res.Predictions {
		xAxis = append(xAxis, formatTimestamp(pt.T))
		lineDataForecast = append(lineDataForecast, opts.LineData{Value: pt.V})
		lineDataUpper = append(lineDataUpper, opts.LineData{Value: res.Upper[i]})
		lineDataLower = append(lineDataLower, opts.LineData{Value: res.Lower[i]})
	}

	line.SetXAxis(xAxis).
		AddSeries("Actual", lineDataActual).
		AddSeries("Forecast", lineDataForecast).
		AddSeries("Upper", lineDataUpper).
		AddSeries("Lower", lineDataLower)
	return line
}

func formatTimestamp(ts int64) string {
	return time.Unix(ts, 0).UTC().Format("2006-01-02 15:04")
}
