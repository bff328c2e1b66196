package monitoring

import (
	"github.com/montanaflynn/stats"
)

// ScoreSummary describes the distribution of one score across many
// assessments.
type ScoreSummary struct {
	Count  int     `json:"count" yaml:"count"`
	Mean   float64 `json:"mean" yaml:"mean"`
	Median float64 `json:"median" yaml:"median"`
	P10    float64 `json:"p10" yaml:"p10"`
	P90    float64 `json:"p90" yaml:"p90"`
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
	StdDev float64 `json:"std_dev" yaml:"std_dev"`
}

// Summarize computes a ScoreSummary. An empty input yields the zero value.
func Summarize(values []float64) ScoreSummary {
	if len(values) == 0 {
		return ScoreSummary{}
	}
	data := stats.Float64Data(values)

	s := ScoreSummary{Count: len(values)}
	s.Mean, _ = stats.Mean(data)
	s.Median, _ = stats.Median(data)
	s.Min, _ = stats.Min(data)
	s.Max, _ = stats.Max(data)
	s.StdDev, _ = stats.StandardDeviation(data)
	s.P10 = percentile(data, 10)
	s.P90 = percentile(data, 90)
	return s
}

// percentile falls back to the nearest extreme when the sample is too small
// for the requested rank.
func percentile(data stats.Float64Data, p float64) float64 {
	v, err := stats.Percentile(data, p)
	if err == nil {
		return v
	}
	if p < 50 {
		v, _ = stats.Min(data)
	} else {
		v, _ = stats.Max(data)
	}
	return v
}
