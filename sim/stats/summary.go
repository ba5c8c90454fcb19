package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Summary describes one metric across replications.
type Summary struct {
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"` // sample standard deviation (n-1)
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	// HalfWidth95 is t(0.975, n-1)·s/√n. Zero when n < 2.
	HalfWidth95 float64 `json:"half_width_95"`
}

// CI95 returns the 95% confidence interval of the mean.
func (s Summary) CI95() (lo, hi float64) {
	return s.Mean - s.HalfWidth95, s.Mean + s.HalfWidth95
}

// Summarize computes a Summary. Returns the zero value for empty input.
func Summarize(values []float64) Summary {
	n := len(values)
	if n == 0 {
		return Summary{}
	}
	s := Summary{N: n, Min: values[0], Max: values[0]}
	for _, v := range values[1:] {
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	if n < 2 {
		s.Mean = values[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(values, nil)
	s.HalfWidth95 = tQuantile975(n-1) * s.StdDev / math.Sqrt(float64(n))
	return s
}

// tQuantile975 is the 0.975 quantile of Student's t with df degrees of freedom.
func tQuantile975(df int) float64 {
	return distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}.Quantile(0.975)
}
