package measurement

import "math"

// Summary describes one metric over a series of measurements.
type Summary struct {
	// Number of measurements that have the metric.
	Count int
	Min   float32
	Max   float32
	Mean  float32
	// Population standard deviation.
	StdDev float32
}

// Summarize returns a Summary for every metric that at least one of the
// measurements has. Each metric is summarized in a single pass using
// Welford's running variance.
func Summarize(measurements []Measurement) map[string]Summary {
	summaries := make(map[string]Summary)
	for _, name := range MetricNames() {
		var (
			n        int
			mean, m2 float64
			lo, hi   = math.Inf(1), math.Inf(-1)
		)
		for _, m := range measurements {
			p := m.value(name)
			if p == nil {
				continue
			}

			v := float64(*p)
			n++
			delta := v - mean
			mean += delta / float64(n)
			m2 += delta * (v - mean)
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}

		if n == 0 {
			continue
		}
		summaries[name] = Summary{
			Count:  n,
			Min:    float32(lo),
			Max:    float32(hi),
			Mean:   float32(mean),
			StdDev: float32(math.Sqrt(m2 / float64(n))),
		}
	}

	return summaries
}

func project(measurements []Measurement, field func(Summary) float32) map[string]float32 {
	x := make(map[string]float32)
	for name, s := range Summarize(measurements) {
		x[name] = field(s)
	}
	return x
}

// Mean returns the mean of each metric over the measurements that have it.
func Mean(measurements []Measurement) map[string]float32 {
	return project(measurements, func(s Summary) float32 { return s.Mean })
}

// StdDev returns the population standard deviation of each metric.
func StdDev(measurements []Measurement) map[string]float32 {
	return project(measurements, func(s Summary) float32 { return s.StdDev })
}

func Min(measurements []Measurement) map[string]float32 {
	return project(measurements, func(s Summary) float32 { return s.Min })
}

func Max(measurements []Measurement) map[string]float32 {
	return project(measurements, func(s Summary) float32 { return s.Max })
}
