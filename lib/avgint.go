package lib

import "math"

// AverageInt64 running summary of samples, like collection pauses or
// bytes live after a collection. Mean and deviation are updated per
// sample so that Stats never walks history.
type AverageInt64 struct {
	n        int64
	min, max int64
	mean     float64
	m2       float64 // sum of squared distances from mean
}

// Add a sample.
func (av *AverageInt64) Add(sample int64) {
	if av.n == 0 || sample < av.min {
		av.min = sample
	}
	if av.n == 0 || sample > av.max {
		av.max = sample
	}
	av.n++
	x := float64(sample)
	delta := x - av.mean
	av.mean += delta / float64(av.n)
	av.m2 += delta * (x - av.mean)
}

// Samples added so far.
func (av *AverageInt64) Samples() int64 {
	return av.n
}

// Min sample, zero if none.
func (av *AverageInt64) Min() int64 {
	return av.min
}

// Max sample, zero if none.
func (av *AverageInt64) Max() int64 {
	return av.max
}

// Mean of samples, truncated.
func (av *AverageInt64) Mean() int64 {
	return int64(av.mean)
}

// SD population standard deviation of samples, truncated.
func (av *AverageInt64) SD() int64 {
	if av.n == 0 {
		return 0
	}
	return int64(math.Sqrt(av.m2 / float64(av.n)))
}

// Stats return summary as a map.
func (av *AverageInt64) Stats() map[string]interface{} {
	return map[string]interface{}{
		"samples":     av.n,
		"min":         av.min,
		"max":         av.max,
		"mean":        av.Mean(),
		"stddeviance": av.SD(),
	}
}
