package evaluation

import (
	"errors"
	"math"
)

const (
	// minCheckIndex is the first index at which convergence is checked.
	minCheckIndex = 6
	// stableSteps is how many consecutive stable checks end the loop.
	stableSteps = 5
	// stableShare bounds the running-mean change relative to the mean.
	stableShare = 10
)

var ErrNoSamples = errors.New("sampling loop produced no scores")

// Sample is the outcome of one sampling loop.
type Sample struct {
	Mean    float64
	Count   int
	Stopped bool
	Scores  []float64
}

// AdaptiveMean calls step for i = 0..n-1 and averages the scores. With
// earlyStop set, the loop ends once the running mean moved by at most a
// tenth of itself on more than five consecutive checks, checks starting at
// index 6.
func AdaptiveMean(n int, earlyStop bool, step func(i int) (float64, error)) (Sample, error) {
	var s Sample
	mean := 0.0
	streak := 0
	for i := 0; i < n; i++ {
		v, err := step(i)
		if err != nil {
			return s, err
		}
		s.Scores = append(s.Scores, v)
		k := len(s.Scores)
		prev := mean
		// Incremental form keeps the mean of a constant sequence exact.
		mean += (v - mean) / float64(k)

		if !earlyStop || k < 2 || i < minCheckIndex {
			continue
		}
		if math.Abs(prev-mean) <= mean/stableShare {
			streak++
		} else {
			streak = 0
		}
		if streak > stableSteps {
			s.Stopped = true
			break
		}
	}

	s.Count = len(s.Scores)
	if s.Count == 0 {
		return s, ErrNoSamples
	}
	s.Mean = mean
	return s, nil
}
