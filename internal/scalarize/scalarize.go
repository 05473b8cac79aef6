// Package scalarize turns the score history of several explanation
// properties into one weighted objective.
package scalarize

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type Scaling string

const (
	ScalingMinMax Scaling = "MinMax"
	ScalingStd    Scaling = "Std"
)

var (
	ErrUnknownScaling = errors.New("unknown scaling mode")
	ErrWeightCount    = errors.New("one weight per property is required")
	ErrHistoryLength  = errors.New("property history does not match aggregated history")
)

func ParseScaling(s string) (Scaling, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minmax", "min-max", "":
		return ScalingMinMax, nil
	case "std", "standard":
		return ScalingStd, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownScaling, s)
}

// History is the append-only record of property scores over trials.
type History struct {
	Scores     map[string][]float64 `json:"scores"`
	Scaled     map[string][]float64 `json:"scaled"`
	Aggregated []float64            `json:"aggregated_score"`
}

func NewHistory() *History {
	return &History{
		Scores: make(map[string][]float64),
		Scaled: make(map[string][]float64),
	}
}

func (h *History) Append(property string, score float64) {
	h.Scores[property] = append(h.Scores[property], score)
}

// Latest returns the newest aggregated score.
func (h *History) Latest() (float64, bool) {
	if len(h.Aggregated) == 0 {
		return 0, false
	}
	return h.Aggregated[len(h.Aggregated)-1], true
}

// Combine grows Aggregated by one slot and recomputes all of it: every
// property with at least two scores is rescaled over its whole history and
// added with weight w/len(properties). Properties with fewer scores are
// scaled to zero and contribute nothing.
func Combine(h *History, properties []string, mode Scaling, weights []float64) error {
	if len(weights) != len(properties) {
		return fmt.Errorf("%w: %d properties, %d weights", ErrWeightCount, len(properties), len(weights))
	}
	if mode != ScalingMinMax && mode != ScalingStd {
		return fmt.Errorf("%w: %q", ErrUnknownScaling, mode)
	}

	agg := make([]float64, len(h.Aggregated)+1)
	n := float64(len(properties))
	for i, p := range properties {
		scores := h.Scores[p]
		if len(scores) < 2 {
			h.Scaled[p] = make([]float64, len(scores))
			continue
		}
		if len(scores) != len(agg) {
			return fmt.Errorf("%w: %s has %d scores, expected %d", ErrHistoryLength, p, len(scores), len(agg))
		}

		scaled := Scale(scores, mode)
		h.Scaled[p] = scaled
		floats.AddScaled(agg, weights[i]/n, scaled)
	}
	h.Aggregated = agg
	return nil
}

// Scale fits the scaler on values and transforms them. A zero range or zero
// deviation uses a unit scale, so identical values map to zero.
func Scale(values []float64, mode Scaling) []float64 {
	out := make([]float64, len(values))
	switch mode {
	case ScalingStd:
		mean := stat.Mean(values, nil)
		std := math.Sqrt(stat.Variance(values, nil) * float64(len(values)-1) / float64(len(values)))
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		for i, v := range values {
			out[i] = (v - mean) / std
		}
	default:
		lo, hi := floats.Min(values), floats.Max(values)
		span := hi - lo
		if span == 0 {
			span = 1
		}
		for i, v := range values {
			out[i] = (v - lo) / span
		}
	}
	return out
}
