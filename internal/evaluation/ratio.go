package evaluation

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

var ErrZeroDistance = errors.New("sensitivity ratio of identical inputs")

// VectorFunc maps an input point to an attribution vector.
type VectorFunc func(x []float64) ([]float64, error)

// Ratio returns ‖f(x)−f(y)‖/‖x−y‖, negated when invert is set so that a
// minimizer searches for the largest ratio.
func Ratio(x, y []float64, f VectorFunc, invert bool) (float64, error) {
	if len(x) != len(y) {
		return 0, fmt.Errorf("ratio of points with %d and %d components", len(x), len(y))
	}
	den := floats.Distance(x, y, 2)
	if den == 0 {
		return 0, ErrZeroDistance
	}
	fx, err := f(x)
	if err != nil {
		return 0, err
	}
	fy, err := f(y)
	if err != nil {
		return 0, err
	}
	if len(fx) != len(fy) {
		return 0, fmt.Errorf("ratio of attributions with %d and %d components", len(fx), len(fy))
	}

	r := floats.Distance(fx, fy, 2) / den
	if invert {
		r = -r
	}
	return r, nil
}
