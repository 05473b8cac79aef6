package evaluation

import (
	"errors"
	"math"
	"testing"
)

func double(x []float64) ([]float64, error) {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = 2 * v
	}
	return out, nil
}

func TestRatio(t *testing.T) {
	r, err := Ratio([]float64{0, 0}, []float64{3, 4}, double, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(r-2) > 1e-12 {
		t.Fatalf("expected ratio 2, got %v", r)
	}

	r, err = Ratio([]float64{0, 0}, []float64{3, 4}, double, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(r+2) > 1e-12 {
		t.Fatalf("expected inverted ratio -2, got %v", r)
	}
}

func TestRatio_ZeroDistance(t *testing.T) {
	called := false
	f := func(x []float64) ([]float64, error) {
		called = true
		return x, nil
	}
	_, err := Ratio([]float64{1, 2}, []float64{1, 2}, f, false)
	if !errors.Is(err, ErrZeroDistance) {
		t.Fatalf("expected ErrZeroDistance, got %v", err)
	}
	if called {
		t.Fatalf("attribution should not be computed for identical points")
	}
}

func TestRatio_PropagatesAttributionError(t *testing.T) {
	boom := errors.New("explainer failed")
	f := func([]float64) ([]float64, error) { return nil, boom }
	if _, err := Ratio([]float64{0}, []float64{1}, f, false); !errors.Is(err, boom) {
		t.Fatalf("expected explainer error, got %v", err)
	}
}

func TestRatio_ConstantFunctionIsZero(t *testing.T) {
	f := func([]float64) ([]float64, error) { return []float64{3, -1}, nil }
	r, err := Ratio([]float64{0.2, 0.4}, []float64{1, -2}, f, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r != 0 {
		t.Fatalf("expected ratio 0 for a constant attribution, got %v", r)
	}
}

func TestRatio_BoxCornerReference(t *testing.T) {
	f := func(x []float64) ([]float64, error) { return []float64{x[0] * x[0], x[1]}, nil }
	x := []float64{0.3, 0.5}
	y := []float64{0.4, 0.6}
	r, err := Ratio(x, y, f, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// |(0.16-0.09, 0.1)| / |(0.1, 0.1)|
	want := math.Sqrt(0.07*0.07+0.01) / (0.1 * math.Sqrt2)
	if math.Abs(r-want) > 1e-12 {
		t.Fatalf("expected %v, got %v", want, r)
	}
}
