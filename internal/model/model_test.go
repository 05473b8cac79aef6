package model

import "testing"

func TestLinear_Predict(t *testing.T) {
	m, err := NewLinear([]float64{1, 1}, 0.5)
	if err != nil {
		t.Fatalf("NewLinear: %v", err)
	}
	preds, err := m.Predict([][]float64{{1, 2}, {0, 0}})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if preds[0] != 3.5 || preds[1] != 0.5 {
		t.Fatalf("unexpected predictions %v", preds)
	}
}

func TestLinear_RejectsWrongWidth(t *testing.T) {
	m, _ := NewLinear([]float64{1, 1}, 0)
	if _, err := m.Predict([][]float64{{1}}); err == nil {
		t.Fatalf("expected width error, got nil")
	}
}

func TestPredictOne_Func(t *testing.T) {
	f := Func(func(row []float64) float64 { return row[0] * 2 })
	got, err := PredictOne(f, []float64{3})
	if err != nil {
		t.Fatalf("PredictOne: %v", err)
	}
	if got != 6 {
		t.Fatalf("expected 6, got %v", got)
	}
}
