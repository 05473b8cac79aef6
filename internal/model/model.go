package model

import (
	"fmt"
)

// Model is the black box being explained. Predict receives a batch of rows
// and returns one prediction per row; the evaluation core only ever sends
// single-row batches.
type Model interface {
	Predict(rows [][]float64) ([]float64, error)
}

// Func adapts a per-row prediction function to Model.
type Func func(row []float64) float64

func (f Func) Predict(rows [][]float64) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = f(row)
	}
	return out, nil
}

// Linear predicts Intercept + Coefficients·row.
type Linear struct {
	Coefficients []float64
	Intercept    float64
}

func NewLinear(coefficients []float64, intercept float64) (*Linear, error) {
	if len(coefficients) == 0 {
		return nil, fmt.Errorf("linear model needs at least one coefficient")
	}
	return &Linear{
		Coefficients: append([]float64(nil), coefficients...),
		Intercept:    intercept,
	}, nil
}

func (l *Linear) Predict(rows [][]float64) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(l.Coefficients) {
			return nil, fmt.Errorf("row %d has %d features, model expects %d", i, len(row), len(l.Coefficients))
		}
		sum := l.Intercept
		for j, c := range l.Coefficients {
			sum += c * row[j]
		}
		out[i] = sum
	}
	return out, nil
}

// PredictOne is a convenience wrapper for single-row calls.
func PredictOne(m Model, row []float64) (float64, error) {
	preds, err := m.Predict([][]float64{row})
	if err != nil {
		return 0, err
	}
	if len(preds) != 1 {
		return 0, fmt.Errorf("model returned %d predictions for a single row", len(preds))
	}
	return preds[0], nil
}
