// Package lime fits a locally weighted ridge surrogate around a point, the
// way the tabular LIME explainer does without continuous discretization.
package lime

import (
	"fmt"
	"math"
	"math/rand"

	"xai-bench/internal/model"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const ridgeAlpha = 1.0

// Weight is the surrogate coefficient of one named feature.
type Weight struct {
	Feature string
	Value   float64
}

type Explainer struct {
	featureNames []string
	mean         []float64
	scale        []float64
	kernelWidth  float64
	model        model.Model
	rng          *rand.Rand
}

// New summarizes the training rows into per-feature mean and scale.
func New(rows [][]float64, featureNames []string, m model.Model, seed int64) (*Explainer, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("lime needs training data")
	}
	dim := len(featureNames)
	e := &Explainer{
		featureNames: append([]string(nil), featureNames...),
		mean:         make([]float64, dim),
		scale:        make([]float64, dim),
		kernelWidth:  math.Sqrt(float64(dim)) * 0.75,
		model:        m,
		rng:          rand.New(rand.NewSource(seed)),
	}

	col := make([]float64, len(rows))
	for j := 0; j < dim; j++ {
		for i, row := range rows {
			if len(row) != dim {
				return nil, fmt.Errorf("row %d has %d features, expected %d", i, len(row), dim)
			}
			col[i] = row[j]
		}
		mu, variance := stat.PopMeanVariance(col, nil)
		e.mean[j] = mu
		e.scale[j] = math.Sqrt(variance)
		if e.scale[j] == 0 {
			e.scale[j] = 1
		}
	}
	return e, nil
}

// Explain samples numSamples neighbors (the first one is x itself), weights
// them by an exponential kernel on the standardized distance to x and fits a
// weighted ridge regression on the model's predictions.
func (e *Explainer) Explain(x []float64, numSamples int) ([]Weight, error) {
	dim := len(e.featureNames)
	if len(x) != dim {
		return nil, fmt.Errorf("point has %d features, expected %d", len(x), dim)
	}
	if numSamples < 2 {
		numSamples = 2
	}

	samples := make([][]float64, numSamples)
	scaled := mat.NewDense(numSamples, dim, nil)
	samples[0] = append([]float64(nil), x...)
	for i := 1; i < numSamples; i++ {
		row := make([]float64, dim)
		for j := range row {
			row[j] = e.rng.NormFloat64()*e.scale[j] + e.mean[j]
		}
		samples[i] = row
	}
	for i, row := range samples {
		for j, v := range row {
			scaled.Set(i, j, (v-e.mean[j])/e.scale[j])
		}
	}

	preds, err := e.model.Predict(samples)
	if err != nil {
		return nil, fmt.Errorf("lime neighborhood prediction: %w", err)
	}

	weights := make([]float64, numSamples)
	origin := scaled.RawRowView(0)
	for i := range weights {
		d := 0.0
		for j, v := range scaled.RawRowView(i) {
			d += (v - origin[j]) * (v - origin[j])
		}
		weights[i] = math.Sqrt(math.Exp(-d / (e.kernelWidth * e.kernelWidth)))
	}

	coef, err := weightedRidge(scaled, preds, weights, ridgeAlpha)
	if err != nil {
		return nil, err
	}

	out := make([]Weight, dim)
	for j, name := range e.featureNames {
		out[j] = Weight{Feature: name, Value: coef[j]}
	}
	return out, nil
}

// weightedRidge solves (XcᵀWXc + αI)β = XcᵀW yc where Xc and yc are centered
// on their weighted means, so the intercept is left unpenalized.
func weightedRidge(x *mat.Dense, y, w []float64, alpha float64) ([]float64, error) {
	n, d := x.Dims()
	sw := 0.0
	for _, v := range w {
		sw += v
	}
	if sw == 0 {
		return nil, fmt.Errorf("lime kernel weights vanished")
	}

	xm := make([]float64, d)
	ym := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			xm[j] += w[i] * x.At(i, j)
		}
		ym += w[i] * y[i]
	}
	for j := range xm {
		xm[j] /= sw
	}
	ym /= sw

	xc := mat.NewDense(n, d, nil)
	yc := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		sq := math.Sqrt(w[i])
		for j := 0; j < d; j++ {
			xc.Set(i, j, sq*(x.At(i, j)-xm[j]))
		}
		yc.SetVec(i, sq*(y[i]-ym))
	}

	var gram mat.Dense
	gram.Mul(xc.T(), xc)
	for j := 0; j < d; j++ {
		gram.Set(j, j, gram.At(j, j)+alpha)
	}
	var rhs mat.VecDense
	rhs.MulVec(xc.T(), yc)

	var beta mat.VecDense
	if err := beta.SolveVec(&gram, &rhs); err != nil {
		return nil, fmt.Errorf("lime ridge solve: %w", err)
	}
	return mat.Col(nil, 0, &beta), nil
}
