package bayesopt

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

var lengthScales = []float64{0.05, 0.1, 0.2, 0.3, 0.5, 0.8, 1.2}

var noiseLevels = []float64{1e-6, 1e-4, 1e-2}

var errSingular = errors.New("gaussian process covariance is not positive definite")

// gp is a zero-mean Gaussian process with a unit-amplitude RBF kernel over
// inputs scaled to the unit cube and standardized targets.
type gp struct {
	xs    [][]float64
	alpha *mat.VecDense
	chol  mat.Cholesky
	ls    float64
	yMean float64
	yStd  float64
}

func rbf(a, b []float64, ls float64) float64 {
	d := 0.0
	for i := range a {
		diff := a[i] - b[i]
		d += diff * diff
	}
	return math.Exp(-d / (2 * ls * ls))
}

// fitGP picks the length scale with the highest log marginal likelihood.
// The noise term grows until the covariance factorizes.
func fitGP(xs [][]float64, ys []float64) (*gp, error) {
	n := len(xs)
	mean := 0.0
	for _, y := range ys {
		mean += y
	}
	mean /= float64(n)
	variance := 0.0
	for _, y := range ys {
		variance += (y - mean) * (y - mean)
	}
	std := math.Sqrt(variance / float64(n))
	if std == 0 || math.IsNaN(std) {
		std = 1
	}

	yv := mat.NewVecDense(n, nil)
	for i, y := range ys {
		yv.SetVec(i, (y-mean)/std)
	}

	for _, noise := range noiseLevels {
		var best *gp
		bestLML := math.Inf(-1)
		for _, ls := range lengthScales {
			g := &gp{xs: xs, ls: ls, yMean: mean, yStd: std}
			k := mat.NewSymDense(n, nil)
			for i := 0; i < n; i++ {
				for j := i; j < n; j++ {
					v := rbf(xs[i], xs[j], ls)
					if i == j {
						v += noise
					}
					k.SetSym(i, j, v)
				}
			}
			if ok := g.chol.Factorize(k); !ok {
				continue
			}
			alpha := mat.NewVecDense(n, nil)
			if err := g.chol.SolveVecTo(alpha, yv); err != nil {
				continue
			}
			g.alpha = alpha

			lml := -0.5*mat.Dot(yv, alpha) - 0.5*g.chol.LogDet() - 0.5*float64(n)*math.Log(2*math.Pi)
			if lml > bestLML {
				best, bestLML = g, lml
			}
		}
		if best != nil {
			return best, nil
		}
	}
	return nil, errSingular
}

// predict returns the posterior mean and standard deviation at x in the
// original target units. It only reads g and is safe for concurrent use.
func (g *gp) predict(x []float64) (float64, float64) {
	n := len(g.xs)
	ks := mat.NewVecDense(n, nil)
	for i, xi := range g.xs {
		ks.SetVec(i, rbf(x, xi, g.ls))
	}
	mu := mat.Dot(ks, g.alpha)

	v := mat.NewVecDense(n, nil)
	variance := 1.0
	if err := g.chol.SolveVecTo(v, ks); err == nil {
		variance -= mat.Dot(ks, v)
	}
	if variance < 0 {
		variance = 0
	}
	return mu*g.yStd + g.yMean, math.Sqrt(variance) * g.yStd
}
