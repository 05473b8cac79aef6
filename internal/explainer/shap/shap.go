// Package shap estimates Shapley values of a model prediction against a
// background dataset, either by permutation sampling or with the kernel
// weighted least squares estimator.
package shap

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"xai-bench/internal/hyperparams"
	"xai-bench/internal/model"

	"gonum.org/v1/gonum/mat"
)

// maxKernelBackground bounds the rows every kernel coalition is averaged
// over.
const maxKernelBackground = 50

const solveJitter = 1e-8

type Explainer struct {
	summarize  hyperparams.Summarize
	model      model.Model
	background [][]float64
	base       float64
	rng        *rand.Rand
}

func New(rows [][]float64, m model.Model, summarize hyperparams.Summarize, seed int64) (*Explainer, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("shap needs background data")
	}
	e := &Explainer{
		summarize: summarize,
		model:     m,
		rng:       rand.New(rand.NewSource(seed)),
	}

	switch summarize {
	case hyperparams.SummarizeSampling:
		e.background = rows
	case hyperparams.SummarizeKernel:
		e.background = summarizeRows(rows, maxKernelBackground)
	default:
		return nil, fmt.Errorf("unknown summarize strategy %q", summarize)
	}

	preds, err := m.Predict(e.background)
	if err != nil {
		return nil, fmt.Errorf("shap background prediction: %w", err)
	}
	for _, p := range preds {
		e.base += p
	}
	e.base /= float64(len(preds))
	return e, nil
}

// BaseValue is the expected prediction over the background rows.
func (e *Explainer) BaseValue() float64 {
	return e.base
}

// summarizeRows keeps at most n evenly spaced rows.
func summarizeRows(rows [][]float64, n int) [][]float64 {
	if len(rows) <= n {
		return rows
	}
	out := make([][]float64, n)
	step := float64(len(rows)) / float64(n)
	for i := range out {
		out[i] = rows[int(float64(i)*step)]
	}
	return out
}

// Values returns one attribution per feature of x.
func (e *Explainer) Values(x []float64, nsamples int, l1 hyperparams.L1Reg) ([]float64, error) {
	if e.summarize == hyperparams.SummarizeSampling {
		return e.sampling(x, nsamples)
	}
	return e.kernel(x, nsamples, l1)
}

// sampling runs permutation sampling: each draw walks a random feature order
// from a random background row towards x and credits every feature with the
// change in prediction it causes.
func (e *Explainer) sampling(x []float64, nsamples int) ([]float64, error) {
	dim := len(x)
	draws := nsamples / (dim + 1)
	if draws < 1 {
		draws = 1
	}

	phi := make([]float64, dim)
	for d := 0; d < draws; d++ {
		z := e.background[e.rng.Intn(len(e.background))]
		perm := e.rng.Perm(dim)

		path := make([][]float64, dim+1)
		cur := append([]float64(nil), z...)
		path[0] = append([]float64(nil), cur...)
		for k, j := range perm {
			cur[j] = x[j]
			path[k+1] = append([]float64(nil), cur...)
		}

		preds, err := e.model.Predict(path)
		if err != nil {
			return nil, fmt.Errorf("shap sampling prediction: %w", err)
		}
		for k, j := range perm {
			phi[j] += preds[k+1] - preds[k]
		}
	}
	for j := range phi {
		phi[j] /= float64(draws)
	}
	return phi, nil
}

func (e *Explainer) kernel(x []float64, nsamples int, l1 hyperparams.L1Reg) ([]float64, error) {
	dim := len(x)
	fx, err := model.PredictOne(e.model, x)
	if err != nil {
		return nil, fmt.Errorf("shap prediction: %w", err)
	}
	total := fx - e.base
	if dim == 1 {
		return []float64{total}, nil
	}

	masks := e.sampleCoalitions(dim, nsamples)
	ys := make([]float64, len(masks))
	for c, mask := range masks {
		v, err := e.coalitionValue(x, mask)
		if err != nil {
			return nil, err
		}
		ys[c] = v - e.base
	}

	all := make([]int, dim)
	for j := range all {
		all[j] = j
	}
	phi, _, err := constrainedFit(masks, ys, total, all)
	if err != nil {
		return nil, err
	}

	selected := selectFeatures(phi, masks, ys, total, l1, coalitionFraction(dim, len(masks)))
	if selected == nil {
		return phi, nil
	}
	if l1.Mode == hyperparams.L1Float {
		return softThreshold(phi, l1.Alpha), nil
	}
	out, _, err := constrainedFit(masks, ys, total, selected)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// sampleCoalitions draws coalition sizes in proportion to the Shapley kernel
// weight of each size, so the regression can be solved unweighted.
func (e *Explainer) sampleCoalitions(dim, nsamples int) [][]bool {
	if nsamples < dim+1 {
		nsamples = dim + 1
	}
	sizeWeights := make([]float64, dim-1)
	sum := 0.0
	for s := 1; s < dim; s++ {
		sizeWeights[s-1] = float64(dim-1) / float64(s*(dim-s))
		sum += sizeWeights[s-1]
	}

	masks := make([][]bool, nsamples)
	for c := range masks {
		u := e.rng.Float64() * sum
		size := dim - 1
		for s, w := range sizeWeights {
			u -= w
			if u <= 0 {
				size = s + 1
				break
			}
		}
		mask := make([]bool, dim)
		for _, j := range e.rng.Perm(dim)[:size] {
			mask[j] = true
		}
		masks[c] = mask
	}
	return masks
}

// coalitionValue is the expected prediction when features in mask come
// from x and the rest from the background.
func (e *Explainer) coalitionValue(x []float64, mask []bool) (float64, error) {
	rows := make([][]float64, len(e.background))
	for i, z := range e.background {
		row := append([]float64(nil), z...)
		for j, in := range mask {
			if in {
				row[j] = x[j]
			}
		}
		rows[i] = row
	}
	preds, err := e.model.Predict(rows)
	if err != nil {
		return 0, fmt.Errorf("shap coalition prediction: %w", err)
	}
	v := 0.0
	for _, p := range preds {
		v += p
	}
	return v / float64(len(preds)), nil
}

// constrainedFit solves the least squares problem restricted to features,
// with the efficiency constraint sum(phi) = total enforced by eliminating
// the last selected feature. It returns phi over all features and the
// residual sum of squares.
func constrainedFit(masks [][]bool, ys []float64, total float64, features []int) ([]float64, float64, error) {
	dim := len(masks[0])
	phi := make([]float64, dim)
	if len(features) == 1 {
		phi[features[0]] = total
		return phi, rss(masks, ys, phi), nil
	}

	last := features[len(features)-1]
	free := features[:len(features)-1]
	n := len(masks)
	k := len(free)

	a := mat.NewDense(n+k, k, nil)
	b := mat.NewVecDense(n+k, nil)
	for c, mask := range masks {
		zl := indicator(mask[last])
		for i, j := range free {
			a.Set(c, i, indicator(mask[j])-zl)
		}
		b.SetVec(c, ys[c]-zl*total)
	}
	jitter := math.Sqrt(solveJitter)
	for i := 0; i < k; i++ {
		a.Set(n+i, i, jitter)
	}

	var sol mat.VecDense
	if err := sol.SolveVec(a, b); err != nil {
		return nil, 0, fmt.Errorf("shap kernel solve: %w", err)
	}

	rest := total
	for i, j := range free {
		phi[j] = sol.AtVec(i)
		rest -= phi[j]
	}
	phi[last] = rest
	return phi, rss(masks, ys, phi), nil
}

func rss(masks [][]bool, ys []float64, phi []float64) float64 {
	out := 0.0
	for c, mask := range masks {
		pred := 0.0
		for j, in := range mask {
			if in {
				pred += phi[j]
			}
		}
		out += (ys[c] - pred) * (ys[c] - pred)
	}
	return out
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// coalitionFraction is the share of the 2^dim-2 proper coalitions sampled.
func coalitionFraction(dim, sampled int) float64 {
	if dim >= 62 {
		return 0
	}
	space := math.Exp2(float64(dim)) - 2
	return float64(sampled) / space
}

// selectFeatures returns the features kept under l1, or nil to keep all.
// Information criteria compare nested models built from features ranked by
// the magnitude of the unregularized solution.
func selectFeatures(phi []float64, masks [][]bool, ys []float64, total float64, l1 hyperparams.L1Reg, fraction float64) []int {
	ranked := make([]int, len(phi))
	for j := range ranked {
		ranked[j] = j
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return math.Abs(phi[ranked[a]]) > math.Abs(phi[ranked[b]])
	})

	mode := l1.Mode
	if mode == hyperparams.L1Auto {
		if fraction >= 0.2 {
			return nil
		}
		mode = hyperparams.L1AIC
	}

	switch mode {
	case hyperparams.L1NumFeatures:
		k := l1.NumFeatures
		if k < 1 || k >= len(phi) {
			return nil
		}
		return ranked[:k]
	case hyperparams.L1Float:
		return ranked
	case hyperparams.L1AIC, hyperparams.L1BIC:
		n := float64(len(masks))
		bestK, bestScore := len(phi), math.Inf(1)
		for k := 1; k <= len(phi); k++ {
			_, r, err := constrainedFit(masks, ys, total, ranked[:k])
			if err != nil {
				continue
			}
			penalty := 2 * float64(k)
			if mode == hyperparams.L1BIC {
				penalty = float64(k) * math.Log(n)
			}
			score := n*math.Log(math.Max(r, 1e-300)/n) + penalty
			if score < bestScore {
				bestK, bestScore = k, score
			}
		}
		if bestK == len(phi) {
			return nil
		}
		return ranked[:bestK]
	}
	return nil
}

// softThreshold shrinks every attribution towards zero by alpha times the
// largest magnitude, the closed-form lasso solution for an orthogonal design.
func softThreshold(phi []float64, alpha float64) []float64 {
	maxAbs := 0.0
	for _, v := range phi {
		maxAbs = math.Max(maxAbs, math.Abs(v))
	}
	cut := alpha * maxAbs
	out := make([]float64, len(phi))
	for j, v := range phi {
		if math.Abs(v) > cut {
			out[j] = v - math.Copysign(cut, v)
		}
	}
	return out
}
