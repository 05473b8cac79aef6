package evaluation

import (
	"fmt"

	"xai-bench/internal/cache"
	"xai-bench/internal/explainer"
	"xai-bench/internal/hyperparams"
	"xai-bench/internal/model"

	"gonum.org/v1/gonum/floats"
)

const (
	infidelityEps = 0.1
	perturbations = 10
)

// infidelity is the mean squared gap between the change the attribution
// predicts for a small perturbation and the change of the model output.
func (e *Evaluator) infidelity(a *explainer.Adapter, cfg hyperparams.Config) (float64, error) {
	key := e.key(cache.MeasureInfidelity, a.Kind())

	var art cache.InfidelityArtifact
	hit, err := e.lookup(key, &art)
	if err != nil {
		return 0, err
	}
	if hit {
		if err := e.checkRecords(art.Records); err != nil {
			return 0, err
		}
		s, err := AdaptiveMean(len(art.Records), false, func(i int) (float64, error) {
			attr, err := a.Explain(e.ctx.Rows[i], cfg)
			if err != nil {
				return 0, err
			}
			return perturbationError(e.ctx.Rows[i], attr, art.Records[i]), nil
		})
		if err != nil {
			return 0, err
		}
		e.record(cache.MeasureInfidelity, s)
		return s.Mean, nil
	}

	var records []cache.PerturbationRecord
	s, err := AdaptiveMean(e.ctx.Len(), !e.opts.DisableEarlyStop, func(i int) (float64, error) {
		x := e.ctx.Rows[i]
		attr, err := a.Explain(x, cfg)
		if err != nil {
			return 0, err
		}
		rec, err := e.perturb(x)
		if err != nil {
			return 0, fmt.Errorf("perturbations of point %d: %w", i, err)
		}
		records = append(records, rec)
		return perturbationError(x, attr, rec), nil
	})
	if err != nil {
		return 0, err
	}
	e.record(cache.MeasureInfidelity, s)

	if err := e.opts.Cache.Put(key, cache.InfidelityArtifact{Records: records}); err != nil {
		return 0, fmt.Errorf("write cache %s: %w", key, err)
	}
	return s.Mean, nil
}

// perturb draws perturbations of x uniformly inside a box of half-width 0.1
// and records the model output at x and at every perturbed input.
func (e *Evaluator) perturb(x []float64) (cache.PerturbationRecord, error) {
	rec := cache.PerturbationRecord{
		X0:     make([][]float64, perturbations),
		PredX:  make([]float64, perturbations),
		PredX0: make([]float64, perturbations),
	}
	predX, err := model.PredictOne(e.ctx.Model, x)
	if err != nil {
		return rec, err
	}
	for j := 0; j < perturbations; j++ {
		x0 := make([]float64, len(x))
		for k, v := range x {
			x0[k] = v + e.rng.Float64()*2*infidelityEps - infidelityEps
		}
		predX0, err := model.PredictOne(e.ctx.Model, x0)
		if err != nil {
			return rec, err
		}
		rec.X0[j] = x0
		rec.PredX[j] = predX
		rec.PredX0[j] = predX0
	}
	return rec, nil
}

// perturbationError averages (a·x − a·x0 − (f(x) − f(x0)))² over the
// perturbations of rec, using only the first len(attr) features.
func perturbationError(x, attr []float64, rec cache.PerturbationRecord) float64 {
	k := len(attr)
	if k > len(x) {
		k = len(x)
	}
	expX := floats.Dot(x[:k], attr[:k])
	sum := 0.0
	for j, x0 := range rec.X0 {
		expX0 := floats.Dot(x0[:k], attr[:k])
		d := expX - expX0 - (rec.PredX[j] - rec.PredX0[j])
		sum += d * d
	}
	return sum / float64(len(rec.X0))
}

func (e *Evaluator) checkRecords(records []cache.PerturbationRecord) error {
	if len(records) > e.ctx.Len() {
		return fmt.Errorf("%w: %d cached records for %d rows", ErrArtifactMismatch, len(records), e.ctx.Len())
	}
	for i, r := range records {
		if len(r.X0) == 0 || len(r.X0) != len(r.PredX) || len(r.X0) != len(r.PredX0) {
			return fmt.Errorf("%w: cached record %d is incomplete", ErrArtifactMismatch, i)
		}
		for _, x0 := range r.X0 {
			if len(x0) != e.ctx.Dim() {
				return fmt.Errorf("%w: cached record %d has a perturbation of width %d", ErrArtifactMismatch, i, len(x0))
			}
		}
	}
	return nil
}
