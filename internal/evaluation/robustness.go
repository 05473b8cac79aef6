package evaluation

import (
	"context"
	"fmt"

	"xai-bench/internal/bayesopt"
	"xai-bench/internal/cache"
	"xai-bench/internal/explainer"
	"xai-bench/internal/hyperparams"
	"xai-bench/internal/logging"
	"xai-bench/internal/metrics"

	"github.com/sirupsen/logrus"
)

const (
	robustnessEps = 0.1
	// referenceCalls is the adversarial search budget of the built-in
	// explainers, externalCalls the budget of every other kind.
	referenceCalls = 10
	externalCalls  = 100
	innerInitial   = 10
)

// robustness is the mean over data points of the largest sensitivity ratio
// found inside a box of half-width 0.1 around the point. Higher is less
// robust.
func (e *Evaluator) robustness(ctx context.Context, a *explainer.Adapter, cfg hyperparams.Config) (float64, error) {
	explain := func(x []float64) ([]float64, error) {
		return a.Explain(x, cfg)
	}
	key := e.key(cache.MeasureRobustness, a.Kind())

	var art cache.RobustnessArtifact
	hit, err := e.lookup(key, &art)
	if err != nil {
		return 0, err
	}
	if hit {
		if err := e.checkPoints(art.Points); err != nil {
			return 0, err
		}
		s, err := AdaptiveMean(len(art.Points), false, func(i int) (float64, error) {
			return Ratio(e.ctx.Rows[i], art.Points[i], explain, false)
		})
		if err != nil {
			return 0, err
		}
		e.record(cache.MeasureRobustness, s)
		return s.Mean, nil
	}

	calls := externalCalls
	if a.Kind().IsReference() {
		calls = referenceCalls
	}

	var points [][]float64
	s, err := AdaptiveMean(e.ctx.Len(), !e.opts.DisableEarlyStop, func(i int) (float64, error) {
		x := e.ctx.Rows[i]
		bounds := make([]bayesopt.Bound, len(x))
		for j, v := range x {
			bounds[j] = bayesopt.Bound{Lo: v - robustnessEps, Hi: v + robustnessEps}
		}
		objective := func(_ context.Context, y []float64) (float64, error) {
			return Ratio(x, y, explain, true)
		}

		e.calls++
		res, err := bayesopt.Minimize(ctx, objective, bounds, bayesopt.Config{
			Calls:          calls,
			InitialPoints:  innerInitial,
			Candidates:     e.opts.InnerCandidates,
			MaxParallelism: e.opts.InnerParallelism,
			Seed:           e.opts.Seed + e.calls,
			Verbose:        e.ctx.Verbose,
		})
		if err != nil {
			return 0, fmt.Errorf("adversarial search at point %d: %w", i, err)
		}
		metrics.InnerCallsTotal.Add(float64(len(res.Trace)))

		points = append(points, res.Best.X)
		if e.ctx.Verbose {
			logging.GetLogger().WithFields(logrus.Fields{
				"point": i,
				"ratio": -res.Best.Y,
			}).Debug("Adversarial point found")
		}
		return -res.Best.Y, nil
	})
	if err != nil {
		return 0, err
	}
	e.record(cache.MeasureRobustness, s)

	if err := e.opts.Cache.Put(key, cache.RobustnessArtifact{Points: points}); err != nil {
		return 0, fmt.Errorf("write cache %s: %w", key, err)
	}
	return s.Mean, nil
}

func (e *Evaluator) checkPoints(points [][]float64) error {
	if len(points) > e.ctx.Len() {
		return fmt.Errorf("%w: %d cached points for %d rows", ErrArtifactMismatch, len(points), e.ctx.Len())
	}
	for i, p := range points {
		if len(p) != e.ctx.Dim() {
			return fmt.Errorf("%w: cached point %d has %d components, expected %d", ErrArtifactMismatch, i, len(p), e.ctx.Dim())
		}
	}
	return nil
}
