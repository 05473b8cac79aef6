// Package bayesopt is a small sequential model-based optimizer: random
// initial points followed by Gaussian-process proposals that maximize
// expected improvement. It serves both the per-point adversarial search and
// the hyperparameter search.
package bayesopt

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"xai-bench/internal/logging"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	defaultCandidates = 1000
	defaultXi         = 0.01
	localShare        = 0.2
	localSigma        = 0.05
)

// Bound is a closed interval of one coordinate.
type Bound struct {
	Lo float64
	Hi float64
}

type Objective func(ctx context.Context, x []float64) (float64, error)

type Evaluation struct {
	X []float64
	Y float64
}

type Config struct {
	// Calls is the total number of objective evaluations.
	Calls int
	// InitialPoints are drawn uniformly before the surrogate is used.
	InitialPoints int
	// Candidates is how many points the acquisition is scored on per step.
	Candidates int
	// Xi trades exploration for exploitation in expected improvement.
	Xi float64
	// MaxParallelism bounds the goroutines scoring candidates. Objective
	// calls are always sequential. Zero means GOMAXPROCS.
	MaxParallelism int
	Seed           int64
	Verbose        bool
}

type Result struct {
	Best  Evaluation
	Trace []Evaluation
}

func (c Config) withDefaults() Config {
	if c.Candidates <= 0 {
		c.Candidates = defaultCandidates
	}
	if c.Xi == 0 {
		c.Xi = defaultXi
	}
	if c.MaxParallelism <= 0 {
		c.MaxParallelism = runtime.GOMAXPROCS(0)
	}
	if c.InitialPoints > c.Calls {
		c.InitialPoints = c.Calls
	}
	if c.InitialPoints < 1 && c.Calls > 0 {
		c.InitialPoints = 1
	}
	return c
}

// Maximize evaluates f cfg.Calls times inside bounds and returns every
// evaluation in call order. On error the evaluations made so far are
// returned alongside it.
func Maximize(ctx context.Context, f Objective, bounds []Bound, cfg Config) (*Result, error) {
	if len(bounds) == 0 {
		return nil, fmt.Errorf("bayesopt: no dimensions")
	}
	for i, b := range bounds {
		if b.Hi < b.Lo || math.IsNaN(b.Lo) || math.IsNaN(b.Hi) {
			return nil, fmt.Errorf("bayesopt: invalid bound %d [%v, %v]", i, b.Lo, b.Hi)
		}
	}
	cfg = cfg.withDefaults()

	o := &optimizer{
		f:      f,
		bounds: bounds,
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		res:    &Result{Best: Evaluation{Y: math.Inf(-1)}},
	}

	for call := 0; call < cfg.Calls; call++ {
		if err := ctx.Err(); err != nil {
			return o.res, err
		}

		var u []float64
		if call < cfg.InitialPoints {
			u = o.randomUnit()
		} else {
			var err error
			u, err = o.propose()
			if err != nil {
				return o.res, err
			}
		}

		if err := o.evaluate(ctx, call, u); err != nil {
			return o.res, err
		}
	}
	return o.res, nil
}

// Minimize is Maximize on the negated objective. Trace values are the
// original, un-negated objective values.
func Minimize(ctx context.Context, f Objective, bounds []Bound, cfg Config) (*Result, error) {
	neg := func(ctx context.Context, x []float64) (float64, error) {
		y, err := f(ctx, x)
		return -y, err
	}
	res, err := Maximize(ctx, neg, bounds, cfg)
	if res == nil {
		return nil, err
	}
	for i := range res.Trace {
		res.Trace[i].Y = -res.Trace[i].Y
	}
	res.Best.Y = -res.Best.Y
	return res, err
}

type optimizer struct {
	f      Objective
	bounds []Bound
	cfg    Config
	rng    *rand.Rand

	units [][]float64
	ys    []float64
	res   *Result
}

func (o *optimizer) evaluate(ctx context.Context, call int, u []float64) error {
	x := o.fromUnit(u)
	y, err := o.f(ctx, x)
	if err != nil {
		return fmt.Errorf("bayesopt call %d: %w", call, err)
	}
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return fmt.Errorf("bayesopt call %d: objective returned %v", call, y)
	}

	o.units = append(o.units, u)
	o.ys = append(o.ys, y)
	ev := Evaluation{X: x, Y: y}
	o.res.Trace = append(o.res.Trace, ev)
	if y > o.res.Best.Y {
		o.res.Best = ev
	}

	if o.cfg.Verbose {
		logging.GetLogger().WithFields(logrus.Fields{
			"call":   call,
			"target": y,
			"best":   o.res.Best.Y,
		}).Debug("Optimizer evaluation")
	}
	return nil
}

// propose fits the surrogate and returns the candidate with the highest
// expected improvement.
func (o *optimizer) propose() ([]float64, error) {
	g, err := fitGP(o.units, o.ys)
	if err != nil {
		// Fall back to exploration when the surrogate cannot be fit.
		return o.randomUnit(), nil
	}

	best := math.Inf(-1)
	bestIdx := 0
	for i, y := range o.ys {
		if y > best {
			best, bestIdx = y, i
		}
	}

	candidates := make([][]float64, o.cfg.Candidates)
	local := int(float64(len(candidates)) * localShare)
	for i := range candidates {
		if i < local {
			candidates[i] = o.perturb(o.units[bestIdx])
		} else {
			candidates[i] = o.randomUnit()
		}
	}

	scores := make([]float64, len(candidates))
	chunk := (len(candidates) + o.cfg.MaxParallelism - 1) / o.cfg.MaxParallelism
	p := pool.New().WithMaxGoroutines(o.cfg.MaxParallelism)
	for start := 0; start < len(candidates); start += chunk {
		start := start
		end := start + chunk
		if end > len(candidates) {
			end = len(candidates)
		}
		p.Go(func() {
			for i := start; i < end; i++ {
				scores[i] = expectedImprovement(g, candidates[i], best, o.cfg.Xi*g.yStd)
			}
		})
	}
	p.Wait()

	pick := 0
	for i, s := range scores {
		if s > scores[pick] {
			pick = i
		}
	}
	if scores[pick] <= 0 || o.seen(candidates[pick]) {
		return o.randomUnit(), nil
	}
	return candidates[pick], nil
}

func expectedImprovement(g *gp, u []float64, best, xi float64) float64 {
	mu, sigma := g.predict(u)
	if sigma <= 0 {
		return 0
	}
	imp := mu - best - xi
	z := imp / sigma
	return imp*distuv.UnitNormal.CDF(z) + sigma*distuv.UnitNormal.Prob(z)
}

func (o *optimizer) seen(u []float64) bool {
	for _, v := range o.units {
		d := 0.0
		for i := range v {
			d += (v[i] - u[i]) * (v[i] - u[i])
		}
		if d < 1e-18 {
			return true
		}
	}
	return false
}

func (o *optimizer) randomUnit() []float64 {
	u := make([]float64, len(o.bounds))
	for i := range u {
		u[i] = o.rng.Float64()
	}
	return u
}

func (o *optimizer) perturb(center []float64) []float64 {
	u := make([]float64, len(center))
	for i, c := range center {
		u[i] = math.Min(1, math.Max(0, c+o.rng.NormFloat64()*localSigma))
	}
	return u
}

func (o *optimizer) fromUnit(u []float64) []float64 {
	x := make([]float64, len(u))
	for i, b := range o.bounds {
		x[i] = b.Lo + u[i]*(b.Hi-b.Lo)
	}
	return x
}
