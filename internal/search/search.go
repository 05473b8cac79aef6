// Package search drives the outer hyperparameter search: every trial
// evaluates a configuration on the requested properties and scalarizes the
// growing score history into one objective.
package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"xai-bench/internal/bayesopt"
	"xai-bench/internal/evaluation"
	"xai-bench/internal/hyperparams"
	"xai-bench/internal/logging"
	"xai-bench/internal/metrics"
	"xai-bench/internal/scalarize"

	"github.com/sirupsen/logrus"
)

var ErrQuestionUnsupported = errors.New("evaluation question has no scores")

// Trial is one evaluated configuration. Aggregated is the scalarized score
// at the time the trial ran, which is what the optimizer saw.
type Trial struct {
	Index      int                             `json:"index"`
	Strategy   hyperparams.Strategy            `json:"strategy"`
	Vector     []float64                       `json:"vector,omitempty"`
	Config     hyperparams.Config              `json:"config"`
	Scores     map[evaluation.Property]float64 `json:"scores"`
	Aggregated float64                         `json:"aggregated_score"`
	Duration   time.Duration                   `json:"duration"`
}

type Options struct {
	// InitPoints overrides the number of random trials before the surrogate
	// guides the Bayesian search. Zero selects 5^min(dims, 2).
	InitPoints int
	// MaxParallelism bounds the goroutines scoring acquisition candidates.
	MaxParallelism int
	Candidates     int
	Seed           int64
}

// Searcher runs trials against one evaluator. All strategies append to the
// same score history.
type Searcher struct {
	evaluator *evaluation.Evaluator
	opts      Options
	history   *scalarize.History
	trials    []Trial
	rng       *rand.Rand
}

func New(ev *evaluation.Evaluator, opts Options) *Searcher {
	return &Searcher{
		evaluator: ev,
		opts:      opts,
		history:   scalarize.NewHistory(),
		rng:       rand.New(rand.NewSource(opts.Seed)),
	}
}

func (s *Searcher) History() *scalarize.History {
	return s.history
}

// Trials returns every trial run so far, in order.
func (s *Searcher) Trials() []Trial {
	return append([]Trial(nil), s.trials...)
}

// InitPoints is the default number of random initial trials for a space of
// dims coordinates.
func InitPoints(dims int) int {
	if dims > 2 {
		dims = 2
	}
	return int(math.Pow(5, float64(dims)))
}

// RunStrategy runs n trials of strategy. The default strategy always runs a
// single trial, the Bayesian one runs n model-guided trials after its
// initial random ones.
func (s *Searcher) RunStrategy(ctx context.Context, strategy hyperparams.Strategy, kind hyperparams.Kind, props []evaluation.Property, n int) ([]Trial, error) {
	if err := s.check(props); err != nil {
		return nil, err
	}
	dim := s.evaluator.Context().Dim()

	switch strategy {
	case hyperparams.StrategyDefault:
		cfg, err := hyperparams.Default(kind, dim)
		if err != nil {
			return nil, err
		}
		t, err := s.trial(ctx, strategy, kind, props, cfg, nil)
		if err != nil {
			return nil, err
		}
		return []Trial{t}, nil

	case hyperparams.StrategyRandom:
		concise := containsProperty(props, evaluation.PropertyConciseness)
		out := make([]Trial, 0, n)
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			cfg, err := hyperparams.Random(kind, dim, concise, s.rng)
			if err != nil {
				return out, err
			}
			t, err := s.trial(ctx, strategy, kind, props, cfg, nil)
			if err != nil {
				return out, err
			}
			out = append(out, t)
		}
		return out, nil

	case hyperparams.StrategyBayes:
		return s.Search(ctx, kind, props, n)
	}
	return nil, fmt.Errorf("%w: %q", hyperparams.ErrUnknownStrategy, strategy)
}

// Search maximizes the aggregated score over the hyperparameter space of
// kind with a Gaussian-process surrogate. It returns the trials in the order
// they ran.
func (s *Searcher) Search(ctx context.Context, kind hyperparams.Kind, props []evaluation.Property, iterations int) ([]Trial, error) {
	if err := s.check(props); err != nil {
		return nil, err
	}
	dim := s.evaluator.Context().Dim()
	space, err := hyperparams.Space(kind, dim)
	if err != nil {
		return nil, err
	}
	bounds := make([]bayesopt.Bound, len(space))
	for i, d := range space {
		bounds[i] = bayesopt.Bound{Lo: d.Lo, Hi: d.Hi}
	}

	init := s.opts.InitPoints
	if init <= 0 {
		init = InitPoints(len(space))
	}
	if iterations < 0 {
		iterations = 0
	}

	var out []Trial
	objective := func(ctx context.Context, v []float64) (float64, error) {
		cfg, err := hyperparams.Decode(kind, dim, v)
		if err != nil {
			return 0, err
		}
		t, err := s.trial(ctx, hyperparams.StrategyBayes, kind, props, cfg, v)
		if err != nil {
			return 0, err
		}
		out = append(out, t)
		return t.Aggregated, nil
	}

	logging.GetSearchLogger().WithFields(logrus.Fields{
		"explainer":   kind,
		"dimensions":  len(space),
		"init_points": init,
		"iterations":  iterations,
	}).Info("Starting Bayesian search")

	_, err = bayesopt.Maximize(ctx, objective, bounds, bayesopt.Config{
		Calls:          init + iterations,
		InitialPoints:  init,
		Candidates:     s.opts.Candidates,
		MaxParallelism: s.opts.MaxParallelism,
		Seed:           s.opts.Seed,
		Verbose:        s.evaluator.Context().Verbose,
	})
	return out, err
}

// trial evaluates cfg on every property, appends the scores to the history
// and scalarizes it.
func (s *Searcher) trial(ctx context.Context, strategy hyperparams.Strategy, kind hyperparams.Kind, props []evaluation.Property, cfg hyperparams.Config, vector []float64) (Trial, error) {
	start := time.Now()
	ectx := s.evaluator.Context()

	t := Trial{
		Index:    len(s.trials),
		Strategy: strategy,
		Vector:   vector,
		Config:   cfg,
		Scores:   make(map[evaluation.Property]float64, len(props)),
	}
	for _, p := range props {
		score, ok, err := s.evaluator.Evaluate(ctx, kind, cfg, p)
		if err != nil {
			return t, fmt.Errorf("trial %d: %w", t.Index, err)
		}
		if !ok {
			return t, fmt.Errorf("%w: %q", ErrQuestionUnsupported, ectx.Question)
		}
		t.Scores[p] = score
		s.history.Append(p.String(), score)
	}

	names := propertyNames(props)
	weights := ectx.Weights
	if len(weights) == 0 {
		weights = unitWeights(len(props))
	}
	if err := scalarize.Combine(s.history, names, ectx.Scaling, weights); err != nil {
		return t, fmt.Errorf("trial %d: %w", t.Index, err)
	}
	t.Aggregated, _ = s.history.Latest()
	t.Duration = time.Since(start)
	s.trials = append(s.trials, t)

	metrics.TrialDuration.WithLabelValues(kind.String(), string(strategy)).Observe(t.Duration.Seconds())
	logging.GetSearchLogger().WithFields(logrus.Fields{
		"trial":      t.Index,
		"explainer":  kind,
		"strategy":   strategy,
		"params":     cfg.Map(),
		"aggregated": t.Aggregated,
		"duration":   t.Duration,
	}).Info("Trial finished")
	return t, nil
}

func (s *Searcher) check(props []evaluation.Property) error {
	if len(props) == 0 {
		return fmt.Errorf("no properties to evaluate")
	}
	if q := s.evaluator.Context().Question; q != evaluation.QuestionWhy {
		return fmt.Errorf("%w: %q", ErrQuestionUnsupported, q)
	}
	return nil
}

// Best returns the trial with the highest aggregated score.
func Best(trials []Trial) (Trial, bool) {
	if len(trials) == 0 {
		return Trial{}, false
	}
	best := trials[0]
	for _, t := range trials[1:] {
		if t.Aggregated > best.Aggregated {
			best = t
		}
	}
	return best, true
}

func propertyNames(props []evaluation.Property) []string {
	out := make([]string, len(props))
	for i, p := range props {
		out[i] = p.String()
	}
	return out
}

func unitWeights(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

func containsProperty(props []evaluation.Property, p evaluation.Property) bool {
	for _, q := range props {
		if q == p {
			return true
		}
	}
	return false
}
