package evaluation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"xai-bench/internal/cache"
	"xai-bench/internal/explainer"
	"xai-bench/internal/hyperparams"
	"xai-bench/internal/logging"
	"xai-bench/internal/metrics"

	"github.com/sirupsen/logrus"
)

// Property is one measurable quality of an explanation.
type Property string

const (
	PropertyRobustness  Property = "robustness"
	PropertyFidelity    Property = "fidelity"
	PropertyConciseness Property = "conciseness"
)

var (
	ErrUnknownProperty  = errors.New("unknown property")
	ErrArtifactMismatch = errors.New("cached artifact does not fit the dataset")
	ErrInvalidConfig    = errors.New("invalid explainer configuration")
)

func ParseProperty(s string) (Property, error) {
	switch p := Property(strings.ToLower(strings.TrimSpace(s))); p {
	case PropertyRobustness, PropertyFidelity, PropertyConciseness:
		return p, nil
	case "infidelity":
		return PropertyFidelity, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProperty, s)
}

func ParseProperties(names []string) ([]Property, error) {
	out := make([]Property, 0, len(names))
	for _, n := range names {
		p, err := ParseProperty(n)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (p Property) String() string {
	return string(p)
}

// Options tune an Evaluator. Zero values select the defaults.
type Options struct {
	Registry *explainer.Registry
	Cache    cache.Cache
	Keyer    cache.Keyer
	// Session separates cache artifacts of independent runs. Defaults to "0".
	Session string
	// DisableEarlyStop scores every data point on cache misses.
	DisableEarlyStop bool
	// InnerParallelism bounds the goroutines of the adversarial search's
	// acquisition scoring.
	InnerParallelism int
	InnerCandidates  int
	Seed             int64
}

// Evaluator scores configurations against one Context. It keeps one
// explainer adapter per kind and is not safe for concurrent use.
type Evaluator struct {
	ctx      *Context
	opts     Options
	adapters map[hyperparams.Kind]*explainer.Adapter
	rng      *rand.Rand
	calls    int64
}

func NewEvaluator(c *Context, opts Options) *Evaluator {
	if opts.Registry == nil {
		opts.Registry = explainer.DefaultRegistry()
	}
	if opts.Cache == nil {
		opts.Cache = cache.NopCache{}
	}
	if opts.Session == "" {
		opts.Session = "0"
	}
	return &Evaluator{
		ctx:      c,
		opts:     opts,
		adapters: make(map[hyperparams.Kind]*explainer.Adapter),
		rng:      rand.New(rand.NewSource(opts.Seed)),
	}
}

func (e *Evaluator) Context() *Context {
	return e.ctx
}

func (e *Evaluator) Session() string {
	return e.opts.Session
}

// Evaluate scores cfg on one property. The boolean is false when the
// context question has no scores, which is not an error.
func (e *Evaluator) Evaluate(ctx context.Context, kind hyperparams.Kind, cfg hyperparams.Config, prop Property) (float64, bool, error) {
	switch prop {
	case PropertyRobustness, PropertyFidelity, PropertyConciseness:
	default:
		return 0, false, fmt.Errorf("%w: %q", ErrUnknownProperty, prop)
	}
	if cfg.Kind == "" {
		cfg.Kind = kind
	}
	if err := cfg.Validate(e.ctx.Dim()); err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if e.ctx.Question != QuestionWhy {
		return 0, false, nil
	}

	if prop == PropertyConciseness {
		metrics.EvaluationsTotal.WithLabelValues(kind.String(), prop.String()).Inc()
		return float64(cfg.NFeatures), true, nil
	}

	a, err := e.adapter(kind)
	if err != nil {
		return 0, false, err
	}
	if err := a.Initialize(cfg); err != nil {
		return 0, false, err
	}

	var score float64
	switch prop {
	case PropertyRobustness:
		score, err = e.robustness(ctx, a, cfg)
	case PropertyFidelity:
		score, err = e.infidelity(a, cfg)
	}
	if err != nil {
		return 0, false, fmt.Errorf("%s of %s: %w", prop, kind, err)
	}

	metrics.EvaluationsTotal.WithLabelValues(kind.String(), prop.String()).Inc()
	logging.GetLogger().WithFields(logrus.Fields{
		"explainer": kind,
		"property":  prop,
		"score":     score,
	}).Debug("Property evaluated")
	return score, true, nil
}

// Initializations reports how often the adapter of kind created a handle.
func (e *Evaluator) Initializations(kind hyperparams.Kind) int {
	if a, ok := e.adapters[kind]; ok {
		return a.Initializations()
	}
	return 0
}

func (e *Evaluator) adapter(kind hyperparams.Kind) (*explainer.Adapter, error) {
	if a, ok := e.adapters[kind]; ok {
		return a, nil
	}
	a, err := explainer.NewAdapter(e.opts.Registry, kind, explainer.InitInput{
		Rows:         e.ctx.Rows,
		Labels:       e.ctx.Labels,
		FeatureNames: e.ctx.FeatureNames,
		Model:        e.ctx.Model,
		Verbose:      e.ctx.Verbose,
		Task:         e.ctx.Task,
		Seed:         e.opts.Seed,
	})
	if err != nil {
		return nil, err
	}
	e.adapters[kind] = a
	return a, nil
}

func (e *Evaluator) key(measure cache.Measure, kind hyperparams.Kind) cache.Key {
	return e.opts.Keyer.Key(measure, kind.String(), e.opts.Session)
}

func (e *Evaluator) lookup(key cache.Key, dst interface{}) (bool, error) {
	hit, err := e.opts.Cache.Get(key, dst)
	if err != nil {
		return false, fmt.Errorf("read cache %s: %w", key, err)
	}
	metrics.CacheLookupsTotal.WithLabelValues(string(key.Measure), metrics.LookupResult(hit)).Inc()
	return hit, nil
}

func (e *Evaluator) record(measure cache.Measure, s Sample) {
	metrics.PointsProcessedTotal.WithLabelValues(string(measure)).Add(float64(s.Count))
	if s.Stopped {
		metrics.EarlyStopsTotal.WithLabelValues(string(measure)).Inc()
	}
	logging.GetLogger().WithFields(logrus.Fields{
		"measure": measure,
		"points":  s.Count,
		"stopped": s.Stopped,
		"mean":    s.Mean,
	}).Debug("Sampling loop finished")
}
