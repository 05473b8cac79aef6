package explainer

import (
	"fmt"

	"xai-bench/internal/hyperparams"
	"xai-bench/internal/logging"

	"github.com/sirupsen/logrus"
)

// Adapter gives the evaluation measures a uniform view of one explainer
// kind: aligned, truncated attribution vectors.
type Adapter struct {
	kind    hyperparams.Kind
	backend Backend
	input   InitInput
	index   map[string]int

	handle  Handle
	initKey string
	inits   int
}

func NewAdapter(reg *Registry, kind hyperparams.Kind, in InitInput) (*Adapter, error) {
	b, err := reg.Lookup(kind)
	if err != nil {
		return nil, err
	}
	index := make(map[string]int, len(in.FeatureNames))
	for i, name := range in.FeatureNames {
		index[name] = i
	}
	return &Adapter{kind: kind, backend: b, input: in, index: index}, nil
}

func (a *Adapter) Kind() hyperparams.Kind {
	return a.kind
}

// Initializations counts how often a handle was created.
func (a *Adapter) Initializations() int {
	return a.inits
}

// Initialize makes sure a handle exists for cfg. The handle is re-created
// only when the initialization-time part of cfg changed.
func (a *Adapter) Initialize(cfg hyperparams.Config) error {
	key := cfg.InitKey()
	if a.handle != nil && key == a.initKey {
		return nil
	}
	h, err := a.backend.Initialize(a.input, cfg)
	if err != nil {
		return fmt.Errorf("initialize %s explainer: %w", a.kind, err)
	}
	a.handle = h
	a.initKey = key
	a.inits++

	logging.GetLogger().WithFields(logrus.Fields{
		"explainer": a.kind,
		"init_key":  key,
	}).Debug("Explainer initialized")
	return nil
}

// Explain returns the attribution of point in canonical feature order,
// truncated to its first cfg.NFeatures components.
func (a *Adapter) Explain(point []float64, cfg hyperparams.Config) ([]float64, error) {
	if err := a.Initialize(cfg); err != nil {
		return nil, err
	}
	raw, err := a.backend.Explain(a.handle, point, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s explanation: %w", a.kind, err)
	}
	aligned, err := a.align(raw)
	if err != nil {
		return nil, err
	}
	return Truncate(aligned, cfg.NFeatures), nil
}

func (a *Adapter) align(raw Attribution) ([]float64, error) {
	dim := len(a.input.FeatureNames)
	if raw.Dense != nil {
		if len(raw.Dense) != dim {
			return nil, fmt.Errorf("%s returned %d weights for %d features", a.kind, len(raw.Dense), dim)
		}
		return append([]float64(nil), raw.Dense...), nil
	}

	out := make([]float64, dim)
	for _, w := range raw.Named {
		i, ok := a.index[w.Feature]
		if !ok {
			return nil, fmt.Errorf("%s returned unknown feature %q", a.kind, w.Feature)
		}
		out[i] = w.Weight
	}
	return out, nil
}

// Truncate keeps the first n components of v.
func Truncate(v []float64, n int) []float64 {
	if n < 0 {
		n = 0
	}
	if n > len(v) {
		n = len(v)
	}
	return v[:n]
}
