package explainer

import (
	"errors"
	"fmt"
	"sort"

	"xai-bench/internal/hyperparams"
	"xai-bench/internal/model"
)

var ErrUnknownKind = errors.New("unknown explainer kind")

// Handle is the opaque state a backend returns from Initialize.
type Handle interface{}

// InitInput carries everything a backend may need at initialization.
type InitInput struct {
	Rows         [][]float64
	Labels       []float64
	FeatureNames []string
	Model        model.Model
	Verbose      bool
	Task         string
	Seed         int64
}

// Attribution is a raw backend explanation: either weights keyed by feature
// name, or a dense vector in the backend's own feature order.
type Attribution struct {
	Named []NamedWeight
	Dense []float64
}

type NamedWeight struct {
	Feature string
	Weight  float64
}

// Backend is one explainer family.
type Backend interface {
	Initialize(in InitInput, cfg hyperparams.Config) (Handle, error)
	Explain(h Handle, point []float64, cfg hyperparams.Config) (Attribution, error)
}

// Registry is the dispatch table from explainer kind to backend.
type Registry struct {
	backends map[hyperparams.Kind]Backend
}

func NewRegistry() *Registry {
	return &Registry{backends: make(map[hyperparams.Kind]Backend)}
}

// DefaultRegistry knows the two reference kinds.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(hyperparams.KindLIME, limeBackend{})
	r.Register(hyperparams.KindSHAP, shapBackend{})
	return r
}

func (r *Registry) Register(kind hyperparams.Kind, b Backend) {
	r.backends[kind] = b
}

func (r *Registry) Lookup(kind hyperparams.Kind) (Backend, error) {
	b, ok := r.backends[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return b, nil
}

func (r *Registry) Kinds() []hyperparams.Kind {
	out := make([]hyperparams.Kind, 0, len(r.backends))
	for k := range r.backends {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
