package explainer

import (
	"fmt"

	"xai-bench/internal/explainer/lime"
	"xai-bench/internal/explainer/shap"
	"xai-bench/internal/hyperparams"
)

type limeBackend struct{}

func (limeBackend) Initialize(in InitInput, _ hyperparams.Config) (Handle, error) {
	return lime.New(in.Rows, in.FeatureNames, in.Model, in.Seed)
}

func (limeBackend) Explain(h Handle, point []float64, cfg hyperparams.Config) (Attribution, error) {
	e, ok := h.(*lime.Explainer)
	if !ok {
		return Attribution{}, fmt.Errorf("lime: unexpected handle %T", h)
	}
	weights, err := e.Explain(point, cfg.NumSamples)
	if err != nil {
		return Attribution{}, err
	}
	named := make([]NamedWeight, len(weights))
	for i, w := range weights {
		named[i] = NamedWeight{Feature: w.Feature, Weight: w.Value}
	}
	return Attribution{Named: named}, nil
}

type shapBackend struct{}

func (shapBackend) Initialize(in InitInput, cfg hyperparams.Config) (Handle, error) {
	return shap.New(in.Rows, in.Model, cfg.Summarize, in.Seed)
}

func (shapBackend) Explain(h Handle, point []float64, cfg hyperparams.Config) (Attribution, error) {
	e, ok := h.(*shap.Explainer)
	if !ok {
		return Attribution{}, fmt.Errorf("shap: unexpected handle %T", h)
	}
	values, err := e.Values(point, cfg.NSamples, cfg.L1Reg)
	if err != nil {
		return Attribution{}, err
	}
	return Attribution{Dense: values}, nil
}
