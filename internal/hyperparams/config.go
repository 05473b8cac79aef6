package hyperparams

import (
	"fmt"
	"strconv"
)

type Summarize string

const (
	SummarizeSampling Summarize = "Sampling"
	SummarizeKernel   Summarize = "KernelExplainer"
)

// L1Mode is the regularization mode used by the SHAP kernel estimator.
type L1Mode string

const (
	L1Auto        L1Mode = "auto"
	L1AIC         L1Mode = "aic"
	L1BIC         L1Mode = "bic"
	L1NumFeatures L1Mode = "num_features(int)"
	L1Float       L1Mode = "float"
)

// L1Reg is a regularization mode plus the argument its branch needs.
// NumFeatures is only meaningful for L1NumFeatures, Alpha only for L1Float.
type L1Reg struct {
	Mode        L1Mode  `json:"mode"`
	NumFeatures int     `json:"num_features,omitempty"`
	Alpha       float64 `json:"alpha,omitempty"`
}

func (l L1Reg) String() string {
	switch l.Mode {
	case L1NumFeatures:
		return "num_features(" + strconv.Itoa(l.NumFeatures) + ")"
	case L1Float:
		return strconv.FormatFloat(l.Alpha, 'g', -1, 64)
	}
	return string(l.Mode)
}

// Config is one hyperparameter setting of an explainer. Fields that do not
// belong to Kind's schema stay at their zero value.
type Config struct {
	Kind Kind `json:"kind"`

	// LIME
	NumSamples int `json:"num_samples,omitempty"`

	// SHAP
	Summarize Summarize `json:"summarize,omitempty"`
	NSamples  int       `json:"nsamples,omitempty"`
	L1Reg     L1Reg     `json:"l1_reg,omitempty"`

	// NFeatures is the number of attribution components kept.
	NFeatures int `json:"nfeatures"`
}

// InitKey identifies the initialization-time part of the configuration.
// An explainer handle must be re-created whenever it changes.
func (c Config) InitKey() string {
	if c.Kind == KindSHAP {
		return string(c.Kind) + "/" + string(c.Summarize)
	}
	return string(c.Kind)
}

func (c Config) Map() map[string]interface{} {
	m := map[string]interface{}{"nfeatures": c.NFeatures}
	switch c.Kind {
	case KindLIME:
		m["num_samples"] = c.NumSamples
	case KindSHAP:
		m["summarize"] = string(c.Summarize)
		m["nsamples"] = c.NSamples
		m["l1_reg"] = c.L1Reg.String()
	}
	return m
}

func (c Config) Validate(dim int) error {
	if c.NFeatures < 1 || c.NFeatures > dim {
		return fmt.Errorf("nfeatures %d outside [1, %d]", c.NFeatures, dim)
	}
	switch c.Kind {
	case KindLIME:
		if c.NumSamples <= 0 {
			return fmt.Errorf("num_samples must be greater than 0")
		}
	case KindSHAP:
		if c.Summarize != SummarizeSampling && c.Summarize != SummarizeKernel {
			return fmt.Errorf("unknown summarize strategy %q", c.Summarize)
		}
		if c.NSamples <= 0 {
			return fmt.Errorf("nsamples must be greater than 0")
		}
		if c.L1Reg.Mode == L1NumFeatures && (c.L1Reg.NumFeatures < 1 || c.L1Reg.NumFeatures > dim) {
			return fmt.Errorf("l1_reg num_features %d outside [1, %d]", c.L1Reg.NumFeatures, dim)
		}
	}
	return nil
}
