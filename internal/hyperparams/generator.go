package hyperparams

import (
	"fmt"
	"math"
	"math/rand"
)

// IntRange is a half-open integer domain [Lo, Hi), matching how random
// draws are made. The continuous encoding uses the closed box [Lo, Hi].
type IntRange struct {
	Lo int
	Hi int
}

var (
	LIMENumSamples = IntRange{Lo: 10, Hi: 10000}
	SHAPNSamples   = IntRange{Lo: 10, Hi: 2048}

	SummarizeValues = []Summarize{SummarizeSampling, SummarizeKernel}
	// L1RegValues is ordered: the continuous encoding only spans the first
	// four entries, L1Float is reachable through random draws alone.
	L1RegValues = []L1Mode{L1Auto, L1AIC, L1BIC, L1NumFeatures, L1Float}
)

const encodedL1Modes = 4

const (
	defaultLIMENumSamples = 5000
	defaultSHAPNSamples   = 2048
)

// Default returns the fixed literal configuration for kind.
func Default(kind Kind, dim int) (Config, error) {
	cfg := Config{Kind: kind, NFeatures: dim}
	switch kind {
	case KindLIME:
		cfg.NumSamples = defaultLIMENumSamples
	case KindSHAP:
		cfg.Summarize = SummarizeKernel
		cfg.NSamples = defaultSHAPNSamples
		cfg.L1Reg = L1Reg{Mode: L1Auto}
	default:
		return Config{}, fmt.Errorf("no default hyperparameters for explainer kind %q", kind)
	}
	return cfg, nil
}

// Random draws every parameter of kind uniformly from its domain. nfeatures
// is only varied when concise is set, i.e. when conciseness is among the
// evaluated properties.
func Random(kind Kind, dim int, concise bool, rng *rand.Rand) (Config, error) {
	cfg := Config{Kind: kind}
	switch kind {
	case KindLIME:
		cfg.NumSamples = randint(rng, LIMENumSamples.Lo, LIMENumSamples.Hi)
	case KindSHAP:
		cfg.Summarize = SummarizeValues[rng.Intn(len(SummarizeValues))]
		cfg.NSamples = randint(rng, SHAPNSamples.Lo, SHAPNSamples.Hi)
		cfg.L1Reg = L1Reg{Mode: L1RegValues[rng.Intn(len(L1RegValues))]}
		switch cfg.L1Reg.Mode {
		case L1Float:
			cfg.L1Reg.Alpha = rng.Float64()
		case L1NumFeatures:
			cfg.L1Reg.NumFeatures = randint(rng, 1, dim)
		}
	default:
		return Config{}, fmt.Errorf("no hyperparameter domain for explainer kind %q", kind)
	}

	if concise {
		cfg.NFeatures = randint(rng, 1, dim)
	} else {
		cfg.NFeatures = dim
	}
	return cfg, nil
}

// randint mirrors numpy's randint: uniform over [lo, hi), and lo when the
// range is empty.
func randint(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo)
}

// Dimension is one coordinate of the continuous search box.
type Dimension struct {
	Name string
	Lo   float64
	Hi   float64
}

// Space declares the continuous box the outer optimizer searches for kind.
// Categoricals are encoded as small integer ranges.
func Space(kind Kind, dim int) ([]Dimension, error) {
	d := float64(dim)
	switch kind {
	case KindLIME:
		return []Dimension{
			{Name: "num_samples", Lo: float64(LIMENumSamples.Lo), Hi: float64(LIMENumSamples.Hi)},
			{Name: "nfeatures", Lo: 1, Hi: d},
		}, nil
	case KindSHAP:
		return []Dimension{
			{Name: "summarize", Lo: 0, Hi: float64(len(SummarizeValues) - 1)},
			{Name: "nsamples", Lo: float64(SHAPNSamples.Lo), Hi: float64(SHAPNSamples.Hi)},
			{Name: "l1_reg", Lo: 0, Hi: encodedL1Modes - 1},
			{Name: "num_features", Lo: 1, Hi: d},
			{Name: "nfeatures", Lo: 1, Hi: d},
		}, nil
	}
	return nil, fmt.Errorf("no hyperparameter space for explainer kind %q", kind)
}

// Decode maps a vector from Space(kind, dim) to a typed configuration.
// Sample counts truncate, indices and feature counts round.
func Decode(kind Kind, dim int, v []float64) (Config, error) {
	space, err := Space(kind, dim)
	if err != nil {
		return Config{}, err
	}
	if len(v) != len(space) {
		return Config{}, fmt.Errorf("vector has %d coordinates, %s space has %d", len(v), kind, len(space))
	}

	cfg := Config{Kind: kind}
	switch kind {
	case KindLIME:
		cfg.NumSamples = int(v[0])
		cfg.NFeatures = clampInt(roundInt(v[1]), 1, dim)
	case KindSHAP:
		cfg.Summarize = SummarizeValues[clampInt(roundInt(v[0]), 0, len(SummarizeValues)-1)]
		cfg.NSamples = int(v[1])
		cfg.L1Reg = L1Reg{Mode: L1RegValues[clampInt(roundInt(v[2]), 0, encodedL1Modes-1)]}
		if cfg.L1Reg.Mode == L1NumFeatures {
			cfg.L1Reg.NumFeatures = clampInt(roundInt(v[3]), 1, dim)
		}
		cfg.NFeatures = clampInt(roundInt(v[4]), 1, dim)
	}
	return cfg, nil
}

// roundInt rounds half to even like numpy.round.
func roundInt(x float64) int {
	return int(math.RoundToEven(x))
}

func clampInt(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
