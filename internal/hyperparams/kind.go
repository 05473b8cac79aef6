package hyperparams

import (
	"errors"
	"fmt"
	"strings"
)

// Kind names an explainer family. The hyperparameter schema of a
// configuration depends on it.
type Kind string

const (
	KindLIME Kind = "LIME"
	KindSHAP Kind = "SHAP"
)

var ErrUnknownStrategy = errors.New("unknown hyperparameter strategy")

// IsReference reports whether k is one of the two built-in explainer
// families. External kinds get a larger inner optimization budget.
func (k Kind) IsReference() bool {
	return k == KindLIME || k == KindSHAP
}

func (k Kind) String() string {
	return string(k)
}

// Strategy selects how a configuration is produced for a trial.
type Strategy string

const (
	StrategyDefault Strategy = "default"
	StrategyRandom  Strategy = "random"
	StrategyBayes   Strategy = "bayes"
)

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyDefault, "":
		return StrategyDefault, nil
	case StrategyRandom:
		return StrategyRandom, nil
	case StrategyBayes, "gp":
		return StrategyBayes, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}
