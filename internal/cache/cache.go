package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Measure is the artifact prefix of one cached measure.
type Measure string

const (
	MeasureRobustness Measure = "x_opts_"
	MeasureInfidelity Measure = "perturb_infs_"
)

// Staleness decides what a cache key is derived from.
type Staleness string

const (
	// StalenessNever keys artifacts by explainer and session only; a hit
	// is trusted whatever changed since it was written.
	StalenessNever Staleness = "never"
	// StalenessFingerprint adds a digest of the dataset to the key so a
	// changed dataset misses instead of replaying foreign points.
	StalenessFingerprint Staleness = "fingerprint"
)

var ErrUnknownBackend = errors.New("unknown cache backend")

func ParseStaleness(s string) (Staleness, error) {
	switch Staleness(strings.ToLower(strings.TrimSpace(s))) {
	case StalenessNever, "":
		return StalenessNever, nil
	case StalenessFingerprint:
		return StalenessFingerprint, nil
	}
	return "", fmt.Errorf("unknown cache staleness policy %q", s)
}

// Key identifies one artifact.
type Key struct {
	Measure     Measure
	Explainer   string
	Session     string
	Fingerprint string
}

func (k Key) String() string {
	s := string(k.Measure) + k.Explainer + k.Session
	if k.Fingerprint != "" {
		s += "_" + k.Fingerprint
	}
	return s
}

// Cache persists per-point intermediate artifacts. Get decodes a hit into
// dst and reports whether the key existed.
type Cache interface {
	Get(key Key, dst interface{}) (bool, error)
	Put(key Key, artifact interface{}) error
	Delete(key Key) error
	Close() error
}

// RobustnessArtifact holds one optimized adversarial point per evaluated
// data point, in dataset order.
type RobustnessArtifact struct {
	Points [][]float64 `json:"x_opts"`
}

// PerturbationRecord is the perturbation set of one data point with the
// model predictions at the original and the perturbed inputs.
type PerturbationRecord struct {
	X0     [][]float64 `json:"x0"`
	PredX  []float64   `json:"pred_x"`
	PredX0 []float64   `json:"pred_x0"`
}

type InfidelityArtifact struct {
	Records []PerturbationRecord `json:"perturb_infs"`
}

// Keyer builds keys under one staleness policy.
type Keyer struct {
	Policy      Staleness
	Fingerprint string
}

func (k Keyer) Key(measure Measure, explainer, session string) Key {
	key := Key{Measure: measure, Explainer: explainer, Session: session}
	if k.Policy == StalenessFingerprint {
		key.Fingerprint = k.Fingerprint
	}
	return key
}

type fingerprintPayload struct {
	FeatureNames []string    `json:"feature_names"`
	Rows         [][]float64 `json:"rows"`
	Labels       []float64   `json:"labels"`
}

// Fingerprint returns a short md5 digest of the dataset.
func Fingerprint(featureNames []string, rows [][]float64, labels []float64) (string, error) {
	b, err := json.Marshal(fingerprintPayload{FeatureNames: featureNames, Rows: rows, Labels: labels})
	if err != nil {
		return "", err
	}
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])[:12], nil
}
