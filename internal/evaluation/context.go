// Package evaluation scores explainer configurations on explanation
// properties: robustness, fidelity and conciseness.
package evaluation

import (
	"errors"
	"fmt"

	"xai-bench/internal/model"
	"xai-bench/internal/scalarize"
)

// QuestionWhy is the only evaluation question that produces scores.
const QuestionWhy = "Why"

var ErrEmptyDataset = errors.New("evaluation needs at least one data point")

// Context is everything one run evaluates against. It is not modified after
// NewContext returns.
type Context struct {
	Question     string
	Task         string
	Scaling      scalarize.Scaling
	Weights      []float64
	Verbose      bool
	Model        model.Model
	Rows         [][]float64
	Labels       []float64
	FeatureNames []string
}

// NewContext checks that every row has one value per feature name.
func NewContext(c Context) (*Context, error) {
	if len(c.Rows) == 0 {
		return nil, ErrEmptyDataset
	}
	if c.Model == nil {
		return nil, fmt.Errorf("evaluation context has no model")
	}
	dim := len(c.FeatureNames)
	if dim == 0 {
		return nil, fmt.Errorf("evaluation context has no feature names")
	}
	for i, row := range c.Rows {
		if len(row) != dim {
			return nil, fmt.Errorf("row %d has %d values for %d feature names", i, len(row), dim)
		}
	}
	if c.Labels != nil && len(c.Labels) != len(c.Rows) {
		return nil, fmt.Errorf("%d labels for %d rows", len(c.Labels), len(c.Rows))
	}
	if c.Scaling == "" {
		c.Scaling = scalarize.ScalingMinMax
	}
	out := c
	return &out, nil
}

func (c *Context) Dim() int {
	return len(c.FeatureNames)
}

func (c *Context) Len() int {
	return len(c.Rows)
}
