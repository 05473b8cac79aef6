package shap

import (
	"testing"

	"xai-bench/internal/hyperparams"
	"xai-bench/internal/model"

	"github.com/stretchr/testify/require"
)

func linear(row []float64) float64 {
	return 2*row[0] + row[1] - 0.5*row[2]
}

func TestKernel_RecoversLinearAttributions(t *testing.T) {
	bg := [][]float64{{0, 0, 0}, {1, 2, 3}, {2, 0, 1}, {-1, 1, 0}}
	e, err := New(bg, model.Func(linear), hyperparams.SummarizeKernel, 3)
	require.NoError(t, err)

	x := []float64{1, 1, 1}
	phi, err := e.Values(x, 200, hyperparams.L1Reg{Mode: hyperparams.L1AIC})
	require.NoError(t, err)

	mean := []float64{0.5, 0.75, 1}
	w := []float64{2, 1, -0.5}
	for j := range phi {
		require.InDelta(t, w[j]*(x[j]-mean[j]), phi[j], 1e-4)
	}
}

func TestKernel_EfficiencyHolds(t *testing.T) {
	bg := [][]float64{{0, 0, 0}, {1, 1, 1}}
	e, err := New(bg, model.Func(linear), hyperparams.SummarizeKernel, 1)
	require.NoError(t, err)

	x := []float64{3, -1, 2}
	phi, err := e.Values(x, 50, hyperparams.L1Reg{Mode: hyperparams.L1NumFeatures, NumFeatures: 1})
	require.NoError(t, err)

	sum := 0.0
	nonzero := 0
	for _, v := range phi {
		sum += v
		if v != 0 {
			nonzero++
		}
	}
	require.InDelta(t, linear(x)-e.BaseValue(), sum, 1e-9)
	require.Equal(t, 1, nonzero)
}

func TestSampling_SingleBackgroundRowIsExact(t *testing.T) {
	bg := [][]float64{{1, 0, 2}}
	e, err := New(bg, model.Func(linear), hyperparams.SummarizeSampling, 9)
	require.NoError(t, err)

	x := []float64{2, 2, 2}
	phi, err := e.Values(x, 40, hyperparams.L1Reg{Mode: hyperparams.L1Auto})
	require.NoError(t, err)
	require.InDelta(t, 2.0, phi[0], 1e-12)
	require.InDelta(t, 2.0, phi[1], 1e-12)
	require.InDelta(t, 0.0, phi[2], 1e-12)
}

func TestSoftThreshold(t *testing.T) {
	out := softThreshold([]float64{4, -1, 2}, 0.25)
	require.Equal(t, []float64{3, 0, 1}, out)
}
