package hyperparams

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefault_PerKind(t *testing.T) {
	lime, err := Default(KindLIME, 4)
	require.NoError(t, err)
	require.Equal(t, 5000, lime.NumSamples)
	require.Equal(t, 4, lime.NFeatures)

	shap, err := Default(KindSHAP, 4)
	require.NoError(t, err)
	require.Equal(t, SummarizeKernel, shap.Summarize)
	require.Equal(t, 2048, shap.NSamples)
	require.Equal(t, L1Auto, shap.L1Reg.Mode)
	require.Equal(t, 4, shap.NFeatures)

	_, err = Default(Kind("ANCHOR"), 4)
	require.Error(t, err)
}

func TestRandom_StaysInDomain(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	dim := 5
	for i := 0; i < 500; i++ {
		cfg, err := Random(KindSHAP, dim, true, rng)
		require.NoError(t, err)
		require.NoError(t, cfg.Validate(dim))
		require.GreaterOrEqual(t, cfg.NSamples, SHAPNSamples.Lo)
		require.Less(t, cfg.NSamples, SHAPNSamples.Hi)
		require.GreaterOrEqual(t, cfg.NFeatures, 1)
		require.Less(t, cfg.NFeatures, dim)

		switch cfg.L1Reg.Mode {
		case L1NumFeatures:
			require.GreaterOrEqual(t, cfg.L1Reg.NumFeatures, 1)
		case L1Float:
			require.GreaterOrEqual(t, cfg.L1Reg.Alpha, 0.0)
			require.Less(t, cfg.L1Reg.Alpha, 1.0)
		default:
			require.Zero(t, cfg.L1Reg.NumFeatures)
			require.Zero(t, cfg.L1Reg.Alpha)
		}
	}
}

func TestRandom_FullWidthWithoutConciseness(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	cfg, err := Random(KindLIME, 6, false, rng)
	require.NoError(t, err)
	require.Equal(t, 6, cfg.NFeatures)
}

func TestDecode_SHAPBranches(t *testing.T) {
	cfg, err := Decode(KindSHAP, 6, []float64{0.2, 100.9, 3, 2.6, 4.5})
	require.NoError(t, err)
	require.Equal(t, SummarizeSampling, cfg.Summarize)
	require.Equal(t, 100, cfg.NSamples)
	require.Equal(t, L1NumFeatures, cfg.L1Reg.Mode)
	require.Equal(t, 3, cfg.L1Reg.NumFeatures)
	require.Equal(t, 4, cfg.NFeatures)
	require.Equal(t, "num_features(3)", cfg.L1Reg.String())

	cfg, err = Decode(KindSHAP, 6, []float64{0.7, 100, 1.2, 5, 6})
	require.NoError(t, err)
	require.Equal(t, SummarizeKernel, cfg.Summarize)
	require.Equal(t, L1AIC, cfg.L1Reg.Mode)
	require.Zero(t, cfg.L1Reg.NumFeatures)
	require.Equal(t, 6, cfg.NFeatures)
}

func TestDecode_ClampsAndChecksLength(t *testing.T) {
	cfg, err := Decode(KindLIME, 3, []float64{10, 9})
	require.NoError(t, err)
	require.Equal(t, 3, cfg.NFeatures)

	_, err = Decode(KindLIME, 3, []float64{10})
	require.Error(t, err)
}

func TestSpace_CoversEveryParameter(t *testing.T) {
	space, err := Space(KindSHAP, 8)
	require.NoError(t, err)
	require.Len(t, space, 5)
	require.Equal(t, "nfeatures", space[4].Name)
	require.Equal(t, 8.0, space[4].Hi)

	space, err = Space(KindLIME, 8)
	require.NoError(t, err)
	require.Len(t, space, 2)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("Bayes")
	require.NoError(t, err)
	require.Equal(t, StrategyBayes, s)

	_, err = ParseStrategy("grid")
	require.True(t, errors.Is(err, ErrUnknownStrategy))
}

func TestConfig_InitKey(t *testing.T) {
	a := Config{Kind: KindSHAP, Summarize: SummarizeKernel, NSamples: 10}
	b := Config{Kind: KindSHAP, Summarize: SummarizeKernel, NSamples: 99}
	c := Config{Kind: KindSHAP, Summarize: SummarizeSampling}
	require.Equal(t, a.InitKey(), b.InitKey())
	require.NotEqual(t, a.InitKey(), c.InitKey())
}
