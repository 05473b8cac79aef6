package search

import (
	"context"
	"errors"
	"testing"

	"xai-bench/internal/evaluation"
	"xai-bench/internal/explainer"
	"xai-bench/internal/hyperparams"
	"xai-bench/internal/model"
	"xai-bench/internal/scalarize"

	"github.com/stretchr/testify/require"
)

type gradientBackend struct{}

func (gradientBackend) Initialize(explainer.InitInput, hyperparams.Config) (explainer.Handle, error) {
	return struct{}{}, nil
}

func (gradientBackend) Explain(_ explainer.Handle, point []float64, _ hyperparams.Config) (explainer.Attribution, error) {
	out := make([]float64, len(point))
	for i := range out {
		out[i] = 1
	}
	return explainer.Attribution{Dense: out}, nil
}

func newSearcher(t *testing.T, question string, opts Options) *Searcher {
	t.Helper()
	rows := make([][]float64, 6)
	for i := range rows {
		rows[i] = []float64{float64(i), float64(i) / 2, 1}
	}
	ctx, err := evaluation.NewContext(evaluation.Context{
		Question:     question,
		Scaling:      scalarize.ScalingMinMax,
		Model:        model.Func(func(r []float64) float64 { return r[0] + r[1] + r[2] }),
		Rows:         rows,
		FeatureNames: []string{"a", "b", "c"},
	})
	require.NoError(t, err)

	reg := explainer.NewRegistry()
	reg.Register(hyperparams.KindLIME, gradientBackend{})
	reg.Register(hyperparams.KindSHAP, gradientBackend{})
	ev := evaluation.NewEvaluator(ctx, evaluation.Options{Registry: reg, Seed: 1})
	return New(ev, opts)
}

func TestInitPoints(t *testing.T) {
	require.Equal(t, 5, InitPoints(1))
	require.Equal(t, 25, InitPoints(2))
	require.Equal(t, 25, InitPoints(5))
}

func TestSearch_ZeroIterationsRunsInitPoints(t *testing.T) {
	s := newSearcher(t, evaluation.QuestionWhy, Options{InitPoints: 4, Candidates: 50, Seed: 3})
	props := []evaluation.Property{evaluation.PropertyConciseness}

	trials, err := s.Search(context.Background(), hyperparams.KindSHAP, props, 0)
	require.NoError(t, err)
	require.Len(t, trials, 4)
	require.Len(t, s.History().Aggregated, 4)
	for i, tr := range trials {
		require.Equal(t, i, tr.Index)
		require.Len(t, tr.Vector, 5)
		require.NoError(t, tr.Config.Validate(3))
	}
}

func TestSearch_IterationsExtendTrace(t *testing.T) {
	s := newSearcher(t, evaluation.QuestionWhy, Options{InitPoints: 3, Candidates: 50, MaxParallelism: 2, Seed: 3})
	props := []evaluation.Property{evaluation.PropertyConciseness, evaluation.PropertyFidelity}

	trials, err := s.Search(context.Background(), hyperparams.KindLIME, props, 2)
	require.NoError(t, err)
	require.Len(t, trials, 5)

	h := s.History()
	require.Len(t, h.Scores["conciseness"], 5)
	require.Len(t, h.Scores["fidelity"], 5)
	require.Len(t, h.Aggregated, 5)
	for _, tr := range trials {
		require.Equal(t, float64(tr.Config.NFeatures), tr.Scores[evaluation.PropertyConciseness])
		require.GreaterOrEqual(t, tr.Config.NumSamples, hyperparams.LIMENumSamples.Lo)
	}

	best, ok := Best(trials)
	require.True(t, ok)
	for _, tr := range trials {
		require.LessOrEqual(t, tr.Aggregated, best.Aggregated)
	}
}

func TestRunStrategy_Default(t *testing.T) {
	s := newSearcher(t, evaluation.QuestionWhy, Options{})
	trials, err := s.RunStrategy(context.Background(), hyperparams.StrategyDefault, hyperparams.KindLIME,
		[]evaluation.Property{evaluation.PropertyConciseness}, 10)
	require.NoError(t, err)
	require.Len(t, trials, 1)
	require.Equal(t, 5000, trials[0].Config.NumSamples)
	require.Equal(t, 3, trials[0].Config.NFeatures)
	require.Equal(t, 0.0, trials[0].Aggregated)
}

func TestRunStrategy_RandomSharesHistory(t *testing.T) {
	s := newSearcher(t, evaluation.QuestionWhy, Options{Seed: 9})
	props := []evaluation.Property{evaluation.PropertyConciseness}

	_, err := s.RunStrategy(context.Background(), hyperparams.StrategyDefault, hyperparams.KindSHAP, props, 0)
	require.NoError(t, err)
	trials, err := s.RunStrategy(context.Background(), hyperparams.StrategyRandom, hyperparams.KindSHAP, props, 6)
	require.NoError(t, err)
	require.Len(t, trials, 6)
	require.Len(t, s.Trials(), 7)
	require.Len(t, s.History().Aggregated, 7)

	for _, tr := range trials {
		require.GreaterOrEqual(t, tr.Config.NFeatures, 1)
		require.Less(t, tr.Config.NFeatures, 3)
	}
}

func TestRunStrategy_Errors(t *testing.T) {
	s := newSearcher(t, "How", Options{})
	_, err := s.RunStrategy(context.Background(), hyperparams.StrategyBayes, hyperparams.KindLIME,
		[]evaluation.Property{evaluation.PropertyConciseness}, 1)
	require.True(t, errors.Is(err, ErrQuestionUnsupported))

	s = newSearcher(t, evaluation.QuestionWhy, Options{})
	_, err = s.RunStrategy(context.Background(), hyperparams.Strategy("grid"), hyperparams.KindLIME,
		[]evaluation.Property{evaluation.PropertyConciseness}, 1)
	require.True(t, errors.Is(err, hyperparams.ErrUnknownStrategy))

	_, err = s.Search(context.Background(), hyperparams.Kind("ANCHOR"),
		[]evaluation.Property{evaluation.PropertyConciseness}, 1)
	require.Error(t, err)
}

func TestSearch_RespectsCancellation(t *testing.T) {
	s := newSearcher(t, evaluation.QuestionWhy, Options{InitPoints: 5})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	trials, err := s.Search(ctx, hyperparams.KindLIME, []evaluation.Property{evaluation.PropertyConciseness}, 3)
	require.True(t, errors.Is(err, context.Canceled))
	require.Empty(t, trials)
}
