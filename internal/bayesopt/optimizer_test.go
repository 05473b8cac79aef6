package bayesopt

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func quadratic(_ context.Context, x []float64) (float64, error) {
	return -(x[0]-0.3)*(x[0]-0.3) - (x[1]+1)*(x[1]+1), nil
}

func TestMaximize_FindsOptimumOfQuadratic(t *testing.T) {
	bounds := []Bound{{Lo: 0, Hi: 1}, {Lo: -2, Hi: 2}}
	res, err := Maximize(context.Background(), quadratic, bounds, Config{Calls: 30, InitialPoints: 6, Seed: 1})
	require.NoError(t, err)
	require.Len(t, res.Trace, 30)
	require.InDelta(t, 0.3, res.Best.X[0], 0.15)
	require.InDelta(t, -1.0, res.Best.X[1], 0.3)
	require.Greater(t, res.Best.Y, -0.1)

	for _, ev := range res.Trace {
		require.GreaterOrEqual(t, ev.X[0], 0.0)
		require.LessOrEqual(t, ev.X[0], 1.0)
		require.GreaterOrEqual(t, ev.X[1], -2.0)
		require.LessOrEqual(t, ev.X[1], 2.0)
	}
}

func TestMaximize_OnlyInitialPoints(t *testing.T) {
	calls := 0
	f := func(_ context.Context, x []float64) (float64, error) {
		calls++
		return x[0], nil
	}
	res, err := Maximize(context.Background(), f, []Bound{{Lo: 0, Hi: 1}}, Config{Calls: 7, InitialPoints: 7, Seed: 3})
	require.NoError(t, err)
	require.Len(t, res.Trace, 7)
	require.Equal(t, 7, calls)
}

func TestMinimize_ReportsOriginalValues(t *testing.T) {
	f := func(_ context.Context, x []float64) (float64, error) {
		return (x[0] - 2) * (x[0] - 2), nil
	}
	res, err := Minimize(context.Background(), f, []Bound{{Lo: 0, Hi: 4}}, Config{Calls: 20, InitialPoints: 5, Seed: 5})
	require.NoError(t, err)
	lowest := math.Inf(1)
	for _, ev := range res.Trace {
		require.GreaterOrEqual(t, ev.Y, 0.0)
		lowest = math.Min(lowest, ev.Y)
	}
	require.Equal(t, lowest, res.Best.Y)
	require.Less(t, res.Best.Y, 0.1)
}

func TestMaximize_PropagatesObjectiveError(t *testing.T) {
	boom := errors.New("boom")
	f := func(_ context.Context, _ []float64) (float64, error) { return 0, boom }
	res, err := Maximize(context.Background(), f, []Bound{{Lo: 0, Hi: 1}}, Config{Calls: 3})
	require.ErrorIs(t, err, boom)
	require.Empty(t, res.Trace)
}

func TestMaximize_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Maximize(ctx, quadratic, []Bound{{Lo: 0, Hi: 1}, {Lo: 0, Hi: 1}}, Config{Calls: 3})
	require.ErrorIs(t, err, context.Canceled)
}

func TestMaximize_DegenerateBound(t *testing.T) {
	f := func(_ context.Context, x []float64) (float64, error) { return -x[1] * x[1], nil }
	res, err := Maximize(context.Background(), f, []Bound{{Lo: 1, Hi: 1}, {Lo: -1, Hi: 1}}, Config{Calls: 12, InitialPoints: 4, Seed: 2})
	require.NoError(t, err)
	for _, ev := range res.Trace {
		require.Equal(t, 1.0, ev.X[0])
	}
}

func TestMaximize_RejectsInvertedBound(t *testing.T) {
	_, err := Maximize(context.Background(), quadratic, []Bound{{Lo: 1, Hi: 0}}, Config{Calls: 1})
	require.Error(t, err)
}
