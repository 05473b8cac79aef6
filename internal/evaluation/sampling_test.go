package evaluation

import (
	"errors"
	"testing"
)

func TestAdaptiveMean_ConstantScoresStopAtIndexEleven(t *testing.T) {
	var seen []int
	s, err := AdaptiveMean(20, true, func(i int) (float64, error) {
		seen = append(seen, i)
		return 2, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Stopped {
		t.Fatalf("expected early stop")
	}
	if s.Count != 12 || seen[len(seen)-1] != 11 {
		t.Fatalf("expected to stop after index 11, processed %d (last %d)", s.Count, seen[len(seen)-1])
	}
	if s.Mean != 2 {
		t.Fatalf("expected mean 2, got %v", s.Mean)
	}
}

func TestAdaptiveMean_NoEarlyStopProcessesAll(t *testing.T) {
	s, err := AdaptiveMean(20, false, func(int) (float64, error) { return 2, nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Stopped || s.Count != 20 {
		t.Fatalf("expected all 20 points without stop, got %d stopped=%v", s.Count, s.Stopped)
	}
}

func TestAdaptiveMean_ShortLoopNeverStops(t *testing.T) {
	s, err := AdaptiveMean(11, true, func(int) (float64, error) { return 1, nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Stopped || s.Count != 11 {
		t.Fatalf("expected 11 points without stop, got %d stopped=%v", s.Count, s.Stopped)
	}
}

func TestAdaptiveMean_UnstableScoresResetStreak(t *testing.T) {
	// Growing scores keep moving the running mean by more than a tenth.
	s, err := AdaptiveMean(15, true, func(i int) (float64, error) {
		v := 1.0
		for k := 0; k < i; k++ {
			v *= 2
		}
		return v, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Stopped || s.Count != 15 {
		t.Fatalf("expected no early stop on diverging scores, got %d stopped=%v", s.Count, s.Stopped)
	}
}

func TestAdaptiveMean_Errors(t *testing.T) {
	boom := errors.New("boom")
	_, err := AdaptiveMean(5, true, func(i int) (float64, error) {
		if i == 3 {
			return 0, boom
		}
		return 1, nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected step error, got %v", err)
	}

	_, err = AdaptiveMean(0, true, func(int) (float64, error) { return 1, nil })
	if !errors.Is(err, ErrNoSamples) {
		t.Fatalf("expected ErrNoSamples, got %v", err)
	}
}

func TestAdaptiveMean_ConstantMeanIsExact(t *testing.T) {
	for _, c := range []float64{0.1, 0.3, 0.7} {
		s, err := AdaptiveMean(20, true, func(int) (float64, error) { return c, nil })
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.Count != 12 {
			t.Fatalf("c=%v: expected 12 points, got %d", c, s.Count)
		}
		if s.Mean != c {
			t.Fatalf("c=%v: expected exact mean, got %v", c, s.Mean)
		}
	}
}
