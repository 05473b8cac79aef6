package config

import "testing"

func baseConfig() *RunConfig {
	return &RunConfig{
		Run:   RunInfo{Name: "t", Explainer: "LIME", Properties: []string{"robustness"}, Strategy: "bayes"},
		Data:  DataConfig{Path: "d.csv", Label: "y"},
		Model: ModelConfig{Coefficients: []float64{1, 2}},
	}
}

func TestRunChecksum_IgnoresOperationalSettings(t *testing.T) {
	a := baseConfig()
	b := baseConfig()
	b.Run.LogLevel = "debug"
	b.Run.Verbose = true
	b.Optimizer.Parallelism = 8
	b.Export.SpoolDir = "/tmp/spool"

	s1, err := RunChecksum(a)
	if err != nil {
		t.Fatalf("RunChecksum(a): %v", err)
	}
	s2, err := RunChecksum(b)
	if err != nil {
		t.Fatalf("RunChecksum(b): %v", err)
	}
	if s1 != s2 {
		t.Fatalf("expected same checksum, got %q vs %q", s1, s2)
	}
	if len(s1) != 6 {
		t.Fatalf("expected 6-char checksum, got %q (len=%d)", s1, len(s1))
	}
}

func TestRunChecksum_ChangesWhenRunChanges(t *testing.T) {
	cfg := baseConfig()
	s1, err := RunChecksum(cfg)
	if err != nil {
		t.Fatalf("RunChecksum: %v", err)
	}

	cfg.Model.Coefficients[1] = 3
	s2, err := RunChecksum(cfg)
	if err != nil {
		t.Fatalf("RunChecksum after change: %v", err)
	}
	if s1 == s2 {
		t.Fatalf("expected checksum to change, got %q", s1)
	}
}
