package cmd

import (
	"context"
	"fmt"
	"time"

	"xai-bench/internal/cache"
	"xai-bench/internal/config"
	"xai-bench/internal/dataset"
	"xai-bench/internal/evaluation"
	"xai-bench/internal/export"
	"xai-bench/internal/hyperparams"
	"xai-bench/internal/logging"
	"xai-bench/internal/model"
	"xai-bench/internal/scalarize"
	"xai-bench/internal/search"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// XAIBench holds everything one CLI invocation assembles from a run file.
type XAIBench struct {
	config        *config.RunConfig
	configContent string
	checksum      string
	session       string

	kind       hyperparams.Kind
	properties []evaluation.Property
	data       *dataset.Dataset
	cache      cache.Cache
	evaluator  *evaluation.Evaluator
	searcher   *search.Searcher

	startTime time.Time
	endTime   time.Time
}

func newBench(configFile string, newSession, logLevelFromFlag bool) (*XAIBench, error) {
	logger := logging.GetLogger()

	bench := &XAIBench{}
	var err error
	bench.config, bench.configContent, err = config.LoadConfigWithContent(configFile)
	if err != nil {
		logger.WithField("config_file", configFile).WithError(err).Error("Failed to load configuration")
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg := bench.config

	// Set log level from configuration unless the flag already did
	if !logLevelFromFlag && cfg.Run.LogLevel != "" {
		if err := logging.SetLogLevel(cfg.Run.LogLevel); err != nil {
			logger.WithField("log_level", cfg.Run.LogLevel).WithError(err).Warn("Invalid log level in config, using INFO")
			logging.SetLogLevel("info")
		} else {
			logging.SetSearchLogLevel(cfg.Run.LogLevel)
			logger.WithField("log_level", cfg.Run.LogLevel).Debug("Log level set from configuration")
		}
	}

	if bench.checksum, err = config.RunChecksum(cfg); err != nil {
		return nil, fmt.Errorf("failed to compute run checksum: %w", err)
	}

	bench.session = cfg.Run.Session
	if newSession {
		bench.session = uuid.NewString()
		logger.WithField("session", bench.session).Info("Using a new cache session")
	}

	if bench.kind, err = normalizeExplainerKind(cfg.Run.Explainer); err != nil {
		return nil, err
	}
	if bench.properties, err = evaluation.ParseProperties(cfg.Run.Properties); err != nil {
		return nil, err
	}

	data, err := dataset.LoadCSV(cfg.Data.Path, cfg.Data.Label)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	bench.data = data.Head(cfg.Data.Limit)

	m, err := model.NewLinear(cfg.Model.Coefficients, cfg.Model.Intercept)
	if err != nil {
		return nil, fmt.Errorf("failed to build model: %w", err)
	}
	if len(cfg.Model.Coefficients) != bench.data.Dim() {
		return nil, fmt.Errorf("model has %d coefficients, dataset has %d features", len(cfg.Model.Coefficients), bench.data.Dim())
	}

	scaling, err := scalarize.ParseScaling(cfg.Scalarization.Scaling)
	if err != nil {
		return nil, err
	}
	evalCtx, err := evaluation.NewContext(evaluation.Context{
		Question:     cfg.Run.Question,
		Task:         cfg.Data.Task,
		Scaling:      scaling,
		Weights:      cfg.Scalarization.Weights,
		Verbose:      cfg.Run.Verbose,
		Model:        m,
		Rows:         bench.data.Rows,
		Labels:       bench.data.Labels,
		FeatureNames: bench.data.FeatureNames,
	})
	if err != nil {
		return nil, err
	}

	keyer, err := newKeyer(cfg, bench.data)
	if err != nil {
		return nil, err
	}
	bench.cache, err = cache.Open(cache.Options{Backend: cfg.Cache.Backend, Dir: cfg.Cache.Dir})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	bench.evaluator = evaluation.NewEvaluator(evalCtx, evaluation.Options{
		Cache:            bench.cache,
		Keyer:            keyer,
		Session:          bench.session,
		DisableEarlyStop: !cfg.EarlyStopEnabled(),
		InnerParallelism: cfg.Optimizer.InnerParallelism,
		InnerCandidates:  cfg.Optimizer.InnerCandidates,
		Seed:             cfg.Run.Seed,
	})
	bench.searcher = search.New(bench.evaluator, search.Options{
		InitPoints:     cfg.Run.InitPoints,
		MaxParallelism: cfg.Optimizer.Parallelism,
		Candidates:     cfg.Optimizer.Candidates,
		Seed:           cfg.Run.Seed,
	})

	logger.WithFields(logrus.Fields{
		"run":        cfg.Run.Name,
		"explainer":  bench.kind,
		"properties": cfg.Run.Properties,
		"rows":       bench.data.Len(),
		"features":   bench.data.Dim(),
		"cache":      cfg.Cache.Backend,
		"session":    bench.session,
		"checksum":   bench.checksum,
	}).Info("Run initialized")
	return bench, nil
}

func newKeyer(cfg *config.RunConfig, data *dataset.Dataset) (cache.Keyer, error) {
	policy, err := cache.ParseStaleness(cfg.Cache.Staleness)
	if err != nil {
		return cache.Keyer{}, err
	}
	keyer := cache.Keyer{Policy: policy}
	if policy == cache.StalenessFingerprint {
		keyer.Fingerprint, err = cache.Fingerprint(data.FeatureNames, data.Rows, data.Labels)
		if err != nil {
			return cache.Keyer{}, fmt.Errorf("failed to fingerprint dataset: %w", err)
		}
	}
	return keyer, nil
}

func (b *XAIBench) close() {
	if b.cache != nil {
		if err := b.cache.Close(); err != nil {
			logging.GetLogger().WithError(err).Warn("Failed to close cache")
		}
	}
}

func (b *XAIBench) meta(strategy hyperparams.Strategy) export.RunMeta {
	return export.RunMeta{
		Name:      b.config.Run.Name,
		Explainer: b.kind.String(),
		Strategy:  string(strategy),
		Checksum:  b.checksum,
		Session:   b.session,
		Started:   b.startTime,
		Finished:  b.endTime,
	}
}

func runSearch(ctx context.Context, configFile string, newSession, logLevelFromFlag bool) error {
	logger := logging.GetLogger()

	bench, err := newBench(configFile, newSession, logLevelFromFlag)
	if err != nil {
		return err
	}
	defer bench.close()

	strategy, err := hyperparams.ParseStrategy(bench.config.Run.Strategy)
	if err != nil {
		return err
	}
	n := bench.config.Run.Trials
	if strategy == hyperparams.StrategyBayes {
		n = bench.config.Run.Iterations
	}

	bench.startTime = time.Now()
	trials, err := bench.searcher.RunStrategy(ctx, strategy, bench.kind, bench.properties, n)
	bench.endTime = time.Now()
	if err != nil && len(trials) == 0 {
		logger.WithError(err).Error("Search failed")
		return fmt.Errorf("search failed: %w", err)
	}
	if err != nil {
		logger.WithError(err).WithField("trials", len(trials)).Warn("Search stopped early, exporting completed trials")
	}

	if exportErr := bench.exportResults(ctx, strategy); exportErr != nil {
		return exportErr
	}

	if best, ok := search.Best(bench.searcher.Trials()); ok {
		logger.WithFields(logrus.Fields{
			"trial":      best.Index,
			"params":     best.Config.Map(),
			"aggregated": best.Aggregated,
			"duration":   bench.endTime.Sub(bench.startTime),
		}).Info("Best trial")
	}
	return err
}

func (b *XAIBench) exportResults(ctx context.Context, strategy hyperparams.Strategy) error {
	logger := logging.GetLogger()
	trials := b.searcher.Trials()
	meta := b.meta(strategy)

	if dir := b.config.Export.CSVDir; dir != "" {
		if _, err := export.ExportToCSV(dir, meta, b.properties, trials); err != nil {
			logger.WithError(err).Error("Failed to export CSV")
			return fmt.Errorf("failed to export CSV: %w", err)
		}
	}

	artifact := export.BuildSpoolArtifact(meta, b.configContent, b.config.Run.Properties, trials, b.searcher.History())
	path, err := export.WriteSpoolArtifact(b.config.Export.SpoolDir, artifact)
	if err != nil {
		logger.WithError(err).Error("Failed to write spool artifact")
		return fmt.Errorf("failed to write spool artifact: %w", err)
	}
	logger.WithField("path", path).Info("Wrote spool artifact")

	if b.config.Export.Influx.Enabled {
		idb, err := export.NewInfluxDBClient(b.config.Export.Influx)
		if err != nil {
			return fmt.Errorf("failed to create database client: %w", err)
		}
		defer idb.Close()
		if err := idb.WriteTrials(ctx, meta, trials); err != nil {
			logger.WithError(err).Error("Failed to export trials")
			return err
		}
	}
	return nil
}

func evaluateDefault(ctx context.Context, configFile string, logLevelFromFlag bool) error {
	logger := logging.GetLogger()

	bench, err := newBench(configFile, false, logLevelFromFlag)
	if err != nil {
		return err
	}
	defer bench.close()

	cfg, err := hyperparams.Default(bench.kind, bench.data.Dim())
	if err != nil {
		return err
	}
	for _, p := range bench.properties {
		start := time.Now()
		score, ok, err := bench.evaluator.Evaluate(ctx, bench.kind, cfg, p)
		if err != nil {
			logger.WithField("property", p).WithError(err).Error("Evaluation failed")
			return err
		}
		if !ok {
			logger.WithField("question", bench.config.Run.Question).Warn("Question has no scores, nothing evaluated")
			return nil
		}
		logger.WithFields(logrus.Fields{
			"explainer": bench.kind,
			"property":  p,
			"score":     score,
			"params":    cfg.Map(),
			"duration":  time.Since(start),
		}).Info("Property evaluated")
	}
	return nil
}

func purgeCache(configFile string) error {
	logger := logging.GetLogger()

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	kind, err := normalizeExplainerKind(cfg.Run.Explainer)
	if err != nil {
		return err
	}
	data, err := dataset.LoadCSV(cfg.Data.Path, cfg.Data.Label)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}
	keyer, err := newKeyer(cfg, data.Head(cfg.Data.Limit))
	if err != nil {
		return err
	}

	c, err := cache.Open(cache.Options{Backend: cfg.Cache.Backend, Dir: cfg.Cache.Dir})
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer c.Close()

	for _, measure := range []cache.Measure{cache.MeasureRobustness, cache.MeasureInfidelity} {
		key := keyer.Key(measure, kind.String(), cfg.Run.Session)
		if err := c.Delete(key); err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
		logger.WithField("key", key.String()).Info("Deleted cached artifact")
	}
	return nil
}
