package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"xai-bench/internal/config"
	"xai-bench/internal/hyperparams"
	"xai-bench/internal/logging"
	"xai-bench/internal/metrics"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const Version = "0.4.0"

func loadEnvironment() {
	logger := logging.GetLogger()

	// Try to load .env file from current directory
	envFile := ".env"
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			logger.WithField("file", envFile).WithError(err).Warn("Error loading .env file")
		} else {
			logger.WithField("file", envFile).Debug("Loaded environment variables")
		}
		return
	}

	// Try to load from the application directory
	if execPath, err := os.Executable(); err == nil {
		envFile = filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				logger.WithField("file", envFile).WithError(err).Warn("Error loading .env file")
			} else {
				logger.WithField("file", envFile).Debug("Loaded environment variables")
			}
		}
	}
}

// normalizeExplainerKind accepts explainer names in any case.
func normalizeExplainerKind(name string) (hyperparams.Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "LIME":
		return hyperparams.KindLIME, nil
	case "SHAP":
		return hyperparams.KindSHAP, nil
	}
	return "", fmt.Errorf("unknown explainer %q (expected LIME or SHAP)", name)
}

func serveMetrics(addr string) {
	logger := logging.GetLogger()
	metrics.Init()

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.WithField("addr", addr).Info("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithField("addr", addr).WithError(err).Error("Metrics server stopped")
		}
	}()
}

func Execute() error {
	loadEnvironment()

	var configFile string
	var logLevel string
	var metricsAddr string
	var newSession bool

	rootCmd := &cobra.Command{
		Use:           "xai-bench",
		Short:         "Explainer evaluation and hyperparameter search",
		Long:          "Scores local feature-attribution explainers on robustness, fidelity and conciseness and tunes their hyperparameters",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if logLevel != "" {
				if err := logging.SetLogLevel(logLevel); err != nil {
					return fmt.Errorf("invalid log level: %w", err)
				}
				if err := logging.SetSearchLogLevel(logLevel); err != nil {
					return fmt.Errorf("invalid log level: %w", err)
				}
			}
			if metricsAddr != "" {
				serveMetrics(metricsAddr)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Set log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the configured hyperparameter search",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSearch(ctx, configFile, newSession, logLevel != "")
		},
	}

	evaluateCmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate the default configuration on every configured property",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return evaluateDefault(ctx, configFile, logLevel != "")
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a run configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfig(configFile)
		},
	}

	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached evaluation artifacts",
	}

	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete the cached artifacts of the configured explainer and session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return purgeCache(configFile)
		},
	}

	runCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to run configuration file")
	runCmd.Flags().BoolVar(&newSession, "new-session", false, "Use a fresh session id instead of the configured one")
	runCmd.MarkFlagRequired("config")

	evaluateCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to run configuration file")
	evaluateCmd.MarkFlagRequired("config")

	validateCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to run configuration file")
	validateCmd.MarkFlagRequired("config")

	purgeCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to run configuration file")
	purgeCmd.MarkFlagRequired("config")

	cacheCmd.AddCommand(purgeCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(cacheCmd)

	return rootCmd.Execute()
}

func validateConfig(configFile string) error {
	logger := logging.GetLogger()

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		logger.WithField("config_file", configFile).WithError(err).Error("Configuration validation failed")
		return err
	}
	if _, err := normalizeExplainerKind(cfg.Run.Explainer); err != nil {
		return err
	}
	if _, err := hyperparams.ParseStrategy(cfg.Run.Strategy); err != nil {
		return err
	}
	logger.WithField("config_file", configFile).Info("Configuration is valid")
	return nil
}
