package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"xai-bench/internal/logging"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

func LoadConfig(filepath string) (*RunConfig, error) {
	config, _, err := LoadConfigWithContent(filepath)
	return config, err
}

func LoadConfigWithContent(filepath string) (*RunConfig, string, error) {
	logger := logging.GetLogger()

	data, err := os.ReadFile(filepath)
	if err != nil {
		logger.WithField("filepath", filepath).WithError(err).Error("Failed to read config file")
		return nil, "", err
	}

	originalContent := string(data)
	config, err := Parse([]byte(expandEnvVars(originalContent)))
	if err != nil {
		logger.WithField("filepath", filepath).WithError(err).Error("Failed to load config file")
		return nil, "", err
	}
	return config, originalContent, nil
}

// Parse decodes an already expanded YAML document, fills defaults and
// validates the result.
func Parse(data []byte) (*RunConfig, error) {
	var config RunConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&config)
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}

func expandEnvVars(content string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(content, func(match string) string {
		envVar := strings.Trim(match, "${}")
		if value := os.Getenv(envVar); value != "" {
			return value
		}
		return match
	})
}

func applyDefaults(config *RunConfig) {
	config.Run.Explainer = strings.ToUpper(strings.TrimSpace(config.Run.Explainer))
	if config.Run.Question == "" {
		config.Run.Question = "Why"
	}
	if config.Run.Strategy == "" {
		config.Run.Strategy = "default"
	}
	if config.Run.Session == "" {
		config.Run.Session = "0"
	}
	if config.Run.Trials == 0 {
		config.Run.Trials = 1
	}
	if config.Scalarization.Scaling == "" {
		config.Scalarization.Scaling = "MinMax"
	}
	if len(config.Scalarization.Weights) == 0 {
		config.Scalarization.Weights = make([]float64, len(config.Run.Properties))
		for i := range config.Scalarization.Weights {
			config.Scalarization.Weights[i] = 1
		}
	}
	if config.Cache.Backend == "" {
		config.Cache.Backend = "file"
	}
	if config.Cache.Staleness == "" {
		config.Cache.Staleness = "never"
	}
	if config.Data.Task == "" {
		config.Data.Task = "regression"
	}
}

func validateConfig(config *RunConfig) error {
	if err := validate.Struct(config); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s fails %q", fe.Namespace(), fe.Tag())
		}
		return err
	}

	if len(config.Scalarization.Weights) != len(config.Run.Properties) {
		return fmt.Errorf("%d scalarization weights for %d properties",
			len(config.Scalarization.Weights), len(config.Run.Properties))
	}

	seen := make(map[string]bool)
	for _, p := range config.Run.Properties {
		if p == "infidelity" {
			p = "fidelity"
		}
		if seen[p] {
			return fmt.Errorf("property %s is listed twice", p)
		}
		seen[p] = true
	}

	if config.Cache.Staleness == "fingerprint" && (config.Cache.Backend == "none" || config.Cache.Backend == "off") {
		logging.GetLogger().Warn("Cache staleness policy has no effect with caching disabled")
	}
	return nil
}
