package config

// RunConfig is one evaluation or search run read from YAML.
type RunConfig struct {
	Run           RunInfo             `yaml:"run" json:"run"`
	Scalarization ScalarizationConfig `yaml:"scalarization" json:"scalarization"`
	Cache         CacheConfig         `yaml:"cache" json:"cache"`
	Data          DataConfig          `yaml:"data" json:"data"`
	Model         ModelConfig         `yaml:"model" json:"model"`
	Optimizer     OptimizerConfig     `yaml:"optimizer" json:"optimizer"`
	Export        ExportConfig        `yaml:"export" json:"-"`
}

type RunInfo struct {
	Name       string   `yaml:"name" json:"name" validate:"required"`
	Explainer  string   `yaml:"explainer" json:"explainer" validate:"required,oneof=LIME SHAP"`
	Properties []string `yaml:"properties" json:"properties" validate:"required,min=1,dive,oneof=robustness fidelity infidelity conciseness"`
	Question   string   `yaml:"question" json:"question"`
	Strategy   string   `yaml:"strategy" json:"strategy" validate:"omitempty,oneof=default random bayes gp"`
	// Iterations is the number of model-guided Bayesian trials.
	Iterations int `yaml:"iterations" json:"iterations" validate:"gte=0"`
	// InitPoints overrides the random initial trials of the Bayesian search.
	InitPoints int `yaml:"init_points" json:"init_points" validate:"gte=0"`
	// Trials is the number of random-strategy trials.
	Trials    int    `yaml:"trials" json:"trials" validate:"gte=0"`
	Seed      int64  `yaml:"seed" json:"seed"`
	Session   string `yaml:"session" json:"session"`
	EarlyStop *bool  `yaml:"early_stop" json:"early_stop"`
	LogLevel  string `yaml:"log_level" json:"-" validate:"omitempty,oneof=trace debug info warn warning error"`
	Verbose   bool   `yaml:"verbose" json:"-"`
}

type ScalarizationConfig struct {
	Scaling string    `yaml:"scaling" json:"scaling" validate:"omitempty,oneof=MinMax Std"`
	Weights []float64 `yaml:"weights" json:"weights"`
}

type CacheConfig struct {
	Backend   string `yaml:"backend" json:"backend" validate:"omitempty,oneof=file badger none off"`
	Dir       string `yaml:"dir" json:"-"`
	Staleness string `yaml:"staleness" json:"staleness" validate:"omitempty,oneof=never fingerprint"`
}

type DataConfig struct {
	Path  string `yaml:"path" json:"path" validate:"required"`
	Label string `yaml:"label" json:"label" validate:"required"`
	Task  string `yaml:"task" json:"task" validate:"omitempty,oneof=regression classification"`
	// Limit keeps only the first rows of the dataset. Zero keeps all.
	Limit int `yaml:"limit" json:"limit" validate:"gte=0"`
}

// ModelConfig describes the built-in linear model.
type ModelConfig struct {
	Coefficients []float64 `yaml:"coefficients" json:"coefficients" validate:"required,min=1"`
	Intercept    float64   `yaml:"intercept" json:"intercept"`
}

type OptimizerConfig struct {
	Parallelism      int `yaml:"parallelism" json:"-" validate:"gte=0"`
	Candidates       int `yaml:"candidates" json:"candidates" validate:"gte=0"`
	InnerParallelism int `yaml:"inner_parallelism" json:"-" validate:"gte=0"`
	InnerCandidates  int `yaml:"inner_candidates" json:"inner_candidates" validate:"gte=0"`
}

type ExportConfig struct {
	CSVDir   string       `yaml:"csv_dir"`
	SpoolDir string       `yaml:"spool_dir"`
	Influx   InfluxConfig `yaml:"influx"`
}

type InfluxConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host" validate:"required_if=Enabled true"`
	Token   string `yaml:"token" validate:"required_if=Enabled true"`
	Org     string `yaml:"org" validate:"required_if=Enabled true"`
	Bucket  string `yaml:"bucket" validate:"required_if=Enabled true"`
}

// EarlyStopEnabled defaults to true when the run file does not say.
func (c *RunConfig) EarlyStopEnabled() bool {
	return c.Run.EarlyStop == nil || *c.Run.EarlyStop
}
