package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. PREDICTMLOPS_SERVING_PORT.
const EnvPrefix = "PREDICTMLOPS"

// Missing-value policies for blank inference inputs.
const (
	MissingImpute = "impute"
	MissingZero   = "zero"
)

type Config struct {
	Paths   PathsConfig   `mapstructure:"paths"`
	Split   SplitConfig   `mapstructure:"split"`
	Model   ModelConfig   `mapstructure:"model"`
	Serving ServingConfig `mapstructure:"serving"`
	Report  ReportConfig  `mapstructure:"report"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type PathsConfig struct {
	Raw       string `mapstructure:"raw"`
	Processed string `mapstructure:"processed"`
	Model     string `mapstructure:"model"`
}

type SplitConfig struct {
	TestRatio float64 `mapstructure:"test_ratio"`
	Seed      int64   `mapstructure:"seed"`
}

type ModelConfig struct {
	NEstimators         int     `mapstructure:"n_estimators"`
	MaxDepth            int     `mapstructure:"max_depth"`
	MinSamplesSplit     int     `mapstructure:"min_samples_split"`
	MinSamplesLeaf      int     `mapstructure:"min_samples_leaf"`
	MaxFeatures         int     `mapstructure:"max_features"`
	Criterion           string  `mapstructure:"criterion"`
	MinImpurityDecrease float64 `mapstructure:"min_impurity_decrease"`
	Bootstrap           bool    `mapstructure:"bootstrap"`
	Seed                int64   `mapstructure:"seed"`
	Workers             int     `mapstructure:"workers"`
}

type ServingConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Debug         bool   `mapstructure:"debug"`
	MissingValues string `mapstructure:"missing_values"`
}

// Addr is the listen address.
func (s ServingConfig) Addr() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

type ReportConfig struct {
	PlotPath string `mapstructure:"plot_path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from path (optional), then the environment, over
// the defaults. An empty path searches ./config.yaml and ./config/config.yaml.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when nothing is overridden. The
// defaults are static, so a decode failure is a programming error.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config: decode defaults: %v", err))
	}
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("paths.raw", "artifacts/raw/vehicledata.csv")
	v.SetDefault("paths.processed", "artifacts/processed")
	v.SetDefault("paths.model", "artifacts/models/model.gob")

	v.SetDefault("split.test_ratio", 0.2)
	v.SetDefault("split.seed", 42)

	v.SetDefault("model.n_estimators", 200)
	v.SetDefault("model.max_depth", 0)
	v.SetDefault("model.min_samples_split", 2)
	v.SetDefault("model.min_samples_leaf", 1)
	v.SetDefault("model.max_features", 0)
	v.SetDefault("model.criterion", "gini")
	v.SetDefault("model.min_impurity_decrease", 0.0)
	v.SetDefault("model.bootstrap", true)
	v.SetDefault("model.seed", 42)
	v.SetDefault("model.workers", 0)

	v.SetDefault("serving.host", "0.0.0.0")
	v.SetDefault("serving.port", 5000)
	v.SetDefault("serving.debug", true)
	v.SetDefault("serving.missing_values", MissingImpute)

	v.SetDefault("report.plot_path", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate rejects values no stage can run with.
func (c *Config) Validate() error {
	var problems []string
	if c.Split.TestRatio <= 0 || c.Split.TestRatio >= 1 {
		problems = append(problems, fmt.Sprintf("split.test_ratio %v must be in (0, 1)", c.Split.TestRatio))
	}
	if c.Model.NEstimators <= 0 {
		problems = append(problems, fmt.Sprintf("model.n_estimators %d must be positive", c.Model.NEstimators))
	}
	if c.Model.MaxDepth < 0 || c.Model.MaxFeatures < 0 || c.Model.Workers < 0 {
		problems = append(problems, "model.max_depth, model.max_features and model.workers must not be negative")
	}
	if c.Model.MinSamplesLeaf < 1 {
		problems = append(problems, fmt.Sprintf("model.min_samples_leaf %d must be at least 1", c.Model.MinSamplesLeaf))
	}
	if c.Model.Criterion != "gini" && c.Model.Criterion != "entropy" {
		problems = append(problems, fmt.Sprintf("model.criterion %q must be gini or entropy", c.Model.Criterion))
	}
	if c.Model.MinImpurityDecrease < 0 {
		problems = append(problems, "model.min_impurity_decrease must not be negative")
	}
	if c.Model.MinSamplesSplit < 2 {
		problems = append(problems, fmt.Sprintf("model.min_samples_split %d must be at least 2", c.Model.MinSamplesSplit))
	}
	if c.Serving.Port <= 0 || c.Serving.Port > 65535 {
		problems = append(problems, fmt.Sprintf("serving.port %d out of range", c.Serving.Port))
	}
	switch c.Serving.MissingValues {
	case MissingImpute, MissingZero:
	default:
		problems = append(problems, fmt.Sprintf("serving.missing_values %q must be %q or %q", c.Serving.MissingValues, MissingImpute, MissingZero))
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q must be text or json", c.Logging.Format))
	}
	for _, p := range []struct{ key, val string }{
		{"paths.raw", c.Paths.Raw}, {"paths.processed", c.Paths.Processed}, {"paths.model", c.Paths.Model},
	} {
		if p.val == "" {
			problems = append(problems, p.key+" must be set")
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
