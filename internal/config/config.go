// Package config loads the forecast settings from defaults, the environment,
// an optional .env file and an optional YAML file.
package config

import (
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"github.com/YuminosukeSato/salesforecast/pkg/errors"
	"github.com/YuminosukeSato/salesforecast/sklearn/fasttree"
	"github.com/YuminosukeSato/salesforecast/sklearn/pipeline"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "FORECAST"

// Config holds all application settings.
type Config struct {
	DataPath       string `yaml:"data_path" envconfig:"DATA_PATH" default:"Data/products.stats.csv" validate:"required"`
	ModelPath      string `yaml:"model_path" envconfig:"MODEL_PATH" default:"product_month_fastTreeTweedie.zip" validate:"required"`
	ImportancePlot string `yaml:"importance_plot" envconfig:"IMPORTANCE_PLOT"`

	CV      CVConfig      `yaml:"cv" envconfig:"CV"`
	Trainer TrainerConfig `yaml:"trainer" envconfig:"TRAINER"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOG"`
	Server  ServerConfig  `yaml:"server" envconfig:"SERVER"`
}

// CVConfig contains cross-validation settings.
type CVConfig struct {
	Folds       int   `yaml:"folds" envconfig:"FOLDS" default:"6" validate:"gte=2"`
	Shuffle     bool  `yaml:"shuffle" envconfig:"SHUFFLE" default:"true"`
	Seed        int64 `yaml:"seed" envconfig:"SEED" default:"0"`
	Parallelism int   `yaml:"parallelism" envconfig:"PARALLELISM" default:"1" validate:"gte=1"`
}

// TrainerConfig contains FastTreeTweedie hyperparameters.
type TrainerConfig struct {
	Objective       string  `yaml:"objective" envconfig:"OBJECTIVE" default:"tweedie" validate:"oneof=tweedie poisson regression"`
	NumTrees        int     `yaml:"num_trees" envconfig:"NUM_TREES" default:"100" validate:"gte=1"`
	NumLeaves       int     `yaml:"num_leaves" envconfig:"NUM_LEAVES" default:"20" validate:"gte=2"`
	MinDataInLeaf   int     `yaml:"min_data_in_leaf" envconfig:"MIN_DATA_IN_LEAF" default:"10" validate:"gte=1"`
	LearningRate    float64 `yaml:"learning_rate" envconfig:"LEARNING_RATE" default:"0.2" validate:"gt=0,lte=1"`
	MaxBin          int     `yaml:"max_bin" envconfig:"MAX_BIN" default:"255" validate:"gte=2,lte=65535"`
	VariancePower   float64 `yaml:"variance_power" envconfig:"VARIANCE_POWER" default:"1.5" validate:"gt=1,lt=2"`
	Lambda          float64 `yaml:"lambda_l2" envconfig:"LAMBDA_L2" default:"0" validate:"gte=0"`
	FeatureFraction float64 `yaml:"feature_fraction" envconfig:"FEATURE_FRACTION" default:"1" validate:"gt=0,lte=1"`
	BaggingFraction float64 `yaml:"bagging_fraction" envconfig:"BAGGING_FRACTION" default:"1" validate:"gt=0,lte=1"`
	Seed            int64   `yaml:"seed" envconfig:"SEED" default:"0"`
	Verbosity       int     `yaml:"verbosity" envconfig:"VERBOSITY" default:"0" validate:"gte=0"`

	EarlyStoppingRounds    int     `yaml:"early_stopping_rounds" envconfig:"EARLY_STOPPING_ROUNDS" default:"0" validate:"gte=0"`
	EarlyStoppingTolerance float64 `yaml:"early_stopping_tolerance" envconfig:"EARLY_STOPPING_TOLERANCE" default:"0" validate:"gte=0"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" envconfig:"FORMAT" default:"console" validate:"oneof=json console"`
}

// ServerConfig contains HTTP prediction service settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr" envconfig:"ADDR" default:":8080" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"10s" validate:"gt=0"`
}

// Load reads configuration in this order, later sources overriding earlier
// ones: struct defaults, envFile (if it exists), the process environment,
// then the YAML file at path (if path is not empty). The result is
// validated before it is returned.
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to load env file %s", envFile)
		}
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env vars")
	}

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration built from struct defaults and the
// process environment only.
func Default() (*Config, error) {
	return Load("", "")
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read config file %s", path)
	}
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return errors.Wrapf(err, "failed to parse config file %s", path)
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks every field against its validate tag. The first failing
// field is reported as a ValidationError named by its YAML path.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		param := strings.TrimPrefix(fe.Namespace(), "Config.")
		reason := fe.Tag()
		if fe.Param() != "" {
			reason += "=" + fe.Param()
		}
		return errors.NewValidationError(param, "failed '"+reason+"' rule", fe.Value())
	}
	return errors.Wrap(err, "invalid configuration")
}

// Options converts the trainer section into fasttree options.
func (t TrainerConfig) Options() fasttree.Options {
	opts := fasttree.DefaultOptions()
	opts.Objective = t.Objective
	opts.NumTrees = t.NumTrees
	opts.NumLeaves = t.NumLeaves
	opts.MinDataInLeaf = t.MinDataInLeaf
	opts.LearningRate = t.LearningRate
	opts.MaxBin = t.MaxBin
	opts.VariancePower = t.VariancePower
	opts.Lambda = t.Lambda
	opts.FeatureFraction = t.FeatureFraction
	opts.BaggingFraction = t.BaggingFraction
	opts.Seed = t.Seed
	opts.Verbosity = t.Verbosity
	opts.EarlyStoppingRounds = t.EarlyStoppingRounds
	opts.EarlyStoppingTolerance = t.EarlyStoppingTolerance
	return opts
}

// Options converts the cross-validation section into pipeline options.
func (c CVConfig) Options() pipeline.CVOptions {
	return pipeline.CVOptions{
		Folds:       c.Folds,
		Shuffle:     c.Shuffle,
		Seed:        c.Seed,
		Parallelism: c.Parallelism,
	}
}
