// Package config loads the fredprep configuration: built-in defaults, then
// an optional YAML file, then FREDMD_* environment variables, then
// validation.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/sartorproj/gofredmd/deseason"
	"github.com/sartorproj/gofredmd/diagnostics"
	"github.com/sartorproj/gofredmd/errs"
	"github.com/sartorproj/gofredmd/factors"
	"github.com/sartorproj/gofredmd/logging"
	"github.com/sartorproj/gofredmd/pipeline"
	"github.com/sartorproj/gofredmd/seasonality"
)

// EnvPrefix prefixes every environment override, e.g.
// FREDMD_PIPELINE_SEASONAL_THRESHOLD.
const EnvPrefix = "FREDMD"

// Config is the complete configuration.
type Config struct {
	Pipeline    PipelineConfig    `yaml:"pipeline" envconfig:"PIPELINE"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics" envconfig:"DIAGNOSTICS"`
	Logging     logging.Config    `yaml:"logging" envconfig:"LOGGING"`
	Paths       PathsConfig       `yaml:"paths" envconfig:"PATHS"`
	Metrics     MetricsConfig     `yaml:"metrics" envconfig:"METRICS"`
}

// PipelineConfig holds the stage settings.
type PipelineConfig struct {
	SeasonalThreshold  float64  `yaml:"seasonal_threshold" envconfig:"SEASONAL_THRESHOLD" validate:"gte=0,lte=1"`
	SeasonalMetric     string   `yaml:"seasonal_metric" envconfig:"SEASONAL_METRIC" validate:"oneof=acf strength"`
	SeasonalMethod     string   `yaml:"seasonal_method" envconfig:"SEASONAL_METHOD" validate:"oneof=additive multiplicative auto"`
	Decomposition      string   `yaml:"decomposition" envconfig:"DECOMPOSITION" validate:"oneof=classical stl"`
	STLRobustIters     int      `yaml:"stl_robust_iters" envconfig:"STL_ROBUST_ITERS" validate:"gte=0,lte=20"`
	ExtendEnds         bool     `yaml:"extend_ends" envconfig:"EXTEND_ENDS"`
	AutoCutoff         float64  `yaml:"auto_correlation_cutoff" envconfig:"AUTO_CORRELATION_CUTOFF" validate:"gte=-1,lte=1"`
	MinHistoryCycles   int      `yaml:"min_history_cycles" envconfig:"MIN_HISTORY_CYCLES" validate:"gte=1"`
	FrequencyTolerance float64  `yaml:"frequency_tolerance" envconfig:"FREQUENCY_TOLERANCE" validate:"gte=0,lt=1"`
	Standardize        bool     `yaml:"standardize" envconfig:"STANDARDIZE"`
	Ddof               int      `yaml:"ddof" envconfig:"DDOF" validate:"oneof=0 1"`
	Balance            string   `yaml:"balance" envconfig:"BALANCE" validate:"oneof=none initial all"`
	Workers            int      `yaml:"workers" envconfig:"WORKERS" validate:"gte=1,lte=256"`
	Exclude            []string `yaml:"exclude" envconfig:"EXCLUDE"`
}

// DiagnosticsConfig holds the stationarity and screening settings.
type DiagnosticsConfig struct {
	Alpha          float64 `yaml:"alpha" envconfig:"ALPHA" validate:"gt=0,lt=1"`
	KPSSRegression string  `yaml:"kpss_regression" envconfig:"KPSS_REGRESSION" validate:"oneof=c ct"`
	RunPP          bool    `yaml:"run_pp" envconfig:"RUN_PP"`
	// Anchor is the first month kept by screening, as YYYY-MM-DD.
	Anchor          string  `yaml:"anchor" envconfig:"ANCHOR" validate:"omitempty,datetime=2006-01-02"`
	MissingShareMax float64 `yaml:"missing_share_max" envconfig:"MISSING_SHARE_MAX" validate:"gte=0,lte=1"`
	LeadingLimit    int     `yaml:"leading_na_limit_months" envconfig:"LEADING_NA_LIMIT_MONTHS" validate:"gte=0"`
	InteriorGapMax  int     `yaml:"interior_gap_max_months" envconfig:"INTERIOR_GAP_MAX_MONTHS" validate:"gte=0"`
	MinObsTrain     int     `yaml:"min_obs_train_months" envconfig:"MIN_OBS_TRAIN_MONTHS" validate:"gte=0"`
	Coverage        float64 `yaml:"cov_thresh" envconfig:"COV_THRESH" validate:"gt=0,lte=1"`
	TrainYears      int     `yaml:"train_years" envconfig:"TRAIN_YEARS" validate:"gte=1"`
	HoldoutMonths   int     `yaml:"holdout_months" envconfig:"HOLDOUT_MONTHS" validate:"gte=0"`
	MinRun          int     `yaml:"min_run_consecutive" envconfig:"MIN_RUN_CONSECUTIVE" validate:"gte=1"`
}

// PathsConfig locates inputs and outputs. Empty inputs fall back to
// built-in data where one exists.
type PathsConfig struct {
	RawCSV    string `yaml:"raw_csv" envconfig:"RAW_CSV"`
	TcodeJSON string `yaml:"tcode_json" envconfig:"TCODE_JSON"`
	GroupMap  string `yaml:"group_map" envconfig:"GROUP_MAP"`
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR" validate:"required"`
}

// MetricsConfig controls Prometheus metrics and tracing output.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" envconfig:"ENABLED"`
	// File receives the metrics in text exposition format after a run.
	File    string `yaml:"file" envconfig:"FILE" validate:"required_if=Enabled true"`
	Tracing bool   `yaml:"tracing" envconfig:"TRACING"`
}

// Default returns the built-in configuration.
func Default() *Config {
	so := seasonality.DefaultConfig()
	do := deseason.DefaultOptions()
	st := diagnostics.DefaultStationarityOptions()
	sr := diagnostics.DefaultScreenRules()
	wr := diagnostics.DefaultWindowRules()
	return &Config{
		Pipeline: PipelineConfig{
			SeasonalThreshold:  so.Threshold,
			SeasonalMetric:     string(so.Metric),
			SeasonalMethod:     string(do.Mode),
			Decomposition:      string(do.Algorithm),
			STLRobustIters:     do.RobustIters,
			AutoCutoff:         do.AutoCorrelationCutoff,
			MinHistoryCycles:   so.MinHistoryCycles,
			FrequencyTolerance: so.FrequencyTolerance,
			Standardize:        true,
			Balance:            string(factors.BalanceNone),
			Workers:            1,
		},
		Diagnostics: DiagnosticsConfig{
			Alpha:           st.Alpha,
			KPSSRegression:  st.KPSSRegression,
			MissingShareMax: sr.MissingShareMax,
			LeadingLimit:    sr.LeadingLimit,
			InteriorGapMax:  sr.InteriorGapMax,
			MinObsTrain:     sr.MinObsTrain,
			Coverage:        wr.Coverage,
			TrainYears:      wr.TrainYears,
			HoldoutMonths:   wr.HoldoutMonths,
			MinRun:          wr.MinRun,
		},
		Logging: logging.DefaultConfig(),
		Paths:   PathsConfig{OutputDir: "out"},
	}
}

// Load reads path (skipped when empty), applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := cfg.decode(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML from r over the defaults and validates it without
// consulting the environment.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(r); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks every field constraint and reports all failures at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("config: %w: %s", errs.ErrInvalidOptions, strings.Join(msgs, "; "))
}

// PipelineOptions converts the pipeline section. Logger, Metrics and Tracer
// are left for the caller.
func (c *Config) PipelineOptions() (pipeline.Options, error) {
	p := c.Pipeline
	metric, err := seasonality.ParseMetric(p.SeasonalMetric)
	if err != nil {
		return pipeline.Options{}, err
	}
	mode, err := deseason.ParseMode(p.SeasonalMethod)
	if err != nil {
		return pipeline.Options{}, err
	}
	algo, err := deseason.ParseAlgorithm(p.Decomposition)
	if err != nil {
		return pipeline.Options{}, err
	}
	balance, err := factors.ParseBalanceMode(p.Balance)
	if err != nil {
		return pipeline.Options{}, err
	}

	opts := pipeline.DefaultOptions()
	opts.Seasonality = seasonality.Config{
		Threshold:          p.SeasonalThreshold,
		Metric:             metric,
		MinHistoryCycles:   p.MinHistoryCycles,
		FrequencyTolerance: p.FrequencyTolerance,
	}
	opts.Deseason.Mode = mode
	opts.Deseason.Algorithm = algo
	opts.Deseason.RobustIters = p.STLRobustIters
	opts.Deseason.ExtendEnds = p.ExtendEnds
	opts.Deseason.AutoCorrelationCutoff = p.AutoCutoff
	opts.Standardize = p.Standardize
	opts.Ddof = p.Ddof
	opts.Balance = balance
	opts.Workers = p.Workers
	opts.Exclude = append([]string(nil), p.Exclude...)
	return opts, nil
}

// StationarityOptions converts the diagnostics section for stationarity tests.
func (c *Config) StationarityOptions() diagnostics.StationarityOptions {
	opts := diagnostics.DefaultStationarityOptions()
	opts.Alpha = c.Diagnostics.Alpha
	opts.KPSSRegression = c.Diagnostics.KPSSRegression
	opts.RunPP = c.Diagnostics.RunPP
	return opts
}

// ScreenRules returns the screening thresholds.
func (c *Config) ScreenRules() diagnostics.ScreenRules {
	d := c.Diagnostics
	return diagnostics.ScreenRules{
		MissingShareMax: d.MissingShareMax,
		LeadingLimit:    d.LeadingLimit,
		InteriorGapMax:  d.InteriorGapMax,
		MinObsTrain:     d.MinObsTrain,
	}
}

// WindowRules returns the training-window rules.
func (c *Config) WindowRules() diagnostics.WindowRules {
	d := c.Diagnostics
	return diagnostics.WindowRules{
		Coverage:      d.Coverage,
		TrainYears:    d.TrainYears,
		HoldoutMonths: d.HoldoutMonths,
		MinRun:        d.MinRun,
	}
}

// AnchorTime parses the screening anchor; zero when unset.
func (c *Config) AnchorTime() (time.Time, error) {
	if c.Diagnostics.Anchor == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", c.Diagnostics.Anchor)
}
