package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete job configuration
type Config struct {
	Input     InputConfig     `yaml:"input" envconfig:"INPUT"`
	Output    OutputConfig    `yaml:"output" envconfig:"OUTPUT"`
	Pipeline  PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// InputConfig describes the source archive and how its partitions are read
type InputConfig struct {
	File         string      `yaml:"file" envconfig:"FILE" validate:"required"`
	DatePatterns PatternList `yaml:"date_patterns" envconfig:"DATE_PATTERNS" validate:"min=1,dive,required"`
	Extension    string      `yaml:"extension" envconfig:"EXTENSION" validate:"required,startswith=."`
	Delimiter    string      `yaml:"delimiter" envconfig:"DELIMITER" validate:"required"`
	LinesToSkip  int         `yaml:"lines_to_skip" envconfig:"LINES_TO_SKIP" validate:"min=0"`
}

// OutputConfig describes the destination file
type OutputConfig struct {
	File        string `yaml:"file" envconfig:"FILE" validate:"required"`
	DatePattern string `yaml:"date_pattern" envconfig:"DATE_PATTERN" validate:"required"`
	Append      bool   `yaml:"append" envconfig:"APPEND"`
}

// PipelineConfig contains run scheduling options
type PipelineConfig struct {
	Workers int    `yaml:"workers" envconfig:"WORKERS" validate:"min=1,max=64"`
	JobName string `yaml:"job_name" envconfig:"JOB_NAME" validate:"required"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" validate:"required_unless=Output console"`
}

// TelemetryConfig selects the OpenTelemetry exporters
type TelemetryConfig struct {
	TraceExporter  string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=none stdout"`
	MetricExporter string `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER" validate:"oneof=none prometheus"`
	MetricsAddr    string `yaml:"metrics_addr" envconfig:"METRICS_ADDR" validate:"omitempty,hostname_port"`
}

// PatternList is an ordered list of date patterns. From the environment it
// is read as a single ";"-separated value because patterns may contain commas.
type PatternList []string

// Decode implements envconfig.Decoder.
func (p *PatternList) Decode(value string) error {
	var out PatternList
	for _, part := range strings.Split(value, PatternSeparator) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*p = out
	return nil
}

// UnmarshalYAML accepts either a YAML sequence or a ";"-separated string.
func (p *PatternList) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var list []string
	if err := unmarshal(&list); err == nil {
		*p = list
		return nil
	}
	var s string
	if err := unmarshal(&s); err != nil {
		return fmt.Errorf("date patterns must be a list or a %q-separated string", PatternSeparator)
	}
	return p.Decode(s)
}

// String joins the patterns with the separator used by the environment form.
func (p PatternList) String() string {
	return strings.Join(p, PatternSeparator)
}

// Load builds the configuration from defaults, the optional YAML file at
// path and then ZIPCSV_* environment variables, in increasing precedence.
// An empty path skips the file. The result is not validated so that callers
// can apply command-line overrides first; call Validate afterwards.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg. Keys missing from the file keep their current value.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.UnmarshalStrict(data, cfg)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration and reports every invalid field.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config validation failed: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", strings.TrimPrefix(fe.Namespace(), "Config."), fe.Tag()))
	}
	return fmt.Errorf("config validation failed: %s", strings.Join(msgs, "; "))
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Input: InputConfig{
			DatePatterns: PatternList{"MM/dd/yyyy", "MMMM d, yyyy"},
			Extension:    ".csv",
			Delimiter:    ",",
			LinesToSkip:  1,
		},
		Output: OutputConfig{
			DatePattern: "dd/MM/yyyy",
			Append:      false,
		},
		Pipeline: PipelineConfig{
			Workers: 1,
			JobName: DefaultJobName,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/zipcsv.log",
		},
		Telemetry: TelemetryConfig{
			TraceExporter:  "none",
			MetricExporter: "none",
		},
	}
}
