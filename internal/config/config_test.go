package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "zipcsv.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0644))
	return p
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, PatternList{"MM/dd/yyyy", "MMMM d, yyyy"}, cfg.Input.DatePatterns)
	assert.Equal(t, ".csv", cfg.Input.Extension)
	assert.Equal(t, ",", cfg.Input.Delimiter)
	assert.Equal(t, 1, cfg.Input.LinesToSkip)
	assert.Equal(t, "dd/MM/yyyy", cfg.Output.DatePattern)
	assert.False(t, cfg.Output.Append)
	assert.Equal(t, 1, cfg.Pipeline.Workers)
	assert.Equal(t, "zipToCsv", cfg.Pipeline.JobName)
	assert.Equal(t, "none", cfg.Telemetry.TraceExporter)

	err := cfg.Validate()
	require.Error(t, err, "input and output files have no default")
	assert.Contains(t, err.Error(), "Input.File")
	assert.Contains(t, err.Error(), "Output.File")
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		env      map[string]string
		validate func(*testing.T, *Config)
	}{
		{
			name: "environment only",
			env: map[string]string{
				"ZIPCSV_INPUT_FILE":          "/data/people.zip",
				"ZIPCSV_OUTPUT_FILE":         "/data/out.csv",
				"ZIPCSV_INPUT_DATE_PATTERNS": "MMMM d, yyyy; yyyy-MM-dd ;",
				"ZIPCSV_OUTPUT_APPEND":       "true",
				"ZIPCSV_PIPELINE_WORKERS":    "4",
				"ZIPCSV_LOGGING_LEVEL":       "debug",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/data/people.zip", cfg.Input.File)
				assert.Equal(t, "/data/out.csv", cfg.Output.File)
				assert.Equal(t, PatternList{"MMMM d, yyyy", "yyyy-MM-dd"}, cfg.Input.DatePatterns)
				assert.True(t, cfg.Output.Append)
				assert.Equal(t, 4, cfg.Pipeline.Workers)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "dd/MM/yyyy", cfg.Output.DatePattern, "unset values keep defaults")
			},
		},
		{
			name: "yaml file",
			yaml: `
input:
  file: in.zip
  date_patterns:
    - dd.MM.yyyy
    - MMMM d, yyyy
output:
  file: out.csv
  date_pattern: yyyy-MM-dd
telemetry:
  metric_exporter: prometheus
  metrics_addr: ":9464"
`,
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "in.zip", cfg.Input.File)
				assert.Equal(t, PatternList{"dd.MM.yyyy", "MMMM d, yyyy"}, cfg.Input.DatePatterns)
				assert.Equal(t, "yyyy-MM-dd", cfg.Output.DatePattern)
				assert.Equal(t, "prometheus", cfg.Telemetry.MetricExporter)
				assert.Equal(t, ":9464", cfg.Telemetry.MetricsAddr)
				assert.Equal(t, ",", cfg.Input.Delimiter, "keys missing from the file keep defaults")
			},
		},
		{
			name: "yaml pattern string form",
			yaml: "input:\n  file: in.zip\n  date_patterns: \"MM/dd/yyyy;dd MMMM yyyy\"\noutput:\n  file: out.csv\n",
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, PatternList{"MM/dd/yyyy", "dd MMMM yyyy"}, cfg.Input.DatePatterns)
			},
		},
		{
			name: "environment overrides yaml",
			yaml: "input:\n  file: from-file.zip\noutput:\n  file: out.csv\npipeline:\n  workers: 2\n",
			env: map[string]string{
				"ZIPCSV_INPUT_FILE":        "from-env.zip",
				"ZIPCSV_PIPELINE_JOB_NAME": "nightly",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "from-env.zip", cfg.Input.File)
				assert.Equal(t, 2, cfg.Pipeline.Workers)
				assert.Equal(t, "nightly", cfg.Pipeline.JobName)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.yaml != "" {
				path = writeYAML(t, tt.yaml)
			}

			cfg, err := Load(path)
			require.NoError(t, err)
			require.NoError(t, cfg.Validate())
			tt.validate(t, cfg)
		})
	}
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := Load(writeYAML(t, "input:\n  zip: in.zip\n"))
		assert.Error(t, err)
	})

	t.Run("bad env value", func(t *testing.T) {
		t.Setenv("ZIPCSV_PIPELINE_WORKERS", "many")
		_, err := Load("")
		assert.ErrorContains(t, err, "from env")
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Input.File = "in.zip"
		cfg.Output.File = "out.csv"
		return cfg
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"no patterns", func(c *Config) { c.Input.DatePatterns = nil }, "Input.DatePatterns"},
		{"blank pattern", func(c *Config) { c.Input.DatePatterns = PatternList{"MM/dd/yyyy", ""} }, "Input.DatePatterns[1]"},
		{"extension without dot", func(c *Config) { c.Input.Extension = "csv" }, "Input.Extension"},
		{"negative skip", func(c *Config) { c.Input.LinesToSkip = -1 }, "Input.LinesToSkip"},
		{"zero workers", func(c *Config) { c.Pipeline.Workers = 0 }, "Pipeline.Workers"},
		{"unknown level", func(c *Config) { c.Logging.Level = "loud" }, "Logging.Level"},
		{"file output without path", func(c *Config) { c.Logging.Output = "file"; c.Logging.FilePath = "" }, "Logging.FilePath"},
		{"unknown exporter", func(c *Config) { c.Telemetry.TraceExporter = "otlp" }, "Telemetry.TraceExporter"},
		{"bad metrics address", func(c *Config) { c.Telemetry.MetricsAddr = "localhost" }, "Telemetry.MetricsAddr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestPatternList(t *testing.T) {
	var p PatternList
	require.NoError(t, p.Decode("MM/dd/yyyy;MMMM d, yyyy"))
	assert.Equal(t, PatternList{"MM/dd/yyyy", "MMMM d, yyyy"}, p)
	assert.Equal(t, "MM/dd/yyyy;MMMM d, yyyy", p.String())
}
