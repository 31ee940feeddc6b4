package config

const (
	// AppName is used for the OpenTelemetry service name and log attributes
	AppName = "zipcsv"

	// EnvPrefix namespaces every environment variable, e.g. ZIPCSV_INPUT_FILE
	EnvPrefix = "ZIPCSV"

	// DefaultJobName labels runs in logs and traces
	DefaultJobName = "zipToCsv"

	// PatternSeparator splits the environment form of a pattern list
	PatternSeparator = ";"
)
