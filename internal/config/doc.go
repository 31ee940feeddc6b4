// Package config loads the zipcsv job configuration.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. A YAML file passed to Load
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern ZIPCSV_<SECTION>_<KEY>:
//
//	ZIPCSV_INPUT_FILE=/data/people.zip
//	ZIPCSV_INPUT_DATE_PATTERNS="MM/dd/yyyy;MMMM d, yyyy"
//	ZIPCSV_OUTPUT_FILE=/data/people.csv
//	ZIPCSV_OUTPUT_DATE_PATTERN=dd/MM/yyyy
//	ZIPCSV_PIPELINE_WORKERS=4
//	ZIPCSV_LOGGING_LEVEL=debug
//	ZIPCSV_TELEMETRY_METRICS_ADDR=:9464
//
// Date patterns are ordered; the first one that parses a value wins, so
// "01/02/2020" is January 2nd with "MM/dd/yyyy" first and February 1st
// with "dd/MM/yyyy" first.
//
// # Usage
//
//	cfg, err := config.Load("zipcsv.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// apply command-line overrides, then
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config
