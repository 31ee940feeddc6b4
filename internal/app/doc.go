// Package app wires one zip to CSV job: it validates the configuration,
// initializes OpenTelemetry, builds the pipeline from the configured
// discovery, date patterns and writer options, mounts the input archive and
// runs the job to completion.
//
// # Usage
//
//	application, err := app.NewApplication(cfg, logger)
//	if err != nil {
//	    os.Exit(app.ExitCode(err))
//	}
//	defer application.Close(ctx)
//
//	summary, err := application.Run(ctx)
//	os.Exit(app.ExitCode(err))
//
// # Ops endpoints
//
// When Telemetry.MetricsAddr is set, Run serves /health, /version, /status
// and /metrics for the duration of the run and samples runtime gauges in
// the background. Both stop before Run returns.
//
// # Error Handling
//
// Errors are returned to the caller; the package never calls os.Exit.
// ExitCode maps them to 0 (success), 1 (run failure), 2 (invalid
// configuration) or 130 (cancelled).
package app
