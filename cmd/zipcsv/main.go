package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"zipcsv/internal/app"
	"zipcsv/internal/config"
	"zipcsv/internal/infrastructure"
	"zipcsv/pkg/contracts"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// cliFlags holds command-line overrides of the loaded configuration
type cliFlags struct {
	configPath  string
	input       string
	output      string
	appendOut   bool
	workers     int
	metricsAddr string
	version     bool
	set         map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (*cliFlags, error) {
	fs := flag.NewFlagSet(config.AppName, flag.ContinueOnError)
	fs.SetOutput(stderr)

	f := &cliFlags{set: map[string]bool{}}
	fs.StringVar(&f.configPath, "config", "", "path to a YAML configuration file")
	fs.StringVar(&f.input, "input", "", "input zip archive (path or file:// URI)")
	fs.StringVar(&f.output, "output", "", "output CSV file")
	fs.BoolVar(&f.appendOut, "append", false, "append to the output file instead of replacing it")
	fs.IntVar(&f.workers, "workers", 0, "partitions read concurrently (1 = sequential)")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "serve /health, /status and /metrics on this address during the run")
	fs.BoolVar(&f.version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })
	return f, nil
}

// apply overrides cfg with the flags given on the command line
func (f *cliFlags) apply(cfg *config.Config) {
	if f.set["input"] {
		cfg.Input.File = f.input
	}
	if f.set["output"] {
		cfg.Output.File = f.output
	}
	if f.set["append"] {
		cfg.Output.Append = f.appendOut
	}
	if f.set["workers"] {
		cfg.Pipeline.Workers = f.workers
	}
	if f.set["metrics-addr"] {
		cfg.Telemetry.MetricsAddr = f.metricsAddr
		if cfg.Telemetry.MetricExporter == "none" {
			cfg.Telemetry.MetricExporter = "prometheus"
		}
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags, err := parseFlags(args, stderr)
	if err != nil {
		return app.ExitUsage
	}
	if flags.version {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return app.ExitOK
	}

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", config.AppName, err)
		return app.ExitUsage
	}
	flags.apply(cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", config.AppName, err)
		return app.ExitUsage
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "%s: failed to initialize logger: %v\n", config.AppName, err)
		return app.ExitFailure
	}
	defer infrastructure.CloseLogFile()

	application, err := app.NewApplication(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application", slog.String("error", err.Error()))
		return app.ExitCode(err)
	}
	defer func() {
		if err := application.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	summary, err := application.Run(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", config.AppName, err)
		return app.ExitCode(err)
	}

	fmt.Fprintf(stdout, "%s: wrote %d records from %d partitions to %s in %s\n",
		cfg.Pipeline.JobName, summary.Records, summary.Partitions, summary.Output, summary.Duration.Round(time.Millisecond))
	return app.ExitOK
}
