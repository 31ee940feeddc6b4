package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"zipcsv/internal/archive"
	"zipcsv/internal/config"
	"zipcsv/internal/dataprocessing"
	"zipcsv/internal/exporter"
	"zipcsv/internal/files"
	"zipcsv/internal/infrastructure"
	"zipcsv/internal/operations"
	"zipcsv/internal/validation"
	handlers "zipcsv/internal/transport/http"
	"zipcsv/pkg/contracts"
)

const (
	// ShutdownTimeout bounds the ops server and telemetry shutdown after a run
	ShutdownTimeout = 10 * time.Second

	// SystemMetricsInterval is how often runtime gauges are sampled while the ops server runs
	SystemMetricsInterval = 15 * time.Second
)

// Exit codes returned by ExitCode
const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitUsage     = 2
	ExitCancelled = 130
)

// Application runs one zip to CSV job with its telemetry and ops endpoints
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	StartTime     time.Time
}

// NewApplication validates cfg and initializes telemetry. A nil logger uses slog.Default.
func NewApplication(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, operations.NewValidationError("", err.Error())
	}

	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, operations.NewFatalError("failed to initialize OpenTelemetry", err)
	}

	return &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: providers,
		StartTime:     time.Now(),
	}, nil
}

// Run mounts the configured archive and runs the pipeline to completion.
// When a metrics address is configured the ops server runs alongside and is
// shut down before Run returns.
func (a *Application) Run(ctx context.Context) (summary operations.RunSummary, err error) {
	ctx = infrastructure.EnsureTraceID(ctx)
	cfg := a.Config

	a.Logger.InfoContext(ctx, "Application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.String("job", cfg.Pipeline.JobName))

	pipeline, err := a.buildPipeline()
	if err != nil {
		return summary, err
	}

	if err := a.preflight(); err != nil {
		return summary, err
	}

	if cfg.Telemetry.MetricsAddr != "" {
		stop, err := a.startOps(ctx, pipeline.Progress())
		if err != nil {
			return summary, err
		}
		defer func() {
			if serr := stop(); serr != nil {
				a.Logger.WarnContext(ctx, "Ops server shutdown failed", slog.String("error", serr.Error()))
			}
		}()
	}

	mount, err := archive.Open(cfg.Input.File, a.Logger)
	if err != nil {
		return summary, operations.WrapError(err, operations.ErrorTypeRead, operations.StepMount, "failed to mount input archive")
	}

	return pipeline.Run(ctx, mount)
}

// Close flushes and shuts down telemetry
func (a *Application) Close(ctx context.Context) error {
	if a.OTelProviders == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, ShutdownTimeout)
	defer cancel()
	return a.OTelProviders.Shutdown(shutdownCtx)
}

func (a *Application) buildPipeline() (*operations.Pipeline, error) {
	cfg := a.Config

	converter, err := dataprocessing.NewDateConverter(cfg.Input.DatePatterns)
	if err != nil {
		return nil, operations.NewValidationError("", fmt.Sprintf("input date patterns: %v", err))
	}

	tracer, err := operations.NewPipelineTracer(a.OTelProviders)
	if err != nil {
		return nil, operations.NewFatalError("failed to create pipeline tracer", err)
	}

	return operations.NewPipeline(
		files.NewDiscovery(cfg.Input.Extension, a.Logger),
		converter,
		operations.Options{
			JobName:    cfg.Pipeline.JobName,
			OutputPath: cfg.Output.File,
			Reader: dataprocessing.ReaderOptions{
				Delimiter:   cfg.Input.Delimiter,
				LinesToSkip: cfg.Input.LinesToSkip,
			},
			Writer: exporter.WriterOptions{
				Append:      cfg.Output.Append,
				DatePattern: cfg.Output.DatePattern,
			},
			Workers: cfg.Pipeline.Workers,
		},
		a.Logger,
		operations.WithTracer(tracer),
		operations.WithProgress(operations.NewProgressTracker(cfg.Pipeline.JobName)),
	)
}

// preflight checks the input archive and the output location before the ops
// server starts or the output file is touched. Input failures are reported as
// mount failures.
func (a *Application) preflight() error {
	v := validation.NewFileValidator(a.Logger)

	if err := v.ValidateInputArchive(a.Config.Input.File); err != nil {
		openErr := &archive.ArchiveOpenError{Locator: a.Config.Input.File, Err: err}
		return operations.WrapError(openErr, operations.ErrorTypeRead, operations.StepMount, "failed to mount input archive")
	}
	if err := v.ValidateOutputFile(a.Config.Output.File); err != nil {
		return operations.WrapError(err, operations.ErrorTypeWrite, operations.StepOpen, "output file is not writable")
	}
	return nil
}

// startOps starts the ops server and the system metrics collector. The
// returned func stops both.
func (a *Application) startOps(ctx context.Context, progress *operations.ProgressTracker) (func() error, error) {
	router, err := handlers.NewRouter(handlers.RouterConfig{
		Logger:    a.Logger,
		Providers: a.OTelProviders,
		Status:    progress,
		StartTime: a.StartTime,
	})
	if err != nil {
		return nil, operations.NewFatalError("failed to build ops router", err)
	}

	server, err := handlers.NewServer(a.Config.Telemetry.MetricsAddr, router, a.Logger)
	if err != nil {
		return nil, operations.NewFatalError("failed to start ops server", err)
	}

	collector, err := infrastructure.NewSystemMetricsCollector(a.OTelProviders.Meter, SystemMetricsInterval)
	if err != nil {
		server.Shutdown(ctx)
		return nil, operations.NewFatalError("failed to create system metrics collector", err)
	}

	collectCtx, stopCollector := context.WithCancel(ctx)
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		collector.Start(collectCtx)
	}()

	server.Start(ctx)

	return func() error {
		stopCollector()
		<-collected

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}, nil
}

// ExitCode maps a run error to a process exit code
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, context.Canceled) {
		return ExitCancelled
	}
	switch operations.GetErrorType(err) {
	case operations.ErrorTypeValidation:
		return ExitUsage
	case operations.ErrorTypeCancellation:
		return ExitCancelled
	default:
		return ExitFailure
	}
}
