package operations

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"zipcsv/internal/dataprocessing"
	"zipcsv/internal/exporter"
	"zipcsv/internal/files"
	"zipcsv/internal/infrastructure"
	"zipcsv/pkg/contracts/domain"
)

// Mount is the archive a run reads from. The pipeline owns it for the
// duration of Run and closes it on every exit path.
type Mount interface {
	files.Tree
	dataprocessing.FileResolver
	Locator() string
	Close() error
}

// PartitionFinder lists the partitions of a mounted tree
type PartitionFinder interface {
	FindPartitions(ctx context.Context, tree files.Tree) ([]domain.Partition, error)
}

// Options configures a Pipeline
type Options struct {
	JobName    string
	OutputPath string
	Reader     dataprocessing.ReaderOptions
	Writer     exporter.WriterOptions

	// Workers above 1 reads partitions concurrently; writes stay in discovery order
	Workers int
}

// RunSummary describes a completed run
type RunSummary struct {
	JobName    string        `json:"job_name"`
	TraceID    string        `json:"trace_id"`
	Input      string        `json:"input"`
	Output     string        `json:"output"`
	Partitions int           `json:"partitions"`
	Records    int64         `json:"records"`
	Duration   time.Duration `json:"duration"`
}

// Pipeline copies every partition of a mount into one output file
type Pipeline struct {
	finder    PartitionFinder
	converter *dataprocessing.DateConverter
	opts      Options
	logger    *slog.Logger
	tracer    *PipelineTracer
	progress  *ProgressTracker
}

// Option customizes a Pipeline
type Option func(*Pipeline)

// WithTracer sets the tracer used for spans and metrics
func WithTracer(t *PipelineTracer) Option {
	return func(p *Pipeline) { p.tracer = t }
}

// WithProgress sets the tracker updated while the run executes
func WithProgress(t *ProgressTracker) Option {
	return func(p *Pipeline) { p.progress = t }
}

// NewPipeline creates a pipeline. Without WithTracer the global OpenTelemetry
// providers are used.
func NewPipeline(finder PartitionFinder, converter *dataprocessing.DateConverter, opts Options, logger *slog.Logger, options ...Option) (*Pipeline, error) {
	if finder == nil {
		return nil, NewValidationError("", "partition finder is required")
	}
	if converter == nil {
		return nil, NewValidationError("", "date converter is required")
	}
	if opts.OutputPath == "" {
		return nil, NewValidationError(StepOpen, "output path is required")
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pipeline{
		finder:    finder,
		converter: converter,
		opts:      opts,
		logger:    infrastructure.WithComponent(logger, "pipeline"),
	}
	for _, o := range options {
		o(p)
	}

	if p.progress == nil {
		p.progress = NewProgressTracker(opts.JobName)
	}
	if p.tracer == nil {
		t, err := NewPipelineTracer(nil)
		if err != nil {
			return nil, NewFatalError("failed to create tracer", err)
		}
		p.tracer = t
	}
	return p, nil
}

// Progress returns the tracker updated by Run
func (p *Pipeline) Progress() *ProgressTracker {
	return p.progress
}

// Run discovers the partitions of mount, writes all their records to the
// output file and closes the writer and then the mount, on success and on
// failure alike. The first malformed line aborts the run; output written up
// to that point is incomplete.
func (p *Pipeline) Run(ctx context.Context, mount Mount) (summary RunSummary, err error) {
	ctx = infrastructure.EnsureTraceID(ctx)
	start := time.Now()

	summary = RunSummary{
		JobName: p.opts.JobName,
		TraceID: infrastructure.GetTraceID(ctx),
		Input:   mount.Locator(),
		Output:  p.opts.OutputPath,
	}

	ctx, span := p.tracer.TraceRun(ctx, p.opts.JobName, mount.Locator())
	defer span.End()

	p.progress.Start()
	p.logger.InfoContext(ctx, "Pipeline run started",
		slog.String("job", p.opts.JobName),
		slog.String("input", mount.Locator()),
		slog.String("output", p.opts.OutputPath),
		slog.Int("workers", p.opts.Workers))

	defer func() {
		if cerr := mount.Close(); cerr != nil {
			err = errors.Join(err, &OperationError{
				Type:    ErrorTypeFatal,
				Step:    StepClose,
				Message: "failed to close archive",
				Cause:   cerr,
			})
		}

		summary.Duration = time.Since(start)
		p.progress.Finish(err)
		p.tracer.RecordRunCompletion(ctx, span, summary, err)

		if err != nil {
			p.logger.ErrorContext(ctx, "Pipeline run failed",
				slog.String("error", err.Error()),
				slog.String("error_type", string(GetErrorType(err))),
				slog.Int64("records", summary.Records))
			return
		}
		p.logger.InfoContext(ctx, "Pipeline run completed",
			slog.Int("partitions", summary.Partitions),
			slog.Int64("records", summary.Records),
			slog.Duration("duration", summary.Duration))
	}()

	partitions, err := p.discover(ctx, mount)
	if err != nil {
		return summary, err
	}
	summary.Partitions = len(partitions)
	p.progress.SetTotal(len(partitions))

	writer, err := exporter.OpenRecordWriter(p.opts.OutputPath, p.opts.Writer, p.logger)
	if err != nil {
		return summary, WrapError(err, ErrorTypeWrite, StepOpen, "failed to open output")
	}
	defer func() {
		if cerr := writer.Close(); cerr != nil {
			err = errors.Join(err, WrapError(cerr, ErrorTypeWrite, StepClose, "failed to close output"))
		}
	}()

	if p.opts.Workers > 1 && len(partitions) > 1 {
		err = p.runParallel(ctx, mount, partitions, writer)
	} else {
		err = p.runSequential(ctx, mount, partitions, writer)
	}
	summary.Records = int64(writer.Written())
	return summary, err
}

func (p *Pipeline) discover(ctx context.Context, mount Mount) ([]domain.Partition, error) {
	ctx, span := p.tracer.TraceDiscovery(ctx)
	defer span.End()

	partitions, err := p.finder.FindPartitions(ctx, mount)
	p.tracer.RecordDiscovery(ctx, span, len(partitions), err)
	if err != nil {
		return nil, WrapError(err, ErrorTypeDiscovery, StepDiscover, "partition discovery failed")
	}
	return partitions, nil
}

func (p *Pipeline) runSequential(ctx context.Context, mount Mount, partitions []domain.Partition, writer *exporter.RecordWriter) error {
	for _, part := range partitions {
		p.progress.StartPartition(part.Path)

		err := p.readPartition(ctx, mount, part, func(ctx context.Context, rec domain.Record) error {
			if err := writer.Write(rec); err != nil {
				return err
			}
			p.tracer.RecordWritten(ctx, 1)
			p.progress.AddRecords(1)
			return nil
		})
		if err != nil {
			return err
		}
		p.progress.FinishPartition()
	}
	return nil
}

// partitionBuffer holds one partition's records read ahead in parallel mode.
type partitionBuffer struct {
	records []domain.Record
	err     error
	done    chan struct{}
}

// runParallel reads partitions on up to Workers goroutines into per-partition
// buffers and writes the buffers strictly in discovery order.
func (p *Pipeline) runParallel(ctx context.Context, mount Mount, partitions []domain.Partition, writer *exporter.RecordWriter) error {
	buffers := make([]*partitionBuffer, len(partitions))
	for i := range buffers {
		buffers[i] = &partitionBuffer{done: make(chan struct{})}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)

	var scheduling sync.WaitGroup
	scheduling.Add(1)
	go func() {
		defer scheduling.Done()
		for i, part := range partitions {
			buf := buffers[i]
			part := part
			g.Go(func() error {
				defer close(buf.done)
				buf.err = p.readPartition(gctx, mount, part, func(_ context.Context, rec domain.Record) error {
					buf.records = append(buf.records, rec)
					return nil
				})
				return buf.err
			})
		}
	}()

	wait := func() error {
		scheduling.Wait()
		return g.Wait()
	}

	for i, part := range partitions {
		buf := buffers[i]
		select {
		case <-buf.done:
		case <-ctx.Done():
			wait()
			return NewCancellationError(StepPartition, ctx.Err())
		}

		if buf.err != nil {
			first := wait()
			// A sibling's failure cancels gctx; report the root cause instead of the cancellation it caused.
			if errors.Is(buf.err, context.Canceled) && ctx.Err() == nil && first != nil {
				return first
			}
			return buf.err
		}

		p.progress.StartPartition(part.Path)
		for _, rec := range buf.records {
			if err := writer.Write(rec); err != nil {
				wait()
				return &OperationError{
					Type:      ErrorTypeWrite,
					Step:      StepPartition,
					Partition: part.Path,
					Message:   "failed to write record",
					Cause:     err,
				}
			}
		}
		n := int64(len(buf.records))
		p.tracer.RecordWritten(ctx, n)
		p.progress.AddRecords(n)
		p.progress.FinishPartition()
		buf.records = nil
	}

	return wait()
}

// readPartition drains one partition through emit. Errors come back as
// *OperationError carrying the partition path.
func (p *Pipeline) readPartition(ctx context.Context, mount Mount, part domain.Partition, emit func(context.Context, domain.Record) error) (err error) {
	start := time.Now()
	ctx, span := p.tracer.TracePartition(ctx, part.Path)
	defer span.End()

	var records int64
	defer func() {
		p.tracer.RecordPartitionCompletion(ctx, span, part.Path, records, time.Since(start), err)
	}()

	reader, err := dataprocessing.OpenRecordReader(ctx, mount, part, p.converter, p.opts.Reader, p.logger)
	if err != nil {
		return p.partitionError(part, ErrorTypeRead, "failed to open partition", err)
	}
	defer reader.Close()

	for {
		rec, err := reader.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var rowErr *dataprocessing.RowParseError
			if errors.As(err, &rowErr) {
				p.tracer.RecordRowError(ctx, part.Path)
				return p.partitionError(part, ErrorTypeRead, fmt.Sprintf("malformed line %d", rowErr.Line), err)
			}
			return p.partitionError(part, ErrorTypeRead, "failed to read partition", err)
		}
		p.tracer.RecordRead(ctx)

		if err := emit(ctx, rec); err != nil {
			return p.partitionError(part, ErrorTypeWrite, "failed to write record", err)
		}
		records++
	}

	p.logger.DebugContext(ctx, "Partition drained",
		slog.String("partition", part.Path),
		slog.Int64("records", records))
	return nil
}

func (p *Pipeline) partitionError(part domain.Partition, typ ErrorType, message string, err error) *OperationError {
	opErr := WrapError(err, typ, StepPartition, message)
	opErr.Partition = part.Path
	return opErr
}
