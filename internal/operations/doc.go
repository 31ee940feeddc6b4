// Package operations drives a zip to CSV run.
//
// A Pipeline discovers the partitions of a mounted archive, opens the output
// writer once and copies every record of every partition into it, in
// discovery order. The run stops at the first failure; the writer and then
// the mount are closed on every exit path.
//
// # Execution modes
//
// With Options.Workers at 1 partitions are read and written one after the
// other. With more workers partitions are read concurrently into memory
// buffers while the writer drains the buffers strictly in discovery order,
// so the output is identical to a sequential run.
//
// # Errors
//
// Every failure is returned as an *OperationError carrying its type
// (discovery, read, write, cancellation, fatal), the step it happened in and,
// when relevant, the partition path. The underlying error stays reachable
// with errors.As:
//
//	var rowErr *dataprocessing.RowParseError
//	if errors.As(err, &rowErr) {
//	    // rowErr.Path, rowErr.Line
//	}
//
// # Observability
//
// PipelineTracer emits the pipeline.run, pipeline.discover and
// pipeline.partition spans and the zipcsv_* counters. ProgressTracker holds
// the snapshot served on /status.
package operations
