package dataprocessing

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"zipcsv/pkg/contracts/domain"
)

// fieldCount is the number of columns in an input line.
const fieldCount = 3

// FileResolver opens partition files by absolute in-mount path.
type FileResolver interface {
	Resolve(path string) (io.ReadCloser, error)
}

// ReaderOptions configures how partition lines are read.
type ReaderOptions struct {
	// Delimiter separates the columns of a line
	Delimiter string

	// LinesToSkip is the number of leading lines discarded on open
	LinesToSkip int
}

// DefaultReaderOptions returns comma-delimited options that skip one header line.
func DefaultReaderOptions() ReaderOptions {
	return ReaderOptions{
		Delimiter:   ",",
		LinesToSkip: 1,
	}
}

// ReaderState is the lifecycle position of a RecordReader.
type ReaderState int

const (
	ReaderUnopened ReaderState = iota
	ReaderOpen
	ReaderExhausted
	ReaderFailed
)

func (s ReaderState) String() string {
	switch s {
	case ReaderUnopened:
		return "unopened"
	case ReaderOpen:
		return "open"
	case ReaderExhausted:
		return "exhausted"
	case ReaderFailed:
		return "failed"
	default:
		return fmt.Sprintf("ReaderState(%d)", int(s))
	}
}

// ErrReaderState is returned when an operation is not valid in the reader's state.
var ErrReaderState = errors.New("invalid record reader state")

// RowParseError reports a line that could not be turned into a record.
type RowParseError struct {
	Path   string
	Line   int
	Raw    string
	Reason string
	Err    error
}

func (e *RowParseError) Error() string {
	msg := fmt.Sprintf("%s:%d: %s: %q", e.Path, e.Line, e.Reason, e.Raw)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RowParseError) Unwrap() error { return e.Err }

// ReadError reports an I/O failure while reading a partition.
type ReadError struct {
	Path string
	Line int
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s at line %d: %v", e.Path, e.Line, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// RecordReader produces records from one partition, one line at a time.
// It is forward-only and cannot be reopened once exhausted or failed.
type RecordReader struct {
	partition domain.Partition
	resolver  FileResolver
	converter *DateConverter
	opts      ReaderOptions
	logger    *slog.Logger

	state    ReaderState
	handle   io.ReadCloser
	lines    *bufio.Reader
	line     int
	records  int
	err      error
	progress rate.Sometimes
}

// NewRecordReader creates an unopened reader for partition.
func NewRecordReader(resolver FileResolver, partition domain.Partition, converter *DateConverter, opts ReaderOptions, logger *slog.Logger) *RecordReader {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Delimiter == "" {
		opts.Delimiter = ","
	}
	if opts.LinesToSkip < 0 {
		opts.LinesToSkip = 0
	}

	return &RecordReader{
		partition: partition,
		resolver:  resolver,
		converter: converter,
		opts:      opts,
		logger: logger.With(
			slog.String("component", "record_reader"),
			slog.String("partition", partition.Path)),
		progress: rate.Sometimes{Interval: 5 * time.Second},
	}
}

// OpenRecordReader creates a reader for partition and opens it.
func OpenRecordReader(ctx context.Context, resolver FileResolver, partition domain.Partition, converter *DateConverter, opts ReaderOptions, logger *slog.Logger) (*RecordReader, error) {
	r := NewRecordReader(resolver, partition, converter, opts, logger)
	if err := r.Open(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Open resolves the partition and discards the configured leading lines.
// A file with fewer lines than that still opens; the first Next reports io.EOF.
func (r *RecordReader) Open(ctx context.Context) error {
	if r.state != ReaderUnopened {
		return fmt.Errorf("%w: open %s while %s", ErrReaderState, r.partition.Path, r.state)
	}

	handle, err := r.resolver.Resolve(r.partition.Path)
	if err != nil {
		return r.fail(fmt.Errorf("open partition %s: %w", r.partition.Path, err))
	}
	r.handle = handle
	r.lines = bufio.NewReader(handle)
	r.state = ReaderOpen

	for i := 0; i < r.opts.LinesToSkip; i++ {
		_, err := r.readLine(ctx)
		if errors.Is(err, io.EOF) {
			r.state = ReaderExhausted
			break
		}
		if err != nil {
			return r.fail(err)
		}
	}

	r.logger.DebugContext(ctx, "Partition opened", slog.Int("skipped_lines", r.line))
	return nil
}

// Next returns the next record. It returns io.EOF once the partition is
// exhausted and a *RowParseError for a malformed line; after any error the
// reader stays failed and keeps returning that error.
func (r *RecordReader) Next(ctx context.Context) (domain.Record, error) {
	switch r.state {
	case ReaderExhausted:
		return domain.Record{}, io.EOF
	case ReaderFailed:
		return domain.Record{}, r.err
	case ReaderUnopened:
		return domain.Record{}, fmt.Errorf("%w: read %s before open", ErrReaderState, r.partition.Path)
	}

	raw, err := r.readLine(ctx)
	if errors.Is(err, io.EOF) {
		r.state = ReaderExhausted
		r.logger.DebugContext(ctx, "Partition exhausted", slog.Int("records", r.records))
		return domain.Record{}, io.EOF
	}
	if err != nil {
		return domain.Record{}, r.fail(err)
	}

	rec, err := r.parse(raw)
	if err != nil {
		return domain.Record{}, r.fail(err)
	}

	r.records++
	r.progress.Do(func() {
		r.logger.InfoContext(ctx, "Reading partition",
			slog.Int("line", r.line),
			slog.Int("records", r.records))
	})
	return rec, nil
}

// State returns the reader's lifecycle state.
func (r *RecordReader) State() ReaderState {
	return r.state
}

// Partition returns the partition being read.
func (r *RecordReader) Partition() domain.Partition {
	return r.partition
}

// Line returns the number of the last line consumed, counting from 1.
func (r *RecordReader) Line() int {
	return r.line
}

// Close releases the partition handle. It does not close the mount.
func (r *RecordReader) Close() error {
	if r.handle == nil {
		return nil
	}
	err := r.handle.Close()
	r.handle = nil
	if r.state == ReaderOpen {
		r.state = ReaderExhausted
	}
	return err
}

func (r *RecordReader) fail(err error) error {
	r.state = ReaderFailed
	r.err = err
	return err
}

// readLine returns the next line without its terminator. A final line
// without a newline is returned; io.EOF is returned only when nothing is left.
func (r *RecordReader) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if h, ok := r.handle.(interface{ Err() error }); ok {
		if err := h.Err(); err != nil {
			return "", &ReadError{Path: r.partition.Path, Line: r.line + 1, Err: err}
		}
	}

	s, err := r.lines.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", &ReadError{Path: r.partition.Path, Line: r.line + 1, Err: err}
	}
	if errors.Is(err, io.EOF) && s == "" {
		return "", io.EOF
	}

	r.line++
	s = strings.TrimSuffix(s, "\n")
	s = strings.TrimSuffix(s, "\r")
	return s, nil
}

func (r *RecordReader) parse(raw string) (domain.Record, error) {
	fields := strings.SplitN(raw, r.opts.Delimiter, fieldCount)
	if len(fields) != fieldCount {
		return domain.Record{}, &RowParseError{
			Path:   r.partition.Path,
			Line:   r.line,
			Raw:    raw,
			Reason: fmt.Sprintf("expected %d fields, got %d", fieldCount, len(fields)),
		}
	}

	date, err := r.converter.Convert(unquote(strings.TrimSpace(fields[2])))
	if err != nil {
		return domain.Record{}, &RowParseError{
			Path:   r.partition.Path,
			Line:   r.line,
			Raw:    raw,
			Reason: "invalid date",
			Err:    err,
		}
	}

	return domain.Record{
		FirstName: unquote(fields[0]),
		LastName:  unquote(fields[1]),
		Date:      date,
	}, nil
}

// unquote strips one pair of enclosing double quotes and collapses doubled quotes inside.
func unquote(field string) string {
	if len(field) >= 2 && strings.HasPrefix(field, `"`) && strings.HasSuffix(field, `"`) {
		return strings.ReplaceAll(field[1:len(field)-1], `""`, `"`)
	}
	return field
}
