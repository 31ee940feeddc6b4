package exporter

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"zipcsv/internal/datepattern"
	"zipcsv/pkg/contracts/domain"
)

// DefaultDatePattern is the output date pattern used when none is configured.
const DefaultDatePattern = "dd/MM/yyyy"

// ClosedWriterError is returned by Write after Close.
type ClosedWriterError struct {
	Path string
}

func (e *ClosedWriterError) Error() string {
	return fmt.Sprintf("write to closed record writer %s", e.Path)
}

// WriterOptions configures the output file
type WriterOptions struct {
	Append      bool   // Append to an existing file instead of truncating it
	Delimiter   string // Column delimiter, "," when empty
	DatePattern string // Output date pattern, DefaultDatePattern when empty
}

// column renders one record field.
type column struct {
	name   string
	format func(domain.Record) string
}

// RecordWriter writes records to a single delimited output file. The header
// line is written once per open, before any record. Values are written as-is;
// a value containing the delimiter produces an extra column.
type RecordWriter struct {
	path      string
	delimiter string
	columns   []column
	logger    *slog.Logger

	mu      sync.Mutex
	file    *os.File
	writer  *bufio.Writer
	written int
	closed  bool
}

// OpenRecordWriter creates (or appends to) the output file at path and writes the header.
func OpenRecordWriter(path string, opts WriterOptions, logger *slog.Logger) (*RecordWriter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Delimiter == "" {
		opts.Delimiter = ","
	}
	if opts.DatePattern == "" {
		opts.DatePattern = DefaultDatePattern
	}

	layout, err := datepattern.Compile(opts.DatePattern)
	if err != nil {
		return nil, fmt.Errorf("output date pattern: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY
	if opts.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open output file: %w", err)
	}

	w := &RecordWriter{
		path:      path,
		delimiter: opts.Delimiter,
		columns:   recordColumns(layout),
		logger:    logger.With(slog.String("component", "record_writer")),
		file:      file,
		writer:    bufio.NewWriter(file),
	}

	if err := w.writeLine(w.Header()); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	w.logger.Info("Output file opened",
		slog.String("path", path),
		slog.Bool("append", opts.Append),
		slog.String("date_pattern", layout.Pattern()))

	return w, nil
}

func recordColumns(date datepattern.Layout) []column {
	formatters := map[string]func(domain.Record) string{
		domain.FieldFirstName: func(r domain.Record) string { return r.FirstName },
		domain.FieldLastName:  func(r domain.Record) string { return r.LastName },
		domain.FieldDate:      func(r domain.Record) string { return date.Format(r.Date) },
	}

	cols := make([]column, 0, len(domain.FieldNames))
	for _, name := range domain.FieldNames {
		cols = append(cols, column{name: name, format: formatters[name]})
	}
	return cols
}

// Header returns the column names in output order.
func (w *RecordWriter) Header() []string {
	names := make([]string, len(w.columns))
	for i, c := range w.columns {
		names[i] = c.name
	}
	return names
}

// Path returns the output file path.
func (w *RecordWriter) Path() string {
	return w.path
}

// Written returns the number of records written since open.
func (w *RecordWriter) Written() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// Write formats record and appends it as one line.
func (w *RecordWriter) Write(record domain.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return &ClosedWriterError{Path: w.path}
	}

	fields := make([]string, len(w.columns))
	for i, c := range w.columns {
		fields[i] = c.format(record)
	}
	if err := w.writeLine(fields); err != nil {
		return fmt.Errorf("failed to write record %d: %w", w.written+1, err)
	}
	w.written++
	return nil
}

// Close flushes buffered lines and closes the file. It is idempotent.
func (w *RecordWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.writer.Flush(); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to flush output: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return err
	}

	w.logger.Info("Output file closed",
		slog.String("path", w.path),
		slog.Int("records", w.written))
	return nil
}

func (w *RecordWriter) writeLine(fields []string) error {
	if _, err := w.writer.WriteString(strings.Join(fields, w.delimiter)); err != nil {
		return err
	}
	return w.writer.WriteByte('\n')
}
