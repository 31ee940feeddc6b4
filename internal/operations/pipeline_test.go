package operations

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"zipcsv/internal/archive"
	"zipcsv/internal/dataprocessing"
	"zipcsv/internal/exporter"
	"zipcsv/internal/files"
	"zipcsv/internal/shared/testutil"
	"zipcsv/pkg/contracts/domain"
)

// mockFinder lets tests control discovery results.
type mockFinder struct {
	mock.Mock
}

func (m *mockFinder) FindPartitions(ctx context.Context, tree files.Tree) ([]domain.Partition, error) {
	args := m.Called(ctx, tree)
	if parts := args.Get(0); parts != nil {
		return parts.([]domain.Partition), args.Error(1)
	}
	return nil, args.Error(1)
}

func newMount(t *testing.T, entries ...testutil.ZipEntry) *archive.Mount {
	t.Helper()
	data := testutil.ZipBytes(t, entries...)
	m, err := archive.NewMount("memory.zip", bytes.NewReader(data), int64(len(data)), nil)
	require.NoError(t, err)
	return m
}

func newPipeline(t *testing.T, output string, workers int) *Pipeline {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	conv, err := dataprocessing.NewDateConverter([]string{"MM/dd/yyyy", "MMMM d, yyyy"})
	require.NoError(t, err)

	p, err := NewPipeline(files.NewDiscovery(".csv", logger), conv, Options{
		JobName:    "zipToCsv",
		OutputPath: output,
		Reader:     dataprocessing.DefaultReaderOptions(),
		Workers:    workers,
	}, logger)
	require.NoError(t, err)
	return p
}

func assertMountClosed(t *testing.T, m *archive.Mount) {
	t.Helper()
	_, err := m.Resolve("/anything.csv")
	assert.ErrorIs(t, err, archive.ErrMountClosed)
}

func TestPipelineRunConvertsDates(t *testing.T) {
	output := filepath.Join(t.TempDir(), "out", "result.csv")
	m := newMount(t,
		testutil.File("people/a.csv", testutil.PeopleCSV("Jane,Doe,January 5, 2020")),
	)

	p := newPipeline(t, output, 1)
	summary, err := p.Run(context.Background(), m)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"firstName,lastName,date",
		"Jane,Doe,05/01/2020",
	}, testutil.ReadLines(t, output))

	assert.Equal(t, "zipToCsv", summary.JobName)
	assert.Equal(t, "memory.zip", summary.Input)
	assert.Equal(t, output, summary.Output)
	assert.Equal(t, 1, summary.Partitions)
	assert.Equal(t, int64(1), summary.Records)
	assert.NotEmpty(t, summary.TraceID)

	snap := p.Progress().Snapshot()
	assert.Equal(t, RunStatusSucceeded, snap.Status)
	assert.Equal(t, 1, snap.PartitionsDone)
	assert.Equal(t, int64(1), snap.RecordsWritten)

	assertMountClosed(t, m)
}

func TestPipelineRunPartitionOrder(t *testing.T) {
	entries := []testutil.ZipEntry{
		testutil.File("z/late.csv", testutil.PeopleCSV("Zoe,Zed,12/31/1999")),
		testutil.Dir("a"),
		testutil.File("a/early.csv", testutil.PeopleCSV(
			"Ann,Arbor,01/02/2003",
			"Ben,Bow,March 4, 2005",
		)),
		testutil.File("a/notes.txt", "ignored"),
		testutil.File("m.csv", testutil.PeopleCSV("Max,Mid,07/08/2010")),
	}
	want := []string{
		"firstName,lastName,date",
		"Ann,Arbor,02/01/2003",
		"Ben,Bow,04/03/2005",
		"Max,Mid,08/07/2010",
		"Zoe,Zed,31/12/1999",
	}

	for _, workers := range []int{1, 2, 8} {
		output := filepath.Join(t.TempDir(), "result.csv")
		m := newMount(t, entries...)

		summary, err := newPipeline(t, output, workers).Run(context.Background(), m)
		require.NoError(t, err, "workers=%d", workers)

		assert.Equal(t, want, testutil.ReadLines(t, output), "workers=%d", workers)
		assert.Equal(t, 3, summary.Partitions)
		assert.Equal(t, int64(4), summary.Records)
		assertMountClosed(t, m)
	}
}

func TestPipelineRunNoPartitions(t *testing.T) {
	output := filepath.Join(t.TempDir(), "result.csv")
	m := newMount(t, testutil.File("readme.txt", "nothing here"))

	summary, err := newPipeline(t, output, 1).Run(context.Background(), m)
	require.NoError(t, err)

	assert.Equal(t, []string{"firstName,lastName,date"}, testutil.ReadLines(t, output))
	assert.Zero(t, summary.Partitions)
	assert.Zero(t, summary.Records)
	assertMountClosed(t, m)
}

func TestPipelineRunHeaderOnlyPartitions(t *testing.T) {
	output := filepath.Join(t.TempDir(), "result.csv")
	m := newMount(t,
		testutil.File("a.csv", testutil.PeopleCSV()),
		testutil.File("b.csv", ""),
		testutil.File("c.csv", testutil.PeopleCSV("Cy,Coe,10/11/2012")),
	)

	summary, err := newPipeline(t, output, 1).Run(context.Background(), m)
	require.NoError(t, err)

	assert.Equal(t, []string{"firstName,lastName,date", "Cy,Coe,11/10/2012"}, testutil.ReadLines(t, output))
	assert.Equal(t, 3, summary.Partitions)
	assert.Equal(t, int64(1), summary.Records)
}

func TestPipelineRunStopsAtMalformedLine(t *testing.T) {
	entries := []testutil.ZipEntry{
		testutil.File("a.csv", testutil.PeopleCSV("Ann,Arbor,01/02/2003")),
		testutil.File("b.csv", testutil.PeopleCSV(
			"Bea,Bell,02/03/2004",
			"only,two",
		)),
		testutil.File("c.csv", testutil.PeopleCSV("Cy,Coe,10/11/2012")),
	}

	for _, workers := range []int{1, 3} {
		output := filepath.Join(t.TempDir(), "result.csv")
		m := newMount(t, entries...)
		p := newPipeline(t, output, workers)

		_, err := p.Run(context.Background(), m)
		require.Error(t, err, "workers=%d", workers)

		var opErr *OperationError
		require.ErrorAs(t, err, &opErr)
		assert.Equal(t, ErrorTypeRead, opErr.Type)
		assert.Equal(t, StepPartition, opErr.Step)
		assert.Equal(t, "/b.csv", opErr.Partition)

		var rowErr *dataprocessing.RowParseError
		require.ErrorAs(t, err, &rowErr)
		assert.Equal(t, 3, rowErr.Line)

		lines := testutil.ReadLines(t, output)
		assert.Equal(t, "firstName,lastName,date", lines[0])
		assert.NotContains(t, lines, "Cy,Coe,11/10/2012")

		assert.Equal(t, RunStatusFailed, p.Progress().Snapshot().Status)
		assertMountClosed(t, m)
	}
}

func TestPipelineRunInvalidDate(t *testing.T) {
	output := filepath.Join(t.TempDir(), "result.csv")
	m := newMount(t, testutil.File("a.csv", testutil.PeopleCSV("Ann,Arbor,someday")))

	_, err := newPipeline(t, output, 1).Run(context.Background(), m)
	require.Error(t, err)

	var dateErr *dataprocessing.DateParseError
	require.ErrorAs(t, err, &dateErr)
	assert.Equal(t, "someday", dateErr.Value)
	assert.Equal(t, ErrorTypeRead, GetErrorType(err))
}

func TestPipelineRunDiscoveryFailure(t *testing.T) {
	output := filepath.Join(t.TempDir(), "result.csv")
	m := newMount(t, testutil.File("a.csv", testutil.PeopleCSV()))

	finder := &mockFinder{}
	finder.On("FindPartitions", mock.Anything, m).
		Return(nil, &files.DiscoveryError{Path: "/", Err: errors.New("corrupt directory")})

	conv, err := dataprocessing.NewDateConverter([]string{"MM/dd/yyyy"})
	require.NoError(t, err)
	p, err := NewPipeline(finder, conv, Options{OutputPath: output}, nil)
	require.NoError(t, err)

	_, err = p.Run(context.Background(), m)
	require.Error(t, err)
	assert.Equal(t, ErrorTypeDiscovery, GetErrorType(err))

	var discErr *files.DiscoveryError
	assert.ErrorAs(t, err, &discErr)

	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr), "output must not be created when discovery fails")

	finder.AssertExpectations(t)
	assertMountClosed(t, m)
}

func TestPipelineRunOutputFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	m := newMount(t, testutil.File("a.csv", testutil.PeopleCSV("Ann,Arbor,01/02/2003")))

	_, err := newPipeline(t, filepath.Join(blocker, "result.csv"), 1).Run(context.Background(), m)
	require.Error(t, err)

	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, ErrorTypeWrite, opErr.Type)
	assert.Equal(t, StepOpen, opErr.Step)
	assertMountClosed(t, m)
}

func TestPipelineRunCancelled(t *testing.T) {
	output := filepath.Join(t.TempDir(), "result.csv")
	m := newMount(t, testutil.File("a.csv", testutil.PeopleCSV("Ann,Arbor,01/02/2003")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newPipeline(t, output, 1).Run(ctx, m)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, ErrorTypeCancellation, GetErrorType(err))
	assertMountClosed(t, m)
}

func TestPipelineRunAppend(t *testing.T) {
	output := filepath.Join(t.TempDir(), "result.csv")
	logger, _ := testutil.NewTestLogger(t)
	conv, err := dataprocessing.NewDateConverter([]string{"MM/dd/yyyy"})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		p, err := NewPipeline(files.NewDiscovery("", logger), conv, Options{
			OutputPath: output,
			Reader:     dataprocessing.DefaultReaderOptions(),
			Writer:     exporter.WriterOptions{Append: true},
		}, logger)
		require.NoError(t, err)

		m := newMount(t, testutil.File("a.csv", testutil.PeopleCSV("Ann,Arbor,01/02/2003")))
		_, err = p.Run(context.Background(), m)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{
		"firstName,lastName,date",
		"Ann,Arbor,02/01/2003",
		"firstName,lastName,date",
		"Ann,Arbor,02/01/2003",
	}, testutil.ReadLines(t, output))
}

func TestNewPipelineValidation(t *testing.T) {
	conv, err := dataprocessing.NewDateConverter([]string{"MM/dd/yyyy"})
	require.NoError(t, err)
	finder := files.NewDiscovery("", nil)

	tests := []struct {
		name      string
		finder    PartitionFinder
		converter *dataprocessing.DateConverter
		opts      Options
	}{
		{name: "missing finder", converter: conv, opts: Options{OutputPath: "out.csv"}},
		{name: "missing converter", finder: finder, opts: Options{OutputPath: "out.csv"}},
		{name: "missing output", finder: finder, converter: conv},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPipeline(tt.finder, tt.converter, tt.opts, nil)
			require.Error(t, err)
			assert.Equal(t, ErrorTypeValidation, GetErrorType(err))
		})
	}

	p, err := NewPipeline(finder, conv, Options{OutputPath: "out.csv", Workers: -3}, nil,
		WithProgress(NewProgressTracker("custom")))
	require.NoError(t, err)
	assert.Equal(t, 1, p.opts.Workers)
	assert.Equal(t, "custom", p.Progress().Snapshot().JobName)
}
