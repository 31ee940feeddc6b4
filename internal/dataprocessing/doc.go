// Package dataprocessing turns the lines of one partition into records.
//
// # Components
//
// DateConverter parses a raw date field against an ordered list of
// patterns. Ordinal suffixes ("1st", "22nd") are stripped first and the
// first pattern that accepts the value wins. When every pattern rejects it
// the DateParseError lists each pattern with its failure.
//
// RecordReader streams a partition line by line. The first LinesToSkip
// lines are dropped, every other line is split into exactly three fields
// (first name, last name, date) and the date goes through the converter.
// The reader moves from unopened to open to exhausted, or to failed on the
// first error, and reads nothing once it has left open.
//
// # Usage
//
//	converter, err := dataprocessing.NewDateConverter([]string{"MM/dd/yyyy", "MMMM d, yyyy"})
//	if err != nil {
//	    return err
//	}
//
//	reader, err := dataprocessing.OpenRecordReader(ctx, mount, partition, converter,
//	    dataprocessing.DefaultReaderOptions(), logger)
//	if err != nil {
//	    return err
//	}
//	defer reader.Close()
//
//	for {
//	    record, err := reader.Next(ctx)
//	    if errors.Is(err, io.EOF) {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    ...
//	}
//
// # Error Handling
//
// A malformed line or an unparseable date is returned as a *RowParseError
// carrying the partition path and the 1-based line number. Failures of the
// underlying stream are returned as a *ReadError.
package dataprocessing
