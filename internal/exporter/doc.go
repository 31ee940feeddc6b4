// Package exporter writes converted records to the single output CSV file.
//
// A RecordWriter writes the header "firstName,lastName,date" when it is
// opened and then one line per record, with the date rendered in the
// configured output pattern (dd/MM/yyyy by default). Opening in append mode
// keeps the existing content and still writes a new header.
//
//	writer, err := exporter.OpenRecordWriter("people.csv", exporter.WriterOptions{}, logger)
//	if err != nil {
//	    return err
//	}
//	defer writer.Close()
//
//	if err := writer.Write(record); err != nil {
//	    return err
//	}
//
// Write after Close returns a *ClosedWriterError. Close is idempotent.
package exporter
