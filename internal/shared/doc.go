// Package shared holds helpers used across zipcsv packages that belong to
// no single component.
//
// The testutil subpackage provides:
//
//	- Zip archive fixtures built in a test's temp directory
//	- A buffered slog handler for asserting on log output
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    zipPath := testutil.WriteZip(t, t.TempDir(), "in.zip",
//	        testutil.File("a.csv", "firstName,lastName,date\nJane,Doe,01/02/2020\n"))
//	    logger, handler := testutil.NewTestLogger(t)
//	    ...
//	}
//
// This package must not import other internal packages.
package shared
