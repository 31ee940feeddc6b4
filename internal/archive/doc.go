// Package archive mounts a zip archive as a read-only hierarchical
// filesystem.
//
// A Mount owns the open archive. Discovery and record readers borrow it
// through RootEntries, FS and Resolve; the pipeline driver closes it once
// every reader is done. Any handle still reading after Close fails with
// ErrMountClosed instead of returning stale data.
//
//	mount, err := archive.Open("file:///data/people.zip", logger)
//	if err != nil {
//	    return err
//	}
//	defer mount.Close()
//
//	rc, err := mount.Resolve("/people/a.csv")
//
// Paths handed out by a Mount are absolute ("/dir/file.csv"); the root
// directory is "/".
package archive
