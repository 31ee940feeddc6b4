package testutil

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ZipEntry is one entry of a fixture archive. A Name ending in "/" is
// written as a directory entry and Body is ignored.
type ZipEntry struct {
	Name string
	Body string
}

// File returns a regular-file entry.
func File(name, body string) ZipEntry {
	return ZipEntry{Name: name, Body: body}
}

// Dir returns a directory entry.
func Dir(name string) ZipEntry {
	if !strings.HasSuffix(name, "/") {
		name += "/"
	}
	return ZipEntry{Name: name}
}

// ZipBytes builds an in-memory zip archive with entries in the given order.
func ZipBytes(t *testing.T, entries ...ZipEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.Name)
		if err != nil {
			t.Fatalf("create zip entry %s: %v", e.Name, err)
		}
		if strings.HasSuffix(e.Name, "/") {
			continue
		}
		if _, err := w.Write([]byte(e.Body)); err != nil {
			t.Fatalf("write zip entry %s: %v", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
	return buf.Bytes()
}

// WriteZip writes a fixture archive to dir/name and returns its path.
func WriteZip(t *testing.T, dir, name string, entries ...ZipEntry) string {
	t.Helper()

	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, ZipBytes(t, entries...), 0644); err != nil {
		t.Fatalf("write zip fixture: %v", err)
	}
	return p
}

// PeopleCSV renders a partition body with the standard header followed by rows.
func PeopleCSV(rows ...string) string {
	var b strings.Builder
	b.WriteString("firstName,lastName,date\n")
	for _, r := range rows {
		b.WriteString(r)
		b.WriteString("\n")
	}
	return b.String()
}

// ReadLines returns the lines of a file without the trailing empty line.
func ReadLines(t *testing.T, p string) []string {
	t.Helper()

	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read %s: %v", p, err)
	}
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
