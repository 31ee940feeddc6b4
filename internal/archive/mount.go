package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"sync"
)

// Root is the single root directory of a mounted archive.
const Root = "/"

// Mount is a read-only view over the entries of a zip archive.
// It is safe for concurrent use by multiple readers.
type Mount struct {
	locator string
	reader  *zip.Reader
	closer  io.Closer
	logger  *slog.Logger

	// mu is held for reading by every in-flight read so that Close waits
	// for them and later reads observe closed.
	mu     sync.RWMutex
	closed bool
}

// Open mounts the archive addressed by locator, which is either a
// filesystem path or a file:// URI.
func Open(locator string, logger *slog.Logger) (*Mount, error) {
	filePath, err := ResolveLocator(locator)
	if err != nil {
		return nil, &ArchiveOpenError{Locator: locator, Err: err}
	}

	rc, err := zip.OpenReader(filePath)
	if err != nil {
		if rc != nil {
			rc.Close()
		}
		return nil, &ArchiveOpenError{Locator: locator, Err: err}
	}

	return newMount(locator, &rc.Reader, rc, logger), nil
}

// NewMount mounts an archive read through r. The caller keeps ownership of r;
// closing the Mount only invalidates handles derived from it.
func NewMount(name string, r io.ReaderAt, size int64, logger *slog.Logger) (*Mount, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, &ArchiveOpenError{Locator: name, Err: err}
	}
	return newMount(name, zr, nil, logger), nil
}

func newMount(locator string, zr *zip.Reader, closer io.Closer, logger *slog.Logger) *Mount {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Mount{
		locator: locator,
		reader:  zr,
		closer:  closer,
		logger:  logger.With(slog.String("component", "archive_mount")),
	}
	m.logger.Debug("Archive mounted",
		slog.String("locator", locator),
		slog.Int("entries", len(zr.File)))
	return m
}

// ResolveLocator turns an archive locator into a filesystem path.
// Plain paths are returned unchanged; file:// URIs yield their path.
func ResolveLocator(locator string) (string, error) {
	if strings.TrimSpace(locator) == "" {
		return "", errors.New("empty archive locator")
	}
	if !strings.Contains(locator, "://") {
		return locator, nil
	}

	u, err := url.Parse(locator)
	if err != nil {
		return "", fmt.Errorf("invalid archive locator: %w", err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("unsupported locator scheme %q", u.Scheme)
	}
	if u.Host != "" && u.Host != "localhost" {
		return "", fmt.Errorf("remote file locator host %q not supported", u.Host)
	}
	if u.Path == "" {
		return "", errors.New("file locator has no path")
	}
	return u.Path, nil
}

// Locator returns the locator the mount was opened with.
func (m *Mount) Locator() string {
	return m.locator
}

// RootEntries returns the root directories of the mount.
func (m *Mount) RootEntries() []string {
	return []string{Root}
}

// FS returns an fs.FS over the archive. Paths are unrooted as fs.FS
// requires ("dir/a.csv"); use ToFSPath and FromFSPath to convert.
func (m *Mount) FS() (fs.FS, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrMountClosed
	}
	return &guardedFS{mount: m}, nil
}

// Resolve opens the regular file at the absolute in-mount path p.
func (m *Mount) Resolve(p string) (io.ReadCloser, error) {
	name, err := ToFSPath(p)
	if err != nil {
		return nil, &NotFoundError{Path: p, Err: err}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrMountClosed
	}

	f, err := m.reader.Open(name)
	if err != nil {
		return nil, &NotFoundError{Path: p, Err: err}
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &NotFoundError{Path: p, Err: err}
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, &NotFoundError{Path: p, Err: errors.New("not a regular file")}
	}

	return &guardedFile{File: f, mount: m}, nil
}

// Close releases the archive. It is idempotent.
func (m *Mount) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	m.logger.Debug("Archive unmounted", slog.String("locator", m.locator))
	if m.closer != nil {
		return m.closer.Close()
	}
	return nil
}

// ToFSPath converts an absolute mount path to an fs.FS name.
func ToFSPath(p string) (string, error) {
	if !strings.HasPrefix(p, Root) {
		return "", fmt.Errorf("path %q is not absolute", p)
	}
	name := strings.TrimPrefix(path.Clean(p), Root)
	if name == "" {
		name = "."
	}
	if !fs.ValidPath(name) {
		return "", fmt.Errorf("invalid path %q", p)
	}
	return name, nil
}

// FromFSPath converts an fs.FS name to an absolute mount path.
func FromFSPath(name string) string {
	if name == "." {
		return Root
	}
	return Root + name
}

type guardedFS struct {
	mount *Mount
}

func (g *guardedFS) Open(name string) (fs.File, error) {
	g.mount.mu.RLock()
	defer g.mount.mu.RUnlock()
	if g.mount.closed {
		return nil, &fs.PathError{Op: "open", Path: name, Err: ErrMountClosed}
	}
	f, err := g.mount.reader.Open(name)
	if err != nil {
		return nil, err
	}
	return &guardedFile{File: f, mount: g.mount}, nil
}

func (g *guardedFS) ReadDir(name string) ([]fs.DirEntry, error) {
	g.mount.mu.RLock()
	defer g.mount.mu.RUnlock()
	if g.mount.closed {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: ErrMountClosed}
	}
	return fs.ReadDir(g.mount.reader, name)
}

func (g *guardedFS) Stat(name string) (fs.FileInfo, error) {
	g.mount.mu.RLock()
	defer g.mount.mu.RUnlock()
	if g.mount.closed {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: ErrMountClosed}
	}
	return fs.Stat(g.mount.reader, name)
}

type guardedFile struct {
	fs.File
	mount *Mount
}

func (f *guardedFile) Read(p []byte) (int, error) {
	f.mount.mu.RLock()
	defer f.mount.mu.RUnlock()
	if f.mount.closed {
		return 0, ErrMountClosed
	}
	return f.File.Read(p)
}

// Err reports ErrMountClosed once the owning mount has been closed. Readers
// that buffer ahead check it so buffered bytes are not served after Close.
func (f *guardedFile) Err() error {
	f.mount.mu.RLock()
	defer f.mount.mu.RUnlock()
	if f.mount.closed {
		return ErrMountClosed
	}
	return nil
}
