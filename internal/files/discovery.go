package files

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	"zipcsv/internal/archive"
	"zipcsv/pkg/contracts/domain"
)

// DefaultExtension is the partition file suffix used when none is configured.
const DefaultExtension = ".csv"

// Tree is a mounted filesystem that can be walked from its roots.
type Tree interface {
	RootEntries() []string
	FS() (fs.FS, error)
}

// DiscoveryError reports a failure while walking the mount.
type DiscoveryError struct {
	Path string
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discover partitions at %q: %v", e.Path, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// Discovery finds partition files in a mounted tree
type Discovery struct {
	extension string
	logger    *slog.Logger
}

// NewDiscovery creates a discovery that matches files ending in extension.
func NewDiscovery(extension string, logger *slog.Logger) *Discovery {
	if extension == "" {
		extension = DefaultExtension
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Discovery{
		extension: extension,
		logger:    logger.With(slog.String("component", "partition_discovery")),
	}
}

// Extension returns the suffix partitions must end with.
func (d *Discovery) Extension() string {
	return d.extension
}

// FindPartitions walks every root of tree and returns one partition per
// matching regular file, sorted by path. No match yields an empty slice.
func (d *Discovery) FindPartitions(ctx context.Context, tree Tree) ([]domain.Partition, error) {
	fsys, err := tree.FS()
	if err != nil {
		return nil, &DiscoveryError{Path: archive.Root, Err: err}
	}

	partitions := []domain.Partition{}
	for _, root := range tree.RootEntries() {
		start, err := archive.ToFSPath(root)
		if err != nil {
			return nil, &DiscoveryError{Path: root, Err: err}
		}

		err = fs.WalkDir(fsys, start, func(p string, entry fs.DirEntry, err error) error {
			if err != nil {
				return &DiscoveryError{Path: archive.FromFSPath(p), Err: err}
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if !entry.Type().IsRegular() || !strings.HasSuffix(entry.Name(), d.extension) {
				return nil
			}

			partitions = append(partitions, domain.Partition{Path: archive.FromFSPath(p)})
			d.logger.DebugContext(ctx, "Partition found", slog.String("path", archive.FromFSPath(p)))
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Slice(partitions, func(i, j int) bool {
		return partitions[i].Path < partitions[j].Path
	})

	d.logger.InfoContext(ctx, "Partition discovery complete",
		slog.Int("count", len(partitions)),
		slog.String("extension", d.extension))

	return partitions, nil
}
