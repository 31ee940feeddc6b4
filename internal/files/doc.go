// Package files discovers partitions inside a mounted archive.
//
// Discovery walks every root of the mount, depth first, and emits one
// domain.Partition for each regular file whose base name ends with the
// configured extension (".csv" by default, case-sensitive). The result is
// sorted lexicographically by absolute path so that output order does not
// depend on the archive's internal entry order.
//
// Example usage:
//
//	discovery := files.NewDiscovery(".csv", logger)
//	partitions, err := discovery.FindPartitions(ctx, mount)
//	if err != nil {
//	    var derr *files.DiscoveryError
//	    errors.As(err, &derr) // derr.Path names the entry that failed
//	}
package files
