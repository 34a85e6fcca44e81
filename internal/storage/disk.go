package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Usage reports the on-disk size of an index session.
type Usage struct {
	IndexBytes   int64 `json:"index_bytes"`
	ArchiveBytes int64 `json:"archive_bytes"`
}

// MeasureUsage sizes the index directory and the run archive. The archive's
// WAL and shared-memory files are included.
func MeasureUsage(indexPath, archivePath string) (Usage, error) {
	idx, err := DiskUsageBytes(indexPath)
	if err != nil {
		return Usage{}, err
	}
	var archive int64
	if archivePath != "" {
		archive, err = DiskUsageBytes(archivePath, archivePath+"-wal", archivePath+"-shm")
		if err != nil {
			return Usage{}, err
		}
	}
	return Usage{IndexBytes: idx, ArchiveBytes: archive}, nil
}

// DiskUsageBytes returns the total size in bytes of the given paths.
// Each path may be a file or a directory (recursively summed).
// Missing paths and empty strings are skipped.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		err := filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += info.Size()
			return nil
		})
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return 0, err
		}
	}
	return total, nil
}
