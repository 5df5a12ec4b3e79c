// Package blob provides the storage targets dictionaries are dumped to and
// loaded from: local directories, memory, S3 and MinIO.
//
// A Bucket stores whole objects. Put is atomic: readers see either the old
// object or the complete new one, never a partial write.
package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNotFound is returned when an object does not exist. It is os.ErrNotExist
// so local and remote misses can be checked the same way.
var ErrNotFound = os.ErrNotExist

// Bucket is a flat namespace of immutable objects.
type Bucket interface {
	// Get returns the full contents of name.
	Get(ctx context.Context, name string) ([]byte, error)
	// Put replaces name with data atomically.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes name. Deleting a missing object is not an error.
	Delete(ctx context.Context, name string) error
	// List returns the sorted names starting with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// WriteFileAtomic writes data to path through a temporary file in the same
// directory, synced and then renamed over path. On error the temporary file is
// removed and path is untouched.
func WriteFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpPath := f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = f.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", tmpPath, err)
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmpPath, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if err = os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpPath, err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
