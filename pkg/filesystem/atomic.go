package filesystem

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/s3sync-go/s3sync/pkg/logging"
	"github.com/s3sync-go/s3sync/pkg/must"
)

// WriteFileAtomic writes data to a temporary file in the same directory as
// path and then renames it into place, so that readers of path never observe
// a partially-written file. It is used by encoding.MarshalAndSave; the
// local store's WriteAtomic does its own streaming temporary-file-plus-rename
// write with the same name prefix.
//
// The temporary file is created with TemporaryNamePrefix so it's easy to
// recognize and, if the process is interrupted before the rename, easy to
// clean up by hand. If writing or syncing fails, the temporary file is
// removed on a best-effort basis and the original error is returned.
func WriteFileAtomic(path string, data []byte, perm os.FileMode, logger *logging.Logger) error {
	directory := filepath.Dir(path)
	temporaryName := filepath.Join(directory, TemporaryNamePrefix+uuid.NewString())

	file, err := os.OpenFile(temporaryName, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return fmt.Errorf("unable to create temporary file: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		must.Close(file, logger)
		must.OSRemove(temporaryName, logger)
		return fmt.Errorf("unable to write temporary file: %w", err)
	}

	if err := file.Sync(); err != nil {
		must.Close(file, logger)
		must.OSRemove(temporaryName, logger)
		return fmt.Errorf("unable to sync temporary file: %w", err)
	}

	if err := file.Close(); err != nil {
		must.OSRemove(temporaryName, logger)
		return fmt.Errorf("unable to close temporary file: %w", err)
	}

	if err := os.Rename(temporaryName, path); err != nil {
		must.OSRemove(temporaryName, logger)
		return fmt.Errorf("unable to rename temporary file into place: %w", err)
	}

	return nil
}
