// Package localstore implements store.LocalStoreClient against the local
// filesystem using os/io/fs/path/filepath, plus an atomic-write helper
// (temp file + rename) adapted from the teacher's persistence idiom for
// target writes, so a reader never observes a partially-downloaded object.
package localstore

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/s3sync-go/s3sync/pkg/filesystem"
	"github.com/s3sync-go/s3sync/pkg/logging"
	"github.com/s3sync-go/s3sync/pkg/must"
	"github.com/s3sync-go/s3sync/pkg/s3sync/checksum"
	"github.com/s3sync-go/s3sync/pkg/s3sync/store"
)

// Client implements store.LocalStoreClient rooted at whatever directory
// each call is given (the pipeline passes StoragePath.Local as root).
type Client struct {
	logger *logging.Logger
}

// New constructs a Client.
func New(logger *logging.Logger) *Client {
	return &Client{logger: logger}
}

// List walks the directory tree under root, in lexicographic order within
// each directory (§4.3), following symlinks iff followSymlinks. Entries are
// sent on the returned channel; at most one error is sent on the error
// channel before both channels close.
func (c *Client) List(ctx context.Context, root string, followSymlinks bool) (<-chan store.Entry, <-chan error) {
	entries := make(chan store.Entry, 64)
	errs := make(chan error, 1)

	go func() {
		defer close(entries)
		defer close(errs)

		err := walk(ctx, root, root, followSymlinks, entries)
		if err != nil {
			errs <- err
		}
	}()

	return entries, errs
}

func walk(ctx context.Context, root, dir string, followSymlinks bool, entries chan<- store.Entry) error {
	if ctx.Err() != nil {
		return nil
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("unable to read directory %q: %w", dir, err)
	}

	sort.Slice(dirEntries, func(i, j int) bool {
		return dirEntries[i].Name() < dirEntries[j].Name()
	})

	for _, entry := range dirEntries {
		if ctx.Err() != nil {
			return nil
		}

		fullPath := filepath.Join(dir, entry.Name())
		info, err := entryInfo(fullPath, entry, followSymlinks)
		if err != nil {
			return err
		}
		if info == nil {
			continue
		}

		if info.IsDir() {
			if err := walk(ctx, root, fullPath, followSymlinks, entries); err != nil {
				return err
			}
			continue
		}

		key := toKey(root, fullPath)
		select {
		case entries <- store.Entry{Key: key, LastModified: info.ModTime(), Size: info.Size()}:
		case <-ctx.Done():
			return nil
		}
	}

	return nil
}

// entryInfo resolves a directory entry to its fs.FileInfo, skipping symlinks
// entirely when followSymlinks is false and resolving them via os.Stat when
// true. It returns (nil, nil) for an entry that should be silently skipped
// (an unfollowed symlink).
func entryInfo(fullPath string, entry fs.DirEntry, followSymlinks bool) (fs.FileInfo, error) {
	if entry.Type()&fs.ModeSymlink != 0 {
		if !followSymlinks {
			return nil, nil
		}
		return os.Stat(fullPath)
	}
	return entry.Info()
}

// toKey converts an absolute filesystem path under root into an object key
// using forward slashes, matching S3 key conventions regardless of host OS.
func toKey(root, fullPath string) string {
	rel, err := filepath.Rel(root, fullPath)
	if err != nil {
		rel = fullPath
	}
	return filepath.ToSlash(rel)
}

// Stat resolves a key to local file metadata, computing its MD5-based ETag
// so single-part ETag comparisons work symmetrically for local targets.
func (c *Client) Stat(ctx context.Context, root, key string) (store.HeadResult, error) {
	fullPath := filepath.Join(root, filepath.FromSlash(key))

	info, err := os.Stat(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return store.HeadResult{}, fmt.Errorf("%s: %w", key, os.ErrNotExist)
		}
		return store.HeadResult{}, fmt.Errorf("unable to stat %q: %w", fullPath, err)
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return store.HeadResult{}, fmt.Errorf("unable to read %q for ETag computation: %w", fullPath, err)
	}

	return store.HeadResult{
		LastModified: info.ModTime(),
		Size:         info.Size(),
		ETag:         checksum.SingleObjectETag(data),
	}, nil
}

// Open opens a key for reading, alongside its metadata.
func (c *Client) Open(ctx context.Context, root, key string) (io.ReadCloser, store.HeadResult, error) {
	head, err := c.Stat(ctx, root, key)
	if err != nil {
		return nil, store.HeadResult{}, err
	}

	fullPath := filepath.Join(root, filepath.FromSlash(key))
	file, err := os.Open(fullPath)
	if err != nil {
		return nil, store.HeadResult{}, fmt.Errorf("unable to open %q: %w", fullPath, err)
	}
	return file, head, nil
}

// WriteAtomic streams body into a temporary file alongside the destination
// and renames it into place, so the local-store download path never leaves
// a partially-written target object (§4.5: transfer state machine applies
// symmetrically to GET-direction transfers). lastModified, when non-zero,
// is applied to the file's modification time after the rename so a
// subsequent mtime-based TargetModifiedFilter comparison sees the source's
// timestamp rather than the moment the local copy was written.
func (c *Client) WriteAtomic(ctx context.Context, root, key string, body io.Reader, size int64, lastModified time.Time) (store.PutResult, error) {
	fullPath := filepath.Join(root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return store.PutResult{}, fmt.Errorf("unable to create parent directory for %q: %w", fullPath, err)
	}

	temporaryName := filepath.Join(filepath.Dir(fullPath), filesystem.TemporaryNamePrefix+uuid.NewString())
	file, err := os.OpenFile(temporaryName, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return store.PutResult{}, fmt.Errorf("unable to create temporary file: %w", err)
	}

	hasher := md5.New()
	if _, err := io.Copy(io.MultiWriter(file, hasher), body); err != nil {
		must.Close(file, c.logger)
		must.OSRemove(temporaryName, c.logger)
		return store.PutResult{}, fmt.Errorf("unable to write %q: %w", fullPath, err)
	}

	if err := file.Sync(); err != nil {
		must.Close(file, c.logger)
		must.OSRemove(temporaryName, c.logger)
		return store.PutResult{}, fmt.Errorf("unable to sync %q: %w", fullPath, err)
	}
	if err := file.Close(); err != nil {
		must.OSRemove(temporaryName, c.logger)
		return store.PutResult{}, fmt.Errorf("unable to close %q: %w", fullPath, err)
	}

	if err := os.Rename(temporaryName, fullPath); err != nil {
		must.OSRemove(temporaryName, c.logger)
		return store.PutResult{}, fmt.Errorf("unable to rename temporary file into place: %w", err)
	}

	if !lastModified.IsZero() {
		must.Succeed(os.Chtimes(fullPath, lastModified, lastModified), "set local target mtime", c.logger)
	}

	return store.PutResult{ETag: fmt.Sprintf("%x", hasher.Sum(nil))}, nil
}

// Remove deletes a key from the local store, used by DeleteWorker (§4.6)
// when the local store is the target.
func (c *Client) Remove(ctx context.Context, root, key string) error {
	fullPath := filepath.Join(root, filepath.FromSlash(key))
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("unable to remove %q: %w", fullPath, err)
	}
	return nil
}
