// Package must provides helpers for invoking cleanup and best-effort
// operations whose errors can't be propagated (typically deferred Close/Remove
// calls) without losing them silently: each helper logs a warning instead.
package must

import (
	"io"
	"os"

	"github.com/s3sync-go/s3sync/pkg/logging"
)

// Close closes c, logging a warning on failure. Used for deferred closes of
// response bodies, open files, and multipart part readers where the error
// cannot otherwise be surfaced without masking the function's real return
// value.
func Close(c io.Closer, logger *logging.Logger) {
	if err := c.Close(); err != nil {
		logger.Warnf("unable to close: %s", err.Error())
	}
}

// OSRemove removes the named file, logging a warning on failure. Used to
// clean up temporary files left over from an interrupted atomic write or an
// aborted multipart download.
func OSRemove(name string, logger *logging.Logger) {
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
		logger.Warnf("unable to remove '%s': %s", name, err.Error())
	}
}

// IOCopy copies from src to dst, logging a warning on failure.
func IOCopy(dst io.Writer, src io.Reader, logger *logging.Logger) {
	if _, err := io.Copy(dst, src); err != nil {
		logger.Warnf("unable to copy from source to destination: %s", err.Error())
	}
}

// Succeed logs a warning if err is non-nil, describing the task that failed.
// It is used for operations that are inherently best-effort, such as the
// AbortMultipartUpload issued after a failed Complete (§4.5.2: "Abort is
// best-effort: if abort itself fails, the error is logged as a warning; the
// original failure is propagated").
func Succeed(err error, task string, logger *logging.Logger) {
	if err != nil {
		logger.Warnf("unable to %s: %s", task, err.Error())
	}
}
