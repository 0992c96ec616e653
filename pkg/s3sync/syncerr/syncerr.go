// Package syncerr classifies the error taxonomy of §7 as a set of kinds
// (not concrete types), following the teacher's github.com/pkg/errors
// wrap/cause idiom so call sites can both log a rich message and test the
// classification with Is.
package syncerr

import "github.com/pkg/errors"

// Kind classifies an error for the purposes of retry and exit-status
// decisions (§7).
type Kind int

const (
	// KindConfig is surfaced synchronously at startup, before the pipeline
	// starts.
	KindConfig Kind = iota
	// KindTransport is network/5xx/throttling; retried in the transport
	// tier owned by the ObjectStoreClient.
	KindTransport
	// KindAuth is an authentication/authorization failure; not retried,
	// per-object fatal.
	KindAuth
	// KindNotFound is a missing object/bucket; not retried, per-object
	// fatal.
	KindNotFound
	// KindIntegrityWarning is an ETag or checksum mismatch; raises
	// has_warning without aborting the object.
	KindIntegrityWarning
	// KindPreconditionWarning is e.g. a failed CopySourceIfMatch; the
	// object is skipped with a warning.
	KindPreconditionWarning
	// KindFatal cancels the run (target LIST failure, source traversal
	// failure, fingerprint-build failure).
	KindFatal
)

// classified wraps an error with a Kind, implementing error via Error() and
// supporting errors.Unwrap so errors.Is/As still see through to the cause.
type classified struct {
	kind Kind
	err  error
}

func (c *classified) Error() string { return c.err.Error() }
func (c *classified) Unwrap() error { return c.err }

// New wraps err with the given kind and message, following the teacher's
// errors.Wrap idiom (pkg/errors) for attaching context while preserving the
// original error as the cause.
func New(kind Kind, err error, message string) error {
	return &classified{kind: kind, err: errors.Wrap(err, message)}
}

// KindOf reports the Kind of err, if it (or something it wraps) is a
// classified error produced by New. The second return is false for plain
// errors, which callers should then treat conservatively (e.g. per-object
// fatal rather than retryable).
func KindOf(err error) (Kind, bool) {
	var c *classified
	if errors.As(err, &c) {
		return c.kind, true
	}
	return 0, false
}

// IsRetryable reports whether an operation-tier retry (§4.5.5, the outer
// retry owned by the worker) should be attempted for err. Only transport
// errors are retryable at this tier; the transport's own inner retries have
// already been exhausted by the time the worker sees a transport error.
func IsRetryable(err error) bool {
	kind, ok := KindOf(err)
	if !ok {
		return false
	}
	return kind == KindTransport
}

// IsFatal reports whether err should cancel the whole run (§5, §7).
func IsFatal(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindFatal
}
