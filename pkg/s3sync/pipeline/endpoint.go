// Package pipeline implements the eight-stage producer/consumer engine of
// §2-§5: TargetLister, SourceLister, the filter chain, HeadObjectChecker,
// TransferWorkerPool, DeleteWorker, StatsAggregator, and the
// PipelineSupervisor that wires and drives them.
package pipeline

import (
	"github.com/s3sync-go/s3sync/pkg/s3sync/s3path"
	"github.com/s3sync-go/s3sync/pkg/s3sync/store"
)

// Endpoint bundles one side of a run (source or target) with whichever
// concrete store.ObjectStoreClient or store.LocalStoreClient backs it, so
// pipeline stages don't have to carry four separate parameters (path, both
// possible clients) through every call. Exactly one of Remote/Local is
// non-nil, matching Path.Remote.
type Endpoint struct {
	Path   s3path.Path
	Remote store.ObjectStoreClient
	Local  store.LocalStoreClient
}

// Bucket returns the remote bucket name, or "" if this endpoint is local.
func (e Endpoint) Bucket() string {
	return e.Path.Bucket
}

// Prefix returns the remote key prefix (or local root), used as the
// common namespace root for listing.
func (e Endpoint) Prefix() string {
	if e.Path.Remote {
		return e.Path.Prefix
	}
	return e.Path.Local
}

// stripPrefix converts a full remote key back into the key relative to
// prefix, the inverse of joinKey, so a remote listing stores the same
// relative-key shape a local listing already produces (localstore.List
// returns keys relative to its root directly).
func stripPrefix(prefix, fullKey string) string {
	if prefix == "" {
		return fullKey
	}
	trimmed := prefix
	if trimmed[len(trimmed)-1] != '/' {
		trimmed += "/"
	}
	if len(fullKey) >= len(trimmed) && fullKey[:len(trimmed)] == trimmed {
		return fullKey[len(trimmed):]
	}
	return fullKey
}

// joinKey composes a namespace prefix with a relative key, since
// ObjectRef.Key is always relative to the source/target Prefix and every
// store call needs the full key.
func joinKey(prefix, relativeKey string) string {
	if prefix == "" {
		return relativeKey
	}
	if prefix[len(prefix)-1] == '/' {
		return prefix + relativeKey
	}
	return prefix + "/" + relativeKey
}
