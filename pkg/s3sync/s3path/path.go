// Package s3path parses and represents the two kinds of endpoints a sync run
// can read from or write to: a local directory or a remote S3-style bucket
// and prefix.
package s3path

import (
	"strings"

	"github.com/pkg/errors"
)

// remoteScheme is the URL scheme recognized for remote storage paths.
const remoteScheme = "s3://"

// Path is a discriminated union of a local filesystem path and a remote
// bucket/prefix pair. Exactly one of the two representations is valid for a
// given instance, indicated by Remote.
type Path struct {
	// Remote indicates whether this path identifies a bucket/prefix pair
	// (true) or a local filesystem directory (false).
	Remote bool
	// Local is the filesystem path, populated iff !Remote.
	Local string
	// Bucket is the S3 bucket name, populated iff Remote.
	Bucket string
	// Prefix is the key prefix under the bucket, populated iff Remote. It
	// is the text after the first slash that follows the bucket name, kept as
	// given (it starts with a slash only when the input has two slashes
	// after the bucket); a trailing slash is preserved only if
	// the user supplied one, since it is significant when computing relative
	// keys for objects directly "at" the prefix.
	Prefix string
}

// String renders the path in the same form it would be parsed from.
func (p Path) String() string {
	if !p.Remote {
		return p.Local
	}
	if p.Prefix == "" {
		return remoteScheme + p.Bucket
	}
	return remoteScheme + p.Bucket + "/" + p.Prefix
}

// Parse classifies and parses a raw CLI argument into a Path. Arguments
// prefixed with "s3://" are remote; everything else is treated as a local
// path. Only one level of dispatch is needed here, unlike multipart schemes
// that have to disambiguate SSH/Docker/Kubernetes forms.
func Parse(raw string) (Path, error) {
	if raw == "" {
		return Path{}, errors.New("empty storage path")
	}

	if strings.HasPrefix(raw, remoteScheme) {
		return parseRemote(raw)
	}
	return Path{Remote: false, Local: raw}, nil
}

func parseRemote(raw string) (Path, error) {
	rest := strings.TrimPrefix(raw, remoteScheme)
	if rest == "" {
		return Path{}, errors.New("remote storage path missing bucket name")
	}

	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return Path{}, errors.New("remote storage path missing bucket name")
	}

	return Path{Remote: true, Bucket: bucket, Prefix: prefix}, nil
}

// Validate enforces the source/target invariants of §3: the source, if
// local, must exist as a directory is checked by the caller (since it
// requires filesystem access); this method only enforces the structural
// invariant that at least one of source/target is remote.
func Validate(source, target Path) error {
	if !source.Remote && !target.Remote {
		return errors.New("at least one of source and target must be a remote (s3://) path")
	}
	return nil
}
