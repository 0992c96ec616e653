package pipeline

import (
	"context"
	"regexp"
	"time"

	"github.com/s3sync-go/s3sync/pkg/logging"
	"github.com/s3sync-go/s3sync/pkg/s3sync/checksum"
	"github.com/s3sync-go/s3sync/pkg/s3sync/config"
	"github.com/s3sync-go/s3sync/pkg/s3sync/objectref"
	"github.com/s3sync-go/s3sync/pkg/s3sync/stats"
)

// decision is what a single filter predicate returns: whether the object
// passes on to the next filter, and, if not, the skip reason recorded as a
// SyncSkip statistics event.
type decision struct {
	pass   bool
	reason string
}

func passed() decision { return decision{pass: true} }

func skipped(reason string) decision { return decision{pass: false, reason: reason} }

// Filter is one predicate in the filter chain (§4.4): mtime-before,
// mtime-after, include/exclude regex, size-smaller/larger, and the
// TargetModifiedFilter. Each filter is independent of the others and chain
// order is caller-controlled via BuildFilterChain.
type Filter func(ref objectref.ObjectRef) decision

// BuildFilterChain assembles the ordered list of filters a FilterConfig
// requests. Order follows §4.4: cheap structural filters (mtime windows,
// name patterns, size bounds) run before the target-fingerprint comparison,
// since the latter is the only one that needs the (larger, less cache
// friendly) fingerprint lookup.
func BuildFilterChain(cfg config.FilterConfig, transfer config.TransferConfig, fingerprint *objectref.TargetFingerprint) ([]Filter, error) {
	var chain []Filter

	if !cfg.MtimeBefore.IsZero() {
		before := cfg.MtimeBefore
		chain = append(chain, func(ref objectref.ObjectRef) decision {
			if ref.LastModified.Before(before) {
				return passed()
			}
			return skipped("mtime_before")
		})
	}

	if !cfg.MtimeAfter.IsZero() {
		after := cfg.MtimeAfter
		chain = append(chain, func(ref objectref.ObjectRef) decision {
			if ref.LastModified.After(after) {
				return passed()
			}
			return skipped("mtime_after")
		})
	}

	if cfg.IncludeRegex != "" {
		re, err := regexp.Compile(cfg.IncludeRegex)
		if err != nil {
			return nil, err
		}
		chain = append(chain, func(ref objectref.ObjectRef) decision {
			if re.MatchString(ref.Key) {
				return passed()
			}
			return skipped("include_regex")
		})
	}

	if cfg.ExcludeRegex != "" {
		re, err := regexp.Compile(cfg.ExcludeRegex)
		if err != nil {
			return nil, err
		}
		chain = append(chain, func(ref objectref.ObjectRef) decision {
			if re.MatchString(ref.Key) {
				return skipped("exclude_regex")
			}
			return passed()
		})
	}

	if cfg.HasSmaller {
		limit := cfg.SmallerSize
		chain = append(chain, func(ref objectref.ObjectRef) decision {
			if ref.Size < limit {
				return passed()
			}
			return skipped("size_smaller")
		})
	}

	if cfg.HasLarger {
		limit := cfg.LargerSize
		chain = append(chain, func(ref objectref.ObjectRef) decision {
			if ref.Size > limit {
				return passed()
			}
			return skipped("size_larger")
		})
	}

	if !cfg.RemoveModifiedFilter {
		chain = append(chain, TargetModifiedFilter(cfg, transfer, fingerprint))
	}

	return chain, nil
}

// TargetModifiedFilter implements the priority comparison of §4.4, grounded
// in original_source's filter/modified.rs check order and supplemented (per
// SPEC_FULL §3) with the original's check_mtime_and_etag and
// check_mtime_and_additional_checksum modes, which layer an mtime
// precondition on top of the plain etag/checksum comparison rather than
// replacing it:
//
//  1. check_size: conclusive either way - a mismatch forwards, a match
//     skips, without consulting mtime or etag at all.
//  2. check_etag (without auto_chunksize): compare normalized ETags
//     directly, since the target's reported ETag can be trusted to match
//     what a non-auto-chunksize transfer would reconstruct.
//  3. check_mtime_and_etag (without auto_chunksize): mtime is checked
//     first - a differing mtime is conclusive and forwards immediately;
//     when mtimes agree, the ETags must also agree to skip.
//  4. an additional checksum algorithm is configured, OR
//     check_mtime_and_additional_checksum, OR (check_etag or
//     check_mtime_and_etag combined with auto_chunksize): the comparison
//     can't be resolved from listing metadata alone (auto_chunksize needs
//     the HEAD-per-part probe to reconstruct an ETag, and a checksum
//     algorithm isn't present on a plain LIST entry) - forward to
//     HeadObjectChecker, which decides from the HEAD response, applying
//     the mtime precondition of the check_mtime_and_* modes there.
//  5. otherwise, fall back to a plain mtime comparison at one-second
//     granularity, S3's LastModified resolution.
func TargetModifiedFilter(cfg config.FilterConfig, transfer config.TransferConfig, fingerprint *objectref.TargetFingerprint) Filter {
	additionalChecksumConfigured := transfer.EnableAdditionalChecksum && transfer.AdditionalChecksumAlgorithm != ""
	etagModeNeedsHead := (cfg.CheckETag || cfg.CheckMtimeAndETag) && transfer.AutoChunksize
	needsHead := additionalChecksumConfigured || cfg.CheckMtimeAndAdditionalChecksum || etagModeNeedsHead

	return func(ref objectref.ObjectRef) decision {
		entry, found := fingerprint.Lookup(ref.Key)
		if !found {
			return passed()
		}

		if cfg.CheckSize {
			if ref.Size != entry.Size {
				return passed()
			}
			return skipped("target_unmodified_size")
		}

		mtimeMatches := ref.LastModified.Truncate(time.Second).Equal(entry.LastModified.Truncate(time.Second))

		if cfg.CheckETag && !transfer.AutoChunksize {
			if checksum.NormalizeETag(ref.ETag) != checksum.NormalizeETag(entry.ETag) {
				return passed()
			}
			return skipped("target_unmodified_etag")
		}

		if cfg.CheckMtimeAndETag && !transfer.AutoChunksize {
			if !mtimeMatches {
				return passed()
			}
			if checksum.NormalizeETag(ref.ETag) != checksum.NormalizeETag(entry.ETag) {
				return passed()
			}
			return skipped("target_unmodified_mtime_and_etag")
		}

		if needsHead {
			// HeadObjectChecker makes the decision from an authoritative
			// HEAD, including the mtime precondition of the
			// check_mtime_and_* modes.
			return passed()
		}

		if !mtimeMatches {
			return passed()
		}
		return skipped("target_unmodified_mtime")
	}
}

// RunFilterChain consumes in, applies every filter in order, and forwards
// survivors on the returned channel while emitting a SyncSkip event for
// every object a filter rejects. logger is used to trace each decision at
// debug level.
func RunFilterChain(ctx context.Context, in <-chan objectref.ObjectRef, chain []Filter, events chan<- stats.Event, logger *logging.Logger) <-chan objectref.ObjectRef {
	out := make(chan objectref.ObjectRef, 256)

	go func() {
		defer close(out)
		for ref := range in {
			if ctx.Err() != nil {
				return
			}

			rejectReason := ""
			keep := true
			for _, filter := range chain {
				d := filter(ref)
				if !d.pass {
					keep = false
					rejectReason = d.reason
					break
				}
			}

			if !keep {
				logger.Debugf("skip %s: %s", ref.Key, rejectReason)
				select {
				case events <- stats.Event{Kind: stats.SyncSkip, Key: ref.Key, Reason: rejectReason}:
				case <-ctx.Done():
					return
				}
				continue
			}

			select {
			case out <- ref:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
