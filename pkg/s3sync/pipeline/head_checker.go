package pipeline

import (
	"context"
	"time"

	"github.com/s3sync-go/s3sync/pkg/logging"
	"github.com/s3sync-go/s3sync/pkg/s3sync/checksum"
	"github.com/s3sync-go/s3sync/pkg/s3sync/config"
	"github.com/s3sync-go/s3sync/pkg/s3sync/objectref"
	"github.com/s3sync-go/s3sync/pkg/s3sync/stats"
	"github.com/s3sync-go/s3sync/pkg/s3sync/syncerr"
)

// needsAuthoritativeHead reports whether cfg's comparison mode can only be
// resolved with a HEAD against the target, per the tier-3 case of §4.4
// (additional-checksum comparison, or check_etag combined with
// auto_chunksize).
func needsAuthoritativeHead(cfg config.Config) bool {
	additionalChecksumConfigured := cfg.Transfer.EnableAdditionalChecksum && cfg.Transfer.AdditionalChecksumAlgorithm != ""
	etagModeNeedsHead := (cfg.Filter.CheckETag || cfg.Filter.CheckMtimeAndETag) && cfg.Transfer.AutoChunksize
	return additionalChecksumConfigured || cfg.Filter.CheckMtimeAndAdditionalChecksum || etagModeNeedsHead
}

// RunHeadObjectChecker is the HeadObjectChecker stage (§4.1 row 4). When
// neither head_each_target nor a HEAD-requiring comparison mode is
// configured, objects pass through untouched — the filter chain has already
// made a conclusive decision from listing metadata alone. Otherwise each
// object gets an authoritative HEAD against the target and a final
// skip/forward decision, since listing metadata (plain LIST, or a
// pre-frozen fingerprint) cannot carry a multipart ETag's effective part
// count or a reported additional-checksum value.
func RunHeadObjectChecker(ctx context.Context, cfg config.Config, target Endpoint, in <-chan objectref.ObjectRef, events chan<- stats.Event, logger *logging.Logger) <-chan objectref.ObjectRef {
	out := make(chan objectref.ObjectRef, 256)

	if !cfg.HeadEachTarget && !needsAuthoritativeHead(cfg) {
		go func() {
			defer close(out)
			for ref := range in {
				select {
				case out <- ref:
				case <-ctx.Done():
					return
				}
			}
		}()
		return out
	}

	go func() {
		defer close(out)
		for ref := range in {
			if ctx.Err() != nil {
				return
			}
			if ref.IsDeleteMarker {
				forward(ctx, out, ref)
				continue
			}

			keep, reason, err := headDecision(ctx, cfg, target, ref)
			if err != nil {
				logger.Warnf("head check failed for %s: %v", ref.Key, err)
				select {
				case events <- stats.Event{Kind: stats.SyncWarning, Key: ref.Key, Reason: err.Error()}:
				case <-ctx.Done():
					return
				}
				forward(ctx, out, ref)
				continue
			}

			if !keep {
				logger.Debugf("skip %s: %s", ref.Key, reason)
				select {
				case events <- stats.Event{Kind: stats.SyncSkip, Key: ref.Key, Reason: reason}:
				case <-ctx.Done():
					return
				}
				continue
			}

			forward(ctx, out, ref)
		}
	}()

	return out
}

func forward(ctx context.Context, out chan<- objectref.ObjectRef, ref objectref.ObjectRef) {
	select {
	case out <- ref:
	case <-ctx.Done():
	}
}

// headDecision performs the authoritative HEAD against the target and
// returns whether the object should still be transferred.
func headDecision(ctx context.Context, cfg config.Config, target Endpoint, ref objectref.ObjectRef) (keep bool, reason string, err error) {
	var size int64
	var etag string
	var checksumValue string
	var lastModified time.Time

	if target.Path.Remote {
		result, headErr := target.Remote.HeadObject(ctx, target.Bucket(), joinKey(target.Prefix(), ref.Key), "", 0)
		if headErr != nil {
			if kind, ok := syncerr.KindOf(headErr); ok && kind == syncerr.KindNotFound {
				return true, "", nil
			}
			return false, "", headErr
		}
		size, etag, checksumValue, lastModified = result.Size, result.ETag, result.ChecksumValue, result.LastModified
	} else {
		// A Stat error on the local target is always "key does not exist"
		// here (localstore.Client.Stat has no other failure mode worth
		// distinguishing at this stage), so it's always safe to forward.
		result, headErr := target.Local.Stat(ctx, target.Prefix(), ref.Key)
		if headErr != nil {
			return true, "", nil
		}
		size, etag, lastModified = result.Size, result.ETag, result.LastModified
	}

	if cfg.Filter.CheckSize {
		if ref.Size != size {
			return true, "", nil
		}
		return false, "target_unmodified_size", nil
	}

	if (cfg.Filter.CheckMtimeAndETag || cfg.Filter.CheckMtimeAndAdditionalChecksum) &&
		!ref.LastModified.Truncate(time.Second).Equal(lastModified.Truncate(time.Second)) {
		return true, "", nil
	}

	additionalChecksumConfigured := cfg.Transfer.EnableAdditionalChecksum && cfg.Transfer.AdditionalChecksumAlgorithm != ""
	if additionalChecksumConfigured {
		if ref.ChecksumValue != "" && checksumValue != "" && ref.ChecksumValue == checksumValue {
			return false, "target_unmodified_checksum", nil
		}
		return true, "", nil
	}

	if cfg.Filter.CheckETag || cfg.Filter.CheckMtimeAndETag {
		if checksum.NormalizeETag(ref.ETag) == checksum.NormalizeETag(etag) {
			return false, "target_unmodified_etag_head", nil
		}
		return true, "", nil
	}

	return true, "", nil
}
