package pipeline

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/s3sync-go/s3sync/pkg/contextutil"
	"github.com/s3sync-go/s3sync/pkg/logging"
	"github.com/s3sync-go/s3sync/pkg/must"
	"github.com/s3sync-go/s3sync/pkg/random"
	"github.com/s3sync-go/s3sync/pkg/s3sync/checksum"
	"github.com/s3sync-go/s3sync/pkg/s3sync/config"
	"github.com/s3sync-go/s3sync/pkg/s3sync/objectref"
	"github.com/s3sync-go/s3sync/pkg/s3sync/stats"
	"github.com/s3sync-go/s3sync/pkg/s3sync/store"
	"github.com/s3sync-go/s3sync/pkg/s3sync/syncerr"
	"github.com/s3sync-go/s3sync/pkg/timeutil"
)

const (
	minPartSize     = 5 * 1024 * 1024
	maxPartSize     = 5 * 1024 * 1024 * 1024
	maxPartCount    = 10000
	defaultPartSize = 8 * 1024 * 1024
)

// RunTransferWorkerPool is the TransferWorkerPool stage (§4.1 row 5, the
// design's declared center of gravity): worker_size parallel workers each
// consume objects from in, perform a single-shot or multipart transfer
// with integrity verification, and emit the resulting statistics events.
// It returns once in is drained and every worker has finished (or the
// context is cancelled), and returns the first fatal error (if any) a
// worker encountered when the whole run must stop (§7: a per-object error
// never triggers this; only an error the worker itself cannot classify at
// all — which never happens in this implementation's error paths — would).
func RunTransferWorkerPool(ctx context.Context, cfg config.Config, source, target Endpoint, in <-chan objectref.ObjectRef, events chan<- stats.Event, logger *logging.Logger) error {
	correlation, err := random.New(4)
	if err != nil {
		return fmt.Errorf("unable to generate worker pool correlation id: %w", err)
	}
	poolLogger := logger.Sublogger(fmt.Sprintf("transfer-%x", correlation))

	group, groupCtx := errgroup.WithContext(ctx)
	workerSize := cfg.WorkerSize
	if workerSize < 1 {
		workerSize = config.DefaultWorkerSize
	}

	for i := 0; i < workerSize; i++ {
		workerLogger := poolLogger.Sublogger(fmt.Sprintf("worker-%d", i))
		group.Go(func() error {
			for ref := range in {
				if contextutil.IsCancelled(groupCtx) {
					return nil
				}
				transferOneWithRetries(groupCtx, cfg, source, target, ref, events, workerLogger)
			}
			return nil
		})
	}

	return group.Wait()
}

// transferOneWithRetries applies the operation-tier outer retry (§4.5.5):
// up to force_retry_count additional attempts, spaced by
// force_retry_interval_milliseconds, but only for errors classified
// KindTransport (the transport's own inner retries, owned by the
// ObjectStoreClient, are assumed exhausted by the time an error surfaces
// here). A KindPreconditionWarning error skips the object and is recorded
// as a SyncWarning; every other error kind is recorded as SyncError once.
// Either way the worker moves on to the next object without terminating
// the run.
func transferOneWithRetries(ctx context.Context, cfg config.Config, source, target Endpoint, ref objectref.ObjectRef, events chan<- stats.Event, logger *logging.Logger) {
	attempts := cfg.ForceRetry.ForceRetryCount + 1
	backoff := time.Duration(cfg.ForceRetry.ForceRetryIntervalMilliseconds) * time.Millisecond

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(backoff)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timeutil.StopAndDrainTimer(timer)
				return
			}
			timeutil.StopAndDrainTimer(timer)
			logger.Debugf("retrying %s (attempt %d/%d)", ref.Key, attempt+1, attempts)
		}

		err := transferOne(ctx, cfg, source, target, ref, events, logger)
		if err == nil {
			return
		}
		lastErr = err
		if !syncerr.IsRetryable(err) {
			break
		}
	}

	if kind, ok := syncerr.KindOf(lastErr); ok && kind == syncerr.KindPreconditionWarning {
		logger.Warnf("skipping %s: %v", ref.Key, lastErr)
		sendEvent(ctx, events, stats.Event{Kind: stats.SyncWarning, Key: ref.Key, Reason: lastErr.Error()})
		return
	}

	logger.Errorf("giving up on %s: %v", ref.Key, lastErr)
	sendEvent(ctx, events, stats.Event{Kind: stats.SyncError, Key: ref.Key, Reason: lastErr.Error()})
}

func sendEvent(ctx context.Context, events chan<- stats.Event, event stats.Event) {
	select {
	case events <- event:
	case <-ctx.Done():
	}
}

// transferOne dispatches a single ObjectRef to delete-marker replay or to
// the copy path, applying dry_run (§4.5.6: the decision and statistics are
// computed, but no PUT/COPY/CreateMultipartUpload/DeleteObject is issued).
func transferOne(ctx context.Context, cfg config.Config, source, target Endpoint, ref objectref.ObjectRef, events chan<- stats.Event, logger *logging.Logger) error {
	if ref.IsDeleteMarker {
		return replayDeleteMarker(ctx, cfg, target, ref, events, logger)
	}

	// Multipart is an S3 upload/copy construct: CreateMultipartUpload only
	// exists on the write side, so a local target always takes the
	// single-shot path regardless of size (the local filesystem has no
	// analogous part-size ceiling to work around).
	if target.Path.Remote && (cfg.Transfer.IsMultipartUploadRequired(ref.Size) || cfg.Transfer.AutoChunksize) {
		return transferMultipart(ctx, cfg, source, target, ref, events, logger)
	}
	return transferSingle(ctx, cfg, source, target, ref, events, logger)
}

// replayDeleteMarker implements §4.5.4: a delete marker encountered during
// version-history replay is reproduced on the target as a new delete
// marker (an unversioned DeleteObject call), not a no-op.
func replayDeleteMarker(ctx context.Context, cfg config.Config, target Endpoint, ref objectref.ObjectRef, events chan<- stats.Event, logger *logging.Logger) error {
	if cfg.Transfer.DryRun {
		sendEvent(ctx, events, stats.Event{Kind: stats.SyncComplete, Key: ref.Key})
		return nil
	}

	if !target.Path.Remote {
		return nil
	}

	if err := target.Remote.DeleteObject(ctx, target.Bucket(), joinKey(target.Prefix(), ref.Key), ""); err != nil {
		return err
	}
	sendEvent(ctx, events, stats.Event{Kind: stats.SyncComplete, Key: ref.Key})
	sendEvent(ctx, events, stats.Event{Kind: stats.SyncDelete, Key: ref.Key})
	return nil
}

func putOptionsFor(cfg config.Config) store.PutOptions {
	return store.PutOptions{
		StorageClass:       string(cfg.Transfer.StorageClass),
		SSE:                string(cfg.Transfer.SSE),
		SSEKMSKeyID:        cfg.Transfer.SSEKMSKeyID,
		SSECustomerKey:     cfg.Transfer.TargetSSEC,
		SSECustomerKeyMD5:  cfg.Transfer.TargetSSECKeyMD5,
		CannedACL:          cfg.Transfer.CannedACL,
		CacheControl:       cfg.CacheControl,
		ContentDisposition: cfg.ContentDisposition,
		ContentEncoding:    cfg.ContentEncoding,
		ContentLanguage:    cfg.ContentLanguage,
		ContentType:        cfg.ContentType,
		Expires:            cfg.Expires,
		Metadata:           metadataFor(cfg, time.Time{}),
		Tagging:            cfg.TaggingValue,
		ChecksumAlgorithm:  string(cfg.Transfer.AdditionalChecksumAlgorithm),
	}
}

// metadataFor merges cfg.Metadata with the put_last_modified_metadata
// override (SPEC_FULL §3): when enabled, the source's last-modified time is
// recorded as an x-amz-meta-* entry so a local-filesystem round trip that
// loses OS-level mtime precision can still recover it.
func metadataFor(cfg config.Config, lastModified time.Time) map[string]string {
	if len(cfg.Metadata) == 0 && (!cfg.PutLastModifiedMetadata || lastModified.IsZero()) {
		return nil
	}
	merged := make(map[string]string, len(cfg.Metadata)+1)
	for k, v := range cfg.Metadata {
		merged[k] = v
	}
	if cfg.PutLastModifiedMetadata && !lastModified.IsZero() {
		merged["s3sync-last-modified"] = lastModified.UTC().Format(time.RFC3339Nano)
	}
	return merged
}

// transferSingle implements the single-shot branch of §4.5.1.
func transferSingle(ctx context.Context, cfg config.Config, source, target Endpoint, ref objectref.ObjectRef, events chan<- stats.Event, logger *logging.Logger) error {
	if cfg.Transfer.DryRun {
		sendEvent(ctx, events, stats.Event{Kind: stats.SyncComplete, Key: ref.Key, Bytes: ref.Size})
		return nil
	}

	opts := putOptionsFor(cfg)
	opts.Metadata = metadataFor(cfg, ref.LastModified)

	if source.Path.Remote && target.Path.Remote {
		if cfg.Transfer.ServerSideCopy {
			opts.CopySourceIfMatch = checksum.NormalizeETag(ref.ETag)
		}
		result, err := target.Remote.CopyObject(ctx, source.Bucket(), joinKey(source.Prefix(), ref.Key), ref.VersionID, target.Bucket(), joinKey(target.Prefix(), ref.Key), opts)
		if err != nil {
			return err
		}
		verifySingleObjectIntegrity(ctx, cfg, ref, result.ETag, result.ChecksumAlgorithm, result.ChecksumValue, events, logger)
		sendEvent(ctx, events, stats.Event{Kind: stats.SyncComplete, Key: ref.Key, Bytes: ref.Size})
		return nil
	}

	body, head, err := openSource(ctx, source, ref)
	if err != nil {
		return err
	}
	defer must.Close(body, logger)

	hasher := md5.New()
	var checksumHasher interface{ Write([]byte) (int, error) }
	var checksumSum func() []byte
	if cfg.Transfer.EnableAdditionalChecksum && cfg.Transfer.AdditionalChecksumAlgorithm != "" {
		algorithm := cfg.Transfer.AdditionalChecksumAlgorithm
		h, hashErr := newChecksumReaderHasher(algorithm)
		if hashErr == nil {
			checksumHasher = h
			checksumSum = h.Sum
		}
	}

	reader := io.TeeReader(body, hasher)
	if checksumHasher != nil {
		reader = io.TeeReader(reader, checksumHasher.(io.Writer))
	}

	var result store.PutResult
	if target.Path.Remote {
		opts.ContentMD5 = ""
		result, err = target.Remote.PutObject(ctx, target.Bucket(), joinKey(target.Prefix(), ref.Key), reader, head.Size, opts)
	} else {
		result, err = target.Local.WriteAtomic(ctx, target.Prefix(), ref.Key, reader, head.Size, ref.LastModified)
	}
	if err != nil {
		return err
	}
	sendEvent(ctx, events, stats.Event{Kind: stats.ObjectFetched, Key: ref.Key, Bytes: head.Size})
	sendEvent(ctx, events, stats.Event{Kind: stats.ObjectPut, Key: ref.Key, Bytes: head.Size})

	localETag := fmt.Sprintf("%x", hasher.Sum(nil))
	checksumValue := result.ChecksumValue
	if checksumSum != nil {
		checksumValue = checksum.EncodeObjectChecksum(checksumSum(), 0)
	}
	verifySingleObjectIntegrity(ctx, cfg, ref, coalesce(result.ETag, localETag), result.ChecksumAlgorithm, checksumValue, events, logger)

	sendEvent(ctx, events, stats.Event{Kind: stats.SyncComplete, Key: ref.Key, Bytes: head.Size})
	return nil
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func openSource(ctx context.Context, source Endpoint, ref objectref.ObjectRef) (io.ReadCloser, store.HeadResult, error) {
	if source.Path.Remote {
		return source.Remote.GetObject(ctx, source.Bucket(), joinKey(source.Prefix(), ref.Key), ref.VersionID, "")
	}
	return source.Local.Open(ctx, source.Prefix(), ref.Key)
}

// verifySingleObjectIntegrity implements the non-multipart half of
// §4.5.3/§8's "ETag round-trip" invariant, emitting ETagVerified /
// ChecksumVerified on match and a SyncWarning on mismatch, unless the
// corresponding verification has been disabled.
func verifySingleObjectIntegrity(ctx context.Context, cfg config.Config, ref objectref.ObjectRef, targetETag, checksumAlgorithm, checksumValue string, events chan<- stats.Event, logger *logging.Logger) {
	if !cfg.Transfer.DisableEtagVerify && ref.ETag != "" {
		if checksum.NormalizeETag(ref.ETag) == checksum.NormalizeETag(targetETag) {
			sendEvent(ctx, events, stats.Event{Kind: stats.ETagVerified, Key: ref.Key})
		} else {
			logger.Warnf("etag mismatch for %s: source=%s target=%s", ref.Key, ref.ETag, targetETag)
			sendEvent(ctx, events, stats.Event{Kind: stats.SyncWarning, Key: ref.Key, Reason: "etag_mismatch"})
		}
	}

	if cfg.Transfer.EnableAdditionalChecksum && cfg.Transfer.AdditionalChecksumAlgorithm != "" && ref.ChecksumValue != "" {
		if ref.ChecksumValue == checksumValue {
			sendEvent(ctx, events, stats.Event{Kind: stats.ChecksumVerified, Key: ref.Key})
		} else {
			logger.Warnf("checksum mismatch for %s: source=%s target=%s", ref.Key, ref.ChecksumValue, checksumValue)
			sendEvent(ctx, events, stats.Event{Kind: stats.SyncWarning, Key: ref.Key, Reason: "checksum_mismatch"})
		}
	}
}

// checksumHasherAdapter gives transferSingle an io.Writer + Sum() pair to
// tee its read loop into. Write appends every byte to an in-memory buffer
// and Sum runs checksum.Sum over that buffer, so the whole object is held
// in memory until Sum is called.
type checksumHasherAdapter struct {
	algorithm checksum.Algorithm
	buffer    []byte
}

func (h *checksumHasherAdapter) Write(p []byte) (int, error) {
	h.buffer = append(h.buffer, p...)
	return len(p), nil
}

func (h *checksumHasherAdapter) Sum() []byte {
	sum, err := checksum.Sum(h.algorithm, h.buffer)
	if err != nil {
		return nil
	}
	return sum
}

func newChecksumReaderHasher(algorithm checksum.Algorithm) (*checksumHasherAdapter, error) {
	return &checksumHasherAdapter{algorithm: algorithm}, nil
}
