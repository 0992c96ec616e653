package pipeline

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/s3sync-go/s3sync/pkg/logging"
	"github.com/s3sync-go/s3sync/pkg/must"
	"github.com/s3sync-go/s3sync/pkg/s3sync/checksum"
	"github.com/s3sync-go/s3sync/pkg/s3sync/config"
	"github.com/s3sync-go/s3sync/pkg/s3sync/objectref"
	"github.com/s3sync-go/s3sync/pkg/s3sync/stats"
	"github.com/s3sync-go/s3sync/pkg/s3sync/store"
)

// partSpan is one part's byte range within the object, [Offset, Offset+Size).
type partSpan struct {
	Number int32
	Offset int64
	Size   int64
}

// planParts implements §4.5.1's chunk-size decision: auto_chunksize HEAD's
// every source part to discover its exact size (required for the
// reconstructed target ETag to match the source's); otherwise a uniform
// chunk size is used, upscaled as needed so the part count never exceeds
// maxPartCount and each part stays within [minPartSize, maxPartSize].
func planParts(ctx context.Context, cfg config.Config, source Endpoint, ref objectref.ObjectRef) ([]partSpan, error) {
	normalized := checksum.NormalizeETag(ref.ETag)
	if cfg.Transfer.AutoChunksize && source.Path.Remote {
		if partCount, ok := checksum.IsMultipartETag(normalized); ok {
			return discoverSourcePartSizes(ctx, source, ref, partCount)
		}
	}

	chunkSize := cfg.Transfer.MultipartChunksize
	if chunkSize <= 0 {
		chunkSize = defaultPartSize
	}
	if chunkSize < minPartSize {
		chunkSize = minPartSize
	}
	if chunkSize > maxPartSize {
		chunkSize = maxPartSize
	}

	if ref.Size > 0 {
		requiredParts := (ref.Size + chunkSize - 1) / chunkSize
		if requiredParts > maxPartCount {
			chunkSize = (ref.Size + maxPartCount - 1) / maxPartCount
			if chunkSize > maxPartSize {
				return nil, fmt.Errorf("object %s of size %d cannot be split into at most %d parts within the %d byte part-size ceiling", ref.Key, ref.Size, maxPartCount, maxPartSize)
			}
		}
	}

	return uniformParts(ref.Size, chunkSize), nil
}

func uniformParts(size, chunkSize int64) []partSpan {
	if size <= 0 {
		return []partSpan{{Number: 1, Offset: 0, Size: 0}}
	}

	var spans []partSpan
	var offset int64
	var number int32 = 1
	for offset < size {
		remaining := size - offset
		partSize := chunkSize
		if partSize > remaining {
			partSize = remaining
		}
		spans = append(spans, partSpan{Number: number, Offset: offset, Size: partSize})
		offset += partSize
		number++
	}
	return spans
}

// discoverSourcePartSizes performs the HEAD-per-part probe of §4.5.1: one
// HeadObject call per source part (partNumber 1..N), using the Size of
// each response to recover the exact byte boundaries the source was
// originally uploaded with.
func discoverSourcePartSizes(ctx context.Context, source Endpoint, ref objectref.ObjectRef, partCount int) ([]partSpan, error) {
	spans := make([]partSpan, 0, partCount)
	var offset int64
	for i := 1; i <= partCount; i++ {
		head, err := source.Remote.HeadObject(ctx, source.Bucket(), joinKey(source.Prefix(), ref.Key), ref.VersionID, int32(i))
		if err != nil {
			return nil, fmt.Errorf("auto_chunksize HEAD for part %d of %s failed: %w", i, ref.Key, err)
		}
		spans = append(spans, partSpan{Number: int32(i), Offset: offset, Size: head.Size})
		offset += head.Size
	}
	return spans, nil
}

// transferMultipart drives the multipart state machine of §4.5.2:
// Init → Initiated → PartsInFlight → AllPartsUploaded → Completed, with a
// parallel Aborting → Aborted track on any part or Complete failure.
func transferMultipart(ctx context.Context, cfg config.Config, source, target Endpoint, ref objectref.ObjectRef, events chan<- stats.Event, logger *logging.Logger) error {
	spans, err := planParts(ctx, cfg, source, ref)
	if err != nil {
		return err
	}

	if cfg.Transfer.DryRun {
		sendEvent(ctx, events, stats.Event{Kind: stats.SyncComplete, Key: ref.Key, Bytes: ref.Size})
		return nil
	}

	// Init → Initiated.
	opts := putOptionsFor(cfg)
	opts.Metadata = metadataFor(cfg, ref.LastModified)
	targetKey := joinKey(target.Prefix(), ref.Key)
	uploadID, err := target.Remote.CreateMultipartUpload(ctx, target.Bucket(), targetKey, opts)
	if err != nil {
		return fmt.Errorf("CreateMultipartUpload failed for %s: %w", ref.Key, err)
	}
	logger.Debugf("multipart upload %s initiated for %s (%d parts)", uploadID, ref.Key, len(spans))

	// PartsInFlight.
	completed, partMD5s, partChecksums, uploadErr := uploadParts(ctx, cfg, source, target, ref, targetKey, uploadID, spans, events, logger)
	if uploadErr != nil {
		abortMultipart(ctx, target, targetKey, uploadID, ref.Key, logger)
		return uploadErr
	}

	// AllPartsUploaded → Completed.
	result, err := target.Remote.CompleteMultipartUpload(ctx, target.Bucket(), targetKey, uploadID, completed)
	if err != nil {
		abortMultipart(ctx, target, targetKey, uploadID, ref.Key, logger)
		return fmt.Errorf("CompleteMultipartUpload failed for %s: %w", ref.Key, err)
	}

	verifyMultipartIntegrity(ctx, cfg, ref, result, partMD5s, partChecksums, events, logger)

	sendEvent(ctx, events, stats.Event{Kind: stats.SyncComplete, Key: ref.Key, Bytes: ref.Size})
	return nil
}

// abortMultipart implements the Aborting → Aborted track: best-effort, the
// original failure is what's propagated regardless of whether the abort
// itself succeeds (§4.5.2).
func abortMultipart(ctx context.Context, target Endpoint, targetKey, uploadID, key string, logger *logging.Logger) {
	must.Succeed(target.Remote.AbortMultipartUpload(ctx, target.Bucket(), targetKey, uploadID), fmt.Sprintf("abort multipart upload for %s", key), logger)
}

// inflightLimit derives the effective concurrency bound for a single
// object's part operations: inflight_parts_limit, bounded by worker_size
// since a single object can never usefully run more concurrent part
// operations than the pool has workers to service them (§4.5.2).
func inflightLimit(cfg config.Config) int {
	limit := cfg.Transfer.InflightPartsLimit
	if limit < 1 {
		limit = config.DefaultTransferConfig().InflightPartsLimit
	}
	if workerSize := cfg.WorkerSize; workerSize >= 1 && workerSize < limit {
		limit = workerSize
	}
	return limit
}

// uploadParts performs the PartsInFlight step, choosing UploadPartCopy for
// an S3→S3 transfer and a streaming UploadPart (with simultaneous MD5 and
// additional-checksum hashing per §9's "per-part streaming hashing" note)
// otherwise. Parts are dispatched up to inflightLimit(cfg) at a time; order
// of completion is irrelevant, but the returned per-part MD5s and checksums
// are written positionally by part index so verifyMultipartIntegrity can
// concatenate them in part-number order regardless of completion order. The
// UploadPartCopy path recovers its per-part MD5 from the copy response's
// ETag (the same quoted-hex MD5 form a direct UploadPart returns) rather
// than leaving it unset, so S3→S3 multipart copies get the same integrity
// verification as a direct upload.
func uploadParts(ctx context.Context, cfg config.Config, source, target Endpoint, ref objectref.ObjectRef, targetKey, uploadID string, spans []partSpan, events chan<- stats.Event, logger *logging.Logger) ([]store.CompletedPart, [][16]byte, [][]byte, error) {
	useChecksum := cfg.Transfer.EnableAdditionalChecksum && cfg.Transfer.AdditionalChecksumAlgorithm != "" && !cfg.Transfer.FullObjectChecksum
	limit := inflightLimit(cfg)

	completed := make([]store.CompletedPart, len(spans))

	if source.Path.Remote && target.Path.Remote {
		partMD5s := make([][16]byte, len(spans))
		md5Decoded := make([]bool, len(spans))
		partChecksums := make([][]byte, len(spans))
		checksumDecoded := make([]bool, len(spans))

		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(limit)

		for i, span := range spans {
			i, span := i, span
			group.Go(func() error {
				if groupCtx.Err() != nil {
					return groupCtx.Err()
				}
				byteRange := fmt.Sprintf("bytes=%d-%d", span.Offset, span.Offset+span.Size-1)
				result, err := target.Remote.UploadPartCopy(groupCtx, target.Bucket(), targetKey, uploadID, span.Number, source.Bucket(), joinKey(source.Prefix(), ref.Key), ref.VersionID, byteRange)
				if err != nil {
					return fmt.Errorf("UploadPartCopy part %d of %s failed: %w", span.Number, ref.Key, err)
				}
				completed[i] = store.CompletedPart{PartNumber: span.Number, ETag: result.ETag, ChecksumAlgorithm: result.ChecksumAlgorithm, ChecksumValue: result.ChecksumValue}

				// UploadPartCopy's response ETag is the MD5 of the copied
				// range in the same quoted-hex form UploadPart returns, so
				// it feeds the same MultipartETag reconstruction used for a
				// direct upload instead of leaving verification blind to
				// S3→S3 copies.
				if sum, ok := checksum.DecodeMD5ETag(result.ETag); ok {
					partMD5s[i] = sum
					md5Decoded[i] = true
				}
				if useChecksum && result.ChecksumValue != "" {
					if raw, decodeErr := checksum.DecodeChecksumValue(result.ChecksumValue); decodeErr == nil {
						partChecksums[i] = raw
						checksumDecoded[i] = true
					}
				}

				sendEvent(ctx, events, stats.Event{Kind: stats.PartPut, Key: ref.Key, Bytes: span.Size})
				return nil
			})
		}

		if err := group.Wait(); err != nil {
			return nil, nil, nil, err
		}

		for _, ok := range md5Decoded {
			if !ok {
				partMD5s = nil
				break
			}
		}
		if !useChecksum {
			partChecksums = nil
		} else {
			for _, ok := range checksumDecoded {
				if !ok {
					partChecksums = nil
					break
				}
			}
		}
		return completed, partMD5s, partChecksums, nil
	}

	body, _, err := openSource(ctx, source, ref)
	if err != nil {
		return nil, nil, nil, err
	}
	defer must.Close(body, logger)

	partMD5s := make([][16]byte, len(spans))
	partChecksums := make([][]byte, len(spans))

	// The source is read sequentially regardless of limit: a single
	// io.Reader can't be split across concurrent part reads, so each
	// part is buffered in turn and only the UploadPart call itself (the
	// network-bound half of the work) is handed to the bounded group.
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(limit)

	for i, span := range spans {
		if groupCtx.Err() != nil {
			break
		}
		partReader := io.LimitReader(body, span.Size)
		buffer, readErr := readAll(partReader)
		if readErr != nil {
			_ = group.Wait()
			return nil, nil, nil, fmt.Errorf("reading part %d of %s failed: %w", span.Number, ref.Key, readErr)
		}
		sendEvent(ctx, events, stats.Event{Kind: stats.PartFetched, Key: ref.Key, Bytes: span.Size})

		i, span, buffer := i, span, buffer
		group.Go(func() error {
			if groupCtx.Err() != nil {
				return groupCtx.Err()
			}
			partMD5, partChecksum, result, uploadErr := uploadOnePart(groupCtx, cfg, target, targetKey, uploadID, span, buffer, useChecksum)
			if uploadErr != nil {
				return fmt.Errorf("UploadPart %d of %s failed: %w", span.Number, ref.Key, uploadErr)
			}
			partMD5s[i] = partMD5
			if useChecksum {
				partChecksums[i] = partChecksum
			}
			completed[i] = store.CompletedPart{PartNumber: span.Number, ETag: result.ETag, ChecksumAlgorithm: result.ChecksumAlgorithm, ChecksumValue: result.ChecksumValue}
			sendEvent(ctx, events, stats.Event{Kind: stats.PartPut, Key: ref.Key, Bytes: span.Size})
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, nil, nil, err
	}

	if !useChecksum {
		partChecksums = nil
	}
	return completed, partMD5s, partChecksums, nil
}

func readAll(r io.Reader) ([]byte, error) {
	buffer := make([]byte, 0, 32*1024)
	readBuffer := make([]byte, 32*1024)
	for {
		n, err := r.Read(readBuffer)
		if n > 0 {
			buffer = append(buffer, readBuffer[:n]...)
		}
		if err == io.EOF {
			return buffer, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func uploadOnePart(ctx context.Context, cfg config.Config, target Endpoint, targetKey, uploadID string, span partSpan, buffer []byte, useChecksum bool) ([16]byte, []byte, store.PartResult, error) {
	partMD5 := md5Sum(buffer)
	var partChecksum []byte
	var checksumAlgorithm string
	if useChecksum {
		sum, err := checksum.Sum(cfg.Transfer.AdditionalChecksumAlgorithm, buffer)
		if err == nil {
			partChecksum = sum
			checksumAlgorithm = string(cfg.Transfer.AdditionalChecksumAlgorithm)
		}
	}

	contentMD5 := ""
	if !cfg.Transfer.DisableContentMD5Header {
		contentMD5 = base64Std(partMD5[:])
	}

	result, err := target.Remote.UploadPart(ctx, target.Bucket(), targetKey, uploadID, span.Number, newByteReader(buffer), span.Size, contentMD5, checksumAlgorithm)
	return partMD5, partChecksum, result, err
}

// verifyMultipartIntegrity implements the multipart half of §4.5.3/§8's
// ETag round-trip and checksum-composition invariants: the target ETag is
// reconstructed as hex(md5(concat(part MD5s)))-N and compared against what
// the target actually reports, and likewise for the composed additional
// checksum.
func verifyMultipartIntegrity(ctx context.Context, cfg config.Config, ref objectref.ObjectRef, result store.PutResult, partMD5s [][16]byte, partChecksums [][]byte, events chan<- stats.Event, logger *logging.Logger) {
	if !cfg.Transfer.DisableMultipartVerify && len(partMD5s) > 0 {
		reconstructed := checksum.MultipartETag(partMD5s)
		if checksum.NormalizeETag(reconstructed) == checksum.NormalizeETag(result.ETag) {
			sendEvent(ctx, events, stats.Event{Kind: stats.ETagVerified, Key: ref.Key})
		} else {
			logger.Warnf("multipart etag mismatch for %s: reconstructed=%s target=%s", ref.Key, reconstructed, result.ETag)
			sendEvent(ctx, events, stats.Event{Kind: stats.SyncWarning, Key: ref.Key, Reason: "etag_mismatch"})
		}
	}

	if cfg.Transfer.EnableAdditionalChecksum && cfg.Transfer.AdditionalChecksumAlgorithm != "" && len(partChecksums) > 0 {
		composed, err := checksum.ComposePartChecksums(cfg.Transfer.AdditionalChecksumAlgorithm, partChecksums)
		if err == nil {
			encoded := checksum.EncodeObjectChecksum(composed, len(partChecksums))
			if encoded == result.ChecksumValue {
				sendEvent(ctx, events, stats.Event{Kind: stats.ChecksumVerified, Key: ref.Key})
			} else {
				logger.Warnf("checksum mismatch for %s: composed=%s target=%s", ref.Key, encoded, result.ChecksumValue)
				sendEvent(ctx, events, stats.Event{Kind: stats.SyncWarning, Key: ref.Key, Reason: "checksum_mismatch"})
			}
		}
	}
}
