package pipeline

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"testing"

	"github.com/s3sync-go/s3sync/pkg/s3sync/checksum"
	"github.com/s3sync-go/s3sync/pkg/s3sync/config"
	"github.com/s3sync-go/s3sync/pkg/s3sync/objectref"
	"github.com/s3sync-go/s3sync/pkg/s3sync/s3path"
	"github.com/s3sync-go/s3sync/pkg/s3sync/stats"
	"github.com/s3sync-go/s3sync/pkg/s3sync/store"
)

// fakeCopyStore is a minimal store.ObjectStoreClient standing in for the
// target side of an S3→S3 multipart copy: UploadPartCopy returns the MD5
// of whatever byte range the caller asked it to copy, the same way S3
// itself reports a copied part's ETag.
type fakeCopyStore struct {
	sourceData []byte
}

func (f *fakeCopyStore) ListObjectsV2(ctx context.Context, bucket, prefix, continuationToken string, maxKeys int32) (store.ListPage, error) {
	return store.ListPage{}, fmt.Errorf("not supported by this test double")
}
func (f *fakeCopyStore) ListObjectVersions(ctx context.Context, bucket, prefix, keyMarker, versionIDMarker string, maxKeys int32) (store.ListPage, error) {
	return store.ListPage{}, fmt.Errorf("not supported by this test double")
}
func (f *fakeCopyStore) HeadObject(ctx context.Context, bucket, key, versionID string, partNumber int32) (store.HeadResult, error) {
	return store.HeadResult{}, fmt.Errorf("not supported by this test double")
}
func (f *fakeCopyStore) GetObject(ctx context.Context, bucket, key, versionID, byteRange string) (io.ReadCloser, store.HeadResult, error) {
	return nil, store.HeadResult{}, fmt.Errorf("not supported by this test double")
}
func (f *fakeCopyStore) PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64, opts store.PutOptions) (store.PutResult, error) {
	return store.PutResult{}, fmt.Errorf("not supported by this test double")
}
func (f *fakeCopyStore) CopyObject(ctx context.Context, sourceBucket, sourceKey, sourceVersionID, targetBucket, targetKey string, opts store.PutOptions) (store.PutResult, error) {
	return store.PutResult{}, fmt.Errorf("not supported by this test double")
}
func (f *fakeCopyStore) CreateMultipartUpload(ctx context.Context, bucket, key string, opts store.PutOptions) (string, error) {
	return "upload-1", nil
}
func (f *fakeCopyStore) UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int32, body io.Reader, size int64, contentMD5, checksumAlgorithm string) (store.PartResult, error) {
	return store.PartResult{}, fmt.Errorf("not supported by this test double")
}
func (f *fakeCopyStore) UploadPartCopy(ctx context.Context, bucket, key, uploadID string, partNumber int32, sourceBucket, sourceKey, sourceVersionID, byteRange string) (store.PartResult, error) {
	var start, end int64
	if _, err := fmt.Sscanf(byteRange, "bytes=%d-%d", &start, &end); err != nil {
		return store.PartResult{}, err
	}
	sum := md5.Sum(f.sourceData[start : end+1])
	return store.PartResult{PartNumber: partNumber, ETag: `"` + hex.EncodeToString(sum[:]) + `"`}, nil
}
func (f *fakeCopyStore) CompleteMultipartUpload(ctx context.Context, bucket, key, uploadID string, parts []store.CompletedPart) (store.PutResult, error) {
	var partMD5s [][16]byte
	for _, part := range parts {
		sum, ok := checksum.DecodeMD5ETag(part.ETag)
		if !ok {
			return store.PutResult{}, fmt.Errorf("part %d: unparseable etag %q", part.PartNumber, part.ETag)
		}
		partMD5s = append(partMD5s, sum)
	}
	return store.PutResult{ETag: checksum.MultipartETag(partMD5s)}, nil
}
func (f *fakeCopyStore) AbortMultipartUpload(ctx context.Context, bucket, key, uploadID string) error {
	return nil
}
func (f *fakeCopyStore) DeleteObject(ctx context.Context, bucket, key, versionID string) error {
	return nil
}

func TestUploadPartsS3ToS3CopyPopulatesPartMD5sForVerification(t *testing.T) {
	data := make([]byte, 30)
	for i := range data {
		data[i] = byte(i)
	}
	fake := &fakeCopyStore{sourceData: data}

	source := Endpoint{Path: s3path.Path{Remote: true, Bucket: "src-bucket"}, Remote: fake}
	target := Endpoint{Path: s3path.Path{Remote: true, Bucket: "dst-bucket"}, Remote: fake}
	ref := objectref.ObjectRef{Key: "a.bin", Size: int64(len(data))}
	spans := uniformParts(int64(len(data)), 10)

	events := make(chan stats.Event, 16)
	completed, partMD5s, partChecksums, err := uploadParts(context.Background(), config.Config{}, source, target, ref, "a.bin", "upload-1", spans, events, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if len(completed) != len(spans) {
		t.Fatalf("expected %d completed parts, got %d", len(spans), len(completed))
	}
	if partChecksums != nil {
		t.Errorf("expected no additional checksums when none are configured, got %v", partChecksums)
	}
	if len(partMD5s) != len(spans) {
		t.Fatalf("expected uploadParts to recover a per-part MD5 from each UploadPartCopy ETag, got %d of %d", len(partMD5s), len(spans))
	}

	reconstructed := checksum.MultipartETag(partMD5s)
	result, err := target.Remote.CompleteMultipartUpload(context.Background(), "dst-bucket", "a.bin", "upload-1", completed)
	if err != nil {
		t.Fatal(err)
	}
	if checksum.NormalizeETag(reconstructed) != checksum.NormalizeETag(result.ETag) {
		t.Errorf("reconstructed etag %s does not match target etag %s", reconstructed, result.ETag)
	}
}

func TestUniformPartsZeroSize(t *testing.T) {
	spans := uniformParts(0, defaultPartSize)
	if len(spans) != 1 || spans[0].Size != 0 || spans[0].Number != 1 {
		t.Fatalf("expected a single zero-size part, got %+v", spans)
	}
}

func TestUniformPartsEvenDivision(t *testing.T) {
	spans := uniformParts(30, 10)
	if len(spans) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(spans))
	}
	for i, span := range spans {
		if span.Number != int32(i+1) {
			t.Errorf("part %d: expected number %d, got %d", i, i+1, span.Number)
		}
		if span.Size != 10 {
			t.Errorf("part %d: expected size 10, got %d", i, span.Size)
		}
		if span.Offset != int64(i*10) {
			t.Errorf("part %d: expected offset %d, got %d", i, i*10, span.Offset)
		}
	}
}

func TestUniformPartsTrailingRemainder(t *testing.T) {
	spans := uniformParts(25, 10)
	if len(spans) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(spans))
	}
	last := spans[len(spans)-1]
	if last.Size != 5 {
		t.Errorf("expected final part to hold the 5-byte remainder, got %d", last.Size)
	}
}

func TestPlanPartsUpscalesToStayUnderMaxPartCount(t *testing.T) {
	cfg := config.Config{Transfer: config.TransferConfig{MultipartChunksize: minPartSize}}
	// A size that would need more than maxPartCount parts at minPartSize.
	size := int64(maxPartCount+1) * minPartSize
	ref := objectref.ObjectRef{Key: "huge.bin", Size: size}

	spans, err := planParts(context.Background(), cfg, Endpoint{}, ref)
	if err != nil {
		t.Fatal(err)
	}
	if len(spans) > maxPartCount {
		t.Errorf("expected at most %d parts, got %d", maxPartCount, len(spans))
	}
}

func TestPlanPartsDefaultsChunkSize(t *testing.T) {
	cfg := config.Config{}
	ref := objectref.ObjectRef{Key: "obj.bin", Size: defaultPartSize*2 + 1}

	spans, err := planParts(context.Background(), cfg, Endpoint{}, ref)
	if err != nil {
		t.Fatal(err)
	}
	if len(spans) != 3 {
		t.Fatalf("expected 3 parts at the default chunk size, got %d", len(spans))
	}
}

func TestInflightLimitDefaultsWhenUnset(t *testing.T) {
	cfg := config.Config{}
	if got := inflightLimit(cfg); got != config.DefaultTransferConfig().InflightPartsLimit {
		t.Errorf("expected default inflight limit, got %d", got)
	}
}

func TestInflightLimitBoundedByWorkerSize(t *testing.T) {
	cfg := config.Config{Transfer: config.TransferConfig{InflightPartsLimit: 16}, WorkerSize: 4}
	if got := inflightLimit(cfg); got != 4 {
		t.Errorf("expected worker_size to cap inflight_parts_limit, got %d", got)
	}
}

func TestInflightLimitUnboundedWorkerSizeKeepsConfiguredLimit(t *testing.T) {
	cfg := config.Config{Transfer: config.TransferConfig{InflightPartsLimit: 4}, WorkerSize: 16}
	if got := inflightLimit(cfg); got != 4 {
		t.Errorf("expected inflight_parts_limit to remain 4 when worker_size is larger, got %d", got)
	}
}
